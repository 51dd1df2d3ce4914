package ecs

import (
	"sort"

	"go.uber.org/zap"

	"github.com/vibe3d/engine/internal/core/event"
)

// ComponentSource is the read surface of the authoritative component store,
// as consumed by index validation and rebuild. Anything that can answer
// these three questions can back the index layer.
type ComponentSource interface {
	Has(id EntityID, ctype string) bool
	// Data returns the opaque component payload, or nil if absent.
	Data(id EntityID, ctype string) any
	// Types enumerates the component type names carried by id, sorted.
	Types(id EntityID) []string
}

// ComponentRegistry is the in-memory authoritative component store and the
// orchestrator for component mutation: it owns the (entity, type) → payload
// data and announces every add and remove on the bus, synchronously, so the
// membership index reflects the change before the mutating call returns.
// Payloads are JSON-shaped (scene files store components as free-form
// objects keyed by type name).
type ComponentRegistry struct {
	data  map[EntityID]map[string]any
	bus   *event.Bus
	alive func(EntityID) bool
	log   *zap.Logger
}

func NewComponentRegistry(bus *event.Bus, log *zap.Logger) *ComponentRegistry {
	return &ComponentRegistry{
		data: make(map[EntityID]map[string]any, 256),
		bus:  bus,
		log:  log,
	}
}

// SetLivenessGuard installs the liveness check applied on Add. Installed by
// the world during wiring; without it the registry accepts any handle.
func (r *ComponentRegistry) SetLivenessGuard(alive func(EntityID) bool) {
	r.alive = alive
}

// Add upserts a component payload. Re-adding an existing (entity, type) pair
// replaces the payload and is not an error; the membership announcement is
// only made on first add. Returns false for a dead entity handle.
func (r *ComponentRegistry) Add(id EntityID, ctype string, payload any) bool {
	if r.alive != nil && !r.alive(id) {
		return false
	}
	comps := r.data[id]
	if comps == nil {
		comps = make(map[string]any, 4)
		r.data[id] = comps
	}
	_, existed := comps[ctype]
	comps[ctype] = payload
	if !existed {
		event.Publish(r.bus, ComponentAdded{Entity: id, Type: ctype})
		r.log.Debug("component added",
			zap.Uint64("entity", uint64(id)), zap.String("type", ctype))
	}
	return true
}

// Remove drops one component. Returns false if the pair was absent.
func (r *ComponentRegistry) Remove(id EntityID, ctype string) bool {
	comps, ok := r.data[id]
	if !ok {
		return false
	}
	if _, ok := comps[ctype]; !ok {
		return false
	}
	delete(comps, ctype)
	if len(comps) == 0 {
		delete(r.data, id)
	}
	event.Publish(r.bus, ComponentRemoved{Entity: id, Type: ctype})
	r.log.Debug("component removed",
		zap.Uint64("entity", uint64(id)), zap.String("type", ctype))
	return true
}

// RemoveEntity drops every component of id, announcing each type. Called by
// the lifecycle cascade before the entity leaves the liveness index.
func (r *ComponentRegistry) RemoveEntity(id EntityID) {
	for _, ctype := range r.Types(id) {
		r.Remove(id, ctype)
	}
}

func (r *ComponentRegistry) Has(id EntityID, ctype string) bool {
	_, ok := r.data[id][ctype]
	return ok
}

func (r *ComponentRegistry) Data(id EntityID, ctype string) any {
	return r.data[id][ctype]
}

func (r *ComponentRegistry) Types(id EntityID) []string {
	comps := r.data[id]
	out := make([]string, 0, len(comps))
	for t := range comps {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Entities returns every handle currently holding component data, including
// dangling ones left by out-of-band mutation. Rebuild filters by liveness.
func (r *ComponentRegistry) Entities() []EntityID {
	out := make([]EntityID, 0, len(r.data))
	for id := range r.data {
		out = append(out, id)
	}
	return out
}

// Clear drops every component, announcing each removal so the membership
// index drains with the store. Scene reload path; not called per frame.
func (r *ComponentRegistry) Clear() {
	for _, id := range r.Entities() {
		r.RemoveEntity(id)
	}
}
