package ecs

import (
	"go.uber.org/zap"

	"github.com/vibe3d/engine/internal/core/event"
)

// WorldOptions tunes one engine instance.
type WorldOptions struct {
	// AutoAssert runs a full consistency assertion after every mutation
	// event. Development builds only; the audit is O(n·k) per mutation.
	AutoAssert bool
}

// World is one engine instance: the bus, the allocator, the three indices and
// their orchestrators, and the query façade, wired together with no shared
// process-wide state. Independent Worlds can live side by side.
//
// The indices themselves are not exposed. Mutation goes through Manager and
// Registry, reads through Queries.
type World struct {
	bus       *event.Bus
	alloc     IDAllocator
	entities  *EntityIndex
	component *ComponentIndex
	hierarchy *HierarchyIndex
	registry  *ComponentRegistry
	manager   *EntityManager
	queries   *EntityQueries
	asserts   []*event.Subscription
	log       *zap.Logger
}

func NewWorld(log *zap.Logger) *World {
	return NewWorldWith(WorldOptions{}, log)
}

func NewWorldWith(opts WorldOptions, log *zap.Logger) *World {
	w := &World{
		bus:       event.NewBus(),
		alloc:     NewSerialAllocator(),
		entities:  NewEntityIndex(),
		component: NewComponentIndex(),
		hierarchy: NewHierarchyIndex(),
		log:       log,
	}
	w.registry = NewComponentRegistry(w.bus, log)
	w.manager = NewEntityManager(w.alloc, w.entities, w.hierarchy, w.registry, w.bus, log)
	w.registry.SetLivenessGuard(func(id EntityID) bool {
		_, ok := w.manager.Entity(id)
		return ok
	})
	// The façade subscribes first so its index mirror runs before any
	// auto-assert handler sees the event.
	w.queries = NewEntityQueries(w.bus, w.registry, w.manager,
		w.entities, w.component, w.hierarchy, log)
	if opts.AutoAssert {
		assert := func() { w.queries.AssertConsistency() }
		w.asserts = []*event.Subscription{
			event.Subscribe(w.bus, func(EntityCreated) { assert() }),
			event.Subscribe(w.bus, func(EntityDestroyed) { assert() }),
			event.Subscribe(w.bus, func(EntityReparented) { assert() }),
			event.Subscribe(w.bus, func(ComponentAdded) { assert() }),
			event.Subscribe(w.bus, func(ComponentRemoved) { assert() }),
		}
	}
	return w
}

func (w *World) Bus() *event.Bus              { return w.bus }
func (w *World) Manager() *EntityManager      { return w.manager }
func (w *World) Registry() *ComponentRegistry { return w.registry }
func (w *World) Queries() *EntityQueries      { return w.queries }

// Destroy releases the world's subscriptions. Idempotent.
func (w *World) Destroy() {
	for _, s := range w.asserts {
		s.Cancel()
	}
	w.asserts = nil
	w.queries.Destroy()
}
