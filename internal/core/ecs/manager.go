package ecs

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vibe3d/engine/internal/core/event"
)

var (
	ErrEntityNotFound = fmt.Errorf("ecs: entity not found")
	ErrParentNotFound = fmt.Errorf("ecs: parent entity not found")
)

// EntityManager owns the authoritative entity table and drives the entity
// lifecycle: create, cascade delete, reparent. It is the only writer of
// EntityIndex and HierarchyIndex; ComponentIndex follows the registry's bus
// announcements. Every mutation updates the table first, then the indices,
// inline, so no read between two manager calls can see them disagree.
type EntityManager struct {
	table     map[EntityID]*Entity
	alloc     IDAllocator
	index     *EntityIndex
	hierarchy *HierarchyIndex
	registry  *ComponentRegistry
	bus       *event.Bus
	log       *zap.Logger
}

func NewEntityManager(
	alloc IDAllocator,
	index *EntityIndex,
	hierarchy *HierarchyIndex,
	registry *ComponentRegistry,
	bus *event.Bus,
	log *zap.Logger,
) *EntityManager {
	return &EntityManager{
		table:     make(map[EntityID]*Entity, 256),
		alloc:     alloc,
		index:     index,
		hierarchy: hierarchy,
		registry:  registry,
		bus:       bus,
		log:       log,
	}
}

// CreateEntity allocates a fresh handle and registers it, optionally linked
// under a live parent. Pass InvalidEntity for a root entity.
func (m *EntityManager) CreateEntity(name string, parent EntityID) (*Entity, error) {
	if err := m.checkParent(parent); err != nil {
		return nil, err
	}
	return m.register(m.alloc.Next(), name, parent)
}

// CreateEntityWithID registers an entity under an explicit handle — the scene
// load path, which replays recorded ids through the normal lifecycle instead
// of a privileged bulk import. A duplicate handle is rejected before any
// index is touched.
func (m *EntityManager) CreateEntityWithID(id EntityID, name string, parent EntityID) (*Entity, error) {
	if err := m.checkParent(parent); err != nil {
		return nil, err
	}
	if err := m.alloc.Reserve(id); err != nil {
		return nil, err
	}
	return m.register(id, name, parent)
}

func (m *EntityManager) register(id EntityID, name string, parent EntityID) (*Entity, error) {
	e := &Entity{ID: id, Name: name, GUID: uuid.New(), parent: parent}
	m.table[id] = e
	m.index.Add(id)
	if parent.IsValid() {
		// Parent liveness was checked up front; self/cycle violations are
		// impossible for a brand-new leaf.
		if err := m.hierarchy.SetParent(id, parent); err != nil {
			m.index.Remove(id)
			delete(m.table, id)
			m.alloc.Release(id)
			return nil, err
		}
	}
	event.Publish(m.bus, EntityCreated{Entity: id, Name: name, Parent: parent})
	m.log.Debug("entity created",
		zap.Uint64("entity", uint64(id)), zap.String("name", name))
	return e, nil
}

// DeleteEntity removes id and its entire subtree. Returns false for an
// unknown handle. The descendant set is computed before anything mutates;
// descendants die before the root, and each entity is stripped from the
// component index, the hierarchy, and the liveness index in that order, so
// the indices agree with each other between any two removals.
func (m *EntityManager) DeleteEntity(id EntityID) bool {
	if _, ok := m.table[id]; !ok {
		return false
	}
	doomed := m.hierarchy.Descendants(id)
	// Leaves first: reverse of the breadth-first order.
	for i := len(doomed) - 1; i >= 0; i-- {
		m.remove(doomed[i])
	}
	m.remove(id)
	return true
}

func (m *EntityManager) remove(id EntityID) {
	e, ok := m.table[id]
	if !ok {
		return
	}
	m.registry.RemoveEntity(id)
	m.hierarchy.RemoveEntity(id)
	m.index.Remove(id)
	delete(m.table, id)
	m.alloc.Release(id)
	event.Publish(m.bus, EntityDestroyed{Entity: id, Name: e.Name})
	m.log.Debug("entity destroyed",
		zap.Uint64("entity", uint64(id)), zap.String("name", e.Name))
}

// SetParent moves id under parent, or to the root set for InvalidEntity.
// Self-parenting, cycles, dead ids and dead parents are rejected with no
// state change.
func (m *EntityManager) SetParent(id, parent EntityID) error {
	e, ok := m.table[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrEntityNotFound, id)
	}
	if err := m.checkParent(parent); err != nil {
		return err
	}
	old := e.parent
	if err := m.hierarchy.SetParent(id, parent); err != nil {
		return err
	}
	e.parent = parent
	event.Publish(m.bus, EntityReparented{Entity: id, OldParent: old, NewParent: parent})
	return nil
}

// Entity returns the authoritative record for id.
func (m *EntityManager) Entity(id EntityID) (*Entity, bool) {
	e, ok := m.table[id]
	return e, ok
}

// FindByName returns the handles of all entities with the given name.
func (m *EntityManager) FindByName(name string) []EntityID {
	var out []EntityID
	for id, e := range m.table {
		if e.Name == name {
			out = append(out, id)
		}
	}
	return out
}

// AllEntities snapshots the liveness index.
func (m *EntityManager) AllEntities() []EntityID {
	return m.index.List()
}

func (m *EntityManager) Count() int { return len(m.table) }

// Records snapshots the authoritative table. Consumed by validation and
// rebuild, which re-derive index content from it.
func (m *EntityManager) Records() []*Entity {
	out := make([]*Entity, 0, len(m.table))
	for _, e := range m.table {
		out = append(out, e)
	}
	return out
}

// Clear wipes the table and all three indices. Used on scene clear/reload.
// The registry drains first, while the table is still intact, so every
// removal it announces observes a consistent world; the table goes last.
func (m *EntityManager) Clear() {
	m.registry.Clear()
	m.hierarchy.Clear()
	m.index.Clear()
	for id := range m.table {
		m.alloc.Release(id)
	}
	m.table = make(map[EntityID]*Entity, 256)
}

// Reset is Clear plus an allocator restart, dropping any cached id state.
func (m *EntityManager) Reset() {
	m.Clear()
	m.alloc.Reset()
}

func (m *EntityManager) checkParent(parent EntityID) error {
	if !parent.IsValid() {
		return nil
	}
	if _, ok := m.table[parent]; !ok {
		return fmt.Errorf("%w: %d", ErrParentNotFound, parent)
	}
	return nil
}
