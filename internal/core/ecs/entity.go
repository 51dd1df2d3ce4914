package ecs

import "github.com/google/uuid"

// EntityID is an opaque handle identifying one entity. Handles are minted by
// an IDAllocator, never by the index layer itself. Zero is never allocated
// and doubles as the "no entity" / "no parent" sentinel.
type EntityID uint64

// InvalidEntity is the zero handle. Passing it as a parent makes an entity
// a root.
const InvalidEntity EntityID = 0

func (id EntityID) IsValid() bool { return id != InvalidEntity }

// Entity is the authoritative record for one live entity: display name,
// stable GUID for serialization and cross-scene references, and the parent
// link that HierarchyIndex mirrors.
type Entity struct {
	ID     EntityID
	Name   string
	GUID   uuid.UUID
	parent EntityID
}

// Parent returns the authoritative parent handle (InvalidEntity for roots).
func (e *Entity) Parent() EntityID { return e.parent }

// EntityIndex is the liveness index: the set of handles currently live in
// the entity table. All membership answers are O(1); List snapshots.
type EntityIndex struct {
	ids map[EntityID]struct{}
}

func NewEntityIndex() *EntityIndex {
	return &EntityIndex{
		ids: make(map[EntityID]struct{}, 256),
	}
}

// Add inserts id. Re-adding a present id is a no-op, not an error.
func (x *EntityIndex) Add(id EntityID) {
	x.ids[id] = struct{}{}
}

// Remove drops id. No-op if absent.
func (x *EntityIndex) Remove(id EntityID) {
	delete(x.ids, id)
}

func (x *EntityIndex) Has(id EntityID) bool {
	_, ok := x.ids[id]
	return ok
}

func (x *EntityIndex) Len() int { return len(x.ids) }

// List returns a snapshot of the current members in no particular order.
// Mutating the returned slice does not affect the index.
func (x *EntityIndex) List() []EntityID {
	out := make([]EntityID, 0, len(x.ids))
	for id := range x.ids {
		out = append(out, id)
	}
	return out
}

func (x *EntityIndex) Clear() {
	x.ids = make(map[EntityID]struct{}, 256)
}
