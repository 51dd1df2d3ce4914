package ecs

import "fmt"

// IDAllocator mints entity handles. The index layer only tracks handles it is
// handed, so allocation lives behind an interface: runtime creation uses
// Next, scene loading reserves the ids recorded in the file via Reserve.
type IDAllocator interface {
	// Next returns a fresh handle, unique among live entities.
	Next() EntityID
	// Reserve claims an explicit handle. Returns ErrDuplicateID if the
	// handle is already in use, before any caller-side state changes.
	Reserve(id EntityID) error
	// Release returns a handle to the allocator after its entity died.
	Release(id EntityID)
	// Reset forgets all claims and restarts the sequence.
	Reset()
}

// ErrDuplicateID is returned by Reserve for a handle that is already live.
var ErrDuplicateID = fmt.Errorf("ecs: entity id already in use")

// serialAllocator hands out monotonically increasing handles starting at 1
// and tracks the in-use set so explicit reservations can be validated.
// Released handles are not recycled; the sequence only moves forward, which
// keeps stale references from ever aliasing a newer entity.
type serialAllocator struct {
	next  EntityID
	inUse map[EntityID]struct{}
}

// NewSerialAllocator returns the default IDAllocator.
func NewSerialAllocator() IDAllocator {
	return &serialAllocator{
		next:  1,
		inUse: make(map[EntityID]struct{}, 256),
	}
}

func (a *serialAllocator) Next() EntityID {
	for {
		id := a.next
		a.next++
		if _, taken := a.inUse[id]; !taken {
			a.inUse[id] = struct{}{}
			return id
		}
	}
}

func (a *serialAllocator) Reserve(id EntityID) error {
	if !id.IsValid() {
		return fmt.Errorf("ecs: cannot reserve invalid entity id")
	}
	if _, taken := a.inUse[id]; taken {
		return fmt.Errorf("%w: %d", ErrDuplicateID, id)
	}
	a.inUse[id] = struct{}{}
	if id >= a.next {
		a.next = id + 1
	}
	return nil
}

func (a *serialAllocator) Release(id EntityID) {
	delete(a.inUse, id)
}

func (a *serialAllocator) Reset() {
	a.next = 1
	a.inUse = make(map[EntityID]struct{}, 256)
}
