package ecs

// ComponentIndex is the membership index: for every component type name, the
// set of entities carrying that type. It answers "which entities have X",
// intersections and unions without touching the component store.
type ComponentIndex struct {
	buckets map[string]map[EntityID]struct{}
}

func NewComponentIndex() *ComponentIndex {
	return &ComponentIndex{
		buckets: make(map[string]map[EntityID]struct{}, 32),
	}
}

// OnAdd registers id under ctype, lazily creating the bucket. Idempotent.
func (x *ComponentIndex) OnAdd(ctype string, id EntityID) {
	b := x.buckets[ctype]
	if b == nil {
		b = make(map[EntityID]struct{}, 64)
		x.buckets[ctype] = b
	}
	b[id] = struct{}{}
}

// OnRemove drops id from exactly ctype's bucket. No-op if either is unknown.
func (x *ComponentIndex) OnRemove(ctype string, id EntityID) {
	if b, ok := x.buckets[ctype]; ok {
		delete(b, id)
	}
}

// RemoveEntity drops id from every bucket it appears in. Used on entity
// deletion, when the caller has no component-type list at hand.
func (x *ComponentIndex) RemoveEntity(id EntityID) {
	for _, b := range x.buckets {
		delete(b, id)
	}
}

// Has reports whether id is indexed under ctype.
func (x *ComponentIndex) Has(ctype string, id EntityID) bool {
	_, ok := x.buckets[ctype][id]
	return ok
}

// List returns the members of ctype in no particular order. Unknown types
// yield an empty slice, never an error.
func (x *ComponentIndex) List(ctype string) []EntityID {
	b := x.buckets[ctype]
	out := make([]EntityID, 0, len(b))
	for id := range b {
		out = append(out, id)
	}
	return out
}

// ListWithAll intersects the named buckets. Empty input, or any unknown or
// empty bucket, short-circuits to an empty result. Iterates the smallest
// bucket and probes the rest, bounding work by the smallest set's size.
func (x *ComponentIndex) ListWithAll(ctypes []string) []EntityID {
	if len(ctypes) == 0 {
		return nil
	}
	smallest := -1
	for i, t := range ctypes {
		b, ok := x.buckets[t]
		if !ok || len(b) == 0 {
			return nil
		}
		if smallest < 0 || len(b) < len(x.buckets[ctypes[smallest]]) {
			smallest = i
		}
	}
	seed := x.buckets[ctypes[smallest]]
	out := make([]EntityID, 0, len(seed))
next:
	for id := range seed {
		for i, t := range ctypes {
			if i == smallest {
				continue
			}
			if _, ok := x.buckets[t][id]; !ok {
				continue next
			}
		}
		out = append(out, id)
	}
	return out
}

// ListWithAny unions the named buckets, duplicate-free.
func (x *ComponentIndex) ListWithAny(ctypes []string) []EntityID {
	seen := make(map[EntityID]struct{})
	var out []EntityID
	for _, t := range ctypes {
		for id := range x.buckets[t] {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// Types returns the component type names holding at least one member.
// Buckets that have drained to zero are not reported.
func (x *ComponentIndex) Types() []string {
	out := make([]string, 0, len(x.buckets))
	for t, b := range x.buckets {
		if len(b) > 0 {
			out = append(out, t)
		}
	}
	return out
}

func (x *ComponentIndex) Clear() {
	x.buckets = make(map[string]map[EntityID]struct{}, 32)
}
