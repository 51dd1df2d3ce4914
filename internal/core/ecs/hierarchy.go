package ecs

import (
	"fmt"
	"sort"
)

// Hierarchy violations reported by SetParent.
var (
	ErrSelfParent     = fmt.Errorf("ecs: entity cannot be its own parent")
	ErrHierarchyCycle = fmt.Errorf("ecs: reparent would create a cycle")
)

// HierarchyIndex mirrors the parent links of the entity table as flat maps:
// parent pointer per child, ordered child list per parent. Entities are plain
// integer handles, so parent and child records carry no ownership of each
// other.
type HierarchyIndex struct {
	parents  map[EntityID]EntityID
	children map[EntityID][]EntityID
}

func NewHierarchyIndex() *HierarchyIndex {
	return &HierarchyIndex{
		parents:  make(map[EntityID]EntityID, 256),
		children: make(map[EntityID][]EntityID, 64),
	}
}

// SetParent detaches child from any prior parent, then links it under parent.
// InvalidEntity as parent leaves the child rootless. Self-parenting and
// linking under the child's own descendant are rejected with the index left
// exactly as it was.
func (x *HierarchyIndex) SetParent(child, parent EntityID) error {
	if parent.IsValid() {
		if parent == child {
			return ErrSelfParent
		}
		if x.isDescendant(parent, child) {
			return fmt.Errorf("%w: %d is a descendant of %d", ErrHierarchyCycle, parent, child)
		}
	}
	x.detach(child)
	if parent.IsValid() {
		x.parents[child] = parent
		x.children[parent] = append(x.children[parent], child)
	}
	return nil
}

// Parent returns the parent of child, if one is assigned.
func (x *HierarchyIndex) Parent(child EntityID) (EntityID, bool) {
	p, ok := x.parents[child]
	return p, ok
}

// Children returns the direct children of parent in insertion order.
func (x *HierarchyIndex) Children(parent EntityID) []EntityID {
	kids := x.children[parent]
	out := make([]EntityID, len(kids))
	copy(out, kids)
	return out
}

// Descendants returns every entity below root, root excluded, duplicate-free.
// Traversal runs over an explicit worklist with a visited set: corrupted
// child links (cycles written by an out-of-band bug) terminate instead of
// looping, and validation surfaces them separately.
func (x *HierarchyIndex) Descendants(root EntityID) []EntityID {
	visited := map[EntityID]struct{}{root: {}}
	var out []EntityID
	work := append([]EntityID(nil), x.children[root]...)
	for len(work) > 0 {
		id := work[0]
		work = work[1:]
		if _, seen := visited[id]; seen {
			continue
		}
		visited[id] = struct{}{}
		out = append(out, id)
		work = append(work, x.children[id]...)
	}
	return out
}

// Roots filters candidates down to entities with no parent assigned at all —
// structural roots, not roots relative to the candidate subset.
func (x *HierarchyIndex) Roots(candidates []EntityID) []EntityID {
	out := make([]EntityID, 0, len(candidates))
	for _, id := range candidates {
		if _, hasParent := x.parents[id]; !hasParent {
			out = append(out, id)
		}
	}
	return out
}

// RemoveEntity structurally detaches id: drops its parent link and its own
// children list. It does not touch the former children's parent pointers —
// the deletion cascade removes descendants before their parent, so in normal
// operation there is nothing left to orphan.
func (x *HierarchyIndex) RemoveEntity(id EntityID) {
	x.detach(id)
	delete(x.children, id)
}

// Links snapshots the indexed parent links as (child, parent) pairs, sorted
// by child id. Validation walks them to catch links whose endpoints have no
// live record.
func (x *HierarchyIndex) Links() [][2]EntityID {
	out := make([][2]EntityID, 0, len(x.parents))
	for c, p := range x.parents {
		out = append(out, [2]EntityID{c, p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// RelationshipCount returns the number of parent links currently indexed.
func (x *HierarchyIndex) RelationshipCount() int {
	return len(x.parents)
}

func (x *HierarchyIndex) Clear() {
	x.parents = make(map[EntityID]EntityID, 256)
	x.children = make(map[EntityID][]EntityID, 64)
}

// StructuralViolations audits the index's own invariants: the parent map and
// the child lists must mirror each other exactly, and parent chains must be
// acyclic. Returns human-readable findings in a stable order; empty means
// structurally sound. Only out-of-band corruption can make this non-empty.
func (x *HierarchyIndex) StructuralViolations() []string {
	var errs []string

	childIDs := make([]EntityID, 0, len(x.parents))
	for c := range x.parents {
		childIDs = append(childIDs, c)
	}
	sort.Slice(childIDs, func(i, j int) bool { return childIDs[i] < childIDs[j] })
	for _, c := range childIDs {
		p := x.parents[c]
		found := false
		for _, k := range x.children[p] {
			if k == c {
				found = true
				break
			}
		}
		if !found {
			errs = append(errs, fmt.Sprintf(
				"hierarchy: entity %d points at parent %d but is not in its child list", c, p))
		}
	}

	parentIDs := make([]EntityID, 0, len(x.children))
	for p := range x.children {
		parentIDs = append(parentIDs, p)
	}
	sort.Slice(parentIDs, func(i, j int) bool { return parentIDs[i] < parentIDs[j] })
	for _, p := range parentIDs {
		seen := make(map[EntityID]struct{}, len(x.children[p]))
		for _, k := range x.children[p] {
			if _, dup := seen[k]; dup {
				errs = append(errs, fmt.Sprintf(
					"hierarchy: entity %d appears twice in the child list of %d", k, p))
				continue
			}
			seen[k] = struct{}{}
			if got, ok := x.parents[k]; !ok || got != p {
				errs = append(errs, fmt.Sprintf(
					"hierarchy: entity %d is in the child list of %d but does not point back at it", k, p))
			}
		}
	}

	// Parent-chain walk bounded by a visited set per start node.
	for _, c := range childIDs {
		visited := map[EntityID]struct{}{c: {}}
		cur := c
		for {
			p, ok := x.parents[cur]
			if !ok {
				break
			}
			if _, looped := visited[p]; looped {
				errs = append(errs, fmt.Sprintf(
					"hierarchy: cycle detected in the parent chain of entity %d", c))
				break
			}
			visited[p] = struct{}{}
			cur = p
		}
	}

	return errs
}

// isDescendant reports whether id sits somewhere below root. Visited-set
// guarded for the same reason as Descendants.
func (x *HierarchyIndex) isDescendant(id, root EntityID) bool {
	visited := map[EntityID]struct{}{root: {}}
	work := append([]EntityID(nil), x.children[root]...)
	for len(work) > 0 {
		cur := work[0]
		work = work[1:]
		if cur == id {
			return true
		}
		if _, seen := visited[cur]; seen {
			continue
		}
		visited[cur] = struct{}{}
		work = append(work, x.children[cur]...)
	}
	return false
}

// detach removes id from its parent's child list and clears its parent
// pointer. No-op for roots.
func (x *HierarchyIndex) detach(id EntityID) {
	p, ok := x.parents[id]
	if !ok {
		return
	}
	delete(x.parents, id)
	kids := x.children[p]
	for i, k := range kids {
		if k == id {
			x.children[p] = append(kids[:i:i], kids[i+1:]...)
			break
		}
	}
	if len(x.children[p]) == 0 {
		delete(x.children, p)
	}
}
