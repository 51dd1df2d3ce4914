package ecs

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/vibe3d/engine/internal/core/event"
)

// EntityTable is the liveness and hierarchy source of truth, as consumed by
// validation and rebuild.
type EntityTable interface {
	Records() []*Entity
	Count() int
}

// ConsistencyStats summarizes index sizes alongside the authoritative count.
type ConsistencyStats struct {
	EntitiesInWorld        int
	EntitiesInIndex        int
	ComponentTypes         int
	HierarchyRelationships int
}

// ConsistencyReport is the result of a full index audit: itemized
// discrepancies between the authoritative sources and the derived indices,
// plus summary statistics.
type ConsistencyReport struct {
	IsConsistent bool
	Errors       []string
	Stats        ConsistencyStats
}

// EntityQueries is the read façade over the three indices. Every consumer —
// rendering sync, physics bridging, scripting, serialization — reads through
// it; nothing scans the entity table or the component store directly. It
// also carries the audit and recovery surface: ValidateIndices,
// CheckConsistency, AssertConsistency, RebuildIndices.
//
// The façade owns the bus subscriptions that mirror component store
// mutations into the membership index. Dispatch is synchronous, so a
// component add or remove is queryable before the triggering call returns.
type EntityQueries struct {
	store      ComponentStore
	table      EntityTable
	entities   *EntityIndex
	components *ComponentIndex
	hierarchy  *HierarchyIndex
	subs       []*event.Subscription
	log        *zap.Logger
}

// ComponentStore extends the read surface with the enumeration rebuild needs.
type ComponentStore interface {
	ComponentSource
	// Entities lists every handle holding component data, dangling included.
	Entities() []EntityID
}

func NewEntityQueries(
	bus *event.Bus,
	store ComponentStore,
	table EntityTable,
	entities *EntityIndex,
	components *ComponentIndex,
	hierarchy *HierarchyIndex,
	log *zap.Logger,
) *EntityQueries {
	q := &EntityQueries{
		store:      store,
		table:      table,
		entities:   entities,
		components: components,
		hierarchy:  hierarchy,
		log:        log,
	}
	q.subs = []*event.Subscription{
		event.Subscribe(bus, func(ev ComponentAdded) {
			q.components.OnAdd(ev.Type, ev.Entity)
		}),
		event.Subscribe(bus, func(ev ComponentRemoved) {
			q.components.OnRemove(ev.Type, ev.Entity)
		}),
	}
	return q
}

// ── Read delegations ──────────────────────────────────────────────

// AllEntities returns every live handle, in no particular order.
func (q *EntityQueries) AllEntities() []EntityID {
	return q.entities.List()
}

// RootEntities returns the live entities with no parent assigned.
func (q *EntityQueries) RootEntities() []EntityID {
	return q.hierarchy.Roots(q.entities.List())
}

func (q *EntityQueries) Children(parent EntityID) []EntityID {
	return q.hierarchy.Children(parent)
}

func (q *EntityQueries) Descendants(root EntityID) []EntityID {
	return q.hierarchy.Descendants(root)
}

func (q *EntityQueries) Parent(child EntityID) (EntityID, bool) {
	return q.hierarchy.Parent(child)
}

func (q *EntityQueries) WithComponent(ctype string) []EntityID {
	return q.components.List(ctype)
}

// WithComponents returns the entities carrying every named type.
func (q *EntityQueries) WithComponents(ctypes ...string) []EntityID {
	return q.components.ListWithAll(ctypes)
}

// WithAnyComponent returns the entities carrying at least one named type.
func (q *EntityQueries) WithAnyComponent(ctypes ...string) []EntityID {
	return q.components.ListWithAny(ctypes)
}

func (q *EntityQueries) ComponentTypes() []string {
	return q.components.Types()
}

// ── Audit & recovery ──────────────────────────────────────────────

// ValidateIndices re-derives what each index should contain from the entity
// table and the component store, diffs against actual index content, and
// returns the discrepancies in a stable order. Empty means consistent.
// O(entities · components); development and recovery use, not the hot path.
func (q *EntityQueries) ValidateIndices() []string {
	var errs []string

	records := q.table.Records()
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	live := make(map[EntityID]*Entity, len(records))
	for _, e := range records {
		live[e.ID] = e
	}

	// Liveness index vs table, both directions.
	for _, e := range records {
		if !q.entities.Has(e.ID) {
			errs = append(errs, fmt.Sprintf(
				"entity %d (%q) is live but missing from the entity index", e.ID, e.Name))
		}
	}
	indexed := q.entities.List()
	sortIDs(indexed)
	for _, id := range indexed {
		if _, ok := live[id]; !ok {
			errs = append(errs, fmt.Sprintf(
				"entity %d is in the entity index but not in the entity table", id))
		}
	}

	// Membership index vs component store, both directions.
	for _, e := range records {
		for _, ctype := range q.store.Types(e.ID) {
			if !q.components.Has(ctype, e.ID) {
				errs = append(errs, fmt.Sprintf(
					"entity %d has %q in the store but is missing from the component index", e.ID, ctype))
			}
		}
	}
	ctypes := q.components.Types()
	sort.Strings(ctypes)
	for _, ctype := range ctypes {
		members := q.components.List(ctype)
		sortIDs(members)
		for _, id := range members {
			if _, ok := live[id]; !ok {
				errs = append(errs, fmt.Sprintf(
					"component index lists dead entity %d under %q", id, ctype))
				continue
			}
			if !q.store.Has(id, ctype) {
				errs = append(errs, fmt.Sprintf(
					"component index lists entity %d under %q but the store holds no such component", id, ctype))
			}
		}
	}

	// Dangling store data: handles holding components without a live record.
	stored := q.store.Entities()
	sortIDs(stored)
	for _, id := range stored {
		if _, ok := live[id]; !ok {
			errs = append(errs, fmt.Sprintf(
				"component store holds data for dead entity %d (types: %s)",
				id, strings.Join(q.store.Types(id), ", ")))
		}
	}

	// Hierarchy index vs the table's parent links.
	for _, e := range records {
		actual, linked := q.hierarchy.Parent(e.ID)
		switch {
		case e.parent.IsValid() && !linked:
			errs = append(errs, fmt.Sprintf(
				"entity %d has parent %d in the table but no link in the hierarchy index", e.ID, e.parent))
		case e.parent.IsValid() && actual != e.parent:
			errs = append(errs, fmt.Sprintf(
				"entity %d is linked under %d in the hierarchy index but under %d in the table", e.ID, actual, e.parent))
		case !e.parent.IsValid() && linked:
			errs = append(errs, fmt.Sprintf(
				"entity %d is a root in the table but linked under %d in the hierarchy index", e.ID, actual))
		}
		if e.parent.IsValid() {
			if _, ok := live[e.parent]; !ok {
				errs = append(errs, fmt.Sprintf(
					"entity %d references dead parent %d", e.ID, e.parent))
			}
		}
	}
	// The reverse direction: indexed links whose endpoints are not live.
	// A mirror-consistent link to a phantom child slips past the table walk
	// above, which only starts from live records.
	for _, link := range q.hierarchy.Links() {
		child, parent := link[0], link[1]
		if _, ok := live[child]; !ok {
			errs = append(errs, fmt.Sprintf(
				"hierarchy index links dead entity %d under %d", child, parent))
		}
		if _, ok := live[parent]; !ok {
			errs = append(errs, fmt.Sprintf(
				"hierarchy index links %d under dead parent %d", child, parent))
		}
	}
	errs = append(errs, q.hierarchy.StructuralViolations()...)

	return errs
}

// CheckConsistency wraps ValidateIndices with aggregate statistics. It runs
// synchronously; callers must not mutate the scene mid-audit.
func (q *EntityQueries) CheckConsistency() ConsistencyReport {
	errs := q.ValidateIndices()
	return ConsistencyReport{
		IsConsistent: len(errs) == 0,
		Errors:       errs,
		Stats: ConsistencyStats{
			EntitiesInWorld:        q.table.Count(),
			EntitiesInIndex:        q.entities.Len(),
			ComponentTypes:         len(q.components.Types()),
			HierarchyRelationships: q.hierarchy.RelationshipCount(),
		},
	}
}

// AssertConsistency panics with the itemized report when drift is detected.
// Development-time enforcement; the one deliberately fatal path in the layer.
func (q *EntityQueries) AssertConsistency() {
	report := q.CheckConsistency()
	if report.IsConsistent {
		return
	}
	panic(fmt.Sprintf("ecs: index consistency check failed (%d errors):\n  %s",
		len(report.Errors), strings.Join(report.Errors, "\n  ")))
}

// RebuildIndices discards all three indices and reconstructs them from the
// entity table and the component store. Malformed source data — component
// data for a dead handle, a parent link to a dead or cyclic ancestor — is
// skipped rather than fatal; the next ValidateIndices reports it. Rebuilding
// twice with no mutation in between yields query-identical state.
func (q *EntityQueries) RebuildIndices() {
	q.entities.Clear()
	q.components.Clear()
	q.hierarchy.Clear()

	records := q.table.Records()
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	live := make(map[EntityID]struct{}, len(records))
	for _, e := range records {
		live[e.ID] = struct{}{}
		q.entities.Add(e.ID)
	}
	for _, e := range records {
		for _, ctype := range q.store.Types(e.ID) {
			q.components.OnAdd(ctype, e.ID)
		}
	}
	for _, e := range records {
		if !e.parent.IsValid() {
			continue
		}
		if _, ok := live[e.parent]; !ok {
			continue // dangling parent, left for validation to report
		}
		if err := q.hierarchy.SetParent(e.ID, e.parent); err != nil {
			q.log.Warn("rebuild skipped corrupt parent link",
				zap.Uint64("entity", uint64(e.ID)),
				zap.Uint64("parent", uint64(e.parent)),
				zap.Error(err))
		}
	}
	q.log.Info("indices rebuilt",
		zap.Int("entities", q.entities.Len()),
		zap.Int("componentTypes", len(q.components.Types())),
		zap.Int("relationships", q.hierarchy.RelationshipCount()))
}

// Destroy cancels the façade's bus subscriptions. Idempotent; reads keep
// working but the membership index no longer follows store mutation.
func (q *EntityQueries) Destroy() {
	for _, s := range q.subs {
		s.Cancel()
	}
	q.subs = nil
}

func sortIDs(ids []EntityID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
