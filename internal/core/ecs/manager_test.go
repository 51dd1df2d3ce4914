package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vibe3d/engine/internal/core/event"
)

func newTestWorld(t *testing.T) *World {
	t.Helper()
	w := NewWorld(zap.NewNop())
	t.Cleanup(w.Destroy)
	return w
}

func mustCreate(t *testing.T, m *EntityManager, name string, parent EntityID) *Entity {
	t.Helper()
	e, err := m.CreateEntity(name, parent)
	require.NoError(t, err)
	return e
}

func TestCreateEntity(t *testing.T) {
	w := newTestWorld(t)
	m := w.Manager()

	root := mustCreate(t, m, "Root", InvalidEntity)
	child := mustCreate(t, m, "Child", root.ID)

	assert.True(t, root.ID.IsValid())
	assert.NotEqual(t, root.GUID, child.GUID)

	got, ok := m.Entity(child.ID)
	require.True(t, ok)
	assert.Equal(t, "Child", got.Name)
	assert.Equal(t, root.ID, got.Parent())

	assert.ElementsMatch(t, []EntityID{root.ID, child.ID}, m.AllEntities())
}

func TestCreateEntityDeadParent(t *testing.T) {
	w := newTestWorld(t)
	m := w.Manager()

	_, err := m.CreateEntity("Orphan", 12345)
	assert.ErrorIs(t, err, ErrParentNotFound)
	assert.Empty(t, m.AllEntities())
	assert.Empty(t, w.Queries().ValidateIndices())
}

func TestCreateEntityWithID(t *testing.T) {
	w := newTestWorld(t)
	m := w.Manager()

	e, err := m.CreateEntityWithID(77, "Loaded", InvalidEntity)
	require.NoError(t, err)
	assert.Equal(t, EntityID(77), e.ID)

	// Duplicate explicit ids are rejected before anything mutates.
	_, err = m.CreateEntityWithID(77, "Clone", InvalidEntity)
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.Equal(t, 1, m.Count())
	assert.Empty(t, w.Queries().ValidateIndices())

	// Fresh allocations skip past the reserved range.
	next := mustCreate(t, m, "Next", InvalidEntity)
	assert.NotEqual(t, EntityID(77), next.ID)
}

func TestDeleteEntityCascades(t *testing.T) {
	w := newTestWorld(t)
	m := w.Manager()

	e1 := mustCreate(t, m, "one", InvalidEntity)
	e2 := mustCreate(t, m, "two", e1.ID)
	e3 := mustCreate(t, m, "three", e2.ID)
	sibling := mustCreate(t, m, "sibling", InvalidEntity)
	require.True(t, w.Registry().Add(e3.ID, "Transform", nil))

	require.True(t, m.DeleteEntity(e2.ID))

	assert.ElementsMatch(t, []EntityID{e1.ID, sibling.ID}, w.Queries().AllEntities())
	assert.Empty(t, w.Queries().Children(e1.ID))
	assert.Empty(t, w.Queries().WithComponent("Transform"))
	assert.Empty(t, w.Queries().ValidateIndices())
}

func TestDeleteEntityUnknown(t *testing.T) {
	w := newTestWorld(t)
	assert.False(t, w.Manager().DeleteEntity(424242))
}

func TestDeleteEntityIntermediateStatesConsistent(t *testing.T) {
	w := newTestWorld(t)
	m := w.Manager()

	root := mustCreate(t, m, "root", InvalidEntity)
	a := mustCreate(t, m, "a", root.ID)
	b := mustCreate(t, m, "b", root.ID)
	c := mustCreate(t, m, "c", a.ID)
	for _, id := range []EntityID{a.ID, b.ID, c.ID} {
		require.True(t, w.Registry().Add(id, "Transform", nil))
	}

	// Every destruction event must observe mutually consistent indices —
	// no sibling may be half-removed when another one dies.
	checked := 0
	sub := event.Subscribe(w.Bus(), func(EntityDestroyed) {
		checked++
		assert.Empty(t, w.Queries().ValidateIndices())
	})
	defer sub.Cancel()

	require.True(t, m.DeleteEntity(root.ID))
	assert.Equal(t, 4, checked)
}

func TestSetParentReparents(t *testing.T) {
	w := newTestWorld(t)
	m := w.Manager()
	q := w.Queries()

	root1 := mustCreate(t, m, "root1", InvalidEntity)
	root2 := mustCreate(t, m, "root2", InvalidEntity)
	child := mustCreate(t, m, "child", root1.ID)

	require.NoError(t, m.SetParent(child.ID, root2.ID))
	assert.Empty(t, q.Children(root1.ID))
	assert.Equal(t, []EntityID{child.ID}, q.Children(root2.ID))
	p, ok := q.Parent(child.ID)
	require.True(t, ok)
	assert.Equal(t, root2.ID, p)

	require.NoError(t, m.SetParent(child.ID, InvalidEntity))
	_, ok = q.Parent(child.ID)
	assert.False(t, ok)
	assert.Contains(t, q.RootEntities(), child.ID)
	assert.Empty(t, q.ValidateIndices())
}

func TestSetParentRejections(t *testing.T) {
	w := newTestWorld(t)
	m := w.Manager()

	a := mustCreate(t, m, "a", InvalidEntity)
	b := mustCreate(t, m, "b", a.ID)

	assert.ErrorIs(t, m.SetParent(a.ID, a.ID), ErrSelfParent)
	assert.ErrorIs(t, m.SetParent(a.ID, b.ID), ErrHierarchyCycle)
	assert.ErrorIs(t, m.SetParent(999, a.ID), ErrEntityNotFound)
	assert.ErrorIs(t, m.SetParent(a.ID, 999), ErrParentNotFound)

	// The failed calls must leave both the table and the indices untouched.
	got, _ := m.Entity(b.ID)
	assert.Equal(t, a.ID, got.Parent())
	assert.Empty(t, w.Queries().ValidateIndices())
}

func TestFindByName(t *testing.T) {
	w := newTestWorld(t)
	m := w.Manager()

	p1 := mustCreate(t, m, "Player", InvalidEntity)
	p2 := mustCreate(t, m, "Player", InvalidEntity)
	mustCreate(t, m, "Enemy", InvalidEntity)

	assert.ElementsMatch(t, []EntityID{p1.ID, p2.ID}, m.FindByName("Player"))
	assert.Empty(t, m.FindByName("Ghost"))
}

func TestClearAndReset(t *testing.T) {
	w := newTestWorld(t)
	m := w.Manager()

	root := mustCreate(t, m, "root", InvalidEntity)
	child := mustCreate(t, m, "child", root.ID)
	require.True(t, w.Registry().Add(child.ID, "Transform", nil))

	m.Clear()
	assert.Empty(t, w.Queries().AllEntities())
	assert.Empty(t, w.Queries().ComponentTypes())
	assert.Empty(t, w.Queries().ValidateIndices())

	m.Reset()
	fresh := mustCreate(t, m, "fresh", InvalidEntity)
	assert.Equal(t, EntityID(1), fresh.ID)
}
