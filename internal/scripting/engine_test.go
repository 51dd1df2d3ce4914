package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vibe3d/engine/internal/core/ecs"
)

func newTestEngine(t *testing.T) (*Engine, *ecs.World) {
	t.Helper()
	w := ecs.NewWorld(zap.NewNop())
	e := NewEngine(w, zap.NewNop())
	t.Cleanup(func() {
		e.Close()
		w.Destroy()
	})
	return e, w
}

func TestScriptBuildsScene(t *testing.T) {
	e, w := newTestEngine(t)

	require.NoError(t, e.RunString(`
		local root = entities.create("Root")
		local child = entities.create("Child", root)
		components.add(child, "Transform", { position = { 0, 1, 0 } })
		components.add(child, "MeshRenderer")
	`))

	q := w.Queries()
	roots := q.RootEntities()
	require.Len(t, roots, 1)
	assert.Equal(t, []ecs.EntityID{2}, q.Children(roots[0]))
	assert.Equal(t, []ecs.EntityID{2}, q.WithComponents("Transform", "MeshRenderer"))

	payload := w.Registry().Data(2, "Transform")
	require.IsType(t, map[string]any{}, payload)
	assert.Equal(t, []any{0.0, 1.0, 0.0}, payload.(map[string]any)["position"])
}

func TestScriptQueriesMatchFacade(t *testing.T) {
	e, _ := newTestEngine(t)

	require.NoError(t, e.RunString(`
		local a = entities.create("A")
		local b = entities.create("B", a)
		local c = entities.create("C", b)
		components.add(a, "Transform")
		components.add(c, "Transform")

		assert(#query.all() == 3)
		assert(#query.roots() == 1)
		assert(#query.children(a) == 1)
		assert(#query.descendants(a) == 2)
		assert(#query.withAll("Transform") == 2)
		assert(#query.withAny("Transform", "Missing") == 2)
		assert(#query.componentTypes() == 1)
		assert(#entities.findByName("B") == 1)
	`))
}

func TestScriptComponentRoundTrip(t *testing.T) {
	e, _ := newTestEngine(t)

	require.NoError(t, e.RunString(`
		local a = entities.create("A")
		components.add(a, "Light", { kind = "point", intensity = 2, shadows = true })

		local light = components.get(a, "Light")
		assert(light.kind == "point")
		assert(light.intensity == 2)
		assert(light.shadows == true)
		assert(components.get(a, "Missing") == nil)
	`))
}

func TestScriptMutationErrors(t *testing.T) {
	e, _ := newTestEngine(t)

	require.NoError(t, e.RunString(`
		local a = entities.create("A")
		local b = entities.create("B", a)

		-- Cycle rejected with an error message, nothing mutated.
		local ok, err = entities.setParent(a, b)
		assert(ok == nil)
		assert(string.find(err, "cycle"))

		-- Creating under a dead parent fails the same way.
		local id, err2 = entities.create("orphan", 9999)
		assert(id == nil)
		assert(string.find(err2, "parent"))

		-- Unknown-id operations are non-fatal.
		assert(entities.destroy(9999) == false)
		assert(components.add(9999, "Transform") == false)
		assert(entities.exists(9999) == false)
		assert(entities.get(9999) == nil)
	`))
}

func TestScriptCascadeDelete(t *testing.T) {
	e, w := newTestEngine(t)

	require.NoError(t, e.RunString(`
		local one = entities.create("one")
		local two = entities.create("two", one)
		local three = entities.create("three", two)
		components.add(three, "Transform")
		assert(entities.destroy(two) == true)
	`))

	q := w.Queries()
	assert.Len(t, q.AllEntities(), 1)
	assert.Empty(t, q.WithComponent("Transform"))
	assert.Empty(t, q.ValidateIndices())
}

func TestScriptConsistencyAPI(t *testing.T) {
	e, _ := newTestEngine(t)

	require.NoError(t, e.RunString(`
		local a = entities.create("A")
		components.add(a, "Transform")

		local report = engine.checkConsistency()
		assert(report.isConsistent == true)
		assert(#report.errors == 0)
		assert(report.stats.entitiesInWorld == 1)
		assert(report.stats.entitiesInIndex == 1)
		assert(report.stats.componentTypes == 1)
		assert(report.stats.hierarchyRelationships == 0)

		assert(#engine.validate() == 0)
		engine.rebuildIndices()
		assert(engine.checkConsistency().isConsistent == true)
	`))
}

func TestLoadDir(t *testing.T) {
	e, w := newTestEngine(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "01_scene.lua"),
		[]byte(`entities.create("FromFile")`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"),
		[]byte(`not a script`), 0o644))

	require.NoError(t, e.LoadDir(dir))
	assert.Len(t, w.Manager().FindByName("FromFile"), 1)

	// Missing directories are skipped, not fatal.
	assert.NoError(t, e.LoadDir(filepath.Join(dir, "missing")))
}
