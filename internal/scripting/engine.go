package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/vibe3d/engine/internal/core/ecs"
)

// Engine wraps a single gopher-lua VM bound to one world. Scripts mutate the
// scene through the same orchestrators as native code and read through the
// query façade — there is no privileged path. Single-goroutine access only.
type Engine struct {
	vm    *lua.LState
	world *ecs.World
	log   *zap.Logger
}

// NewEngine creates a Lua engine and registers the entities, components,
// query and engine API tables.
func NewEngine(world *ecs.World, log *zap.Logger) *Engine {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, world: world, log: log}
	e.registerEntitiesAPI()
	e.registerComponentsAPI()
	e.registerQueryAPI()
	e.registerEngineAPI()
	return e
}

func (e *Engine) Close() {
	e.vm.Close()
}

// LoadDir runs every .lua file in a directory, sorted by name. Missing
// directories are skipped.
func (e *Engine) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// RunFile executes one script file.
func (e *Engine) RunFile(path string) error {
	if err := e.vm.DoFile(path); err != nil {
		return fmt.Errorf("run %s: %w", path, err)
	}
	return nil
}

// RunString executes a script from memory.
func (e *Engine) RunString(src string) error {
	return e.vm.DoString(src)
}

// ── entities API ──────────────────────────────────────────────────

// entities.create(name[, parentId]) -> id | nil, err
// entities.destroy(id) -> bool
// entities.setParent(id, parentId|nil) -> true | nil, err
// entities.exists(id) -> bool
// entities.get(id) -> {id, name, guid, parent} | nil
// entities.findByName(name) -> {id...}
func (e *Engine) registerEntitiesAPI() {
	m := e.world.Manager()
	q := e.world.Queries()
	t := e.vm.NewTable()

	e.vm.SetField(t, "create", e.vm.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		parent := ecs.InvalidEntity
		if L.GetTop() >= 2 && L.Get(2) != lua.LNil {
			parent = ecs.EntityID(L.CheckNumber(2))
		}
		ent, err := m.CreateEntity(name, parent)
		if err != nil {
			L.Push(lua.LNil)
			L.Push(lua.LString(err.Error()))
			return 2
		}
		L.Push(lua.LNumber(ent.ID))
		return 1
	}))

	e.vm.SetField(t, "destroy", e.vm.NewFunction(func(L *lua.LState) int {
		id := ecs.EntityID(L.CheckNumber(1))
		L.Push(lua.LBool(m.DeleteEntity(id)))
		return 1
	}))

	e.vm.SetField(t, "setParent", e.vm.NewFunction(func(L *lua.LState) int {
		id := ecs.EntityID(L.CheckNumber(1))
		parent := ecs.InvalidEntity
		if L.GetTop() >= 2 && L.Get(2) != lua.LNil {
			parent = ecs.EntityID(L.CheckNumber(2))
		}
		if err := m.SetParent(id, parent); err != nil {
			L.Push(lua.LNil)
			L.Push(lua.LString(err.Error()))
			return 2
		}
		L.Push(lua.LTrue)
		return 1
	}))

	e.vm.SetField(t, "exists", e.vm.NewFunction(func(L *lua.LState) int {
		_, ok := m.Entity(ecs.EntityID(L.CheckNumber(1)))
		L.Push(lua.LBool(ok))
		return 1
	}))

	e.vm.SetField(t, "get", e.vm.NewFunction(func(L *lua.LState) int {
		ent, ok := m.Entity(ecs.EntityID(L.CheckNumber(1)))
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		out := L.NewTable()
		L.SetField(out, "id", lua.LNumber(ent.ID))
		L.SetField(out, "name", lua.LString(ent.Name))
		L.SetField(out, "guid", lua.LString(ent.GUID.String()))
		if p, ok := q.Parent(ent.ID); ok {
			L.SetField(out, "parent", lua.LNumber(p))
		}
		L.Push(out)
		return 1
	}))

	e.vm.SetField(t, "findByName", e.vm.NewFunction(func(L *lua.LState) int {
		L.Push(idsToTable(L, m.FindByName(L.CheckString(1))))
		return 1
	}))

	e.vm.SetGlobal("entities", t)
}

// ── components API ────────────────────────────────────────────────

// components.add(id, type[, data]) -> bool
// components.remove(id, type) -> bool
// components.has(id, type) -> bool
// components.get(id, type) -> data | nil
func (e *Engine) registerComponentsAPI() {
	r := e.world.Registry()
	t := e.vm.NewTable()

	e.vm.SetField(t, "add", e.vm.NewFunction(func(L *lua.LState) int {
		id := ecs.EntityID(L.CheckNumber(1))
		ctype := L.CheckString(2)
		var payload any
		if L.GetTop() >= 3 {
			payload = luaToGo(L.Get(3))
		}
		L.Push(lua.LBool(r.Add(id, ctype, payload)))
		return 1
	}))

	e.vm.SetField(t, "remove", e.vm.NewFunction(func(L *lua.LState) int {
		id := ecs.EntityID(L.CheckNumber(1))
		L.Push(lua.LBool(r.Remove(id, L.CheckString(2))))
		return 1
	}))

	e.vm.SetField(t, "has", e.vm.NewFunction(func(L *lua.LState) int {
		id := ecs.EntityID(L.CheckNumber(1))
		L.Push(lua.LBool(r.Has(id, L.CheckString(2))))
		return 1
	}))

	e.vm.SetField(t, "get", e.vm.NewFunction(func(L *lua.LState) int {
		id := ecs.EntityID(L.CheckNumber(1))
		ctype := L.CheckString(2)
		if !r.Has(id, ctype) {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(goToLua(L, r.Data(id, ctype)))
		return 1
	}))

	e.vm.SetGlobal("components", t)
}

// ── query API ─────────────────────────────────────────────────────

// query.all() / query.roots() / query.children(id) / query.descendants(id)
// query.withAll(type...) / query.withAny(type...) / query.componentTypes()
func (e *Engine) registerQueryAPI() {
	q := e.world.Queries()
	t := e.vm.NewTable()

	e.vm.SetField(t, "all", e.vm.NewFunction(func(L *lua.LState) int {
		L.Push(idsToTable(L, q.AllEntities()))
		return 1
	}))

	e.vm.SetField(t, "roots", e.vm.NewFunction(func(L *lua.LState) int {
		L.Push(idsToTable(L, q.RootEntities()))
		return 1
	}))

	e.vm.SetField(t, "children", e.vm.NewFunction(func(L *lua.LState) int {
		L.Push(idsToTable(L, q.Children(ecs.EntityID(L.CheckNumber(1)))))
		return 1
	}))

	e.vm.SetField(t, "descendants", e.vm.NewFunction(func(L *lua.LState) int {
		L.Push(idsToTable(L, q.Descendants(ecs.EntityID(L.CheckNumber(1)))))
		return 1
	}))

	e.vm.SetField(t, "withAll", e.vm.NewFunction(func(L *lua.LState) int {
		L.Push(idsToTable(L, q.WithComponents(checkStrings(L)...)))
		return 1
	}))

	e.vm.SetField(t, "withAny", e.vm.NewFunction(func(L *lua.LState) int {
		L.Push(idsToTable(L, q.WithAnyComponent(checkStrings(L)...)))
		return 1
	}))

	e.vm.SetField(t, "componentTypes", e.vm.NewFunction(func(L *lua.LState) int {
		out := L.NewTable()
		for _, ctype := range q.ComponentTypes() {
			out.Append(lua.LString(ctype))
		}
		L.Push(out)
		return 1
	}))

	e.vm.SetGlobal("query", t)
}

// ── engine API ────────────────────────────────────────────────────

// engine.checkConsistency() -> {isConsistent, errors, stats}
// engine.validate() -> {string...}
// engine.rebuildIndices()
func (e *Engine) registerEngineAPI() {
	q := e.world.Queries()
	t := e.vm.NewTable()

	e.vm.SetField(t, "checkConsistency", e.vm.NewFunction(func(L *lua.LState) int {
		report := q.CheckConsistency()
		out := L.NewTable()
		L.SetField(out, "isConsistent", lua.LBool(report.IsConsistent))
		errs := L.NewTable()
		for _, msg := range report.Errors {
			errs.Append(lua.LString(msg))
		}
		L.SetField(out, "errors", errs)
		stats := L.NewTable()
		L.SetField(stats, "entitiesInWorld", lua.LNumber(report.Stats.EntitiesInWorld))
		L.SetField(stats, "entitiesInIndex", lua.LNumber(report.Stats.EntitiesInIndex))
		L.SetField(stats, "componentTypes", lua.LNumber(report.Stats.ComponentTypes))
		L.SetField(stats, "hierarchyRelationships", lua.LNumber(report.Stats.HierarchyRelationships))
		L.SetField(out, "stats", stats)
		L.Push(out)
		return 1
	}))

	e.vm.SetField(t, "validate", e.vm.NewFunction(func(L *lua.LState) int {
		out := L.NewTable()
		for _, msg := range q.ValidateIndices() {
			out.Append(lua.LString(msg))
		}
		L.Push(out)
		return 1
	}))

	e.vm.SetField(t, "rebuildIndices", e.vm.NewFunction(func(L *lua.LState) int {
		q.RebuildIndices()
		return 0
	}))

	e.vm.SetGlobal("engine", t)
}

// ── conversion helpers ────────────────────────────────────────────

func idsToTable(L *lua.LState, ids []ecs.EntityID) *lua.LTable {
	out := L.NewTable()
	for _, id := range ids {
		out.Append(lua.LNumber(id))
	}
	return out
}

// checkStrings collects all arguments as strings.
func checkStrings(L *lua.LState) []string {
	n := L.GetTop()
	out := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, L.CheckString(i))
	}
	return out
}

// luaToGo converts a lua value to a JSON-shaped Go value. Tables with
// contiguous integer keys become slices, everything else becomes a
// string-keyed map.
func luaToGo(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		return float64(val)
	case lua.LString:
		return string(val)
	case *lua.LTable:
		if n := val.Len(); n > 0 {
			arr := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				arr = append(arr, luaToGo(val.RawGetInt(i)))
			}
			return arr
		}
		m := make(map[string]any)
		val.ForEach(func(k, v lua.LValue) {
			m[k.String()] = luaToGo(v)
		})
		return m
	default:
		return nil
	}
}

// goToLua is the inverse of luaToGo.
func goToLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []any:
		out := L.NewTable()
		for _, item := range val {
			out.Append(goToLua(L, item))
		}
		return out
	case map[string]any:
		out := L.NewTable()
		for k, item := range val {
			L.SetField(out, k, goToLua(L, item))
		}
		return out
	default:
		return lua.LNil
	}
}
