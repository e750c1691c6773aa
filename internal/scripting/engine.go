package scripting

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM for creature behaviour scripts.
// Single-goroutine access only (game loop).
type Engine struct {
	vm  *lua.LState
	rng *rand.Rand
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given directory.
// Scripts draw random numbers through random_int(n), backed by rng.
func NewEngine(scriptsDir string, rng *rand.Rand, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, rng: rng, log: log}
	vm.SetGlobal("random_int", vm.NewFunction(e.luaRandomInt))

	// Load core scripts first, then feature scripts
	for _, sub := range []string{"core", "ai"} {
		p := filepath.Join(scriptsDir, sub)
		if err := e.loadDir(p); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}

	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
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

// random_int(n) returns an integer in [0, n). n <= 0 yields 0.
func (e *Engine) luaRandomInt(L *lua.LState) int {
	n := L.CheckInt(1)
	if n <= 0 {
		L.Push(lua.LNumber(0))
		return 1
	}
	L.Push(lua.LNumber(e.rng.Intn(n)))
	return 1
}

// --- Creature AI Bridge ---

// AIContext holds pre-packed data for one creature's AI decision.
type AIContext struct {
	Script     string // behaviour name from the spawn list
	CreatureID uint32
	Kind       string
	X, Y       int32
	Z          int8
	Heading    int

	// Spawn anchor and how far the creature may stray from it.
	SpawnX, SpawnY int32
	Radius         int32

	// Players that can currently see the creature.
	Spectators int
}

// AICommand is a single action returned by Lua AI.
type AICommand struct {
	Type string // "walk", "idle"
	Dir  int    // heading 0-7 for walk
}

// RunNpcAI calls Lua npc_ai(ctx) and returns a list of commands.
func (e *Engine) RunNpcAI(ctx AIContext) []AICommand {
	fn := e.vm.GetGlobal("npc_ai")
	if fn == lua.LNil {
		return nil
	}

	t := e.vm.NewTable()
	t.RawSetString("script", lua.LString(ctx.Script))
	t.RawSetString("id", lua.LNumber(ctx.CreatureID))
	t.RawSetString("kind", lua.LString(ctx.Kind))
	t.RawSetString("x", lua.LNumber(ctx.X))
	t.RawSetString("y", lua.LNumber(ctx.Y))
	t.RawSetString("z", lua.LNumber(ctx.Z))
	t.RawSetString("heading", lua.LNumber(ctx.Heading))
	t.RawSetString("spawn_x", lua.LNumber(ctx.SpawnX))
	t.RawSetString("spawn_y", lua.LNumber(ctx.SpawnY))
	t.RawSetString("radius", lua.LNumber(ctx.Radius))
	t.RawSetString("spectators", lua.LNumber(ctx.Spectators))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua npc_ai error", zap.Error(err), zap.Uint32("creature", ctx.CreatureID))
		return nil
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		return nil
	}

	// Parse commands array
	var cmds []AICommand
	rt.ForEach(func(_, v lua.LValue) {
		if row, ok := v.(*lua.LTable); ok {
			cmds = append(cmds, AICommand{
				Type: lStr(row, "type"),
				Dir:  lInt(row, "dir"),
			})
		}
	})
	return cmds
}

// lInt reads an integer field from a Lua table.
func lInt(t *lua.LTable, key string) int {
	return int(lua.LVAsNumber(t.RawGetString(key)))
}

// lStr reads a string field from a Lua table.
func lStr(t *lua.LTable, key string) string {
	return lua.LVAsString(t.RawGetString(key))
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
