// Package loader turns Lua content documents into the immutable game
// definitions. The Lua VM only lives for the duration of a load.
package loader

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"slices"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/idlecore/engine/state"
)

//go:embed defaults/*.lua
var defaultContent embed.FS

// collector accumulates constructor calls while the files execute.
type collector struct {
	game        *lua.LTable
	scaling     *lua.LTable
	monsters    []raw
	worlds      []raw
	zones       []raw
	items       []raw
	professions []raw
	recipes     []raw
	quests      []raw
}

// raw is one curried constructor call: Kind "id" { ... }.
type raw struct {
	id    string
	table *lua.LTable
}

// Load reads every .lua file in dir.
func Load(dir string) (*state.Defs, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("reading content directory %s: %w", dir, err)
	}
	return LoadFS(os.DirFS(dir))
}

// Default returns the embedded content.
func Default() (*state.Defs, error) {
	sub, err := fs.Sub(defaultContent, "defaults")
	if err != nil {
		return nil, err
	}
	return LoadFS(sub)
}

// LoadOrDefault loads dir, falling back to the embedded content when dir is
// empty or fails to load. A failure in dir is logged, not returned; the error
// result only reports broken embedded content.
func LoadOrDefault(dir string, logger *slog.Logger) (*state.Defs, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir != "" {
		defs, err := Load(dir)
		if err == nil {
			logWarnings(logger, defs)
			return defs, nil
		}
		logger.Warn("content load failed, using built-in content", "dir", dir, "err", err)
	}
	defs, err := Default()
	if err != nil {
		return nil, fmt.Errorf("built-in content: %w", err)
	}
	return defs, nil
}

func logWarnings(logger *slog.Logger, defs *state.Defs) {
	for _, w := range Warnings(defs) {
		logger.Warn("content warning", "msg", w)
	}
}

// LoadFS executes the .lua files at the root of fsys, game.lua first and
// the rest in name order, then compiles and validates the result.
func LoadFS(fsys fs.FS) (*state.Defs, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".lua") {
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .lua files found")
	}
	files = sortedLuaFiles(files)

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	openSafeLibs(L)
	sandbox(L)

	coll := &collector{}
	registerAPI(L, coll)

	for _, name := range files {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		fn, err := L.Load(bytes.NewReader(data), name)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		L.Push(fn)
		if err := L.PCall(0, lua.MultRet, nil); err != nil {
			return nil, fmt.Errorf("executing %s: %w", name, err)
		}
	}

	defs, err := compile(coll)
	if err != nil {
		return nil, fmt.Errorf("compiling content: %w", err)
	}
	if err := validate(defs); err != nil {
		return nil, err
	}
	return defs, nil
}

// openSafeLibs opens base, table, string and math only.
func openSafeLibs(L *lua.LState) {
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
}

// sandbox removes the globals that reach outside the VM or break
// determinism.
func sandbox(L *lua.LState) {
	for _, name := range []string{
		"dofile", "loadfile", "load", "loadstring", "require",
		"rawset", "rawget", "rawequal", "collectgarbage",
	} {
		L.SetGlobal(name, lua.LNil)
	}
	if tbl, ok := L.GetGlobal("math").(*lua.LTable); ok {
		tbl.RawSetString("random", lua.LNil)
		tbl.RawSetString("randomseed", lua.LNil)
	}
}

// sortedLuaFiles puts game.lua first and sorts the rest.
func sortedLuaFiles(files []string) []string {
	var out []string
	var others []string
	for _, f := range files {
		if path.Base(f) == "game.lua" {
			out = append(out, f)
		} else {
			others = append(others, f)
		}
	}
	slices.Sort(others)
	return append(out, others...)
}
