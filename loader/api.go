package loader

import (
	lua "github.com/yuin/gopher-lua"
)

// registerAPI installs the content constructors and condition helpers.
func registerAPI(L *lua.LState, coll *collector) {
	registerConstructors(L, coll)
	registerConditionHelpers(L)
}

func registerConstructors(L *lua.LState, coll *collector) {
	// Game { title = "...", start = { ... } }
	L.SetGlobal("Game", L.NewFunction(func(L *lua.LState) int {
		coll.game = L.CheckTable(1)
		return 0
	}))

	// Scaling { zone_multiplier = 0.4, scaling_power = 2, level_scaling = 0.1 }
	L.SetGlobal("Scaling", L.NewFunction(func(L *lua.LState) int {
		coll.scaling = L.CheckTable(1)
		return 0
	}))

	curried := map[string]*[]raw{
		"Monster":    &coll.monsters,
		"World":      &coll.worlds,
		"Zone":       &coll.zones,
		"Item":       &coll.items,
		"Profession": &coll.professions,
		"Recipe":     &coll.recipes,
		"Quest":      &coll.quests,
	}
	for name, dst := range curried {
		L.SetGlobal(name, curry(L, dst))
	}
}

// curry builds Kind "id" { ... }: the call with the id returns a function
// taking the body table.
func curry(L *lua.LState, dst *[]raw) *lua.LFunction {
	return L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			*dst = append(*dst, raw{id: id, table: L.CheckTable(1)})
			return 0
		}))
		return 1
	})
}

func registerConditionHelpers(L *lua.LState) {
	cond := func(typ string, fields ...string) *lua.LFunction {
		return L.NewFunction(func(L *lua.LState) int {
			tbl := L.NewTable()
			tbl.RawSetString("type", lua.LString(typ))
			for i, f := range fields {
				tbl.RawSetString(f, L.CheckAny(i+1))
			}
			L.Push(tbl)
			return 1
		})
	}

	// QuestDone("quest")
	L.SetGlobal("QuestDone", cond("quest_done", "quest"))
	// ZoneKills("zone", n)
	L.SetGlobal("ZoneKills", cond("zone_kills", "zone", "count"))
	// WorldComplete("world")
	L.SetGlobal("WorldComplete", cond("world_complete", "world"))
	// CharacterLevel(n)
	L.SetGlobal("CharacterLevel", cond("character_level", "level"))
	// ProfessionLevel("profession", n)
	L.SetGlobal("ProfessionLevel", cond("profession_level", "profession", "level"))
	// HasItem("item", n)
	L.SetGlobal("HasItem", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString("has_item"))
		tbl.RawSetString("item", lua.LString(L.CheckString(1)))
		tbl.RawSetString("count", lua.LNumber(L.OptInt(2, 1)))
		L.Push(tbl)
		return 1
	}))

	// Not(condition)
	L.SetGlobal("Not", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString("not"))
		tbl.RawSetString("inner", L.CheckTable(1))
		L.Push(tbl)
		return 1
	}))
}
