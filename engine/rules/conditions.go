// Package rules evaluates the unlock conditions attached to zones, worlds
// and upgrades.
package rules

import (
	"github.com/nathoo/idlecore/engine/state"
	"github.com/nathoo/idlecore/types"
)

// Condition constructors used by the loader and tests.

// QuestDone requires a completed quest.
func QuestDone(questID string) types.Condition {
	return types.Condition{Type: "quest_done", Params: map[string]any{"quest": questID}}
}

// ZoneKills requires a lifetime kill total in a zone.
func ZoneKills(zoneID string, n int) types.Condition {
	return types.Condition{Type: "zone_kills", Params: map[string]any{"zone": zoneID, "count": n}}
}

// WorldComplete requires every zone of a world to reach its completion threshold.
func WorldComplete(worldID string) types.Condition {
	return types.Condition{Type: "world_complete", Params: map[string]any{"world": worldID}}
}

// CharacterLevel requires the active character's level.
func CharacterLevel(n int) types.Condition {
	return types.Condition{Type: "character_level", Params: map[string]any{"level": n}}
}

// ProfessionLevel requires the active character's level in a profession.
func ProfessionLevel(profID string, n int) types.Condition {
	return types.Condition{Type: "profession_level", Params: map[string]any{"profession": profID, "level": n}}
}

// HasItem requires an inventory quantity.
func HasItem(itemID string, n int) types.Condition {
	return types.Condition{Type: "has_item", Params: map[string]any{"item": itemID, "count": n}}
}

// Not negates c.
func Not(c types.Condition) types.Condition {
	return types.Condition{Type: "not", Inner: &c}
}

// EvalCondition evaluates a single condition against the current state.
// Unknown condition types are false.
func EvalCondition(c types.Condition, s *types.GameState, defs *state.Defs) bool {
	switch c.Type {
	case "quest_done":
		quest, _ := c.Params["quest"].(string)
		return state.QuestCompleted(s, quest)

	case "zone_kills":
		zone, _ := c.Params["zone"].(string)
		return state.ZoneKills(s, zone) >= toInt(c.Params["count"])

	case "world_complete":
		world, _ := c.Params["world"].(string)
		return WorldCompleted(s, defs, world)

	case "character_level":
		ch, ok := state.ActiveCharacter(s)
		return ok && ch.Level >= toInt(c.Params["level"])

	case "profession_level":
		prof, _ := c.Params["profession"].(string)
		ps, ok := state.Profession(s, s.ActiveCharacterID, prof)
		return ok && ps.Level >= toInt(c.Params["level"])

	case "has_item":
		item, _ := c.Params["item"].(string)
		return state.ItemCount(s, item) >= max(1, toInt(c.Params["count"]))

	case "not":
		if c.Inner == nil {
			return true
		}
		return !EvalCondition(*c.Inner, s, defs)

	default:
		return false
	}
}

// EvalAllConditions returns true if all conditions pass (AND logic).
// An empty condition list is vacuously true.
func EvalAllConditions(conditions []types.Condition, s *types.GameState, defs *state.Defs) bool {
	for _, c := range conditions {
		if !EvalCondition(c, s, defs) {
			return false
		}
	}
	return true
}

// WorldCompleted reports whether every zone of a world has reached its
// completion threshold. Unknown or empty worlds are never complete.
func WorldCompleted(s *types.GameState, defs *state.Defs, worldID string) bool {
	w, ok := defs.Worlds[worldID]
	if !ok || len(w.Zones) == 0 {
		return false
	}
	for _, zid := range w.Zones {
		z, ok := defs.Zones[zid]
		if !ok || state.ZoneKills(s, zid) < state.CompletionThreshold(z) {
			return false
		}
	}
	return true
}

// toInt converts an any value to int, handling float64 from JSON/Lua.
func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	case int64:
		return int(n)
	default:
		return 0
	}
}
