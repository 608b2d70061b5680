package loader

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nathoo/idlecore/engine/state"
	"github.com/nathoo/idlecore/types"
)

// ValidationError collects every problem found in the compiled content.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

func (e *ValidationError) errorf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

func (e *ValidationError) warnf(format string, args ...any) {
	e.Warnings = append(e.Warnings, fmt.Sprintf(format, args...))
}

var validConditionTypes = map[string]bool{
	"quest_done":       true,
	"zone_kills":       true,
	"world_complete":   true,
	"character_level":  true,
	"profession_level": true,
	"has_item":         true,
	"not":              true,
}

var validSlots = map[string]bool{"": true, "weapon": true, "armor": true, "accessory": true}

var validSelections = map[string]bool{"": true, "uniform": true, "weighted": true}

var validUpgradeStats = map[string]bool{
	"mining_power":     true,
	"resource_quality": true,
	"multi_collect":    true,
	"auto_collectors":  true,
}

// Warnings returns the non-fatal findings for defs.
func Warnings(defs *state.Defs) []string {
	return check(defs).Warnings
}

// validate returns a *ValidationError when defs has errors.
func validate(defs *state.Defs) error {
	ve := check(defs)
	if len(ve.Errors) > 0 {
		sort.Strings(ve.Errors)
		return ve
	}
	return nil
}

func check(defs *state.Defs) *ValidationError {
	ve := &ValidationError{}

	if defs.Game.Title == "" {
		ve.errorf("Game.title is required")
	}
	if len(defs.WorldOrder) == 0 {
		ve.errorf("at least one World is required")
	}

	start := defs.Game.Start
	if start.WorldID != "" {
		if _, ok := defs.Worlds[start.WorldID]; !ok {
			ve.errorf("start world %q not found", start.WorldID)
		}
	}
	if start.ZoneID != "" {
		z, ok := defs.Zones[start.ZoneID]
		switch {
		case !ok:
			ve.errorf("start zone %q not found", start.ZoneID)
		case start.WorldID != "" && z.WorldID != start.WorldID:
			ve.errorf("start zone %q is not in start world %q", start.ZoneID, start.WorldID)
		}
	}
	for _, id := range start.AvailableProfessions {
		checkProfession(defs, ve, "start professions", id)
	}
	for _, id := range start.UnlockedProfessions {
		checkProfession(defs, ve, "start unlocked", id)
	}
	for _, id := range start.AssignedProfessions {
		checkProfession(defs, ve, "start assigned", id)
	}

	known := knownItems(defs)
	dropped := map[string]bool{}
	for _, m := range defs.Monsters {
		for _, l := range m.Loot {
			dropped[l.ResourceID] = true
		}
	}

	for _, id := range defs.WorldOrder {
		w := defs.Worlds[id]
		if len(w.Zones) == 0 {
			ve.errorf("world %q has no zones", id)
		}
		for _, z := range w.Zones {
			if _, ok := defs.Zones[z]; !ok {
				ve.errorf("world %q lists undefined zone %q", id, z)
			}
		}
		checkConditions(defs, ve, "world "+id, w.Requires)
	}

	for _, id := range sortedKeys(defs.Zones) {
		z := defs.Zones[id]
		if z.WorldID == "" {
			ve.errorf("zone %q is not listed by any world", id)
		}
		if z.Index < 0 {
			ve.errorf("zone %q has negative index", id)
		}
		if len(z.Spawns) == 0 {
			ve.errorf("zone %q has an empty spawn table", id)
		}
		for _, sp := range z.Spawns {
			if _, ok := defs.Monsters[sp.MonsterID]; !ok {
				ve.errorf("zone %q spawns undefined monster %q", id, sp.MonsterID)
			}
			if sp.Weight <= 0 {
				ve.errorf("zone %q spawn %q weight must be positive", id, sp.MonsterID)
			}
			if sp.MinLevel < 1 || sp.MaxLevel < sp.MinLevel {
				ve.errorf("zone %q spawn %q level range %d-%d is invalid", id, sp.MonsterID, sp.MinLevel, sp.MaxLevel)
			}
		}
		if z.BossID != "" {
			if _, ok := defs.Monsters[z.BossID]; !ok {
				ve.errorf("zone %q boss %q not found", id, z.BossID)
			}
		}
		if z.CompletionThreshold < 0 {
			ve.errorf("zone %q completion threshold is negative", id)
		}
		checkConditions(defs, ve, "zone "+id, z.Requires)
	}

	for _, id := range sortedKeys(defs.Monsters) {
		m := defs.Monsters[id]
		if m.HP <= 0 {
			ve.errorf("monster %q hp must be positive", id)
		}
		for _, l := range m.Loot {
			if l.DropChance < 0 || l.DropChance > 1 {
				ve.errorf("monster %q loot %q chance %v outside [0, 1]", id, l.ResourceID, l.DropChance)
			}
			if l.MinQty < 1 || l.MaxQty < l.MinQty {
				ve.errorf("monster %q loot %q quantity range %d-%d is invalid", id, l.ResourceID, l.MinQty, l.MaxQty)
			}
			if !known[l.ResourceID] {
				ve.warnf("monster %q drops %q, which is not a defined item or resource", id, l.ResourceID)
			}
		}
	}

	for _, id := range sortedKeys(defs.Items) {
		if !validSlots[defs.Items[id].Slot] {
			ve.errorf("item %q has unknown slot %q", id, defs.Items[id].Slot)
		}
	}

	for _, id := range defs.ProfessionOrder {
		checkProfessionDef(defs, ve, defs.Professions[id])
	}

	for _, id := range sortedKeys(defs.Recipes) {
		r := defs.Recipes[id]
		p, ok := defs.Professions[r.Profession]
		switch {
		case !ok:
			ve.errorf("recipe %q uses undefined profession %q", id, r.Profession)
		case p.Selection != "":
			ve.warnf("recipe %q belongs to gathering profession %q", id, r.Profession)
		}
		if len(r.Materials) == 0 {
			ve.errorf("recipe %q has no materials", id)
		}
		for _, m := range r.Materials {
			if m.Qty <= 0 {
				ve.errorf("recipe %q material %q quantity must be positive", id, m.ItemID)
			}
			if !known[m.ItemID] && !dropped[m.ItemID] {
				ve.warnf("recipe %q needs %q, which nothing produces", id, m.ItemID)
			}
		}
	}

	for _, id := range defs.QuestOrder {
		checkQuest(defs, ve, defs.Quests[id])
	}
	return ve
}

func checkProfession(defs *state.Defs, ve *ValidationError, where, id string) {
	if _, ok := defs.Professions[id]; !ok {
		ve.errorf("%s: undefined profession %q", where, id)
	}
}

func checkProfessionDef(defs *state.Defs, ve *ValidationError, p types.ProfessionDef) {
	if !validSelections[p.Selection] {
		ve.errorf("profession %q has unknown selection %q", p.ID, p.Selection)
	}
	if p.Selection != "" && len(p.Tiers) == 0 {
		ve.errorf("profession %q gathers but has no resource tiers", p.ID)
	}
	for _, tier := range p.Tiers {
		if len(tier.Resources) == 0 {
			ve.errorf("profession %q tier %d has no resources", p.ID, tier.MinLevel)
		}
		for _, r := range tier.Resources {
			if r.ID == "" || r.Weight <= 0 {
				ve.errorf("profession %q tier %d resource %q needs an id and a positive weight", p.ID, tier.MinLevel, r.ID)
			}
		}
	}
	for i, n := range p.ExpTable {
		if n <= 0 {
			ve.errorf("profession %q exp_table[%d] must be positive", p.ID, i+1)
		}
	}
	if p.Rare != nil && len(p.Rare.Resources) == 0 {
		ve.errorf("profession %q rare roll has no resources", p.ID)
	}
	seen := map[string]bool{}
	for _, up := range p.Upgrades {
		if up.ID == "" {
			ve.errorf("profession %q has an upgrade without id", p.ID)
			continue
		}
		if seen[up.ID] {
			ve.errorf("profession %q duplicate upgrade %q", p.ID, up.ID)
		}
		seen[up.ID] = true
		if !validUpgradeStats[up.Stat] {
			ve.errorf("profession %q upgrade %q has unknown stat %q", p.ID, up.ID, up.Stat)
		}
		checkConditions(defs, ve, "upgrade "+up.ID, up.Requires)
	}
}

func checkQuest(defs *state.Defs, ve *ValidationError, q types.QuestDefinition) {
	if q.Requirements.MonstersKilled.Len() == 0 && q.Requirements.Items.Len() == 0 {
		ve.warnf("quest %q has no requirements and completes on start", q.ID)
	}
	for _, pre := range q.Prerequisites {
		if _, ok := defs.Quests[pre]; !ok {
			ve.errorf("quest %q prerequisite %q not found", q.ID, pre)
		}
	}
	for m := range q.Requirements.MonstersKilled.All() {
		if _, ok := defs.Monsters[m]; !ok {
			ve.errorf("quest %q requires kills of undefined monster %q", q.ID, m)
		}
	}
	if z := q.Requirements.Zone; z != "" {
		if _, ok := defs.Zones[z]; !ok {
			ve.errorf("quest %q restricted to undefined zone %q", q.ID, z)
		}
	}
	for p := range q.Rewards.ProfessionExp.All() {
		checkProfession(defs, ve, "quest "+q.ID+" reward", p)
	}
	for _, p := range q.Rewards.Unlocks.Professions {
		checkProfession(defs, ve, "quest "+q.ID+" unlock", p)
	}
	for _, z := range q.Rewards.Unlocks.Zones {
		if _, ok := defs.Zones[z]; !ok {
			ve.errorf("quest %q unlocks undefined zone %q", q.ID, z)
		}
	}
}

func checkConditions(defs *state.Defs, ve *ValidationError, where string, conds []types.Condition) {
	for _, c := range conds {
		checkCondition(defs, ve, where, c)
	}
}

func checkCondition(defs *state.Defs, ve *ValidationError, where string, c types.Condition) {
	if !validConditionTypes[c.Type] {
		ve.errorf("%s: unknown condition type %q", where, c.Type)
		return
	}
	ref := func(key string) string {
		s, _ := c.Params[key].(string)
		return s
	}
	switch c.Type {
	case "quest_done":
		if _, ok := defs.Quests[ref("quest")]; !ok {
			ve.errorf("%s: QuestDone references undefined quest %q", where, ref("quest"))
		}
	case "zone_kills":
		if _, ok := defs.Zones[ref("zone")]; !ok {
			ve.errorf("%s: ZoneKills references undefined zone %q", where, ref("zone"))
		}
	case "world_complete":
		if _, ok := defs.Worlds[ref("world")]; !ok {
			ve.errorf("%s: WorldComplete references undefined world %q", where, ref("world"))
		}
	case "profession_level":
		checkProfession(defs, ve, where, ref("profession"))
	case "not":
		if c.Inner == nil {
			ve.errorf("%s: Not without a condition", where)
			return
		}
		checkCondition(defs, ve, where, *c.Inner)
	}
}

// knownItems is every declared item plus everything professions produce.
func knownItems(defs *state.Defs) map[string]bool {
	known := map[string]bool{}
	for id := range defs.Items {
		known[id] = true
	}
	for _, p := range defs.Professions {
		for _, t := range p.Tiers {
			for _, r := range t.Resources {
				known[r.ID] = true
			}
		}
		if p.Rare != nil {
			for _, r := range p.Rare.Resources {
				known[r.ID] = true
			}
		}
	}
	for _, r := range defs.Recipes {
		known[r.Output] = true
	}
	return known
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
