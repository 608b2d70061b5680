package loader

import (
	"fmt"
	"sort"

	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/idlecore/container"
	"github.com/nathoo/idlecore/engine/state"
	"github.com/nathoo/idlecore/types"
)

// getString returns a string field, or "" if missing.
func getString(tbl *lua.LTable, key string) string {
	if s, ok := tbl.RawGetString(key).(lua.LString); ok {
		return string(s)
	}
	return ""
}

// getBool returns a bool field, or def if missing.
func getBool(tbl *lua.LTable, key string, def bool) bool {
	if b, ok := tbl.RawGetString(key).(lua.LBool); ok {
		return bool(b)
	}
	return def
}

// getNumber returns a numeric field, or 0 if missing.
func getNumber(tbl *lua.LTable, key string) float64 {
	if n, ok := tbl.RawGetString(key).(lua.LNumber); ok {
		return float64(n)
	}
	return 0
}

func getInt(tbl *lua.LTable, key string) int {
	return int(getNumber(tbl, key))
}

func has(tbl *lua.LTable, key string) bool {
	return tbl.RawGetString(key) != lua.LNil
}

// getTable returns a table field, or nil if missing.
func getTable(tbl *lua.LTable, key string) *lua.LTable {
	if t, ok := tbl.RawGetString(key).(*lua.LTable); ok {
		return t
	}
	return nil
}

// stringList reads the array part of a table as strings.
func stringList(tbl *lua.LTable) []string {
	if tbl == nil {
		return nil
	}
	var out []string
	for i := 1; i <= tbl.MaxN(); i++ {
		if s, ok := tbl.RawGetInt(i).(lua.LString); ok {
			out = append(out, string(s))
		}
	}
	return out
}

// eachRow calls fn for every table in the array part of tbl.
func eachRow(tbl *lua.LTable, fn func(row *lua.LTable)) {
	if tbl == nil {
		return
	}
	for i := 1; i <= tbl.MaxN(); i++ {
		if row, ok := tbl.RawGetInt(i).(*lua.LTable); ok {
			fn(row)
		}
	}
}

// countMap reads { id = n, ... } in key order; Lua hash order is not stable.
func countMap(tbl *lua.LTable) container.OrderedMap[string, int] {
	var m container.OrderedMap[string, int]
	for _, q := range itemQtys(tbl) {
		m.Set(q.ItemID, q.Qty)
	}
	return m
}

func itemQtys(tbl *lua.LTable) []types.ItemQty {
	if tbl == nil {
		return nil
	}
	var out []types.ItemQty
	tbl.ForEach(func(k, v lua.LValue) {
		ks, ok := k.(lua.LString)
		if !ok {
			return
		}
		if n, ok := v.(lua.LNumber); ok {
			out = append(out, types.ItemQty{ItemID: string(ks), Qty: int(n)})
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out
}

// toGoValue converts a Lua scalar for condition params.
func toGoValue(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		f := float64(val)
		if f == float64(int(f)) {
			return int(f)
		}
		return f
	case lua.LString:
		return string(val)
	}
	return nil
}

// compile converts the collected tables into Defs.
func compile(coll *collector) (*state.Defs, error) {
	if coll.game == nil {
		return nil, fmt.Errorf("no Game{} definition found")
	}
	defs := &state.Defs{
		Game:        compileGame(coll.game),
		Scaling:     compileScaling(coll.scaling),
		Monsters:    map[string]types.MonsterTemplate{},
		Worlds:      map[string]types.WorldDef{},
		Zones:       map[string]types.ZoneDef{},
		Items:       map[string]types.ItemDef{},
		Professions: map[string]types.ProfessionDef{},
		Recipes:     map[string]types.RecipeDef{},
		Quests:      map[string]types.QuestDefinition{},
	}

	for _, r := range coll.monsters {
		if _, dup := defs.Monsters[r.id]; dup {
			return nil, fmt.Errorf("duplicate monster %q", r.id)
		}
		defs.Monsters[r.id] = compileMonster(r)
	}

	// Zone ownership and the default index follow world declaration order.
	owner := map[string]string{}
	position := map[string]int{}
	for _, r := range coll.worlds {
		if _, dup := defs.Worlds[r.id]; dup {
			return nil, fmt.Errorf("duplicate world %q", r.id)
		}
		w := types.WorldDef{
			ID:       r.id,
			Name:     orID(getString(r.table, "name"), r.id),
			Zones:    stringList(getTable(r.table, "zones")),
			Requires: compileConditions(getTable(r.table, "requires")),
		}
		for _, z := range w.Zones {
			if prev, taken := owner[z]; taken {
				return nil, fmt.Errorf("zone %q listed by worlds %q and %q", z, prev, r.id)
			}
			owner[z] = r.id
			position[z] = len(position)
		}
		defs.Worlds[r.id] = w
		defs.WorldOrder = append(defs.WorldOrder, r.id)
	}

	for _, r := range coll.zones {
		if _, dup := defs.Zones[r.id]; dup {
			return nil, fmt.Errorf("duplicate zone %q", r.id)
		}
		z := compileZone(r)
		z.WorldID = owner[r.id]
		if !has(r.table, "index") {
			z.Index = position[r.id]
		}
		defs.Zones[r.id] = z
	}

	for _, r := range coll.items {
		defs.Items[r.id] = types.ItemDef{
			ID:           r.id,
			Name:         orID(getString(r.table, "name"), r.id),
			Slot:         getString(r.table, "slot"),
			AttackBonus:  getNumber(r.table, "attack"),
			DefenseBonus: getNumber(r.table, "defense"),
		}
	}

	for _, r := range coll.professions {
		if _, dup := defs.Professions[r.id]; dup {
			return nil, fmt.Errorf("duplicate profession %q", r.id)
		}
		defs.Professions[r.id] = compileProfession(r)
		defs.ProfessionOrder = append(defs.ProfessionOrder, r.id)
	}

	for _, r := range coll.recipes {
		defs.Recipes[r.id] = types.RecipeDef{
			ID:         r.id,
			Name:       orID(getString(r.table, "name"), r.id),
			Profession: getString(r.table, "profession"),
			Level:      max(1, getInt(r.table, "level")),
			Materials:  itemQtys(getTable(r.table, "materials")),
			Output:     orID(getString(r.table, "output"), r.id),
			Experience: getInt(r.table, "experience"),
		}
	}

	for _, r := range coll.quests {
		if _, dup := defs.Quests[r.id]; dup {
			return nil, fmt.Errorf("duplicate quest %q", r.id)
		}
		defs.Quests[r.id] = compileQuest(r)
		defs.QuestOrder = append(defs.QuestOrder, r.id)
	}

	return defs, nil
}

func orID(name, id string) string {
	if name == "" {
		return id
	}
	return name
}

func compileGame(tbl *lua.LTable) types.GameDef {
	g := types.GameDef{
		Title:   getString(tbl, "title"),
		Author:  getString(tbl, "author"),
		Version: getString(tbl, "version"),
	}
	start := getTable(tbl, "start")
	if start == nil {
		return g
	}
	g.Start = types.StartDef{
		CharacterID:          getString(start, "character"),
		CharacterName:        getString(start, "name"),
		MaxHP:                getInt(start, "hp"),
		Attack:               getNumber(start, "attack"),
		Defense:              getNumber(start, "defense"),
		WorldID:              getString(start, "world"),
		ZoneID:               getString(start, "zone"),
		InventoryCapacity:    getInt(start, "inventory_capacity"),
		StartingItems:        itemQtys(getTable(start, "items")),
		SlotsPerCharacter:    getInt(start, "slots"),
		AvailableProfessions: stringList(getTable(start, "professions")),
		UnlockedProfessions:  stringList(getTable(start, "unlocked")),
		AssignedProfessions:  stringList(getTable(start, "assigned")),
		AutoCombatUnlocked:   getBool(start, "auto_combat", false),
	}
	return g
}

// compileScaling applies the stock coefficients to any field left unset.
func compileScaling(tbl *lua.LTable) types.Scaling {
	sc := types.Scaling{
		ZoneMultiplier: 0.4,
		ScalingPower:   2,
		LevelScaling:   0.1,
		FullScaling:    types.StatScaling{HP: true, Attack: true, Defense: true},
	}
	if tbl == nil {
		return sc
	}
	if has(tbl, "zone_multiplier") {
		sc.ZoneMultiplier = getNumber(tbl, "zone_multiplier")
	}
	if has(tbl, "scaling_power") {
		sc.ScalingPower = getNumber(tbl, "scaling_power")
	}
	if has(tbl, "level_scaling") {
		sc.LevelScaling = getNumber(tbl, "level_scaling")
	}
	if full := getTable(tbl, "full"); full != nil {
		sc.FullScaling = types.StatScaling{
			HP:      getBool(full, "hp", false),
			Attack:  getBool(full, "attack", false),
			Defense: getBool(full, "defense", false),
		}
	}
	return sc
}

func compileMonster(r raw) types.MonsterTemplate {
	m := types.MonsterTemplate{
		ID:         r.id,
		Name:       orID(getString(r.table, "name"), r.id),
		HP:         getInt(r.table, "hp"),
		Attack:     getInt(r.table, "attack"),
		Defense:    getInt(r.table, "defense"),
		Experience: getInt(r.table, "experience"),
		Rare:       getBool(r.table, "rare", false),
		Boss:       getBool(r.table, "boss", false),
	}
	eachRow(getTable(r.table, "loot"), func(row *lua.LTable) {
		e := types.LootEntry{
			ResourceID: getString(row, "item"),
			DropChance: getNumber(row, "chance"),
			MinQty:     max(1, getInt(row, "min")),
			MaxQty:     getInt(row, "max"),
		}
		if e.MaxQty == 0 {
			e.MaxQty = e.MinQty
		}
		m.Loot = append(m.Loot, e)
	})
	return m
}

func compileZone(r raw) types.ZoneDef {
	z := types.ZoneDef{
		ID:                  r.id,
		Name:                orID(getString(r.table, "name"), r.id),
		Index:               getInt(r.table, "index"),
		BossID:              getString(r.table, "boss"),
		CompletionThreshold: getInt(r.table, "completion"),
		Requires:            compileConditions(getTable(r.table, "requires")),
	}
	eachRow(getTable(r.table, "spawns"), func(row *lua.LTable) {
		e := types.SpawnEntry{
			MonsterID: getString(row, "monster"),
			Weight:    1,
			MinLevel:  max(1, getInt(row, "min_level")),
			MaxLevel:  getInt(row, "max_level"),
		}
		if has(row, "weight") {
			e.Weight = getNumber(row, "weight")
		}
		if e.MaxLevel == 0 {
			e.MaxLevel = e.MinLevel
		}
		z.Spawns = append(z.Spawns, e)
	})
	return z
}

// resources reads either "id" strings (weight 1) or { id = "...", weight = n } rows.
func resources(tbl *lua.LTable) []types.ResourceDef {
	if tbl == nil {
		return nil
	}
	var out []types.ResourceDef
	for i := 1; i <= tbl.MaxN(); i++ {
		switch v := tbl.RawGetInt(i).(type) {
		case lua.LString:
			out = append(out, types.ResourceDef{ID: string(v), Weight: 1})
		case *lua.LTable:
			res := types.ResourceDef{ID: getString(v, "id"), Weight: 1}
			if has(v, "weight") {
				res.Weight = getNumber(v, "weight")
			}
			out = append(out, res)
		}
	}
	return out
}

func compileProfession(r raw) types.ProfessionDef {
	p := types.ProfessionDef{
		ID:        r.id,
		Name:      orID(getString(r.table, "name"), r.id),
		Selection: getString(r.table, "selection"),
	}
	eachRow(getTable(r.table, "tiers"), func(row *lua.LTable) {
		p.Tiers = append(p.Tiers, types.ResourceTier{
			MinLevel:  max(1, getInt(row, "level")),
			Resources: resources(getTable(row, "resources")),
		})
	})
	sort.SliceStable(p.Tiers, func(i, j int) bool { return p.Tiers[i].MinLevel < p.Tiers[j].MinLevel })

	if t := getTable(r.table, "exp_table"); t != nil {
		for i := 1; i <= t.MaxN(); i++ {
			if n, ok := t.RawGetInt(i).(lua.LNumber); ok {
				p.ExpTable = append(p.ExpTable, int(n))
			}
		}
	}
	if b := getTable(r.table, "bonus_yield"); b != nil {
		p.BonusYield = &types.BonusYieldDef{PerPower: getNumber(b, "per_power"), Cap: getNumber(b, "cap")}
	}
	if rr := getTable(r.table, "rare"); rr != nil {
		p.Rare = &types.RareRollDef{
			PerLevel:  getNumber(rr, "per_level"),
			Cap:       getNumber(rr, "cap"),
			Resources: resources(getTable(rr, "resources")),
		}
	}
	eachRow(getTable(r.table, "upgrades"), func(row *lua.LTable) {
		id := getString(row, "id")
		p.Upgrades = append(p.Upgrades, types.UpgradeDef{
			ID:       id,
			Name:     orID(getString(row, "name"), id),
			Stat:     getString(row, "stat"),
			Amount:   getNumber(row, "amount"),
			Cost:     itemQtys(getTable(row, "cost")),
			Requires: compileConditions(getTable(row, "requires")),
		})
	})
	return p
}

func compileQuest(r raw) types.QuestDefinition {
	q := types.QuestDefinition{
		ID:            r.id,
		Title:         orID(getString(r.table, "title"), r.id),
		Description:   getString(r.table, "description"),
		AutoStart:     getBool(r.table, "auto_start", false),
		Prerequisites: stringList(getTable(r.table, "prerequisites")),
		Requirements: types.QuestRequirements{
			MonstersKilled: countMap(getTable(r.table, "kill")),
			Zone:           getString(r.table, "zone"),
			Items:          countMap(getTable(r.table, "collect")),
		},
	}
	if rw := getTable(r.table, "rewards"); rw != nil {
		q.Rewards = types.QuestRewards{
			Experience:    getInt(rw, "experience"),
			Items:         countMap(getTable(rw, "items")),
			ProfessionExp: countMap(getTable(rw, "profession_exp")),
		}
		if u := getTable(rw, "unlocks"); u != nil {
			q.Rewards.Unlocks = types.QuestUnlocks{
				Professions: stringList(getTable(u, "professions")),
				Zones:       stringList(getTable(u, "zones")),
				AutoCombat:  getBool(u, "auto_combat", false),
			}
		}
	}
	return q
}

func compileConditions(tbl *lua.LTable) []types.Condition {
	var out []types.Condition
	eachRow(tbl, func(row *lua.LTable) {
		out = append(out, compileCondition(row))
	})
	return out
}

func compileCondition(tbl *lua.LTable) types.Condition {
	typ := getString(tbl, "type")
	if typ == "not" {
		c := types.Condition{Type: "not"}
		if inner := getTable(tbl, "inner"); inner != nil {
			in := compileCondition(inner)
			c.Inner = &in
		}
		return c
	}
	params := map[string]any{}
	tbl.ForEach(func(k, v lua.LValue) {
		if ks, ok := k.(lua.LString); ok && ks != "type" {
			params[string(ks)] = toGoValue(v)
		}
	})
	return types.Condition{Type: typ, Params: params}
}
