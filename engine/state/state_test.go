package state

import (
	"encoding/json"
	"testing"

	"github.com/nathoo/idlecore/types"
)

func testDefs() *Defs {
	return &Defs{
		Game: types.GameDef{
			Title:   "Test Game",
			Version: "0.1.0",
			Start: types.StartDef{
				CharacterID:         "hero",
				CharacterName:       "Hero",
				MaxHP:               50,
				Attack:              5,
				Defense:             2,
				WorldID:             "verdant",
				ZoneID:              "peaceful_meadow",
				InventoryCapacity:   100,
				StartingItems:       []types.ItemQty{{ItemID: "bread", Qty: 2}},
				UnlockedProfessions: []string{"mining"},
				AssignedProfessions: []string{"mining"},
				AutoCombatUnlocked:  true,
			},
		},
		Scaling: types.Scaling{ZoneMultiplier: 0.4, ScalingPower: 2, LevelScaling: 0.1},
		Worlds: map[string]types.WorldDef{
			"verdant": {ID: "verdant", Zones: []string{"peaceful_meadow", "dark_forest"}},
		},
		WorldOrder: []string{"verdant"},
		Zones: map[string]types.ZoneDef{
			"peaceful_meadow": {ID: "peaceful_meadow", WorldID: "verdant"},
			"dark_forest":     {ID: "dark_forest", WorldID: "verdant", Index: 1},
		},
		Professions:     map[string]types.ProfessionDef{"mining": {ID: "mining"}},
		ProfessionOrder: []string{"mining"},
	}
}

func TestNewState(t *testing.T) {
	s := NewState(testDefs())

	c, ok := ActiveCharacter(s)
	if !ok {
		t.Fatal("no active character")
	}
	if c.Level != 1 || c.Stats.MaxHP != 50 || c.Stats.CurrentHP != 50 {
		t.Errorf("character = %+v, want level 1 with 50/50 hp", c)
	}
	if got := ItemCount(s, "bread"); got != 2 {
		t.Errorf("bread = %d, want 2", got)
	}
	if s.Combat.Zones.CurrentZoneID != "peaceful_meadow" {
		t.Errorf("zone = %q, want peaceful_meadow", s.Combat.Zones.CurrentZoneID)
	}
	if !s.Combat.Zones.UnlockedZones.Has("peaceful_meadow") || !s.Combat.Zones.UnlockedWorlds.Has("verdant") {
		t.Error("start zone and world should be unlocked")
	}
	ps, ok := Profession(s, "hero", "mining")
	if !ok {
		t.Fatal("mining should be assigned")
	}
	if ps.Level != 1 || ps.Stats.MultiCollect != 1 || ps.Stats.MiningPower != 1 {
		t.Errorf("profession = %+v, want defaults", ps)
	}
	if s.Combat.Scaling.ZoneMultiplier != 0.4 {
		t.Errorf("scaling = %+v, want from defs", s.Combat.Scaling)
	}
	if got := s.Professions.Slots.Available; len(got) != 1 || got[0] != "mining" {
		t.Errorf("available = %v, want [mining]", got)
	}
}

func TestNewState_Defaults(t *testing.T) {
	defs := &Defs{
		Worlds:     map[string]types.WorldDef{"w": {ID: "w", Zones: []string{"z"}}},
		WorldOrder: []string{"w"},
		Zones:      map[string]types.ZoneDef{"z": {ID: "z"}},
	}
	s := NewState(defs)
	c, _ := ActiveCharacter(s)
	if c.ID != "hero" || c.Stats.MaxHP != DefaultMaxHP || c.Stats.Attack != DefaultAttack {
		t.Errorf("character = %+v, want defaults", c)
	}
	if s.Combat.Zones.CurrentWorldID != "w" || s.Combat.Zones.CurrentZoneID != "z" {
		t.Errorf("location = %s/%s, want w/z", s.Combat.Zones.CurrentWorldID, s.Combat.Zones.CurrentZoneID)
	}
	if s.Professions.Slots.PerCharacter != DefaultSlotsPerCharacter {
		t.Errorf("slots = %d, want %d", s.Professions.Slots.PerCharacter, DefaultSlotsPerCharacter)
	}
}

func TestClone_Independent(t *testing.T) {
	s := NewState(testDefs())
	s.Combat.State.CurrentMonster = &types.Monster{ID: "slime", CurrentHP: 5, MaxHP: 5}

	c, err := Clone(s)
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	c.Inventory.Items.Set("bread", 99)
	c.Combat.State.CurrentMonster.CurrentHP = 0
	hero, _ := c.Party.Get("hero")
	hero.Level = 9
	c.Party.Set("hero", hero)
	profs, _ := c.Professions.ByCharacter.Get("hero")
	profs.Set("mining", types.ProfessionState{Level: 7})

	if got := ItemCount(s, "bread"); got != 2 {
		t.Errorf("original bread = %d, want 2", got)
	}
	if s.Combat.State.CurrentMonster.CurrentHP != 5 {
		t.Error("original monster was mutated through the clone")
	}
	if orig, _ := ActiveCharacter(s); orig.Level != 1 {
		t.Error("original character was mutated through the clone")
	}
	if ps, _ := Profession(s, "hero", "mining"); ps.Level != 1 {
		t.Error("original profession was mutated through the clone")
	}
}

func TestNormalize_FillsMissingFields(t *testing.T) {
	defs := testDefs()
	s := NewState(defs)
	// Decode an older save shape on top of the defaults.
	old := `{
		"party": {"hero": {"name": "Old Hero", "level": 0, "stats": {"maxHp": 0, "currentHp": 500}}},
		"activeCharacterId": "ghost",
		"inventory": {"items": {"ore": 3, "junk": 0}},
		"professions": {"byCharacter": {"hero": {"mining": {"level": 4}}}},
		"combat": {"zones": {"currentZoneId": "nowhere"}, "state": {"inCombat": true}}
	}`
	if err := json.Unmarshal([]byte(old), s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	Normalize(s, defs)

	c, ok := ActiveCharacter(s)
	if !ok {
		t.Fatal("active character should be repaired")
	}
	if c.ID != "hero" || c.Level != 1 || c.Stats.MaxHP != DefaultMaxHP || c.Stats.CurrentHP != DefaultMaxHP {
		t.Errorf("character = %+v, want repaired", c)
	}
	if s.Inventory.Items.Has("junk") {
		t.Error("zero-quantity key should be dropped")
	}
	if s.Inventory.Capacity != 100 {
		t.Errorf("capacity = %d, want default 100", s.Inventory.Capacity)
	}
	ps, _ := Profession(s, "hero", "mining")
	if ps.Level != 4 || ps.Stats.MultiCollect != 1 || ps.Stats.ResourceQuality != 1 {
		t.Errorf("profession = %+v, want level 4 with default stats", ps)
	}
	if s.Combat.Zones.CurrentZoneID != "peaceful_meadow" {
		t.Errorf("zone = %q, want fallback to start zone", s.Combat.Zones.CurrentZoneID)
	}
	if s.Combat.State.InCombat {
		t.Error("inCombat without a monster should be cleared")
	}
}

func TestEffectiveStats(t *testing.T) {
	c := types.Character{
		Stats: types.CharacterStats{Attack: 10, Defense: 4},
		Equipment: types.Equipment{
			Weapon: &types.Item{AttackBonus: 3},
			Armor:  &types.Item{DefenseBonus: 2.5},
		},
	}
	if got := EffectiveAttack(c); got != 13 {
		t.Errorf("EffectiveAttack = %v, want 13", got)
	}
	if got := EffectiveDefense(c); got != 6.5 {
		t.Errorf("EffectiveDefense = %v, want 6.5", got)
	}
}

func TestExperienceToLevel(t *testing.T) {
	tests := []struct {
		level int
		want  int
	}{
		{1, 100},
		{2, 150},
		{3, 225},
		{4, 337},
	}
	for _, tt := range tests {
		if got := ExperienceToLevel(tt.level); got != tt.want {
			t.Errorf("ExperienceToLevel(%d) = %d, want %d", tt.level, got, tt.want)
		}
	}
}
