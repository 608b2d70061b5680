package actions

import (
	"errors"
	"testing"

	"github.com/nathoo/idlecore/engine/events"
	"github.com/nathoo/idlecore/engine/state"
	"github.com/nathoo/idlecore/engine/store"
	"github.com/nathoo/idlecore/types"
)

func testStore(t *testing.T) *store.Store {
	t.Helper()
	defs := &state.Defs{
		Game: types.GameDef{Start: types.StartDef{
			MaxHP:               100,
			Attack:              10,
			Defense:             5,
			WorldID:             "verdant",
			ZoneID:              "peaceful_meadow",
			UnlockedProfessions: []string{"mining"},
			AssignedProfessions: []string{"mining"},
			SlotsPerCharacter:   2,
		}},
		Worlds: map[string]types.WorldDef{"verdant": {ID: "verdant", Zones: []string{"peaceful_meadow", "dark_forest"}}},
		Zones: map[string]types.ZoneDef{
			"peaceful_meadow": {ID: "peaceful_meadow", WorldID: "verdant"},
			"dark_forest":     {ID: "dark_forest", WorldID: "verdant", Index: 1},
		},
	}
	return store.New(defs, store.Options{})
}

func mustDispatch(t *testing.T, st *store.Store, a store.Action) {
	t.Helper()
	if err := st.Dispatch(a); err != nil {
		t.Fatalf("dispatch %s: %v", a.Type, err)
	}
}

func active(st *store.Store) types.Character {
	c, _ := state.ActiveCharacter(st.GetState())
	return c
}

func TestGainExperience_LevelUp(t *testing.T) {
	st := testStore(t)
	mustDispatch(t, st, TakeDamage(40))
	mustDispatch(t, st, GainExperience(state.ExperienceToLevel(1)))

	c := active(st)
	if c.Level != 2 {
		t.Fatalf("level = %d, want 2", c.Level)
	}
	if c.Stats.MaxHP != 105 || c.Stats.CurrentHP != 105 {
		t.Errorf("hp = %d/%d, want 105/105", c.Stats.CurrentHP, c.Stats.MaxHP)
	}
	if c.Stats.Attack != 11 || c.Stats.Defense != 5.1 {
		t.Errorf("attack/defense = %v/%v, want 11/5.1", c.Stats.Attack, c.Stats.Defense)
	}
	if c.Experience != 0 {
		t.Errorf("experience = %d, want 0 after consuming threshold", c.Experience)
	}
}

func TestGainExperience_SingleStepPerDispatch(t *testing.T) {
	st := testStore(t)
	// Enough for levels 1->2 (100) and 2->3 (150).
	mustDispatch(t, st, GainExperience(400))

	c := active(st)
	if c.Level != 2 {
		t.Errorf("level = %d, want 2", c.Level)
	}
	if c.Experience != 300 {
		t.Errorf("experience = %d, want 300 carried over", c.Experience)
	}

	mustDispatch(t, st, GainExperience(1))
	if c := active(st); c.Level != 3 || c.Experience != 151 {
		t.Errorf("after next gain: level %d exp %d, want 3 and 151", c.Level, c.Experience)
	}
}

func TestGainExperience_BelowThreshold(t *testing.T) {
	st := testStore(t)
	mustDispatch(t, st, GainExperience(99))
	mustDispatch(t, st, GainExperience(0))
	mustDispatch(t, st, GainExperience(-5))

	if c := active(st); c.Level != 1 || c.Experience != 99 {
		t.Errorf("level %d exp %d, want 1 and 99", c.Level, c.Experience)
	}
}

func TestTakeDamageAndHeal(t *testing.T) {
	st := testStore(t)
	mustDispatch(t, st, TakeDamage(30))
	if hp := active(st).Stats.CurrentHP; hp != 70 {
		t.Errorf("hp = %d, want 70", hp)
	}
	mustDispatch(t, st, TakeDamage(500))
	if hp := active(st).Stats.CurrentHP; hp != 0 {
		t.Errorf("hp = %d, want clamped 0", hp)
	}
	mustDispatch(t, st, Heal(1000))
	if hp := active(st).Stats.CurrentHP; hp != 100 {
		t.Errorf("hp = %d, want clamped 100", hp)
	}
	mustDispatch(t, st, TakeDamage(10))
	mustDispatch(t, st, RestoreHealth())
	if hp := active(st).Stats.CurrentHP; hp != 100 {
		t.Errorf("hp = %d, want 100", hp)
	}
}

func TestEquip(t *testing.T) {
	st := testStore(t)
	mustDispatch(t, st, Equip(types.Item{ID: "sword", Slot: "weapon", AttackBonus: 4}))

	c := active(st)
	if got := state.EffectiveAttack(c); got != 14 {
		t.Errorf("effective attack = %v, want 14", got)
	}
	if err := st.Dispatch(Equip(types.Item{ID: "hat", Slot: "head"})); !errors.Is(err, ErrUnknownSlot) {
		t.Errorf("equip bad slot error = %v, want ErrUnknownSlot", err)
	}
	mustDispatch(t, st, Unequip("weapon"))
	if active(st).Equipment.Weapon != nil {
		t.Error("weapon still equipped")
	}
}

func TestInventory(t *testing.T) {
	st := testStore(t)
	mustDispatch(t, st, AddItem("ore", 5))
	mustDispatch(t, st, AddItem("ore", 0))
	mustDispatch(t, st, AddItem("ore", -3))
	mustDispatch(t, st, RemoveItem("ore", 2))

	if got := state.ItemCount(st.GetState(), "ore"); got != 3 {
		t.Errorf("ore = %d, want 3", got)
	}

	mustDispatch(t, st, RemoveItem("ore", 10))
	s := st.GetState()
	if s.Inventory.Items.Has("ore") {
		t.Error("ore key should be removed at zero")
	}
	mustDispatch(t, st, RemoveItem("ghost", 1))
	if st.GetState().Inventory.Items.Len() != 0 {
		t.Error("removing a missing item created a key")
	}
}

func TestInventory_Capacity(t *testing.T) {
	st := testStore(t)
	mustDispatch(t, st, setup(func(s *types.GameState) { s.Inventory.Capacity = 10 }))
	mustDispatch(t, st, AddItem("ore", 8))
	mustDispatch(t, st, AddItem("gem", 5))

	s := st.GetState()
	if got := state.InventoryTotal(s); got != 10 {
		t.Errorf("total = %d, want 10", got)
	}
	if got := state.ItemCount(s, "gem"); got != 2 {
		t.Errorf("gem = %d, want 2", got)
	}
}

func TestStored(t *testing.T) {
	st := testStore(t)
	mustDispatch(t, st, setup(func(s *types.GameState) {
		s.Inventory.Capacity = 5
		s.Inventory.Items.Set("ore", 1)
	}))
	grants := []types.ItemQty{{ItemID: "ore", Qty: 2}, {ItemID: "gem", Qty: 1}, {ItemID: "ore", Qty: 3}}

	before := st.GetState()
	for _, g := range grants {
		mustDispatch(t, st, AddItem(g.ItemID, g.Qty))
	}
	got := Stored(before, st.GetState(), grants)

	want := []types.ItemQty{{ItemID: "ore", Qty: 2}, {ItemID: "gem", Qty: 1}, {ItemID: "ore", Qty: 1}}
	if len(got) != len(want) {
		t.Fatalf("Stored = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Stored[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	full := st.GetState()
	mustDispatch(t, st, AddItem("gem", 4))
	if got := Stored(full, st.GetState(), []types.ItemQty{{ItemID: "gem", Qty: 4}}); len(got) != 0 {
		t.Errorf("Stored on a full inventory = %v, want none", got)
	}
}

func TestConsumeMaterials_AllOrNothing(t *testing.T) {
	st := testStore(t)
	mustDispatch(t, st, AddItem("ore", 3))
	mustDispatch(t, st, AddItem("coal", 1))

	err := st.Dispatch(ConsumeMaterials([]types.ItemQty{{ItemID: "ore", Qty: 2}, {ItemID: "coal", Qty: 2}}))
	if !errors.Is(err, ErrInsufficientMaterials) {
		t.Fatalf("error = %v, want ErrInsufficientMaterials", err)
	}
	if got := state.ItemCount(st.GetState(), "ore"); got != 3 {
		t.Errorf("ore = %d, want untouched 3", got)
	}

	mustDispatch(t, st, ConsumeMaterials([]types.ItemQty{{ItemID: "ore", Qty: 2}, {ItemID: "coal", Qty: 1}}))
	s := st.GetState()
	if state.ItemCount(s, "ore") != 1 || s.Inventory.Items.Has("coal") {
		t.Errorf("inventory = %v, want ore 1 and no coal", s.Inventory.Items.Keys())
	}
}

func TestEncounterLifecycle(t *testing.T) {
	st := testStore(t)
	mon := types.Monster{ID: "slime", MaxHP: 10, CurrentHP: 10}

	mustDispatch(t, st, StartEncounter(mon))
	if err := st.Dispatch(StartEncounter(mon)); !errors.Is(err, ErrInCombat) {
		t.Errorf("double start error = %v, want ErrInCombat", err)
	}
	mustDispatch(t, st, DamageMonster(4))
	mustDispatch(t, st, DamageMonster(40))
	s := st.GetState()
	if s.Combat.State.CurrentMonster.CurrentHP != 0 {
		t.Errorf("monster hp = %d, want 0", s.Combat.State.CurrentMonster.CurrentHP)
	}
	gen := s.Combat.State.Encounter

	mustDispatch(t, st, RecordVictory("peaceful_meadow"))
	s = st.GetState()
	if s.Combat.State.InCombat || s.Combat.State.CurrentMonster != nil {
		t.Error("victory should end the encounter")
	}
	if s.Combat.Zones.MonstersDefeated != 1 || state.ZoneKills(s, "peaceful_meadow") != 1 {
		t.Errorf("counters = %d/%d, want 1/1", s.Combat.Zones.MonstersDefeated, state.ZoneKills(s, "peaceful_meadow"))
	}
	if err := st.Dispatch(DamageMonster(1)); !errors.Is(err, ErrNoEncounter) {
		t.Errorf("damage without encounter error = %v", err)
	}

	mustDispatch(t, st, TakeDamage(100))
	mustDispatch(t, st, SetAutoCombat(true))
	mustDispatch(t, st, RecordDefeat())
	s = st.GetState()
	c, _ := state.ActiveCharacter(s)
	if c.Stats.CurrentHP != c.Stats.MaxHP {
		t.Error("defeat should restore hp")
	}
	if s.Combat.Zones.MonstersDefeated != 0 || s.Combat.State.AutoCombatEnabled {
		t.Error("defeat should reset counter and disable auto-combat")
	}
	if s.Combat.State.Encounter <= gen {
		t.Error("defeat should bump the encounter generation")
	}
}

func TestAutoCombatLocked(t *testing.T) {
	st := testStore(t)
	if err := st.Dispatch(ToggleAutoCombat()); !errors.Is(err, ErrAutoCombatLocked) {
		t.Fatalf("toggle locked error = %v", err)
	}
	mustDispatch(t, st, UnlockAutoCombat())
	mustDispatch(t, st, ToggleAutoCombat())
	if !st.GetState().Combat.State.AutoCombatEnabled {
		t.Error("toggle should enable")
	}
	mustDispatch(t, st, ToggleAutoCombat())
	if st.GetState().Combat.State.AutoCombatEnabled {
		t.Error("toggle should disable")
	}
}

func TestZoneUnlockAndChange(t *testing.T) {
	st := testStore(t)
	if err := st.Dispatch(ChangeZone("verdant", "dark_forest")); !errors.Is(err, ErrLocked) {
		t.Fatalf("change to locked zone error = %v", err)
	}
	mustDispatch(t, st, UnlockZone("dark_forest"))
	mustDispatch(t, st, UnlockZone("dark_forest"))
	mustDispatch(t, st, StartEncounter(types.Monster{ID: "slime", CurrentHP: 1}))
	mustDispatch(t, st, ChangeZone("verdant", "dark_forest"))

	s := st.GetState()
	if s.Combat.Zones.CurrentZoneID != "dark_forest" || s.Combat.State.InCombat {
		t.Errorf("zone = %q inCombat = %v", s.Combat.Zones.CurrentZoneID, s.Combat.State.InCombat)
	}
	if got := s.Combat.Zones.UnlockedZones.Values(); len(got) != 2 {
		t.Errorf("unlocked zones = %v, want two", got)
	}
}

func linear(level int) int { return level * 100 }

func TestProfessionActions(t *testing.T) {
	st := testStore(t)

	if err := st.Dispatch(AssignProfession("hero", "smithing")); !errors.Is(err, ErrNotUnlocked) {
		t.Fatalf("assign locked error = %v", err)
	}
	mustDispatch(t, st, UnlockProfession("smithing"))
	mustDispatch(t, st, UnlockProfession("alchemy"))
	mustDispatch(t, st, AssignProfession("hero", "smithing"))
	mustDispatch(t, st, AssignProfession("hero", "smithing"))
	if err := st.Dispatch(AssignProfession("hero", "alchemy")); !errors.Is(err, ErrNoSlot) {
		t.Errorf("third profession error = %v, want ErrNoSlot", err)
	}

	yields := []Yield{{ItemID: "ore", Qty: 2, Exp: 60}, {ItemID: "ore", Qty: 2, Exp: 60}}
	mustDispatch(t, st, CollectResources("hero", "mining", yields, linear))

	s := st.GetState()
	if got := state.ItemCount(s, "ore"); got != 4 {
		t.Errorf("ore = %d, want 4", got)
	}
	ps, _ := state.Profession(s, "hero", "mining")
	if ps.Level != 2 || ps.Experience != 20 {
		t.Errorf("mining = level %d exp %d, want 2 and 20", ps.Level, ps.Experience)
	}

	if err := st.Dispatch(CollectResources("hero", "alchemy", yields, linear)); !errors.Is(err, ErrNotAssigned) {
		t.Errorf("collect unassigned error = %v", err)
	}
}

func TestPurchaseUpgrade(t *testing.T) {
	st := testStore(t)
	up := types.UpgradeDef{ID: "pick", Stat: "mining_power", Amount: 0.5, Cost: []types.ItemQty{{ItemID: "ore", Qty: 3}}}

	if err := st.Dispatch(PurchaseUpgrade("hero", "mining", up)); !errors.Is(err, ErrInsufficientMaterials) {
		t.Fatalf("broke purchase error = %v", err)
	}
	mustDispatch(t, st, AddItem("ore", 5))
	mustDispatch(t, st, PurchaseUpgrade("hero", "mining", up))
	if err := st.Dispatch(PurchaseUpgrade("hero", "mining", up)); !errors.Is(err, ErrAlreadyOwned) {
		t.Errorf("second purchase error = %v", err)
	}

	s := st.GetState()
	ps, _ := state.Profession(s, "hero", "mining")
	if ps.Stats.MiningPower != 1.5 || !ps.UnlockedUpgrades.Has("pick") {
		t.Errorf("profession = %+v", ps)
	}
	if got := state.ItemCount(s, "ore"); got != 2 {
		t.Errorf("ore = %d, want 2", got)
	}

	bad := types.UpgradeDef{ID: "bad", Stat: "luck", Amount: 1}
	if err := st.Dispatch(PurchaseUpgrade("hero", "mining", bad)); err == nil {
		t.Error("unknown stat should fail")
	}
}

func TestCraft(t *testing.T) {
	st := testStore(t)
	recipe := types.RecipeDef{
		ID:         "bar",
		Profession: "mining",
		Materials:  []types.ItemQty{{ItemID: "ore", Qty: 2}},
		Output:     "bar",
	}
	if err := st.Dispatch(Craft("hero", recipe, 10, linear)); !errors.Is(err, ErrInsufficientMaterials) {
		t.Fatalf("craft without materials error = %v", err)
	}
	mustDispatch(t, st, AddItem("ore", 2))
	mustDispatch(t, st, Craft("hero", recipe, 10, linear))

	s := st.GetState()
	if state.ItemCount(s, "bar") != 1 || s.Inventory.Items.Has("ore") {
		t.Errorf("inventory = %v", s.Inventory.Items.Keys())
	}
	if ps, _ := state.Profession(s, "hero", "mining"); ps.Experience != 10 {
		t.Errorf("mining exp = %d, want 10", ps.Experience)
	}
}

func TestQuestLifecycle(t *testing.T) {
	st := testStore(t)
	def := types.QuestDefinition{ID: "slimes", Title: "Slimes"}
	def.Requirements.MonstersKilled.Set("slime", 3)

	mustDispatch(t, st, StartQuest(def))
	if err := st.Dispatch(StartQuest(def)); !errors.Is(err, ErrQuestActive) {
		t.Errorf("restart error = %v", err)
	}
	mustDispatch(t, st, RecordQuestProgress("slimes", ProgressMonster, "slime", 2, 3))
	mustDispatch(t, st, RecordQuestProgress("slimes", ProgressMonster, "slime", 5, 3))

	s := st.GetState()
	p := s.Quests.Progress.Value("slimes")
	if got := p.MonstersKilled.Value("slime"); got != 3 {
		t.Errorf("progress = %d, want capped 3", got)
	}

	mustDispatch(t, st, CompleteQuest("slimes"))
	if err := st.Dispatch(CompleteQuest("slimes")); !errors.Is(err, ErrQuestCompleted) {
		t.Errorf("double complete error = %v", err)
	}
	if err := st.Dispatch(StartQuest(def)); !errors.Is(err, ErrQuestCompleted) {
		t.Errorf("start completed error = %v", err)
	}
	if err := st.Dispatch(RecordQuestProgress("slimes", ProgressMonster, "slime", 1, 3)); !errors.Is(err, ErrQuestNotActive) {
		t.Errorf("progress on completed error = %v", err)
	}

	other := types.QuestDefinition{ID: "other"}
	mustDispatch(t, st, StartQuest(other))
	mustDispatch(t, st, AbandonQuest("other"))
	if err := st.Dispatch(AbandonQuest("other")); !errors.Is(err, ErrQuestNotActive) {
		t.Errorf("double abandon error = %v", err)
	}
	s = st.GetState()
	if s.Quests.Active.Len() != 0 || s.Quests.Progress.Len() != 0 {
		t.Error("abandon should clear quest and progress")
	}
}

func TestGrantExperience(t *testing.T) {
	st := testStore(t)
	var rec events.Recorder

	leveled, err := GrantExperience(st, &rec, 50)
	if err != nil || leveled {
		t.Fatalf("first grant: leveled=%v err=%v", leveled, err)
	}
	leveled, err = GrantExperience(st, &rec, 50)
	if err != nil || !leveled {
		t.Fatalf("second grant: leveled=%v err=%v", leveled, err)
	}
	if n := rec.Count(events.ExperienceGained); n != 2 {
		t.Errorf("experience events = %d, want 2", n)
	}
	if n := rec.Count(events.LevelUp); n != 1 {
		t.Errorf("level-up events = %d, want 1", n)
	}
}

// setup wraps an ad-hoc mutation for test setup.
func setup(fn func(s *types.GameState)) store.Action {
	return store.Action{Type: "test/setup", Paths: []string{"*"}, Reduce: func(s *types.GameState) error {
		fn(s)
		return nil
	}}
}
