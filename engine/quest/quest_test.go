package quest

import (
	"errors"
	"testing"

	"github.com/nathoo/idlecore/container"
	"github.com/nathoo/idlecore/engine/events"
	"github.com/nathoo/idlecore/engine/state"
	"github.com/nathoo/idlecore/engine/store"
	"github.com/nathoo/idlecore/types"
)

type grant struct {
	char, prof string
	amount     int
}

type fakeGranter struct{ grants []grant }

func (f *fakeGranter) GrantExperience(charID, profID string, amount int) (bool, error) {
	f.grants = append(f.grants, grant{charID, profID, amount})
	return false, nil
}

func counts(kv ...any) container.OrderedMap[string, int] {
	m := container.NewOrderedMap[string, int]()
	for i := 0; i < len(kv); i += 2 {
		m.Set(kv[i].(string), kv[i+1].(int))
	}
	return m
}

func testDefs() *state.Defs {
	quests := map[string]types.QuestDefinition{
		"slime_hunt": {
			ID:        "slime_hunt",
			Title:     "Slime Hunt",
			AutoStart: true,
			Requirements: types.QuestRequirements{
				MonstersKilled: counts("slime", 3),
				Zone:           "peaceful_meadow",
			},
			Rewards: types.QuestRewards{
				Experience:    50,
				Items:         counts("potion", 2),
				ProfessionExp: counts("mining", 30, "fishing", 10),
				Unlocks: types.QuestUnlocks{
					Professions: []string{"alchemy"},
					Zones:       []string{"dark_forest"},
					AutoCombat:  true,
				},
			},
		},
		"gatherer": {
			ID:            "gatherer",
			AutoStart:     true,
			Prerequisites: []string{"slime_hunt"},
			Requirements:  types.QuestRequirements{Items: counts("herb", 5)},
		},
		"wolf_bane": {
			ID:           "wolf_bane",
			Requirements: types.QuestRequirements{MonstersKilled: counts("wolf", 1)},
		},
	}
	return &state.Defs{
		Game: types.GameDef{Start: types.StartDef{
			WorldID:             "verdant",
			ZoneID:              "peaceful_meadow",
			AssignedProfessions: []string{"mining"},
		}},
		Quests:     quests,
		QuestOrder: []string{"slime_hunt", "gatherer", "wolf_bane"},
	}
}

type harness struct {
	st      *store.Store
	tr      *Tracker
	events  *events.Recorder
	granter *fakeGranter
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	defs := testDefs()
	h := &harness{
		st:      store.New(defs, store.Options{}),
		events:  &events.Recorder{},
		granter: &fakeGranter{},
	}
	h.tr = New(Options{Store: h.st, Defs: defs, Events: h.events, Professions: h.granter})
	return h
}

func TestStartAutoQuests(t *testing.T) {
	h := newHarness(t)
	h.tr.StartAutoQuests()

	if got := h.tr.Status("slime_hunt"); got != Active {
		t.Errorf("slime_hunt = %v, want active", got)
	}
	if got := h.tr.Status("gatherer"); got != Locked {
		t.Errorf("gatherer = %v, want locked", got)
	}
	if got := h.tr.Status("wolf_bane"); got != Locked {
		t.Errorf("wolf_bane = %v, want locked (not auto-start)", got)
	}
}

func TestStartQuest_Errors(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name  string
		quest string
		want  error
	}{
		{"unknown", "dragon", ErrUnknownQuest},
		{"prerequisites", "gatherer", ErrPrerequisites},
	}
	for _, tt := range tests {
		if err := h.tr.StartQuest(tt.quest); !errors.Is(err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.name, err, tt.want)
		}
	}

	if err := h.tr.StartQuest("wolf_bane"); err != nil {
		t.Fatal(err)
	}
	if err := h.tr.StartQuest("wolf_bane"); !errors.Is(err, ErrAlreadyActive) {
		t.Errorf("restart err = %v, want ErrAlreadyActive", err)
	}
	h.tr.RecordMonsterKill("wolf", "anywhere")
	if err := h.tr.StartQuest("wolf_bane"); !errors.Is(err, ErrAlreadyCompleted) {
		t.Errorf("completed err = %v, want ErrAlreadyCompleted", err)
	}
}

func TestRecordMonsterKill_ZoneRestriction(t *testing.T) {
	h := newHarness(t)
	h.tr.StartAutoQuests()

	h.tr.RecordMonsterKill("slime", "dark_forest")
	h.tr.RecordMonsterKill("wolf", "peaceful_meadow")
	p := h.st.GetState().Quests.Progress.Value("slime_hunt")
	if n := p.MonstersKilled.Value("slime"); n != 0 {
		t.Errorf("slime progress = %d, want 0", n)
	}

	h.tr.RecordMonsterKill("slime", "peaceful_meadow")
	p = h.st.GetState().Quests.Progress.Value("slime_hunt")
	if n := p.MonstersKilled.Value("slime"); n != 1 {
		t.Errorf("slime progress = %d, want 1", n)
	}
	if h.events.Count(events.QuestProgress) != 1 {
		t.Errorf("quest_progress = %d, want 1", h.events.Count(events.QuestProgress))
	}
}

func TestCompletion_AppliesRewardsOnce(t *testing.T) {
	h := newHarness(t)
	h.tr.StartAutoQuests()

	for i := 0; i < 3; i++ {
		h.tr.RecordMonsterKill("slime", "peaceful_meadow")
	}
	s := h.st.GetState()
	if h.tr.Status("slime_hunt") != Completed {
		t.Fatal("slime_hunt should be completed")
	}
	hero, _ := state.ActiveCharacter(s)
	if hero.Experience != 50 {
		t.Errorf("hero exp = %d, want 50", hero.Experience)
	}
	if state.ItemCount(s, "potion") != 2 {
		t.Errorf("potions = %d, want 2", state.ItemCount(s, "potion"))
	}
	if len(h.granter.grants) != 1 || h.granter.grants[0] != (grant{"hero", "mining", 30}) {
		t.Errorf("profession grants = %v, want mining only", h.granter.grants)
	}
	if !s.Professions.Slots.Unlocked.Has("alchemy") || !s.Combat.Zones.UnlockedZones.Has("dark_forest") {
		t.Error("unlock rewards missing")
	}
	if !s.Combat.State.AutoCombatUnlocked {
		t.Error("auto-combat should be unlocked")
	}
	if s.Quests.Progress.Has("slime_hunt") {
		t.Error("progress of a completed quest should be dropped")
	}
	if h.tr.Status("gatherer") != Active {
		t.Error("gatherer should auto-start once its prerequisite completes")
	}

	for i := 0; i < 5; i++ {
		h.tr.RecordMonsterKill("slime", "peaceful_meadow")
	}
	hero, _ = state.ActiveCharacter(h.st.GetState())
	if hero.Experience != 50 || h.events.Count(events.QuestCompleted) != 1 {
		t.Errorf("rewards re-applied: exp %d, completions %d", hero.Experience, h.events.Count(events.QuestCompleted))
	}
}

func TestRecordItemCollected_CapsProgress(t *testing.T) {
	h := newHarness(t)
	h.tr.StartAutoQuests()
	for i := 0; i < 3; i++ {
		h.tr.RecordMonsterKill("slime", "peaceful_meadow")
	}

	h.tr.RecordItemCollected("herb", 3)
	h.tr.RecordItemCollected("herb", 0)
	p := h.st.GetState().Quests.Progress.Value("gatherer")
	if n := p.Items.Value("herb"); n != 3 {
		t.Errorf("herb progress = %d, want 3", n)
	}

	h.tr.RecordItemCollected("herb", 4)
	if h.tr.Status("gatherer") != Completed {
		t.Error("gatherer should complete at 5 herbs")
	}
}

func TestAbandonQuest(t *testing.T) {
	h := newHarness(t)

	if err := h.tr.AbandonQuest("wolf_bane"); !errors.Is(err, ErrNotActive) {
		t.Errorf("locked err = %v, want ErrNotActive", err)
	}
	if err := h.tr.StartQuest("slime_hunt"); err != nil {
		t.Fatal(err)
	}
	h.tr.RecordMonsterKill("slime", "peaceful_meadow")
	if err := h.tr.AbandonQuest("slime_hunt"); err != nil {
		t.Fatal(err)
	}
	s := h.st.GetState()
	if h.tr.Status("slime_hunt") != Locked || s.Quests.Progress.Has("slime_hunt") {
		t.Error("abandoned quest should be locked with no progress")
	}

	if err := h.tr.StartQuest("wolf_bane"); err != nil {
		t.Fatal(err)
	}
	h.tr.RecordMonsterKill("wolf", "x")
	if err := h.tr.AbandonQuest("wolf_bane"); !errors.Is(err, ErrAlreadyCompleted) {
		t.Errorf("completed err = %v, want ErrAlreadyCompleted", err)
	}
	if h.events.Count(events.QuestAbandoned) != 1 {
		t.Error("quest_abandoned not published once")
	}
}

func TestDone(t *testing.T) {
	def := testDefs().Quests["slime_hunt"]
	if Done(def, types.QuestProgress{}) {
		t.Error("empty progress should not be done")
	}
	if !Done(def, types.QuestProgress{MonstersKilled: counts("slime", 3)}) {
		t.Error("met requirements should be done")
	}
	if !Done(types.QuestDefinition{}, types.QuestProgress{}) {
		t.Error("a quest without requirements is done")
	}
}

func TestStatusString(t *testing.T) {
	for s, want := range map[Status]string{Locked: "locked", Active: "active", Completed: "completed"} {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", s, s.String(), want)
		}
	}
}
