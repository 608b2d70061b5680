package save

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/nathoo/idlecore/engine/state"
	"github.com/nathoo/idlecore/types"
)

func testDefs() *state.Defs {
	return &state.Defs{
		Game: types.GameDef{
			Title:   "Test Game",
			Version: "1.0",
			Start: types.StartDef{
				WorldID:           "verdant",
				ZoneID:            "peaceful_meadow",
				InventoryCapacity: 50,
			},
		},
		Worlds: map[string]types.WorldDef{"verdant": {ID: "verdant", Zones: []string{"peaceful_meadow"}}},
		Zones:  map[string]types.ZoneDef{"peaceful_meadow": {ID: "peaceful_meadow", WorldID: "verdant"}},
	}
}

func TestRoundTrip(t *testing.T) {
	defs := testDefs()
	s := state.NewState(defs)

	s.Inventory.Items.Set("copper_ore", 7)
	s.Inventory.Items.Set("apple", 2)
	s.Combat.Zones.UnlockedZones.Add("dark_forest")
	s.Combat.Zones.ZoneKills.Set("peaceful_meadow", 12)
	s.Quests.Completed.Add("first_blood")
	var progress types.QuestProgress
	progress.MonstersKilled.Set("slime", 2)
	s.Quests.Progress.Set("slime_hunt", progress)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	data, err := Save(s, Meta{Slot: "main", Game: defs.Game.Title, At: at})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	s2 := state.NewState(defs)
	f, err := Load(data, s2)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if f.Version != FormatVersion || f.Slot != "main" || !f.Timestamp.Equal(at) {
		t.Errorf("envelope = %+v", f)
	}

	if got := s2.Inventory.Items.Keys(); len(got) != 2 || got[0] != "copper_ore" || got[1] != "apple" {
		t.Errorf("inventory keys = %v, want [copper_ore apple]", got)
	}
	if !s2.Combat.Zones.UnlockedZones.Has("dark_forest") {
		t.Error("unlocked zone lost")
	}
	if s2.Combat.Zones.ZoneKills.Value("peaceful_meadow") != 12 {
		t.Error("zone kills lost")
	}
	if !s2.Quests.Completed.Has("first_blood") {
		t.Error("completed quest lost")
	}
	p, _ := s2.Quests.Progress.Get("slime_hunt")
	if p.MonstersKilled.Value("slime") != 2 {
		t.Error("quest progress lost")
	}

	// Same state must serialize to the same bytes again.
	a, _ := json.Marshal(s)
	b, _ := json.Marshal(s2)
	if !bytes.Equal(a, b) {
		t.Errorf("state changed across round trip:\n%s\n%s", a, b)
	}
}

func TestLoad_MergesOverDefaults(t *testing.T) {
	data := []byte(`{"version":1,"slot":"old","state":{"inventory":{"items":{"gem":1}}}}`)
	base := state.NewState(testDefs())

	if _, err := Load(data, base); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if base.Inventory.Capacity != 50 {
		t.Errorf("capacity = %d, want default 50", base.Inventory.Capacity)
	}
	if base.Inventory.Items.Value("gem") != 1 {
		t.Error("saved item missing")
	}
	if base.Combat.Zones.CurrentZoneID != "peaceful_meadow" {
		t.Errorf("zone = %q, want default", base.Combat.Zones.CurrentZoneID)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"garbage", `not json`, ErrCorrupt},
		{"no state", `{"version":1}`, ErrCorrupt},
		{"state not object", `{"version":1,"state":[1,2]}`, ErrCorrupt},
		{"bad state field", `{"version":1,"state":{"party":42}}`, ErrCorrupt},
		{"future version", `{"version":99,"state":{}}`, ErrUnsupportedVersion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.data), state.NewState(testDefs()))
			if !errors.Is(err, tt.want) {
				t.Errorf("Load error = %v, want %v", err, tt.want)
			}
		})
	}
}

type mapRepo map[string][]byte

func (m mapRepo) Put(_ context.Context, slot string, data []byte) error { m[slot] = data; return nil }
func (m mapRepo) Delete(_ context.Context, slot string) error           { delete(m, slot); return nil }

func (m mapRepo) Get(_ context.Context, slot string) ([]byte, error) {
	d, ok := m[slot]
	if !ok {
		return nil, ErrNotFound
	}
	return d, nil
}

func (m mapRepo) List(context.Context) ([]string, error) {
	var names []string
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names, nil
}

func TestDescribe(t *testing.T) {
	repo := mapRepo{}
	data, err := Save(state.NewState(testDefs()), Meta{Slot: "a"})
	if err != nil {
		t.Fatal(err)
	}
	repo["a"] = data
	repo["broken"] = []byte("{")

	slots, err := Describe(context.Background(), repo)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if len(slots) != 1 || slots[0].Name != "a" {
		t.Errorf("slots = %+v, want only a", slots)
	}
}

func TestSchema(t *testing.T) {
	s := Schema()
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal schema: %v", err)
	}
	for _, want := range []string{`"state"`, `"timestamp"`, `"const":"Map"`, `"const":"Set"`, `"format":"uuid"`} {
		if !bytes.Contains(data, []byte(want)) {
			t.Errorf("schema missing %s", want)
		}
	}
}
