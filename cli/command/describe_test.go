package command

import (
	"testing"

	"github.com/nathoo/idlecore/engine/events"
)

func TestDescribe(t *testing.T) {
	defs := testDefs()
	tests := []struct {
		typ  string
		data map[string]any
		want string
	}{
		{events.EncounterStarted, map[string]any{"monster": "slime", "level": 2, "hp": 14}, "A level 2 Slime appears! (HP 14)"},
		{events.EncounterStarted, map[string]any{"monster": "slime", "level": 3, "hp": 30, "boss": true}, "A boss level 3 Slime appears! (HP 30)"},
		{events.DamageTaken, map[string]any{"monster": "slime", "amount": 3, "playerHp": 47}, "The Slime hits you for 3 damage. (47 HP left)"},
		{events.LootGained, map[string]any{"item": "herb", "qty": 2}, "Loot: Herb x2."},
		{events.LootGained, map[string]any{"item": "mystery_goo", "qty": 1}, "Loot: Mystery Goo x1."},
		{events.LevelUp, map[string]any{"level": 4, "maxHp": 80}, "Level up! You are now level 4. (max HP 80)"},
		{events.WorldUnlocked, map[string]any{"world": "verdant"}, "New world unlocked: Verdant Vale."},
		{events.QuestProgress, map[string]any{"quest": "slime_hunt", "kind": "monster", "target": "slime", "count": 2, "required": 3}, "Slime Hunt: Slime 2/3."},
		{events.UpgradePurchased, map[string]any{"profession": "herbalism", "upgrade": "sickle"}, "Purchased Sharp Sickle."},
		{events.AutoCombatToggled, map[string]any{"enabled": false}, "Auto-combat disabled."},
		// decoded JSON numbers arrive as float64
		{events.ExperienceGained, map[string]any{"amount": float64(12)}, "+12 experience."},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, ok := Describe(defs, events.New(tt.typ, tt.data))
			if !ok {
				t.Fatalf("Describe(%s) not described", tt.typ)
			}
			if got != tt.want {
				t.Errorf("Describe(%s) = %q, want %q", tt.typ, got, tt.want)
			}
		})
	}

	if _, ok := Describe(defs, events.New("something_else", nil)); ok {
		t.Error("unknown event should not be described")
	}
}
