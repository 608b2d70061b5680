package command

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nathoo/idlecore/engine/events"
	"github.com/nathoo/idlecore/engine/state"
	"github.com/nathoo/idlecore/types"
)

var title = cases.Title(language.English)

// titleCase turns an id like "copper_ore" into "Copper Ore".
func titleCase(id string) string {
	return title.String(strings.ReplaceAll(id, "_", " "))
}

// Describe renders a domain event as one line of narrative. It reports
// false for events that have no player-facing text.
func Describe(defs *state.Defs, e types.Event) (string, bool) {
	d := e.Data
	name := func(kind, key string) string { return DisplayName(defs, kind, str(d, key)) }

	switch e.Type {
	case events.EncounterStarted:
		var tag string
		switch {
		case flag(d, "boss"):
			tag = "boss "
		case flag(d, "rare"):
			tag = "rare "
		}
		return fmt.Sprintf("A %slevel %d %s appears! (HP %d)", tag, num(d, "level"), name("monster", "monster"), num(d, "hp")), true
	case events.DamageDealt:
		return fmt.Sprintf("You hit the %s for %d damage. (%d HP left)", name("monster", "monster"), num(d, "amount"), num(d, "monsterHp")), true
	case events.DamageTaken:
		return fmt.Sprintf("The %s hits you for %d damage. (%d HP left)", name("monster", "monster"), num(d, "amount"), num(d, "playerHp")), true
	case events.Victory:
		return fmt.Sprintf("You defeated the %s!", name("monster", "monster")), true
	case events.Defeat:
		return fmt.Sprintf("You were defeated by the %s.", name("monster", "monster")), true
	case events.LootGained:
		return fmt.Sprintf("Loot: %s x%d.", name("item", "item"), num(d, "qty")), true
	case events.AutoCombatToggled:
		if flag(d, "enabled") {
			return "Auto-combat enabled.", true
		}
		return "Auto-combat disabled.", true

	case events.ExperienceGained:
		return fmt.Sprintf("+%d experience.", num(d, "amount")), true
	case events.LevelUp:
		return fmt.Sprintf("Level up! You are now level %d. (max HP %d)", num(d, "level"), num(d, "maxHp")), true

	case events.ZoneCompleted:
		return fmt.Sprintf("Zone complete: %s.", name("zone", "zone")), true
	case events.ZoneChanged:
		return fmt.Sprintf("You travel to %s.", name("zone", "zone")), true
	case events.ZoneUnlocked:
		return fmt.Sprintf("New zone unlocked: %s.", name("zone", "zone")), true
	case events.WorldUnlocked:
		return fmt.Sprintf("New world unlocked: %s.", name("world", "world")), true
	case events.WorldCompleted:
		return fmt.Sprintf("World complete: %s!", name("world", "world")), true

	case events.ResourceCollected:
		return fmt.Sprintf("Collected %s x%d.", name("item", "item"), num(d, "qty")), true
	case events.ProfessionLevelUp:
		return fmt.Sprintf("%s reached level %d.", name("profession", "profession"), num(d, "level")), true
	case events.ItemCrafted:
		return fmt.Sprintf("Crafted %s.", name("item", "item")), true
	case events.UpgradePurchased:
		return fmt.Sprintf("Purchased %s.", upgradeName(defs, str(d, "profession"), str(d, "upgrade"))), true
	case events.ProfessionUnlocked:
		return fmt.Sprintf("Profession unlocked: %s.", name("profession", "profession")), true
	case events.ProfessionAssigned:
		return fmt.Sprintf("You take up %s.", name("profession", "profession")), true

	case events.QuestStarted:
		return fmt.Sprintf("Quest started: %s.", name("quest", "quest")), true
	case events.QuestProgress:
		kind := "monster"
		if str(d, "kind") != "monster" {
			kind = "item"
		}
		return fmt.Sprintf("%s: %s %d/%d.", name("quest", "quest"), DisplayName(defs, kind, str(d, "target")), num(d, "count"), num(d, "required")), true
	case events.QuestCompleted:
		return fmt.Sprintf("Quest complete: %s!", name("quest", "quest")), true
	case events.QuestAbandoned:
		return fmt.Sprintf("Quest abandoned: %s.", name("quest", "quest")), true

	case events.GameSaved:
		return fmt.Sprintf("Game saved to %s.", str(d, "slot")), true
	case events.GameLoaded:
		return fmt.Sprintf("Game loaded from %s.", str(d, "slot")), true
	case events.GameReset:
		return "Game reset.", true
	}
	return "", false
}

func str(d map[string]any, key string) string {
	s, _ := d[key].(string)
	return s
}

func flag(d map[string]any, key string) bool {
	b, _ := d[key].(bool)
	return b
}

func num(d map[string]any, key string) int {
	switch v := d[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
