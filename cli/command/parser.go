// Package command turns typed player commands into game calls. Parsing is
// plain word matching: no grammar beyond verb, object and an optional target
// after a preposition.
package command

import (
	"strings"

	"github.com/nathoo/idlecore/types"
)

// Canonical verbs.
const (
	VerbStatus      = "status"
	VerbInventory   = "inventory"
	VerbZones       = "zones"
	VerbProfessions = "professions"
	VerbRecipes     = "recipes"
	VerbQuests      = "quests"
	VerbFight       = "fight"
	VerbAttack      = "attack"
	VerbAuto        = "auto"
	VerbGo          = "go"
	VerbUnlock      = "unlock"
	VerbCollect     = "collect"
	VerbCraft       = "craft"
	VerbBuy         = "buy"
	VerbAssign      = "assign"
	VerbEquip       = "equip"
	VerbUnequip     = "unequip"
	VerbAccept      = "accept"
	VerbAbandon     = "abandon"
	VerbHelp        = "help"
)

var verbAliases = map[string]string{
	// Status
	"look":      VerbStatus,
	"l":         VerbStatus,
	"st":        VerbStatus,
	"stats":     VerbStatus,
	"character": VerbStatus,
	"char":      VerbStatus,
	"me":        VerbStatus,

	// Lists
	"inv":     VerbInventory,
	"i":       VerbInventory,
	"bag":     VerbInventory,
	"items":   VerbInventory,
	"map":     VerbZones,
	"where":   VerbZones,
	"worlds":  VerbZones,
	"profs":   VerbProfessions,
	"skills":  VerbProfessions,
	"q":       VerbQuests,
	"journal": VerbQuests,
	"log":     VerbQuests,

	// Combat
	"f":          VerbFight,
	"hunt":       VerbFight,
	"engage":     VerbFight,
	"a":          VerbAttack,
	"hit":        VerbAttack,
	"strike":     VerbAttack,
	"kill":       VerbAttack,
	"autocombat": VerbAuto,

	// Movement
	"travel": VerbGo,
	"move":   VerbGo,
	"walk":   VerbGo,
	"enter":  VerbGo,
	"zone":   VerbGo,

	// Professions
	"learn":    VerbUnlock,
	"c":        VerbCollect,
	"gather":   VerbCollect,
	"harvest":  VerbCollect,
	"mine":     VerbCollect,
	"pick":     VerbCollect,
	"make":     VerbCraft,
	"brew":     VerbCraft,
	"smelt":    VerbCraft,
	"forge":    VerbCraft,
	"purchase": VerbBuy,
	"upgrade":  VerbBuy,
	"train":    VerbAssign,
	"practice": VerbAssign,

	// Equipment
	"wear":   VerbEquip,
	"wield":  VerbEquip,
	"don":    VerbEquip,
	"remove": VerbUnequip,
	"doff":   VerbUnequip,

	// Quests
	"begin": VerbAccept,
	"drop":  VerbAbandon,

	"?": VerbHelp,
	"h": VerbHelp,
}

var prepositions = map[string]bool{
	"on": true, "at": true, "to": true, "in": true,
	"for": true, "from": true, "with": true,
}

var articles = map[string]bool{
	"the": true, "a": true, "an": true,
}

// Parse converts a raw command string into an Intent.
func Parse(input string) types.Intent {
	input = strings.TrimSpace(input)
	if input == "" {
		return types.Intent{}
	}

	words := strings.Fields(strings.ToLower(input))
	words = expandMultiWordVerbs(words)

	if alias, ok := verbAliases[words[0]]; ok {
		words[0] = alias
	}

	verb := words[0]
	rest := stripArticles(words[1:])
	object, target := splitOnPreposition(rest)

	return types.Intent{
		Verb:   verb,
		Object: object,
		Target: target,
	}
}

// expandMultiWordVerbs handles "start quest", "put on", "auto combat" etc.
func expandMultiWordVerbs(words []string) []string {
	if len(words) < 2 {
		return words
	}

	switch words[0] {
	case "start":
		switch words[1] {
		case "quest":
			return append([]string{VerbAccept}, words[2:]...)
		case "fight", "combat":
			return append([]string{VerbFight}, words[2:]...)
		}
	case "abandon", "drop":
		if words[1] == "quest" {
			return append([]string{VerbAbandon}, words[2:]...)
		}
	case "accept":
		if words[1] == "quest" {
			return append([]string{VerbAccept}, words[2:]...)
		}
	case "put":
		if words[1] == "on" {
			return append([]string{VerbEquip}, words[2:]...)
		}
	case "take":
		if words[1] == "off" {
			return append([]string{VerbUnequip}, words[2:]...)
		}
	case "auto":
		if words[1] == "combat" || words[1] == "attack" || words[1] == "fight" {
			return append([]string{VerbAuto}, words[2:]...)
		}
	case "go", "travel":
		if words[1] == "to" {
			return append([]string{VerbGo}, words[2:]...)
		}
	case "unlock":
		if words[1] == "zone" || words[1] == "profession" {
			return append([]string{VerbUnlock}, words[2:]...)
		}
	}

	return words
}

func stripArticles(words []string) []string {
	result := make([]string, 0, len(words))
	for _, w := range words {
		if !articles[w] {
			result = append(result, w)
		}
	}
	return result
}

// splitOnPreposition splits words on the first preposition. Words before it
// become the object, words after it the target.
func splitOnPreposition(words []string) (object, target string) {
	for i, w := range words {
		if prepositions[w] {
			object = strings.Join(words[:i], " ")
			target = strings.Join(words[i+1:], " ")
			return object, target
		}
	}
	return strings.Join(words, " "), ""
}
