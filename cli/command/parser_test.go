package command

import (
	"testing"

	"github.com/nathoo/idlecore/types"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  types.Intent
	}{
		// Empty / whitespace
		{
			name:  "empty string",
			input: "",
			want:  types.Intent{},
		},
		{
			name:  "whitespace only",
			input: "   ",
			want:  types.Intent{},
		},

		// Bare verbs
		{
			name:  "status",
			input: "status",
			want:  types.Intent{Verb: VerbStatus},
		},
		{
			name:  "l → status",
			input: "l",
			want:  types.Intent{Verb: VerbStatus},
		},
		{
			name:  "i → inventory",
			input: "i",
			want:  types.Intent{Verb: VerbInventory},
		},
		{
			name:  "map → zones",
			input: "map",
			want:  types.Intent{Verb: VerbZones},
		},
		{
			name:  "f → fight",
			input: "f",
			want:  types.Intent{Verb: VerbFight},
		},
		{
			name:  "hit → attack",
			input: "hit",
			want:  types.Intent{Verb: VerbAttack},
		},

		// Objects
		{
			name:  "go with article",
			input: "go the whispering woods",
			want:  types.Intent{Verb: VerbGo, Object: "whispering woods"},
		},
		{
			name:  "travel to",
			input: "travel to goblin caves",
			want:  types.Intent{Verb: VerbGo, Object: "goblin caves"},
		},
		{
			name:  "mine → collect",
			input: "mine mining",
			want:  types.Intent{Verb: VerbCollect, Object: "mining"},
		},
		{
			name:  "smelt → craft",
			input: "smelt a bronze bar",
			want:  types.Intent{Verb: VerbCraft, Object: "bronze bar"},
		},
		{
			name:  "wield → equip",
			input: "wield Iron Sword",
			want:  types.Intent{Verb: VerbEquip, Object: "iron sword"},
		},

		// Targets
		{
			name:  "buy for profession",
			input: "buy sturdy pick for mining",
			want:  types.Intent{Verb: VerbBuy, Object: "sturdy pick", Target: "mining"},
		},
		{
			name:  "go in world",
			input: "go ash fields in ember",
			want:  types.Intent{Verb: VerbGo, Object: "ash fields", Target: "ember"},
		},

		// Multi-word verbs
		{
			name:  "start quest",
			input: "start quest slime slayer",
			want:  types.Intent{Verb: VerbAccept, Object: "slime slayer"},
		},
		{
			name:  "drop quest",
			input: "drop quest wolf hunt",
			want:  types.Intent{Verb: VerbAbandon, Object: "wolf hunt"},
		},
		{
			name:  "start fight",
			input: "start fight",
			want:  types.Intent{Verb: VerbFight},
		},
		{
			name:  "auto combat",
			input: "auto combat",
			want:  types.Intent{Verb: VerbAuto},
		},
		{
			name:  "put on",
			input: "put on leather armor",
			want:  types.Intent{Verb: VerbEquip, Object: "leather armor"},
		},
		{
			name:  "take off",
			input: "take off weapon",
			want:  types.Intent{Verb: VerbUnequip, Object: "weapon"},
		},
		{
			name:  "unlock zone",
			input: "unlock zone goblin caves",
			want:  types.Intent{Verb: VerbUnlock, Object: "goblin caves"},
		},

		// Unknown verbs pass through
		{
			name:  "unknown verb",
			input: "dance",
			want:  types.Intent{Verb: "dance"},
		},
		{
			name:  "case and spacing",
			input: "  COLLECT   Herbalism  ",
			want:  types.Intent{Verb: VerbCollect, Object: "herbalism"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.input)
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}
