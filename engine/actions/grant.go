package actions

import (
	"github.com/nathoo/idlecore/engine/events"
	"github.com/nathoo/idlecore/engine/state"
	"github.com/nathoo/idlecore/engine/store"
	"github.com/nathoo/idlecore/types"
)

// Dispatcher is the part of the store the grant helpers need.
type Dispatcher interface {
	Dispatch(store.Action) error
	GetState() *types.GameState
}

// GrantExperience dispatches GainExperience and publishes the resulting
// experience and level-up events.
func GrantExperience(d Dispatcher, pub events.Publisher, amount int) (leveled bool, err error) {
	if amount <= 0 {
		return false, nil
	}
	before, _ := state.ActiveCharacter(d.GetState())
	if err := d.Dispatch(GainExperience(amount)); err != nil {
		return false, err
	}
	after, _ := state.ActiveCharacter(d.GetState())

	pub.Publish(events.New(events.ExperienceGained, map[string]any{
		"character": after.ID,
		"amount":    amount,
	}))
	if after.Level > before.Level {
		pub.Publish(events.New(events.LevelUp, map[string]any{
			"character": after.ID,
			"level":     after.Level,
			"maxHp":     after.Stats.MaxHP,
		}))
		return true, nil
	}
	return false, nil
}
