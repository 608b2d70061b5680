package actions

import (
	"fmt"

	"github.com/nathoo/idlecore/engine/state"
	"github.com/nathoo/idlecore/engine/store"
	"github.com/nathoo/idlecore/types"
)

// Level-up stat increases.
const (
	LevelUpHP      = 5
	LevelUpAttack  = 1
	LevelUpDefense = 0.1
)

// GainExperience adds experience to the active character. Crossing the
// threshold consumes it and raises the level by exactly one; leftover
// experience carries over but never triggers a second level in the same
// dispatch.
func GainExperience(amount int) store.Action {
	return store.Action{
		Type:  "character/gainExperience",
		Paths: []string{PathParty},
		Reduce: func(s *types.GameState) error {
			if amount <= 0 {
				return nil
			}
			return updateActive(s, func(c *types.Character) error {
				c.Experience += amount
				levelUp(c)
				return nil
			})
		},
	}
}

func levelUp(c *types.Character) bool {
	need := state.ExperienceToLevel(c.Level)
	if c.Experience < need {
		return false
	}
	c.Experience -= need
	c.Level++
	c.Stats.MaxHP += LevelUpHP
	c.Stats.Attack += LevelUpAttack
	c.Stats.Defense = round2(c.Stats.Defense + LevelUpDefense)
	c.Stats.CurrentHP = c.Stats.MaxHP
	return true
}

// TakeDamage lowers the active character's hp, never below zero.
func TakeDamage(amount int) store.Action {
	return store.Action{
		Type:  "character/takeDamage",
		Paths: []string{PathParty},
		Reduce: func(s *types.GameState) error {
			if amount <= 0 {
				return nil
			}
			return updateActive(s, func(c *types.Character) error {
				c.Stats.CurrentHP = max(0, c.Stats.CurrentHP-amount)
				return nil
			})
		},
	}
}

// Heal raises the active character's hp, never above max.
func Heal(amount int) store.Action {
	return store.Action{
		Type:  "character/heal",
		Paths: []string{PathParty},
		Reduce: func(s *types.GameState) error {
			if amount <= 0 {
				return nil
			}
			return updateActive(s, func(c *types.Character) error {
				c.Stats.CurrentHP = min(c.Stats.MaxHP, c.Stats.CurrentHP+amount)
				return nil
			})
		},
	}
}

// RestoreHealth sets the active character's hp to max.
func RestoreHealth() store.Action {
	return store.Action{
		Type:  "character/restoreHealth",
		Paths: []string{PathParty},
		Reduce: func(s *types.GameState) error {
			return updateActive(s, func(c *types.Character) error {
				c.Stats.CurrentHP = c.Stats.MaxHP
				return nil
			})
		},
	}
}

// Equip puts item into its slot on the active character, replacing what
// was there.
func Equip(item types.Item) store.Action {
	return store.Action{
		Type:  "character/equip",
		Paths: []string{PathParty},
		Reduce: func(s *types.GameState) error {
			return updateActive(s, func(c *types.Character) error {
				slot, err := slotOf(c, item.Slot)
				if err != nil {
					return err
				}
				it := item
				*slot = &it
				return nil
			})
		},
	}
}

// Unequip empties a slot on the active character.
func Unequip(slotName string) store.Action {
	return store.Action{
		Type:  "character/unequip",
		Paths: []string{PathParty},
		Reduce: func(s *types.GameState) error {
			return updateActive(s, func(c *types.Character) error {
				slot, err := slotOf(c, slotName)
				if err != nil {
					return err
				}
				*slot = nil
				return nil
			})
		},
	}
}

func slotOf(c *types.Character, name string) (**types.Item, error) {
	switch name {
	case "weapon":
		return &c.Equipment.Weapon, nil
	case "armor":
		return &c.Equipment.Armor, nil
	case "accessory":
		return &c.Equipment.Accessory, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSlot, name)
	}
}
