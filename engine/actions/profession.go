package actions

import (
	"fmt"
	"slices"

	"github.com/nathoo/idlecore/container"
	"github.com/nathoo/idlecore/engine/state"
	"github.com/nathoo/idlecore/engine/store"
	"github.com/nathoo/idlecore/types"
)

// Yield is one collection roll: items to add and the experience it grants.
type Yield struct {
	ItemID string
	Qty    int
	Exp    int
}

// UnlockProfession makes a profession assignable.
func UnlockProfession(profID string) store.Action {
	return store.Action{
		Type:  "profession/unlock",
		Paths: []string{PathProfessions},
		Reduce: func(s *types.GameState) error {
			s.Professions.Slots.Unlocked.Add(profID)
			if !slices.Contains(s.Professions.Slots.Available, profID) {
				s.Professions.Slots.Available = append(s.Professions.Slots.Available, profID)
			}
			return nil
		},
	}
}

// AssignProfession gives a character an unlocked profession if it has a
// free slot. Assigning a held profession again is a no-op.
func AssignProfession(charID, profID string) store.Action {
	return store.Action{
		Type:  "profession/assign",
		Paths: []string{PathProfessions},
		Reduce: func(s *types.GameState) error {
			if !s.Party.Has(charID) {
				return ErrNoCharacter
			}
			if !s.Professions.Slots.Unlocked.Has(profID) {
				return fmt.Errorf("%w: %s", ErrNotUnlocked, profID)
			}
			profs := s.Professions.ByCharacter.Value(charID)
			if profs.Has(profID) {
				return nil
			}
			if profs.Len() >= s.Professions.Slots.PerCharacter {
				return ErrNoSlot
			}
			profs.Set(profID, state.NewProfessionState())
			s.Professions.ByCharacter.Set(charID, profs)
			return nil
		},
	}
}

// ProfessionGainExperience adds experience to one character's profession.
func ProfessionGainExperience(charID, profID string, amount int, curve Curve) store.Action {
	return store.Action{
		Type:  "profession/gainExperience",
		Paths: []string{PathProfessions},
		Reduce: func(s *types.GameState) error {
			return updateProfession(s, charID, profID, func(ps *types.ProfessionState) error {
				gainProfessionExp(ps, amount, curve)
				return nil
			})
		},
	}
}

// CollectResources applies a whole collect call atomically: every yield
// adds its items, then its experience, re-evaluating the level after each.
func CollectResources(charID, profID string, yields []Yield, curve Curve) store.Action {
	return store.Action{
		Type:  "profession/collectResource",
		Paths: []string{PathProfessions, PathInventory},
		Reduce: func(s *types.GameState) error {
			return updateProfession(s, charID, profID, func(ps *types.ProfessionState) error {
				for _, y := range yields {
					addItem(s, y.ItemID, y.Qty)
					gainProfessionExp(ps, y.Exp, curve)
				}
				return nil
			})
		},
	}
}

// PurchaseUpgrade pays for an upgrade, applies its stat change and records
// it, all or nothing.
func PurchaseUpgrade(charID, profID string, up types.UpgradeDef) store.Action {
	return store.Action{
		Type:  "profession/purchaseUpgrade",
		Paths: []string{PathProfessions, PathInventory},
		Reduce: func(s *types.GameState) error {
			return updateProfession(s, charID, profID, func(ps *types.ProfessionState) error {
				if ps.UnlockedUpgrades.Has(up.ID) {
					return ErrAlreadyOwned
				}
				if err := consume(s, up.Cost); err != nil {
					return err
				}
				if err := applyUpgrade(&ps.Stats, up); err != nil {
					return err
				}
				ps.UnlockedUpgrades.Add(up.ID)
				return nil
			})
		},
	}
}

func applyUpgrade(st *types.ProfessionStats, up types.UpgradeDef) error {
	switch up.Stat {
	case "mining_power":
		st.MiningPower = round2(st.MiningPower + up.Amount)
	case "resource_quality":
		st.ResourceQuality = round2(st.ResourceQuality + up.Amount)
	case "multi_collect":
		st.MultiCollect += int(up.Amount)
	case "auto_collectors":
		st.AutoCollectors += int(up.Amount)
	default:
		return fmt.Errorf("upgrade %s: unknown stat %q", up.ID, up.Stat)
	}
	return nil
}

// Craft consumes a recipe's materials, adds one of its output and grants
// exp to the recipe's profession, all or nothing.
func Craft(charID string, recipe types.RecipeDef, exp int, curve Curve) store.Action {
	return store.Action{
		Type:  "profession/craft",
		Paths: []string{PathProfessions, PathInventory},
		Reduce: func(s *types.GameState) error {
			return updateProfession(s, charID, recipe.Profession, func(ps *types.ProfessionState) error {
				if err := consume(s, recipe.Materials); err != nil {
					return err
				}
				addItem(s, recipe.Output, 1)
				gainProfessionExp(ps, exp, curve)
				return nil
			})
		},
	}
}

func updateProfession(s *types.GameState, charID, profID string, fn func(ps *types.ProfessionState) error) error {
	profs, ok := s.Professions.ByCharacter.Get(charID)
	if !ok {
		profs = container.NewOrderedMap[string, types.ProfessionState]()
	}
	ps, ok := profs.Get(profID)
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotAssigned, charID, profID)
	}
	if err := fn(&ps); err != nil {
		return err
	}
	profs.Set(profID, ps)
	s.Professions.ByCharacter.Set(charID, profs)
	return nil
}

// gainProfessionExp adds exp and takes at most one level step.
func gainProfessionExp(ps *types.ProfessionState, amount int, curve Curve) {
	if amount <= 0 {
		return
	}
	ps.Experience += amount
	if curve == nil {
		return
	}
	need := curve(ps.Level)
	if need > 0 && ps.Experience >= need {
		ps.Experience -= need
		ps.Level++
	}
}
