// Package actions is the catalog of state transitions. Every constructor
// returns a store.Action whose reducer is pure: all randomness is rolled by
// the caller and passed in as parameters.
package actions

import (
	"errors"
	"math"

	"github.com/nathoo/idlecore/types"
)

// State paths declared by actions.
const (
	PathParty         = "party"
	PathInventory     = "inventory"
	PathProfessions   = "professions"
	PathCombatZones   = "combat.zones"
	PathCombatState   = "combat.state"
	PathCombatScaling = "combat.scaling"
	PathQuests        = "quests"
)

// Reducer errors. The store wraps them, so callers match with errors.Is.
var (
	ErrNoCharacter           = errors.New("no such character")
	ErrInsufficientMaterials = errors.New("insufficient materials")
	ErrUnknownSlot           = errors.New("unknown equipment slot")
	ErrInCombat              = errors.New("already in combat")
	ErrNoEncounter           = errors.New("no active encounter")
	ErrAutoCombatLocked      = errors.New("auto-combat is locked")
	ErrLocked                = errors.New("zone or world is locked")
	ErrNotUnlocked           = errors.New("profession is not unlocked")
	ErrNotAssigned           = errors.New("profession is not assigned to character")
	ErrNoSlot                = errors.New("no free profession slot")
	ErrAlreadyOwned          = errors.New("upgrade already owned")
	ErrQuestActive           = errors.New("quest already active")
	ErrQuestCompleted        = errors.New("quest already completed")
	ErrQuestNotActive        = errors.New("quest is not active")
)

// Curve returns the experience needed to leave level. A value <= 0 means
// the level is the maximum.
type Curve func(level int) int

func updateCharacter(s *types.GameState, id string, fn func(c *types.Character) error) error {
	c, ok := s.Party.Get(id)
	if !ok {
		return ErrNoCharacter
	}
	if err := fn(&c); err != nil {
		return err
	}
	s.Party.Set(id, c)
	return nil
}

func updateActive(s *types.GameState, fn func(c *types.Character) error) error {
	return updateCharacter(s, s.ActiveCharacterID, fn)
}

// round2 keeps fractional stats from drifting under repeated +0.1 steps.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
