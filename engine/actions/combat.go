package actions

import (
	"github.com/nathoo/idlecore/engine/store"
	"github.com/nathoo/idlecore/types"
)

// StartEncounter puts m in front of the party and opens a new encounter
// generation.
func StartEncounter(m types.Monster) store.Action {
	return store.Action{
		Type:  "combat/startEncounter",
		Paths: []string{PathCombatState},
		Reduce: func(s *types.GameState) error {
			cs := &s.Combat.State
			if cs.InCombat {
				return ErrInCombat
			}
			mon := m
			mon.Loot = append([]types.LootEntry(nil), m.Loot...)
			cs.CurrentMonster = &mon
			cs.InCombat = true
			cs.Encounter++
			return nil
		},
	}
}

// DamageMonster lowers the current monster's hp, never below zero.
func DamageMonster(amount int) store.Action {
	return store.Action{
		Type:  "combat/damageMonster",
		Paths: []string{PathCombatState},
		Reduce: func(s *types.GameState) error {
			cs := &s.Combat.State
			if !cs.InCombat || cs.CurrentMonster == nil {
				return ErrNoEncounter
			}
			cs.CurrentMonster.CurrentHP = max(0, cs.CurrentMonster.CurrentHP-max(0, amount))
			return nil
		},
	}
}

// EndEncounter discards the current monster.
func EndEncounter() store.Action {
	return store.Action{
		Type:  "combat/endEncounter",
		Paths: []string{PathCombatState},
		Reduce: func(s *types.GameState) error {
			endEncounter(s)
			return nil
		},
	}
}

func endEncounter(s *types.GameState) {
	s.Combat.State.InCombat = false
	s.Combat.State.CurrentMonster = nil
}

// RecordVictory closes the encounter and counts the kill in zoneID.
func RecordVictory(zoneID string) store.Action {
	return store.Action{
		Type:  "combat/victory",
		Paths: []string{PathCombatState, PathCombatZones},
		Reduce: func(s *types.GameState) error {
			if !s.Combat.State.InCombat {
				return ErrNoEncounter
			}
			endEncounter(s)
			z := &s.Combat.Zones
			z.MonstersDefeated++
			z.ZoneKills.Set(zoneID, z.ZoneKills.Value(zoneID)+1)
			return nil
		},
	}
}

// RecordDefeat restores the active character, clears zone progress,
// disables auto-combat and invalidates the encounter.
func RecordDefeat() store.Action {
	return store.Action{
		Type:  "combat/defeat",
		Paths: []string{PathParty, PathCombatState, PathCombatZones},
		Reduce: func(s *types.GameState) error {
			err := updateActive(s, func(c *types.Character) error {
				c.Stats.CurrentHP = c.Stats.MaxHP
				return nil
			})
			if err != nil {
				return err
			}
			endEncounter(s)
			s.Combat.State.AutoCombatEnabled = false
			s.Combat.State.Encounter++
			s.Combat.Zones.MonstersDefeated = 0
			return nil
		},
	}
}

// SetAutoCombat turns auto-combat on or off. Enabling requires the unlock.
func SetAutoCombat(on bool) store.Action {
	return store.Action{
		Type:  "combat/setAutoCombat",
		Paths: []string{PathCombatState},
		Reduce: func(s *types.GameState) error {
			if on && !s.Combat.State.AutoCombatUnlocked {
				return ErrAutoCombatLocked
			}
			s.Combat.State.AutoCombatEnabled = on
			return nil
		},
	}
}

// ToggleAutoCombat flips auto-combat. Enabling requires the unlock.
func ToggleAutoCombat() store.Action {
	return store.Action{
		Type:  "combat/toggleAutoCombat",
		Paths: []string{PathCombatState},
		Reduce: func(s *types.GameState) error {
			cs := &s.Combat.State
			if !cs.AutoCombatEnabled && !cs.AutoCombatUnlocked {
				return ErrAutoCombatLocked
			}
			cs.AutoCombatEnabled = !cs.AutoCombatEnabled
			return nil
		},
	}
}

// UnlockAutoCombat makes auto-combat available.
func UnlockAutoCombat() store.Action {
	return store.Action{
		Type:  "combat/unlockAutoCombat",
		Paths: []string{PathCombatState},
		Reduce: func(s *types.GameState) error {
			s.Combat.State.AutoCombatUnlocked = true
			return nil
		},
	}
}

// ResetZoneProgress zeroes the defeated counter of the current zone visit.
func ResetZoneProgress() store.Action {
	return store.Action{
		Type:  "combat/resetZoneProgress",
		Paths: []string{PathCombatZones},
		Reduce: func(s *types.GameState) error {
			s.Combat.Zones.MonstersDefeated = 0
			return nil
		},
	}
}

// ChangeZone moves the party to an unlocked zone of an unlocked world. The
// current encounter is discarded and the visit counter restarts.
func ChangeZone(worldID, zoneID string) store.Action {
	return store.Action{
		Type:  "combat/changeZone",
		Paths: []string{PathCombatZones, PathCombatState},
		Reduce: func(s *types.GameState) error {
			z := &s.Combat.Zones
			if !z.UnlockedWorlds.Has(worldID) || !z.UnlockedZones.Has(zoneID) {
				return ErrLocked
			}
			z.CurrentWorldID = worldID
			z.CurrentZoneID = zoneID
			z.MonstersDefeated = 0
			if s.Combat.State.InCombat {
				endEncounter(s)
				s.Combat.State.Encounter++
			}
			return nil
		},
	}
}

// UnlockZone marks a zone unlocked. Unlocking twice is a no-op.
func UnlockZone(zoneID string) store.Action {
	return store.Action{
		Type:  "combat/unlockZone",
		Paths: []string{PathCombatZones},
		Reduce: func(s *types.GameState) error {
			s.Combat.Zones.UnlockedZones.Add(zoneID)
			return nil
		},
	}
}

// UnlockWorld marks a world unlocked. Unlocking twice is a no-op.
func UnlockWorld(worldID string) store.Action {
	return store.Action{
		Type:  "combat/unlockWorld",
		Paths: []string{PathCombatZones},
		Reduce: func(s *types.GameState) error {
			s.Combat.Zones.UnlockedWorlds.Add(worldID)
			return nil
		},
	}
}

// SetScaling replaces the monster scaling coefficients.
func SetScaling(cfg types.Scaling) store.Action {
	return store.Action{
		Type:  "combat/setScaling",
		Paths: []string{PathCombatScaling},
		Reduce: func(s *types.GameState) error {
			s.Combat.Scaling = cfg
			return nil
		},
	}
}
