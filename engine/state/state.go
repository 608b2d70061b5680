// Package state holds the immutable content definitions and the helpers that
// build, copy, repair and read the game state tree.
package state

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/nathoo/idlecore/container"
	"github.com/nathoo/idlecore/types"
)

// Default starting values used when content leaves them unset.
const (
	DefaultMaxHP             = 100
	DefaultAttack            = 10
	DefaultDefense           = 5
	DefaultSlotsPerCharacter = 2
	DefaultCompletion        = 10
)

// Defs holds the immutable game definitions loaded from content documents.
type Defs struct {
	Game            types.GameDef
	Scaling         types.Scaling
	Monsters        map[string]types.MonsterTemplate
	Worlds          map[string]types.WorldDef
	WorldOrder      []string
	Zones           map[string]types.ZoneDef
	Items           map[string]types.ItemDef
	Professions     map[string]types.ProfessionDef
	ProfessionOrder []string
	Recipes         map[string]types.RecipeDef
	Quests          map[string]types.QuestDefinition
	QuestOrder      []string
}

// NewState creates a fresh game state from definitions.
func NewState(defs *Defs) *types.GameState {
	start := defs.Game.Start
	s := &types.GameState{}

	c := types.Character{
		ID:    orDefault(start.CharacterID, "hero"),
		Name:  orDefault(start.CharacterName, "Hero"),
		Level: 1,
		Stats: types.CharacterStats{
			MaxHP:   DefaultMaxHP,
			Attack:  DefaultAttack,
			Defense: DefaultDefense,
		},
	}
	if start.MaxHP > 0 {
		c.Stats.MaxHP = start.MaxHP
	}
	if start.Attack > 0 {
		c.Stats.Attack = start.Attack
	}
	if start.Defense > 0 {
		c.Stats.Defense = start.Defense
	}
	c.Stats.CurrentHP = c.Stats.MaxHP
	s.Party.Set(c.ID, c)
	s.ActiveCharacterID = c.ID

	s.Inventory.Capacity = start.InventoryCapacity
	for _, it := range start.StartingItems {
		if it.Qty > 0 {
			s.Inventory.Items.Set(it.ItemID, s.Inventory.Items.Value(it.ItemID)+it.Qty)
		}
	}

	s.Professions.Slots.PerCharacter = start.SlotsPerCharacter
	if s.Professions.Slots.PerCharacter <= 0 {
		s.Professions.Slots.PerCharacter = DefaultSlotsPerCharacter
	}
	s.Professions.Slots.Available = append([]string{}, start.AvailableProfessions...)
	if len(s.Professions.Slots.Available) == 0 {
		s.Professions.Slots.Available = append([]string{}, defs.ProfessionOrder...)
	}
	for _, id := range start.UnlockedProfessions {
		s.Professions.Slots.Unlocked.Add(id)
	}
	var assigned container.OrderedMap[string, types.ProfessionState]
	for _, id := range start.AssignedProfessions {
		s.Professions.Slots.Unlocked.Add(id)
		assigned.Set(id, NewProfessionState())
	}
	s.Professions.ByCharacter.Set(c.ID, assigned)

	zones := &s.Combat.Zones
	zones.CurrentWorldID = start.WorldID
	zones.CurrentZoneID = start.ZoneID
	if zones.CurrentWorldID == "" && len(defs.WorldOrder) > 0 {
		zones.CurrentWorldID = defs.WorldOrder[0]
	}
	if zones.CurrentZoneID == "" {
		if w, ok := defs.Worlds[zones.CurrentWorldID]; ok && len(w.Zones) > 0 {
			zones.CurrentZoneID = w.Zones[0]
		}
	}
	if zones.CurrentWorldID != "" {
		zones.UnlockedWorlds.Add(zones.CurrentWorldID)
	}
	if zones.CurrentZoneID != "" {
		zones.UnlockedZones.Add(zones.CurrentZoneID)
	}

	s.Combat.State.AutoCombatUnlocked = start.AutoCombatUnlocked
	s.Combat.Scaling = defs.Scaling
	return s
}

// NewProfessionState returns level-1 progress with default stats.
func NewProfessionState() types.ProfessionState {
	return types.ProfessionState{
		Level: 1,
		Stats: types.ProfessionStats{
			MiningPower:     1,
			ResourceQuality: 1,
			MultiCollect:    1,
		},
	}
}

// Clone returns a deep, independent copy of s. The copy goes through the
// same JSON form used for saves, so anything that clones also persists.
func Clone(s *types.GameState) (*types.GameState, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("clone state: %w", err)
	}
	var out types.GameState
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("clone state: %w", err)
	}
	return &out, nil
}

// Normalize repairs a state decoded from an older or hand-edited save so
// every invariant holds again. Scaling always comes from the definitions.
func Normalize(s *types.GameState, defs *Defs) {
	fresh := NewState(defs)

	if s.Party.Len() == 0 {
		s.Party = fresh.Party
		s.ActiveCharacterID = fresh.ActiveCharacterID
	}
	for id, c := range s.Party.All() {
		if c.ID == "" {
			c.ID = id
		}
		if c.Level < 1 {
			c.Level = 1
		}
		if c.Experience < 0 {
			c.Experience = 0
		}
		if c.Stats.MaxHP <= 0 {
			c.Stats.MaxHP = DefaultMaxHP
		}
		c.Stats.CurrentHP = max(0, min(c.Stats.CurrentHP, c.Stats.MaxHP))
		c.Stats.Attack = math.Max(0, c.Stats.Attack)
		c.Stats.Defense = math.Max(0, c.Stats.Defense)
		s.Party.Set(id, c)
	}
	if !s.Party.Has(s.ActiveCharacterID) {
		s.ActiveCharacterID = s.Party.Keys()[0]
	}

	for _, id := range s.Inventory.Items.Keys() {
		if s.Inventory.Items.Value(id) <= 0 {
			s.Inventory.Items.Delete(id)
		}
	}

	slots := &s.Professions.Slots
	if slots.PerCharacter <= 0 {
		slots.PerCharacter = fresh.Professions.Slots.PerCharacter
	}
	if len(slots.Available) == 0 {
		slots.Available = fresh.Professions.Slots.Available
	}
	for charID, profs := range s.Professions.ByCharacter.All() {
		for profID, ps := range profs.All() {
			profs.Set(profID, normalizeProfession(ps))
		}
		s.Professions.ByCharacter.Set(charID, profs)
	}
	for charID := range s.Party.All() {
		if !s.Professions.ByCharacter.Has(charID) {
			s.Professions.ByCharacter.Set(charID, container.NewOrderedMap[string, types.ProfessionState]())
		}
	}

	zones := &s.Combat.Zones
	if _, ok := defs.Zones[zones.CurrentZoneID]; !ok {
		zones.CurrentWorldID = fresh.Combat.Zones.CurrentWorldID
		zones.CurrentZoneID = fresh.Combat.Zones.CurrentZoneID
		zones.MonstersDefeated = 0
	}
	if zones.CurrentWorldID != "" {
		zones.UnlockedWorlds.Add(zones.CurrentWorldID)
	}
	if zones.CurrentZoneID != "" {
		zones.UnlockedZones.Add(zones.CurrentZoneID)
	}
	zones.MonstersDefeated = max(0, zones.MonstersDefeated)

	cs := &s.Combat.State
	if cs.CurrentMonster == nil || cs.CurrentMonster.CurrentHP <= 0 {
		cs.CurrentMonster = nil
		cs.InCombat = false
	}
	if !cs.InCombat {
		cs.CurrentMonster = nil
	}
	s.Combat.Scaling = defs.Scaling
}

func normalizeProfession(ps types.ProfessionState) types.ProfessionState {
	if ps.Level < 1 {
		ps.Level = 1
	}
	if ps.Experience < 0 {
		ps.Experience = 0
	}
	if ps.Stats.MiningPower <= 0 {
		ps.Stats.MiningPower = 1
	}
	if ps.Stats.ResourceQuality <= 0 {
		ps.Stats.ResourceQuality = 1
	}
	if ps.Stats.MultiCollect < 1 {
		ps.Stats.MultiCollect = 1
	}
	ps.Stats.AutoCollectors = max(0, ps.Stats.AutoCollectors)
	return ps
}

// ActiveCharacter returns the character referenced by ActiveCharacterID.
func ActiveCharacter(s *types.GameState) (types.Character, bool) {
	return s.Party.Get(s.ActiveCharacterID)
}

// EffectiveAttack returns base attack plus equipment bonuses.
func EffectiveAttack(c types.Character) float64 {
	a := c.Stats.Attack
	for _, it := range equipped(c) {
		a += it.AttackBonus
	}
	return a
}

// EffectiveDefense returns base defense plus equipment bonuses.
func EffectiveDefense(c types.Character) float64 {
	d := c.Stats.Defense
	for _, it := range equipped(c) {
		d += it.DefenseBonus
	}
	return d
}

func equipped(c types.Character) []*types.Item {
	var items []*types.Item
	for _, it := range []*types.Item{c.Equipment.Weapon, c.Equipment.Armor, c.Equipment.Accessory} {
		if it != nil {
			items = append(items, it)
		}
	}
	return items
}

// ExperienceToLevel returns the experience needed to leave level:
// floor(100 * 1.5^(level-1)).
func ExperienceToLevel(level int) int {
	return int(math.Floor(100 * math.Pow(1.5, float64(level-1))))
}

// ItemCount returns the quantity held of an item. Missing items return 0.
func ItemCount(s *types.GameState, itemID string) int {
	return s.Inventory.Items.Value(itemID)
}

// InventoryTotal returns the total quantity across all items.
func InventoryTotal(s *types.GameState) int {
	total := 0
	for _, q := range s.Inventory.Items.All() {
		total += q
	}
	return total
}

// HasMaterials reports whether the inventory covers every requirement.
func HasMaterials(s *types.GameState, need []types.ItemQty) bool {
	for _, m := range need {
		if ItemCount(s, m.ItemID) < m.Qty {
			return false
		}
	}
	return true
}

// Profession returns a character's progress in a profession.
func Profession(s *types.GameState, charID, profID string) (types.ProfessionState, bool) {
	profs, ok := s.Professions.ByCharacter.Get(charID)
	if !ok {
		return types.ProfessionState{}, false
	}
	return profs.Get(profID)
}

// ZoneKills returns the lifetime kill total in a zone.
func ZoneKills(s *types.GameState, zoneID string) int {
	return s.Combat.Zones.ZoneKills.Value(zoneID)
}

// QuestCompleted reports whether a quest is completed.
func QuestCompleted(s *types.GameState, questID string) bool {
	return s.Quests.Completed.Has(questID)
}

// QuestActive reports whether a quest is active.
func QuestActive(s *types.GameState, questID string) bool {
	return s.Quests.Active.Has(questID)
}

// CurrentZone returns the definition of the zone the party is in.
func CurrentZone(s *types.GameState, defs *Defs) (types.ZoneDef, bool) {
	z, ok := defs.Zones[s.Combat.Zones.CurrentZoneID]
	return z, ok
}

// CompletionThreshold returns the kills needed to complete a zone.
func CompletionThreshold(z types.ZoneDef) int {
	if z.CompletionThreshold > 0 {
		return z.CompletionThreshold
	}
	return DefaultCompletion
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
