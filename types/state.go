package types

import "github.com/nathoo/idlecore/container"

// GameState is the root aggregate owned by the store.
type GameState struct {
	Party             container.OrderedMap[string, Character] `json:"party"`
	ActiveCharacterID string                                  `json:"activeCharacterId"`
	Inventory         Inventory                               `json:"inventory"`
	Professions       Professions                             `json:"professions"`
	Combat            Combat                                  `json:"combat"`
	Quests            Quests                                  `json:"quests"`
}

// Character is a party member.
type Character struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Level      int            `json:"level"`
	Experience int            `json:"experience"`
	Stats      CharacterStats `json:"stats"`
	Equipment  Equipment      `json:"equipment"`
}

// CharacterStats are the base combat stats, before equipment.
type CharacterStats struct {
	MaxHP     int     `json:"maxHp"`
	CurrentHP int     `json:"currentHp"`
	Attack    float64 `json:"attack"`
	Defense   float64 `json:"defense"`
}

// Equipment slots. Each may be empty.
type Equipment struct {
	Weapon    *Item `json:"weapon"`
	Armor     *Item `json:"armor"`
	Accessory *Item `json:"accessory"`
}

// Item is an equipped item with its stat contribution.
type Item struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Slot         string  `json:"slot"`
	AttackBonus  float64 `json:"attackBonus"`
	DefenseBonus float64 `json:"defenseBonus"`
}

// Inventory maps item id to quantity. Capacity bounds the total quantity;
// zero or less means unlimited.
type Inventory struct {
	Items    container.OrderedMap[string, int] `json:"items"`
	Capacity int                               `json:"capacity"`
}

// Professions holds per-character profession progress and the global slots.
type Professions struct {
	ByCharacter container.OrderedMap[string, container.OrderedMap[string, ProfessionState]] `json:"byCharacter"`
	Slots       ProfessionSlots                                                             `json:"slots"`
}

// ProfessionState is one character's progress in one profession.
type ProfessionState struct {
	Level            int                   `json:"level"`
	Experience       int                   `json:"experience"`
	Stats            ProfessionStats       `json:"stats"`
	UnlockedUpgrades container.Set[string] `json:"unlockedUpgrades"`
}

// ProfessionStats are the tunable collection stats.
type ProfessionStats struct {
	MiningPower     float64 `json:"miningPower"`
	AutoCollectors  int     `json:"autoCollectors"`
	ResourceQuality float64 `json:"resourceQuality"`
	MultiCollect    int     `json:"multiCollect"`
}

// ProfessionSlots limits how many professions a character may hold.
type ProfessionSlots struct {
	PerCharacter int                   `json:"perCharacter"`
	Available    []string              `json:"available"`
	Unlocked     container.Set[string] `json:"unlocked"`
}

// Combat groups zone progress, the live encounter and the scaling config.
type Combat struct {
	Zones   ZoneProgress `json:"zones"`
	State   CombatState  `json:"state"`
	Scaling Scaling      `json:"scaling"`
}

// ZoneProgress tracks where the party is and what it has unlocked.
type ZoneProgress struct {
	CurrentWorldID   string                            `json:"currentWorldId"`
	CurrentZoneID    string                            `json:"currentZoneId"`
	MonstersDefeated int                               `json:"monstersDefeated"`
	UnlockedWorlds   container.Set[string]             `json:"unlockedWorlds"`
	UnlockedZones    container.Set[string]             `json:"unlockedZones"`
	ZoneKills        container.OrderedMap[string, int] `json:"zoneKills"`
}

// CombatState is the live encounter.
type CombatState struct {
	InCombat           bool     `json:"inCombat"`
	AutoCombatEnabled  bool     `json:"autoCombatEnabled"`
	AutoCombatUnlocked bool     `json:"autoCombatUnlocked"`
	CurrentMonster     *Monster `json:"currentMonster"`
	Encounter          int      `json:"encounter"` // bumped on every new or reset encounter
}

// Scaling controls how monster stats grow with zone depth and level.
type Scaling struct {
	ZoneMultiplier float64     `json:"zoneMultiplier"`
	ScalingPower   float64     `json:"scalingPower"`
	LevelScaling   float64     `json:"levelScaling"`
	FullScaling    StatScaling `json:"useFullScaling"`
}

// StatScaling flags the stats that take the full zone multiplier.
type StatScaling struct {
	HP      bool `json:"hp"`
	Attack  bool `json:"attack"`
	Defense bool `json:"defense"`
}

// Monster is the ephemeral opponent of one encounter.
type Monster struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Level          int          `json:"level"`
	MaxHP          int          `json:"maxHp"`
	CurrentHP      int          `json:"currentHp"`
	Stats          MonsterStats `json:"stats"`
	Loot           []LootEntry  `json:"loot"`
	BaseExperience int          `json:"baseExperience"`
	IsRare         bool         `json:"isRare"`
	IsBoss         bool         `json:"isBoss"`
}

// MonsterStats are the scaled combat stats.
type MonsterStats struct {
	Attack  int `json:"attack"`
	Defense int `json:"defense"`
}

// LootEntry is one independently rolled drop.
type LootEntry struct {
	ResourceID string  `json:"resourceId"`
	DropChance float64 `json:"dropChance"`
	MinQty     int     `json:"minQty"`
	MaxQty     int     `json:"maxQty"`
}

// Quests tracks quest lifecycle and progress.
type Quests struct {
	Active    container.OrderedMap[string, QuestDefinition] `json:"activeQuests"`
	Completed container.Set[string]                         `json:"completedQuests"`
	Progress  container.OrderedMap[string, QuestProgress]   `json:"questProgress"`
}

// QuestProgress counts toward a quest's requirements.
type QuestProgress struct {
	MonstersKilled container.OrderedMap[string, int] `json:"monstersKilled"`
	Items          container.OrderedMap[string, int] `json:"items"`
}
