package types

import "github.com/nathoo/idlecore/container"

// GameDef holds top-level game metadata and the starting setup.
type GameDef struct {
	Title   string
	Author  string
	Version string
	Start   StartDef
}

// StartDef describes the fresh game state.
type StartDef struct {
	CharacterID          string
	CharacterName        string
	MaxHP                int
	Attack               float64
	Defense              float64
	WorldID              string
	ZoneID               string
	InventoryCapacity    int
	StartingItems        []ItemQty
	SlotsPerCharacter    int
	AvailableProfessions []string
	UnlockedProfessions  []string
	AssignedProfessions  []string
	AutoCombatUnlocked   bool
}

// MonsterTemplate is the unscaled definition of a monster.
type MonsterTemplate struct {
	ID         string
	Name       string
	HP         int
	Attack     int
	Defense    int
	Experience int
	Loot       []LootEntry
	Rare       bool
	Boss       bool
}

// SpawnEntry is one weighted row of a zone's spawn table.
type SpawnEntry struct {
	MonsterID string
	Weight    float64
	MinLevel  int
	MaxLevel  int
}

// ZoneDef is a combat zone.
type ZoneDef struct {
	ID                  string
	Name                string
	WorldID             string
	Index               int // scaling depth
	Spawns              []SpawnEntry
	BossID              string // optional
	CompletionThreshold int
	Requires            []Condition
}

// WorldDef is an ordered group of zones.
type WorldDef struct {
	ID       string
	Name     string
	Zones    []string
	Requires []Condition
}

// ItemDef describes an item. Equippable items carry a slot.
type ItemDef struct {
	ID           string
	Name         string
	Slot         string // "weapon", "armor", "accessory" or empty
	AttackBonus  float64
	DefenseBonus float64
}

// ResourceDef is a collectable resource with a selection weight.
type ResourceDef struct {
	ID     string
	Weight float64
}

// ResourceTier is the resource pool opened at MinLevel.
type ResourceTier struct {
	MinLevel  int
	Resources []ResourceDef
}

// BonusYieldDef configures the extra-yield roll: chance = min(Cap, power*PerPower).
type BonusYieldDef struct {
	PerPower float64
	Cap      float64
}

// RareRollDef configures the rare-resource roll: chance = min(Cap, level*PerLevel).
type RareRollDef struct {
	PerLevel  float64
	Cap       float64
	Resources []ResourceDef
}

// UpgradeDef is a purchasable profession upgrade.
type UpgradeDef struct {
	ID       string
	Name     string
	Stat     string // "mining_power", "resource_quality", "multi_collect", "auto_collectors"
	Amount   float64
	Cost     []ItemQty
	Requires []Condition
}

// ProfessionDef is the data record of a profession.
type ProfessionDef struct {
	ID         string
	Name       string
	Selection  string // "uniform", "weighted" or "" for craft-only
	Tiers      []ResourceTier
	ExpTable   []int // explicit expRequired per level; empty means level*100
	BonusYield *BonusYieldDef
	Rare       *RareRollDef
	Upgrades   []UpgradeDef
}

// RecipeDef is a crafting recipe.
type RecipeDef struct {
	ID         string
	Name       string
	Profession string
	Level      int
	Materials  []ItemQty
	Output     string
	Experience int
}

// QuestDefinition is an immutable quest description.
type QuestDefinition struct {
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	Description   string            `json:"description,omitempty"`
	Requirements  QuestRequirements `json:"requirements"`
	Rewards       QuestRewards      `json:"rewards"`
	AutoStart     bool              `json:"autoStart"`
	Prerequisites []string          `json:"prerequisites,omitempty"`
}

// QuestRequirements are the counters a quest needs.
type QuestRequirements struct {
	MonstersKilled container.OrderedMap[string, int] `json:"monstersKilled"`
	Zone           string                            `json:"zone,omitempty"` // restricts kill credit
	Items          container.OrderedMap[string, int] `json:"items"`
}

// QuestRewards are granted once on completion.
type QuestRewards struct {
	Experience    int                               `json:"experience"`
	Items         container.OrderedMap[string, int] `json:"items"`
	ProfessionExp container.OrderedMap[string, int] `json:"professionExp"`
	Unlocks       QuestUnlocks                      `json:"unlocks"`
}

// QuestUnlocks are the gates a quest opens.
type QuestUnlocks struct {
	Professions []string `json:"professions,omitempty"`
	Zones       []string `json:"zones,omitempty"`
	AutoCombat  bool     `json:"autoCombat,omitempty"`
}
