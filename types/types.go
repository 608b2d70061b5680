// Package types defines the shared data structures for the idle game core.
// This package contains only type definitions, no logic.
package types

import "time"

// Intent is the parsed representation of a player command.
type Intent struct {
	Verb   string
	Object string // optional
	Target string // optional
}

// Event is a discrete, log-worthy domain occurrence published to collaborators.
type Event struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
	At   time.Time      `json:"at"`
}

// Condition is a predicate over game state used to gate unlocks.
type Condition struct {
	Type   string         `json:"type"` // "quest_done", "zone_kills", "world_complete", "character_level", "profession_level", "not"
	Params map[string]any `json:"params,omitempty"`
	Inner  *Condition     `json:"inner,omitempty"` // for Not(): the negated inner condition
}

// ItemQty pairs an item id with a quantity.
type ItemQty struct {
	ItemID string `json:"itemId"`
	Qty    int    `json:"qty"`
}
