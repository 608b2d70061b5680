// Package events is the typed domain event channel between the engines and
// presentation layers. Publishing is synchronous: handlers run before
// Publish returns, in subscription order.
package events

import (
	"sync"
	"time"

	"github.com/nathoo/idlecore/types"
)

// Event types.
const (
	EncounterStarted  = "encounter_started"
	DamageDealt       = "damage_dealt"
	DamageTaken       = "damage_taken"
	Victory           = "victory"
	Defeat            = "defeat"
	LootGained        = "loot_gained"
	AutoCombatToggled = "auto_combat_toggled"

	ExperienceGained = "experience_gained"
	LevelUp          = "level_up"

	ZoneCompleted  = "zone_completed"
	ZoneChanged    = "zone_changed"
	ZoneUnlocked   = "zone_unlocked"
	WorldUnlocked  = "world_unlocked"
	WorldCompleted = "world_completed"

	ResourceCollected  = "resource_collected"
	ProfessionLevelUp  = "profession_level_up"
	ItemCrafted        = "item_crafted"
	UpgradePurchased   = "upgrade_purchased"
	ProfessionUnlocked = "profession_unlocked"
	ProfessionAssigned = "profession_assigned"

	QuestStarted   = "quest_started"
	QuestProgress  = "quest_progress"
	QuestCompleted = "quest_completed"
	QuestAbandoned = "quest_abandoned"

	GameSaved  = "game_saved"
	GameLoaded = "game_loaded"
	GameReset  = "game_reset"
)

// Publisher accepts domain events.
type Publisher interface {
	Publish(e types.Event)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(e types.Event)

func (f PublisherFunc) Publish(e types.Event) {
	if f == nil {
		return
	}
	f(e)
}

type nopPublisher struct{}

func (nopPublisher) Publish(types.Event) {}

// Nop returns a Publisher that drops everything.
func Nop() Publisher { return nopPublisher{} }

// New builds an event stamped with the current time.
func New(typ string, data map[string]any) types.Event {
	return types.Event{Type: typ, Data: data, At: time.Now()}
}

type handler struct {
	id int
	fn func(types.Event)
}

// Bus fans events out to subscribers.
type Bus struct {
	mu       sync.Mutex
	handlers []handler
	nextID   int
}

// NewBus creates an empty bus.
func NewBus() *Bus { return &Bus{} }

// Subscribe registers fn and returns an idempotent unsubscribe function.
func (b *Bus) Subscribe(fn func(types.Event)) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers = append(b.handlers, handler{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, h := range b.handlers {
				if h.id == id {
					b.handlers = append(b.handlers[:i:i], b.handlers[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish delivers e to every current subscriber.
func (b *Bus) Publish(e types.Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	b.mu.Lock()
	hs := append([]handler(nil), b.handlers...)
	b.mu.Unlock()
	for _, h := range hs {
		h.fn(e)
	}
}

// Recorder keeps every published event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []types.Event
}

// Publish records e.
func (r *Recorder) Publish(e types.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []types.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.Event(nil), r.events...)
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

// Reset drops recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = r.events[:0]
}

// Count returns how many recorded events have the given type.
func (r *Recorder) Count(typ string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}
