// Package engine provides the Game facade that wires the store, the combat,
// profession and quest engines, the event bus and persistence into one
// running game.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nathoo/idlecore/engine/actions"
	"github.com/nathoo/idlecore/engine/combat"
	"github.com/nathoo/idlecore/engine/events"
	"github.com/nathoo/idlecore/engine/profession"
	"github.com/nathoo/idlecore/engine/quest"
	"github.com/nathoo/idlecore/engine/rng"
	"github.com/nathoo/idlecore/engine/save"
	"github.com/nathoo/idlecore/engine/sched"
	"github.com/nathoo/idlecore/engine/state"
	"github.com/nathoo/idlecore/engine/store"
	"github.com/nathoo/idlecore/types"
)

// DefaultSlot is the slot autosave writes to.
const DefaultSlot = "autosave"

var (
	// ErrNoRepository is returned by persistence commands when the game was
	// built without a save repository.
	ErrNoRepository = errors.New("no save repository configured")
	ErrUnknownItem  = errors.New("unknown item")
	ErrNotEquipable = errors.New("item cannot be equipped")
	ErrNotOwned     = errors.New("item not in inventory")
)

// Options configures a Game.
type Options struct {
	// Seed for the RNG. Zero picks a random seed.
	Seed int64
	// Scheduler runs the combat, auto-collect and autosave timers.
	Scheduler sched.Scheduler
	// Runner executes commands on the scheduler goroutine. Nil runs them
	// on the caller's goroutine.
	Runner sched.Runner
	// Saves stores save slots. Nil disables persistence.
	Saves save.Repository
	// Slot is the autosave slot. Defaults to DefaultSlot.
	Slot string
	// AutosaveInterval of zero disables autosave.
	AutosaveInterval time.Duration
	Logger           *slog.Logger
	HistorySize      int
}

// Game holds the definitions, the state store and every engine.
type Game struct {
	defs     *state.Defs
	store    *store.Store
	bus      *events.Bus
	rng      *rng.RNG
	combat   *combat.Engine
	profs    *profession.Engine
	quests   *quest.Tracker
	sched    sched.Scheduler
	runner   sched.Runner
	saves    save.Repository
	slot     string
	interval time.Duration
	log      *slog.Logger

	started  bool
	autosave sched.Timer
}

// New creates a game at the default state for defs.
func New(defs *state.Defs, opts Options) (*Game, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	seed := opts.Seed
	if seed == 0 {
		var err error
		if seed, err = rng.NewSeed(); err != nil {
			return nil, fmt.Errorf("seeding rng: %w", err)
		}
	}
	if opts.Slot == "" {
		opts.Slot = DefaultSlot
	}

	g := &Game{
		defs:     defs,
		store:    store.New(defs, store.Options{Logger: opts.Logger, HistorySize: opts.HistorySize}),
		bus:      events.NewBus(),
		rng:      rng.NewRNG(seed),
		sched:    opts.Scheduler,
		runner:   opts.Runner,
		saves:    opts.Saves,
		slot:     opts.Slot,
		interval: opts.AutosaveInterval,
		log:      opts.Logger,
	}
	g.quests = quest.New(quest.Options{
		Store:  g.store,
		Defs:   defs,
		Events: g.bus,
		Logger: opts.Logger.With("component", "quest"),
	})
	g.profs = profession.New(profession.Options{
		Store:     g.store,
		Defs:      defs,
		RNG:       g.rng,
		Scheduler: opts.Scheduler,
		Events:    g.bus,
		Quests:    g.quests,
		Logger:    opts.Logger.With("component", "profession"),
	})
	g.quests.SetProfessions(g.profs)
	g.combat = combat.New(combat.Options{
		Store:     g.store,
		Defs:      defs,
		RNG:       g.rng,
		Scheduler: opts.Scheduler,
		Events:    g.bus,
		Quests:    g.quests,
		Logger:    opts.Logger.With("component", "combat"),
	})
	g.log.Debug("game created", "title", defs.Game.Title, "seed", seed)
	return g, nil
}

// Defs returns the content definitions.
func (g *Game) Defs() *state.Defs { return g.defs }

// Events returns the domain event bus.
func (g *Game) Events() *events.Bus { return g.bus }

// State returns a snapshot of the current state.
func (g *Game) State() *types.GameState { return g.store.GetState() }

// Subscribe registers a state listener for paths.
func (g *Game) Subscribe(paths []string, fn store.Listener) (unsubscribe func()) {
	return g.store.Subscribe(paths, fn)
}

// History returns the recent dispatches.
func (g *Game) History() []store.Entry { return g.store.History() }

// do runs fn through the runner.
func (g *Game) do(fn func() error) error {
	if g.runner == nil {
		return fn()
	}
	var err error
	if rerr := g.runner.Do(func() { err = fn() }); rerr != nil {
		return rerr
	}
	return err
}

// Start resumes timers for the current state, starts auto-start quests and
// installs autosave.
func (g *Game) Start() error {
	return g.do(func() error {
		if g.started {
			return nil
		}
		g.started = true
		g.quests.StartAutoQuests()
		g.combat.Start()
		g.profs.Start()
		if g.interval > 0 && g.saves != nil && g.sched != nil {
			g.autosave = g.sched.Every(g.interval, g.autosaveTick)
		}
		g.log.Info("game started", "autosave", g.interval)
		return nil
	})
}

// Stop cancels every timer and writes a final autosave.
func (g *Game) Stop(ctx context.Context) error {
	return g.do(func() error {
		if !g.started {
			return nil
		}
		g.started = false
		g.combat.Stop()
		g.profs.Stop()
		if g.autosave != nil {
			g.autosave.Stop()
			g.autosave = nil
		}
		if g.saves == nil {
			return nil
		}
		return g.save(ctx, g.slot)
	})
}

func (g *Game) autosaveTick() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.save(ctx, g.slot); err != nil {
		g.log.Warn("autosave failed", "slot", g.slot, "err", err)
	}
}

// restart re-syncs the engines' timers with a replaced state.
func (g *Game) restart() {
	if !g.started {
		return
	}
	g.combat.Stop()
	g.combat.Start()
	g.quests.StartAutoQuests()
}

// StartCombat opens an encounter in the current zone.
func (g *Game) StartCombat() (m types.Monster, err error) {
	err = g.do(func() error {
		m, err = g.combat.StartCombat()
		return err
	})
	return m, err
}

// Attack resolves one exchange with the current monster.
func (g *Game) Attack() (out combat.Outcome, err error) {
	err = g.do(func() error {
		out, err = g.combat.Attack()
		return err
	})
	return out, err
}

// ToggleAutoCombat flips auto-combat and returns the new setting.
func (g *Game) ToggleAutoCombat() (on bool, err error) {
	err = g.do(func() error {
		on, err = g.combat.ToggleAutoCombat()
		return err
	})
	return on, err
}

// ChangeZone moves the party to an unlocked zone.
func (g *Game) ChangeZone(worldID, zoneID string) error {
	return g.do(func() error { return g.combat.ChangeZone(worldID, zoneID) })
}

// UnlockZone unlocks a zone whose requirements are met.
func (g *Game) UnlockZone(zoneID string) error {
	return g.do(func() error { return g.combat.UnlockZone(zoneID) })
}

// Collect runs one collect call of the active character's profession.
func (g *Game) Collect(profID string) (res profession.Result, err error) {
	err = g.do(func() error {
		res, err = g.profs.Collect(g.store.GetState().ActiveCharacterID, profID)
		return err
	})
	return res, err
}

// Craft makes one of a recipe's output for the active character.
func (g *Game) Craft(recipeID string) (res profession.Result, err error) {
	err = g.do(func() error {
		res, err = g.profs.Craft(g.store.GetState().ActiveCharacterID, recipeID)
		return err
	})
	return res, err
}

// BuyUpgrade purchases a profession upgrade for the active character.
func (g *Game) BuyUpgrade(profID, upgradeID string) error {
	return g.do(func() error {
		return g.profs.BuyUpgrade(g.store.GetState().ActiveCharacterID, profID, upgradeID)
	})
}

// UnlockProfession makes a profession assignable.
func (g *Game) UnlockProfession(profID string) error {
	return g.do(func() error { return g.profs.Unlock(profID) })
}

// AssignProfession gives the active character a profession.
func (g *Game) AssignProfession(profID string) error {
	return g.do(func() error {
		return g.profs.Assign(g.store.GetState().ActiveCharacterID, profID)
	})
}

// Equip puts an owned item into its equipment slot on the active character.
func (g *Game) Equip(itemID string) error {
	return g.do(func() error {
		def, ok := g.defs.Items[itemID]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownItem, itemID)
		}
		if def.Slot == "" {
			return fmt.Errorf("%w: %s", ErrNotEquipable, itemID)
		}
		if state.ItemCount(g.store.GetState(), itemID) < 1 {
			return fmt.Errorf("%w: %s", ErrNotOwned, itemID)
		}
		return g.store.Dispatch(actions.Equip(types.Item{
			ID:           def.ID,
			Name:         def.Name,
			Slot:         def.Slot,
			AttackBonus:  def.AttackBonus,
			DefenseBonus: def.DefenseBonus,
		}))
	})
}

// Unequip empties an equipment slot ("weapon", "armor" or "accessory").
func (g *Game) Unequip(slot string) error {
	return g.do(func() error { return g.store.Dispatch(actions.Unequip(slot)) })
}

// StartQuest activates a quest.
func (g *Game) StartQuest(questID string) error {
	return g.do(func() error { return g.quests.StartQuest(questID) })
}

// AbandonQuest drops an active quest.
func (g *Game) AbandonQuest(questID string) error {
	return g.do(func() error { return g.quests.AbandonQuest(questID) })
}

// QuestStatus returns a quest's lifecycle state.
func (g *Game) QuestStatus(questID string) quest.Status {
	return g.quests.Status(questID)
}

// AvailableQuests returns the quests that can be started now.
func (g *Game) AvailableQuests() []string {
	return g.quests.Available()
}

// Save writes the current state to slot. An empty slot means the autosave
// slot.
func (g *Game) Save(ctx context.Context, slot string) error {
	return g.do(func() error { return g.save(ctx, slot) })
}

func (g *Game) save(ctx context.Context, slot string) error {
	if g.saves == nil {
		return ErrNoRepository
	}
	if slot == "" {
		slot = g.slot
	}
	data, err := g.store.Serialize(slot)
	if err != nil {
		return fmt.Errorf("save %s: %w", slot, err)
	}
	if err := g.saves.Put(ctx, slot, data); err != nil {
		return fmt.Errorf("save %s: %w", slot, err)
	}
	g.bus.Publish(events.New(events.GameSaved, map[string]any{"slot": slot}))
	return nil
}

// Load replaces the state with a save slot. A missing slot leaves the state
// alone. A corrupt one resets to the default state; the error is still
// returned.
func (g *Game) Load(ctx context.Context, slot string) error {
	return g.do(func() error { return g.load(ctx, slot) })
}

func (g *Game) load(ctx context.Context, slot string) error {
	if g.saves == nil {
		return ErrNoRepository
	}
	if slot == "" {
		slot = g.slot
	}
	data, err := g.saves.Get(ctx, slot)
	if err != nil {
		return fmt.Errorf("load %s: %w", slot, err)
	}
	f, err := g.store.Deserialize(data)
	if err != nil {
		g.log.Warn("save unreadable, starting fresh", "slot", slot, "err", err)
		g.reset()
		return fmt.Errorf("load %s: %w", slot, err)
	}
	g.restart()
	g.bus.Publish(events.New(events.GameLoaded, map[string]any{
		"slot":    slot,
		"savedAt": f.Timestamp,
	}))
	return nil
}

// Resume loads the autosave slot if there is one. Every failure falls back
// to the default state and is only logged.
func (g *Game) Resume(ctx context.Context) {
	err := g.do(func() error { return g.load(ctx, g.slot) })
	switch {
	case err == nil:
	case errors.Is(err, save.ErrNotFound), errors.Is(err, ErrNoRepository):
		g.log.Info("no saved game, starting fresh", "slot", g.slot)
	default:
		g.log.Warn("resume failed, starting fresh", "slot", g.slot, "err", err)
	}
}

// Reset restores the default state.
func (g *Game) Reset() error {
	return g.do(func() error {
		g.reset()
		return nil
	})
}

func (g *Game) reset() {
	g.store.Reset()
	g.restart()
	g.bus.Publish(events.New(events.GameReset, nil))
}

// Slots lists the save slots.
func (g *Game) Slots(ctx context.Context) ([]save.Slot, error) {
	if g.saves == nil {
		return nil, ErrNoRepository
	}
	return save.Describe(ctx, g.saves)
}

// DeleteSlot removes a save slot.
func (g *Game) DeleteSlot(ctx context.Context, slot string) error {
	if g.saves == nil {
		return ErrNoRepository
	}
	return g.saves.Delete(ctx, slot)
}
