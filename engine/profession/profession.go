// Package profession runs resource collection, crafting, upgrades and the
// auto-collect tick.
package profession

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/nathoo/idlecore/engine/actions"
	"github.com/nathoo/idlecore/engine/events"
	"github.com/nathoo/idlecore/engine/rng"
	"github.com/nathoo/idlecore/engine/rules"
	"github.com/nathoo/idlecore/engine/sched"
	"github.com/nathoo/idlecore/engine/state"
	"github.com/nathoo/idlecore/types"
)

// TickPeriod is the auto-collect interval.
const TickPeriod = time.Second

var (
	ErrUnsupportedOperation  = errors.New("profession does not support this operation")
	ErrUnknownProfession     = errors.New("unknown profession")
	ErrUnknownRecipe         = errors.New("unknown recipe")
	ErrUnknownUpgrade        = errors.New("unknown upgrade")
	ErrLevelTooLow           = errors.New("profession level too low")
	ErrRequirementsNotMet    = errors.New("requirements not met")
	ErrNoResources           = errors.New("no resources available at this level")
	ErrInsufficientMaterials = actions.ErrInsufficientMaterials
	ErrNotAssigned           = actions.ErrNotAssigned
	ErrUpgradeOwned          = actions.ErrAlreadyOwned
	ErrNoSlot                = actions.ErrNoSlot
)

// Recorder receives collected and crafted items.
type Recorder interface {
	RecordItemCollected(itemID string, qty int)
}

type nopRecorder struct{}

func (nopRecorder) RecordItemCollected(string, int) {}

// Result is what a collect or craft call produced.
type Result struct {
	Profession string
	Items      []types.ItemQty
	Experience int
	Level      int
	LeveledUp  bool
}

// Options configures an Engine.
type Options struct {
	Store     actions.Dispatcher
	Defs      *state.Defs
	RNG       *rng.RNG
	Scheduler sched.Scheduler
	Events    events.Publisher
	Quests    Recorder
	Logger    *slog.Logger
}

// Engine runs every profession. Its methods must be called from the
// scheduler goroutine.
type Engine struct {
	store      actions.Dispatcher
	defs       *state.Defs
	rng        *rng.RNG
	sched      sched.Scheduler
	pub        events.Publisher
	quests     Recorder
	log        *slog.Logger
	strategies map[string]Strategy
	curves     map[string]actions.Curve
	tick       sched.Timer
}

// New creates a profession engine with a strategy and a curve per
// defined profession.
func New(opts Options) *Engine {
	e := &Engine{
		store:      opts.Store,
		defs:       opts.Defs,
		rng:        opts.RNG,
		sched:      opts.Scheduler,
		pub:        opts.Events,
		quests:     opts.Quests,
		log:        opts.Logger,
		strategies: make(map[string]Strategy),
		curves:     make(map[string]actions.Curve),
	}
	if e.pub == nil {
		e.pub = events.Nop()
	}
	if e.quests == nil {
		e.quests = nopRecorder{}
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	for id, def := range opts.Defs.Professions {
		if st := NewStrategy(def); st != nil {
			e.strategies[id] = st
		}
		e.curves[id] = CurveFor(def)
	}
	return e
}

// Strategy returns the collection strategy of a profession, or nil for a
// craft-only one.
func (e *Engine) Strategy(profID string) Strategy {
	return e.strategies[profID]
}

// Curve returns the level curve of a profession.
func (e *Engine) Curve(profID string) actions.Curve {
	if c, ok := e.curves[profID]; ok {
		return c
	}
	return LinearCurve
}

// Collect performs MultiCollect collection rolls for a character's
// profession, then its special rolls, as one dispatch.
func (e *Engine) Collect(charID, profID string) (Result, error) {
	if _, ok := e.defs.Professions[profID]; !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownProfession, profID)
	}
	strat := e.strategies[profID]
	if strat == nil {
		return Result{}, fmt.Errorf("collect %s: %w", profID, ErrUnsupportedOperation)
	}
	snapshot := e.store.GetState()
	before, ok := state.Profession(snapshot, charID, profID)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s/%s", ErrNotAssigned, charID, profID)
	}
	pool := strat.AvailableResources(before.Level)
	if len(pool) == 0 {
		return Result{}, fmt.Errorf("collect %s: %w", profID, ErrNoResources)
	}

	stats := before.Stats
	qty := int(math.Floor(stats.MiningPower * stats.ResourceQuality))
	exp := CollectExperience(before.Level)

	var yields []actions.Yield
	for i := 0; i < max(1, stats.MultiCollect); i++ {
		res, ok := strat.SelectResource(e.rng, pool)
		if !ok {
			continue
		}
		yields = append(yields, actions.Yield{ItemID: res.ID, Qty: qty, Exp: exp})
	}
	if len(yields) == 0 {
		return Result{}, fmt.Errorf("collect %s: %w", profID, ErrNoResources)
	}

	for _, roll := range strat.SpecialRolls(before.Level, stats) {
		if !e.rng.Chance(roll.Chance) {
			continue
		}
		switch roll.Kind {
		case RollBonusYield:
			yields = append(yields, actions.Yield{ItemID: yields[0].ItemID, Qty: yields[0].Qty})
		case RollRare:
			if res, ok := weightedPick(e.rng, roll.Resources); ok {
				yields = append(yields, actions.Yield{ItemID: res.ID, Qty: 1})
			}
		}
	}

	if err := e.store.Dispatch(actions.CollectResources(charID, profID, yields, e.Curve(profID))); err != nil {
		return Result{}, err
	}

	res := Result{Profession: profID}
	grants := make([]types.ItemQty, 0, len(yields))
	for _, y := range yields {
		res.Experience += y.Exp
		grants = append(grants, types.ItemQty{ItemID: y.ItemID, Qty: y.Qty})
	}
	for _, got := range actions.Stored(snapshot, e.store.GetState(), grants) {
		res.Items = append(res.Items, got)
		e.pub.Publish(events.New(events.ResourceCollected, map[string]any{
			"character":  charID,
			"profession": profID,
			"item":       got.ItemID,
			"qty":        got.Qty,
		}))
		e.quests.RecordItemCollected(got.ItemID, got.Qty)
	}
	e.finishLevel(&res, charID, before.Level)
	return res, nil
}

// Craft makes one of a recipe's output.
func (e *Engine) Craft(charID, recipeID string) (Result, error) {
	recipe, ok := e.defs.Recipes[recipeID]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownRecipe, recipeID)
	}
	s := e.store.GetState()
	ps, ok := state.Profession(s, charID, recipe.Profession)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s/%s", ErrNotAssigned, charID, recipe.Profession)
	}
	if ps.Level < recipe.Level {
		return Result{}, fmt.Errorf("craft %s: %w (need %d, have %d)", recipeID, ErrLevelTooLow, recipe.Level, ps.Level)
	}
	if !state.HasMaterials(s, recipe.Materials) {
		return Result{}, fmt.Errorf("craft %s: %w", recipeID, ErrInsufficientMaterials)
	}

	exp := CraftExperience(recipe.Experience, recipe.Level)
	if err := e.store.Dispatch(actions.Craft(charID, recipe, exp, e.Curve(recipe.Profession))); err != nil {
		return Result{}, err
	}

	res := Result{
		Profession: recipe.Profession,
		Items:      []types.ItemQty{{ItemID: recipe.Output, Qty: 1}},
		Experience: exp,
	}
	e.pub.Publish(events.New(events.ItemCrafted, map[string]any{
		"character":  charID,
		"profession": recipe.Profession,
		"recipe":     recipeID,
		"item":       recipe.Output,
	}))
	e.quests.RecordItemCollected(recipe.Output, 1)
	e.finishLevel(&res, charID, ps.Level)
	return res, nil
}

// GrantExperience adds experience to a character's profession.
func (e *Engine) GrantExperience(charID, profID string, amount int) (bool, error) {
	snapshot := e.store.GetState()
	before, ok := state.Profession(snapshot, charID, profID)
	if !ok {
		return false, fmt.Errorf("%w: %s/%s", ErrNotAssigned, charID, profID)
	}
	if amount <= 0 {
		return false, nil
	}
	if err := e.store.Dispatch(actions.ProfessionGainExperience(charID, profID, amount, e.Curve(profID))); err != nil {
		return false, err
	}
	res := Result{Profession: profID}
	e.finishLevel(&res, charID, before.Level)
	return res.LeveledUp, nil
}

func (e *Engine) finishLevel(res *Result, charID string, before int) {
	after, _ := state.Profession(e.store.GetState(), charID, res.Profession)
	res.Level = after.Level
	if after.Level > before {
		res.LeveledUp = true
		e.pub.Publish(events.New(events.ProfessionLevelUp, map[string]any{
			"character":  charID,
			"profession": res.Profession,
			"level":      after.Level,
		}))
	}
}

// BuyUpgrade purchases a profession upgrade for a character.
func (e *Engine) BuyUpgrade(charID, profID, upgradeID string) error {
	def, ok := e.defs.Professions[profID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProfession, profID)
	}
	var up *types.UpgradeDef
	for i := range def.Upgrades {
		if def.Upgrades[i].ID == upgradeID {
			up = &def.Upgrades[i]
			break
		}
	}
	if up == nil {
		return fmt.Errorf("%w: %s/%s", ErrUnknownUpgrade, profID, upgradeID)
	}

	s := e.store.GetState()
	ps, ok := state.Profession(s, charID, profID)
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotAssigned, charID, profID)
	}
	if ps.UnlockedUpgrades.Has(upgradeID) {
		return fmt.Errorf("upgrade %s: %w", upgradeID, ErrUpgradeOwned)
	}
	if !rules.EvalAllConditions(up.Requires, s, e.defs) {
		return fmt.Errorf("upgrade %s: %w", upgradeID, ErrRequirementsNotMet)
	}
	if !state.HasMaterials(s, up.Cost) {
		return fmt.Errorf("upgrade %s: %w", upgradeID, ErrInsufficientMaterials)
	}
	if err := e.store.Dispatch(actions.PurchaseUpgrade(charID, profID, *up)); err != nil {
		return err
	}
	e.pub.Publish(events.New(events.UpgradePurchased, map[string]any{
		"character":  charID,
		"profession": profID,
		"upgrade":    upgradeID,
		"stat":       up.Stat,
		"amount":     up.Amount,
	}))
	return nil
}

// Unlock makes a profession assignable. Unlocking twice is a no-op.
func (e *Engine) Unlock(profID string) error {
	if _, ok := e.defs.Professions[profID]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProfession, profID)
	}
	if e.store.GetState().Professions.Slots.Unlocked.Has(profID) {
		return nil
	}
	if err := e.store.Dispatch(actions.UnlockProfession(profID)); err != nil {
		return err
	}
	e.pub.Publish(events.New(events.ProfessionUnlocked, map[string]any{"profession": profID}))
	return nil
}

// Assign gives a character an unlocked profession, limited by the slots
// per character.
func (e *Engine) Assign(charID, profID string) error {
	if _, ok := e.defs.Professions[profID]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProfession, profID)
	}
	if _, held := state.Profession(e.store.GetState(), charID, profID); held {
		return nil
	}
	if err := e.store.Dispatch(actions.AssignProfession(charID, profID)); err != nil {
		return err
	}
	e.pub.Publish(events.New(events.ProfessionAssigned, map[string]any{
		"character":  charID,
		"profession": profID,
	}))
	return nil
}

// Start installs the auto-collect tick.
func (e *Engine) Start() {
	if e.tick != nil || e.sched == nil {
		return
	}
	e.tick = e.sched.Every(TickPeriod, e.autoCollect)
}

// Stop cancels the auto-collect tick.
func (e *Engine) Stop() {
	if e.tick != nil {
		e.tick.Stop()
		e.tick = nil
	}
}

// autoCollect runs one collect per auto-collector for every assigned
// profession that has them.
func (e *Engine) autoCollect() {
	s := e.store.GetState()
	for charID, profs := range s.Professions.ByCharacter.All() {
		for profID, ps := range profs.All() {
			if ps.Stats.AutoCollectors <= 0 || e.strategies[profID] == nil {
				continue
			}
			for i := 0; i < ps.Stats.AutoCollectors; i++ {
				if _, err := e.Collect(charID, profID); err != nil {
					e.log.Warn("auto-collect failed", "character", charID, "profession", profID, "err", err)
					break
				}
			}
		}
	}
}
