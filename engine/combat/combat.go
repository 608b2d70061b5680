// Package combat runs encounters: monster generation and scaling, the
// attack exchange, rewards, zone progression and the auto-combat tick.
package combat

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/nathoo/idlecore/engine/actions"
	"github.com/nathoo/idlecore/engine/events"
	"github.com/nathoo/idlecore/engine/rng"
	"github.com/nathoo/idlecore/engine/rules"
	"github.com/nathoo/idlecore/engine/sched"
	"github.com/nathoo/idlecore/engine/state"
	"github.com/nathoo/idlecore/types"
)

// Fixed timings.
const (
	RespawnDelay = time.Second
	TickPeriod   = time.Second
)

// Experience multipliers for special monsters.
const (
	RareMultiplier = 1.5
	BossMultiplier = 3.0
)

var (
	ErrNotInCombat      = errors.New("not in combat")
	ErrAlreadyInCombat  = errors.New("already in combat")
	ErrZoneLocked       = errors.New("zone is locked")
	ErrUnknownZone      = errors.New("unknown zone")
	ErrUnknownWorld     = errors.New("unknown world")
	ErrAutoCombatLocked = actions.ErrAutoCombatLocked
)

// Recorder receives kills and loot as they happen.
type Recorder interface {
	RecordMonsterKill(monsterID, zoneID string)
	RecordItemCollected(itemID string, qty int)
}

type nopRecorder struct{}

func (nopRecorder) RecordMonsterKill(string, string) {}
func (nopRecorder) RecordItemCollected(string, int)  {}

// Result is the state an attack leaves the encounter in.
type Result int

const (
	Ongoing Result = iota
	Victory
	Defeat
)

func (r Result) String() string {
	switch r {
	case Victory:
		return "victory"
	case Defeat:
		return "defeat"
	default:
		return "ongoing"
	}
}

// Outcome describes one attack exchange.
type Outcome struct {
	Result        Result
	Monster       types.Monster
	DamageDealt   int
	DamageTaken   int
	Experience    int
	Loot          []types.ItemQty
	LeveledUp     bool
	ZoneCompleted bool
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

// Engine is the combat state machine. Its methods must be called from the
// scheduler goroutine.
type Engine struct {
	store   actions.Dispatcher
	defs    *state.Defs
	rng     *rng.RNG
	sched   sched.Scheduler
	pub     events.Publisher
	quests  Recorder
	log     *slog.Logger
	tick    sched.Timer
	respawn sched.Timer
	stopped bool
}

// New creates a combat engine.
func New(opts Options) *Engine {
	e := &Engine{
		store:  opts.Store,
		defs:   opts.Defs,
		rng:    opts.RNG,
		sched:  opts.Scheduler,
		pub:    opts.Events,
		quests: opts.Quests,
		log:    opts.Logger,
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
	return e
}

// Start resumes the auto-combat tick if the state has auto-combat enabled.
func (e *Engine) Start() {
	e.stopped = false
	s := e.store.GetState()
	if s.Combat.State.AutoCombatEnabled {
		e.startTick()
		if !s.Combat.State.InCombat {
			e.scheduleRespawn(s.Combat.State.Encounter)
		}
	}
}

// Stop cancels the tick and any pending respawn.
func (e *Engine) Stop() {
	e.stopped = true
	e.stopTick()
	if e.respawn != nil {
		e.respawn.Stop()
		e.respawn = nil
	}
}

// StartCombat generates a monster for the current zone and opens an encounter.
func (e *Engine) StartCombat() (types.Monster, error) {
	s := e.store.GetState()
	if s.Combat.State.InCombat {
		return types.Monster{}, ErrAlreadyInCombat
	}
	zone, ok := state.CurrentZone(s, e.defs)
	if !ok {
		return types.Monster{}, fmt.Errorf("%w: %q", ErrUnknownZone, s.Combat.Zones.CurrentZoneID)
	}
	m, err := e.GenerateMonster(zone, s.Combat.Zones.MonstersDefeated)
	if err != nil {
		return types.Monster{}, err
	}
	if err := e.store.Dispatch(actions.StartEncounter(m)); err != nil {
		return types.Monster{}, err
	}
	e.pub.Publish(events.New(events.EncounterStarted, map[string]any{
		"monster": m.ID,
		"name":    m.Name,
		"level":   m.Level,
		"hp":      m.MaxHP,
		"zone":    zone.ID,
		"rare":    m.IsRare,
		"boss":    m.IsBoss,
	}))
	return m, nil
}

// Attack resolves one exchange: the player strikes, and a surviving monster
// strikes back.
func (e *Engine) Attack() (Outcome, error) {
	s := e.store.GetState()
	cs := s.Combat.State
	if !cs.InCombat || cs.CurrentMonster == nil {
		return Outcome{}, ErrNotInCombat
	}
	ch, ok := state.ActiveCharacter(s)
	if !ok {
		return Outcome{}, actions.ErrNoCharacter
	}
	m := *cs.CurrentMonster
	out := Outcome{Monster: m}

	out.DamageDealt = e.CalculateDamage(state.EffectiveAttack(ch), float64(m.Stats.Defense))
	if err := e.store.Dispatch(actions.DamageMonster(out.DamageDealt)); err != nil {
		return Outcome{}, err
	}
	m.CurrentHP = max(0, m.CurrentHP-out.DamageDealt)
	out.Monster = m
	e.pub.Publish(events.New(events.DamageDealt, map[string]any{
		"monster":   m.ID,
		"amount":    out.DamageDealt,
		"monsterHp": m.CurrentHP,
	}))

	if m.CurrentHP <= 0 {
		return e.victory(out)
	}

	out.DamageTaken = e.CalculateDamage(float64(m.Stats.Attack), state.EffectiveDefense(ch))
	if err := e.store.Dispatch(actions.TakeDamage(out.DamageTaken)); err != nil {
		return Outcome{}, err
	}
	hp := max(0, ch.Stats.CurrentHP-out.DamageTaken)
	e.pub.Publish(events.New(events.DamageTaken, map[string]any{
		"monster":  m.ID,
		"amount":   out.DamageTaken,
		"playerHp": hp,
	}))

	if hp <= 0 {
		return e.defeat(out)
	}
	return out, nil
}

func (e *Engine) victory(out Outcome) (Outcome, error) {
	m := out.Monster
	s := e.store.GetState()
	zone, _ := state.CurrentZone(s, e.defs)

	if err := e.store.Dispatch(actions.RecordVictory(zone.ID)); err != nil {
		return Outcome{}, err
	}
	out.Result = Victory
	e.pub.Publish(events.New(events.Victory, map[string]any{
		"monster": m.ID,
		"zone":    zone.ID,
		"boss":    m.IsBoss,
	}))
	e.quests.RecordMonsterKill(m.ID, zone.ID)

	out.Experience = ExperienceFor(m, zone.Index)
	leveled, err := actions.GrantExperience(e.store, e.pub, out.Experience)
	if err != nil {
		e.log.Warn("granting experience failed", "monster", m.ID, "err", err)
	}
	out.LeveledUp = leveled

	for _, drop := range e.RollLoot(m) {
		before := e.store.GetState()
		if err := e.store.Dispatch(actions.AddItem(drop.ItemID, drop.Qty)); err != nil {
			e.log.Warn("adding loot failed", "item", drop.ItemID, "err", err)
			continue
		}
		stored := actions.Stored(before, e.store.GetState(), []types.ItemQty{drop})
		if len(stored) == 0 {
			e.log.Debug("inventory full, loot dropped", "item", drop.ItemID, "qty", drop.Qty)
			continue
		}
		got := stored[0]
		out.Loot = append(out.Loot, got)
		e.pub.Publish(events.New(events.LootGained, map[string]any{
			"item": got.ItemID,
			"qty":  got.Qty,
		}))
		e.quests.RecordItemCollected(got.ItemID, got.Qty)
	}

	s = e.store.GetState()
	if zone.ID != "" && s.Combat.Zones.CurrentZoneID == zone.ID &&
		s.Combat.Zones.MonstersDefeated >= state.CompletionThreshold(zone) {
		out.ZoneCompleted = true
		e.completeZone(zone)
	}

	e.scheduleRespawn(e.store.GetState().Combat.State.Encounter)
	return out, nil
}

func (e *Engine) defeat(out Outcome) (Outcome, error) {
	if err := e.store.Dispatch(actions.RecordDefeat()); err != nil {
		return Outcome{}, err
	}
	out.Result = Defeat
	e.stopTick()
	e.pub.Publish(events.New(events.Defeat, map[string]any{
		"monster": out.Monster.ID,
	}))
	e.scheduleRespawn(e.store.GetState().Combat.State.Encounter)
	return out, nil
}

// completeZone advances the party after a zone reaches its threshold: the
// next unlockable zone of the world, else the first zone of the next
// world, else it stays put. The visit counter always restarts.
func (e *Engine) completeZone(zone types.ZoneDef) {
	e.pub.Publish(events.New(events.ZoneCompleted, map[string]any{
		"zone":  zone.ID,
		"world": zone.WorldID,
	}))

	s := e.store.GetState()
	world := e.defs.Worlds[zone.WorldID]
	idx := slices.Index(world.Zones, zone.ID)
	for _, next := range world.Zones[idx+1:] {
		if !e.CanUnlockZone(next) {
			continue
		}
		if err := e.moveTo(world.ID, next); err != nil {
			e.log.Warn("advancing zone failed", "zone", next, "err", err)
			break
		}
		return
	}

	wi := slices.Index(e.defs.WorldOrder, world.ID)
	if wi >= 0 && wi+1 < len(e.defs.WorldOrder) {
		nw := e.defs.Worlds[e.defs.WorldOrder[wi+1]]
		if len(nw.Zones) > 0 && rules.EvalAllConditions(nw.Requires, s, e.defs) {
			if err := e.unlockWorld(nw.ID); err != nil {
				e.log.Warn("unlocking world failed", "world", nw.ID, "err", err)
			} else if err := e.moveTo(nw.ID, nw.Zones[0]); err != nil {
				e.log.Warn("advancing world failed", "world", nw.ID, "err", err)
			} else {
				return
			}
		}
	}

	e.log.Info("world completed", "world", world.ID, "zone", zone.ID)
	e.pub.Publish(events.New(events.WorldCompleted, map[string]any{"world": world.ID}))
	if err := e.store.Dispatch(actions.ResetZoneProgress()); err != nil {
		e.log.Warn("resetting zone progress failed", "err", err)
	}
}

func (e *Engine) moveTo(worldID, zoneID string) error {
	if err := e.unlockZone(zoneID); err != nil {
		return err
	}
	return e.changeZone(worldID, zoneID)
}

// ToggleAutoCombat flips auto-combat and reports the new setting. Enabling
// while idle starts an encounter at once.
func (e *Engine) ToggleAutoCombat() (bool, error) {
	if err := e.store.Dispatch(actions.ToggleAutoCombat()); err != nil {
		return false, err
	}
	s := e.store.GetState()
	on := s.Combat.State.AutoCombatEnabled
	e.pub.Publish(events.New(events.AutoCombatToggled, map[string]any{"enabled": on}))
	if !on {
		e.stopTick()
		return false, nil
	}
	e.startTick()
	if !s.Combat.State.InCombat {
		if _, err := e.StartCombat(); err != nil {
			return true, err
		}
	}
	return true, nil
}

func (e *Engine) startTick() {
	if e.tick != nil || e.sched == nil {
		return
	}
	e.tick = e.sched.Every(TickPeriod, e.onTick)
}

func (e *Engine) stopTick() {
	if e.tick != nil {
		e.tick.Stop()
		e.tick = nil
	}
}

func (e *Engine) onTick() {
	if e.stopped {
		return
	}
	s := e.store.GetState()
	if !s.Combat.State.AutoCombatEnabled {
		e.stopTick()
		return
	}
	if s.Combat.State.InCombat {
		if _, err := e.Attack(); err != nil {
			e.log.Warn("auto attack failed", "err", err)
		}
		return
	}
	if _, err := e.StartCombat(); err != nil {
		e.log.Warn("auto spawn failed", "err", err)
	}
}

// scheduleRespawn starts the next encounter after RespawnDelay, unless the
// encounter generation moves on, the engine stops or a fight is running.
func (e *Engine) scheduleRespawn(gen int) {
	if e.sched == nil || e.stopped {
		return
	}
	if e.respawn != nil {
		e.respawn.Stop()
	}
	e.respawn = e.sched.AfterFunc(RespawnDelay, func() {
		e.respawn = nil
		if e.stopped {
			return
		}
		cs := e.store.GetState().Combat.State
		if cs.Encounter != gen || cs.InCombat {
			return
		}
		if _, err := e.StartCombat(); err != nil {
			e.log.Warn("respawn failed", "err", err)
		}
	})
}

// CanEnterZone reports whether the zone and its world are unlocked.
func (e *Engine) CanEnterZone(worldID, zoneID string) bool {
	z, ok := e.defs.Zones[zoneID]
	if !ok || z.WorldID != worldID {
		return false
	}
	zones := e.store.GetState().Combat.Zones
	return zones.UnlockedWorlds.Has(worldID) && zones.UnlockedZones.Has(zoneID)
}

// CanUnlockZone reports whether the zone's predecessor in its world has
// reached its completion threshold and the zone's own conditions pass.
func (e *Engine) CanUnlockZone(zoneID string) bool {
	z, ok := e.defs.Zones[zoneID]
	if !ok {
		return false
	}
	s := e.store.GetState()
	w := e.defs.Worlds[z.WorldID]
	if i := slices.Index(w.Zones, zoneID); i > 0 {
		prev, ok := e.defs.Zones[w.Zones[i-1]]
		if ok && state.ZoneKills(s, prev.ID) < state.CompletionThreshold(prev) {
			return false
		}
	}
	return rules.EvalAllConditions(z.Requires, s, e.defs)
}

// ChangeZone moves the party to an enterable zone.
func (e *Engine) ChangeZone(worldID, zoneID string) error {
	z, ok := e.defs.Zones[zoneID]
	if !ok || z.WorldID != worldID {
		return fmt.Errorf("%w: %s/%s", ErrUnknownZone, worldID, zoneID)
	}
	if !e.CanEnterZone(worldID, zoneID) {
		return fmt.Errorf("%w: %s", ErrZoneLocked, zoneID)
	}
	return e.changeZone(worldID, zoneID)
}

func (e *Engine) changeZone(worldID, zoneID string) error {
	from := e.store.GetState().Combat.Zones.CurrentZoneID
	if err := e.store.Dispatch(actions.ChangeZone(worldID, zoneID)); err != nil {
		return err
	}
	e.pub.Publish(events.New(events.ZoneChanged, map[string]any{
		"from":  from,
		"zone":  zoneID,
		"world": worldID,
	}))
	return nil
}

// UnlockZone unlocks a zone whose conditions pass. Unlocking an unlocked
// zone is a no-op.
func (e *Engine) UnlockZone(zoneID string) error {
	if _, ok := e.defs.Zones[zoneID]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownZone, zoneID)
	}
	if e.store.GetState().Combat.Zones.UnlockedZones.Has(zoneID) {
		return nil
	}
	if !e.CanUnlockZone(zoneID) {
		return fmt.Errorf("%w: %s", ErrZoneLocked, zoneID)
	}
	return e.unlockZone(zoneID)
}

func (e *Engine) unlockZone(zoneID string) error {
	if e.store.GetState().Combat.Zones.UnlockedZones.Has(zoneID) {
		return nil
	}
	if err := e.store.Dispatch(actions.UnlockZone(zoneID)); err != nil {
		return err
	}
	e.pub.Publish(events.New(events.ZoneUnlocked, map[string]any{"zone": zoneID}))
	return nil
}

// UnlockWorld unlocks a world whose conditions pass. Unlocking an unlocked
// world is a no-op.
func (e *Engine) UnlockWorld(worldID string) error {
	w, ok := e.defs.Worlds[worldID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownWorld, worldID)
	}
	s := e.store.GetState()
	if s.Combat.Zones.UnlockedWorlds.Has(worldID) {
		return nil
	}
	if !rules.EvalAllConditions(w.Requires, s, e.defs) {
		return fmt.Errorf("%w: world %s", ErrZoneLocked, worldID)
	}
	return e.unlockWorld(worldID)
}

func (e *Engine) unlockWorld(worldID string) error {
	if e.store.GetState().Combat.Zones.UnlockedWorlds.Has(worldID) {
		return nil
	}
	if err := e.store.Dispatch(actions.UnlockWorld(worldID)); err != nil {
		return err
	}
	e.pub.Publish(events.New(events.WorldUnlocked, map[string]any{"world": worldID}))
	return nil
}

// GenerateMonster picks and scales a monster for zone. The boss replaces the
// random pick once defeated reaches one short of the completion threshold.
func (e *Engine) GenerateMonster(zone types.ZoneDef, defeated int) (types.Monster, error) {
	if zone.BossID != "" && defeated >= state.CompletionThreshold(zone)-1 {
		tmpl, ok := e.defs.Monsters[zone.BossID]
		if !ok {
			return types.Monster{}, fmt.Errorf("zone %s: unknown boss %q", zone.ID, zone.BossID)
		}
		level := 1
		for _, sp := range zone.Spawns {
			level = max(level, sp.MaxLevel)
		}
		m := e.build(tmpl, level, zone.Index)
		m.IsBoss = true
		return m, nil
	}

	weights := make([]float64, len(zone.Spawns))
	for i, sp := range zone.Spawns {
		weights[i] = sp.Weight
	}
	i := e.rng.WeightedSelect(weights)
	if i < 0 {
		return types.Monster{}, fmt.Errorf("zone %s: empty spawn table", zone.ID)
	}
	sp := zone.Spawns[i]
	tmpl, ok := e.defs.Monsters[sp.MonsterID]
	if !ok {
		return types.Monster{}, fmt.Errorf("zone %s: unknown monster %q", zone.ID, sp.MonsterID)
	}
	lo := max(1, sp.MinLevel)
	level := e.rng.IntRange(lo, max(lo, sp.MaxLevel))
	return e.build(tmpl, level, zone.Index), nil
}

func (e *Engine) build(tmpl types.MonsterTemplate, level, zoneIndex int) types.Monster {
	sc := e.store.GetState().Combat.Scaling
	hp := ScaleStat(sc, tmpl.HP, sc.FullScaling.HP, level, zoneIndex)
	return types.Monster{
		ID:        tmpl.ID,
		Name:      tmpl.Name,
		Level:     level,
		MaxHP:     hp,
		CurrentHP: hp,
		Stats: types.MonsterStats{
			Attack:  ScaleStat(sc, tmpl.Attack, sc.FullScaling.Attack, level, zoneIndex),
			Defense: ScaleStat(sc, tmpl.Defense, sc.FullScaling.Defense, level, zoneIndex),
		},
		Loot:           append([]types.LootEntry(nil), tmpl.Loot...),
		BaseExperience: tmpl.Experience,
		IsRare:         tmpl.Rare,
		IsBoss:         tmpl.Boss,
	}
}

// ZoneMultiplier is (1 + zoneMultiplier*zoneIndex) ^ scalingPower.
func ZoneMultiplier(sc types.Scaling, zoneIndex int) float64 {
	return math.Pow(1+sc.ZoneMultiplier*float64(zoneIndex), sc.ScalingPower)
}

// LevelMultiplier is 1 + (level-1)*levelScaling.
func LevelMultiplier(sc types.Scaling, level int) float64 {
	return 1 + float64(level-1)*sc.LevelScaling
}

// ScaleStat scales a template stat. Fully scaled stats take the whole zone
// multiplier, the others its square root.
func ScaleStat(sc types.Scaling, base int, full bool, level, zoneIndex int) int {
	zm := ZoneMultiplier(sc, zoneIndex)
	if !full {
		zm = math.Sqrt(zm)
	}
	return int(math.Floor(float64(base) * zm * LevelMultiplier(sc, level)))
}

// CalculateDamage is floor(max(0, atk - def/2) * U[0.9, 1.1)).
func (e *Engine) CalculateDamage(atk, def float64) int {
	base := math.Max(0, atk-def/2)
	return int(math.Floor(base * (0.9 + e.rng.Float64()*0.2)))
}

// ExperienceFor returns the experience a kill is worth in a zone.
func ExperienceFor(m types.Monster, zoneIndex int) int {
	rarity := 1.0
	switch {
	case m.IsBoss:
		rarity = BossMultiplier
	case m.IsRare:
		rarity = RareMultiplier
	}
	v := float64(m.BaseExperience) *
		(1 + float64(m.Level-1)*0.05) *
		(1 + float64(zoneIndex)*0.1) *
		rarity
	return int(math.Floor(v))
}

// RollLoot rolls every loot entry independently.
func (e *Engine) RollLoot(m types.Monster) []types.ItemQty {
	var drops []types.ItemQty
	for _, l := range m.Loot {
		if !e.rng.Chance(l.DropChance) {
			continue
		}
		qty := e.rng.IntRange(l.MinQty, l.MaxQty)
		if qty > 0 {
			drops = append(drops, types.ItemQty{ItemID: l.ResourceID, Qty: qty})
		}
	}
	return drops
}
