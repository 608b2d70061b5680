// Package quest tracks quest state, progress and rewards.
package quest

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/nathoo/idlecore/engine/actions"
	"github.com/nathoo/idlecore/engine/events"
	"github.com/nathoo/idlecore/engine/state"
	"github.com/nathoo/idlecore/types"
)

var (
	ErrUnknownQuest     = errors.New("unknown quest")
	ErrPrerequisites    = errors.New("quest prerequisites not met")
	ErrAlreadyActive    = actions.ErrQuestActive
	ErrAlreadyCompleted = actions.ErrQuestCompleted
	ErrNotActive        = actions.ErrQuestNotActive
)

// Status is where a quest is in its lifecycle. Quests never move backwards
// except through AbandonQuest, which returns an active quest to Locked.
type Status int

const (
	Locked Status = iota
	Active
	Completed
)

func (s Status) String() string {
	switch s {
	case Active:
		return "active"
	case Completed:
		return "completed"
	default:
		return "locked"
	}
}

// ProfessionGranter grants profession experience rewards.
type ProfessionGranter interface {
	GrantExperience(charID, profID string, amount int) (bool, error)
}

// Options configures a Tracker.
type Options struct {
	Store       actions.Dispatcher
	Defs        *state.Defs
	Events      events.Publisher
	Professions ProfessionGranter
	Logger      *slog.Logger
}

// Tracker drives every quest. Its methods must be called from the
// scheduler goroutine.
type Tracker struct {
	store actions.Dispatcher
	defs  *state.Defs
	pub   events.Publisher
	profs ProfessionGranter
	log   *slog.Logger
}

// New creates a quest tracker.
func New(opts Options) *Tracker {
	t := &Tracker{
		store: opts.Store,
		defs:  opts.Defs,
		pub:   opts.Events,
		profs: opts.Professions,
		log:   opts.Logger,
	}
	if t.pub == nil {
		t.pub = events.Nop()
	}
	if t.log == nil {
		t.log = slog.Default()
	}
	return t
}

// SetProfessions wires the profession experience granter after
// construction, for callers that build the two engines in a cycle.
func (t *Tracker) SetProfessions(p ProfessionGranter) {
	t.profs = p
}

// Status returns a quest's lifecycle state.
func (t *Tracker) Status(questID string) Status {
	s := t.store.GetState()
	switch {
	case state.QuestCompleted(s, questID):
		return Completed
	case state.QuestActive(s, questID):
		return Active
	default:
		return Locked
	}
}

// Available returns the locked quests whose prerequisites are met, in
// definition order.
func (t *Tracker) Available() []string {
	s := t.store.GetState()
	var ids []string
	for _, id := range t.defs.QuestOrder {
		if !state.QuestActive(s, id) && !state.QuestCompleted(s, id) && t.prerequisitesMet(s, id) {
			ids = append(ids, id)
		}
	}
	return ids
}

func (t *Tracker) prerequisitesMet(s *types.GameState, questID string) bool {
	for _, pre := range t.defs.Quests[questID].Prerequisites {
		if !state.QuestCompleted(s, pre) {
			return false
		}
	}
	return true
}

// StartQuest activates a locked quest whose prerequisites are completed.
func (t *Tracker) StartQuest(questID string) error {
	def, ok := t.defs.Quests[questID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownQuest, questID)
	}
	s := t.store.GetState()
	switch {
	case state.QuestCompleted(s, questID):
		return fmt.Errorf("quest %s: %w", questID, ErrAlreadyCompleted)
	case state.QuestActive(s, questID):
		return fmt.Errorf("quest %s: %w", questID, ErrAlreadyActive)
	case !t.prerequisitesMet(s, questID):
		return fmt.Errorf("quest %s: %w", questID, ErrPrerequisites)
	}
	if err := t.store.Dispatch(actions.StartQuest(def)); err != nil {
		return err
	}
	t.pub.Publish(events.New(events.QuestStarted, map[string]any{
		"quest": questID,
		"title": def.Title,
	}))
	t.checkCompletion(questID)
	return nil
}

// AbandonQuest returns an active quest to Locked and drops its progress.
func (t *Tracker) AbandonQuest(questID string) error {
	if _, ok := t.defs.Quests[questID]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownQuest, questID)
	}
	if t.Status(questID) == Completed {
		return fmt.Errorf("quest %s: %w", questID, ErrAlreadyCompleted)
	}
	if err := t.store.Dispatch(actions.AbandonQuest(questID)); err != nil {
		return err
	}
	t.pub.Publish(events.New(events.QuestAbandoned, map[string]any{"quest": questID}))
	return nil
}

// RecordMonsterKill credits a kill to every active quest that asks for the
// monster, honoring zone restrictions.
func (t *Tracker) RecordMonsterKill(monsterID, zoneID string) {
	t.record(actions.ProgressMonster, monsterID, 1, func(req types.QuestRequirements) (int, bool) {
		if req.Zone != "" && req.Zone != zoneID {
			return 0, false
		}
		return req.MonstersKilled.Get(monsterID)
	})
}

// RecordItemCollected credits collected items to every active quest that
// asks for them.
func (t *Tracker) RecordItemCollected(itemID string, qty int) {
	if qty <= 0 {
		return
	}
	t.record(actions.ProgressItem, itemID, qty, func(req types.QuestRequirements) (int, bool) {
		return req.Items.Get(itemID)
	})
}

func (t *Tracker) record(kind, key string, n int, required func(types.QuestRequirements) (int, bool)) {
	s := t.store.GetState()
	var touched []string
	for id, def := range s.Quests.Active.All() {
		need, ok := required(def.Requirements)
		if !ok {
			continue
		}
		p := s.Quests.Progress.Value(id)
		have := p.MonstersKilled.Value(key)
		if kind == actions.ProgressItem {
			have = p.Items.Value(key)
		}
		if have >= need {
			continue
		}
		if err := t.store.Dispatch(actions.RecordQuestProgress(id, kind, key, n, need)); err != nil {
			t.log.Warn("recording quest progress failed", "quest", id, "err", err)
			continue
		}
		t.pub.Publish(events.New(events.QuestProgress, map[string]any{
			"quest":    id,
			"kind":     kind,
			"target":   key,
			"count":    min(need, have+n),
			"required": need,
		}))
		touched = append(touched, id)
	}
	for _, id := range touched {
		t.checkCompletion(id)
	}
}

// Done reports whether every requirement counter of an active quest is met.
func Done(def types.QuestDefinition, p types.QuestProgress) bool {
	for id, need := range def.Requirements.MonstersKilled.All() {
		if p.MonstersKilled.Value(id) < need {
			return false
		}
	}
	for id, need := range def.Requirements.Items.All() {
		if p.Items.Value(id) < need {
			return false
		}
	}
	return true
}

func (t *Tracker) checkCompletion(questID string) {
	s := t.store.GetState()
	def, ok := s.Quests.Active.Get(questID)
	if !ok || !Done(def, s.Quests.Progress.Value(questID)) {
		return
	}
	if err := t.store.Dispatch(actions.CompleteQuest(questID)); err != nil {
		// Already completed by an earlier pass.
		return
	}
	t.applyRewards(def)
	t.pub.Publish(events.New(events.QuestCompleted, map[string]any{
		"quest":      questID,
		"title":      def.Title,
		"experience": def.Rewards.Experience,
	}))
	t.StartAutoQuests()
}

func (t *Tracker) applyRewards(def types.QuestDefinition) {
	r := def.Rewards
	if _, err := actions.GrantExperience(t.store, t.pub, r.Experience); err != nil {
		t.log.Warn("quest experience reward failed", "quest", def.ID, "err", err)
	}
	for item, qty := range r.Items.All() {
		if err := t.store.Dispatch(actions.AddItem(item, qty)); err != nil {
			t.log.Warn("quest item reward failed", "quest", def.ID, "item", item, "err", err)
		}
	}

	charID := t.store.GetState().ActiveCharacterID
	for prof, amount := range r.ProfessionExp.All() {
		if t.profs == nil {
			break
		}
		if _, held := state.Profession(t.store.GetState(), charID, prof); !held {
			continue
		}
		if _, err := t.profs.GrantExperience(charID, prof, amount); err != nil {
			t.log.Warn("quest profession reward failed", "quest", def.ID, "profession", prof, "err", err)
		}
	}

	u := r.Unlocks
	for _, prof := range u.Professions {
		if t.store.GetState().Professions.Slots.Unlocked.Has(prof) {
			continue
		}
		if err := t.store.Dispatch(actions.UnlockProfession(prof)); err != nil {
			t.log.Warn("quest profession unlock failed", "quest", def.ID, "profession", prof, "err", err)
			continue
		}
		t.pub.Publish(events.New(events.ProfessionUnlocked, map[string]any{"profession": prof}))
	}
	for _, zone := range u.Zones {
		if t.store.GetState().Combat.Zones.UnlockedZones.Has(zone) {
			continue
		}
		if err := t.store.Dispatch(actions.UnlockZone(zone)); err != nil {
			t.log.Warn("quest zone unlock failed", "quest", def.ID, "zone", zone, "err", err)
			continue
		}
		t.pub.Publish(events.New(events.ZoneUnlocked, map[string]any{"zone": zone}))
	}
	if u.AutoCombat {
		if err := t.store.Dispatch(actions.UnlockAutoCombat()); err != nil {
			t.log.Warn("quest auto-combat unlock failed", "quest", def.ID, "err", err)
		}
	}
}

// StartAutoQuests starts every auto-start quest that has become available.
func (t *Tracker) StartAutoQuests() {
	for _, id := range t.Available() {
		if !t.defs.Quests[id].AutoStart || t.Status(id) != Locked {
			continue
		}
		if err := t.StartQuest(id); err != nil {
			t.log.Warn("auto-starting quest failed", "quest", id, "err", err)
		}
	}
}
