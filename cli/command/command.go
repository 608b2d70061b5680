package command

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/nathoo/idlecore/engine"
	"github.com/nathoo/idlecore/engine/actions"
	"github.com/nathoo/idlecore/engine/combat"
	"github.com/nathoo/idlecore/engine/events"
	"github.com/nathoo/idlecore/engine/profession"
	"github.com/nathoo/idlecore/engine/quest"
	"github.com/nathoo/idlecore/engine/save"
	"github.com/nathoo/idlecore/engine/state"
	"github.com/nathoo/idlecore/types"
)

// DefaultSlot is used by /save and /load without an argument.
const DefaultSlot = "quicksave"

// Game is the command surface a Session drives.
type Game interface {
	Defs() *state.Defs
	Events() *events.Bus
	State() *types.GameState
	StartCombat() (types.Monster, error)
	Attack() (combat.Outcome, error)
	ToggleAutoCombat() (bool, error)
	ChangeZone(worldID, zoneID string) error
	UnlockZone(zoneID string) error
	Collect(profID string) (profession.Result, error)
	Craft(recipeID string) (profession.Result, error)
	BuyUpgrade(profID, upgradeID string) error
	UnlockProfession(profID string) error
	AssignProfession(profID string) error
	Equip(itemID string) error
	Unequip(slot string) error
	StartQuest(questID string) error
	AbandonQuest(questID string) error
	QuestStatus(questID string) quest.Status
	AvailableQuests() []string
	Save(ctx context.Context, slot string) error
	Load(ctx context.Context, slot string) error
	Reset() error
	Slots(ctx context.Context) ([]save.Slot, error)
	DeleteSlot(ctx context.Context, slot string) error
}

var _ Game = (*engine.Game)(nil)

// Result is the outcome of one Step.
type Result struct {
	Intent types.Intent
	Output []string
	Events []types.Event
	Err    error
}

// Session runs player commands against a game and buffers the domain
// events published in between, including those fired by timers.
type Session struct {
	game    Game
	defs    *state.Defs
	resolve Resolver

	mu      sync.Mutex
	pending []types.Event
	unsub   func()
}

// NewSession subscribes to g's events. Call Close to unsubscribe.
func NewSession(g Game) *Session {
	s := &Session{game: g, defs: g.Defs(), resolve: NewResolver(g.Defs())}
	s.unsub = g.Events().Subscribe(func(e types.Event) {
		s.mu.Lock()
		s.pending = append(s.pending, e)
		s.mu.Unlock()
	})
	return s
}

// Close stops buffering events.
func (s *Session) Close() { s.unsub() }

// Defs returns the content definitions.
func (s *Session) Defs() *state.Defs { return s.defs }

// Drain returns and clears the buffered events.
func (s *Session) Drain() []types.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.pending
	s.pending = nil
	return out
}

// Narrate describes events as output lines.
func (s *Session) Narrate(evs []types.Event) []string {
	var lines []string
	for _, e := range evs {
		if line, ok := Describe(s.defs, e); ok {
			lines = append(lines, line)
		}
	}
	return lines
}

// Step parses and executes one game command. Output holds the narration of
// every event buffered up to the end of the command, then the command's own
// lines.
func (s *Session) Step(input string) Result {
	intent := Parse(input)
	res := Result{Intent: intent}
	if intent.Verb == "" {
		return res
	}

	lines, err := s.exec(intent)
	res.Events = s.Drain()
	res.Output = s.Narrate(res.Events)
	if err != nil {
		res.Err = err
		res.Output = append(res.Output, ErrorText(err))
		return res
	}
	res.Output = append(res.Output, lines...)
	return res
}

func (s *Session) exec(in types.Intent) ([]string, error) {
	switch in.Verb {
	case VerbHelp:
		return Help(), nil
	case VerbStatus:
		return s.Status(), nil
	case VerbInventory:
		return s.inventory(), nil
	case VerbZones:
		return s.zones(), nil
	case VerbProfessions:
		return s.professions(), nil
	case VerbRecipes:
		return s.recipes(), nil
	case VerbQuests:
		return s.quests(), nil

	case VerbFight:
		_, err := s.game.StartCombat()
		return nil, err
	case VerbAttack:
		if !s.game.State().Combat.State.InCombat {
			if _, err := s.game.StartCombat(); err != nil {
				return nil, err
			}
		}
		_, err := s.game.Attack()
		return nil, err
	case VerbAuto:
		_, err := s.game.ToggleAutoCombat()
		return nil, err
	case VerbGo:
		zoneID, err := s.resolve.Zone(in.Object)
		if err != nil {
			return nil, err
		}
		if s.game.State().Combat.Zones.CurrentZoneID == zoneID {
			return []string{"You are already there."}, nil
		}
		return nil, s.game.ChangeZone(s.defs.Zones[zoneID].WorldID, zoneID)
	case VerbUnlock:
		return s.unlock(in.Object)

	case VerbCollect:
		profID, err := s.collectProfession(in.Object)
		if err != nil {
			return nil, err
		}
		res, err := s.game.Collect(profID)
		if err != nil {
			return nil, err
		}
		return []string{fmt.Sprintf("+%d %s experience.", res.Experience, DisplayName(s.defs, "profession", profID))}, nil
	case VerbCraft:
		recipeID, err := s.resolve.Recipe(in.Object)
		if err != nil {
			return nil, err
		}
		res, err := s.game.Craft(recipeID)
		if err != nil {
			return nil, err
		}
		return []string{fmt.Sprintf("+%d %s experience.", res.Experience, DisplayName(s.defs, "profession", res.Profession))}, nil
	case VerbBuy:
		var profID string
		if in.Target != "" {
			id, err := s.resolve.Profession(in.Target)
			if err != nil {
				return nil, err
			}
			profID = id
		}
		profID, upID, err := s.resolve.Upgrade(in.Object, profID)
		if err != nil {
			return nil, err
		}
		return nil, s.game.BuyUpgrade(profID, upID)
	case VerbAssign:
		profID, err := s.resolve.Profession(in.Object)
		if err != nil {
			return nil, err
		}
		return nil, s.game.AssignProfession(profID)

	case VerbEquip:
		itemID, err := s.resolve.Item(in.Object)
		if err != nil {
			return nil, err
		}
		if err := s.game.Equip(itemID); err != nil {
			return nil, err
		}
		return []string{fmt.Sprintf("You equip the %s.", DisplayName(s.defs, "item", itemID))}, nil
	case VerbUnequip:
		slot, err := s.resolve.Slot(in.Object)
		if err != nil {
			return nil, err
		}
		if err := s.game.Unequip(slot); err != nil {
			return nil, err
		}
		return []string{fmt.Sprintf("Your %s slot is now empty.", slot)}, nil

	case VerbAccept:
		questID, err := s.resolve.Quest(in.Object)
		if err != nil {
			return nil, err
		}
		return nil, s.game.StartQuest(questID)
	case VerbAbandon:
		questID, err := s.resolve.Quest(in.Object)
		if err != nil {
			return nil, err
		}
		return nil, s.game.AbandonQuest(questID)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownVerb, in.Verb)
}

// ErrUnknownVerb is returned for commands the parser does not know.
var ErrUnknownVerb = errors.New("unknown command")

// unlock tries zones first, then professions.
func (s *Session) unlock(name string) ([]string, error) {
	zoneID, zerr := s.resolve.Zone(name)
	if zerr == nil {
		return nil, s.game.UnlockZone(zoneID)
	}
	profID, perr := s.resolve.Profession(name)
	if perr == nil {
		return nil, s.game.UnlockProfession(profID)
	}
	var amb *AmbiguityError
	if errors.As(zerr, &amb) {
		return nil, zerr
	}
	return nil, perr
}

// collectProfession resolves name, or picks the first assigned gathering
// profession when name is empty.
func (s *Session) collectProfession(name string) (string, error) {
	if name != "" {
		return s.resolve.Profession(name)
	}
	st := s.game.State()
	profs := st.Professions.ByCharacter.Value(st.ActiveCharacterID)
	for _, id := range s.defs.ProfessionOrder {
		if profs.Has(id) && s.defs.Professions[id].Selection != "" {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: no gathering profession assigned", actions.ErrNotAssigned)
}

// Status describes the active character, the current zone and the fight.
func (s *Session) Status() []string {
	st := s.game.State()
	var lines []string
	if c, ok := state.ActiveCharacter(st); ok {
		lines = append(lines, fmt.Sprintf("%s  Lv %d  HP %d/%d  ATK %g  DEF %g  EXP %d/%d",
			c.Name, c.Level, c.Stats.CurrentHP, c.Stats.MaxHP,
			state.EffectiveAttack(c), state.EffectiveDefense(c),
			c.Experience, state.ExperienceToLevel(c.Level)))
	}
	zones := st.Combat.Zones
	if z, ok := state.CurrentZone(st, s.defs); ok {
		lines = append(lines, fmt.Sprintf("Zone: %s (%s)  kills %d/%d",
			DisplayName(s.defs, "zone", z.ID), DisplayName(s.defs, "world", zones.CurrentWorldID),
			zones.MonstersDefeated, state.CompletionThreshold(z)))
	}
	cs := st.Combat.State
	if m := cs.CurrentMonster; cs.InCombat && m != nil {
		lines = append(lines, fmt.Sprintf("Fighting: %s  Lv %d  HP %d/%d", m.Name, m.Level, m.CurrentHP, m.MaxHP))
	} else {
		lines = append(lines, "Not in combat.")
	}
	switch {
	case !cs.AutoCombatUnlocked:
		lines = append(lines, "Auto-combat: locked")
	case cs.AutoCombatEnabled:
		lines = append(lines, "Auto-combat: on")
	default:
		lines = append(lines, "Auto-combat: off")
	}
	return lines
}

func (s *Session) inventory() []string {
	st := s.game.State()
	inv := st.Inventory
	header := fmt.Sprintf("Inventory (%d items):", state.InventoryTotal(st))
	if inv.Capacity > 0 {
		header = fmt.Sprintf("Inventory (%d/%d):", state.InventoryTotal(st), inv.Capacity)
	}
	lines := []string{header}
	n := 0
	for id, qty := range inv.Items.All() {
		if qty <= 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("  %s x%d", DisplayName(s.defs, "item", id), qty))
		n++
	}
	if n == 0 {
		lines = append(lines, "  (empty)")
	}
	if c, ok := state.ActiveCharacter(st); ok {
		lines = append(lines, "Equipment:")
		for _, slot := range []struct {
			name string
			item *types.Item
		}{{"weapon", c.Equipment.Weapon}, {"armor", c.Equipment.Armor}, {"accessory", c.Equipment.Accessory}} {
			label := "(none)"
			if slot.item != nil {
				label = slot.item.Name
			}
			lines = append(lines, fmt.Sprintf("  %-9s %s", slot.name, label))
		}
	}
	return lines
}

func (s *Session) zones() []string {
	st := s.game.State()
	zp := st.Combat.Zones
	var lines []string
	for _, wid := range s.defs.WorldOrder {
		w := s.defs.Worlds[wid]
		head := DisplayName(s.defs, "world", wid)
		if !zp.UnlockedWorlds.Has(wid) {
			head += " (locked)"
		}
		lines = append(lines, head)
		for _, zid := range w.Zones {
			mark := " "
			if zid == zp.CurrentZoneID {
				mark = "*"
			}
			detail := fmt.Sprintf("%d kills", zp.ZoneKills.Value(zid))
			if !zp.UnlockedZones.Has(zid) {
				detail = "locked"
			}
			lines = append(lines, fmt.Sprintf(" %s %s (%s)", mark, DisplayName(s.defs, "zone", zid), detail))
		}
	}
	return lines
}

func (s *Session) professions() []string {
	st := s.game.State()
	mine := st.Professions.ByCharacter.Value(st.ActiveCharacterID)
	var lines []string
	for _, id := range s.defs.ProfessionOrder {
		name := DisplayName(s.defs, "profession", id)
		ps, ok := mine.Get(id)
		switch {
		case ok:
			lines = append(lines, fmt.Sprintf("  %s  Lv %d  (%d exp)", name, ps.Level, ps.Experience))
		case st.Professions.Slots.Unlocked.Has(id):
			lines = append(lines, fmt.Sprintf("  %s  (unlocked)", name))
		default:
			lines = append(lines, fmt.Sprintf("  %s  (locked)", name))
		}
	}
	slots := st.Professions.Slots.PerCharacter
	return append([]string{fmt.Sprintf("Professions (%d/%d slots):", mine.Len(), slots)}, lines...)
}

func (s *Session) recipes() []string {
	ids := make([]string, 0, len(s.defs.Recipes))
	for id := range s.defs.Recipes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	lines := []string{"Recipes:"}
	for _, id := range ids {
		r := s.defs.Recipes[id]
		lines = append(lines, fmt.Sprintf("  %s (%s %d): %s", DisplayName(s.defs, "recipe", id),
			DisplayName(s.defs, "profession", r.Profession), r.Level, itemList(s.defs, r.Materials)))
	}
	return lines
}

func (s *Session) quests() []string {
	st := s.game.State()
	var active, done []string
	for _, id := range s.defs.QuestOrder {
		switch s.game.QuestStatus(id) {
		case quest.Active:
			active = append(active, fmt.Sprintf("  %s  %s", DisplayName(s.defs, "quest", id), s.questProgress(st, id)))
		case quest.Completed:
			done = append(done, "  "+DisplayName(s.defs, "quest", id))
		}
	}
	var avail []string
	for _, id := range s.game.AvailableQuests() {
		avail = append(avail, "  "+DisplayName(s.defs, "quest", id))
	}

	var lines []string
	for _, group := range []struct {
		title string
		items []string
	}{{"Active:", active}, {"Available:", avail}, {"Completed:", done}} {
		if len(group.items) == 0 {
			continue
		}
		lines = append(lines, group.title)
		lines = append(lines, group.items...)
	}
	if len(lines) == 0 {
		return []string{"No quests."}
	}
	return lines
}

func (s *Session) questProgress(st *types.GameState, id string) string {
	def := s.defs.Quests[id]
	prog := st.Quests.Progress.Value(id)
	var parts []string
	for m, need := range def.Requirements.MonstersKilled.All() {
		parts = append(parts, fmt.Sprintf("%s %d/%d", DisplayName(s.defs, "monster", m), min(need, prog.MonstersKilled.Value(m)), need))
	}
	for it, need := range def.Requirements.Items.All() {
		parts = append(parts, fmt.Sprintf("%s %d/%d", DisplayName(s.defs, "item", it), min(need, prog.Items.Value(it)), need))
	}
	return strings.Join(parts, ", ")
}

// Meta handles slash commands shared by every front end. It reports
// handled=false for commands it does not know.
func (s *Session) Meta(ctx context.Context, input string) (lines []string, quit, handled bool) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil, false, false
	}
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/quit", "/exit":
		return []string{"Goodbye."}, true, true
	case "/help":
		return Help(), false, true
	case "/state":
		return s.Status(), false, true
	case "/save":
		if arg == "" {
			arg = DefaultSlot
		}
		if err := s.game.Save(ctx, arg); err != nil {
			return []string{fmt.Sprintf("Save failed: %v", err)}, false, true
		}
		return s.Narrate(s.Drain()), false, true
	case "/load":
		if arg == "" {
			arg = DefaultSlot
		}
		if err := s.game.Load(ctx, arg); err != nil {
			return []string{fmt.Sprintf("Load failed: %v", err)}, false, true
		}
		return append(s.Narrate(s.Drain()), s.Status()...), false, true
	case "/saves":
		slots, err := s.game.Slots(ctx)
		if err != nil {
			return []string{fmt.Sprintf("Listing saves failed: %v", err)}, false, true
		}
		if len(slots) == 0 {
			return []string{"No saves."}, false, true
		}
		lines := []string{"Saves:"}
		for _, sl := range slots {
			lines = append(lines, fmt.Sprintf("  %-12s %s", sl.Name, sl.Timestamp.Local().Format("2006-01-02 15:04:05")))
		}
		return lines, false, true
	case "/delete":
		if arg == "" {
			return []string{"Usage: /delete <slot>"}, false, true
		}
		if err := s.game.DeleteSlot(ctx, arg); err != nil {
			return []string{fmt.Sprintf("Delete failed: %v", err)}, false, true
		}
		return []string{fmt.Sprintf("Deleted %s.", arg)}, false, true
	case "/reset":
		if err := s.game.Reset(); err != nil {
			return []string{fmt.Sprintf("Reset failed: %v", err)}, false, true
		}
		return append(s.Narrate(s.Drain()), s.Status()...), false, true
	}
	return nil, false, false
}

// ErrorText turns a command error into a player-facing line.
func ErrorText(err error) string {
	var amb *AmbiguityError
	var nf *NotFoundError
	switch {
	case errors.As(err, &amb):
		return "Which " + amb.Name + "? (" + strings.Join(amb.Candidates, ", ") + ")"
	case errors.As(err, &nf):
		if nf.Name == "" {
			return fmt.Sprintf("Which %s?", nf.Kind)
		}
		return fmt.Sprintf("There is no %s called %q.", nf.Kind, nf.Name)
	case errors.Is(err, ErrUnknownVerb):
		return "I don't understand that. Type help for a list of commands."
	case errors.Is(err, combat.ErrAlreadyInCombat):
		return "You are already fighting."
	case errors.Is(err, combat.ErrNotInCombat):
		return "You are not fighting anything."
	case errors.Is(err, combat.ErrAutoCombatLocked):
		return "Auto-combat is not unlocked yet."
	case errors.Is(err, combat.ErrZoneLocked) || errors.Is(err, actions.ErrLocked):
		return "That zone is locked."
	case errors.Is(err, profession.ErrInsufficientMaterials):
		return "You don't have the materials."
	case errors.Is(err, profession.ErrLevelTooLow):
		return "Your profession level is too low."
	case errors.Is(err, profession.ErrNotAssigned):
		return "You haven't taken up that profession."
	case errors.Is(err, profession.ErrUpgradeOwned):
		return "You already own that upgrade."
	case errors.Is(err, profession.ErrNoSlot):
		return "You have no free profession slot."
	case errors.Is(err, profession.ErrRequirementsNotMet):
		return "You don't meet the requirements yet."
	case errors.Is(err, actions.ErrNotUnlocked):
		return "That profession is still locked."
	case errors.Is(err, profession.ErrUnsupportedOperation):
		return "That profession can't do that."
	case errors.Is(err, quest.ErrPrerequisites):
		return "You haven't finished the quests that lead to that one."
	case errors.Is(err, quest.ErrAlreadyActive):
		return "That quest is already active."
	case errors.Is(err, quest.ErrAlreadyCompleted):
		return "You already finished that quest."
	case errors.Is(err, quest.ErrNotActive):
		return "That quest isn't active."
	case errors.Is(err, engine.ErrNotOwned):
		return "You don't have that."
	case errors.Is(err, engine.ErrNotEquipable):
		return "You can't equip that."
	}
	return "Error: " + err.Error()
}

// Help lists the commands.
func Help() []string {
	return []string{
		"Game commands:",
		"  status (l)                 show your character and the current fight",
		"  inventory (i)              list items and equipment",
		"  zones (map)                list worlds and zones",
		"  professions, recipes       list professions and recipes",
		"  quests (q)                 show the quest journal",
		"  fight (f)                  start an encounter",
		"  attack (a)                 strike the current monster",
		"  auto                       toggle auto-combat",
		"  go <zone>                  travel to a zone",
		"  unlock <zone|profession>   unlock a zone or profession",
		"  collect [profession] (c)   gather resources",
		"  craft <recipe>             craft an item",
		"  buy <upgrade> [for <prof>] buy a profession upgrade",
		"  assign <profession>        take up a profession",
		"  equip <item>, unequip <slot>",
		"  accept <quest>, abandon <quest>",
		"  again (g)                  repeat your last command",
		"",
		"System:",
		"  /save [slot], /load [slot], /saves, /delete <slot>, /reset",
		"  /state, /trace, /help, /quit",
	}
}
