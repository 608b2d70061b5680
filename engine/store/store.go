// Package store holds the canonical game state. All mutation flows through
// Dispatch, which applies a reducer to a private copy and commits the copy
// only when the reducer succeeds.
package store

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/nathoo/idlecore/engine/save"
	"github.com/nathoo/idlecore/engine/state"
	"github.com/nathoo/idlecore/types"
)

// PathAll matches every path.
const PathAll = "*"

// Action is a named state transition. Reduce mutates the copy it is given
// and returns an error to reject the transition. Paths lists the subtrees
// the reducer may touch.
type Action struct {
	Type   string
	Paths  []string
	Reduce func(s *types.GameState) error
}

// Change is delivered to subscribers. State is the subscriber's own copy.
type Change struct {
	Action string
	Paths  []string
	State  *types.GameState
}

// Listener receives state changes.
type Listener func(Change)

// Options configures a Store.
type Options struct {
	Logger      *slog.Logger
	HistorySize int // 0 uses DefaultHistorySize; negative disables history
	Now         func() time.Time
}

type subscription struct {
	id     int
	paths  []string
	fn     Listener
	active bool
}

// Store owns the game state.
type Store struct {
	defs *state.Defs
	log  *slog.Logger
	now  func() time.Time

	mu      sync.Mutex // guards everything below
	current *types.GameState
	subs    []*subscription
	nextID  int
	history *history
}

// New creates a store holding the default state for defs.
func New(defs *state.Defs, opts Options) *Store {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	size := opts.HistorySize
	if size == 0 {
		size = DefaultHistorySize
	}
	return &Store{
		defs:    defs,
		log:     opts.Logger.With("component", "store"),
		now:     opts.Now,
		current: state.NewState(defs),
		history: newHistory(size),
	}
}

// Defs returns the content definitions the store was built from.
func (st *Store) Defs() *state.Defs { return st.defs }

// GetState returns a deep copy of the current state.
func (st *Store) GetState() *types.GameState {
	st.mu.Lock()
	cur := st.current
	st.mu.Unlock()
	return mustClone(cur)
}

// Dispatch applies a to the state. A reducer error or panic leaves the
// state untouched, is logged and is returned. Matching subscribers are
// notified in registration order after the commit.
func (st *Store) Dispatch(a Action) error {
	st.mu.Lock()
	next, err := st.reduce(a)
	st.history.add(Entry{Type: a.Type, Paths: a.Paths, At: st.now(), Err: errString(err)})
	if err != nil {
		st.mu.Unlock()
		st.log.Warn("dispatch rejected", "action", a.Type, "err", err)
		return fmt.Errorf("dispatch %s: %w", a.Type, err)
	}
	st.current = next
	subs := st.matching(a.Paths)
	st.mu.Unlock()

	st.notify(subs, Change{Action: a.Type, Paths: a.Paths}, next)
	return nil
}

func (st *Store) reduce(a Action) (next *types.GameState, err error) {
	defer func() {
		if r := recover(); r != nil {
			next = nil
			err = fmt.Errorf("reducer panic: %v", r)
		}
	}()
	if a.Reduce == nil {
		return nil, fmt.Errorf("action %q has no reducer", a.Type)
	}
	work, err := state.Clone(st.current)
	if err != nil {
		return nil, err
	}
	if err := a.Reduce(work); err != nil {
		return nil, err
	}
	// Copy again so nothing the reducer captured aliases committed state.
	return state.Clone(work)
}

// Subscribe registers fn for the given paths and calls it once right away
// with the current state. The returned function unsubscribes and may be
// called any number of times.
func (st *Store) Subscribe(paths []string, fn Listener) (unsubscribe func()) {
	st.mu.Lock()
	st.nextID++
	sub := &subscription{id: st.nextID, paths: slices.Clone(paths), fn: fn, active: true}
	st.subs = append(st.subs, sub)
	cur := st.current
	st.mu.Unlock()

	st.notify([]*subscription{sub}, Change{Action: "subscribe", Paths: []string{PathAll}}, cur)

	var once sync.Once
	return func() {
		once.Do(func() {
			st.mu.Lock()
			defer st.mu.Unlock()
			sub.active = false
			st.subs = slices.DeleteFunc(st.subs, func(s *subscription) bool { return s.id == sub.id })
		})
	}
}

func (st *Store) matching(paths []string) []*subscription {
	var out []*subscription
	for _, sub := range st.subs {
		if overlaps(sub.paths, paths) {
			out = append(out, sub)
		}
	}
	return out
}

func (st *Store) notify(subs []*subscription, c Change, snapshot *types.GameState) {
	for _, sub := range subs {
		st.mu.Lock()
		active := sub.active
		st.mu.Unlock()
		if !active {
			continue
		}
		c.State = mustClone(snapshot)
		sub.fn(c)
	}
}

func overlaps(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y || x == PathAll || y == PathAll {
				return true
			}
		}
	}
	return false
}

// replace commits s wholesale and notifies every subscriber.
func (st *Store) replace(action string, s *types.GameState) {
	st.mu.Lock()
	st.current = s
	st.history.add(Entry{Type: action, Paths: []string{PathAll}, At: st.now()})
	subs := slices.Clone(st.subs)
	st.mu.Unlock()
	st.notify(subs, Change{Action: action, Paths: []string{PathAll}}, s)
}

// Reset restores the default state.
func (st *Store) Reset() {
	st.replace("reset", state.NewState(st.defs))
	st.log.Info("state reset")
}

// Serialize encodes the current state into a save envelope.
func (st *Store) Serialize(slot string) ([]byte, error) {
	return save.Save(st.GetState(), save.Meta{Slot: slot, Game: st.defs.Game.Title, At: st.now()})
}

// Deserialize loads a save envelope, merging it over the default state.
// On error the current state is kept.
func (st *Store) Deserialize(data []byte) (*save.File, error) {
	s := state.NewState(st.defs)
	f, err := save.Load(data, s)
	if err != nil {
		return nil, err
	}
	state.Normalize(s, st.defs)
	st.replace("load", s)
	st.log.Info("state loaded", "slot", f.Slot, "save_id", f.ID, "saved_at", f.Timestamp)
	return f, nil
}

// History returns the recorded dispatches, oldest first.
func (st *Store) History() []Entry {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.history.entries()
}

func mustClone(s *types.GameState) *types.GameState {
	c, err := state.Clone(s)
	if err != nil {
		// Committed state always went through Clone once already.
		panic(err)
	}
	return c
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
