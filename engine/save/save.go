// Package save implements the versioned JSON save envelope around the game
// state and the repository port that save-slot backends implement.
package save

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nathoo/idlecore/types"
)

// FormatVersion is the envelope version written by Save.
const FormatVersion = 1

var (
	// ErrNotFound is returned by repositories for an empty slot.
	ErrNotFound = errors.New("save slot not found")
	// ErrCorrupt marks data that is not a readable save.
	ErrCorrupt = errors.New("corrupt save data")
	// ErrUnsupportedVersion marks saves written by a newer format.
	ErrUnsupportedVersion = errors.New("unsupported save version")
)

// File is the save envelope. State stays raw until it is merged over a
// default state by Load.
type File struct {
	Version   int             `json:"version"`
	ID        uuid.UUID       `json:"id"`
	Slot      string          `json:"slot"`
	Game      string          `json:"game,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	State     json.RawMessage `json:"state"`
}

// Document is the typed form of File that Save writes and Schema describes.
type Document struct {
	Version   int              `json:"version" jsonschema:"required,minimum=1"`
	ID        uuid.UUID        `json:"id" jsonschema:"required"`
	Slot      string           `json:"slot" jsonschema:"required"`
	Game      string           `json:"game,omitempty"`
	Timestamp time.Time        `json:"timestamp" jsonschema:"required"`
	State     *types.GameState `json:"state" jsonschema:"required"`
}

// Meta carries the envelope fields chosen by the caller.
type Meta struct {
	Slot string
	Game string
	At   time.Time
}

// Save serializes game state into an envelope.
func Save(s *types.GameState, meta Meta) ([]byte, error) {
	at := meta.At
	if at.IsZero() {
		at = time.Now()
	}
	doc := Document{
		Version:   FormatVersion,
		ID:        uuid.New(),
		Slot:      meta.Slot,
		Game:      meta.Game,
		Timestamp: at.UTC(),
		State:     s,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode save: %w", err)
	}
	return data, nil
}

// Peek decodes the envelope without touching the state.
func Peek(data []byte) (*File, error) {
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if f.Version > FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, f.Version)
	}
	state := bytes.TrimSpace(f.State)
	if len(state) == 0 || state[0] != '{' {
		return nil, fmt.Errorf("%w: missing state object", ErrCorrupt)
	}
	return &f, nil
}

// Load decodes an envelope and merges its state over base: fields absent
// from the save keep the values already in base. base is modified in place.
func Load(data []byte, base *types.GameState) (*File, error) {
	f, err := Peek(data)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(f.State, base); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return f, nil
}

// Slot describes a stored save without its state.
type Slot struct {
	Name      string    `json:"name"`
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// Repository stores save envelopes by slot name.
type Repository interface {
	Put(ctx context.Context, slot string, data []byte) error
	Get(ctx context.Context, slot string) ([]byte, error)
	Delete(ctx context.Context, slot string) error
	List(ctx context.Context) ([]string, error)
}

// Describe reads every slot's envelope header from repo. Unreadable slots
// are skipped.
func Describe(ctx context.Context, repo Repository) ([]Slot, error) {
	names, err := repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	slots := make([]Slot, 0, len(names))
	for _, name := range names {
		data, err := repo.Get(ctx, name)
		if err != nil {
			continue
		}
		f, err := Peek(data)
		if err != nil {
			continue
		}
		slots = append(slots, Slot{Name: name, ID: f.ID, Timestamp: f.Timestamp})
	}
	return slots, nil
}
