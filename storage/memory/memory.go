// Package memory is an in-process save repository.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/nathoo/idlecore/engine/save"
)

type Repo struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

func NewRepo() *Repo {
	return &Repo{slots: make(map[string][]byte)}
}

func (r *Repo) Put(_ context.Context, slot string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots[slot] = slices.Clone(data)
	return nil
}

func (r *Repo) Get(_ context.Context, slot string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	data, ok := r.slots[slot]
	if !ok {
		return nil, save.ErrNotFound
	}
	return slices.Clone(data), nil
}

func (r *Repo) Delete(_ context.Context, slot string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.slots[slot]; !ok {
		return save.ErrNotFound
	}
	delete(r.slots, slot)
	return nil
}

// List returns the slot names in sorted order.
func (r *Repo) List(context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.slots))
	for name := range r.slots {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

var _ save.Repository = (*Repo)(nil)
