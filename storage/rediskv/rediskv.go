// Package rediskv stores save slots in Redis. Each slot is a string key;
// a set indexes the slot names.
package rediskv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/redis/go-redis/v9"

	"github.com/nathoo/idlecore/engine/save"
)

// DefaultPrefix namespaces every key the repository writes.
const DefaultPrefix = "idlecore"

// Repo is a Redis-backed save repository.
type Repo struct {
	client redis.UniversalClient
	prefix string
	logger *slog.Logger
}

// Options configures a Repo.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	Logger   *slog.Logger
}

// Open connects to Redis and checks the connection.
func Open(ctx context.Context, opts Options) (*Repo, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return New(client, opts.Prefix, opts.Logger), nil
}

// New wraps an existing client.
func New(client redis.UniversalClient, prefix string, logger *slog.Logger) *Repo {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Repo{client: client, prefix: prefix, logger: logger}
}

func (r *Repo) slotKey(slot string) string { return r.prefix + ":save:" + slot }
func (r *Repo) indexKey() string           { return r.prefix + ":saves" }

func (r *Repo) Put(ctx context.Context, slot string, data []byte) error {
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, r.slotKey(slot), data, 0)
		p.SAdd(ctx, r.indexKey(), slot)
		return nil
	})
	if err != nil {
		r.logger.Error("redis save failed", "slot", slot, "error", err)
		return fmt.Errorf("redis put %s: %w", slot, err)
	}
	r.logger.Debug("redis save written", "slot", slot, "bytes", len(data))
	return nil
}

func (r *Repo) Get(ctx context.Context, slot string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.slotKey(slot)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, save.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", slot, err)
	}
	return data, nil
}

func (r *Repo) Delete(ctx context.Context, slot string) error {
	var del *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		del = p.Del(ctx, r.slotKey(slot))
		p.SRem(ctx, r.indexKey(), slot)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete %s: %w", slot, err)
	}
	if del.Val() == 0 {
		return save.ErrNotFound
	}
	return nil
}

// List returns the slot names in sorted order.
func (r *Repo) List(ctx context.Context) ([]string, error) {
	names, err := r.client.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list: %w", err)
	}
	slices.Sort(names)
	return names, nil
}

// Close closes the underlying client.
func (r *Repo) Close() error {
	return r.client.Close()
}

var _ save.Repository = (*Repo)(nil)
