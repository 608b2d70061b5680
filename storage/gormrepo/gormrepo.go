// Package gormrepo stores save slots in PostgreSQL through gorm.
package gormrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/nathoo/idlecore/engine/save"
)

// SaveSlot is the row model of one save slot.
type SaveSlot struct {
	Slot      string `gorm:"primaryKey;size:128"`
	Data      []byte `gorm:"not null"`
	UpdatedAt time.Time
}

func (SaveSlot) TableName() string { return "save_slots" }

func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return db, nil
}

// Repo is a gorm-backed save repository.
type Repo struct {
	db *gorm.DB
}

// New migrates the save table and returns a repository over db.
func New(ctx context.Context, db *gorm.DB) (*Repo, error) {
	if err := db.WithContext(ctx).AutoMigrate(&SaveSlot{}); err != nil {
		return nil, fmt.Errorf("migrate save_slots: %w", err)
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Put(ctx context.Context, slot string, data []byte) error {
	m := SaveSlot{Slot: slot, Data: data}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slot"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("put slot %s: %w", slot, err)
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, slot string) ([]byte, error) {
	var m SaveSlot
	if err := r.db.WithContext(ctx).Where("slot = ?", slot).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, save.ErrNotFound
		}
		return nil, fmt.Errorf("get slot %s: %w", slot, err)
	}
	return m.Data, nil
}

func (r *Repo) Delete(ctx context.Context, slot string) error {
	res := r.db.WithContext(ctx).Where("slot = ?", slot).Delete(&SaveSlot{})
	if res.Error != nil {
		return fmt.Errorf("delete slot %s: %w", slot, res.Error)
	}
	if res.RowsAffected == 0 {
		return save.ErrNotFound
	}
	return nil
}

// List returns the slot names in sorted order.
func (r *Repo) List(ctx context.Context) ([]string, error) {
	var names []string
	if err := r.db.WithContext(ctx).Model(&SaveSlot{}).Order("slot").Pluck("slot", &names).Error; err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return names, nil
}

// Close closes the underlying connection pool.
func (r *Repo) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ save.Repository = (*Repo)(nil)
