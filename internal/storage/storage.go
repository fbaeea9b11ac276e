// Package storage persists uploaded binary content. Blobs live in the
// same Postgres instance as the rest of the data, keyed by owner.
package storage

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/maloba12/umutulo/internal/model"
)

// ErrNotFound is returned when no blob exists for the key.
var ErrNotFound = errors.New("blob not found")

// Store reads and writes binary blobs.
type Store interface {
	Put(key, contentType string, data []byte) error
	Get(key string) (*model.Blob, error)
}

// GormStore is a Store backed by the relational database.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore returns a Store over the given database handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Put creates or replaces the blob stored under key.
func (s *GormStore) Put(key, contentType string, data []byte) error {
	blob := model.Blob{
		Key:         key,
		ContentType: contentType,
		Data:        data,
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"content_type", "data", "updated_at"}),
	}).Create(&blob).Error
}

// Get retrieves the blob stored under key.
func (s *GormStore) Get(key string) (*model.Blob, error) {
	var blob model.Blob
	if result := s.db.First(&blob, "key = ?", key); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, result.Error
	}
	return &blob, nil
}
