// Package store persists users, categories and links. Every category and link
// operation is scoped to the calling user; rows owned by anyone else behave
// exactly as if they did not exist.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ilinks-dev/ilinks/db"
	"gorm.io/gorm"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return db.Ping(ctx, s.db, 2*time.Second)
}

func (s *Store) transaction(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	err := s.db.WithContext(ctx).Transaction(fn)

	if err == nil {
		return nil
	}

	var (
		storageError    *StorageError
		validationError *ValidationError
		conflictError   *ConflictError
	)

	if errors.Is(err, ErrNotFound) ||
		errors.As(err, &storageError) ||
		errors.As(err, &validationError) ||
		errors.As(err, &conflictError) {
		return err
	}

	return storageErr(err, op)
}
