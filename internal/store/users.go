package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ilinks-dev/ilinks/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CreateUser inserts a user whose password is already hashed. Username and
// email are checked separately so the conflict names the offending field.
func (s *Store) CreateUser(ctx context.Context, username string, email *string, passwordHash string) (*models.User, error) {
	user := models.User{
		Username:     username,
		Email:        emptyToNil(email),
		PasswordHash: passwordHash,
	}

	err := s.transaction(ctx, "create user", func(tx *gorm.DB) error {
		if err := ensureUnused(tx, "username", username); err != nil {
			return err
		}

		if user.Email != nil {
			if err := ensureUnused(tx, "email", *user.Email); err != nil {
				return err
			}
		}

		err := tx.Create(&user).Error

		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return duplicateField(err)
		}

		return err
	})

	if err != nil {
		return nil, err
	}

	return &user, nil
}

func ensureUnused(tx *gorm.DB, column, value string) error {
	var count int64

	if err := tx.Model(&models.User{}).Where(column+" = ?", value).Count(&count).Error; err != nil {
		return storageErr(err, "check "+column)
	}

	if count > 0 {
		return &ConflictError{Field: column}
	}

	return nil
}

// duplicateField picks the column from a driver message when a concurrent
// insert slipped past ensureUnused.
func duplicateField(err error) error {
	if strings.Contains(strings.ToLower(err.Error()), "email") {
		return &ConflictError{Field: "email"}
	}

	return &ConflictError{Field: "username"}
}

func (s *Store) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User

	err := s.db.WithContext(ctx).First(&user, id).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, storageErr(err, "find user")
	}

	return &user, nil
}

// FindUserByLogin matches identifier against username or email.
func (s *Store) FindUserByLogin(ctx context.Context, identifier string) (*models.User, error) {
	var user models.User

	err := s.db.WithContext(ctx).
		Where("username = ? OR email = ?", identifier, strings.ToLower(identifier)).
		First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, storageErr(err, "find user")
	}

	return &user, nil
}

// SetWallpaper stores a new wallpaper reference and returns the previous one
// so the caller can release a replaced upload.
func (s *Store) SetWallpaper(ctx context.Context, userID uint, wallpaper *string) (*string, error) {
	var previous *string

	err := s.transaction(ctx, "set wallpaper", func(tx *gorm.DB) error {
		var user models.User

		if err := tx.Select("id", "wallpaper").First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		previous = user.Wallpaper

		return tx.Model(&models.User{}).
			Where("id = ?", userID).
			Updates(map[string]interface{}{
				"wallpaper":  emptyToNil(wallpaper),
				"updated_at": time.Now(),
			}).Error
	})

	if err != nil {
		return nil, err
	}

	return previous, nil
}

// SetUISettings replaces the opaque presentation blob.
func (s *Store) SetUISettings(ctx context.Context, userID uint, settings datatypes.JSON) error {
	result := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"ui_settings": settings,
			"updated_at":  time.Now(),
		})

	if result.Error != nil {
		return storageErr(result.Error, "set ui settings")
	}

	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
