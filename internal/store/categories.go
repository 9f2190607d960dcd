package store

import (
	"context"
	"strings"
	"time"

	"github.com/ilinks-dev/ilinks/internal/models"
	"gorm.io/gorm"
)

type CategoryInput struct {
	Name string
	Icon *string
}

// CategoryPatch is a partial update. Nil fields keep their stored value.
type CategoryPatch struct {
	Name     *string
	Icon     *string
	Position *int
}

// CreateCategory appends a category to the end of the user's list.
func (s *Store) CreateCategory(ctx context.Context, userID uint, in CategoryInput) (*models.Category, error) {
	name := strings.TrimSpace(in.Name)

	if name == "" {
		return nil, invalid("name", "is required")
	}

	category := models.Category{
		UserID: userID,
		Name:   name,
		Icon:   emptyToNil(in.Icon),
	}

	err := s.transaction(ctx, "create category", func(tx *gorm.DB) error {
		position, err := nextCategoryPosition(tx, userID)

		if err != nil {
			return err
		}

		category.Position = position

		return tx.Create(&category).Error
	})

	if err != nil {
		return nil, err
	}

	return &category, nil
}

func (s *Store) UpdateCategory(ctx context.Context, id, userID uint, patch CategoryPatch) error {
	updates := map[string]interface{}{"updated_at": time.Now()}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)

		if name == "" {
			return invalid("name", "must not be empty")
		}

		updates["name"] = name
	}

	if patch.Icon != nil {
		updates["icon"] = emptyToNil(patch.Icon)
	}

	if patch.Position != nil {
		updates["position"] = *patch.Position
	}

	return s.transaction(ctx, "update category", func(tx *gorm.DB) error {
		if _, err := ownedCategory(tx, id, userID); err != nil {
			return err
		}

		return tx.Model(&models.Category{}).
			Where("id = ? AND user_id = ?", id, userID).
			Updates(updates).Error
	})
}

// DeleteCategory removes a category and every link in it.
func (s *Store) DeleteCategory(ctx context.Context, id, userID uint) error {
	return s.transaction(ctx, "delete category", func(tx *gorm.DB) error {
		if _, err := ownedCategory(tx, id, userID); err != nil {
			return err
		}

		if err := tx.Where("category_id = ?", id).Delete(&models.Link{}).Error; err != nil {
			return err
		}

		return tx.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Category{}).Error
	})
}

// ListCategoriesWithLinks returns the user's full tree: categories in
// position order, each with its links in position order.
func (s *Store) ListCategoriesWithLinks(ctx context.Context, userID uint) ([]models.Category, error) {
	categories := []models.Category{}

	err := orderByPosition(s.db.WithContext(ctx)).
		Preload("Links", orderByPosition).
		Where("user_id = ?", userID).
		Find(&categories).Error

	if err != nil {
		return nil, storageErr(err, "list categories")
	}

	return categories, nil
}

// ReorderCategories applies each pair as its own scoped update inside one
// transaction. Ids the user does not own are silently skipped; a storage
// failure rolls the whole batch back.
func (s *Store) ReorderCategories(ctx context.Context, userID uint, updates []PositionUpdate) (int, error) {
	applied := 0

	err := s.transaction(ctx, "reorder categories", func(tx *gorm.DB) error {
		n, err := applyPositions(tx, &models.Category{}, updates, func(q *gorm.DB) *gorm.DB {
			return q.Where("user_id = ?", userID)
		})
		applied = n
		return err
	})

	if err != nil {
		return 0, err
	}

	return applied, nil
}

// DeleteAllResult counts what DeleteAllForUser removed.
type DeleteAllResult struct {
	DeletedLinks      int64
	DeletedCategories int64
}

// DeleteAllForUser clears the user's links and categories atomically.
func (s *Store) DeleteAllForUser(ctx context.Context, userID uint) (DeleteAllResult, error) {
	var result DeleteAllResult

	err := s.transaction(ctx, "delete all bookmarks", func(tx *gorm.DB) error {
		links := tx.Where("category_id IN (?)", ownedCategoryIDs(tx, userID)).Delete(&models.Link{})

		if links.Error != nil {
			return links.Error
		}

		categories := tx.Where("user_id = ?", userID).Delete(&models.Category{})

		if categories.Error != nil {
			return categories.Error
		}

		result.DeletedLinks = links.RowsAffected
		result.DeletedCategories = categories.RowsAffected

		return nil
	})

	if err != nil {
		return DeleteAllResult{}, err
	}

	return result, nil
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}

	return s
}
