package store

import (
	"context"
	"strings"
	"time"

	"github.com/ilinks-dev/ilinks/internal/models"
	"gorm.io/gorm"
)

type LinkInput struct {
	Title string
	URL   string
	Icon  *string
}

// LinkPatch is a partial update. Nil fields keep their stored value.
type LinkPatch struct {
	Title    *string
	URL      *string
	Icon     *string
	Position *int
}

// CreateLink appends a link to a category the user owns.
func (s *Store) CreateLink(ctx context.Context, categoryID, userID uint, in LinkInput) (*models.Link, error) {
	title := strings.TrimSpace(in.Title)
	url := strings.TrimSpace(in.URL)

	if title == "" {
		return nil, invalid("title", "is required")
	}

	if url == "" {
		return nil, invalid("url", "is required")
	}

	link := models.Link{
		CategoryID: categoryID,
		Title:      title,
		URL:        url,
		Icon:       emptyToNil(in.Icon),
	}

	err := s.transaction(ctx, "create link", func(tx *gorm.DB) error {
		if _, err := ownedCategory(tx, categoryID, userID); err != nil {
			return err
		}

		position, err := nextLinkPosition(tx, categoryID)

		if err != nil {
			return err
		}

		link.Position = position

		return tx.Create(&link).Error
	})

	if err != nil {
		return nil, err
	}

	return &link, nil
}

func (s *Store) UpdateLink(ctx context.Context, id, userID uint, patch LinkPatch) error {
	updates := map[string]interface{}{"updated_at": time.Now()}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)

		if title == "" {
			return invalid("title", "must not be empty")
		}

		updates["title"] = title
	}

	if patch.URL != nil {
		url := strings.TrimSpace(*patch.URL)

		if url == "" {
			return invalid("url", "must not be empty")
		}

		updates["url"] = url
	}

	if patch.Icon != nil {
		updates["icon"] = emptyToNil(patch.Icon)
	}

	if patch.Position != nil {
		updates["position"] = *patch.Position
	}

	return s.transaction(ctx, "update link", func(tx *gorm.DB) error {
		link, err := ownedLink(tx, id, userID)

		if err != nil {
			return err
		}

		return tx.Model(&models.Link{}).
			Where("id = ? AND category_id = ?", link.ID, link.CategoryID).
			Updates(updates).Error
	})
}

func (s *Store) DeleteLink(ctx context.Context, id, userID uint) error {
	return s.transaction(ctx, "delete link", func(tx *gorm.DB) error {
		link, err := ownedLink(tx, id, userID)

		if err != nil {
			return err
		}

		return tx.Where("id = ? AND category_id = ?", link.ID, link.CategoryID).Delete(&models.Link{}).Error
	})
}

// ReorderLinks is ReorderCategories one level down: a link moves only if its
// category belongs to the user.
func (s *Store) ReorderLinks(ctx context.Context, userID uint, updates []PositionUpdate) (int, error) {
	applied := 0

	err := s.transaction(ctx, "reorder links", func(tx *gorm.DB) error {
		n, err := applyPositions(tx, &models.Link{}, updates, func(q *gorm.DB) *gorm.DB {
			return q.Where("category_id IN (?)", ownedCategoryIDs(tx, userID))
		})
		applied = n
		return err
	})

	if err != nil {
		return 0, err
	}

	return applied, nil
}
