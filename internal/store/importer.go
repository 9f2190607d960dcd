package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/ilinks-dev/ilinks/internal/models"
	"gorm.io/gorm"
)

// ImportFolder is one parsed bookmark folder.
type ImportFolder struct {
	Name  string
	Icon  *string
	Links []ImportLink
}

type ImportLink struct {
	Title string
	URL   string
	Icon  *string
}

// ImportedCategory summarises a category created by ImportTree.
type ImportedCategory struct {
	ID        uint
	Name      string
	Position  int
	LinkCount int
}

// ImportTree turns folders into categories appended after the user's
// existing ones, one position apart and in input order. Links inside each new
// category take their zero-based index as position, which differs from the
// one-based append rule used by CreateLink; existing clients depend on it.
//
// The whole import is one transaction: either every folder lands or none.
func (s *Store) ImportTree(ctx context.Context, userID uint, folders []ImportFolder) ([]ImportedCategory, error) {
	if err := validateImport(folders); err != nil {
		return nil, err
	}

	imported := make([]ImportedCategory, 0, len(folders))

	err := s.transaction(ctx, "import bookmarks", func(tx *gorm.DB) error {
		position, err := nextCategoryPosition(tx, userID)

		if err != nil {
			return err
		}

		for _, folder := range folders {
			category := models.Category{
				UserID:   userID,
				Name:     strings.TrimSpace(folder.Name),
				Icon:     emptyToNil(folder.Icon),
				Position: position,
			}

			if err := tx.Create(&category).Error; err != nil {
				return err
			}

			if len(folder.Links) > 0 {
				links := make([]models.Link, 0, len(folder.Links))

				for i, l := range folder.Links {
					links = append(links, models.Link{
						CategoryID: category.ID,
						Title:      strings.TrimSpace(l.Title),
						URL:        strings.TrimSpace(l.URL),
						Icon:       emptyToNil(l.Icon),
						Position:   i,
					})
				}

				if err := tx.CreateInBatches(&links, 100).Error; err != nil {
					return err
				}
			}

			imported = append(imported, ImportedCategory{
				ID:        category.ID,
				Name:      category.Name,
				Position:  category.Position,
				LinkCount: len(folder.Links),
			})

			position++
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return imported, nil
}

func validateImport(folders []ImportFolder) error {
	for i, folder := range folders {
		if strings.TrimSpace(folder.Name) == "" {
			return invalid(fmt.Sprintf("categories[%d].name", i), "is required")
		}

		for j, l := range folder.Links {
			if strings.TrimSpace(l.Title) == "" {
				return invalid(fmt.Sprintf("categories[%d].links[%d].title", i, j), "is required")
			}

			if strings.TrimSpace(l.URL) == "" {
				return invalid(fmt.Sprintf("categories[%d].links[%d].url", i, j), "is required")
			}
		}
	}

	return nil
}
