package store

import (
	"time"

	"github.com/ilinks-dev/ilinks/internal/models"
	"gorm.io/gorm"
)

// PositionUpdate moves one row to Position within its scope.
type PositionUpdate struct {
	ID       uint
	Position int
}

// nextCategoryPosition applies the append rule to a user's categories: the
// current maximum plus one, with an empty scope counting as zero.
func nextCategoryPosition(tx *gorm.DB, userID uint) (int, error) {
	return nextPosition(tx, &models.Category{}, "user_id = ?", userID)
}

// nextLinkPosition applies the append rule within one category.
func nextLinkPosition(tx *gorm.DB, categoryID uint) (int, error) {
	return nextPosition(tx, &models.Link{}, "category_id = ?", categoryID)
}

func nextPosition(tx *gorm.DB, model interface{}, scope string, args ...interface{}) (int, error) {
	var highest int

	err := tx.Model(model).
		Where(scope, args...).
		Select("COALESCE(MAX(position), 0)").
		Scan(&highest).Error

	if err != nil {
		return 0, storageErr(err, "read max position")
	}

	return highest + 1, nil
}

// applyPositions issues one scoped UPDATE per pair. Pairs whose id falls
// outside the scope match no row and are skipped; the count of rows that did
// move is returned.
func applyPositions(tx *gorm.DB, model interface{}, updates []PositionUpdate, scope func(*gorm.DB) *gorm.DB) (int, error) {
	applied := 0
	now := time.Now()

	for _, u := range updates {
		result := scope(tx.Model(model).Where("id = ?", u.ID)).
			Updates(map[string]interface{}{
				"position":   u.Position,
				"updated_at": now,
			})

		if result.Error != nil {
			return applied, storageErr(result.Error, "update position")
		}

		applied += int(result.RowsAffected)
	}

	return applied, nil
}

// orderByPosition is the canonical display order. Equal positions are
// allowed; the row id breaks the tie so repeated reads agree.
func orderByPosition(tx *gorm.DB) *gorm.DB {
	return tx.Order("position ASC").Order("id ASC")
}
