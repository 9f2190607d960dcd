package store

import (
	"errors"

	"github.com/ilinks-dev/ilinks/internal/models"
	"gorm.io/gorm"
)

// ownedCategory loads a category only if userID owns it. Existence and
// ownership are checked by one query so a non-owner learns nothing.
func ownedCategory(tx *gorm.DB, id, userID uint) (*models.Category, error) {
	var category models.Category

	err := tx.Where("id = ? AND user_id = ?", id, userID).First(&category).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, storageErr(err, "lookup category")
	}

	return &category, nil
}

// ownedLink resolves a link's owner through its parent category.
func ownedLink(tx *gorm.DB, id, userID uint) (*models.Link, error) {
	var link models.Link

	err := tx.Joins("JOIN categories ON categories.id = links.category_id").
		Where("links.id = ? AND categories.user_id = ?", id, userID).
		First(&link).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, storageErr(err, "lookup link")
	}

	return &link, nil
}

// ownedCategoryIDs is a subquery selecting the ids of userID's categories.
func ownedCategoryIDs(tx *gorm.DB, userID uint) *gorm.DB {
	return tx.Session(&gorm.Session{NewDB: true}).
		Model(&models.Category{}).
		Select("id").
		Where("user_id = ?", userID)
}
