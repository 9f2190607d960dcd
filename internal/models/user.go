package models

import "gorm.io/datatypes"

type User struct {
	BaseModel

	Username     string  `gorm:"uniqueIndex;not null"`
	Email        *string `gorm:"uniqueIndex"`
	PasswordHash string  `gorm:"column:password;not null"`
	Wallpaper    *string
	UISettings   datatypes.JSON `gorm:"column:ui_settings"` // opaque, presentation only

	// Relationships
	Categories []Category `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}
