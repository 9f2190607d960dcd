package models

import "time"

// BaseModel is gorm.Model without soft deletes.
type BaseModel struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
