package models

type Category struct {
	BaseModel

	UserID   uint   `gorm:"not null;index"`
	Name     string `gorm:"not null"`
	Icon     *string
	Position int `gorm:"not null;default:0"` // ascending within UserID

	// Relationships
	Links []Link `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}
