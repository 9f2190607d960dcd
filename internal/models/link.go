package models

type Link struct {
	BaseModel

	CategoryID uint   `gorm:"not null;index"`
	Title      string `gorm:"not null"`
	URL        string `gorm:"column:url;not null"`
	Icon       *string
	Position   int `gorm:"not null;default:0"` // ascending within CategoryID
}
