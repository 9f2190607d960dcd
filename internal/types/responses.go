package types

import "gorm.io/datatypes"

type UserResponse struct {
	ID         uint           `json:"id"`
	Username   string         `json:"username"`
	Email      *string        `json:"email"`
	Wallpaper  *string        `json:"wallpaper"`
	UISettings datatypes.JSON `json:"ui_settings"`
}

type LinkResponse struct {
	ID         uint    `json:"id"`
	CategoryID uint    `json:"category_id"`
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Icon       *string `json:"icon"`
	Position   int     `json:"position"`
}

type CategoryResponse struct {
	ID       uint           `json:"id"`
	UserID   uint           `json:"user_id"`
	Name     string         `json:"name"`
	Icon     *string        `json:"icon"`
	Position int            `json:"position"`
	Links    []LinkResponse `json:"links"`
}

type ImportedCategoryResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Position  int    `json:"position"`
	LinkCount int    `json:"link_count"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// Stable error codes.
const (
	CodeValidation   = "validation_error"
	CodeNotFound     = "not_found"
	CodeConflict     = "conflict"
	CodeStorage      = "storage_error"
	CodeUnauthorized = "unauthorized"
	CodeRateLimited  = "rate_limited"
)
