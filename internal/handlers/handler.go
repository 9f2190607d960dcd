package handlers

import (
	"github.com/ilinks-dev/ilinks/internal/models"
	"github.com/ilinks-dev/ilinks/internal/store"
	"github.com/ilinks-dev/ilinks/internal/types"
)

const defaultMaxUploadBytes = 30 << 20

type Options struct {
	Store          *store.Store
	Hub            *Hub
	UploadDir      string
	MaxUploadBytes int64
}

// Handler serves the REST API. Every bookmark route runs behind
// middleware.AuthMiddleware, so the caller's id is always present.
type Handler struct {
	store          *store.Store
	hub            *Hub
	uploadDir      string
	maxUploadBytes int64
}

func New(opts Options) *Handler {
	if opts.UploadDir == "" {
		opts.UploadDir = "uploads"
	}

	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}

	return &Handler{
		store:          opts.Store,
		hub:            opts.Hub,
		uploadDir:      opts.UploadDir,
		maxUploadBytes: opts.MaxUploadBytes,
	}
}

func toUserResponse(user *models.User) types.UserResponse {
	return types.UserResponse{
		ID:         user.ID,
		Username:   user.Username,
		Email:      user.Email,
		Wallpaper:  user.Wallpaper,
		UISettings: user.UISettings,
	}
}

func toLinkResponse(link models.Link) types.LinkResponse {
	return types.LinkResponse{
		ID:         link.ID,
		CategoryID: link.CategoryID,
		Title:      link.Title,
		URL:        link.URL,
		Icon:       link.Icon,
		Position:   link.Position,
	}
}

func toCategoryResponse(category models.Category) types.CategoryResponse {
	links := make([]types.LinkResponse, 0, len(category.Links))

	for _, link := range category.Links {
		links = append(links, toLinkResponse(link))
	}

	return types.CategoryResponse{
		ID:       category.ID,
		UserID:   category.UserID,
		Name:     category.Name,
		Icon:     category.Icon,
		Position: category.Position,
		Links:    links,
	}
}
