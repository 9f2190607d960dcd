package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ilinks-dev/ilinks/internal/auth"
	"github.com/ilinks-dev/ilinks/internal/store"
	"github.com/ilinks-dev/ilinks/internal/types"
	"github.com/ilinks-dev/ilinks/internal/utils"
	"gorm.io/datatypes"
)

type RegisterRequest struct {
	Username string  `json:"username" binding:"required"`
	Password string  `json:"password" binding:"required,min=6,max=72"`
	Email    *string `json:"email" binding:"omitempty,email"`
}

type LoginRequest struct {
	// Username may also hold the account's email address.
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UpdateWallpaperRequest struct {
	Wallpaper *string `json:"wallpaper"`
}

type UpdateUISettingsRequest struct {
	UISettings json.RawMessage `json:"ui_settings"`
}

type authResponse struct {
	Message string             `json:"message"`
	Token   string             `json:"token"`
	User    types.UserResponse `json:"user"`
}

func (h *Handler) Register(ctx *gin.Context) {
	var req RegisterRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBindError(ctx, err)
		return
	}

	username := strings.TrimSpace(req.Username)

	if len([]rune(username)) < 3 {
		respondError(ctx, &store.ValidationError{Field: "username", Message: "must be at least 3 characters"}, "User")
		return
	}

	var email *string

	if req.Email != nil {
		if normalized := strings.ToLower(strings.TrimSpace(*req.Email)); normalized != "" {
			email = &normalized
		}
	}

	passwordHash, err := auth.HashPassword(req.Password)

	if errors.Is(err, auth.ErrPasswordTooLong) {
		respondError(ctx, &store.ValidationError{Field: "password", Message: fmt.Sprintf("must be at most %d bytes", auth.MaxPasswordBytes)}, "User")
		return
	}

	if err != nil {
		utils.Logger(ctx).WithError(err).Error("Failed to hash password")
		respondInternal(ctx)
		return
	}

	user, err := h.store.CreateUser(ctx.Request.Context(), username, email, passwordHash)

	if err != nil {
		respondError(ctx, err, "User")
		return
	}

	token, err := auth.GenerateJWT(user.ID, user.Username)

	if err != nil {
		utils.Logger(ctx).WithError(err).Error("Failed to generate JWT")
		respondInternal(ctx)
		return
	}

	ctx.JSON(http.StatusCreated, authResponse{
		Message: "Registered successfully",
		Token:   token,
		User:    toUserResponse(user),
	})
}

func (h *Handler) Login(ctx *gin.Context) {
	var req LoginRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBindError(ctx, err)
		return
	}

	user, err := h.store.FindUserByLogin(ctx.Request.Context(), strings.TrimSpace(req.Username))

	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondUnauthorized(ctx, "Invalid username or password")
			return
		}
		respondError(ctx, err, "User")
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		respondUnauthorized(ctx, "Invalid username or password")
		return
	}

	token, err := auth.GenerateJWT(user.ID, user.Username)

	if err != nil {
		utils.Logger(ctx).WithError(err).Error("Failed to generate JWT")
		respondInternal(ctx)
		return
	}

	ctx.JSON(http.StatusOK, authResponse{
		Message: "Logged in successfully",
		Token:   token,
		User:    toUserResponse(user),
	})
}

func (h *Handler) Me(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	user, err := h.store.FindUserByID(ctx.Request.Context(), userID)

	if err != nil {
		respondError(ctx, err, "User")
		return
	}

	ctx.JSON(http.StatusOK, toUserResponse(user))
}

// UpdateWallpaper stores a wallpaper URL. An empty value clears it. Local
// upload paths are only accepted when they are already the caller's own.
func (h *Handler) UpdateWallpaper(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req UpdateWallpaperRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBindError(ctx, err)
		return
	}

	wallpaper := ""
	if req.Wallpaper != nil {
		wallpaper = strings.TrimSpace(*req.Wallpaper)
	}

	if strings.HasPrefix(wallpaper, uploadsURLPrefix) {
		user, err := h.store.FindUserByID(ctx.Request.Context(), userID)

		if err != nil {
			respondError(ctx, err, "User")
			return
		}

		if user.Wallpaper == nil || *user.Wallpaper != wallpaper {
			respondError(ctx, &store.ValidationError{Field: "wallpaper", Message: "must be an external URL; use the upload endpoint for images"}, "User")
			return
		}
	}

	previous, err := h.store.SetWallpaper(ctx.Request.Context(), userID, &wallpaper)

	if err != nil {
		respondError(ctx, err, "User")
		return
	}

	h.removeReplacedUpload(ctx, previous, wallpaper)

	ctx.JSON(http.StatusOK, gin.H{
		"message":   "Wallpaper updated",
		"wallpaper": wallpaper,
	})
}

func (h *Handler) UpdateUISettings(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req UpdateUISettingsRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBindError(ctx, err)
		return
	}

	var settings datatypes.JSON

	if len(req.UISettings) > 0 && string(req.UISettings) != "null" {
		settings = datatypes.JSON(req.UISettings)
	}

	if err := h.store.SetUISettings(ctx.Request.Context(), userID, settings); err != nil {
		respondError(ctx, err, "User")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":     "Settings updated",
		"ui_settings": settings,
	})
}
