package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ilinks-dev/ilinks/internal/types"
	"github.com/ilinks-dev/ilinks/internal/utils"
)

const uploadsURLPrefix = "/uploads/"

var wallpaperTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// UploadWallpaper accepts a multipart "wallpaper" image, stores it under the
// upload dir and points the user's wallpaper at it.
func (h *Handler) UploadWallpaper(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	file, err := ctx.FormFile("wallpaper")

	if err != nil {
		respondBindError(ctx, err)
		return
	}

	if file.Size > h.maxUploadBytes {
		ctx.JSON(http.StatusRequestEntityTooLarge, types.ErrorResponse{
			Code:  types.CodeValidation,
			Error: "Wallpaper is too large",
			Field: "wallpaper",
		})
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	expected, known := wallpaperTypes[ext]
	contentType := file.Header.Get("Content-Type")

	if !known || (contentType != "" && contentType != expected && !(expected == "image/jpeg" && contentType == "image/jpg")) {
		ctx.JSON(http.StatusBadRequest, types.ErrorResponse{
			Code:  types.CodeValidation,
			Error: "Only image files are allowed (jpeg, jpg, png, gif, webp)",
			Field: "wallpaper",
		})
		return
	}

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		utils.Logger(ctx).WithError(err).Error("Failed to create upload dir")
		respondInternal(ctx)
		return
	}

	name := "wallpaper-" + uuid.NewString() + ext
	dst := filepath.Join(h.uploadDir, name)

	if err := ctx.SaveUploadedFile(file, dst); err != nil {
		utils.Logger(ctx).WithError(err).Error("Failed to save wallpaper")
		respondInternal(ctx)
		return
	}

	wallpaper := uploadsURLPrefix + name
	previous, err := h.store.SetWallpaper(ctx.Request.Context(), userID, &wallpaper)

	if err != nil {
		_ = os.Remove(dst)
		respondError(ctx, err, "User")
		return
	}

	h.removeReplacedUpload(ctx, previous, wallpaper)

	ctx.JSON(http.StatusOK, gin.H{
		"message":   "Wallpaper uploaded",
		"wallpaper": wallpaper,
	})
}

// removeReplacedUpload deletes a previously uploaded wallpaper file once the
// user points at something else. External URLs are left alone.
func (h *Handler) removeReplacedUpload(ctx *gin.Context, previous *string, current string) {
	if previous == nil || *previous == current || !strings.HasPrefix(*previous, uploadsURLPrefix) {
		return
	}

	path := filepath.Join(h.uploadDir, filepath.Base(*previous))

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		utils.Logger(ctx).WithError(err).WithField("path", path).Warn("Failed to remove old wallpaper")
	}
}
