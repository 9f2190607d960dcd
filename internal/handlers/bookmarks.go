package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ilinks-dev/ilinks/internal/bookmarkhtml"
	"github.com/ilinks-dev/ilinks/internal/store"
	"github.com/ilinks-dev/ilinks/internal/types"
	"github.com/ilinks-dev/ilinks/internal/utils"
)

type CreateCategoryRequest struct {
	Name string  `json:"name" binding:"required"`
	Icon *string `json:"icon"`
}

type UpdateCategoryRequest struct {
	Name     *string `json:"name"`
	Icon     *string `json:"icon"`
	Position *int    `json:"position"`
}

type CreateLinkRequest struct {
	Title string  `json:"title" binding:"required"`
	URL   string  `json:"url" binding:"required"`
	Icon  *string `json:"icon"`
}

type UpdateLinkRequest struct {
	Title    *string `json:"title"`
	URL      *string `json:"url"`
	Icon     *string `json:"icon"`
	Position *int    `json:"position"`
}

type PositionItem struct {
	ID       uint `json:"id" binding:"required"`
	Position *int `json:"position" binding:"required"`
}

type ReorderCategoriesRequest struct {
	Categories []PositionItem `json:"categories" binding:"required,dive"`
}

type ReorderLinksRequest struct {
	Links []PositionItem `json:"links" binding:"required,dive"`
}

type ImportLinkRequest struct {
	Title string  `json:"title"`
	URL   string  `json:"url"`
	Icon  *string `json:"icon"`
}

type ImportCategoryRequest struct {
	Name  string              `json:"name"`
	Icon  *string             `json:"icon"`
	Links []ImportLinkRequest `json:"links"`
}

type ImportRequest struct {
	Categories []ImportCategoryRequest `json:"categories" binding:"required"`
}

func (h *Handler) ListBookmarks(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	categories, err := h.store.ListCategoriesWithLinks(ctx.Request.Context(), userID)

	if err != nil {
		respondError(ctx, err, "Category")
		return
	}

	response := make([]types.CategoryResponse, 0, len(categories))

	for _, category := range categories {
		response = append(response, toCategoryResponse(category))
	}

	ctx.JSON(http.StatusOK, response)
}

func (h *Handler) CreateCategory(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req CreateCategoryRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBindError(ctx, err)
		return
	}

	category, err := h.store.CreateCategory(ctx.Request.Context(), userID, store.CategoryInput{
		Name: req.Name,
		Icon: req.Icon,
	})

	if err != nil {
		respondError(ctx, err, "Category")
		return
	}

	h.hub.BroadcastRefresh(userID)

	ctx.JSON(http.StatusCreated, toCategoryResponse(*category))
}

func (h *Handler) UpdateCategory(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	categoryID, ok := pathID(ctx, "id", "Category")
	if !ok {
		return
	}

	var req UpdateCategoryRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBindError(ctx, err)
		return
	}

	err := h.store.UpdateCategory(ctx.Request.Context(), categoryID, userID, store.CategoryPatch{
		Name:     req.Name,
		Icon:     req.Icon,
		Position: req.Position,
	})

	if err != nil {
		respondError(ctx, err, "Category")
		return
	}

	h.hub.BroadcastRefresh(userID)

	ctx.JSON(http.StatusOK, gin.H{"message": "Category updated"})
}

func (h *Handler) DeleteCategory(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	categoryID, ok := pathID(ctx, "id", "Category")
	if !ok {
		return
	}

	if err := h.store.DeleteCategory(ctx.Request.Context(), categoryID, userID); err != nil {
		respondError(ctx, err, "Category")
		return
	}

	h.hub.BroadcastRefresh(userID)

	ctx.JSON(http.StatusOK, gin.H{"message": "Category deleted"})
}

func (h *Handler) ReorderCategories(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req ReorderCategoriesRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBindError(ctx, err)
		return
	}

	updated, err := h.store.ReorderCategories(ctx.Request.Context(), userID, toPositionUpdates(req.Categories))

	if err != nil {
		respondError(ctx, err, "Category")
		return
	}

	h.hub.BroadcastRefresh(userID)

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Categories reordered",
		"updated": updated,
	})
}

func (h *Handler) AddLink(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	categoryID, ok := pathID(ctx, "id", "Category")
	if !ok {
		return
	}

	var req CreateLinkRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBindError(ctx, err)
		return
	}

	link, err := h.store.CreateLink(ctx.Request.Context(), categoryID, userID, store.LinkInput{
		Title: req.Title,
		URL:   req.URL,
		Icon:  req.Icon,
	})

	if err != nil {
		respondError(ctx, err, "Category")
		return
	}

	h.hub.BroadcastRefresh(userID)

	ctx.JSON(http.StatusCreated, toLinkResponse(*link))
}

func (h *Handler) UpdateLink(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	linkID, ok := pathID(ctx, "id", "Link")
	if !ok {
		return
	}

	var req UpdateLinkRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBindError(ctx, err)
		return
	}

	err := h.store.UpdateLink(ctx.Request.Context(), linkID, userID, store.LinkPatch{
		Title:    req.Title,
		URL:      req.URL,
		Icon:     req.Icon,
		Position: req.Position,
	})

	if err != nil {
		respondError(ctx, err, "Link")
		return
	}

	h.hub.BroadcastRefresh(userID)

	ctx.JSON(http.StatusOK, gin.H{"message": "Link updated"})
}

func (h *Handler) DeleteLink(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	linkID, ok := pathID(ctx, "id", "Link")
	if !ok {
		return
	}

	if err := h.store.DeleteLink(ctx.Request.Context(), linkID, userID); err != nil {
		respondError(ctx, err, "Link")
		return
	}

	h.hub.BroadcastRefresh(userID)

	ctx.JSON(http.StatusOK, gin.H{"message": "Link deleted"})
}

func (h *Handler) ReorderLinks(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req ReorderLinksRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBindError(ctx, err)
		return
	}

	updated, err := h.store.ReorderLinks(ctx.Request.Context(), userID, toPositionUpdates(req.Links))

	if err != nil {
		respondError(ctx, err, "Link")
		return
	}

	h.hub.BroadcastRefresh(userID)

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Links reordered",
		"updated": updated,
	})
}

func (h *Handler) ImportBookmarks(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req ImportRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBindError(ctx, err)
		return
	}

	folders := make([]store.ImportFolder, 0, len(req.Categories))

	for _, category := range req.Categories {
		folder := store.ImportFolder{Name: category.Name, Icon: category.Icon}

		for _, link := range category.Links {
			folder.Links = append(folder.Links, store.ImportLink{
				Title: link.Title,
				URL:   link.URL,
				Icon:  link.Icon,
			})
		}

		folders = append(folders, folder)
	}

	h.importFolders(ctx, userID, folders)
}

// ImportBookmarksHTML takes a browser bookmark export as multipart "file".
func (h *Handler) ImportBookmarksHTML(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	file, err := ctx.FormFile("file")

	if err != nil {
		respondBindError(ctx, err)
		return
	}

	src, err := file.Open()

	if err != nil {
		utils.Logger(ctx).WithError(err).Error("Failed to open bookmark file")
		respondInternal(ctx)
		return
	}
	defer src.Close()

	parsed, err := bookmarkhtml.Parse(src)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, types.ErrorResponse{
			Code:  types.CodeValidation,
			Error: "Could not read bookmark file",
			Field: "file",
		})
		return
	}

	folders := make([]store.ImportFolder, 0, len(parsed))

	for _, folder := range parsed {
		imported := store.ImportFolder{Name: folder.Name}

		for _, link := range folder.Links {
			imported.Links = append(imported.Links, store.ImportLink{
				Title: link.Title,
				URL:   link.URL,
				Icon:  optional(link.Icon),
			})
		}

		folders = append(folders, imported)
	}

	h.importFolders(ctx, userID, folders)
}

func (h *Handler) importFolders(ctx *gin.Context, userID uint, folders []store.ImportFolder) {
	imported, err := h.store.ImportTree(ctx.Request.Context(), userID, folders)

	if err != nil {
		respondError(ctx, err, "Category")
		return
	}

	response := make([]types.ImportedCategoryResponse, 0, len(imported))

	for _, category := range imported {
		response = append(response, types.ImportedCategoryResponse{
			ID:        category.ID,
			Name:      category.Name,
			Position:  category.Position,
			LinkCount: category.LinkCount,
		})
	}

	if len(response) > 0 {
		h.hub.BroadcastRefresh(userID)
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message":    "Bookmarks imported",
		"categories": response,
	})
}

func (h *Handler) DeleteAll(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	result, err := h.store.DeleteAllForUser(ctx.Request.Context(), userID)

	if err != nil {
		respondError(ctx, err, "Category")
		return
	}

	utils.Logger(ctx).WithField("user_id", userID).
		WithField("deleted_links", result.DeletedLinks).
		WithField("deleted_categories", result.DeletedCategories).
		Info("Deleted all bookmarks")

	h.hub.BroadcastRefresh(userID)

	ctx.JSON(http.StatusOK, gin.H{
		"message":            "All bookmarks deleted",
		"deleted_links":      result.DeletedLinks,
		"deleted_categories": result.DeletedCategories,
	})
}

func toPositionUpdates(items []PositionItem) []store.PositionUpdate {
	updates := make([]store.PositionUpdate, 0, len(items))

	for _, item := range items {
		updates = append(updates, store.PositionUpdate{ID: item.ID, Position: *item.Position})
	}

	return updates
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
