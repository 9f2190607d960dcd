package router

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ilinks-dev/ilinks/internal/config"
	"github.com/ilinks-dev/ilinks/internal/handlers"
	"github.com/ilinks-dev/ilinks/internal/middleware"
	"github.com/ilinks-dev/ilinks/internal/store"
	"github.com/ilinks-dev/ilinks/internal/types"
	"github.com/sirupsen/logrus"
)

type Deps struct {
	Store   *store.Store
	Hub     *handlers.Hub
	Limiter *middleware.Limiter
	Log     *logrus.Logger
}

func NewRouter(cfg *config.Config, deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(deps.Log))
	r.Use(middleware.BodyLimit(cfg.MaxBodyBytes))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	h := handlers.New(handlers.Options{
		Store:          deps.Store,
		Hub:            deps.Hub,
		UploadDir:      cfg.UploadDir,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	requireAuth := middleware.AuthMiddleware(deps.Store)

	api := r.Group("/api")
	{
		api.GET("/health", h.HealthCheck)
		api.GET("/ws", requireAuth, h.WebSocket)

		auth := api.Group("/auth")
		{
			auth.POST("/register", deps.Limiter.Middleware("register"), h.Register)
			auth.POST("/login", deps.Limiter.Middleware("login"), h.Login)
			auth.GET("/me", requireAuth, h.Me)
			auth.PUT("/wallpaper", requireAuth, h.UpdateWallpaper)
			auth.POST("/wallpaper/upload", requireAuth, h.UploadWallpaper)
			auth.PUT("/ui-settings", requireAuth, h.UpdateUISettings)
		}

		bookmarks := api.Group("/bookmarks", requireAuth)
		{
			bookmarks.GET("", h.ListBookmarks)
			bookmarks.DELETE("/all", h.DeleteAll)
			bookmarks.POST("/import", h.ImportBookmarks)
			bookmarks.POST("/import/html", h.ImportBookmarksHTML)

			bookmarks.POST("/categories", h.CreateCategory)
			bookmarks.PUT("/categories/reorder", h.ReorderCategories)
			bookmarks.PUT("/categories/:id", h.UpdateCategory)
			bookmarks.DELETE("/categories/:id", h.DeleteCategory)
			bookmarks.POST("/categories/:id/links", h.AddLink)

			bookmarks.PUT("/links/reorder", h.ReorderLinks)
			bookmarks.PUT("/links/:id", h.UpdateLink)
			bookmarks.DELETE("/links/:id", h.DeleteLink)
		}
	}

	r.Static("/uploads", cfg.UploadDir)
	r.NoRoute(spaFallback(cfg.StaticDir))

	return r
}

// spaFallback serves files from dir and index.html for client-side routes.
// Unknown API paths stay JSON 404s.
func spaFallback(dir string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		path := ctx.Request.URL.Path

		if dir == "" || strings.HasPrefix(path, "/api/") || ctx.Request.Method != http.MethodGet {
			ctx.JSON(http.StatusNotFound, types.ErrorResponse{
				Code:  types.CodeNotFound,
				Error: "Route not found",
			})
			return
		}

		file := filepath.Join(dir, filepath.Clean("/"+path))

		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			ctx.File(file)
			return
		}

		ctx.File(filepath.Join(dir, "index.html"))
	}
}
