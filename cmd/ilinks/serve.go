package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ilinks-dev/ilinks/db"
	"github.com/ilinks-dev/ilinks/internal/auth"
	"github.com/ilinks-dev/ilinks/internal/config"
	"github.com/ilinks-dev/ilinks/internal/handlers"
	"github.com/ilinks-dev/ilinks/internal/logging"
	"github.com/ilinks-dev/ilinks/internal/middleware"
	"github.com/ilinks-dev/ilinks/internal/router"
	"github.com/ilinks-dev/ilinks/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logging.New(cfg.LogLevel)

	conn, err := openDatabase(cfg, log)
	if err != nil {
		return err
	}
	defer closeDB(conn, log)

	if err := auth.InitJWTSecret(cfg.JWTSecret, cfg.TokenTTL); err != nil {
		return err
	}

	gin.SetMode(cfg.GinMode)

	limiter := middleware.NewRedisLimiter(cfg.RedisAddr, cfg.AuthRateLimit, cfg.AuthRateWindow, log)

	engine := router.NewRouter(cfg, router.Deps{
		Store:   store.New(conn),
		Hub:     handlers.NewHub(cfg.AllowedOrigins, log),
		Limiter: limiter,
		Log:     log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Port).Info("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("gracefully shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// openDatabase connects and migrates.
func openDatabase(cfg *config.Config, log *logrus.Logger) (*gorm.DB, error) {
	conn, err := db.ConnectDatabase(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	if err := db.MigrateDatabase(conn); err != nil {
		closeDB(conn, log)
		return nil, err
	}

	log.WithField("driver", cfg.DBDriver).Info("database ready")

	return conn, nil
}

func closeDB(conn *gorm.DB, log *logrus.Logger) {
	sqlDB, err := conn.DB()
	if err != nil {
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.WithError(err).Warn("failed to close database")
	}
}
