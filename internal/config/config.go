// Package config loads server settings from .env, an optional YAML file and
// the environment. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	keyPort           = "port"
	keyDBDriver       = "db_driver"
	keyDatabaseURL    = "database_url"
	keyJWTSecret      = "jwt_secret"
	keyTokenTTL       = "token_ttl"
	keyAllowedOrigins = "allowed_origins"
	keyClientURL      = "client_url"
	keyUploadDir      = "upload_dir"
	keyMaxUploadBytes = "max_upload_bytes"
	keyMaxBodyBytes   = "max_body_bytes"
	keyRedisAddr      = "redis_addr"
	keyAuthRateLimit  = "auth_rate_limit"
	keyAuthRateWindow = "auth_rate_window"
	keyStaticDir      = "static_dir"
	keyLogLevel       = "log_level"
	keyGinMode        = "gin_mode"
)

// Default allowed origins for development
var defaultOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://localhost:8080",
}

var knownDrivers = map[string]bool{
	"sqlite":     true,
	"postgres":   true,
	"postgresql": true,
	"mysql":      true,
}

var (
	ErrJWTSecretMissing = errors.New("JWT_SECRET must be set")
	ErrDriverUnknown    = errors.New("unknown DB_DRIVER")
)

type Config struct {
	Port           string
	DBDriver       string
	DatabaseURL    string
	JWTSecret      string
	TokenTTL       time.Duration
	AllowedOrigins []string
	UploadDir      string
	MaxUploadBytes int64
	MaxBodyBytes   int64
	RedisAddr      string
	AuthRateLimit  int
	AuthRateWindow time.Duration
	StaticDir      string
	LogLevel       string
	GinMode        string
}

// Load reads .env if present, then the environment, then configFile when it
// is not empty. A missing .env is not an error.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return fromViper(v), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyPort, "3001")
	v.SetDefault(keyDBDriver, "sqlite")
	v.SetDefault(keyDatabaseURL, "ilinks.db")
	v.SetDefault(keyTokenTTL, 7*24*time.Hour)
	v.SetDefault(keyAllowedOrigins, "")
	v.SetDefault(keyClientURL, "")
	v.SetDefault(keyUploadDir, "uploads")
	v.SetDefault(keyMaxUploadBytes, 30<<20)
	v.SetDefault(keyMaxBodyBytes, 50<<20)
	v.SetDefault(keyRedisAddr, "")
	v.SetDefault(keyAuthRateLimit, 20)
	v.SetDefault(keyAuthRateWindow, time.Minute)
	v.SetDefault(keyStaticDir, "")
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyGinMode, "release")
	v.SetDefault(keyJWTSecret, "")
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Port:           v.GetString(keyPort),
		DBDriver:       strings.ToLower(v.GetString(keyDBDriver)),
		DatabaseURL:    v.GetString(keyDatabaseURL),
		JWTSecret:      v.GetString(keyJWTSecret),
		TokenTTL:       v.GetDuration(keyTokenTTL),
		AllowedOrigins: allowedOrigins(v.GetString(keyAllowedOrigins), v.GetString(keyClientURL)),
		UploadDir:      v.GetString(keyUploadDir),
		MaxUploadBytes: v.GetInt64(keyMaxUploadBytes),
		MaxBodyBytes:   v.GetInt64(keyMaxBodyBytes),
		RedisAddr:      v.GetString(keyRedisAddr),
		AuthRateLimit:  v.GetInt(keyAuthRateLimit),
		AuthRateWindow: v.GetDuration(keyAuthRateWindow),
		StaticDir:      v.GetString(keyStaticDir),
		LogLevel:       v.GetString(keyLogLevel),
		GinMode:        v.GetString(keyGinMode),
	}
}

func allowedOrigins(list, clientURL string) []string {
	origins := make([]string, len(defaultOrigins))
	copy(origins, defaultOrigins)

	if clientURL != "" {
		origins = append(origins, clientURL)
	}

	for _, origin := range strings.Split(list, ",") {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			origins = append(origins, trimmed)
		}
	}

	return origins
}

// Validate checks settings needed to serve traffic.
func (c *Config) Validate() error {
	if !knownDrivers[c.DBDriver] {
		return fmt.Errorf("%w: %s", ErrDriverUnknown, c.DBDriver)
	}

	if c.JWTSecret == "" {
		return ErrJWTSecretMissing
	}

	return nil
}
