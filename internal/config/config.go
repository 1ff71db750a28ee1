package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	Backend BackendConfig
	Draft   DraftConfig
	Session SessionConfig
	Map     MapConfig
	CORS    CORSConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string
	Env  string
}

// BackendConfig holds the cemetery backend connection configuration.
type BackendConfig struct {
	BaseURL      string
	Timeout      time.Duration
	PollInterval time.Duration
}

// DraftConfig selects and configures the wizard draft store.
type DraftConfig struct {
	Backend       string // "file" or "redis"
	Dir           string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Debounce      time.Duration
}

// SessionConfig holds wizard session lifecycle configuration.
type SessionConfig struct {
	TTL time.Duration
}

// MapConfig holds the default camera framing for the cemetery map.
type MapConfig struct {
	CenterLat   float64
	CenterLng   float64
	DefaultZoom int
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	Origins []string
}

// Load reads configuration from environment variables.
// It uses viper to read values and provides sensible defaults for development.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults for development
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("BACKEND_BASE_URL", "http://localhost:9000/api")
	v.SetDefault("BACKEND_TIMEOUT_SECONDS", 20)
	v.SetDefault("POLL_INTERVAL_SECONDS", 8)
	v.SetDefault("DRAFT_BACKEND", "file")
	v.SetDefault("DRAFT_DIR", "./drafts")
	v.SetDefault("DRAFT_DEBOUNCE_MS", 450)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SESSION_TTL_MINUTES", 60)
	v.SetDefault("MAP_CENTER_LAT", 14.6317)
	v.SetDefault("MAP_CENTER_LNG", 121.0433)
	v.SetDefault("MAP_DEFAULT_ZOOM", 18)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")

	// Bind environment variables
	v.AutomaticEnv()

	// Build configuration
	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetString("PORT"),
			Env:  v.GetString("ENV"),
		},
		Backend: BackendConfig{
			BaseURL:      v.GetString("BACKEND_BASE_URL"),
			Timeout:      time.Duration(v.GetInt("BACKEND_TIMEOUT_SECONDS")) * time.Second,
			PollInterval: time.Duration(v.GetInt("POLL_INTERVAL_SECONDS")) * time.Second,
		},
		Draft: DraftConfig{
			Backend:       strings.ToLower(v.GetString("DRAFT_BACKEND")),
			Dir:           v.GetString("DRAFT_DIR"),
			RedisAddr:     v.GetString("REDIS_ADDR"),
			RedisPassword: v.GetString("REDIS_PASSWORD"),
			RedisDB:       v.GetInt("REDIS_DB"),
			Debounce:      time.Duration(v.GetInt("DRAFT_DEBOUNCE_MS")) * time.Millisecond,
		},
		Session: SessionConfig{
			TTL: time.Duration(v.GetInt("SESSION_TTL_MINUTES")) * time.Minute,
		},
		Map: MapConfig{
			CenterLat:   v.GetFloat64("MAP_CENTER_LAT"),
			CenterLng:   v.GetFloat64("MAP_CENTER_LNG"),
			DefaultZoom: v.GetInt("MAP_DEFAULT_ZOOM"),
		},
		CORS: CORSConfig{
			Origins: parseOrigins(v.GetString("CORS_ORIGINS")),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	// Validate backend config
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("BACKEND_BASE_URL is required")
	}
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BACKEND_BASE_URL must be an absolute URL")
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT_SECONDS must be positive")
	}
	if c.Backend.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL_SECONDS must be positive")
	}

	// Validate draft config
	switch c.Draft.Backend {
	case "file":
		if c.Draft.Dir == "" {
			return fmt.Errorf("DRAFT_DIR is required for the file draft backend")
		}
	case "redis":
		if c.Draft.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis draft backend")
		}
	default:
		return fmt.Errorf("DRAFT_BACKEND must be one of: file, redis")
	}
	if c.Draft.Debounce < 0 {
		return fmt.Errorf("DRAFT_DEBOUNCE_MS must be non-negative")
	}

	// Validate session config
	if c.Session.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL_MINUTES must be positive")
	}

	// Validate map config
	if c.Map.CenterLat < -90 || c.Map.CenterLat > 90 {
		return fmt.Errorf("MAP_CENTER_LAT must be between -90 and 90")
	}
	if c.Map.CenterLng < -180 || c.Map.CenterLng > 180 {
		return fmt.Errorf("MAP_CENTER_LNG must be between -180 and 180")
	}
	if c.Map.DefaultZoom < 1 || c.Map.DefaultZoom > 22 {
		return fmt.Errorf("MAP_DEFAULT_ZOOM must be between 1 and 22")
	}

	// Validate CORS config
	if len(c.CORS.Origins) == 0 {
		return fmt.Errorf("CORS_ORIGINS is required")
	}

	return nil
}

// parseOrigins splits a comma-separated string of origins into a slice.
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
