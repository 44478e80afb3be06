package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration in a structured way.
type Config struct {
	App      AppConfig
	Upstream UpstreamConfig
	Feed     FeedConfig
	UI       UIConfig
	Paths    PathsConfig
	Database DatabaseConfig
}

type AppConfig struct {
	Version            string
	Port               string
	Debug              bool
	Environment        string
	BasicAuth          []string
	BasePath           string
	TrustedProxies     []string
	BaseUrl            string
	CorsAllowedOrigins []string
	ServerID           string
}

// UpstreamConfig points at the channel management API.
type UpstreamConfig struct {
	BaseURL string
	Timeout time.Duration
}

// FeedConfig describes the event feed connection and its reconnect policy.
type FeedConfig struct {
	URL               string
	ReconnectAttempts int
	ReconnectDelay    time.Duration
}

type UIConfig struct {
	// ModalDismissDelay is how long a handshake modal keeps showing the
	// success state before auto-closing.
	ModalDismissDelay time.Duration
}

type PathsConfig struct {
	BaseDir  string
	Storages string
}

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string // File path for SQLite, DB name for Postgres
	ValkeyEnabled   bool
	ValkeyAddress   string
	ValkeyPassword  string
	ValkeyDB        int
	ValkeyKeyPrefix string
}

// Global provides access to the loaded configuration globally.
var Global *Config

// LoadConfig loads configuration from environment variables or defaults.
// Values are read through viper, so anything godotenv loaded into the
// environment is visible here too.
func LoadConfig() (*Config, error) {
	viper.AutomaticEnv()

	baseDir := getEnv("APP_BASE_DIR", "storages")

	var basicAuth []string
	if v := getEnv("APP_BASIC_AUTH", ""); v != "" {
		basicAuth = strings.Split(v, ",")
	}

	corsOrigins := []string{"http://localhost:4500", "http://localhost:5173"}
	if v := getEnv("APP_CORS_ALLOWED_ORIGINS", ""); v != "" {
		corsOrigins = strings.Split(v, ",")
	}

	appCfg := AppConfig{
		Version:            "v1.0.0",
		Port:               getEnv("APP_PORT", "4500"),
		Debug:              getEnvBool("APP_DEBUG", false),
		Environment:        getEnv("APP_ENV", "development"),
		BasicAuth:          basicAuth,
		BasePath:           getEnv("APP_BASE_PATH", ""),
		BaseUrl:            getEnv("APP_BASE_URL", "http://localhost:4500"),
		CorsAllowedOrigins: corsOrigins,
		ServerID:           getEnv("SERVER_ID", ""),
	}
	if v := getEnv("APP_TRUSTED_PROXIES", ""); v != "" {
		appCfg.TrustedProxies = strings.Split(v, ",")
	}

	pathsCfg := PathsConfig{
		BaseDir:  baseDir,
		Storages: baseDir,
	}

	dbCfg := DatabaseConfig{
		Driver:          getEnv("DB_DRIVER", "sqlite"),
		Name:            getEnv("DB_NAME", filepath.Join(pathsCfg.Storages, "console.db")),
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "postgres"),
		Password:        getEnv("DB_PASSWORD", ""),
		ValkeyEnabled:   getEnvBool("VALKEY_ENABLED", false),
		ValkeyAddress:   getEnv("VALKEY_ADDRESS", "localhost:6379"),
		ValkeyPassword:  getEnv("VALKEY_PASSWORD", ""),
		ValkeyDB:        getEnvInt("VALKEY_DB", 0),
		ValkeyKeyPrefix: getEnv("VALKEY_KEY_PREFIX", "waconsole:"),
	}

	upstreamCfg := UpstreamConfig{
		BaseURL: getEnv("UPSTREAM_BASE_URL", "http://localhost:4600"),
		Timeout: getEnvDuration("UPSTREAM_TIMEOUT", 30*time.Second),
	}

	feedCfg := FeedConfig{
		URL:               getEnv("UPSTREAM_WS_URL", "ws://localhost:4600/events"),
		ReconnectAttempts: getEnvInt("WS_RECONNECT_ATTEMPTS", 5),
		ReconnectDelay:    getEnvDuration("WS_RECONNECT_DELAY", 3*time.Second),
	}

	uiCfg := UIConfig{
		ModalDismissDelay: getEnvDuration("MODAL_DISMISS_DELAY", 3*time.Second),
	}

	cfg := &Config{
		App:      appCfg,
		Upstream: upstreamCfg,
		Feed:     feedCfg,
		UI:       uiCfg,
		Paths:    pathsCfg,
		Database: dbCfg,
	}

	Global = cfg
	return cfg, nil
}
