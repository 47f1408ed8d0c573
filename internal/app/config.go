package app

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	DBPath    string `envconfig:"DB_PATH" default:"stock.db"`
	TokenPath string `envconfig:"TOKEN_PATH" default:"tokens.json"`

	RedisAddr string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`

	SyncURL string `envconfig:"SYNC_URL" default:"http://localhost:3000/sync"`
	APIBase string `envconfig:"API_BASE" default:"http://localhost:5000/api"`

	SyncRetention time.Duration `envconfig:"SYNC_RETENTION" default:"168h"`
}

// LoadConfig reads configuration from the environment, honoring a local
// .env file and the legacy EXPO_PUBLIC_* variable names the mobile builds
// used.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if os.Getenv("SYNC_URL") == "" {
		if v := os.Getenv("EXPO_PUBLIC_SYNC_URL"); v != "" {
			cfg.SyncURL = v
		}
	}
	if os.Getenv("API_BASE") == "" {
		if v := os.Getenv("EXPO_PUBLIC_API_BASE"); v != "" {
			cfg.APIBase = v
		}
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
