package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Store backends selectable via STORE_BACKEND.
const (
	BackendSheets = "sheets"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	// Server
	Port int    `mapstructure:"PORT"`
	Env  string `mapstructure:"APP_ENV"` // development | production

	// Store
	StoreBackend string `mapstructure:"STORE_BACKEND"` // sheets | sqlite | memory
	SQLitePath   string `mapstructure:"SQLITE_PATH"`

	// Google Sheets / Drive
	SpreadsheetID     string `mapstructure:"SPREADSHEET_ID"`
	GoogleAccessToken string `mapstructure:"GOOGLE_ACCESS_TOKEN"`
	DriveFolderID     string `mapstructure:"DRIVE_FOLDER_ID"`
}

// Load reads configuration from environment variables (and optional .env file).
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Sensible defaults for development
	viper.SetDefault("PORT", 8080)
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("STORE_BACKEND", BackendSQLite)
	viper.SetDefault("SQLITE_PATH", "stock.db")

	// Optional .env file for local development — does not fail if missing
	_ = viper.ReadInConfig()

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case BackendSQLite, BackendMemory:
		return nil
	case BackendSheets:
		// The spreadsheet target is injected here, never hardcoded.
		if c.SpreadsheetID == "" {
			return fmt.Errorf("SPREADSHEET_ID is required with STORE_BACKEND=sheets")
		}
		if c.GoogleAccessToken == "" {
			return fmt.Errorf("GOOGLE_ACCESS_TOKEN is required with STORE_BACKEND=sheets")
		}
		return nil
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
}
