package config

import (
	"github.com/spf13/viper"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	// Server
	Port int    `mapstructure:"PORT"`
	Env  string `mapstructure:"APP_ENV"` // development | production

	// Storage
	DBPath string `mapstructure:"DB_PATH"` // ":memory:" for ephemeral

	// Default thresholds applied when a key has no override
	DefaultLowStockThreshold float64 `mapstructure:"DEFAULT_LOW_STOCK_THRESHOLD"`
	DefaultReorderPoint      float64 `mapstructure:"DEFAULT_REORDER_POINT"`
	DefaultReorderQuantity   float64 `mapstructure:"DEFAULT_REORDER_QUANTITY"`

	// How many days ahead expiring batches are flagged
	ExpiryWindowDays int `mapstructure:"EXPIRY_WINDOW_DAYS"`

	// Logging
	LogLevel string `mapstructure:"LOG_LEVEL"`
}

// Load reads configuration from environment variables (and an optional .env
// file for local development).
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	viper.SetDefault("PORT", 8080)
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("DB_PATH", "inventory.db")
	viper.SetDefault("DEFAULT_LOW_STOCK_THRESHOLD", 10)
	viper.SetDefault("DEFAULT_REORDER_POINT", 20)
	viper.SetDefault("DEFAULT_REORDER_QUANTITY", 0)
	viper.SetDefault("EXPIRY_WINDOW_DAYS", 30)
	viper.SetDefault("LOG_LEVEL", "info")

	// The .env file is optional - ignore a missing one.
	_ = viper.ReadInConfig()

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
