// Package config loads deployment configuration: the active backend, its
// connection string, and the identifier classification policy threaded into
// the filter value normalizer.
package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the deployment configuration.
type Config struct {
	Backend              string
	DatabaseURL          string
	IdentifierExclusions []string
}

// Load reads configuration from a crossquery.yaml in the working directory
// (if present), a .env file (if present), and CROSSQUERY_* environment
// variables, in ascending priority.
func Load() (*Config, error) {
	viper.SetConfigName("crossquery")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("CROSSQUERY")
	viper.AutomaticEnv()

	viper.SetDefault("backend", "postgresql")

	// Config file and .env are both optional.
	_ = viper.ReadInConfig()
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}

	cfg := &Config{
		Backend:              viper.GetString("backend"),
		DatabaseURL:          viper.GetString("database_url"),
		IdentifierExclusions: viper.GetStringSlice("identifier_exclusions"),
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	return cfg, nil
}
