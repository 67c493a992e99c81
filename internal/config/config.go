package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	DatabaseDSN string
	Env         string

	Log struct {
		Level  string
		Format string
	}
}

// Load reads configuration from the environment (optionally seeded by a .env
// file). Precedence: explicit env var > .env file > default.
func Load() Config {
	// .env is a dev convenience; missing file is fine.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("database_dsn", "file:invoices.db?_fk=1")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")

	cfg := Config{
		Port:        v.GetString("port"),
		DatabaseDSN: v.GetString("database_dsn"),
		Env:         v.GetString("app_env"),
	}
	cfg.Log.Level = v.GetString("log_level")
	cfg.Log.Format = v.GetString("log_format")
	return cfg
}
