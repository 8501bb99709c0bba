package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

type DatabaseConfig struct {
	Driver   string `toml:"driver"` // "sqlite3" or "postgres"
	Path     string `toml:"path"`   // sqlite3 file
	URL      string `toml:"url"`    // postgres URL, wins over the discrete fields
	Host     string `toml:"host"`
	Port     string `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Name     string `toml:"name"`
	Seed     bool   `toml:"seed"`
}

type CORSConfig struct {
	AllowedOrigins []string `toml:"allowed_origins"`
}

type Config struct {
	Port     int            `toml:"port"`
	LogLevel string         `toml:"log_level"`
	DB       DatabaseConfig `toml:"db"`
	CORS     CORSConfig     `toml:"cors"`
}

func Default() *Config {
	return &Config{
		Port:     8000,
		LogLevel: "info",
		DB: DatabaseConfig{
			Driver: "sqlite3",
			Path:   "tmp/todos.db",
			Host:   "localhost",
			Port:   "5432",
			User:   "todo",
			Name:   "todo",
		},
	}
}

// Load layers defaults, the TOML file at path (skipped when path is empty)
// and environment variables, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFromEnv(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Port = port
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("DB_DRIVER"); v != "" {
		cfg.DB.Driver = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DB.Path = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DB.URL = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		cfg.DB.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		cfg.DB.Port = v
	}
	if v := os.Getenv("DB_USER"); v != "" {
		cfg.DB.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.DB.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		cfg.DB.Name = v
	}
	if v := os.Getenv("DB_SEED"); v != "" {
		seed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid DB_SEED %q: %w", v, err)
		}
		cfg.DB.Seed = seed
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORS.AllowedOrigins = splitList(v)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	switch c.DB.Driver {
	case "sqlite3":
		if c.DB.Path == "" {
			return errors.New("sqlite3 requires db.path")
		}
	case "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.DB.Driver)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (db *DatabaseConfig) DSN() string {
	switch db.Driver {
	case "postgres":
		if db.URL != "" {
			return db.URL
		}
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			db.Host, db.Port, db.User, db.Password, db.Name)
	case "sqlite3":
		return db.Path
	default:
		return ""
	}
}
