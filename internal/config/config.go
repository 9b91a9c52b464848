package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/remyhonig/obsidian-fitness-sub000/internal/models"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Vault     VaultConfig     `yaml:"vault"`
	Store     StoreConfig     `yaml:"store"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Session   models.Settings `yaml:"session"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// VaultConfig points at the note vault holding workout templates.
type VaultConfig struct {
	Dir         string `yaml:"dir"`
	WorkoutsDir string `yaml:"workouts_dir"`
}

// StoreConfig selects the persistence backend: a local SQLite file by
// default, or PostgreSQL for a shared archive.
type StoreConfig struct {
	Driver   string         `yaml:"driver"`
	Path     string         `yaml:"path"`
	Database DatabaseConfig `yaml:"database"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// WorkoutsPath returns the template directory, defaulting to a workouts
// folder inside the vault.
func (v VaultConfig) WorkoutsPath() string {
	if v.WorkoutsDir != "" {
		return v.WorkoutsDir
	}
	return filepath.Join(v.Dir, "workouts")
}

// Load reads config from a YAML file, then applies environment variable
// overrides. Env vars use the prefix FITNESS_ and underscore-separated paths:
//
//	FITNESS_SERVER_HOST, FITNESS_SERVER_PORT,
//	FITNESS_VAULT_DIR, FITNESS_VAULT_WORKOUTS_DIR,
//	FITNESS_STORE_DRIVER, FITNESS_STORE_PATH,
//	FITNESS_DB_HOST, FITNESS_DB_PORT, FITNESS_DB_NAME,
//	FITNESS_DB_USER, FITNESS_DB_PASSWORD, FITNESS_DB_SSLMODE,
//	FITNESS_TS_HOSTNAME, FITNESS_LOG_LEVEL
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FITNESS_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("FITNESS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FITNESS_VAULT_DIR"); v != "" {
		cfg.Vault.Dir = v
	}
	if v := os.Getenv("FITNESS_VAULT_WORKOUTS_DIR"); v != "" {
		cfg.Vault.WorkoutsDir = v
	}
	if v := os.Getenv("FITNESS_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("FITNESS_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("FITNESS_DB_HOST"); v != "" {
		cfg.Store.Database.Host = v
	}
	if v := os.Getenv("FITNESS_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Store.Database.Port = port
		}
	}
	if v := os.Getenv("FITNESS_DB_NAME"); v != "" {
		cfg.Store.Database.Name = v
	}
	if v := os.Getenv("FITNESS_DB_USER"); v != "" {
		cfg.Store.Database.User = v
	}
	if v := os.Getenv("FITNESS_DB_PASSWORD"); v != "" {
		cfg.Store.Database.Password = v
	}
	if v := os.Getenv("FITNESS_DB_SSLMODE"); v != "" {
		cfg.Store.Database.SSLMode = v
	}
	if v := os.Getenv("FITNESS_TS_HOSTNAME"); v != "" {
		cfg.Tailscale.Hostname = v
	}
	if v := os.Getenv("FITNESS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func (c *Config) applyDefaults() {
	if c.Store.Driver == "" {
		c.Store.Driver = DriverSQLite
	}
	if c.Store.Driver == DriverSQLite && c.Store.Path == "" {
		c.Store.Path = "fitness.db"
	}
	if c.Tailscale.Hostname == "" {
		c.Tailscale.Hostname = "fitness"
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Vault.Dir == "" {
		return fmt.Errorf("vault.dir is required")
	}
	switch c.Store.Driver {
	case DriverSQLite:
	case DriverPostgres:
		db := c.Store.Database
		if db.Host == "" {
			return fmt.Errorf("store.database.host is required")
		}
		if db.Port == 0 {
			return fmt.Errorf("store.database.port is required")
		}
		if db.Name == "" {
			return fmt.Errorf("store.database.name is required")
		}
		if db.User == "" {
			return fmt.Errorf("store.database.user is required")
		}
	default:
		return fmt.Errorf("store.driver must be %q or %q", DriverSQLite, DriverPostgres)
	}
	return nil
}
