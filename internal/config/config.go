package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rohankatakam/grin/internal/grin"
	"github.com/spf13/viper"
)

// Backend names accepted in Config.Backend
const (
	BackendMemory   = "memory"
	BackendBolt     = "bolt"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendNeo4j    = "neo4j"
)

// Backends lists every backend name in display order
var Backends = []string{BackendMemory, BackendBolt, BackendSQLite, BackendPostgres, BackendNeo4j}

// Config holds all configuration settings
type Config struct {
	// Backend selects the graph store
	Backend string `yaml:"backend" mapstructure:"backend"`

	// Features lists the capability flags to request. Empty requests every
	// flag the backend supports.
	Features []string `yaml:"features" mapstructure:"features"`

	Bolt     BoltConfig     `yaml:"bolt" mapstructure:"bolt"`
	SQLite   SQLiteConfig   `yaml:"sqlite" mapstructure:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres" mapstructure:"postgres"`
	Neo4j    Neo4jConfig    `yaml:"neo4j" mapstructure:"neo4j"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Metrics  MetricsConfig  `yaml:"metrics" mapstructure:"metrics"`
	Loader   LoaderConfig   `yaml:"loader" mapstructure:"loader"`
	Logging  LoggingConfig  `yaml:"logging" mapstructure:"logging"`
}

type BoltConfig struct {
	Path      string        `yaml:"path" mapstructure:"path"`
	BatchSize int           `yaml:"batch_size" mapstructure:"batch_size"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

type SQLiteConfig struct {
	Path      string `yaml:"path" mapstructure:"path"`
	BatchSize int    `yaml:"batch_size" mapstructure:"batch_size"`
}

type PostgresConfig struct {
	DSN       string `yaml:"dsn" mapstructure:"dsn"`
	BatchSize int    `yaml:"batch_size" mapstructure:"batch_size"`
}

type Neo4jConfig struct {
	URI              string        `yaml:"uri" mapstructure:"uri"`
	User             string        `yaml:"user" mapstructure:"user"`
	Password         string        `yaml:"password" mapstructure:"password"`
	Database         string        `yaml:"database" mapstructure:"database"`
	BatchSize        int           `yaml:"batch_size" mapstructure:"batch_size"`
	QueriesPerSecond float64       `yaml:"queries_per_second" mapstructure:"queries_per_second"`
	Burst            int           `yaml:"burst" mapstructure:"burst"`
	MaxPoolSize      int           `yaml:"max_pool_size" mapstructure:"max_pool_size"`
	ReadTimeout      time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

type CacheConfig struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	TTL             time.Duration `yaml:"ttl" mapstructure:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" mapstructure:"cleanup_interval"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// TextfilePath receives a Prometheus text dump after each command
	TextfilePath string `yaml:"textfile_path" mapstructure:"textfile_path"`
}

type LoaderConfig struct {
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size"`
}

type LoggingConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`
	File       string `yaml:"file" mapstructure:"file"`
	JSON       bool   `yaml:"json" mapstructure:"json"`
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
}

// Default returns default configuration
func Default() *Config {
	home := homeDir()
	return &Config{
		Backend: BackendBolt,
		Bolt: BoltConfig{
			Path:      filepath.Join(home, ".grin", "graph.db"),
			BatchSize: 1000,
			Timeout:   time.Second,
		},
		SQLite: SQLiteConfig{
			Path:      filepath.Join(home, ".grin", "graph.sqlite"),
			BatchSize: 5000,
		},
		Postgres: PostgresConfig{
			BatchSize: 5000,
		},
		Neo4j: Neo4jConfig{
			URI:              "bolt://localhost:7687",
			User:             "neo4j",
			Database:         "neo4j",
			BatchSize:        1000,
			QueriesPerSecond: 200,
			Burst:            50,
			MaxPoolSize:      50,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     3 * time.Minute,
		},
		Cache: CacheConfig{
			Enabled:         true,
			TTL:             5 * time.Minute,
			CleanupInterval: 10 * time.Minute,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Loader: LoaderConfig{
			BatchSize: 10000,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// Load loads configuration from file. An empty path searches .grin/, the
// working directory and ~/.grin for config.yaml; a missing file is not an
// error. Environment variables with the GRIN_ prefix override file values,
// and the well-known variables in applyEnvOverrides override both.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	setDefaults(v, cfg)

	v.SetEnvPrefix("GRIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".grin")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(homeDir(), ".grin"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.Bolt.Path = expandPath(cfg.Bolt.Path)
	cfg.SQLite.Path = expandPath(cfg.SQLite.Path)
	cfg.Logging.File = expandPath(cfg.Logging.File)
	cfg.Metrics.TextfilePath = expandPath(cfg.Metrics.TextfilePath)
	return cfg, nil
}

// setDefaults registers every leaf key so AutomaticEnv can override it
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("backend", cfg.Backend)
	v.SetDefault("features", cfg.Features)

	v.SetDefault("bolt.path", cfg.Bolt.Path)
	v.SetDefault("bolt.batch_size", cfg.Bolt.BatchSize)
	v.SetDefault("bolt.timeout", cfg.Bolt.Timeout)

	v.SetDefault("sqlite.path", cfg.SQLite.Path)
	v.SetDefault("sqlite.batch_size", cfg.SQLite.BatchSize)

	v.SetDefault("postgres.dsn", cfg.Postgres.DSN)
	v.SetDefault("postgres.batch_size", cfg.Postgres.BatchSize)

	v.SetDefault("neo4j.uri", cfg.Neo4j.URI)
	v.SetDefault("neo4j.user", cfg.Neo4j.User)
	v.SetDefault("neo4j.password", cfg.Neo4j.Password)
	v.SetDefault("neo4j.database", cfg.Neo4j.Database)
	v.SetDefault("neo4j.batch_size", cfg.Neo4j.BatchSize)
	v.SetDefault("neo4j.queries_per_second", cfg.Neo4j.QueriesPerSecond)
	v.SetDefault("neo4j.burst", cfg.Neo4j.Burst)
	v.SetDefault("neo4j.max_pool_size", cfg.Neo4j.MaxPoolSize)
	v.SetDefault("neo4j.read_timeout", cfg.Neo4j.ReadTimeout)
	v.SetDefault("neo4j.write_timeout", cfg.Neo4j.WriteTimeout)

	v.SetDefault("cache.enabled", cfg.Cache.Enabled)
	v.SetDefault("cache.ttl", cfg.Cache.TTL)
	v.SetDefault("cache.cleanup_interval", cfg.Cache.CleanupInterval)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.textfile_path", cfg.Metrics.TextfilePath)

	v.SetDefault("loader.batch_size", cfg.Loader.BatchSize)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.json", cfg.Logging.JSON)
	v.SetDefault("logging.max_size_mb", cfg.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", cfg.Logging.MaxBackups)
}

// applyEnvOverrides applies the unprefixed variables shared with other
// tooling (docker compose files, CI secrets)
func applyEnvOverrides(cfg *Config) {
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		cfg.Neo4j.URI = uri
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		cfg.Neo4j.User = user
	}
	if password := os.Getenv("NEO4J_PASSWORD"); password != "" {
		cfg.Neo4j.Password = password
	}
	if db := os.Getenv("NEO4J_DATABASE"); db != "" {
		cfg.Neo4j.Database = db
	}
	if qps := os.Getenv("NEO4J_QUERIES_PER_SECOND"); qps != "" {
		if rate, err := strconv.ParseFloat(qps, 64); err == nil {
			cfg.Neo4j.QueriesPerSecond = rate
		}
	}

	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		cfg.Postgres.DSN = dsn
	}
	if path := os.Getenv("SQLITE_PATH"); path != "" {
		cfg.SQLite.Path = path
	}
	if path := os.Getenv("BOLT_PATH"); path != "" {
		cfg.Bolt.Path = path
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}

// RequestedFeatures parses Features; an empty list requests everything
func (c *Config) RequestedFeatures() (grin.Features, error) {
	if len(c.Features) == 0 {
		return grin.AllFeatures, nil
	}
	return grin.ParseFeatures(c.Features)
}

// BackendPath returns the file or DSN the selected backend opens
func (c *Config) BackendPath() string {
	switch c.Backend {
	case BackendBolt:
		return c.Bolt.Path
	case BackendSQLite:
		return c.SQLite.Path
	case BackendPostgres:
		return c.Postgres.DSN
	case BackendNeo4j:
		return c.Neo4j.URI
	}
	return ""
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		return filepath.Join(homeDir(), path[1:])
	}
	return path
}

// Save saves configuration to file
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	v.Set("backend", c.Backend)
	v.Set("features", c.Features)
	v.Set("bolt", c.Bolt)
	v.Set("sqlite", c.SQLite)
	v.Set("postgres", redactedPostgres(c.Postgres))
	v.Set("neo4j", redactedNeo4j(c.Neo4j))
	v.Set("cache", c.Cache)
	v.Set("metrics", c.Metrics)
	v.Set("loader", c.Loader)
	v.Set("logging", c.Logging)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Secrets stay in the environment, never in saved files
func redactedNeo4j(c Neo4jConfig) Neo4jConfig {
	c.Password = ""
	return c
}

func redactedPostgres(c PostgresConfig) PostgresConfig {
	c.DSN = ""
	return c
}
