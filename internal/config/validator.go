package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/rohankatakam/grin/internal/errors"
	"github.com/rohankatakam/grin/internal/grin"
)

// ValidationResult holds validation results
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// AddError adds an error to the validation result
func (vr *ValidationResult) AddError(format string, args ...interface{}) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, fmt.Sprintf(format, args...))
}

// AddWarning adds a warning to the validation result
func (vr *ValidationResult) AddWarning(format string, args ...interface{}) {
	vr.Warnings = append(vr.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any errors
func (vr *ValidationResult) HasErrors() bool {
	return !vr.Valid || len(vr.Errors) > 0
}

// Error returns a formatted error message
func (vr *ValidationResult) Error() string {
	if !vr.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Configuration validation failed:\n")
	for _, err := range vr.Errors {
		sb.WriteString(fmt.Sprintf("  ❌ %s\n", err))
	}
	if len(vr.Warnings) > 0 {
		sb.WriteString("\nWarnings:\n")
		for _, warn := range vr.Warnings {
			sb.WriteString(fmt.Sprintf("  ⚠️  %s\n", warn))
		}
	}
	return sb.String()
}

// Err returns the result as a config error, or nil when valid
func (vr *ValidationResult) Err() error {
	if !vr.HasErrors() {
		return nil
	}
	return errors.ConfigError(vr.Error())
}

// Validate validates configuration with auto-detected mode
func (c *Config) Validate() *ValidationResult {
	return c.ValidateWithMode(DetectMode())
}

// ValidateWithMode checks the selected backend and the shared settings
func (c *Config) ValidateWithMode(mode DeploymentMode) *ValidationResult {
	result := &ValidationResult{Valid: true}

	switch c.Backend {
	case BackendMemory:
		result.AddWarning("backend %q keeps the graph in memory; nothing survives the process", c.Backend)
	case BackendBolt:
		c.validatePath(result, "bolt.path", c.Bolt.Path)
		c.validateBatch(result, "bolt.batch_size", c.Bolt.BatchSize)
		if c.Bolt.Timeout < 0 {
			result.AddError("bolt.timeout must not be negative")
		}
	case BackendSQLite:
		c.validatePath(result, "sqlite.path", c.SQLite.Path)
		c.validateBatch(result, "sqlite.batch_size", c.SQLite.BatchSize)
	case BackendPostgres:
		c.validatePostgres(result, mode)
		c.validateBatch(result, "postgres.batch_size", c.Postgres.BatchSize)
	case BackendNeo4j:
		c.validateNeo4j(result, mode)
		c.validateBatch(result, "neo4j.batch_size", c.Neo4j.BatchSize)
	default:
		result.AddError("backend %q is unknown (want one of %s)", c.Backend, strings.Join(Backends, ", "))
	}

	c.validateFeatures(result)
	c.validateCache(result)
	c.validateLogging(result)
	c.validateBatch(result, "loader.batch_size", c.Loader.BatchSize)
	return result
}

func (c *Config) validatePath(result *ValidationResult, key, path string) {
	if path == "" {
		result.AddError("%s is required but not set", key)
	}
}

func (c *Config) validateBatch(result *ValidationResult, key string, n int) {
	if n < 0 {
		result.AddError("%s must not be negative, got %d", key, n)
	} else if n == 0 {
		result.AddWarning("%s is not set, will use the backend default", key)
	}
}

func (c *Config) validateNeo4j(result *ValidationResult, mode DeploymentMode) {
	if c.Neo4j.URI == "" {
		result.AddError("NEO4J_URI is required but not set")
	} else {
		u, err := url.Parse(c.Neo4j.URI)
		if err != nil {
			result.AddError("NEO4J_URI is invalid: %v", err)
		} else if !slices.Contains([]string{"bolt", "bolt+s", "bolt+ssc", "neo4j", "neo4j+s", "neo4j+ssc"}, u.Scheme) {
			result.AddError("NEO4J_URI scheme %q is not a bolt or neo4j scheme", u.Scheme)
		}
		if strings.Contains(c.Neo4j.URI, "localhost") && mode.RequiresSecureCredentials() {
			result.AddError("Neo4j URI uses localhost. In %s mode (%s), you must provide a remote database URI.", mode, mode.Description())
		}
	}

	if c.Neo4j.User == "" {
		result.AddError("NEO4J_USER is required but not set")
	}
	if c.Neo4j.Password == "" {
		result.AddError("NEO4J_PASSWORD is required but not set. Set it via environment variable or .env file.")
	} else if slices.Contains([]string{"password", "neo4j"}, c.Neo4j.Password) {
		if mode.RequiresSecureCredentials() {
			result.AddError("NEO4J_PASSWORD is set to an insecure default. This is not allowed in %s mode.", mode)
		} else {
			result.AddWarning("NEO4J_PASSWORD is set to a very common password. Consider changing it even for local development.")
		}
	}
	if c.Neo4j.Database == "" {
		result.AddWarning("NEO4J_DATABASE is not set, will use the server default")
	}
	if c.Neo4j.QueriesPerSecond < 0 {
		result.AddError("neo4j.queries_per_second must not be negative")
	}
}

func (c *Config) validatePostgres(result *ValidationResult, mode DeploymentMode) {
	dsn := c.Postgres.DSN
	if dsn == "" {
		result.AddError("POSTGRES_DSN is required but not set")
		return
	}
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		result.AddError("POSTGRES_DSN must start with postgres:// or postgresql://")
	}
	if strings.Contains(dsn, "@localhost:") || strings.Contains(dsn, "@localhost/") {
		if mode.RequiresSecureCredentials() {
			result.AddError("PostgreSQL DSN uses localhost. In %s mode (%s), you must provide a remote database DSN.", mode, mode.Description())
		}
	}
	if strings.Contains(dsn, "sslmode=disable") {
		if mode.RequiresSecureCredentials() {
			result.AddError("PostgreSQL DSN has sslmode=disable. This is not allowed in %s mode. Use sslmode=require or sslmode=verify-full.", mode)
		} else {
			result.AddWarning("PostgreSQL DSN has sslmode=disable. Consider enabling SSL even for local development.")
		}
	}
}

func (c *Config) validateFeatures(result *ValidationResult) {
	fs, err := c.RequestedFeatures()
	if err != nil {
		result.AddError("features: %v", err)
		return
	}
	// both original-ID flags may be requested; the stored data picks one
	if err := fs.Without(grin.FeatureVertexOriginalIDString).Validate(); err != nil {
		result.AddError("features: %v", err)
	}
	if !fs.Has(grin.FeatureVertexOriginalIDInt64) && !fs.Has(grin.FeatureVertexOriginalIDString) && len(c.Features) > 0 {
		result.AddWarning("features request no original-ID lookup; vertex and prop commands will not work")
	}
}

func (c *Config) validateCache(result *ValidationResult) {
	if !c.Cache.Enabled {
		return
	}
	if c.Cache.TTL <= 0 {
		result.AddWarning("cache.ttl is not set, will use default (5m)")
	}
	if c.Cache.CleanupInterval < 0 {
		result.AddError("cache.cleanup_interval must not be negative")
	}
}

func (c *Config) validateLogging(result *ValidationResult) {
	switch strings.ToLower(c.Logging.Level) {
	case "", "trace", "debug", "info", "warn", "warning", "error":
	default:
		result.AddError("logging.level %q is unknown", c.Logging.Level)
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 {
		result.AddError("logging rotation limits must not be negative")
	}
}
