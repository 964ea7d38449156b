package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port string `yaml:"port" env:"SERVER_PORT"`
		Mode string `yaml:"mode" env:"SERVER_MODE"`
	} `yaml:"server"`

	Database struct {
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
		// LockTimeout bounds how long an allocation step waits on a row lock
		LockTimeout time.Duration `yaml:"lock_timeout" env:"DB_LOCK_TIMEOUT"`
		TxTimeout   time.Duration `yaml:"tx_timeout" env:"DB_TX_TIMEOUT"`
	} `yaml:"database"`

	JWT struct {
		Secret                string `yaml:"secret" env:"JWT_SECRET"`
		AccessTokenExpiration string `yaml:"access_token_expiration" env:"JWT_ACCESS_TOKEN_EXPIRATION"`
		Issuer                string `yaml:"issuer" env:"JWT_ISSUER"`
	} `yaml:"jwt"`

	Admin struct {
		Email        string `yaml:"email" env:"ADMIN_EMAIL"`
		PasswordHash string `yaml:"password_hash" env:"ADMIN_PASSWORD_HASH"` // bcrypt
	} `yaml:"admin"`

	Redis struct {
		Enabled  bool          `yaml:"enabled" env:"REDIS_ENABLED"`
		Address  string        `yaml:"address" env:"REDIS_ADDRESS"`
		Password string        `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int           `yaml:"db" env:"REDIS_DB"`
		LockTTL  time.Duration `yaml:"lock_ttl" env:"REDIS_LOCK_TTL"`
	} `yaml:"redis"`

	Allocation struct {
		CategoryOrder    []string `yaml:"category_order" env:"ALLOCATION_CATEGORY_ORDER"`
		MaxChoices       int      `yaml:"max_choices" env:"ALLOCATION_MAX_CHOICES"`
		SkipLocked       bool     `yaml:"skip_locked" env:"ALLOCATION_SKIP_LOCKED"`
		ReconcileOnStart bool     `yaml:"reconcile_on_start" env:"ALLOCATION_RECONCILE_ON_START"`
		SeedDir          string   `yaml:"seed_dir" env:"ALLOCATION_SEED_DIR"`
	} `yaml:"allocation"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`
}

// LoadConfig loads configuration from a file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	setDefaults(config)

	// The file is optional; environment variables alone are enough
	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := processStructFields(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	normalize(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	config.Server.Port = "8080"
	config.Server.Mode = "development"

	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "seatallot"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 5
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"
	config.Database.LockTimeout = 5 * time.Second
	config.Database.TxTimeout = 30 * time.Second

	config.JWT.AccessTokenExpiration = "2h"
	config.JWT.Issuer = "seatallot"

	config.Redis.Address = "localhost:6379"
	config.Redis.LockTTL = 15 * time.Minute

	config.Allocation.CategoryOrder = []string{"OBC", "EWS", "SC", "RBA", "RLAC", "ST", "GEN"}
	config.Allocation.MaxChoices = 7
	config.Allocation.SkipLocked = true
	config.Allocation.ReconcileOnStart = true

	config.Logging.Level = "info"
	config.Logging.Format = "json"
}

// normalize canonicalizes list values after file and env overrides
func normalize(config *Config) {
	order := make([]string, 0, len(config.Allocation.CategoryOrder))
	for _, c := range config.Allocation.CategoryOrder {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c != "" {
			order = append(order, c)
		}
	}
	config.Allocation.CategoryOrder = order
	config.Admin.Email = strings.TrimSpace(config.Admin.Email)
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	if _, err := time.ParseDuration(config.JWT.AccessTokenExpiration); err != nil {
		return fmt.Errorf("invalid JWT access token expiration format: %w", err)
	}

	if len(config.Allocation.CategoryOrder) == 0 {
		return fmt.Errorf("allocation category order must not be empty")
	}

	seen := make(map[string]bool, len(config.Allocation.CategoryOrder))
	for _, c := range config.Allocation.CategoryOrder {
		if seen[c] {
			return fmt.Errorf("category %s appears twice in allocation order", c)
		}
		seen[c] = true
	}

	if config.Database.LockTimeout < 0 || config.Database.TxTimeout < 0 {
		return fmt.Errorf("database timeouts must not be negative")
	}

	if config.Allocation.MaxChoices < 1 {
		return fmt.Errorf("allocation max choices must be at least 1")
	}

	if config.Redis.Enabled && config.Redis.Address == "" {
		return fmt.Errorf("redis address is required when redis is enabled")
	}

	return nil
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// AccessTokenTTL returns the parsed access token lifetime
func (c *Config) AccessTokenTTL() time.Duration {
	return parseDuration(c.JWT.AccessTokenExpiration, 2*time.Hour)
}

// ConnMaxLifetime returns the parsed pool connection lifetime
func (c *Config) ConnMaxLifetime() time.Duration {
	return parseDuration(c.Database.ConnMaxLifetime, time.Hour)
}

// parseDuration falls back to def for blank, malformed or non-positive values
func parseDuration(raw string, def time.Duration) time.Duration {
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		// Global logger, the configured one may not exist yet
		log.Warn().Err(err).Str("value", raw).Dur("default", def).Msg("Invalid duration, using default")
		return def
	}
	return d
}
