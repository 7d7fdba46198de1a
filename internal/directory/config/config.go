// Package config loads the directory's process configuration: a YAML file
// overlaid by environment variables, with secrets taken from the
// environment (or a .env file) only.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gartstein/directory/internal/directory/db"
	e "github.com/gartstein/directory/internal/directory/errors"
	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	BackendDB    = "db"
	BackendRedis = "redis"
)

// DefaultPath is where the service looks for its YAML file when no path is given.
var DefaultPath = filepath.Join("internal", "directory", "config", "config.yaml")

// Config struct for YAML configuration
type Config struct {
	GRPCPort int    `yaml:"GRPC_PORT"`
	HTTPPort int    `yaml:"HTTP_PORT"`
	LogLevel string `yaml:"LOG_LEVEL"`

	DBDriver   string `yaml:"DB_DRIVER"`
	DBHost     string `yaml:"DB_HOST"`
	DBPort     int    `yaml:"DB_PORT"`
	DBUser     string `yaml:"DB_USER"`
	DBPassword string `yaml:"-"`
	DBName     string `yaml:"DB_NAME"`
	DBSSLMode  string `yaml:"DB_SSLMODE"`
	SQLitePath string `yaml:"SQLITE_PATH"`

	KafkaBrokers []string `yaml:"KAFKA_BROKERS"`
	Topic        string   `yaml:"TOPIC"`

	JWTSecret string `yaml:"-"`

	RedisAddr     string `yaml:"REDIS_ADDR"`
	RedisPassword string `yaml:"-"`
	RedisDB       int    `yaml:"REDIS_DB"`

	IdempotencyBackend string        `yaml:"IDEMPOTENCY_BACKEND"`
	IdempotencyTTL     time.Duration `yaml:"IDEMPOTENCY_TTL"`
	BcryptCost         int           `yaml:"BCRYPT_COST"`
	CatalogPath        string        `yaml:"CATALOG_PATH"`

	// DefaultPassword is the initial secret of every new account.
	DefaultPassword string `yaml:"-"`
}

func defaults() Config {
	return Config{
		GRPCPort:           50051,
		HTTPPort:           8080,
		LogLevel:           "info",
		DBDriver:           db.DriverPostgres,
		DBPort:             5432,
		DBSSLMode:          "disable",
		SQLitePath:         "directory.db",
		Topic:              "directory.employees",
		IdempotencyBackend: BackendDB,
		IdempotencyTTL:     24 * time.Hour,
		BcryptCost:         10,
	}
}

// Load reads the YAML file at path, then applies .env and environment
// overrides. A missing file is an error only when path was given explicitly.
func Load(path string) (*Config, error) {
	cfg := defaults()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("%w: parse %s: %v", e.ErrConfiguration, path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("%w: read %s: %v", e.ErrConfiguration, path, err)
	}

	// .env never overrides variables already present in the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: load .env: %v", e.ErrConfiguration, err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer: %v", e.ErrConfiguration, key, err)
		}
		*dst = n
		return nil
	}

	for key, dst := range map[string]*int{
		"GRPC_PORT":   &c.GRPCPort,
		"HTTP_PORT":   &c.HTTPPort,
		"DB_PORT":     &c.DBPort,
		"REDIS_DB":    &c.RedisDB,
		"BCRYPT_COST": &c.BcryptCost,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}

	str("LOG_LEVEL", &c.LogLevel)
	str("DB_DRIVER", &c.DBDriver)
	str("DB_HOST", &c.DBHost)
	str("DB_USER", &c.DBUser)
	str("DB_PASSWORD", &c.DBPassword)
	str("DB_NAME", &c.DBName)
	str("DB_SSLMODE", &c.DBSSLMode)
	str("SQLITE_PATH", &c.SQLitePath)
	str("TOPIC", &c.Topic)
	str("JWT_SECRET", &c.JWTSecret)
	str("REDIS_ADDR", &c.RedisAddr)
	str("REDIS_PASSWORD", &c.RedisPassword)
	str("IDEMPOTENCY_BACKEND", &c.IdempotencyBackend)
	str("CATALOG_PATH", &c.CatalogPath)
	str("DEFAULT_PASSWORD", &c.DefaultPassword)

	if v, ok := lookup("KAFKA_BROKERS"); ok {
		c.KafkaBrokers = splitList(v)
	}
	if v, ok := lookup("IDEMPOTENCY_TTL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: IDEMPOTENCY_TTL: %v", e.ErrConfiguration, err)
		}
		c.IdempotencyTTL = d
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

// Validate reports every setting the service cannot run with.
func (c *Config) Validate() error {
	var problems []string
	if c.DefaultPassword == "" {
		problems = append(problems, "DEFAULT_PASSWORD is not set")
	}
	for name, port := range map[string]int{"GRPC_PORT": c.GRPCPort, "HTTP_PORT": c.HTTPPort} {
		if port < 1 || port > 65535 {
			problems = append(problems, fmt.Sprintf("%s %d out of range", name, port))
		}
	}
	switch c.DBDriver {
	case db.DriverPostgres:
		if c.DBHost == "" || c.DBName == "" {
			problems = append(problems, "DB_HOST and DB_NAME are required for postgres")
		}
	case db.DriverSQLite:
		if c.SQLitePath == "" {
			problems = append(problems, "SQLITE_PATH is required for sqlite")
		}
	default:
		problems = append(problems, fmt.Sprintf("unsupported DB_DRIVER %q", c.DBDriver))
	}
	switch c.IdempotencyBackend {
	case BackendDB:
	case BackendRedis:
		if c.RedisAddr == "" {
			problems = append(problems, "REDIS_ADDR is required for the redis idempotency backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("unsupported IDEMPOTENCY_BACKEND %q", c.IdempotencyBackend))
	}
	if c.IdempotencyTTL <= 0 {
		problems = append(problems, "IDEMPOTENCY_TTL must be positive")
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, fmt.Sprintf("invalid LOG_LEVEL %q", c.LogLevel))
	}

	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return fmt.Errorf("%w: %s", e.ErrConfiguration, strings.Join(problems, "; "))
}

// Database returns the repository settings.
func (c *Config) Database() *db.Config {
	return &db.Config{
		Driver:     c.DBDriver,
		Host:       c.DBHost,
		Port:       c.DBPort,
		User:       c.DBUser,
		Password:   c.DBPassword,
		DBName:     c.DBName,
		SSLMode:    c.DBSSLMode,
		SQLitePath: c.SQLitePath,
	}
}
