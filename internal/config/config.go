package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Pinzun/simula-ameba/internal/loaders"
	"github.com/Pinzun/simula-ameba/internal/models"
	"github.com/Pinzun/simula-ameba/internal/services"
)

// Source backends for raw inputs.
const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
)

// Config holds application configuration
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Hydro    HydroConfig    `yaml:"hydro"`
}

// DatabaseConfig holds the source database settings
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// ServerConfig holds the inspection API settings
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// HydroConfig drives a model build.
type HydroConfig struct {
	Source           string          `yaml:"source"`
	DataDir          string          `yaml:"data_dir"`
	Files            loaders.Files   `yaml:"files"`
	Prefixes         models.Prefixes `yaml:"prefixes"`
	RunOfRiverPrefix string          `yaml:"run_of_river_prefix"`
	NaturalMode      string          `yaml:"natural_mode"`
	ExtraNodes       []string        `yaml:"extra_nodes"`
	StrictAmbiguous  bool            `yaml:"strict_ambiguous"`
	StrictUnresolved bool            `yaml:"strict_unresolved"`
	SampleSize       int             `yaml:"sample_size"`
	KappaDefault     float64         `yaml:"kappa_default"`
	Version          string          `yaml:"version"`
}

// LoadConfig reads configuration from environment variables. When
// HYDRO_CONFIG_FILE is set, the YAML file is applied first and the
// environment overrides it.
func LoadConfig() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("HYDRO_CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	defaults := services.DefaultBuildOptions()
	return &Config{
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "hydro",
			Database:        "hydro_sources",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Logging: LoggingConfig{Level: "info"},
		Hydro: HydroConfig{
			Source:           SourceCSV,
			DataDir:          "data",
			Files:            loaders.DefaultFiles(),
			Prefixes:         defaults.Prefixes,
			RunOfRiverPrefix: defaults.RunOfRiverPrefix,
			NaturalMode:      defaults.NaturalMode.String(),
			SampleSize:       defaults.SampleSize,
			KappaDefault:     defaults.KappaDefault,
			Version:          defaults.Version,
		},
	}
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvInt("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Database = getEnv("DB_NAME", c.Database.Database)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)
	c.Database.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", c.Database.MaxOpenConns)
	c.Database.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", c.Database.MaxIdleConns)

	c.Server.Host = getEnv("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnvInt("SERVER_PORT", c.Server.Port)
	c.Server.ReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", c.Server.WriteTimeout)

	c.Logging.Level = strings.ToLower(getEnv("LOG_LEVEL", c.Logging.Level))

	c.Hydro.Source = strings.ToLower(getEnv("HYDRO_SOURCE", c.Hydro.Source))
	c.Hydro.DataDir = getEnv("HYDRO_DATA_DIR", c.Hydro.DataDir)
	c.Hydro.NaturalMode = strings.ToLower(getEnv("HYDRO_NATURAL_MODE", c.Hydro.NaturalMode))
	c.Hydro.RunOfRiverPrefix = getEnv("HYDRO_ROR_PREFIX", c.Hydro.RunOfRiverPrefix)
	c.Hydro.StrictAmbiguous = getEnvBool("HYDRO_STRICT_AMBIGUOUS", c.Hydro.StrictAmbiguous)
	c.Hydro.StrictUnresolved = getEnvBool("HYDRO_STRICT_UNRESOLVED", c.Hydro.StrictUnresolved)
	c.Hydro.SampleSize = getEnvInt("HYDRO_SAMPLE_SIZE", c.Hydro.SampleSize)
	if extra := os.Getenv("HYDRO_EXTRA_NODES"); extra != "" {
		c.Hydro.ExtraNodes = splitList(extra)
	}
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Hydro.Source {
	case SourceCSV:
		if c.Hydro.DataDir == "" {
			return fmt.Errorf("hydro data_dir is required for the csv source")
		}
	case SourcePostgres:
		if c.Database.Host == "" || c.Database.Database == "" {
			return fmt.Errorf("database host and name are required for the postgres source")
		}
	default:
		return fmt.Errorf("unknown hydro source %q", c.Hydro.Source)
	}

	if _, err := services.ParseNaturalArcMode(c.Hydro.NaturalMode); err != nil {
		return err
	}
	if c.Hydro.SampleSize < 0 {
		return fmt.Errorf("sample_size must not be negative: %d", c.Hydro.SampleSize)
	}
	if c.Hydro.Prefixes.Reservoir == "" || c.Hydro.Prefixes.HydroGroup == "" || c.Hydro.Prefixes.Inflow == "" {
		return fmt.Errorf("node prefixes must not be empty")
	}

	return nil
}

// BuildOptions converts the hydro section into pipeline options.
// Validate must have succeeded.
func (c *Config) BuildOptions() services.BuildOptions {
	mode, _ := services.ParseNaturalArcMode(c.Hydro.NaturalMode)
	return services.BuildOptions{
		Prefixes:         c.Hydro.Prefixes,
		RunOfRiverPrefix: c.Hydro.RunOfRiverPrefix,
		NaturalMode:      mode,
		ExtraNodes:       c.Hydro.ExtraNodes,
		Policy: services.RoutingPolicy{
			FailOnAmbiguous:  c.Hydro.StrictAmbiguous,
			FailOnUnresolved: c.Hydro.StrictUnresolved,
		},
		SampleSize:   c.Hydro.SampleSize,
		KappaDefault: c.Hydro.KappaDefault,
		Version:      c.Hydro.Version,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
