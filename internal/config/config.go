// Package config provides unified configuration for the contagion tools.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CONTAGION_"

// Config holds the configuration for an analysis or simulation run.
type Config struct {
	// Input describes where the kill log and cheater registry come from
	Input InputConfig `json:"input" yaml:"input"`

	// Detection holds the rule for when cheating becomes evident in a match
	Detection DetectionConfig `json:"detection" yaml:"detection"`

	// Contagion holds the rule for counting players who turned cheater
	Contagion ContagionConfig `json:"contagion" yaml:"contagion"`

	// Simulation configures permutation trials
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`

	// Storage configuration
	Storage StorageConfig `json:"storage" yaml:"storage"`

	// Log configuration
	Log LogConfig `json:"log" yaml:"log"`
}

// InputConfig holds input locations.
type InputConfig struct {
	// KillsPath is the tab-separated kill log (object path when storage is s3)
	KillsPath string `json:"kills_path" yaml:"kills_path"`

	// CheatersPath is the cheater registry file
	CheatersPath string `json:"cheaters_path" yaml:"cheaters_path"`

	// SQLitePath is an alternative input holding both kills and cheaters tables
	SQLitePath string `json:"sqlite_path" yaml:"sqlite_path"`

	// SampleSize truncates the kill log to a toy sample when positive
	SampleSize int `json:"sample_size" yaml:"sample_size"`
}

// DetectionConfig holds the detection-time rule.
type DetectionConfig struct {
	// MinCheatingKills is the number of kills a cheater needs in a match to
	// qualify (default 4, i.e. strictly more than 3)
	MinCheatingKills int `json:"min_cheating_kills" yaml:"min_cheating_kills"`

	// DetectionKillIndex is the 0-indexed kill whose timestamp is the
	// detection time (default 2, the 3rd kill)
	DetectionKillIndex int `json:"detection_kill_index" yaml:"detection_kill_index"`
}

// ContagionConfig holds the contagion window rule.
type ContagionConfig struct {
	// WindowDays is the open window after match end (default 5)
	WindowDays int `json:"window_days" yaml:"window_days"`

	// DeduplicatePlayers counts a player once per role across the run
	// instead of once per qualifying match
	DeduplicatePlayers bool `json:"deduplicate_players" yaml:"deduplicate_players"`
}

// SimulationConfig holds permutation trial configuration.
type SimulationConfig struct {
	// Trials is the number of permutation trials
	Trials int `json:"trials" yaml:"trials"`

	// Seed is the base seed every trial seed is derived from
	Seed uint64 `json:"seed" yaml:"seed"`

	// Concurrency is the number of trials run in parallel
	Concurrency int `json:"concurrency" yaml:"concurrency"`
}

// StorageConfig holds storage configuration.
type StorageConfig struct {
	// Type is the storage type: local, s3
	Type string `json:"type" yaml:"type"`

	// Path is the local storage root (for local type)
	Path string `json:"path" yaml:"path"`

	// ScratchDir receives downloaded inputs
	ScratchDir string `json:"scratch_dir" yaml:"scratch_dir"`

	// S3 configuration (for s3 type)
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 storage configuration.
type S3Config struct {
	// Bucket is the S3 bucket name
	Bucket string `json:"bucket" yaml:"bucket"`

	// Region is the AWS region
	Region string `json:"region" yaml:"region"`

	// Endpoint is the S3 endpoint (for S3-compatible storage)
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// LogConfig holds logger configuration.
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `json:"level" yaml:"level"`

	// Format is json or console
	Format string `json:"format" yaml:"format"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Detection: DetectionConfig{
			MinCheatingKills:   4,
			DetectionKillIndex: 2,
		},
		Contagion: ContagionConfig{
			WindowDays: 5,
		},
		Simulation: SimulationConfig{
			Trials:      100,
			Seed:        1,
			Concurrency: 4,
		},
		Storage: StorageConfig{
			Type: "local",
			Path: ".",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Resolve fills paths left empty.
func (c *Config) Resolve() {
	if c.Storage.Path == "" {
		c.Storage.Path = "."
	}
	if c.Storage.ScratchDir == "" {
		c.Storage.ScratchDir = filepath.Join(os.TempDir(), "contagion")
	}
	if c.Simulation.Concurrency <= 0 {
		c.Simulation.Concurrency = 1
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Detection.MinCheatingKills <= 0 {
		return fmt.Errorf("detection.min_cheating_kills must be positive, got %d", c.Detection.MinCheatingKills)
	}
	if c.Detection.DetectionKillIndex < 0 || c.Detection.DetectionKillIndex >= c.Detection.MinCheatingKills {
		return fmt.Errorf("detection.detection_kill_index must be in [0, %d), got %d",
			c.Detection.MinCheatingKills, c.Detection.DetectionKillIndex)
	}

	if c.Contagion.WindowDays <= 0 {
		return fmt.Errorf("contagion.window_days must be positive, got %d", c.Contagion.WindowDays)
	}

	if c.Simulation.Trials < 0 {
		return fmt.Errorf("simulation.trials must not be negative, got %d", c.Simulation.Trials)
	}

	if c.Input.SampleSize < 0 {
		return fmt.Errorf("input.sample_size must not be negative, got %d", c.Input.SampleSize)
	}

	if c.Storage.Type != "local" && c.Storage.Type != "s3" {
		return fmt.Errorf("invalid storage type: %s (must be local or s3)", c.Storage.Type)
	}

	if c.Storage.Type == "s3" && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required when storage type is s3")
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Log.Format)
	}

	return nil
}

// HasFileInputs reports whether both text inputs are configured.
func (c *Config) HasFileInputs() bool {
	return c.Input.KillsPath != "" && c.Input.CheatersPath != ""
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadDotEnv loads variables from a .env file into the process environment
// without overriding ones already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the CONTAGION_ prefix. A value that does not
// parse is an error; every bad variable is reported.
func LoadFromEnv(cfg *Config) error {
	var errs []error
	intVar := func(name string, dst *int) {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s%s=%q: %w", EnvPrefix, name, v, err))
				return
			}
			*dst = n
		}
	}
	stringVar := func(name string, dst *string) {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			*dst = v
		}
	}

	// Input configuration
	stringVar("KILLS_PATH", &cfg.Input.KillsPath)
	stringVar("CHEATERS_PATH", &cfg.Input.CheatersPath)
	stringVar("SQLITE_PATH", &cfg.Input.SQLitePath)
	intVar("SAMPLE_SIZE", &cfg.Input.SampleSize)

	// Detection configuration
	intVar("MIN_CHEATING_KILLS", &cfg.Detection.MinCheatingKills)
	intVar("DETECTION_KILL_INDEX", &cfg.Detection.DetectionKillIndex)

	// Contagion configuration
	intVar("WINDOW_DAYS", &cfg.Contagion.WindowDays)
	if v := os.Getenv(EnvPrefix + "DEDUPLICATE_PLAYERS"); v != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %sDEDUPLICATE_PLAYERS=%q: %w", EnvPrefix, v, err))
		} else {
			cfg.Contagion.DeduplicatePlayers = b
		}
	}

	// Simulation configuration
	intVar("TRIALS", &cfg.Simulation.Trials)
	if v := os.Getenv(EnvPrefix + "SEED"); v != "" {
		n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %sSEED=%q: %w", EnvPrefix, v, err))
		} else {
			cfg.Simulation.Seed = n
		}
	}
	intVar("CONCURRENCY", &cfg.Simulation.Concurrency)

	// Storage configuration
	stringVar("STORAGE_TYPE", &cfg.Storage.Type)
	stringVar("STORAGE_PATH", &cfg.Storage.Path)
	stringVar("SCRATCH_DIR", &cfg.Storage.ScratchDir)
	stringVar("S3_BUCKET", &cfg.Storage.S3.Bucket)
	stringVar("S3_REGION", &cfg.Storage.S3.Region)
	stringVar("S3_ENDPOINT", &cfg.Storage.S3.Endpoint)

	// Log configuration
	stringVar("LOG_LEVEL", &cfg.Log.Level)
	stringVar("LOG_FORMAT", &cfg.Log.Format)

	return errors.Join(errs...)
}

// EnsureDirectories creates the scratch directory.
func (c *Config) EnsureDirectories() error {
	if c.Storage.ScratchDir == "" {
		return nil
	}
	if err := os.MkdirAll(c.Storage.ScratchDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", c.Storage.ScratchDir, err)
	}
	return nil
}
