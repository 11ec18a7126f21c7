// Package config handles configuration loading and management for Squadron.
// It supports XDG config paths, project-level overrides, named environments,
// and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Environment names a preset of configuration overrides.
type Environment string

const (
	// EnvDevelopment targets a local memory service with verbose retries.
	EnvDevelopment Environment = "development"
	// EnvTesting shortens timeouts and disables retries for fast test runs.
	EnvTesting Environment = "testing"
	// EnvStaging mirrors production with a staging service endpoint.
	EnvStaging Environment = "staging"
	// EnvProduction hardens timeouts and widens the connection pool.
	EnvProduction Environment = "production"
)

// Valid returns true if the environment is a known value.
func (e Environment) Valid() bool {
	switch e {
	case EnvDevelopment, EnvTesting, EnvStaging, EnvProduction:
		return true
	default:
		return false
	}
}

// Config holds all configuration for Squadron. It is constructed once at
// process start and passed to component constructors; nothing reads it
// through a package-level singleton.
type Config struct {
	Environment  Environment        `mapstructure:"environment"`
	Memory       MemoryConfig       `mapstructure:"memory"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	Enforcement  EnforcementConfig  `mapstructure:"enforcement"`
	Anthropic    AnthropicConfig    `mapstructure:"anthropic"`
	History      HistoryConfig      `mapstructure:"history"`
	Workspace    WorkspaceConfig    `mapstructure:"workspace"`
}

// MemoryConfig holds memory service connection settings.
type MemoryConfig struct {
	Host               string        `mapstructure:"host"`
	Port               int           `mapstructure:"port"`
	Timeout            time.Duration `mapstructure:"timeout"`
	MaxRetries         int           `mapstructure:"max_retries"`
	RetryDelay         time.Duration `mapstructure:"retry_delay"`
	ConnectionPoolSize int           `mapstructure:"connection_pool_size"`
	APIKey             string        `mapstructure:"api_key"`
	BatchSize          int           `mapstructure:"batch_size"`
	CacheTTL           time.Duration `mapstructure:"cache_ttl"`
	MaxMemorySize      int           `mapstructure:"max_memory_size"`
	Compression        bool          `mapstructure:"compression"`
}

// BaseURL returns the memory service endpoint.
func (m MemoryConfig) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", m.Host, m.Port)
}

// OrchestratorConfig holds scheduling settings.
type OrchestratorConfig struct {
	// MaxParallel bounds concurrent task executions.
	MaxParallel int `mapstructure:"max_parallel"`
	// MaxIterations bounds the scheduling loop.
	MaxIterations int `mapstructure:"max_iterations"`
	// TaskTimeout bounds a single execution attempt.
	TaskTimeout time.Duration `mapstructure:"task_timeout"`
	// WorkerPoolSize bounds the pool used to offload blocking agent logic.
	WorkerPoolSize int `mapstructure:"worker_pool_size"`
	// DebugLog is the path of the debug log file; empty disables it.
	DebugLog string `mapstructure:"debug_log"`
}

// EnforcementConfig holds enforcement gate settings.
type EnforcementConfig struct {
	// PolicyPath points at a YAML policy file; empty uses built-in defaults.
	PolicyPath string `mapstructure:"policy_path"`
}

// AnthropicConfig holds Anthropic API settings for the API executor.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// HistoryConfig holds the local execution journal settings.
type HistoryConfig struct {
	// Path is the sqlite journal location; empty uses ~/.squadron/history.db.
	Path string `mapstructure:"path"`
}

// WorkspaceConfig holds isolated-workspace settings.
type WorkspaceConfig struct {
	// Root is where per-execution worktrees are created.
	Root string `mapstructure:"root"`
	// KeepOnFailure preserves the worktree of a failed execution for debugging.
	KeepOnFailure bool `mapstructure:"keep_on_failure"`
}

// Load loads configuration from XDG paths, project overrides, and
// environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (SQUADRON_*, ANTHROPIC_API_KEY, MEMORY_SERVICE_*)
// 2. Project config (.squadron.yaml in current directory or a parent)
// 3. User config (~/.config/squadron/config.yaml)
// 4. Named-environment preset
// 5. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("")
	v.BindEnv("environment", "SQUADRON_ENV")
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("memory.host", "MEMORY_SERVICE_HOST")
	v.BindEnv("memory.port", "MEMORY_SERVICE_PORT")
	v.BindEnv("memory.api_key", "MEMORY_SERVICE_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.applyEnvironment()
	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)
	cfg.Memory.APIKey = expandEnv(cfg.Memory.APIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.applyEnvironment()
	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)
	cfg.Memory.APIKey = expandEnv(cfg.Memory.APIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values that would break scheduling.
func (c *Config) Validate() error {
	if !c.Environment.Valid() {
		return fmt.Errorf("unknown environment %q", c.Environment)
	}
	if c.Orchestrator.MaxParallel < 1 {
		return fmt.Errorf("orchestrator.max_parallel must be >= 1, got %d", c.Orchestrator.MaxParallel)
	}
	if c.Memory.MaxRetries < 1 {
		return fmt.Errorf("memory.max_retries must be >= 1, got %d", c.Memory.MaxRetries)
	}
	if c.Memory.Port < 1 || c.Memory.Port > 65535 {
		return fmt.Errorf("memory.port out of range: %d", c.Memory.Port)
	}
	return nil
}

// applyEnvironment overlays the named-environment preset onto fields the
// user did not override. The preset only touches memory-service tuning.
func (c *Config) applyEnvironment() {
	switch c.Environment {
	case EnvTesting:
		c.Memory.Timeout = 10 * time.Second
		c.Memory.MaxRetries = 1
		c.Memory.RetryDelay = 100 * time.Millisecond
		c.Memory.CacheTTL = time.Minute
	case EnvStaging:
		c.Memory.Timeout = 45 * time.Second
		c.Memory.MaxRetries = 3
		c.Memory.ConnectionPoolSize = 15
	case EnvProduction:
		c.Memory.Timeout = 60 * time.Second
		c.Memory.MaxRetries = 5
		c.Memory.ConnectionPoolSize = 20
		c.Memory.Compression = true
	}
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("environment", string(cfg.Environment))
	v.Set("memory.host", cfg.Memory.Host)
	v.Set("memory.port", cfg.Memory.Port)
	v.Set("memory.timeout", cfg.Memory.Timeout.String())
	v.Set("memory.max_retries", cfg.Memory.MaxRetries)
	v.Set("memory.retry_delay", cfg.Memory.RetryDelay.String())
	v.Set("memory.connection_pool_size", cfg.Memory.ConnectionPoolSize)
	v.Set("memory.batch_size", cfg.Memory.BatchSize)
	v.Set("memory.cache_ttl", cfg.Memory.CacheTTL.String())
	v.Set("memory.max_memory_size", cfg.Memory.MaxMemorySize)
	v.Set("memory.compression", cfg.Memory.Compression)
	v.Set("orchestrator.max_parallel", cfg.Orchestrator.MaxParallel)
	v.Set("orchestrator.max_iterations", cfg.Orchestrator.MaxIterations)
	v.Set("orchestrator.task_timeout", cfg.Orchestrator.TaskTimeout.String())
	v.Set("orchestrator.worker_pool_size", cfg.Orchestrator.WorkerPoolSize)
	v.Set("enforcement.policy_path", cfg.Enforcement.PolicyPath)
	v.Set("anthropic.model", cfg.Anthropic.Model)
	v.Set("history.path", cfg.History.Path)
	v.Set("workspace.root", cfg.Workspace.Root)
	v.Set("workspace.keep_on_failure", cfg.Workspace.KeepOnFailure)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values (the development preset).
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", string(EnvDevelopment))

	v.SetDefault("memory.host", "localhost")
	v.SetDefault("memory.port", 8002)
	v.SetDefault("memory.timeout", "30s")
	v.SetDefault("memory.max_retries", 3)
	v.SetDefault("memory.retry_delay", "1s")
	v.SetDefault("memory.connection_pool_size", 10)
	v.SetDefault("memory.api_key", "")
	v.SetDefault("memory.batch_size", 100)
	v.SetDefault("memory.cache_ttl", "5m")
	v.SetDefault("memory.max_memory_size", 1000)
	v.SetDefault("memory.compression", true)

	v.SetDefault("orchestrator.max_parallel", 5)
	v.SetDefault("orchestrator.max_iterations", 10)
	v.SetDefault("orchestrator.task_timeout", "5m")
	v.SetDefault("orchestrator.worker_pool_size", 4)
	v.SetDefault("orchestrator.debug_log", "")

	v.SetDefault("enforcement.policy_path", "")

	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-20250514")

	v.SetDefault("history.path", "")
	v.SetDefault("workspace.root", "")
	v.SetDefault("workspace.keep_on_failure", false)
}

// getUserConfigDir returns the XDG config directory for Squadron.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "squadron")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "squadron")
	}
	return filepath.Join(home, ".config", "squadron")
}

// findProjectConfig searches for .squadron.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".squadron.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}
	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with development defaults.
func Default() *Config {
	return &Config{
		Environment: EnvDevelopment,
		Memory: MemoryConfig{
			Host:               "localhost",
			Port:               8002,
			Timeout:            30 * time.Second,
			MaxRetries:         3,
			RetryDelay:         time.Second,
			ConnectionPoolSize: 10,
			BatchSize:          100,
			CacheTTL:           5 * time.Minute,
			MaxMemorySize:      1000,
			Compression:        true,
		},
		Orchestrator: OrchestratorConfig{
			MaxParallel:    5,
			MaxIterations:  10,
			TaskTimeout:    5 * time.Minute,
			WorkerPoolSize: 4,
		},
		Anthropic: AnthropicConfig{
			Model: "claude-sonnet-4-20250514",
		},
	}
}
