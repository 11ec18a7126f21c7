package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/squadronhq/squadron/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify Squadron configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/squadron/config.yaml
Project-specific overrides can be placed in .squadron.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	fmt.Printf("environment: %s\n", cfg.Environment)
	fmt.Printf("memory.host: %s\n", cfg.Memory.Host)
	fmt.Printf("memory.port: %d\n", cfg.Memory.Port)
	fmt.Printf("memory.timeout: %s\n", cfg.Memory.Timeout)
	fmt.Printf("memory.max_retries: %d\n", cfg.Memory.MaxRetries)
	fmt.Printf("memory.api_key: %s\n", config.MaskAPIKey(cfg.Memory.APIKey))
	fmt.Printf("orchestrator.max_parallel: %d\n", cfg.Orchestrator.MaxParallel)
	fmt.Printf("orchestrator.max_iterations: %d\n", cfg.Orchestrator.MaxIterations)
	fmt.Printf("orchestrator.task_timeout: %s\n", cfg.Orchestrator.TaskTimeout)
	fmt.Printf("orchestrator.debug_log: %s\n", cfg.Orchestrator.DebugLog)
	fmt.Printf("enforcement.policy_path: %s\n", cfg.Enforcement.PolicyPath)
	fmt.Printf("anthropic.api_key: %s\n", config.MaskAPIKey(cfg.Anthropic.APIKey))
	fmt.Printf("anthropic.model: %s\n", cfg.Anthropic.Model)
	fmt.Printf("history.path: %s\n", cfg.History.Path)
	fmt.Printf("workspace.root: %s\n", cfg.Workspace.Root)
	fmt.Printf("workspace.keep_on_failure: %t\n", cfg.Workspace.KeepOnFailure)
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "environment":
		return string(cfg.Environment), nil
	case "memory.host":
		return cfg.Memory.Host, nil
	case "memory.port":
		return strconv.Itoa(cfg.Memory.Port), nil
	case "memory.timeout":
		return cfg.Memory.Timeout.String(), nil
	case "memory.max_retries":
		return strconv.Itoa(cfg.Memory.MaxRetries), nil
	case "memory.api_key":
		return config.MaskAPIKey(cfg.Memory.APIKey), nil
	case "orchestrator.max_parallel":
		return strconv.Itoa(cfg.Orchestrator.MaxParallel), nil
	case "orchestrator.max_iterations":
		return strconv.Itoa(cfg.Orchestrator.MaxIterations), nil
	case "orchestrator.task_timeout":
		return cfg.Orchestrator.TaskTimeout.String(), nil
	case "orchestrator.debug_log":
		return cfg.Orchestrator.DebugLog, nil
	case "enforcement.policy_path":
		return cfg.Enforcement.PolicyPath, nil
	case "anthropic.api_key":
		return config.MaskAPIKey(cfg.Anthropic.APIKey), nil
	case "anthropic.model":
		return cfg.Anthropic.Model, nil
	case "history.path":
		return cfg.History.Path, nil
	case "workspace.root":
		return cfg.Workspace.Root, nil
	case "workspace.keep_on_failure":
		return strconv.FormatBool(cfg.Workspace.KeepOnFailure), nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "environment":
		env := config.Environment(value)
		if !env.Valid() {
			return fmt.Errorf("invalid environment %q", value)
		}
		cfg.Environment = env
	case "memory.host":
		cfg.Memory.Host = value
	case "memory.port":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for memory.port: %w", err)
		}
		cfg.Memory.Port = n
	case "memory.timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for memory.timeout: %w", err)
		}
		cfg.Memory.Timeout = d
	case "memory.max_retries":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for memory.max_retries: %w", err)
		}
		cfg.Memory.MaxRetries = n
	case "memory.api_key":
		cfg.Memory.APIKey = value
	case "orchestrator.max_parallel":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for orchestrator.max_parallel: %w", err)
		}
		cfg.Orchestrator.MaxParallel = n
	case "orchestrator.max_iterations":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for orchestrator.max_iterations: %w", err)
		}
		cfg.Orchestrator.MaxIterations = n
	case "orchestrator.task_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for orchestrator.task_timeout: %w", err)
		}
		cfg.Orchestrator.TaskTimeout = d
	case "orchestrator.debug_log":
		cfg.Orchestrator.DebugLog = value
	case "enforcement.policy_path":
		cfg.Enforcement.PolicyPath = value
	case "anthropic.api_key":
		if err := config.ValidateAPIKey(value); err != nil {
			return err
		}
		cfg.Anthropic.APIKey = value
	case "anthropic.model":
		cfg.Anthropic.Model = value
	case "history.path":
		cfg.History.Path = value
	case "workspace.root":
		cfg.Workspace.Root = value
	case "workspace.keep_on_failure":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for workspace.keep_on_failure: %w", err)
		}
		cfg.Workspace.KeepOnFailure = b
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
