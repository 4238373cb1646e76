// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config resolves the credentials and fixed model settings for saul.
//
// Credential sources (in order of precedence):
//   - ANTHROPIC_API_KEY environment variable
//   - ~/.config/svg-saul/config.toml (api_key)
//   - ~/.config/svg-saul/config.json (apiKey)
//   - Interactive masked prompt, saved back to config.json
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/jeranaias/saul/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// Model is the Claude model used for every exchange.
	Model = "claude-sonnet-4-5-20250929"

	// MaxTokens is the output ceiling for SVG generation and edits.
	MaxTokens = 64 * 1000

	// FilenameMaxTokens is the output ceiling for filename suggestions.
	FilenameMaxTokens = 100

	// APIKeyEnv is the environment variable holding the API key.
	APIKeyEnv = "ANTHROPIC_API_KEY"

	// APIKeyPrefix is the prefix of every Anthropic API key.
	APIKeyPrefix = "sk-ant-"

	// APIKeyURL is where users create API keys.
	APIKeyURL = "https://console.anthropic.com/settings/keys"

	appDirName = "svg-saul"
)

// =============================================================================
// TYPES
// =============================================================================

// AppConfig is the resolved configuration for one process. It is not
// modified after resolution.
type AppConfig struct {
	APIKey            string
	Model             string
	MaxTokens         int
	FilenameMaxTokens int

	// Source names where the key came from: "env", "toml", "json" or "prompt".
	Source string
}

// FileConfig is the on-disk shape of the config files.
type FileConfig struct {
	APIKey string `json:"apiKey" toml:"api_key"`
}

// Errors returned by credential resolution.
var (
	// ErrNoAPIKey indicates no key was found and none could be prompted for.
	ErrNoAPIKey = errors.New("no API key configured")
)

// ConfigError wraps a failure to resolve configuration.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("config %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("config: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ValidationError represents an invalid configuration value.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateAPIKey checks the shape of an API key.
func ValidateAPIKey(key string) error {
	if key == "" {
		return ValidationError{Field: "apiKey", Message: "API key is required"}
	}
	if !strings.HasPrefix(key, APIKeyPrefix) {
		return ValidationError{Field: "apiKey", Message: "Invalid API key format (should start with " + APIKeyPrefix + ")"}
	}
	return nil
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the saul configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", appDirName), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions tightens a config file to 0600.
// SECURITY: Config files hold the API key.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	mode := info.Mode().Perm()
	if mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// LoadTOML reads a TOML config file.
func LoadTOML(path string) (*FileConfig, error) {
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode TOML file: %w", err)
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	return &cfg, nil
}

// LoadJSON reads a JSON config file.
func LoadJSON(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON file: %w", err)
	}
	var cfg FileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode JSON file: %w", err)
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	return &cfg, nil
}

// SaveJSON writes cfg to path with owner-only permissions.
// RELIABILITY: Atomic write with fsync prevents a truncated key file on crash
func SaveJSON(cfg *FileConfig, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	// SECURITY: 0600 = owner read/write only
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
