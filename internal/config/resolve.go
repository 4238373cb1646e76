// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// KeyPrompter asks the user for an API key.
type KeyPrompter interface {
	// PromptAPIKey returns a key entered by the user. savePath is where the
	// key will be stored.
	PromptAPIKey(ctx context.Context, savePath string) (string, error)

	// APIKeySaved is called after a prompted key has been written to path.
	APIKeySaved(path string)
}

// Resolver produces an AppConfig from the environment, the config files and
// finally the user. The zero value reads the real environment and home
// directory and never prompts.
type Resolver struct {
	// Getenv defaults to os.Getenv.
	Getenv func(string) string

	// Dir overrides ConfigDir.
	Dir string

	// Prompter is consulted when no other source has a key. Nil disables
	// prompting.
	Prompter KeyPrompter

	Logger *zap.Logger
}

// NewResolver creates a resolver backed by the process environment.
func NewResolver(prompter KeyPrompter, logger *zap.Logger) *Resolver {
	return &Resolver{Prompter: prompter, Logger: logger}
}

func (r *Resolver) getenv(key string) string {
	if r.Getenv != nil {
		return r.Getenv(key)
	}
	return os.Getenv(key)
}

func (r *Resolver) logger() *zap.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return zap.NewNop()
}

func (r *Resolver) paths() (tomlPath, jsonPath string, err error) {
	dir := r.Dir
	if dir == "" {
		if dir, err = ConfigDir(); err != nil {
			return "", "", err
		}
	}
	return filepath.Join(dir, "config.toml"), filepath.Join(dir, "config.json"), nil
}

// Resolve returns the configuration for this process.
func (r *Resolver) Resolve(ctx context.Context) (*AppConfig, error) {
	log := r.logger()

	build := func(key, source string) *AppConfig {
		log.Debug("api key resolved", zap.String("source", source))
		return &AppConfig{
			APIKey:            key,
			Model:             Model,
			MaxTokens:         MaxTokens,
			FilenameMaxTokens: FilenameMaxTokens,
			Source:            source,
		}
	}

	if key := strings.TrimSpace(r.getenv(APIKeyEnv)); key != "" {
		return build(key, "env"), nil
	}

	tomlPath, jsonPath, err := r.paths()
	if err != nil {
		return nil, &ConfigError{Err: err}
	}

	if key := r.readKey(tomlPath, LoadTOML); key != "" {
		return build(key, "toml"), nil
	}
	if key := r.readKey(jsonPath, LoadJSON); key != "" {
		return build(key, "json"), nil
	}

	if r.Prompter == nil {
		return nil, &ConfigError{Err: fmt.Errorf("%w: set %s or add apiKey to %s", ErrNoAPIKey, APIKeyEnv, jsonPath)}
	}

	key, err := r.Prompter.PromptAPIKey(ctx, jsonPath)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	key = strings.TrimSpace(key)
	if err := ValidateAPIKey(key); err != nil {
		return nil, &ConfigError{Err: err}
	}

	if err := SaveJSON(&FileConfig{APIKey: key}, jsonPath); err != nil {
		log.Warn("could not save api key", zap.String("path", jsonPath), zap.Error(err))
	} else {
		r.Prompter.APIKeySaved(jsonPath)
	}

	return build(key, "prompt"), nil
}

// readKey loads a key from path with load. Missing files yield "". Unreadable
// or malformed files are logged and skipped.
func (r *Resolver) readKey(path string, load func(string) (*FileConfig, error)) string {
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			r.logger().Warn("config file not accessible", zap.String("path", path), zap.Error(err))
		}
		return ""
	}

	if err := ensureSecurePermissions(path); err != nil {
		r.logger().Warn("could not ensure secure permissions", zap.String("path", path), zap.Error(err))
	}

	cfg, err := load(path)
	if err != nil {
		r.logger().Warn("ignoring unreadable config file", zap.String("path", path), zap.Error(err))
		return ""
	}
	return cfg.APIKey
}
