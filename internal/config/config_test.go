// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubPrompter records prompt calls and returns a fixed answer.
type stubPrompter struct {
	key     string
	err     error
	calls   int
	savedTo string
}

func (p *stubPrompter) PromptAPIKey(ctx context.Context, savePath string) (string, error) {
	p.calls++
	return p.key, p.err
}

func (p *stubPrompter) APIKeySaved(path string) {
	p.savedTo = path
}

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestResolve_EnvWins(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.json"), `{"apiKey":"sk-ant-json"}`)
	prompter := &stubPrompter{key: "sk-ant-prompt"}

	r := &Resolver{Getenv: env(map[string]string{APIKeyEnv: "sk-ant-env"}), Dir: dir, Prompter: prompter}
	cfg, err := r.Resolve(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "sk-ant-env", cfg.APIKey)
	assert.Equal(t, "env", cfg.Source)
	assert.Equal(t, Model, cfg.Model)
	assert.Equal(t, MaxTokens, cfg.MaxTokens)
	assert.Equal(t, FilenameMaxTokens, cfg.FilenameMaxTokens)
	assert.Zero(t, prompter.calls)
}

func TestResolve_FilePrecedence(t *testing.T) {
	tests := []struct {
		name       string
		toml       string
		json       string
		wantKey    string
		wantSource string
	}{
		{"toml before json", `api_key = "sk-ant-toml"`, `{"apiKey":"sk-ant-json"}`, "sk-ant-toml", "toml"},
		{"json only", "", `{"apiKey":"sk-ant-json"}`, "sk-ant-json", "json"},
		{"empty toml falls through", `api_key = ""`, `{"apiKey":"sk-ant-json"}`, "sk-ant-json", "json"},
		{"malformed json skipped", `api_key = "sk-ant-toml"`, `{oops`, "sk-ant-toml", "toml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.toml != "" {
				writeFile(t, filepath.Join(dir, "config.toml"), tt.toml)
			}
			if tt.json != "" {
				writeFile(t, filepath.Join(dir, "config.json"), tt.json)
			}

			r := &Resolver{Getenv: env(nil), Dir: dir}
			cfg, err := r.Resolve(context.Background())

			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, cfg.APIKey)
			assert.Equal(t, tt.wantSource, cfg.Source)
		})
	}
}

func TestResolve_LoadTightensPermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	writeFile(t, path, `{"apiKey":"sk-ant-json"}`)

	r := &Resolver{Getenv: env(nil), Dir: dir}
	_, err := r.Resolve(context.Background())
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestResolve_PromptsAndPersists(t *testing.T) {
	dir := t.TempDir()
	prompter := &stubPrompter{key: "  sk-ant-typed  "}

	r := &Resolver{Getenv: env(nil), Dir: dir, Prompter: prompter}
	cfg, err := r.Resolve(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "sk-ant-typed", cfg.APIKey)
	assert.Equal(t, "prompt", cfg.Source)
	assert.Equal(t, 1, prompter.calls)

	jsonPath := filepath.Join(dir, "config.json")
	assert.Equal(t, jsonPath, prompter.savedTo)

	saved, err := LoadJSON(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-typed", saved.APIKey)

	info, err := os.Stat(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// A second resolution reads the saved file instead of prompting.
	cfg, err = r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Source)
	assert.Equal(t, 1, prompter.calls)
}

func TestResolve_PromptErrors(t *testing.T) {
	cancelled := errors.New("cancelled")

	tests := []struct {
		name     string
		prompter *stubPrompter
		wantIs   error
	}{
		{"prompt cancelled", &stubPrompter{err: cancelled}, cancelled},
		{"wrong prefix", &stubPrompter{key: "sk-or-123"}, nil},
		{"empty", &stubPrompter{key: ""}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			r := &Resolver{Getenv: env(nil), Dir: dir, Prompter: tt.prompter}

			_, err := r.Resolve(context.Background())
			require.Error(t, err)

			var cfgErr *ConfigError
			assert.True(t, errors.As(err, &cfgErr))
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}

			_, statErr := os.Stat(filepath.Join(dir, "config.json"))
			assert.True(t, os.IsNotExist(statErr), "nothing should be saved")
		})
	}
}

func TestResolve_NoPrompter(t *testing.T) {
	r := &Resolver{Getenv: env(nil), Dir: t.TempDir()}
	_, err := r.Resolve(context.Background())
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		key     string
		wantErr bool
	}{
		{"sk-ant-api03-abc", false},
		{"", true},
		{"sk-or-v1-abc", true},
		{"SK-ANT-abc", true},
	}

	for _, tt := range tests {
		err := ValidateAPIKey(tt.key)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateAPIKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
		}
	}
}
