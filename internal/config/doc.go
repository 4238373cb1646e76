// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config resolves the credentials and fixed model settings for saul.
//
// The model identifier and both token ceilings are compile-time constants.
// Only the API key is looked up at run time, once per process, by a
// Resolver.
//
// # Usage
//
//	r := config.NewResolver(prompter, log)
//	cfg, err := r.Resolve(ctx)
//
// # Security
//
// Config files are tightened to 0600 when read and written atomically with
// 0600 permissions. The key itself is never logged.
package config
