// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud provides the Anthropic Messages API client used by saul.
//
// # Key Types
//
//   - AnthropicClient: streaming HTTP client for POST /v1/messages
//   - SSEReader: Server-Sent Events parser
//   - ClaudeProvider: llm.Provider with lazily resolved credentials
//   - APIError: error reported by the API, mapped onto sentinel errors
//
// # Usage
//
//	provider := cloud.NewClaudeProvider(resolver, cloud.WithLogger(log))
//	events := provider.StreamCompletion(ctx, msgs)
//	text, usage, err := llm.Collect(events, nil)
//
// # Errors
//
// Transport failures are delivered unchanged as the final event of a
// stream. There is no retry. Use errors.Is with ErrAuthFailed,
// ErrRateLimited, ErrOverloaded and friends to classify them.
//
// # Security
//
// API keys are never logged; debug logs carry a SHA-256 fingerprint
// instead. Requests use TLS 1.2+.
package cloud
