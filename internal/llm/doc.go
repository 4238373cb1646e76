// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package llm defines the provider-neutral types used to talk to a
// streaming language model.
//
// # Key Types
//
//   - Message: a role-tagged conversation turn, plain text or multipart
//   - Part: a text fragment or an inline base64 image
//   - StreamEvent: one item of a streaming completion (text, usage or error)
//   - Provider: the capability every backend implements
//
// # Usage
//
// Stream a completion and collect the text:
//
//	events := provider.StreamCompletion(ctx, []llm.Message{llm.UserText("hi")})
//	text, usage, err := llm.Collect(events, nil)
//
// Usage events replace one another. The last one observed on a stream is the
// authoritative token count, and a provider may repeat it.
package llm
