// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import (
	"encoding/base64"
)

// =============================================================================
// MESSAGES
// =============================================================================

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// PartType distinguishes the parts of a multipart message.
type PartType string

const (
	PartText  PartType = "text"
	PartImage PartType = "image"
)

// MediaTypePNG is the media type of raster snapshots sent to the model.
const MediaTypePNG = "image/png"

// Image is an inline image carried as base64 data.
type Image struct {
	MediaType string
	Data      string // base64, standard encoding
}

// Part is one element of a multipart message.
type Part struct {
	Type  PartType
	Text  string
	Image *Image
}

// Message is a single conversation turn. When Parts is empty the message
// content is the plain string in Text.
type Message struct {
	Role  Role
	Text  string
	Parts []Part
}

// IsMultipart reports whether the message carries a list of parts.
func (m Message) IsMultipart() bool {
	return len(m.Parts) > 0
}

// HasImage reports whether any part of the message is an image.
func (m Message) HasImage() bool {
	for _, p := range m.Parts {
		if p.Type == PartImage {
			return true
		}
	}
	return false
}

// UserText creates a plain-text user message.
func UserText(text string) Message {
	return Message{Role: RoleUser, Text: text}
}

// UserParts creates a multipart user message.
func UserParts(parts ...Part) Message {
	return Message{Role: RoleUser, Parts: parts}
}

// TextPart creates a text part.
func TextPart(text string) Part {
	return Part{Type: PartText, Text: text}
}

// ImagePart base64-encodes raw image bytes into an image part.
func ImagePart(mediaType string, data []byte) Part {
	return Part{
		Type: PartImage,
		Image: &Image{
			MediaType: mediaType,
			Data:      base64.StdEncoding.EncodeToString(data),
		},
	}
}
