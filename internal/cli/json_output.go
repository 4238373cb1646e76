// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// json_output.go - JSON output for scriptable commands.
package cli

import (
	"encoding/json"
	"io"
	"time"
)

// JSONResponse is the response envelope of every --json command.
type JSONResponse struct {
	// Success indicates whether the command completed successfully.
	Success bool `json:"success"`

	// Data contains the command-specific response data.
	Data interface{} `json:"data"`

	// Error is the error message when Success is false.
	Error *string `json:"error"`

	// Timestamp is when the response was generated (RFC 3339, UTC).
	Timestamp string `json:"timestamp"`

	Command string `json:"command,omitempty"`
}

// NewJSONResponse creates a successful response.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates an error response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	msg := err.Error()
	return &JSONResponse{
		Success:   false,
		Error:     &msg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Write encodes the response as indented JSON.
func (r *JSONResponse) Write(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}
