// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud provides the Anthropic Messages API client used by saul.
//
// CLOUD: Secure logging and typed errors
package cloud

import (
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jeranaias/saul/internal/llm"
	"go.uber.org/zap"
)

// Configuration constants for the Anthropic API.
const (
	// DefaultAnthropicURL is the base URL for the Anthropic API.
	DefaultAnthropicURL = "https://api.anthropic.com"

	// AnthropicVersion is the API version header value.
	AnthropicVersion = "2023-06-01"

	// MaxErrorBodySize bounds how much of an error response is read.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxErrorBodySize = 1024 * 1024

	userAgent = "saul/1.0"
)

// sharedStreamingClient is used for streaming requests. It has no overall
// timeout; cancellation comes from the request context.
// SECURITY: TLS 1.2+ with verification
var sharedStreamingClient = &http.Client{
	Transport: &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
}

// Error variables for common Anthropic failures.
var (
	// ErrNotConfigured indicates the API key is not set.
	ErrNotConfigured = errors.New("Anthropic API key not configured")

	// ErrAuthFailed indicates the API key was rejected.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrPermissionDenied indicates the key lacks access to the resource.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidRequest indicates the request was malformed or too large.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrModelNotFound indicates the requested model does not exist.
	ErrModelNotFound = errors.New("model not found")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrOverloaded indicates the API is temporarily overloaded.
	ErrOverloaded = errors.New("API overloaded")
)

// APIError is an error reported by the Anthropic API, either as an HTTP
// error response or as an in-stream error event. Status is 0 for the latter.
type APIError struct {
	Type    string
	Message string
	Status  int
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("Anthropic error [%s] (HTTP %d): %s", e.Type, e.Status, e.Message)
	}
	return fmt.Sprintf("Anthropic error [%s]: %s", e.Type, e.Message)
}

// Unwrap maps the error type onto the matching sentinel.
func (e *APIError) Unwrap() error {
	switch e.Type {
	case "authentication_error":
		return ErrAuthFailed
	case "permission_error":
		return ErrPermissionDenied
	case "invalid_request_error", "request_too_large":
		return ErrInvalidRequest
	case "not_found_error":
		return ErrModelNotFound
	case "rate_limit_error":
		return ErrRateLimited
	case "overloaded_error":
		return ErrOverloaded
	}
	return nil
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// messagesRequest is the body of POST /v1/messages.
type messagesRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	Stream    bool         `json:"stream"`
	Messages  []apiMessage `json:"messages"`
}

// apiMessage carries either a string or a list of content blocks.
type apiMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type apiContent struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// apiErrorBody is the error envelope used by HTTP errors and error events.
type apiErrorBody struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// toAPIMessages converts provider-neutral messages to the wire format.
func toAPIMessages(messages []llm.Message) []apiMessage {
	out := make([]apiMessage, 0, len(messages))
	for _, m := range messages {
		if !m.IsMultipart() {
			out = append(out, apiMessage{Role: string(m.Role), Content: m.Text})
			continue
		}

		blocks := make([]apiContent, 0, len(m.Parts))
		for _, p := range m.Parts {
			switch p.Type {
			case llm.PartImage:
				if p.Image == nil {
					continue
				}
				blocks = append(blocks, apiContent{
					Type: "image",
					Source: &imageSource{
						Type:      "base64",
						MediaType: p.Image.MediaType,
						Data:      p.Image.Data,
					},
				})
			default:
				blocks = append(blocks, apiContent{Type: "text", Text: p.Text})
			}
		}
		out = append(out, apiMessage{Role: string(m.Role), Content: blocks})
	}
	return out
}

// =============================================================================
// CLIENT
// =============================================================================

// AnthropicClient talks to the Anthropic Messages API.
type AnthropicClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewAnthropicClient creates a client for the given API key. An empty key
// produces a client whose streams fail with ErrNotConfigured.
func NewAnthropicClient(apiKey string) *AnthropicClient {
	return &AnthropicClient{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    DefaultAnthropicURL,
		httpClient: sharedStreamingClient,
		logger:     zap.NewNop(),
	}
}

// WithBaseURL sets a custom base URL for the API.
func (c *AnthropicClient) WithBaseURL(url string) *AnthropicClient {
	c.baseURL = strings.TrimSuffix(url, "/")
	return c
}

// WithHTTPClient replaces the HTTP client.
func (c *AnthropicClient) WithHTTPClient(client *http.Client) *AnthropicClient {
	if client != nil {
		c.httpClient = client
	}
	return c
}

// WithLogger sets the diagnostic logger.
func (c *AnthropicClient) WithLogger(logger *zap.Logger) *AnthropicClient {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// IsConfigured returns true if the client has an API key.
func (c *AnthropicClient) IsConfigured() bool {
	return c.apiKey != ""
}

// KeyFingerprint returns a short SHA-256 fingerprint of the API key.
// SECURITY: Never exposes key fragments in logs.
func (c *AnthropicClient) KeyFingerprint() string {
	if c.apiKey == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(c.apiKey))
	return hex.EncodeToString(h[:4])
}

// setHeaders sets the headers required by the Messages API.
func (c *AnthropicClient) setHeaders(req *http.Request) {
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", AnthropicVersion)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
}

// logRequest logs request metadata only.
// CLOUD: Headers carry the key and the body carries user content.
func (c *AnthropicClient) logRequest(req *http.Request, body messagesRequest) {
	c.logger.Debug("api request",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.String("model", body.Model),
		zap.Int("max_tokens", body.MaxTokens),
		zap.Int("messages", len(body.Messages)),
		zap.String("key_fingerprint", c.KeyFingerprint()),
	)
}

// logResponse logs the status and time to first byte.
func (c *AnthropicClient) logResponse(resp *http.Response, duration time.Duration) {
	c.logger.Debug("api response",
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", resp.Header.Get("request-id")),
		zap.Duration("duration", duration),
	)
}

// handleErrorResponse converts an HTTP error response into an error that
// matches the sentinel for its class.
func (c *AnthropicClient) handleErrorResponse(statusCode int, body []byte) error {
	var envelope apiErrorBody
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return &APIError{
			Type:    envelope.Error.Type,
			Message: envelope.Error.Message,
			Status:  statusCode,
		}
	}

	message := strings.TrimSpace(string(body))
	if message == "" {
		message = http.StatusText(statusCode)
	}

	switch statusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrAuthFailed, message)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrPermissionDenied, message)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrModelNotFound, message)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, message)
	case 529:
		return fmt.Errorf("%w: %s", ErrOverloaded, message)
	default:
		return &APIError{Type: "api_error", Message: message, Status: statusCode}
	}
}

// readErrorBody reads at most MaxErrorBodySize bytes of an error response.
func readErrorBody(r io.Reader) []byte {
	body, _ := io.ReadAll(io.LimitReader(r, MaxErrorBodySize))
	return body
}
