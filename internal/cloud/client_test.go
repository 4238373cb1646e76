// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jeranaias/saul/internal/config"
	"github.com/jeranaias/saul/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// HELPERS
// =============================================================================

const testKey = "sk-ant-REDACTED"

// sseEvent formats one SSE event.
func sseEvent(name, data string) string {
	return fmt.Sprintf("event: %s\ndata: %s\n\n", name, data)
}

func textDelta(text string) string {
	b, _ := json.Marshal(text)
	return sseEvent("content_block_delta",
		`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":`+string(b)+`}}`)
}

// happyStream spells <svg><rect/></svg> with usage {10, 5}.
var happyStream = strings.Join([]string{
	sseEvent("message_start", `{"type":"message_start","message":{"id":"msg_1","model":"claude","usage":{"input_tokens":10,"output_tokens":1}}}`),
	sseEvent("content_block_start", `{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`),
	sseEvent("ping", `{"type":"ping"}`),
	textDelta("<svg>"),
	textDelta("<rect/>"),
	textDelta("</svg>"),
	sseEvent("content_block_stop", `{"type":"content_block_stop","index":0}`),
	sseEvent("message_delta", `{"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":5}}`),
	sseEvent("message_stop", `{"type":"message_stop"}`),
}, "")

// capturedRequest holds what the test server saw.
type capturedRequest struct {
	Header http.Header
	Body   map[string]any
}

// newSSEServer serves body as an event stream and records each request.
func newSSEServer(t *testing.T, body string, captured *capturedRequest) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			captured.Header = r.Header.Clone()
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, &captured.Body)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func drain(events <-chan llm.StreamEvent) []llm.StreamEvent {
	var out []llm.StreamEvent
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

// =============================================================================
// CLIENT TESTS
// =============================================================================

func TestStreamMessages_TextAndUsage(t *testing.T) {
	var captured capturedRequest
	server := newSSEServer(t, happyStream, &captured)

	client := NewAnthropicClient(testKey).WithBaseURL(server.URL)
	events := drain(client.StreamMessages(context.Background(), "claude-test", 1234, []llm.Message{llm.UserText("a red house")}))

	kinds := make([]llm.EventKind, len(events))
	for i, ev := range events {
		kinds[i] = ev.Kind
	}
	assert.Equal(t, []llm.EventKind{llm.EventText, llm.EventText, llm.EventText, llm.EventUsage, llm.EventUsage}, kinds)

	// The stream end repeats the last usage.
	want := llm.Usage{InputTokens: 10, OutputTokens: 5}
	assert.Equal(t, want, events[3].Usage)
	assert.Equal(t, want, events[4].Usage)

	assert.Equal(t, testKey, captured.Header.Get("x-api-key"))
	assert.Equal(t, AnthropicVersion, captured.Header.Get("anthropic-version"))
	assert.Equal(t, "application/json", captured.Header.Get("Content-Type"))

	assert.Equal(t, "claude-test", captured.Body["model"])
	assert.Equal(t, float64(1234), captured.Body["max_tokens"])
	assert.Equal(t, true, captured.Body["stream"])

	msgs := captured.Body["messages"].([]any)
	require.Len(t, msgs, 1)
	first := msgs[0].(map[string]any)
	assert.Equal(t, "user", first["role"])
	assert.Equal(t, "a red house", first["content"])
}

func TestStreamMessages_ImagePartWireFormat(t *testing.T) {
	var captured capturedRequest
	server := newSSEServer(t, happyStream, &captured)

	client := NewAnthropicClient(testKey).WithBaseURL(server.URL)
	msg := llm.UserParts(llm.ImagePart(llm.MediaTypePNG, []byte("png-bytes")), llm.TextPart("make it green"))
	_, _, err := llm.Collect(client.StreamMessages(context.Background(), "m", 10, []llm.Message{msg}), nil)
	require.NoError(t, err)

	content := captured.Body["messages"].([]any)[0].(map[string]any)["content"].([]any)
	require.Len(t, content, 2)

	image := content[0].(map[string]any)
	assert.Equal(t, "image", image["type"])
	source := image["source"].(map[string]any)
	assert.Equal(t, "base64", source["type"])
	assert.Equal(t, "image/png", source["media_type"])
	assert.Equal(t, "cG5nLWJ5dGVz", source["data"])

	text := content[1].(map[string]any)
	assert.Equal(t, "text", text["type"])
	assert.Equal(t, "make it green", text["text"])
}

func TestStreamMessages_HTTPErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantIs     error
		wantSubstr string
	}{
		{
			name:       "auth envelope",
			status:     http.StatusUnauthorized,
			body:       `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`,
			wantIs:     ErrAuthFailed,
			wantSubstr: "invalid x-api-key",
		},
		{
			name:       "rate limit envelope",
			status:     http.StatusTooManyRequests,
			body:       `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`,
			wantIs:     ErrRateLimited,
			wantSubstr: "slow down",
		},
		{
			name:       "overloaded without envelope",
			status:     529,
			body:       `upstream busy`,
			wantIs:     ErrOverloaded,
			wantSubstr: "upstream busy",
		},
		{
			name:       "unauthorized without envelope",
			status:     http.StatusUnauthorized,
			body:       ``,
			wantIs:     ErrAuthFailed,
			wantSubstr: "Unauthorized",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer server.Close()

			client := NewAnthropicClient(testKey).WithBaseURL(server.URL)
			events := drain(client.StreamMessages(context.Background(), "m", 10, []llm.Message{llm.UserText("x")}))

			require.Len(t, events, 1)
			require.Equal(t, llm.EventError, events[0].Kind)
			assert.ErrorIs(t, events[0].Err, tt.wantIs)
			assert.Contains(t, events[0].Err.Error(), tt.wantSubstr)
		})
	}
}

func TestStreamMessages_InStreamError(t *testing.T) {
	body := sseEvent("message_start", `{"type":"message_start","message":{"usage":{"input_tokens":3}}}`) +
		textDelta("<svg") +
		sseEvent("error", `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`)
	server := newSSEServer(t, body, nil)

	client := NewAnthropicClient(testKey).WithBaseURL(server.URL)
	text, _, err := llm.Collect(client.StreamMessages(context.Background(), "m", 10, []llm.Message{llm.UserText("x")}), nil)

	assert.Equal(t, "<svg", text)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOverloaded)

	var streamErr *StreamError
	require.True(t, errors.As(err, &streamErr))
	assert.Equal(t, "<svg", streamErr.Partial)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Overloaded", apiErr.Message)
}

func TestStreamMessages_NotConfigured(t *testing.T) {
	client := NewAnthropicClient("   ")
	_, _, err := llm.Collect(client.StreamMessages(context.Background(), "m", 10, nil), nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestStreamMessages_ContextCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, textDelta("<svg>"))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := NewAnthropicClient(testKey).WithBaseURL(server.URL)
	var lastErr error
	for ev := range client.StreamMessages(ctx, "m", 10, []llm.Message{llm.UserText("x")}) {
		switch ev.Kind {
		case llm.EventText:
			cancel()
		case llm.EventError:
			lastErr = ev.Err
		}
	}

	assert.ErrorIs(t, lastErr, context.Canceled)
}

func TestKeyFingerprint(t *testing.T) {
	client := NewAnthropicClient(testKey)
	fp := client.KeyFingerprint()

	assert.Len(t, fp, 8)
	assert.NotContains(t, testKey, fp)
	assert.Equal(t, "none", NewAnthropicClient("").KeyFingerprint())
}

// =============================================================================
// SSE READER TESTS
// =============================================================================

func TestSSEReader_ReadEvent(t *testing.T) {
	input := ": keep-alive comment\r\n" +
		"event: first\r\n" +
		"data: line one\r\n" +
		"data: line two\r\n" +
		"\r\n" +
		"\n" +
		"id: 7\n" +
		"data:no-space\n" +
		"\n" +
		"event: last\n" +
		"data: unterminated"

	reader := NewSSEReader(strings.NewReader(input))

	name, data, err := reader.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "first", name)
	assert.Equal(t, "line one\nline two", string(data))

	name, data, err = reader.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "", name)
	assert.Equal(t, "no-space", string(data))

	name, data, err = reader.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "last", name)
	assert.Equal(t, "unterminated", string(data))

	_, _, err = reader.ReadEvent()
	assert.ErrorIs(t, err, io.EOF)
}

// =============================================================================
// PROVIDER TESTS
// =============================================================================

// countingSource resolves a fixed config and counts calls.
type countingSource struct {
	calls atomic.Int32
	cfg   *config.AppConfig
	err   error
}

func (s *countingSource) Resolve(ctx context.Context) (*config.AppConfig, error) {
	s.calls.Add(1)
	return s.cfg, s.err
}

func testAppConfig() *config.AppConfig {
	return &config.AppConfig{
		APIKey:            testKey,
		Model:             config.Model,
		MaxTokens:         config.MaxTokens,
		FilenameMaxTokens: config.FilenameMaxTokens,
		Source:            "env",
	}
}

func TestClaudeProvider_LazyInitOnce(t *testing.T) {
	var captured capturedRequest
	server := newSSEServer(t, happyStream, &captured)
	source := &countingSource{cfg: testAppConfig()}

	provider := NewClaudeProvider(source, WithEndpoint(server.URL))
	assert.Zero(t, source.calls.Load(), "construction must not resolve config")

	text, usage, err := llm.Collect(provider.StreamCompletion(context.Background(), []llm.Message{llm.UserText("x")}), nil)
	require.NoError(t, err)
	assert.Equal(t, "<svg><rect/></svg>", text)
	assert.Equal(t, llm.Usage{InputTokens: 10, OutputTokens: 5}, usage)
	assert.Equal(t, float64(config.MaxTokens), captured.Body["max_tokens"])
	assert.Equal(t, config.Model, captured.Body["model"])

	_, _, err = llm.Collect(provider.StreamCompletion(context.Background(), []llm.Message{llm.UserText("y")},
		llm.WithMaxTokens(config.FilenameMaxTokens)), nil)
	require.NoError(t, err)
	assert.Equal(t, float64(config.FilenameMaxTokens), captured.Body["max_tokens"])

	assert.Equal(t, int32(1), source.calls.Load())
}

func TestClaudeProvider_InitErrorMemoized(t *testing.T) {
	boom := errors.New("no key")
	source := &countingSource{err: boom}
	provider := NewClaudeProvider(source)

	for i := 0; i < 2; i++ {
		_, _, err := llm.Collect(provider.StreamCompletion(context.Background(), nil), nil)
		assert.ErrorIs(t, err, boom)
	}
	assert.Equal(t, int32(1), source.calls.Load())
}

func TestClaudeProvider_CalculateCost(t *testing.T) {
	provider := NewClaudeProvider(&countingSource{})

	tests := []struct {
		in, out int
		want    string
	}{
		{0, 0, "$0.0000"},
		{10, 5, "$0.0001"},
		{1_000_000, 0, "$3.0000"},
		{0, 1_000_000, "$15.0000"},
		{12_345, 6_789, "$0.1389"},
	}

	for _, tt := range tests {
		if got := provider.CalculateCost(tt.in, tt.out); got != tt.want {
			t.Errorf("CalculateCost(%d, %d) = %s, want %s", tt.in, tt.out, got, tt.want)
		}
	}
}
