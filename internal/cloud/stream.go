// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jeranaias/saul/internal/llm"
	"go.uber.org/zap"
)

// STREAMING: SSE parsing for the Messages API

// =============================================================================
// STREAMING TYPES
// =============================================================================

// streamPayload is the union of the Messages API stream event bodies.
type streamPayload struct {
	Type    string `json:"type"`
	Message *struct {
		Model string   `json:"model"`
		Usage apiUsage `json:"usage"`
	} `json:"message,omitempty"`
	Delta *struct {
		Type       string `json:"type"`
		Text       string `json:"text"`
		StopReason string `json:"stop_reason"`
	} `json:"delta,omitempty"`
	Usage *apiUsage `json:"usage,omitempty"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type apiUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// StreamError is a failure that interrupted a stream after it had started,
// preserving the text received before the failure.
type StreamError struct {
	Partial string
	Err     error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Partial != "" {
		return fmt.Sprintf("stream error (partial content received: %d chars): %v", len(e.Partial), e.Err)
	}
	return fmt.Sprintf("stream error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *StreamError) Unwrap() error {
	return e.Err
}

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader parses Server-Sent Events from a stream.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates a new SSE reader from an io.Reader.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{reader: bufio.NewReader(r)}
}

// ReadEvent reads the next event and returns its type and data. Multiple
// data lines are joined with "\n". Returns io.EOF when the stream ends.
func (s *SSEReader) ReadEvent() (string, []byte, error) {
	var eventType string
	var dataLines [][]byte

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil && !(err == io.EOF && len(line) > 0) {
			if err == io.EOF && len(dataLines) > 0 {
				return eventType, bytes.Join(dataLines, []byte("\n")), nil
			}
			return "", nil, err
		}

		line = bytes.TrimRight(line, "\r\n")

		// A blank line dispatches the event.
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return eventType, bytes.Join(dataLines, []byte("\n")), nil
			}
			eventType = ""
			if err == io.EOF {
				return "", nil, io.EOF
			}
			continue
		}

		switch {
		case bytes.HasPrefix(line, []byte(":")):
			// comment
		case bytes.HasPrefix(line, []byte("event:")):
			eventType = string(bytes.TrimSpace(line[len("event:"):]))
		case bytes.HasPrefix(line, []byte("data:")):
			data := line[len("data:"):]
			data = bytes.TrimPrefix(data, []byte(" "))
			dataLines = append(dataLines, data)
		}
		// id: and retry: are ignored.

		if err == io.EOF {
			if len(dataLines) > 0 {
				return eventType, bytes.Join(dataLines, []byte("\n")), nil
			}
			return "", nil, io.EOF
		}
	}
}

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamMessages sends a streaming Messages API request and returns its
// events on a channel. Usage events replace one another: input tokens come
// from message_start, output tokens from each message_delta, and one final
// usage event is always sent after the stream ends. A failure is sent as an
// llm.EventError event, after which the channel closes.
func (c *AnthropicClient) StreamMessages(ctx context.Context, model string, maxTokens int, messages []llm.Message) <-chan llm.StreamEvent {
	events := make(chan llm.StreamEvent)

	go func() {
		defer close(events)

		send := func(ev llm.StreamEvent) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if err := c.streamMessages(ctx, model, maxTokens, messages, send); err != nil {
			// Consumers drain the channel, so the terminal error is always
			// delivered, cancellation included.
			events <- llm.ErrorEvent(err)
		}
	}()

	return events
}

// streamMessages performs the request and pumps events through send.
func (c *AnthropicClient) streamMessages(ctx context.Context, model string, maxTokens int, messages []llm.Message, send func(llm.StreamEvent) bool) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}

	reqBody := messagesRequest{
		Model:     model,
		MaxTokens: maxTokens,
		Stream:    true,
		Messages:  toAPIMessages(messages),
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	c.logRequest(req, reqBody)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	c.logResponse(resp, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		return c.handleErrorResponse(resp.StatusCode, readErrorBody(resp.Body))
	}

	usage, err := c.processStream(ctx, resp.Body, send)
	if err != nil {
		return err
	}

	c.logger.Debug("stream complete",
		zap.Int("input_tokens", usage.InputTokens),
		zap.Int("output_tokens", usage.OutputTokens),
		zap.Duration("elapsed", time.Since(start)),
	)

	// The final usage event is sent even if it repeats the last delta.
	if !send(llm.UsageEvent(usage.InputTokens, usage.OutputTokens)) {
		return ctx.Err()
	}
	return nil
}

// processStream reads SSE events until message_stop or EOF and forwards text
// and usage to send. It returns the last known usage.
func (c *AnthropicClient) processStream(ctx context.Context, body io.Reader, send func(llm.StreamEvent) bool) (llm.Usage, error) {
	reader := NewSSEReader(body)
	var usage llm.Usage
	var partial bytes.Buffer

	fail := func(err error) (llm.Usage, error) {
		if partial.Len() > 0 {
			return usage, &StreamError{Partial: partial.String(), Err: err}
		}
		return usage, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return usage, err
		}

		eventType, data, err := reader.ReadEvent()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return usage, nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return usage, ctxErr
			}
			return fail(fmt.Errorf("failed to read stream: %w", err))
		}

		var payload streamPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			c.logger.Debug("skipping malformed stream event", zap.String("event", eventType), zap.Error(err))
			continue
		}
		if payload.Type == "" {
			payload.Type = eventType
		}

		switch payload.Type {
		case "message_start":
			if payload.Message != nil {
				usage.InputTokens = payload.Message.Usage.InputTokens
			}

		case "content_block_delta":
			if payload.Delta != nil && payload.Delta.Type == "text_delta" && payload.Delta.Text != "" {
				partial.WriteString(payload.Delta.Text)
				if !send(llm.TextEvent(payload.Delta.Text)) {
					return usage, ctx.Err()
				}
			}

		case "message_delta":
			if payload.Usage != nil {
				usage.OutputTokens = payload.Usage.OutputTokens
			}
			if !send(llm.UsageEvent(usage.InputTokens, usage.OutputTokens)) {
				return usage, ctx.Err()
			}

		case "message_stop":
			return usage, nil

		case "error":
			apiErr := &APIError{Type: "api_error", Message: "stream error"}
			if payload.Error != nil {
				apiErr.Type = payload.Error.Type
				apiErr.Message = payload.Error.Message
			}
			return fail(apiErr)
		}
		// ping, content_block_start and content_block_stop carry nothing we use.
	}
}
