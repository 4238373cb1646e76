// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import (
	"context"
	"fmt"
	"strings"
)

// =============================================================================
// STREAM EVENTS
// =============================================================================

// EventKind tags a StreamEvent.
type EventKind int

const (
	// EventText carries a fragment of generated text.
	EventText EventKind = iota
	// EventUsage carries the current input/output token counts.
	EventUsage
	// EventError carries the failure that ended the stream.
	EventError
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventText:
		return "text"
	case EventUsage:
		return "usage"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Usage is a pair of token counts reported by the model.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// StreamEvent is one item of a streaming completion. An EventError event is
// always the last event sent before the channel closes.
type StreamEvent struct {
	Kind  EventKind
	Text  string
	Usage Usage
	Err   error
}

// TextEvent creates a text event.
func TextEvent(text string) StreamEvent {
	return StreamEvent{Kind: EventText, Text: text}
}

// UsageEvent creates a usage event.
func UsageEvent(input, output int) StreamEvent {
	return StreamEvent{Kind: EventUsage, Usage: Usage{InputTokens: input, OutputTokens: output}}
}

// ErrorEvent creates an error event.
func ErrorEvent(err error) StreamEvent {
	return StreamEvent{Kind: EventError, Err: err}
}

// =============================================================================
// PROVIDER
// =============================================================================

// Provider is a streaming completion backend.
type Provider interface {
	// StreamCompletion opens a new upstream stream for the conversation and
	// returns its events. The channel is closed when the stream ends.
	// Callers must drain it to observe the final usage event.
	StreamCompletion(ctx context.Context, messages []Message, opts ...CallOption) <-chan StreamEvent

	// CalculateCost formats the monetary cost of a token pair.
	CalculateCost(inputTokens, outputTokens int) string
}

// CallOptions holds per-call overrides.
type CallOptions struct {
	// MaxTokens overrides the provider's output token ceiling when > 0.
	MaxTokens int
}

// CallOption configures a single StreamCompletion call.
type CallOption func(*CallOptions)

// WithMaxTokens caps the output tokens of one call.
func WithMaxTokens(n int) CallOption {
	return func(o *CallOptions) {
		o.MaxTokens = n
	}
}

// ApplyOptions folds call options into a CallOptions value.
func ApplyOptions(opts []CallOption) CallOptions {
	var o CallOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// =============================================================================
// PRICING
// =============================================================================

// Pricing is a per-million-token rate card in US dollars.
type Pricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// Cost returns the dollar cost of the given usage.
func (p Pricing) Cost(u Usage) float64 {
	input := float64(u.InputTokens) / 1_000_000 * p.InputPerMillion
	output := float64(u.OutputTokens) / 1_000_000 * p.OutputPerMillion
	return input + output
}

// FormatCost renders a dollar amount to four decimal places.
func FormatCost(usd float64) string {
	return fmt.Sprintf("$%.4f", usd)
}

// =============================================================================
// COLLECTION
// =============================================================================

// Collect drains a stream, concatenating text fragments in arrival order.
// onUsage, when non-nil, is called for every usage event. The returned usage
// is the last one observed. If the stream ended with an error event, the text
// received so far is returned together with that error.
func Collect(events <-chan StreamEvent, onUsage func(Usage)) (string, Usage, error) {
	var (
		text  strings.Builder
		usage Usage
		err   error
	)

	for ev := range events {
		switch ev.Kind {
		case EventText:
			text.WriteString(ev.Text)
		case EventUsage:
			usage = ev.Usage
			if onUsage != nil {
				onUsage(ev.Usage)
			}
		case EventError:
			if err == nil {
				err = ev.Err
			}
		}
	}

	return text.String(), usage, err
}
