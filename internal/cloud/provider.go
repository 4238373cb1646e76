// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"net/http"
	"sync"

	"github.com/jeranaias/saul/internal/config"
	"github.com/jeranaias/saul/internal/llm"
	"go.uber.org/zap"
)

// ClaudePricing is the Claude Sonnet 4.5 rate card.
var ClaudePricing = llm.Pricing{InputPerMillion: 3, OutputPerMillion: 15}

// ConfigSource resolves the application configuration.
type ConfigSource interface {
	Resolve(ctx context.Context) (*config.AppConfig, error)
}

// ClaudeProvider implements llm.Provider on top of AnthropicClient.
//
// Configuration is resolved on the first StreamCompletion call and memoized
// for the provider's lifetime, including a failed resolution.
type ClaudeProvider struct {
	source     ConfigSource
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger

	once    sync.Once
	cfg     *config.AppConfig
	client  *AnthropicClient
	initErr error
}

var _ llm.Provider = (*ClaudeProvider)(nil)

// ProviderOption configures a ClaudeProvider.
type ProviderOption func(*ClaudeProvider)

// WithEndpoint points the provider at a different API base URL.
func WithEndpoint(baseURL string) ProviderOption {
	return func(p *ClaudeProvider) { p.baseURL = baseURL }
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(client *http.Client) ProviderOption {
	return func(p *ClaudeProvider) { p.httpClient = client }
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *zap.Logger) ProviderOption {
	return func(p *ClaudeProvider) { p.logger = logger }
}

// NewClaudeProvider creates a provider that resolves its credentials from
// source on first use.
func NewClaudeProvider(source ConfigSource, opts ...ProviderOption) *ClaudeProvider {
	p := &ClaudeProvider{source: source, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ensureInitialized resolves configuration exactly once.
func (p *ClaudeProvider) ensureInitialized(ctx context.Context) error {
	p.once.Do(func() {
		cfg, err := p.source.Resolve(ctx)
		if err != nil {
			p.initErr = err
			return
		}

		client := NewAnthropicClient(cfg.APIKey).WithLogger(p.logger)
		if p.baseURL != "" {
			client.WithBaseURL(p.baseURL)
		}
		if p.httpClient != nil {
			client.WithHTTPClient(p.httpClient)
		}

		p.cfg = cfg
		p.client = client
		p.logger.Debug("claude provider initialized",
			zap.String("model", cfg.Model),
			zap.String("key_source", cfg.Source),
			zap.String("key_fingerprint", client.KeyFingerprint()),
		)
	})
	return p.initErr
}

// StreamCompletion implements llm.Provider.
func (p *ClaudeProvider) StreamCompletion(ctx context.Context, messages []llm.Message, opts ...llm.CallOption) <-chan llm.StreamEvent {
	if err := p.ensureInitialized(ctx); err != nil {
		return errorStream(err)
	}

	maxTokens := p.cfg.MaxTokens
	if o := llm.ApplyOptions(opts); o.MaxTokens > 0 {
		maxTokens = o.MaxTokens
	}

	return p.client.StreamMessages(ctx, p.cfg.Model, maxTokens, messages)
}

// CalculateCost implements llm.Provider.
func (p *ClaudeProvider) CalculateCost(inputTokens, outputTokens int) string {
	return llm.FormatCost(ClaudePricing.Cost(llm.Usage{InputTokens: inputTokens, OutputTokens: outputTokens}))
}

// Model returns the configured model, or the default before initialization.
func (p *ClaudeProvider) Model() string {
	if p.cfg != nil {
		return p.cfg.Model
	}
	return config.Model
}

// errorStream returns a closed stream holding only err.
func errorStream(err error) <-chan llm.StreamEvent {
	ch := make(chan llm.StreamEvent, 1)
	ch <- llm.ErrorEvent(err)
	close(ch)
	return ch
}
