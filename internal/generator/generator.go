// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package generator turns descriptions and edit instructions into SVG
// markup through an llm.Provider.
//
// Generate, Modify and AutoImprove share one skeleton: build a single
// message, drain the stream while reporting progress, clean the markup,
// show a best-effort preview and print a token/cost summary.
package generator

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jeranaias/saul/internal/config"
	"github.com/jeranaias/saul/internal/llm"
	"go.uber.org/zap"
)

// DefaultFilename is used when the suggested filename sanitizes to nothing.
const DefaultFilename = "image"

// Operation names one kind of model exchange.
type Operation string

const (
	OpGenerate    Operation = "generate"
	OpFilename    Operation = "filename"
	OpModify      Operation = "modify"
	OpAutoImprove Operation = "auto-improve"
)

// Label is the progress label shown while the operation streams.
func (o Operation) Label() string {
	switch o {
	case OpGenerate:
		return "Generating SVG"
	case OpFilename:
		return "Naming SVG"
	case OpModify:
		return "Modifying SVG"
	case OpAutoImprove:
		return "Auto-improving SVG"
	default:
		return string(o)
	}
}

// =============================================================================
// COLLABORATORS
// =============================================================================

// Progress receives live status lines while a stream is drained.
type Progress interface {
	Message(msg string)
}

// Rasterizer converts SVG markup to PNG bytes.
type Rasterizer interface {
	Rasterize(svg string) ([]byte, error)
}

// Previewer renders PNG bytes as terminal text.
type Previewer interface {
	Preview(png []byte) (string, error)
}

// UsageRecorder stores the token usage of each exchange.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, operation string, usage llm.Usage)
}

// Result is the outcome of Generate.
type Result struct {
	SVG      string
	Filename string
}

// =============================================================================
// GENERATOR
// =============================================================================

// Generator runs SVG exchanges against a provider.
type Generator struct {
	provider          llm.Provider
	rasterizer        Rasterizer
	previewer         Previewer
	recorder          UsageRecorder
	out               io.Writer
	filenameMaxTokens int
	logger            *zap.Logger
	now               func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithPreview enables the terminal preview after each exchange.
func WithPreview(r Rasterizer, p Previewer) Option {
	return func(g *Generator) {
		g.rasterizer = r
		g.previewer = p
	}
}

// WithRecorder records token usage of every exchange.
func WithRecorder(r UsageRecorder) Option {
	return func(g *Generator) { g.recorder = r }
}

// WithOutput sets where previews and summaries are written.
func WithOutput(w io.Writer) Option {
	return func(g *Generator) { g.out = w }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// WithClock overrides time.Now for elapsed-time reporting.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithFilenameMaxTokens caps the filename suggestion exchange.
func WithFilenameMaxTokens(n int) Option {
	return func(g *Generator) { g.filenameMaxTokens = n }
}

// New creates a generator. Without options it writes nothing and shows no
// preview.
func New(provider llm.Provider, opts ...Option) *Generator {
	g := &Generator{
		provider:          provider,
		out:               io.Discard,
		filenameMaxTokens: config.FilenameMaxTokens,
		logger:            zap.NewNop(),
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate creates an SVG from a description and asks for a filename in a
// second, independent exchange.
func (g *Generator) Generate(ctx context.Context, description string, progress Progress) (*Result, error) {
	text, usage, err := g.exchange(ctx, OpGenerate, generateMessages(description), progress)
	if err != nil {
		return nil, err
	}

	svg := CleanMarkup(text)
	g.present(svg, usage)

	nameText, nameUsage, err := g.exchange(ctx, OpFilename, filenameMessages(description), nil,
		llm.WithMaxTokens(g.filenameMaxTokens))
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(g.out, " %s\n", dimStyle.Render(g.summary(nameUsage)))

	filename := SanitizeFilename(nameText)
	if strings.Trim(filename, "-") == "" {
		filename = DefaultFilename
	}

	return &Result{SVG: svg, Filename: filename}, nil
}

// Modify applies a free-text instruction to the current SVG. snapshot is a
// PNG rendering of current.
func (g *Generator) Modify(ctx context.Context, current string, snapshot []byte, instruction string, progress Progress) (string, error) {
	text, usage, err := g.exchange(ctx, OpModify, modifyMessages(current, snapshot, instruction), progress)
	if err != nil {
		return "", err
	}
	svg := CleanMarkup(text)
	g.present(svg, usage)
	return svg, nil
}

// AutoImprove asks the model to improve the current SVG on its own.
func (g *Generator) AutoImprove(ctx context.Context, current string, snapshot []byte, progress Progress) (string, error) {
	text, usage, err := g.exchange(ctx, OpAutoImprove, autoImproveMessages(current, snapshot), progress)
	if err != nil {
		return "", err
	}
	svg := CleanMarkup(text)
	g.present(svg, usage)
	return svg, nil
}

// =============================================================================
// SHARED SKELETON
// =============================================================================

// exchange streams one completion and returns the concatenated text and
// the last usage observed.
func (g *Generator) exchange(ctx context.Context, op Operation, messages []llm.Message, progress Progress, opts ...llm.CallOption) (string, llm.Usage, error) {
	start := g.now()

	events := g.provider.StreamCompletion(ctx, messages, opts...)
	text, usage, err := llm.Collect(events, func(u llm.Usage) {
		if progress != nil {
			progress.Message(FormatProgress(op.Label(), g.now().Sub(start), u.OutputTokens))
		}
	})
	if err == nil {
		err = ctx.Err()
	}

	if g.recorder != nil && (usage.InputTokens > 0 || usage.OutputTokens > 0) {
		g.recorder.RecordUsage(ctx, string(op), usage)
	}

	if err != nil {
		g.logger.Debug("exchange failed", zap.String("operation", string(op)), zap.Error(err))
		return "", usage, err
	}

	g.logger.Debug("exchange complete",
		zap.String("operation", string(op)),
		zap.Int("chars", len(text)),
		zap.Int("input_tokens", usage.InputTokens),
		zap.Int("output_tokens", usage.OutputTokens),
		zap.Duration("elapsed", g.now().Sub(start)),
	)
	return text, usage, nil
}

// present shows the preview, if possible, and the cost summary.
func (g *Generator) present(svg string, usage llm.Usage) {
	g.showPreview(svg)
	fmt.Fprintf(g.out, "%s\n\n", dimStyle.Render(g.summary(usage)))
}

// showPreview renders svg into the terminal. Every failure is swallowed.
func (g *Generator) showPreview(svg string) {
	if g.rasterizer == nil || g.previewer == nil {
		return
	}

	png, err := g.rasterizer.Rasterize(svg)
	if err != nil {
		g.logger.Debug("preview skipped", zap.Error(err))
		return
	}
	art, err := g.previewer.Preview(png)
	if err != nil {
		g.logger.Debug("preview skipped", zap.Error(err))
		return
	}

	fmt.Fprintf(g.out, "\n%s\n%s\n", dimStyle.Render("[Low resolution preview]"), art)
}

func (g *Generator) summary(usage llm.Usage) string {
	return fmt.Sprintf("%d tokens · %s", usage.OutputTokens,
		g.provider.CalculateCost(usage.InputTokens, usage.OutputTokens))
}

// =============================================================================
// FORMATTING
// =============================================================================

var dimStyle = lipgloss.NewStyle().Faint(true)

// FormatProgress renders a progress line such as
// "Generating SVG... 1.2s · 340 tokens".
func FormatProgress(label string, elapsed time.Duration, tokens int) string {
	return fmt.Sprintf("%s... %s", label,
		dimStyle.Render(fmt.Sprintf("%.1fs · %d tokens", elapsed.Seconds(), tokens)))
}
