// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jeranaias/saul/internal/config"
	"github.com/jeranaias/saul/internal/llm"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

// LedgerFileName is the database file inside the config directory.
const LedgerFileName = "usage.db"

// ErrLedgerClosed is returned by operations on a closed ledger.
var ErrLedgerClosed = errors.New("usage ledger is closed")

const schema = `
CREATE TABLE IF NOT EXISTS usage_records (
    id            TEXT PRIMARY KEY,
    at            INTEGER NOT NULL,
    operation     TEXT NOT NULL,
    model         TEXT NOT NULL,
    input_tokens  INTEGER NOT NULL,
    output_tokens INTEGER NOT NULL,
    cost_usd      REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_usage_records_at ON usage_records(at);
CREATE INDEX IF NOT EXISTS idx_usage_records_operation ON usage_records(operation);
`

// =============================================================================
// TYPES
// =============================================================================

// UsageRecord is the token usage of one model exchange.
type UsageRecord struct {
	ID           string
	At           time.Time
	Operation    string
	Model        string
	InputTokens  int
	OutputTokens int
	CostUSD      float64
}

// Totals aggregates a set of records.
type Totals struct {
	Exchanges    int
	InputTokens  int
	OutputTokens int
	CostUSD      float64
}

// OperationTotals are the totals of one operation kind.
type OperationTotals struct {
	Operation string
	Totals
}

// Summary is the ledger content since a point in time.
type Summary struct {
	Since       time.Time
	Total       Totals
	ByOperation []OperationTotals
}

// =============================================================================
// LEDGER
// =============================================================================

// Ledger stores usage records in SQLite.
type Ledger struct {
	db      *sql.DB
	model   string
	pricing llm.Pricing
	logger  *zap.Logger
	now     func() time.Time
}

// DefaultLedgerPath returns ~/.config/svg-saul/usage.db.
func DefaultLedgerPath() (string, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, LedgerFileName), nil
}

// OpenLedger opens or creates the ledger at path. Records written through
// RecordUsage are priced with pricing and tagged with model.
func OpenLedger(path, model string, pricing llm.Pricing, logger *zap.Logger) (*Ledger, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize ledger schema: %w", err)
	}

	return &Ledger{
		db:      db,
		model:   model,
		pricing: pricing,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return err
}

// Record appends rec. Empty ID, At, Model and CostUSD are filled in.
func (l *Ledger) Record(ctx context.Context, rec UsageRecord) (UsageRecord, error) {
	if l.db == nil {
		return rec, ErrLedgerClosed
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.At.IsZero() {
		rec.At = l.now()
	}
	if rec.Model == "" {
		rec.Model = l.model
	}
	if rec.CostUSD == 0 {
		rec.CostUSD = l.pricing.Cost(llm.Usage{InputTokens: rec.InputTokens, OutputTokens: rec.OutputTokens})
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO usage_records (id, at, operation, model, input_tokens, output_tokens, cost_usd)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.At.UnixNano(), rec.Operation, rec.Model, rec.InputTokens, rec.OutputTokens, rec.CostUSD,
	)
	if err != nil {
		return rec, fmt.Errorf("failed to record usage: %w", err)
	}
	return rec, nil
}

// RecordUsage records one exchange. Failures are logged, never returned:
// the ledger must not break generation.
func (l *Ledger) RecordUsage(ctx context.Context, operation string, usage llm.Usage) {
	rec, err := l.Record(ctx, UsageRecord{
		Operation:    operation,
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
	})
	if err != nil {
		l.logger.Warn("usage not recorded", zap.String("operation", operation), zap.Error(err))
		return
	}
	l.logger.Debug("usage recorded",
		zap.String("id", rec.ID),
		zap.String("operation", operation),
		zap.Float64("cost_usd", rec.CostUSD),
	)
}

// Summary aggregates all records at or after since. A zero since covers the
// whole ledger.
func (l *Ledger) Summary(ctx context.Context, since time.Time) (*Summary, error) {
	if l.db == nil {
		return nil, ErrLedgerClosed
	}

	var from int64
	if !since.IsZero() {
		from = since.UnixNano()
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT operation, COUNT(*), SUM(input_tokens), SUM(output_tokens), SUM(cost_usd)
		 FROM usage_records WHERE at >= ?
		 GROUP BY operation ORDER BY operation`, from)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage: %w", err)
	}
	defer rows.Close()

	summary := &Summary{Since: since}
	for rows.Next() {
		var op OperationTotals
		if err := rows.Scan(&op.Operation, &op.Exchanges, &op.InputTokens, &op.OutputTokens, &op.CostUSD); err != nil {
			return nil, fmt.Errorf("failed to read usage: %w", err)
		}
		summary.ByOperation = append(summary.ByOperation, op)
		summary.Total.Exchanges += op.Exchanges
		summary.Total.InputTokens += op.InputTokens
		summary.Total.OutputTokens += op.OutputTokens
		summary.Total.CostUSD += op.CostUSD
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read usage: %w", err)
	}
	return summary, nil
}

// Recent returns up to limit records, newest first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]UsageRecord, error) {
	if l.db == nil {
		return nil, ErrLedgerClosed
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT id, at, operation, model, input_tokens, output_tokens, cost_usd
		 FROM usage_records ORDER BY at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage: %w", err)
	}
	defer rows.Close()

	var records []UsageRecord
	for rows.Next() {
		var (
			rec UsageRecord
			at  int64
		)
		if err := rows.Scan(&rec.ID, &at, &rec.Operation, &rec.Model, &rec.InputTokens, &rec.OutputTokens, &rec.CostUSD); err != nil {
			return nil, fmt.Errorf("failed to read usage: %w", err)
		}
		rec.At = time.Unix(0, at)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read usage: %w", err)
	}
	return records, nil
}
