// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jeranaias/saul/internal/llm"
	"github.com/jeranaias/saul/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPricing = llm.Pricing{InputPerMillion: 3, OutputPerMillion: 15}

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := OpenLedger(filepath.Join(t.TempDir(), "nested", LedgerFileName), "test-model", testPricing, nil)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestLedger_RecordFillsDefaults(t *testing.T) {
	l := openTestLedger(t)
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	l.now = func() time.Time { return at }

	rec, err := l.Record(context.Background(), UsageRecord{
		Operation:    "generate",
		InputTokens:  1_000_000,
		OutputTokens: 1_000_000,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, at, rec.At)
	assert.Equal(t, "test-model", rec.Model)
	assert.InDelta(t, 18.0, rec.CostUSD, 1e-9)

	recent, err := l.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, rec.ID, recent[0].ID)
	assert.True(t, at.Equal(recent[0].At))
	assert.Equal(t, "generate", recent[0].Operation)
}

func TestLedger_Summary(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	records := []UsageRecord{
		{At: base.Add(-48 * time.Hour), Operation: "generate", InputTokens: 100, OutputTokens: 1000},
		{At: base.Add(time.Hour), Operation: "generate", InputTokens: 200, OutputTokens: 2000},
		{At: base.Add(2 * time.Hour), Operation: "filename", InputTokens: 50, OutputTokens: 5},
		{At: base.Add(3 * time.Hour), Operation: "modify", InputTokens: 3000, OutputTokens: 2500},
	}
	for _, rec := range records {
		_, err := l.Record(ctx, rec)
		require.NoError(t, err)
	}

	tests := []struct {
		name          string
		since         time.Time
		wantExchanges int
		wantOps       []string
		wantOutput    int
	}{
		{"all time", time.Time{}, 4, []string{"filename", "generate", "modify"}, 5505},
		{"since base", base, 3, []string{"filename", "generate", "modify"}, 4505},
		{"future", base.Add(24 * time.Hour), 0, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := l.Summary(ctx, tt.since)
			require.NoError(t, err)
			assert.Equal(t, tt.wantExchanges, s.Total.Exchanges)
			assert.Equal(t, tt.wantOutput, s.Total.OutputTokens)

			var ops []string
			for _, op := range s.ByOperation {
				ops = append(ops, op.Operation)
			}
			assert.Equal(t, tt.wantOps, ops)
		})
	}
}

func TestLedger_RecentOrderAndLimit(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	for i, op := range []string{"generate", "filename", "modify", "auto-improve"} {
		_, err := l.Record(ctx, UsageRecord{At: base.Add(time.Duration(i) * time.Minute), Operation: op})
		require.NoError(t, err)
	}

	recent, err := l.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "auto-improve", recent[0].Operation)
	assert.Equal(t, "modify", recent[1].Operation)
}

func TestLedger_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), LedgerFileName)

	l, err := OpenLedger(path, "m", testPricing, nil)
	require.NoError(t, err)
	l.RecordUsage(context.Background(), "generate", llm.Usage{InputTokens: 10, OutputTokens: 5})
	require.NoError(t, l.Close())

	l, err = OpenLedger(path, "m", testPricing, nil)
	require.NoError(t, err)
	defer l.Close()

	s, err := l.Summary(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Total.Exchanges)
	assert.Equal(t, 10, s.Total.InputTokens)
	assert.InDelta(t, 0.000105, s.Total.CostUSD, 1e-12)
}

func TestLedger_RecordUsageLogsFailure(t *testing.T) {
	var buf bytes.Buffer
	l, err := OpenLedger(filepath.Join(t.TempDir(), LedgerFileName), "m", testPricing, logger.NewWithWriter(&buf, false))
	require.NoError(t, err)
	require.NoError(t, l.Close())

	l.RecordUsage(context.Background(), "modify", llm.Usage{InputTokens: 1})
	assert.Contains(t, buf.String(), "usage not recorded")

	_, err = l.Summary(context.Background(), time.Time{})
	assert.ErrorIs(t, err, ErrLedgerClosed)
}
