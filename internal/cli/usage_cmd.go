// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// usage_cmd.go - Token usage and cost report.
//
// Command: usage
// Aliases: cost
//
// Examples:
//   saul usage                   All-time totals and the last 10 exchanges
//   saul usage --days 7          Totals for the last week
//   saul usage --recent 25       List more exchanges
//   saul usage --json            Report in JSON format
//
// Flags:
//   --days N            Only count exchanges from the last N days
//   --recent N          Number of recent exchanges to list (default 10)
//   --json              Output in JSON format
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jeranaias/saul/internal/cloud"
	"github.com/jeranaias/saul/internal/config"
	"github.com/jeranaias/saul/internal/llm"
	"github.com/jeranaias/saul/internal/telemetry"
	"github.com/jeranaias/saul/internal/util"
	"go.uber.org/zap"
)

// modelColumnWidth bounds the model column of the recent table.
const modelColumnWidth = 24

// UsageData is the JSON shape of "saul usage --json".
type UsageData struct {
	Since        *time.Time           `json:"since,omitempty"`
	Exchanges    int                  `json:"exchanges"`
	InputTokens  int                  `json:"input_tokens"`
	OutputTokens int                  `json:"output_tokens"`
	CostUSD      float64              `json:"cost_usd"`
	ByOperation  []UsageOperationData `json:"by_operation"`
	Recent       []UsageRecordData    `json:"recent"`
}

// UsageOperationData is the per-operation part of UsageData.
type UsageOperationData struct {
	Operation    string  `json:"operation"`
	Exchanges    int     `json:"exchanges"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// UsageRecordData is one exchange in UsageData.
type UsageRecordData struct {
	ID           string    `json:"id"`
	At           time.Time `json:"at"`
	Operation    string    `json:"operation"`
	Model        string    `json:"model"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	CostUSD      float64   `json:"cost_usd"`
}

// HandleUsage handles the "usage" command.
func HandleUsage(ctx context.Context, w io.Writer, args Args, log *zap.Logger) error {
	path, err := telemetry.DefaultLedgerPath()
	if err != nil {
		return NewCommandError("usage", "could not locate usage ledger", err)
	}
	ledger, err := telemetry.OpenLedger(path, config.Model, cloud.ClaudePricing, log)
	if err != nil {
		return NewCommandError("usage", "could not open usage ledger", err)
	}
	defer ledger.Close()

	return usageReport(ctx, w, ledger, args, time.Now())
}

// usageReport writes the report for ledger as of now.
func usageReport(ctx context.Context, w io.Writer, ledger *telemetry.Ledger, args Args, now time.Time) error {
	var since time.Time
	if args.Days > 0 {
		since = now.AddDate(0, 0, -args.Days)
	}

	summary, err := ledger.Summary(ctx, since)
	if err != nil {
		return NewCommandError("usage", "could not read usage ledger", err)
	}
	recent, err := ledger.Recent(ctx, args.Recent)
	if err != nil {
		return NewCommandError("usage", "could not read usage ledger", err)
	}

	if args.JSON {
		return NewJSONResponse("usage", toUsageData(summary, recent)).Write(w)
	}

	renderUsage(w, summary, recent)
	return nil
}

func toUsageData(summary *telemetry.Summary, recent []telemetry.UsageRecord) UsageData {
	data := UsageData{
		Exchanges:    summary.Total.Exchanges,
		InputTokens:  summary.Total.InputTokens,
		OutputTokens: summary.Total.OutputTokens,
		CostUSD:      summary.Total.CostUSD,
		ByOperation:  make([]UsageOperationData, 0, len(summary.ByOperation)),
		Recent:       make([]UsageRecordData, 0, len(recent)),
	}
	if !summary.Since.IsZero() {
		since := summary.Since.UTC()
		data.Since = &since
	}
	for _, op := range summary.ByOperation {
		data.ByOperation = append(data.ByOperation, UsageOperationData{
			Operation:    op.Operation,
			Exchanges:    op.Exchanges,
			InputTokens:  op.InputTokens,
			OutputTokens: op.OutputTokens,
			CostUSD:      op.CostUSD,
		})
	}
	for _, rec := range recent {
		data.Recent = append(data.Recent, UsageRecordData{
			ID:           rec.ID,
			At:           rec.At.UTC(),
			Operation:    rec.Operation,
			Model:        rec.Model,
			InputTokens:  rec.InputTokens,
			OutputTokens: rec.OutputTokens,
			CostUSD:      rec.CostUSD,
		})
	}
	return data
}

func renderUsage(w io.Writer, summary *telemetry.Summary, recent []telemetry.UsageRecord) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, TitleStyle.Render("Usage"))
	fmt.Fprintln(w, RenderSeparator())

	period := "all time"
	if !summary.Since.IsZero() {
		period = "since " + summary.Since.Local().Format("2006-01-02 15:04")
	}
	fmt.Fprintf(w, "%s%s\n", RenderLabel("Period"), ValueStyle.Render(period))
	fmt.Fprintf(w, "%s%s\n", RenderLabel("Exchanges"), ValueStyle.Render(fmt.Sprintf("%d", summary.Total.Exchanges)))
	fmt.Fprintf(w, "%s%s\n", RenderLabel("Tokens"), ValueStyle.Render(formatTokens(summary.Total)))
	fmt.Fprintf(w, "%s%s\n", RenderLabel("Cost"), SuccessStyle.Render(llm.FormatCost(summary.Total.CostUSD)))

	if len(summary.ByOperation) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, HighlightStyle.Render("By operation"))
		for _, op := range summary.ByOperation {
			fmt.Fprintf(w, "%s%s  %s\n",
				RenderLabel(op.Operation),
				ValueStyle.Render(fmt.Sprintf("%4d × %s", op.Exchanges, formatTokens(op.Totals))),
				DimStyle.Render(llm.FormatCost(op.CostUSD)))
		}
	}

	if len(recent) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, HighlightStyle.Render("Recent"))
		for _, rec := range recent {
			fmt.Fprintf(w, "%s  %-14s %-*s %s  %s\n",
				DimStyle.Render(rec.At.Local().Format("2006-01-02 15:04:05")),
				rec.Operation,
				modelColumnWidth, util.TruncateWidth(rec.Model, modelColumnWidth),
				ValueStyle.Render(fmt.Sprintf("%d in / %d out", rec.InputTokens, rec.OutputTokens)),
				DimStyle.Render(llm.FormatCost(rec.CostUSD)))
		}
	} else if summary.Total.Exchanges == 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, DimStyle.Render("No exchanges recorded yet."))
	}
	fmt.Fprintln(w)
}

func formatTokens(t telemetry.Totals) string {
	return fmt.Sprintf("%d in / %d out", t.InputTokens, t.OutputTokens)
}
