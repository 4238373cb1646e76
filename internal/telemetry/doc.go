// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry keeps a local ledger of token usage and cost.
//
// Every model exchange (generate, filename, modify, auto-improve) appends
// one UsageRecord to a SQLite database under the saul config directory.
// The ledger is local-only: prompts and generated markup are never stored,
// only token counts and the computed cost.
//
// # Usage
//
//	ledger, err := telemetry.OpenLedger(path, config.Model, cloud.ClaudePricing, log)
//	if err != nil {
//	    return err
//	}
//	defer ledger.Close()
//
//	ledger.RecordUsage(ctx, "generate", llm.Usage{InputTokens: 120, OutputTokens: 900})
//
//	summary, _ := ledger.Summary(ctx, time.Time{})
//	fmt.Printf("Total: %s\n", llm.FormatCost(summary.Total.CostUSD))
package telemetry
