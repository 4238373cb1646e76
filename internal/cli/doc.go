// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the interactive session for
// saul.
//
// # Key Types
//
//   - Command: Enumeration of the available commands
//   - Args: Parsed command-line arguments
//   - Session: The describe, generate, save and refine loop
//   - Spinner: Single-line progress indicator shared with the generator
//
// # Usage
//
// main hands the process arguments to Main:
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	code := cli.Main(ctx, os.Args[1:])
//	stop()
//	os.Exit(code)
//
// # Modes
//
// With a terminal on stdin the session is interactive: the description is
// prompted for, and after every saved version a menu offers viewing,
// modifying, auto-improving or starting over. Without one, the description
// is read from stdin, a single SVG is generated, and its absolute path is
// printed on stdout while progress goes to stderr.
//
// # Commands Overview
//
//   - (none): Generate and refine SVGs
//   - usage: Token usage and cost report from the local ledger
//   - version: Version information
//   - help: Help text
//
// usage and version support the --json flag.
package cli
