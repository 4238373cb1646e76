// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// run.go - Command dispatch and wiring of the generate flow.

package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jeranaias/saul/internal/cloud"
	"github.com/jeranaias/saul/internal/config"
	"github.com/jeranaias/saul/internal/generator"
	"github.com/jeranaias/saul/internal/logger"
	"github.com/jeranaias/saul/internal/render"
	"github.com/jeranaias/saul/internal/storage"
	"github.com/jeranaias/saul/internal/telemetry"
	"go.uber.org/zap"
)

// Main parses argv, runs the selected command and returns the process exit
// code.
func Main(ctx context.Context, argv []string) int {
	cmd, args, err := Parse(argv)
	if err != nil {
		DisplayError(os.Stderr, err)
		fmt.Fprintln(os.Stderr, DimStyle.Render("Run 'saul --help' for usage."))
		return GetExitCode(err)
	}

	log := logger.New(args.Debug)
	defer log.Sync()

	log.Debug("starting", zap.String("command", cmd.String()), zap.String("version", Version))

	switch cmd {
	case CmdHelp:
		err = HandleHelp(os.Stdout)
	case CmdVersion:
		err = HandleVersion(os.Stdout, args)
	case CmdUsage:
		err = HandleUsage(ctx, os.Stdout, args, log)
	default:
		err = HandleGenerate(ctx, args, log)
	}

	return finish(os.Stdout, cmd, args, err)
}

// finish reports err and maps it to an exit code.
func finish(w io.Writer, cmd Command, args Args, err error) int {
	switch {
	case err == nil:
	case IsCancelled(err):
		fmt.Fprintf(w, "%s  %s\n", SeparatorStyle.Render("└"), "Operation cancelled")
	case args.JSON && cmd != CmdGenerate:
		NewJSONErrorResponse(cmd.String(), err).Write(w)
	default:
		DisplayError(os.Stderr, err)
	}
	return GetExitCode(err)
}

// HandleGenerate runs the describe, generate and refine flow. With a
// terminal on stdin it is interactive; otherwise the description is read
// from stdin and the saved path is printed to stdout.
func HandleGenerate(ctx context.Context, args Args, log *zap.Logger) error {
	interactive := IsTTY()

	// Piped runs keep stdout for the result path.
	uiFile := os.Stdout
	if !interactive {
		uiFile = os.Stderr
	}
	animate := interactive && IsStdoutTTY()
	spin := NewSpinner(uiFile, animate, GetTerminalWidth(uiFile))

	var keyPrompter config.KeyPrompter
	if interactive {
		keyPrompter = NewKeyPrompter(spin)
	}
	provider := cloud.NewClaudeProvider(
		config.NewResolver(keyPrompter, log),
		cloud.WithLogger(log),
	)

	opts := []generator.Option{
		generator.WithOutput(spin),
		generator.WithLogger(log),
		generator.WithPreview(render.NewRasterizer(), render.NewTerminalPreview(GetColorProfile())),
	}
	if ledger := openUsageLedger(provider.Model(), log); ledger != nil {
		defer ledger.Close()
		opts = append(opts, generator.WithRecorder(ledger))
	}

	session := &Session{
		Generator:   generator.New(provider, opts...),
		Status:      spin,
		Store:       storage.NewStore(""),
		Snapshots:   render.NewRasterizer(),
		Open:        OpenInBrowser,
		Input:       os.Stdin,
		Out:         uiFile,
		Result:      os.Stdout,
		Interactive: interactive,
		Logger:      log,
	}
	if interactive {
		session.Prompter = NewTerminalPrompter()
	}

	return session.Run(ctx)
}

// openUsageLedger opens the usage ledger. Generation works without it, so
// failures are logged and nil is returned.
func openUsageLedger(model string, log *zap.Logger) *telemetry.Ledger {
	path, err := telemetry.DefaultLedgerPath()
	if err != nil {
		log.Warn("usage ledger unavailable", zap.Error(err))
		return nil
	}
	ledger, err := telemetry.OpenLedger(path, model, cloud.ClaudePricing, log)
	if err != nil {
		log.Warn("usage ledger unavailable", zap.String("path", path), zap.Error(err))
		return nil
	}
	return ledger
}
