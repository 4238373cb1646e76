// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command-line parsing for saul.
package cli

import (
	"fmt"
	"io"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdGenerate Command = iota // default: describe, generate, refine
	CmdUsage                   // usage ledger report
	CmdVersion
	CmdHelp
)

// String returns the command name.
func (c Command) String() string {
	switch c {
	case CmdGenerate:
		return "generate"
	case CmdUsage:
		return "usage"
	case CmdVersion:
		return "version"
	case CmdHelp:
		return "help"
	default:
		return "unknown"
	}
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Debug bool
	JSON  bool

	// usage command
	Days   int // 0 means all time
	Recent int

	// Raw args remaining after the command name
	Raw []string
}

// DefaultRecent is how many ledger records "saul usage" lists.
const DefaultRecent = 10

// Parse parses command-line arguments (without the program name).
func Parse(argv []string) (Command, Args, error) {
	remaining, args, cmd := parseGlobalFlags(argv)
	if cmd == CmdHelp || cmd == CmdVersion {
		return cmd, args, nil
	}

	if len(remaining) == 0 {
		return CmdGenerate, args, nil
	}

	name := strings.ToLower(remaining[0])
	args.Raw = remaining[1:]

	switch name {
	case "usage", "cost":
		if err := parseUsageArgs(&args, remaining); err != nil {
			return CmdUsage, args, err
		}
		return CmdUsage, args, nil
	case "help":
		return CmdHelp, args, nil
	case "version":
		return CmdVersion, args, nil
	}

	if strings.HasPrefix(name, "-") {
		return CmdHelp, args, &UsageError{Arg: remaining[0], Reason: "unknown flag"}
	}
	return CmdHelp, args, &UsageError{Arg: remaining[0], Reason: "unknown command"}
}

// parseGlobalFlags extracts global flags from args and returns what is left.
// --help and --version short-circuit to their commands.
func parseGlobalFlags(argv []string) ([]string, Args, Command) {
	var (
		remaining []string
		args      Args
		cmd       = CmdGenerate
	)

	for _, arg := range argv {
		switch arg {
		case "--debug":
			args.Debug = true
		case "--json":
			args.JSON = true
		case "-h", "--help":
			cmd = CmdHelp
		case "-v", "--version":
			if cmd != CmdHelp {
				cmd = CmdVersion
			}
		default:
			remaining = append(remaining, arg)
		}
	}

	return remaining, args, cmd
}

// parseUsageArgs parses "usage [--days N] [--recent N]".
func parseUsageArgs(args *Args, remaining []string) error {
	parser := NewArgParser(remaining)

	if unknown := parser.UnknownFlags("days", "recent"); len(unknown) > 0 {
		return &UsageError{Arg: unknown[0], Reason: "unknown flag for usage"}
	}
	if parser.PositionalCount() > 1 {
		return &UsageError{Arg: parser.Positional(1), Reason: "usage takes no arguments"}
	}

	days, err := parser.FlagPositiveInt("days", 0)
	if err != nil {
		return err
	}
	recent, err := parser.FlagPositiveInt("recent", DefaultRecent)
	if err != nil {
		return err
	}

	args.Days = days
	args.Recent = recent
	return nil
}

// =============================================================================
// VERSION
// =============================================================================

// VersionData is the JSON shape of "saul version --json".
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// HandleVersion prints version information.
func HandleVersion(w io.Writer, args Args) error {
	if args.JSON {
		return NewJSONResponse("version", VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}).Write(w)
	}

	fmt.Fprintf(w, "saul version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
	return nil
}
