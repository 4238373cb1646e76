// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// args.go - Flag and positional parsing for subcommand arguments.

package cli

import (
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// ARG PARSER
// =============================================================================

// ArgParser handles the flag formats accepted by saul subcommands:
//   - Long flags: --flag value or --flag=value
//   - Boolean flags: --flag (no value needed)
//   - Positional arguments: arguments without flags
//   - Subcommands: first positional argument
type ArgParser struct {
	subcommand string
	flags      map[string]string
	boolFlags  map[string]bool
	positional []string
	raw        []string
}

// NewArgParser creates a new argument parser from raw arguments.
//
//	args := NewArgParser([]string{"usage", "--days", "7", "--json"})
//	args.Subcommand()     // "usage"
//	args.Flag("days")     // "7"
//	args.BoolFlag("json") // true
func NewArgParser(raw []string) *ArgParser {
	parser := &ArgParser{
		flags:      make(map[string]string),
		boolFlags:  make(map[string]bool),
		positional: make([]string, 0),
		raw:        raw,
	}

	i := 0
	for i < len(raw) {
		arg := raw[i]

		if !strings.HasPrefix(arg, "-") || arg == "-" {
			parser.positional = append(parser.positional, arg)
			i++
			continue
		}

		// --flag=value
		if strings.Contains(arg, "=") {
			parts := strings.SplitN(arg, "=", 2)
			name := strings.TrimLeft(parts[0], "-")
			if parts[1] == "true" || parts[1] == "false" {
				parser.boolFlags[name] = parts[1] == "true"
			} else {
				parser.flags[name] = parts[1]
			}
			i++
			continue
		}

		name := strings.TrimLeft(arg, "-")
		if i+1 < len(raw) && !strings.HasPrefix(raw[i+1], "-") {
			parser.flags[name] = raw[i+1]
			i += 2
		} else {
			parser.boolFlags[name] = true
			i++
		}
	}

	if len(parser.positional) > 0 {
		parser.subcommand = parser.positional[0]
	}

	return parser
}

// Subcommand returns the first positional argument.
func (p *ArgParser) Subcommand() string {
	return p.subcommand
}

// Flag returns the value of a string flag, or "".
func (p *ArgParser) Flag(name string) string {
	return p.flags[strings.TrimLeft(name, "-")]
}

// FlagPositiveInt returns a flag as a positive integer, defaultValue when
// the flag is absent, or a UsageError when it is malformed.
func (p *ArgParser) FlagPositiveInt(name string, defaultValue int) (int, error) {
	val := p.Flag(name)
	if val == "" {
		if p.BoolFlag(name) {
			return 0, &UsageError{Arg: "--" + name, Reason: "requires a value"}
		}
		return defaultValue, nil
	}

	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, &UsageError{Arg: "--" + name, Reason: fmt.Sprintf("must be a whole number, got %q", val)}
	}
	if n <= 0 {
		return 0, &UsageError{Arg: "--" + name, Reason: fmt.Sprintf("must be positive, got %d", n)}
	}
	return n, nil
}

// BoolFlag returns the value of a boolean flag.
func (p *ArgParser) BoolFlag(name string) bool {
	return p.boolFlags[strings.TrimLeft(name, "-")]
}

// Positional returns the positional argument at index, or "". Index 0 is
// the subcommand.
func (p *ArgParser) Positional(index int) string {
	if index < 0 || index >= len(p.positional) {
		return ""
	}
	return p.positional[index]
}

// PositionalCount returns the number of positional arguments.
func (p *ArgParser) PositionalCount() int {
	return len(p.positional)
}

// HasFlag returns true if the flag exists as either a string or bool flag.
func (p *ArgParser) HasFlag(name string) bool {
	name = strings.TrimLeft(name, "-")
	_, hasString := p.flags[name]
	_, hasBool := p.boolFlags[name]
	return hasString || hasBool
}

// UnknownFlags returns the flags not listed in known, in argument order.
func (p *ArgParser) UnknownFlags(known ...string) []string {
	allowed := make(map[string]bool, len(known))
	for _, k := range known {
		allowed[k] = true
	}

	var unknown []string
	for _, arg := range p.raw {
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			continue
		}
		name := strings.TrimLeft(strings.SplitN(arg, "=", 2)[0], "-")
		if !allowed[name] {
			unknown = append(unknown, arg)
		}
	}
	return unknown
}

// Raw returns the original arguments.
func (p *ArgParser) Raw() []string {
	return p.raw
}
