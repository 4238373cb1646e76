// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types and exit codes for saul.
//
// Handlers return errors and let Main decide how to display them and which
// exit code to use.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution, including cancellation.
	ExitSuccess = 0
	// ExitGeneralError indicates a failed generation or empty description.
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments.
	ExitUsageError = 2
)

// =============================================================================
// SENTINELS
// =============================================================================

var (
	// ErrCancelled means the user aborted a prompt or interrupted the
	// process.
	ErrCancelled = errors.New("operation cancelled")

	// ErrEmptyDescription means no description was supplied.
	ErrEmptyDescription = errors.New("no description provided")
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError represents a failed command with context.
type CommandError struct {
	Command string // e.g. "generate", "usage"
	Reason  string // human-readable reason
	Err     error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %s: %v", e.Command, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s failed: %s", e.Command, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// UsageError represents invalid command-line usage.
type UsageError struct {
	Arg    string
	Reason string
}

func (e *UsageError) Error() string {
	if e.Arg != "" {
		return fmt.Sprintf("invalid argument %s: %s", e.Arg, e.Reason)
	}
	return e.Reason
}

// ExitError is an error that has already been shown to the user. Only its
// exit code still matters.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewCommandError creates a new command error.
func NewCommandError(command, reason string, err error) error {
	return &CommandError{Command: command, Reason: reason, Err: err}
}

// =============================================================================
// DISPLAY & EXIT CODES
// =============================================================================

// IsCancelled reports whether err stems from a user cancellation or an
// interrupted context.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

// DisplayError writes "Error: <message>" in the error style. Errors already
// shown (ExitError) are skipped.
func DisplayError(w io.Writer, err error) {
	var exitErr *ExitError
	if err == nil || errors.As(err, &exitErr) {
		return
	}
	fmt.Fprintf(w, "%s  %s\n", ErrorStyle.Render(symbolError), ErrorStyle.Render("Error: "+err.Error()))
}

// GetExitCode determines the exit code for an error returned by a handler.
func GetExitCode(err error) int {
	if err == nil || IsCancelled(err) {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		return ExitUsageError
	}

	return ExitGeneralError
}
