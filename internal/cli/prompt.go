// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// prompt.go - Line prompts, the main menu and the API key prompt.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeranaias/saul/internal/config"
	"github.com/peterh/liner"
	"golang.org/x/term"
)

// TextPrompt describes one free-text question.
type TextPrompt struct {
	Message     string
	Placeholder string
	// Required is shown when the answer is empty; the question is asked
	// again.
	Required string
}

var (
	// DescriptionPrompt asks for the image to create.
	DescriptionPrompt = TextPrompt{
		Message:     "Describe the image you want to create:",
		Placeholder: "e.g., a red house with a blue roof",
		Required:    "Please provide a description",
	}

	// ModifyPrompt asks how to change the current image.
	ModifyPrompt = TextPrompt{
		Message:     "How would you like to modify the image?",
		Placeholder: "e.g., make it bigger, change the color to green",
		Required:    "Please provide modification instructions",
	}
)

// historyFileName keeps prompt answers between runs.
const historyFileName = "prompt_history"

// =============================================================================
// TERMINAL PROMPTER
// =============================================================================

// TerminalPrompter asks questions on the controlling terminal. Text answers
// are read with line editing and history; menus use a select list.
type TerminalPrompter struct {
	in          *os.File
	out         io.Writer
	historyFile string
}

// NewTerminalPrompter creates a prompter on stdin/stdout. History is kept in
// the saul config directory when it is available.
func NewTerminalPrompter() *TerminalPrompter {
	p := &TerminalPrompter{in: os.Stdin, out: os.Stdout}
	if dir, err := config.ConfigDir(); err == nil {
		p.historyFile = filepath.Join(dir, historyFileName)
	}
	return p
}

// Text asks tp until a non-empty answer is given. Ctrl-C and Ctrl-D return
// ErrCancelled.
func (p *TerminalPrompter) Text(ctx context.Context, tp TextPrompt) (string, error) {
	if ctx.Err() != nil {
		return "", ErrCancelled
	}

	fmt.Fprintf(p.out, "%s  %s\n", InfoStyle.Render(symbolActive), QuestionStyle.Render(tp.Message))
	if tp.Placeholder != "" {
		fmt.Fprintf(p.out, "%s  %s\n", InfoStyle.Render(symbolBar), DimStyle.Render(tp.Placeholder))
	}

	// A liner per question: it switches the terminal mode, which must be
	// restored before the menu or the spinner take over.
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	p.loadHistory(line)
	defer func() {
		p.saveHistory(line)
		line.Close()
	}()

	for {
		answer, err := line.Prompt(symbolBar + "  ")
		switch {
		case errors.Is(err, liner.ErrPromptAborted), errors.Is(err, io.EOF):
			return "", ErrCancelled
		case err != nil:
			return "", fmt.Errorf("failed to read input: %w", err)
		}

		answer = strings.TrimSpace(answer)
		if answer == "" {
			fmt.Fprintf(p.out, "%s  %s\n", WarningStyle.Render(symbolWarning), WarningStyle.Render(tp.Required))
			continue
		}

		line.AppendHistory(answer)
		return answer, nil
	}
}

// Select shows a menu and returns the chosen action.
func (p *TerminalPrompter) Select(ctx context.Context, question string, options []MenuOption) (MenuAction, error) {
	return runMenu(ctx, p.in, p.out, question, options)
}

func (p *TerminalPrompter) loadHistory(line *liner.State) {
	if p.historyFile == "" {
		return
	}
	if f, err := os.Open(p.historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
}

// saveHistory persists history with owner-only permissions.
func (p *TerminalPrompter) saveHistory(line *liner.State) {
	if p.historyFile == "" {
		return
	}
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(p.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	line.WriteHistory(f)
}

// =============================================================================
// API KEY PROMPT
// =============================================================================

// KeyPrompter asks for an API key with hidden input. It implements
// config.KeyPrompter.
type KeyPrompter struct {
	in      *os.File
	out     io.Writer
	spinner *Spinner
}

var _ config.KeyPrompter = (*KeyPrompter)(nil)

// NewKeyPrompter creates a key prompter on stdin/stdout. spinner, if not
// nil, is suspended while the prompt is shown.
func NewKeyPrompter(spinner *Spinner) *KeyPrompter {
	return &KeyPrompter{in: os.Stdin, out: os.Stdout, spinner: spinner}
}

// PromptAPIKey explains where keys come from and reads one, asking again
// until it is well-formed.
func (k *KeyPrompter) PromptAPIKey(ctx context.Context, savePath string) (string, error) {
	if k.spinner != nil {
		resume := k.spinner.Suspend()
		defer resume()
	}

	warn := WarningStyle.Render(symbolWarning)
	info := InfoStyle.Render(symbolInfo)
	fmt.Fprintf(k.out, "%s  No API key found.\n", warn)
	fmt.Fprintf(k.out, "%s  You can either:\n", info)
	fmt.Fprintf(k.out, "%s    1. Set %s environment variable\n", info, config.APIKeyEnv)
	fmt.Fprintf(k.out, "%s    2. Enter it below (will be saved to %s)\n", info, displayPath(savePath))
	fmt.Fprintf(k.out, "%s    Get your API key from: %s\n", info, config.APIKeyURL)

	for {
		fmt.Fprintf(k.out, "%s  %s ", InfoStyle.Render(symbolActive), QuestionStyle.Render("Enter your Anthropic API key:"))
		key, err := k.readHidden(ctx)
		if err != nil {
			return "", err
		}

		key = strings.TrimSpace(key)
		if verr := config.ValidateAPIKey(key); verr != nil {
			var ve config.ValidationError
			msg := verr.Error()
			if errors.As(verr, &ve) {
				msg = ve.Message
			}
			fmt.Fprintf(k.out, "%s  %s\n", warn, WarningStyle.Render(msg))
			continue
		}
		return key, nil
	}
}

// APIKeySaved reports where a prompted key was written.
func (k *KeyPrompter) APIKeySaved(path string) {
	fmt.Fprintf(k.out, "%s  API key saved to %s\n", SuccessStyle.Render(symbolStep), displayPath(path))
}

// readHidden reads one line without echo. Cancelling ctx (Ctrl-C) restores
// the terminal and returns ErrCancelled.
func (k *KeyPrompter) readHidden(ctx context.Context) (string, error) {
	fd := int(k.in.Fd())
	state, _ := term.GetState(fd)

	type result struct {
		data []byte
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		data, err := term.ReadPassword(fd)
		ch <- result{data, err}
	}()

	select {
	case r := <-ch:
		fmt.Fprintln(k.out)
		if errors.Is(r.err, io.EOF) {
			return "", ErrCancelled
		}
		if r.err != nil {
			return "", fmt.Errorf("failed to read API key: %w", r.err)
		}
		return string(r.data), nil
	case <-ctx.Done():
		if state != nil {
			term.Restore(fd, state)
		}
		fmt.Fprintln(k.out)
		return "", ErrCancelled
	}
}

// displayPath abbreviates the home directory to "~".
func displayPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if rel, err := filepath.Rel(home, path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.Join("~", rel)
	}
	return path
}
