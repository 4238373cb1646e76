// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// loop.go - The describe, generate, save and refine cycle.
//
// A Session moves through GeneratingInitial -> Ready, then loops on the
// menu: View, Modify and AutoImprove return to Ready; New restarts from a
// fresh description; Exit ends the run. A failed edit leaves the current
// version untouched and saves nothing.

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/saul/internal/generator"
	"github.com/jeranaias/saul/internal/storage"
	"go.uber.org/zap"
)

// AppTitle is shown when a run starts.
const AppTitle = "Saul - SVG Generator Agent"

// =============================================================================
// COLLABORATORS
// =============================================================================

// Prompter asks the user questions.
type Prompter interface {
	Text(ctx context.Context, tp TextPrompt) (string, error)
	Select(ctx context.Context, question string, options []MenuOption) (MenuAction, error)
}

// Status shows the progress of one operation at a time.
type Status interface {
	Start(msg string)
	Message(msg string)
	Stop(msg string)
	Fail(msg string)
}

// Generator produces and edits SVG markup.
type Generator interface {
	Generate(ctx context.Context, description string, progress generator.Progress) (*generator.Result, error)
	Modify(ctx context.Context, current string, snapshot []byte, instruction string, progress generator.Progress) (string, error)
	AutoImprove(ctx context.Context, current string, snapshot []byte, progress generator.Progress) (string, error)
}

// Saver persists SVG versions.
type Saver interface {
	Save(svg, base string) (*storage.SaveResult, error)
}

// Snapshotter renders SVG markup to PNG for the model to look at.
type Snapshotter interface {
	Rasterize(svg string) ([]byte, error)
}

// SVGVersion is the saved SVG the menu acts on.
type SVGVersion struct {
	SVG  string
	Path string
	Name string // file name without extension, timestamp included
}

// =============================================================================
// SESSION
// =============================================================================

// Session runs the interactive or piped flow.
type Session struct {
	Prompter  Prompter
	Status    Status
	Generator Generator
	Store     Saver
	Snapshots Snapshotter
	Open      OpenFunc

	// Input supplies the description when not interactive.
	Input io.Reader
	// Out receives titles and error lines.
	Out io.Writer
	// Result receives the saved path when not interactive.
	Result io.Writer

	Interactive bool
	Logger      *zap.Logger
}

func (s *Session) logger() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return zap.NewNop()
}

// Run executes the flow until the user exits, cancels, or (when not
// interactive) the first version is saved.
func (s *Session) Run(ctx context.Context) error {
	for {
		fmt.Fprintf(s.Out, "%s  %s\n", SeparatorStyle.Render("┌"), TitleStyle.Render(AppTitle))

		v, err := s.generateInitial(ctx)
		if err != nil {
			return err
		}

		if !s.Interactive {
			fmt.Fprintln(s.Result, v.Path)
			return nil
		}

		restart, err := s.menu(ctx, v)
		if err != nil || !restart {
			return err
		}
	}
}

// describe obtains the image description.
func (s *Session) describe(ctx context.Context) (string, error) {
	if s.Interactive {
		return s.Prompter.Text(ctx, DescriptionPrompt)
	}

	data, err := io.ReadAll(s.Input)
	if err != nil {
		return "", fmt.Errorf("failed to read description from stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// generateInitial produces and saves the first version.
func (s *Session) generateInitial(ctx context.Context) (SVGVersion, error) {
	description, err := s.describe(ctx)
	if err != nil {
		return SVGVersion{}, err
	}
	if description == "" {
		fmt.Fprintf(s.Out, "%s  %s\n", ErrorStyle.Render(symbolError), "No description provided")
		return SVGVersion{}, &ExitError{Code: ExitGeneralError, Err: ErrEmptyDescription}
	}

	s.Status.Start(generator.OpGenerate.Label() + "...")

	res, err := s.Generator.Generate(ctx, description, s.Status)
	var saved *storage.SaveResult
	if err == nil {
		s.Status.Message("Saving file...")
		saved, err = s.Store.Save(res.SVG, res.Filename)
	}
	if err != nil {
		s.Status.Fail("Failed to generate SVG")
		if IsCancelled(err) {
			return SVGVersion{}, ErrCancelled
		}
		DisplayError(s.Out, err)
		return SVGVersion{}, &ExitError{Code: ExitGeneralError, Err: err}
	}

	s.Status.Stop("Generated and saved: " + saved.SVGPath)
	s.logger().Debug("initial version saved", zap.String("path", saved.SVGPath))

	return SVGVersion{SVG: res.SVG, Path: saved.SVGPath, Name: saved.FilenameWithTimestamp}, nil
}

// menu loops on the main menu. It returns restart=true for "Create new".
func (s *Session) menu(ctx context.Context, v SVGVersion) (restart bool, err error) {
	for {
		action, err := s.Prompter.Select(ctx, MenuQuestion, MainMenu)
		if err != nil {
			return false, err
		}

		switch action {
		case ActionView:
			err = s.view(ctx, v)

		case ActionModify:
			var instruction string
			instruction, err = s.Prompter.Text(ctx, ModifyPrompt)
			if err != nil {
				return false, err
			}
			v, err = s.edit(ctx, v, modifyEdit(s.Generator, instruction))

		case ActionAuto:
			v, err = s.edit(ctx, v, autoImproveEdit(s.Generator))

		case ActionNew:
			return true, nil

		case ActionExit:
			fmt.Fprintf(s.Out, "%s  %s\n", SeparatorStyle.Render("└"), "Goodbye!")
			return false, nil
		}

		if err != nil {
			return false, err
		}
	}
}

// view opens the current version. Failures are reported and the menu
// continues.
func (s *Session) view(ctx context.Context, v SVGVersion) error {
	s.Status.Start("Opening SVG in browser...")
	if err := s.Open(ctx, v.Path); err != nil {
		s.Status.Fail("Failed to open SVG")
		if IsCancelled(err) {
			return ErrCancelled
		}
		DisplayError(s.Out, err)
		return nil
	}
	s.Status.Stop("Opened in browser")
	return nil
}

// =============================================================================
// EDITS
// =============================================================================

// editOp is one way of deriving a new version from the current one.
type editOp struct {
	start  string
	done   string
	failed string
	apply  func(ctx context.Context, current string, snapshot []byte, progress generator.Progress) (string, error)
}

func modifyEdit(g Generator, instruction string) editOp {
	return editOp{
		start:  generator.OpModify.Label() + "...",
		done:   "Modified and saved: ",
		failed: "Failed to modify SVG",
		apply: func(ctx context.Context, current string, snapshot []byte, progress generator.Progress) (string, error) {
			return g.Modify(ctx, current, snapshot, instruction, progress)
		},
	}
}

func autoImproveEdit(g Generator) editOp {
	return editOp{
		start:  generator.OpAutoImprove.Label() + "...",
		done:   "Auto-improved and saved: ",
		failed: "Failed to auto-improve SVG",
		apply:  g.AutoImprove,
	}
}

// edit applies op to v and saves the result under v's base name. On
// failure v is returned unchanged; only cancellation is returned as an
// error.
func (s *Session) edit(ctx context.Context, v SVGVersion, op editOp) (SVGVersion, error) {
	s.Status.Start(op.start)

	svg, saved, err := s.applyEdit(ctx, v, op)
	if err != nil {
		s.Status.Fail(op.failed)
		if IsCancelled(err) {
			return v, ErrCancelled
		}
		DisplayError(s.Out, err)
		s.logger().Debug("edit failed", zap.String("version", v.Name), zap.Error(err))
		return v, nil
	}

	s.Status.Stop(op.done + saved.SVGPath)
	return SVGVersion{SVG: svg, Path: saved.SVGPath, Name: saved.FilenameWithTimestamp}, nil
}

func (s *Session) applyEdit(ctx context.Context, v SVGVersion, op editOp) (string, *storage.SaveResult, error) {
	snapshot, err := s.Snapshots.Rasterize(v.SVG)
	if err != nil {
		return "", nil, fmt.Errorf("failed to render current image: %w", err)
	}

	svg, err := op.apply(ctx, v.SVG, snapshot, s.Status)
	if err != nil {
		return "", nil, err
	}

	saved, err := s.Store.Save(svg, storage.RemoveTimestampPrefix(v.Name))
	if err != nil {
		return "", nil, err
	}
	return svg, saved, nil
}
