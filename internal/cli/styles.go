// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Shared styling for saul's terminal output.
//
// Colors are disabled for non-TTY output, NO_COLOR is respected and
// FORCE_COLOR overrides detection.

package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func init() {
	lipgloss.SetColorProfile(GetColorProfile())
}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// TitleStyle is used for the intro banner.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("39")).
			Padding(0, 1)

	// QuestionStyle is used for prompt questions.
	QuestionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255"))

	// LabelStyle is used for table labels.
	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(16)

	// ValueStyle is used for regular values and text.
	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	// SuccessStyle is used for completed steps.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	// ErrorStyle is used for error messages.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	// WarningStyle is used for warnings and validation hints.
	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	// DimStyle is used for secondary information.
	DimStyle = lipgloss.NewStyle().Faint(true)

	// SeparatorStyle is used for visual separators.
	SeparatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	// HighlightStyle marks the selected menu entry.
	HighlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82"))

	// InfoStyle is used for informational messages.
	InfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("75"))
)

// Status symbols, one column wide.
const (
	symbolStep    = "◇"
	symbolActive  = "◆"
	symbolError   = "■"
	symbolWarning = "▲"
	symbolInfo    = "●"
	symbolBar     = "│"
)

// =============================================================================
// HELPERS
// =============================================================================

// RenderSeparator renders a horizontal separator line. Default width is 50.
func RenderSeparator(width ...int) string {
	w := 50
	if len(width) > 0 && width[0] > 0 {
		w = width[0]
	}
	return SeparatorStyle.Render(strings.Repeat("─", w))
}

// RenderLabel renders a label with consistent width.
func RenderLabel(label string) string {
	return LabelStyle.Render(label)
}
