// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// menu.go - Single-choice select list shown after every saved version.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// MenuAction is what the user picked from the main menu.
type MenuAction string

const (
	ActionView   MenuAction = "view"
	ActionModify MenuAction = "modify"
	ActionAuto   MenuAction = "auto"
	ActionNew    MenuAction = "new"
	ActionExit   MenuAction = "exit"
)

// MenuOption is one row of the select list.
type MenuOption struct {
	Action MenuAction
	Label  string
}

// MenuQuestion is asked above the main menu.
const MenuQuestion = "What would you like to do?"

// MainMenu lists the actions available on a saved version.
var MainMenu = []MenuOption{
	{Action: ActionView, Label: "View SVG - Open in browser"},
	{Action: ActionModify, Label: "Modify SVG - Adjust the image"},
	{Action: ActionAuto, Label: "Auto adjust - Let AI improve the image"},
	{Action: ActionNew, Label: "Create new - Generate a new image"},
	{Action: ActionExit, Label: "Exit"},
}

// =============================================================================
// KEY MAP
// =============================================================================

type menuKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Cancel key.Binding
}

var menuKeys = menuKeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j", "tab"),
		key.WithHelp("↓/j", "down"),
	),
	Select: key.NewBinding(
		key.WithKeys("enter", " "),
		key.WithHelp("enter", "select"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc", "ctrl+c"),
		key.WithHelp("esc", "cancel"),
	),
}

// =============================================================================
// MODEL
// =============================================================================

type menuModel struct {
	question  string
	options   []MenuOption
	cursor    int
	done      bool
	cancelled bool
}

func newMenuModel(question string, options []MenuOption) menuModel {
	return menuModel{question: question, options: options}
}

func (m menuModel) Init() tea.Cmd {
	return nil
}

func (m menuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || m.done {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, menuKeys.Cancel):
		m.done = true
		m.cancelled = true
		return m, tea.Quit

	case key.Matches(keyMsg, menuKeys.Select):
		m.done = true
		return m, tea.Quit

	case key.Matches(keyMsg, menuKeys.Up):
		m.cursor = (m.cursor - 1 + len(m.options)) % len(m.options)

	case key.Matches(keyMsg, menuKeys.Down):
		m.cursor = (m.cursor + 1) % len(m.options)
	}

	return m, nil
}

func (m menuModel) View() string {
	var b strings.Builder

	if m.done {
		if m.cancelled {
			fmt.Fprintf(&b, "%s  %s\n", ErrorStyle.Render(symbolError), m.question)
			return b.String()
		}
		fmt.Fprintf(&b, "%s  %s\n", SuccessStyle.Render(symbolStep), m.question)
		fmt.Fprintf(&b, "%s  %s\n", SeparatorStyle.Render(symbolBar), DimStyle.Render(m.options[m.cursor].Label))
		return b.String()
	}

	fmt.Fprintf(&b, "%s  %s\n", InfoStyle.Render(symbolActive), QuestionStyle.Render(m.question))
	for i, opt := range m.options {
		if i == m.cursor {
			fmt.Fprintf(&b, "%s  %s\n", InfoStyle.Render(symbolBar), HighlightStyle.Render("● "+opt.Label))
		} else {
			fmt.Fprintf(&b, "%s  %s\n", InfoStyle.Render(symbolBar), DimStyle.Render("○ "+opt.Label))
		}
	}
	help := fmt.Sprintf("%s %s · %s %s · %s %s",
		menuKeys.Up.Help().Key, menuKeys.Up.Help().Desc,
		menuKeys.Select.Help().Key, menuKeys.Select.Help().Desc,
		menuKeys.Cancel.Help().Key, menuKeys.Cancel.Help().Desc)
	fmt.Fprintf(&b, "%s  %s\n", InfoStyle.Render("└"), DimStyle.Render(help))
	return b.String()
}

// selected returns the chosen action, or ErrCancelled.
func (m menuModel) selected() (MenuAction, error) {
	if !m.done || m.cancelled || len(m.options) == 0 {
		return "", ErrCancelled
	}
	return m.options[m.cursor].Action, nil
}

// =============================================================================
// PROGRAM
// =============================================================================

// runMenu shows options and blocks until one is chosen or the menu is
// cancelled.
func runMenu(ctx context.Context, in io.Reader, out io.Writer, question string, options []MenuOption) (MenuAction, error) {
	if len(options) == 0 {
		return "", errors.New("menu has no options")
	}

	p := tea.NewProgram(newMenuModel(question, options),
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	)

	final, err := p.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) || ctx.Err() != nil {
			return "", ErrCancelled
		}
		return "", fmt.Errorf("menu failed: %w", err)
	}

	m, ok := final.(menuModel)
	if !ok {
		return "", fmt.Errorf("menu failed: unexpected model %T", final)
	}
	return m.selected()
}
