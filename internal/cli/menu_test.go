// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pressKeys(m menuModel, keys ...tea.KeyMsg) (menuModel, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(k)
		m = next.(menuModel)
	}
	return m, cmd
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestMenuModel_Navigation(t *testing.T) {
	tests := []struct {
		name string
		keys []tea.KeyMsg
		want MenuAction
	}{
		{name: "enter selects first", keys: []tea.KeyMsg{{Type: tea.KeyEnter}}, want: ActionView},
		{name: "down", keys: []tea.KeyMsg{{Type: tea.KeyDown}, {Type: tea.KeyEnter}}, want: ActionModify},
		{name: "j and tab", keys: []tea.KeyMsg{runeKey('j'), {Type: tea.KeyTab}, {Type: tea.KeyEnter}}, want: ActionAuto},
		{name: "up wraps to last", keys: []tea.KeyMsg{{Type: tea.KeyUp}, {Type: tea.KeyEnter}}, want: ActionExit},
		{name: "k moves up", keys: []tea.KeyMsg{{Type: tea.KeyDown}, {Type: tea.KeyDown}, runeKey('k'), {Type: tea.KeyEnter}}, want: ActionModify},
		{name: "down wraps to first", keys: []tea.KeyMsg{
			{Type: tea.KeyDown}, {Type: tea.KeyDown}, {Type: tea.KeyDown}, {Type: tea.KeyDown}, {Type: tea.KeyDown},
			{Type: tea.KeyEnter},
		}, want: ActionView},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, cmd := pressKeys(newMenuModel(MenuQuestion, MainMenu), tt.keys...)
			require.NotNil(t, cmd)
			assert.True(t, m.done)

			got, err := m.selected()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMenuModel_Cancel(t *testing.T) {
	for _, k := range []tea.KeyMsg{{Type: tea.KeyEsc}, {Type: tea.KeyCtrlC}} {
		t.Run(k.String(), func(t *testing.T) {
			m, cmd := pressKeys(newMenuModel(MenuQuestion, MainMenu), tea.KeyMsg{Type: tea.KeyDown}, k)
			require.NotNil(t, cmd)
			assert.True(t, m.cancelled)

			_, err := m.selected()
			assert.ErrorIs(t, err, ErrCancelled)
		})
	}
}

func TestMenuModel_IgnoresInputAfterChoice(t *testing.T) {
	m, _ := pressKeys(newMenuModel(MenuQuestion, MainMenu), tea.KeyMsg{Type: tea.KeyEnter}, tea.KeyMsg{Type: tea.KeyDown})
	got, err := m.selected()
	require.NoError(t, err)
	assert.Equal(t, ActionView, got)
}

func TestMenuModel_NotDoneIsCancelled(t *testing.T) {
	_, err := newMenuModel(MenuQuestion, MainMenu).selected()
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestMenuModel_View(t *testing.T) {
	m := newMenuModel(MenuQuestion, MainMenu)
	view := m.View()
	assert.Contains(t, view, MenuQuestion)
	for _, opt := range MainMenu {
		assert.Contains(t, view, opt.Label)
	}
	assert.Contains(t, view, "● "+MainMenu[0].Label)
	assert.Contains(t, view, "○ "+MainMenu[1].Label)

	m, _ = pressKeys(m, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyEnter})
	view = m.View()
	assert.Contains(t, view, MainMenu[1].Label)
	assert.NotContains(t, view, MainMenu[0].Label)

	m, _ = pressKeys(newMenuModel(MenuQuestion, MainMenu), tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, 1, strings.Count(m.View(), "\n"))
}

func TestMainMenu_Labels(t *testing.T) {
	want := []string{
		"View SVG - Open in browser",
		"Modify SVG - Adjust the image",
		"Auto adjust - Let AI improve the image",
		"Create new - Generate a new image",
		"Exit",
	}
	var got []string
	for _, opt := range MainMenu {
		got = append(got, opt.Label)
	}
	assert.Equal(t, want, got)
}
