// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// help.go - Help text, rendered as markdown on a terminal.

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/jeranaias/saul/internal/config"
)

const helpWrap = 80

// helpMarkdown is the help page. %s placeholders are filled by helpText.
const helpMarkdown = `# saul %s

Describe an image in plain words and get an SVG back. Each version is saved
to the current directory as ` + "`YYYYMMDD-HHMMSS-<name>.svg`" + `.

## Usage

    saul                      Interactive session
    echo "a red house" | saul Generate once, print the saved path
    saul usage [--days N] [--recent N]
    saul version
    saul help

## Interactive menu

After every saved version you can:

- **View SVG** opens the file in your browser
- **Modify SVG** applies your instructions to the current image
- **Auto adjust** lets the model review and improve the image
- **Create new** starts over with a new description
- **Exit**

Press Esc or Ctrl-C at any prompt to cancel.

## Flags

| Flag | Description |
|------|-------------|
| ` + "`--debug`" + ` | Log diagnostics to stderr |
| ` + "`--json`" + ` | JSON output for ` + "`usage`" + ` and ` + "`version`" + ` |
| ` + "`-v, --version`" + ` | Print the version |
| ` + "`-h, --help`" + ` | Show this help |

## API key

The key is read from, in order:

1. the ` + "`%s`" + ` environment variable (a ` + "`.env`" + ` file is loaded first)
2. ` + "`~/.config/svg-saul/config.toml`" + ` (` + "`api_key`" + `)
3. ` + "`~/.config/svg-saul/config.json`" + ` (` + "`apiKey`" + `)
4. a prompt, saved to ` + "`config.json`" + `

Create a key at %s.
`

// helpText returns the help page as markdown.
func helpText() string {
	return fmt.Sprintf(helpMarkdown, Version, config.APIKeyEnv, config.APIKeyURL)
}

// HandleHelp prints the help page, styled when w is a terminal.
func HandleHelp(w io.Writer) error {
	text := helpText()
	if IsStdoutTTY() && ColorsEnabled() {
		text = renderMarkdown(text)
	}
	_, err := io.WriteString(w, text)
	return err
}

// renderMarkdown renders markdown for the terminal, falling back to the
// source text.
func renderMarkdown(content string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(helpWrap),
	)
	if err != nil {
		return content
	}

	rendered, err := renderer.Render(content)
	if err != nil || strings.TrimSpace(rendered) == "" {
		return content
	}
	return rendered
}
