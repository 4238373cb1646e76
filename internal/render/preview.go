// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/muesli/termenv"
)

// Preview cell grid.
const (
	PreviewWidth  = 40
	PreviewHeight = 20
)

// ErrUnsupportedTerminal indicates the terminal cannot show colors.
var ErrUnsupportedTerminal = errors.New("terminal does not support color previews")

// upperHalfBlock draws the top pixel in the foreground color and the bottom
// pixel in the background color, giving two pixel rows per text row.
const upperHalfBlock = "▀"

// TerminalPreview draws PNG images with colored half-block characters.
type TerminalPreview struct {
	Profile termenv.Profile
	Width   int // cells
	Height  int // rows
}

// NewTerminalPreview creates a 40x20 preview for the given color profile.
func NewTerminalPreview(profile termenv.Profile) *TerminalPreview {
	return &TerminalPreview{Profile: profile, Width: PreviewWidth, Height: PreviewHeight}
}

// Preview renders png to a block of text, one line per row, fitted within
// Width x Height cells with the aspect ratio preserved.
func (p *TerminalPreview) Preview(png []byte) (string, error) {
	if p.Profile == termenv.Ascii {
		return "", ErrUnsupportedTerminal
	}

	src, err := imaging.Decode(bytes.NewReader(png))
	if err != nil {
		return "", fmt.Errorf("failed to decode preview image: %w", err)
	}

	width, height := p.Width, p.Height
	if width <= 0 {
		width = PreviewWidth
	}
	if height <= 0 {
		height = PreviewHeight
	}

	img := imaging.Fit(src, width, height*2, imaging.Lanczos)
	return p.draw(img), nil
}

func (p *TerminalPreview) draw(img image.Image) string {
	b := img.Bounds()
	var out strings.Builder

	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		if y > b.Min.Y {
			out.WriteByte('\n')
		}
		for x := b.Min.X; x < b.Max.X; x++ {
			top := img.At(x, y)
			bottom := color.Color(color.White)
			if y+1 < b.Max.Y {
				bottom = img.At(x, y+1)
			}
			cell := termenv.String(upperHalfBlock).
				Foreground(p.Profile.FromColor(top)).
				Background(p.Profile.FromColor(bottom))
			out.WriteString(cell.String())
		}
	}
	return out.String()
}
