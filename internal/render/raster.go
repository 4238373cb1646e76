// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render converts SVG markup to raster images and draws low
// resolution previews in the terminal.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// Raster defaults.
const (
	// DefaultSize is used for each missing dimension.
	DefaultSize = 512

	// MaxSize caps the longest side of a rendered image.
	MaxSize = 1024

	// MinSize is the smallest longest side; tiny icons are scaled up.
	MinSize = 128
)

var (
	// ErrNotSVG indicates the input has no <svg> element.
	ErrNotSVG = errors.New("markup is not an SVG document")

	// ErrRender indicates the rasterizer failed on the document.
	ErrRender = errors.New("failed to render SVG")
)

// Rasterizer converts SVG markup to PNG bytes on a solid background.
type Rasterizer struct {
	// Background fills transparent areas. Defaults to white.
	Background color.Color
}

// NewRasterizer creates a rasterizer with a white background.
func NewRasterizer() *Rasterizer {
	return &Rasterizer{Background: color.White}
}

// Rasterize renders svg to a PNG sized from its viewBox.
func (r *Rasterizer) Rasterize(svg string) ([]byte, error) {
	img, err := r.RasterizeImage(svg)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// RasterizeImage renders svg to an opaque image.
func (r *Rasterizer) RasterizeImage(svg string) (out image.Image, err error) {
	if !strings.Contains(strings.ToLower(svg), "<svg") {
		return nil, ErrNotSVG
	}

	// oksvg panics on some malformed path data.
	defer func() {
		if rec := recover(); rec != nil {
			out, err = nil, fmt.Errorf("%w: %v", ErrRender, rec)
		}
	}()

	icon, err := oksvg.ReadIconStream(strings.NewReader(svg), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}

	w, h := targetSize(icon.ViewBox.W, icon.ViewBox.H)
	icon.SetTarget(0, 0, float64(w), float64(h))

	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, canvas, canvas.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1.0)

	bg := r.Background
	if bg == nil {
		bg = color.White
	}
	return imaging.Overlay(imaging.New(w, h, bg), canvas, image.Pt(0, 0), 1.0), nil
}

// targetSize picks pixel dimensions for a viewBox, keeping its aspect ratio
// and bringing the longest side within [MinSize, MaxSize].
func targetSize(vw, vh float64) (int, int) {
	if vw <= 0 || math.IsNaN(vw) || math.IsInf(vw, 0) {
		vw = DefaultSize
	}
	if vh <= 0 || math.IsNaN(vh) || math.IsInf(vh, 0) {
		vh = DefaultSize
	}

	longest := math.Max(vw, vh)
	scale := 1.0
	switch {
	case longest > MaxSize:
		scale = MaxSize / longest
	case longest < MinSize:
		scale = MinSize / longest
	}

	w := int(math.Round(vw * scale))
	h := int(math.Round(vh * scale))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}
