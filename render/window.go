// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"errors"
	"math"

	"github.com/gogpu/gpucontext"
)

// ErrEmptyWindow is returned when a window target's window has no area.
var ErrEmptyWindow = errors.New("render: window has no area")

// WindowTarget is a host-memory target that follows a window's size in
// physical pixels and asks the window to redraw after each frame.
type WindowTarget struct {
	*PixmapTarget
	window gpucontext.WindowProvider
}

// NewWindowTarget creates a target sized to w.
func NewWindowTarget(w gpucontext.WindowProvider) *WindowTarget {
	t := &WindowTarget{PixmapTarget: NewPixmapTarget(0, 0), window: w}
	_ = t.Prepare()
	return t
}

// Window returns the window.
func (t *WindowTarget) Window() gpucontext.WindowProvider { return t.window }

// Prepare resizes the pixels to the window's physical size.
func (t *WindowTarget) Prepare() error {
	w, h := t.window.Size()
	sf := t.window.ScaleFactor()
	pw := int(math.Round(float64(w) * sf))
	ph := int(math.Round(float64(h) * sf))
	if pw <= 0 || ph <= 0 {
		return ErrEmptyWindow
	}
	if pw != t.Width() || ph != t.Height() {
		t.Resize(pw, ph)
	}
	return nil
}

// Present requests a redraw from the window.
func (t *WindowTarget) Present() error {
	t.window.RequestRedraw()
	return nil
}

var (
	_ Preparer    = (*WindowTarget)(nil)
	_ Presenter   = (*WindowTarget)(nil)
	_ PixelTarget = (*WindowTarget)(nil)
)
