// Package capture wraps the screenshot library behind the vision
// engine's Grabber contract.
package capture

import (
	"image"

	"github.com/vova616/screenshot"

	"github.com/soocke/gamewatch-go/domain/geometry"
)

// Screen grabs rect-bounded captures from the live display.
type Screen struct{}

func NewScreen() *Screen { return &Screen{} }

// Grab captures the given absolute screen rect. Errors surface to the
// caller, which treats them as "no capture this frame".
func (s *Screen) Grab(rect geometry.Rect) (*image.RGBA, error) {
	return screenshot.CaptureRect(image.Rect(rect.Left, rect.Top, rect.Right(), rect.Bottom()))
}

// GrabScreen captures the whole active monitor, used for profile
// authoring snapshots.
func (s *Screen) GrabScreen() (*image.RGBA, error) {
	return screenshot.CaptureScreen()
}
