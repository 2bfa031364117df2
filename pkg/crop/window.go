// Package crop generates reproducible crop windows for frame sequences.
//
// A Sampler serves one augmentation configuration for a whole batch. It
// holds one seed per sample slot and reseeds its generator from that slot
// before every draw, so a window depends only on the seed table, the frame
// shape and the slot index, never on the order in which slots are visited.
package crop

import (
	"fmt"
	"image"
	"math"
	"strings"
)

// Window is a crop rectangle in source pixel coordinates.
// The zero Window means "no crop" and must be checked by the caller.
type Window struct {
	X, Y int
	W, H int
}

// Empty reports whether the window has no area.
func (w Window) Empty() bool {
	return w.W <= 0 || w.H <= 0
}

// Rect returns the window as an image.Rectangle.
func (w Window) Rect() image.Rectangle {
	return image.Rect(w.X, w.Y, w.X+w.W, w.Y+w.H)
}

// Fits reports whether the window lies inside a width x height frame.
func (w Window) Fits(width, height int) bool {
	return w.W >= 1 && w.H >= 1 &&
		w.X >= 0 && w.X+w.W <= width &&
		w.Y >= 0 && w.Y+w.H <= height
}

func (w Window) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", w.W, w.H, w.X, w.Y)
}

// Range is an inclusive [Min, Max] sampling interval.
type Range struct {
	Min float64
	Max float64
}

// Type selects the window generation algorithm.
type Type int

const (
	// TypeRandomAreaAspect samples area fraction and aspect ratio with rejection.
	TypeRandomAreaAspect Type = iota
	// TypeFixedCorner picks a square window at one of five fixed positions.
	TypeFixedCorner
)

// String returns the configuration name of the crop type.
func (t Type) String() string {
	switch t {
	case TypeRandomAreaAspect:
		return "random"
	case TypeFixedCorner:
		return "corner"
	default:
		return "unknown"
	}
}

// ParseType parses "random" or "corner".
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "random", "random_area_aspect":
		return TypeRandomAreaAspect, nil
	case "corner", "fixed_corner":
		return TypeFixedCorner, nil
	default:
		return 0, fmt.Errorf("crop: unknown crop type %q", s)
	}
}

// Position is one of the five discrete corner-crop placements.
type Position int

const (
	PositionCenter Position = iota
	PositionTopLeft
	PositionTopRight
	PositionBottomLeft
	PositionBottomRight

	numPositions = 5
)

// CornerWindow returns the square window of side round(scale*min(H, W))
// placed at pos. The side is clamped to [1, min(H, W)].
func CornerWindow(height, width int, scale float64, pos Position) Window {
	if height <= 0 || width <= 0 {
		return Window{}
	}
	side := int(math.Round(scale * float64(min(height, width))))
	side = max(1, min(side, min(height, width)))

	w := Window{W: side, H: side}
	switch pos {
	case PositionCenter:
		w.X = int(math.Round(float64(width-side) / 2))
		w.Y = int(math.Round(float64(height-side) / 2))
	case PositionTopLeft:
	case PositionTopRight:
		w.X = width - side
	case PositionBottomLeft:
		w.Y = height - side
	case PositionBottomRight:
		w.X = width - side
		w.Y = height - side
	}
	return w
}
