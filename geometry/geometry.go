// Package geometry holds the pure geometry used by the operation engine:
// page-range parsing, scale-to-fit placement and conversion between
// normalized UI space (0..1, top-left origin) and container space
// (points, bottom-left origin).
package geometry

import "math"

// A4 page size in points.
const (
	A4Width  = 595.28
	A4Height = 841.89
)

type Point struct{ X, Y float64 }

type Size struct{ Width, Height float64 }

// NormalizedPosition is a position relative to a page's rendered box, each
// axis in [0,1] with the origin at the top-left corner. It is never a valid
// draw coordinate; convert it with ToAbsolute first.
type NormalizedPosition struct{ X, Y float64 }

type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
)

// PageSize returns the A4 reference size for the orientation.
func (o Orientation) PageSize() Size {
	if o == Landscape {
		return Size{Width: A4Height, Height: A4Width}
	}
	return Size{Width: A4Width, Height: A4Height}
}

func (o Orientation) Valid() bool { return o == Portrait || o == Landscape }

type Margin string

const (
	MarginNone  Margin = "none"
	MarginSmall Margin = "small"
	MarginBig   Margin = "big"
)

// Points returns the margin width in points.
func (m Margin) Points() float64 {
	switch m {
	case MarginSmall:
		return 20
	case MarginBig:
		return 50
	default:
		return 0
	}
}

func (m Margin) Valid() bool { return m == MarginNone || m == MarginSmall || m == MarginBig }

// ScaleToFit returns the largest aspect-preserving scale at which a
// contentW x contentH box fits inside boxW x boxH.
func ScaleToFit(contentW, contentH, boxW, boxH float64) float64 {
	return math.Min(boxW/contentW, boxH/contentH)
}

// Placement is a scaled content box centered inside a bounding box.
type Placement struct {
	Scale   float64
	Width   float64
	Height  float64
	OffsetX float64
	OffsetY float64
}

// Fit scales content into the box and centers it.
func Fit(contentW, contentH, boxW, boxH float64) Placement {
	s := ScaleToFit(contentW, contentH, boxW, boxH)
	w, h := contentW*s, contentH*s
	return Placement{
		Scale:   s,
		Width:   w,
		Height:  h,
		OffsetX: (boxW - w) / 2,
		OffsetY: (boxH - h) / 2,
	}
}

// ToAbsolute maps a normalized position to the bottom-left corner of an
// overlay of height contentH, so the overlay's visual top-left corner sits
// at pos in both spaces.
func ToAbsolute(pos NormalizedPosition, pageW, pageH, contentH float64) Point {
	return Point{
		X: pos.X * pageW,
		Y: pageH - pos.Y*pageH - contentH,
	}
}

// FromAbsolute is the inverse of ToAbsolute.
func FromAbsolute(p Point, pageW, pageH, contentH float64) NormalizedPosition {
	if pageW == 0 || pageH == 0 {
		return NormalizedPosition{}
	}
	return NormalizedPosition{
		X: p.X / pageW,
		Y: (pageH - p.Y - contentH) / pageH,
	}
}

// Limits applied while dragging and resizing an overlay in a preview.
const (
	MaxDragRatio  = 0.9
	MinWidthRatio = 0.1
	MaxWidthRatio = 0.9
)

// ClampPosition keeps a dragged overlay anchor inside [0, MaxDragRatio] so
// the overlay never leaves the page entirely.
func ClampPosition(p NormalizedPosition) NormalizedPosition {
	return NormalizedPosition{X: clamp(p.X, 0, MaxDragRatio), Y: clamp(p.Y, 0, MaxDragRatio)}
}

func ClampWidthRatio(r float64) float64 { return clamp(r, MinWidthRatio, MaxWidthRatio) }

// ClampPage clamps a 1-based page number into [1, total].
func ClampPage(page, total int) int {
	if total < 1 {
		return 1
	}
	if page < 1 {
		return 1
	}
	if page > total {
		return total
	}
	return page
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
