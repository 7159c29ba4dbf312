// Package layout describes the rendering surface the reader engine measures
// and scrolls, and provides Flow, a deterministic fixed-pitch implementation.
package layout

import (
	"fmt"

	"github.com/dgallion1/folio/internal/doctree"
)

// Mode is the reading layout.
type Mode int

const (
	Paginated Mode = iota
	Continuous
)

func (m Mode) String() string {
	if m == Continuous {
		return "continuous"
	}
	return "paginated"
}

// ParseMode accepts "paginated"/"horizontal" and "continuous"/"vertical".
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "paginated", "horizontal":
		return Paginated, true
	case "continuous", "vertical", "scroll":
		return Continuous, true
	}
	return Paginated, false
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Mode) UnmarshalText(b []byte) error {
	v, ok := ParseMode(string(b))
	if !ok {
		return fmt.Errorf("unknown layout mode %q", b)
	}
	*m = v
	return nil
}

// Rect is a box in viewport coordinates.
type Rect struct {
	Left, Top, Width, Height float64
}

func (r Rect) Right() float64  { return r.Left + r.Width }
func (r Rect) Bottom() float64 { return r.Top + r.Height }

// Union returns the smallest rect containing r and o.
func (r Rect) Union(o Rect) Rect {
	left, top := min(r.Left, o.Left), min(r.Top, o.Top)
	right, bottom := max(r.Right(), o.Right()), max(r.Bottom(), o.Bottom())
	return Rect{Left: left, Top: top, Width: right - left, Height: bottom - top}
}

// Surface is the live layout of one document. Every measurement is taken
// from the current layout on each call.
type Surface interface {
	Viewport() (width, height float64)

	ScrollLeft() float64
	SetScrollLeft(x float64)
	ScrollTop() float64
	SetScrollTop(y float64)
	ScrollWidth() float64
	ScrollHeight() float64

	// Rect is the bounding box of a laid-out node.
	Rect(n *doctree.Node) (Rect, bool)
	// CaretRect is the zero-width box of a caret position.
	CaretRect(b doctree.Boundary) (Rect, bool)
	// ElementAt hit-tests a viewport point.
	ElementAt(x, y float64) *doctree.Node
	ScrollIntoView(n *doctree.Node)
	// Relayout re-measures after the document tree changed.
	Relayout()
}

// CaretLocator is implemented by surfaces that can map a point to a caret.
type CaretLocator interface {
	CaretAt(x, y float64) (doctree.Boundary, bool)
}

// Resizer is implemented by surfaces whose viewport can be changed.
type Resizer interface {
	Resize(width, height float64)
}

// SpanRect returns the bounding box of the text covered by segs.
func SpanRect(s Surface, segs []doctree.Segment) (Rect, bool) {
	var (
		out Rect
		ok  bool
	)
	for _, seg := range segs {
		for _, off := range []int{seg.From, seg.To} {
			r, found := s.CaretRect(doctree.Boundary{Node: seg.Node, Offset: off})
			if !found {
				continue
			}
			if !ok {
				out, ok = r, true
				continue
			}
			out = out.Union(r)
		}
	}
	return out, ok
}
