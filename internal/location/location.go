// Package location samples the reading position and brings addressed
// positions back on screen.
package location

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dgallion1/folio/internal/address"
	"github.com/dgallion1/folio/internal/bridge"
	"github.com/dgallion1/folio/internal/doctree"
	"github.com/dgallion1/folio/internal/layout"
	"github.com/dgallion1/folio/internal/session"
)

// ErrNoGeometry is returned when a resolved node has no measurable box. The
// reveal has already fallen back to scroll-into-view when it is returned.
var ErrNoGeometry = errors.New("location: no geometry for node")

// Location is a sampled reading position. Imprecise locations carry only the
// path of the element under the sample point.
type Location struct {
	Point   address.Point
	Precise bool
}

// String is the form reported to the host: point JSON when precise, a bare
// path otherwise.
func (l Location) String() string {
	if l.Precise {
		return l.Point.String()
	}
	return l.Point.Path.String()
}

// Tracker samples the position under a fixed sample point and reports it.
type Tracker struct {
	ctx     *session.Context
	surface layout.Surface
	codec   *address.Codec

	lastReport time.Duration
	reported   bool
}

func NewTracker(ctx *session.Context, surface layout.Surface, codec *address.Codec) *Tracker {
	return &Tracker{ctx: ctx, surface: surface, codec: codec}
}

func (t *Tracker) samplePoint() (float64, float64) {
	tu := t.ctx.Tuning
	if t.ctx.Paginated() {
		return tu.PaginatedSampleX, tu.PaginatedSampleY
	}
	return tu.ContinuousSampleX, tu.ContinuousSampleY
}

// Sample returns what is being read. The caret under the sample point wins; without
// one, the element under it (paginated) or under the upper-middle of
// the viewport (continuous) is used. The body itself never counts.
func (t *Tracker) Sample() (Location, bool) {
	x, y := t.samplePoint()
	if cl, ok := t.surface.(layout.CaretLocator); ok {
		if b, found := cl.CaretAt(x, y); found {
			p, err := t.codec.EncodePoint(b.Node, b.Offset)
			if err == nil {
				return Location{Point: p, Precise: true}, true
			}
			t.ctx.Log.Debug("caret not addressable", "error", err)
		}
	}

	if !t.ctx.Paginated() {
		w, h := t.surface.Viewport()
		x, y = w*t.ctx.Tuning.FallbackSampleXPct, h*t.ctx.Tuning.FallbackSampleYPct
	}
	el := t.surface.ElementAt(x, y)
	if el == nil || el == t.codec.Document().Body {
		return Location{}, false
	}
	p, err := t.codec.Encode(el)
	if err != nil {
		t.ctx.Log.Debug("element not addressable", "error", err)
		return Location{}, false
	}
	return Location{Point: address.Point{Path: p}}, true
}

// ReportThrottled reports the sampled location at most once per report
// interval. It reports whether a report was sent.
func (t *Tracker) ReportThrottled() bool {
	if t.ctx.Restoring {
		return false
	}
	now := t.ctx.Sched.Now()
	if t.reported && now-t.lastReport < t.ctx.Tuning.ReportInterval {
		return false
	}
	t.lastReport, t.reported = now, true
	return t.report()
}

// ReportSettled reports the sampled location unconditionally, except while
// a restore is in flight.
func (t *Tracker) ReportSettled() bool {
	if t.ctx.Restoring {
		return false
	}
	return t.report()
}

func (t *Tracker) report() bool {
	loc, ok := t.Sample()
	if !ok {
		return false
	}
	t.ctx.Report(bridge.EventScrollProgress, loc.String())
	return true
}

// Reveal scrolls so b is on screen: the page containing it when paginated,
// RevealOffset pixels below the viewport top when continuous. Imprecise
// reveals measure the whole node instead of the caret.
func (t *Tracker) Reveal(b doctree.Boundary, precise bool) error {
	if b.Node == nil {
		return fmt.Errorf("reveal: %w", address.ErrNotFound)
	}
	var (
		rect layout.Rect
		ok   bool
	)
	if precise && b.Node.Kind == doctree.KindText {
		rect, ok = t.surface.CaretRect(b.Clamp())
	} else {
		rect, ok = t.surface.Rect(b.Node)
	}
	w, _ := t.surface.Viewport()
	if !ok || (t.ctx.Paginated() && w <= 0) {
		t.surface.ScrollIntoView(b.Node)
		return ErrNoGeometry
	}

	if t.ctx.Paginated() {
		left := rect.Left + t.surface.ScrollLeft()
		t.surface.SetScrollLeft(math.Floor(left/w) * w)
		return nil
	}
	t.surface.SetScrollTop(t.surface.ScrollTop() + rect.Top - t.ctx.Tuning.RevealOffset)
	return nil
}

// RevealPoint resolves p and reveals it precisely.
func (t *Tracker) RevealPoint(p address.Point) error {
	b, err := p.Resolve(t.codec)
	if err != nil {
		return fmt.Errorf("reveal %s: %w", p.Path, err)
	}
	return t.Reveal(b, true)
}

// RevealPath resolves a path without offset and reveals its node.
func (t *Tracker) RevealPath(p address.Path) error {
	n, err := t.codec.Decode(p)
	if err != nil {
		return fmt.Errorf("reveal %s: %w", p, err)
	}
	return t.Reveal(doctree.Boundary{Node: n}, false)
}

// RevealLocation reveals a previously sampled location.
func (t *Tracker) RevealLocation(l Location) error {
	if l.Precise {
		return t.RevealPoint(l.Point)
	}
	return t.RevealPath(l.Point.Path)
}
