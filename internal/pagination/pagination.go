// Package pagination snaps a horizontally scrolled layout to whole pages and
// keeps the reading position across resizes.
package pagination

import (
	"errors"
	"math"

	"github.com/dgallion1/folio/internal/bridge"
	"github.com/dgallion1/folio/internal/doctree"
	"github.com/dgallion1/folio/internal/event"
	"github.com/dgallion1/folio/internal/layout"
	"github.com/dgallion1/folio/internal/location"
	"github.com/dgallion1/folio/internal/session"
)

// ErrDegenerateViewport is returned when the viewport has no width. The
// operation is skipped for that cycle.
var ErrDegenerateViewport = errors.New("pagination: zero viewport width")

// spacerKind is the data-overlay value of the injected column spacer.
const spacerKind = "spacer"

// PageState is measured from the surface on every call.
type PageState struct {
	ScrollLeft    float64
	ViewportWidth float64
	ContentWidth  float64
}

// Controller pages through the content. It is driven by the session's event
// loop and is not safe for concurrent use.
type Controller struct {
	ctx     *session.Context
	surface layout.Surface
	doc     *doctree.Document
	tracker *location.Tracker

	settle event.Token
	resize event.Token

	resizing bool
	saved    *location.Location
}

func New(ctx *session.Context, surface layout.Surface, doc *doctree.Document, tracker *location.Tracker) *Controller {
	return &Controller{ctx: ctx, surface: surface, doc: doc, tracker: tracker}
}

func (c *Controller) State() PageState {
	w, _ := c.surface.Viewport()
	return PageState{
		ScrollLeft:    c.surface.ScrollLeft(),
		ViewportWidth: w,
		ContentWidth:  c.surface.ScrollWidth(),
	}
}

// PageCount is the number of whole viewport widths in the content, plus one
// for a leftover wider than the noise band. It is never below 1.
func (c *Controller) PageCount() int {
	s := c.State()
	if s.ViewportWidth <= 0 {
		return 1
	}
	n := math.Floor(s.ContentWidth / s.ViewportWidth)
	if s.ContentWidth-n*s.ViewportWidth > c.ctx.Tuning.NoiseBand {
		n++
	}
	return max(int(n), 1)
}

// CurrentPage is the page nearest to the scroll offset.
func (c *Controller) CurrentPage() int {
	s := c.State()
	if s.ViewportWidth <= 0 {
		return 0
	}
	return int(math.Round(s.ScrollLeft / s.ViewportWidth))
}

// SnapToPage scrolls to page i. Targets before the first page or past the
// last one are chapter boundaries: they are reported and nothing scrolls.
// Once the scroll settles the location is reported.
func (c *Controller) SnapToPage(i int) error {
	w, _ := c.surface.Viewport()
	if w <= 0 {
		return ErrDegenerateViewport
	}
	last := c.PageCount() - 1
	switch {
	case i < 0:
		c.ctx.Log.Info("page before first", "page", i)
		c.ctx.Report(bridge.EventPrevChapter)
		return nil
	case i > last:
		c.ctx.Log.Info("page after last", "page", i, "last", last)
		c.ctx.Report(bridge.EventNextChapter)
		return nil
	}

	c.surface.SetScrollLeft(float64(i) * w)
	c.ctx.Sched.Cancel(c.settle)
	c.settle = c.ctx.Sched.After(c.ctx.Tuning.SnapSettle, func() {
		c.tracker.ReportSettled()
	})
	return nil
}

func (c *Controller) Next() error { return c.SnapToPage(c.CurrentPage() + 1) }

func (c *Controller) Prev() error { return c.SnapToPage(c.CurrentPage() - 1) }

// JumpToEnd shows the last page, or the bottom in continuous mode.
func (c *Controller) JumpToEnd() {
	if !c.ctx.Paginated() {
		_, h := c.surface.Viewport()
		c.surface.SetScrollTop(c.surface.ScrollHeight() - h)
		return
	}
	w, _ := c.surface.Viewport()
	c.surface.SetScrollLeft(float64(c.PageCount()-1) * w)
}

// ScrollToFraction scrolls proportionally, f in [0, 1]. Paginated offsets
// are aligned down to a page boundary.
func (c *Controller) ScrollToFraction(f float64) error {
	f = min(max(f, 0), 1)
	if !c.ctx.Paginated() {
		_, h := c.surface.Viewport()
		c.surface.SetScrollTop((c.surface.ScrollHeight() - h) * f)
		return nil
	}
	w, _ := c.surface.Viewport()
	if w <= 0 {
		return ErrDegenerateViewport
	}
	page := math.Floor(c.surface.ScrollWidth() * f / w)
	page = min(page, float64(c.PageCount()-1))
	c.surface.SetScrollLeft(page * w)
	return nil
}

// FixColumns pads a two-column landscape layout whose last page holds a
// single column. Any previous spacer is removed first so repeated calls
// never compound. It reports whether a spacer is in place afterwards.
func (c *Controller) FixColumns() (bool, error) {
	if c.removeSpacer() {
		c.surface.Relayout()
	}
	w, h := c.surface.Viewport()
	if !c.ctx.Paginated() || c.ctx.Columns != 2 || w <= h {
		return false, nil
	}
	if w <= 0 {
		return false, ErrDegenerateViewport
	}

	rem := math.Mod(c.surface.ScrollWidth(), w)
	if rem <= c.ctx.Tuning.SpacerGuard || rem >= w {
		return false, nil
	}
	spacer := doctree.NewElement("div",
		"class", layout.ColumnBreakClass,
		doctree.OverlayAttr, spacerKind,
	)
	c.doc.Body.AppendChild(spacer)
	c.surface.Relayout()
	c.ctx.Log.Debug("column spacer added", "remainder", rem, "width", c.surface.ScrollWidth())
	return true, nil
}

func (c *Controller) removeSpacer() bool {
	found := c.doc.Find(func(n *doctree.Node) bool {
		v, ok := n.GetAttr(doctree.OverlayAttr)
		return ok && v == spacerKind
	})
	for _, n := range found {
		n.Remove()
	}
	return len(found) > 0
}

// Resize applies a new viewport. The reading location is sampled at the
// first event of a burst, while the old layout is still valid; once the
// burst has been quiet for the debounce window the columns are fixed and
// the location is revealed again.
func (c *Controller) Resize(width, height float64) {
	if !c.resizing {
		c.resizing = true
		c.saved = nil
		if loc, ok := c.tracker.Sample(); ok {
			c.saved = &loc
		}
	}
	if r, ok := c.surface.(layout.Resizer); ok {
		r.Resize(width, height)
	} else {
		c.surface.Relayout()
	}
	c.ctx.Sched.Cancel(c.resize)
	c.resize = c.ctx.Sched.After(c.ctx.Tuning.ResizeDebounce, c.settleResize)
}

func (c *Controller) settleResize() {
	saved := c.saved
	c.resizing, c.saved = false, nil

	w, _ := c.surface.Viewport()
	if w <= 0 {
		c.ctx.Log.Warn("resize skipped", "error", ErrDegenerateViewport)
		return
	}
	if _, err := c.FixColumns(); err != nil {
		c.ctx.Log.Warn("column fix failed", "error", err)
	}
	if saved != nil {
		err := c.tracker.RevealLocation(*saved)
		if err == nil {
			return
		}
		c.ctx.Log.Info("resize reveal failed", "location", saved.String(), "error", err)
	}
	if c.ctx.Paginated() {
		page := min(max(c.CurrentPage(), 0), c.PageCount()-1)
		c.surface.SetScrollLeft(float64(page) * w)
	}
}
