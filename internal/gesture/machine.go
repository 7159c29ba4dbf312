// Package gesture turns raw pointer input into taps, page turns, long-press
// hand-offs and highlight activations.
package gesture

import (
	"math"
	"time"

	"github.com/dgallion1/folio/internal/bridge"
	"github.com/dgallion1/folio/internal/doctree"
	"github.com/dgallion1/folio/internal/event"
	"github.com/dgallion1/folio/internal/layout"
	"github.com/dgallion1/folio/internal/session"
)

// Pager turns pages. *pagination.Controller implements it.
type Pager interface {
	SnapToPage(i int) error
	CurrentPage() int
}

// Activator finds and activates highlight markers. *highlight.Renderer
// implements it.
type Activator interface {
	MarkerFor(n *doctree.Node) *doctree.Node
	Activate(marker *doctree.Node)
}

// pointerSession is the state of one single-contact press.
type pointerSession struct {
	startX, startY  float64
	startTime       time.Duration
	startScrollLeft float64
	phase           Phase
}

// Machine classifies input events. There is at most one live pointer
// session; a new press supersedes it.
type Machine struct {
	ctx     *session.Context
	surface layout.Surface
	pager   Pager
	marks   Activator

	s         pointerSession
	longPress event.Token

	lastTap time.Duration
	tapped  bool
}

func New(ctx *session.Context, surface layout.Surface, pager Pager, marks Activator) *Machine {
	return &Machine{ctx: ctx, surface: surface, pager: pager, marks: marks}
}

// Phase returns the phase of the current pointer session.
func (m *Machine) Phase() Phase { return m.s.phase }

// Handle classifies e. The caller advances the clock to e.At first.
func (m *Machine) Handle(e event.Event) Outcome {
	switch e.Kind {
	case event.PointerDown:
		return m.down(e)
	case event.PointerMove:
		return m.move(e)
	case event.PointerUp:
		return m.up(e)
	case event.Click:
		return m.click(e)
	case event.Key:
		return m.key(e)
	}
	return Outcome{Class: Ignored}
}

func (m *Machine) reset() {
	m.ctx.Sched.Cancel(m.longPress)
	m.longPress = 0
	m.s = pointerSession{}
}

func (m *Machine) down(e event.Event) Outcome {
	if !m.ctx.Paginated() || m.ctx.InputBlocked {
		return Outcome{Class: Ignored}
	}
	if e.Contacts() != 1 {
		m.reset()
		return Outcome{Class: Ignored}
	}
	m.reset()
	m.s = pointerSession{
		startX:          e.X,
		startY:          e.Y,
		startTime:       e.At,
		startScrollLeft: m.surface.ScrollLeft(),
		phase:           LongPressPending,
	}
	m.longPress = m.ctx.Sched.After(m.ctx.Tuning.LongPress, func() {
		if m.s.phase == LongPressPending {
			m.s.phase = LongPressActive
			m.ctx.Log.Debug("long press", "x", m.s.startX, "y", m.s.startY)
		}
	})
	return Outcome{Class: None}
}

func (m *Machine) move(e event.Event) Outcome {
	switch m.s.phase {
	case Idle:
		return Outcome{Class: Ignored}
	case LongPressActive:
		return Outcome{Class: LongPress}
	}
	if e.Contacts() != 1 {
		m.reset()
		return Outcome{Class: Ignored}
	}
	if m.ctx.HasSelection() {
		// Native selection dragging takes over.
		m.reset()
		return Outcome{Class: Ignored}
	}
	if m.ctx.InputBlocked || m.ctx.InteractionLocked {
		return Outcome{Class: None, PreventDefault: true}
	}

	dx, dy := m.s.startX-e.X, m.s.startY-e.Y
	tol := m.ctx.Tuning.MoveTolerance
	switch m.s.phase {
	case ScrollingVertically:
		return Outcome{Class: VerticalScroll}
	case LongPressPending:
		if math.Abs(dx) < tol && math.Abs(dy) < tol {
			return Outcome{Class: None}
		}
		m.ctx.Sched.Cancel(m.longPress)
		m.longPress = 0
		if math.Abs(dy) > math.Abs(dx) {
			m.s.phase = ScrollingVertically
			return Outcome{Class: VerticalScroll}
		}
		m.s.phase = Dragging
	}

	m.surface.SetScrollLeft(m.s.startScrollLeft + dx)
	return Outcome{Class: DragFollow, PreventDefault: true}
}

func (m *Machine) up(e event.Event) Outcome {
	if m.ctx.InputBlocked {
		m.reset()
		return Outcome{Class: Ignored, PreventDefault: true}
	}
	s := m.s
	m.reset()

	switch s.phase {
	case Idle:
		return Outcome{Class: Ignored}
	case LongPressActive:
		return Outcome{Class: LongPress}
	case ScrollingVertically:
		return Outcome{Class: VerticalScroll}
	}

	dx, dy := s.startX-e.X, s.startY-e.Y
	tol := m.ctx.Tuning.MoveTolerance
	if e.At-s.startTime < m.ctx.Tuning.TapWindow && math.Abs(dx) < tol && math.Abs(dy) < tol {
		if s.phase == Dragging {
			m.surface.SetScrollLeft(s.startScrollLeft)
		}
		return m.tap(e.X, e.Y, true)
	}

	if m.ctx.InteractionLocked {
		return Outcome{Class: Ignored}
	}
	w, _ := m.surface.Viewport()
	if w <= 0 {
		m.ctx.Log.Warn("drag end skipped", "reason", "zero viewport width")
		return Outcome{Class: Ignored}
	}
	start := int(math.Round(s.startScrollLeft / w))
	target := start
	if math.Abs(dx) > m.ctx.Tuning.PageTurnDrag {
		if dx > 0 {
			target++
		} else {
			target--
		}
	}
	m.snap(target)
	return Outcome{Class: DragPage}
}

// tap classifies a short stationary press or a click at (x, y). Only touch
// taps open the window that swallows the synthetic click following them.
func (m *Machine) tap(x, y float64, touch bool) Outcome {
	if m.ctx.HasSelection() {
		m.markTap(touch)
		return Outcome{Class: SelectionClear}
	}

	target := m.surface.ElementAt(x, y)
	if marker := m.marker(target); marker != nil {
		m.markTap(touch)
		m.marks.Activate(marker)
		return Outcome{Class: HighlightActivate, PreventDefault: true}
	}
	if isInteractive(target) {
		return Outcome{Class: Passthrough}
	}

	if m.ctx.InteractionLocked {
		if m.inNavBand(y) {
			return Outcome{Class: Ignored}
		}
		m.markTap(touch)
		m.ctx.Report(bridge.EventTap)
		return Outcome{Class: Tap, PreventDefault: true}
	}

	m.markTap(touch)
	w, _ := m.surface.Viewport()
	if w <= 0 {
		m.ctx.Report(bridge.EventTap)
		return Outcome{Class: Tap}
	}
	switch p := x / w; {
	case p < m.ctx.Tuning.EdgeZone:
		m.snap(m.pager.CurrentPage() - 1)
		return Outcome{Class: PrevPage, PreventDefault: true}
	case p > 1-m.ctx.Tuning.EdgeZone:
		m.snap(m.pager.CurrentPage() + 1)
		return Outcome{Class: NextPage, PreventDefault: true}
	}
	m.ctx.Report(bridge.EventTap)
	return Outcome{Class: Tap}
}

func (m *Machine) click(e event.Event) Outcome {
	if m.ctx.InputBlocked {
		return Outcome{Class: Ignored, PreventDefault: true}
	}
	if !m.ctx.Paginated() {
		return m.continuousClick(e)
	}
	if m.tapped && m.ctx.Sched.Now()-m.lastTap < m.ctx.Tuning.ClickSuppress {
		return Outcome{Class: Suppressed, PreventDefault: true}
	}
	return m.tap(e.X, e.Y, false)
}

// continuousClick handles clicks in the scrolling layout, where the host's
// bars own the top and bottom bands and every other click is a plain tap.
func (m *Machine) continuousClick(e event.Event) Outcome {
	target := m.surface.ElementAt(e.X, e.Y)
	if marker := m.marker(target); marker != nil {
		m.marks.Activate(marker)
		return Outcome{Class: HighlightActivate, PreventDefault: true}
	}
	if isInteractive(target) {
		return Outcome{Class: Passthrough}
	}
	if m.inNavBand(e.Y) {
		return Outcome{Class: Ignored}
	}
	m.ctx.Report(bridge.EventTap)
	return Outcome{Class: Tap}
}

func (m *Machine) key(e event.Event) Outcome {
	if !m.ctx.Paginated() || m.ctx.InteractionLocked || m.ctx.InputBlocked {
		return Outcome{Class: Ignored}
	}
	switch e.Key {
	case "ArrowRight":
		m.snap(m.pager.CurrentPage() + 1)
		return Outcome{Class: NextPage, PreventDefault: true}
	case "ArrowLeft":
		m.snap(m.pager.CurrentPage() - 1)
		return Outcome{Class: PrevPage, PreventDefault: true}
	}
	return Outcome{Class: Ignored}
}

func (m *Machine) snap(page int) {
	if err := m.pager.SnapToPage(page); err != nil {
		m.ctx.Log.Warn("page snap failed", "page", page, "error", err)
	}
}

func (m *Machine) markTap(touch bool) {
	if touch {
		m.lastTap, m.tapped = m.ctx.Sched.Now(), true
	}
}

func (m *Machine) marker(target *doctree.Node) *doctree.Node {
	if m.marks == nil || target == nil {
		return nil
	}
	return m.marks.MarkerFor(target)
}

func (m *Machine) inNavBand(y float64) bool {
	_, h := m.surface.Viewport()
	band := m.ctx.Tuning.NavBand
	return y < band || y > h-band
}

func isInteractive(n *doctree.Node) bool {
	if n == nil {
		return false
	}
	return n.Closest(func(c *doctree.Node) bool {
		return c.Kind == doctree.KindElement && (c.Tag == "a" || c.Tag == "button")
	}) != nil
}
