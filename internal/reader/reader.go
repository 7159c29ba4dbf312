// Package reader wires the addressing, highlight, pagination, gesture and
// restore components into one reading session over a laid-out chapter.
package reader

import (
	"log/slog"
	"time"

	"github.com/dgallion1/folio/internal/address"
	"github.com/dgallion1/folio/internal/bridge"
	"github.com/dgallion1/folio/internal/config"
	"github.com/dgallion1/folio/internal/doctree"
	"github.com/dgallion1/folio/internal/event"
	"github.com/dgallion1/folio/internal/gesture"
	"github.com/dgallion1/folio/internal/highlight"
	"github.com/dgallion1/folio/internal/layout"
	"github.com/dgallion1/folio/internal/location"
	"github.com/dgallion1/folio/internal/pagination"
	"github.com/dgallion1/folio/internal/restore"
	"github.com/dgallion1/folio/internal/selection"
	"github.com/dgallion1/folio/internal/session"
)

// Config is the host's configuration for one session.
type Config struct {
	Mode              layout.Mode           `json:"mode"`
	Columns           int                   `json:"columns,omitempty"`
	Progress          string                `json:"progress,omitempty"`
	Anchor            string                `json:"anchor,omitempty"`
	Highlights        []highlight.Highlight `json:"highlights,omitempty"`
	InteractionLocked bool                  `json:"interactionLocked,omitempty"`
	InputBlocked      bool                  `json:"inputBlocked,omitempty"`
	TextColor         string                `json:"textColor,omitempty"`
	BackgroundColor   string                `json:"backgroundColor,omitempty"`
	FontFamily        string                `json:"fontFamily,omitempty"`
}

// State is a snapshot of a session for the host.
type State struct {
	Mode              layout.Mode `json:"mode"`
	Columns           int         `json:"columns"`
	Page              int         `json:"page"`
	PageCount         int         `json:"pageCount"`
	ScrollLeft        float64     `json:"scrollLeft"`
	ScrollTop         float64     `json:"scrollTop"`
	ContentWidth      float64     `json:"contentWidth"`
	ContentHeight     float64     `json:"contentHeight"`
	Loading           bool        `json:"loading"`
	Restoring         bool        `json:"restoring"`
	InteractionLocked bool        `json:"interactionLocked"`
	InputBlocked      bool        `json:"inputBlocked"`
	HasSelection      bool        `json:"hasSelection"`
	Gesture           string      `json:"gesture"`
	Highlights        int         `json:"highlights"`
	Location          string      `json:"location,omitempty"`
	TextColor         string      `json:"textColor,omitempty"`
	BackgroundColor   string      `json:"backgroundColor,omitempty"`
	FontFamily        string      `json:"fontFamily,omitempty"`
	Clock             string      `json:"clock"`
}

// Session is one open chapter. Its methods must be called from a single
// goroutine at a time.
type Session struct {
	cfg     Config
	ctx     *session.Context
	doc     *doctree.Document
	surface layout.Surface
	codec   *address.Codec

	tracker   *location.Tracker
	marks     *highlight.Renderer
	pager     *pagination.Controller
	gestures  *gesture.Machine
	selection *selection.Reporter
	restorer  *restore.Controller

	highlights []highlight.Highlight
	pendingHL  event.Token
	started    bool
}

// New builds a session over doc as laid out by surface. Log records at Info
// and above are also forwarded to sink as consoleLog reports.
func New(doc *doctree.Document, surface layout.Surface, cfg Config, tuning config.Tuning, sink bridge.Sink, log *slog.Logger) *Session {
	if sink == nil {
		sink = bridge.Discard
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	logger := slog.New(bridge.NewLogHandler(sink, log.Handler())).With("mode", cfg.Mode.String())

	ctx := session.New(cfg.Mode, tuning, sink, logger)
	ctx.Columns = max(cfg.Columns, 1)
	ctx.InteractionLocked = cfg.InteractionLocked
	ctx.InputBlocked = cfg.InputBlocked
	ctx.TextColor, ctx.BackgroundColor = cfg.TextColor, cfg.BackgroundColor
	ctx.FontFamily = cfg.FontFamily

	codec := address.NewCodec(doc)
	tracker := location.NewTracker(ctx, surface, codec)
	marks := highlight.NewRenderer(ctx, codec, surface)
	pager := pagination.New(ctx, surface, doc, tracker)

	return &Session{
		cfg:        cfg,
		ctx:        ctx,
		doc:        doc,
		surface:    surface,
		codec:      codec,
		tracker:    tracker,
		marks:      marks,
		pager:      pager,
		gestures:   gesture.New(ctx, surface, pager, marks),
		selection:  selection.NewReporter(ctx, surface, codec),
		restorer:   restore.New(ctx, surface, codec, tracker, pager),
		highlights: cfg.Highlights,
	}
}

// Start fixes the columns, schedules the initial highlights and starts the
// restore sequence. Later calls are ignored.
func (s *Session) Start() {
	if s.started {
		return
	}
	s.started = true
	s.ctx.Log.Info("reader starting", "columns", s.ctx.Columns, "highlights", len(s.highlights))

	if _, err := s.pager.FixColumns(); err != nil {
		s.ctx.Log.Warn("column fix failed", "error", err)
	}

	if len(s.highlights) > 0 {
		list := s.highlights
		s.pendingHL = s.ctx.Sched.After(s.ctx.Tuning.HighlightDelay, func() {
			n := s.marks.ApplyAll(list)
			s.ctx.Log.Info("highlights restored", "count", len(list), "markers", n)
		})
	}

	target, err := address.ParseTarget(s.cfg.Progress, s.cfg.Anchor)
	if err != nil {
		s.ctx.Log.Warn("progress ignored", "error", err)
	}
	s.restorer.Start(target)
}

// Dispatch handles one input event after advancing the clock to its time.
func (s *Session) Dispatch(e event.Event) gesture.Outcome {
	s.ctx.Sched.AdvanceTo(e.At)

	switch e.Kind {
	case event.PointerDown, event.PointerMove, event.PointerUp, event.Click, event.Key:
		out := s.gestures.Handle(e)
		if out.Class == gesture.SelectionClear {
			// The host clears its selection natively; mirror it.
			s.selection.Update(nil)
		}
		return out

	case event.Resize:
		s.pager.Resize(e.Width, e.Height)
		return gesture.Outcome{Class: gesture.None}

	case event.Scroll:
		s.surface.SetScrollLeft(e.ScrollLeft)
		s.surface.SetScrollTop(e.ScrollTop)
		if !s.ctx.Paginated() {
			s.tracker.ReportThrottled()
		}
		return gesture.Outcome{Class: gesture.None}

	case event.SelectionChange:
		if err := s.selection.Update(e.Selection); err != nil {
			s.ctx.Log.Debug("selection dropped", "error", err)
		}
		return gesture.Outcome{Class: gesture.None}

	case event.Tick:
		return gesture.Outcome{Class: gesture.None}
	}
	return gesture.Outcome{Class: gesture.Ignored}
}

// Advance lets d of session time pass without input.
func (s *Session) Advance(d time.Duration) { s.ctx.Sched.Advance(d) }

// Now returns the session clock.
func (s *Session) Now() time.Duration { return s.ctx.Sched.Now() }

func (s *Session) SetInteractionLocked(locked bool) {
	s.ctx.InteractionLocked = locked
	s.ctx.Log.Info("interaction locked", "locked", locked)
}

func (s *Session) SetInputBlocked(blocked bool) {
	s.ctx.InputBlocked = blocked
	s.ctx.Log.Info("input blocked", "blocked", blocked)
}

// SetTheme stores the colors; an empty background keeps the current one.
func (s *Session) SetTheme(text, background string) {
	s.ctx.TextColor = text
	if background != "" {
		s.ctx.BackgroundColor = background
	}
	s.ctx.Log.Info("theme set", "text", text, "background", background)
}

func (s *Session) SetFontFamily(family string) {
	s.ctx.FontFamily = family
	s.ctx.Log.Info("font family set", "family", family)
}

// SnapToPage turns to page i on the host's request.
func (s *Session) SnapToPage(i int) error {
	return s.pager.SnapToPage(i)
}

// RenderHighlights replaces the rendered highlights and returns the number
// of markers created. A still pending initial render is dropped.
func (s *Session) RenderHighlights(list []highlight.Highlight) int {
	s.ctx.Sched.Cancel(s.pendingHL)
	s.highlights = list
	return s.marks.Render(list)
}

// Location samples the current reading position.
func (s *Session) Location() (string, bool) {
	loc, ok := s.tracker.Sample()
	if !ok {
		return "", false
	}
	return loc.String(), true
}

// Document returns the chapter, markers and spacers included.
func (s *Session) Document() *doctree.Document { return s.doc }

func (s *Session) State() State {
	st := State{
		Mode:              s.ctx.Mode,
		Columns:           s.ctx.Columns,
		Page:              s.pager.CurrentPage(),
		PageCount:         s.pager.PageCount(),
		ScrollLeft:        s.surface.ScrollLeft(),
		ScrollTop:         s.surface.ScrollTop(),
		ContentWidth:      s.surface.ScrollWidth(),
		ContentHeight:     s.surface.ScrollHeight(),
		Loading:           s.ctx.Loading,
		Restoring:         s.ctx.Restoring,
		InteractionLocked: s.ctx.InteractionLocked,
		InputBlocked:      s.ctx.InputBlocked,
		HasSelection:      s.ctx.HasSelection(),
		Gesture:           s.gestures.Phase().String(),
		Highlights:        len(s.marks.Markers()),
		TextColor:         s.ctx.TextColor,
		BackgroundColor:   s.ctx.BackgroundColor,
		FontFamily:        s.ctx.FontFamily,
		Clock:             s.ctx.Sched.Now().String(),
	}
	st.Location, _ = s.Location()
	return st
}
