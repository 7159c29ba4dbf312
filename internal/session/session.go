// Package session holds the per-document state shared by the reader's
// components: flags the host can flip, the active selection, the virtual
// clock, and the outbound report sink.
package session

import (
	"log/slog"

	"github.com/dgallion1/folio/internal/bridge"
	"github.com/dgallion1/folio/internal/config"
	"github.com/dgallion1/folio/internal/doctree"
	"github.com/dgallion1/folio/internal/event"
	"github.com/dgallion1/folio/internal/layout"
)

// Context is passed to every component constructor. Flags are read at the
// start of each classification step, so setters take effect on the next
// event.
type Context struct {
	Mode    layout.Mode
	Columns int
	Tuning  config.Tuning

	// Host flags.
	InteractionLocked bool
	InputBlocked      bool

	// Restoring is true while the one-shot restore sequence is in flight;
	// Loading is true while the content is hidden.
	Restoring bool
	Loading   bool

	// SuppressSelectionClear drops onSelectionCleared reports for a short
	// grace window after a highlight was activated.
	SuppressSelectionClear bool

	TextColor       string
	BackgroundColor string
	FontFamily      string

	Sched *event.Scheduler
	Sink  bridge.Sink
	Log   *slog.Logger

	selection    doctree.Span
	hasSelection bool
}

// New returns a context with a fresh clock. The content starts hidden and
// restoring until the restore sequence clears both flags.
func New(mode layout.Mode, tuning config.Tuning, sink bridge.Sink, log *slog.Logger) *Context {
	if sink == nil {
		sink = bridge.Discard
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Context{
		Mode:      mode,
		Columns:   1,
		Tuning:    tuning,
		Restoring: true,
		Loading:   true,
		Sched:     event.NewScheduler(),
		Sink:      sink,
		Log:       log,
	}
}

// Report sends a named event with its positional payload to the host.
func (c *Context) Report(name string, args ...any) {
	if args == nil {
		args = []any{}
	}
	c.Sink.Report(bridge.Report{Event: name, Args: args})
}

// Paginated reports whether the session uses the column-snapped layout.
func (c *Context) Paginated() bool { return c.Mode == layout.Paginated }

// SetSelection records the live selection.
func (c *Context) SetSelection(s doctree.Span) {
	c.selection, c.hasSelection = s, true
}

// ClearSelection drops the live selection.
func (c *Context) ClearSelection() {
	c.selection, c.hasSelection = doctree.Span{}, false
}

// Selection returns the live selection, if any.
func (c *Context) Selection() (doctree.Span, bool) {
	return c.selection, c.hasSelection
}

// HasSelection reports whether a non-collapsed selection is active.
func (c *Context) HasSelection() bool { return c.hasSelection }
