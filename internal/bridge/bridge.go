// Package bridge is the boundary between a reader session and its host.
// Everything the host can observe leaves the session as a Report.
package bridge

import "sync"

// Host-facing event names.
const (
	EventTap              = "onTap"
	EventScrollProgress   = "onScrollProgress"
	EventSelectionChanged = "onSelectionChanged"
	EventSelectionCleared = "onSelectionCleared"
	EventHighlightClicked = "onHighlightClicked"
	EventNextChapter      = "onNextChapter"
	EventPrevChapter      = "onPrevChapter"
	EventConsoleLog       = "consoleLog"
)

// Report is a fire-and-forget call to a named host handler with a fixed
// positional payload.
type Report struct {
	Event string `json:"event"`
	Args  []any  `json:"args"`
}

// Sink receives reports. Implementations must not call back into the session.
type Sink interface {
	Report(Report)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Report)

func (f SinkFunc) Report(r Report) { f(r) }

// Discard drops every report.
var Discard Sink = SinkFunc(func(Report) {})

// Recorder buffers reports until drained. It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	reports []Report
}

func (r *Recorder) Report(rep Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, rep)
}

// Reports returns a copy of the buffered reports.
func (r *Recorder) Reports() []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Report(nil), r.reports...)
}

// Drain returns the buffered reports and empties the buffer.
func (r *Recorder) Drain() []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.reports
	r.reports = nil
	return out
}

// Named returns the buffered reports for one event.
func (r *Recorder) Named(event string) []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Report
	for _, rep := range r.reports {
		if rep.Event == event {
			out = append(out, rep)
		}
	}
	return out
}

// Count returns how many reports for event are buffered.
func (r *Recorder) Count(event string) int {
	return len(r.Named(event))
}
