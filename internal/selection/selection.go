// Package selection tracks the host's text selection and reports it once it
// settles.
package selection

import (
	"fmt"
	"strings"

	"github.com/dgallion1/folio/internal/address"
	"github.com/dgallion1/folio/internal/bridge"
	"github.com/dgallion1/folio/internal/event"
	"github.com/dgallion1/folio/internal/layout"
	"github.com/dgallion1/folio/internal/session"
)

// Reporter debounces selection changes into onSelectionChanged and
// onSelectionCleared reports.
type Reporter struct {
	ctx     *session.Context
	surface layout.Surface
	codec   *address.Codec

	pending event.Token
}

func NewReporter(ctx *session.Context, surface layout.Surface, codec *address.Codec) *Reporter {
	return &Reporter{ctx: ctx, surface: surface, codec: codec}
}

// Update replaces the live selection with r; nil clears it. A range that no
// longer resolves clears the selection and returns the resolution error.
func (rp *Reporter) Update(r *address.Range) error {
	defer rp.Changed()
	if r == nil {
		rp.ctx.ClearSelection()
		return nil
	}
	span, err := r.Resolve(rp.codec)
	if err != nil {
		rp.ctx.ClearSelection()
		return fmt.Errorf("selection: %w", err)
	}
	if rp.codec.Document().Collapsed(span) {
		rp.ctx.ClearSelection()
		return nil
	}
	rp.ctx.SetSelection(span)
	return nil
}

// Changed restarts the debounce window.
func (rp *Reporter) Changed() {
	rp.ctx.Sched.Cancel(rp.pending)
	rp.pending = rp.ctx.Sched.After(rp.ctx.Tuning.SelectionDebounce, rp.Report)
}

// Report sends the current selection, or a cleared report when nothing
// readable is selected. Cleared reports are dropped inside the grace window
// that follows a highlight activation.
func (rp *Reporter) Report() {
	if sel, ok := rp.ctx.Selection(); ok {
		doc := rp.codec.Document()
		text := doc.SpanText(sel)
		if strings.TrimSpace(text) != "" {
			rng, ok := address.FromSelection(rp.codec, sel)
			if ok {
				rect, _ := layout.SpanRect(rp.surface, doc.Segments(sel))
				rp.ctx.Report(bridge.EventSelectionChanged,
					rect.Left, rect.Top, rect.Width, rect.Height, text, rng.String())
				return
			}
		}
	}
	if rp.ctx.SuppressSelectionClear {
		rp.ctx.Log.Debug("selection clear suppressed")
		return
	}
	rp.ctx.Report(bridge.EventSelectionCleared)
}
