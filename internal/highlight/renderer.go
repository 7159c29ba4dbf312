// Package highlight renders host-owned highlight records as marker spans in
// the document and reports taps on them.
package highlight

import (
	"fmt"

	"github.com/dgallion1/folio/internal/address"
	"github.com/dgallion1/folio/internal/bridge"
	"github.com/dgallion1/folio/internal/doctree"
	"github.com/dgallion1/folio/internal/event"
	"github.com/dgallion1/folio/internal/layout"
	"github.com/dgallion1/folio/internal/session"
)

const (
	// MarkerClass is the class carried by every rendered marker.
	MarkerClass = "highlight"
	// overlayKind is the data-overlay value of markers.
	overlayKind = "highlight"
)

// Renderer wraps highlighted text in markers. Markers are overlay elements,
// so rendering never shifts the paths other highlights resolve against.
type Renderer struct {
	ctx     *session.Context
	codec   *address.Codec
	surface layout.Surface

	grace event.Token
}

func NewRenderer(ctx *session.Context, codec *address.Codec, surface layout.Surface) *Renderer {
	return &Renderer{ctx: ctx, codec: codec, surface: surface}
}

// Apply renders one highlight and returns the number of markers created.
// Segments that clamp to zero length produce no marker.
func (r *Renderer) Apply(h Highlight) (int, error) {
	span, err := h.Range.Resolve(r.codec)
	if err != nil {
		return 0, fmt.Errorf("highlight %q: %w", h.ID, err)
	}
	doc := r.codec.Document()
	segs := doc.Segments(span)
	for _, seg := range segs {
		wrap(seg, h.ID)
	}
	if len(segs) > 0 {
		r.surface.Relayout()
	}
	return len(segs), nil
}

func wrap(seg doctree.Segment, id string) {
	node := seg.Node
	if seg.From > 0 {
		node = node.SplitText(seg.From)
	}
	if n := seg.To - seg.From; n < node.TextLen() {
		node.SplitText(n)
	}
	marker := doctree.NewElement("span",
		"class", MarkerClass,
		"data-id", id,
		doctree.OverlayAttr, overlayKind,
	)
	node.Parent.InsertBefore(marker, node)
	marker.AppendChild(node)
}

// ApplyAll renders every highlight, skipping the ones that fail to resolve.
// It returns the total number of markers created.
func (r *Renderer) ApplyAll(list []Highlight) int {
	total := 0
	for _, h := range list {
		n, err := r.Apply(h)
		if err != nil {
			r.ctx.Log.Warn("highlight skipped", "id", h.ID, "error", err)
			continue
		}
		total += n
	}
	r.ctx.Log.Debug("highlights applied", "count", len(list), "markers", total)
	return total
}

// Reset removes every marker and merges the text it split.
func (r *Renderer) Reset() {
	markers := r.Markers()
	if len(markers) == 0 {
		return
	}
	parents := make(map[*doctree.Node]bool)
	for _, m := range markers {
		if p := m.Parent; p != nil {
			parents[p] = true
		}
		m.Unwrap()
	}
	for p := range parents {
		if p.Parent != nil || p == r.codec.Document().Body {
			p.Normalize()
		}
	}
	r.surface.Relayout()
}

// Render replaces the rendered highlights with list.
func (r *Renderer) Render(list []Highlight) int {
	r.Reset()
	return r.ApplyAll(list)
}

// Markers returns the rendered markers in document order.
func (r *Renderer) Markers() []*doctree.Node {
	return r.codec.Document().Find(isMarker)
}

// MarkerFor returns the marker enclosing n, or nil.
func (r *Renderer) MarkerFor(n *doctree.Node) *doctree.Node {
	if n == nil {
		return nil
	}
	return n.Closest(isMarker)
}

// Activate reports a tap on marker with its bounding box and opens the
// selection-clear grace window.
func (r *Renderer) Activate(marker *doctree.Node) {
	id, _ := marker.GetAttr("data-id")
	rect, _ := r.surface.Rect(marker)

	r.ctx.SuppressSelectionClear = true
	r.ctx.Sched.Cancel(r.grace)
	r.grace = r.ctx.Sched.After(r.ctx.Tuning.SelectionClearGrace, func() {
		r.ctx.SuppressSelectionClear = false
	})

	r.ctx.Log.Info("highlight click", "id", id,
		"left", rect.Left, "top", rect.Top, "width", rect.Width, "height", rect.Height)
	r.ctx.Report(bridge.EventHighlightClicked, id, rect.Left, rect.Top, rect.Width, rect.Height)
}

func isMarker(n *doctree.Node) bool {
	v, ok := n.GetAttr(doctree.OverlayAttr)
	return ok && v == overlayKind && n.Kind == doctree.KindElement
}
