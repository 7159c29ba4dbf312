package address

import (
	"encoding/json"
	"fmt"

	"github.com/dgallion1/folio/internal/doctree"
)

// Point is a caret position: a path plus a character offset (0 for elements).
type Point struct {
	Path   Path
	Offset int
}

type pointJSON struct {
	Type   string `json:"type"`
	Path   Path   `json:"path"`
	Offset int    `json:"offset"`
}

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal(pointJSON{Type: "precise", Path: p.Path, Offset: p.Offset})
}

func (p *Point) UnmarshalJSON(data []byte) error {
	var v pointJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	p.Path, p.Offset = v.Path, v.Offset
	return nil
}

// String returns the JSON form reported to the host.
func (p Point) String() string {
	b, _ := json.Marshal(p)
	return string(b)
}

// Resolve decodes the point; the offset is clamped, never rejected.
func (p Point) Resolve(c *Codec) (doctree.Boundary, error) {
	return c.DecodePoint(p.Path, p.Offset)
}

// Range addresses a stretch of content between two points. Text is a plain
// text snapshot, present when the range came from a live selection.
type Range struct {
	StartPath   Path   `json:"startPath"`
	StartOffset int    `json:"startOffset"`
	EndPath     Path   `json:"endPath"`
	EndOffset   int    `json:"endOffset"`
	Text        string `json:"text,omitempty"`
}

// Start returns the start point.
func (r Range) Start() Point { return Point{Path: r.StartPath, Offset: r.StartOffset} }

// End returns the end point.
func (r Range) End() Point { return Point{Path: r.EndPath, Offset: r.EndOffset} }

// String returns the JSON form reported to the host.
func (r Range) String() string {
	b, _ := json.Marshal(r)
	return string(b)
}

// Resolve decodes both endpoints. A failure on either side fails the whole
// range; there is no partial resolution.
func (r Range) Resolve(c *Codec) (doctree.Span, error) {
	start, err := r.Start().Resolve(c)
	if err != nil {
		return doctree.Span{}, fmt.Errorf("range start: %w", err)
	}
	end, err := r.End().Resolve(c)
	if err != nil {
		return doctree.Span{}, fmt.Errorf("range end: %w", err)
	}
	return doctree.Span{Start: start, End: end}, nil
}

// FromSelection captures a live selection. It returns false when the
// selection is collapsed or covers no text.
func FromSelection(c *Codec, sel doctree.Span) (Range, bool) {
	if sel.Start.Node == nil || sel.End.Node == nil {
		return Range{}, false
	}
	text := c.doc.SpanText(sel)
	if text == "" {
		return Range{}, false
	}
	start, err := c.EncodePoint(sel.Start.Node, sel.Start.Offset)
	if err != nil {
		return Range{}, false
	}
	end, err := c.EncodePoint(sel.End.Node, sel.End.Offset)
	if err != nil {
		return Range{}, false
	}
	return Range{
		StartPath:   start.Path,
		StartOffset: start.Offset,
		EndPath:     end.Path,
		EndOffset:   end.Offset,
		Text:        text,
	}, true
}

// ParseRange reads a range from JSON. Ranges persisted by older hosts are
// a JSON string that itself holds the object; both forms are accepted.
func ParseRange(data []byte) (Range, error) {
	var r Range
	if err := json.Unmarshal(data, &r); err == nil {
		return r, nil
	}
	var inner string
	if err := json.Unmarshal(data, &inner); err != nil {
		return Range{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := json.Unmarshal([]byte(inner), &r); err != nil {
		return Range{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return r, nil
}
