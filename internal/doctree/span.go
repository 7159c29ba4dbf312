package doctree

import "strings"

// Boundary is a position inside the tree. For text nodes Offset counts UTF-16
// units; for elements it is a child index (the reader only ever uses 0, the
// position just inside the element).
type Boundary struct {
	Node   *Node
	Offset int
}

// Clamp returns b with its offset forced into the valid range for its node.
func (b Boundary) Clamp() Boundary {
	if b.Node == nil {
		return b
	}
	limit := len(b.Node.Children)
	if b.Node.Kind == KindText {
		limit = b.Node.TextLen()
	}
	b.Offset = min(max(b.Offset, 0), limit)
	return b
}

// Span is an inclusive-start, exclusive-end stretch of document content.
type Span struct {
	Start Boundary
	End   Boundary
}

// Segment is the part of one text node covered by a span.
type Segment struct {
	Node *Node
	From int
	To   int
}

// Len is the segment length in UTF-16 units.
func (s Segment) Len() int { return s.To - s.From }

// textIndex maps boundaries onto a flat cursor over the body's text nodes.
type textIndex struct {
	texts  []*Node
	before map[*Node]int // text nodes that start before the node
	after  map[*Node]int // text nodes that start before the node's end
}

func newTextIndex(root *Node) *textIndex {
	ix := &textIndex{before: make(map[*Node]int), after: make(map[*Node]int)}
	var visit func(n *Node)
	visit = func(n *Node) {
		ix.before[n] = len(ix.texts)
		if n.Kind == KindText {
			ix.texts = append(ix.texts, n)
		}
		for _, c := range n.Children {
			visit(c)
		}
		ix.after[n] = len(ix.texts)
	}
	visit(root)
	return ix
}

// cursor is a (text node index, offset) pair; index len(texts) is the end.
type cursor struct {
	i, off int
}

func (c cursor) less(o cursor) bool {
	return c.i < o.i || (c.i == o.i && c.off < o.off)
}

func (ix *textIndex) cursorOf(b Boundary) (cursor, bool) {
	b = b.Clamp()
	if _, ok := ix.before[b.Node]; !ok {
		return cursor{}, false
	}
	if b.Node.Kind == KindText {
		return cursor{i: ix.before[b.Node], off: b.Offset}, true
	}
	if b.Offset < len(b.Node.Children) {
		return cursor{i: ix.before[b.Node.Children[b.Offset]]}, true
	}
	return cursor{i: ix.after[b.Node]}, true
}

// Segments returns the non-empty text segments covered by s, in document
// order. A span whose end precedes its start is treated as collapsed.
func (d *Document) Segments(s Span) []Segment {
	ix := newTextIndex(d.Body)
	start, ok1 := ix.cursorOf(s.Start)
	end, ok2 := ix.cursorOf(s.End)
	if !ok1 || !ok2 || !start.less(end) {
		return nil
	}
	var out []Segment
	for i := start.i; i <= end.i && i < len(ix.texts); i++ {
		t := ix.texts[i]
		from, to := 0, t.TextLen()
		if i == start.i {
			from = start.off
		}
		if i == end.i {
			to = end.off
		}
		if to > from {
			out = append(out, Segment{Node: t, From: from, To: to})
		}
	}
	return out
}

// Collapsed reports whether s covers no text.
func (d *Document) Collapsed(s Span) bool {
	return len(d.Segments(s)) == 0
}

// SpanText returns the plain text covered by s.
func (d *Document) SpanText(s Span) string {
	var buf strings.Builder
	for _, seg := range d.Segments(s) {
		buf.WriteString(SliceUTF16(seg.Node.Data, seg.From, seg.To))
	}
	return buf.String()
}
