package address

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dgallion1/folio/internal/doctree"
)

// Codec maps nodes of one document to structural paths and back. Both
// directions index logical children only (elements and text runs, overlays
// spliced away) so encode and decode always agree on sibling counting.
type Codec struct {
	doc *doctree.Document
}

func NewCodec(doc *doctree.Document) *Codec {
	return &Codec{doc: doc}
}

// Document returns the document the codec addresses.
func (c *Codec) Document() *doctree.Document { return c.doc }

// Encode returns the path of n. Climbing stops at the first element carrying
// an id, which becomes the anchor, or at the body.
func (c *Codec) Encode(n *doctree.Node) (Path, error) {
	p, _, err := c.encode(n)
	return p, err
}

func (c *Codec) encode(n *doctree.Node) (Path, int, error) {
	if n == nil {
		return Path{}, 0, ErrDetached
	}
	if n.IsOverlay() {
		n = doctree.LogicalParent(n)
		if n == nil {
			return Path{}, 0, ErrDetached
		}
	}

	var (
		p         Path
		runOffset int
	)
	cur := n
	for {
		if cur.Kind == doctree.KindElement && !cur.IsOverlay() && anchorable(cur.ID()) {
			p.Anchor = cur.ID()
			break
		}
		if cur == c.doc.Body {
			break
		}
		parent := doctree.LogicalParent(cur)
		if parent == nil {
			return Path{}, 0, ErrDetached
		}
		i, off := doctree.LogicalIndex(parent, cur)
		if i < 0 {
			return Path{}, 0, ErrDetached
		}
		if cur == n {
			runOffset = off
		}
		p.Indices = append(p.Indices, i)
		cur = parent
	}
	slices.Reverse(p.Indices)
	return p, runOffset, nil
}

// anchorable reports whether id can be written into a path anchor and read
// back unchanged.
func anchorable(id string) bool {
	return id != "" && !strings.Contains(id, `"`)
}

// Decode resolves p to an element or to the first text node of a run.
func (c *Codec) Decode(p Path) (*doctree.Node, error) {
	slot, err := c.decode(p)
	if err != nil {
		return nil, err
	}
	return slot.First(), nil
}

func (c *Codec) decode(p Path) (doctree.Slot, error) {
	cur := c.doc.Body
	if p.Anchor != "" {
		cur = c.doc.ElementByID(p.Anchor)
		if cur == nil {
			return doctree.Slot{}, fmt.Errorf("%w: %q", ErrAnchorNotFound, p.Anchor)
		}
	}
	slot := doctree.Slot{Element: cur}
	for depth, i := range p.Indices {
		if slot.IsText() {
			return doctree.Slot{}, fmt.Errorf("%w: %s descends into text at depth %d", ErrNotFound, p, depth)
		}
		kids := doctree.LogicalChildren(slot.Element)
		if i < 0 || i >= len(kids) {
			return doctree.Slot{}, fmt.Errorf("%w: %s has no index %d at depth %d", ErrNotFound, p, i, depth)
		}
		slot = kids[i]
	}
	return slot, nil
}

// EncodePoint addresses a caret position. Text offsets are expressed against
// the whole logical run; elements always carry offset 0.
func (c *Codec) EncodePoint(n *doctree.Node, offset int) (Point, error) {
	p, runOffset, err := c.encode(n)
	if err != nil {
		return Point{}, err
	}
	if n.Kind != doctree.KindText {
		return Point{Path: p}, nil
	}
	offset = min(max(offset, 0), n.TextLen())
	return Point{Path: p, Offset: runOffset + offset}, nil
}

// DecodePoint resolves a point to a physical boundary, clamping the offset
// into [0, run length].
func (c *Codec) DecodePoint(p Path, offset int) (doctree.Boundary, error) {
	slot, err := c.decode(p)
	if err != nil {
		return doctree.Boundary{}, err
	}
	return slot.Locate(offset), nil
}
