package doctree

// Slot is one logical child of an element: either a single element or a run
// of text nodes that are adjacent once overlay elements are spliced away.
// Logical children are what structural paths index, so rendering highlights
// or injecting a spacer never shifts a path or an offset.
type Slot struct {
	Element *Node
	Texts   []*Node
}

// IsText reports whether the slot is a text run.
func (s Slot) IsText() bool { return s.Element == nil }

// First returns the element or the first text node of the run.
func (s Slot) First() *Node {
	if s.Element != nil {
		return s.Element
	}
	return s.Texts[0]
}

// Len is the run length in UTF-16 units; 0 for elements.
func (s Slot) Len() int {
	n := 0
	for _, t := range s.Texts {
		n += t.TextLen()
	}
	return n
}

// Locate maps a run offset to a physical text node and local offset. The
// offset is clamped into [0, Len]. Elements map to (element, 0).
func (s Slot) Locate(offset int) Boundary {
	if s.Element != nil {
		return Boundary{Node: s.Element}
	}
	offset = max(offset, 0)
	for i, t := range s.Texts {
		l := t.TextLen()
		if offset <= l || i == len(s.Texts)-1 {
			return Boundary{Node: t, Offset: min(offset, l)}
		}
		offset -= l
	}
	return Boundary{Node: s.Texts[0]}
}

// LogicalChildren lists the addressable children of n with overlay elements
// flattened and adjacent text merged. Comments break text runs, as they do
// in the physical tree.
func LogicalChildren(n *Node) []Slot {
	var out []Slot
	textOpen := false
	var visit func(p *Node)
	visit = func(p *Node) {
		for _, c := range p.Children {
			switch {
			case c.IsOverlay():
				visit(c)
			case c.Kind == KindText:
				if textOpen {
					last := &out[len(out)-1]
					last.Texts = append(last.Texts, c)
				} else {
					out = append(out, Slot{Texts: []*Node{c}})
					textOpen = true
				}
			case c.Kind == KindElement:
				out = append(out, Slot{Element: c})
				textOpen = false
			default:
				textOpen = false
			}
		}
	}
	visit(n)
	return out
}

// LogicalParent returns the nearest ancestor that is not an overlay.
func LogicalParent(n *Node) *Node {
	p := n.Parent
	for p != nil && p.IsOverlay() {
		p = p.Parent
	}
	return p
}

// LogicalIndex finds n among the logical children of parent. For text nodes
// it also returns the run offset at which n starts. The index is -1 when n
// is not a logical child of parent.
func LogicalIndex(parent, n *Node) (index, runOffset int) {
	for i, s := range LogicalChildren(parent) {
		if s.Element != nil {
			if s.Element == n {
				return i, 0
			}
			continue
		}
		off := 0
		for _, t := range s.Texts {
			if t == n {
				return i, off
			}
			off += t.TextLen()
		}
	}
	return -1, 0
}
