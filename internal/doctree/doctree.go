package doctree

import (
	"slices"
	"strings"
	"unicode/utf16"

	"golang.org/x/net/html"
)

// Kind classifies a node in the rendered document tree.
type Kind int

const (
	KindOther Kind = iota // comments, doctypes, processing instructions
	KindElement
	KindText
	KindDocument
)

// OverlayAttr marks elements the reader injects into the content (highlight
// markers, the column spacer). Overlay elements are transparent to addressing.
const OverlayAttr = "data-overlay"

// Node is a node of the rendered document. Nodes are owned by their Document;
// every other component holds plain references and must not retain them
// across a re-parse.
type Node struct {
	Kind     Kind
	Tag      string           // lowercase tag name (elements only)
	Attr     []html.Attribute // element attributes
	Data     string           // text content (text nodes) or comment data
	Parent   *Node
	Children []*Node

	rawType html.NodeType // original x/net/html type of KindOther nodes
}

// NewElement returns a detached element with the given attributes
// (alternating key, value).
func NewElement(tag string, kv ...string) *Node {
	n := &Node{Kind: KindElement, Tag: tag}
	for i := 0; i+1 < len(kv); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: kv[i], Val: kv[i+1]})
	}
	return n
}

// NewText returns a detached text node.
func NewText(s string) *Node {
	return &Node{Kind: KindText, Data: s}
}

// GetAttr returns the value of attribute key.
func (n *Node) GetAttr(key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets or replaces attribute key.
func (n *Node) SetAttr(key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// ID returns the element's id attribute, or "" for non-elements.
func (n *Node) ID() string {
	if n.Kind != KindElement {
		return ""
	}
	v, _ := n.GetAttr("id")
	return v
}

// HasClass reports whether the element's class list contains class.
func (n *Node) HasClass(class string) bool {
	if n.Kind != KindElement {
		return false
	}
	v, _ := n.GetAttr("class")
	return slices.Contains(strings.Fields(v), class)
}

// IsOverlay reports whether n was injected by the reader.
func (n *Node) IsOverlay() bool {
	if n.Kind != KindElement {
		return false
	}
	_, ok := n.GetAttr(OverlayAttr)
	return ok
}

// Addressable reports whether n takes part in sibling indexing.
func (n *Node) Addressable() bool {
	return n.Kind == KindElement || n.Kind == KindText
}

// TextLen is the length of a text node in UTF-16 code units, the unit in
// which browser hosts express offsets. It is 0 for every other kind.
func (n *Node) TextLen() int {
	if n.Kind != KindText {
		return 0
	}
	return utf16Len(n.Data)
}

// TextContent concatenates the data of all descendant text nodes.
func (n *Node) TextContent() string {
	if n.Kind == KindText {
		return n.Data
	}
	var buf strings.Builder
	n.Walk(func(c *Node) bool {
		if c.Kind == KindText {
			buf.WriteString(c.Data)
		}
		return true
	})
	return buf.String()
}

// Walk visits n and its descendants in document order. Returning false from
// fn skips the children of the visited node.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Closest returns the nearest inclusive ancestor matching pred.
func (n *Node) Closest(pred func(*Node) bool) *Node {
	for cur := n; cur != nil; cur = cur.Parent {
		if pred(cur) {
			return cur
		}
	}
	return nil
}

// Contains reports whether other is n or a descendant of n.
func (n *Node) Contains(other *Node) bool {
	for cur := other; cur != nil; cur = cur.Parent {
		if cur == n {
			return true
		}
	}
	return false
}

// Index returns the position of n among all of its parent's children.
func (n *Node) Index() int {
	if n.Parent == nil {
		return -1
	}
	return slices.Index(n.Parent.Children, n)
}

// AppendChild attaches c as the last child of n, detaching it first.
func (n *Node) AppendChild(c *Node) {
	c.Remove()
	c.Parent = n
	n.Children = append(n.Children, c)
}

// InsertBefore attaches c before ref; a nil ref appends.
func (n *Node) InsertBefore(c, ref *Node) {
	if ref == nil {
		n.AppendChild(c)
		return
	}
	c.Remove()
	i := slices.Index(n.Children, ref)
	if i < 0 {
		n.Children = append(n.Children, c)
	} else {
		n.Children = slices.Insert(n.Children, i, c)
	}
	c.Parent = n
}

// Remove detaches n from its parent.
func (n *Node) Remove() {
	if n.Parent == nil {
		return
	}
	if i := slices.Index(n.Parent.Children, n); i >= 0 {
		n.Parent.Children = slices.Delete(n.Parent.Children, i, i+1)
	}
	n.Parent = nil
}

// SplitText splits a text node at offset (UTF-16 units). n keeps the head and
// the returned node, inserted right after n, holds the tail. Offsets are
// clamped into [0, TextLen].
func (n *Node) SplitText(offset int) *Node {
	head, tail := splitUTF16(n.Data, offset)
	n.Data = head
	tailNode := NewText(tail)
	if p := n.Parent; p != nil {
		i := slices.Index(p.Children, n)
		p.Children = slices.Insert(p.Children, i+1, tailNode)
		tailNode.Parent = p
	}
	return tailNode
}

// Unwrap replaces n with its children.
func (n *Node) Unwrap() {
	p := n.Parent
	if p == nil {
		return
	}
	i := slices.Index(p.Children, n)
	kids := n.Children
	for _, c := range kids {
		c.Parent = p
	}
	n.Children = nil
	n.Parent = nil
	p.Children = slices.Concat(p.Children[:i], kids, p.Children[i+1:])
}

// Normalize merges adjacent text nodes and drops empty ones beneath n.
func (n *Node) Normalize() {
	out := n.Children[:0]
	for _, c := range n.Children {
		if c.Kind == KindText {
			if c.Data == "" {
				c.Parent = nil
				continue
			}
			if len(out) > 0 && out[len(out)-1].Kind == KindText {
				out[len(out)-1].Data += c.Data
				c.Parent = nil
				continue
			}
		}
		out = append(out, c)
	}
	clear(n.Children[len(out):])
	n.Children = out
	for _, c := range n.Children {
		c.Normalize()
	}
}

// Document is a parsed chapter.
type Document struct {
	Root *Node // KindDocument
	Body *Node // the <body> element, the origin of every structural path
}

// ElementByID returns the first element in document order with the given id.
// The lookup is done on every call since the tree is mutable.
func (d *Document) ElementByID(id string) *Node {
	if id == "" {
		return nil
	}
	var found *Node
	d.Root.Walk(func(n *Node) bool {
		if found != nil {
			return false
		}
		if n.Kind == KindElement && n.ID() == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// Find returns every node beneath the body matching pred, in document order.
func (d *Document) Find(pred func(*Node) bool) []*Node {
	var out []*Node
	d.Body.Walk(func(n *Node) bool {
		if pred(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// splitUTF16 splits s at a UTF-16 offset. An offset falling inside a
// surrogate pair moves to the end of that pair.
func splitUTF16(s string, offset int) (string, string) {
	if offset <= 0 {
		return "", s
	}
	units := 0
	for i, r := range s {
		if units >= offset {
			return s[:i], s[i:]
		}
		units += utf16.RuneLen(r)
	}
	return s, ""
}

// SliceUTF16 returns s[from:to] in UTF-16 units, clamped to the string.
func SliceUTF16(s string, from, to int) string {
	if to < from {
		return ""
	}
	_, rest := splitUTF16(s, from)
	mid, _ := splitUTF16(rest, to-max(from, 0))
	return mid
}
