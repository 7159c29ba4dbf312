package doctree

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrNoBody is returned when a parsed document has no <body> element.
var ErrNoBody = errors.New("doctree: document has no body")

// Parse reads an HTML or XHTML chapter into a Document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return FromHTML(root)
}

// ParseString is a convenience wrapper around Parse.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// FromHTML converts an x/net/html tree into a Document.
func FromHTML(root *html.Node) (*Document, error) {
	doc := &Document{Root: convert(root, nil)}
	doc.Root.Walk(func(n *Node) bool {
		if doc.Body != nil {
			return false
		}
		if n.Kind == KindElement && n.Tag == "body" {
			doc.Body = n
			return false
		}
		return true
	})
	if doc.Body == nil {
		return nil, ErrNoBody
	}
	return doc, nil
}

func convert(h *html.Node, parent *Node) *Node {
	n := &Node{Parent: parent}
	switch h.Type {
	case html.DocumentNode:
		n.Kind = KindDocument
	case html.ElementNode:
		n.Kind = KindElement
		n.Tag = strings.ToLower(h.Data)
		n.Attr = append([]html.Attribute(nil), h.Attr...)
	case html.TextNode:
		n.Kind = KindText
		n.Data = h.Data
	default:
		n.Kind = KindOther
		n.Data = h.Data
		n.rawType = h.Type
	}
	for c := h.FirstChild; c != nil; c = c.NextSibling {
		n.Children = append(n.Children, convert(c, n))
	}
	return n
}

// Render writes the document, overlays included, as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, toHTML(d.Root))
}

// BodyHTML renders the children of <body>.
func (d *Document) BodyHTML() (string, error) {
	var buf bytes.Buffer
	for _, c := range d.Body.Children {
		if err := html.Render(&buf, toHTML(c)); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func toHTML(n *Node) *html.Node {
	h := &html.Node{}
	switch n.Kind {
	case KindDocument:
		h.Type = html.DocumentNode
	case KindElement:
		h.Type = html.ElementNode
		h.Data = n.Tag
		h.DataAtom = atom.Lookup([]byte(n.Tag))
		h.Attr = append([]html.Attribute(nil), n.Attr...)
	case KindText:
		h.Type = html.TextNode
		h.Data = n.Data
	default:
		h.Type = n.rawType
		if h.Type == html.ErrorNode {
			h.Type = html.CommentNode
		}
		h.Data = n.Data
	}
	for _, c := range n.Children {
		h.AppendChild(toHTML(c))
	}
	return h
}

// New returns an empty document with the given title.
func New(title string) *Document {
	root := &Node{Kind: KindDocument}
	htmlEl := NewElement("html")
	head := NewElement("head")
	body := NewElement("body")
	root.AppendChild(htmlEl)
	htmlEl.AppendChild(head)
	htmlEl.AppendChild(body)
	if title != "" {
		t := NewElement("title")
		t.AppendChild(NewText(title))
		head.AppendChild(t)
	}
	return &Document{Root: root, Body: body}
}

// Title returns the text of the first <title> element.
func (d *Document) Title() string {
	var title string
	d.Root.Walk(func(n *Node) bool {
		if title != "" {
			return false
		}
		if n.Kind == KindElement && n.Tag == "title" {
			title = strings.TrimSpace(n.TextContent())
			return false
		}
		return true
	})
	return title
}
