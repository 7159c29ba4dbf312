package parser

import (
	"io"
	"strings"

	"github.com/dgallion1/folio/internal/doctree"
)

// HTMLParser handles HTML and XHTML chapters. The markup is kept as-is:
// structural paths are computed against exactly what the host renders.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	doc, err := doctree.Parse(r)
	if err != nil {
		return nil, err
	}
	if doc.Title() == "" {
		title := strings.TrimSuffix(strings.TrimSuffix(strings.TrimSuffix(filename, ".html"), ".htm"), ".xhtml")
		setTitle(doc, title)
	}
	return doc, nil
}

func setTitle(doc *doctree.Document, title string) {
	var head *doctree.Node
	doc.Root.Walk(func(n *doctree.Node) bool {
		if head != nil {
			return false
		}
		if n.Kind == doctree.KindElement && n.Tag == "head" {
			head = n
			return false
		}
		return true
	})
	if head == nil {
		return
	}
	t := doctree.NewElement("title")
	t.AppendChild(doctree.NewText(title))
	head.AppendChild(t)
}
