package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/folio/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmparser "github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"golang.org/x/text/unicode/norm"
)

// MarkdownParser handles Markdown chapters using goldmark. Headings get
// generated ids so they can anchor structural paths.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	src = norm.NFC.Bytes(src)

	md := goldmark.New(goldmark.WithParserOptions(gmparser.WithAutoHeadingID()))
	root := md.Parser().Parse(text.NewReader(src))

	title := strings.TrimSuffix(strings.TrimSuffix(filename, ".md"), ".markdown")
	if h := firstHeading(root, src); h != "" {
		title = h
	}

	var body bytes.Buffer
	if err := md.Renderer().Render(&body, src, root); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html><html><head></head><body>")
	page.Write(body.Bytes())
	page.WriteString("</body></html>")

	doc, err := doctree.Parse(&page)
	if err != nil {
		return nil, err
	}
	setTitle(doc, title)
	return doc, nil
}

// firstHeading returns the text of the first top-level heading.
func firstHeading(doc ast.Node, src []byte) string {
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok {
			return strings.TrimSpace(string(h.Text(src)))
		}
	}
	return ""
}
