package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dgallion1/folio/internal/doctree"
	"golang.org/x/text/unicode/norm"
)

// Parser converts raw chapter bytes into a rendered document tree.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.Document, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".xhtml":    true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename. pdfFallback enables
// the pdftotext fallback for PDFs the Go library cannot read.
func ForFile(filename string, pdfFallback bool) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm", ".xhtml":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: pdfFallback}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// chapter builds a document out of headings and paragraphs for sources that
// carry no markup of their own. Text is NFC-normalized so that offsets
// recorded against one import stay valid for the next.
type chapter struct {
	doc   *doctree.Document
	slugs map[string]int
	into  *doctree.Node
}

func newChapter(title string) *chapter {
	doc := doctree.New(title)
	return &chapter{doc: doc, slugs: make(map[string]int), into: doc.Body}
}

// section opens a <section id=…> and directs further content into it.
func (c *chapter) section(id string) {
	s := doctree.NewElement("section", "id", id)
	c.doc.Body.AppendChild(s)
	c.into = s
}

func (c *chapter) heading(level int, text string) {
	text = norm.NFC.String(text)
	h := doctree.NewElement(fmt.Sprintf("h%d", min(max(level, 1), 6)), "id", c.slug(text))
	h.AppendChild(doctree.NewText(text))
	c.into.AppendChild(h)
}

func (c *chapter) paragraph(text string) {
	p := doctree.NewElement("p")
	p.AppendChild(doctree.NewText(norm.NFC.String(text)))
	c.into.AppendChild(p)
}

func (c *chapter) append(n *doctree.Node) {
	c.into.AppendChild(n)
}

var (
	slugStrip    = regexp.MustCompile(`[^a-z0-9-]`)
	slugCollapse = regexp.MustCompile(`-+`)
)

// slug derives a unique heading id. Ids anchor structural paths, so
// headings double as stable restore points.
func (c *chapter) slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugStrip.ReplaceAllString(s, "-")
	s = slugCollapse.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 50 {
		s = s[:50]
	}
	if s == "" {
		s = "section"
	}
	c.slugs[s]++
	if n := c.slugs[s]; n > 1 {
		return fmt.Sprintf("%s-%d", s, n)
	}
	return s
}
