package layout

import (
	"math"
	"unicode"
	"unicode/utf16"

	"github.com/dgallion1/folio/internal/doctree"
)

// ColumnBreakClass marks an element that starts a new column and occupies
// one empty line of it.
const ColumnBreakClass = "column-break"

var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"body": true, "dd": true, "div": true, "dl": true, "dt": true,
	"figcaption": true, "figure": true, "footer": true, "h1": true,
	"h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "main": true, "nav": true,
	"ol": true, "p": true, "pre": true, "section": true, "table": true,
	"tbody": true, "td": true, "tfoot": true, "th": true, "thead": true,
	"tr": true, "ul": true,
}

var hiddenTags = map[string]bool{
	"script": true, "style": true, "template": true, "noscript": true,
}

// Options configures a Flow.
type Options struct {
	Mode       Mode
	Columns    int // text columns per viewport width in paginated mode
	Width      float64
	Height     float64
	CharWidth  float64
	LineHeight float64
	Margin     float64 // padding inside every column
	Slack      float64 // extra content width, as left by rendering round-off
}

type pos struct {
	line, col int
}

type cell struct {
	node   *doctree.Node
	offset int // UTF-16 offset of the glyph in node
	units  int // UTF-16 length of the glyph
	pos
}

// Flow lays a document out on a fixed-pitch grid. Block elements break
// lines, text wraps per character, and whitespace collapses. In paginated
// mode lines fill Columns columns per viewport width, left to right.
type Flow struct {
	doc *doctree.Document
	opt Options

	scrollLeft float64
	scrollTop  float64

	dirty     bool
	lines     int
	perColumn int
	perLine   int
	cells     []cell
	lineCells map[int][]int
	lineBlock map[int]*doctree.Node
	carets    map[*doctree.Node][]pos
	spans     map[*doctree.Node][2]int // node -> [first, end) cell index
	starts    map[*doctree.Node]pos
}

// NewFlow lays doc out with opt.
func NewFlow(doc *doctree.Document, opt Options) *Flow {
	if opt.Columns < 1 {
		opt.Columns = 1
	}
	if opt.CharWidth <= 0 {
		opt.CharWidth = 10
	}
	if opt.LineHeight <= 0 {
		opt.LineHeight = 20
	}
	return &Flow{doc: doc, opt: opt, dirty: true}
}

// Options returns the current options.
func (f *Flow) Options() Options { return f.opt }

func (f *Flow) Viewport() (float64, float64) { return f.opt.Width, f.opt.Height }

func (f *Flow) Resize(width, height float64) {
	f.opt.Width, f.opt.Height = width, height
	f.dirty = true
}

func (f *Flow) Relayout() { f.dirty = true }

func (f *Flow) ScrollLeft() float64 { return f.scrollLeft }
func (f *Flow) ScrollTop() float64  { return f.scrollTop }

func (f *Flow) SetScrollLeft(x float64) {
	f.scrollLeft = clamp(x, 0, f.ScrollWidth()-f.opt.Width)
}

func (f *Flow) SetScrollTop(y float64) {
	f.scrollTop = clamp(y, 0, f.ScrollHeight()-f.opt.Height)
}

func (f *Flow) ScrollWidth() float64 {
	f.ensure()
	if f.opt.Mode == Continuous {
		return f.opt.Width
	}
	used := max(1, (f.lines+f.perColumn-1)/f.perColumn)
	return float64(used)*f.colWidth() + f.opt.Slack
}

func (f *Flow) ScrollHeight() float64 {
	f.ensure()
	if f.opt.Mode == Paginated {
		return f.opt.Height
	}
	return max(f.opt.Height, 2*f.opt.Margin+float64(f.lines)*f.opt.LineHeight)
}

func (f *Flow) Rect(n *doctree.Node) (Rect, bool) {
	f.ensure()
	if n == nil {
		return Rect{}, false
	}
	first, end := 0, 0
	switch n.Kind {
	case doctree.KindText:
		c, ok := f.carets[n]
		if !ok {
			return Rect{}, false
		}
		s := f.spans[n]
		first, end = s[0], s[1]
		if first == end {
			return f.caretRect(c[0]), true
		}
	case doctree.KindElement:
		s, ok := f.spans[n]
		if !ok {
			return Rect{}, false
		}
		first, end = s[0], s[1]
		if first == end {
			return f.caretRect(f.starts[n]), true
		}
	default:
		return Rect{}, false
	}
	r := f.cellRect(f.cells[first].pos)
	for i := first + 1; i < end; i++ {
		r = r.Union(f.cellRect(f.cells[i].pos))
	}
	return r, true
}

func (f *Flow) CaretRect(b doctree.Boundary) (Rect, bool) {
	f.ensure()
	if b.Node == nil {
		return Rect{}, false
	}
	if b.Node.Kind == doctree.KindText {
		c, ok := f.carets[b.Node]
		if !ok {
			return Rect{}, false
		}
		return f.caretRect(c[min(max(b.Offset, 0), len(c)-1)]), true
	}
	p, ok := f.starts[b.Node]
	if !ok {
		return Rect{}, false
	}
	return f.caretRect(p), true
}

func (f *Flow) CaretAt(x, y float64) (doctree.Boundary, bool) {
	f.ensure()
	line, col, ok := f.hit(x, y)
	if !ok {
		return doctree.Boundary{}, false
	}
	idx := f.lineCells[line]
	if len(idx) == 0 {
		return doctree.Boundary{}, false
	}
	whole := int(math.Floor(col))
	for _, i := range idx {
		c := f.cells[i]
		if c.col < whole {
			continue
		}
		if c.col > whole || col-float64(whole) < 0.5 {
			return doctree.Boundary{Node: c.node, Offset: c.offset}, true
		}
		return doctree.Boundary{Node: c.node, Offset: c.offset + c.units}, true
	}
	last := f.cells[idx[len(idx)-1]]
	return doctree.Boundary{Node: last.node, Offset: last.offset + last.units}, true
}

func (f *Flow) ElementAt(x, y float64) *doctree.Node {
	f.ensure()
	if x < 0 || y < 0 || x >= f.opt.Width || y >= f.opt.Height {
		return nil
	}
	line, col, ok := f.hit(x, y)
	if !ok {
		return f.doc.Body
	}
	whole := int(math.Floor(col))
	for _, i := range f.lineCells[line] {
		if c := f.cells[i]; c.col == whole {
			return c.node.Parent
		}
	}
	if b := f.lineBlock[line]; b != nil {
		return b
	}
	return f.doc.Body
}

func (f *Flow) ScrollIntoView(n *doctree.Node) {
	r, ok := f.Rect(n)
	if !ok {
		return
	}
	if f.opt.Mode == Continuous {
		f.SetScrollTop(r.Top + f.scrollTop)
		return
	}
	if f.opt.Width <= 0 {
		return
	}
	left := r.Left + f.scrollLeft
	f.SetScrollLeft(math.Floor(left/f.opt.Width) * f.opt.Width)
}

func (f *Flow) colWidth() float64 {
	if f.opt.Mode == Continuous {
		return f.opt.Width
	}
	return f.opt.Width / float64(f.opt.Columns)
}

// origin returns the document coordinates of the start of a line.
func (f *Flow) origin(line int) (float64, float64) {
	if f.opt.Mode == Continuous {
		return f.opt.Margin, f.opt.Margin + float64(line)*f.opt.LineHeight
	}
	c, r := line/f.perColumn, line%f.perColumn
	return float64(c)*f.colWidth() + f.opt.Margin, f.opt.Margin + float64(r)*f.opt.LineHeight
}

func (f *Flow) cellRect(p pos) Rect {
	r := f.caretRect(p)
	r.Width = f.opt.CharWidth
	return r
}

func (f *Flow) caretRect(p pos) Rect {
	x, y := f.origin(p.line)
	return Rect{
		Left:   x + float64(p.col)*f.opt.CharWidth - f.scrollLeft,
		Top:    y - f.scrollTop,
		Height: f.opt.LineHeight,
	}
}

// hit maps a viewport point to a line and a fractional column.
func (f *Flow) hit(x, y float64) (int, float64, bool) {
	dx, dy := x+f.scrollLeft, y+f.scrollTop
	row := int(math.Floor((dy - f.opt.Margin) / f.opt.LineHeight))
	if row < 0 {
		return 0, 0, false
	}
	line := row
	left := f.opt.Margin
	if f.opt.Mode == Paginated {
		cw := f.colWidth()
		if cw <= 0 || row >= f.perColumn {
			return 0, 0, false
		}
		c := int(math.Floor(dx / cw))
		line = c*f.perColumn + row
		left += float64(c) * cw
	}
	if line >= f.lines {
		return 0, 0, false
	}
	return line, (dx - left) / f.opt.CharWidth, true
}

func (f *Flow) ensure() {
	if f.dirty {
		f.layout()
		f.dirty = false
	}
}

func (f *Flow) layout() {
	f.cells = nil
	f.lineCells = make(map[int][]int)
	f.lineBlock = make(map[int]*doctree.Node)
	f.carets = make(map[*doctree.Node][]pos)
	f.spans = make(map[*doctree.Node][2]int)
	f.starts = make(map[*doctree.Node]pos)

	inner := f.colWidth() - 2*f.opt.Margin
	f.perLine = max(1, int(inner/f.opt.CharWidth))
	f.perColumn = max(1, int((f.opt.Height-2*f.opt.Margin)/f.opt.LineHeight))

	st := &flowState{f: f, atStart: true}
	st.visit(f.doc.Body)
	f.lines = st.line
	if st.col > 0 {
		f.lines++
	}
}

type flowState struct {
	f       *Flow
	line    int
	col     int
	atStart bool // collapsing whitespace: nothing visible on the line yet or after a space
	blocks  []*doctree.Node
}

func (st *flowState) newline() {
	if st.col > 0 {
		st.line++
		st.col = 0
	}
	st.atStart = true
}

func (st *flowState) visit(n *doctree.Node) {
	f := st.f
	switch n.Kind {
	case doctree.KindText:
		st.text(n)
	case doctree.KindElement:
		if hiddenTags[n.Tag] {
			return
		}
		first := len(f.cells)
		if n.HasClass(ColumnBreakClass) && f.opt.Mode == Paginated {
			st.newline()
			if st.line%f.perColumn != 0 {
				st.line = (st.line/f.perColumn + 1) * f.perColumn
			}
			f.starts[n] = pos{line: st.line}
			f.lineBlock[st.line] = n
			f.spans[n] = [2]int{first, first}
			st.line++
			return
		}
		if n.Tag == "br" {
			f.starts[n] = pos{line: st.line, col: st.col}
			f.spans[n] = [2]int{first, first}
			st.line++
			st.col = 0
			st.atStart = true
			return
		}
		block := blockTags[n.Tag]
		if block {
			st.newline()
			st.blocks = append(st.blocks, n)
		}
		f.starts[n] = pos{line: st.line, col: st.col}
		for _, c := range n.Children {
			st.visit(c)
		}
		if block {
			st.newline()
			st.blocks = st.blocks[:len(st.blocks)-1]
		}
		f.spans[n] = [2]int{first, len(f.cells)}
	}
}

func (st *flowState) text(n *doctree.Node) {
	f := st.f
	carets := make([]pos, n.TextLen()+1)
	first := len(f.cells)
	u := 0
	for _, r := range n.Data {
		w := utf16.RuneLen(r)
		if w < 1 {
			w = 1
		}
		space := unicode.IsSpace(r)
		if st.col >= f.perLine {
			st.line++
			st.col = 0
			st.atStart = true
		}
		if space && st.atStart {
			for k := 0; k < w; k++ {
				carets[u+k] = pos{line: st.line, col: st.col}
			}
			u += w
			continue
		}
		p := pos{line: st.line, col: st.col}
		for k := 0; k < w; k++ {
			carets[u+k] = p
		}
		f.lineCells[st.line] = append(f.lineCells[st.line], len(f.cells))
		if _, ok := f.lineBlock[st.line]; !ok && len(st.blocks) > 0 {
			f.lineBlock[st.line] = st.blocks[len(st.blocks)-1]
		}
		f.cells = append(f.cells, cell{node: n, offset: u, units: w, pos: p})
		st.col++
		st.atStart = space
		u += w
	}
	carets[len(carets)-1] = pos{line: st.line, col: st.col}
	f.carets[n] = carets
	f.spans[n] = [2]int{first, len(f.cells)}
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	return min(max(v, lo), hi)
}
