package highlight

import (
	"encoding/json"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/dgallion1/folio/internal/address"
	"github.com/dgallion1/folio/internal/bridge"
	"github.com/dgallion1/folio/internal/config"
	"github.com/dgallion1/folio/internal/doctree"
	"github.com/dgallion1/folio/internal/layout"
	"github.com/dgallion1/folio/internal/session"
)

const chapter = `<body><p id="p1">The quick brown fox jumps over the lazy dog.</p>` +
	`<p>Second <em>paragraph</em> with emphasis.</p></body>`

type fixture struct {
	doc  *doctree.Document
	rec  *bridge.Recorder
	ctx  *session.Context
	rend *Renderer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	doc, err := doctree.ParseString(chapter)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec := &bridge.Recorder{}
	ctx := session.New(layout.Continuous, config.DefaultTuning(), rec, nil)
	flow := layout.NewFlow(doc, layout.Options{Mode: layout.Continuous, Width: 200, Height: 400, CharWidth: 10, LineHeight: 20})
	return &fixture{doc: doc, rec: rec, ctx: ctx, rend: NewRenderer(ctx, address.NewCodec(doc), flow)}
}

func rng(startPath string, startOff int, endPath string, endOff int) address.Range {
	return address.Range{
		StartPath:   address.MustParsePath(startPath),
		StartOffset: startOff,
		EndPath:     address.MustParsePath(endPath),
		EndOffset:   endOff,
	}
}

// markerShape captures what a reader sees: id and covered text per marker.
func markerShape(r *Renderer) []string {
	var out []string
	for _, m := range r.Markers() {
		id, _ := m.GetAttr("data-id")
		out = append(out, id+":"+m.TextContent())
	}
	return out
}

func TestApply_SingleTextNode(t *testing.T) {
	f := newFixture(t)
	n, err := f.rend.Apply(Highlight{ID: "h1", Range: rng(`//*[@id="p1"]/0`, 4, `//*[@id="p1"]/0`, 9)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 marker, got %d", n)
	}
	if got := markerShape(f.rend); !slices.Equal(got, []string{"h1:quick"}) {
		t.Errorf("expected [h1:quick], got %v", got)
	}
	m := f.rend.Markers()[0]
	if !m.HasClass(MarkerClass) || !m.IsOverlay() {
		t.Error("expected a tagged overlay marker")
	}
}

func TestApply_AcrossElements(t *testing.T) {
	f := newFixture(t)
	// "paragraph with" spans the <em> and the following text.
	n, err := f.rend.Apply(Highlight{ID: "h2", Range: rng("BODY/1/1/0", 0, "BODY/1/2", 5)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 markers, got %d", n)
	}
	want := []string{"h2:paragraph", "h2: with"}
	if got := markerShape(f.rend); !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestApply_ZeroLengthProducesNothing(t *testing.T) {
	f := newFixture(t)
	n, err := f.rend.Apply(Highlight{ID: "h3", Range: rng(`//*[@id="p1"]/0`, 999, `//*[@id="p1"]/0`, 1200)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 || len(f.rend.Markers()) != 0 {
		t.Errorf("expected no markers for a range clamped to nothing, got %d", n)
	}
}

func TestApply_UnresolvableRange(t *testing.T) {
	f := newFixture(t)
	_, err := f.rend.Apply(Highlight{ID: "gone", Range: rng(`//*[@id="missing"]/0`, 0, `//*[@id="p1"]/0`, 3)})
	if !errors.Is(err, address.ErrAnchorNotFound) {
		t.Fatalf("expected ErrAnchorNotFound, got %v", err)
	}
}

func TestApplyAll_SkipsFailuresAndKeepsPathsStable(t *testing.T) {
	f := newFixture(t)
	list := []Highlight{
		{ID: "a", Range: rng(`//*[@id="p1"]/0`, 4, `//*[@id="p1"]/0`, 15)},
		{ID: "bad", Range: rng("BODY/9/0", 0, "BODY/9/0", 1)},
		// Resolved after "a" split the text node; offsets still count the
		// whole run, so "brown fox" nests inside "a" and spills past it.
		{ID: "b", Range: rng(`//*[@id="p1"]/0`, 10, `//*[@id="p1"]/0`, 19)},
	}
	if got := f.rend.ApplyAll(list); got != 3 {
		t.Fatalf("expected 3 markers, got %d", got)
	}
	want := []string{"a:quick brown", "b:brown", "b: fox"}
	got := markerShape(f.rend)
	slices.Sort(want)
	slices.Sort(got)
	if !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestRender_Idempotent(t *testing.T) {
	f := newFixture(t)
	before, _ := f.doc.BodyHTML()
	list := []Highlight{
		{ID: "a", Range: rng(`//*[@id="p1"]/0`, 4, `//*[@id="p1"]/0`, 15)},
		{ID: "b", Range: rng("BODY/1/0", 2, "BODY/1/1/0", 4)},
	}
	first := f.rend.Render(list)
	shape := markerShape(f.rend)

	second := f.rend.Render(list)
	if first != second {
		t.Errorf("expected the same marker count, got %d then %d", first, second)
	}
	if got := markerShape(f.rend); !slices.Equal(got, shape) {
		t.Errorf("expected identical markers, got %v then %v", shape, got)
	}

	f.rend.Reset()
	after, _ := f.doc.BodyHTML()
	if before != after {
		t.Errorf("expected reset to restore the tree\nbefore: %s\nafter:  %s", before, after)
	}
}

func TestActivate_ReportsAndOpensGraceWindow(t *testing.T) {
	f := newFixture(t)
	if _, err := f.rend.Apply(Highlight{ID: "h1", Range: rng(`//*[@id="p1"]/0`, 4, `//*[@id="p1"]/0`, 9)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	marker := f.rend.MarkerFor(f.rend.Markers()[0].Children[0])
	if marker == nil {
		t.Fatal("expected MarkerFor to find the enclosing marker")
	}
	f.rend.Activate(marker)

	clicks := f.rec.Named(bridge.EventHighlightClicked)
	if len(clicks) != 1 {
		t.Fatalf("expected 1 click report, got %d", len(clicks))
	}
	args := clicks[0].Args
	if args[0] != "h1" || args[1] != 40.0 || args[3] != 50.0 {
		t.Errorf("unexpected payload %v", args)
	}
	if !f.ctx.SuppressSelectionClear {
		t.Fatal("expected selection-clear suppression")
	}
	f.ctx.Sched.Advance(499 * time.Millisecond)
	if !f.ctx.SuppressSelectionClear {
		t.Error("expected suppression to last the grace window")
	}
	f.ctx.Sched.Advance(time.Millisecond)
	if f.ctx.SuppressSelectionClear {
		t.Error("expected suppression to end after the grace window")
	}
}

func TestHighlightJSON(t *testing.T) {
	obj := `{"startPath":"BODY/0/0","startOffset":1,"endPath":"BODY/0/0","endOffset":4}`
	wrapped, _ := json.Marshal(obj)
	data := []byte(`[
		{"id":"a","range":` + obj + `},
		{"id":"b","cfi":` + string(wrapped) + `},
		{"id":7,"range":` + obj + `},
		{"id":"broken","range":"{nope"},
		{"range":` + obj + `}
	]`)
	list, err := ParseList(data)
	if err == nil {
		t.Fatal("expected joined errors for the broken records")
	}
	if !errors.Is(err, address.ErrMalformed) {
		t.Errorf("expected ErrMalformed in %v", err)
	}
	ids := []string{}
	for _, h := range list {
		ids = append(ids, h.ID)
		if h.Range.EndOffset != 4 {
			t.Errorf("%s: expected end offset 4, got %d", h.ID, h.Range.EndOffset)
		}
	}
	if !slices.Equal(ids, []string{"a", "b", "7"}) {
		t.Errorf("expected [a b 7], got %v", ids)
	}
}
