package gesture

import (
	"slices"
	"testing"
	"time"

	"github.com/dgallion1/folio/internal/address"
	"github.com/dgallion1/folio/internal/bridge"
	"github.com/dgallion1/folio/internal/config"
	"github.com/dgallion1/folio/internal/doctree"
	"github.com/dgallion1/folio/internal/event"
	"github.com/dgallion1/folio/internal/highlight"
	"github.com/dgallion1/folio/internal/layout"
	"github.com/dgallion1/folio/internal/session"
)

const chapter = `<body><p id="p1">Hello world</p><p><a href="#n">link</a></p><p>plain text here</p></body>`

type fakePager struct {
	page  int
	snaps []int
}

func (p *fakePager) SnapToPage(i int) error { p.snaps = append(p.snaps, i); return nil }
func (p *fakePager) CurrentPage() int       { return p.page }

type fixture struct {
	doc   *doctree.Document
	flow  *layout.Flow
	ctx   *session.Context
	rec   *bridge.Recorder
	pager *fakePager
	marks *highlight.Renderer
	m     *Machine
}

func newFixture(t *testing.T, mode layout.Mode) *fixture {
	t.Helper()
	doc, err := doctree.ParseString(chapter)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	flow := layout.NewFlow(doc, layout.Options{
		Mode: mode, Width: 400, Height: 600, CharWidth: 10, LineHeight: 20, Slack: 800,
	})
	rec := &bridge.Recorder{}
	ctx := session.New(mode, config.DefaultTuning(), rec, nil)
	ctx.Restoring, ctx.Loading = false, false
	pager := &fakePager{page: 1}
	marks := highlight.NewRenderer(ctx, address.NewCodec(doc), flow)
	return &fixture{
		doc: doc, flow: flow, ctx: ctx, rec: rec, pager: pager, marks: marks,
		m: New(ctx, flow, pager, marks),
	}
}

func (f *fixture) run(evs ...event.Event) []Outcome {
	var out []Outcome
	for _, e := range evs {
		f.ctx.Sched.AdvanceTo(e.At)
		out = append(out, f.m.Handle(e))
	}
	return out
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func down(at int, x, y float64) event.Event {
	return event.Event{Kind: event.PointerDown, At: ms(at), X: x, Y: y}
}

func move(at int, x, y float64) event.Event {
	return event.Event{Kind: event.PointerMove, At: ms(at), X: x, Y: y}
}

func up(at int, x, y float64) event.Event {
	return event.Event{Kind: event.PointerUp, At: ms(at), X: x, Y: y}
}

func click(at int, x, y float64) event.Event {
	return event.Event{Kind: event.Click, At: ms(at), X: x, Y: y}
}

func tapAt(at int, x, y float64) []event.Event {
	return []event.Event{down(at, x, y), up(at+50, x, y)}
}

func last(out []Outcome) Outcome { return out[len(out)-1] }

func TestTapZones(t *testing.T) {
	cases := []struct {
		x     float64
		want  Class
		snaps []int
		taps  int
	}{
		{50, PrevPage, []int{0}, 0},
		{360, NextPage, []int{2}, 0},
		{200, Tap, nil, 1},
	}
	for _, tc := range cases {
		f := newFixture(t, layout.Paginated)
		out := f.run(tapAt(0, tc.x, 300)...)
		if got := last(out).Class; got != tc.want {
			t.Errorf("x=%v: expected %s, got %s", tc.x, tc.want, got)
		}
		if !slices.Equal(f.pager.snaps, tc.snaps) {
			t.Errorf("x=%v: expected snaps %v, got %v", tc.x, tc.snaps, f.pager.snaps)
		}
		if got := f.rec.Count(bridge.EventTap); got != tc.taps {
			t.Errorf("x=%v: expected %d onTap, got %d", tc.x, tc.taps, got)
		}
	}
}

func TestLongPressPrecedence(t *testing.T) {
	f := newFixture(t, layout.Paginated)
	f.run(down(0, 200, 300))
	f.ctx.Sched.AdvanceTo(ms(260))
	if f.m.Phase() != LongPressActive {
		t.Fatalf("expected long-press-active, got %s", f.m.Phase())
	}

	out := f.run(move(270, 320, 300), move(280, 20, 300), up(300, 20, 300))
	for i, o := range out {
		if o.Class != LongPress {
			t.Errorf("event %d: expected long-press, got %s", i, o)
		}
	}
	if len(f.pager.snaps) != 0 {
		t.Errorf("expected no page snaps, got %v", f.pager.snaps)
	}
	if f.flow.ScrollLeft() != 0 {
		t.Errorf("expected no scrolling, got %v", f.flow.ScrollLeft())
	}
	if n := len(f.rec.Reports()); n != 0 {
		t.Errorf("expected no reports, got %d", n)
	}
	if f.m.Phase() != Idle {
		t.Errorf("expected idle after release, got %s", f.m.Phase())
	}
}

func TestDragPage(t *testing.T) {
	cases := []struct {
		name   string
		start  float64
		toX    float64
		scroll float64
		snap   int
	}{
		{"forward", 0, 200, 100, 1},
		{"short snaps back", 0, 270, 30, 0},
		{"backward", 400, 400, 300, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, layout.Paginated)
			f.flow.SetScrollLeft(tc.start)
			startX := 300.0
			out := f.run(down(0, startX, 300), move(50, tc.toX, 300))
			if o := last(out); o.Class != DragFollow || !o.PreventDefault {
				t.Fatalf("expected drag-follow, got %s", o)
			}
			if got := f.flow.ScrollLeft(); got != tc.scroll {
				t.Errorf("expected scrollLeft %v, got %v", tc.scroll, got)
			}
			out = f.run(up(120, tc.toX, 300))
			if got := last(out).Class; got != DragPage {
				t.Errorf("expected drag-page, got %s", got)
			}
			if !slices.Equal(f.pager.snaps, []int{tc.snap}) {
				t.Errorf("expected snap to %d, got %v", tc.snap, f.pager.snaps)
			}
		})
	}
}

func TestVerticalScroll(t *testing.T) {
	f := newFixture(t, layout.Paginated)
	out := f.run(down(0, 200, 300), move(40, 205, 200))
	if got := last(out).Class; got != VerticalScroll {
		t.Fatalf("expected vertical-scroll, got %s", got)
	}
	f.ctx.Sched.AdvanceTo(ms(260))
	if f.m.Phase() != ScrollingVertically {
		t.Errorf("expected the long-press timer to be canceled, got %s", f.m.Phase())
	}
	out = f.run(move(270, 100, 100), up(280, 100, 100))
	for _, o := range out {
		if o.Class != VerticalScroll {
			t.Errorf("expected vertical-scroll, got %s", o)
		}
	}
	if len(f.pager.snaps) != 0 || f.flow.ScrollLeft() != 0 {
		t.Error("expected no horizontal effects")
	}
}

func TestMovementInsideToleranceIsNoise(t *testing.T) {
	f := newFixture(t, layout.Paginated)
	out := f.run(down(0, 200, 300), move(30, 210, 305), up(100, 210, 305))
	if out[1].Class != None {
		t.Errorf("expected noise, got %s", out[1])
	}
	if out[2].Class != Tap {
		t.Errorf("expected tap, got %s", out[2])
	}
}

func TestMultiPointerIgnored(t *testing.T) {
	f := newFixture(t, layout.Paginated)
	f.run(down(0, 200, 300))
	two := down(10, 100, 300)
	two.Pointers = 2
	out := f.run(two, move(20, 50, 300), up(30, 50, 300))
	for i, o := range out {
		if o.Class != Ignored {
			t.Errorf("event %d: expected ignored, got %s", i, o)
		}
	}
	if f.m.Phase() != Idle {
		t.Errorf("expected idle, got %s", f.m.Phase())
	}
	f.ctx.Sched.AdvanceTo(ms(500))
	if f.m.Phase() != Idle {
		t.Error("expected the superseded long-press timer not to fire")
	}
}

func TestClickSuppressedAfterTap(t *testing.T) {
	f := newFixture(t, layout.Paginated)
	f.run(tapAt(0, 200, 300)...)
	out := f.run(click(100, 200, 300), click(700, 200, 300))
	if out[0].Class != Suppressed {
		t.Errorf("expected suppressed click, got %s", out[0])
	}
	if out[1].Class != Tap {
		t.Errorf("expected a late click to tap, got %s", out[1])
	}
	if got := f.rec.Count(bridge.EventTap); got != 2 {
		t.Errorf("expected 2 onTap, got %d", got)
	}
}

func TestClicksAreNotSuppressedByClicks(t *testing.T) {
	f := newFixture(t, layout.Paginated)
	out := f.run(click(0, 360, 300), click(300, 360, 300))
	for i, o := range out {
		if o.Class != NextPage {
			t.Errorf("click %d: expected next-page, got %s", i, o)
		}
	}
	if !slices.Equal(f.pager.snaps, []int{2, 2}) {
		t.Errorf("expected snaps [2 2], got %v", f.pager.snaps)
	}
}

func TestDragBackInsideToleranceRestoresScroll(t *testing.T) {
	f := newFixture(t, layout.Paginated)
	f.flow.SetScrollLeft(400)
	f.run(down(0, 300, 300), move(50, 200, 300))
	if got := f.flow.ScrollLeft(); got != 500 {
		t.Fatalf("expected scrollLeft 500 while dragging, got %v", got)
	}
	out := f.run(up(100, 295, 300))
	if got := last(out).Class; got != Tap {
		t.Errorf("expected tap, got %s", got)
	}
	if got := f.flow.ScrollLeft(); got != 400 {
		t.Errorf("expected scrollLeft 400 after the tap, got %v", got)
	}
	if len(f.pager.snaps) != 0 {
		t.Errorf("expected no page snap, got %v", f.pager.snaps)
	}
}

func TestInteractionLocked(t *testing.T) {
	f := newFixture(t, layout.Paginated)
	f.ctx.InteractionLocked = true

	cases := []struct {
		x, y float64
		want Class
	}{
		{200, 50, Ignored},
		{200, 560, Ignored},
		{200, 300, Tap},
		{50, 300, Tap},
	}
	at := 0
	for _, tc := range cases {
		out := f.run(tapAt(at, tc.x, tc.y)...)
		if got := last(out).Class; got != tc.want {
			t.Errorf("(%v,%v): expected %s, got %s", tc.x, tc.y, tc.want, got)
		}
		at += 1000
	}
	if got := f.rec.Count(bridge.EventTap); got != 2 {
		t.Errorf("expected 2 onTap, got %d", got)
	}

	out := f.run(down(at, 300, 300), move(at+20, 150, 300), up(at+60, 150, 300))
	if !out[1].PreventDefault || f.flow.ScrollLeft() != 0 {
		t.Error("expected a locked drag to be swallowed")
	}
	if out[2].Class != Ignored || len(f.pager.snaps) != 0 {
		t.Errorf("expected no page turn, got %s %v", out[2], f.pager.snaps)
	}
}

func TestSelectionClearTap(t *testing.T) {
	f := newFixture(t, layout.Paginated)
	text := f.doc.ElementByID("p1").Children[0]
	f.ctx.SetSelection(doctree.Span{
		Start: doctree.Boundary{Node: text, Offset: 0},
		End:   doctree.Boundary{Node: text, Offset: 5},
	})

	out := f.run(tapAt(0, 360, 300)...)
	if got := last(out).Class; got != SelectionClear {
		t.Fatalf("expected selection-clear, got %s", got)
	}
	if len(f.pager.snaps) != 0 {
		t.Errorf("expected no page turn, got %v", f.pager.snaps)
	}
	if got := f.run(click(80, 360, 300))[0].Class; got != Suppressed {
		t.Errorf("expected the follow-up click to be suppressed, got %s", got)
	}

	out = f.run(down(1000, 300, 300), move(1020, 100, 300))
	if last(out).Class != Ignored || f.m.Phase() != Idle {
		t.Errorf("expected a drag over a selection to abort, got %s in %s", last(out), f.m.Phase())
	}
}

func TestHighlightTap(t *testing.T) {
	f := newFixture(t, layout.Paginated)
	_, err := f.marks.Apply(highlight.Highlight{ID: "h1", Range: address.Range{
		StartPath: address.MustParsePath(`//*[@id="p1"]/0`), StartOffset: 0,
		EndPath: address.MustParsePath(`//*[@id="p1"]/0`), EndOffset: 5,
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := f.run(tapAt(0, 15, 5)...)
	if got := last(out).Class; got != HighlightActivate {
		t.Fatalf("expected highlight, got %s", got)
	}
	f.run(click(70, 15, 5))
	if got := f.rec.Count(bridge.EventHighlightClicked); got != 1 {
		t.Errorf("expected 1 onHighlightClicked, got %d", got)
	}
	if !f.ctx.SuppressSelectionClear {
		t.Error("expected the selection-clear grace window to be open")
	}
	if len(f.pager.snaps) != 0 {
		t.Errorf("expected no page turn, got %v", f.pager.snaps)
	}
}

func TestLinkPassthrough(t *testing.T) {
	f := newFixture(t, layout.Paginated)
	out := f.run(tapAt(0, 15, 25)...)
	if got := last(out).Class; got != Passthrough {
		t.Errorf("expected passthrough, got %s", got)
	}
	if len(f.rec.Reports()) != 0 || len(f.pager.snaps) != 0 {
		t.Error("expected no effects")
	}
}

func TestInputBlocked(t *testing.T) {
	f := newFixture(t, layout.Paginated)
	f.ctx.InputBlocked = true
	out := f.run(down(0, 50, 300), up(40, 50, 300), click(60, 50, 300))
	for i, o := range out {
		if o.Class != Ignored {
			t.Errorf("event %d: expected ignored, got %s", i, o)
		}
	}
	if len(f.pager.snaps) != 0 {
		t.Errorf("expected no page turns, got %v", f.pager.snaps)
	}
}

func TestArrowKeys(t *testing.T) {
	f := newFixture(t, layout.Paginated)
	out := f.run(
		event.Event{Kind: event.Key, Key: "ArrowRight"},
		event.Event{Kind: event.Key, Key: "ArrowLeft"},
		event.Event{Kind: event.Key, Key: "Enter"},
	)
	want := []Class{NextPage, PrevPage, Ignored}
	for i, o := range out {
		if o.Class != want[i] {
			t.Errorf("key %d: expected %s, got %s", i, want[i], o.Class)
		}
	}
	if !slices.Equal(f.pager.snaps, []int{2, 0}) {
		t.Errorf("expected snaps [2 0], got %v", f.pager.snaps)
	}

	f.ctx.InteractionLocked = true
	if got := f.m.Handle(event.Event{Kind: event.Key, Key: "ArrowRight"}).Class; got != Ignored {
		t.Errorf("expected keys to be ignored while locked, got %s", got)
	}
}

func TestContinuousMode(t *testing.T) {
	f := newFixture(t, layout.Continuous)
	if got := f.run(down(0, 50, 300))[0].Class; got != Ignored {
		t.Errorf("expected pointer input to be left to native scrolling, got %s", got)
	}
	cases := []struct {
		y    float64
		want Class
	}{
		{300, Tap},
		{30, Ignored},
		{590, Ignored},
	}
	for _, tc := range cases {
		if got := f.m.Handle(click(0, 50, tc.y)).Class; got != tc.want {
			t.Errorf("y=%v: expected %s, got %s", tc.y, tc.want, got)
		}
	}
	if got := f.m.Handle(click(0, 15, 25)).Class; got != Passthrough {
		t.Errorf("expected link click to pass through, got %s", got)
	}
	if got := f.rec.Count(bridge.EventTap); got != 1 {
		t.Errorf("expected 1 onTap, got %d", got)
	}
}

func TestDeterminism(t *testing.T) {
	seq := []event.Event{
		down(0, 300, 300), move(20, 290, 300), move(60, 180, 310), up(110, 170, 310),
		down(400, 200, 300), up(450, 202, 301),
		click(500, 200, 300),
		down(1200, 60, 300), up(1300, 60, 300),
		down(2000, 200, 300), move(2300, 100, 300), up(2400, 100, 300),
	}
	runOnce := func() ([]Outcome, []int, int) {
		f := newFixture(t, layout.Paginated)
		return f.run(seq...), f.pager.snaps, len(f.rec.Reports())
	}
	o1, s1, r1 := runOnce()
	o2, s2, r2 := runOnce()
	if !slices.Equal(o1, o2) || !slices.Equal(s1, s2) || r1 != r2 {
		t.Fatalf("expected identical runs, got %v/%v and %v/%v", o1, s1, o2, s2)
	}
	want := []Class{
		None, None, DragFollow, DragPage,
		None, Tap,
		Suppressed,
		None, PrevPage,
		None, LongPress, LongPress,
	}
	for i, o := range o1 {
		if o.Class != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], o.Class)
		}
	}
}
