package event

import (
	"container/heap"
	"time"
)

// Token identifies a scheduled callback. The zero Token is never issued.
type Token uint64

type timer struct {
	when time.Duration
	tok  Token
	fn   func()
}

type timerHeap []timer

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].when != h[j].when {
		return h[i].when < h[j].when
	}
	return h[i].tok < h[j].tok
}
func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *timerHeap) Push(x any)   { *h = append(*h, x.(timer)) }
func (h *timerHeap) Pop() any {
	old := *h
	t := old[len(old)-1]
	*h = old[:len(old)-1]
	return t
}

// Scheduler is a single-threaded virtual clock. Callbacks run only from
// AdvanceTo, in due-time order (ties in scheduling order), and may schedule
// or cancel further callbacks.
type Scheduler struct {
	now  time.Duration
	last Token
	q    timerHeap
	live map[Token]bool
}

func NewScheduler() *Scheduler {
	return &Scheduler{live: make(map[Token]bool)}
}

// Now returns the current virtual time.
func (s *Scheduler) Now() time.Duration { return s.now }

// After schedules fn to run d after the current time.
func (s *Scheduler) After(d time.Duration, fn func()) Token {
	s.last++
	tok := s.last
	heap.Push(&s.q, timer{when: s.now + max(d, 0), tok: tok, fn: fn})
	s.live[tok] = true
	return tok
}

// Cancel stops a pending callback. It reports whether the callback was still
// pending; canceling the zero Token or a fired callback is a no-op.
func (s *Scheduler) Cancel(tok Token) bool {
	if !s.live[tok] {
		return false
	}
	delete(s.live, tok)
	return true
}

// Pending reports whether tok is scheduled and not yet fired.
func (s *Scheduler) Pending(tok Token) bool { return s.live[tok] }

// Len returns the number of pending callbacks.
func (s *Scheduler) Len() int { return len(s.live) }

// AdvanceTo moves the clock to t, firing every callback due at or before t.
// The clock never moves backwards. It returns the number of callbacks run.
func (s *Scheduler) AdvanceTo(t time.Duration) int {
	fired := 0
	for s.q.Len() > 0 && s.q[0].when <= t {
		next := heap.Pop(&s.q).(timer)
		if !s.live[next.tok] {
			continue
		}
		delete(s.live, next.tok)
		s.now = max(s.now, next.when)
		next.fn()
		fired++
	}
	s.now = max(s.now, t)
	return fired
}

// Advance moves the clock forward by d.
func (s *Scheduler) Advance(d time.Duration) int {
	return s.AdvanceTo(s.now + d)
}
