package sessions

import (
	"slices"
	"sync"
	"time"
)

type sample struct {
	timestamp  time.Time
	durationUs int64
}

// StatsSnapshot is a point-in-time aggregate of dispatch latency samples.
type StatsSnapshot struct {
	Count int     `json:"count"`
	MinUs int64   `json:"min_us"`
	MaxUs int64   `json:"max_us"`
	AvgUs float64 `json:"avg_us"`
	P50Us float64 `json:"p50_us"`
	P95Us float64 `json:"p95_us"`
	P99Us float64 `json:"p99_us"`
}

// DispatchStats tracks how long event batches take to run inside a session,
// within a rolling window.
type DispatchStats struct {
	mu      sync.Mutex
	samples []sample
	maxAge  time.Duration
	now     func() time.Time
}

func NewDispatchStats(maxAge time.Duration) *DispatchStats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &DispatchStats{
		samples: make([]sample, 0, 256),
		maxAge:  maxAge,
		now:     time.Now,
	}
}

func (s *DispatchStats) Record(d time.Duration) {
	us := d.Microseconds()
	if us < 0 {
		us = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.pruneLocked(now)
	s.samples = append(s.samples, sample{timestamp: now, durationUs: us})
}

func (s *DispatchStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(s.now())
	if len(s.samples) == 0 {
		return StatsSnapshot{}
	}

	values := make([]int64, 0, len(s.samples))
	var sum int64
	for _, sm := range s.samples {
		values = append(values, sm.durationUs)
		sum += sm.durationUs
	}
	slices.Sort(values)

	return StatsSnapshot{
		Count: len(values),
		MinUs: values[0],
		MaxUs: values[len(values)-1],
		AvgUs: float64(sum) / float64(len(values)),
		P50Us: percentile(values, 50),
		P95Us: percentile(values, 95),
		P99Us: percentile(values, 99),
	}
}

func (s *DispatchStats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.maxAge)
	s.samples = slices.DeleteFunc(s.samples, func(sm sample) bool {
		return sm.timestamp.Before(cutoff)
	})
}

// percentile interpolates linearly between the two nearest ranks.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}
	index := float64(len(sorted)-1) * pct / 100
	lower := int(index)
	if lower+1 >= len(sorted) {
		return float64(sorted[lower])
	}
	lo, hi := float64(sorted[lower]), float64(sorted[lower+1])
	return lo + (hi-lo)*(index-float64(lower))
}
