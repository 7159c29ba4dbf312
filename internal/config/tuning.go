package config

import (
	"fmt"
	"time"
)

// Tuning holds the timing and pixel thresholds of the reader engine. The
// values were chosen against real rendering engines; treat them as knobs.
type Tuning struct {
	// Gestures
	LongPress     time.Duration
	MoveTolerance float64 // px; smaller movement is noise
	TapWindow     time.Duration
	PageTurnDrag  float64 // px a drag must exceed to turn the page
	EdgeZone      float64 // fraction of the viewport width on each side
	NavBand       float64 // px; top and bottom bands reserved for the host's bars
	ClickSuppress time.Duration

	// Highlights and selection
	HighlightDelay      time.Duration
	SelectionDebounce   time.Duration
	SelectionClearGrace time.Duration

	// Location sampling
	ReportInterval     time.Duration
	PaginatedSampleX   float64
	PaginatedSampleY   float64
	ContinuousSampleX  float64
	ContinuousSampleY  float64
	FallbackSampleXPct float64 // continuous fallback, fraction of viewport width
	FallbackSampleYPct float64 // continuous fallback, fraction of viewport height
	RevealOffset       float64 // px below the viewport top for continuous reveals

	// Pagination
	NoiseBand      float64 // px of leftover width that does not count as a page
	SpacerGuard    float64 // px; smaller remainders never get a spacer
	SnapSettle     time.Duration
	ResizeDebounce time.Duration

	// Restore
	RestoreDelay time.Duration
}

// DefaultTuning returns the stock thresholds.
func DefaultTuning() Tuning {
	return Tuning{
		LongPress:     250 * time.Millisecond,
		MoveTolerance: 15,
		TapWindow:     300 * time.Millisecond,
		PageTurnDrag:  50,
		EdgeZone:      0.2,
		NavBand:       80,
		ClickSuppress: 500 * time.Millisecond,

		HighlightDelay:      100 * time.Millisecond,
		SelectionDebounce:   150 * time.Millisecond,
		SelectionClearGrace: 500 * time.Millisecond,

		ReportInterval:     200 * time.Millisecond,
		PaginatedSampleX:   60,
		PaginatedSampleY:   80,
		ContinuousSampleX:  60,
		ContinuousSampleY:  60,
		FallbackSampleXPct: 0.5,
		FallbackSampleYPct: 0.3,
		RevealOffset:       60,

		NoiseBand:      10,
		SpacerGuard:    50,
		SnapSettle:     300 * time.Millisecond,
		ResizeDebounce: 200 * time.Millisecond,

		RestoreDelay: 500 * time.Millisecond,
	}
}

// LoadTuning returns DefaultTuning with environment overrides applied.
func LoadTuning() Tuning {
	d := DefaultTuning()
	return Tuning{
		LongPress:     envDuration("GESTURE_LONG_PRESS", d.LongPress),
		MoveTolerance: envFloat("GESTURE_MOVE_TOLERANCE", d.MoveTolerance),
		TapWindow:     envDuration("GESTURE_TAP_WINDOW", d.TapWindow),
		PageTurnDrag:  envFloat("GESTURE_PAGE_TURN_DRAG", d.PageTurnDrag),
		EdgeZone:      envFloat("GESTURE_EDGE_ZONE", d.EdgeZone),
		NavBand:       envFloat("GESTURE_NAV_BAND", d.NavBand),
		ClickSuppress: envDuration("GESTURE_CLICK_SUPPRESS", d.ClickSuppress),

		HighlightDelay:      envDuration("HIGHLIGHT_DELAY", d.HighlightDelay),
		SelectionDebounce:   envDuration("SELECTION_DEBOUNCE", d.SelectionDebounce),
		SelectionClearGrace: envDuration("SELECTION_CLEAR_GRACE", d.SelectionClearGrace),

		ReportInterval:     envDuration("REPORT_INTERVAL", d.ReportInterval),
		PaginatedSampleX:   envFloat("SAMPLE_PAGINATED_X", d.PaginatedSampleX),
		PaginatedSampleY:   envFloat("SAMPLE_PAGINATED_Y", d.PaginatedSampleY),
		ContinuousSampleX:  envFloat("SAMPLE_CONTINUOUS_X", d.ContinuousSampleX),
		ContinuousSampleY:  envFloat("SAMPLE_CONTINUOUS_Y", d.ContinuousSampleY),
		FallbackSampleXPct: d.FallbackSampleXPct,
		FallbackSampleYPct: d.FallbackSampleYPct,
		RevealOffset:       envFloat("REVEAL_OFFSET", d.RevealOffset),

		NoiseBand:      envFloat("PAGINATION_NOISE_BAND", d.NoiseBand),
		SpacerGuard:    envFloat("PAGINATION_SPACER_GUARD", d.SpacerGuard),
		SnapSettle:     envDuration("PAGINATION_SNAP_SETTLE", d.SnapSettle),
		ResizeDebounce: envDuration("PAGINATION_RESIZE_DEBOUNCE", d.ResizeDebounce),

		RestoreDelay: envDuration("RESTORE_DELAY", d.RestoreDelay),
	}
}

// Validate rejects thresholds that would make classification ambiguous.
func (t Tuning) Validate() error {
	if t.EdgeZone <= 0 || t.EdgeZone >= 0.5 {
		return fmt.Errorf("edge zone must be in (0, 0.5), got %g", t.EdgeZone)
	}
	if t.MoveTolerance <= 0 {
		return fmt.Errorf("move tolerance must be positive, got %g", t.MoveTolerance)
	}
	if t.PageTurnDrag < t.MoveTolerance {
		return fmt.Errorf("page turn drag (%g) must not be below move tolerance (%g)", t.PageTurnDrag, t.MoveTolerance)
	}
	if t.LongPress <= 0 || t.TapWindow <= 0 {
		return fmt.Errorf("long press and tap window must be positive")
	}
	if t.NoiseBand < 0 || t.SpacerGuard < 0 {
		return fmt.Errorf("noise band and spacer guard must not be negative")
	}
	return nil
}
