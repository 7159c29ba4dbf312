package address

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// TargetKind tags the forms a persisted restore target can take.
type TargetKind int

const (
	TargetNone TargetKind = iota
	TargetEnd
	TargetPoint
	TargetRange
	TargetLegacyPath
	TargetLegacyPercent
	TargetAnchor
)

func (k TargetKind) String() string {
	switch k {
	case TargetEnd:
		return "end"
	case TargetPoint:
		return "point"
	case TargetRange:
		return "range"
	case TargetLegacyPath:
		return "legacy-path"
	case TargetLegacyPercent:
		return "legacy-percent"
	case TargetAnchor:
		return "anchor"
	default:
		return "none"
	}
}

// EndSentinel is the progress marker meaning "the end of the chapter".
const EndSentinel = "END"

// Target is a restore target parsed once at the boundary.
type Target struct {
	Kind     TargetKind
	Point    Point   // TargetPoint; the start point for TargetRange
	Range    Range   // TargetRange
	Path     Path    // TargetLegacyPath
	Fraction float64 // TargetLegacyPercent, in (0, 1]
	Anchor   string  // TargetAnchor
}

// ParseTarget classifies the persisted progress marker, falling back to the
// anchor id when progress carries nothing usable. Malformed JSON yields an
// ErrMalformed error alongside the fallback target so the caller can log it.
func ParseTarget(progress, anchor string) (Target, error) {
	progress = strings.TrimSpace(progress)
	fallback := Target{Kind: TargetNone}
	if anchor != "" {
		fallback = Target{Kind: TargetAnchor, Anchor: anchor}
	}

	switch {
	case progress == "":
		return fallback, nil

	case strings.EqualFold(progress, EndSentinel):
		return Target{Kind: TargetEnd}, nil

	case strings.HasPrefix(progress, "{"):
		var head struct {
			Path      *Path `json:"path"`
			Offset    int   `json:"offset"`
			StartPath *Path `json:"startPath"`
		}
		if err := json.Unmarshal([]byte(progress), &head); err != nil {
			return fallback, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		switch {
		case head.Path != nil:
			return Target{Kind: TargetPoint, Point: Point{Path: *head.Path, Offset: head.Offset}}, nil
		case head.StartPath != nil:
			r, err := ParseRange([]byte(progress))
			if err != nil {
				return fallback, err
			}
			return Target{Kind: TargetRange, Range: r, Point: r.Start()}, nil
		}
		return fallback, fmt.Errorf("%w: object carries no path", ErrMalformed)

	case LooksLikePath(progress):
		p, err := ParsePath(progress)
		if err != nil {
			return fallback, err
		}
		return Target{Kind: TargetLegacyPath, Path: p}, nil
	}

	if f, err := strconv.ParseFloat(progress, 64); err == nil && !math.IsNaN(f) && f > 0 {
		return Target{Kind: TargetLegacyPercent, Fraction: math.Min(f, 1)}, nil
	}
	return fallback, nil
}
