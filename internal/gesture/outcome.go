package gesture

import "fmt"

// Phase is the state of the current pointer session.
type Phase int

const (
	Idle Phase = iota
	LongPressPending
	LongPressActive
	Dragging
	ScrollingVertically
)

func (p Phase) String() string {
	switch p {
	case LongPressPending:
		return "long-press-pending"
	case LongPressActive:
		return "long-press-active"
	case Dragging:
		return "dragging"
	case ScrollingVertically:
		return "scrolling-vertically"
	default:
		return "idle"
	}
}

// Class is what the machine made of an event.
type Class int

const (
	// None means the event was consumed without a classification, such as
	// the start of a session or movement inside the tolerance.
	None Class = iota
	Ignored
	Suppressed
	Tap
	PrevPage
	NextPage
	DragFollow
	DragPage
	LongPress
	VerticalScroll
	SelectionClear
	HighlightActivate
	Passthrough
)

var classNames = [...]string{
	None:              "none",
	Ignored:           "ignored",
	Suppressed:        "suppressed",
	Tap:               "tap",
	PrevPage:          "prev-page",
	NextPage:          "next-page",
	DragFollow:        "drag-follow",
	DragPage:          "drag-page",
	LongPress:         "long-press",
	VerticalScroll:    "vertical-scroll",
	SelectionClear:    "selection-clear",
	HighlightActivate: "highlight",
	Passthrough:       "passthrough",
}

func (c Class) String() string {
	if c >= 0 && int(c) < len(classNames) {
		return classNames[c]
	}
	return fmt.Sprintf("class(%d)", int(c))
}

// Outcome is the result of handling one event. PreventDefault tells the host
// to suppress its native handling of the event.
type Outcome struct {
	Class          Class
	PreventDefault bool
}

func (o Outcome) String() string {
	if o.PreventDefault {
		return o.Class.String() + "!"
	}
	return o.Class.String()
}
