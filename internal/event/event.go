// Package event defines the typed input events a reader session consumes and
// the virtual-time scheduler that replaces the platform's timers.
package event

import (
	"fmt"
	"strings"
	"time"

	"github.com/dgallion1/folio/internal/address"
)

// Kind is the type of an input event.
type Kind int

const (
	PointerDown Kind = iota + 1
	PointerMove
	PointerUp
	Click
	Key
	Resize
	Scroll
	SelectionChange
	Tick
)

var kindNames = map[Kind]string{
	PointerDown:     "pointerdown",
	PointerMove:     "pointermove",
	PointerUp:       "pointerup",
	Click:           "click",
	Key:             "key",
	Resize:          "resize",
	Scroll:          "scroll",
	SelectionChange: "selectionchange",
	Tick:            "tick",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind maps a wire name to a Kind.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown event type %q", s)
}

// Event is one input event. At is the session clock time of the event;
// events must be dispatched in non-decreasing At order.
type Event struct {
	Kind Kind
	At   time.Duration

	// Pointer events and clicks, in viewport coordinates.
	X, Y     float64
	Pointers int // simultaneous contacts; 0 is read as 1

	// Key events.
	Key string

	// Resize events.
	Width, Height float64

	// Scroll events report the host's scroll offsets.
	ScrollLeft, ScrollTop float64

	// SelectionChange events; nil means the selection was cleared.
	Selection *address.Range
}

// Contacts returns the number of simultaneous pointers.
func (e Event) Contacts() int {
	if e.Pointers <= 0 {
		return 1
	}
	return e.Pointers
}
