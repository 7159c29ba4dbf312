package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dgallion1/folio/internal/address"
	"github.com/dgallion1/folio/internal/event"
	"github.com/dgallion1/folio/internal/highlight"
	"github.com/dgallion1/folio/internal/reader"
	"github.com/go-chi/chi/v5"
)

const maxJSONBody = 1 << 20

// eventRequest is the wire form of one input event. AtMs is the session
// clock in milliseconds.
type eventRequest struct {
	Type       string         `json:"type"`
	AtMs       int64          `json:"at_ms"`
	X          float64        `json:"x"`
	Y          float64        `json:"y"`
	Pointers   int            `json:"pointers,omitempty"`
	Key        string         `json:"key,omitempty"`
	Width      float64        `json:"width,omitempty"`
	Height     float64        `json:"height,omitempty"`
	ScrollLeft float64        `json:"scroll_left,omitempty"`
	ScrollTop  float64        `json:"scroll_top,omitempty"`
	Selection  *address.Range `json:"selection,omitempty"`
}

func (e eventRequest) toEvent() (event.Event, error) {
	kind, err := event.ParseKind(e.Type)
	if err != nil {
		return event.Event{}, err
	}
	if e.AtMs < 0 {
		return event.Event{}, fmt.Errorf("at_ms must not be negative")
	}
	return event.Event{
		Kind:       kind,
		At:         time.Duration(e.AtMs) * time.Millisecond,
		X:          e.X,
		Y:          e.Y,
		Pointers:   e.Pointers,
		Key:        e.Key,
		Width:      e.Width,
		Height:     e.Height,
		ScrollLeft: e.ScrollLeft,
		ScrollTop:  e.ScrollTop,
		Selection:  e.Selection,
	}, nil
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Events []eventRequest `json:"events"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	events := make([]event.Event, 0, len(body.Events))
	for i, e := range body.Events {
		ev, err := e.toEvent()
		if err != nil {
			jsonError(w, fmt.Sprintf("event %d: %s", i, err), http.StatusBadRequest)
			return
		}
		events = append(events, ev)
	}

	res, err := s.sessions.Dispatch(chi.URLParam(r, "sessionID"), events)
	if err != nil {
		sessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleFlags(w http.ResponseWriter, r *http.Request) {
	var body struct {
		InteractionLocked *bool `json:"interactionLocked"`
		InputBlocked      *bool `json:"inputBlocked"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	s.do(w, r, func(rs *reader.Session) error {
		if body.InteractionLocked != nil {
			rs.SetInteractionLocked(*body.InteractionLocked)
		}
		if body.InputBlocked != nil {
			rs.SetInputBlocked(*body.InputBlocked)
		}
		return nil
	})
}

func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TextColor       string `json:"textColor"`
		BackgroundColor string `json:"backgroundColor"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	s.do(w, r, func(rs *reader.Session) error {
		rs.SetTheme(body.TextColor, body.BackgroundColor)
		return nil
	})
}

func (s *Server) handleFont(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FontFamily string `json:"fontFamily"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	s.do(w, r, func(rs *reader.Session) error {
		rs.SetFontFamily(body.FontFamily)
		return nil
	})
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Page *int `json:"page"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Page == nil {
		jsonError(w, "page is required", http.StatusBadRequest)
		return
	}
	s.do(w, r, func(rs *reader.Session) error {
		return rs.SnapToPage(*body.Page)
	})
}

// handleHighlights replaces the rendered highlights. Malformed records are
// skipped and reported back.
func (s *Server) handleHighlights(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		jsonError(w, "failed to read body", http.StatusBadRequest)
		return
	}
	list, err := highlight.ParseList(data)
	if err != nil && list == nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	var skipped string
	if err != nil {
		skipped = err.Error()
	}

	var markers int
	res, derr := s.sessions.Do(chi.URLParam(r, "sessionID"), func(rs *reader.Session) error {
		markers = rs.RenderHighlights(list)
		return nil
	})
	if derr != nil {
		sessionError(w, derr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session": res,
		"markers": markers,
		"skipped": skipped,
	})
}

func (s *Server) do(w http.ResponseWriter, r *http.Request, fn func(*reader.Session) error) {
	res, err := s.sessions.Do(chi.URLParam(r, "sessionID"), fn)
	if err != nil {
		sessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(v); err != nil {
		jsonError(w, "invalid json body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}
