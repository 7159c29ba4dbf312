package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgallion1/folio/internal/highlight"
	"github.com/dgallion1/folio/internal/layout"
	"github.com/dgallion1/folio/internal/pagination"
	"github.com/dgallion1/folio/internal/parser"
	"github.com/dgallion1/folio/internal/reader"
	"github.com/dgallion1/folio/internal/sessions"
	"github.com/go-chi/chi/v5"
)

// handleCreateSession opens an uploaded chapter. The multipart form carries
// the file plus the reader configuration as plain fields.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	opts, err := s.createOptions(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := s.sessions.Create(filename, data, opts)
	if err != nil {
		sessionError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) createOptions(r *http.Request) (sessions.CreateOptions, error) {
	opts := sessions.CreateOptions{
		Title: r.FormValue("title"),
		Reader: reader.Config{
			Progress:        r.FormValue("progress"),
			Anchor:          r.FormValue("anchor"),
			TextColor:       r.FormValue("text_color"),
			BackgroundColor: r.FormValue("background_color"),
			FontFamily:      r.FormValue("font_family"),
		},
	}
	if v := r.FormValue("mode"); v != "" {
		mode, ok := layout.ParseMode(v)
		if !ok {
			return opts, fmt.Errorf("unknown mode %q", v)
		}
		opts.Reader.Mode = mode
	}
	if v := r.FormValue("columns"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 2 {
			return opts, fmt.Errorf("columns must be 1 or 2")
		}
		opts.Reader.Columns = n
	}
	for field, dst := range map[string]*float64{"width": &opts.Width, "height": &opts.Height} {
		if v := r.FormValue(field); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f <= 0 {
				return opts, fmt.Errorf("%s must be a positive number", field)
			}
			*dst = f
		}
	}
	opts.Reader.InteractionLocked = r.FormValue("interaction_locked") == "true"
	opts.Reader.InputBlocked = r.FormValue("input_blocked") == "true"

	if v := r.FormValue("highlights"); v != "" {
		list, err := highlight.ParseList([]byte(v))
		if err != nil {
			if list == nil {
				return opts, err
			}
			s.log.Warn("highlight records dropped", "error", err)
		}
		opts.Reader.Highlights = list
	}
	return opts, nil
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		sessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(chi.URLParam(r, "sessionID")); err != nil {
		sessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	body, err := s.sessions.Content(chi.URLParam(r, "sessionID"))
	if err != nil {
		sessionError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, body)
}

func sessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sessions.ErrNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, sessions.ErrInvalidInput):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, pagination.ErrDegenerateViewport):
		jsonError(w, err.Error(), http.StatusConflict)
	default:
		jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
