package server

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/pgEdge/pgedge-econ/internal/views"
)

//go:embed static/index.html
var indexHTML []byte

// viewResult is the body of GET /api/views/{name}.
type viewResult struct {
	View   string       `json:"view"`
	Filter views.Filter `json:"filter"`
	*views.Table
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleViews(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, views.All())
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	v, f, t, ok := s.execute(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, viewResult{View: v.Name, Filter: f, Table: t})
}

func (s *Server) handleFigure(w http.ResponseWriter, r *http.Request) {
	v, err := views.Get(r.PathValue("name"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	if v.Chart.Kind == views.ChartNone {
		s.writeError(w, http.StatusNotFound, errors.New("view "+v.Name+" has no figure"))
		return
	}

	_, _, t, ok := s.execute(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, Figure(v, t))
}

func (s *Server) handleLookups(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, views.Lookups())
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	t, err := views.Lookup(r.Context(), s.db, r.PathValue("name"))
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, t)
}

// execute runs the view named in the path with the query string filter,
// writing an error response and returning false on failure.
func (s *Server) execute(w http.ResponseWriter, r *http.Request) (*views.View, views.Filter, *views.Table, bool) {
	v, err := views.Get(r.PathValue("name"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return nil, views.Filter{}, nil, false
	}

	f, err := views.ParseFilter(r.URL.Query().Get)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return nil, f, nil, false
	}

	t, err := v.Execute(r.Context(), s.db, f)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return nil, f, nil, false
	}
	return v, f, t, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, views.ErrUnknownView):
		return http.StatusNotFound
	case errors.Is(err, views.ErrInvalidFilter):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.log.Error().Err(err).Int("status", status).Msg("Request failed")
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeJSON encodes body before writing the header so that a body
// that cannot be encoded, such as a non-finite number, still produces a
// JSON error.
func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError,
			fmt.Errorf("failed to encode response: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}
