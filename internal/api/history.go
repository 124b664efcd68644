package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-simulator/internal/history"
)

// handleListHistory lists finished automation sessions, newest first.
//
// Query parameters: uri, kind, state, limit, offset.
func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w) {
		return
	}
	q := r.URL.Query()
	filter := history.Filter{
		URI:   q.Get("uri"),
		Kind:  q.Get("kind"),
		State: q.Get("state"),
	}
	var ok bool
	if filter.Limit, ok = intParam(w, q.Get("limit")); !ok {
		return
	}
	if filter.Offset, ok = intParam(w, q.Get("offset")); !ok {
		return
	}

	result, err := s.history.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing history failed", "error", err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w) {
		return
	}
	rec, err := s.history.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleListObservers lists observer registration changes of a resource.
func (s *Server) handleListObservers(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w) {
		return
	}
	limit, ok := intParam(w, r.URL.Query().Get("limit"))
	if !ok {
		return
	}
	events, err := s.history.ListObservers(r.Context(), r.URL.Query().Get("uri"), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if events == nil {
		events = []history.ObserverEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events, "count": len(events)})
}

func (s *Server) requireHistory(w http.ResponseWriter) bool {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "session history is not configured")
		return false
	}
	return true
}

// intParam parses an optional non-negative integer query parameter,
// writing a 400 when it is malformed.
func intParam(w http.ResponseWriter, raw string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeBadRequest(w, "invalid integer parameter: "+raw)
		return 0, false
	}
	return n, true
}
