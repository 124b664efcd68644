package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/nerrad567/gray-logic-simulator/internal/schema"
	"github.com/nerrad567/gray-logic-simulator/internal/simulator"
)

// resourceView is the API representation of a hosted resource.
type resourceView struct {
	simulator.Descriptor
	ID        string                   `json:"id"`
	Running   bool                     `json:"running"`
	Model     *schema.ResourceModel    `json:"model"`
	Observers []simulator.ObserverInfo `json:"observers"`
	Sessions  []simulator.SessionInfo  `json:"sessions"`
}

func viewResource(r *simulator.Resource) resourceView {
	return resourceView{
		Descriptor: r.Descriptor(),
		ID:         r.ID(),
		Running:    r.IsRunning(),
		Model:      r.Model(),
		Observers:  r.Observers(),
		Sessions:   r.UpdateSessions(),
	}
}

// startUpdateRequest is the body of POST /updates/{uri}.
type startUpdateRequest struct {
	// Attribute selects an attribute update; empty means the whole resource.
	Attribute string `json:"attribute"`
	Mode      string `json:"mode"`

	// IntervalMS is the pause between steps; 0 uses the resource default.
	IntervalMS int `json:"interval_ms"`
}

func (s *Server) handleListResources(w http.ResponseWriter, _ *http.Request) {
	resources := s.engine.Resources().List()
	out := make([]resourceView, 0, len(resources))
	for _, r := range resources {
		out = append(out, viewResource(r))
	}
	writeJSON(w, http.StatusOK, map[string]any{"resources": out, "count": len(out)})
}

func (s *Server) handleGetResource(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.Resources().Get(resourceURI(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewResource(res))
}

// handlePutResource applies a representation whose attributes must exist.
func (s *Server) handlePutResource(w http.ResponseWriter, r *http.Request) {
	s.applyRepresentation(w, r, (*simulator.Resource).HandlePut)
}

// handlePostResource applies a representation that may add attributes the
// schema declares.
func (s *Server) handlePostResource(w http.ResponseWriter, r *http.Request) {
	s.applyRepresentation(w, r, (*simulator.Resource).HandlePost)
}

type applyFunc func(*simulator.Resource, map[string]string, *schema.ResourceModel) (*schema.ResourceModel, error)

func (s *Server) applyRepresentation(w http.ResponseWriter, r *http.Request, apply applyFunc) {
	res, err := s.engine.Resources().Get(resourceURI(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	rep := schema.NewResourceModel()
	if err := json.NewDecoder(r.Body).Decode(rep); err != nil {
		writeBadRequest(w, "invalid representation: "+err.Error())
		return
	}
	updated, err := apply(res, nil, rep)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleListUpdates(w http.ResponseWriter, _ *http.Request) {
	var sessions []simulator.SessionInfo
	for _, res := range s.engine.Resources().List() {
		sessions = append(sessions, res.UpdateSessions()...)
	}
	if sessions == nil {
		sessions = []simulator.SessionInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions, "count": len(sessions)})
}

func (s *Server) handleStartUpdate(w http.ResponseWriter, r *http.Request) {
	var req startUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.IntervalMS < 0 {
		writeBadRequest(w, "interval_ms must not be negative")
		return
	}
	if req.Mode != "" && req.Mode != string(simulator.OneTime) && req.Mode != string(simulator.Repeat) {
		writeBadRequest(w, "mode must be once or repeat")
		return
	}

	uri := resourceURI(r)
	id, err := s.engine.StartUpdate(uri, req.Attribute, simulator.ParseUpdateMode(req.Mode),
		time.Duration(req.IntervalMS)*time.Millisecond)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.logger.Info("update automation started", "uri", uri, "session_id", id, "subject", subject(r.Context()))
	writeJSON(w, http.StatusAccepted, map[string]any{"session_id": id, "uri": uri})
}

func (s *Server) handleStopUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := sessionParam(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	res, err := s.engine.Resources().Get(resourceURI(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	res.StopUpdate(id)
	w.WriteHeader(http.StatusNoContent)
}

// sessionParam reads the required session query parameter.
func sessionParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("session")
	if raw == "" {
		return 0, errors.New("session query parameter is required")
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, errors.New("session must be a positive integer")
	}
	return id, nil
}
