package api

import (
	"encoding/json"
	"net/http"

	"github.com/nerrad567/gray-logic-simulator/internal/client"
)

// remoteView is the API representation of a remote resource.
type remoteView struct {
	client.RemoteInfo
	Methods  []client.Method        `json:"methods"`
	Sessions []client.SessionReport `json:"sessions"`
}

func viewRemote(r *client.RemoteResource) remoteView {
	v := remoteView{
		RemoteInfo: r.Info(),
		Methods:    []client.Method{},
		Sessions:   r.AutoRequestSessions(),
	}
	for _, m := range []client.Method{client.MethodGet, client.MethodPut, client.MethodPost} {
		if _, ok := r.RequestModel(m); ok {
			v.Methods = append(v.Methods, m)
		}
	}
	return v
}

// startRequestRequest is the body of POST /requests/{uri}.
type startRequestRequest struct {
	Method string `json:"method"`
}

func (s *Server) handleListRemotes(w http.ResponseWriter, _ *http.Request) {
	remotes := s.engine.Remotes().List()
	out := make([]remoteView, 0, len(remotes))
	for _, r := range remotes {
		out = append(out, viewRemote(r))
	}
	writeJSON(w, http.StatusOK, map[string]any{"remotes": out, "count": len(out)})
}

// handleDiscover refreshes the directory. The optional type query parameter
// filters by resource type.
func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	found, err := s.engine.Discover(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]remoteView, 0, len(found))
	for _, rm := range found {
		out = append(out, viewRemote(rm))
	}
	writeJSON(w, http.StatusOK, map[string]any{"remotes": out, "count": len(out)})
}

func (s *Server) handleGetRemote(w http.ResponseWriter, r *http.Request) {
	remote, err := s.engine.Remotes().Get(resourceURI(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewRemote(remote))
}

func (s *Server) handleListRequests(w http.ResponseWriter, _ *http.Request) {
	sessions := []client.SessionReport{}
	for _, rm := range s.engine.Remotes().List() {
		sessions = append(sessions, rm.AutoRequestSessions()...)
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions, "count": len(sessions)})
}

func (s *Server) handleStartRequest(w http.ResponseWriter, r *http.Request) {
	var req startRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	method, ok := client.ParseMethod(req.Method)
	if !ok {
		writeBadRequest(w, "method must be GET, PUT or POST")
		return
	}

	uri := resourceURI(r)
	id, err := s.engine.StartAutoRequest(uri, method)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.logger.Info("request automation started", "uri", uri, "method", method, "session_id", id, "subject", subject(r.Context()))
	writeJSON(w, http.StatusAccepted, map[string]any{"session_id": id, "uri": uri, "method": method})
}

func (s *Server) handleStopRequest(w http.ResponseWriter, r *http.Request) {
	id, err := sessionParam(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	remote, err := s.engine.Remotes().Get(resourceURI(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	remote.StopAutoRequest(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleObserve(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.ObserveRemote(r.Context(), resourceURI(r)); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCancelObserve(w http.ResponseWriter, r *http.Request) {
	remote, err := s.engine.Remotes().Get(resourceURI(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := remote.CancelObserve(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
