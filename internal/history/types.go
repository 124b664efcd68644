package history

import (
	"time"

	"github.com/nerrad567/gray-logic-simulator/internal/client"
	"github.com/nerrad567/gray-logic-simulator/internal/simulator"
)

// Record kinds. Update sessions use the simulator's kind names; request
// sessions use "request".
const (
	KindAttributeUpdate = string(simulator.KindAttributeUpdate)
	KindResourceUpdate  = string(simulator.KindResourceUpdate)
	KindRequest         = "request"
)

// Record is one finished automation session.
type Record struct {
	ID         string    `json:"id"`
	Host       string    `json:"host"`
	SessionID  int       `json:"session_id"`
	Kind       string    `json:"kind"`
	URI        string    `json:"uri"`
	Attribute  string    `json:"attribute,omitempty"`
	Method     string    `json:"method,omitempty"`
	Mode       string    `json:"mode,omitempty"`
	State      string    `json:"state"`
	Applied    int       `json:"applied"`
	Received   int       `json:"received"`
	Failures   int       `json:"failures"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Duration is the wall time the session ran.
func (r Record) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// FromUpdate converts a finished update session.
func FromUpdate(host string, rep simulator.SessionReport) Record {
	return Record{
		Host:       host,
		SessionID:  rep.ID,
		Kind:       string(rep.Kind),
		URI:        rep.URI,
		Attribute:  rep.Attribute,
		Mode:       string(rep.Mode),
		State:      string(rep.State),
		Applied:    rep.Applied,
		Error:      rep.Error,
		StartedAt:  rep.StartedAt,
		FinishedAt: rep.FinishedAt,
	}
}

// FromRequest converts a finished request session. Sent requests are
// stored as Applied.
func FromRequest(host string, rep client.SessionReport) Record {
	return Record{
		Host:       host,
		SessionID:  rep.ID,
		Kind:       KindRequest,
		URI:        rep.URI,
		Method:     string(rep.Method),
		State:      string(rep.State),
		Applied:    rep.Sent,
		Received:   rep.Received,
		Failures:   rep.Failures,
		Error:      rep.Error,
		StartedAt:  rep.StartedAt,
		FinishedAt: rep.FinishedAt,
	}
}

// ObserverEvent is one observer registration change.
type ObserverEvent struct {
	ID         int64     `json:"id"`
	URI        string    `json:"uri"`
	ObserverID string    `json:"observer_id"`
	Address    string    `json:"address,omitempty"`
	Status     string    `json:"status"`
	At         time.Time `json:"at"`
}

// Filter controls which records List returns.
type Filter struct {
	URI    string // optional
	Kind   string // optional
	State  string // optional
	Limit  int    // default 50, max 200
	Offset int
}

// ListResult is a page of records.
type ListResult struct {
	Records []Record `json:"records"`
	Total   int      `json:"total"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
}
