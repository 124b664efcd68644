package mqtt

import (
	"encoding/json"
	"fmt"
	"time"
)

// Presence values published on Topics.Status.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Offline reasons.
const (
	ReasonShutdown             = "shutdown"
	ReasonUnexpectedDisconnect = "unexpected_disconnect"
)

// Status is the retained presence document of one simulator client.
type Status struct {
	Status    string `json:"status"`
	ClientID  string `json:"client_id"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Offline reports whether the document announces the client as gone.
func (s Status) Offline() bool { return s.Status == StatusOffline }

func newStatus(clientID, status, reason string) []byte {
	b, _ := json.Marshal(Status{ //nolint:errcheck // plain strings always marshal
		Status:    status,
		ClientID:  clientID,
		Reason:    reason,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	return b
}

// ParseStatus decodes a presence document.
func ParseStatus(payload []byte) (Status, error) {
	var s Status
	if err := json.Unmarshal(payload, &s); err != nil {
		return Status{}, fmt.Errorf("decoding status: %w", err)
	}
	if s.ClientID == "" {
		return Status{}, fmt.Errorf("decoding status: missing client_id")
	}
	return s, nil
}
