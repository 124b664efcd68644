package simulator

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-simulator/internal/schema"
)

// Logger defines the logging interface used by resources and update sessions.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Descriptor identifies a resource to the hosting platform.
type Descriptor struct {
	URI          string   `json:"uri"`
	Name         string   `json:"name"`
	ResourceType string   `json:"resource_type"`
	Interfaces   []string `json:"interfaces"`
	Observable   bool     `json:"observable"`
}

// ObserverInfo identifies a remote party observing a resource.
type ObserverInfo struct {
	ID      string `json:"id"`
	Address string `json:"address,omitempty"`
}

// ObserverStatus is reported to the observer callback.
type ObserverStatus string

// Observer callback statuses.
const (
	ObserverRegistered   ObserverStatus = "register"
	ObserverUnregistered ObserverStatus = "unregister"
)

// RequestHandler is what a hosting platform calls when a request or an
// observe registration arrives for a resource. *Resource implements it.
type RequestHandler interface {
	HandleGet(query map[string]string) (*schema.ResourceModel, error)
	HandlePut(query map[string]string, rep *schema.ResourceModel) (*schema.ResourceModel, error)
	HandlePost(query map[string]string, rep *schema.ResourceModel) (*schema.ResourceModel, error)
	AddObserver(info ObserverInfo)
	RemoveObserver(id string)
}

// Platform is the hosting transport for simulated resources.
type Platform interface {
	// Register announces the resource and routes its requests to h.
	Register(ctx context.Context, desc Descriptor, h RequestHandler) error

	// Unregister withdraws the resource.
	Unregister(ctx context.Context, uri string) error

	// Notify delivers the new representation to the resource's observers.
	Notify(uri string, observers []ObserverInfo, rep *schema.ResourceModel) error
}

// Reporter receives automation events for metrics, history and live feeds.
// Implementations must not call back into the resource or the manager.
type Reporter interface {
	SessionStarted(info SessionInfo)
	SessionFinished(report SessionReport)
	ModelChanged(uri string, rep *schema.ResourceModel)
}

type noopReporter struct{}

func (noopReporter) SessionStarted(SessionInfo)                 {}
func (noopReporter) SessionFinished(SessionReport)              {}
func (noopReporter) ModelChanged(string, *schema.ResourceModel) {}

// ModelChangeCallback is invoked after every change of a resource's model.
type ModelChangeCallback func(uri string, rep *schema.ResourceModel)

// ObserverCallback is invoked when an observer registers or unregisters.
type ObserverCallback func(uri string, status ObserverStatus, info ObserverInfo)

// UpdateCallback is invoked once when an update session finishes.
type UpdateCallback func(uri string, sessionID int)

// UpdateMode selects whether a session walks its combinations once or loops.
type UpdateMode string

// Update modes.
const (
	OneTime UpdateMode = "once"
	Repeat  UpdateMode = "repeat"
)

// ParseUpdateMode converts a mode name; unknown names map to OneTime.
func ParseUpdateMode(s string) UpdateMode {
	if UpdateMode(s) == Repeat {
		return Repeat
	}
	return OneTime
}

// SessionKind distinguishes attribute-scoped from resource-scoped updates.
type SessionKind string

// Session kinds.
const (
	KindAttributeUpdate SessionKind = "attribute-update"
	KindResourceUpdate  SessionKind = "resource-update"
)

// SessionState is the lifecycle state of an update session.
type SessionState string

// Session states. Completed, Stopped and Aborted are terminal.
const (
	StateIdle      SessionState = "idle"
	StateRunning   SessionState = "running"
	StateCompleted SessionState = "completed"
	StateStopped   SessionState = "stopped"
	StateAborted   SessionState = "aborted"
)

// SessionInfo is a point-in-time view of an update session.
type SessionInfo struct {
	ID        int           `json:"id"`
	Kind      SessionKind   `json:"kind"`
	URI       string        `json:"uri"`
	Attribute string        `json:"attribute,omitempty"`
	Mode      UpdateMode    `json:"mode"`
	Interval  time.Duration `json:"interval_ns"`
	State     SessionState  `json:"state"`
	Applied   int           `json:"applied"`
	StartedAt time.Time     `json:"started_at"`
}

// SessionReport describes a finished update session.
type SessionReport struct {
	SessionInfo
	FinishedAt time.Time `json:"finished_at"`
	Error      string    `json:"error,omitempty"`
}
