package client

import (
	"context"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-simulator/internal/schema"
)

// Logger defines the logging interface used by remote resources and
// request sessions.
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

// Method is a request kind.
type Method string

// Request methods.
const (
	MethodGet  Method = "GET"
	MethodPut  Method = "PUT"
	MethodPost Method = "POST"
)

// ParseMethod converts a method name, case-insensitively.
func ParseMethod(s string) (Method, bool) {
	switch m := Method(strings.ToUpper(s)); m {
	case MethodGet, MethodPut, MethodPost:
		return m, true
	default:
		return "", false
	}
}

// Response codes carried in Response.Code.
const (
	CodeOK         = 200
	CodeChanged    = 204
	CodeBadRequest = 400
	CodeNotFound   = 404
	CodeError      = 500
)

// Request is one request to a remote resource.
type Request struct {
	ID      string
	Method  Method
	URI     string
	Query   map[string]string
	Payload *schema.ResourceModel
}

// Response is the result of a request.
type Response struct {
	Code    int
	Payload *schema.ResourceModel
}

// OK reports whether the response code signals success.
func (r Response) OK() bool { return r.Code >= 200 && r.Code < 300 }

// ResponseHandler receives the outcome of a request. err is set when no
// response arrived (timeout, transport failure).
type ResponseHandler func(resp Response, err error)

// NotifyHandler receives observe notifications.
type NotifyHandler func(uri string, rep *schema.ResourceModel)

// Transport sends requests to remote resources.
type Transport interface {
	// Send dispatches req. A nil error means the handler will be called
	// exactly once, possibly before Send returns.
	Send(ctx context.Context, req Request, handler ResponseHandler) error

	// Observe registers for notifications from uri.
	Observe(ctx context.Context, uri, observerID string, handler NotifyHandler) error

	// CancelObserve withdraws an observe registration.
	CancelObserve(ctx context.Context, uri, observerID string) error
}

// AutoRequestState is reported to the automatic request callback.
type AutoRequestState string

// Automatic request states.
const (
	StateStart    AutoRequestState = "start"
	StateComplete AutoRequestState = "complete"
	StateAbort    AutoRequestState = "abort"
)

// AutoRequestCallback is invoked with StateStart when a session begins and
// once more with StateComplete or StateAbort when it ends.
type AutoRequestCallback func(uri string, sessionID int, state AutoRequestState)

// Reporter receives request automation events for metrics, history and
// live feeds. Implementations must not call back into the manager.
type Reporter interface {
	RequestSent(method Method)
	ResponseReceived(method Method, code int, err error)
	SessionFinished(report SessionReport)
}

type noopReporter struct{}

func (noopReporter) RequestSent(Method)                  {}
func (noopReporter) ResponseReceived(Method, int, error) {}
func (noopReporter) SessionFinished(SessionReport)       {}

// SessionReport describes an automatic request session.
type SessionReport struct {
	ID         int              `json:"id"`
	Method     Method           `json:"method"`
	URI        string           `json:"uri"`
	State      AutoRequestState `json:"state"`
	Sent       int              `json:"sent"`
	Received   int              `json:"received"`
	Failures   int              `json:"failures"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at,omitzero"`
	Error      string           `json:"error,omitempty"`
}
