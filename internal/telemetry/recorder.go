package telemetry

import (
	"context"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-simulator/internal/client"
	"github.com/nerrad567/gray-logic-simulator/internal/history"
	"github.com/nerrad567/gray-logic-simulator/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-simulator/internal/schema"
	"github.com/nerrad567/gray-logic-simulator/internal/simulator"
)

const historyWriteTimeout = 2 * time.Second

// Logger is the logging interface used by the recorder.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// SeriesWriter is the time-series sink. *influxdb.Client implements it.
type SeriesWriter interface {
	WriteAttribute(uri, attribute string, value any)
	WriteSession(s influxdb.SessionSummary)
}

// HistoryStore is the session history sink. *history.SQLiteRepository
// implements it.
type HistoryStore interface {
	Create(ctx context.Context, rec *history.Record) error
	RecordObserver(ctx context.Context, ev *history.ObserverEvent) error
}

// EventPublisher is the live feed sink.
type EventPublisher interface {
	Publish(ev Event)
}

// Event types published on the live feed.
const (
	EventModelChanged    = "model.changed"
	EventObserverChanged = "observer.changed"
	EventSessionStarted  = "session.started"
	EventSessionFinished = "session.finished"
	EventRequestFinished = "request.finished"
	EventRemoteNotified  = "remote.notified"
)

// Event is one entry of the live feed.
type Event struct {
	Type string    `json:"type"`
	URI  string    `json:"uri"`
	At   time.Time `json:"at"`
	Data any       `json:"data,omitempty"`
}

// Options configures a Recorder. Nil sinks are skipped.
type Options struct {
	Host    string
	Metrics *Metrics
	Series  SeriesWriter
	History HistoryStore
	Events  EventPublisher
	Logger  Logger
}

// Recorder dispatches automation events to the configured sinks.
type Recorder struct {
	opts   Options
	logger Logger
}

// NewRecorder creates a Recorder.
func NewRecorder(opts Options) *Recorder {
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Recorder{opts: opts, logger: logger}
}

// Updates returns the reporter handed to hosted resources.
func (r *Recorder) Updates() simulator.Reporter { return updateReporter{r} }

// Requests returns the reporter handed to remote resources.
func (r *Recorder) Requests() client.Reporter { return requestReporter{r} }

// ObserverChanged records an observer registration change. It has the
// shape of simulator.ObserverCallback.
func (r *Recorder) ObserverChanged(uri string, status simulator.ObserverStatus, info simulator.ObserverInfo) {
	if r.opts.Metrics != nil {
		r.opts.Metrics.observerChanges.WithLabelValues(string(status)).Inc()
	}
	if r.opts.History != nil {
		ctx, cancel := context.WithTimeout(context.Background(), historyWriteTimeout)
		defer cancel()
		ev := &history.ObserverEvent{URI: uri, ObserverID: info.ID, Address: info.Address, Status: string(status)}
		if err := r.opts.History.RecordObserver(ctx, ev); err != nil {
			r.logger.Warn("recording observer event failed", "uri", uri, "error", err)
		}
	}
	r.publish(EventObserverChanged, uri, map[string]any{"status": status, "observer": info})
}

// RemoteNotified publishes an observe notification from a remote resource.
// It has the shape of client.NotifyHandler.
func (r *Recorder) RemoteNotified(uri string, rep *schema.ResourceModel) {
	r.publish(EventRemoteNotified, uri, rep)
}

func (r *Recorder) publish(typ, uri string, data any) {
	if r.opts.Events == nil {
		return
	}
	r.opts.Events.Publish(Event{Type: typ, URI: uri, At: time.Now().UTC(), Data: data})
}

func (r *Recorder) store(rec history.Record) {
	if r.opts.History == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), historyWriteTimeout)
	defer cancel()
	if err := r.opts.History.Create(ctx, &rec); err != nil {
		r.logger.Warn("recording session history failed", "uri", rec.URI, "session_id", rec.SessionID, "error", err)
	}
}

type updateReporter struct{ r *Recorder }

func (u updateReporter) SessionStarted(info simulator.SessionInfo) {
	if m := u.r.opts.Metrics; m != nil {
		m.sessionStarted(string(info.Kind))
	}
	u.r.publish(EventSessionStarted, info.URI, info)
}

func (u updateReporter) SessionFinished(rep simulator.SessionReport) {
	d := rep.FinishedAt.Sub(rep.StartedAt)
	if m := u.r.opts.Metrics; m != nil {
		m.sessionFinished(string(rep.Kind), string(rep.State), d)
	}
	if s := u.r.opts.Series; s != nil {
		s.WriteSession(influxdb.SessionSummary{
			Kind:     string(rep.Kind),
			URI:      rep.URI,
			ID:       rep.ID,
			State:    string(rep.State),
			Applied:  int64(rep.Applied),
			Duration: d,
		})
	}
	u.r.store(history.FromUpdate(u.r.opts.Host, rep))
	u.r.publish(EventSessionFinished, rep.URI, rep)
	u.r.logger.Debug("update session finished", "uri", rep.URI, "session_id", rep.ID, "state", rep.State)
}

func (u updateReporter) ModelChanged(uri string, rep *schema.ResourceModel) {
	if m := u.r.opts.Metrics; m != nil {
		m.modelChanges.WithLabelValues(uri).Inc()
	}
	if s := u.r.opts.Series; s != nil {
		for _, name := range rep.AttributeNames() {
			v, _ := rep.Get(name)
			if native, ok := scalar(v); ok {
				s.WriteAttribute(uri, name, native)
			}
		}
	}
	u.r.publish(EventModelChanged, uri, rep)
}

type requestReporter struct{ r *Recorder }

func (q requestReporter) RequestSent(method client.Method) {
	if m := q.r.opts.Metrics; m != nil {
		m.requestsSent.WithLabelValues(string(method)).Inc()
	}
}

func (q requestReporter) ResponseReceived(method client.Method, code int, err error) {
	if m := q.r.opts.Metrics; m != nil {
		m.response(string(method), code, err)
	}
}

func (q requestReporter) SessionFinished(rep client.SessionReport) {
	kind := "request-" + strings.ToLower(string(rep.Method))
	d := rep.FinishedAt.Sub(rep.StartedAt)
	if m := q.r.opts.Metrics; m != nil {
		// Request sessions are counted as started when they finish; the
		// manager reports no separate start event.
		m.sessionsStarted.WithLabelValues(kind).Inc()
		m.sessionsFinished.WithLabelValues(kind, string(rep.State)).Inc()
		m.sessionDuration.WithLabelValues(kind).Observe(d.Seconds())
	}
	if s := q.r.opts.Series; s != nil {
		s.WriteSession(influxdb.SessionSummary{
			Kind:     kind,
			URI:      rep.URI,
			ID:       rep.ID,
			State:    string(rep.State),
			Applied:  int64(rep.Sent),
			Received: int64(rep.Received),
			Failures: int64(rep.Failures),
			Duration: d,
		})
	}
	q.r.store(history.FromRequest(q.r.opts.Host, rep))
	q.r.publish(EventRequestFinished, rep.URI, rep)
	q.r.logger.Debug("request session finished", "uri", rep.URI, "session_id", rep.ID, "state", rep.State)
}

// scalar returns the Go value of a scalar attribute.
func scalar(v schema.Value) (any, bool) {
	switch v.Type() {
	case schema.TypeInteger:
		i, _ := v.AsInt()
		return i, true
	case schema.TypeDouble:
		d, _ := v.AsDouble()
		return d, true
	case schema.TypeBoolean:
		b, _ := v.AsBool()
		return b, true
	case schema.TypeString:
		s, _ := v.AsString()
		return s, true
	default:
		return nil, false
	}
}
