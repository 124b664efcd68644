package telemetry

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-simulator/internal/client"
	"github.com/nerrad567/gray-logic-simulator/internal/history"
	"github.com/nerrad567/gray-logic-simulator/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-simulator/internal/schema"
	"github.com/nerrad567/gray-logic-simulator/internal/simulator"
)

type fakeSeries struct {
	mu       sync.Mutex
	attrs    map[string]any
	sessions []influxdb.SessionSummary
}

func (f *fakeSeries) WriteAttribute(uri, attribute string, value any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attrs == nil {
		f.attrs = make(map[string]any)
	}
	f.attrs[uri+"#"+attribute] = value
}

func (f *fakeSeries) WriteSession(s influxdb.SessionSummary) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, s)
}

type fakeHistory struct {
	mu        sync.Mutex
	records   []history.Record
	observers []history.ObserverEvent
	err       error
}

func (f *fakeHistory) Create(_ context.Context, rec *history.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, *rec)
	return nil
}

func (f *fakeHistory) RecordObserver(_ context.Context, ev *history.ObserverEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observers = append(f.observers, *ev)
	return nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []Event
}

func (f *fakeEvents) Publish(ev Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
}

func (f *fakeEvents) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, ev := range f.events {
		out[i] = ev.Type
	}
	return out
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(body)
}

func newTestRecorder() (*Recorder, *Metrics, *fakeSeries, *fakeHistory, *fakeEvents) {
	m := NewMetrics("test")
	series := &fakeSeries{}
	hist := &fakeHistory{}
	events := &fakeEvents{}
	r := NewRecorder(Options{Host: "sim-1", Metrics: m, Series: series, History: hist, Events: events})
	return r, m, series, hist, events
}

func TestRecorder_UpdateSession(t *testing.T) {
	r, m, series, hist, events := newTestRecorder()
	start := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

	info := simulator.SessionInfo{ID: 1, Kind: simulator.KindResourceUpdate, URI: "/a/light", Mode: simulator.OneTime, State: simulator.StateRunning, StartedAt: start}
	r.Updates().SessionStarted(info)

	info.State = simulator.StateCompleted
	info.Applied = 6
	r.Updates().SessionFinished(simulator.SessionReport{SessionInfo: info, FinishedAt: start.Add(3 * time.Second)})

	if len(hist.records) != 1 || hist.records[0].Kind != history.KindResourceUpdate || hist.records[0].Host != "sim-1" {
		t.Errorf("history records = %+v", hist.records)
	}
	if len(series.sessions) != 1 || series.sessions[0].Applied != 6 || series.sessions[0].Duration != 3*time.Second {
		t.Errorf("series sessions = %+v", series.sessions)
	}
	if got := strings.Join(events.types(), ","); got != EventSessionStarted+","+EventSessionFinished {
		t.Errorf("events = %s", got)
	}

	out := scrape(t, m)
	for _, want := range []string{
		`test_sessions_started_total{kind="resource-update"} 1`,
		`test_sessions_finished_total{kind="resource-update",state="completed"} 1`,
		`test_sessions_active{kind="resource-update"} 0`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestRecorder_ModelChanged(t *testing.T) {
	r, m, series, _, events := newTestRecorder()

	rep := schema.NewResourceModel()
	rep.Add("power", schema.Bool(true))
	rep.Add("level", schema.Int(2))
	rep.Add("temperature", schema.Double(21.5))
	rep.Add("label", schema.String("desk"))
	rep.Add("levels", schema.IntList(1, 2))

	r.Updates().ModelChanged("/a/light", rep)

	want := map[string]any{
		"/a/light#power":       true,
		"/a/light#level":       2,
		"/a/light#temperature": 21.5,
		"/a/light#label":       "desk",
	}
	if len(series.attrs) != len(want) {
		t.Errorf("wrote %d attributes, want %d (lists skipped)", len(series.attrs), len(want))
	}
	for k, v := range want {
		if series.attrs[k] != v {
			t.Errorf("attrs[%s] = %v, want %v", k, series.attrs[k], v)
		}
	}
	if got := events.types(); len(got) != 1 || got[0] != EventModelChanged {
		t.Errorf("events = %v", got)
	}
	if !strings.Contains(scrape(t, m), `test_model_changes_total{uri="/a/light"} 1`) {
		t.Error("model change not counted")
	}
}

func TestRecorder_RequestSession(t *testing.T) {
	r, m, series, hist, events := newTestRecorder()
	reqs := r.Requests()

	reqs.RequestSent(client.MethodGet)
	reqs.RequestSent(client.MethodGet)
	reqs.RequestSent(client.MethodGet)
	reqs.ResponseReceived(client.MethodGet, client.CodeOK, nil)
	reqs.ResponseReceived(client.MethodGet, client.CodeBadRequest, nil)
	reqs.ResponseReceived(client.MethodGet, 0, errors.New("timeout"))
	reqs.SessionFinished(client.SessionReport{ID: 4, Method: client.MethodGet, URI: "/a/light", State: client.StateComplete, Sent: 3, Received: 3, Failures: 2})

	out := scrape(t, m)
	for _, want := range []string{
		`test_requests_sent_total{method="GET"} 3`,
		`test_responses_total{method="GET",outcome="ok"} 1`,
		`test_responses_total{method="GET",outcome="rejected"} 1`,
		`test_responses_total{method="GET",outcome="failed"} 1`,
		`test_sessions_finished_total{kind="request-get",state="complete"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
	if len(hist.records) != 1 || hist.records[0].Kind != history.KindRequest || hist.records[0].Failures != 2 {
		t.Errorf("history = %+v", hist.records)
	}
	if len(series.sessions) != 1 || series.sessions[0].Kind != "request-get" {
		t.Errorf("series = %+v", series.sessions)
	}
	if got := events.types(); len(got) != 1 || got[0] != EventRequestFinished {
		t.Errorf("events = %v", got)
	}
}

func TestRecorder_ObserverChanged(t *testing.T) {
	r, m, _, hist, events := newTestRecorder()

	r.ObserverChanged("/a/light", simulator.ObserverRegistered, simulator.ObserverInfo{ID: "o1", Address: "sim-2"})

	if len(hist.observers) != 1 || hist.observers[0].Status != "register" || hist.observers[0].Address != "sim-2" {
		t.Errorf("observer history = %+v", hist.observers)
	}
	if got := events.types(); len(got) != 1 || got[0] != EventObserverChanged {
		t.Errorf("events = %v", got)
	}
	if !strings.Contains(scrape(t, m), `test_observer_changes_total{status="register"} 1`) {
		t.Error("observer change not counted")
	}
}

func TestRecorder_NoSinks(t *testing.T) {
	r := NewRecorder(Options{})

	r.Updates().SessionStarted(simulator.SessionInfo{URI: "/a"})
	r.Updates().SessionFinished(simulator.SessionReport{})
	r.Updates().ModelChanged("/a", schema.NewResourceModel())
	r.Requests().RequestSent(client.MethodPut)
	r.Requests().ResponseReceived(client.MethodPut, client.CodeOK, nil)
	r.Requests().SessionFinished(client.SessionReport{})
	r.ObserverChanged("/a", simulator.ObserverUnregistered, simulator.ObserverInfo{ID: "o"})
	r.RemoteNotified("/a", schema.NewResourceModel())
}

func TestRecorder_HistoryFailureIsDropped(t *testing.T) {
	r, _, _, hist, events := newTestRecorder()
	hist.err = errors.New("disk full")

	r.Requests().SessionFinished(client.SessionReport{ID: 1, Method: client.MethodPost, URI: "/a", State: client.StateAbort})

	if got := events.types(); len(got) != 1 {
		t.Errorf("event not published after history failure: %v", got)
	}
}

func TestMetrics_SetResources(t *testing.T) {
	m := NewMetrics("")
	m.SetResources(3)
	if !strings.Contains(scrape(t, m), "iotsim_resources_hosted 3") {
		t.Error("resources gauge not exported with default namespace")
	}
}
