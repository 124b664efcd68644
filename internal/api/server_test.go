package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-simulator/internal/client"
	"github.com/nerrad567/gray-logic-simulator/internal/definition"
	"github.com/nerrad567/gray-logic-simulator/internal/engine"
	"github.com/nerrad567/gray-logic-simulator/internal/history"
	"github.com/nerrad567/gray-logic-simulator/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-simulator/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-simulator/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-simulator/internal/schema"
	"github.com/nerrad567/gray-logic-simulator/internal/simulator"
	"github.com/nerrad567/gray-logic-simulator/internal/telemetry"
	"github.com/nerrad567/gray-logic-simulator/migrations"
)

const testSecret = "test-secret-key-at-least-32-characters-long"

const testDefs = `
resources:
  - uri: /a/light
    type: oic.r.light
    observable: true
    properties:
      power: { type: boolean, required: true }
      dim: { type: integer, range: [0, 100] }
      scene: { type: string, values: [day, night] }
`

type testEnv struct {
	srv     *Server
	handler http.Handler
	engine  *engine.Engine
	history *history.SQLiteRepository
	hub     *Hub
}

// newTestEnv builds a server over a started engine and an in-memory
// history database. secret enables authentication when non-empty.
func newTestEnv(t *testing.T, secret string) *testEnv {
	t.Helper()

	log := logging.Discard()

	db, err := database.Open(config.DatabaseConfig{Path: ":memory:"})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	if err := db.Migrate(context.Background(), migrations.Source()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	repo := history.NewSQLiteRepository(db.DB)

	hub := NewHub(config.WebSocketConfig{}, log)
	metrics := telemetry.NewMetrics("")
	recorder := telemetry.NewRecorder(telemetry.Options{
		Host:    "sim-test",
		Metrics: metrics,
		History: repo,
		Events:  hub,
	})

	eng := engine.New(engine.Config{UpdateInterval: time.Millisecond}, nil, recorder, log)
	defs, err := definition.Parse([]byte(testDefs))
	if err != nil {
		t.Fatalf("definition.Parse() error = %v", err)
	}
	if err := eng.Load(defs); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { eng.Stop(context.Background()) }) //nolint:errcheck // Test cleanup

	srv, err := New(Deps{
		Security: config.SecurityConfig{JWT: config.JWTConfig{Secret: secret, Issuer: "iot-simulator"}},
		Logger:   log,
		Engine:   eng,
		History:  repo,
		Metrics:  metrics.Handler(),
		Hub:      hub,
		Checks: map[string]HealthCheck{
			"database": db.HealthCheck,
		},
		Version: "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &testEnv{srv: srv, handler: srv.Handler(), engine: eng, history: repo, hub: hub}
}

func (e *testEnv) do(t *testing.T, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNew_RequiresDeps(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("New() without logger error = nil")
	}
	if _, err := New(Deps{Logger: logging.Default()}); err == nil {
		t.Error("New() without engine error = nil")
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, "")
	rec := env.do(t, http.MethodGet, "/api/v1/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var body struct {
		Status    string            `json:"status"`
		Resources int               `json:"resources"`
		Checks    map[string]string `json:"checks"`
	}
	decode(t, rec, &body)
	if body.Status != "ok" || body.Resources != 1 || body.Checks["database"] != "ok" {
		t.Errorf("health = %+v", body)
	}
}

func TestHealth_Degraded(t *testing.T) {
	env := newTestEnv(t, "")
	env.srv.checks["broker"] = func(context.Context) error { return errors.New("not connected") }

	rec := env.do(t, http.MethodGet, "/api/v1/health", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestListAndGetResource(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(t, http.MethodGet, "/api/v1/resources", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var list struct {
		Count     int `json:"count"`
		Resources []struct {
			URI     string          `json:"uri"`
			Running bool            `json:"running"`
			Model   json.RawMessage `json:"model"`
		} `json:"resources"`
	}
	decode(t, rec, &list)
	if list.Count != 1 || list.Resources[0].URI != "/a/light" || !list.Resources[0].Running {
		t.Fatalf("list = %+v", list)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/resources/a/light", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var one struct {
		Model map[string]any `json:"model"`
	}
	decode(t, rec, &one)
	if one.Model["power"] != false || len(one.Model) != 3 {
		t.Errorf("model = %v", one.Model)
	}

	if rec := env.do(t, http.MethodGet, "/api/v1/resources/missing", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing status = %d, want 404", rec.Code)
	}
}

func TestPutResource(t *testing.T) {
	env := newTestEnv(t, "")

	tests := []struct {
		name string
		body string
		want int
	}{
		{"valid", `{"dim": 40}`, http.StatusOK},
		{"out of range", `{"dim": 400}`, http.StatusBadRequest},
		{"unknown attribute", `{"colour": "red"}`, http.StatusBadRequest},
		{"not an object", `[1, 2]`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPut, "/api/v1/resources/a/light", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body)
			}
		})
	}

	light, _ := env.engine.Resources().Get("/a/light")
	if v, _ := light.Attribute("dim"); !v.Equal(schema.Int(40)) {
		t.Errorf("dim = %v, want 40", v)
	}
}

func TestUpdateAutomation(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(t, http.MethodPost, "/api/v1/updates/a/light", `{"attribute":"scene","mode":"repeat","interval_ms":1}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("start status = %d, body %s", rec.Code, rec.Body)
	}
	var started struct {
		SessionID int `json:"session_id"`
	}
	decode(t, rec, &started)

	rec = env.do(t, http.MethodGet, "/api/v1/updates", "")
	var list struct {
		Count int `json:"count"`
	}
	decode(t, rec, &list)
	if list.Count != 1 {
		t.Errorf("active sessions = %d, want 1", list.Count)
	}

	path := "/api/v1/updates/a/light?session=" + jsonInt(started.SessionID)
	if rec := env.do(t, http.MethodDelete, path, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("stop status = %d", rec.Code)
	}

	// The stopped session reaches the history through the recorder.
	waitFor(t, "history record", func() bool {
		res, err := env.history.List(context.Background(), history.Filter{URI: "/a/light"})
		return err == nil && res.Total == 1
	})
	rec = env.do(t, http.MethodGet, "/api/v1/history?uri=/a/light", "")
	var page history.ListResult
	decode(t, rec, &page)
	if page.Total != 1 || page.Records[0].State != "stopped" {
		t.Errorf("history = %+v", page)
	}

	if rec := env.do(t, http.MethodGet, "/api/v1/history/"+page.Records[0].ID, ""); rec.Code != http.StatusOK {
		t.Errorf("get history status = %d", rec.Code)
	}
}

func TestUpdateAutomation_BadRequests(t *testing.T) {
	env := newTestEnv(t, "")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"bad mode", http.MethodPost, "/api/v1/updates/a/light", `{"mode":"forever"}`, http.StatusBadRequest},
		{"negative interval", http.MethodPost, "/api/v1/updates/a/light", `{"interval_ms":-1}`, http.StatusBadRequest},
		{"unknown attribute", http.MethodPost, "/api/v1/updates/a/light", `{"attribute":"ghost"}`, http.StatusBadRequest},
		{"unknown resource", http.MethodPost, "/api/v1/updates/nope", `{}`, http.StatusNotFound},
		{"stop without session", http.MethodDelete, "/api/v1/updates/a/light", "", http.StatusBadRequest},
		{"stop bad session", http.MethodDelete, "/api/v1/updates/a/light?session=x", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := env.do(t, tt.method, tt.path, tt.body); rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body)
			}
		})
	}
}

func TestRemotes_WithoutPlatform(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(t, http.MethodGet, "/api/v1/remotes", "")
	var list struct {
		Count int `json:"count"`
	}
	decode(t, rec, &list)
	if rec.Code != http.StatusOK || list.Count != 0 {
		t.Errorf("remotes = %d %s", rec.Code, rec.Body)
	}
	if rec := env.do(t, http.MethodPost, "/api/v1/remotes/discover", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("discover status = %d, want 503", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/api/v1/requests/b/fan", `{"method":"get"}`); rec.Code != http.StatusNotFound {
		t.Errorf("start request status = %d, want 404", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/api/v1/requests/b/fan", `{"method":"delete"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad method status = %d, want 400", rec.Code)
	}
}

func TestAuth(t *testing.T) {
	env := newTestEnv(t, testSecret)

	if rec := env.do(t, http.MethodGet, "/api/v1/resources", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/health", ""); rec.Code != http.StatusOK {
		t.Errorf("health without token status = %d, want 200", rec.Code)
	}

	token, err := IssueToken(testSecret, "iot-simulator", "tester", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/resources", "", "Authorization", "Bearer "+token); rec.Code != http.StatusOK {
		t.Errorf("valid token status = %d", rec.Code)
	}

	wrongIssuer, _ := IssueToken(testSecret, "someone-else", "tester", time.Minute)
	expired, _ := IssueToken(testSecret, "iot-simulator", "tester", -time.Minute)
	otherKey, _ := IssueToken(strings.Repeat("k", 40), "iot-simulator", "tester", time.Minute)
	for name, tok := range map[string]string{"issuer": wrongIssuer, "expired": expired, "key": otherKey} {
		if rec := env.do(t, http.MethodGet, "/api/v1/resources", "", "Authorization", "Bearer "+tok); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", name, rec.Code)
		}
	}

	if _, err := IssueToken("", "x", "y", time.Minute); err == nil {
		t.Error("IssueToken without secret error = nil")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, "")
	env.do(t, http.MethodPut, "/api/v1/resources/a/light", `{"dim": 7}`)

	rec := env.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `iotsim_model_changes_total{uri="/a/light"}`) {
		t.Errorf("model change counter missing from scrape")
	}
}

func TestWebSocket_ReceivesEvents(t *testing.T) {
	env := newTestEnv(t, testSecret)
	ts := httptest.NewServer(env.handler)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	if _, resp, err := websocket.DefaultDialer.Dial(wsURL, nil); err == nil {
		t.Fatal("dial without ticket succeeded")
	} else if resp != nil && resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("dial without ticket status = %d", resp.StatusCode)
	}

	ticket := env.srv.tickets.issue()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?ticket="+ticket, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	sub := Frame{Type: FrameSubscribe, ID: "1", Events: []string{telemetry.EventModelChanged}, URIs: []string{"/a/"}}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatal(err)
	}
	var ack Frame
	if err := conn.ReadJSON(&ack); err != nil || ack.Type != FrameAck || ack.ID != "1" {
		t.Fatalf("subscribe ack = %+v, %v", ack, err)
	}

	light, _ := env.engine.Resources().Get("/a/light")
	if err := light.UpdateModel(mustModel(t, `{"dim": 12}`)); err != nil {
		t.Fatal(err)
	}

	//nolint:errcheck // Test deadline
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Frame
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if ev.Type != FrameEvent || ev.Event == nil || ev.Event.Type != telemetry.EventModelChanged || ev.Event.URI != "/a/light" {
		t.Errorf("event = %+v", ev)
	}

	// Tickets are single-use.
	if _, _, err := websocket.DefaultDialer.Dial(wsURL+"?ticket="+ticket, nil); err == nil {
		t.Error("ticket reuse succeeded")
	}
}

func TestServer_StartClose(t *testing.T) {
	env := newTestEnv(t, "")
	srv, err := New(Deps{
		Config: config.APIConfig{Host: "127.0.0.1", Port: 0},
		Logger: logging.Discard(),
		Engine: env.engine,
	})
	if err != nil {
		t.Fatal(err)
	}
	if srv.Addr() != "" {
		t.Error("Addr() before Start is not empty")
	}
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	resp, err := http.Get("http://" + srv.Addr() + "/api/v1/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}

	// A second server on the same address fails in Start.
	_, portStr, _ := strings.Cut(srv.Addr(), ":")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatal(err)
	}
	clash, _ := New(Deps{Config: config.APIConfig{Host: "127.0.0.1", Port: port}, Logger: logging.Discard(), Engine: env.engine})
	if err := clash.Start(context.Background()); err == nil {
		clash.Close() //nolint:errcheck // Test cleanup
		t.Error("Start() on a bound port error = nil")
	}

	if err := srv.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestDomainStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("get: %w", simulator.ErrResourceNotFound), http.StatusNotFound},
		{client.ErrOperationInProgress, http.StatusConflict},
		{simulator.ErrRejectedValue, http.StatusBadRequest},
		{engine.ErrNoPlatform, http.StatusServiceUnavailable},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := domainStatus(tt.err); got != tt.want {
			t.Errorf("domainStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}

	rec := httptest.NewRecorder()
	writeDomainError(rec, client.ErrOperationInProgress)
	var body Error
	decode(t, rec, &body)
	if body.Status != http.StatusConflict || body.Code != "conflict" {
		t.Errorf("body = %+v", body)
	}
}

func TestMiddleware(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(t, http.MethodGet, "/api/v1/health", "", "X-Request-ID", "req-1", "Origin", "http://ui.local")
	if rec.Header().Get("X-Request-ID") != "req-1" {
		t.Errorf("X-Request-ID = %q, want echoed", rec.Header().Get("X-Request-ID"))
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://ui.local" {
		t.Error("CORS header missing with an empty allow list")
	}
	if rec = env.do(t, http.MethodGet, "/api/v1/health", ""); rec.Header().Get("X-Request-ID") == "" {
		t.Error("no request id assigned")
	}
	if rec = env.do(t, http.MethodOptions, "/api/v1/resources", ""); rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", rec.Code)
	}

	panicky := env.srv.accessLog(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rec = httptest.NewRecorder()
	panicky.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("panic status = %d, want 500", rec.Code)
	}
}

func TestFeed_Filters(t *testing.T) {
	f := newFeed(NewHub(config.WebSocketConfig{}, logging.Discard()), nil)
	light := telemetry.Event{Type: telemetry.EventModelChanged, URI: "/a/light"}
	fan := telemetry.Event{Type: telemetry.EventSessionStarted, URI: "/b/fan"}

	f.handle([]byte(`{"type":"subscribe","events":["*"]}`))
	if !f.matches(light) || !f.matches(fan) {
		t.Error("wildcard subscription not honoured")
	}

	f.handle([]byte(`{"type":"subscribe","uris":["/a/"]}`))
	if !f.matches(light) || f.matches(fan) {
		t.Error("uri prefix filter not honoured")
	}

	f.handle([]byte(`{"type":"unsubscribe","events":["*"]}`))
	if f.matches(light) {
		t.Error("unsubscribe did not remove event type")
	}

	f.handle([]byte(`not json`))
	f.handle([]byte(`{"type":"ping","id":"p"}`))

	var frames []Frame
	for len(f.out) > 0 {
		var fr Frame
		//nolint:errcheck // test drain
		json.Unmarshal(<-f.out, &fr)
		frames = append(frames, fr)
	}
	if len(frames) != 5 {
		t.Fatalf("got %d frames, want 5", len(frames))
	}
	if frames[3].Type != FrameError || frames[4].Type != FramePong || frames[4].ID != "p" {
		t.Errorf("frames = %+v", frames[3:])
	}
}

func TestHub_DropsWhenFull(t *testing.T) {
	hub := NewHub(config.WebSocketConfig{}, logging.Discard())
	f := newFeed(hub, nil)
	f.events[AllEvents] = true
	hub.add(f)

	for range feedBuffer + 3 {
		hub.Publish(telemetry.Event{Type: telemetry.EventModelChanged, URI: "/a/light"})
	}
	if hub.Dropped() != 3 {
		t.Errorf("Dropped() = %d, want 3", hub.Dropped())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	hub.Run(ctx)
	if hub.ClientCount() != 0 {
		t.Error("Run did not disconnect subscribers")
	}
	select {
	case <-f.done:
	default:
		t.Error("feed not stopped")
	}
}

func mustModel(t *testing.T, raw string) *schema.ResourceModel {
	t.Helper()
	m := schema.NewResourceModel()
	if err := json.Unmarshal([]byte(raw), m); err != nil {
		t.Fatal(err)
	}
	return m
}

func jsonInt(n int) string {
	b, _ := json.Marshal(n) //nolint:errcheck // ints always marshal
	return string(b)
}
