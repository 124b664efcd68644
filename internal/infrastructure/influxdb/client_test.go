package influxdb

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-simulator/internal/infrastructure/config"
)

// fakeSink records points instead of sending them.
type fakeSink struct {
	mu      sync.Mutex
	points  []*write.Point
	flushes int
}

func (f *fakeSink) WritePoint(p *write.Point) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.points = append(f.points, p)
}

func (f *fakeSink) Flush() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
}

func (f *fakeSink) lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.points))
	for _, p := range f.points {
		out = append(out, write.PointToLineProtocol(p, time.Nanosecond))
	}
	return out
}

func newTestClient() (*Client, *fakeSink) {
	sink := &fakeSink{}
	c := &Client{sink: sink, host: "sim-1"}
	c.open.Store(true)
	return c, sink
}

func TestConnect_Disabled(t *testing.T) {
	_, err := Connect(config.InfluxDBConfig{Enabled: false}, "sim-1")
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	if testing.Short() {
		t.Skip("dials a closed port")
	}
	_, err := Connect(config.InfluxDBConfig{
		Enabled: true,
		URL:     "http://127.0.0.1:1",
		Bucket:  "sim",
	}, "sim-1")
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestWriteAttribute(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"integer", 3, `value=3i`},
		{"double", 21.5, `value=21.5`},
		{"boolean", true, `value=true`},
		{"string", "warm", `text="warm"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, sink := newTestClient()
			client.WriteAttribute("/a/light", "level", tt.value)

			lines := sink.lines()
			if len(lines) != 1 {
				t.Fatalf("wrote %d points, want 1", len(lines))
			}
			line := lines[0]
			for _, want := range []string{MeasurementAttribute, "attribute=level", "host=sim-1", "uri=/a/light", tt.want} {
				if !strings.Contains(line, want) {
					t.Errorf("line %q missing %q", line, want)
				}
			}
		})
	}
}

func TestWriteAttribute_UnsupportedType(t *testing.T) {
	client, sink := newTestClient()
	client.WriteAttribute("/a/light", "levels", []int{1, 2})
	if n := len(sink.lines()); n != 0 {
		t.Errorf("wrote %d points for a list value, want 0", n)
	}
}

func TestWriteSession(t *testing.T) {
	client, sink := newTestClient()
	client.WriteSession(SessionSummary{
		Kind:     "request-get",
		URI:      "/a/light",
		ID:       7,
		State:    "complete",
		Applied:  4,
		Received: 4,
		Failures: 1,
		Duration: 1500 * time.Millisecond,
	})

	lines := sink.lines()
	if len(lines) != 1 {
		t.Fatalf("wrote %d points, want 1", len(lines))
	}
	for _, want := range []string{"kind=request-get", "state=complete", "session_id=7i", "applied=4i", "failures=1i", "duration_ms=1500i"} {
		if !strings.Contains(lines[0], want) {
			t.Errorf("line %q missing %q", lines[0], want)
		}
	}
}

func TestWrite_Disconnected(t *testing.T) {
	client, sink := newTestClient()
	client.open.Store(false)

	client.WriteAttribute("/a/light", "level", 1)
	client.WriteSession(SessionSummary{URI: "/a/light"})
	client.Flush()

	if len(sink.lines()) != 0 || sink.flushes != 0 {
		t.Error("disconnected client wrote or flushed")
	}
}

func TestHealthCheck_NotConnected(t *testing.T) {
	client := &Client{}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestClose_Nil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestWriteOptions(t *testing.T) {
	opts := writeOptions(config.InfluxDBConfig{})
	if opts.BatchSize() != defaultBatchSize || opts.FlushInterval() != 10000 {
		t.Errorf("defaults = (%d, %d)", opts.BatchSize(), opts.FlushInterval())
	}

	opts = writeOptions(config.InfluxDBConfig{BatchSize: 10, FlushInterval: 2})
	if opts.BatchSize() != 10 || opts.FlushInterval() != 2000 {
		t.Errorf("configured = (%d, %d)", opts.BatchSize(), opts.FlushInterval())
	}
}

type captureLogger struct {
	mu   sync.Mutex
	msgs []string
}

func (l *captureLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, msg)
}

func TestDrainErrors(t *testing.T) {
	client, _ := newTestClient()
	logger := &captureLogger{}
	client.SetLogger(logger)

	errs := make(chan error, 2)
	errs <- errors.New("bucket not found")
	errs <- errors.New("unauthorized")
	close(errs)
	client.drainErrors(errs)

	if client.FailedWrites() != 2 {
		t.Errorf("FailedWrites() = %d, want 2", client.FailedWrites())
	}
	if len(logger.msgs) != 2 {
		t.Errorf("logged %d errors, want 2", len(logger.msgs))
	}
}

func TestClose_Idempotent(t *testing.T) {
	client, sink := newTestClient()
	client.client = nil
	if err := client.Close(); err != nil {
		t.Fatal(err)
	}
	if sink.flushes != 0 || !client.IsConnected() {
		t.Error("Close without a server connection touched the sink")
	}
}
