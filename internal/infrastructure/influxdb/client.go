package influxdb

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-simulator/internal/infrastructure/config"
)

const (
	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second

	defaultBatchSize     = 100
	defaultFlushInterval = 10 * time.Second
)

// Logger receives asynchronous write failures. *logging.Logger satisfies it.
type Logger interface {
	Error(msg string, args ...any)
}

// pointSink is the part of api.WriteAPI the simulator writes through.
type pointSink interface {
	WritePoint(point *write.Point)
	Flush()
}

// Client writes simulator telemetry to an InfluxDB v2 bucket. Writes are
// batched and never block the caller. Every point carries a host tag naming
// the simulator that wrote it.
type Client struct {
	client influxdb2.Client
	sink   pointSink
	host   string

	open   atomic.Bool
	failed atomic.Int64

	mu     sync.Mutex
	logger Logger
}

// Connect pings the server and opens a batching write API on cfg.Bucket.
// It returns ErrDisabled when InfluxDB is turned off.
func Connect(cfg config.InfluxDBConfig, host string) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	raw := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, writeOptions(cfg))

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := ping(ctx, raw); err != nil {
		raw.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	writeAPI := raw.WriteAPI(cfg.Org, cfg.Bucket)
	c := &Client{client: raw, sink: writeAPI, host: host}
	c.open.Store(true)
	go c.drainErrors(writeAPI.Errors())
	return c, nil
}

// writeOptions maps batch size and flush interval (seconds) onto the
// client options, falling back to the library-style defaults for
// non-positive values.
func writeOptions(cfg config.InfluxDBConfig) *influxdb2.Options {
	batch := uint(defaultBatchSize)
	if cfg.BatchSize > 0 {
		batch = uint(cfg.BatchSize)
	}
	flush := defaultFlushInterval
	if cfg.FlushInterval > 0 {
		flush = time.Duration(cfg.FlushInterval) * time.Second
	}
	return influxdb2.DefaultOptions().
		SetBatchSize(batch).
		SetFlushInterval(uint(flush.Milliseconds())) // #nosec G115 -- positive
}

func ping(ctx context.Context, raw influxdb2.Client) error {
	ok, err := raw.Ping(ctx)
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	if !ok {
		return fmt.Errorf("server not healthy")
	}
	return nil
}

func (c *Client) drainErrors(errs <-chan error) {
	for err := range errs {
		c.failed.Add(1)
		c.mu.Lock()
		logger := c.logger
		c.mu.Unlock()
		if logger != nil {
			logger.Error("InfluxDB write error", "error", fmt.Errorf("%w: %w", ErrWriteFailed, err))
		}
	}
}

// SetLogger sets where asynchronous write failures are reported.
func (c *Client) SetLogger(logger Logger) {
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

// FailedWrites counts batches the server rejected since Connect.
func (c *Client) FailedWrites() int64 {
	return c.failed.Load()
}

// Close flushes pending points and closes the connection. Later writes are
// dropped.
func (c *Client) Close() error {
	if c.client == nil || !c.open.Swap(false) {
		return nil
	}
	c.sink.Flush()
	c.client.Close()
	return nil
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := ping(ctx, c.client); err != nil {
		return fmt.Errorf("influxdb health check failed: %w", err)
	}
	return nil
}

// IsConnected reports whether the client is open. It does not ping.
func (c *Client) IsConnected() bool {
	return c.open.Load()
}

// Flush blocks until buffered points are sent. No-op once closed.
func (c *Client) Flush() {
	if c.sink != nil && c.IsConnected() {
		c.sink.Flush()
	}
}
