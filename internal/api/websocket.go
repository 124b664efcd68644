package api

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-simulator/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-simulator/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-simulator/internal/telemetry"
)

// Frame types of the live event feed.
const (
	FrameSubscribe   = "subscribe"
	FrameUnsubscribe = "unsubscribe"
	FramePing        = "ping"
	FramePong        = "pong"
	FrameAck         = "ack"
	FrameEvent       = "event"
	FrameError       = "error"

	// AllEvents subscribes to every event type.
	AllEvents = "*"
)

const (
	feedBuffer = 256

	defaultPingInterval   = 30 * time.Second
	defaultPongTimeout    = 10 * time.Second
	defaultMaxMessageSize = 8192
)

// Frame is one message of the live feed, in either direction.
//
// A client subscribes with event types and, optionally, URI prefixes:
//
//	{"type":"subscribe","id":"1","events":["model.changed"],"uris":["/a/"]}
//
// and then receives
//
//	{"type":"event","event":{"type":"model.changed","uri":"/a/light",...}}
type Frame struct {
	Type   string           `json:"type"`
	ID     string           `json:"id,omitempty"`
	Events []string         `json:"events,omitempty"`
	URIs   []string         `json:"uris,omitempty"`
	Event  *telemetry.Event `json:"event,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// Hub fans telemetry events out to WebSocket subscribers. It implements
// telemetry.EventPublisher. Slow subscribers lose events rather than
// stall the publisher.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	mu    sync.RWMutex
	feeds map[*feed]struct{}

	dropped atomic.Int64
}

// feed is one connected subscriber.
type feed struct {
	hub  *Hub
	conn *websocket.Conn
	out  chan []byte
	done chan struct{}
	once sync.Once

	mu     sync.RWMutex
	events map[string]bool
	uris   []string
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are checked by the CORS middleware.
	CheckOrigin: func(*http.Request) bool { return true },
}

// NewHub creates a hub with no subscribers.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{cfg: cfg, logger: logger, feeds: make(map[*feed]struct{})}
}

// Run blocks until ctx is cancelled, then disconnects every subscriber.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	feeds := h.feeds
	h.feeds = make(map[*feed]struct{})
	h.mu.Unlock()

	for f := range feeds {
		f.stop()
	}
}

// Publish delivers ev to every subscriber whose filters match it.
func (h *Hub) Publish(ev telemetry.Event) {
	data, err := json.Marshal(Frame{Type: FrameEvent, Event: &ev})
	if err != nil {
		h.logger.Error("encoding event frame", "error", err, "event", ev.Type)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for f := range h.feeds {
		if f.matches(ev) && !f.offer(data) {
			h.dropped.Add(1)
		}
	}
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.feeds)
}

// Dropped counts events discarded because a subscriber's buffer was full.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

func (h *Hub) add(f *feed) {
	h.mu.Lock()
	h.feeds[f] = struct{}{}
	n := len(h.feeds)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", n)
}

func (h *Hub) remove(f *feed) {
	h.mu.Lock()
	delete(h.feeds, f)
	n := len(h.feeds)
	h.mu.Unlock()
	f.stop()
	h.logger.Debug("websocket client disconnected", "clients", n)
}

func (h *Hub) timings() (ping, pong time.Duration, maxSize int64) {
	ping, pong, maxSize = defaultPingInterval, defaultPongTimeout, defaultMaxMessageSize
	if h.cfg.PingInterval > 0 {
		ping = time.Duration(h.cfg.PingInterval) * time.Second
	}
	if h.cfg.PongTimeout > 0 {
		pong = time.Duration(h.cfg.PongTimeout) * time.Second
	}
	if h.cfg.MaxMessageSize > 0 {
		maxSize = int64(h.cfg.MaxMessageSize)
	}
	return ping, pong, maxSize
}

// handleWebSocket upgrades to the live feed. A single-use ticket from
// POST /api/v1/auth/ws-ticket is required when authentication is on.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.secCfg.JWT.Secret != "" {
		ticket := r.URL.Query().Get("ticket")
		if ticket == "" || !s.tickets.consume(ticket) {
			writeUnauthorized(w, "valid ticket query parameter is required")
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	f := newFeed(s.hub, conn)
	s.hub.add(f)
	go f.write()
	go f.read()
}

func newFeed(h *Hub, conn *websocket.Conn) *feed {
	return &feed{
		hub:    h,
		conn:   conn,
		out:    make(chan []byte, feedBuffer),
		done:   make(chan struct{}),
		events: make(map[string]bool),
	}
}

func (f *feed) stop() {
	f.once.Do(func() { close(f.done) })
}

// offer queues data without blocking. It reports false when the frame was
// dropped.
func (f *feed) offer(data []byte) bool {
	select {
	case <-f.done:
		return true
	default:
	}
	select {
	case f.out <- data:
		return true
	default:
		return false
	}
}

func (f *feed) matches(ev telemetry.Event) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.events[AllEvents] && !f.events[ev.Type] {
		return false
	}
	return len(f.uris) == 0 || slices.ContainsFunc(f.uris, func(p string) bool {
		return strings.HasPrefix(ev.URI, p)
	})
}

func (f *feed) read() {
	defer func() {
		f.hub.remove(f)
		f.conn.Close()
	}()

	ping, pong, maxSize := f.hub.timings()
	deadline := func() error { return f.conn.SetReadDeadline(time.Now().Add(ping + pong)) }
	f.conn.SetReadLimit(maxSize)
	deadline() //nolint:errcheck // a failed deadline surfaces on read
	f.conn.SetPongHandler(func(string) error { return deadline() })

	for {
		_, data, err := f.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				f.hub.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		deadline() //nolint:errcheck // a failed deadline surfaces on read
		f.handle(data)
	}
}

func (f *feed) write() {
	ping, pong, _ := f.hub.timings()
	ticker := time.NewTicker(ping)
	defer func() {
		ticker.Stop()
		f.conn.Close()
	}()

	send := func(kind int, data []byte) error {
		f.conn.SetWriteDeadline(time.Now().Add(pong)) //nolint:errcheck // surfaces on write
		return f.conn.WriteMessage(kind, data)
	}

	for {
		select {
		case data := <-f.out:
			if send(websocket.TextMessage, data) != nil {
				return
			}
		case <-ticker.C:
			if send(websocket.PingMessage, nil) != nil {
				return
			}
		case <-f.done:
			send(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "")) //nolint:errcheck // closing anyway
			return
		}
	}
}

// handle applies one client frame.
func (f *feed) handle(data []byte) {
	var in Frame
	if err := json.Unmarshal(data, &in); err != nil {
		f.reply(Frame{Type: FrameError, Error: "invalid JSON frame"})
		return
	}

	switch in.Type {
	case FrameSubscribe:
		f.mu.Lock()
		for _, e := range in.Events {
			f.events[e] = true
		}
		if len(in.URIs) > 0 {
			f.uris = slices.Clone(in.URIs)
		}
		f.mu.Unlock()
		f.reply(Frame{Type: FrameAck, ID: in.ID, Events: in.Events, URIs: in.URIs})
	case FrameUnsubscribe:
		f.mu.Lock()
		for _, e := range in.Events {
			delete(f.events, e)
		}
		if len(f.events) == 0 {
			f.uris = nil
		}
		f.mu.Unlock()
		f.reply(Frame{Type: FrameAck, ID: in.ID, Events: in.Events})
	case FramePing:
		f.reply(Frame{Type: FramePong, ID: in.ID})
	default:
		f.reply(Frame{Type: FrameError, ID: in.ID, Error: "unknown frame type: " + in.Type})
	}
}

func (f *feed) reply(fr Frame) {
	if data, err := json.Marshal(fr); err == nil {
		f.offer(data)
	}
}
