package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-simulator/internal/client"
	"github.com/nerrad567/gray-logic-simulator/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-simulator/internal/schema"
	"github.com/nerrad567/gray-logic-simulator/internal/simulator"
)

// DefaultRequestTimeout bounds the wait for a response.
const DefaultRequestTimeout = 5 * time.Second

// Bus is the publish/subscribe surface the platform needs.
// *mqtt.Client implements it.
type Bus interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Logger defines the logging interface used by the platform.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config configures a Platform.
type Config struct {
	// Host is this simulator's identity on the bus. It must be a single
	// topic level.
	Host           string
	Topics         mqtt.Topics
	QoS            byte
	RequestTimeout time.Duration
	Logger         Logger
}

type hostedResource struct {
	desc    simulator.Descriptor
	handler simulator.RequestHandler
}

type pendingRequest struct {
	handler client.ResponseHandler
	method  string
	stop    func() bool
}

type observeKey struct {
	uri, id string
}

// Platform is the MQTT hosting and transport adapter.
//
// Thread Safety: all methods are safe for concurrent use.
type Platform struct {
	bus     Bus
	host    string
	topics  mqtt.Topics
	qos     byte
	timeout time.Duration
	logger  Logger

	mu         sync.Mutex
	started    bool
	hosted     map[string]hostedResource
	pending    map[string]pendingRequest
	observes   map[observeKey]client.NotifyHandler
	discovered map[string]client.RemoteInfo // by discovery topic
}

// New creates a Platform on bus. Call Start before use.
func New(bus Bus, cfg Config) (*Platform, error) {
	if !mqtt.ValidSegment(cfg.Host) {
		return nil, fmt.Errorf("platform: invalid host %q", cfg.Host)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Topics.Prefix == "" {
		cfg.Topics = mqtt.NewTopics("")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Platform{
		bus:        bus,
		host:       cfg.Host,
		topics:     cfg.Topics,
		qos:        cfg.QoS,
		timeout:    cfg.RequestTimeout,
		logger:     logger,
		hosted:     make(map[string]hostedResource),
		pending:    make(map[string]pendingRequest),
		observes:   make(map[observeKey]client.NotifyHandler),
		discovered: make(map[string]client.RemoteInfo),
	}, nil
}

// Host returns this simulator's identity on the bus.
func (p *Platform) Host() string { return p.host }

// subscriptions lists the filters Start subscribes to.
func (p *Platform) subscriptions() map[string]mqtt.MessageHandler {
	return map[string]mqtt.MessageHandler{
		p.topics.Request(p.host):  p.handleRequest,
		p.topics.Response(p.host): p.handleResponse,
		p.topics.Notify(p.host):   p.handleNotify,
		p.topics.AllDiscovery():   p.handleAnnouncement,
		p.topics.Status("+"):      p.handleStatus,
	}
}

// Start subscribes to this host's request, response and notify topics and
// to discovery.
func (p *Platform) Start(_ context.Context) error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return nil
	}
	p.started = true
	p.mu.Unlock()

	for topic, handler := range p.subscriptions() {
		if err := p.bus.Subscribe(topic, p.qos, handler); err != nil {
			p.Close(context.Background()) //nolint:errcheck // best effort rollback
			return fmt.Errorf("subscribing %s: %w", topic, err)
		}
	}
	p.logger.Info("platform started", "host", p.host)
	return nil
}

// Close withdraws every hosted announcement, unsubscribes and completes
// pending requests with ErrClosed.
func (p *Platform) Close(_ context.Context) error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return nil
	}
	p.started = false
	uris := make([]string, 0, len(p.hosted))
	for uri := range p.hosted {
		uris = append(uris, uri)
	}
	p.hosted = make(map[string]hostedResource)
	pending := p.pending
	p.pending = make(map[string]pendingRequest)
	p.observes = make(map[observeKey]client.NotifyHandler)
	p.mu.Unlock()

	var errs []error
	for _, uri := range uris {
		if err := p.withdraw(uri); err != nil {
			errs = append(errs, err)
		}
	}
	for topic := range p.subscriptions() {
		if err := p.bus.Unsubscribe(topic); err != nil {
			errs = append(errs, fmt.Errorf("unsubscribing %s: %w", topic, err))
		}
	}
	for _, req := range pending {
		req.stop()
		req.handler(client.Response{}, ErrClosed)
	}
	return errors.Join(errs...)
}

// =============================================================================
// Hosting (simulator.Platform)
// =============================================================================

// Register announces desc and routes its requests to h.
func (p *Platform) Register(_ context.Context, desc simulator.Descriptor, h simulator.RequestHandler) error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return ErrNotStarted
	}
	if _, ok := p.hosted[desc.URI]; ok {
		p.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyHosted, desc.URI)
	}
	p.hosted[desc.URI] = hostedResource{desc: desc, handler: h}
	p.mu.Unlock()

	body, err := json.Marshal(announcement{
		URI:           desc.URI,
		Host:          p.host,
		Name:          desc.Name,
		ResourceTypes: []string{desc.ResourceType},
		Interfaces:    desc.Interfaces,
		Observable:    desc.Observable,
	})
	if err == nil {
		err = p.bus.Publish(p.topics.Discovery(p.host, desc.URI), body, p.qos, true)
	}
	if err != nil {
		p.mu.Lock()
		delete(p.hosted, desc.URI)
		p.mu.Unlock()
		return fmt.Errorf("announcing %s: %w", desc.URI, err)
	}
	p.logger.Debug("resource registered", "uri", desc.URI)
	return nil
}

// Unregister stops routing requests to uri and clears its announcement.
func (p *Platform) Unregister(_ context.Context, uri string) error {
	p.mu.Lock()
	_, ok := p.hosted[uri]
	delete(p.hosted, uri)
	p.mu.Unlock()

	if !ok {
		return nil
	}
	return p.withdraw(uri)
}

// withdraw clears the retained announcement of uri.
func (p *Platform) withdraw(uri string) error {
	if err := p.bus.Publish(p.topics.Discovery(p.host, uri), nil, p.qos, true); err != nil {
		return fmt.Errorf("withdrawing %s: %w", uri, err)
	}
	return nil
}

// Notify sends rep to every observer at its own notify topic.
func (p *Platform) Notify(uri string, observers []simulator.ObserverInfo, rep *schema.ResourceModel) error {
	var errs []error
	for _, o := range observers {
		if !mqtt.ValidSegment(o.Address) {
			continue
		}
		body, err := json.Marshal(notifyMessage{URI: uri, ObserverID: o.ID, Payload: rep})
		if err != nil {
			return fmt.Errorf("encoding notification: %w", err)
		}
		if err := p.bus.Publish(p.topics.Notify(o.Address), body, p.qos, false); err != nil {
			errs = append(errs, fmt.Errorf("notifying %s: %w", o.ID, err))
		}
	}
	return errors.Join(errs...)
}

// handleRequest serves a request addressed to this host.
func (p *Platform) handleRequest(_ string, payload []byte) error {
	var req requestMessage
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("decoding request: %w", err)
	}
	if !mqtt.ValidSegment(req.ReplyTo) {
		return fmt.Errorf("request %s has no valid reply_to", req.ID)
	}

	p.mu.Lock()
	res, ok := p.hosted[req.URI]
	p.mu.Unlock()

	resp := responseMessage{ID: req.ID}
	if !ok {
		resp.Code = client.CodeNotFound
		resp.Error = "no such resource"
	} else {
		p.serve(res, req, &resp)
	}

	body, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encoding response: %w", err)
	}
	return p.bus.Publish(p.topics.Response(req.ReplyTo), body, p.qos, false)
}

func (p *Platform) serve(res hostedResource, req requestMessage, resp *responseMessage) {
	var (
		rep  *schema.ResourceModel
		err  error
		code = client.CodeOK
	)
	switch req.Op {
	case string(client.MethodGet):
		rep, err = res.handler.HandleGet(req.Query)
	case string(client.MethodPut), string(client.MethodPost):
		if req.Payload == nil {
			err = fmt.Errorf("%w: missing representation", simulator.ErrInvalidArgument)
			break
		}
		code = client.CodeChanged
		if req.Op == string(client.MethodPut) {
			rep, err = res.handler.HandlePut(req.Query, req.Payload)
		} else {
			rep, err = res.handler.HandlePost(req.Query, req.Payload)
		}
	case opObserve:
		if !res.desc.Observable || req.ObserverID == "" {
			err = fmt.Errorf("%w: not observable", simulator.ErrInvalidArgument)
			break
		}
		res.handler.AddObserver(simulator.ObserverInfo{ID: req.ObserverID, Address: req.ReplyTo})
		rep, err = res.handler.HandleGet(req.Query)
	case opCancelObserve:
		res.handler.RemoveObserver(req.ObserverID)
	default:
		err = fmt.Errorf("%w: unknown operation %q", simulator.ErrInvalidArgument, req.Op)
	}

	if err != nil {
		resp.Code = errorCode(err)
		resp.Error = err.Error()
		return
	}
	resp.Code = code
	resp.Payload = rep
}

// errorCode maps a handler error to a response code.
func errorCode(err error) int {
	switch {
	case errors.Is(err, simulator.ErrRejectedValue),
		errors.Is(err, simulator.ErrUnknownAttribute),
		errors.Is(err, simulator.ErrInvalidArgument):
		return client.CodeBadRequest
	case errors.Is(err, simulator.ErrResourceNotFound):
		return client.CodeNotFound
	default:
		return client.CodeError
	}
}

// =============================================================================
// Remote access (client.Transport)
// =============================================================================

// Transport returns a client.Transport addressing resources on host.
func (p *Platform) Transport(host string) client.Transport {
	return hostTransport{p: p, host: host}
}

type hostTransport struct {
	p    *Platform
	host string
}

func (t hostTransport) Send(ctx context.Context, req client.Request, handler client.ResponseHandler) error {
	return t.p.send(ctx, t.host, requestMessage{
		ID:      req.ID,
		Op:      string(req.Method),
		URI:     req.URI,
		Query:   req.Query,
		Payload: req.Payload,
	}, handler)
}

func (t hostTransport) Observe(ctx context.Context, uri, observerID string, handler client.NotifyHandler) error {
	key := observeKey{uri: uri, id: observerID}
	t.p.mu.Lock()
	t.p.observes[key] = handler
	t.p.mu.Unlock()

	_, err := t.p.call(ctx, t.host, requestMessage{Op: opObserve, URI: uri, ObserverID: observerID})
	if err != nil {
		t.p.mu.Lock()
		delete(t.p.observes, key)
		t.p.mu.Unlock()
		return err
	}
	return nil
}

func (t hostTransport) CancelObserve(ctx context.Context, uri, observerID string) error {
	t.p.mu.Lock()
	delete(t.p.observes, observeKey{uri: uri, id: observerID})
	t.p.mu.Unlock()

	_, err := t.p.call(ctx, t.host, requestMessage{Op: opCancelObserve, URI: uri, ObserverID: observerID})
	return err
}

// send publishes msg to host. When it returns nil, handler is called
// exactly once: with the response, with ErrTimeout, with the context's
// error, or with ErrClosed.
func (p *Platform) send(ctx context.Context, host string, msg requestMessage, handler client.ResponseHandler) error {
	if handler == nil {
		return fmt.Errorf("platform: nil response handler")
	}
	if !mqtt.ValidSegment(host) {
		return fmt.Errorf("platform: invalid host %q", host)
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.ReplyTo = p.host

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return ErrNotStarted
	}
	timer := time.AfterFunc(p.timeout, func() { p.expire(msg.ID, ErrTimeout) })
	stopCtx := context.AfterFunc(ctx, func() { p.expire(msg.ID, ctx.Err()) })
	p.pending[msg.ID] = pendingRequest{
		handler: handler,
		method:  msg.Op,
		stop: func() bool {
			stopCtx()
			return timer.Stop()
		},
	}
	p.mu.Unlock()

	if err := p.bus.Publish(p.topics.Request(host), body, p.qos, false); err != nil {
		if req, ok := p.take(msg.ID); ok {
			req.stop()
			return fmt.Errorf("publishing request: %w", err)
		}
		// Already completed by timeout or close; the handler has run.
		return nil
	}
	return nil
}

// call sends msg and waits for the response. A non-success code is an
// ErrRejected error.
func (p *Platform) call(ctx context.Context, host string, msg requestMessage) (client.Response, error) {
	type result struct {
		resp client.Response
		err  error
	}
	done := make(chan result, 1)
	err := p.send(ctx, host, msg, func(resp client.Response, err error) {
		done <- result{resp, err}
	})
	if err != nil {
		return client.Response{}, err
	}

	r := <-done
	if r.err != nil {
		return r.resp, r.err
	}
	if !r.resp.OK() {
		return r.resp, fmt.Errorf("%w: %s %s answered %d", ErrRejected, msg.Op, msg.URI, r.resp.Code)
	}
	return r.resp, nil
}

// take removes and returns a pending request.
func (p *Platform) take(id string) (pendingRequest, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	req, ok := p.pending[id]
	if ok {
		delete(p.pending, id)
	}
	return req, ok
}

func (p *Platform) expire(id string, cause error) {
	req, ok := p.take(id)
	if !ok {
		return
	}
	req.stop()
	p.logger.Debug("request expired", "id", id, "op", req.method, "error", cause)
	req.handler(client.Response{}, cause)
}

func (p *Platform) handleResponse(_ string, payload []byte) error {
	var msg responseMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	req, ok := p.take(msg.ID)
	if !ok {
		p.logger.Debug("dropping late or unknown response", "id", msg.ID)
		return nil
	}
	req.stop()
	req.handler(msg.response(), nil)
	return nil
}

func (p *Platform) handleNotify(_ string, payload []byte) error {
	var msg notifyMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("decoding notification: %w", err)
	}
	p.mu.Lock()
	handler, ok := p.observes[observeKey{uri: msg.URI, id: msg.ObserverID}]
	p.mu.Unlock()
	if !ok {
		return nil
	}
	handler(msg.URI, msg.Payload)
	return nil
}

// =============================================================================
// Discovery
// =============================================================================

func (p *Platform) handleAnnouncement(topic string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(payload) == 0 {
		delete(p.discovered, topic)
		return nil
	}
	var info client.RemoteInfo
	if err := json.Unmarshal(payload, &info); err != nil {
		return fmt.Errorf("decoding announcement: %w", err)
	}
	if info.URI == "" || !mqtt.ValidSegment(info.Host) {
		return fmt.Errorf("announcement on %s lacks uri or host", topic)
	}
	p.discovered[topic] = info
	return nil
}

func (p *Platform) handleStatus(_ string, payload []byte) error {
	msg, err := mqtt.ParseStatus(payload)
	if err != nil {
		return err
	}
	if !msg.Offline() {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for topic, info := range p.discovered {
		if info.Host == msg.ClientID {
			delete(p.discovered, topic)
		}
	}
	return nil
}

// Discover waits for announcements to arrive and returns the resources
// hosted by other simulators, ordered by host and URI. Type filters by
// resource type when non-empty.
func (p *Platform) Discover(ctx context.Context, wait time.Duration, resourceType string) ([]client.RemoteInfo, error) {
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if !started {
		return nil, ErrNotStarted
	}

	if wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]client.RemoteInfo, 0, len(p.discovered))
	for _, info := range p.discovered {
		if info.Host == p.host {
			continue
		}
		if resourceType != "" && !slices.Contains(info.ResourceTypes, resourceType) {
			continue
		}
		out = append(out, info)
	}
	slices.SortFunc(out, func(a, b client.RemoteInfo) int {
		if c := strings.Compare(a.Host, b.Host); c != 0 {
			return c
		}
		return strings.Compare(a.URI, b.URI)
	})
	return out, nil
}
