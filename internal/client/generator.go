package client

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-simulator/internal/generator"
	"github.com/nerrad567/gray-logic-simulator/internal/schema"
)

// RequestGenerator is one automatic request session.
//
// A dispatch goroutine walks the query parameter combinations (outer loop)
// and, for PUT and POST, the payload combinations (inner loop), sending each
// request through the transport without waiting for its response. The
// session finishes exactly once, when the loops are over (exhausted,
// stopped or failed) and every sent request has been answered.
type RequestGenerator struct {
	id        int
	uri       string
	model     *RequestModel
	transport Transport
	callback  AutoRequestCallback
	retire    func(id int, method Method)
	reporter  Reporter
	logger    Logger

	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	sent      int
	received  int
	failures  int
	loopDone  bool
	stopped   bool
	dispatch  error
	finished  bool
	startedAt time.Time
}

// ID returns the session id.
func (g *RequestGenerator) ID() int { return g.id }

// Method returns the request method of the session.
func (g *RequestGenerator) Method() Method { return g.model.Method }

// Report returns a snapshot of the session counters.
func (g *RequestGenerator) Report() SessionReport {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.reportLocked()
}

func (g *RequestGenerator) reportLocked() SessionReport {
	r := SessionReport{
		ID:        g.id,
		Method:    g.model.Method,
		URI:       g.uri,
		Sent:      g.sent,
		Received:  g.received,
		Failures:  g.failures,
		StartedAt: g.startedAt,
	}
	if g.dispatch != nil {
		r.Error = g.dispatch.Error()
	}
	return r
}

func (g *RequestGenerator) start(ctx context.Context) {
	g.mu.Lock()
	g.startedAt = time.Now().UTC()
	g.mu.Unlock()
	go g.run(ctx)
}

// stop requests termination and joins the dispatch goroutine. Responses
// still outstanding are awaited asynchronously before the Abort callback.
func (g *RequestGenerator) stop() {
	g.mu.Lock()
	g.stopped = true
	g.mu.Unlock()
	g.cancel()
	<-g.done
}

func (g *RequestGenerator) run(ctx context.Context) {
	defer close(g.done)

	g.callback(g.uri, g.id, StateStart)

	for query, payload := range g.requests() {
		if ctx.Err() != nil {
			break
		}
		if err := g.send(ctx, query, payload); err != nil {
			g.logger.Warn("request dispatch failed",
				"uri", g.uri,
				"session_id", g.id,
				"method", g.model.Method,
				"error", err,
			)
			break
		}
	}

	g.mu.Lock()
	g.loopDone = true
	fire := g.finishLocked()
	g.mu.Unlock()
	g.complete(fire)
}

// requests yields every (query, payload) pair of the session in order.
// GET requests carry no payload.
func (g *RequestGenerator) requests() iter.Seq2[map[string]string, *schema.ResourceModel] {
	return func(yield func(map[string]string, *schema.ResourceModel) bool) {
		for query := range generator.StringCombinations(g.model.QueryParams) {
			if g.model.Method == MethodGet {
				if !yield(query, nil) {
					return
				}
				continue
			}
			for payload := range payloads(g.model.Payload) {
				if !yield(query, payload) {
					return
				}
			}
		}
	}
}

// payloads yields the payload defaults overlaid with each combination of
// the enumerable payload attributes. With nothing to enumerate the defaults
// are yielded once.
func payloads(p *schema.ModelProperty) iter.Seq[*schema.ResourceModel] {
	return func(yield func(*schema.ResourceModel) bool) {
		base := p.BuildModel()
		attrs := generator.AttributesFor(p)
		if len(attrs) == 0 {
			yield(base)
			return
		}
		for combo := range generator.NewCombinations(attrs).All() {
			rep := base.Clone()
			for _, name := range combo.AttributeNames() {
				v, _ := combo.Get(name)
				rep.Set(name, v)
			}
			if !yield(rep) {
				return
			}
		}
	}
}

func (g *RequestGenerator) send(ctx context.Context, query map[string]string, payload *schema.ResourceModel) error {
	req := Request{
		ID:      uuid.New().String(),
		Method:  g.model.Method,
		URI:     g.uri,
		Query:   query,
		Payload: payload,
	}

	g.mu.Lock()
	g.sent++
	g.mu.Unlock()

	if err := g.transport.Send(ctx, req, g.onResponse); err != nil {
		g.mu.Lock()
		g.sent--
		g.dispatch = fmt.Errorf("sending %s %s: %w", req.Method, req.URI, err)
		g.mu.Unlock()
		return err
	}
	g.reporter.RequestSent(g.model.Method)
	return nil
}

func (g *RequestGenerator) onResponse(resp Response, err error) {
	g.reporter.ResponseReceived(g.model.Method, resp.Code, err)

	g.mu.Lock()
	g.received++
	if err != nil || !resp.OK() {
		g.failures++
	}
	fire := g.finishLocked()
	g.mu.Unlock()
	g.complete(fire)
}

// finishLocked decides whether this call finishes the session. It returns
// true exactly once.
func (g *RequestGenerator) finishLocked() bool {
	if g.finished || !g.loopDone || g.sent != g.received {
		return false
	}
	g.finished = true
	return true
}

func (g *RequestGenerator) complete(fire bool) {
	if !fire {
		return
	}
	g.cancel()

	g.mu.Lock()
	report := g.reportLocked()
	report.FinishedAt = time.Now().UTC()
	report.State = StateComplete
	if g.stopped || g.dispatch != nil {
		report.State = StateAbort
	}
	g.mu.Unlock()

	g.logger.Info("request session finished",
		"uri", g.uri,
		"session_id", g.id,
		"method", report.Method,
		"state", report.State,
		"sent", report.Sent,
		"failures", report.Failures,
	)

	g.retire(g.id, g.model.Method)
	g.reporter.SessionFinished(report)
	g.callback(g.uri, g.id, report.State)
}
