package client

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// RequestManager is the registry of a remote resource's automatic request
// sessions. At most one session per method is active at a time.
//
// Thread Safety: all methods are safe for concurrent use. The registry lock
// is never held while a session is joined or a callback runs.
type RequestManager struct {
	mu       sync.Mutex
	sessions map[int]*RequestGenerator
	active   map[Method]int
	nextID   int
	reporter Reporter
	logger   Logger
}

// NewRequestManager creates an empty manager.
func NewRequestManager(reporter Reporter, logger Logger) *RequestManager {
	if reporter == nil {
		reporter = noopReporter{}
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &RequestManager{
		sessions: make(map[int]*RequestGenerator),
		active:   make(map[Method]int),
		nextID:   1,
		reporter: reporter,
		logger:   logger,
	}
}

// Start begins a session sending every request the model describes to uri.
//
// It returns ErrOperationInProgress if a session of the same method is
// active, and ErrInvalidArgument for a nil callback or an unusable model.
func (m *RequestManager) Start(uri string, model *RequestModel, transport Transport, cb AutoRequestCallback) (int, error) {
	if cb == nil {
		return 0, fmt.Errorf("%w: nil callback", ErrInvalidArgument)
	}
	if model == nil {
		return 0, ErrNoRequestModel
	}
	if transport == nil {
		return 0, fmt.Errorf("%w: nil transport", ErrInvalidArgument)
	}
	if err := model.Validate(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	if id, busy := m.active[model.Method]; busy {
		m.mu.Unlock()
		return 0, fmt.Errorf("%w: %s session %d", ErrOperationInProgress, model.Method, id)
	}
	ctx, cancel := context.WithCancel(context.Background())
	id := m.nextID
	m.nextID++
	g := &RequestGenerator{
		id:        id,
		uri:       uri,
		model:     model.clone(),
		transport: transport,
		callback:  cb,
		retire:    m.retire,
		reporter:  m.reporter,
		logger:    m.logger,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	m.sessions[id] = g
	m.active[model.Method] = id
	m.mu.Unlock()

	m.logger.Info("request session started", "uri", uri, "session_id", id, "method", model.Method)
	g.start(ctx)
	return id, nil
}

// retire removes a finished session and releases its method. It tolerates
// ids already removed by Stop.
func (m *RequestManager) retire(id int, method Method) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	if m.active[method] == id {
		delete(m.active, method)
	}
}

// Stop stops a session and blocks until its dispatch goroutine has exited.
// The session's Abort callback follows once outstanding responses arrive;
// until then its method stays reserved and Start of the same method fails
// with ErrOperationInProgress. Unknown ids are ignored.
func (m *RequestManager) Stop(id int) {
	m.mu.Lock()
	g, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		g.stop()
	}
}

// StopAll stops every session. Methods are released as each session
// finishes, as with Stop.
func (m *RequestManager) StopAll() {
	m.mu.Lock()
	all := make([]*RequestGenerator, 0, len(m.sessions))
	for id, g := range m.sessions {
		all = append(all, g)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, g := range all {
		g.stop()
	}
}

// ActiveID returns the id of the session holding method. A stopped session
// holds it until its Abort callback.
func (m *RequestManager) ActiveID(method Method) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.active[method]
	return id, ok
}

// Sessions returns snapshots of the active sessions ordered by id.
func (m *RequestManager) Sessions() []SessionReport {
	m.mu.Lock()
	all := make([]*RequestGenerator, 0, len(m.sessions))
	for _, g := range m.sessions {
		all = append(all, g)
	}
	m.mu.Unlock()

	out := make([]SessionReport, len(all))
	for i, g := range all {
		out[i] = g.Report()
	}
	slices.SortFunc(out, func(a, b SessionReport) int { return a.ID - b.ID })
	return out
}
