package simulator

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-simulator/internal/generator"
)

// UpdateManager is the registry of a resource's update sessions.
//
// Any number of sessions may run concurrently on one resource. Session IDs
// increase monotonically and are never reused.
//
// Thread Safety: all methods are safe for concurrent use. The registry lock
// is never held while a session is joined or while resource code runs.
type UpdateManager struct {
	mu       sync.Mutex
	sessions map[int]*UpdateSession
	nextID   int
	reporter Reporter
	logger   Logger
}

// NewUpdateManager creates an empty manager.
func NewUpdateManager(reporter Reporter, logger Logger) *UpdateManager {
	if reporter == nil {
		reporter = noopReporter{}
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &UpdateManager{
		sessions: make(map[int]*UpdateSession),
		nextID:   1,
		reporter: reporter,
		logger:   logger,
	}
}

// sessionSpec carries everything a new session needs.
type sessionSpec struct {
	kind      SessionKind
	uri       string
	attribute string
	mode      UpdateMode
	interval  time.Duration
	attrs     func() []*generator.AttributeGenerator
	apply     applyFunc
	callback  UpdateCallback
}

func (m *UpdateManager) start(spec sessionSpec) int {
	ctx, cancel := context.WithCancel(context.Background())

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	s := &UpdateSession{
		id:        id,
		kind:      spec.kind,
		uri:       spec.uri,
		attribute: spec.attribute,
		mode:      spec.mode,
		interval:  spec.interval,
		attrs:     spec.attrs,
		apply:     spec.apply,
		callback:  spec.callback,
		retire:    m.retire,
		reporter:  m.reporter,
		logger:    m.logger,
		cancel:    cancel,
		done:      make(chan struct{}),
		state:     StateIdle,
	}
	m.sessions[id] = s
	m.mu.Unlock()

	m.logger.Info("update session started",
		"uri", spec.uri,
		"session_id", id,
		"kind", spec.kind,
		"attribute", spec.attribute,
		"mode", spec.mode,
	)
	s.start(ctx)
	return id
}

// retire removes a session that finished on its own. Removing an unknown
// id is a no-op, so it races safely with Stop.
func (m *UpdateManager) retire(id int) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Stop stops a session and blocks until its goroutine has exited. Unknown
// ids are ignored.
func (m *UpdateManager) Stop(id int) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return
	}
	s.stop()
}

// StopAll stops every session and waits for all of them.
func (m *UpdateManager) StopAll() {
	m.mu.Lock()
	sessions := make([]*UpdateSession, 0, len(m.sessions))
	for id, s := range m.sessions {
		sessions = append(sessions, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.cancel()
	}
	for _, s := range sessions {
		<-s.done
	}
}

// Session returns the session with the given id.
func (m *UpdateManager) Session(id int) (*UpdateSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// AttributeSessionIDs returns the ids of running attribute-update sessions.
func (m *UpdateManager) AttributeSessionIDs() []int {
	return m.idsOf(KindAttributeUpdate)
}

// ResourceSessionIDs returns the ids of running resource-update sessions.
func (m *UpdateManager) ResourceSessionIDs() []int {
	return m.idsOf(KindResourceUpdate)
}

// Sessions returns snapshots of all live sessions ordered by id.
func (m *UpdateManager) Sessions() []SessionInfo {
	m.mu.Lock()
	sessions := make([]*UpdateSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	out := make([]SessionInfo, len(sessions))
	for i, s := range sessions {
		out[i] = s.Info()
	}
	slices.SortFunc(out, func(a, b SessionInfo) int { return a.ID - b.ID })
	return out
}

func (m *UpdateManager) idsOf(kind SessionKind) []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int
	for id, s := range m.sessions {
		if s.kind == kind {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}
