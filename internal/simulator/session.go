package simulator

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-simulator/internal/generator"
	"github.com/nerrad567/gray-logic-simulator/internal/schema"
)

// applyFunc writes one combination to the live resource.
type applyFunc func(m *schema.ResourceModel) error

// UpdateSession is one background loop applying generated combinations to
// a resource.
//
// Lifecycle: Idle → Running → Completed | Stopped | Aborted.
//
// The loop applies a combination, then waits for the interval or a stop,
// whichever comes first. The resource lock is held only inside apply.
// stop cancels the loop and blocks until the goroutine has exited.
type UpdateSession struct {
	id        int
	kind      SessionKind
	uri       string
	attribute string
	mode      UpdateMode
	interval  time.Duration

	attrs    func() []*generator.AttributeGenerator
	apply    applyFunc
	callback UpdateCallback
	retire   func(id int)
	reporter Reporter
	logger   Logger

	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	state     SessionState
	applied   int
	startedAt time.Time
}

// Info returns a snapshot of the session.
func (s *UpdateSession) Info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionInfo{
		ID:        s.id,
		Kind:      s.kind,
		URI:       s.uri,
		Attribute: s.attribute,
		Mode:      s.mode,
		Interval:  s.interval,
		State:     s.state,
		Applied:   s.applied,
		StartedAt: s.startedAt,
	}
}

// Done is closed when the session goroutine has exited.
func (s *UpdateSession) Done() <-chan struct{} { return s.done }

func (s *UpdateSession) start(ctx context.Context) {
	s.mu.Lock()
	s.state = StateRunning
	s.startedAt = time.Now().UTC()
	s.mu.Unlock()

	s.reporter.SessionStarted(s.Info())
	go s.run(ctx)
}

// stop requests termination and joins the goroutine.
func (s *UpdateSession) stop() {
	s.cancel()
	<-s.done
}

func (s *UpdateSession) run(ctx context.Context) {
	defer close(s.done)
	defer s.cancel()

	state, err := s.loop(ctx)

	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	report := SessionReport{SessionInfo: s.Info(), FinishedAt: time.Now().UTC()}
	if err != nil {
		report.Error = err.Error()
		s.logger.Warn("update session aborted", "uri", s.uri, "session_id", s.id, "error", err)
	} else {
		s.logger.Debug("update session finished", "uri", s.uri, "session_id", s.id, "state", state)
	}

	s.retire(s.id)
	s.reporter.SessionFinished(report)
	s.callback(s.uri, s.id)
}

func (s *UpdateSession) loop(ctx context.Context) (SessionState, error) {
	for {
		produced := false

		for m := range generator.NewCombinations(s.attrs()).All() {
			if ctx.Err() != nil {
				return StateStopped, nil
			}
			if err := s.apply(m); err != nil {
				return StateAborted, err
			}
			produced = true

			s.mu.Lock()
			s.applied++
			s.mu.Unlock()

			select {
			case <-time.After(s.interval):
			case <-ctx.Done():
				return StateStopped, nil
			}
		}

		if s.mode != Repeat || !produced {
			return StateCompleted, nil
		}
	}
}
