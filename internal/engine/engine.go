package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-simulator/internal/client"
	"github.com/nerrad567/gray-logic-simulator/internal/definition"
	"github.com/nerrad567/gray-logic-simulator/internal/simulator"
	"github.com/nerrad567/gray-logic-simulator/internal/telemetry"
)

// Platform hosts resources and reaches remote ones. *platform.Platform
// implements it.
type Platform interface {
	simulator.Platform
	Transport(host string) client.Transport
	Discover(ctx context.Context, wait time.Duration, resourceType string) ([]client.RemoteInfo, error)
}

// Logger defines the logging interface used by the engine.
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

// Config configures an Engine.
type Config struct {
	// UpdateInterval is the default pause between automated updates of
	// resources that do not set their own.
	UpdateInterval time.Duration

	// DiscoveryWait is how long Discover collects announcements.
	DiscoveryWait time.Duration

	// Metrics, when set, tracks the number of hosted resources.
	Metrics *telemetry.Metrics
}

// Engine orchestrates hosted resources and remote targets.
//
// Thread Safety: all methods are safe for concurrent use.
type Engine struct {
	cfg      Config
	platform Platform
	recorder *telemetry.Recorder
	logger   Logger

	resources *simulator.Registry
	remotes   *client.Directory

	mu   sync.Mutex
	defs *definition.File
}

// New creates an Engine. platform may be nil for a simulator without a
// bus; recorder may be nil to skip telemetry.
func New(cfg Config, platform Platform, recorder *telemetry.Recorder, logger Logger) *Engine {
	if logger == nil {
		logger = noopLogger{}
	}
	if recorder == nil {
		recorder = telemetry.NewRecorder(telemetry.Options{})
	}
	resources := simulator.NewRegistry()
	resources.SetLogger(logger)
	return &Engine{
		cfg:       cfg,
		platform:  platform,
		recorder:  recorder,
		logger:    logger,
		resources: resources,
		remotes:   client.NewDirectory(),
	}
}

// Resources returns the hosted resource registry.
func (e *Engine) Resources() *simulator.Registry { return e.resources }

// Remotes returns the remote resource directory.
func (e *Engine) Remotes() *client.Directory { return e.remotes }

// Load builds a resource for every definition and adds it to the registry.
// Resources are not started.
func (e *Engine) Load(defs *definition.File) error {
	var errs []error
	for i := range defs.Resources {
		if err := e.addResource(&defs.Resources[i]); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	e.mu.Lock()
	e.defs = defs
	e.mu.Unlock()

	if e.cfg.Metrics != nil {
		e.cfg.Metrics.SetResources(len(e.resources.List()))
	}
	e.logger.Info("definitions loaded", "resources", len(defs.Resources), "remotes", len(defs.Remotes))
	return nil
}

func (e *Engine) addResource(def *definition.Resource) error {
	desc, props, err := def.Build()
	if err != nil {
		return err
	}
	interval := def.Interval()
	if interval <= 0 {
		interval = e.cfg.UpdateInterval
	}

	var plat simulator.Platform
	if e.platform != nil {
		plat = e.platform
	}

	r, err := simulator.NewResource(desc, props, simulator.ResourceConfig{
		Platform:       plat,
		Reporter:       e.recorder.Updates(),
		Logger:         e.logger,
		UpdateInterval: interval,
	})
	if err != nil {
		return fmt.Errorf("creating %s: %w", desc.URI, err)
	}
	r.SetObserverCallback(e.recorder.ObserverChanged)
	return e.resources.Add(r)
}

// Start starts every resource and the update automations the definitions
// ask for, then discovers remote targets and starts their auto requests.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defs := e.defs
	e.mu.Unlock()
	if defs == nil {
		return ErrNotLoaded
	}

	var errs []error
	if err := e.resources.StartAll(ctx); err != nil {
		errs = append(errs, err)
	}

	for i := range defs.Resources {
		def := &defs.Resources[i]
		for _, u := range def.Updates {
			if _, err := e.StartUpdate(def.URI, u.Attribute, u.UpdateMode(), u.IntervalDuration()); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if e.platform != nil && len(defs.Remotes) > 0 {
		if _, err := e.Discover(ctx, ""); err != nil {
			errs = append(errs, err)
		}
		for i := range defs.Remotes {
			rm := &defs.Remotes[i]
			for _, method := range rm.AutoStartMethods() {
				if _, err := e.StartAutoRequest(rm.URI, method); err != nil {
					errs = append(errs, err)
				}
			}
		}
	}
	return errors.Join(errs...)
}

// Stop closes every remote resource and stops every hosted resource,
// joining all automations.
func (e *Engine) Stop(ctx context.Context) error {
	e.remotes.CloseAll(ctx)
	return e.resources.StopAll(ctx)
}

// StartUpdate starts an update automation on a hosted resource. An empty
// attribute selects a resource-wide update.
func (e *Engine) StartUpdate(uri, attribute string, mode simulator.UpdateMode, interval time.Duration) (int, error) {
	r, err := e.resources.Get(uri)
	if err != nil {
		return 0, err
	}
	done := func(uri string, id int) {
		e.logger.Debug("update automation finished", "uri", uri, "session_id", id)
	}

	var id int
	if attribute == "" {
		id, err = r.StartResourceUpdate(mode, interval, done)
	} else {
		id, err = r.StartAttributeUpdate(attribute, mode, interval, done)
	}
	if err != nil {
		return 0, fmt.Errorf("starting update on %s: %w", uri, err)
	}
	e.logger.Info("update automation started", "uri", uri, "attribute", attribute, "mode", mode, "session_id", id)
	return id, nil
}

// StartAutoRequest starts a request automation against a discovered
// remote resource.
func (e *Engine) StartAutoRequest(uri string, method client.Method) (int, error) {
	remote, err := e.remotes.Get(uri)
	if err != nil {
		return 0, err
	}
	id, err := remote.StartAutoRequest(method, func(uri string, id int, state client.AutoRequestState) {
		e.logger.Debug("request automation", "uri", uri, "session_id", id, "state", state)
	})
	if err != nil {
		return 0, fmt.Errorf("starting %s automation on %s: %w", method, uri, err)
	}
	e.logger.Info("request automation started", "uri", uri, "method", method, "session_id", id)
	return id, nil
}

// Discover collects remote announcements and adds every newly seen remote
// to the directory with the request models its definition declares.
func (e *Engine) Discover(ctx context.Context, resourceType string) ([]*client.RemoteResource, error) {
	if e.platform == nil {
		return nil, ErrNoPlatform
	}
	infos, err := e.platform.Discover(ctx, e.cfg.DiscoveryWait, resourceType)
	if err != nil {
		return nil, fmt.Errorf("discovering remotes: %w", err)
	}

	e.mu.Lock()
	defs := e.defs
	e.mu.Unlock()

	out := make([]*client.RemoteResource, 0, len(infos))
	for _, info := range infos {
		remote := e.remotes.Put(client.NewRemoteResource(info, e.platform.Transport(info.Host), e.recorder.Requests(), e.logger))
		if def := findRemote(defs, info); def != nil {
			if err := e.installModels(remote, def); err != nil {
				e.logger.Warn("installing request models failed", "uri", info.URI, "error", err)
			}
		}
		out = append(out, remote)
	}
	e.logger.Info("remote discovery finished", "found", len(out))
	return out, nil
}

func (e *Engine) installModels(remote *client.RemoteResource, def *definition.Remote) error {
	models, err := def.RequestModels()
	if err != nil {
		return err
	}
	return remote.SetRequestModels(models...)
}

// ObserveRemote registers for change notifications from a remote resource.
// Notifications are published on the live feed.
func (e *Engine) ObserveRemote(ctx context.Context, uri string) error {
	remote, err := e.remotes.Get(uri)
	if err != nil {
		return err
	}
	return remote.Observe(ctx, e.recorder.RemoteNotified)
}

func findRemote(defs *definition.File, info client.RemoteInfo) *definition.Remote {
	if defs == nil {
		return nil
	}
	for i := range defs.Remotes {
		rm := &defs.Remotes[i]
		if rm.URI == info.URI && rm.Host == info.Host {
			return rm
		}
	}
	return nil
}
