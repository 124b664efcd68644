package simulator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Registry holds the simulated resources of a process, keyed by URI.
//
// Thread Safety: all methods are safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	resources map[string]*Resource
	logger    Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		resources: make(map[string]*Resource),
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (g *Registry) SetLogger(logger Logger) {
	g.logger = logger
}

// Add registers a resource.
func (g *Registry) Add(r *Resource) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.resources[r.URI()]; exists {
		return fmt.Errorf("%w: %s", ErrResourceExists, r.URI())
	}
	g.resources[r.URI()] = r
	return nil
}

// Get returns the resource with the given URI.
func (g *Registry) Get(uri string) (*Resource, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.resources[uri]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, uri)
	}
	return r, nil
}

// List returns all resources ordered by URI.
func (g *Registry) List() []*Resource {
	g.mu.RLock()
	out := make([]*Resource, 0, len(g.resources))
	for _, r := range g.resources {
		out = append(out, r)
	}
	g.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Resource) int { return strings.Compare(a.URI(), b.URI()) })
	return out
}

// Remove stops and removes a resource.
func (g *Registry) Remove(ctx context.Context, uri string) error {
	g.mu.Lock()
	r, ok := g.resources[uri]
	delete(g.resources, uri)
	g.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrResourceNotFound, uri)
	}
	return r.Stop(ctx)
}

// StartAll starts every resource that is not running.
func (g *Registry) StartAll(ctx context.Context) error {
	var errs []error
	for _, r := range g.List() {
		if r.IsRunning() {
			continue
		}
		if err := r.Start(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StopAll stops every resource, joining all of their update sessions.
func (g *Registry) StopAll(ctx context.Context) error {
	var errs []error
	for _, r := range g.List() {
		if err := r.Stop(ctx); err != nil {
			g.logger.Warn("resource stop failed", "uri", r.URI(), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
