package client

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-simulator/internal/schema"
)

// RemoteInfo describes a remote resource as announced by its host.
type RemoteInfo struct {
	URI           string   `json:"uri"`
	Host          string   `json:"host"`
	Name          string   `json:"name,omitempty"`
	ResourceTypes []string `json:"resource_types"`
	Interfaces    []string `json:"interfaces"`
	Observable    bool     `json:"observable"`
}

// RemoteResource is a resource hosted elsewhere, reached through a Transport.
//
// Thread Safety: all methods are safe for concurrent use.
type RemoteResource struct {
	info      RemoteInfo
	transport Transport
	autos     *RequestManager
	logger    Logger

	mu         sync.RWMutex
	models     map[Method]*RequestModel
	observerID string
}

// NewRemoteResource creates a remote resource handle.
func NewRemoteResource(info RemoteInfo, transport Transport, reporter Reporter, logger Logger) *RemoteResource {
	if logger == nil {
		logger = noopLogger{}
	}
	info.ResourceTypes = slices.Clone(info.ResourceTypes)
	info.Interfaces = slices.Clone(info.Interfaces)
	return &RemoteResource{
		info:      info,
		transport: transport,
		autos:     NewRequestManager(reporter, logger),
		logger:    logger,
		models:    make(map[Method]*RequestModel),
	}
}

// URI returns the remote resource's URI.
func (r *RemoteResource) URI() string { return r.info.URI }

// Info returns a copy of the remote description.
func (r *RemoteResource) Info() RemoteInfo {
	info := r.info
	info.ResourceTypes = slices.Clone(r.info.ResourceTypes)
	info.Interfaces = slices.Clone(r.info.Interfaces)
	return info
}

// Get sends a GET request.
func (r *RemoteResource) Get(ctx context.Context, query map[string]string, handler ResponseHandler) error {
	return r.send(ctx, MethodGet, query, nil, handler)
}

// Put sends a PUT request carrying rep.
func (r *RemoteResource) Put(ctx context.Context, query map[string]string, rep *schema.ResourceModel, handler ResponseHandler) error {
	return r.send(ctx, MethodPut, query, rep, handler)
}

// Post sends a POST request carrying rep.
func (r *RemoteResource) Post(ctx context.Context, query map[string]string, rep *schema.ResourceModel, handler ResponseHandler) error {
	return r.send(ctx, MethodPost, query, rep, handler)
}

func (r *RemoteResource) send(ctx context.Context, method Method, query map[string]string, rep *schema.ResourceModel, handler ResponseHandler) error {
	if handler == nil {
		return fmt.Errorf("%w: nil response handler", ErrInvalidArgument)
	}
	if method != MethodGet && rep == nil {
		return fmt.Errorf("%w: %s without representation", ErrInvalidArgument, method)
	}
	req := Request{
		ID:      uuid.New().String(),
		Method:  method,
		URI:     r.info.URI,
		Query:   query,
		Payload: rep.Clone(),
	}
	if err := r.transport.Send(ctx, req, handler); err != nil {
		return fmt.Errorf("sending %s %s: %w", method, r.info.URI, err)
	}
	return nil
}

// Observe registers for change notifications. Observing twice replaces the
// previous registration.
func (r *RemoteResource) Observe(ctx context.Context, handler NotifyHandler) error {
	if handler == nil {
		return fmt.Errorf("%w: nil notify handler", ErrInvalidArgument)
	}
	if !r.info.Observable {
		return fmt.Errorf("%w: %s is not observable", ErrInvalidArgument, r.info.URI)
	}
	if err := r.CancelObserve(ctx); err != nil {
		return err
	}

	id := uuid.New().String()
	if err := r.transport.Observe(ctx, r.info.URI, id, handler); err != nil {
		return fmt.Errorf("observing %s: %w", r.info.URI, err)
	}
	r.mu.Lock()
	r.observerID = id
	r.mu.Unlock()
	return nil
}

// CancelObserve withdraws the observe registration, if any.
func (r *RemoteResource) CancelObserve(ctx context.Context) error {
	r.mu.Lock()
	id := r.observerID
	r.observerID = ""
	r.mu.Unlock()

	if id == "" {
		return nil
	}
	if err := r.transport.CancelObserve(ctx, r.info.URI, id); err != nil {
		return fmt.Errorf("cancelling observe on %s: %w", r.info.URI, err)
	}
	return nil
}

// SetRequestModels installs the request models used by automation,
// replacing those of the same method.
func (r *RemoteResource) SetRequestModels(models ...*RequestModel) error {
	for _, m := range models {
		if m == nil {
			return fmt.Errorf("%w: nil request model", ErrInvalidArgument)
		}
		if err := m.Validate(); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range models {
		r.models[m.Method] = m.clone()
	}
	return nil
}

// RequestModel returns the request model installed for method.
func (r *RemoteResource) RequestModel(method Method) (*RequestModel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[method]
	if !ok {
		return nil, false
	}
	return m.clone(), true
}

// StartAutoRequest starts sending every request the method's model
// describes. It fails with ErrNoRequestModel when none is installed and
// with ErrOperationInProgress when a session of the method is running.
func (r *RemoteResource) StartAutoRequest(method Method, cb AutoRequestCallback) (int, error) {
	model, ok := r.RequestModel(method)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoRequestModel, method)
	}
	return r.autos.Start(r.info.URI, model, r.transport, cb)
}

// StopAutoRequest stops an automatic request session.
func (r *RemoteResource) StopAutoRequest(id int) { r.autos.Stop(id) }

// AutoRequestSessions returns the active automatic request sessions.
func (r *RemoteResource) AutoRequestSessions() []SessionReport { return r.autos.Sessions() }

// Close stops automation and observation.
func (r *RemoteResource) Close(ctx context.Context) error {
	r.autos.StopAll()
	return r.CancelObserve(ctx)
}

// Directory holds the remote resources known to the process, keyed by URI.
type Directory struct {
	mu      sync.RWMutex
	remotes map[string]*RemoteResource
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{remotes: make(map[string]*RemoteResource)}
}

// Put adds r unless the URI is already present, and returns the entry now
// stored. Keeping the existing entry lets its sessions survive rediscovery.
func (d *Directory) Put(r *RemoteResource) *RemoteResource {
	d.mu.Lock()
	defer d.mu.Unlock()
	if existing, ok := d.remotes[r.URI()]; ok {
		return existing
	}
	d.remotes[r.URI()] = r
	return r
}

// Get returns the remote resource for uri.
func (d *Directory) Get(uri string) (*RemoteResource, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.remotes[uri]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRemoteNotFound, uri)
	}
	return r, nil
}

// List returns the remote resources ordered by URI.
func (d *Directory) List() []*RemoteResource {
	d.mu.RLock()
	out := make([]*RemoteResource, 0, len(d.remotes))
	for _, r := range d.remotes {
		out = append(out, r)
	}
	d.mu.RUnlock()
	slices.SortFunc(out, func(a, b *RemoteResource) int { return strings.Compare(a.URI(), b.URI()) })
	return out
}

// CloseAll closes every remote resource.
func (d *Directory) CloseAll(ctx context.Context) {
	for _, r := range d.List() {
		if err := r.Close(ctx); err != nil {
			r.logger.Warn("closing remote resource failed", "uri", r.URI(), "error", err)
		}
	}
}
