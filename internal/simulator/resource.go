package simulator

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-simulator/internal/generator"
	"github.com/nerrad567/gray-logic-simulator/internal/schema"
)

// DefaultUpdateInterval is used when an update session is started without
// an interval and the resource has none configured.
const DefaultUpdateInterval = time.Second

// ResourceConfig holds the collaborators of a Resource. All fields are optional.
type ResourceConfig struct {
	Platform       Platform
	Reporter       Reporter
	Logger         Logger
	UpdateInterval time.Duration
}

// Resource is a simulated single resource.
//
// The model is guarded by the resource's own RWMutex, which is held only for
// the duration of a single read or apply step. Callbacks, observer
// notifications and reporter events run after the lock is released.
//
// Thread Safety: all methods are safe for concurrent use. Callbacks must not
// call Stop on the same resource.
type Resource struct {
	id       string
	desc     Descriptor
	interval time.Duration

	mu         sync.RWMutex
	props      *schema.ModelProperty
	model      *schema.ResourceModel
	observers  []ObserverInfo
	running    bool
	onModel    ModelChangeCallback
	onObserver ObserverCallback

	platform Platform
	updates  *UpdateManager
	reporter Reporter
	logger   Logger
}

// NewResource creates a resource whose model holds the schema defaults.
func NewResource(desc Descriptor, props *schema.ModelProperty, cfg ResourceConfig) (*Resource, error) {
	if desc.URI == "" {
		return nil, fmt.Errorf("%w: empty uri", ErrInvalidArgument)
	}
	if props == nil {
		props = schema.NewModelProperty()
	}
	if cfg.Reporter == nil {
		cfg.Reporter = noopReporter{}
	}
	if cfg.Logger == nil {
		cfg.Logger = noopLogger{}
	}
	if cfg.UpdateInterval <= 0 {
		cfg.UpdateInterval = DefaultUpdateInterval
	}
	desc.Interfaces = slices.Clone(desc.Interfaces)

	return &Resource{
		id:       uuid.New().String(),
		desc:     desc,
		interval: cfg.UpdateInterval,
		props:    props,
		model:    props.BuildModel(),
		platform: cfg.Platform,
		updates:  NewUpdateManager(cfg.Reporter, cfg.Logger),
		reporter: cfg.Reporter,
		logger:   cfg.Logger,
	}, nil
}

// ID returns the resource's unique id.
func (r *Resource) ID() string { return r.id }

// URI returns the resource's URI.
func (r *Resource) URI() string { return r.desc.URI }

// Descriptor returns a copy of the resource descriptor.
func (r *Resource) Descriptor() Descriptor {
	d := r.desc
	d.Interfaces = slices.Clone(r.desc.Interfaces)
	return d
}

// IsRunning reports whether the resource is started.
func (r *Resource) IsRunning() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}

// Start registers the resource with the platform.
func (r *Resource) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	r.running = true
	r.mu.Unlock()

	if r.platform != nil {
		if err := r.platform.Register(ctx, r.Descriptor(), r); err != nil {
			r.mu.Lock()
			r.running = false
			r.mu.Unlock()
			return fmt.Errorf("registering %s: %w", r.desc.URI, err)
		}
	}

	r.logger.Info("resource started", "uri", r.desc.URI, "resource_type", r.desc.ResourceType)
	return nil
}

// Stop stops every update session, waits for them and unregisters the
// resource. Stopping a stopped resource is a no-op.
func (r *Resource) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.observers = nil
	r.mu.Unlock()

	r.updates.StopAll()

	if r.platform != nil {
		if err := r.platform.Unregister(ctx, r.desc.URI); err != nil {
			return fmt.Errorf("unregistering %s: %w", r.desc.URI, err)
		}
	}

	r.logger.Info("resource stopped", "uri", r.desc.URI)
	return nil
}

// SetModelChangeCallback sets the callback invoked after every model change.
func (r *Resource) SetModelChangeCallback(cb ModelChangeCallback) {
	r.mu.Lock()
	r.onModel = cb
	r.mu.Unlock()
}

// SetObserverCallback sets the callback invoked on observer changes.
func (r *Resource) SetObserverCallback(cb ObserverCallback) {
	r.mu.Lock()
	r.onObserver = cb
	r.mu.Unlock()
}

// Model returns a copy of the current model.
func (r *Resource) Model() *schema.ResourceModel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.model.Clone()
}

// Attribute returns the current value of an attribute.
func (r *Resource) Attribute(name string) (schema.Value, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.model.Get(name)
}

// Property returns the schema of an attribute.
func (r *Resource) Property(name string) (schema.Property, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.props.Get(name)
}

// AttributeNames returns the schema's attribute names in declaration order.
func (r *Resource) AttributeNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.props.Names()
}

// UpdateAttribute replaces an attribute's value. Integers are widened for
// Double attributes; any other type change is rejected.
func (r *Resource) UpdateAttribute(name string, v schema.Value) error {
	rep := schema.NewResourceModel()
	if !rep.Add(name, v) {
		return fmt.Errorf("%w: %q", ErrRejectedValue, name)
	}
	_, err := r.apply(rep, false)
	return err
}

// UpdateModel applies every attribute of rep. Either all attributes are
// applied or none.
func (r *Resource) UpdateModel(rep *schema.ResourceModel) error {
	_, err := r.apply(rep, false)
	return err
}

// AddAttribute declares a new attribute and sets it to the property default.
func (r *Resource) AddAttribute(name string, prop schema.Property, required bool) error {
	r.mu.Lock()
	if r.model.Contains(name) {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrAttributeExists, name)
	}
	if err := r.props.Add(name, prop, required); err != nil {
		r.mu.Unlock()
		return fmt.Errorf("adding %q: %w", name, err)
	}
	r.model.Add(name, prop.BuildValue())
	snapshot := r.model.Clone()
	r.mu.Unlock()

	r.changed(snapshot)
	return nil
}

// RemoveAttribute removes an attribute from the model and the schema.
func (r *Resource) RemoveAttribute(name string) error {
	r.mu.Lock()
	if !r.model.Remove(name) {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownAttribute, name)
	}
	r.props.Remove(name)
	snapshot := r.model.Clone()
	r.mu.Unlock()

	r.changed(snapshot)
	return nil
}

// HandleGet returns the current representation.
func (r *Resource) HandleGet(_ map[string]string) (*schema.ResourceModel, error) {
	return r.Model(), nil
}

// HandlePut applies a representation whose attributes must all exist.
func (r *Resource) HandlePut(_ map[string]string, rep *schema.ResourceModel) (*schema.ResourceModel, error) {
	return r.apply(rep, false)
}

// HandlePost applies a representation and may add attributes the schema
// declares but the model does not hold.
func (r *Resource) HandlePost(_ map[string]string, rep *schema.ResourceModel) (*schema.ResourceModel, error) {
	return r.apply(rep, true)
}

// AddObserver registers an observer. Re-registering an id replaces it.
func (r *Resource) AddObserver(info ObserverInfo) {
	r.mu.Lock()
	r.observers = slices.DeleteFunc(r.observers, func(o ObserverInfo) bool { return o.ID == info.ID })
	r.observers = append(r.observers, info)
	cb := r.onObserver
	r.mu.Unlock()

	r.logger.Debug("observer registered", "uri", r.desc.URI, "observer_id", info.ID)
	if cb != nil {
		cb(r.desc.URI, ObserverRegistered, info)
	}
}

// RemoveObserver unregisters an observer. Unknown ids are ignored.
func (r *Resource) RemoveObserver(id string) {
	r.mu.Lock()
	idx := slices.IndexFunc(r.observers, func(o ObserverInfo) bool { return o.ID == id })
	if idx < 0 {
		r.mu.Unlock()
		return
	}
	info := r.observers[idx]
	r.observers = slices.Delete(r.observers, idx, idx+1)
	cb := r.onObserver
	r.mu.Unlock()

	r.logger.Debug("observer unregistered", "uri", r.desc.URI, "observer_id", id)
	if cb != nil {
		cb(r.desc.URI, ObserverUnregistered, info)
	}
}

// Observers returns the registered observers.
func (r *Resource) Observers() []ObserverInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.observers)
}

// NotifyAll sends the current representation to every observer.
func (r *Resource) NotifyAll() error {
	r.mu.RLock()
	snapshot := r.model.Clone()
	observers := slices.Clone(r.observers)
	r.mu.RUnlock()
	return r.notify(observers, snapshot)
}

// StartAttributeUpdate starts a session walking the attribute's domain.
// A non-positive interval selects the resource's default interval.
func (r *Resource) StartAttributeUpdate(name string, mode UpdateMode, interval time.Duration, cb UpdateCallback) (int, error) {
	if cb == nil {
		return 0, fmt.Errorf("%w: nil callback", ErrInvalidArgument)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.running {
		return 0, fmt.Errorf("%w: %w", ErrInvalidArgument, ErrNotRunning)
	}
	prop, ok := r.props.Get(name)
	if !ok || !r.model.Contains(name) {
		return 0, fmt.Errorf("%w: %w: %q", ErrInvalidArgument, ErrUnknownAttribute, name)
	}
	if generator.ForProperty(prop) == nil {
		return 0, fmt.Errorf("%w: attribute %q has nothing to enumerate", ErrInvalidArgument, name)
	}

	id := r.updates.start(sessionSpec{
		kind:      KindAttributeUpdate,
		uri:       r.desc.URI,
		attribute: name,
		mode:      mode,
		interval:  r.intervalOr(interval),
		attrs: func() []*generator.AttributeGenerator {
			return []*generator.AttributeGenerator{generator.NewAttributeGenerator(name, generator.ForProperty(prop))}
		},
		apply:    r.applyGenerated,
		callback: cb,
	})
	return id, nil
}

// StartResourceUpdate starts a session walking the cross-product of every
// enumerable attribute.
func (r *Resource) StartResourceUpdate(mode UpdateMode, interval time.Duration, cb UpdateCallback) (int, error) {
	if cb == nil {
		return 0, fmt.Errorf("%w: nil callback", ErrInvalidArgument)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.running {
		return 0, fmt.Errorf("%w: %w", ErrInvalidArgument, ErrNotRunning)
	}

	type child struct {
		name string
		prop schema.Property
	}
	var children []child
	for _, name := range r.props.Names() {
		prop, _ := r.props.Get(name)
		if r.model.Contains(name) && generator.ForProperty(prop) != nil {
			children = append(children, child{name, prop})
		}
	}
	if len(children) == 0 {
		return 0, fmt.Errorf("%w: no attribute has anything to enumerate", ErrInvalidArgument)
	}

	id := r.updates.start(sessionSpec{
		kind:     KindResourceUpdate,
		uri:      r.desc.URI,
		mode:     mode,
		interval: r.intervalOr(interval),
		attrs: func() []*generator.AttributeGenerator {
			out := make([]*generator.AttributeGenerator, len(children))
			for i, c := range children {
				out[i] = generator.NewAttributeGenerator(c.name, generator.ForProperty(c.prop))
			}
			return out
		},
		apply:    r.applyGenerated,
		callback: cb,
	})
	return id, nil
}

// StopUpdate stops an update session and waits for it. Unknown ids are ignored.
func (r *Resource) StopUpdate(id int) { r.updates.Stop(id) }

// AttributeUpdateIDs returns the ids of running attribute-update sessions.
func (r *Resource) AttributeUpdateIDs() []int { return r.updates.AttributeSessionIDs() }

// ResourceUpdateIDs returns the ids of running resource-update sessions.
func (r *Resource) ResourceUpdateIDs() []int { return r.updates.ResourceSessionIDs() }

// UpdateSessions returns snapshots of the running update sessions.
func (r *Resource) UpdateSessions() []SessionInfo { return r.updates.Sessions() }

func (r *Resource) intervalOr(d time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return r.interval
}

// applyGenerated is the apply step of update sessions.
func (r *Resource) applyGenerated(m *schema.ResourceModel) error {
	_, err := r.apply(m, false)
	return err
}

// apply merges rep into the model under the lock and publishes the change.
func (r *Resource) apply(rep *schema.ResourceModel, allowAdd bool) (*schema.ResourceModel, error) {
	r.mu.Lock()
	next, err := r.merge(rep, allowAdd)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	r.model = next
	snapshot := next.Clone()
	r.mu.Unlock()

	r.changed(snapshot)
	return snapshot.Clone(), nil
}

// merge validates rep against the model and schema and returns the merged
// model. Must be called with r.mu held.
func (r *Resource) merge(rep *schema.ResourceModel, allowAdd bool) (*schema.ResourceModel, error) {
	next := r.model.Clone()
	for _, name := range rep.AttributeNames() {
		v, _ := rep.Get(name)

		current, exists := next.TypeOf(name)
		if !exists {
			prop, declared := r.props.Get(name)
			if !allowAdd || !declared {
				return nil, fmt.Errorf("%w: %q", ErrUnknownAttribute, name)
			}
			current = prop.TypeInfo()
		}

		converted, ok := v.ConvertTo(current)
		if !ok {
			return nil, fmt.Errorf("%w: %q is %s, want %s", ErrRejectedValue, name, v.TypeInfo(), current)
		}
		if !r.props.ValidateAttribute(name, converted) {
			return nil, fmt.Errorf("%w: %q = %s", ErrRejectedValue, name, converted)
		}
		next.Set(name, converted)
	}
	return next, nil
}

// changed runs the post-change hooks outside the lock.
func (r *Resource) changed(snapshot *schema.ResourceModel) {
	r.mu.RLock()
	cb := r.onModel
	observers := slices.Clone(r.observers)
	r.mu.RUnlock()

	if cb != nil {
		cb(r.desc.URI, snapshot.Clone())
	}
	r.reporter.ModelChanged(r.desc.URI, snapshot)
	if err := r.notify(observers, snapshot); err != nil {
		r.logger.Warn("observer notification failed", "uri", r.desc.URI, "error", err)
	}
}

func (r *Resource) notify(observers []ObserverInfo, snapshot *schema.ResourceModel) error {
	if !r.desc.Observable || len(observers) == 0 || r.platform == nil {
		return nil
	}
	return r.platform.Notify(r.desc.URI, observers, snapshot)
}
