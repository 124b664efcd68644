package definition

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/gray-logic-simulator/internal/client"
	"github.com/nerrad567/gray-logic-simulator/internal/schema"
	"github.com/nerrad567/gray-logic-simulator/internal/simulator"
)

// File is the root of a definition file.
type File struct {
	Resources []Resource `yaml:"resources"`
	Remotes   []Remote   `yaml:"remotes"`
}

// Resource defines a hosted resource.
type Resource struct {
	URI        string     `yaml:"uri"`
	Name       string     `yaml:"name"`
	Type       string     `yaml:"type"`
	Interfaces []string   `yaml:"interfaces"`
	Observable bool       `yaml:"observable"`
	Properties Properties `yaml:"properties"`

	// UpdateInterval overrides the simulator's default interval between
	// automated updates (milliseconds).
	UpdateInterval int `yaml:"update_interval"`

	// Updates are automations started when the simulator starts.
	Updates []Update `yaml:"updates"`
}

// Update is an automation started with the simulator. An empty Attribute
// selects a resource-wide update.
type Update struct {
	Attribute string `yaml:"attribute"`
	Mode      string `yaml:"mode"`

	// Interval between steps in milliseconds; 0 selects the resource default.
	Interval int `yaml:"interval"`
}

// Remote defines a resource hosted by another simulator.
type Remote struct {
	URI      string                 `yaml:"uri"`
	Host     string                 `yaml:"host"`
	Requests map[string]RequestSpec `yaml:"requests"`

	// AutoStart lists the methods whose automatic request sessions start
	// once the remote has been discovered.
	AutoStart []string `yaml:"autostart"`
}

// RequestSpec is the request model of one method.
type RequestSpec struct {
	Query   map[string][]string `yaml:"query"`
	Payload Properties          `yaml:"payload"`
}

// Load reads and validates a definition file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading definitions: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes and validates a definition document.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate builds every schema and request model, returning all defects
// joined.
func (f *File) Validate() error {
	var errs []error
	uris := make(map[string]bool)

	for i := range f.Resources {
		r := &f.Resources[i]
		if uris[r.URI] {
			errs = append(errs, fmt.Errorf("%w: resource %q defined twice", ErrInvalidDefinition, r.URI))
		}
		uris[r.URI] = true
		if _, _, err := r.Build(); err != nil {
			errs = append(errs, err)
		}
		errs = append(errs, r.validateUpdates()...)
	}

	remotes := make(map[string]bool)
	for i := range f.Remotes {
		rm := &f.Remotes[i]
		key := rm.Host + rm.URI
		if remotes[key] {
			errs = append(errs, fmt.Errorf("%w: remote %s%s defined twice", ErrInvalidDefinition, rm.Host, rm.URI))
		}
		remotes[key] = true
		if _, err := rm.RequestModels(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Descriptor returns the resource's platform descriptor.
func (r *Resource) Descriptor() simulator.Descriptor {
	return simulator.Descriptor{
		URI:          r.URI,
		Name:         r.Name,
		ResourceType: r.Type,
		Interfaces:   r.Interfaces,
		Observable:   r.Observable,
	}
}

// Build returns the resource's descriptor and a freshly built schema.
func (r *Resource) Build() (simulator.Descriptor, *schema.ModelProperty, error) {
	if !strings.HasPrefix(r.URI, "/") {
		return simulator.Descriptor{}, nil, fmt.Errorf("%w: resource uri %q must start with /", ErrInvalidDefinition, r.URI)
	}
	if r.Type == "" {
		return simulator.Descriptor{}, nil, fmt.Errorf("%w: resource %s has no type", ErrInvalidDefinition, r.URI)
	}
	props, err := r.Properties.Build()
	if err != nil {
		return simulator.Descriptor{}, nil, fmt.Errorf("resource %s: %w", r.URI, err)
	}
	return r.Descriptor(), props, nil
}

// Interval returns the resource's update interval, zero when unset.
func (r *Resource) Interval() time.Duration {
	return time.Duration(r.UpdateInterval) * time.Millisecond
}

func (r *Resource) validateUpdates() []error {
	var errs []error
	if r.UpdateInterval < 0 {
		errs = append(errs, fmt.Errorf("%w: resource %s: negative update_interval", ErrInvalidDefinition, r.URI))
	}
	for _, u := range r.Updates {
		if u.Mode != "" && u.Mode != string(simulator.OneTime) && u.Mode != string(simulator.Repeat) {
			errs = append(errs, fmt.Errorf("%w: resource %s: unknown update mode %q", ErrInvalidDefinition, r.URI, u.Mode))
		}
		if u.Interval < 0 {
			errs = append(errs, fmt.Errorf("%w: resource %s: negative update interval", ErrInvalidDefinition, r.URI))
		}
		if u.Attribute != "" && r.Properties.index(u.Attribute) < 0 {
			errs = append(errs, fmt.Errorf("%w: resource %s: update of undeclared attribute %q", ErrInvalidDefinition, r.URI, u.Attribute))
		}
	}
	return errs
}

// UpdateMode returns the session mode; unset means one pass.
func (u Update) UpdateMode() simulator.UpdateMode {
	return simulator.ParseUpdateMode(u.Mode)
}

// IntervalDuration returns the step interval, zero when unset.
func (u Update) IntervalDuration() time.Duration {
	return time.Duration(u.Interval) * time.Millisecond
}

// Info returns the remote's description for a resource not yet discovered.
func (rm *Remote) Info() client.RemoteInfo {
	return client.RemoteInfo{URI: rm.URI, Host: rm.Host}
}

// RequestModels builds the request model of every declared method, ordered
// GET, PUT, POST.
func (rm *Remote) RequestModels() ([]*client.RequestModel, error) {
	if !strings.HasPrefix(rm.URI, "/") || rm.Host == "" {
		return nil, fmt.Errorf("%w: remote %q needs a host and an absolute uri", ErrInvalidDefinition, rm.Host+rm.URI)
	}

	byMethod := make(map[client.Method]*client.RequestModel, len(rm.Requests))
	for name, spec := range rm.Requests {
		method, ok := client.ParseMethod(name)
		if !ok {
			return nil, fmt.Errorf("%w: remote %s: unknown method %q", ErrInvalidDefinition, rm.URI, name)
		}
		model := &client.RequestModel{Method: method, QueryParams: spec.Query}
		if len(spec.Payload) > 0 {
			payload, err := spec.Payload.Build()
			if err != nil {
				return nil, fmt.Errorf("remote %s %s payload: %w", rm.URI, method, err)
			}
			model.Payload = payload
		}
		if err := model.Validate(); err != nil {
			return nil, fmt.Errorf("%w: remote %s: %w", ErrInvalidDefinition, rm.URI, err)
		}
		byMethod[method] = model
	}

	for _, name := range rm.AutoStart {
		method, ok := client.ParseMethod(name)
		if !ok {
			return nil, fmt.Errorf("%w: remote %s: unknown autostart method %q", ErrInvalidDefinition, rm.URI, name)
		}
		if _, declared := byMethod[method]; !declared {
			return nil, fmt.Errorf("%w: remote %s: autostart %s has no request model", ErrInvalidDefinition, rm.URI, method)
		}
	}

	var models []*client.RequestModel
	for _, m := range []client.Method{client.MethodGet, client.MethodPut, client.MethodPost} {
		if model, ok := byMethod[m]; ok {
			models = append(models, model)
		}
	}
	return models, nil
}

// AutoStartMethods returns the parsed autostart methods. Call after Validate.
func (rm *Remote) AutoStartMethods() []client.Method {
	methods := make([]client.Method, 0, len(rm.AutoStart))
	for _, name := range rm.AutoStart {
		if m, ok := client.ParseMethod(name); ok {
			methods = append(methods, m)
		}
	}
	return methods
}
