package client

import (
	"fmt"
	"maps"
	"slices"

	"github.com/nerrad567/gray-logic-simulator/internal/schema"
)

// RequestModel describes the requests automation sends for one method:
// the allowed values of each query parameter and, for PUT and POST, the
// payload schema.
type RequestModel struct {
	Method      Method
	QueryParams map[string][]string
	Payload     *schema.ModelProperty
}

// Validate checks that the model can drive its method.
func (m *RequestModel) Validate() error {
	switch m.Method {
	case MethodGet:
	case MethodPut, MethodPost:
		if m.Payload == nil {
			return fmt.Errorf("%w: %s request model has no payload schema", ErrInvalidArgument, m.Method)
		}
	default:
		return fmt.Errorf("%w: method %q", ErrInvalidArgument, m.Method)
	}
	return nil
}

// clone copies the query parameter sets. The payload schema is shared; it
// is not modified after the model is installed.
func (m *RequestModel) clone() *RequestModel {
	cpy := &RequestModel{
		Method:      m.Method,
		QueryParams: make(map[string][]string, len(m.QueryParams)),
		Payload:     m.Payload,
	}
	for k, v := range m.QueryParams {
		cpy.QueryParams[k] = slices.Clone(v)
	}
	return cpy
}

// ParamNames returns the query parameter names in order.
func (m *RequestModel) ParamNames() []string {
	return slices.Sorted(maps.Keys(m.QueryParams))
}
