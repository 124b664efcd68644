package definition

import (
	"fmt"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/gray-logic-simulator/internal/schema"
)

// Property type names accepted in definition files.
const (
	TypeInteger = "integer"
	TypeDouble  = "double"
	TypeBoolean = "boolean"
	TypeString  = "string"
	TypeArray   = "array"
	TypeModel   = "model"
)

// Property is one schema node as written in a definition file.
//
// Range is [min, max]: the value range for numbers, the length range for
// strings and the item-count range for arrays. Values enumerates the
// allowed values of numbers and strings; it takes precedence over Range.
type Property struct {
	Type        string     `yaml:"type"`
	Description string     `yaml:"description"`
	Default     any        `yaml:"default"`
	Required    bool       `yaml:"required"`
	Range       []float64  `yaml:"range"`
	Values      []any      `yaml:"values"`
	Items       *Property  `yaml:"items"`
	Variable    bool       `yaml:"variable"`
	Unique      bool       `yaml:"unique"`
	Properties  Properties `yaml:"properties"`
}

// NamedProperty is a child of a model.
type NamedProperty struct {
	Name     string
	Property Property
}

// Properties is an ordered property mapping.
type Properties []NamedProperty

// UnmarshalYAML decodes a mapping while keeping its key order.
func (ps *Properties) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: line %d: properties must be a mapping", ErrInvalidDefinition, node.Line)
	}
	out := make(Properties, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var p Property
		if err := node.Content[i+1].Decode(&p); err != nil {
			return err
		}
		out = append(out, NamedProperty{Name: node.Content[i].Value, Property: p})
	}
	*ps = out
	return nil
}

func (ps Properties) index(name string) int {
	for i, np := range ps {
		if np.Name == name {
			return i
		}
	}
	return -1
}

// Build converts the mapping into a model schema.
func (ps Properties) Build() (*schema.ModelProperty, error) {
	model := schema.NewModelProperty()
	for _, np := range ps {
		prop, err := np.Property.Build()
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", np.Name, err)
		}
		if err := model.Add(np.Name, prop, np.Property.Required); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
		}
	}
	return model, nil
}

// Build converts the node into a schema property.
func (p Property) Build() (schema.Property, error) {
	var (
		prop schema.Property
		err  error
	)
	switch p.Type {
	case TypeInteger:
		prop, err = p.buildInteger()
	case TypeDouble:
		prop, err = p.buildDouble()
	case TypeBoolean:
		prop, err = p.buildBoolean()
	case TypeString:
		prop, err = p.buildString()
	case TypeArray:
		prop, err = p.buildArray()
	case TypeModel:
		prop, err = p.buildModel()
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrInvalidDefinition)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidDefinition, p.Type)
	}
	if err != nil {
		return nil, err
	}
	if d, ok := prop.(interface{ SetDescription(string) }); ok {
		d.SetDescription(p.Description)
	}
	return prop, nil
}

func (p Property) rangeBounds() (min, max float64, ok bool, err error) {
	switch len(p.Range) {
	case 0:
		return 0, 0, false, nil
	case 2:
		return p.Range[0], p.Range[1], true, nil
	default:
		return 0, 0, false, fmt.Errorf("%w: range needs [min, max]", ErrInvalidDefinition)
	}
}

func (p Property) intRange() (min, max int, ok bool, err error) {
	lo, hi, ok, err := p.rangeBounds()
	if err != nil || !ok {
		return 0, 0, ok, err
	}
	if lo != math.Trunc(lo) || hi != math.Trunc(hi) {
		return 0, 0, false, fmt.Errorf("%w: range bounds must be integers", ErrInvalidDefinition)
	}
	return int(lo), int(hi), true, nil
}

func (p Property) buildInteger() (schema.Property, error) {
	def := 0
	if p.Default != nil {
		v, ok := asInt(p.Default)
		if !ok {
			return nil, fmt.Errorf("%w: integer default %v", ErrInvalidDefinition, p.Default)
		}
		def = v
	}
	prop := schema.NewIntegerProperty(def)

	if len(p.Values) > 0 {
		values := make([]int, len(p.Values))
		for i, raw := range p.Values {
			v, ok := asInt(raw)
			if !ok {
				return nil, fmt.Errorf("%w: integer value %v", ErrInvalidDefinition, raw)
			}
			values[i] = v
		}
		prop.SetValues(values)
		return prop, nil
	}
	min, max, ok, err := p.intRange()
	if err != nil {
		return nil, err
	}
	if ok {
		prop.SetRange(min, max)
	}
	return prop, nil
}

func (p Property) buildDouble() (schema.Property, error) {
	def := 0.0
	if p.Default != nil {
		v, ok := asFloat(p.Default)
		if !ok {
			return nil, fmt.Errorf("%w: double default %v", ErrInvalidDefinition, p.Default)
		}
		def = v
	}
	prop := schema.NewDoubleProperty(def)

	if len(p.Values) > 0 {
		values := make([]float64, len(p.Values))
		for i, raw := range p.Values {
			v, ok := asFloat(raw)
			if !ok {
				return nil, fmt.Errorf("%w: double value %v", ErrInvalidDefinition, raw)
			}
			values[i] = v
		}
		prop.SetValues(values)
		return prop, nil
	}
	min, max, ok, err := p.rangeBounds()
	if err != nil {
		return nil, err
	}
	if ok {
		prop.SetRange(min, max)
	}
	return prop, nil
}

func (p Property) buildBoolean() (schema.Property, error) {
	def := false
	if p.Default != nil {
		v, ok := p.Default.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: boolean default %v", ErrInvalidDefinition, p.Default)
		}
		def = v
	}
	if len(p.Values) > 0 || len(p.Range) > 0 {
		return nil, fmt.Errorf("%w: boolean takes no range or values", ErrInvalidDefinition)
	}
	return schema.NewBooleanProperty(def), nil
}

func (p Property) buildString() (schema.Property, error) {
	def := ""
	if p.Default != nil {
		v, ok := p.Default.(string)
		if !ok {
			return nil, fmt.Errorf("%w: string default %v", ErrInvalidDefinition, p.Default)
		}
		def = v
	}
	prop := schema.NewStringProperty(def)

	if len(p.Values) > 0 {
		values := make([]string, len(p.Values))
		for i, raw := range p.Values {
			v, ok := raw.(string)
			if !ok {
				return nil, fmt.Errorf("%w: string value %v", ErrInvalidDefinition, raw)
			}
			values[i] = v
		}
		prop.SetValues(values)
		return prop, nil
	}
	min, max, ok, err := p.intRange()
	if err != nil {
		return nil, err
	}
	if ok {
		prop.SetRange(min, max)
	}
	return prop, nil
}

func (p Property) buildArray() (schema.Property, error) {
	if p.Items == nil {
		return nil, fmt.Errorf("%w: array has no items", schema.ErrBadSchema)
	}
	if p.Default != nil || len(p.Values) > 0 {
		return nil, fmt.Errorf("%w: array takes no default or values", ErrInvalidDefinition)
	}
	elem, err := p.Items.Build()
	if err != nil {
		return nil, fmt.Errorf("items: %w", err)
	}
	prop, err := schema.NewArrayProperty(elem)
	if err != nil {
		return nil, err
	}
	min, max, ok, err := p.intRange()
	if err != nil {
		return nil, err
	}
	if ok {
		prop.SetRange(min, max)
	}
	prop.SetVariable(p.Variable)
	prop.SetUnique(p.Unique)
	if err := prop.CheckDefault(); err != nil {
		return nil, err
	}
	return prop, nil
}

func (p Property) buildModel() (schema.Property, error) {
	if p.Default != nil || len(p.Values) > 0 || len(p.Range) > 0 {
		return nil, fmt.Errorf("%w: model takes no default, range or values", ErrInvalidDefinition)
	}
	return p.Properties.Build()
}

func asInt(raw any) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case float64:
		if v == math.Trunc(v) {
			return int(v), true
		}
	}
	return 0, false
}

func asFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case int:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}
