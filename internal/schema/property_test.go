package schema

import (
	"errors"
	"slices"
	"testing"
)

func mustArray(t *testing.T, elem Property) *ArrayProperty {
	t.Helper()
	p, err := NewArrayProperty(elem)
	if err != nil {
		t.Fatalf("NewArrayProperty() error = %v", err)
	}
	return p
}

func TestIntegerProperty(t *testing.T) {
	p := NewIntegerProperty(5)
	if !p.Validate(Int(-100)) {
		t.Error("unconstrained property rejected an integer")
	}
	if p.Validate(Double(5)) {
		t.Error("integer property accepted a double")
	}

	p.SetRange(0, 10)
	for _, tc := range []struct {
		v    int
		want bool
	}{{0, true}, {10, true}, {-1, false}, {11, false}} {
		if got := p.Validate(Int(tc.v)); got != tc.want {
			t.Errorf("Validate(%d) = %v, want %v", tc.v, got, tc.want)
		}
	}

	p.SetValues([]int{2, 4, 8})
	if p.HasRange() {
		t.Error("SetValues() should clear the range")
	}
	if p.Validate(Int(3)) || !p.Validate(Int(4)) {
		t.Error("value set membership not enforced")
	}

	p.SetRange(1, 3)
	if p.HasValues() {
		t.Error("SetRange() should clear the value set")
	}
}

func TestSelfHealingDefault(t *testing.T) {
	t.Run("range snaps to minimum", func(t *testing.T) {
		p := NewIntegerProperty(50)
		p.SetRange(0, 10)
		if p.Default() != 0 {
			t.Errorf("Default() = %d, want 0", p.Default())
		}
		p.SetDefault(99)
		if p.Default() != 0 {
			t.Errorf("Default() after SetDefault(99) = %d, want 0", p.Default())
		}
		p.SetDefault(7)
		if p.Default() != 7 {
			t.Errorf("Default() = %d, want 7", p.Default())
		}
	})

	t.Run("value set snaps to first value", func(t *testing.T) {
		p := NewDoubleProperty(1.5)
		p.SetValues([]float64{0.25, 0.5})
		if p.Default() != 0.25 {
			t.Errorf("Default() = %v, want 0.25", p.Default())
		}
	})

	t.Run("in-range default kept", func(t *testing.T) {
		p := NewDoubleProperty(21.5)
		p.SetRange(10, 30)
		if p.Default() != 21.5 {
			t.Errorf("Default() = %v, want 21.5", p.Default())
		}
	})

	t.Run("string truncated to max length", func(t *testing.T) {
		p := NewStringProperty("kitchen")
		p.SetRange(1, 3)
		if p.Default() != "kit" {
			t.Errorf("Default() = %q, want kit", p.Default())
		}
	})

	t.Run("string padded to min length", func(t *testing.T) {
		p := NewStringProperty("ab")
		p.SetRange(4, 8)
		if p.Default() != "abxx" {
			t.Errorf("Default() = %q, want abxx", p.Default())
		}
	})

	t.Run("string value set", func(t *testing.T) {
		p := NewStringProperty("purple")
		p.SetValues([]string{"red", "green"})
		if p.Default() != "red" {
			t.Errorf("Default() = %q, want red", p.Default())
		}
	})
}

func TestStringPropertyValidate(t *testing.T) {
	p := NewStringProperty("on")
	p.SetRange(2, 3)
	tests := []struct {
		in   Value
		want bool
	}{
		{String("on"), true},
		{String("off"), true},
		{String("o"), false},
		{String("auto"), false},
		{Int(2), false},
	}
	for _, tt := range tests {
		if got := p.Validate(tt.in); got != tt.want {
			t.Errorf("Validate(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestBooleanProperty(t *testing.T) {
	p := NewBooleanProperty(true)
	if !p.Validate(Bool(false)) || !p.Validate(Bool(true)) {
		t.Error("boolean property rejected a boolean")
	}
	if p.Validate(Int(1)) {
		t.Error("boolean property accepted an integer")
	}
	if b, _ := p.BuildValue().AsBool(); !b {
		t.Error("BuildValue() lost the default")
	}
}

func TestArrayPropertyValidate(t *testing.T) {
	p := mustArray(t, NewIntegerProperty(0))
	p.SetRange(1, 3)
	p.SetUnique(true)

	tests := []struct {
		name string
		in   Value
		want bool
	}{
		{"empty is too short", IntList(), false},
		{"four items too long", IntList(1, 2, 3, 4), false},
		{"duplicate items", IntList(1, 1), false},
		{"valid", IntList(1, 2), true},
		{"at max", IntList(1, 2, 3), true},
		{"wrong element type", DoubleList(1, 2), false},
		{"scalar", Int(1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Validate(tt.in); got != tt.want {
				t.Errorf("Validate(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}

	p.SetVariable(true)
	if !p.Validate(IntList(1, 2, 3, 4)) {
		t.Error("variable-size array rejected a list above max")
	}
	if p.Validate(IntList()) {
		t.Error("variable-size array accepted a list below min")
	}
}

func TestArrayPropertyElementConstraint(t *testing.T) {
	elem := NewIntegerProperty(0)
	elem.SetRange(0, 5)
	p := mustArray(t, elem)

	if p.Validate(IntList(1, 6)) {
		t.Error("element outside its range accepted")
	}
	if !p.Validate(IntList()) {
		t.Error("array without range rejected an empty list")
	}
}

func TestArrayPropertyDepth(t *testing.T) {
	depth1 := mustArray(t, NewStringProperty(""))
	depth2 := mustArray(t, depth1)
	depth3 := mustArray(t, depth2)

	if got := depth3.TypeInfo(); got != ListType(TypeString, 3) {
		t.Errorf("TypeInfo() = %v", got)
	}

	if _, err := NewArrayProperty(depth3); !errors.Is(err, ErrBadSchema) {
		t.Errorf("depth 4 error = %v, want ErrBadSchema", err)
	}
	if _, err := NewArrayProperty(nil); !errors.Is(err, ErrBadSchema) {
		t.Errorf("nil element error = %v, want ErrBadSchema", err)
	}
	if err := depth1.SetElementProperty(depth3); !errors.Is(err, ErrBadSchema) {
		t.Errorf("SetElementProperty() error = %v, want ErrBadSchema", err)
	}
	if depth1.ElementProperty().Kind() != TypeString {
		t.Error("failed SetElementProperty() replaced the element")
	}
}

func TestArrayPropertyBuildValue(t *testing.T) {
	p := mustArray(t, NewIntegerProperty(7))
	if got := p.BuildValue(); !got.Equal(IntList(7)) {
		t.Errorf("BuildValue() = %v, want [7]", got)
	}

	p.SetRange(2, 4)
	if got := p.BuildValue(); !got.Equal(IntList(7, 7)) {
		t.Errorf("BuildValue() = %v, want [7, 7]", got)
	}

	p.SetRange(0, 0)
	if got := p.BuildValue(); got.Len() != 0 {
		t.Errorf("BuildValue() = %v, want []", got)
	}
}

func TestModelProperty(t *testing.T) {
	p := NewModelProperty()
	if err := p.Add("power", NewBooleanProperty(false), true); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := p.Add("level", NewIntegerProperty(0), false); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := p.Add("power", NewBooleanProperty(true), false); !errors.Is(err, ErrDuplicateProperty) {
		t.Errorf("duplicate Add() error = %v", err)
	}
	if err := p.Add("", NewBooleanProperty(true), false); !errors.Is(err, ErrBadSchema) {
		t.Errorf("empty-name Add() error = %v", err)
	}
	if err := p.SetRequired("missing"); !errors.Is(err, ErrUnknownProperty) {
		t.Errorf("SetRequired(missing) error = %v", err)
	}
	if err := p.SetRequired("level"); err != nil {
		t.Errorf("SetRequired(level) error = %v", err)
	}

	if got := p.Names(); !slices.Equal(got, []string{"power", "level"}) {
		t.Errorf("Names() = %v", got)
	}
	if got := p.RequiredNames(); !slices.Equal(got, []string{"power", "level"}) {
		t.Errorf("RequiredNames() = %v", got)
	}

	p.Remove("level")
	if got := p.RequiredNames(); !slices.Equal(got, []string{"power"}) {
		t.Errorf("RequiredNames() after Remove = %v", got)
	}
}

func TestModelPropertyValidate(t *testing.T) {
	level := NewIntegerProperty(0)
	level.SetRange(0, 100)
	p := NewModelProperty()
	_ = p.Add("level", level, true)

	ok := NewResourceModel()
	ok.Add("level", Int(50))
	ok.Add("vendor", String("acme"))
	if !p.ValidateModel(ok) {
		t.Error("extra attribute should be ignored")
	}

	bad := NewResourceModel()
	bad.Add("level", Int(500))
	if p.ValidateModel(bad) {
		t.Error("out-of-range attribute accepted")
	}

	if !p.ValidateModel(NewResourceModel()) {
		t.Error("missing required attribute is not a validation failure")
	}
	if p.Validate(Int(1)) {
		t.Error("model property accepted a scalar")
	}
}

func TestBuildValueIsSelfConsistent(t *testing.T) {
	color := NewStringProperty("white")
	color.SetValues([]string{"red", "green"})

	temp := NewDoubleProperty(100)
	temp.SetRange(-10, 40)

	name := NewStringProperty("")
	name.SetRange(3, 16)

	points := mustArray(t, NewDoubleProperty(0))
	points.SetRange(1, 3)

	matrix := mustArray(t, mustArray(t, NewIntegerProperty(1)))
	matrix.SetRange(2, 2)

	nested := NewModelProperty()
	_ = nested.Add("x", NewIntegerProperty(0), true)
	_ = nested.Add("on", NewBooleanProperty(true), false)

	rooms := mustArray(t, nested)
	rooms.SetUnique(true)

	levels := NewIntegerProperty(0)
	levels.SetRange(0, 10)
	presets := mustArray(t, levels)
	presets.SetRange(2, 3)
	presets.SetUnique(true)

	modes := NewStringProperty("eco")
	modes.SetValues([]string{"eco", "comfort", "boost"})
	modeList := mustArray(t, modes)
	modeList.SetRange(3, 3)
	modeList.SetUnique(true)

	labels := NewStringProperty("")
	labels.SetRange(2, 4)
	labelList := mustArray(t, labels)
	labelList.SetRange(5, 5)
	labelList.SetUnique(true)

	flags := mustArray(t, NewBooleanProperty(false))
	flags.SetRange(2, 2)
	flags.SetUnique(true)

	gains := mustArray(t, NewDoubleProperty(0.5))
	gains.SetRange(2, 4)
	gains.SetUnique(true)

	root := NewModelProperty()
	_ = root.Add("color", color, true)
	_ = root.Add("temperature", temp, true)
	_ = root.Add("name", name, false)
	_ = root.Add("points", points, false)
	_ = root.Add("matrix", matrix, false)
	_ = root.Add("position", nested, false)
	_ = root.Add("rooms", rooms, false)

	props := []Property{color, temp, name, points, matrix, nested, rooms, root,
		presets, modeList, labelList, flags, gains}
	for _, p := range props {
		v := p.BuildValue()
		if !p.Validate(v) {
			t.Errorf("%s: Validate(BuildValue()) = false for %v", p.TypeInfo(), v)
		}
		if v.TypeInfo() != p.TypeInfo() {
			t.Errorf("BuildValue() type = %v, want %v", v.TypeInfo(), p.TypeInfo())
		}
	}

	m := root.BuildModel()
	if m.Size() != root.Size() {
		t.Errorf("BuildModel() has %d attributes, want %d", m.Size(), root.Size())
	}
}

func TestArrayCheckDefault(t *testing.T) {
	unique := func(elem Property, min, max int) *ArrayProperty {
		a := mustArray(t, elem)
		a.SetRange(min, max)
		a.SetUnique(true)
		return a
	}
	pair := NewIntegerProperty(1)
	pair.SetValues([]int{1, 2})
	point := NewModelProperty()
	_ = point.Add("x", NewIntegerProperty(0), true)

	tests := []struct {
		name    string
		prop    *ArrayProperty
		wantErr bool
	}{
		{"unique ints", unique(NewIntegerProperty(0), 2, 3), false},
		{"value set just large enough", unique(pair, 2, 2), false},
		{"value set too small", unique(pair, 3, 3), true},
		{"three booleans", unique(NewBooleanProperty(true), 3, 3), true},
		{"unique models", unique(point, 2, 2), true},
		{"single model", unique(point, 1, 1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.prop.CheckDefault()
			if tt.wantErr {
				if !errors.Is(err, ErrBadSchema) {
					t.Errorf("CheckDefault() = %v, want ErrBadSchema", err)
				}
				return
			}
			if err != nil {
				t.Errorf("CheckDefault() = %v", err)
			}
			if v := tt.prop.BuildValue(); !tt.prop.Validate(v) {
				t.Errorf("Validate(BuildValue()) = false for %v", v)
			}
		})
	}
}
