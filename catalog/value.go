package catalog

import (
	"fmt"

	"github.com/rohanthewiz/serr"
)

// ParamType identifies the kind of value a model parameter accepts
type ParamType string

const (
	ParamNumber  ParamType = "number"
	ParamBoolean ParamType = "boolean"
	ParamSelect  ParamType = "select"
	ParamText    ParamType = "text"
	ParamSlider  ParamType = "slider"
)

// Value is a typed parameter value. Exactly one of the payload fields is
// meaningful, selected by Type: Num for number/slider, Bool for boolean,
// Text for select/text.
type Value struct {
	Type ParamType `json:"type"`
	Num  float64   `json:"num,omitempty"`
	Bool bool      `json:"bool,omitempty"`
	Text string    `json:"text,omitempty"`
}

// Number returns a number-typed value
func Number(v float64) Value {
	return Value{Type: ParamNumber, Num: v}
}

// Boolean returns a boolean-typed value
func Boolean(v bool) Value {
	return Value{Type: ParamBoolean, Bool: v}
}

// Select returns a select-typed value holding an option id
func Select(option string) Value {
	return Value{Type: ParamSelect, Text: option}
}

// Text returns a free-text value
func Text(v string) Value {
	return Value{Type: ParamText, Text: v}
}

// Slider returns a slider-typed value
func Slider(v float64) Value {
	return Value{Type: ParamSlider, Num: v}
}

// String renders the payload for display and explanations
func (v Value) String() string {
	switch v.Type {
	case ParamNumber, ParamSlider:
		return fmt.Sprintf("%g", v.Num)
	case ParamBoolean:
		return fmt.Sprintf("%t", v.Bool)
	default:
		return v.Text
	}
}

// Validate checks a value against a parameter spec. The type tag must match.
// Sliders and numbers must fall inside the declared range. Select values must
// be one of the declared options.
func (spec ParameterSpec) Validate(v Value) error {
	if v.Type != spec.Type {
		return serr.New(fmt.Sprintf("parameter %s expects %s, got %s", spec.ID, spec.Type, v.Type))
	}

	switch spec.Type {
	case ParamNumber, ParamSlider:
		if spec.Min != nil && v.Num < *spec.Min {
			return serr.New(fmt.Sprintf("parameter %s below minimum %g", spec.ID, *spec.Min))
		}
		if spec.Max != nil && v.Num > *spec.Max {
			return serr.New(fmt.Sprintf("parameter %s above maximum %g", spec.ID, *spec.Max))
		}
	case ParamSelect:
		for _, opt := range spec.Options {
			if opt.Value == v.Text {
				return nil
			}
		}
		return serr.New(fmt.Sprintf("parameter %s has no option %q", spec.ID, v.Text))
	}

	return nil
}
