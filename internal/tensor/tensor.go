// Package tensor implements the dynamic-rank float32 tensor exchanged
// between front ends and inference workers.
package tensor

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrShapeMismatch is returned when a tensor's flat buffer length does not
// match the product of its shape.
var ErrShapeMismatch = errors.New("tensor: product(shape) != len(data)")

// Tensor is a row-major, dynamic-rank float32 buffer with an explicit shape.
// The choice of tensor math library is left to the backend collaborator;
// this type is the minimal wire/in-process representation the dispatch
// fabric and session adapter agree on.
type Tensor struct {
	Shape []int64   `json:"shape"`
	Data  []float32 `json:"data"`
}

// New builds a Tensor and validates it.
func New(shape []int64, data []float32) (Tensor, error) {
	t := Tensor{Shape: shape, Data: data}
	if err := t.Validate(); err != nil {
		return Tensor{}, err
	}
	return t, nil
}

// Validate checks that len(Data) == product(Shape).
func (t Tensor) Validate() error {
	want := Size(t.Shape)
	if int64(len(t.Data)) != want {
		return fmt.Errorf("%w: shape=%v implies %d elements, got %d", ErrShapeMismatch, t.Shape, want, len(t.Data))
	}
	return nil
}

// Size returns the product of a shape vector (1 for the empty/scalar shape).
func Size(shape []int64) int64 {
	var size int64 = 1
	for _, d := range shape {
		size *= d
	}
	return size
}

// Reshape returns a copy of t with a new shape, validating element count.
func (t Tensor) Reshape(shape []int64) (Tensor, error) {
	return New(shape, t.Data)
}

// UnmarshalJSON accepts the canonical `{"shape": [...], "data": [...]}` form
// as well as legacy bare nested JSON arrays (e.g. `[[1,2],[3,4]]`) for
// cross-implementation backward compatibility.
func (t *Tensor) UnmarshalJSON(b []byte) error {
	var canonical struct {
		Shape []int64   `json:"shape"`
		Data  []float32 `json:"data"`
	}
	if err := json.Unmarshal(b, &canonical); err == nil && canonical.Shape != nil {
		t.Shape = canonical.Shape
		t.Data = canonical.Data
		return t.Validate()
	}

	var nested any
	if err := json.Unmarshal(b, &nested); err != nil {
		return fmt.Errorf("tensor: malformed body: %w", err)
	}

	shape, data, err := flatten(nested)
	if err != nil {
		return err
	}
	t.Shape = shape
	t.Data = data
	return nil
}

// flatten walks a nested []any structure (from encoding/json's generic
// decode) and produces a row-major shape + flat buffer.
func flatten(v any) ([]int64, []float32, error) {
	switch val := v.(type) {
	case float64:
		return []int64{}, []float32{float32(val)}, nil
	case []any:
		if len(val) == 0 {
			return []int64{0}, nil, nil
		}
		childShape, childData, err := flatten(val[0])
		if err != nil {
			return nil, nil, err
		}
		data := make([]float32, 0, len(childData)*len(val))
		data = append(data, childData...)
		for _, elem := range val[1:] {
			s, d, err := flatten(elem)
			if err != nil {
				return nil, nil, err
			}
			if !equalShape(s, childShape) {
				return nil, nil, fmt.Errorf("tensor: ragged nested array")
			}
			data = append(data, d...)
		}
		shape := append([]int64{int64(len(val))}, childShape...)
		return shape, data, nil
	default:
		return nil, nil, fmt.Errorf("tensor: unsupported JSON value %T in nested array", v)
	}
}

func equalShape(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
