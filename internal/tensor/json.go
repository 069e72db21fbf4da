package tensor

import (
	"bytes"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// wireTensor is the KServe v2 JSON tensor object.
type wireTensor struct {
	Name       string              `json:"name"`
	Shape      []int64             `json:"shape"`
	DataType   string              `json:"datatype"`
	Parameters map[string]any      `json:"parameters,omitempty"`
	Data       jsoniter.RawMessage `json:"data"`
}

// MarshalJSON encodes the tensor with a flat row-major data array.
func (t *Tensor) MarshalJSON() ([]byte, error) {
	var data any
	switch t.DataType.kind() {
	case kindBool:
		data = nonNil(t.bools)
	case kindSigned:
		data = nonNil(t.signed)
	case kindUnsigned:
		data = nonNil(t.unsign)
	case kindFloat:
		data = nonNil(t.floats)
	case kindBytes:
		s, _ := t.Strings()
		data = nonNil(s)
	default:
		return nil, fmt.Errorf("tensor %s: %w: %s", t.Name, ErrUnsupportedType, t.DataType)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireTensor{Name: t.Name, Shape: cloneShape(t.Shape), DataType: string(t.DataType), Data: raw})
}

// UnmarshalJSON decodes a KServe v2 tensor. Nested data arrays are flattened
// in row-major order. The decoded tensor is validated against its shape.
func (t *Tensor) UnmarshalJSON(b []byte) error {
	var w wireTensor
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	dt, err := ParseDataType(w.DataType)
	if err != nil {
		return fmt.Errorf("tensor %s: %w", w.Name, err)
	}
	leaves, err := flatten(w.Data)
	if err != nil {
		return fmt.Errorf("tensor %s: %w", w.Name, err)
	}
	out := Tensor{Name: w.Name, DataType: dt, Shape: cloneShape(w.Shape)}
	switch dt.kind() {
	case kindBool:
		out.bools = make([]bool, len(leaves))
		for i, l := range leaves {
			if err := json.Unmarshal(l, &out.bools[i]); err != nil {
				return fmt.Errorf("tensor %s: element %d: %w", w.Name, i, err)
			}
		}
	case kindSigned:
		out.signed = make([]int64, len(leaves))
		for i, l := range leaves {
			var v int64
			if err := json.Unmarshal(l, &v); err != nil {
				return fmt.Errorf("tensor %s: element %d: %w", w.Name, i, err)
			}
			out.signed[i] = wrapSigned(v, dt)
		}
	case kindUnsigned:
		out.unsign = make([]uint64, len(leaves))
		for i, l := range leaves {
			var v uint64
			if err := json.Unmarshal(l, &v); err != nil {
				return fmt.Errorf("tensor %s: element %d: %w", w.Name, i, err)
			}
			out.unsign[i] = wrapUnsigned(v, dt)
		}
	case kindFloat:
		out.floats = make([]float64, len(leaves))
		for i, l := range leaves {
			var v float64
			if err := json.Unmarshal(l, &v); err != nil {
				return fmt.Errorf("tensor %s: element %d: %w", w.Name, i, err)
			}
			out.floats[i] = roundFloat(v, dt)
		}
	case kindBytes:
		out.byteArr = make([][]byte, len(leaves))
		for i, l := range leaves {
			var s string
			if err := json.Unmarshal(l, &s); err != nil {
				return fmt.Errorf("tensor %s: element %d: %w", w.Name, i, err)
			}
			out.byteArr[i] = []byte(s)
		}
	default:
		return fmt.Errorf("tensor %s: %w: %s", w.Name, ErrUnsupportedType, dt)
	}
	if err := out.Validate(); err != nil {
		return err
	}
	*t = out
	return nil
}

// flatten walks nested JSON arrays and returns the scalar leaves in order.
func flatten(raw []byte) ([]jsoniter.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] != '[' {
		return []jsoniter.RawMessage{raw}, nil
	}
	var items []jsoniter.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	out := make([]jsoniter.RawMessage, 0, len(items))
	for _, it := range items {
		it = bytes.TrimSpace(it)
		if len(it) > 0 && it[0] == '[' {
			sub, err := flatten(it)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
