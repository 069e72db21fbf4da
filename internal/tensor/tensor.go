// Package tensor holds named, typed, shaped arrays as exchanged between the
// inference host and model backends.
//
// Integer types are stored widened (int64 or uint64) and floats as float64;
// the DataType field records the declared width and Cast applies it.
package tensor

import (
	"fmt"
)

// Tensor is a named n-dimensional array in row-major order.
type Tensor struct {
	Name     string
	DataType DataType
	Shape    []int64

	bools   []bool
	signed  []int64
	unsign  []uint64
	floats  []float64
	byteArr [][]byte
}

// FromInt64 builds a signed integer tensor. dt must be one of INT8..INT64;
// values are wrapped to the declared width.
func FromInt64(name string, dt DataType, shape []int64, data []int64) (*Tensor, error) {
	if dt.kind() != kindSigned {
		return nil, fmt.Errorf("tensor %s: %s is not a signed integer type", name, dt)
	}
	t := &Tensor{Name: name, DataType: dt, Shape: cloneShape(shape), signed: make([]int64, len(data))}
	for i, v := range data {
		t.signed[i] = wrapSigned(v, dt)
	}
	return t, t.Validate()
}

// FromUint64 builds an unsigned integer tensor.
func FromUint64(name string, dt DataType, shape []int64, data []uint64) (*Tensor, error) {
	if dt.kind() != kindUnsigned {
		return nil, fmt.Errorf("tensor %s: %s is not an unsigned integer type", name, dt)
	}
	t := &Tensor{Name: name, DataType: dt, Shape: cloneShape(shape), unsign: make([]uint64, len(data))}
	for i, v := range data {
		t.unsign[i] = wrapUnsigned(v, dt)
	}
	return t, t.Validate()
}

// FromFloat64 builds a floating point tensor. FP32 values are rounded to
// single precision.
func FromFloat64(name string, dt DataType, shape []int64, data []float64) (*Tensor, error) {
	if dt.kind() != kindFloat {
		return nil, fmt.Errorf("tensor %s: %s is not a floating point type", name, dt)
	}
	t := &Tensor{Name: name, DataType: dt, Shape: cloneShape(shape), floats: make([]float64, len(data))}
	for i, v := range data {
		t.floats[i] = roundFloat(v, dt)
	}
	return t, t.Validate()
}

// FromBool builds a BOOL tensor.
func FromBool(name string, shape []int64, data []bool) (*Tensor, error) {
	t := &Tensor{Name: name, DataType: Bool, Shape: cloneShape(shape), bools: append([]bool(nil), data...)}
	return t, t.Validate()
}

// FromBytes builds a BYTES tensor.
func FromBytes(name string, shape []int64, data [][]byte) (*Tensor, error) {
	t := &Tensor{Name: name, DataType: Bytes, Shape: cloneShape(shape), byteArr: make([][]byte, len(data))}
	for i, b := range data {
		t.byteArr[i] = append([]byte(nil), b...)
	}
	return t, t.Validate()
}

// FromStrings builds a BYTES tensor from strings.
func FromStrings(name string, shape []int64, data []string) (*Tensor, error) {
	b := make([][]byte, len(data))
	for i, s := range data {
		b[i] = []byte(s)
	}
	return FromBytes(name, shape, b)
}

// Elements is the product of the shape. A rank-0 tensor has one element.
func (t *Tensor) Elements() int64 {
	n := int64(1)
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// Len is the number of stored elements.
func (t *Tensor) Len() int {
	switch t.DataType.kind() {
	case kindBool:
		return len(t.bools)
	case kindSigned:
		return len(t.signed)
	case kindUnsigned:
		return len(t.unsign)
	case kindFloat:
		return len(t.floats)
	case kindBytes:
		return len(t.byteArr)
	}
	return 0
}

// Validate checks the type is materializable, dims are non-negative and the
// element count matches the shape.
func (t *Tensor) Validate() error {
	if !t.DataType.Supported() {
		return fmt.Errorf("tensor %s: %w: %s", t.Name, ErrUnsupportedType, t.DataType)
	}
	for _, d := range t.Shape {
		if d < 0 {
			return fmt.Errorf("tensor %s: negative dimension in shape %v", t.Name, t.Shape)
		}
	}
	if n := t.Elements(); int64(t.Len()) != n {
		return fmt.Errorf("tensor %s: shape %v wants %d elements, got %d", t.Name, t.Shape, n, t.Len())
	}
	return nil
}

// Int64s returns the elements as int64. Float and BYTES tensors are rejected.
func (t *Tensor) Int64s() ([]int64, error) {
	switch t.DataType.kind() {
	case kindSigned:
		return append([]int64(nil), t.signed...), nil
	case kindUnsigned:
		out := make([]int64, len(t.unsign))
		for i, v := range t.unsign {
			out[i] = int64(v)
		}
		return out, nil
	case kindBool:
		out := make([]int64, len(t.bools))
		for i, v := range t.bools {
			if v {
				out[i] = 1
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("tensor %s: %s cannot be read as integers", t.Name, t.DataType)
}

// Float64s returns numeric elements as float64.
func (t *Tensor) Float64s() ([]float64, error) {
	switch t.DataType.kind() {
	case kindFloat:
		return append([]float64(nil), t.floats...), nil
	case kindSigned, kindUnsigned, kindBool:
		out := make([]float64, t.Len())
		for i := range out {
			out[i] = t.asFloat64(i)
		}
		return out, nil
	}
	return nil, fmt.Errorf("tensor %s: %s cannot be read as floats", t.Name, t.DataType)
}

// Bools returns the elements of a BOOL tensor.
func (t *Tensor) Bools() ([]bool, error) {
	if t.DataType != Bool {
		return nil, fmt.Errorf("tensor %s: %s is not BOOL", t.Name, t.DataType)
	}
	return append([]bool(nil), t.bools...), nil
}

// Strings returns the elements of a BYTES tensor.
func (t *Tensor) Strings() ([]string, error) {
	if t.DataType != Bytes {
		return nil, fmt.Errorf("tensor %s: %s is not BYTES", t.Name, t.DataType)
	}
	out := make([]string, len(t.byteArr))
	for i, b := range t.byteArr {
		out[i] = string(b)
	}
	return out, nil
}

// IntRows splits an integer tensor into rows. Rank 1 is a single row, rank 2
// yields Shape[0] rows of Shape[1] elements.
func (t *Tensor) IntRows() ([][]int64, error) {
	flat, err := t.Int64s()
	if err != nil {
		return nil, err
	}
	switch len(t.Shape) {
	case 1:
		return [][]int64{flat}, nil
	case 2:
		rows, cols := int(t.Shape[0]), int(t.Shape[1])
		out := make([][]int64, rows)
		for r := 0; r < rows; r++ {
			out[r] = flat[r*cols : (r+1)*cols]
		}
		return out, nil
	}
	return nil, fmt.Errorf("tensor %s: expected rank 1 or 2, got shape %v", t.Name, t.Shape)
}

// PaddedInt64 packs ragged rows into a [len(rows), longest] tensor, filling
// short rows with pad.
func PaddedInt64(name string, dt DataType, rows [][]int64, pad int64) (*Tensor, error) {
	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	flat := make([]int64, 0, len(rows)*width)
	for _, r := range rows {
		flat = append(flat, r...)
		for i := len(r); i < width; i++ {
			flat = append(flat, pad)
		}
	}
	return FromInt64(name, dt, []int64{int64(len(rows)), int64(width)}, flat)
}

// Clone returns a deep copy, optionally renamed.
func (t *Tensor) Clone(name string) *Tensor {
	if name == "" {
		name = t.Name
	}
	c := &Tensor{
		Name:     name,
		DataType: t.DataType,
		Shape:    cloneShape(t.Shape),
		bools:    append([]bool(nil), t.bools...),
		signed:   append([]int64(nil), t.signed...),
		unsign:   append([]uint64(nil), t.unsign...),
		floats:   append([]float64(nil), t.floats...),
	}
	if t.byteArr != nil {
		c.byteArr = make([][]byte, len(t.byteArr))
		for i, b := range t.byteArr {
			c.byteArr[i] = append([]byte(nil), b...)
		}
	}
	return c
}

func cloneShape(s []int64) []int64 {
	if s == nil {
		return []int64{}
	}
	return append([]int64(nil), s...)
}
