package tensor

import (
	"fmt"
	"math"
)

// Cast converts t to dt. Numeric conversions follow fixed-width semantics:
// integers wrap to the target width, floats truncate toward zero when
// converted to integers, and anything non-zero becomes true for BOOL.
// Conversions between numeric types and BYTES are rejected.
func (t *Tensor) Cast(dt DataType) (*Tensor, error) {
	if !dt.Supported() {
		return nil, fmt.Errorf("cast %s: %w: %s", t.Name, ErrUnsupportedType, dt)
	}
	if t.DataType == dt {
		return t.Clone(""), nil
	}
	src, dst := t.DataType.kind(), dt.kind()
	if src == kindBytes || dst == kindBytes {
		return nil, fmt.Errorf("cast %s: cannot convert %s to %s", t.Name, t.DataType, dt)
	}

	out := &Tensor{Name: t.Name, DataType: dt, Shape: cloneShape(t.Shape)}
	n := t.Len()
	switch dst {
	case kindBool:
		out.bools = make([]bool, n)
		for i := 0; i < n; i++ {
			out.bools[i] = t.nonZero(i)
		}
	case kindSigned:
		out.signed = make([]int64, n)
		for i := 0; i < n; i++ {
			out.signed[i] = wrapSigned(t.asInt64(i), dt)
		}
	case kindUnsigned:
		out.unsign = make([]uint64, n)
		for i := 0; i < n; i++ {
			out.unsign[i] = wrapUnsigned(t.asUint64(i), dt)
		}
	case kindFloat:
		out.floats = make([]float64, n)
		for i := 0; i < n; i++ {
			out.floats[i] = roundFloat(t.asFloat64(i), dt)
		}
	}
	return out, nil
}

func (t *Tensor) nonZero(i int) bool {
	switch t.DataType.kind() {
	case kindBool:
		return t.bools[i]
	case kindSigned:
		return t.signed[i] != 0
	case kindUnsigned:
		return t.unsign[i] != 0
	case kindFloat:
		return t.floats[i] != 0
	}
	return false
}

func (t *Tensor) asInt64(i int) int64 {
	switch t.DataType.kind() {
	case kindBool:
		if t.bools[i] {
			return 1
		}
		return 0
	case kindSigned:
		return t.signed[i]
	case kindUnsigned:
		return int64(t.unsign[i])
	case kindFloat:
		f := t.floats[i]
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return math.MinInt64
		}
		return int64(f)
	}
	return 0
}

func (t *Tensor) asUint64(i int) uint64 {
	if t.DataType.kind() == kindUnsigned {
		return t.unsign[i]
	}
	return uint64(t.asInt64(i))
}

func (t *Tensor) asFloat64(i int) float64 {
	switch t.DataType.kind() {
	case kindFloat:
		return t.floats[i]
	case kindUnsigned:
		return float64(t.unsign[i])
	}
	return float64(t.asInt64(i))
}

func wrapSigned(v int64, dt DataType) int64 {
	switch dt {
	case Int8:
		return int64(int8(v))
	case Int16:
		return int64(int16(v))
	case Int32:
		return int64(int32(v))
	}
	return v
}

func wrapUnsigned(v uint64, dt DataType) uint64 {
	switch dt {
	case Uint8:
		return uint64(uint8(v))
	case Uint16:
		return uint64(uint16(v))
	case Uint32:
		return uint64(uint32(v))
	}
	return v
}

func roundFloat(v float64, dt DataType) float64 {
	if dt == FP32 {
		return float64(float32(v))
	}
	return v
}
