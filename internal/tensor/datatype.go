package tensor

import (
	"errors"
	"fmt"
	"strings"
)

// DataType names the element type of a tensor using the KServe v2 spelling.
type DataType string

const (
	Bool   DataType = "BOOL"
	Uint8  DataType = "UINT8"
	Uint16 DataType = "UINT16"
	Uint32 DataType = "UINT32"
	Uint64 DataType = "UINT64"
	Int8   DataType = "INT8"
	Int16  DataType = "INT16"
	Int32  DataType = "INT32"
	Int64  DataType = "INT64"
	FP16   DataType = "FP16"
	BF16   DataType = "BF16"
	FP32   DataType = "FP32"
	FP64   DataType = "FP64"
	Bytes  DataType = "BYTES"
)

// ErrUnsupportedType is returned for types that are recognized on the wire
// but cannot be held in memory by this package.
var ErrUnsupportedType = errors.New("unsupported tensor data type")

type kind int

const (
	kindInvalid kind = iota
	kindBool
	kindSigned
	kindUnsigned
	kindFloat
	kindBytes
)

var known = map[DataType]kind{
	Bool:   kindBool,
	Uint8:  kindUnsigned,
	Uint16: kindUnsigned,
	Uint32: kindUnsigned,
	Uint64: kindUnsigned,
	Int8:   kindSigned,
	Int16:  kindSigned,
	Int32:  kindSigned,
	Int64:  kindSigned,
	FP16:   kindInvalid,
	BF16:   kindInvalid,
	FP32:   kindFloat,
	FP64:   kindFloat,
	Bytes:  kindBytes,
}

// ParseDataType accepts KServe names ("INT32") as well as model-config names
// ("TYPE_INT32"). TYPE_STRING maps to BYTES. Matching is case-insensitive.
func ParseDataType(s string) (DataType, error) {
	u := strings.ToUpper(strings.TrimSpace(s))
	u = strings.TrimPrefix(u, "TYPE_")
	if u == "STRING" {
		u = string(Bytes)
	}
	dt := DataType(u)
	if _, ok := known[dt]; !ok {
		return "", fmt.Errorf("unknown data type %q", s)
	}
	return dt, nil
}

// MustParseDataType is ParseDataType for constants in tests and defaults.
func MustParseDataType(s string) DataType {
	dt, err := ParseDataType(s)
	if err != nil {
		panic(err)
	}
	return dt
}

// ConfigName returns the model-config spelling of the type, e.g. TYPE_FP32.
func (d DataType) ConfigName() string {
	if d == Bytes {
		return "TYPE_STRING"
	}
	return "TYPE_" + string(d)
}

// Supported reports whether tensors of this type can be materialized.
func (d DataType) Supported() bool {
	k, ok := known[d]
	return ok && k != kindInvalid
}

// IsNumeric reports whether d is an integer or floating point type.
func (d DataType) IsNumeric() bool {
	switch known[d] {
	case kindSigned, kindUnsigned, kindFloat:
		return true
	}
	return false
}

// Size is the element width in bytes; zero for BYTES.
func (d DataType) Size() int {
	switch d {
	case Bool, Uint8, Int8:
		return 1
	case Uint16, Int16, FP16, BF16:
		return 2
	case Uint32, Int32, FP32:
		return 4
	case Uint64, Int64, FP64:
		return 8
	}
	return 0
}

func (d DataType) kind() kind { return known[d] }
