package tensor

import (
	"fmt"
	"strings"
)

// ElementType selects the storage representation of a tensor.
type ElementType uint8

const (
	Float32       ElementType = 0
	Float16Raw    ElementType = 1 // raw IEEE half bits, storage only
	Int8Quantized ElementType = 2
)

// Size returns the width of one element in bytes.
func (et ElementType) Size() int {
	switch et {
	case Float32:
		return 4
	case Float16Raw:
		return 2
	case Int8Quantized:
		return 1
	default:
		return 0
	}
}

// Valid reports whether et is one of the three supported types.
func (et ElementType) Valid() bool {
	return et.Size() != 0
}

func (et ElementType) String() string {
	switch et {
	case Float32:
		return "float32"
	case Float16Raw:
		return "float16raw"
	case Int8Quantized:
		return "int8"
	default:
		return fmt.Sprintf("ElementType(%d)", uint8(et))
	}
}

// ParseElementType accepts the long names returned by String as well as the
// short forms f32, f16 and i8.
func ParseElementType(s string) (ElementType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "float32", "f32":
		return Float32, nil
	case "float16raw", "float16", "f16":
		return Float16Raw, nil
	case "int8", "i8", "q8":
		return Int8Quantized, nil
	default:
		return 0, fmt.Errorf("%w: unknown element type %q", ErrTypeMismatch, s)
	}
}
