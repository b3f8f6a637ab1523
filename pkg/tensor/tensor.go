// Package tensor holds the rows x cols tensor store. A Tensor owns exactly one
// backing buffer whose representation is fixed by its ElementType.
package tensor

import (
	"fmt"
	"math"

	"github.com/x448/float16"
)

// storage is implemented by the three buffer kinds below. A Tensor holds
// exactly one of them, matching its element type.
type storage interface {
	elementType() ElementType
	len() int
}

type float32Buf []float32
type float16Buf []uint16
type int8Buf []int8

func (float32Buf) elementType() ElementType { return Float32 }
func (float16Buf) elementType() ElementType { return Float16Raw }
func (int8Buf) elementType() ElementType    { return Int8Quantized }

func (b float32Buf) len() int { return len(b) }
func (b float16Buf) len() int { return len(b) }
func (b int8Buf) len() int    { return len(b) }

// Tensor is a dense row-major matrix stored in one of three representations.
//
// A Tensor exclusively owns its buffer. Slices returned by the typed
// accessors are views into that buffer and become invalid after Release.
// A Tensor is not safe for concurrent use.
type Tensor struct {
	rows, cols uint16
	dtype      ElementType
	data       storage
	alloc      *Allocator
}

// New creates a zero-initialised tensor with no allocation budget.
// Zero rows or columns yield an empty buffer.
func New(rows, cols uint16, et ElementType) (*Tensor, error) {
	var a *Allocator
	return a.New(rows, cols, et)
}

// byteSize returns the buffer size for the given shape and type.
// The element count is widened to uint32 and the byte size to uint64 so
// neither product can overflow.
func byteSize(rows, cols uint16, et ElementType) (count uint32, bytes uint64) {
	count = uint32(rows) * uint32(cols)
	return count, uint64(count) * uint64(et.Size())
}

func newStorage(et ElementType, n int) storage {
	switch et {
	case Float32:
		return make(float32Buf, n)
	case Float16Raw:
		return make(float16Buf, n)
	case Int8Quantized:
		return make(int8Buf, n)
	}
	return nil
}

// Rows returns the number of rows.
func (t *Tensor) Rows() uint16 { return t.rows }

// Cols returns the number of columns.
func (t *Tensor) Cols() uint16 { return t.cols }

// ElementType returns the type tag fixed at creation.
func (t *Tensor) ElementType() ElementType { return t.dtype }

// Len returns rows*cols.
func (t *Tensor) Len() uint32 {
	n, _ := byteSize(t.rows, t.cols, t.dtype)
	return n
}

// ByteLen returns the size of the backing buffer in bytes.
func (t *Tensor) ByteLen() uint64 {
	_, b := byteSize(t.rows, t.cols, t.dtype)
	return b
}

// Released reports whether Release has been called.
func (t *Tensor) Released() bool { return t == nil || t.data == nil }

// Release drops the backing buffer and returns its bytes to the allocator
// the tensor was created from. Every later access, including a second
// Release, fails with ErrReleased.
func (t *Tensor) Release() error {
	if t.Released() {
		return ErrReleased
	}
	n := t.ByteLen()
	t.data = nil
	t.alloc.free(n)
	t.alloc = nil
	return nil
}

// Index returns the row-major flat index of (row, col).
func (t *Tensor) Index(row, col uint16) (int, error) {
	if row >= t.rows || col >= t.cols {
		return 0, fmt.Errorf("%w: (%d,%d) outside %dx%d", ErrIndexOutOfRange, row, col, t.rows, t.cols)
	}
	return int(row)*int(t.cols) + int(col), nil
}

func (t *Tensor) String() string {
	s := fmt.Sprintf("Tensor[%s][%dx%d]", t.dtype, t.rows, t.cols)
	if t.Released() {
		s += " (released)"
	}
	return s
}

// check gates typed access on the element type tag.
func (t *Tensor) check(want ElementType) error {
	if t.Released() {
		return ErrReleased
	}
	if t.dtype != want {
		return fmt.Errorf("%w: tensor is %s, not %s", ErrTypeMismatch, t.dtype, want)
	}
	return nil
}

func checkIndex(i, n int) error {
	if i < 0 || i >= n {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, i, n)
	}
	return nil
}

// Float32 returns the buffer of a Float32 tensor.
func (t *Tensor) Float32() ([]float32, error) {
	if err := t.check(Float32); err != nil {
		return nil, err
	}
	return t.data.(float32Buf), nil
}

// Float16Raw returns the buffer of a Float16Raw tensor as raw 16-bit units.
func (t *Tensor) Float16Raw() ([]uint16, error) {
	if err := t.check(Float16Raw); err != nil {
		return nil, err
	}
	return t.data.(float16Buf), nil
}

// Int8 returns the buffer of an Int8Quantized tensor.
func (t *Tensor) Int8() ([]int8, error) {
	if err := t.check(Int8Quantized); err != nil {
		return nil, err
	}
	return t.data.(int8Buf), nil
}

func (t *Tensor) Float32At(i int) (float32, error) {
	buf, err := t.Float32()
	if err != nil {
		return 0, err
	}
	if err := checkIndex(i, len(buf)); err != nil {
		return 0, err
	}
	return buf[i], nil
}

func (t *Tensor) SetFloat32(i int, v float32) error {
	buf, err := t.Float32()
	if err != nil {
		return err
	}
	if err := checkIndex(i, len(buf)); err != nil {
		return err
	}
	buf[i] = v
	return nil
}

func (t *Tensor) Float16RawAt(i int) (uint16, error) {
	buf, err := t.Float16Raw()
	if err != nil {
		return 0, err
	}
	if err := checkIndex(i, len(buf)); err != nil {
		return 0, err
	}
	return buf[i], nil
}

func (t *Tensor) SetFloat16Raw(i int, v uint16) error {
	buf, err := t.Float16Raw()
	if err != nil {
		return err
	}
	if err := checkIndex(i, len(buf)); err != nil {
		return err
	}
	buf[i] = v
	return nil
}

func (t *Tensor) Int8At(i int) (int8, error) {
	buf, err := t.Int8()
	if err != nil {
		return 0, err
	}
	if err := checkIndex(i, len(buf)); err != nil {
		return 0, err
	}
	return buf[i], nil
}

func (t *Tensor) SetInt8(i int, v int8) error {
	buf, err := t.Int8()
	if err != nil {
		return err
	}
	if err := checkIndex(i, len(buf)); err != nil {
		return err
	}
	buf[i] = v
	return nil
}

// FillFloat32 copies values into a Float32 tensor. len(values) must equal Len().
func (t *Tensor) FillFloat32(values []float32) error {
	buf, err := t.Float32()
	if err != nil {
		return err
	}
	if len(values) != len(buf) {
		return fmt.Errorf("%w: %d values for %d elements", ErrShapeMismatch, len(values), len(buf))
	}
	copy(buf, values)
	return nil
}

// EncodeFloat16 stores values into a Float16Raw tensor as IEEE 754 half
// precision bit patterns. NaN and out-of-range values follow the usual
// float32 to float16 conversion (NaN stays NaN, overflow becomes ±Inf).
func (t *Tensor) EncodeFloat16(values []float32) error {
	buf, err := t.Float16Raw()
	if err != nil {
		return err
	}
	if len(values) != len(buf) {
		return fmt.Errorf("%w: %d values for %d elements", ErrShapeMismatch, len(values), len(buf))
	}
	for i, v := range values {
		buf[i] = float16.Fromfloat32(v).Bits()
	}
	return nil
}

// maxBufferBytes is the largest buffer make can be asked for on this platform.
const maxBufferBytes = uint64(math.MaxInt)
