// Package format renders tensors for people: a plain text dump for the CLI
// and a JSON snapshot for tooling and the HTTP API.
package format

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/samcharles93/tinyq/pkg/tensor"
)

const rule = "--------------------------"

// Write dumps t as a header line, the elements on one line and a rule.
// Float32 values use two decimals, int8 and float16raw values are written as
// plain integers (float16raw shows the raw 16-bit units, not decoded values).
func Write(w io.Writer, t *tensor.Tensor) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Tensor [%dx%d] - type: %s\n", t.Rows(), t.Cols(), t.ElementType())

	switch t.ElementType() {
	case tensor.Float32:
		buf, err := t.Float32()
		if err != nil {
			return err
		}
		for i, v := range buf {
			sep(&sb, i)
			sb.WriteString(strconv.FormatFloat(float64(v), 'f', 2, 32))
		}
	case tensor.Float16Raw:
		buf, err := t.Float16Raw()
		if err != nil {
			return err
		}
		for i, v := range buf {
			sep(&sb, i)
			sb.WriteString(strconv.FormatUint(uint64(v), 10))
		}
	case tensor.Int8Quantized:
		buf, err := t.Int8()
		if err != nil {
			return err
		}
		for i, v := range buf {
			sep(&sb, i)
			sb.WriteString(strconv.Itoa(int(v)))
		}
	default:
		return fmt.Errorf("%w: cannot render %s", tensor.ErrTypeMismatch, t.ElementType())
	}
	sb.WriteByte('\n')
	sb.WriteString(rule)
	sb.WriteByte('\n')

	_, err := io.WriteString(w, sb.String())
	return err
}

func sep(sb *strings.Builder, i int) {
	if i > 0 {
		sb.WriteByte(' ')
	}
}

// TensorSnapshot is a copy of a tensor's header and elements. Exactly one of
// the element slices is set, matching Type.
type TensorSnapshot struct {
	Rows       uint16    `json:"rows"`
	Cols       uint16    `json:"cols"`
	Type       string    `json:"type"`
	Bytes      uint64    `json:"bytes"`
	Float32    []float32 `json:"float32,omitempty"`
	Float16Raw []uint16  `json:"float16raw,omitempty"`
	Int8       []int8    `json:"int8,omitempty"`
}

// Snapshot copies t into a TensorSnapshot.
func Snapshot(t *tensor.Tensor) (TensorSnapshot, error) {
	s := TensorSnapshot{
		Rows:  t.Rows(),
		Cols:  t.Cols(),
		Type:  t.ElementType().String(),
		Bytes: t.ByteLen(),
	}
	switch t.ElementType() {
	case tensor.Float32:
		buf, err := t.Float32()
		if err != nil {
			return TensorSnapshot{}, err
		}
		s.Float32 = append([]float32(nil), buf...)
	case tensor.Float16Raw:
		buf, err := t.Float16Raw()
		if err != nil {
			return TensorSnapshot{}, err
		}
		s.Float16Raw = append([]uint16(nil), buf...)
	case tensor.Int8Quantized:
		buf, err := t.Int8()
		if err != nil {
			return TensorSnapshot{}, err
		}
		s.Int8 = append([]int8(nil), buf...)
	default:
		return TensorSnapshot{}, fmt.Errorf("%w: cannot snapshot %s", tensor.ErrTypeMismatch, t.ElementType())
	}
	return s, nil
}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
