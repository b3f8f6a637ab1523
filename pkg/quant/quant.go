// Package quant projects Float32 tensors into the Int8Quantized
// representation and back.
//
// The int8 rule is scale-divide, clamp to [-128, 127], then truncate toward
// zero. Truncation is kept on purpose: the error profile of the quantized
// weights depends on it, so it is not replaced by round-to-nearest.
package quant

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/samcharles93/tinyq/pkg/tensor"
)

const (
	MinInt8 = -128
	MaxInt8 = 127
)

// Int8 quantizes a single value. NaN maps to 0; ±Inf clamps.
func Int8(v, scale float32) int8 {
	s := v / scale
	switch {
	case math32.IsNaN(s):
		return 0
	case s > MaxInt8:
		return MaxInt8
	case s < MinInt8:
		return MinInt8
	}
	return int8(math32.Trunc(s))
}

// CheckScale rejects scales that make the division undefined.
func CheckScale(scale float32) error {
	if scale == 0 || math32.IsNaN(scale) || math32.IsInf(scale, 0) {
		return fmt.Errorf("%w: %v", tensor.ErrInvalidScale, scale)
	}
	return nil
}

// Quantize writes Int8(src[i], scale) into dst for every element.
//
// src must be Float32 and dst Int8Quantized, and both must hold the same
// number of elements; their shapes may differ. All preconditions are checked
// before the first write, so dst is untouched on error.
func Quantize(src, dst *tensor.Tensor, scale float32) error {
	in, err := src.Float32()
	if err != nil {
		return fmt.Errorf("quantize source: %w", err)
	}
	out, err := dst.Int8()
	if err != nil {
		return fmt.Errorf("quantize destination: %w", err)
	}
	if err := CheckScale(scale); err != nil {
		return err
	}
	if len(in) != len(out) {
		return fmt.Errorf("%w: source has %d elements, destination %d", tensor.ErrShapeMismatch, len(in), len(out))
	}
	for i, v := range in {
		out[i] = Int8(v, scale)
	}
	return nil
}

// Dequantize writes float32(src[i]) * scale into dst. src must be
// Int8Quantized and dst Float32 with equal element counts.
func Dequantize(src, dst *tensor.Tensor, scale float32) error {
	in, err := src.Int8()
	if err != nil {
		return fmt.Errorf("dequantize source: %w", err)
	}
	out, err := dst.Float32()
	if err != nil {
		return fmt.Errorf("dequantize destination: %w", err)
	}
	if err := CheckScale(scale); err != nil {
		return err
	}
	if len(in) != len(out) {
		return fmt.Errorf("%w: source has %d elements, destination %d", tensor.ErrShapeMismatch, len(in), len(out))
	}
	for i, q := range in {
		out[i] = float32(q) * scale
	}
	return nil
}

// ScaleForMaxAbs returns the symmetric scale maxabs/127 for a Float32
// tensor, so the largest magnitude lands on the edge of the int8 range.
// NaN elements are ignored. An empty or all-zero tensor yields 1.
func ScaleForMaxAbs(src *tensor.Tensor) (float32, error) {
	in, err := src.Float32()
	if err != nil {
		return 0, fmt.Errorf("calibrate: %w", err)
	}
	var maxAbs float32
	for _, v := range in {
		if math32.IsNaN(v) {
			continue
		}
		maxAbs = math32.Max(maxAbs, math32.Abs(v))
	}
	if maxAbs == 0 {
		return 1, nil
	}
	scale := maxAbs / MaxInt8
	if err := CheckScale(scale); err != nil {
		return 0, fmt.Errorf("calibrate: %w", err)
	}
	return scale, nil
}

// Stats summarises the reconstruction error of a quantized tensor.
type Stats struct {
	MaxAbsError  float32 `json:"max_abs_error"`
	MeanAbsError float32 `json:"mean_abs_error"`
	Clamped      int     `json:"clamped"`
}

// Measure compares src with q dequantized under scale. Clamped counts the
// source values whose scaled magnitude fell outside the int8 range.
func Measure(src, q *tensor.Tensor, scale float32) (Stats, error) {
	in, err := src.Float32()
	if err != nil {
		return Stats{}, fmt.Errorf("measure source: %w", err)
	}
	qs, err := q.Int8()
	if err != nil {
		return Stats{}, fmt.Errorf("measure quantized: %w", err)
	}
	if err := CheckScale(scale); err != nil {
		return Stats{}, err
	}
	if len(in) != len(qs) {
		return Stats{}, fmt.Errorf("%w: source has %d elements, quantized %d", tensor.ErrShapeMismatch, len(in), len(qs))
	}

	var st Stats
	var sum float64
	n := 0
	for i, v := range in {
		if math32.IsNaN(v) {
			continue
		}
		if s := v / scale; s > MaxInt8 || s < MinInt8 {
			st.Clamped++
		}
		e := math32.Abs(v - float32(qs[i])*scale)
		st.MaxAbsError = math32.Max(st.MaxAbsError, e)
		sum += float64(e)
		n++
	}
	if n > 0 {
		st.MeanAbsError = float32(sum / float64(n))
	}
	return st, nil
}
