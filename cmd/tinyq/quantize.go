package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/tinyq/internal/format"
	"github.com/samcharles93/tinyq/internal/logger"
	"github.com/samcharles93/tinyq/pkg/quant"
	"github.com/samcharles93/tinyq/pkg/tensor"
)

type quantizeOptions struct {
	values    []float32
	rows      int64
	cols      int64
	scale     float64
	calibrate bool
	half      bool
	json      bool
}

type quantizeReport struct {
	Scale     float32                `json:"scale"`
	Source    format.TensorSnapshot  `json:"source"`
	Half      *format.TensorSnapshot `json:"half,omitempty"`
	Quantized format.TensorSnapshot  `json:"quantized"`
	Stats     quant.Stats            `json:"stats"`
}

func quantizeCmd() *cli.Command {
	var (
		values string
		opts   quantizeOptions
	)
	return &cli.Command{
		Name:      "quantize",
		Aliases:   []string{"q"},
		Usage:     "Quantize float32 values to int8",
		ArgsUsage: "[values...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "values",
				Aliases:     []string{"v"},
				Usage:       "comma or space separated float32 values",
				Destination: &values,
			},
			&cli.Int64Flag{
				Name:        "rows",
				Usage:       "rows (0 = one row)",
				Destination: &opts.rows,
			},
			&cli.Int64Flag{
				Name:        "cols",
				Usage:       "columns (0 = derived from rows and value count)",
				Destination: &opts.cols,
			},
			&cli.Float64Flag{
				Name:        "scale",
				Aliases:     []string{"s"},
				Usage:       "scale divisor applied before clamping",
				Value:       demoScale,
				Destination: &opts.scale,
			},
			&cli.BoolFlag{
				Name:        "calibrate",
				Usage:       "derive the scale from the largest magnitude (max|v|/127)",
				Destination: &opts.calibrate,
			},
			&cli.BoolFlag{
				Name:        "half",
				Usage:       "also store the values as raw float16 bits",
				Destination: &opts.half,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print a JSON report",
				Destination: &opts.json,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)

			raw := values
			if cmd.Args().Len() > 0 {
				raw = strings.Join(append([]string{raw}, cmd.Args().Slice()...), " ")
			}
			vals, err := parseValues(raw)
			if err != nil {
				return exitErr(err)
			}
			opts.values = vals
			if cfg.Scale != nil && !cmd.IsSet("scale") {
				opts.scale = *cfg.Scale
			}

			alloc := newAllocator()
			if err := runQuantize(os.Stdout, alloc, opts); err != nil {
				log.Debug("quantize failed", "error", err)
				return exitErr(err)
			}
			log.Debug("quantize finished", "elements", len(vals), "peak_bytes", alloc.Peak())
			return nil
		},
	}
}

// parseValues splits s on commas and whitespace and parses each field as a
// float32.
func parseValues(s string) ([]float32, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	if len(fields) == 0 {
		return nil, errors.Wrap(errInvalidInput, "no values given")
	}
	out := make([]float32, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return nil, errors.Wrapf(errInvalidInput, "value %q", f)
		}
		out = append(out, float32(v))
	}
	return out, nil
}

// resolveShape picks rows and cols for n values. A zero dimension is derived
// from the other one; both zero means a single row.
func resolveShape(rows, cols int64, n int) (uint16, uint16, error) {
	if rows < 0 || cols < 0 {
		return 0, 0, errors.Wrapf(errInvalidInput, "negative shape %dx%d", rows, cols)
	}
	switch {
	case rows == 0 && cols == 0:
		rows = 1
		cols = int64(n)
	case rows == 0:
		if n%int(cols) != 0 {
			return 0, 0, errors.Wrapf(tensor.ErrShapeMismatch, "%d values do not fill columns of %d", n, cols)
		}
		rows = int64(n) / cols
	case cols == 0:
		if n%int(rows) != 0 {
			return 0, 0, errors.Wrapf(tensor.ErrShapeMismatch, "%d values do not fill %d rows", n, rows)
		}
		cols = int64(n) / rows
	}
	if rows > math.MaxUint16 || cols > math.MaxUint16 {
		return 0, 0, errors.Wrapf(errInvalidInput, "shape %dx%d outside 0..%d", rows, cols, math.MaxUint16)
	}
	if rows*cols != int64(n) {
		return 0, 0, errors.Wrapf(tensor.ErrShapeMismatch, "%d values for %dx%d", n, rows, cols)
	}
	return uint16(rows), uint16(cols), nil
}

func runQuantize(w io.Writer, alloc *tensor.Allocator, opts quantizeOptions) error {
	rows, cols, err := resolveShape(opts.rows, opts.cols, len(opts.values))
	if err != nil {
		return err
	}

	src, err := alloc.New(rows, cols, tensor.Float32)
	if err != nil {
		return errors.Wrap(err, "create source")
	}
	defer func() { _ = src.Release() }()
	if err := src.FillFloat32(opts.values); err != nil {
		return err
	}

	scale := float32(opts.scale)
	if opts.calibrate {
		if scale, err = quant.ScaleForMaxAbs(src); err != nil {
			return err
		}
	}

	dst, err := alloc.New(rows, cols, tensor.Int8Quantized)
	if err != nil {
		return errors.Wrap(err, "create destination")
	}
	defer func() { _ = dst.Release() }()
	if err := quant.Quantize(src, dst, scale); err != nil {
		return err
	}
	stats, err := quant.Measure(src, dst, scale)
	if err != nil {
		return err
	}

	var half *tensor.Tensor
	if opts.half {
		if half, err = alloc.New(rows, cols, tensor.Float16Raw); err != nil {
			return errors.Wrap(err, "create float16 copy")
		}
		defer func() { _ = half.Release() }()
		if err := half.EncodeFloat16(opts.values); err != nil {
			return err
		}
	}

	if opts.json {
		return writeQuantizeJSON(w, scale, src, half, dst, stats)
	}

	fmt.Fprintf(w, "Original data (RAM: %d bytes)\n", src.ByteLen())
	if err := format.Write(w, src); err != nil {
		return err
	}
	if half != nil {
		fmt.Fprintf(w, "Half data (RAM: %d bytes)\n", half.ByteLen())
		if err := format.Write(w, half); err != nil {
			return err
		}
	}
	fmt.Fprintf(w, "Quantized data (RAM: %d bytes)\n", dst.ByteLen())
	if err := format.Write(w, dst); err != nil {
		return err
	}
	fmt.Fprintf(w, "scale=%g clamped=%d max_abs_error=%g mean_abs_error=%g\n",
		scale, stats.Clamped, stats.MaxAbsError, stats.MeanAbsError)
	return nil
}

func writeQuantizeJSON(w io.Writer, scale float32, src, half, dst *tensor.Tensor, stats quant.Stats) error {
	report := quantizeReport{Scale: scale, Stats: stats}
	var err error
	if report.Source, err = format.Snapshot(src); err != nil {
		return err
	}
	if report.Quantized, err = format.Snapshot(dst); err != nil {
		return err
	}
	if half != nil {
		h, err := format.Snapshot(half)
		if err != nil {
			return err
		}
		report.Half = &h
	}
	return format.WriteJSON(w, report)
}
