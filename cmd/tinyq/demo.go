package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/tinyq/internal/format"
	"github.com/samcharles93/tinyq/internal/logger"
	"github.com/samcharles93/tinyq/pkg/quant"
	"github.com/samcharles93/tinyq/pkg/tensor"
)

// Model weights used by the demonstration.
var demoWeights = []float32{0.50, -0.75, 1.20, -0.10}

const demoScale = 0.01

func demoCmd() *cli.Command {
	return &cli.Command{
		Name:   "demo",
		Usage:  "Quantize a small float32 weight tensor and print both representations",
		Action: demoAction,
	}
}

func demoAction(ctx context.Context, _ *cli.Command) error {
	alloc := newAllocator()
	if err := runDemo(os.Stdout, alloc); err != nil {
		return exitErr(err)
	}
	logger.FromContext(ctx).Debug("demo finished", "peak_bytes", alloc.Peak())
	return nil
}

func runDemo(w io.Writer, alloc *tensor.Allocator) error {
	weights, err := alloc.New(1, uint16(len(demoWeights)), tensor.Float32)
	if err != nil {
		return errors.Wrap(err, "create weights")
	}
	defer func() { _ = weights.Release() }()
	if err := weights.FillFloat32(demoWeights); err != nil {
		return err
	}

	fmt.Fprintf(w, "Original data (RAM: %d bytes)\n", weights.ByteLen())
	if err := format.Write(w, weights); err != nil {
		return err
	}

	q, err := alloc.New(weights.Rows(), weights.Cols(), tensor.Int8Quantized)
	if err != nil {
		return errors.Wrap(err, "create quantized weights")
	}
	defer func() { _ = q.Release() }()
	if err := quant.Quantize(weights, q, demoScale); err != nil {
		return err
	}

	fmt.Fprintf(w, "Quantized data (RAM: %d bytes)\n", q.ByteLen())
	return format.Write(w, q)
}
