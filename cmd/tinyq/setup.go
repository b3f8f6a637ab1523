package main

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/tinyq/internal/logger"
	"github.com/samcharles93/tinyq/pkg/tensor"
)

// cfg holds the config file loaded by setup.
var cfg Config

// setup loads the config file and installs the logger into the context.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	var err error
	if cfg, err = loadConfig(configFile); err != nil {
		return ctx, exitErr(invalidInput(err))
	}
	applyRootConfig(cmd, cfg)

	level, err := logger.ParseLevel(logLevel)
	if err != nil {
		return ctx, exitErr(invalidInput(err))
	}
	format := logFormat
	if format == "auto" {
		format = logger.FormatText
		if isTerminal(os.Stderr) {
			format = logger.FormatPretty
		}
	}
	log, err := logger.Open(os.Stderr, format, level)
	if err != nil {
		return ctx, exitErr(invalidInput(err))
	}
	if maxTensorBytes < 0 {
		return ctx, exitErr(errors.Wrapf(errInvalidInput, "max-tensor-bytes must not be negative, got %d", maxTensorBytes))
	}
	return logger.WithContext(ctx, log), nil
}

// newAllocator returns the allocator for this invocation's tensors.
func newAllocator() *tensor.Allocator {
	return tensor.NewAllocator(uint64(maxTensorBytes))
}
