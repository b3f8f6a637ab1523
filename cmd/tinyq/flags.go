package main

import "github.com/urfave/cli/v3"

const envTinyqConfig = "TINYQ_CONFIG"

var (
	configFile     string
	logLevel       string
	logFormat      string
	maxTensorBytes int64
)

func rootFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config.yaml (default: user config dir)",
			Sources:     cli.EnvVars(envTinyqConfig),
			Destination: &configFile,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (auto, pretty, text, json)",
			Value:       "auto",
			Destination: &logFormat,
		},
		&cli.Int64Flag{
			Name:        "max-tensor-bytes",
			Usage:       "byte budget for live tensors (0 = unlimited)",
			Destination: &maxTensorBytes,
		},
	}
}
