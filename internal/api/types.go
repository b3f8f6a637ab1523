package api

import (
	"github.com/samcharles93/tinyq/internal/format"
	"github.com/samcharles93/tinyq/internal/version"
	"github.com/samcharles93/tinyq/pkg/quant"
)

// QuantizeRequest is the body of POST /v1/quantize.
//
// Rows and Cols default to a single row holding every value. Scale is
// required unless Calibrate is set, in which case it is derived from the
// largest magnitude in Values.
type QuantizeRequest struct {
	Rows      *uint16   `json:"rows,omitempty"`
	Cols      *uint16   `json:"cols,omitempty"`
	Values    []float32 `json:"values"`
	Scale     *float32  `json:"scale,omitempty"`
	Calibrate bool      `json:"calibrate,omitempty"`
}

type QuantizeResponse struct {
	ID        string                `json:"id"`
	Scale     float32               `json:"scale"`
	Source    format.TensorSnapshot `json:"source"`
	Quantized format.TensorSnapshot `json:"quantized"`
	Stats     quant.Stats           `json:"stats"`
}

type HealthResponse struct {
	Status  string       `json:"status"`
	Version version.Info `json:"version"`
}

type ResponseError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}
