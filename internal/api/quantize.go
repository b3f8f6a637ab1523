package api

import (
	"fmt"
	"math"
	"net/http"

	"github.com/labstack/echo/v5"
	"github.com/pkg/errors"

	"github.com/samcharles93/tinyq/internal/format"
	"github.com/samcharles93/tinyq/pkg/quant"
	"github.com/samcharles93/tinyq/pkg/tensor"
)

func (s *Server) handleQuantize(c *echo.Context) error {
	id := s.newID()
	log := s.log.With("id", id)

	req, err := decodeJSON[QuantizeRequest](c.Request().Body)
	if err != nil {
		log.Warn("rejected request", "error", err)
		return writeError(c, err)
	}
	resp, err := s.quantize(req)
	if err != nil {
		status, _ := classify(err)
		log.Warn("quantize failed", "status", status, "error", err)
		return writeError(c, err)
	}
	resp.ID = id
	log.Info("quantized",
		"elements", len(req.Values),
		"scale", resp.Scale,
		"clamped", resp.Stats.Clamped,
		"max_abs_error", resp.Stats.MaxAbsError,
	)
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) quantize(req QuantizeRequest) (QuantizeResponse, error) {
	rows, cols, err := resolveShape(req)
	if err != nil {
		return QuantizeResponse{}, err
	}
	if req.Scale == nil && !req.Calibrate {
		return QuantizeResponse{}, newInvalidRequest("scale is required unless calibrate is set")
	}

	src, err := s.alloc.New(rows, cols, tensor.Float32)
	if err != nil {
		return QuantizeResponse{}, errors.Wrap(err, "source tensor")
	}
	defer func() { _ = src.Release() }()
	dst, err := s.alloc.New(rows, cols, tensor.Int8Quantized)
	if err != nil {
		return QuantizeResponse{}, errors.Wrap(err, "destination tensor")
	}
	defer func() { _ = dst.Release() }()

	if err := src.FillFloat32(req.Values); err != nil {
		return QuantizeResponse{}, errors.Wrapf(err, "values for %dx%d", rows, cols)
	}

	var scale float32
	if req.Calibrate {
		if scale, err = quant.ScaleForMaxAbs(src); err != nil {
			return QuantizeResponse{}, err
		}
	} else {
		scale = *req.Scale
	}
	if err := quant.Quantize(src, dst, scale); err != nil {
		return QuantizeResponse{}, err
	}
	stats, err := quant.Measure(src, dst, scale)
	if err != nil {
		return QuantizeResponse{}, err
	}

	resp := QuantizeResponse{Scale: scale, Stats: stats}
	if resp.Source, err = format.Snapshot(src); err != nil {
		return QuantizeResponse{}, err
	}
	if resp.Quantized, err = format.Snapshot(dst); err != nil {
		return QuantizeResponse{}, err
	}
	return resp, nil
}

func resolveShape(req QuantizeRequest) (uint16, uint16, error) {
	switch {
	case req.Rows != nil && req.Cols != nil:
		rows, cols := *req.Rows, *req.Cols
		if uint64(rows)*uint64(cols) != uint64(len(req.Values)) {
			return 0, 0, fmt.Errorf("%w: %d values for %dx%d", tensor.ErrShapeMismatch, len(req.Values), rows, cols)
		}
		return rows, cols, nil
	case req.Rows == nil && req.Cols == nil:
		if len(req.Values) > math.MaxUint16 {
			return 0, 0, newInvalidRequest(fmt.Sprintf("%d values do not fit in one row; set rows and cols", len(req.Values)))
		}
		return 1, uint16(len(req.Values)), nil
	default:
		return 0, 0, newInvalidRequest("rows and cols must be set together")
	}
}
