package api

import (
	"io"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
)

func writeError(c *echo.Context, err error) error {
	status, errType := classify(err)
	return c.JSON(status, map[string]any{
		"error": ResponseError{
			Message: err.Error(),
			Type:    errType,
		},
	})
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, newInvalidRequest("decode body: " + err.Error())
	}
	return out, nil
}

func newRequestID() string {
	return "q-" + uuid.NewString()
}
