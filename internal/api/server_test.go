package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/tinyq/pkg/tensor"
)

func newTestEcho(alloc *tensor.Allocator) *echo.Echo {
	server := NewServer(alloc, nil)
	server.newID = func() string { return "q-test" }
	e := echo.New()
	server.Register(e)
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestQuantizeEndpoint(t *testing.T) {
	t.Parallel()
	alloc := tensor.NewAllocator(0)
	e := newTestEcho(alloc)

	rec := doJSON(t, e, http.MethodPost, "/v1/quantize", `{"values":[0.5,-0.75,1.2,-0.1],"scale":0.01}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[QuantizeResponse](t, rec)
	if resp.ID != "q-test" {
		t.Fatalf("unexpected id %q", resp.ID)
	}
	want := []int8{50, -75, 120, -10}
	if len(resp.Quantized.Int8) != len(want) {
		t.Fatalf("unexpected quantized values %v", resp.Quantized.Int8)
	}
	for i := range want {
		if resp.Quantized.Int8[i] != want[i] {
			t.Fatalf("quantized[%d]: got %d want %d", i, resp.Quantized.Int8[i], want[i])
		}
	}
	if resp.Source.Rows != 1 || resp.Source.Cols != 4 || resp.Source.Bytes != 16 || resp.Quantized.Bytes != 4 {
		t.Fatalf("unexpected shapes: %+v %+v", resp.Source, resp.Quantized)
	}
	if alloc.InUse() != 0 {
		t.Fatalf("tensors not released: %d bytes in use", alloc.InUse())
	}
}

func TestQuantizeEndpointCalibrate(t *testing.T) {
	t.Parallel()
	e := newTestEcho(nil)

	rec := doJSON(t, e, http.MethodPost, "/v1/quantize", `{"rows":2,"cols":1,"values":[1.27,-0.5],"calibrate":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[QuantizeResponse](t, rec)
	if resp.Scale < 0.0099 || resp.Scale > 0.0101 {
		t.Fatalf("unexpected calibrated scale %v", resp.Scale)
	}
	if q := resp.Quantized.Int8[0]; q < 126 {
		t.Fatalf("largest value should land near 127, got %d", q)
	}
}

func TestQuantizeEndpointErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		alloc   *tensor.Allocator
		body    string
		status  int
		errType string
	}{
		{"zero scale", nil, `{"values":[1],"scale":0}`, http.StatusBadRequest, "invalid_request_error"},
		{"missing scale", nil, `{"values":[1]}`, http.StatusBadRequest, "invalid_request_error"},
		{"shape mismatch", nil, `{"rows":2,"cols":2,"values":[1,2,3],"scale":1}`, http.StatusBadRequest, "invalid_request_error"},
		{"rows without cols", nil, `{"rows":2,"values":[1,2],"scale":1}`, http.StatusBadRequest, "invalid_request_error"},
		{"bad json", nil, `{"values":`, http.StatusBadRequest, "invalid_request_error"},
		{"unknown field", nil, `{"values":[1],"scale":1,"zero_point":3}`, http.StatusBadRequest, "invalid_request_error"},
		{"values smaller than shape", tensor.NewAllocator(1000), `{"rows":100,"cols":100,"values":[1],"scale":1}`, http.StatusBadRequest, "invalid_request_error"},
		{"huge shape on unlimited allocator", tensor.NewAllocator(0), `{"rows":65535,"cols":65535,"values":[1],"scale":1}`, http.StatusBadRequest, "invalid_request_error"},
		{"over budget", tensor.NewAllocator(8), `{"values":[1,2,3],"scale":1}`, http.StatusRequestEntityTooLarge, "allocation_error"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rec := doJSON(t, newTestEcho(tc.alloc), http.MethodPost, "/v1/quantize", tc.body)
			if rec.Code != tc.status {
				t.Fatalf("status: got %d want %d body=%s", rec.Code, tc.status, rec.Body.String())
			}
			body := decodeBody[map[string]ResponseError](t, rec)
			if body["error"].Type != tc.errType {
				t.Fatalf("error type: got %q want %q", body["error"].Type, tc.errType)
			}
			if tc.alloc != nil && tc.alloc.InUse() != 0 {
				t.Fatalf("tensors not released: %d bytes in use", tc.alloc.InUse())
			}
		})
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()
	rec := doJSON(t, newTestEcho(nil), http.MethodGet, "/v1/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	resp := decodeBody[HealthResponse](t, rec)
	if resp.Status != "ok" || resp.Version.Version == "" {
		t.Fatalf("unexpected health response %+v", resp)
	}
}
