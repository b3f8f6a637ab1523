package format

import (
	"bytes"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/samcharles93/tinyq/pkg/quant"
	"github.com/samcharles93/tinyq/pkg/tensor"
)

func mustTensor(t *testing.T, rows, cols uint16, et tensor.ElementType) *tensor.Tensor {
	t.Helper()
	x, err := tensor.New(rows, cols, et)
	if err != nil {
		t.Fatalf("tensor.New: %v", err)
	}
	return x
}

func TestWriteFloat32AndInt8(t *testing.T) {
	t.Parallel()
	src := mustTensor(t, 1, 4, tensor.Float32)
	if err := src.FillFloat32([]float32{0.50, -0.75, 1.20, -0.10}); err != nil {
		t.Fatal(err)
	}
	dst := mustTensor(t, 1, 4, tensor.Int8Quantized)
	if err := quant.Quantize(src, dst, 0.01); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := Write(&buf, src); err != nil {
		t.Fatal(err)
	}
	if err := Write(&buf, dst); err != nil {
		t.Fatal(err)
	}
	want := "Tensor [1x4] - type: float32\n" +
		"0.50 -0.75 1.20 -0.10\n" +
		rule + "\n" +
		"Tensor [1x4] - type: int8\n" +
		"50 -75 120 -10\n" +
		rule + "\n"
	if got := buf.String(); got != want {
		t.Fatalf("unexpected output:\n%s\nwant:\n%s", got, want)
	}
}

func TestWriteFloat16RawAsIntegers(t *testing.T) {
	t.Parallel()
	x := mustTensor(t, 1, 2, tensor.Float16Raw)
	if err := x.EncodeFloat16([]float32{1, -2}); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := Write(&buf, x); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "\n15360 49152\n") {
		t.Fatalf("expected raw half bits, got: %q", buf.String())
	}
}

func TestWriteEmpty(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	if err := Write(&buf, mustTensor(t, 0, 5, tensor.Float32)); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "Tensor [0x5] - type: float32\n\n"+rule+"\n" {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestWriteReleased(t *testing.T) {
	t.Parallel()
	x := mustTensor(t, 1, 1, tensor.Int8Quantized)
	_ = x.Release()
	var buf bytes.Buffer
	if err := Write(&buf, x); err == nil {
		t.Fatal("expected error for released tensor")
	}
	if buf.Len() != 0 {
		t.Fatalf("nothing should be written, got %q", buf.String())
	}
}

func TestSnapshotJSON(t *testing.T) {
	t.Parallel()
	x := mustTensor(t, 2, 1, tensor.Int8Quantized)
	_ = x.SetInt8(0, -3)
	_ = x.SetInt8(1, 4)

	snap, err := Snapshot(x)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := WriteJSON(&buf, snap); err != nil {
		t.Fatal(err)
	}

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["type"] != "int8" || got["rows"] != float64(2) || got["bytes"] != float64(2) {
		t.Fatalf("unexpected header: %v", got)
	}
	vals, ok := got["int8"].([]any)
	if !ok || len(vals) != 2 || vals[0] != float64(-3) || vals[1] != float64(4) {
		t.Fatalf("unexpected values: %v", got["int8"])
	}
	if _, ok := got["float32"]; ok {
		t.Fatal("float32 must be omitted for an int8 tensor")
	}

	// The snapshot is a copy.
	_ = x.SetInt8(0, 100)
	if snap.Int8[0] != -3 {
		t.Fatal("snapshot aliases the tensor buffer")
	}
}
