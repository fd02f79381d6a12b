package onnx

import (
	"os"
	"testing"
)

func TestElements(t *testing.T) {
	tests := []struct {
		shape []int64
		want  int
	}{
		{[]int64{1, 157, 60}, 9420},
		{[]int64{4}, 4},
		{[]int64{-1, 157, 60}, -1},
		{nil, 0},
	}
	for _, tt := range tests {
		if got := Elements(tt.shape); got != tt.want {
			t.Errorf("Elements(%v) = %d, want %d", tt.shape, got, tt.want)
		}
	}
}

func TestShapeMatches(t *testing.T) {
	tests := []struct {
		got, want []int64
		match     bool
	}{
		{[]int64{-1, 157, 60}, []int64{-1, 157, 60}, true},
		{[]int64{1, 157, 60}, []int64{-1, 157, 60}, true},
		{[]int64{-1, 100, 60}, []int64{-1, 157, 60}, false},
		{[]int64{-1, 157}, []int64{-1, 157, 60}, false},
	}
	for _, tt := range tests {
		if got := ShapeMatches(tt.got, tt.want); got != tt.match {
			t.Errorf("ShapeMatches(%v, %v) = %v", tt.got, tt.want, got)
		}
	}
}

func TestPick(t *testing.T) {
	infos := []IOInfo{{Name: "mfcc"}, {Name: "aux"}}
	if got, _ := pick(infos, "", "input"); got.Name != "mfcc" {
		t.Errorf("default pick = %q", got.Name)
	}
	if got, _ := pick(infos, "aux", "input"); got.Name != "aux" {
		t.Errorf("named pick = %q", got.Name)
	}
	if _, err := pick(infos, "nope", "input"); err == nil {
		t.Error("expected error for unknown name")
	}
	if _, err := pick(nil, "", "output"); err == nil {
		t.Error("expected error for empty list")
	}
}

// TestSessionRun needs a real runtime and model:
//
//	ACCENTID_ORT_LIB=/usr/local/lib/libonnxruntime.so \
//	ACCENTID_TEST_MODEL=path/to/accent.onnx go test ./pkg/onnx
func TestSessionRun(t *testing.T) {
	lib, model := os.Getenv("ACCENTID_ORT_LIB"), os.Getenv("ACCENTID_TEST_MODEL")
	if lib == "" || model == "" {
		t.Skip("ACCENTID_ORT_LIB or ACCENTID_TEST_MODEL not set")
	}
	if err := Init(lib); err != nil {
		t.Fatal(err)
	}
	defer Shutdown()

	data, err := os.ReadFile(model)
	if err != nil {
		t.Fatal(err)
	}
	s, err := NewSession(data, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	shape := append([]int64(nil), s.Input().Shape...)
	for i, d := range shape {
		if d < 0 {
			shape[i] = 1
		}
	}
	out, err := s.Run(make([]float32, Elements(shape)), shape)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) == 0 {
		t.Fatal("empty output")
	}
	t.Logf("input %s %v -> %d outputs", s.Input().Name, s.Input().Shape, len(out))

	if _, err := s.Run([]float32{1}, shape); err == nil {
		t.Fatal("expected shape mismatch error")
	}
}

func TestNewSessionBeforeInit(t *testing.T) {
	if Initialized() {
		t.Skip("runtime already initialized")
	}
	if _, err := NewSession([]byte{1}, Options{}); err != ErrNotInitialized {
		t.Fatalf("err = %v, want ErrNotInitialized", err)
	}
}
