// Package onnx runs ONNX models through ONNX Runtime.
//
// ONNX Runtime is loaded dynamically (.so/.dylib/.dll) by
// github.com/yalue/onnxruntime_go. The environment is process-wide: call
// [Init] once before creating sessions and [Shutdown] at exit.
//
// Usage flow:
//
//	if err := onnx.Init("/usr/local/lib/libonnxruntime.so"); err != nil { ... }
//	defer onnx.Shutdown()
//
//	session, _ := onnx.NewSession(modelData, onnx.Options{})
//	defer session.Close()
//
//	out, _ := session.Run(input, []int64{1, 157, 60})
//
// # Thread Safety
//
// Session.Run is safe for concurrent use.
package onnx

import (
	"errors"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ErrNotInitialized is returned by NewSession before Init succeeded.
var ErrNotInitialized = errors.New("onnx: runtime not initialized")

var initMu sync.Mutex

// Init loads the ONNX Runtime shared library and creates the environment.
// An empty libraryPath uses the platform default library name. Calling Init
// again after a success is a no-op.
func Init(libraryPath string) error {
	initMu.Lock()
	defer initMu.Unlock()
	if ort.IsInitialized() {
		return nil
	}
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("onnx: initialize runtime: %w", err)
	}
	return nil
}

// Initialized reports whether Init succeeded.
func Initialized() bool {
	return ort.IsInitialized()
}

// Shutdown destroys the environment. Sessions must be closed first.
func Shutdown() error {
	initMu.Lock()
	defer initMu.Unlock()
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

// Options configures a Session.
type Options struct {
	// InputName and OutputName select the graph tensors to bind. Empty
	// names take the first input and first output of the model.
	InputName  string
	OutputName string

	// IntraOpThreads limits intra-op parallelism, 0 for the runtime default.
	IntraOpThreads int
}

// IOInfo describes a model input or output.
type IOInfo struct {
	Name  string
	Shape []int64 // -1 for dynamic dimensions
	Type  string
}

// Session holds a loaded model bound to one float32 input and one float32
// output.
type Session struct {
	session *ort.DynamicAdvancedSession
	inputs  []IOInfo
	outputs []IOInfo
	input   IOInfo
	output  IOInfo
}

// NewSession loads a model from memory.
func NewSession(model []byte, opts Options) (*Session, error) {
	if !ort.IsInitialized() {
		return nil, ErrNotInitialized
	}
	if len(model) == 0 {
		return nil, errors.New("onnx: empty model data")
	}

	rawIn, rawOut, err := ort.GetInputOutputInfoWithONNXData(model)
	if err != nil {
		return nil, fmt.Errorf("onnx: read model info: %w", err)
	}
	s := &Session{inputs: convertInfo(rawIn), outputs: convertInfo(rawOut)}

	if s.input, err = pick(s.inputs, opts.InputName, "input"); err != nil {
		return nil, err
	}
	if s.output, err = pick(s.outputs, opts.OutputName, "output"); err != nil {
		return nil, err
	}

	sessOpts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: session options: %w", err)
	}
	defer sessOpts.Destroy()
	if err := sessOpts.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableAll); err != nil {
		return nil, fmt.Errorf("onnx: set optimization level: %w", err)
	}
	if opts.IntraOpThreads > 0 {
		if err := sessOpts.SetIntraOpNumThreads(opts.IntraOpThreads); err != nil {
			return nil, fmt.Errorf("onnx: set intra-op threads: %w", err)
		}
	}

	s.session, err = ort.NewDynamicAdvancedSessionWithONNXData(model,
		[]string{s.input.Name}, []string{s.output.Name}, sessOpts)
	if err != nil {
		return nil, fmt.Errorf("onnx: create session: %w", err)
	}
	return s, nil
}

// Inputs returns the model inputs.
func (s *Session) Inputs() []IOInfo { return s.inputs }

// Outputs returns the model outputs.
func (s *Session) Outputs() []IOInfo { return s.outputs }

// Input returns the bound input.
func (s *Session) Input() IOInfo { return s.input }

// Output returns the bound output.
func (s *Session) Output() IOInfo { return s.output }

// Run feeds input with the given shape and returns the flattened output.
func (s *Session) Run(input []float32, shape []int64) ([]float32, error) {
	if n := Elements(shape); n != len(input) {
		return nil, fmt.Errorf("onnx: input has %d values, shape %v needs %d", len(input), shape, n)
	}
	in, err := ort.NewTensor(ort.NewShape(shape...), input)
	if err != nil {
		return nil, fmt.Errorf("onnx: create input tensor: %w", err)
	}
	defer in.Destroy()

	outputs := []ort.Value{nil}
	if err := s.session.Run([]ort.Value{in}, outputs); err != nil {
		return nil, fmt.Errorf("onnx: run: %w", err)
	}
	defer outputs[0].Destroy()

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("onnx: output %s is not a float32 tensor", s.output.Name)
	}
	// The tensor memory is released by Destroy.
	data := out.GetData()
	result := make([]float32, len(data))
	copy(result, data)
	return result, nil
}

// Close releases the session.
func (s *Session) Close() error {
	if s.session == nil {
		return nil
	}
	err := s.session.Destroy()
	s.session = nil
	return err
}

// Elements returns the number of values in a tensor of the given shape.
func Elements(shape []int64) int {
	if len(shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range shape {
		if d < 0 {
			return -1
		}
		n *= int(d)
	}
	return n
}

// ShapeMatches reports whether got matches want, treating -1 in either as a
// wildcard.
func ShapeMatches(got, want []int64) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] >= 0 && want[i] >= 0 && got[i] != want[i] {
			return false
		}
	}
	return true
}

func convertInfo(raw []ort.InputOutputInfo) []IOInfo {
	out := make([]IOInfo, len(raw))
	for i, r := range raw {
		out[i] = IOInfo{
			Name:  r.Name,
			Shape: append([]int64(nil), r.Dimensions...),
			Type:  fmt.Sprint(r.DataType),
		}
	}
	return out
}

func pick(infos []IOInfo, name, kind string) (IOInfo, error) {
	if len(infos) == 0 {
		return IOInfo{}, fmt.Errorf("onnx: model has no %s", kind)
	}
	if name == "" {
		return infos[0], nil
	}
	for _, info := range infos {
		if info.Name == name {
			return info, nil
		}
	}
	return IOInfo{}, fmt.Errorf("onnx: model has no %s named %q", kind, name)
}
