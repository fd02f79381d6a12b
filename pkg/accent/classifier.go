// Package accent classifies the English accent of a speaker from a fixed
// size MFCC feature matrix.
//
// # Components
//
//   - [Classifier]: the forward pass, features -> class probabilities
//   - [Encoder]: class index <-> accent name, as fixed at training time
//   - [Predict]: arg-max over the probabilities, mapped through the encoder
//   - [Cache]: loads the classifier and encoder once per process
//
// The model is expected to take a [1][frames][channels] float32 tensor and
// return one probability per class.
package accent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/haivivi/accentid/pkg/audio/mfcc"
	"github.com/haivivi/accentid/pkg/onnx"
)

// Classifier computes class probabilities for one feature matrix.
//
// Implementations must be safe for concurrent use.
type Classifier interface {
	// Predict runs the forward pass over a [frames][channels] matrix with an
	// implicit batch dimension of 1 and returns one probability per class.
	Predict(ctx context.Context, features [][]float32) ([]float32, error)

	// Close releases the model.
	Close() error
}

// ONNXClassifier implements [Classifier] with an ONNX Runtime session.
type ONNXClassifier struct {
	session  *onnx.Session
	frames   int
	channels int
}

// NewONNXClassifier loads an ONNX model expecting [batch][frames][channels]
// input. A model declaring a different input shape is still loaded, with a
// warning.
func NewONNXClassifier(model []byte, frames, channels int, opts onnx.Options) (*ONNXClassifier, error) {
	session, err := onnx.NewSession(model, opts)
	if err != nil {
		return nil, err
	}
	want := []int64{-1, int64(frames), int64(channels)}
	if in := session.Input(); !onnx.ShapeMatches(in.Shape, want) {
		slog.Warn("model input shape differs from feature shape, ensure consistency",
			"input", in.Name, "model_shape", in.Shape, "expected", want)
	}
	return &ONNXClassifier{session: session, frames: frames, channels: channels}, nil
}

// Predict implements [Classifier].
func (c *ONNXClassifier) Predict(ctx context.Context, features [][]float32) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(features) != c.frames {
		return nil, fmt.Errorf("accent: features have %d frames, model expects %d", len(features), c.frames)
	}
	for i, row := range features {
		if len(row) != c.channels {
			return nil, fmt.Errorf("accent: frame %d has %d channels, model expects %d", i, len(row), c.channels)
		}
	}
	return c.session.Run(mfcc.Flatten(features), []int64{1, int64(c.frames), int64(c.channels)})
}

// Close implements [Classifier].
func (c *ONNXClassifier) Close() error {
	return c.session.Close()
}

var _ Classifier = (*ONNXClassifier)(nil)
