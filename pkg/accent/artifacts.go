package accent

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/haivivi/accentid/pkg/onnx"
	"github.com/haivivi/accentid/pkg/storage"
)

// ArtifactConfig locates the model artifacts inside a FileStore.
type ArtifactConfig struct {
	ModelPath   string // ONNX classifier, e.g. "accent_model.onnx"
	EncoderPath string // label encoder, format chosen by extension

	Frames   int // model input rows
	Channels int // model input columns

	RuntimeLibrary string       // ONNX Runtime shared library, "" for default
	Session        onnx.Options // input/output binding

	// NewClassifier overrides how the model bytes become a Classifier.
	// Nil uses ONNX Runtime.
	NewClassifier func(model []byte) (Classifier, error)
}

// ArtifactLoader returns a Loader that reads the encoder and the classifier
// from store.
func ArtifactLoader(store storage.FileStore, cfg ArtifactConfig) Loader {
	return func(ctx context.Context) (*Bundle, error) {
		format, err := EncoderFormatFor(cfg.EncoderPath)
		if err != nil {
			return nil, err
		}
		encData, err := storage.ReadAll(ctx, store, cfg.EncoderPath)
		if err != nil {
			return nil, fmt.Errorf("accent: label encoder %s: %w", cfg.EncoderPath, err)
		}
		enc, err := LoadEncoder(bytes.NewReader(encData), format)
		if err != nil {
			return nil, err
		}

		model, err := storage.ReadAll(ctx, store, cfg.ModelPath)
		if err != nil {
			return nil, fmt.Errorf("accent: model %s: %w", cfg.ModelPath, err)
		}
		newClassifier := cfg.NewClassifier
		if newClassifier == nil {
			newClassifier = func(model []byte) (Classifier, error) {
				if err := onnx.Init(cfg.RuntimeLibrary); err != nil {
					return nil, err
				}
				return NewONNXClassifier(model, cfg.Frames, cfg.Channels, cfg.Session)
			}
		}
		clf, err := newClassifier(model)
		if err != nil {
			return nil, fmt.Errorf("accent: load model %s: %w", cfg.ModelPath, err)
		}

		slog.Info("accent model loaded",
			"model", cfg.ModelPath, "encoder", cfg.EncoderPath, "classes", enc.Classes())
		return &Bundle{Classifier: clf, Encoder: enc}, nil
	}
}
