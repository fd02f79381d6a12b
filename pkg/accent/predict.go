package accent

import (
	"context"
	"log/slog"
	"math"
)

// SentinelLabel is reported when the classifier picks a class the encoder
// does not know, which means the model and encoder come from different
// training runs.
const SentinelLabel = "ErrorInPrediction"

// Prediction is the outcome of one classification.
type Prediction struct {
	Label      string  `json:"accent" yaml:"accent"`
	Confidence float64 `json:"confidence" yaml:"confidence"` // percent in [0, 100]
	Index      int     `json:"index" yaml:"index"`

	Probabilities []float32 `json:"-" yaml:"-"`
}

// Sentinel reports whether p is the model/encoder mismatch result.
func (p Prediction) Sentinel() bool {
	return p.Label == SentinelLabel && p.Confidence == 0
}

// Predict classifies features and maps the most probable class through enc.
//
// An arg-max outside the encoder's range yields the sentinel prediction with
// zero confidence and no error. Every other failure is a PredictionFailure,
// or ModelUnavailable when clf or enc is nil.
func Predict(ctx context.Context, clf Classifier, enc *Encoder, features [][]float32) (Prediction, error) {
	const op = "predict"
	if clf == nil || enc == nil {
		return Prediction{}, Errorf(ModelUnavailable, op, "classifier or label encoder not loaded")
	}
	if len(features) == 0 {
		return Prediction{}, Errorf(PredictionFailure, op, "no features")
	}

	probs, err := clf.Predict(ctx, features)
	if err != nil {
		return Prediction{}, Wrap(PredictionFailure, op, err)
	}
	best, ok := argmax(probs)
	if !ok {
		return Prediction{}, Errorf(PredictionFailure, op, "classifier returned no usable probabilities")
	}

	label, ok := enc.Label(best)
	if !ok {
		slog.Error("predicted index out of range for label encoder",
			"index", best, "max", enc.Len()-1)
		return Prediction{Label: SentinelLabel, Confidence: 0, Index: best, Probabilities: probs}, nil
	}

	return Prediction{
		Label:         label,
		Confidence:    clampPercent(float64(probs[best]) * 100),
		Index:         best,
		Probabilities: probs,
	}, nil
}

// argmax returns the index of the first maximum, ignoring NaN values.
func argmax(v []float32) (int, bool) {
	best := -1
	for i, p := range v {
		if math.IsNaN(float64(p)) {
			continue
		}
		if best < 0 || p > v[best] {
			best = i
		}
	}
	return best, best >= 0
}

func clampPercent(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
