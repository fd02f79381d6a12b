// Package pipeline runs one accent analysis: download, prepare, extract,
// predict. A run stops at the first failing stage and always removes the
// audio file it downloaded.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/haivivi/accentid/pkg/accent"
)

// DefaultThreshold is the confidence (percent) below which results carry a
// caveat.
const DefaultThreshold = 60.0

// Fetcher downloads audio for a URL into a temporary file it can later
// remove.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
	Remove(ctx context.Context, path string) error
}

// Preparer decodes an audio file into a fixed-length waveform.
type Preparer interface {
	Load(ctx context.Context, path string) ([]float32, error)
}

// Extractor turns a waveform into a fixed-shape feature matrix.
type Extractor interface {
	Extract(pcm []float32) ([][]float32, error)
}

// ModelSource provides the shared classifier and label encoder.
type ModelSource interface {
	Get(ctx context.Context) (*accent.Bundle, error)
}

// Result is a completed analysis.
type Result struct {
	Accent        string   `json:"accent" yaml:"accent"`
	Confidence    float64  `json:"confidence" yaml:"confidence"`
	Explanation   string   `json:"explanation" yaml:"explanation"`
	LowConfidence bool     `json:"low_confidence" yaml:"low_confidence"`
	Classes       []string `json:"classes" yaml:"classes"`
	AudioFile     string   `json:"audio_file,omitempty" yaml:"audio_file,omitempty"`
	Elapsed       string   `json:"elapsed" yaml:"elapsed"`
}

// Analyzer wires the stages together. All fields except Threshold are
// required; a nil Threshold uses DefaultThreshold and zero disables the
// caveat.
type Analyzer struct {
	Fetcher   Fetcher
	Preparer  Preparer
	Extractor Extractor
	Models    ModelSource
	Threshold *float64
}

// Run analyzes the speech in url. progress, if non-nil, is called
// synchronously as stages start and finish.
func (a *Analyzer) Run(ctx context.Context, url string, progress ProgressFunc) (res *Result, err error) {
	start := time.Now()
	report := func(stage Stage, status Status, msg string) {
		if progress != nil {
			progress(Event{Stage: stage, Status: status, Message: msg})
		}
	}
	fail := func(stage Stage, kind accent.Kind, cause error) error {
		err := accent.Wrap(kind, string(stage), cause)
		slog.Error("analysis stage failed", "stage", stage, "url", url, "error", cause)
		report(stage, StatusFailed, Message(err))
		return err
	}

	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fail(StageInput, accent.UserInputError, fmt.Errorf("empty url"))
	}

	bundle, err := a.Models.Get(ctx)
	if err != nil {
		return nil, fail(StageModel, accent.ModelUnavailable, err)
	}

	report(StageDownload, StatusStarted, "Downloading and extracting audio... This may take a moment.")
	path, err := a.Fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fail(StageDownload, accent.DownloadFailure, err)
	}
	defer func() {
		// Detached so a cancelled request still removes its file.
		if rmErr := a.Fetcher.Remove(context.WithoutCancel(ctx), path); rmErr != nil {
			slog.Warn("failed to remove temp audio", "path", path, "error", rmErr)
		}
	}()
	report(StageDownload, StatusDone, "Audio extracted: "+filepath.Base(path))

	report(StagePrepare, StatusStarted, "Processing audio and extracting features...")
	pcm, err := a.Preparer.Load(ctx, path)
	if err != nil {
		return nil, fail(StagePrepare, accent.DecodeFailure, err)
	}
	report(StagePrepare, StatusDone, "")

	report(StageFeatures, StatusStarted, "")
	features, err := a.Extractor.Extract(pcm)
	if err != nil {
		return nil, fail(StageFeatures, accent.FeatureFailure, err)
	}
	report(StageFeatures, StatusDone, "")

	report(StagePredict, StatusStarted, "Analyzing accent...")
	pred, err := accent.Predict(ctx, bundle.Classifier, bundle.Encoder, features)
	if err != nil {
		return nil, fail(StagePredict, accent.PredictionFailure, err)
	}
	report(StagePredict, StatusDone, "")

	threshold := DefaultThreshold
	if a.Threshold != nil {
		threshold = *a.Threshold
	}
	classes := bundle.Encoder.Classes()
	explanation, low := Explain(pred.Label, pred.Confidence, classes, threshold)

	res = &Result{
		Accent:        pred.Label,
		Confidence:    pred.Confidence,
		Explanation:   explanation,
		LowConfidence: low,
		Classes:       classes,
		AudioFile:     filepath.Base(path),
		Elapsed:       time.Since(start).Round(time.Millisecond).String(),
	}
	slog.Info("accent analyzed", "url", url, "accent", res.Accent,
		"confidence", fmt.Sprintf("%.2f", res.Confidence), "elapsed", res.Elapsed)
	return res, nil
}
