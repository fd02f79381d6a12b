package commands

import (
	"github.com/haivivi/accentid/cmd/accentid/internal/config"
	"github.com/haivivi/accentid/pkg/accent"
	"github.com/haivivi/accentid/pkg/audio/fetch"
	"github.com/haivivi/accentid/pkg/audio/mfcc"
	"github.com/haivivi/accentid/pkg/audio/waveform"
	"github.com/haivivi/accentid/pkg/onnx"
	"github.com/haivivi/accentid/pkg/pipeline"
)

// testClassifierOverride replaces the ONNX classifier in tests.
var testClassifierOverride func(model []byte) (accent.Classifier, error)

// app is the wired analysis stack for one command invocation.
type app struct {
	settings *config.Settings
	models   *accent.Cache
	analyzer *pipeline.Analyzer
}

func newApp(s *config.Settings) (*app, error) {
	store, err := s.OpenStore()
	if err != nil {
		return nil, err
	}

	mcfg := mfcc.DefaultConfig()
	mcfg.SampleRate = s.Audio.SampleRate
	mcfg.FMax = float64(s.Audio.SampleRate) / 2
	mcfg.MaxFrames = mfcc.FramesFor(s.Audio.Duration, s.Audio.SampleRate, mcfg.HopSize)
	extractor := mfcc.New(mcfg)

	acfg := s.ArtifactConfig(mcfg.MaxFrames, mcfg.Channels())
	acfg.NewClassifier = testClassifierOverride
	models := accent.NewCache(accent.ArtifactLoader(store, acfg))

	downloader, err := fetch.NewDownloader(s.FetchConfig())
	if err != nil {
		return nil, err
	}

	return &app{
		settings: s,
		models:   models,
		analyzer: &pipeline.Analyzer{
			Fetcher:   downloader,
			Preparer:  waveform.NewLoader(s.LoaderConfig()),
			Extractor: extractor,
			Models:    models,
			Threshold: s.Model.Threshold,
		},
	}, nil
}

func (a *app) Close() error {
	err := a.models.Close()
	if serr := onnx.Shutdown(); err == nil {
		err = serr
	}
	return err
}
