package waveform

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// LoaderConfig controls decoding and fitting.
type LoaderConfig struct {
	FFmpeg     string  // ffmpeg binary (default "ffmpeg")
	SampleRate int     // target sample rate in Hz (default 16000)
	Duration   float64 // target length in seconds (default 5)

	// DecodeRate and DecodeStereo describe the PCM ffmpeg is asked to
	// produce before downmixing and resampling (default 48000 Hz stereo).
	DecodeRate   int
	DecodeStereo bool
}

// DefaultLoaderConfig returns the 5 s, 16 kHz configuration.
func DefaultLoaderConfig() LoaderConfig {
	return LoaderConfig{
		FFmpeg:       "ffmpeg",
		SampleRate:   16000,
		Duration:     5,
		DecodeRate:   48000,
		DecodeStereo: true,
	}
}

// TargetSamples returns Duration x SampleRate.
func (c LoaderConfig) TargetSamples() int {
	return int(c.Duration * float64(c.SampleRate))
}

// runFunc runs a command and returns its stdout.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Loader decodes audio files into fixed-length waveforms.
type Loader struct {
	cfg LoaderConfig
	run runFunc
}

// NewLoader creates a Loader. Zero fields of cfg take their defaults.
func NewLoader(cfg LoaderConfig) *Loader {
	def := DefaultLoaderConfig()
	if cfg.FFmpeg == "" {
		cfg.FFmpeg = def.FFmpeg
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = def.SampleRate
	}
	if cfg.Duration == 0 {
		cfg.Duration = def.Duration
	}
	if cfg.DecodeRate == 0 {
		cfg.DecodeRate = def.DecodeRate
		cfg.DecodeStereo = def.DecodeStereo
	}
	return &Loader{cfg: cfg, run: runCommand}
}

// Config returns the loader configuration.
func (l *Loader) Config() LoaderConfig {
	return l.cfg
}

// Load decodes path and returns exactly TargetSamples mono samples at
// SampleRate.
func (l *Loader) Load(ctx context.Context, path string) ([]float32, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("waveform: %w", err)
	}

	channels := 1
	if l.cfg.DecodeStereo {
		channels = 2
	}
	// Decode slightly more than needed so the resampler tail does not eat
	// into the kept prefix.
	limit := l.cfg.Duration + 0.5

	pcm, err := l.run(ctx, l.cfg.FFmpeg,
		"-nostdin",
		"-i", path,
		"-t", strconv.FormatFloat(limit, 'f', 3, 64),
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(l.cfg.DecodeRate),
		"-ac", strconv.Itoa(channels),
		"-loglevel", "error",
		"pipe:1",
	)
	if err != nil {
		return nil, fmt.Errorf("waveform: decode %s: %w", path, err)
	}

	samples := PCM16ToFloat32(pcm)
	if channels == 2 {
		samples = DownmixStereo(samples)
	}
	if len(samples) == 0 {
		return nil, ErrNoAudio
	}

	samples, err = Resample(samples, l.cfg.DecodeRate, l.cfg.SampleRate)
	if err != nil {
		return nil, err
	}

	target := l.cfg.TargetSamples()
	slog.Debug("audio decoded", "path", path, "samples", len(samples), "target", target)
	return Fit(samples, target), nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return stdout.Bytes(), nil
}
