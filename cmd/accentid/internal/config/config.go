// Package config loads the accentid configuration file.
//
// The file lives at ~/.giztoy/accentid/config.yaml unless --config names
// another one. A missing file means defaults. Every section is optional:
//
//	server:
//	  addr: 127.0.0.1:7860
//	audio:
//	  temp_dir: /tmp/accentid
//	  duration: 5
//	  sample_rate: 16000
//	downloader:
//	  binary: yt-dlp
//	  ffmpeg_location: /usr/local/bin
//	  timeout: 5m
//	model:
//	  store: s3://models/accent
//	  model_path: accent_model.onnx
//	  encoder_path: label_encoder.json
//	s3:
//	  region: us-east-1
//	  endpoint: http://localhost:9000
//	  path_style: true
//	log:
//	  level: debug
//
// ACCENTID_* environment variables override individual string settings.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/haivivi/accentid/pkg/accent"
	"github.com/haivivi/accentid/pkg/audio/fetch"
	"github.com/haivivi/accentid/pkg/audio/waveform"
	"github.com/haivivi/accentid/pkg/cli"
	"github.com/haivivi/accentid/pkg/onnx"
	"github.com/haivivi/accentid/pkg/pipeline"
	"github.com/haivivi/accentid/pkg/storage"
)

// AppName is the directory name under ~/.giztoy.
const AppName = "accentid"

// Settings is the whole configuration file.
type Settings struct {
	Server     ServerConfig     `yaml:"server"`
	Audio      AudioConfig      `yaml:"audio"`
	Downloader DownloaderConfig `yaml:"downloader"`
	Model      ModelConfig      `yaml:"model"`
	S3         storage.S3Config `yaml:"s3"`
	Log        LogConfig        `yaml:"log"`

	// Path is the file the settings were read from, empty for defaults.
	Path string `yaml:"-"`
}

// ServerConfig configures the web UI.
type ServerConfig struct {
	Addr string `yaml:"addr,omitempty"`
	CORS bool   `yaml:"cors,omitempty"`
}

// AudioConfig configures decoding and the scratch directory.
type AudioConfig struct {
	TempDir        string  `yaml:"temp_dir,omitempty"`
	Duration       float64 `yaml:"duration,omitempty"`
	SampleRate     int     `yaml:"sample_rate,omitempty"`
	DecodeRate     int     `yaml:"decode_rate,omitempty"`
	DecodeChannels int     `yaml:"decode_channels,omitempty"`
	FFmpeg         string  `yaml:"ffmpeg,omitempty"`
}

// DownloaderConfig configures yt-dlp.
type DownloaderConfig struct {
	Binary         string `yaml:"binary,omitempty"`
	Format         string `yaml:"format,omitempty"`
	AudioFormat    string `yaml:"audio_format,omitempty"`
	AudioQuality   string `yaml:"audio_quality,omitempty"`
	FFmpegLocation string `yaml:"ffmpeg_location,omitempty"`
	Timeout        string `yaml:"timeout,omitempty"` // Go duration, "" for none
}

// ModelConfig locates the classifier artifacts.
type ModelConfig struct {
	// Store is a directory, file:// or s3://bucket/prefix URI.
	Store          string   `yaml:"store,omitempty"`
	ModelPath      string   `yaml:"model_path,omitempty"`
	EncoderPath    string   `yaml:"encoder_path,omitempty"`
	RuntimeLibrary string   `yaml:"onnxruntime_library,omitempty"`
	InputName      string   `yaml:"input_name,omitempty"`
	OutputName     string   `yaml:"output_name,omitempty"`
	IntraOpThreads int      `yaml:"intra_op_threads,omitempty"`
	Threshold      *float64 `yaml:"threshold,omitempty"` // nil for 60, 0 disables the caveat
}

// LogConfig configures slog.
type LogConfig struct {
	Level string `yaml:"level,omitempty"`
}

// Default returns the built-in settings. Directories are rooted at
// ~/.giztoy/accentid when the home directory is known.
func Default() *Settings {
	fc := fetch.DefaultConfig()
	lc := waveform.DefaultLoaderConfig()

	s := &Settings{
		Server: ServerConfig{Addr: "127.0.0.1:7860"},
		Audio: AudioConfig{
			TempDir:        fc.Dir,
			Duration:       lc.Duration,
			SampleRate:     lc.SampleRate,
			DecodeRate:     lc.DecodeRate,
			DecodeChannels: 2,
			FFmpeg:         lc.FFmpeg,
		},
		Downloader: DownloaderConfig{
			Binary:       fc.Binary,
			Format:       fc.Format,
			AudioFormat:  fc.AudioFormat,
			AudioQuality: fc.AudioQuality,
		},
		Model: ModelConfig{
			ModelPath:   "accent_model.onnx",
			EncoderPath: "label_encoder.json",
		},
		Log: LogConfig{Level: "info"},
	}
	if p, err := cli.NewPaths(AppName); err == nil {
		s.Audio.TempDir = p.ScratchDir()
		s.Model.Store = p.ModelDir()
	}
	return s
}

// DefaultPath returns ~/.giztoy/accentid/config.yaml.
func DefaultPath() (string, error) {
	p, err := cli.NewPaths(AppName)
	if err != nil {
		return "", err
	}
	return p.ConfigFile(), nil
}

// Loader reads settings with environment overrides.
type Loader struct {
	// Lookup resolves environment variables, os.LookupEnv when nil.
	Lookup func(key string) (string, bool)
}

// Load reads path with os.LookupEnv overrides. An empty path uses
// DefaultPath.
func Load(path string) (*Settings, error) {
	return Loader{}.Load(path)
}

// Load reads path, applies environment overrides and validates the result.
func (l Loader) Load(path string) (*Settings, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		path = p
	}

	s := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		slog.Debug("config file not found, using defaults", "path", path)
	case err != nil:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		s.Path = path
	}

	lookup := l.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	s.applyEnv(lookup)

	if err := s.Validate(); err != nil {
		return nil, err
	}
	s.resolveStore()
	return s, nil
}

func (s *Settings) applyEnv(lookup func(string) (string, bool)) {
	overrides := []struct {
		key string
		dst *string
	}{
		{"ACCENTID_SERVER_ADDR", &s.Server.Addr},
		{"ACCENTID_TEMP_DIR", &s.Audio.TempDir},
		{"ACCENTID_FFMPEG", &s.Audio.FFmpeg},
		{"ACCENTID_YTDLP", &s.Downloader.Binary},
		{"ACCENTID_FFMPEG_LOCATION", &s.Downloader.FFmpegLocation},
		{"ACCENTID_DOWNLOAD_TIMEOUT", &s.Downloader.Timeout},
		{"ACCENTID_MODEL_STORE", &s.Model.Store},
		{"ACCENTID_MODEL_PATH", &s.Model.ModelPath},
		{"ACCENTID_ENCODER_PATH", &s.Model.EncoderPath},
		{"ACCENTID_ORT_LIB", &s.Model.RuntimeLibrary},
		{"ACCENTID_S3_REGION", &s.S3.Region},
		{"ACCENTID_S3_ENDPOINT", &s.S3.Endpoint},
		{"ACCENTID_S3_ACCESS_KEY", &s.S3.AccessKey},
		{"ACCENTID_S3_SECRET_KEY", &s.S3.SecretKey},
		{"ACCENTID_LOG_LEVEL", &s.Log.Level},
	}
	for _, o := range overrides {
		if v, ok := lookup(o.key); ok && v != "" {
			*o.dst = v
		}
	}
}

// Validate fills zero values with defaults and rejects invalid settings.
func (s *Settings) Validate() error {
	def := Default()

	setString(&s.Server.Addr, def.Server.Addr)
	setString(&s.Audio.TempDir, def.Audio.TempDir)
	setString(&s.Audio.FFmpeg, def.Audio.FFmpeg)
	setString(&s.Downloader.Binary, def.Downloader.Binary)
	setString(&s.Downloader.Format, def.Downloader.Format)
	setString(&s.Downloader.AudioFormat, def.Downloader.AudioFormat)
	setString(&s.Downloader.AudioQuality, def.Downloader.AudioQuality)
	setString(&s.Model.Store, def.Model.Store)
	setString(&s.Model.ModelPath, def.Model.ModelPath)
	setString(&s.Model.EncoderPath, def.Model.EncoderPath)
	setString(&s.Log.Level, def.Log.Level)
	if s.Audio.Duration == 0 {
		s.Audio.Duration = def.Audio.Duration
	}
	if s.Audio.SampleRate == 0 {
		s.Audio.SampleRate = def.Audio.SampleRate
	}
	if s.Audio.DecodeRate == 0 {
		s.Audio.DecodeRate = def.Audio.DecodeRate
	}
	if s.Audio.DecodeChannels == 0 {
		s.Audio.DecodeChannels = def.Audio.DecodeChannels
	}

	var errs []error
	if s.Audio.Duration < 0 {
		errs = append(errs, fmt.Errorf("audio.duration must be positive, got %v", s.Audio.Duration))
	}
	if s.Audio.SampleRate < 0 || s.Audio.DecodeRate < 0 {
		errs = append(errs, errors.New("audio sample rates must be positive"))
	}
	if s.Audio.DecodeChannels != 1 && s.Audio.DecodeChannels != 2 {
		errs = append(errs, fmt.Errorf("audio.decode_channels must be 1 or 2, got %d", s.Audio.DecodeChannels))
	}
	if _, err := s.DownloadTimeout(); err != nil {
		errs = append(errs, err)
	}
	if s.Model.Store == "" {
		errs = append(errs, errors.New("model.store is required"))
	}
	if t := s.ConfidenceThreshold(); t < 0 || t > 100 {
		errs = append(errs, fmt.Errorf("model.threshold must be within [0, 100], got %v", t))
	}
	if s.Model.IntraOpThreads < 0 {
		errs = append(errs, errors.New("model.intra_op_threads must not be negative"))
	}
	if _, err := s.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func setString(dst *string, def string) {
	if strings.TrimSpace(*dst) == "" {
		*dst = def
	}
}

// ConfidenceThreshold returns model.threshold, 60 when unset.
func (s *Settings) ConfidenceThreshold() float64 {
	if s.Model.Threshold == nil {
		return pipeline.DefaultThreshold
	}
	return *s.Model.Threshold
}

// LogLevel parses log.level.
func (s *Settings) LogLevel() (slog.Level, error) {
	switch strings.ToLower(s.Log.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log.level %q", s.Log.Level)
	}
}

// DownloadTimeout parses downloader.timeout.
func (s *Settings) DownloadTimeout() (time.Duration, error) {
	if s.Downloader.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.Downloader.Timeout)
	if err != nil {
		return 0, fmt.Errorf("downloader.timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("downloader.timeout must not be negative, got %s", d)
	}
	return d, nil
}

// FetchConfig returns the downloader configuration.
func (s *Settings) FetchConfig() fetch.Config {
	timeout, _ := s.DownloadTimeout()
	return fetch.Config{
		Binary:         s.Downloader.Binary,
		Dir:            s.Audio.TempDir,
		Format:         s.Downloader.Format,
		AudioFormat:    s.Downloader.AudioFormat,
		AudioQuality:   s.Downloader.AudioQuality,
		FFmpegLocation: s.Downloader.FFmpegLocation,
		Timeout:        timeout,
	}
}

// LoaderConfig returns the audio decoding configuration.
func (s *Settings) LoaderConfig() waveform.LoaderConfig {
	return waveform.LoaderConfig{
		FFmpeg:       s.Audio.FFmpeg,
		SampleRate:   s.Audio.SampleRate,
		Duration:     s.Audio.Duration,
		DecodeRate:   s.Audio.DecodeRate,
		DecodeStereo: s.Audio.DecodeChannels == 2,
	}
}

// ArtifactConfig returns the model artifact configuration for a feature
// matrix of frames x channels.
func (s *Settings) ArtifactConfig(frames, channels int) accent.ArtifactConfig {
	return accent.ArtifactConfig{
		ModelPath:      s.Model.ModelPath,
		EncoderPath:    s.Model.EncoderPath,
		Frames:         frames,
		Channels:       channels,
		RuntimeLibrary: s.Model.RuntimeLibrary,
		Session: onnx.Options{
			InputName:      s.Model.InputName,
			OutputName:     s.Model.OutputName,
			IntraOpThreads: s.Model.IntraOpThreads,
		},
	}
}

// OpenStore opens the model artifact store.
func (s *Settings) OpenStore() (storage.FileStore, error) {
	return storage.Open(s.Model.Store, s.S3)
}

// resolveStore makes a relative local store path absolute against the
// config file's directory.
func (s *Settings) resolveStore() {
	if s.Path == "" || strings.Contains(s.Model.Store, "://") || filepath.IsAbs(s.Model.Store) {
		return
	}
	s.Model.Store = filepath.Join(filepath.Dir(s.Path), s.Model.Store)
}
