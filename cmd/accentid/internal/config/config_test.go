package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func noEnv(string) (string, bool) { return "", false }

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")

	s, err := Loader{Lookup: noEnv}.Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if s.Path != "" {
		t.Errorf("Path = %q, want empty", s.Path)
	}
	if s.Audio.SampleRate != 16000 || s.Audio.Duration != 5 {
		t.Errorf("audio = %+v", s.Audio)
	}
	if s.Downloader.Format != "bestaudio/best" || s.Downloader.AudioFormat != "mp3" || s.Downloader.AudioQuality != "192K" {
		t.Errorf("downloader = %+v", s.Downloader)
	}
	if s.Model.Threshold != nil || s.ConfidenceThreshold() != 60 {
		t.Errorf("threshold = %v, want unset (60)", s.ConfidenceThreshold())
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: 0.0.0.0:8080
  cors: true
audio:
  temp_dir: /tmp/scratch
  decode_channels: 1
downloader:
  ffmpeg_location: /opt/ffmpeg/bin
  timeout: 2m
model:
  store: models
  encoder_path: classes.yaml
s3:
  region: eu-west-1
  path_style: true
log:
  level: debug
`)
	s, err := Loader{Lookup: noEnv}.Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if s.Server.Addr != "0.0.0.0:8080" || !s.Server.CORS {
		t.Errorf("server = %+v", s.Server)
	}
	if s.Path != path {
		t.Errorf("Path = %q, want %q", s.Path, path)
	}

	fc := s.FetchConfig()
	if fc.Dir != "/tmp/scratch" || fc.FFmpegLocation != "/opt/ffmpeg/bin" || fc.Timeout != 2*time.Minute {
		t.Errorf("FetchConfig = %+v", fc)
	}
	if fc.Binary != "yt-dlp" {
		t.Errorf("Binary = %q, want default", fc.Binary)
	}

	lc := s.LoaderConfig()
	if lc.DecodeStereo {
		t.Error("DecodeStereo = true, want false for decode_channels 1")
	}
	if lc.TargetSamples() != 80000 {
		t.Errorf("TargetSamples = %d, want 80000", lc.TargetSamples())
	}

	// Relative stores resolve against the config file.
	if want := filepath.Join(filepath.Dir(path), "models"); s.Model.Store != want {
		t.Errorf("Store = %q, want %q", s.Model.Store, want)
	}

	ac := s.ArtifactConfig(157, 60)
	if ac.ModelPath != "accent_model.onnx" || ac.EncoderPath != "classes.yaml" || ac.Frames != 157 || ac.Channels != 60 {
		t.Errorf("ArtifactConfig = %+v", ac)
	}

	level, err := s.LogLevel()
	if err != nil || level != slog.LevelDebug {
		t.Errorf("LogLevel = %v, %v", level, err)
	}
	if !s.S3.PathStyle || s.S3.Region != "eu-west-1" {
		t.Errorf("s3 = %+v", s.S3)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "model:\n  store: /srv/models\n")
	env := envMap(map[string]string{
		"ACCENTID_MODEL_STORE": "s3://bucket/accent",
		"ACCENTID_S3_ENDPOINT": "http://localhost:9000",
		"ACCENTID_ORT_LIB":     "/usr/lib/libonnxruntime.so",
		"ACCENTID_LOG_LEVEL":   "warn",
		"ACCENTID_FFMPEG":      "",
	})

	s, err := Loader{Lookup: env}.Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if s.Model.Store != "s3://bucket/accent" {
		t.Errorf("Store = %q", s.Model.Store)
	}
	if s.S3.Endpoint != "http://localhost:9000" {
		t.Errorf("Endpoint = %q", s.S3.Endpoint)
	}
	if s.Model.RuntimeLibrary != "/usr/lib/libonnxruntime.so" {
		t.Errorf("RuntimeLibrary = %q", s.Model.RuntimeLibrary)
	}
	if s.Audio.FFmpeg != "ffmpeg" {
		t.Errorf("empty env value should not override, FFmpeg = %q", s.Audio.FFmpeg)
	}
	if level, _ := s.LogLevel(); level != slog.LevelWarn {
		t.Errorf("LogLevel = %v, want warn", level)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"negative duration", "audio:\n  duration: -1\n", "audio.duration"},
		{"bad channels", "audio:\n  decode_channels: 6\n", "decode_channels"},
		{"bad timeout", "downloader:\n  timeout: soon\n", "downloader.timeout"},
		{"bad threshold", "model:\n  threshold: 150\n", "model.threshold"},
		{"bad level", "log:\n  level: loud\n", "log.level"},
		{"bad yaml", "server: [\n", "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Loader{Lookup: noEnv}.Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad_ZeroThreshold(t *testing.T) {
	s, err := Loader{Lookup: noEnv}.Load(writeConfig(t, "model:\n  threshold: 0\n"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if s.Model.Threshold == nil || s.ConfidenceThreshold() != 0 {
		t.Errorf("threshold = %v, want an explicit 0", s.Model.Threshold)
	}
}

func TestValidate_FillsDefaults(t *testing.T) {
	s := &Settings{Model: ModelConfig{Store: "/models"}}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if s.Server.Addr == "" || s.Downloader.Binary == "" || s.Model.EncoderPath == "" {
		t.Errorf("defaults not filled: %+v", s)
	}
	if s.Model.Store != "/models" {
		t.Errorf("Store = %q, want /models", s.Model.Store)
	}
}

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()
	s := &Settings{Model: ModelConfig{Store: dir}}
	store, err := s.OpenStore()
	if err != nil {
		t.Fatalf("OpenStore error: %v", err)
	}
	if store == nil {
		t.Fatal("store is nil")
	}
}
