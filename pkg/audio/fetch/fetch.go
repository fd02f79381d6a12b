// Package fetch downloads the audio track of a public video URL with yt-dlp.
//
// Each download is written to the scratch directory as <uuid>.<codec>, so
// concurrent runs never collide. The caller owns the returned file and
// removes it with [Downloader.Remove] when done.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/haivivi/accentid/pkg/storage"
)

var (
	// ErrEmptyURL is returned when Fetch is called without a URL.
	ErrEmptyURL = errors.New("fetch: empty url")

	// ErrNoOutput is returned when the downloader succeeded but the
	// transcoded file is not in the scratch directory.
	ErrNoOutput = errors.New("fetch: transcoded audio file not found")
)

// Config controls the downloader invocation.
type Config struct {
	Binary         string        // yt-dlp binary (default "yt-dlp")
	Dir            string        // scratch directory, created if missing
	Format         string        // stream selector (default "bestaudio/best")
	AudioFormat    string        // post-processing codec (default "mp3")
	AudioQuality   string        // post-processing quality (default "192K")
	FFmpegLocation string        // ffmpeg directory passed to yt-dlp when it exists
	Timeout        time.Duration // per-download limit, 0 for none
}

// DefaultConfig returns the downloader defaults.
func DefaultConfig() Config {
	return Config{
		Binary:       "yt-dlp",
		Dir:          filepath.Join(os.TempDir(), "accentid"),
		Format:       "bestaudio/best",
		AudioFormat:  "mp3",
		AudioQuality: "192K",
	}
}

type runFunc func(ctx context.Context, name string, args ...string) error

// Downloader fetches audio into a scratch directory.
type Downloader struct {
	cfg     Config
	scratch *storage.Local
	run     runFunc
}

// NewDownloader creates a Downloader, creating the scratch directory.
// Zero fields of cfg take their defaults.
func NewDownloader(cfg Config) (*Downloader, error) {
	def := DefaultConfig()
	if cfg.Binary == "" {
		cfg.Binary = def.Binary
	}
	if cfg.Dir == "" {
		cfg.Dir = def.Dir
	}
	if cfg.Format == "" {
		cfg.Format = def.Format
	}
	if cfg.AudioFormat == "" {
		cfg.AudioFormat = def.AudioFormat
	}
	if cfg.AudioQuality == "" {
		cfg.AudioQuality = def.AudioQuality
	}
	scratch, err := storage.NewLocal(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("fetch: scratch dir: %w", err)
	}
	return &Downloader{cfg: cfg, scratch: scratch, run: runCommand}, nil
}

// Dir returns the absolute scratch directory.
func (d *Downloader) Dir() string {
	return d.scratch.Root()
}

// Fetch downloads the best audio stream of url, transcodes it to the
// configured codec and returns the path of the resulting file.
func (d *Downloader) Fetch(ctx context.Context, url string) (string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", ErrEmptyURL
	}
	if d.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
	}

	base := uuid.NewString()
	args := d.args(base, url)
	slog.Debug("yt-dlp options", "binary", d.cfg.Binary, "args", args)

	if err := d.run(ctx, d.cfg.Binary, args...); err != nil {
		d.discard(ctx, base)
		return "", fmt.Errorf("fetch: download %s: %w", url, err)
	}

	names, err := d.scratch.List(base)
	if err != nil {
		return "", fmt.Errorf("fetch: scan %s: %w", d.scratch.Root(), err)
	}
	want := base + "." + d.cfg.AudioFormat
	for _, name := range names {
		if name == want {
			path := d.scratch.Path(name)
			slog.Debug("downloaded audio", "url", url, "path", path)
			return path, nil
		}
	}

	for _, name := range names {
		slog.Debug("fallback candidate", "path", d.scratch.Path(name))
	}
	d.discard(ctx, base)
	return "", fmt.Errorf("%w: .%s for %s in %s", ErrNoOutput, d.cfg.AudioFormat, base, d.scratch.Root())
}

// Remove deletes a file previously returned by Fetch. Removing a missing
// file is not an error.
func (d *Downloader) Remove(ctx context.Context, path string) error {
	if rel, ok := d.scratch.Rel(path); ok {
		return d.scratch.Delete(ctx, rel)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (d *Downloader) args(base, url string) []string {
	args := []string{
		"--format", d.cfg.Format,
		"--extract-audio",
		"--audio-format", d.cfg.AudioFormat,
		"--audio-quality", d.cfg.AudioQuality,
		"--no-playlist",
		"--quiet",
		"--no-warnings",
		"--output", d.scratch.Path(base + ".%(ext)s"),
	}
	if loc := d.ffmpegLocation(); loc != "" {
		args = append(args, "--ffmpeg-location", loc)
	}
	return append(args, "--", url)
}

// ffmpegLocation returns the configured ffmpeg directory if it exists.
func (d *Downloader) ffmpegLocation() string {
	loc := d.cfg.FFmpegLocation
	if loc == "" {
		slog.Debug("ffmpeg location not set, yt-dlp will search PATH")
		return ""
	}
	if fi, err := os.Stat(loc); err != nil || !fi.IsDir() {
		slog.Debug("ffmpeg location is not a directory, yt-dlp will search PATH", "path", loc)
		return ""
	}
	for _, tool := range []string{"ffmpeg", "ffprobe"} {
		_, err := exec.LookPath(filepath.Join(loc, tool))
		slog.Debug("ffmpeg location check", "tool", tool, "dir", loc, "found", err == nil)
	}
	return loc
}

// discard removes every scratch file belonging to base.
func (d *Downloader) discard(ctx context.Context, base string) {
	names, err := d.scratch.List(base)
	if err != nil {
		return
	}
	for _, name := range names {
		if err := d.scratch.Delete(ctx, name); err != nil {
			slog.Warn("failed to remove partial download", "path", d.scratch.Path(name), "error", err)
		}
	}
}

func runCommand(ctx context.Context, name string, args ...string) error {
	if _, err := exec.LookPath(name); err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if msg := lastLines(stderr.String(), 5); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

// lastLines returns the final n non-empty lines of s joined by "; ".
func lastLines(s string, n int) string {
	var lines []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "; ")
}
