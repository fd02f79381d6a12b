package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/haivivi/accentid/pkg/accent"
	"github.com/haivivi/accentid/pkg/pipeline"
)

type fakeClassifier struct{}

func (fakeClassifier) Predict(context.Context, [][]float32) ([]float32, error) {
	return []float32{0.1, 0.8, 0.1}, nil
}

func (fakeClassifier) Close() error { return nil }

// setupTestEnv points HOME at a temp dir and writes a config whose model
// store holds an encoder (when classes is non-empty) and a placeholder model.
func setupTestEnv(t *testing.T, classes ...string) (configFile string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	store := filepath.Join(dir, "models")
	if err := os.MkdirAll(store, 0755); err != nil {
		t.Fatal(err)
	}
	if len(classes) > 0 {
		data, _ := json.Marshal(classes)
		if err := os.WriteFile(filepath.Join(store, "label_encoder.json"), data, 0644); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(store, "accent_model.onnx"), []byte("onnx"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	configFile = filepath.Join(dir, "config.yaml")
	content := "audio:\n  temp_dir: " + filepath.Join(dir, "tmp") + "\nmodel:\n  store: models\n"
	if err := os.WriteFile(configFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	testClassifierOverride = func([]byte) (accent.Classifier, error) { return fakeClassifier{}, nil }
	t.Cleanup(func() { testClassifierOverride = nil })
	return configFile
}

func runCmd(t *testing.T, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()

	oldStdout := os.Stdout
	oldStderr := os.Stderr

	rOut, wOut, _ := os.Pipe()
	rErr, wErr, _ := os.Pipe()
	os.Stdout = wOut
	os.Stderr = wErr

	verbose = false
	configPath = ""
	formatOutput = "text"
	outputFile = ""
	analyzeFile = ""
	globalSettings = nil
	settingsLoadErr = nil

	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	wOut.Close()
	wErr.Close()
	os.Stdout = oldStdout
	os.Stderr = oldStderr

	var outBuf, errBuf bytes.Buffer
	outBuf.ReadFrom(rOut)
	errBuf.ReadFrom(rErr)

	stdout = outBuf.String()
	stderr = errBuf.String()
	if err != nil {
		exitCode = 1
		stderr += err.Error()
	}

	resetFlags(rootCmd)
	return
}

func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		f.Changed = false
		f.Value.Set(f.DefValue)
	})
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func TestVersion(t *testing.T) {
	setupTestEnv(t)

	stdout, _, code := runCmd(t, "version")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(stdout, "accentid") {
		t.Fatalf("expected 'accentid', got: %s", stdout)
	}
}

func TestVersionJSON(t *testing.T) {
	setupTestEnv(t)

	stdout, _, code := runCmd(t, "version", "--format", "json")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(stdout, `"version"`) {
		t.Fatalf("expected JSON, got: %s", stdout)
	}
}

func TestVersionBadFormat(t *testing.T) {
	setupTestEnv(t)

	_, stderr, code := runCmd(t, "version", "--format", "xml")
	if code == 0 {
		t.Fatal("expected failure for unknown format")
	}
	if !strings.Contains(stderr, "unsupported output format") {
		t.Fatalf("stderr = %s", stderr)
	}
}

func TestClasses(t *testing.T) {
	cfg := setupTestEnv(t, "american", "british", "indian")

	stdout, stderr, code := runCmd(t, "classes", "--config", cfg)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	for _, want := range []string{"0\tamerican", "1\tbritish", "2\tindian"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("stdout missing %q: %s", want, stdout)
		}
	}
}

func TestClassesYAML(t *testing.T) {
	cfg := setupTestEnv(t, "american", "british")

	stdout, stderr, code := runCmd(t, "classes", "--config", cfg, "--format", "yaml")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "classes:") || !strings.Contains(stdout, "- british") {
		t.Fatalf("expected YAML, got: %s", stdout)
	}
}

func TestClassesModelMissing(t *testing.T) {
	cfg := setupTestEnv(t)

	_, stderr, code := runCmd(t, "classes", "--config", cfg)
	if code == 0 {
		t.Fatal("expected failure without artifacts")
	}
	if !strings.Contains(stderr, "Model or Label Encoder could not be loaded") {
		t.Fatalf("stderr = %s", stderr)
	}
}

func TestAnalyzeEmptyURL(t *testing.T) {
	cfg := setupTestEnv(t, "american", "british")

	_, stderr, code := runCmd(t, "analyze", "--config", cfg)
	if code == 0 {
		t.Fatal("expected failure for empty url")
	}
	if !strings.Contains(stderr, "Please enter a video URL.") {
		t.Fatalf("stderr = %s", stderr)
	}
}

func TestAnalyzeEmptyURLJSON(t *testing.T) {
	cfg := setupTestEnv(t, "american", "british")

	stdout, _, code := runCmd(t, "analyze", "--config", cfg, "--format", "json", "")
	if code == 0 {
		t.Fatal("expected failure for empty url")
	}
	var entry AnalyzeEntry
	if err := json.Unmarshal([]byte(stdout), &entry); err != nil {
		t.Fatalf("invalid JSON %q: %v", stdout, err)
	}
	if entry.Error != "Please enter a video URL." || entry.Result != nil {
		t.Errorf("entry = %+v", entry)
	}
}

func TestAnalyzeBatchFile(t *testing.T) {
	cfg := setupTestEnv(t, "american", "british")
	batch := filepath.Join(t.TempDir(), "urls.yaml")
	if err := os.WriteFile(batch, []byte("urls:\n  - \"\"\n  - \"  \"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	stdout, stderr, code := runCmd(t, "analyze", "--config", cfg, "-f", batch, "--format", "json")
	if code == 0 {
		t.Fatal("expected failure for blank urls")
	}
	if !strings.Contains(stderr, "2 of 2 analyses failed") {
		t.Errorf("stderr = %s", stderr)
	}
	var entries []AnalyzeEntry
	if err := json.Unmarshal([]byte(stdout), &entries); err != nil {
		t.Fatalf("invalid JSON %q: %v", stdout, err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
}

func TestAnalyzeMissingBatchFile(t *testing.T) {
	cfg := setupTestEnv(t)

	_, stderr, code := runCmd(t, "analyze", "--config", cfg, "-f", filepath.Join(t.TempDir(), "nope.yaml"))
	if code == 0 {
		t.Fatal("expected failure for missing batch file")
	}
	if !strings.Contains(stderr, "failed to read file") {
		t.Fatalf("stderr = %s", stderr)
	}
}

func TestBrokenConfig(t *testing.T) {
	setupTestEnv(t)
	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("log:\n  level: loud\n"), 0644); err != nil {
		t.Fatal(err)
	}

	// version does not need the config.
	if _, _, code := runCmd(t, "version", "--config", bad); code != 0 {
		t.Fatalf("version exit %d", code)
	}
	_, stderr, code := runCmd(t, "classes", "--config", bad)
	if code == 0 {
		t.Fatal("expected failure with broken config")
	}
	if !strings.Contains(stderr, "config not available") {
		t.Fatalf("stderr = %s", stderr)
	}
}

func TestRenderResult(t *testing.T) {
	res := &pipeline.Result{
		Accent:      "british",
		Confidence:  54.321,
		Explanation: "The speaker's accent is classified as **british**.",
	}
	out := renderResult(res, 1500*time.Millisecond)
	for _, want := range []string{"Predicted Accent", "british", "54.32%"} {
		if !strings.Contains(out, want) {
			t.Errorf("card missing %q:\n%s", want, out)
		}
	}
}
