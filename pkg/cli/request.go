package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Batch is a list of URLs to analyze.
type Batch struct {
	URLs []string `yaml:"urls" json:"urls"`
}

// LoadRequest loads a request from a YAML or JSON file into the provided struct
func LoadRequest(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	return ParseRequest(data, path, v)
}

// ParseRequest parses request data based on file extension or content
func ParseRequest(data []byte, filename string, v any) error {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		// YAML is a superset of JSON for our documents.
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to parse file (tried YAML and JSON): %w", err)
		}
	}
	return nil
}

// LoadBatch reads URLs from path. YAML and JSON files hold either a bare
// list or a {urls: [...]} mapping; .txt files hold one URL per line with
// '#' comments. Blank entries are kept so they are reported like any other
// invalid input.
func LoadBatch(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".txt") {
		return parseLines(data), nil
	}

	var list []string
	if err := ParseRequest(data, path, &list); err == nil {
		return list, nil
	}
	var b Batch
	if err := ParseRequest(data, path, &b); err != nil {
		return nil, err
	}
	return b.URLs, nil
}

func parseLines(data []byte) []string {
	var urls []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls
}
