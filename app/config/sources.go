package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SourcesFile is an optional YAML seed of feed URLs registered at startup.
// Sources added or removed at runtime through the bot live in the database
// only; the seed file is never written back.
type SourcesFile struct {
	Sources []string `yaml:"sources"`
}

// LoadSources reads and validates the seed file. A missing path (empty
// configuration) yields an empty list, not an error.
func LoadSources(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}

	var file SourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse sources file: %w", err)
	}

	var urls []string
	for _, raw := range file.Sources {
		url := strings.TrimSpace(raw)
		if url == "" {
			continue
		}
		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			return nil, fmt.Errorf("invalid source URL %q: must start with http:// or https://", url)
		}
		urls = append(urls, url)
	}

	return urls, nil
}
