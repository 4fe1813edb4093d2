package feed

import (
	"bufio"
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type sourceFile struct {
	Feeds []Source `yaml:"feeds"`
}

// SourceLoader reads the list of feeds to mirror. Files ending in .yml or
// .yaml are parsed as YAML, anything else as one URL per line.
type SourceLoader struct {
	path string
}

func NewSourceLoader(path string) *SourceLoader {
	return &SourceLoader{path: path}
}

func (l *SourceLoader) Run() ([]Source, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read feeds file: %w", err)
	}

	var sources []Source
	switch strings.ToLower(filepath.Ext(l.path)) {
	case ".yml", ".yaml":
		sources, err = l.parseYAML(data)
	default:
		sources, err = l.parseList(data)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid feeds file %s: %w", l.path, err)
	}

	for i := range sources {
		sources[i].URL = NormalizeURL(sources[i].URL)
		if err := l.validateSource(&sources[i]); err != nil {
			return nil, fmt.Errorf("invalid feed at index %d: %w", i, err)
		}
	}

	slog.Debug("Feed sources loaded", "path", l.path, "count", len(sources))

	return sources, nil
}

func (l *SourceLoader) parseList(data []byte) ([]Source, error) {
	var sources []Source

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sources = append(sources, Source{URL: line})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan list: %w", err)
	}

	return sources, nil
}

func (l *SourceLoader) parseYAML(data []byte) ([]Source, error) {
	var file sourceFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return file.Feeds, nil
}

func (l *SourceLoader) validateSource(source *Source) error {
	if source.URL == "" {
		return fmt.Errorf("feed URL is required")
	}

	if source.Settings.MaxEntries < 0 {
		return fmt.Errorf("max entries must be non-negative")
	}

	validFields := map[string]bool{
		"title":  true,
		"author": true,
		"link":   true,
	}

	for i, filter := range source.Filters {
		if !validFields[filter.Field] {
			return fmt.Errorf("invalid filter field at index %d: %s", i, filter.Field)
		}
		if len(filter.Includes) == 0 && len(filter.Excludes) == 0 {
			return fmt.Errorf("filter at index %d must have at least one include or exclude rule", i)
		}
	}

	return nil
}
