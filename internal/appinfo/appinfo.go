// Package appinfo exposes static identifiers for the app, read from an
// app.yaml manifest next to the binary or the source tree.
package appinfo

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Metadata captures the app identity used in logs, the info endpoint and the
// engine User-Agent.
type Metadata struct {
	Name        string `yaml:"name"`
	Slug        string `yaml:"slug"`
	Version     string `yaml:"version"`
	Description string `yaml:"description"`
}

// Info describes the current build. When no manifest can be located a
// development fallback is used so the binary stays runnable from anywhere.
var Info = loadMetadata()

var fallback = Metadata{
	Name:        "edgesay",
	Slug:        "edgesay",
	Version:     "0.0.0-dev",
	Description: "Batch text-to-speech over the Edge read-aloud engine",
}

// Version returns the app semantic version.
func Version() string {
	return Info.Version
}

// UserAgent renders the identity sent to the engine endpoints.
func (m Metadata) UserAgent() string {
	return fmt.Sprintf("%s/%s", m.Slug, m.Version)
}

func loadMetadata() Metadata {
	data, err := loadManifest()
	if err != nil {
		return fallback
	}
	meta, err := parseManifest(data)
	if err != nil {
		return fallback
	}
	return meta
}

func loadManifest() ([]byte, error) {
	var candidates []string
	if exe, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Dir(exe))
	}
	if wd, err := os.Getwd(); err == nil {
		candidates = append(candidates, wd)
	}
	if _, file, _, ok := runtime.Caller(0); ok {
		srcRoot := filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
		candidates = append(candidates, srcRoot)
	}

	seen := make(map[string]struct{})
	for _, base := range candidates {
		base = filepath.Clean(base)
		if _, ok := seen[base]; ok {
			continue
		}
		seen[base] = struct{}{}

		candidate := filepath.Join(base, "app.yaml")
		if data, err := os.ReadFile(candidate); err == nil {
			return data, nil
		}
	}
	return nil, fmt.Errorf("appinfo: app.yaml not found next to binary or source tree")
}

func parseManifest(data []byte) (Metadata, error) {
	var meta Metadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return Metadata{}, fmt.Errorf("appinfo: decode manifest: %w", err)
	}

	meta.Name = strings.TrimSpace(meta.Name)
	meta.Slug = strings.TrimSpace(meta.Slug)
	meta.Version = strings.TrimSpace(meta.Version)
	meta.Description = strings.TrimSpace(meta.Description)

	if meta.Version == "" {
		return Metadata{}, fmt.Errorf("appinfo: version missing in manifest")
	}
	if meta.Slug == "" {
		return Metadata{}, fmt.Errorf("appinfo: slug missing in manifest")
	}
	if meta.Name == "" {
		meta.Name = meta.Slug
	}
	if meta.Description == "" {
		meta.Description = meta.Name
	}
	return meta, nil
}
