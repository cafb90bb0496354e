package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"
)

// FileName is the manifest's name inside the output directory.
const FileName = "photofinish.manifest.json"

// New creates an empty manifest with defaults.
func New(p ProfileInfo) *Manifest {
	return &Manifest{
		Version:     SupportedManifestVersion,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Profile:     p,
		Images:      make(map[string]Image),
	}
}

// ComputeStats recalculates aggregate image and variant counts. Skipped and
// Failed are tracked by the pipeline and kept as they are.
func (m *Manifest) ComputeStats() {
	s := m.Stats
	s.TotalInputBytes, s.TotalOutputBytes = 0, 0
	s.TotalImages = len(m.Images)
	s.TotalVariants = 0
	for _, img := range m.Images {
		s.TotalInputBytes += img.Source.Size
		s.TotalVariants += len(img.Variants)
		for _, v := range img.Variants {
			s.TotalOutputBytes += v.Size
		}
	}
	m.Stats = s
}

// SortVariants orders every image's variants by format, then width.
func (m *Manifest) SortVariants() {
	for key, img := range m.Images {
		sort.Slice(img.Variants, func(i, j int) bool {
			a, b := img.Variants[i], img.Variants[j]
			if a.Format != b.Format {
				return a.Format < b.Format
			}
			return a.Width < b.Width
		})
		m.Images[key] = img
	}
}

// WriteJSON serializes the manifest to a JSON file with stable ordering.
func WriteJSON(m *Manifest, path string) error {
	m.SortVariants()
	m.ComputeStats()

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

// ReadJSON loads a manifest written by WriteJSON.
func ReadJSON(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}
