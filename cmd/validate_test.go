package cmd

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wpilibsuite/sphinxext-photofinish/internal/hasher"
	"github.com/wpilibsuite/sphinxext-photofinish/internal/manifest"
)

func validFixture(t *testing.T) (*manifest.Manifest, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "arm-500.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, 500, 250))); err != nil {
		t.Fatal(err)
	}
	f.Close()
	hash, size, err := hasher.File(path)
	if err != nil {
		t.Fatal(err)
	}

	m := manifest.New(manifest.ProfileInfo{Name: "default"})
	m.Images["arm.png"] = manifest.Image{
		Source:   manifest.SourceInfo{Path: "arm.png", Format: "png", Width: 600, Height: 300},
		Variants: []manifest.Variant{{Format: "png", Width: 500, Height: 250, Size: size, Hash: hash, Path: "arm-500.png"}},
	}
	m.ComputeStats()
	return m, dir
}

func TestValidateManifest(t *testing.T) {
	m, dir := validFixture(t)
	if errs := validateManifest(m, dir); len(errs) != 0 {
		t.Fatalf("valid manifest rejected: %v", errs)
	}
}

func TestValidateManifest_DetectsProblems(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *manifest.Manifest, dir string)
		want   string
	}{
		{"changed content", func(m *manifest.Manifest, dir string) {
			img := m.Images["arm.png"]
			img.Variants[0].Hash = "0000000000000000"
			m.Images["arm.png"] = img
		}, "content changed"},
		{"missing file", func(m *manifest.Manifest, dir string) {
			os.Remove(filepath.Join(dir, "arm-500.png"))
		}, "file not found"},
		{"wrong dimensions", func(m *manifest.Manifest, dir string) {
			img := m.Images["arm.png"]
			img.Variants[0].Width = 400
			m.Images["arm.png"] = img
		}, "manifest says 400x250"},
		{"stale stats", func(m *manifest.Manifest, dir string) {
			m.Stats.TotalVariants = 7
		}, "stats.total_variants"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, dir := validFixture(t)
			tt.mutate(m, dir)
			errs := validateManifest(m, dir)
			if !strings.Contains(strings.Join(errs, "\n"), tt.want) {
				t.Errorf("errors %q do not mention %q", errs, tt.want)
			}
		})
	}
}
