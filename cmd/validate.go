package cmd

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	_ "golang.org/x/image/webp"

	"github.com/wpilibsuite/sphinxext-photofinish/internal/hasher"
	"github.com/wpilibsuite/sphinxext-photofinish/internal/manifest"
)

var validateCmd = &cobra.Command{
	Use:   "validate <manifest_path>",
	Short: "Check that every file in a manifest exists and is unchanged",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(_ *cobra.Command, args []string) error {
	manifestPath := args[0]
	m, err := manifest.ReadJSON(manifestPath)
	if err != nil {
		return err
	}

	errs := validateManifest(m, filepath.Dir(manifestPath))
	if len(errs) == 0 {
		fmt.Println("  ✓ Manifest is valid")
		fmt.Printf("  ✓ %d images, %d variants, all files present\n", m.Stats.TotalImages, m.Stats.TotalVariants)
		return nil
	}

	fmt.Printf("  ✗ Manifest has %d error(s):\n", len(errs))
	for _, e := range errs {
		fmt.Printf("    • %s\n", e)
	}
	return fmt.Errorf("validation failed with %d errors", len(errs))
}

func validateManifest(m *manifest.Manifest, baseDir string) []string {
	var errs []string

	if m.Version != manifest.SupportedManifestVersion {
		errs = append(errs, fmt.Sprintf("unsupported manifest version: %d", m.Version))
	}

	for key, img := range m.Images {
		if img.Error != "" {
			continue
		}
		if img.Source.Width <= 0 || img.Source.Height <= 0 {
			errs = append(errs, fmt.Sprintf("image %q: invalid source dimensions %dx%d",
				key, img.Source.Width, img.Source.Height))
		}
		if img.Source.Format != "svg" && len(img.Variants) == 0 {
			errs = append(errs, fmt.Sprintf("image %q: no variants", key))
		}

		seenPaths := map[string]bool{}
		for i, v := range img.Variants {
			if v.Format == "" {
				errs = append(errs, fmt.Sprintf("image %q variant[%d]: empty format", key, i))
			}
			if v.Width <= 0 || v.Height <= 0 {
				errs = append(errs, fmt.Sprintf("image %q variant[%d]: invalid dimensions %dx%d",
					key, i, v.Width, v.Height))
			}
			if v.Path == "" {
				errs = append(errs, fmt.Sprintf("image %q variant[%d]: missing path", key, i))
				continue
			}
			if seenPaths[v.Path] {
				errs = append(errs, fmt.Sprintf("image %q variant[%d]: duplicate path %q", key, i, v.Path))
			}
			seenPaths[v.Path] = true

			fullPath := filepath.Join(baseDir, filepath.FromSlash(v.Path))
			hash, size, err := hasher.File(fullPath)
			if err != nil {
				errs = append(errs, fmt.Sprintf("image %q variant[%d]: file not found: %s", key, i, v.Path))
				continue
			}
			if size != v.Size {
				errs = append(errs, fmt.Sprintf("image %q variant[%d]: size mismatch: manifest=%d, disk=%d",
					key, i, v.Size, size))
			}
			if v.Hash != "" && hash != v.Hash {
				errs = append(errs, fmt.Sprintf("image %q variant[%d]: content changed: %s", key, i, v.Path))
			}
			if err := checkDimensions(fullPath, v); err != nil {
				errs = append(errs, fmt.Sprintf("image %q variant[%d]: %v", key, i, err))
			}
		}
	}

	imageCount := len(m.Images)
	variantCount := 0
	for _, img := range m.Images {
		variantCount += len(img.Variants)
	}
	if m.Stats.TotalImages != imageCount {
		errs = append(errs, fmt.Sprintf("stats.total_images mismatch: %d != %d", m.Stats.TotalImages, imageCount))
	}
	if m.Stats.TotalVariants != variantCount {
		errs = append(errs, fmt.Sprintf("stats.total_variants mismatch: %d != %d", m.Stats.TotalVariants, variantCount))
	}

	return errs
}

// checkDimensions decodes the header of a variant. avif has no decoder in
// the build and is only checked for existence.
func checkDimensions(path string, v manifest.Variant) error {
	if v.Format == "avif" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return fmt.Errorf("decode %s: %w", v.Path, err)
	}
	if cfg.Width != v.Width || cfg.Height != v.Height {
		return fmt.Errorf("%s is %dx%d, manifest says %dx%d", v.Path, cfg.Width, cfg.Height, v.Width, v.Height)
	}
	return nil
}
