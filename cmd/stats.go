package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/wpilibsuite/sphinxext-photofinish/internal/manifest"
)

var statsCmd = &cobra.Command{
	Use:   "stats <out_dir_or_manifest>",
	Short: "Display statistics for a build output directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(_ *cobra.Command, args []string) error {
	path := args[0]

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		path = filepath.Join(path, manifest.FileName)
	}

	m, err := manifest.ReadJSON(path)
	if err != nil {
		return err
	}
	printStats(m)
	return nil
}

func printStats(m *manifest.Manifest) {
	fmt.Println()
	fmt.Printf("  Manifest version: %d\n", m.Version)
	fmt.Printf("  Generated:        %s\n", m.GeneratedAt)
	fmt.Printf("  Profile:          %s (min=%d, viewport=%d, step=%d)\n",
		m.Profile.Name, m.Profile.MinWidth, m.Profile.MaxViewportWidth, m.Profile.WidthStep)
	if m.BuildInfo != nil {
		fmt.Printf("  Workers:          %d\n", m.BuildInfo.Workers)
		fmt.Printf("  Encoders:         %v\n", m.BuildInfo.Encoders)
	}
	fmt.Println()

	s := m.Stats
	fmt.Printf("  Total images:     %d\n", s.TotalImages)
	fmt.Printf("  Total variants:   %d\n", s.TotalVariants)
	fmt.Printf("  Input size:       %s\n", formatBytes(s.TotalInputBytes))
	fmt.Printf("  Output size:      %s\n", formatBytes(s.TotalOutputBytes))
	if s.Skipped > 0 || s.Failed > 0 {
		fmt.Printf("  Skipped / failed: %d / %d\n", s.Skipped, s.Failed)
	}
	fmt.Println()

	formatStats := map[string]struct {
		count int
		bytes int64
	}{}
	for _, img := range m.Images {
		for _, v := range img.Variants {
			fs := formatStats[v.Format]
			fs.count++
			fs.bytes += v.Size
			formatStats[v.Format] = fs
		}
	}

	fmt.Println("  Format breakdown:")
	for _, f := range []string{"avif", "webp", "jpeg", "png"} {
		if fs, ok := formatStats[f]; ok {
			fmt.Printf("    %-6s  %4d files  %s\n", f, fs.count, formatBytes(fs.bytes))
		}
	}
	fmt.Println()

	widthStats := map[int]int{}
	for _, img := range m.Images {
		for _, v := range img.Variants {
			widthStats[v.Width]++
		}
	}
	var widths []int
	for w := range widthStats {
		widths = append(widths, w)
	}
	sort.Ints(widths)
	fmt.Println("  Width breakdown:")
	for _, w := range widths {
		fmt.Printf("    %5dpx  %4d variants\n", w, widthStats[w])
	}
	fmt.Println()

	var payload, vector int
	for _, img := range m.Images {
		if img.Source.HasPayload {
			payload++
		}
		if img.Source.Format == "svg" {
			vector++
		}
	}
	fmt.Printf("  SVG images:       %d\n", vector)
	fmt.Printf("  With payload:     %d\n", payload)

	var warnings []string
	for key, img := range m.Images {
		switch {
		case img.Error != "":
			warnings = append(warnings, fmt.Sprintf("image %q: %s", key, firstLine(img.Error)))
		case img.Source.Format != "svg" && len(img.Variants) == 0:
			warnings = append(warnings, fmt.Sprintf("image %q has no variants", key))
		}
	}
	sort.Strings(warnings)
	if len(warnings) > 0 {
		fmt.Println()
		fmt.Printf("  Warnings (%d):\n", len(warnings))
		for _, w := range warnings {
			fmt.Printf("    ⚠ %s\n", w)
		}
	}
	fmt.Println()
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
