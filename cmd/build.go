package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wpilibsuite/sphinxext-photofinish/internal/config"
	"github.com/wpilibsuite/sphinxext-photofinish/internal/manifest"
	"github.com/wpilibsuite/sphinxext-photofinish/internal/pipeline"
	"github.com/wpilibsuite/sphinxext-photofinish/internal/svgconv"
)

var (
	buildOutDir           string
	buildProfile          string
	buildWorkers          int
	buildMinWidth         int
	buildMaxViewportWidth int
	buildWidthStep        int
	buildFormats          []string
	buildConverters       converterFlags
)

var buildCmd = &cobra.Command{
	Use:   "build <input_dir>",
	Short: "Render responsive variants and write a manifest",
	Long: `Scans the input directory for png, jpg, jpeg and svg images, renders
every raster image at widths from min-width up to twice the maximum
viewport width in each configured format, and writes the files next to
each other in the output directory:

  <stem>-<width>.<ext>   narrower variants
  <stem>.<ext>           the full-size variant

The manifest records the markup and every rendered file.`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&buildOutDir, "out", "o", "./_photofinish", "output directory")
	buildCmd.Flags().StringVarP(&buildProfile, "profile", "p", "default", "width profile (default, avif, compact)")
	buildCmd.Flags().IntVarP(&buildWorkers, "workers", "w", 0, "parallel workers (0 = NumCPU)")
	buildCmd.Flags().IntVar(&buildMinWidth, "min-width", 0, "narrowest variant width")
	buildCmd.Flags().IntVar(&buildMaxViewportWidth, "max-viewport-width", 0, "widest layout width; variants go up to twice this")
	buildCmd.Flags().IntVar(&buildWidthStep, "width-step", 0, "distance between variant widths")
	buildCmd.Flags().StringSliceVar(&buildFormats, "formats", nil, "alternative formats, most preferred first (webp, avif)")
	buildConverters.register(buildCmd)
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	start := time.Now()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyBuildFlags(cmd, cfg); err != nil {
		return err
	}
	if cfg.Skip(os.Getenv) {
		fmt.Println("  photofinish: skipped in this environment (ci_only or Read the Docs)")
		return nil
	}

	absInput, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolve input path: %w", err)
	}
	absOutput, err := filepath.Abs(buildOutDir)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	prof := cfg.PlannerProfile()
	logVerbose("input:   %s", absInput)
	logVerbose("output:  %s", absOutput)
	logVerbose("profile: %s (min=%d, max=%d, step=%d, formats=%v)",
		prof.Name, prof.MinWidth, prof.MaxWidth(), prof.WidthStep, prof.Formats)

	if err := os.MkdirAll(absOutput, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	p := pipeline.New(pipeline.Config{
		Profile:   prof,
		Workers:   cfg.Workers,
		Verbose:   verbose,
		Overrides: cfg.Overrides(),
		Chain:     svgconv.New(cfg.ChainOptions()...),
	})
	m, err := p.Run(context.Background(), absInput, absOutput)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	if err := manifest.WriteJSON(m, filepath.Join(absOutput, manifest.FileName)); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	printBuildReport(m, time.Since(start))
	return nil
}

// applyBuildFlags lets explicitly set flags win over the config file.
func applyBuildFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("profile") {
		cfg.ApplyProfile(buildProfile)
	}
	if flags.Changed("workers") {
		cfg.Workers = buildWorkers
	}
	if flags.Changed("min-width") {
		cfg.MinWidth = buildMinWidth
	}
	if flags.Changed("max-viewport-width") {
		cfg.MaxViewportWidth = buildMaxViewportWidth
	}
	if flags.Changed("width-step") {
		cfg.WidthStep = buildWidthStep
	}
	if flags.Changed("formats") {
		cfg.Formats = buildFormats
	}
	buildConverters.apply(cmd, cfg)
	return cfg.Validate()
}

func printBuildReport(m *manifest.Manifest, elapsed time.Duration) {
	fmt.Println()
	fmt.Println("  photofinish build complete")
	fmt.Println()

	stats := m.Stats
	ratio := float64(0)
	if stats.TotalInputBytes > 0 {
		ratio = float64(stats.TotalOutputBytes) / float64(stats.TotalInputBytes) * 100
	}

	fmt.Printf("  Images:      %d\n", stats.TotalImages)
	fmt.Printf("  Variants:    %d\n", stats.TotalVariants)
	fmt.Printf("  Input size:  %s\n", formatBytes(stats.TotalInputBytes))
	fmt.Printf("  Output size: %s\n", formatBytes(stats.TotalOutputBytes))
	fmt.Printf("  Ratio:       %.1f%% of original\n", ratio)
	if stats.Skipped > 0 {
		fmt.Printf("  Skipped:     %d variants (payload kept in png only)\n", stats.Skipped)
	}
	if stats.Failed > 0 {
		fmt.Printf("  Failed:      %d variants\n", stats.Failed)
	}
	fmt.Printf("  Time:        %s\n", elapsed.Round(time.Millisecond))
	if m.BuildInfo != nil {
		fmt.Printf("  Workers:     %d\n", m.BuildInfo.Workers)
	}
	fmt.Println()

	// Heaviest sources first.
	if len(m.Images) > 0 {
		type imageSize struct {
			key        string
			inputSize  int64
			outputSize int64
		}
		var items []imageSize
		for key, img := range m.Images {
			var outSum int64
			for _, v := range img.Variants {
				outSum += v.Size
			}
			items = append(items, imageSize{key, img.Source.Size, outSum})
		}
		sort.Slice(items, func(i, j int) bool {
			if items[i].inputSize != items[j].inputSize {
				return items[i].inputSize > items[j].inputSize
			}
			return items[i].key < items[j].key
		})
		n := min(len(items), 10)
		fmt.Printf("  Top %d heaviest (source → all variants):\n", n)
		for _, it := range items[:n] {
			fmt.Printf("    %-40s %8s → %8s\n",
				truncKey(it.key, 40),
				formatBytes(it.inputSize),
				formatBytes(it.outputSize),
			)
		}
		fmt.Println()
	}

	fmt.Printf("  Formats:     %s\n", strings.Join(detectOutputFormats(m), ", "))
	fmt.Println()

	data, _ := json.Marshal(m)
	fmt.Printf("  Manifest:    %s (%s)\n", manifest.FileName, formatBytes(int64(len(data))))
	fmt.Println()
}

func detectOutputFormats(m *manifest.Manifest) []string {
	set := map[string]bool{}
	for _, img := range m.Images {
		for _, v := range img.Variants {
			set[v.Format] = true
		}
	}
	var out []string
	for _, f := range []string{"avif", "webp", "jpeg", "png"} {
		if set[f] {
			out = append(out, f)
		}
	}
	return out
}

func formatBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

func truncKey(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max+3:]
}
