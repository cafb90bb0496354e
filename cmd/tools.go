package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wpilibsuite/sphinxext-photofinish/internal/encoder"
	"github.com/wpilibsuite/sphinxext-photofinish/internal/probe"
	"github.com/wpilibsuite/sphinxext-photofinish/internal/svgconv"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List svg converters and encoders and whether they can be used",
	Args:  cobra.NoArgs,
	RunE:  runTools,
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}

func runTools(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p := probe.New()

	fmt.Println()
	fmt.Println("  Converter overrides:")
	ov := cfg.Overrides()
	for _, o := range []struct{ setting, path string }{
		{"inkscape", ov.Inkscape},
		{"rsvg_convert", ov.RSVGConvert},
		{"svgexport", ov.SVGExport},
		{"imagemagick", ov.ImageMagick},
	} {
		printStatus(o.setting, o.path, p)
	}

	fmt.Println()
	fmt.Println("  In-process rasterizers:")
	for _, name := range svgconv.LibraryNames() {
		state := "available"
		if !contains(cfg.Converters.Libraries, name) {
			state = "disabled in config"
		}
		fmt.Printf("    %-14s %s\n", name, state)
	}

	fmt.Println()
	fmt.Println("  Converters on PATH:")
	for _, t := range svgconv.Tools {
		for _, s := range p.Report(t.Names...) {
			if s.Available() {
				fmt.Printf("    %-14s %s\n", s.Name, s.Resolved)
			} else {
				fmt.Printf("    %-14s not found\n", s.Name)
			}
		}
	}

	if cfg.Host != nil {
		fmt.Println()
		fmt.Println("  Host converters:")
		printStatus("inkscape_converter_bin", cfg.Host.InkscapeConverterBin, p)
		printStatus("rsvg_converter_bin", cfg.Host.RSVGConverterBin, p)
	}

	fmt.Println()
	fmt.Printf("  Encoders:    %s\n", encoder.NewRegistry())
	fmt.Println()
	return nil
}

func printStatus(setting, path string, p *probe.Probe) {
	resolved, err := p.Resolve(setting, path)
	switch {
	case err == nil:
		fmt.Printf("    %-22s %s\n", setting, resolved)
	case path == "":
		fmt.Printf("    %-22s not set\n", setting)
	default:
		fmt.Printf("    %-22s %v\n", setting, err)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
