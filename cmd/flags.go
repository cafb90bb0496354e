package cmd

import (
	"github.com/spf13/cobra"

	"github.com/wpilibsuite/sphinxext-photofinish/internal/config"
)

// converterFlags are the per-tool path overrides shared by build and svg2png.
type converterFlags struct {
	inkscape    string
	rsvgConvert string
	svgExport   string
	imageMagick string
}

func (f *converterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.inkscape, "inkscape", "", "path to the inkscape executable")
	cmd.Flags().StringVar(&f.rsvgConvert, "rsvg-convert", "", "path to the rsvg-convert executable")
	cmd.Flags().StringVar(&f.svgExport, "svgexport", "", "path to the svgexport executable")
	cmd.Flags().StringVar(&f.imageMagick, "imagemagick", "", "path to the magick or convert executable")
}

// apply copies explicitly set flags over the config file values.
func (f *converterFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	set := func(name string, dst *string, v string) {
		if cmd.Flags().Changed(name) {
			*dst = v
		}
	}
	set("inkscape", &cfg.Converters.Inkscape, f.inkscape)
	set("rsvg-convert", &cfg.Converters.RSVGConvert, f.rsvgConvert)
	set("svgexport", &cfg.Converters.SVGExport, f.svgExport)
	set("imagemagick", &cfg.Converters.ImageMagick, f.imageMagick)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if configPath != "" {
		logVerbose("config:  %s", configPath)
	}
	return cfg, nil
}
