package cmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/wpilibsuite/sphinxext-photofinish/internal/config"
)

var (
	version    = "0.1.0"
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "photofinish",
	Short: "Responsive image variants for documentation builds",
	Long: `photofinish renders every raster image at a ladder of widths and in
smaller formats (WebP, optionally AVIF), and emits <picture> markup with
srcset and sizes so browsers download only what the layout needs.

SVG images are rasterized once with the first working converter to learn
their intrinsic size, which keeps lazy-loaded pages from shifting.`,
	Version:      version,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./"+config.DefaultFile+" if present)")
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"photofinish %s (%s/%s, %s)\n",
		version, runtime.GOOS, runtime.GOARCH, runtime.Version(),
	))
}

// logVerbose prints a message only when --verbose is set.
func logVerbose(format string, args ...any) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[photofinish] "+format+"\n", args...)
	}
}
