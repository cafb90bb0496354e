package svgconv

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Tool is an external converter binary and the way to call it.
type Tool struct {
	Title string
	// Names are the executable names searched on PATH, in order.
	Names []string
	Args  func(src, dst string, s Size) []string
}

var (
	Inkscape = Tool{
		Title: "Inkscape",
		Names: []string{"inkscape"},
		Args: func(src, dst string, s Size) []string {
			args := []string{
				"--export-background-opacity=0",
				"--export-type=png",
				"--export-filename=" + dst,
				src,
			}
			if s.Width > 0 {
				args = append(args, "--export-width="+strconv.Itoa(s.Width))
			}
			if s.Height > 0 {
				args = append(args, "--export-height="+strconv.Itoa(s.Height))
			}
			return args
		},
	}

	// RSVGConvert also covers the older "rsvg" executable name.
	RSVGConvert = Tool{
		Title: "rsvg-convert",
		Names: []string{"rsvg-convert", "rsvg"},
		Args: func(src, dst string, s Size) []string {
			args := []string{src, "-o", dst}
			if s.Width > 0 {
				args = append(args, "--width="+strconv.Itoa(s.Width))
			}
			if s.Height > 0 {
				args = append(args, "--height="+strconv.Itoa(s.Height))
			}
			return args
		},
	}

	SVGExport = Tool{
		Title: "svgexport",
		Names: []string{"svgexport"},
		Args: func(src, dst string, s Size) []string {
			var size string
			if s.Width > 0 {
				size = strconv.Itoa(s.Width)
			}
			size += ":"
			if s.Height > 0 {
				size += strconv.Itoa(s.Height)
			}
			return []string{src, dst, size}
		},
	}

	// ImageMagick is "magick" in v7 and "convert" in v6.
	ImageMagick = Tool{
		Title: "imagemagick",
		Names: []string{"magick", "convert"},
		Args: func(src, dst string, s Size) []string {
			var geom string
			if s.Width > 0 {
				geom = strconv.Itoa(s.Width)
			}
			if s.Height > 0 {
				geom += "x" + strconv.Itoa(s.Height)
			}
			return []string{"-background", "none", src, "-resize", geom, dst}
		},
	}
)

// Tools lists the external converters in priority order.
var Tools = []Tool{Inkscape, RSVGConvert, SVGExport, ImageMagick}

// run invokes the binary at path and checks that it wrote dst.
func (t Tool) run(ctx context.Context, path, src, dst string, s Size) error {
	cmd := exec.CommandContext(ctx, path, t.Args(src, dst, s)...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", t.Title, ctx.Err())
		}
		if msg := strings.TrimSpace(out.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	info, err := os.Stat(dst)
	if err != nil {
		return fmt.Errorf("exited cleanly but wrote no output: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("exited cleanly but wrote an empty file")
	}
	return nil
}
