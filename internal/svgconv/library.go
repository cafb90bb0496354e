package svgconv

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"sort"

	"github.com/disintegration/imaging"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
)

// Rasterizer converts an SVG file to PNG inside the process.
type Rasterizer interface {
	Name() string
	Rasterize(src, dst string, s Size) error
}

// DefaultLibraries is the in-process fallback order.
var DefaultLibraries = []string{"oksvg", "canvas"}

var libraries = map[string]Rasterizer{
	"oksvg":  OKSVG{},
	"canvas": Canvas{},
}

// Library looks up an in-process rasterizer by name.
func Library(name string) (Rasterizer, error) {
	r, ok := libraries[name]
	if !ok {
		return nil, fmt.Errorf("unknown svg library %q (known: %v)", name, LibraryNames())
	}
	return r, nil
}

// LibraryNames returns the names of all compiled-in rasterizers.
func LibraryNames() []string {
	names := make([]string, 0, len(libraries))
	for n := range libraries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// OKSVG rasterizes with srwiley/oksvg and rasterx.
type OKSVG struct{}

func (OKSVG) Name() string { return "oksvg" }

func (OKSVG) Rasterize(src, dst string, s Size) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	icon, err := oksvg.ReadIconStream(in)
	if err != nil {
		return fmt.Errorf("parse svg: %w", err)
	}
	w, h, err := s.fit(icon.ViewBox.W, icon.ViewBox.H)
	if err != nil {
		return err
	}
	icon.SetTarget(0, 0, float64(w), float64(h))

	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, rgba, rgba.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1.0)

	return writePNG(dst, rgba)
}

// Canvas rasterizes with tdewolff/canvas.
type Canvas struct{}

func (Canvas) Name() string { return "canvas" }

func (Canvas) Rasterize(src, dst string, s Size) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	c, err := canvas.ParseSVG(in)
	if err != nil {
		return fmt.Errorf("parse svg: %w", err)
	}
	w, h, err := s.fit(c.W, c.H)
	if err != nil {
		return err
	}

	// Canvas units are millimetres; pick the resolution that yields w pixels.
	var img image.Image = rasterizer.Draw(c, canvas.DPMM(float64(w)/c.W), canvas.DefaultColorSpace)
	if b := img.Bounds(); b.Dx() != w || b.Dy() != h {
		img = imaging.Resize(img, w, h, imaging.Lanczos)
	}
	return writePNG(dst, img)
}

func writePNG(dst string, img image.Image) error {
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if err := png.Encode(out, img); err != nil {
		out.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	return out.Close()
}
