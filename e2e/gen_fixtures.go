//go:build ignore

// gen_fixtures creates test images for the end-to-end smoke test.
// Usage: go run gen_fixtures.go <output_dir>
package main

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"github.com/wpilibsuite/sphinxext-photofinish/internal/pngchunk"
)

const diagramSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="320" height="160" viewBox="0 0 320 160">
  <rect x="8" y="8" width="304" height="144" rx="12" fill="#1f4e8c"/>
  <circle cx="80" cy="80" r="40" fill="#f2b134"/>
  <path d="M150 120 L200 40 L250 120 Z" fill="#ffffff"/>
</svg>
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: gen_fixtures <output_dir>")
		os.Exit(1)
	}
	dir := os.Args[1]
	os.MkdirAll(filepath.Join(dir, "robot"), 0o755)

	// Photo (JPEG, 1600x900): widths 500, 800, 1100, 1400, 1600.
	writeJPEG(filepath.Join(dir, "banner.jpg"), gradient(1600, 900))

	// Screenshots (PNG) in a subdirectory.
	writeImage(filepath.Join(dir, "robot", "arm.png"), solidWithBorder(1100, 550, 60), nil)
	writeImage(filepath.Join(dir, "robot", "icon.png"), solidWithBorder(120, 120, 180), nil)

	// VI snippet: only png variants keep the niVI chunk.
	writeImage(filepath.Join(dir, "snippet.png"), alphaGradient(900, 400), []byte("<VI snippet fixture>"))

	// Vector diagram, rasterized only to learn its size.
	if err := os.WriteFile(filepath.Join(dir, "diagram.svg"), []byte(diagramSVG), 0o644); err != nil {
		panic(err)
	}

	fmt.Fprintf(os.Stderr, "[gen_fixtures] created 5 fixtures in %s\n", dir)
}

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / w),
				G: uint8(y * 255 / h),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

func solidWithBorder(w, h int, base uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA{R: base, G: base + 40, B: base + 80, A: 255}
			if x < 4 || x >= w-4 || y < 4 || y >= h-4 {
				c = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func alphaGradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: 220, G: 60, B: 30,
				A: uint8(x * 255 / w),
			})
		}
	}
	return img
}

func writeImage(path string, img *image.NRGBA, payload []byte) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	data := buf.Bytes()
	if payload != nil {
		var err error
		data, err = pngchunk.InsertAfterData(data, pngchunk.Chunk{Type: pngchunk.VIType, Data: payload})
		if err != nil {
			panic(err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		panic(err)
	}
}

func writeJPEG(path string, img *image.NRGBA) {
	f, err := os.Create(path)
	if err != nil {
		panic(err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 85}); err != nil {
		panic(err)
	}
}
