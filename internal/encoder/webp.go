package encoder

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
)

// Atomic counter for unique temp file names across goroutines.
var tempCounter atomic.Int64

// external runs a command-line encoder that reads a PNG file and writes
// its output to another file.
type external struct {
	binary string
	hint   string // install instructions
	ext    string
	args   func(opts Options, src, dst string) []string

	once      sync.Once
	available bool
	path      string
}

func (e *external) probe() bool {
	e.once.Do(func() {
		path, err := exec.LookPath(e.binary)
		if err == nil {
			e.available = true
			e.path = path
		}
	})
	return e.available
}

func (e *external) encode(img image.Image, opts Options) ([]byte, error) {
	if !e.probe() {
		return nil, fmt.Errorf("%s not found in PATH; install with: %s", e.binary, e.hint)
	}
	if len(opts.Chunks) > 0 {
		return nil, errors.New(e.ext + " cannot carry png chunks")
	}

	id := tempCounter.Add(1)
	srcFile, err := os.CreateTemp("", fmt.Sprintf("photofinish_%s_src_%d_*.png", e.ext, id))
	if err != nil {
		return nil, fmt.Errorf("create temp: %w", err)
	}
	srcPath := srcFile.Name()
	defer os.Remove(srcPath)

	dstFile, err := os.CreateTemp("", fmt.Sprintf("photofinish_%s_dst_%d_*.%s", e.ext, id, e.ext))
	if err != nil {
		srcFile.Close()
		return nil, fmt.Errorf("create temp: %w", err)
	}
	dstPath := dstFile.Name()
	dstFile.Close()
	defer os.Remove(dstPath)

	// Fast lossless intermediate; the external tool does the real work.
	enc := &png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(srcFile, img); err != nil {
		srcFile.Close()
		return nil, fmt.Errorf("encode temp png: %w", err)
	}
	if err := srcFile.Close(); err != nil {
		return nil, fmt.Errorf("write temp png: %w", err)
	}

	cmd := exec.Command(e.path, e.args(opts, srcPath, dstPath)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", e.binary, err, string(out))
	}
	return os.ReadFile(dstPath)
}

// WebPEncoder encodes images to WebP by shelling out to cwebp.
// This approach avoids CGO while still producing optimized WebP.
// Install: brew install webp / apt install webp
type WebPEncoder struct {
	external
}

// NewWebPEncoder returns a cwebp-backed encoder.
func NewWebPEncoder() *WebPEncoder {
	return &WebPEncoder{external{
		binary: "cwebp",
		hint:   "brew install webp / apt install webp",
		ext:    "webp",
		args: func(opts Options, src, dst string) []string {
			return []string{
				"-q", strconv.Itoa(clampQuality(opts.Quality, 82)),
				"-m", "6", // compression method (0=fast, 6=best)
				"-quiet",
				src,
				"-o", dst,
			}
		},
	}}
}

func (e *WebPEncoder) Format() string    { return "webp" }
func (e *WebPEncoder) Extension() string { return "webp" }
func (e *WebPEncoder) Available() bool   { return e.probe() }

func (e *WebPEncoder) Encode(img image.Image, opts Options) ([]byte, error) {
	return e.encode(img, opts)
}

// AVIFEncoder encodes images to AVIF by shelling out to avifenc.
// Install: brew install libavif / apt install libavif-bin
type AVIFEncoder struct {
	external
}

// NewAVIFEncoder returns an avifenc-backed encoder.
func NewAVIFEncoder() *AVIFEncoder {
	return &AVIFEncoder{external{
		binary: "avifenc",
		hint:   "brew install libavif / apt install libavif-bin",
		ext:    "avif",
		args: func(opts Options, src, dst string) []string {
			// avifenc quantizers run the other way: 0 best, 63 worst.
			q := 63 - clampQuality(opts.Quality, 50)*63/100
			speed := opts.Speed
			if speed < 0 || speed > 10 {
				speed = 5
			}
			return []string{
				"--min", strconv.Itoa(q),
				"--max", strconv.Itoa(q),
				"--speed", strconv.Itoa(speed),
				src,
				dst,
			}
		},
	}}
}

func (e *AVIFEncoder) Format() string    { return "avif" }
func (e *AVIFEncoder) Extension() string { return "avif" }
func (e *AVIFEncoder) Available() bool   { return e.probe() }

func (e *AVIFEncoder) Encode(img image.Image, opts Options) ([]byte, error) {
	return e.encode(img, opts)
}
