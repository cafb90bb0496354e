package encoder

import (
	"image"

	"github.com/wpilibsuite/sphinxext-photofinish/internal/pngchunk"
)

// Encoder encodes an image to a specific format.
type Encoder interface {
	// Format returns the output format name (e.g. "jpeg", "webp", "avif", "png").
	Format() string

	// Encode converts the image to bytes.
	Encode(img image.Image, opts Options) ([]byte, error)

	// Available returns true if the encoder is ready to use.
	// External encoders (cwebp, avifenc) may not be installed.
	Available() bool

	// Extension returns the file extension without dot.
	Extension() string
}

// Options are per-format encode parameters.
type Options struct {
	Quality int // 1-100, lossy formats only
	Speed   int // avif encoder speed, 0 (slowest) to 10 (fastest)

	// Chunks are appended after the image data. Only the PNG encoder can
	// carry them; other encoders reject non-empty Chunks.
	Chunks []pngchunk.Chunk
}

// DefaultOptions returns the encode parameters used for format.
func DefaultOptions(format string) Options {
	switch format {
	case "png", "jpeg":
		return Options{Quality: 80}
	case "webp":
		return Options{Quality: 82}
	case "avif":
		// speed 5 trades a little encode time for size; 6 is the usual default.
		return Options{Quality: 50, Speed: 5}
	}
	return Options{Quality: 80}
}

func clampQuality(q, fallback int) int {
	if q <= 0 || q > 100 {
		return fallback
	}
	return q
}
