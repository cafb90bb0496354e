package encoder

import (
	"bytes"
	"image"
	"image/png"

	"github.com/wpilibsuite/sphinxext-photofinish/internal/pngchunk"
)

// PNGEncoder encodes images to PNG at maximum compression. PNG is lossless,
// so Options.Quality is ignored; Options.Chunks are re-attached after the
// image data.
type PNGEncoder struct{}

func (e *PNGEncoder) Format() string    { return "png" }
func (e *PNGEncoder) Extension() string { return "png" }
func (e *PNGEncoder) Available() bool   { return true }

func (e *PNGEncoder) Encode(img image.Image, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(512 * 1024)

	enc := &png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	if len(opts.Chunks) == 0 {
		return buf.Bytes(), nil
	}
	return pngchunk.InsertAfterData(buf.Bytes(), opts.Chunks...)
}
