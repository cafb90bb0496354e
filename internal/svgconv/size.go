package svgconv

import (
	"fmt"
	"math"
)

// DefaultWidth is used when neither dimension is requested.
const DefaultWidth = 1000

// Size is a requested output size in pixels. Zero means "not given".
//
// With only one dimension set, every converter in this package scales the
// other one proportionally: inkscape, rsvg-convert, svgexport and
// ImageMagick do so natively, the in-process rasterizers via fit. With both
// set, inkscape, rsvg-convert, svgexport and the in-process rasterizers
// produce exactly that canvas; ImageMagick fits the image inside the box
// keeping its aspect ratio.
type Size struct {
	Width  int
	Height int
}

func (s Size) normalized() Size {
	if s.Width <= 0 && s.Height <= 0 {
		return Size{Width: DefaultWidth}
	}
	if s.Width < 0 {
		s.Width = 0
	}
	if s.Height < 0 {
		s.Height = 0
	}
	return s
}

// fit resolves the pixel dimensions for an image with the given intrinsic size.
func (s Size) fit(iw, ih float64) (int, int, error) {
	if iw <= 0 || ih <= 0 || math.IsNaN(iw) || math.IsNaN(ih) {
		return 0, 0, fmt.Errorf("svg has no usable intrinsic size (%gx%g)", iw, ih)
	}
	s = s.normalized()
	w, h := s.Width, s.Height
	switch {
	case w > 0 && h > 0:
	case w > 0:
		h = int(math.Round(float64(w) * ih / iw))
	default:
		w = int(math.Round(float64(h) * iw / ih))
	}
	return max(w, 1), max(h, 1), nil
}
