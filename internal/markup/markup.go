// Package markup describes a responsive image: one <img> carrying the
// native-format srcset and a list of alternative <source> candidates.
// Hosts serialize a Descriptor however they like; HTML is one such writer.
package markup

import (
	"fmt"
	"mime"
	"strconv"
	"strings"
)

func init() {
	RegisterMIME()
}

// RegisterMIME adds image types some system MIME tables lack. Existing
// entries are left alone.
func RegisterMIME() {
	for ext, typ := range map[string]string{
		".webp": "image/webp",
		".avif": "image/avif",
	} {
		if mime.TypeByExtension(ext) == "" {
			_ = mime.AddExtensionType(ext, typ)
		}
	}
}

// MIMEType returns the media type for an output format name.
func MIMEType(format string) string {
	ext := "." + format
	if format == "jpeg" {
		ext = ".jpg"
	}
	t := mime.TypeByExtension(ext)
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	if t == "" {
		return "image/" + format
	}
	return t
}

// Candidate is one srcset entry.
type Candidate struct {
	URI   string
	Width int
}

// FormatSet holds the candidates rendered in one format.
type FormatSet struct {
	Format     string
	Candidates []Candidate
}

// Input is everything Build needs about one image.
type Input struct {
	URI          string // reference to the full-size native file
	NativeWidth  int
	NativeHeight int
	NativeFormat string
	// Sets are in preference order. The set in NativeFormat goes on the
	// <img> itself; the rest become <source> elements.
	Sets []FormatSet

	// BoxWidth and BoxHeight are an explicit display size; 0 when unset.
	BoxWidth  int
	BoxHeight int

	MaxViewportWidth int

	// Loading and Decoding keep caller-set values; empty means default.
	Loading  string
	Decoding string
	Attrs    map[string]string
}

// Source is an alternative candidate list in a non-native format.
type Source struct {
	Type   string
	Srcset string
	Sizes  string
}

// Img is the primary image reference.
type Img struct {
	Src      string
	Srcset   string
	Sizes    string
	Width    int // intrinsic pixel size
	Height   int
	Loading  string
	Decoding string
	Attrs    map[string]string
}

// Descriptor is the abstract markup for one image.
type Descriptor struct {
	// BoxWidth and BoxHeight constrain the outer element; 0 when unset.
	BoxWidth  int
	BoxHeight int
	Sources   []Source
	Img       Img
}

// Build assembles the descriptor. It does not touch the filesystem.
func Build(in Input) Descriptor {
	d := Plain(in)
	sizes := Sizes(in.NativeWidth, in.NativeHeight, in.BoxWidth, in.BoxHeight, in.MaxViewportWidth)

	for _, set := range in.Sets {
		if len(set.Candidates) == 0 {
			continue
		}
		srcset := Srcset(set.Candidates)
		if set.Format == in.NativeFormat {
			d.Img.Srcset = srcset
			d.Img.Sizes = sizes
			continue
		}
		d.Sources = append(d.Sources, Source{
			Type:   MIMEType(set.Format),
			Srcset: srcset,
			Sizes:  sizes,
		})
	}
	return d
}

// Plain is the descriptor without any candidates, used for images that are
// not resized (vector sources, failures). Intrinsic size is kept when known.
func Plain(in Input) Descriptor {
	img := Img{
		Src:      in.URI,
		Width:    in.NativeWidth,
		Height:   in.NativeHeight,
		Loading:  in.Loading,
		Decoding: in.Decoding,
	}
	if img.Loading == "" {
		img.Loading = "lazy"
	}
	if img.Decoding == "" {
		img.Decoding = "async"
	}
	if len(in.Attrs) > 0 {
		img.Attrs = make(map[string]string, len(in.Attrs))
		for k, v := range in.Attrs {
			img.Attrs[k] = v
		}
	}
	return Descriptor{BoxWidth: in.BoxWidth, BoxHeight: in.BoxHeight, Img: img}
}

// Srcset formats candidates as "uri 500w, uri 800w".
func Srcset(cands []Candidate) string {
	parts := make([]string, len(cands))
	for i, c := range cands {
		parts[i] = c.URI + " " + strconv.Itoa(c.Width) + "w"
	}
	return strings.Join(parts, ", ")
}

// Sizes returns the sizes expression: the explicit width capped by the
// viewport, else the width implied by the explicit height, else the native
// width capped by both the viewport and the widest layout.
func Sizes(nativeWidth, nativeHeight, boxWidth, boxHeight, maxViewportWidth int) string {
	switch {
	case boxWidth > 0:
		return fmt.Sprintf("min(%dpx, 100vw)", boxWidth)
	case boxHeight > 0 && nativeHeight > 0:
		return fmt.Sprintf("%dpx", boxHeight*nativeWidth/nativeHeight)
	default:
		return fmt.Sprintf("min(min(%dpx, 100vw), %dpx)", nativeWidth, maxViewportWidth)
	}
}
