package encoder

import (
	"fmt"
	"sort"
	"strings"
)

// priority is the preference order for output formats, most efficient first.
var priority = []string{"avif", "webp", "jpeg", "png"}

// Registry holds all available encoders and selects the best one per format.
type Registry struct {
	encoders map[string]Encoder
}

// NewRegistry creates a registry, probing all encoders for availability.
func NewRegistry() *Registry {
	return NewRegistryWith(
		NewAVIFEncoder(),
		NewWebPEncoder(),
		&JPEGEncoder{},
		&PNGEncoder{},
	)
}

// NewRegistryWith registers the given encoders. Only available ones are kept.
func NewRegistryWith(all ...Encoder) *Registry {
	r := &Registry{
		encoders: make(map[string]Encoder),
	}
	for _, enc := range all {
		if enc.Available() {
			r.encoders[enc.Format()] = enc
		}
	}
	return r
}

// Get returns an encoder for the given format, or nil if unavailable.
func (r *Registry) Get(format string) Encoder {
	return r.encoders[NormalizeFormat(format)]
}

// Available returns all available format names.
func (r *Registry) Available() []string {
	var result []string
	for _, f := range priority {
		if _, ok := r.encoders[f]; ok {
			result = append(result, f)
		}
	}
	return result
}

// ResolveFormats returns the output formats for a source in native format:
// the available requested formats in preference order, then the native
// format last. The native format is always present.
func (r *Registry) ResolveFormats(requested []string, native string) (formats []string, missing []string) {
	native = NormalizeFormat(native)
	want := map[string]bool{}
	for _, f := range requested {
		want[NormalizeFormat(f)] = true
	}

	for _, f := range priority {
		if !want[f] || f == native {
			continue
		}
		delete(want, f)
		if _, ok := r.encoders[f]; ok {
			formats = append(formats, f)
		} else {
			missing = append(missing, f)
		}
	}
	delete(want, native)
	for f := range want {
		missing = append(missing, f)
	}
	sort.Strings(missing)
	return append(formats, native), missing
}

// NormalizeFormat maps file extensions and aliases to format names.
func NormalizeFormat(f string) string {
	f = strings.ToLower(strings.TrimPrefix(f, "."))
	if f == "jpg" {
		return "jpeg"
	}
	return f
}

// String returns a summary of available encoders.
func (r *Registry) String() string {
	avail := r.Available()
	if len(avail) == 0 {
		return "no encoders available"
	}
	return fmt.Sprintf("encoders: %s", strings.Join(avail, ", "))
}
