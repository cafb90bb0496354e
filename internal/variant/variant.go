// Package variant describes the files to render for one build pass.
package variant

import (
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Spec is one output file: a source resized to Width x Height and encoded
// as Format at DestPath. Specs are compared by value.
type Spec struct {
	SrcPath  string
	DestPath string
	Format   string // "png", "jpeg", "webp", "avif"
	Width    int
	Height   int
}

// Height derives the variant height for width, keeping the native aspect
// ratio. It returns nativeHeight unchanged at the native width.
func Height(width, nativeWidth, nativeHeight int) int {
	if width == nativeWidth {
		return nativeHeight
	}
	h := (width*nativeHeight + nativeWidth/2) / nativeWidth
	return max(h, 1)
}

// FileName names the file for a variant: "<stem>.<ext>" at the native
// width and "<stem>-<width>.<ext>" otherwise. ext includes the dot.
func FileName(stem string, width, nativeWidth int, ext string) string {
	if width == nativeWidth {
		return stem + ext
	}
	return stem + "-" + strconv.Itoa(width) + ext
}

// Stem returns the base name of path without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Set accumulates specs during planning. Add may be called from several
// goroutines; Specs is meant for the render phase once planning is done.
type Set struct {
	mu    sync.Mutex
	specs map[Spec]struct{}
	dests map[string]Spec
}

// NewSet creates an empty set.
func NewSet() *Set {
	return &Set{
		specs: make(map[Spec]struct{}),
		dests: make(map[string]Spec),
	}
}

// Add inserts spec and reports whether it was new. A spec whose destination
// is already claimed by a different spec is rejected.
func (s *Set) Add(spec Spec) (added bool, conflict *Spec) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.specs[spec]; ok {
		return false, nil
	}
	if prev, ok := s.dests[spec.DestPath]; ok {
		return false, &prev
	}
	s.specs[spec] = struct{}{}
	s.dests[spec.DestPath] = spec
	return true, nil
}

// Len returns the number of distinct specs.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.specs)
}

// Specs returns the specs sorted by destination path.
func (s *Set) Specs() []Spec {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Spec, 0, len(s.specs))
	for spec := range s.specs {
		out = append(out, spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DestPath < out[j].DestPath })
	return out
}
