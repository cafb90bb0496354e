// Package render materializes planned variants: it decodes each source once,
// downscales it and writes one encoded file per variant.
package render

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/wpilibsuite/sphinxext-photofinish/internal/encoder"
	"github.com/wpilibsuite/sphinxext-photofinish/internal/pngchunk"
	"github.com/wpilibsuite/sphinxext-photofinish/internal/variant"
)

// Source is a decoded source image. It is read-only once opened and may
// be shared by concurrent renders.
type Source struct {
	Path   string
	Format string // "png" or "jpeg"
	Width  int
	Height int
	Image  image.Image
	// Payload is the niVI chunk of a PNG source, nil when absent.
	Payload []byte
}

// Open reads and decodes a raster source.
func Open(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	b := img.Bounds()
	src := &Source{
		Path:   path,
		Format: format,
		Width:  b.Dx(),
		Height: b.Dy(),
		Image:  img,
	}
	if format == "png" {
		payload, ok, err := pngchunk.Find(data, pngchunk.VIType)
		if err != nil {
			return nil, fmt.Errorf("read chunks of %s: %w", path, err)
		}
		if ok {
			src.Payload = payload
		}
	}
	return src, nil
}

// RenderError reports a failed variant.
type RenderError struct {
	Spec variant.Spec
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s (%dx%d %s): %v",
		e.Spec.DestPath, e.Spec.Width, e.Spec.Height, e.Spec.Format, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Renderer encodes variants with a fixed encoder registry.
type Renderer struct {
	registry *encoder.Registry
}

// New creates a renderer.
func New(registry *encoder.Registry) *Renderer {
	return &Renderer{registry: registry}
}

// Render writes one variant of src. It returns written=false with a nil
// error when the variant is skipped on purpose: a source carrying a payload
// is only ever rendered to PNG, since other formats would lose it.
func (r *Renderer) Render(src *Source, spec variant.Spec) (written bool, size int64, err error) {
	fail := func(err error) (bool, int64, error) {
		return false, 0, &RenderError{Spec: spec, Err: err}
	}

	if spec.Width <= 0 || spec.Height <= 0 {
		return fail(fmt.Errorf("invalid size %dx%d", spec.Width, spec.Height))
	}
	if spec.Width > src.Width || spec.Height > src.Height {
		return fail(fmt.Errorf("refusing to upscale %dx%d source", src.Width, src.Height))
	}
	if len(src.Payload) > 0 && spec.Format != "png" {
		return false, 0, nil
	}

	enc := r.registry.Get(spec.Format)
	if enc == nil {
		return fail(fmt.Errorf("no encoder for %s", spec.Format))
	}

	img := src.Image
	if spec.Width != src.Width || spec.Height != src.Height {
		img = imaging.Resize(src.Image, spec.Width, spec.Height, imaging.Lanczos)
	}

	opts := encoder.DefaultOptions(spec.Format)
	if len(src.Payload) > 0 {
		opts.Chunks = []pngchunk.Chunk{{Type: pngchunk.VIType, Data: src.Payload}}
	}
	data, err := enc.Encode(img, opts)
	if err != nil {
		return fail(fmt.Errorf("encode: %w", err))
	}
	if err := writeFile(spec.DestPath, data); err != nil {
		return fail(err)
	}
	return true, int64(len(data)), nil
}

// writeFile replaces path atomically so readers never see a partial file.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".photofinish-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Result is the outcome of one variant in RenderAll.
type Result struct {
	Spec    variant.Spec
	Written bool
	Skipped bool
	Size    int64
	Err     error
}

// RenderAll renders specs on up to workers goroutines (0 = NumCPU). Each
// distinct source is decoded once. Failures are reported per variant and
// never stop the others. Results are in the order of specs.
func (r *Renderer) RenderAll(specs []variant.Spec, workers int) []Result {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	// Decode every source before rendering starts; afterwards the map is
	// only read.
	var paths []string
	index := map[string]int{}
	for _, s := range specs {
		if _, ok := index[s.SrcPath]; !ok {
			index[s.SrcPath] = len(paths)
			paths = append(paths, s.SrcPath)
		}
	}
	sources := make([]*Source, len(paths))
	openErrs := make([]error, len(paths))
	parallel(len(paths), workers, func(i int) {
		sources[i], openErrs[i] = Open(paths[i])
	})

	results := make([]Result, len(specs))
	parallel(len(specs), workers, func(i int) {
		spec := specs[i]
		res := Result{Spec: spec}
		j := index[spec.SrcPath]
		if openErrs[j] != nil {
			res.Err = &RenderError{Spec: spec, Err: openErrs[j]}
			results[i] = res
			return
		}
		written, size, err := r.Render(sources[j], spec)
		res.Written, res.Size, res.Err = written, size, err
		res.Skipped = !written && err == nil
		results[i] = res
	})
	return results
}

// parallel runs fn(0..n-1) with at most workers concurrent calls.
func parallel(n, workers int, fn func(i int)) {
	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}        // acquire
			defer func() { <-sem }() // release
			fn(idx)
		}(i)
	}
	wg.Wait()
}
