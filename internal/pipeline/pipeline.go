// Package pipeline connects a documentation host to the variant planner,
// the renderer and the svg conversion chain. The host calls Image once per
// image while it writes its pages and Render once at the end of the pass.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/wpilibsuite/sphinxext-photofinish/internal/encoder"
	"github.com/wpilibsuite/sphinxext-photofinish/internal/manifest"
	"github.com/wpilibsuite/sphinxext-photofinish/internal/markup"
	"github.com/wpilibsuite/sphinxext-photofinish/internal/pngchunk"
	"github.com/wpilibsuite/sphinxext-photofinish/internal/profile"
	"github.com/wpilibsuite/sphinxext-photofinish/internal/render"
	"github.com/wpilibsuite/sphinxext-photofinish/internal/svgconv"
	"github.com/wpilibsuite/sphinxext-photofinish/internal/variant"
)

// Config holds all parameters for a pipeline.
type Config struct {
	Profile profile.Profile
	Workers int
	Verbose bool
	// Log receives progress and warnings. Defaults to os.Stderr.
	Log io.Writer

	Overrides svgconv.Overrides
	// Chain rasterizes svg previews. Defaults to svgconv.New().
	Chain *svgconv.Chain
	// Registry encodes variants. Defaults to encoder.NewRegistry().
	Registry *encoder.Registry
}

// Request describes one image reference found by the host.
type Request struct {
	SrcPath string // source file on disk
	URI     string // how the page refers to the full-size output file
	DestDir string // directory the variants are written to

	// BoxWidth and BoxHeight are the display size the author asked for,
	// 0 when unset.
	BoxWidth  int
	BoxHeight int

	Loading  string
	Decoding string
	Attrs    map[string]string

	// PreviewPath keeps the png rasterized from an svg source. Empty means
	// a temporary file that is removed afterwards.
	PreviewPath string
}

// Pipeline plans variants for every image of a build pass.
type Pipeline struct {
	cfg      Config
	registry *encoder.Registry
	chain    *svgconv.Chain
	set      *variant.Set

	noToolOnce sync.Once

	mu      sync.Mutex
	entries map[string]*manifest.Image // by source path
}

// New creates a configured pipeline.
func New(cfg Config) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Log == nil {
		cfg.Log = os.Stderr
	}
	p := &Pipeline{
		cfg:      cfg,
		registry: cfg.Registry,
		chain:    cfg.Chain,
		set:      variant.NewSet(),
		entries:  make(map[string]*manifest.Image),
	}
	if p.registry == nil {
		p.registry = encoder.NewRegistry()
	}
	if p.chain == nil {
		p.chain = svgconv.New()
	}
	return p
}

func (p *Pipeline) logf(format string, args ...any) {
	fmt.Fprintf(p.cfg.Log, "[photofinish] "+format+"\n", args...)
}

func (p *Pipeline) debugf(format string, args ...any) {
	if p.cfg.Verbose {
		p.logf(format, args...)
	}
}

// Planned returns the number of distinct variants planned so far.
func (p *Pipeline) Planned() int { return p.set.Len() }

// Image plans the variants of one image and returns its markup. It is safe
// for concurrent use. The descriptor is always usable: when the image
// cannot be processed the error says why and the descriptor is the plain
// reference to the unmodified image.
func (p *Pipeline) Image(ctx context.Context, req Request) (markup.Descriptor, error) {
	in := markup.Input{
		URI:              req.URI,
		BoxWidth:         req.BoxWidth,
		BoxHeight:        req.BoxHeight,
		MaxViewportWidth: p.cfg.Profile.MaxViewportWidth,
		Loading:          req.Loading,
		Decoding:         req.Decoding,
		Attrs:            req.Attrs,
	}
	if strings.Contains(req.URI, "://") {
		return markup.Plain(in), nil
	}

	switch ext := strings.ToLower(filepath.Ext(req.SrcPath)); ext {
	case ".svg":
		return p.vector(ctx, req, in)
	case ".png", ".jpg", ".jpeg":
		return p.raster(req, in)
	default:
		return markup.Plain(in), nil
	}
}

func (p *Pipeline) raster(req Request, in markup.Input) (markup.Descriptor, error) {
	entry := &manifest.Image{Source: manifest.SourceInfo{Path: req.SrcPath}}
	defer p.record(req.SrcPath, entry)

	fail := func(err error) (markup.Descriptor, error) {
		entry.Error = err.Error()
		d := markup.Plain(in)
		entry.Markup = d.String()
		p.logf("warning: %s: %v", req.SrcPath, err)
		return d, err
	}

	data, err := os.ReadFile(req.SrcPath)
	if err != nil {
		return fail(err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fail(fmt.Errorf("decode: %w", err))
	}
	entry.Source.Format = format
	entry.Source.Width = cfg.Width
	entry.Source.Height = cfg.Height
	entry.Source.Size = int64(len(data))
	in.NativeWidth, in.NativeHeight, in.NativeFormat = cfg.Width, cfg.Height, format

	if format == "png" {
		// An empty chunk carries nothing to keep.
		payload, ok, err := pngchunk.Find(data, pngchunk.VIType)
		if err != nil {
			return fail(err)
		}
		entry.Source.HasPayload = ok && len(payload) > 0
	}

	widths, err := p.cfg.Profile.Plan(cfg.Width)
	if err != nil {
		return fail(err)
	}

	formats, missing := p.registry.ResolveFormats(p.cfg.Profile.Formats, format)
	if len(missing) > 0 {
		p.debugf("%s: no encoder for %s", req.SrcPath, strings.Join(missing, ", "))
	}

	stem := variant.Stem(req.URI)
	srcExt := filepath.Ext(req.SrcPath)
	uriDir := path.Dir(req.URI)
	for _, f := range formats {
		ext := srcExt
		if f != format {
			ext = "." + p.registry.Get(f).Extension()
		}
		set := markup.FormatSet{Format: f}
		for _, w := range widths {
			name := variant.FileName(stem, w, cfg.Width, ext)
			spec := variant.Spec{
				SrcPath:  req.SrcPath,
				DestPath: filepath.Join(req.DestDir, name),
				Format:   f,
				Width:    w,
				Height:   variant.Height(w, cfg.Width, cfg.Height),
			}
			if _, conflict := p.set.Add(spec); conflict != nil {
				p.logf("warning: %s is planned from both %s and %s", spec.DestPath, conflict.SrcPath, spec.SrcPath)
			}
			set.Candidates = append(set.Candidates, markup.Candidate{URI: path.Join(uriDir, name), Width: w})
		}
		// Payload sources only get png files; listing other formats would
		// point at files that are never written.
		if entry.Source.HasPayload && f != "png" {
			continue
		}
		in.Sets = append(in.Sets, set)
	}

	d := markup.Build(in)
	entry.Markup = d.String()
	p.debugf("planned %s: %d widths, formats %s", req.SrcPath, len(widths), strings.Join(formats, ", "))
	return d, nil
}

func (p *Pipeline) vector(ctx context.Context, req Request, in markup.Input) (markup.Descriptor, error) {
	entry := &manifest.Image{Source: manifest.SourceInfo{Path: req.SrcPath, Format: "svg"}}
	defer p.record(req.SrcPath, entry)
	if fi, err := os.Stat(req.SrcPath); err == nil {
		entry.Source.Size = fi.Size()
	}

	w, h, tool, err := p.preview(ctx, req)
	switch {
	case errors.Is(err, svgconv.ErrToolUnavailable):
		p.noToolOnce.Do(func() { p.logf("%v", err) })
	case err != nil:
		p.logf("warning: %s: aspect ratio could not be determined, the page may shift while it loads: %v", req.SrcPath, err)
	default:
		in.NativeWidth, in.NativeHeight = w, h
		entry.Source.Width, entry.Source.Height = w, h
		entry.Converter = tool
	}
	if err != nil {
		entry.Error = err.Error()
	}

	d := markup.Plain(in)
	entry.Markup = d.String()
	return d, err
}

// preview rasterizes an svg source and returns the size of the result.
func (p *Pipeline) preview(ctx context.Context, req Request) (w, h int, tool string, err error) {
	dst := req.PreviewPath
	if dst == "" {
		dir, err := os.MkdirTemp("", "photofinish-svg-")
		if err != nil {
			return 0, 0, "", err
		}
		defer os.RemoveAll(dir)
		dst = filepath.Join(dir, "preview.png")
	}

	a, err := p.chain.Convert(ctx, req.SrcPath, dst, svgconv.Size{}, p.cfg.Overrides)
	if err != nil {
		return 0, 0, "", err
	}
	f, err := os.Open(dst)
	if err != nil {
		return 0, 0, "", err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, "", fmt.Errorf("read preview: %w", err)
	}
	return cfg.Width, cfg.Height, a.Tool, nil
}

func (p *Pipeline) record(src string, entry *manifest.Image) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[src] = entry
}

// Render writes every planned variant. Failures are logged and returned
// per variant; they never stop the remaining renders.
func (p *Pipeline) Render() []render.Result {
	specs := p.set.Specs()
	p.debugf("rendering %d variants on %d workers", len(specs), p.cfg.Workers)

	results := render.New(p.registry).RenderAll(specs, p.cfg.Workers)
	for _, r := range results {
		switch {
		case r.Err != nil:
			p.logf("error: %v", r.Err)
		case r.Skipped:
			p.debugf("skipped %s: source carries a payload only png can keep", r.Spec.DestPath)
		default:
			p.debugf("wrote %s (%d bytes)", r.Spec.DestPath, r.Size)
		}
	}
	return results
}
