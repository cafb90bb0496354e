package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/wpilibsuite/sphinxext-photofinish/internal/hasher"
	"github.com/wpilibsuite/sphinxext-photofinish/internal/manifest"
	"github.com/wpilibsuite/sphinxext-photofinish/internal/render"
)

// Run processes every image under inputDir into outputDir the way a
// documentation host would: one Image call per file, then a single Render.
// Broken images are reported and left out; Run fails only when every image
// failed.
func (p *Pipeline) Run(ctx context.Context, inputDir, outputDir string) (*manifest.Manifest, error) {
	p.debugf("%s", p.registry.String())

	if same, err := samePath(inputDir, outputDir); err != nil {
		return nil, err
	} else if same {
		return nil, fmt.Errorf("output directory must differ from the input directory")
	}

	sources, err := ScanImages(inputDir)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no images found in %s", inputDir)
	}
	p.debugf("found %d images", len(sources))

	errs := make([]error, len(sources))
	var wg sync.WaitGroup
	sem := make(chan struct{}, p.cfg.Workers)
	for i, src := range sources {
		wg.Add(1)
		go func(idx int, s Source) {
			defer wg.Done()
			sem <- struct{}{}        // acquire
			defer func() { <-sem }() // release

			destDir := filepath.Join(outputDir, filepath.Dir(filepath.FromSlash(s.RelPath)))
			if s.Format == "svg" {
				if err := copyFile(s.AbsPath, filepath.Join(outputDir, filepath.FromSlash(s.RelPath))); err != nil {
					errs[idx] = err
					return
				}
			}
			_, errs[idx] = p.Image(ctx, Request{
				SrcPath: s.AbsPath,
				URI:     s.RelPath,
				DestDir: destDir,
			})
		}(i, src)
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if failed == len(sources) {
		return nil, fmt.Errorf("all %d images failed to process", failed)
	}
	if failed > 0 {
		p.logf("warning: %d of %d images had errors", failed, len(sources))
	}

	results := p.Render()
	m := p.Manifest(results, outputDir)
	for _, s := range sources {
		p.rekey(m, s.AbsPath, s.RelPath)
	}
	return m, nil
}

// Manifest assembles the build record from everything planned so far and
// the render results. Images are keyed by source path and variant paths
// are relative to base.
func (p *Pipeline) Manifest(results []render.Result, base string) *manifest.Manifest {
	prof := p.cfg.Profile
	m := manifest.New(manifest.ProfileInfo{
		Name:             prof.Name,
		MinWidth:         prof.MinWidth,
		MaxViewportWidth: prof.MaxViewportWidth,
		WidthStep:        prof.WidthStep,
		Formats:          prof.Formats,
	})
	m.BuildInfo = &manifest.BuildInfo{
		Workers:  p.cfg.Workers,
		Encoders: p.registry.Available(),
	}

	p.mu.Lock()
	for src, entry := range p.entries {
		m.Images[filepath.ToSlash(src)] = *entry
	}
	p.mu.Unlock()

	for _, r := range results {
		switch {
		case r.Err != nil:
			m.Stats.Failed++
			continue
		case r.Skipped:
			m.Stats.Skipped++
			continue
		}
		key := filepath.ToSlash(r.Spec.SrcPath)
		img, ok := m.Images[key]
		if !ok {
			continue
		}
		v := manifest.Variant{
			Format: r.Spec.Format,
			Width:  r.Spec.Width,
			Height: r.Spec.Height,
			Size:   r.Size,
			Path:   filepath.ToSlash(r.Spec.DestPath),
		}
		if rel, err := filepath.Rel(base, r.Spec.DestPath); err == nil {
			v.Path = filepath.ToSlash(rel)
		}
		if hash, _, err := hasher.File(r.Spec.DestPath); err == nil {
			v.Hash = hash
		} else {
			p.logf("warning: hash %s: %v", r.Spec.DestPath, err)
		}
		img.Variants = append(img.Variants, v)
		m.Images[key] = img
	}
	m.ComputeStats()
	return m
}

func (p *Pipeline) rekey(m *manifest.Manifest, from, to string) {
	from = filepath.ToSlash(from)
	if img, ok := m.Images[from]; ok && from != to {
		delete(m.Images, from)
		img.Source.Path = to
		m.Images[to] = img
	}
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func samePath(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, err
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, err
	}
	return absA == absB, nil
}
