package svgconv

import (
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

const redRect = `<svg xmlns="http://www.w3.org/2000/svg" width="200" height="100" viewBox="0 0 200 100">
<rect x="0" y="0" width="200" height="100" fill="#ff0000"/>
</svg>`

func writeSVG(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "in.svg")
	if err := os.WriteFile(path, []byte(redRect), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

// emptyPath pins PATH to a directory with no converters in it.
func emptyPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("PATH", dir)
	return dir
}

type failingLib struct{ calls *int }

func (failingLib) Name() string { return "broken" }

func (f failingLib) Rasterize(string, string, Size) error {
	if f.calls != nil {
		*f.calls++
	}
	return errors.New("cannot parse")
}

func outcomes(attempts []Attempt) []string {
	var out []string
	for _, a := range attempts {
		out = append(out, a.Tool+"/"+a.Setting+"="+a.Outcome.String())
	}
	return out
}

func TestConvert_NoToolAvailable(t *testing.T) {
	emptyPath(t)
	dir := t.TempDir()
	src := writeSVG(t, dir)

	c := New(WithLibraries())
	_, err := c.Convert(context.Background(), src, filepath.Join(dir, "out.png"), Size{}, Overrides{})
	if !errors.Is(err, ErrToolUnavailable) {
		t.Fatalf("got %v, want ErrToolUnavailable", err)
	}
	var ue *UnavailableError
	if !errors.As(err, &ue) {
		t.Fatalf("got %T", err)
	}

	want := []string{
		"Inkscape/inkscape_path=skipped",
		"rsvg-convert/rsvg_convert_path=skipped",
		"svgexport/svgexport_path=skipped",
		"imagemagick/imagemagick_path=skipped",
		"Inkscape/inkscape=not found",
		"rsvg-convert/rsvg-convert=not found",
		"rsvg-convert/rsvg=not found",
		"svgexport/svgexport=not found",
		"imagemagick/magick=not found",
		"imagemagick/convert=not found",
	}
	if diff := cmp.Diff(want, outcomes(ue.Attempts)); diff != "" {
		t.Errorf("attempts (-want +got):\n%s", diff)
	}
	if !strings.Contains(err.Error(), "no conversion tool was found") {
		t.Errorf("message does not say no tool was found: %s", err)
	}
}

func TestConvert_OverrideNotFoundIsConversionFailure(t *testing.T) {
	emptyPath(t)
	dir := t.TempDir()
	src := writeSVG(t, dir)
	missing := filepath.Join(dir, "no-such-inkscape")

	c := New(WithLibraries())
	_, err := c.Convert(context.Background(), src, filepath.Join(dir, "out.png"), Size{},
		Overrides{Inkscape: missing})

	if errors.Is(err, ErrToolUnavailable) {
		t.Fatalf("explicit override must not report ToolUnavailable: %v", err)
	}
	var ce *ConversionError
	if !errors.As(err, &ce) {
		t.Fatalf("got %T (%v), want *ConversionError", err, err)
	}
	first := ce.Attempts[0]
	if first.Outcome != NotFound || first.Path != missing || !first.Explicit {
		t.Errorf("first attempt = %+v", first)
	}
	if !strings.Contains(err.Error(), missing) {
		t.Errorf("message lacks the missing path: %s", err)
	}
}

func TestConvert_AllFailedListsEveryAttempt(t *testing.T) {
	bin := emptyPath(t)
	writeScript(t, bin, "rsvg-convert", `echo "rsvg exploded" >&2; exit 3`)
	dir := t.TempDir()
	src := writeSVG(t, dir)

	calls := 0
	c := New(WithLibraries(failingLib{calls: &calls}))
	_, err := c.Convert(context.Background(), src, filepath.Join(dir, "out.png"), Size{}, Overrides{})

	var ce *ConversionError
	if !errors.As(err, &ce) {
		t.Fatalf("got %T (%v), want *ConversionError", err, err)
	}
	if calls != 1 {
		t.Errorf("library called %d times", calls)
	}
	msg := err.Error()
	for _, want := range []string{
		"every available tool failed",
		"inkscape_path not set",
		"broken: conversion failed: cannot parse",
		"rsvg exploded",
		"magick not found",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message lacks %q:\n%s", want, msg)
		}
	}
	if len(ce.Attempts) != 11 {
		t.Errorf("got %d attempts, want 11", len(ce.Attempts))
	}
}

func TestConvert_StopsAtFirstSuccess(t *testing.T) {
	bin := emptyPath(t)
	dir := t.TempDir()
	marker := filepath.Join(dir, "inkscape-ran")
	writeScript(t, bin, "inkscape", `: > "`+marker+`"; exit 1`)
	// rsvg-convert receives: src -o dst --width=N
	rsvg := writeScript(t, dir, "my-rsvg", `printf 'fakepng' > "$3"`)
	src := writeSVG(t, dir)
	dst := filepath.Join(dir, "out.png")

	calls := 0
	c := New(WithLibraries(failingLib{calls: &calls}))
	got, err := c.Convert(context.Background(), src, dst, Size{}, Overrides{RSVGConvert: rsvg})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if got.Tool != "rsvg-convert" || got.Path != rsvg || got.Outcome != Succeeded {
		t.Errorf("succeeded attempt = %+v", got)
	}
	if calls != 0 {
		t.Errorf("library tried after success")
	}
	if _, err := os.Stat(marker); err == nil {
		t.Error("system inkscape ran after a successful attempt")
	}
}

func TestConvert_ToolWithoutOutputFails(t *testing.T) {
	for _, stale := range []bool{false, true} {
		dir := t.TempDir()
		emptyPath(t)
		lazy := writeScript(t, dir, "lazy", `exit 0`)
		src := writeSVG(t, dir)
		dst := filepath.Join(dir, "out.png")
		if stale {
			// Left over from an earlier build.
			if err := os.WriteFile(dst, []byte("stale"), 0o644); err != nil {
				t.Fatal(err)
			}
		}

		c := New(WithLibraries())
		_, err := c.Convert(context.Background(), src, dst, Size{}, Overrides{SVGExport: lazy})
		var ce *ConversionError
		if !errors.As(err, &ce) {
			t.Fatalf("stale=%v: got %v", stale, err)
		}
		if !strings.Contains(err.Error(), "wrote no output") {
			t.Errorf("stale=%v: unexpected message: %s", stale, err)
		}
	}
}

func TestConvert_InProcessLibrary(t *testing.T) {
	emptyPath(t)
	dir := t.TempDir()
	src := writeSVG(t, dir)
	dst := filepath.Join(dir, "out.png")

	got, err := New().Convert(context.Background(), src, dst, Size{}, Overrides{})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if got.Tool != "oksvg" {
		t.Errorf("converted by %q, want oksvg", got.Tool)
	}

	f, err := os.Open(dst)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Width != DefaultWidth || cfg.Height != DefaultWidth/2 {
		t.Errorf("got %dx%d, want %dx%d", cfg.Width, cfg.Height, DefaultWidth, DefaultWidth/2)
	}
}

func TestConvert_HostSettingsLoadedOnce(t *testing.T) {
	emptyPath(t)
	dir := t.TempDir()
	src := writeSVG(t, dir)

	loads := 0
	c := New(WithLibraries(), WithHost(func() (HostSettings, bool) {
		loads++
		return HostSettings{Inkscape: filepath.Join(dir, "host-inkscape")}, true
	}))

	for i := 0; i < 3; i++ {
		_, err := c.Convert(context.Background(), src, filepath.Join(dir, "out.png"), Size{}, Overrides{})
		var ce *ConversionError
		if !errors.As(err, &ce) {
			t.Fatalf("run %d: got %v, want *ConversionError", i, err)
		}
		last := ce.Attempts[len(ce.Attempts)-1]
		if last.Setting != "rsvg_converter_bin" || last.Outcome != Skipped {
			t.Errorf("last attempt = %+v", last)
		}
		host := ce.Attempts[len(ce.Attempts)-2]
		if host.Setting != "inkscape_converter_bin" || host.Outcome != NotFound {
			t.Errorf("host inkscape attempt = %+v", host)
		}
	}
	if loads != 1 {
		t.Errorf("host settings loaded %d times, want 1", loads)
	}
}

func TestConvert_HostNotRecognized(t *testing.T) {
	emptyPath(t)
	dir := t.TempDir()
	src := writeSVG(t, dir)

	loads := 0
	c := New(WithLibraries(), WithHost(func() (HostSettings, bool) {
		loads++
		return HostSettings{}, false
	}))
	for i := 0; i < 2; i++ {
		_, err := c.Convert(context.Background(), src, filepath.Join(dir, "out.png"), Size{}, Overrides{})
		var ue *UnavailableError
		if !errors.As(err, &ue) {
			t.Fatalf("got %v", err)
		}
		if len(ue.Attempts) != 10 {
			t.Errorf("got %d attempts, want 10 (no host steps)", len(ue.Attempts))
		}
	}
	if loads != 2 {
		t.Errorf("a miss should be retried, loads = %d", loads)
	}
}

func TestConvert_MissingSource(t *testing.T) {
	_, err := New().Convert(context.Background(), filepath.Join(t.TempDir(), "gone.svg"), "out.png", Size{}, Overrides{})
	if err == nil || errors.Is(err, ErrToolUnavailable) {
		t.Fatalf("got %v", err)
	}
}

func TestConvert_Timeout(t *testing.T) {
	bin := emptyPath(t)
	dir := t.TempDir()
	src := writeSVG(t, dir)
	hang := writeScript(t, bin, "slow-inkscape", "while :; do :; done")

	c := New(WithLibraries(), WithTimeout(200*time.Millisecond))
	_, err := c.Convert(context.Background(), src, filepath.Join(dir, "out.png"), Size{}, Overrides{Inkscape: hang})
	var ce *ConversionError
	if !errors.As(err, &ce) {
		t.Fatalf("got %v, want ConversionError", err)
	}
	if a := ce.Attempts[0]; a.Outcome != Failed || !errors.Is(a.Err, context.DeadlineExceeded) {
		t.Errorf("first attempt = %+v", a)
	}
}
