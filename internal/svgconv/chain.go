// Package svgconv rasterizes SVG files by trying a fixed list of external
// tools and in-process libraries until one of them succeeds.
//
// Order of attempts:
//
//	caller-specified inkscape, rsvg-convert, svgexport, imagemagick
//	in-process oksvg, then canvas
//	inkscape, rsvg-convert, rsvg, svgexport, magick, convert from PATH
//	host-configured inkscape and rsvg-convert (inside a recognized host build)
//
// Every attempt is recorded. When nothing succeeds the returned error tells
// "no tool available" apart from "tools present but all failed" and lists
// every attempt either way.
package svgconv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/wpilibsuite/sphinxext-photofinish/internal/probe"
)

// Outcome is the result of a single conversion attempt.
type Outcome int

const (
	Skipped Outcome = iota
	NotFound
	Failed
	Succeeded
)

func (o Outcome) String() string {
	switch o {
	case Skipped:
		return "skipped"
	case NotFound:
		return "not found"
	case Failed:
		return "failed"
	case Succeeded:
		return "succeeded"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Attempt records one entry of the chain.
type Attempt struct {
	Tool    string // display name, e.g. "Inkscape"
	Setting string // config key or executable name that was consulted
	Path    string // path that was looked up, if any
	Outcome Outcome
	// Explicit is set for paths the caller or host configured by hand.
	Explicit bool
	Err      error
}

func (a Attempt) String() string {
	switch a.Outcome {
	case Skipped:
		return fmt.Sprintf("- %s: %s not set", a.Tool, a.Setting)
	case NotFound:
		return fmt.Sprintf("- %s: %s not found for path %s", a.Tool, a.Setting, a.Path)
	case Failed:
		return fmt.Sprintf("- %s: conversion failed: %v", a.Tool, a.Err)
	case Succeeded:
		if a.Path != "" {
			return fmt.Sprintf("- %s: converted with %s", a.Tool, a.Path)
		}
		return fmt.Sprintf("- %s: converted", a.Tool)
	}
	return "- " + a.Tool
}

// toolPresent reports whether the attempt shows that a tool was actually
// there to be used: it ran, or the caller pointed at it explicitly.
func (a Attempt) toolPresent() bool {
	switch a.Outcome {
	case Failed, Succeeded:
		return true
	case NotFound:
		return a.Explicit
	}
	return false
}

// ErrToolUnavailable matches any *UnavailableError.
var ErrToolUnavailable = errors.New("no svg conversion tool available")

// UnavailableError is returned when no converter could even be tried.
type UnavailableError struct {
	Attempts []Attempt
}

func (e *UnavailableError) Error() string {
	return "failed to convert svg to png: no conversion tool was found. " +
		"Install one of inkscape, rsvg-convert, svgexport or imagemagick, " +
		"or pass the path of an installed tool.\n" + formatLog(e.Attempts)
}

func (e *UnavailableError) Is(target error) bool { return target == ErrToolUnavailable }

// ConversionError is returned when at least one converter was present but
// none produced an image.
type ConversionError struct {
	Attempts []Attempt
}

func (e *ConversionError) Error() string {
	return "failed to convert svg to png: every available tool failed\n" + formatLog(e.Attempts)
}

func formatLog(attempts []Attempt) string {
	lines := make([]string, len(attempts))
	for i, a := range attempts {
		lines[i] = "    " + a.String()
	}
	return strings.Join(lines, "\n")
}

// Overrides are caller-specified binary paths, tried before anything else.
type Overrides struct {
	Inkscape    string
	RSVGConvert string
	SVGExport   string
	ImageMagick string
}

// Chain runs conversion attempts in priority order. It is safe for
// concurrent use; each Convert call runs its attempts sequentially.
type Chain struct {
	probe     *probe.Probe
	libraries []Rasterizer
	host      *hostCache
	timeout   time.Duration
}

// Option configures a Chain.
type Option func(*Chain)

// WithLibraries replaces the in-process rasterizers. No arguments disables them.
func WithLibraries(libs ...Rasterizer) Option {
	return func(c *Chain) { c.libraries = libs }
}

// WithHost enables the host-configured step.
func WithHost(load HostLoader) Option {
	return func(c *Chain) { c.host = &hostCache{load: load} }
}

// WithProbe sets the probe used to resolve binaries.
func WithProbe(p *probe.Probe) Option {
	return func(c *Chain) { c.probe = p }
}

// WithTimeout bounds every external tool invocation. Zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(c *Chain) { c.timeout = d }
}

// New creates a chain with the default libraries and no host step.
func New(opts ...Option) *Chain {
	c := &Chain{probe: probe.New()}
	for _, name := range DefaultLibraries {
		lib, _ := Library(name)
		c.libraries = append(c.libraries, lib)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// step is one entry in the ordered capability list.
type step struct {
	tool     Tool
	lib      Rasterizer
	setting  string
	path     string
	explicit bool
}

func (c *Chain) steps(ov Overrides) []step {
	var out []step
	out = append(out,
		step{tool: Inkscape, setting: "inkscape_path", path: ov.Inkscape, explicit: true},
		step{tool: RSVGConvert, setting: "rsvg_convert_path", path: ov.RSVGConvert, explicit: true},
		step{tool: SVGExport, setting: "svgexport_path", path: ov.SVGExport, explicit: true},
		step{tool: ImageMagick, setting: "imagemagick_path", path: ov.ImageMagick, explicit: true},
	)
	for _, lib := range c.libraries {
		out = append(out, step{lib: lib})
	}
	for _, t := range Tools {
		for _, name := range t.Names {
			out = append(out, step{tool: t, setting: name, path: name})
		}
	}
	return out
}

func (c *Chain) hostSteps() []step {
	hs, ok := c.host.get()
	if !ok {
		return nil
	}
	return []step{
		{tool: Inkscape, setting: "inkscape_converter_bin", path: hs.Inkscape, explicit: true},
		{tool: RSVGConvert, setting: "rsvg_converter_bin", path: hs.RSVGConvert, explicit: true},
	}
}

// Convert rasterizes src into the PNG file dst. On success it returns the
// attempt that produced the file.
func (c *Chain) Convert(ctx context.Context, src, dst string, size Size, ov Overrides) (Attempt, error) {
	if _, err := os.Stat(src); err != nil {
		return Attempt{}, fmt.Errorf("svg source: %w", err)
	}
	size = size.normalized()

	var log []Attempt
	for _, s := range c.steps(ov) {
		a := c.try(ctx, s, src, dst, size)
		log = append(log, a)
		if a.Outcome == Succeeded {
			return a, nil
		}
	}
	for _, s := range c.hostSteps() {
		a := c.try(ctx, s, src, dst, size)
		log = append(log, a)
		if a.Outcome == Succeeded {
			return a, nil
		}
	}

	for _, a := range log {
		if a.toolPresent() {
			return Attempt{}, &ConversionError{Attempts: log}
		}
	}
	return Attempt{}, &UnavailableError{Attempts: log}
}

func (c *Chain) try(ctx context.Context, s step, src, dst string, size Size) Attempt {
	if s.lib != nil {
		a := Attempt{Tool: s.lib.Name(), Setting: s.lib.Name()}
		if err := clearOutput(dst); err != nil {
			a.Outcome, a.Err = Failed, err
			return a
		}
		if err := s.lib.Rasterize(src, dst, size); err != nil {
			a.Outcome, a.Err = Failed, err
			return a
		}
		a.Outcome = Succeeded
		return a
	}

	a := Attempt{Tool: s.tool.Title, Setting: s.setting, Path: s.path, Explicit: s.explicit}
	resolved, err := c.probe.Resolve(s.setting, s.path)
	switch {
	case errors.Is(err, probe.ErrNotSet):
		a.Outcome = Skipped
		return a
	case err != nil:
		a.Outcome, a.Err = NotFound, err
		return a
	}

	// A file left by an earlier build must not pass for this tool's output.
	if err := clearOutput(dst); err != nil {
		a.Outcome, a.Err = Failed, err
		return a
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if err := s.tool.run(ctx, resolved, src, dst, size); err != nil {
		a.Outcome, a.Err = Failed, err
		return a
	}
	a.Path = resolved
	a.Outcome = Succeeded
	return a
}

func clearOutput(dst string) error {
	if err := os.Remove(dst); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale output: %w", err)
	}
	return nil
}
