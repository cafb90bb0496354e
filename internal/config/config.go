package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wpilibsuite/sphinxext-photofinish/internal/profile"
	"github.com/wpilibsuite/sphinxext-photofinish/internal/svgconv"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "photofinish.yaml"

// Config represents the build configuration.
type Config struct {
	Profile          string   `yaml:"profile"`
	MinWidth         int      `yaml:"min_width"`
	MaxViewportWidth int      `yaml:"max_viewport_width"`
	WidthStep        int      `yaml:"width_step"`
	Formats          []string `yaml:"formats"`
	Workers          int      `yaml:"workers"`
	// CIOnly restricts builds to CI environments (CI set).
	CIOnly     bool             `yaml:"ci_only"`
	Converters ConvertersConfig `yaml:"converters"`
	// Host is present when running inside a documentation build that
	// configures its own converter binaries.
	Host *HostConfig `yaml:"host"`
}

type ConvertersConfig struct {
	Inkscape    string        `yaml:"inkscape"`
	RSVGConvert string        `yaml:"rsvg_convert"`
	SVGExport   string        `yaml:"svgexport"`
	ImageMagick string        `yaml:"imagemagick"`
	Libraries   []string      `yaml:"libraries"`
	Timeout     time.Duration `yaml:"timeout"`
}

type HostConfig struct {
	InkscapeConverterBin string `yaml:"inkscape_converter_bin"`
	RSVGConverterBin     string `yaml:"rsvg_converter_bin"`
}

// Default returns the configuration used without a config file.
func Default() *Config {
	p := profile.Get("default")
	return &Config{
		Profile:          p.Name,
		MinWidth:         p.MinWidth,
		MaxViewportWidth: p.MaxViewportWidth,
		WidthStep:        p.WidthStep,
		Formats:          p.Formats,
		Converters: ConvertersConfig{
			Libraries: append([]string(nil), svgconv.DefaultLibraries...),
		},
	}
}

// Load reads and parses the configuration file on top of the defaults of
// the profile it names. A missing file at DefaultFile is not an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config data.
func Parse(data []byte) (*Config, error) {
	// Read the profile name first so its values become the defaults.
	var head struct {
		Profile string `yaml:"profile"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg := Default()
	if head.Profile != "" {
		cfg.ApplyProfile(head.Profile)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyProfile resets the width and format settings to a named profile.
func (c *Config) ApplyProfile(name string) {
	p := profile.Get(name)
	c.Profile = p.Name
	c.MinWidth = p.MinWidth
	c.MaxViewportWidth = p.MaxViewportWidth
	c.WidthStep = p.WidthStep
	c.Formats = p.Formats
}

// Validate checks the configuration eagerly, before any image is planned.
func (c *Config) Validate() error {
	if err := c.PlannerProfile().Validate(); err != nil {
		return err
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	if c.Converters.Timeout < 0 {
		return fmt.Errorf("converters.timeout must not be negative")
	}
	for _, name := range c.Converters.Libraries {
		if _, err := svgconv.Library(name); err != nil {
			return fmt.Errorf("converters.libraries: %w", err)
		}
	}
	return nil
}

// PlannerProfile returns the width settings as a profile.
func (c *Config) PlannerProfile() profile.Profile {
	return profile.Profile{
		Name:             c.Profile,
		MinWidth:         c.MinWidth,
		MaxViewportWidth: c.MaxViewportWidth,
		WidthStep:        c.WidthStep,
		Formats:          c.Formats,
	}
}

// Overrides returns the caller-specified converter paths.
func (c *Config) Overrides() svgconv.Overrides {
	return svgconv.Overrides{
		Inkscape:    c.Converters.Inkscape,
		RSVGConvert: c.Converters.RSVGConvert,
		SVGExport:   c.Converters.SVGExport,
		ImageMagick: c.Converters.ImageMagick,
	}
}

// ChainOptions returns the svgconv options this configuration implies.
func (c *Config) ChainOptions() []svgconv.Option {
	var libs []svgconv.Rasterizer
	for _, name := range c.Converters.Libraries {
		if lib, err := svgconv.Library(name); err == nil {
			libs = append(libs, lib)
		}
	}
	opts := []svgconv.Option{
		svgconv.WithLibraries(libs...),
		svgconv.WithTimeout(c.Converters.Timeout),
	}
	host := c.Host
	opts = append(opts, svgconv.WithHost(func() (svgconv.HostSettings, bool) {
		if host == nil {
			return svgconv.HostSettings{}, false
		}
		return svgconv.HostSettings{
			Inkscape:    host.InkscapeConverterBin,
			RSVGConvert: host.RSVGConverterBin,
		}, true
	}))
	return opts
}

// Skip reports whether a build should do nothing in this environment:
// outside CI when CIOnly is set, and always on Read the Docs.
func (c *Config) Skip(getenv func(string) string) bool {
	return (c.CIOnly && getenv("CI") == "") || getenv("READTHEDOCS") != ""
}
