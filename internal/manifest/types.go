package manifest

// Manifest records what a build produced.
type Manifest struct {
	Version     int              `json:"version"`
	GeneratedAt string           `json:"generated_at"`
	Profile     ProfileInfo      `json:"profile"`
	BuildInfo   *BuildInfo       `json:"build_info,omitempty"`
	Images      map[string]Image `json:"images"`
	Stats       Stats            `json:"stats"`
}

// ProfileInfo captures the width settings the build ran with.
type ProfileInfo struct {
	Name             string   `json:"name"`
	MinWidth         int      `json:"min_width"`
	MaxViewportWidth int      `json:"max_viewport_width"`
	WidthStep        int      `json:"width_step"`
	Formats          []string `json:"formats"`
}

// BuildInfo captures build-time parameters for diagnostics.
type BuildInfo struct {
	Workers  int      `json:"workers"`
	Encoders []string `json:"encoders"` // formats whose encoder was available
}

// Image describes one source image and the files generated for it.
type Image struct {
	Source    SourceInfo `json:"source"`
	Markup    string     `json:"markup"`
	Variants  []Variant  `json:"variants"`
	Converter string     `json:"converter,omitempty"` // tool that rasterized an svg preview
	Error     string     `json:"error,omitempty"`     // why the image fell back to plain markup
}

// SourceInfo holds metadata about the source image.
type SourceInfo struct {
	Path       string `json:"path"`
	Format     string `json:"format"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Size       int64  `json:"size"`
	HasPayload bool   `json:"has_payload,omitempty"` // carries a niVI chunk
}

// Variant is one rendered file.
type Variant struct {
	Format string `json:"format"` // "avif", "webp", "jpeg", "png"
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Size   int64  `json:"size"` // bytes on disk
	Hash   string `json:"hash"` // 16 hex chars of xxhash64
	Path   string `json:"path"` // relative to the manifest
}

// Stats aggregates build metrics.
type Stats struct {
	TotalInputBytes  int64 `json:"total_input_bytes"`
	TotalOutputBytes int64 `json:"total_output_bytes"`
	TotalImages      int   `json:"total_images"`
	TotalVariants    int   `json:"total_variants"`
	Skipped          int   `json:"skipped,omitempty"` // variants left out to keep a payload
	Failed           int   `json:"failed,omitempty"`  // variants that failed to render
}

// SupportedManifestVersion is the current schema version.
const SupportedManifestVersion = 1
