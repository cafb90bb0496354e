package profile

import "fmt"

// Profile defines the responsive width ladder and the extra output formats.
type Profile struct {
	Name             string
	MinWidth         int      // smallest generated width
	MaxViewportWidth int      // widest layout the page is shown at
	WidthStep        int      // distance between generated widths
	Formats          []string // extra formats in preference order; the source format is always added last
}

// Built-in profiles.
var profiles = map[string]Profile{
	"default": {
		Name:             "default",
		MinWidth:         500,
		MaxViewportWidth: 1000,
		WidthStep:        300,
		Formats:          []string{"webp"}, // avif left out: browser support is still patchy
	},
	"avif": {
		Name:             "avif",
		MinWidth:         500,
		MaxViewportWidth: 1000,
		WidthStep:        300,
		Formats:          []string{"avif", "webp"},
	},
	"compact": {
		Name:             "compact",
		MinWidth:         320,
		MaxViewportWidth: 800,
		WidthStep:        240,
		Formats:          []string{"webp"},
	},
}

// Get returns a profile by name. Falls back to default if unknown.
func Get(name string) Profile {
	if p, ok := profiles[name]; ok {
		p.Formats = append([]string(nil), p.Formats...)
		return p
	}
	p := profiles["default"]
	p.Formats = append([]string(nil), p.Formats...)
	p.Name = name // preserve requested name
	return p
}

// MaxWidth is the largest width generated below the native one: twice the
// viewport, for high-density screens.
func (p Profile) MaxWidth() int {
	return 2 * p.MaxViewportWidth
}

// Validate rejects settings Plan cannot work with.
func (p Profile) Validate() error {
	switch {
	case p.WidthStep <= 0:
		return &PlanningError{Field: "width_step", Value: p.WidthStep}
	case p.MinWidth <= 0:
		return &PlanningError{Field: "min_width", Value: p.MinWidth}
	case p.MaxViewportWidth <= 0:
		return &PlanningError{Field: "max_viewport_width", Value: p.MaxViewportWidth}
	}
	return nil
}

// Plan returns the widths to generate for an image nativeWidth pixels wide.
func (p Profile) Plan(nativeWidth int) ([]int, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return Plan(nativeWidth, p.MinWidth, p.MaxWidth(), p.WidthStep)
}

// PlanningError reports a configuration value that makes planning impossible.
type PlanningError struct {
	Field string
	Value int
}

func (e *PlanningError) Error() string {
	return fmt.Sprintf("invalid %s %d: must be positive", e.Field, e.Value)
}

// Plan generates minWidth, minWidth+step, ... up to min(maxWidth, nativeWidth)
// and makes sure the ladder ends at nativeWidth. A last rung within step/2
// of nativeWidth is moved onto it instead of adding a near-duplicate.
//
// The result is strictly increasing and its last element is nativeWidth.
func Plan(nativeWidth, minWidth, maxWidth, step int) ([]int, error) {
	if step <= 0 {
		return nil, &PlanningError{Field: "width_step", Value: step}
	}
	if nativeWidth <= 0 {
		return nil, &PlanningError{Field: "native width", Value: nativeWidth}
	}

	limit := min(maxWidth, nativeWidth)
	var widths []int
	for w := minWidth; w <= limit; w += step {
		if w > 0 {
			widths = append(widths, w)
		}
	}
	if len(widths) == 0 {
		return []int{nativeWidth}, nil
	}

	// Compare doubled values so odd steps keep the exact step/2 tolerance.
	last := len(widths) - 1
	if 2*(nativeWidth-widths[last]) <= step {
		widths[last] = nativeWidth
	} else {
		widths = append(widths, nativeWidth)
	}
	return widths, nil
}
