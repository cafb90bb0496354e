package probe

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrNotSet is returned by Resolve when no path was configured.
var ErrNotSet = errors.New("not set")

// NotFoundError reports a configured or well-known name that does not
// resolve to an executable file.
type NotFoundError struct {
	Name string
	Path string
	Err  error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found for path %s", e.Name, e.Path)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// Probe decides whether an external binary is usable. LookPath defaults to
// exec.LookPath, which accepts both bare names (searched on PATH) and
// explicit paths (checked for the executable bit).
type Probe struct {
	LookPath func(file string) (string, error)
}

// New returns a probe backed by exec.LookPath.
func New() *Probe {
	return &Probe{LookPath: exec.LookPath}
}

// Resolve turns a configured path or executable name into an absolute path.
// An empty path yields ErrNotSet. The setting name is only used for
// diagnostics.
func (p *Probe) Resolve(setting, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrNotSet
	}
	look := p.LookPath
	if look == nil {
		look = exec.LookPath
	}
	resolved, err := look(path)
	if err != nil {
		return "", &NotFoundError{Name: setting, Path: path, Err: err}
	}
	return resolved, nil
}

// Status is one row of a probe report.
type Status struct {
	Name     string
	Path     string
	Resolved string
	Err      error
}

// Available reports whether the entry resolved.
func (s Status) Available() bool { return s.Err == nil }

// Report resolves each name and returns one Status per name in order.
func (p *Probe) Report(names ...string) []Status {
	out := make([]Status, 0, len(names))
	for _, n := range names {
		resolved, err := p.Resolve(n, n)
		out = append(out, Status{Name: n, Path: n, Resolved: resolved, Err: err})
	}
	return out
}
