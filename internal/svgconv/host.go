package svgconv

import "sync"

// HostSettings are converter paths configured by the surrounding
// documentation build rather than by the caller.
type HostSettings struct {
	Inkscape    string
	RSVGConvert string
}

// HostLoader reports the host settings. ok is false when the caller is not
// running inside a recognized host build.
type HostLoader func() (settings HostSettings, ok bool)

// hostCache remembers the first successful HostLoader result for the
// lifetime of the Chain. A miss is not cached, so a host that appears later
// is still picked up.
type hostCache struct {
	mu     sync.Mutex
	load   HostLoader
	found  bool
	values HostSettings
}

func (c *hostCache) get() (HostSettings, bool) {
	if c == nil {
		return HostSettings{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.found {
		return c.values, true
	}
	if c.load == nil {
		return HostSettings{}, false
	}
	if v, ok := c.load(); ok {
		c.values, c.found = v, true
	}
	return c.values, c.found
}
