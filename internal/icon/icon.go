// Package icon resolves and caches display icons for bookmark URLs.
//
// A Service tries a fixed list of favicon candidates per URL, validates each
// one through a Prober, and caches the first that works. Lookups never fail:
// every error path degrades to a stale cached icon or the Default sentinel.
package icon

import "strings"

// Ref is a display icon: a remote icon URL or the Default sentinel.
type Ref string

const inlineSVGPrefix = "data:image/svg+xml;base64,"

// Default is the embedded fallback icon returned when nothing better exists.
const Default Ref = inlineSVGPrefix + "PHN2ZyB3aWR0aD0iMzIiIGhlaWdodD0iMzIiIHZpZXdCb3g9IjAgMCAzMiAzMiIgZmlsbD0ibm9uZSIgeG1sbnM9Imh0dHA6Ly93d3cudzMub3JnLzIwMDAvc3ZnIj4KPHJlY3Qgd2lkdGg9IjMyIiBoZWlnaHQ9IjMyIiByeD0iNCIgZmlsbD0iIzY2NzNlYSIvPgo8cGF0aCBkPSJNMTYgOEMxMiA4IDEwIDEwIDEwIDE0VjE4QzEwIDIyIDE0IDI0IDE2IDI0QzE4IDI0IDIyIDIyIDIyIDE4VjE0QzIyIDEwIDIwIDggMTYgOFoiIGZpbGw9IndoaXRlIi8+Cjwvc3ZnPgo="

// IsDefault reports whether ref is the default sentinel.
// Any inline SVG data URL counts, since the engine never produces another one.
func IsDefault(ref Ref) bool {
	return strings.HasPrefix(string(ref), inlineSVGPrefix)
}

// String returns the icon as a plain string.
func (r Ref) String() string {
	return string(r)
}
