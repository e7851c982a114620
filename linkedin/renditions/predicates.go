package renditions

import (
	"strings"

	"github.com/ytget/linkedin-dl/types"
)

// isMember reports whether q is one of the published bitrates.
func isMember(q types.Quality) bool {
	return q.Valid()
}

// hasLocation returns true when location is a non-blank absolute http(s) URL.
func hasLocation(location string) bool {
	l := strings.TrimSpace(location)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// notAbove reports whether candidate does not exceed the requested bitrate.
func notAbove(candidate, requested types.Quality) bool {
	return candidate <= requested
}
