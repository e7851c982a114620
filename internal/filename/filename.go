// Package filename derives a safe local file name for a download whose
// destination is a directory.
package filename

import (
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ytget/linkedin-dl/linkedin/manifest"
)

const (
	// MaxFilenameLength is the maximum allowed length for the filename base.
	MaxFilenameLength = 120
	// DefaultExt is the default extension used when none is provided.
	DefaultExt = "mp4"
	// DefaultName is the replacement name when the source has no usable slug.
	DefaultName = "video"
	// ExtTS is used for fragmented streams, which carry MPEG-TS segments.
	ExtTS = "ts"
)

var (
	unsafeChars = regexp.MustCompile(`[\\/:*?"<>|()]+`)
	knownExts   = map[string]bool{"mp4": true, "m4v": true, "mov": true, "webm": true, "ts": true}
)

// ToSafeFilename builds a cross-platform safe filename from name and extension (without dot in ext).
func ToSafeFilename(name, ext string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultName
	}
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, " ._")
	if name == "" {
		name = DefaultName
	}
	if len(name) > MaxFilenameLength {
		name = name[:MaxFilenameLength]
	}
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "" {
		ext = DefaultExt
	}
	return filepath.Clean(name + "." + ext)
}

// Slug returns the last path segment of a source URL, the post identifier
// for LinkedIn URLs. Manifest URLs have no meaningful slug and yield "".
func Slug(sourceURL string) string {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return ""
	}
	if manifest.IsRendition(sourceURL) || manifest.IsMaster(sourceURL) {
		return ""
	}
	base := path.Base(strings.TrimSuffix(u.Path, "/"))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

// ExtFromLocation returns the file extension (without dot) matching the
// container served at location. Falls back to mp4 if unknown.
func ExtFromLocation(location string) string {
	if manifest.IsRendition(location) || manifest.IsMaster(location) {
		return ExtTS
	}
	u, err := url.Parse(location)
	if err != nil {
		return DefaultExt
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(u.Path)), ".")
	if knownExts[ext] {
		return ext
	}
	return DefaultExt
}

// ForSource returns a safe file name for sourceURL captured from location.
func ForSource(sourceURL, location string) string {
	return ToSafeFilename(Slug(sourceURL), ExtFromLocation(location))
}
