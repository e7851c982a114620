// Package manifest parses the Smooth-Streaming style manifests served for
// LinkedIn videos.
//
// A master manifest (path ending in lowercase "manifest(...)") lists one line
// per rendition:
//
//	QualityLevels(800000)/Manifest(video,format=m3u8-aapl)
//
// A rendition manifest (path containing "/Manifest") is an m3u8 style list of
// fragments:
//
//	#EXTINF:4.000,
//	Fragments(video=0,format=m3u8-aapl)
package manifest

import (
	"bufio"
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	qualityLinePrefix  = "QualityLevels"
	fragmentLinePrefix = "Fragments"
	extinfPrefix       = "#EXTINF:"
	renditionMarker    = "/Manifest"
	masterMarker       = "/manifest"
)

var (
	qualityLineRe  = regexp.MustCompile(`^QualityLevels\((\d+)\)/Manifest`)
	qualityInURLRe = regexp.MustCompile(`QualityLevels\((\d+)\)`)
	manifestTailRe = regexp.MustCompile(`Manifest.*$`)
)

// Level is one rendition listed in a master manifest.
type Level struct {
	Bitrate int
	URL     string
}

// Fragment is one media segment of a rendition manifest.
type Fragment struct {
	URL string
	// Duration in seconds as announced by #EXTINF, 0 when absent.
	Duration float64
}

// IsRendition reports whether rawURL points at a rendition manifest.
func IsRendition(rawURL string) bool {
	return strings.Contains(rawURL, renditionMarker)
}

// IsMaster reports whether rawURL points at a master manifest.
func IsMaster(rawURL string) bool {
	return strings.Contains(rawURL, masterMarker)
}

// BitrateFromURL extracts N from a "QualityLevels(N)" path segment.
func BitrateFromURL(rawURL string) (int, bool) {
	m := qualityInURLRe.FindStringSubmatch(rawURL)
	if len(m) < 2 {
		return 0, false
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return v, true
}

// lines splits body into trimmed lines, tolerating CRLF.
func lines(body []byte) []string {
	var out []string
	sc := bufio.NewScanner(bytes.NewReader(body))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		out = append(out, strings.TrimSpace(sc.Text()))
	}
	return out
}

// ParseMaster returns the renditions listed in a master manifest. Each
// location replaces the last path segment of masterURL with the listed line.
// Order follows the manifest.
func ParseMaster(body []byte, masterURL string) ([]Level, error) {
	base, err := url.Parse(masterURL)
	if err != nil {
		return nil, fmt.Errorf("parse master url: %w", err)
	}

	var levels []Level
	for _, line := range lines(body) {
		if !strings.HasPrefix(line, qualityLinePrefix) {
			continue
		}
		m := qualityLineRe.FindStringSubmatch(line)
		if len(m) < 2 {
			continue
		}
		bitrate, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		ref, err := url.Parse(line)
		if err != nil {
			continue
		}
		levels = append(levels, Level{Bitrate: bitrate, URL: base.ResolveReference(ref).String()})
	}
	return levels, nil
}

// ParseFragments returns the fragments of a rendition manifest, resolved
// against the manifest URL with its "Manifest..." tail removed.
func ParseFragments(body []byte, manifestURL string) ([]Fragment, error) {
	prefix := manifestTailRe.ReplaceAllString(manifestURL, "")
	if prefix == manifestURL {
		return nil, fmt.Errorf("not a rendition manifest url: %s", manifestURL)
	}

	var (
		frags   []Fragment
		pending float64
	)
	for _, line := range lines(body) {
		switch {
		case strings.HasPrefix(line, extinfPrefix):
			pending = parseExtinf(line)
		case strings.HasPrefix(line, fragmentLinePrefix):
			frags = append(frags, Fragment{URL: prefix + line, Duration: pending})
			pending = 0
		}
	}
	return frags, nil
}

// TotalDuration sums the announced fragment durations.
func TotalDuration(frags []Fragment) time.Duration {
	var secs float64
	for _, f := range frags {
		secs += f.Duration
	}
	return time.Duration(secs * float64(time.Second))
}

func parseExtinf(line string) float64 {
	v := strings.TrimPrefix(line, extinfPrefix)
	if i := strings.Index(v, ","); i >= 0 {
		v = v[:i]
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0
	}
	return d
}
