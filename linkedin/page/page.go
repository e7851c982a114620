// Package page extracts stream locations from the public markup of a video
// page.
package page

import (
	"encoding/json"
	"html"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ytget/linkedin-dl/internal/jsobject"
	"github.com/ytget/linkedin-dl/internal/logger"
	"github.com/ytget/linkedin-dl/linkedin/manifest"
)

// Kind classifies a candidate location.
type Kind int

const (
	// Direct is a progressive file served as a single stream.
	Direct Kind = iota
	// Master is a master manifest that lists renditions.
	Master
	// Rendition is a fragment manifest for one bitrate.
	Rendition
)

func (k Kind) String() string {
	switch k {
	case Master:
		return "master"
	case Rendition:
		return "rendition"
	default:
		return "direct"
	}
}

// Candidate is a stream location found in the markup. Bitrate is 0 when the
// markup did not say.
type Candidate struct {
	URL     string
	Bitrate int
	Kind    Kind
}

var (
	dataSourcesRe  = regexp.MustCompile(`data-sources="([^"]*)"`)
	playerAttrRe   = regexp.MustCompile(`data-player-config="([^"]*)"`)
	playerScriptRe = regexp.MustCompile(`(?s)window\.__playerConfig\s*=\s*(\{.*?\})\s*;?\s*</script>`)
	codeBlobRe     = regexp.MustCompile(`(?s)<code[^>]*>\s*(\{.*?\})\s*</code>`)
	manifestURLRe  = regexp.MustCompile(`https?://[^\s"'<>\\]*?/(?:manifest|Manifest)\([^\s"'<>)]*\)`)

	urlKeys     = []string{"src", "url", "streamingLocation"}
	bitrateKeys = []string{"data-bitrate", "bitrate", "bitRate"}
)

// Extract returns the candidates found in body, in order of discovery and
// without duplicates. Sources are checked in this order: data-sources
// attributes, <code> JSON blobs, inline player configs, and finally bare
// manifest URLs anywhere in the markup.
//
// A nil log falls back to the global logger.
func Extract(body []byte, log *logger.ComponentLogger) []Candidate {
	if log == nil {
		log = logger.WithComponent(logger.ComponentPage)
	}
	text := string(body)
	c := &collector{seen: make(map[string]bool)}

	for _, m := range dataSourcesRe.FindAllStringSubmatch(text, -1) {
		var v any
		if err := json.Unmarshal([]byte(html.UnescapeString(m[1])), &v); err != nil {
			log.Debug("Skipping malformed data-sources", map[string]interface{}{"error": err})
			continue
		}
		c.walk(v)
	}

	for _, m := range codeBlobRe.FindAllStringSubmatch(text, -1) {
		var v any
		if err := json.Unmarshal([]byte(html.UnescapeString(m[1])), &v); err != nil {
			continue
		}
		c.walk(v)
	}

	var scripts []string
	for _, m := range playerAttrRe.FindAllStringSubmatch(text, -1) {
		scripts = append(scripts, html.UnescapeString(m[1]))
	}
	for _, m := range playerScriptRe.FindAllStringSubmatch(text, -1) {
		scripts = append(scripts, m[1])
	}
	for _, src := range scripts {
		v, err := jsobject.Eval(src)
		if err != nil {
			log.Debug("Player config did not evaluate", map[string]interface{}{"error": err})
			continue
		}
		c.walk(v)
	}

	for _, u := range manifestURLRe.FindAllString(unescapeURLs(text), -1) {
		c.addURL(u, 0)
	}

	log.Debug("Extracted candidates", map[string]interface{}{"count": len(c.out)})
	return c.out
}

// unescapeURLs undoes the escaping commonly applied to URLs embedded in
// scripts and attributes.
func unescapeURLs(s string) string {
	s = strings.ReplaceAll(s, `\/`, `/`)
	s = strings.ReplaceAll(s, `\u002F`, `/`)
	s = strings.ReplaceAll(s, `\u0026`, `&`)
	return html.UnescapeString(s)
}

type collector struct {
	out  []Candidate
	seen map[string]bool
}

func (c *collector) addURL(rawURL string, bitrate int) {
	rawURL = strings.TrimSpace(unescapeURLs(rawURL))
	if rawURL == "" || c.seen[rawURL] {
		return
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return
	}
	c.seen[rawURL] = true

	kind := Direct
	switch {
	case manifest.IsRendition(rawURL):
		kind = Rendition
	case manifest.IsMaster(rawURL):
		kind = Master
	}
	if bitrate == 0 {
		if v, ok := manifest.BitrateFromURL(rawURL); ok {
			bitrate = v
		}
	}
	c.out = append(c.out, Candidate{URL: rawURL, Bitrate: bitrate, Kind: kind})
}

// walk visits decoded JSON or JS values looking for stream descriptions:
// objects carrying a URL and a bitrate, streamingLocations lists, and
// masterPlaylists lists.
func (c *collector) walk(v any) {
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			c.walk(item)
		}
	case map[string]any:
		bitrate := lookupBitrate(t)
		if u := lookupString(t, urlKeys); u != "" {
			c.addURL(u, bitrate)
		}
		if locs, ok := t["streamingLocations"].([]any); ok {
			for _, l := range locs {
				if m, ok := l.(map[string]any); ok {
					if u := lookupString(m, urlKeys); u != "" {
						c.addURL(u, bitrate)
					}
				}
			}
		}
		if lists, ok := t["masterPlaylists"].([]any); ok {
			for _, l := range lists {
				if m, ok := l.(map[string]any); ok {
					if u := lookupString(m, urlKeys); u != "" {
						c.addURL(u, 0)
					}
				}
			}
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if k == "streamingLocations" || k == "masterPlaylists" {
				continue
			}
			child := t[k]
			switch child.(type) {
			case map[string]any, []any:
				c.walk(child)
			}
		}
	}
}

func lookupString(m map[string]any, keys []string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func lookupBitrate(m map[string]any) int {
	for _, k := range bitrateKeys {
		switch v := m[k].(type) {
		case float64:
			return int(v)
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return n
			}
		}
	}
	return 0
}
