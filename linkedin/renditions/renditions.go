// Package renditions builds the set of available renditions and picks one
// for a requested bitrate.
package renditions

import (
	"fmt"

	"github.com/ytget/linkedin-dl/errs"
	"github.com/ytget/linkedin-dl/types"
)

// Builder accumulates stream locations into a RenditionSet. The first
// location seen for a bitrate wins.
type Builder struct {
	set     types.RenditionSet
	ignored int
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{set: make(types.RenditionSet)}
}

// Add records location under bitrate. Bitrates outside the supported set and
// empty locations are ignored; Add reports whether the entry was kept.
func (b *Builder) Add(bitrate int, location string) bool {
	q := types.Quality(bitrate)
	if !isMember(q) || !hasLocation(location) {
		b.ignored++
		return false
	}
	if _, dup := b.set[q]; dup {
		return false
	}
	b.set[q] = location
	return true
}

// Ignored returns how many entries Add rejected.
func (b *Builder) Ignored() int { return b.ignored }

// Set returns the accumulated set. The Builder must not be used afterwards.
func (b *Builder) Set() types.RenditionSet {
	return b.set
}

// Select chooses the rendition for q: the exact bitrate when present,
// otherwise the highest bitrate below q, otherwise the lowest available.
func Select(set types.RenditionSet, q types.Quality) (types.SelectedRendition, error) {
	if !q.Valid() {
		return types.SelectedRendition{}, fmt.Errorf("%w: %d", errs.ErrInvalidQuality, q)
	}
	if len(set) == 0 {
		return types.SelectedRendition{}, errs.ErrNoRenditionsFound
	}

	if loc, ok := set[q]; ok {
		return types.SelectedRendition{Quality: q, Location: loc}, nil
	}

	sorted := set.Sorted()
	best := sorted[0]
	for _, v := range sorted {
		if notAbove(v, q) {
			best = v
		}
	}
	return types.SelectedRendition{Quality: best, Location: set[best]}, nil
}
