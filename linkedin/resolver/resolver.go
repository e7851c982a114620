// Package resolver turns a source URL into the rendition to download.
//
// Three kinds of source URL are understood:
//
//   - a rendition manifest (".../QualityLevels(N)/Manifest(...)"), used as is;
//   - a master manifest (".../manifest(...)"), fetched and expanded into its
//     renditions;
//   - anything else is treated as a video page whose markup is searched for
//     stream locations.
package resolver

import (
	"context"
	"fmt"

	"github.com/ytget/linkedin-dl/client"
	"github.com/ytget/linkedin-dl/errs"
	"github.com/ytget/linkedin-dl/internal/logger"
	"github.com/ytget/linkedin-dl/linkedin/manifest"
	"github.com/ytget/linkedin-dl/linkedin/page"
	"github.com/ytget/linkedin-dl/linkedin/renditions"
	"github.com/ytget/linkedin-dl/types"
)

// Resolver fetches pages and manifests through Client.
type Resolver struct {
	Client  *client.Client
	log     *logger.ComponentLogger
	pageLog *logger.ComponentLogger
}

// New returns a Resolver using c, or a default client when c is nil.
func New(c *client.Client) *Resolver {
	if c == nil {
		c = client.New()
	}
	return &Resolver{
		Client:  c,
		log:     logger.WithComponent(logger.ComponentResolver),
		pageLog: logger.WithComponent(logger.ComponentPage),
	}
}

// SetLogger replaces the component logger.
func (r *Resolver) SetLogger(l *logger.Logger) {
	r.log = l.WithComponent(logger.ComponentResolver)
	r.pageLog = l.WithComponent(logger.ComponentPage)
}

// Resolve returns the rendition of sourceURL that best matches q.
// An unsupported q fails with errs.ErrInvalidQuality before any request is
// made.
func (r *Resolver) Resolve(ctx context.Context, sourceURL string, q types.Quality) (types.SelectedRendition, error) {
	if !q.Valid() {
		return types.SelectedRendition{}, fmt.Errorf("%w: %d", errs.ErrInvalidQuality, q)
	}

	var (
		set types.RenditionSet
		err error
	)
	if manifest.IsRendition(sourceURL) {
		set = renditionOnly(sourceURL, q)
	} else {
		set, err = r.Renditions(ctx, sourceURL)
		if err != nil {
			return types.SelectedRendition{}, err
		}
	}

	sel, err := renditions.Select(set, q)
	if err != nil {
		return types.SelectedRendition{}, err
	}
	r.log.Info("Rendition selected", map[string]interface{}{
		"requested": int(q),
		"selected":  int(sel.Quality),
		"available": len(set),
	})
	return sel, nil
}

// renditionOnly builds the one-entry set for a URL that already names a
// rendition manifest. Without a QualityLevels segment the URL stands in for
// the requested bitrate.
func renditionOnly(sourceURL string, q types.Quality) types.RenditionSet {
	if v, ok := manifest.BitrateFromURL(sourceURL); ok && types.Quality(v).Valid() {
		return types.RenditionSet{types.Quality(v): sourceURL}
	}
	return types.RenditionSet{q: sourceURL}
}

// Renditions fetches sourceURL and returns every supported rendition it
// leads to. A fetch failure is errs.ErrPageUnavailable, and so is a page
// whose only usable locations were master manifests that all failed to load.
// A document without usable locations is errs.ErrNoRenditionsFound.
func (r *Resolver) Renditions(ctx context.Context, sourceURL string) (types.RenditionSet, error) {
	b := renditions.NewBuilder()
	var masterErr error

	if manifest.IsMaster(sourceURL) {
		if err := r.expandMaster(ctx, sourceURL, b); err != nil {
			return nil, fmt.Errorf("%w: %w", errs.ErrPageUnavailable, err)
		}
	} else {
		p, err := r.Client.GetPage(ctx, sourceURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errs.ErrPageUnavailable, err)
		}
		for _, c := range page.Extract(p.Body, r.pageLog) {
			switch c.Kind {
			case page.Master:
				if err := r.expandMaster(ctx, c.URL, b); err != nil {
					if ctx.Err() != nil {
						return nil, ctx.Err()
					}
					r.log.Warn("Skipping master manifest", map[string]interface{}{"url": c.URL, "error": err})
					masterErr = err
				}
			default:
				b.Add(c.Bitrate, c.URL)
			}
		}
	}

	if b.Ignored() > 0 {
		r.log.Debug("Ignored unsupported renditions", map[string]interface{}{"count": b.Ignored()})
	}
	set := b.Set()
	if len(set) == 0 {
		if masterErr != nil {
			return nil, fmt.Errorf("%w: %w", errs.ErrPageUnavailable, masterErr)
		}
		return nil, errs.ErrNoRenditionsFound
	}
	return set, nil
}

func (r *Resolver) expandMaster(ctx context.Context, masterURL string, b *renditions.Builder) error {
	p, err := r.Client.GetPage(ctx, masterURL)
	if err != nil {
		return err
	}
	levels, err := manifest.ParseMaster(p.Body, p.URL)
	if err != nil {
		return err
	}
	r.log.Debug("Master manifest parsed", map[string]interface{}{"url": masterURL, "levels": len(levels)})
	for _, l := range levels {
		b.Add(l.Bitrate, l.URL)
	}
	return nil
}
