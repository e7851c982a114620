package capture

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ytget/linkedin-dl/client"
	"github.com/ytget/linkedin-dl/linkedin/manifest"
)

// streamInfo is what is known about a stream before reading it. size is -1
// when unknown and duration is 0 when unknown.
type streamInfo struct {
	size     int64
	duration time.Duration
}

// openStream returns a reader over location. A rendition manifest is read
// as the concatenation of its fragments; anything else is a single GET.
// The fragment list is fetched once: retrying is left to the caller.
func (c *Capturer) openStream(ctx context.Context, location string) (io.ReadCloser, streamInfo, error) {
	if !manifest.IsRendition(location) {
		rc, size, err := c.Client.Open(ctx, location)
		return rc, streamInfo{size: size}, err
	}

	p, err := c.Client.GetPageOnce(ctx, location)
	if err != nil {
		return nil, streamInfo{}, fmt.Errorf("fetch fragment list: %w", err)
	}
	frags, err := manifest.ParseFragments(p.Body, location)
	if err != nil {
		return nil, streamInfo{}, err
	}
	if len(frags) == 0 {
		return nil, streamInfo{}, fmt.Errorf("rendition manifest %s lists no fragments", location)
	}
	info := streamInfo{size: -1, duration: manifest.TotalDuration(frags)}
	c.log.Debug("Fragment list loaded", map[string]interface{}{"fragments": len(frags), "duration": info.duration.String()})
	return &fragmentReader{ctx: ctx, client: c.Client, frags: frags}, info, nil
}

// fragmentReader opens fragments one at a time as the previous one is
// drained.
type fragmentReader struct {
	ctx    context.Context
	client *client.Client
	frags  []manifest.Fragment
	next   int
	cur    io.ReadCloser
}

func (r *fragmentReader) Read(p []byte) (int, error) {
	for {
		if r.cur == nil {
			if r.next >= len(r.frags) {
				return 0, io.EOF
			}
			rc, _, err := r.client.Open(r.ctx, r.frags[r.next].URL)
			if err != nil {
				return 0, fmt.Errorf("fragment %d: %w", r.next, err)
			}
			r.cur = rc
			r.next++
		}

		n, err := r.cur.Read(p)
		if err == io.EOF {
			_ = r.cur.Close()
			r.cur = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (r *fragmentReader) Close() error {
	if r.cur == nil {
		return nil
	}
	err := r.cur.Close()
	r.cur = nil
	return err
}
