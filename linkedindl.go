package linkedindl

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ytget/linkedin-dl/capture"
	"github.com/ytget/linkedin-dl/client"
	"github.com/ytget/linkedin-dl/internal/filename"
	"github.com/ytget/linkedin-dl/internal/logger"
	"github.com/ytget/linkedin-dl/linkedin/resolver"
	"github.com/ytget/linkedin-dl/retry"
	"github.com/ytget/linkedin-dl/types"
)

// Progress describes current progress of an ongoing capture.
type Progress = capture.Progress

// Downloader runs downloads: resolve, then capture with retries.
//
// A Downloader holds configuration only and may be reused, including from
// several goroutines. Concurrent runs must write to different destination
// paths; two runs sharing a destination overwrite each other.
type Downloader struct {
	clientConfig client.Config
	httpClient   *http.Client
	progressFunc func(Progress)
	rateLimitBps int64
	logger       *logger.Logger
	clock        func() time.Time
	sleep        retry.SleepFunc
}

// New creates a new Downloader instance with default options.
func New() *Downloader {
	return &Downloader{}
}

// WithClientConfig sets timeouts, retries, user agent and proxy of the
// underlying HTTP client.
func (d *Downloader) WithClientConfig(cfg client.Config) *Downloader {
	d.clientConfig = cfg
	return d
}

// WithHTTPClient sets a custom HTTP client to be used for all network calls.
func (d *Downloader) WithHTTPClient(hc *http.Client) *Downloader {
	d.httpClient = hc
	return d
}

// WithProgress registers a callback that receives progress updates.
func (d *Downloader) WithProgress(f func(Progress)) *Downloader {
	d.progressFunc = f
	return d
}

// WithRateLimit sets a download rate limit in bytes per second. Zero disables limiting.
func (d *Downloader) WithRateLimit(bytesPerSecond int64) *Downloader {
	if bytesPerSecond < 0 {
		bytesPerSecond = 0
	}
	d.rateLimitBps = bytesPerSecond
	return d
}

// WithLogger routes all engine logging to l instead of the global logger.
func (d *Downloader) WithLogger(l *logger.Logger) *Downloader {
	d.logger = l
	return d
}

// WithClock replaces the clock used to measure capture time.
func (d *Downloader) WithClock(now func() time.Time) *Downloader {
	d.clock = now
	return d
}

// WithSleep replaces the wait between attempts.
func (d *Downloader) WithSleep(sleep retry.SleepFunc) *Downloader {
	d.sleep = sleep
	return d
}

func (d *Downloader) log() *logger.Logger {
	if d.logger != nil {
		return d.logger
	}
	return logger.GetGlobalLogger()
}

func (d *Downloader) newClient() *client.Client {
	c := client.NewWith(d.clientConfig)
	if d.httpClient != nil {
		c.HTTPClient = d.httpClient
	}
	c.SetLogger(d.log())
	return c
}

// Resolve picks the rendition of sourceURL closest to q without downloading.
func (d *Downloader) Resolve(ctx context.Context, sourceURL string, q types.Quality) (types.SelectedRendition, error) {
	r := resolver.New(d.newClient())
	r.SetLogger(d.log())
	return r.Resolve(ctx, sourceURL, q)
}

// Run performs the download described by req.
//
// Resolution errors (errs.ErrInvalidQuality, errs.ErrPageUnavailable,
// errs.ErrNoRenditionsFound) are returned as is and never retried. When
// every capture fails, or ctx is cancelled, the error is an
// *errs.DownloadFailedError. On success the outcome tells how many bytes
// were written and why the capture stopped.
func (d *Downloader) Run(ctx context.Context, req types.DownloadRequest) (*types.CaptureOutcome, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	l := d.log()
	runLog := l.WithComponent(logger.ComponentApp).With(map[string]interface{}{"run_id": uuid.NewString()})
	runLog.Info("Download started", map[string]interface{}{
		"url":     req.SourceURL,
		"dest":    req.DestinationPath,
		"quality": int(req.Quality),
	})

	c := d.newClient()
	res := resolver.New(c)
	res.SetLogger(l)
	sel, err := res.Resolve(ctx, req.SourceURL, req.Quality)
	if err != nil {
		runLog.Error("Resolve failed", map[string]interface{}{"error": err})
		return nil, err
	}

	dest := destinationFor(req, sel)
	if dest != req.DestinationPath {
		runLog.Debug("Derived destination", map[string]interface{}{"dest": dest})
	}

	cp := capture.New(c, d.progressFunc, d.rateLimitBps)
	cp.SetLogger(l)
	if d.clock != nil {
		cp.Clock = d.clock
	}

	ctrl := retry.New(req.MaxAttempts, req.RetryDelay)
	ctrl.SetLogger(l)
	if d.sleep != nil {
		ctrl.Sleep = d.sleep
	}

	out, err := ctrl.Run(ctx, func(ctx context.Context, n int) (types.CaptureOutcome, error) {
		runLog.Debug("Capture attempt", map[string]interface{}{"attempt": n, "location": sel.Location})
		return cp.Capture(ctx, sel.Location, dest, req.TimeLimit)
	})
	if err != nil {
		runLog.Error("Download failed", map[string]interface{}{"error": err})
		return nil, err
	}

	out.Destination = dest
	runLog.Info("Download finished", map[string]interface{}{
		"dest":     dest,
		"bytes":    out.BytesWritten,
		"reason":   out.StoppedReason.String(),
		"attempts": out.Attempts,
		"quality":  int(sel.Quality),
	})
	return &out, nil
}

// destinationFor returns the file to write. A destination naming an existing
// directory gets a file name derived from the source URL and the container
// of the selected rendition.
func destinationFor(req types.DownloadRequest, sel types.SelectedRendition) string {
	info, err := os.Stat(req.DestinationPath)
	if err != nil || !info.IsDir() {
		return req.DestinationPath
	}
	return filepath.Join(req.DestinationPath, filename.ForSource(req.SourceURL, sel.Location))
}
