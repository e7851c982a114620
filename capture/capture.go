// Package capture copies one rendition stream into a local file, stopping
// at the end of the stream or once a wall-clock budget is spent.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ytget/linkedin-dl/client"
	"github.com/ytget/linkedin-dl/internal/logger"
	"github.com/ytget/linkedin-dl/types"
)

const (
	copyBufferSizeBytes = 32 * 1024 // 32KB
	destinationFileMode = 0o644
)

// ErrStalled is the cause of a CONNECTION_FAILED outcome when the stream
// delivered nothing for longer than the client's stall timeout.
var ErrStalled = errors.New("stream stalled")

// errTimeLimit cancels an attempt whose time limit ran out while blocked.
var errTimeLimit = errors.New("time limit reached")

// Progress holds information about capture progress.
type Progress struct {
	TotalSize      int64
	DownloadedSize int64
	Percent        float64
	Elapsed        time.Duration
	// MediaDuration is the playing time announced by a rendition manifest,
	// capped at the time limit. Zero when unknown.
	MediaDuration time.Duration
}

// Capturer streams a location into a file. It makes exactly one attempt per
// call; retrying is the caller's business.
type Capturer struct {
	Client       *client.Client
	ProgressFunc func(Progress)
	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time

	rateLimitBps int64
	log          *logger.ComponentLogger
}

// New creates a capturer. If c is nil a default client is used.
// rateLimitBps=0 disables limiting.
func New(c *client.Client, progressFunc func(Progress), rateLimitBps int64) *Capturer {
	if c == nil {
		c = client.New()
	}
	return &Capturer{
		Client:       c,
		ProgressFunc: progressFunc,
		Clock:        time.Now,
		rateLimitBps: rateLimitBps,
		log:          logger.WithComponent(logger.ComponentCapture),
	}
}

// SetLogger replaces the component logger.
func (c *Capturer) SetLogger(l *logger.Logger) {
	c.log = l.WithComponent(logger.ComponentCapture)
}

func (c *Capturer) now() time.Time {
	if c.Clock == nil {
		return time.Now()
	}
	return c.Clock()
}

// Capture truncates dest and copies the stream at location into it.
//
// The returned outcome is STREAM_ENDED when the stream is exhausted,
// TIME_LIMIT_REACHED once timeLimit > 0 has elapsed, and CONNECTION_FAILED
// when the stream could not be opened, broke off, stalled for longer than
// the client's stall timeout, or ctx was cancelled. The limit is checked
// after every chunk and also interrupts a read that blocks past it.
//
// A non-nil error means the destination itself could not be written; such
// errors are not worth retrying.
func (c *Capturer) Capture(ctx context.Context, location, dest string, timeLimit time.Duration) (out types.CaptureOutcome, err error) {
	start := c.now()

	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, destinationFileMode)
	if err != nil {
		return types.CaptureOutcome{}, fmt.Errorf("open destination: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close destination: %w", cerr)
		}
	}()

	attemptCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	if timeLimit > 0 {
		deadline := time.AfterFunc(timeLimit, func() { cancel(errTimeLimit) })
		defer deadline.Stop()
	}
	stallAfter := c.Client.StallAfter()
	stall := time.AfterFunc(stallAfter, func() { cancel(fmt.Errorf("%w: nothing received for %v", ErrStalled, stallAfter)) })
	defer stall.Stop()

	limitReached := func() types.CaptureOutcome {
		out.StoppedReason = types.TimeLimitReached
		out.Elapsed = c.now().Sub(start)
		c.log.Info("Time limit reached", map[string]interface{}{"bytes": out.BytesWritten, "elapsed": out.Elapsed.String()})
		return out
	}
	// interrupted classifies an error seen while the attempt context may
	// have been cancelled by one of the timers.
	interrupted := func(cause error) types.CaptureOutcome {
		if ctxErr := ctx.Err(); ctxErr != nil {
			cause = ctxErr
		} else if attemptErr := context.Cause(attemptCtx); attemptErr != nil {
			if errors.Is(attemptErr, errTimeLimit) {
				return limitReached()
			}
			cause = attemptErr
		}
		o := types.CaptureOutcome{
			BytesWritten:  out.BytesWritten,
			StoppedReason: types.ConnectionFailed,
			Elapsed:       c.now().Sub(start),
			Err:           cause,
		}
		c.log.Warn("Capture interrupted", map[string]interface{}{
			"bytes":   o.BytesWritten,
			"elapsed": o.Elapsed.String(),
			"error":   cause,
		})
		return o
	}

	stream, info, err := c.openStream(attemptCtx, location)
	if err != nil {
		return interrupted(err), nil
	}
	defer func() { _ = stream.Close() }()

	media := info.duration
	if timeLimit > 0 && media > timeLimit {
		media = timeLimit
	}
	c.log.Debug("Capture started", map[string]interface{}{
		"location": location,
		"size":     info.size,
		"media":    media.String(),
		"limit":    timeLimit.String(),
	})

	buf := make([]byte, copyBufferSizeBytes)
	for {
		n, rerr := stream.Read(buf)
		if n > 0 {
			stall.Reset(stallAfter)
			if _, werr := f.Write(buf[:n]); werr != nil {
				return types.CaptureOutcome{BytesWritten: out.BytesWritten, Elapsed: c.now().Sub(start)},
					fmt.Errorf("failed to write chunk: %w", werr)
			}
			out.BytesWritten += int64(n)

			elapsed := c.now().Sub(start)
			if c.ProgressFunc != nil {
				p := Progress{TotalSize: info.size, DownloadedSize: out.BytesWritten, Elapsed: elapsed, MediaDuration: media}
				if info.size > 0 {
					p.Percent = float64(out.BytesWritten) / float64(info.size) * 100
				}
				c.ProgressFunc(p)
			}
			if timeLimit > 0 && elapsed >= timeLimit {
				return limitReached(), nil
			}
			if serr := c.sleepForRate(attemptCtx, int64(n)); serr != nil {
				return interrupted(serr), nil
			}
		}
		if errors.Is(rerr, io.EOF) {
			out.StoppedReason = types.StreamEnded
			out.Elapsed = c.now().Sub(start)
			c.log.Info("Stream ended", map[string]interface{}{"bytes": out.BytesWritten, "elapsed": out.Elapsed.String()})
			return out, nil
		}
		if rerr != nil {
			return interrupted(rerr), nil
		}
	}
}

// sleepForRate enforces simple rate limit based on bytes written in this step.
func (c *Capturer) sleepForRate(ctx context.Context, written int64) error {
	if c.rateLimitBps <= 0 || written <= 0 {
		return nil
	}
	dur := time.Duration(int64(time.Second) * written / c.rateLimitBps)
	if dur <= 0 {
		return nil
	}
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
