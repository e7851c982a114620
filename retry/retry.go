// Package retry runs a capture attempt until it succeeds, the attempt
// budget is spent, or the context is cancelled.
//
// The controller moves through these states:
//
//	ATTEMPTING -> SUCCEEDED   stream ended or time limit reached
//	ATTEMPTING -> WAITING     connection failed, attempts left
//	WAITING    -> ATTEMPTING  delay elapsed
//	ATTEMPTING -> EXHAUSTED   connection failed on the last attempt
//	any        -> CANCELLED   context done
package retry

import (
	"context"
	"time"

	"github.com/ytget/linkedin-dl/errs"
	"github.com/ytget/linkedin-dl/internal/logger"
	"github.com/ytget/linkedin-dl/types"
)

// State is a controller state.
type State int

const (
	Attempting State = iota
	Waiting
	Succeeded
	Exhausted
	Cancelled
)

func (s State) String() string {
	switch s {
	case Attempting:
		return "ATTEMPTING"
	case Waiting:
		return "WAITING"
	case Succeeded:
		return "SUCCEEDED"
	case Exhausted:
		return "EXHAUSTED"
	case Cancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// AttemptFunc performs attempt number n (starting at 1). A non-nil error is
// fatal and ends the run without retrying.
type AttemptFunc func(ctx context.Context, n int) (types.CaptureOutcome, error)

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Controller retries connection failures with a fixed delay.
type Controller struct {
	// MaxAttempts counts the first try. Values below 1 mean 1.
	MaxAttempts int
	Delay       time.Duration
	// Sleep defaults to the package Sleep.
	Sleep SleepFunc
	// OnTransition, when set, observes every state change.
	OnTransition func(from, to State, attempt int)

	log *logger.ComponentLogger
}

// New creates a controller with the default sleeper.
func New(maxAttempts int, delay time.Duration) *Controller {
	return &Controller{
		MaxAttempts: maxAttempts,
		Delay:       delay,
		Sleep:       Sleep,
		log:         logger.WithComponent(logger.ComponentRetry),
	}
}

// SetLogger replaces the component logger.
func (c *Controller) SetLogger(l *logger.Logger) {
	c.log = l.WithComponent(logger.ComponentRetry)
}

// Sleep waits for d, returning early with ctx.Err() if ctx is done first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Controller) move(from, to State, attempt int) {
	c.log.Trace("State change", map[string]interface{}{"from": from.String(), "to": to.String(), "attempt": attempt})
	if c.OnTransition != nil {
		c.OnTransition(from, to, attempt)
	}
}

// Run calls attempt until it reports a successful stop reason. The returned
// outcome is the last one produced, with Attempts set.
//
// When every attempt fails the error is an *errs.DownloadFailedError with
// Attempts equal to MaxAttempts. If ctx is cancelled the run stops at once
// and the error wraps ctx.Err(). Errors returned by attempt are passed
// through unchanged.
func (c *Controller) Run(ctx context.Context, attempt AttemptFunc) (types.CaptureOutcome, error) {
	maxAttempts := c.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	sleep := c.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	var last types.CaptureOutcome
	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			c.move(Attempting, Cancelled, n-1)
			last.Attempts = n - 1
			return last, &errs.DownloadFailedError{Attempts: n - 1, LastReason: types.ConnectionFailed, Err: err}
		}

		out, err := attempt(ctx, n)
		out.Attempts = n
		if err != nil {
			return out, err
		}
		last = out

		if out.StoppedReason.Succeeded() {
			c.move(Attempting, Succeeded, n)
			return out, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			c.move(Attempting, Cancelled, n)
			return out, &errs.DownloadFailedError{Attempts: n, LastReason: out.StoppedReason, Err: ctxErr}
		}

		if n >= maxAttempts {
			c.move(Attempting, Exhausted, n)
			c.log.Error("Giving up", map[string]interface{}{"attempts": n, "error": out.Err})
			return out, &errs.DownloadFailedError{Attempts: n, LastReason: out.StoppedReason, Err: out.Err}
		}

		c.move(Attempting, Waiting, n)
		c.log.Warn("Connection failed, trying again", map[string]interface{}{
			"attempt": n,
			"max":     maxAttempts,
			"wait":    c.Delay.String(),
			"error":   out.Err,
		})
		if err := sleep(ctx, c.Delay); err != nil {
			c.move(Waiting, Cancelled, n)
			return out, &errs.DownloadFailedError{Attempts: n, LastReason: out.StoppedReason, Err: err}
		}
		c.move(Waiting, Attempting, n+1)
	}
}
