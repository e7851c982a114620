package linkedindl

import (
	"fmt"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/ytget/linkedin-dl/errs"
	"github.com/ytget/linkedin-dl/types"
)

// Defaults applied by NewRequest.
const (
	DefaultMaxAttempts = 10
	DefaultRetryDelay  = time.Duration(0)
)

var sourceURLRe = regexp.MustCompile(`^https?://\S+$`)

// RequestOption adjusts a request built by NewRequest.
type RequestOption func(*types.DownloadRequest)

// WithMaxAttempts sets how many captures may be tried, counting the first.
func WithMaxAttempts(n int) RequestOption {
	return func(r *types.DownloadRequest) { r.MaxAttempts = n }
}

// WithRetryDelay sets the wait between failed captures.
func WithRetryDelay(d time.Duration) RequestOption {
	return func(r *types.DownloadRequest) { r.RetryDelay = d }
}

// WithTimeLimit bounds each capture in wall-clock time. Zero means unbounded.
func WithTimeLimit(d time.Duration) RequestOption {
	return func(r *types.DownloadRequest) { r.TimeLimit = d }
}

// WithQuality selects the rendition bitrate.
func WithQuality(q types.Quality) RequestOption {
	return func(r *types.DownloadRequest) { r.Quality = q }
}

// NewRequest builds a validated request with defaults for everything not
// set by opts: DefaultMaxAttempts, DefaultRetryDelay, no time limit and
// types.DefaultQuality.
//
// Validation failures match errs.ErrInvalidRequest; an unsupported quality
// also matches errs.ErrInvalidQuality.
func NewRequest(sourceURL, destinationPath string, opts ...RequestOption) (types.DownloadRequest, error) {
	req := types.DownloadRequest{
		SourceURL:       sourceURL,
		DestinationPath: destinationPath,
		MaxAttempts:     DefaultMaxAttempts,
		RetryDelay:      DefaultRetryDelay,
		Quality:         types.DefaultQuality,
	}
	for _, opt := range opts {
		opt(&req)
	}
	if err := validateRequest(&req); err != nil {
		return types.DownloadRequest{}, err
	}
	return req, nil
}

func qualityValues() []interface{} {
	out := make([]interface{}, len(types.Qualities))
	for i, q := range types.Qualities {
		out[i] = q
	}
	return out
}

func validateRequest(req *types.DownloadRequest) error {
	err := validation.ValidateStruct(req,
		validation.Field(&req.SourceURL, validation.Required, validation.Match(sourceURLRe)),
		validation.Field(&req.DestinationPath, validation.Required),
		validation.Field(&req.MaxAttempts, validation.Required, validation.Min(1)),
		validation.Field(&req.RetryDelay, validation.Min(0)),
		validation.Field(&req.TimeLimit, validation.Min(0)),
		validation.Field(&req.Quality, validation.Required, validation.In(qualityValues()...)),
	)
	if err == nil {
		return nil
	}
	if ve, ok := err.(validation.Errors); ok {
		if _, bad := ve["Quality"]; bad {
			return fmt.Errorf("%w: %w: %w", errs.ErrInvalidRequest, errs.ErrInvalidQuality, err)
		}
	}
	return fmt.Errorf("%w: %w", errs.ErrInvalidRequest, err)
}
