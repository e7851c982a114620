package errs

import (
	"errors"
	"fmt"

	"github.com/ytget/linkedin-dl/types"
)

var (
	// ErrInvalidQuality indicates the requested bitrate is not a supported rendition.
	ErrInvalidQuality = errors.New("invalid quality")
	// ErrPageUnavailable indicates the source page could not be fetched.
	ErrPageUnavailable = errors.New("page unavailable")
	// ErrNoRenditionsFound indicates the page was fetched but held no stream locations.
	ErrNoRenditionsFound = errors.New("no renditions found")
	// ErrConnectionFailed indicates the stream connection dropped or could not be opened.
	ErrConnectionFailed = errors.New("connection failed")
	// ErrDownloadFailed indicates the capture did not succeed within the allowed attempts.
	ErrDownloadFailed = errors.New("download failed")
	// ErrInvalidRequest indicates a download request failed validation.
	ErrInvalidRequest = errors.New("invalid request")
)

// DownloadFailedError is returned once retries are exhausted or the download
// was cancelled between attempts.
type DownloadFailedError struct {
	Attempts   int
	LastReason types.StopReason
	// Err is the cause of the last failure, if known.
	Err error
}

// Error implements the error interface
func (e *DownloadFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s after %d attempt(s): %s: %v", ErrDownloadFailed, e.Attempts, e.LastReason, e.Err)
	}
	return fmt.Sprintf("%s after %d attempt(s): %s", ErrDownloadFailed, e.Attempts, e.LastReason)
}

// Unwrap exposes ErrDownloadFailed, ErrConnectionFailed and the cause to errors.Is.
func (e *DownloadFailedError) Unwrap() []error {
	out := []error{ErrDownloadFailed}
	if e.LastReason == types.ConnectionFailed {
		out = append(out, ErrConnectionFailed)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}
