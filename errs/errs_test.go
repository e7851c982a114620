package errs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ytget/linkedin-dl/types"
)

func TestErrorConstants(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "ErrInvalidQuality",
			err:      ErrInvalidQuality,
			expected: "invalid quality",
		},
		{
			name:     "ErrPageUnavailable",
			err:      ErrPageUnavailable,
			expected: "page unavailable",
		},
		{
			name:     "ErrNoRenditionsFound",
			err:      ErrNoRenditionsFound,
			expected: "no renditions found",
		},
		{
			name:     "ErrConnectionFailed",
			err:      ErrConnectionFailed,
			expected: "connection failed",
		},
		{
			name:     "ErrDownloadFailed",
			err:      ErrDownloadFailed,
			expected: "download failed",
		},
		{
			name:     "ErrInvalidRequest",
			err:      ErrInvalidRequest,
			expected: "invalid request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.expected {
				t.Errorf("Expected error message '%s', got '%s'", tt.expected, tt.err.Error())
			}
		})
	}
}

func TestErrorUniqueness(t *testing.T) {
	errorList := []error{
		ErrInvalidQuality,
		ErrPageUnavailable,
		ErrNoRenditionsFound,
		ErrConnectionFailed,
		ErrDownloadFailed,
		ErrInvalidRequest,
	}

	for i, err1 := range errorList {
		for j, err2 := range errorList {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("Error %d and %d should not be equal", i, j)
			}
		}
	}
}

func TestDownloadFailedError(t *testing.T) {
	cause := errors.New("connection reset by peer")
	var err error = &DownloadFailedError{Attempts: 3, LastReason: types.ConnectionFailed, Err: cause}

	if !errors.Is(err, ErrDownloadFailed) {
		t.Error("Expected errors.Is(err, ErrDownloadFailed)")
	}
	if !errors.Is(err, ErrConnectionFailed) {
		t.Error("Expected errors.Is(err, ErrConnectionFailed)")
	}
	if !errors.Is(err, cause) {
		t.Error("Expected errors.Is(err, cause)")
	}
	if errors.Is(err, ErrPageUnavailable) {
		t.Error("Did not expect errors.Is(err, ErrPageUnavailable)")
	}

	wrapped := fmt.Errorf("run: %w", err)
	var dfe *DownloadFailedError
	if !errors.As(wrapped, &dfe) {
		t.Fatal("Expected errors.As to find *DownloadFailedError")
	}
	if dfe.Attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", dfe.Attempts)
	}

	msg := err.Error()
	for _, part := range []string{"download failed", "3 attempt(s)", "CONNECTION_FAILED", "connection reset by peer"} {
		if !strings.Contains(msg, part) {
			t.Errorf("Expected message %q to contain %q", msg, part)
		}
	}
}

func TestDownloadFailedErrorCancelled(t *testing.T) {
	err := &DownloadFailedError{Attempts: 1, LastReason: types.ConnectionFailed, Err: context.Canceled}
	if !errors.Is(err, context.Canceled) {
		t.Error("Expected cancellation to be visible through errors.Is")
	}
	if (&DownloadFailedError{Attempts: 2, LastReason: types.ConnectionFailed}).Error() != "download failed after 2 attempt(s): CONNECTION_FAILED" {
		t.Error("Unexpected message without cause")
	}
}
