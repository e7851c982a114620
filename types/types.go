package types

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Quality is a rendition bitrate in bits per second.
type Quality int

// Supported bitrates. The source publishes every video in these five
// renditions; nothing else is accepted.
const (
	Quality128K  Quality = 128000
	Quality400K  Quality = 400000
	Quality800K  Quality = 800000
	Quality1600K Quality = 1600000
	Quality3200K Quality = 3200000

	// DefaultQuality is used when the caller does not ask for a bitrate.
	DefaultQuality = Quality3200K
)

// Qualities lists the supported bitrates in ascending order.
var Qualities = []Quality{Quality128K, Quality400K, Quality800K, Quality1600K, Quality3200K}

// Valid reports whether q is one of the supported bitrates.
func (q Quality) Valid() bool {
	for _, v := range Qualities {
		if q == v {
			return true
		}
	}
	return false
}

func (q Quality) String() string {
	return strconv.Itoa(int(q))
}

// ParseQuality parses a decimal bitrate. It does not check membership;
// use Valid for that.
func ParseQuality(s string) (Quality, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse quality %q: %w", s, err)
	}
	return Quality(v), nil
}

// RenditionSet maps a bitrate to the location of its stream.
type RenditionSet map[Quality]string

// Sorted returns the bitrates present in the set in ascending order.
func (s RenditionSet) Sorted() []Quality {
	out := make([]Quality, 0, len(s))
	for q := range s {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SelectedRendition is the rendition chosen for one download.
type SelectedRendition struct {
	Quality  Quality
	Location string
}

// StopReason tells why a capture attempt ended.
type StopReason int

const (
	StreamEnded StopReason = iota
	TimeLimitReached
	ConnectionFailed
)

var stopReasonNames = map[StopReason]string{
	StreamEnded:      "STREAM_ENDED",
	TimeLimitReached: "TIME_LIMIT_REACHED",
	ConnectionFailed: "CONNECTION_FAILED",
}

func (r StopReason) String() string {
	if name, ok := stopReasonNames[r]; ok {
		return name
	}
	return "UNKNOWN"
}

// Succeeded reports whether the reason is a successful terminal outcome.
func (r StopReason) Succeeded() bool {
	return r == StreamEnded || r == TimeLimitReached
}

// CaptureOutcome describes how one capture attempt ended.
type CaptureOutcome struct {
	BytesWritten  int64
	StoppedReason StopReason
	// Attempts is the number of attempts made, set by the retry controller.
	Attempts int
	// Elapsed is the wall-clock duration of the attempt.
	Elapsed time.Duration
	// Err is the transport error behind a ConnectionFailed outcome.
	Err error
	// Destination is the file written, set by the orchestrator.
	Destination string
}

// DownloadRequest holds the parameters of one download. Build it with
// linkedindl.NewRequest so that defaults and validation are applied.
type DownloadRequest struct {
	SourceURL string
	// DestinationPath is the file to write. When it names an existing
	// directory, a file name is derived from the source URL.
	DestinationPath string
	MaxAttempts     int
	RetryDelay      time.Duration
	// TimeLimit bounds the capture in wall-clock time. Zero means unbounded.
	TimeLimit time.Duration
	Quality   Quality
}
