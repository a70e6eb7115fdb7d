package wav

import (
	"fmt"
	"time"

	"github.com/olievortex/oliejournal/internal/common"
)

// Acceptance bounds for journal recordings.
const (
	MaxFileSize   = 9 * 1024 * 1024
	MinSampleRate = 8000
	MaxSampleRate = 48000
	BitsPerSample = 16
	MaxDuration   = 55 * time.Second
)

// EnsureAcceptable checks a parsed recording against the journal limits.
// It performs no I/O.
func EnsureAcceptable(file []byte, info FormatInfo) error {
	switch {
	case len(file) == 0:
		return &common.ValidationError{Reason: "empty", Detail: "WAV file empty"}
	case len(file) > MaxFileSize:
		return &common.ValidationError{Reason: "too large", Detail: fmt.Sprintf("WAV file %d > 9MB", len(file))}
	case info.Channels > 1:
		return &common.ValidationError{Reason: "channel count", Detail: fmt.Sprintf("WAV file has %d channels", info.Channels)}
	case info.SampleRate < MinSampleRate || info.SampleRate > MaxSampleRate:
		return &common.ValidationError{Reason: "sample rate", Detail: fmt.Sprintf("WAV file has %d sample rate", info.SampleRate)}
	case info.BitsPerSample != BitsPerSample:
		return &common.ValidationError{Reason: "bit depth", Detail: fmt.Sprintf("WAV file has %d bits per sample", info.BitsPerSample)}
	case info.Duration > MaxDuration:
		return &common.ValidationError{Reason: "duration", Detail: fmt.Sprintf("WAV file duration is %d", info.Seconds())}
	}
	return nil
}

// Inspect runs the size checks, parses the container and applies
// EnsureAcceptable. Size is checked first so oversized payloads are rejected
// without being walked.
func Inspect(file []byte) (FormatInfo, error) {
	if len(file) == 0 || len(file) > MaxFileSize {
		return FormatInfo{}, EnsureAcceptable(file, FormatInfo{})
	}

	info, err := Parse(file)
	if err != nil {
		return info, err
	}

	if err := EnsureAcceptable(file, info); err != nil {
		return info, err
	}

	return info, nil
}
