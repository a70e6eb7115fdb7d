// Package providers implements the metered speech-to-text, chat and speech
// synthesis capabilities the pipeline stages call.
//
// Transcribe and Reply never return an error directly: the failure is
// carried on the result so the caller can record a usage log before
// deciding what to do with it.
package providers

import (
	"context"

	"github.com/olievortex/oliejournal/internal/wav"
)

// TranscribeResult is the outcome of one transcription call.
type TranscribeResult struct {
	Text          string
	BilledSeconds int
	ServiceID     int
	Err           error
}

// ReplyResult is the outcome of one chat call.
type ReplyResult struct {
	Text           string
	InputTokens    int
	OutputTokens   int
	ResponseID     string
	ConversationID string
	ServiceID      int
	Err            error
}

// TranscriptionProvider turns a local WAV file into text.
type TranscriptionProvider interface {
	Transcribe(ctx context.Context, localFile string, info wav.FormatInfo) TranscribeResult
}

// ReplyProvider holds per-user chat sessions and answers messages in them.
// DeleteSession succeeds when the session no longer exists.
type ReplyProvider interface {
	CreateSession(ctx context.Context, userID, instructions string) (string, error)
	DeleteSession(ctx context.Context, sessionID string) error
	Reply(ctx context.Context, userID, message, sessionID string) ReplyResult
}

// SynthesisProvider renders text as WAV audio.
type SynthesisProvider interface {
	Synthesize(ctx context.Context, voice, text string) ([]byte, error)
}
