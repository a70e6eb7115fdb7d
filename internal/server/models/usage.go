package models

import "time"

// Provider service identifiers recorded on usage logs.
const (
	ServiceDryRun = 0
	ServiceOpenAI = 1
)

// TranscriptLog is one metered transcription call, successful or not.
type TranscriptLog struct {
	ID             int64
	EntryID        int64
	ServiceID      int
	Created        time.Time
	ProcessingTime int
	BilledSeconds  int
	Transcript     *string
	Error          *string
}

// ChatbotLog is one metered reply-generation call, successful or not.
type ChatbotLog struct {
	ID             int64
	EntryID        int64
	ConversationID string
	ServiceID      int
	Created        time.Time
	ProcessingTime int
	InputTokens    int
	OutputTokens   int
	Error          *string
	ResponseID     *string
}
