package providers

import (
	"context"
	"encoding/binary"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/olievortex/oliejournal/internal/server/models"
	"github.com/olievortex/oliejournal/internal/wav"
)

// DryRun answers every capability offline with canned output. It is used
// when no provider credentials are configured.
type DryRun struct {
	TranscriptText string
	ReplyText      string
}

func NewDryRun() *DryRun {
	return &DryRun{
		TranscriptText: "This is a dry run transcript.",
		ReplyText:      "Thanks for sharing. This is a dry run reply.",
	}
}

func (d *DryRun) Transcribe(_ context.Context, _ string, info wav.FormatInfo) TranscribeResult {
	return TranscribeResult{
		Text:          d.TranscriptText,
		BilledSeconds: info.Seconds(),
		ServiceID:     models.ServiceDryRun,
	}
}

func (d *DryRun) CreateSession(context.Context, string, string) (string, error) {
	return "conv_dryrun_" + uuid.NewString(), nil
}

func (d *DryRun) DeleteSession(context.Context, string) error { return nil }

func (d *DryRun) Reply(_ context.Context, _, message, sessionID string) ReplyResult {
	return ReplyResult{
		Text:           d.ReplyText,
		InputTokens:    len(strings.Fields(message)),
		OutputTokens:   len(strings.Fields(d.ReplyText)),
		ResponseID:     "resp_dryrun_" + uuid.NewString(),
		ConversationID: sessionID,
		ServiceID:      models.ServiceDryRun,
	}
}

// Synthesize returns a 440 Hz tone lasting one second per ten words.
func (d *DryRun) Synthesize(_ context.Context, _, text string) ([]byte, error) {
	seconds := len(strings.Fields(text))/10 + 1
	samples := seconds * SpeechSampleRate

	pcm := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		v := int16(math.Sin(2*math.Pi*440*float64(i)/SpeechSampleRate) * 8000)
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}
	return wav.Encode(pcm, SpeechSampleRate, SpeechChannels, SpeechBitsPerSample), nil
}
