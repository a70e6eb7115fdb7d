package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/olievortex/oliejournal/internal/wav"
)

// Raw PCM parameters of the speech endpoint's "pcm" response format.
const (
	SpeechSampleRate    = 24000
	SpeechChannels      = 1
	SpeechBitsPerSample = 16
)

type speechRequest struct {
	Model          string `json:"model"`
	Voice          string `json:"voice"`
	Input          string `json:"input"`
	ResponseFormat string `json:"response_format"`
}

// Synthesize renders text with the given voice and returns it as a WAV file.
func (c *OpenAI) Synthesize(ctx context.Context, voice, text string) ([]byte, error) {
	body, err := jsonBody(speechRequest{
		Model:          c.cfg.SpeechModel,
		Voice:          voice,
		Input:          text,
		ResponseFormat: "pcm",
	})
	if err != nil {
		return nil, err
	}

	pcm, err := c.do(ctx, "POST", "/audio/speech", "application/json", body)
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}
	if len(pcm) == 0 {
		return nil, errors.New("synthesize: empty audio")
	}

	return wav.Encode(pcm, SpeechSampleRate, SpeechChannels, SpeechBitsPerSample), nil
}
