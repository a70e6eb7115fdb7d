package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/olievortex/oliejournal/internal/common"
	"github.com/olievortex/oliejournal/internal/filex"
	"github.com/olievortex/oliejournal/internal/server/models"
	"github.com/olievortex/oliejournal/internal/server/repositories/entries"
	"github.com/olievortex/oliejournal/internal/wav"
)

// VoiceoverStage reads the chatbot response aloud. It is the last step.
type VoiceoverStage struct {
	*Deps
}

// VoiceoverPath returns the path, relative to the gold root, of a new
// voiceover file.
func VoiceoverPath(created time.Time, name string) string {
	return fmt.Sprintf("gold/audio_reply/%s/%s.mp4", created.Format("2006/01"), name)
}

// SynthesizeVoiceover renders the response of entry id, transcodes it and
// records the result. An entry that already has a voiceover is left alone.
func (s *VoiceoverStage) SynthesizeVoiceover(ctx context.Context, id int64) error {
	log := s.Logger.With("entry_id", id, "step", models.StepVoiceOver)

	entry, err := s.Repos.Entries(s.DB).Get(ctx, id)
	if err != nil {
		return fmt.Errorf("entry %d: %w", id, err)
	}

	if entry.HasVoiceover() {
		log.Info(ctx, "already voiced")
		return nil
	}
	if entry.Response == nil || strings.TrimSpace(*entry.Response) == "" {
		return fmt.Errorf("%w: response is empty for entry %d", common.ErrInvalidState, id)
	}

	start := s.now()
	audio, err := s.Speech.Synthesize(ctx, s.Settings.VoiceName, *entry.Response)
	if err != nil {
		return fmt.Errorf("%w: synthesize entry %d: %w", common.ErrProviderCall, id, err)
	}

	info, err := wav.Parse(audio)
	if err != nil {
		return fmt.Errorf("synthesized audio: %w", err)
	}

	relPath := VoiceoverPath(start, uuid.NewString())
	mp4Path := filepath.Join(s.Settings.GoldPath, relPath)
	wavPath := strings.TrimSuffix(mp4Path, ".mp4") + ".wav"

	if err := filex.WriteFile(wavPath, audio); err != nil {
		return err
	}
	err = s.Transcoder.Convert(ctx, wavPath, mp4Path)
	if rmErr := filex.RemoveIfExists(wavPath); rmErr != nil {
		log.Warn(ctx, "intermediate wav not removed", "error", rmErr)
	}
	if err != nil {
		return fmt.Errorf("transcode: %w", err)
	}

	end := s.now()
	v := entries.Voiceover{
		Path:           relPath,
		Duration:       info.Seconds(),
		Length:         len(audio),
		ProcessingTime: int(end.Sub(start).Seconds()),
		Created:        end,
	}
	if err := s.Repos.Entries(s.DB).UpdateVoiceover(ctx, id, v); err != nil {
		return err
	}

	log.Info(ctx, "voiced", "path", relPath, "seconds", v.Duration)
	return nil
}
