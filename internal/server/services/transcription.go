package services

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/olievortex/oliejournal/internal/budget"
	"github.com/olievortex/oliejournal/internal/common"
	"github.com/olievortex/oliejournal/internal/filex"
	"github.com/olievortex/oliejournal/internal/server/models"
	"github.com/olievortex/oliejournal/internal/server/providers"
	"github.com/olievortex/oliejournal/internal/shared"
	"github.com/olievortex/oliejournal/internal/wav"
)

// TranscriptionStage turns an entry's audio into text.
type TranscriptionStage struct {
	*Deps
}

// Transcribe writes the transcript for entry id and enqueues the chatbot
// step. An entry that already has a transcript is only re-enqueued.
func (s *TranscriptionStage) Transcribe(ctx context.Context, id int64) error {
	log := s.Logger.With("entry_id", id, "step", models.StepTranscript)

	entry, err := s.Repos.Entries(s.DB).Get(ctx, id)
	if err != nil {
		return fmt.Errorf("entry %d: %w", id, err)
	}

	if entry.HasTranscript() {
		log.Info(ctx, "already transcribed")
		return s.publish(ctx, id, models.StepChatbot)
	}

	usage := s.Repos.UsageLogs(s.DB)
	summary, err := usage.TranscriptSummary(ctx, budget.Since(s.now()))
	if err != nil {
		return err
	}
	if err := budget.EnsureWithinLimit(budget.Transcription, s.Settings.TranscriptionCeiling, summary); err != nil {
		return err
	}

	localFile, err := s.audioFile(ctx, entry.AudioPath)
	if err != nil {
		return err
	}

	b, err := os.ReadFile(localFile)
	if err != nil {
		return fmt.Errorf("read audio: %w", err)
	}
	info, err := wav.Parse(b)
	if err != nil {
		return err
	}

	log.Info(ctx, "transcribing", "seconds", info.Seconds())

	start := s.now()
	res := s.Transcriber.Transcribe(ctx, localFile, info)
	if err := usage.CreateTranscriptLog(ctx, transcriptLog(id, res, start, s.now())); err != nil {
		return err
	}

	if res.Err != nil {
		log.Error(ctx, "transcription failed", "error", shared.Truncate(res.Err.Error(), shared.MaxLogText))
		return fmt.Errorf("%w: transcribe entry %d: %w", common.ErrProviderCall, id, res.Err)
	}
	if strings.TrimSpace(res.Text) == "" {
		return fmt.Errorf("%w: empty transcript for entry %d", common.ErrInvalidState, id)
	}

	if err := s.Repos.Entries(s.DB).UpdateTranscript(ctx, id, res.Text, s.now()); err != nil {
		return err
	}
	if err := filex.RemoveIfExists(localFile); err != nil {
		log.Warn(ctx, "scratch audio not removed", "error", err)
	}

	log.Info(ctx, "transcribed", "billed_seconds", res.BilledSeconds)
	return s.publish(ctx, id, models.StepChatbot)
}

// audioFile returns the scratch copy of the recording, downloading it from
// the blob store when ingestion's copy is gone.
func (s *TranscriptionStage) audioFile(ctx context.Context, blobPath string) (string, error) {
	local := s.scratchPath(blobPath)
	if filex.Exists(local) {
		return local, nil
	}

	if err := filex.EnsureParentDir(local); err != nil {
		return "", err
	}
	if err := s.Blobs.Download(ctx, blobPath, local); err != nil {
		return "", fmt.Errorf("download %s: %w", blobPath, err)
	}
	return local, nil
}

func transcriptLog(entryID int64, res providers.TranscribeResult, start, end time.Time) *models.TranscriptLog {
	l := &models.TranscriptLog{
		EntryID:        entryID,
		ServiceID:      res.ServiceID,
		Created:        end,
		ProcessingTime: int(end.Sub(start).Seconds()),
		BilledSeconds:  res.BilledSeconds,
	}
	if res.Text != "" {
		l.Transcript = shared.TruncatePtr(&res.Text, shared.MaxLogText)
	}
	if res.Err != nil {
		msg := shared.Truncate(res.Err.Error(), shared.MaxLogText)
		l.Error = &msg
	}
	return l
}
