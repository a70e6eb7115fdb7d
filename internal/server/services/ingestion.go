package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/olievortex/oliejournal/internal/common"
	"github.com/olievortex/oliejournal/internal/filex"
	"github.com/olievortex/oliejournal/internal/server/models"
	"github.com/olievortex/oliejournal/internal/shared"
	"github.com/olievortex/oliejournal/internal/wav"
)

// IngestionStage accepts uploaded recordings.
type IngestionStage struct {
	*Deps
}

// AudioBlobPath returns the blob key for a new recording.
func AudioBlobPath(created time.Time, name string) string {
	return fmt.Sprintf("bronze/audio_entry/%s/%s", created.Format("2006/01"), name)
}

// Ingest validates the recording, stores it and enqueues transcription.
// Resubmitting identical audio returns the existing entry and enqueues
// transcription again.
func (s *IngestionStage) Ingest(ctx context.Context, userID string, audio io.Reader, lat, lon *float64) (int64, error) {
	file, err := io.ReadAll(io.LimitReader(audio, wav.MaxFileSize+1))
	if err != nil {
		return 0, fmt.Errorf("read audio: %w", err)
	}
	hash := shared.HashContent(file)

	repo := s.Repos.Entries(s.DB)

	existing, err := repo.GetByHash(ctx, userID, hash)
	switch {
	case err == nil:
		s.Logger.Info(ctx, "duplicate upload", "entry_id", existing.ID, "user_id", userID)
		return existing.ID, s.publish(ctx, existing.ID, models.StepTranscript)
	case !errors.Is(err, common.ErrNotFound):
		return 0, fmt.Errorf("lookup by hash: %w", err)
	}

	info, err := wav.Inspect(file)
	if err != nil {
		return 0, err
	}

	now := s.now()
	name := uuid.NewString() + ".wav"
	blobPath := AudioBlobPath(now, name)

	dir, err := filex.EnsureDir(s.Settings.ScratchDir)
	if err != nil {
		return 0, err
	}
	localPath := filepath.Join(dir, name)
	if err := filex.WriteFile(localPath, file); err != nil {
		return 0, err
	}

	if err := s.Blobs.Upload(ctx, blobPath, localPath); err != nil {
		s.discard(ctx, "", localPath)
		return 0, fmt.Errorf("upload audio: %w", err)
	}

	entry := &models.Entry{
		UserID:             userID,
		Created:            now,
		AudioPath:          blobPath,
		AudioLength:        len(file),
		AudioDuration:      info.Seconds(),
		AudioChannels:      info.Channels,
		AudioSampleRate:    info.SampleRate,
		AudioBitsPerSample: info.BitsPerSample,
		AudioHash:          hash,
		Latitude:           lat,
		Longitude:          lon,
	}

	created, err := repo.Create(ctx, entry)
	if err != nil {
		s.discard(ctx, blobPath, localPath)
		return 0, err
	}
	if !created {
		// A concurrent upload of the same audio won; drop our copy.
		s.Logger.Info(ctx, "duplicate upload raced", "entry_id", entry.ID, "user_id", userID)
		s.discard(ctx, blobPath, localPath)
	} else {
		s.Logger.Info(ctx, "entry ingested", "entry_id", entry.ID, "user_id", userID,
			"seconds", entry.AudioDuration, "bytes", entry.AudioLength)
	}

	return entry.ID, s.publish(ctx, entry.ID, models.StepTranscript)
}

// discard removes the copies of an upload that did not become an entry.
// An empty blobPath means nothing was uploaded.
func (s *IngestionStage) discard(ctx context.Context, blobPath, localPath string) {
	if blobPath != "" {
		if err := s.Blobs.Delete(ctx, blobPath); err != nil {
			s.Logger.Warn(ctx, "orphan blob not removed", "path", blobPath, "error", err)
		}
	}
	if err := filex.RemoveIfExists(localPath); err != nil {
		s.Logger.Warn(ctx, "scratch audio not removed", "path", localPath, "error", err)
	}
}
