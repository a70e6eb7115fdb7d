// Package entries provides the PostgreSQL-backed repository for journal
// entries.
package entries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/olievortex/oliejournal/internal/common"
	"github.com/olievortex/oliejournal/internal/dbx"
	"github.com/olievortex/oliejournal/internal/server/models"
)

const entryColumns = `id, user_id, created, audio_path, audio_length, audio_duration, audio_channels,
	audio_sample_rate, audio_bits_per_sample, audio_hash, latitude, longitude,
	transcript, transcript_created, response, response_created,
	voiceover_path, voiceover_created, voiceover_duration, voiceover_length, voiceover_processing_time`

// PostgresRepository implements entry storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts entry and fills entry.ID. When the user already has an entry
// with the same audio hash nothing is inserted, entry is overwritten with the
// stored row and false is returned.
func (r *PostgresRepository) Create(ctx context.Context, entry *models.Entry) (bool, error) {
	query := `
		INSERT INTO journal_entries (user_id, created, audio_path, audio_length, audio_duration,
			audio_channels, audio_sample_rate, audio_bits_per_sample, audio_hash, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id, audio_hash) DO NOTHING
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		entry.UserID, entry.Created, entry.AudioPath, entry.AudioLength, entry.AudioDuration,
		entry.AudioChannels, entry.AudioSampleRate, entry.AudioBitsPerSample, entry.AudioHash,
		entry.Latitude, entry.Longitude,
	).Scan(&entry.ID)

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, sql.ErrNoRows):
		existing, err := r.GetByHash(ctx, entry.UserID, entry.AudioHash)
		if err != nil {
			return false, err
		}
		*entry = *existing
		return false, nil
	default:
		return false, fmt.Errorf("db error: %w", err)
	}
}

// Get returns the entry with id or common.ErrNotFound.
func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM journal_entries WHERE id=$1`
	return r.getOne(ctx, query, id)
}

// GetForUser returns the entry with id only if userID owns it.
func (r *PostgresRepository) GetForUser(ctx context.Context, id int64, userID string) (*models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM journal_entries WHERE id=$1 AND user_id=$2`
	return r.getOne(ctx, query, id, userID)
}

// GetByHash returns the user's entry for a content hash.
func (r *PostgresRepository) GetByHash(ctx context.Context, userID, hash string) (*models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM journal_entries WHERE user_id=$1 AND audio_hash=$2`
	return r.getOne(ctx, query, userID, hash)
}

// ListForUser returns all of the user's entries, newest first.
func (r *PostgresRepository) ListForUser(ctx context.Context, userID string) ([]*models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM journal_entries WHERE user_id=$1 ORDER BY created DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select entries: %w", err)
	}
	defer rows.Close()

	var result []*models.Entry
	for rows.Next() {
		item, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateTranscript stores the transcription stage output.
func (r *PostgresRepository) UpdateTranscript(ctx context.Context, id int64, transcript string, at time.Time) error {
	query := `UPDATE journal_entries SET transcript=$2, transcript_created=$3 WHERE id=$1`
	return r.execOne(ctx, query, id, transcript, at)
}

// UpdateResponse stores the reply stage output.
func (r *PostgresRepository) UpdateResponse(ctx context.Context, id int64, response string, at time.Time) error {
	query := `UPDATE journal_entries SET response=$2, response_created=$3 WHERE id=$1`
	return r.execOne(ctx, query, id, response, at)
}

// UpdateVoiceover stores the voiceover stage output.
func (r *PostgresRepository) UpdateVoiceover(ctx context.Context, id int64, v Voiceover) error {
	query := `
		UPDATE journal_entries SET voiceover_path=$2, voiceover_duration=$3, voiceover_length=$4,
			voiceover_processing_time=$5, voiceover_created=$6
		WHERE id=$1`
	return r.execOne(ctx, query, id, v.Path, v.Duration, v.Length, v.ProcessingTime, v.Created)
}

// Delete removes the entry row. A missing row yields common.ErrNotFound.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	return r.execOne(ctx, `DELETE FROM journal_entries WHERE id=$1`, id)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.Entry, error) {
	item, err := scanEntry(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return item, nil
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*models.Entry, error) {
	var e models.Entry
	err := s.Scan(
		&e.ID, &e.UserID, &e.Created, &e.AudioPath, &e.AudioLength, &e.AudioDuration, &e.AudioChannels,
		&e.AudioSampleRate, &e.AudioBitsPerSample, &e.AudioHash, &e.Latitude, &e.Longitude,
		&e.Transcript, &e.TranscriptCreated, &e.Response, &e.ResponseCreated,
		&e.VoiceoverPath, &e.VoiceoverCreated, &e.VoiceoverDuration, &e.VoiceoverLength, &e.VoiceoverProcessingTime,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
