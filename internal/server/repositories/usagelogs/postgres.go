// Package usagelogs persists the append-only audit trail of metered
// provider calls and aggregates it for budget checks.
package usagelogs

import (
	"context"
	"fmt"
	"time"

	"github.com/olievortex/oliejournal/internal/budget"
	"github.com/olievortex/oliejournal/internal/dbx"
	"github.com/olievortex/oliejournal/internal/server/models"
)

// PostgresRepository implements usage log storage over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateTranscriptLog appends a transcription log row and fills l.ID.
func (r *PostgresRepository) CreateTranscriptLog(ctx context.Context, l *models.TranscriptLog) error {
	query := `
		INSERT INTO transcript_logs (entry_id, service_id, created, processing_time, billed_seconds, transcript, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		l.EntryID, l.ServiceID, l.Created, l.ProcessingTime, l.BilledSeconds, l.Transcript, l.Error,
	).Scan(&l.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// CreateChatbotLog appends a reply-generation log row and fills l.ID.
func (r *PostgresRepository) CreateChatbotLog(ctx context.Context, l *models.ChatbotLog) error {
	query := `
		INSERT INTO chatbot_logs (entry_id, conversation_id, service_id, created, processing_time,
			input_tokens, output_tokens, error, response_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		l.EntryID, l.ConversationID, l.ServiceID, l.Created, l.ProcessingTime,
		l.InputTokens, l.OutputTokens, l.Error, l.ResponseID,
	).Scan(&l.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// TranscriptSummary sums billed seconds logged at or after since.
func (r *PostgresRepository) TranscriptSummary(ctx context.Context, since time.Time) (budget.UsageSummary, error) {
	var s budget.UsageSummary
	query := `SELECT COALESCE(SUM(billed_seconds), 0) FROM transcript_logs WHERE created >= $1`
	if err := r.db.QueryRowContext(ctx, query, since).Scan(&s.Seconds); err != nil {
		return s, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

// ChatbotSummary sums input and output tokens logged at or after since.
func (r *PostgresRepository) ChatbotSummary(ctx context.Context, since time.Time) (budget.UsageSummary, error) {
	var s budget.UsageSummary
	query := `
		SELECT COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0)
		FROM chatbot_logs WHERE created >= $1
	`
	if err := r.db.QueryRowContext(ctx, query, since).Scan(&s.InputTokens, &s.OutputTokens); err != nil {
		return s, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}
