// Package conversations stores the chat sessions the reply stage keeps open
// with the conversational provider.
package conversations

import (
	"context"
	"fmt"

	"github.com/olievortex/oliejournal/internal/dbx"
	"github.com/olievortex/oliejournal/internal/server/models"
)

// PostgresRepository implements conversation storage over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create records a provider-assigned conversation id for a user.
func (r *PostgresRepository) Create(ctx context.Context, c *models.Conversation) error {
	query := `INSERT INTO conversations (id, user_id, created, timestamp) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, c.ID, c.UserID, c.Created, c.Timestamp); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// ListActive returns the user's conversations, oldest first.
func (r *PostgresRepository) ListActive(ctx context.Context, userID string) ([]*models.Conversation, error) {
	query := `SELECT id, user_id, created, timestamp FROM conversations WHERE user_id=$1 ORDER BY created, id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select conversations: %w", err)
	}
	defer rows.Close()

	var result []*models.Conversation
	for rows.Next() {
		var c models.Conversation
		if err := rows.Scan(&c.ID, &c.UserID, &c.Created, &c.Timestamp); err != nil {
			return nil, err
		}
		result = append(result, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes a conversation. Deleting an id that is already gone
// succeeds.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM conversations WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if _, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	return nil
}
