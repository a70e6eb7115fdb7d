package conversations

import (
	"context"

	"github.com/olievortex/oliejournal/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, c *models.Conversation) error
	ListActive(ctx context.Context, userID string) ([]*models.Conversation, error)
	Delete(ctx context.Context, id string) error
}
