package entries

import (
	"context"
	"time"

	"github.com/olievortex/oliejournal/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, entry *models.Entry) (bool, error)
	Get(ctx context.Context, id int64) (*models.Entry, error)
	GetForUser(ctx context.Context, id int64, userID string) (*models.Entry, error)
	GetByHash(ctx context.Context, userID, hash string) (*models.Entry, error)
	ListForUser(ctx context.Context, userID string) ([]*models.Entry, error)
	UpdateTranscript(ctx context.Context, id int64, transcript string, at time.Time) error
	UpdateResponse(ctx context.Context, id int64, response string, at time.Time) error
	UpdateVoiceover(ctx context.Context, id int64, v Voiceover) error
	Delete(ctx context.Context, id int64) error
}

// Voiceover carries the columns written by the voiceover stage.
type Voiceover struct {
	Path           string
	Duration       int
	Length         int
	ProcessingTime int
	Created        time.Time
}
