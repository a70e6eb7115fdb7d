package usagelogs

import (
	"context"
	"time"

	"github.com/olievortex/oliejournal/internal/budget"
	"github.com/olievortex/oliejournal/internal/server/models"
)

type Repository interface {
	CreateTranscriptLog(ctx context.Context, l *models.TranscriptLog) error
	CreateChatbotLog(ctx context.Context, l *models.ChatbotLog) error
	TranscriptSummary(ctx context.Context, since time.Time) (budget.UsageSummary, error)
	ChatbotSummary(ctx context.Context, since time.Time) (budget.UsageSummary, error)
}
