package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/olievortex/oliejournal/internal/budget"
	"github.com/olievortex/oliejournal/internal/common"
	"github.com/olievortex/oliejournal/internal/server/models"
	"github.com/olievortex/oliejournal/internal/server/providers"
	"github.com/olievortex/oliejournal/internal/shared"
)

// ReplyStage asks the chatbot to answer an entry's transcript.
type ReplyStage struct {
	*Deps
}

// GenerateReply writes the chatbot response for entry id and enqueues the
// voiceover step. An entry that already has a response is only re-enqueued.
func (s *ReplyStage) GenerateReply(ctx context.Context, id int64) error {
	log := s.Logger.With("entry_id", id, "step", models.StepChatbot)

	entry, err := s.Repos.Entries(s.DB).Get(ctx, id)
	if err != nil {
		return fmt.Errorf("entry %d: %w", id, err)
	}

	if entry.HasResponse() {
		log.Info(ctx, "already replied")
		return s.publish(ctx, id, models.StepVoiceOver)
	}
	if !entry.HasTranscript() {
		return fmt.Errorf("%w: transcript is empty for entry %d", common.ErrInvalidState, id)
	}

	usage := s.Repos.UsageLogs(s.DB)
	summary, err := usage.ChatbotSummary(ctx, budget.Since(s.now()))
	if err != nil {
		return err
	}
	if err := budget.EnsureWithinLimit(budget.Reply, s.Settings.ReplyCeiling, summary); err != nil {
		return err
	}

	conv, err := s.conversation(ctx, entry.UserID)
	if err != nil {
		return err
	}

	start := s.now()
	res := s.Chat.Reply(ctx, entry.UserID, *entry.Transcript, conv.ID)
	if err := usage.CreateChatbotLog(ctx, chatbotLog(id, conv.ID, res, start, s.now())); err != nil {
		return err
	}

	if res.Err != nil {
		log.Error(ctx, "reply failed", "conversation_id", conv.ID,
			"error", shared.Truncate(res.Err.Error(), shared.MaxLogText))
		return fmt.Errorf("%w: reply for entry %d: %w", common.ErrProviderCall, id, res.Err)
	}
	if strings.TrimSpace(res.Text) == "" {
		log.Error(ctx, "reply is empty", "conversation_id", conv.ID)
		return fmt.Errorf("%w: empty reply for entry %d", common.ErrInvalidState, id)
	}

	if err := s.Repos.Entries(s.DB).UpdateResponse(ctx, id, res.Text, s.now()); err != nil {
		return err
	}

	log.Info(ctx, "replied", "conversation_id", conv.ID,
		"input_tokens", res.InputTokens, "output_tokens", res.OutputTokens)
	return s.publish(ctx, id, models.StepVoiceOver)
}

// conversation prunes the user's stale sessions and returns the first one
// still active, creating a session when none is left. Reuse does not touch
// the session's timestamp.
func (s *ReplyStage) conversation(ctx context.Context, userID string) (*models.Conversation, error) {
	repo := s.Repos.Conversations(s.DB)

	list, err := repo.ListActive(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var active *models.Conversation
	for _, c := range list {
		if !c.IsStale(now, s.Settings.ConversationMaxAge) {
			if active == nil {
				active = c
			}
			continue
		}

		if err := s.Chat.DeleteSession(ctx, c.ID); err != nil {
			return nil, err
		}
		if err := repo.Delete(ctx, c.ID); err != nil {
			return nil, err
		}
		s.Logger.Info(ctx, "stale conversation pruned", "conversation_id", c.ID, "user_id", userID)
	}
	if active != nil {
		return active, nil
	}

	id, err := s.Chat.CreateSession(ctx, userID, s.Settings.Instructions)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrProviderCall, err)
	}

	c := &models.Conversation{ID: id, UserID: userID, Created: now, Timestamp: now}
	if err := repo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.Logger.Info(ctx, "conversation created", "conversation_id", id, "user_id", userID)
	return c, nil
}

func chatbotLog(entryID int64, conversationID string, res providers.ReplyResult, start, end time.Time) *models.ChatbotLog {
	l := &models.ChatbotLog{
		EntryID:        entryID,
		ConversationID: conversationID,
		ServiceID:      res.ServiceID,
		Created:        end,
		ProcessingTime: int(end.Sub(start).Seconds()),
		InputTokens:    res.InputTokens,
		OutputTokens:   res.OutputTokens,
	}
	if res.ResponseID != "" {
		rid := res.ResponseID
		l.ResponseID = &rid
	}
	if res.Err != nil {
		msg := shared.Truncate(res.Err.Error(), shared.MaxLogText)
		l.Error = &msg
	}
	return l
}
