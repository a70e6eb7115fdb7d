package providers

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/olievortex/oliejournal/internal/server/models"
)

type conversationItem struct {
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

type createConversationRequest struct {
	Metadata map[string]string  `json:"metadata,omitempty"`
	Items    []conversationItem `json:"items,omitempty"`
}

type conversationResponse struct {
	ID string `json:"id"`
}

type createResponseRequest struct {
	Model            string `json:"model"`
	Conversation     string `json:"conversation,omitempty"`
	Input            string `json:"input"`
	SafetyIdentifier string `json:"safety_identifier,omitempty"`
}

type responseBody struct {
	ID     string `json:"id"`
	Output []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (r *responseBody) text() string {
	var sb strings.Builder
	for _, o := range r.Output {
		if o.Type != "message" {
			continue
		}
		for _, c := range o.Content {
			if c.Type == "output_text" {
				sb.WriteString(c.Text)
			}
		}
	}
	return sb.String()
}

// CreateSession opens a conversation seeded with the system instructions.
func (c *OpenAI) CreateSession(ctx context.Context, userID, instructions string) (string, error) {
	req := createConversationRequest{
		Metadata: map[string]string{"user_id": userID},
		Items:    []conversationItem{{Type: "message", Role: "developer", Content: instructions}},
	}

	var out conversationResponse
	if err := c.doJSON(ctx, "POST", "/conversations", req, &out); err != nil {
		return "", fmt.Errorf("create conversation: %w", err)
	}
	if out.ID == "" {
		return "", errors.New("create conversation: empty id")
	}
	return out.ID, nil
}

// DeleteSession removes a conversation. A conversation that is already gone
// is not an error.
func (c *OpenAI) DeleteSession(ctx context.Context, sessionID string) error {
	err := c.doJSON(ctx, "DELETE", "/conversations/"+url.PathEscape(sessionID), nil, nil)
	if err != nil && !IsNotFound(err) {
		return fmt.Errorf("delete conversation %s: %w", sessionID, err)
	}
	return nil
}

// Reply sends message into the conversation and returns the model's answer.
func (c *OpenAI) Reply(ctx context.Context, userID, message, sessionID string) ReplyResult {
	res := ReplyResult{ServiceID: models.ServiceOpenAI, ConversationID: sessionID}

	req := createResponseRequest{
		Model:            c.cfg.ChatModel,
		Conversation:     sessionID,
		Input:            message,
		SafetyIdentifier: userID,
	}

	var out responseBody
	if err := c.doJSON(ctx, "POST", "/responses", req, &out); err != nil {
		res.Err = err
		return res
	}

	res.ResponseID = out.ID
	res.InputTokens = out.Usage.InputTokens
	res.OutputTokens = out.Usage.OutputTokens
	res.Text = out.text()
	if res.Text == "" {
		res.Err = fmt.Errorf("response %s has no text output", out.ID)
	}
	return res
}
