package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const providerOpenAI = "openai"

// OpenAIConfig configures the OpenAI HTTP client.
type OpenAIConfig struct {
	APIKey             string
	BaseURL            string
	ChatModel          string
	TranscriptionModel string
	SpeechModel        string
	Timeout            time.Duration
	RetryMaxElapsed    time.Duration
}

// OpenAI talks to the OpenAI REST API. One value implements
// TranscriptionProvider, ReplyProvider and SynthesisProvider.
type OpenAI struct {
	cfg        OpenAIConfig
	httpClient *http.Client
	newBackOff func() backoff.BackOff
}

func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.RetryMaxElapsed <= 0 {
		cfg.RetryMaxElapsed = time.Minute
	}

	c := &OpenAI{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
	c.newBackOff = func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.MaxElapsedTime = c.cfg.RetryMaxElapsed
		return b
	}
	return c
}

type openAIErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

func newAPIError(status int, body []byte) *APIError {
	e := &APIError{Provider: providerOpenAI, StatusCode: status}

	var parsed openAIErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		e.Message = parsed.Error.Message
		if parsed.Error.Code != nil {
			e.Code = fmt.Sprint(parsed.Error.Code)
		}
		return e
	}

	e.Message = strings.TrimSpace(string(body))
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

// do sends one request, retrying transport failures, 429 and 5xx responses
// with exponential backoff. Other API errors are returned at once.
func (c *OpenAI) do(ctx context.Context, method, path, contentType string, body []byte) ([]byte, error) {
	op := func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode >= 300 {
			apiErr := newAPIError(resp.StatusCode, data)
			if apiErr.IsRetryable() {
				return nil, apiErr
			}
			return nil, backoff.Permanent(apiErr)
		}
		return data, nil
	}

	return backoff.RetryWithData(op, backoff.WithContext(c.newBackOff(), ctx))
}

func (c *OpenAI) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		b, err := jsonBody(in)
		if err != nil {
			return err
		}
		body = b
	}

	data, err := c.do(ctx, method, path, "application/json", body)
	if err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func jsonBody(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return b, nil
}
