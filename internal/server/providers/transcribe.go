package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/olievortex/oliejournal/internal/server/models"
	"github.com/olievortex/oliejournal/internal/wav"
)

type transcriptionResponse struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
}

// Transcribe uploads localFile to the transcription endpoint. Billed seconds
// come from the duration the API reports, falling back to the parsed WAV
// duration. Failed calls bill nothing.
func (c *OpenAI) Transcribe(ctx context.Context, localFile string, info wav.FormatInfo) TranscribeResult {
	res := TranscribeResult{ServiceID: models.ServiceOpenAI}

	audio, err := os.ReadFile(localFile)
	if err != nil {
		res.Err = fmt.Errorf("read audio: %w", err)
		return res
	}

	body, contentType, err := transcriptionForm(filepath.Base(localFile), audio, c.cfg.TranscriptionModel)
	if err != nil {
		res.Err = err
		return res
	}

	data, err := c.do(ctx, "POST", "/audio/transcriptions", contentType, body)
	if err != nil {
		res.Err = err
		return res
	}

	var out transcriptionResponse
	if err := json.Unmarshal(data, &out); err != nil {
		res.Err = fmt.Errorf("decode transcription: %w", err)
		return res
	}

	res.Text = out.Text
	res.BilledSeconds = info.Seconds()
	if out.Duration > 0 {
		res.BilledSeconds = int(math.Ceil(out.Duration))
	}
	return res
}

func transcriptionForm(filename string, audio []byte, model string) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fw, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := fw.Write(audio); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("model", model); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("response_format", "verbose_json"); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}
