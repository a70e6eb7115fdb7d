package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/olievortex/oliejournal/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations
// accept strings such as "20s" as well as integer nanoseconds. Pointer
// fields distinguish "absent" from the zero value.
type JsonConfig struct {
	DatabaseDSN string `json:"database_dsn"`

	S3User         string `json:"s3_user"`
	S3Password     string `json:"s3_password"`
	S3Bucket       string `json:"s3_bucket"`
	S3Region       string `json:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint"`

	QueueURL               string          `json:"queue_url"`
	QueueRegion            string          `json:"queue_region"`
	QueueBaseEndpoint      string          `json:"queue_base_endpoint"`
	QueueWait              *timex.Duration `json:"queue_wait"`
	QueueVisibilityTimeout *timex.Duration `json:"queue_visibility_timeout"`

	OpenAIAPIKey             string `json:"openai_api_key"`
	OpenAIBaseURL            string `json:"openai_base_url"`
	OpenAIChatModel          string `json:"openai_chat_model"`
	OpenAITranscriptionModel string `json:"openai_transcription_model"`
	OpenAISpeechModel        string `json:"openai_speech_model"`
	VoiceName                string `json:"voice_name"`
	ChatbotInstructions      string `json:"chatbot_instructions"`

	FfmpegPath string `json:"ffmpeg_path"`
	GoldPath   string `json:"gold_path"`
	ScratchDir string `json:"scratch_dir"`

	TranscriptionCeiling *float64 `json:"transcription_ceiling"`
	ReplyCeiling         *float64 `json:"reply_ceiling"`

	WorkerCount *int   `json:"worker_count"`
	LogFormat   string `json:"log_format"`
	LogLevel    string `json:"log_level"`
	DryRun      *bool  `json:"dry_run"`
}

// parseJson overlays the file at path onto config. An empty path loads
// nothing; absent keys keep their current value.
func parseJson(config *Config, path string) error {
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.S3User, c.S3User)
	setString(&config.S3Password, c.S3Password)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.QueueURL, c.QueueURL)
	setString(&config.QueueRegion, c.QueueRegion)
	setString(&config.QueueBaseEndpoint, c.QueueBaseEndpoint)
	setString(&config.OpenAIAPIKey, c.OpenAIAPIKey)
	setString(&config.OpenAIBaseURL, c.OpenAIBaseURL)
	setString(&config.OpenAIChatModel, c.OpenAIChatModel)
	setString(&config.OpenAITranscriptionModel, c.OpenAITranscriptionModel)
	setString(&config.OpenAISpeechModel, c.OpenAISpeechModel)
	setString(&config.VoiceName, c.VoiceName)
	setString(&config.ChatbotInstructions, c.ChatbotInstructions)
	setString(&config.FfmpegPath, c.FfmpegPath)
	setString(&config.GoldPath, c.GoldPath)
	setString(&config.ScratchDir, c.ScratchDir)
	setString(&config.LogFormat, c.LogFormat)
	setString(&config.LogLevel, c.LogLevel)

	if c.QueueWait != nil {
		config.QueueWait = c.QueueWait.Duration
	}
	if c.QueueVisibilityTimeout != nil {
		config.QueueVisibilityTimeout = c.QueueVisibilityTimeout.Duration
	}
	if c.TranscriptionCeiling != nil {
		config.TranscriptionCeiling = *c.TranscriptionCeiling
	}
	if c.ReplyCeiling != nil {
		config.ReplyCeiling = *c.ReplyCeiling
	}
	if c.WorkerCount != nil {
		config.WorkerCount = *c.WorkerCount
	}
	if c.DryRun != nil {
		config.DryRun = *c.DryRun
	}

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
