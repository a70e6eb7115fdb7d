package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// parseEnv overlays OLIEJOURNAL_* environment variables. Unset or
// malformed values keep the current setting.
func parseEnv(c *Config) {
	c.DatabaseDSN = getEnv("OLIEJOURNAL_DATABASE_DSN", c.DatabaseDSN)

	c.S3User = getEnv("OLIEJOURNAL_S3_USER", c.S3User)
	c.S3Password = getEnv("OLIEJOURNAL_S3_PASSWORD", c.S3Password)
	c.S3Bucket = getEnv("OLIEJOURNAL_S3_BUCKET", c.S3Bucket)
	c.S3Region = getEnv("OLIEJOURNAL_S3_REGION", c.S3Region)
	c.S3BaseEndpoint = getEnv("OLIEJOURNAL_S3_BASE_ENDPOINT", c.S3BaseEndpoint)

	c.QueueURL = getEnv("OLIEJOURNAL_QUEUE_URL", c.QueueURL)
	c.QueueRegion = getEnv("OLIEJOURNAL_QUEUE_REGION", c.QueueRegion)
	c.QueueBaseEndpoint = getEnv("OLIEJOURNAL_QUEUE_BASE_ENDPOINT", c.QueueBaseEndpoint)
	c.QueueWait = getEnvDuration("OLIEJOURNAL_QUEUE_WAIT", c.QueueWait)
	c.QueueVisibilityTimeout = getEnvDuration("OLIEJOURNAL_QUEUE_VISIBILITY_TIMEOUT", c.QueueVisibilityTimeout)

	c.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIBaseURL = getEnv("OLIEJOURNAL_OPENAI_BASE_URL", c.OpenAIBaseURL)
	c.OpenAIChatModel = getEnv("OLIEJOURNAL_OPENAI_CHAT_MODEL", c.OpenAIChatModel)
	c.OpenAITranscriptionModel = getEnv("OLIEJOURNAL_OPENAI_TRANSCRIPTION_MODEL", c.OpenAITranscriptionModel)
	c.OpenAISpeechModel = getEnv("OLIEJOURNAL_OPENAI_SPEECH_MODEL", c.OpenAISpeechModel)
	c.VoiceName = getEnv("OLIEJOURNAL_VOICE_NAME", c.VoiceName)
	c.ChatbotInstructions = getEnv("OLIEJOURNAL_CHATBOT_INSTRUCTIONS", c.ChatbotInstructions)

	c.FfmpegPath = getEnv("OLIEJOURNAL_FFMPEG_PATH", c.FfmpegPath)
	c.GoldPath = getEnv("OLIEJOURNAL_GOLD_PATH", c.GoldPath)
	c.ScratchDir = getEnv("OLIEJOURNAL_SCRATCH_DIR", c.ScratchDir)

	c.TranscriptionCeiling = getEnvFloat("OLIEJOURNAL_TRANSCRIPTION_CEILING", c.TranscriptionCeiling)
	c.ReplyCeiling = getEnvFloat("OLIEJOURNAL_REPLY_CEILING", c.ReplyCeiling)

	c.WorkerCount = getEnvInt("OLIEJOURNAL_WORKER_COUNT", c.WorkerCount)
	c.LogFormat = getEnv("OLIEJOURNAL_LOG_FORMAT", c.LogFormat)
	c.LogLevel = getEnv("OLIEJOURNAL_LOG_LEVEL", c.LogLevel)
	c.DryRun = getEnvBool("OLIEJOURNAL_DRY_RUN", c.DryRun)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
