package config

import (
	"flag"
	"io"

	"github.com/olievortex/oliejournal/internal/flagx"
)

// Flags recognized on the command line. Anything else in args is ignored.
var knownFlags = []string{"-d", "-q", "-b", "-e", "-k", "-w", "-g", "-s", "-t", "-r", "-l", "-f", "-n"}

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   PostgreSQL DSN
//	-q string   SQS queue URL
//	-b string   S3 bucket name
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-k string   OpenAI API key
//	-w int      number of queue consumers
//	-g string   gold path (local voiceover root)
//	-s string   scratch directory
//	-t float    transcription budget ceiling, dollars per 30 days
//	-r float    reply budget ceiling, dollars per 30 days
//	-l string   log level (debug, info, warn, error)
//	-f string   log format (json, text, logrus)
//	-n          dry run: offline providers, no OpenAI calls
//
// Queue timings and provider models are set through the JSON file or the
// environment only.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("oliejournal", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.QueueURL, "q", config.QueueURL, "SQS queue URL")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.OpenAIAPIKey, "k", config.OpenAIAPIKey, "OpenAI API key")
	fs.IntVar(&config.WorkerCount, "w", config.WorkerCount, "number of queue consumers")
	fs.StringVar(&config.GoldPath, "g", config.GoldPath, "gold path")
	fs.StringVar(&config.ScratchDir, "s", config.ScratchDir, "scratch directory")
	fs.Float64Var(&config.TranscriptionCeiling, "t", config.TranscriptionCeiling, "transcription ceiling (dollars)")
	fs.Float64Var(&config.ReplyCeiling, "r", config.ReplyCeiling, "reply ceiling (dollars)")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.LogFormat, "f", config.LogFormat, "log format")
	fs.BoolVar(&config.DryRun, "n", config.DryRun, "dry run")

	return fs.Parse(args)
}
