// Package services implements the journal pipeline: the ingestion,
// transcription, reply and voiceover stages and the Pipeline that chains
// them through queue messages.
package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/olievortex/oliejournal/internal/common"
	"github.com/olievortex/oliejournal/internal/dbx"
	"github.com/olievortex/oliejournal/internal/logging"
	"github.com/olievortex/oliejournal/internal/server/models"
	"github.com/olievortex/oliejournal/internal/server/providers"
	"github.com/olievortex/oliejournal/internal/server/repositories/repomanager"
)

// BlobStore keeps the durable copy of uploaded audio.
type BlobStore interface {
	Upload(ctx context.Context, key, localFile string) error
	Download(ctx context.Context, key, localFile string) error
	Delete(ctx context.Context, key string) error
}

// Publisher enqueues the next pipeline step.
type Publisher interface {
	Publish(ctx context.Context, msg models.Message) error
}

// Transcoder converts a WAV file into the delivery format.
type Transcoder interface {
	Convert(ctx context.Context, input, output string) error
}

// Settings are the tunables the stages read.
type Settings struct {
	ScratchDir           string
	GoldPath             string
	VoiceName            string
	Instructions         string
	TranscriptionCeiling float64
	ReplyCeiling         float64
	ConversationMaxAge   time.Duration
}

// DefaultConversationMaxAge is how long a chat session may sit untouched
// before it is pruned.
const DefaultConversationMaxAge = 3 * 24 * time.Hour

// Deps are the collaborators shared by every stage.
type Deps struct {
	DB          dbx.DBTX
	Repos       repomanager.RepositoryManager
	Blobs       BlobStore
	Queue       Publisher
	Transcriber providers.TranscriptionProvider
	Chat        providers.ReplyProvider
	Speech      providers.SynthesisProvider
	Transcoder  Transcoder
	Logger      logging.Logger
	Settings    Settings

	// Now defaults to time.Now in UTC.
	Now func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now().UTC()
}

func (d *Deps) scratchPath(blobPath string) string {
	return filepath.Join(d.Settings.ScratchDir, filepath.Base(blobPath))
}

// inTx runs fn in a transaction when DB can start one, and directly on DB
// otherwise.
func (d *Deps) inTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	if db, ok := d.DB.(dbx.TxStarter); ok {
		return dbx.WithTx(ctx, db, nil, fn)
	}
	return fn(ctx, d.DB)
}

func (d *Deps) publish(ctx context.Context, id int64, step models.Step) error {
	msg := models.Message{ID: id, Step: step}
	if err := d.Queue.Publish(ctx, msg); err != nil {
		return fmt.Errorf("enqueue %s: %w", msg, err)
	}
	d.Logger.Debug(ctx, "step enqueued", "entry_id", id, "step", step)
	return nil
}

// Pipeline is the entry point for every pipeline step and for the read and
// delete operations on journal entries.
type Pipeline struct {
	deps *Deps

	ingestion     *IngestionStage
	transcription *TranscriptionStage
	reply         *ReplyStage
	voiceover     *VoiceoverStage
}

func NewPipeline(d Deps) *Pipeline {
	if d.Logger == nil {
		d.Logger = logging.NewNop()
	}
	if d.Settings.ConversationMaxAge <= 0 {
		d.Settings.ConversationMaxAge = DefaultConversationMaxAge
	}

	deps := &d
	return &Pipeline{
		deps:          deps,
		ingestion:     &IngestionStage{deps},
		transcription: &TranscriptionStage{deps},
		reply:         &ReplyStage{deps},
		voiceover:     &VoiceoverStage{deps},
	}
}

// Ingest stores a new recording for userID and starts the pipeline for it.
func (p *Pipeline) Ingest(ctx context.Context, userID string, audio io.Reader, lat, lon *float64) (int64, error) {
	return p.ingestion.Ingest(ctx, userID, audio, lat, lon)
}

// Transcribe runs the transcription step for entry id.
func (p *Pipeline) Transcribe(ctx context.Context, id int64) error {
	return p.transcription.Transcribe(ctx, id)
}

// GenerateReply runs the chatbot step for entry id.
func (p *Pipeline) GenerateReply(ctx context.Context, id int64) error {
	return p.reply.GenerateReply(ctx, id)
}

// SynthesizeVoiceover runs the final voiceover step for entry id.
func (p *Pipeline) SynthesizeVoiceover(ctx context.Context, id int64) error {
	return p.voiceover.SynthesizeVoiceover(ctx, id)
}

// Process dispatches a queue message to its step.
func (p *Pipeline) Process(ctx context.Context, msg models.Message) error {
	switch msg.Step {
	case models.StepTranscript:
		return p.Transcribe(ctx, msg.ID)
	case models.StepChatbot:
		return p.GenerateReply(ctx, msg.ID)
	case models.StepVoiceOver:
		return p.SynthesizeVoiceover(ctx, msg.ID)
	default:
		return fmt.Errorf("%w: unknown step %q", common.ErrValidation, msg.Step)
	}
}

// Deps returns the collaborators the pipeline was built with.
func (p *Pipeline) Deps() Deps {
	return *p.deps
}
