package services

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sort"
	"testing"
	"time"

	"github.com/olievortex/oliejournal/internal/budget"
	"github.com/olievortex/oliejournal/internal/common"
	"github.com/olievortex/oliejournal/internal/dbx"
	"github.com/olievortex/oliejournal/internal/server/models"
	"github.com/olievortex/oliejournal/internal/server/providers"
	"github.com/olievortex/oliejournal/internal/server/repositories/conversations"
	"github.com/olievortex/oliejournal/internal/server/repositories/entries"
	"github.com/olievortex/oliejournal/internal/server/repositories/repomanager"
	"github.com/olievortex/oliejournal/internal/server/repositories/usagelogs"
	"github.com/olievortex/oliejournal/internal/wav"
)

// -------- in-memory repositories --------

type store struct {
	entries map[int64]*models.Entry
	nextID  int64

	convs []*models.Conversation

	transcriptLogs []*models.TranscriptLog
	chatbotLogs    []*models.ChatbotLog

	transcriptUsage budget.UsageSummary
	chatbotUsage    budget.UsageSummary

	createErr     error
	deleteConvErr error
}

func newStore() *store {
	return &store{entries: map[int64]*models.Entry{}}
}

type fakeRepos struct {
	s *store
}

func (f *fakeRepos) RunMigrations(context.Context, *sql.DB) error { return nil }
func (f *fakeRepos) Entries(dbx.DBTX) entries.Repository         { return &fakeEntries{s: f.s} }
func (f *fakeRepos) Conversations(dbx.DBTX) conversations.Repository {
	return &fakeConversations{s: f.s}
}
func (f *fakeRepos) UsageLogs(dbx.DBTX) usagelogs.Repository { return &fakeUsage{s: f.s} }

var _ repomanager.RepositoryManager = (*fakeRepos)(nil)

type fakeEntries struct {
	entries.Repository
	s *store
}

func clone(e *models.Entry) *models.Entry {
	c := *e
	return &c
}

func (f *fakeEntries) Create(_ context.Context, e *models.Entry) (bool, error) {
	if f.s.createErr != nil {
		return false, f.s.createErr
	}
	for _, x := range f.s.entries {
		if x.UserID == e.UserID && x.AudioHash == e.AudioHash {
			*e = *clone(x)
			return false, nil
		}
	}
	f.s.nextID++
	e.ID = f.s.nextID
	f.s.entries[e.ID] = clone(e)
	return true, nil
}

func (f *fakeEntries) Get(_ context.Context, id int64) (*models.Entry, error) {
	e, ok := f.s.entries[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return clone(e), nil
}

func (f *fakeEntries) GetForUser(ctx context.Context, id int64, userID string) (*models.Entry, error) {
	e, err := f.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.UserID != userID {
		return nil, common.ErrNotFound
	}
	return e, nil
}

func (f *fakeEntries) GetByHash(_ context.Context, userID, hash string) (*models.Entry, error) {
	for _, e := range f.s.entries {
		if e.UserID == userID && e.AudioHash == hash {
			return clone(e), nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeEntries) ListForUser(_ context.Context, userID string) ([]*models.Entry, error) {
	var out []*models.Entry
	for _, e := range f.s.entries {
		if e.UserID == userID {
			out = append(out, clone(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeEntries) UpdateTranscript(_ context.Context, id int64, text string, at time.Time) error {
	e, ok := f.s.entries[id]
	if !ok {
		return common.ErrNotFound
	}
	e.Transcript, e.TranscriptCreated = &text, &at
	return nil
}

func (f *fakeEntries) UpdateResponse(_ context.Context, id int64, text string, at time.Time) error {
	e, ok := f.s.entries[id]
	if !ok {
		return common.ErrNotFound
	}
	e.Response, e.ResponseCreated = &text, &at
	return nil
}

func (f *fakeEntries) UpdateVoiceover(_ context.Context, id int64, v entries.Voiceover) error {
	e, ok := f.s.entries[id]
	if !ok {
		return common.ErrNotFound
	}
	e.VoiceoverPath = &v.Path
	e.VoiceoverDuration = &v.Duration
	e.VoiceoverLength = &v.Length
	e.VoiceoverProcessingTime = &v.ProcessingTime
	e.VoiceoverCreated = &v.Created
	return nil
}

func (f *fakeEntries) Delete(_ context.Context, id int64) error {
	if _, ok := f.s.entries[id]; !ok {
		return common.ErrNotFound
	}
	delete(f.s.entries, id)
	return nil
}

type fakeConversations struct {
	conversations.Repository
	s *store
}

func (f *fakeConversations) Create(_ context.Context, c *models.Conversation) error {
	f.s.convs = append(f.s.convs, c)
	return nil
}

func (f *fakeConversations) ListActive(_ context.Context, userID string) ([]*models.Conversation, error) {
	var out []*models.Conversation
	for _, c := range f.s.convs {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeConversations) Delete(_ context.Context, id string) error {
	if f.s.deleteConvErr != nil {
		return f.s.deleteConvErr
	}
	kept := f.s.convs[:0]
	for _, c := range f.s.convs {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	f.s.convs = kept
	return nil
}

type fakeUsage struct {
	usagelogs.Repository
	s *store
}

func (f *fakeUsage) CreateTranscriptLog(_ context.Context, l *models.TranscriptLog) error {
	f.s.transcriptLogs = append(f.s.transcriptLogs, l)
	return nil
}

func (f *fakeUsage) CreateChatbotLog(_ context.Context, l *models.ChatbotLog) error {
	f.s.chatbotLogs = append(f.s.chatbotLogs, l)
	return nil
}

func (f *fakeUsage) TranscriptSummary(context.Context, time.Time) (budget.UsageSummary, error) {
	return f.s.transcriptUsage, nil
}

func (f *fakeUsage) ChatbotSummary(context.Context, time.Time) (budget.UsageSummary, error) {
	return f.s.chatbotUsage, nil
}

// -------- adapters --------

type fakeBlobs struct {
	objects   map[string][]byte
	downloads int
	uploadErr error
}

func (f *fakeBlobs) Upload(_ context.Context, key, localFile string) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	b, err := os.ReadFile(localFile)
	if err != nil {
		return err
	}
	f.objects[key] = b
	return nil
}

func (f *fakeBlobs) Download(_ context.Context, key, localFile string) error {
	b, ok := f.objects[key]
	if !ok {
		return common.ErrNotFound
	}
	f.downloads++
	return os.WriteFile(localFile, b, 0o600)
}

func (f *fakeBlobs) Delete(_ context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

type fakeQueue struct {
	published []models.Message
	err       error
}

func (f *fakeQueue) Publish(_ context.Context, m models.Message) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, m)
	return nil
}

func (f *fakeQueue) last() models.Message {
	return f.published[len(f.published)-1]
}

type fakeTranscriber struct {
	result providers.TranscribeResult
	calls  int
	files  []string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, localFile string, info wav.FormatInfo) providers.TranscribeResult {
	f.calls++
	f.files = append(f.files, localFile)
	r := f.result
	if r.Err == nil && r.BilledSeconds == 0 {
		r.BilledSeconds = info.Seconds()
	}
	return r
}

type fakeChat struct {
	result providers.ReplyResult

	created     []string
	deleted     []string
	replies     int
	messages    []string
	createErr   error
	deleteErr   error
	nextSession int
}

func (f *fakeChat) CreateSession(_ context.Context, userID, instructions string) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.nextSession++
	id := "conv_" + userID + "_" + string(rune('0'+f.nextSession))
	f.created = append(f.created, id)
	return id, nil
}

func (f *fakeChat) DeleteSession(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeChat) Reply(_ context.Context, userID, message, sessionID string) providers.ReplyResult {
	f.replies++
	f.messages = append(f.messages, message)
	r := f.result
	r.ConversationID = sessionID
	return r
}

type fakeSpeech struct {
	audio []byte
	err   error
	calls int
	texts []string
}

func (f *fakeSpeech) Synthesize(_ context.Context, voice, text string) ([]byte, error) {
	f.calls++
	f.texts = append(f.texts, text)
	return f.audio, f.err
}

type fakeTranscoder struct {
	err    error
	inputs []string
}

func (f *fakeTranscoder) Convert(_ context.Context, input, output string) error {
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return f.err
	}
	if _, err := os.Stat(input); err != nil {
		return err
	}
	return os.WriteFile(output, []byte("mp4"), 0o600)
}

// -------- fixture --------

type fixture struct {
	store       *store
	blobs       *fakeBlobs
	queue       *fakeQueue
	transcriber *fakeTranscriber
	chat        *fakeChat
	speech      *fakeSpeech
	transcoder  *fakeTranscoder
	settings    Settings
	now         time.Time
	pipeline    *Pipeline
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:       newStore(),
		blobs:       &fakeBlobs{objects: map[string][]byte{}},
		queue:       &fakeQueue{},
		transcriber: &fakeTranscriber{result: providers.TranscribeResult{Text: "hello", ServiceID: models.ServiceOpenAI}},
		chat: &fakeChat{result: providers.ReplyResult{
			Text: "hi there", InputTokens: 10, OutputTokens: 3, ResponseID: "resp_1", ServiceID: models.ServiceOpenAI,
		}},
		speech:     &fakeSpeech{audio: wav.Encode(make([]byte, 24000*2*2), 24000, 1, 16)},
		transcoder: &fakeTranscoder{},
		now:        time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
	}
	f.settings = Settings{
		ScratchDir:           t.TempDir(),
		GoldPath:             t.TempDir(),
		VoiceName:            "alloy",
		Instructions:         "Be a kind journal companion.",
		TranscriptionCeiling: 5,
		ReplyCeiling:         5,
	}

	f.pipeline = NewPipeline(Deps{
		Repos:       &fakeRepos{s: f.store},
		Blobs:       f.blobs,
		Queue:       f.queue,
		Transcriber: f.transcriber,
		Chat:        f.chat,
		Speech:      f.speech,
		Transcoder:  f.transcoder,
		Settings:    f.settings,
		Now:         func() time.Time { return f.now },
	})
	return f
}

func ptr[T any](v T) *T { return &v }

// clip builds a mono 16 kHz 16-bit WAV of the given length. seed varies the
// samples so different clips hash differently.
func clip(seconds int, seed byte) []byte {
	pcm := make([]byte, 16000*2*seconds)
	for i := range pcm {
		pcm[i] = seed + byte(i%7)
	}
	return wav.Encode(pcm, 16000, 1, 16)
}

// seed inserts an entry directly into the store.
func (f *fixture) seed(e *models.Entry) int64 {
	f.store.nextID++
	e.ID = f.store.nextID
	if e.UserID == "" {
		e.UserID = "u1"
	}
	if e.AudioPath == "" {
		e.AudioPath = "bronze/audio_entry/2025/03/seed.wav"
	}
	f.store.entries[e.ID] = e
	return e.ID
}

var errBoom = errors.New("boom")
