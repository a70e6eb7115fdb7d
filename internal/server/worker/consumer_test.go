package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olievortex/oliejournal/internal/common"
	"github.com/olievortex/oliejournal/internal/logging"
	"github.com/olievortex/oliejournal/internal/server/models"
	"github.com/olievortex/oliejournal/internal/server/queue"
)

type recv struct {
	d   *queue.Delivery
	err error
}

// fakeSource hands out scripted receives, then cancels the run.
type fakeSource struct {
	mu        sync.Mutex
	script    []recv
	cancel    context.CancelFunc
	completed []string
}

func (f *fakeSource) Receive(ctx context.Context) (*queue.Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.script) == 0 {
		f.cancel()
		return nil, ctx.Err()
	}
	r := f.script[0]
	f.script = f.script[1:]
	return r.d, r.err
}

func (f *fakeSource) Complete(_ context.Context, d *queue.Delivery) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, d.ReceiptHandle)
	return nil
}

type fakeProcessor struct {
	errs      map[int64]error
	processed []models.Message
	ctxErrs   []error
}

func (f *fakeProcessor) Process(ctx context.Context, msg models.Message) error {
	f.processed = append(f.processed, msg)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	return f.errs[msg.ID]
}

func delivery(id int64, step models.Step) *queue.Delivery {
	return &queue.Delivery{
		Message:       models.Message{ID: id, Step: step},
		MessageID:     fmt.Sprintf("m-%d", id),
		ReceiptHandle: fmt.Sprintf("rh-%d", id),
	}
}

func runConsumer(t *testing.T, src *fakeSource, proc *fakeProcessor) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	src.cancel = cancel

	c := NewConsumer("w0", src, proc, logging.NewNop())
	c.errorDelay = time.Millisecond

	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestConsumer_AckPolicy(t *testing.T) {
	src := &fakeSource{script: []recv{
		{d: delivery(1, models.StepTranscript)},
		{},
		{d: delivery(2, models.StepChatbot)},
		{d: delivery(3, models.StepVoiceOver)},
		{d: delivery(4, models.StepTranscript)},
		{d: delivery(5, models.StepChatbot)},
	}}
	proc := &fakeProcessor{errs: map[int64]error{
		2: fmt.Errorf("%w: reply: boom", common.ErrProviderCall),
		3: fmt.Errorf("entry 3: %w", common.ErrNotFound),
		4: fmt.Errorf("%w: transcript", common.ErrBudgetExceeded),
		5: fmt.Errorf("%w: transcript is empty", common.ErrInvalidState),
	}}

	runConsumer(t, src, proc)

	assert.Len(t, proc.processed, 5)
	assert.Equal(t, []string{"rh-1", "rh-3", "rh-5"}, src.completed,
		"success and permanent failures are completed, transient ones are left")
}

func TestConsumer_UndecodableMessageIsDropped(t *testing.T) {
	bad := &queue.Delivery{MessageID: "m-x", ReceiptHandle: "rh-x"}
	src := &fakeSource{script: []recv{
		{d: bad, err: fmt.Errorf("%w: decode message", common.ErrValidation)},
	}}
	proc := &fakeProcessor{}

	runConsumer(t, src, proc)

	assert.Empty(t, proc.processed)
	assert.Equal(t, []string{"rh-x"}, src.completed)
}

func TestConsumer_ReceiveErrorsAreRetried(t *testing.T) {
	src := &fakeSource{script: []recv{
		{err: errors.New("network")},
		{d: delivery(7, models.StepTranscript)},
	}}
	proc := &fakeProcessor{}

	runConsumer(t, src, proc)

	require.Len(t, proc.processed, 1)
	assert.Equal(t, int64(7), proc.processed[0].ID)
}

func TestConsumer_StopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &fakeSource{script: []recv{{d: delivery(1, models.StepTranscript)}}, cancel: cancel}
	proc := &fakeProcessor{}

	NewConsumer("w0", src, proc, logging.NewNop()).Run(ctx)

	assert.Empty(t, proc.processed)
	assert.Len(t, src.script, 1)
}

func TestConsumer_InFlightSurvivesCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &fakeSource{cancel: cancel}
	proc := &fakeProcessor{}

	c := NewConsumer("w0", src, proc, logging.NewNop())

	cancel()
	c.handle(context.WithoutCancel(ctx), delivery(9, models.StepChatbot), nil)

	require.Len(t, proc.ctxErrs, 1)
	assert.NoError(t, proc.ctxErrs[0])
	assert.Equal(t, []string{"rh-9"}, src.completed)
}
