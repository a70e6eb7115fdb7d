// Package worker runs the queue consumer loop that drives pipeline steps.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/olievortex/oliejournal/internal/common"
	"github.com/olievortex/oliejournal/internal/logging"
	"github.com/olievortex/oliejournal/internal/server/models"
	"github.com/olievortex/oliejournal/internal/server/queue"
	"github.com/olievortex/oliejournal/internal/shared"
)

// Source is the receiving side of the step queue.
type Source interface {
	Receive(ctx context.Context) (*queue.Delivery, error)
	Complete(ctx context.Context, d *queue.Delivery) error
}

// Processor runs one pipeline step.
type Processor interface {
	Process(ctx context.Context, msg models.Message) error
}

// Consumer pulls one message at a time and hands it to the Processor.
type Consumer struct {
	name      string
	source    Source
	processor Processor
	logger    logging.Logger

	// errorDelay is how long to back off after a failed Receive.
	errorDelay time.Duration
}

func NewConsumer(name string, source Source, processor Processor, logger logging.Logger) *Consumer {
	return &Consumer{
		name:       name,
		source:     source,
		processor:  processor,
		logger:     logger.With("worker", name),
		errorDelay: 5 * time.Second,
	}
}

// Run polls until ctx is cancelled. A message in flight is finished with a
// context that outlives the cancellation so its outcome is recorded.
func (c *Consumer) Run(ctx context.Context) {
	c.logger.Info(ctx, "consumer started")
	defer c.logger.Info(context.Background(), "consumer stopped")

	for {
		if ctx.Err() != nil {
			return
		}

		d, err := c.source.Receive(ctx)
		if err != nil && d == nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error(ctx, "receive failed", "error", err)
			sleep(ctx, c.errorDelay)
			continue
		}
		if d == nil {
			continue
		}

		c.handle(context.WithoutCancel(ctx), d, err)
	}
}

// handle processes one delivery. recvErr is set when the body could not be
// decoded.
func (c *Consumer) handle(ctx context.Context, d *queue.Delivery, recvErr error) {
	log := c.logger.With("message_id", d.MessageID, "entry_id", d.Message.ID, "step", d.Message.Step)

	err := recvErr
	if err == nil {
		start := time.Now()
		err = c.processor.Process(ctx, d.Message)
		log = log.With("elapsed", time.Since(start).String(), "receive_count", d.ReceiveCount)
	}

	switch {
	case err == nil:
		log.Info(ctx, "message processed")
	case common.IsPermanent(err):
		log.Error(ctx, "message dropped", "error", shared.Truncate(err.Error(), shared.MaxLogText))
	default:
		level := log.Warn
		if errors.Is(err, common.ErrBudgetExceeded) {
			level = log.Error
		}
		level(ctx, "message left for redelivery", "error", shared.Truncate(err.Error(), shared.MaxLogText))
		return
	}

	if err := c.source.Complete(ctx, d); err != nil {
		log.Error(ctx, "complete failed", "error", err)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
