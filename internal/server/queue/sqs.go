// Package queue carries pipeline step messages over Amazon SQS (or any
// SQS-compatible broker). A message is removed only when Complete is called;
// otherwise it reappears after the visibility timeout.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/cenkalti/backoff/v4"

	"github.com/olievortex/oliejournal/internal/common"
	"github.com/olievortex/oliejournal/internal/server/models"
)

// ContentType is attached to every published message.
const ContentType = "application/json"

// MaxWait is the longest long-poll SQS allows.
const MaxWait = 20 * time.Second

// Config holds the broker settings.
type Config struct {
	QueueURL          string
	Region            string
	User              string
	Password          string
	BaseEndpoint      string
	Wait              time.Duration
	VisibilityTimeout time.Duration
	PublishTimeout    time.Duration
}

// Delivery is a received message plus the handle needed to complete it.
type Delivery struct {
	Message       models.Message
	MessageID     string
	ReceiptHandle string
	ReceiveCount  int
}

type sqsAPI interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newSQSClientFromConfig = func(cfg aws.Config, optFns ...func(*sqs.Options)) sqsAPI {
		return sqs.NewFromConfig(cfg, optFns...)
	}
)

// SQSQueue publishes and consumes models.Message values on one queue.
type SQSQueue struct {
	client sqsAPI
	cfg    Config
}

// NewSQSQueue builds the SQS client. Static credentials are used when User
// is set, otherwise the default AWS credential chain applies.
func NewSQSQueue(ctx context.Context, c Config) (*SQSQueue, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(c.Region)}
	if c.User != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(c.User, c.Password, "")))
	}

	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := newSQSClientFromConfig(cfg, func(o *sqs.Options) {
		if c.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(c.BaseEndpoint)
		}
	})

	return newSQSQueue(client, c), nil
}

func newSQSQueue(client sqsAPI, c Config) *SQSQueue {
	if c.Wait <= 0 || c.Wait > MaxWait {
		c.Wait = MaxWait
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = 30 * time.Second
	}
	return &SQSQueue{client: client, cfg: c}
}

// Publish sends msg, retrying transient failures with exponential backoff
// for up to PublishTimeout.
func (q *SQSQueue) Publish(ctx context.Context, msg models.Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	in := &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.cfg.QueueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"ContentType": {DataType: aws.String("String"), StringValue: aws.String(ContentType)},
		},
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = q.cfg.PublishTimeout

	op := func() error {
		_, err := q.client.SendMessage(ctx, in)
		return err
	}
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return fmt.Errorf("publish %s: %w", msg, err)
	}
	return nil
}

// Receive long-polls for at most one message. It returns nil, nil when the
// wait elapses with nothing to deliver. A body that is not a valid message is
// returned together with an error matching common.ErrValidation so the
// caller can discard it.
func (q *SQSQueue) Receive(ctx context.Context) (*Delivery, error) {
	in := &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.cfg.QueueURL),
		MaxNumberOfMessages: 1,
		WaitTimeSeconds:     int32(q.cfg.Wait / time.Second),
		MessageSystemAttributeNames: []types.MessageSystemAttributeName{
			types.MessageSystemAttributeNameApproximateReceiveCount,
		},
	}
	if q.cfg.VisibilityTimeout > 0 {
		in.VisibilityTimeout = int32(q.cfg.VisibilityTimeout / time.Second)
	}

	out, err := q.client.ReceiveMessage(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("receive: %w", err)
	}
	if len(out.Messages) == 0 {
		return nil, nil
	}

	m := out.Messages[0]
	d := &Delivery{
		MessageID:     aws.ToString(m.MessageId),
		ReceiptHandle: aws.ToString(m.ReceiptHandle),
	}
	if n, err := strconv.Atoi(m.Attributes[string(types.MessageSystemAttributeNameApproximateReceiveCount)]); err == nil {
		d.ReceiveCount = n
	}

	if err := json.Unmarshal([]byte(aws.ToString(m.Body)), &d.Message); err != nil {
		return d, fmt.Errorf("%w: decode message %s: %v", common.ErrValidation, d.MessageID, err)
	}
	if !d.Message.Step.Valid() {
		return d, fmt.Errorf("%w: message %s has unknown step %q", common.ErrValidation, d.MessageID, d.Message.Step)
	}

	return d, nil
}

// Complete acknowledges d so the broker does not redeliver it.
func (q *SQSQueue) Complete(ctx context.Context, d *Delivery) error {
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.cfg.QueueURL),
		ReceiptHandle: aws.String(d.ReceiptHandle),
	})
	if err != nil {
		return fmt.Errorf("complete %s: %w", d.MessageID, err)
	}
	return nil
}
