// Package bodsqueue provides utilities for building Lambda functions triggered
// by SQS delivery queues, with a console mode that long-polls the queue
// directly for local runs.
package bodsqueue

import (
	"context"
	"fmt"

	bodscli "github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/bods-cli"
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/rs/zerolog"
)

type MessageCallback func(ctx context.Context, body string) error

type Handler struct {
	service bodscli.Service
	Logger  zerolog.Logger

	onMessage MessageCallback
}

func NewHandler(
	service bodscli.Service,
	onMessage MessageCallback,
) *Handler {
	return &Handler{
		service:   service,
		Logger:    bodscli.Logger(service),
		onMessage: onMessage,
	}
}

func (h *Handler) Start() error {
	switch {
	case bodscli.CommonOpts.Console:
		return h.handleRealtime()

	default:
		lambda.Start(h.HandleSQSEvent)
	}
	return nil
}

// HandleSQSEvent processes a batch of SQS records. Per-record failures are
// logged and swallowed rather than returned: delivery-channel messages are
// at-least-once and downstream handling is idempotent, so a redelivery storm
// buys nothing over waiting for the next scheduled trigger.
func (h *Handler) HandleSQSEvent(ctx context.Context, event events.SQSEvent) error {
	ctx = h.Logger.WithContext(ctx)
	h.Logger.Trace().Int("count", len(event.Records)).Msg("handling a batch of queue messages")
	for _, record := range event.Records {
		if err := h.onMessage(ctx, record.Body); err != nil {
			h.Logger.Error().Err(err).Str("message", record.MessageId).Msg("unable to handle queue message")
		}
	}
	return nil
}

func (h *Handler) handleRealtime() error {
	if QueueOpts.QueueURL == "" {
		return fmt.Errorf("no queue-url configured for console mode")
	}

	s := session.Must(session.NewSession(aws.NewConfig()))
	api := sqs.New(s)

	ctx := h.Logger.WithContext(context.Background())
	h.Logger.Info().Str("queueUrl", QueueOpts.QueueURL).Msg("polling queue")

	for {
		out, err := api.ReceiveMessageWithContext(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(QueueOpts.QueueURL),
			MaxNumberOfMessages: aws.Int64(10),
			WaitTimeSeconds:     aws.Int64(20),
		})
		if err != nil {
			return fmt.Errorf("unable to receive messages from %v: %w", QueueOpts.QueueURL, err)
		}

		for _, msg := range out.Messages {
			if err := h.onMessage(ctx, aws.StringValue(msg.Body)); err != nil {
				h.Logger.Error().Err(err).Str("message", aws.StringValue(msg.MessageId)).Msg("unable to handle queue message")
				continue
			}
			_, err := api.DeleteMessageWithContext(ctx, &sqs.DeleteMessageInput{
				QueueUrl:      aws.String(QueueOpts.QueueURL),
				ReceiptHandle: msg.ReceiptHandle,
			})
			if err != nil {
				h.Logger.Error().Err(err).Str("message", aws.StringValue(msg.MessageId)).Msg("unable to delete queue message")
			}
		}
	}
}
