// Package channel provisions the per-consumer delivery infrastructure: a
// dedicated SQS queue, the event source mapping that feeds the delivery
// dispatcher, and the EventBridge schedule that enqueues data triggers.
package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/lambda"
	"github.com/aws/aws-sdk-go/service/lambda/lambdaiface"
	"github.com/aws/aws-sdk-go/service/scheduler"
	"github.com/aws/aws-sdk-go/service/scheduler/scheduleriface"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"

	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/errors"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/feed"
)

// ErrQueueDeletedRecently is returned by Provision when the consumer's queue
// was deleted within the last minute. A caller resubscribing immediately
// after an unsubscribe should surface this as retryable rather than fatal.
var ErrQueueDeletedRecently = errors.New("delivery queue deleted too recently")

// TriggerMessage is the body enqueued onto a consumer's delivery queue. The
// schedule enqueues data triggers on a fixed cadence; the requested update
// interval travels inside the message, not in the schedule.
type TriggerMessage struct {
	ConsumerID         string `json:"consumerId"`
	ConsumerKey        string `json:"consumerKey"`
	MessageType        string `json:"messageType"`
	FrequencyInSeconds int64  `json:"frequencyInSeconds,omitempty"`
	QueueURL           string `json:"queueUrl,omitempty"`
}

const (
	MessageTypeData      = "data"
	MessageTypeHeartbeat = "heartbeat"
)

// Handles identifies the three provisioned resources, persisted on the
// consumer subscription so they can be torn down later.
type Handles struct {
	QueueURL               string
	EventSourceMappingUUID string
	ScheduleName           string
}

// Provisioner creates and deletes delivery channels for one feed kind.
type Provisioner struct {
	SQS       sqsiface.SQSAPI
	Lambda    lambdaiface.LambdaAPI
	Scheduler scheduleriface.SchedulerAPI

	Env  string
	Kind feed.Kind

	// DispatcherArn is the delivery dispatcher function the queue feeds.
	DispatcherArn string
	// ScheduleRoleArn grants the schedule sqs:SendMessage on the queue.
	ScheduleRoleArn string
	ScheduleGroup   string
}

func (p *Provisioner) queueName(consumerID string) string {
	return fmt.Sprintf("%v-integrated-data-%v-consumer-queue-%v", p.Env, p.Kind, consumerID)
}

func (p *Provisioner) scheduleName(consumerID string) string {
	return fmt.Sprintf("%v-integrated-data-%v-consumer-schedule-%v", p.Env, p.Kind, consumerID)
}

// Provision creates the queue, binds it to the dispatcher, and creates the
// schedule that enqueues a data trigger every minute. The visibility timeout
// covers the slowest expected delivery so an in-flight dispatch is never
// redelivered mid-POST.
func (p *Provisioner) Provision(ctx context.Context, consumerID, consumerKey string, updateInterval time.Duration) (*Handles, error) {
	createOut, err := p.SQS.CreateQueueWithContext(ctx, &sqs.CreateQueueInput{
		QueueName: aws.String(p.queueName(consumerID)),
		Attributes: map[string]*string{
			"VisibilityTimeout": aws.String("60"),
		},
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == sqs.ErrCodeQueueDeletedRecently {
			return nil, fmt.Errorf("creating queue for consumer %v: %w", consumerID, ErrQueueDeletedRecently)
		}
		return nil, fmt.Errorf("creating queue for consumer %v: %w", consumerID, err)
	}
	queueURL := aws.StringValue(createOut.QueueUrl)

	attrsOut, err := p.SQS.GetQueueAttributesWithContext(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(queueURL),
		AttributeNames: []*string{aws.String("QueueArn")},
	})
	if err != nil {
		p.rollback(ctx, Handles{QueueURL: queueURL})
		return nil, fmt.Errorf("resolving queue arn for consumer %v: %w", consumerID, err)
	}
	queueArn := aws.StringValue(attrsOut.Attributes["QueueArn"])

	mappingOut, err := p.Lambda.CreateEventSourceMappingWithContext(ctx, &lambda.CreateEventSourceMappingInput{
		EventSourceArn: aws.String(queueArn),
		FunctionName:   aws.String(p.DispatcherArn),
		BatchSize:      aws.Int64(1),
		Enabled:        aws.Bool(true),
	})
	if err != nil {
		p.rollback(ctx, Handles{QueueURL: queueURL})
		return nil, fmt.Errorf("binding queue to dispatcher for consumer %v: %w", consumerID, err)
	}
	mappingUUID := aws.StringValue(mappingOut.UUID)

	input, err := json.Marshal(TriggerMessage{
		ConsumerID:         consumerID,
		ConsumerKey:        consumerKey,
		MessageType:        MessageTypeData,
		FrequencyInSeconds: int64(updateInterval / time.Second),
		QueueURL:           queueURL,
	})
	if err != nil {
		p.rollback(ctx, Handles{QueueURL: queueURL, EventSourceMappingUUID: mappingUUID})
		return nil, fmt.Errorf("encoding trigger message for consumer %v: %w", consumerID, err)
	}

	name := p.scheduleName(consumerID)
	_, err = p.Scheduler.CreateScheduleWithContext(ctx, &scheduler.CreateScheduleInput{
		Name:      aws.String(name),
		GroupName: aws.String(p.ScheduleGroup),
		// Fixed tick regardless of the consumer's requested cadence; the
		// dispatcher decides whether a given tick produces a delivery.
		ScheduleExpression: aws.String("rate(1 minute)"),
		FlexibleTimeWindow: &scheduler.FlexibleTimeWindow{
			Mode: aws.String(scheduler.FlexibleTimeWindowModeOff),
		},
		Target: &scheduler.Target{
			Arn:     aws.String(queueArn),
			RoleArn: aws.String(p.ScheduleRoleArn),
			Input:   aws.String(string(input)),
		},
	})
	if err != nil {
		p.rollback(ctx, Handles{QueueURL: queueURL, EventSourceMappingUUID: mappingUUID})
		return nil, fmt.Errorf("creating schedule for consumer %v: %w", consumerID, err)
	}

	return &Handles{
		QueueURL:               queueURL,
		EventSourceMappingUUID: mappingUUID,
		ScheduleName:           name,
	}, nil
}

// rollback tears down whatever Provision had created before it failed, so a
// retried subscribe starts clean instead of colliding with half-provisioned
// resources. Teardown failures are swallowed; Deprovision already tolerates
// resources that never existed.
func (p *Provisioner) rollback(ctx context.Context, handles Handles) {
	_ = p.Deprovision(ctx, handles)
}

// Deprovision tears down the channel. Resources that are already gone are
// treated as success so a retried unsubscribe converges.
func (p *Provisioner) Deprovision(ctx context.Context, handles Handles) error {
	if handles.ScheduleName != "" {
		_, err := p.Scheduler.DeleteScheduleWithContext(ctx, &scheduler.DeleteScheduleInput{
			Name:      aws.String(handles.ScheduleName),
			GroupName: aws.String(p.ScheduleGroup),
		})
		if err != nil && !isAWSCode(err, scheduler.ErrCodeResourceNotFoundException) {
			return fmt.Errorf("deleting schedule %v: %w", handles.ScheduleName, err)
		}
	}

	if handles.EventSourceMappingUUID != "" {
		_, err := p.Lambda.DeleteEventSourceMappingWithContext(ctx, &lambda.DeleteEventSourceMappingInput{
			UUID: aws.String(handles.EventSourceMappingUUID),
		})
		if err != nil && !isAWSCode(err, lambda.ErrCodeResourceNotFoundException) {
			return fmt.Errorf("deleting event source mapping %v: %w", handles.EventSourceMappingUUID, err)
		}
	}

	if handles.QueueURL != "" {
		_, err := p.SQS.DeleteQueueWithContext(ctx, &sqs.DeleteQueueInput{
			QueueUrl: aws.String(handles.QueueURL),
		})
		if err != nil && !isAWSCode(err, sqs.ErrCodeQueueDoesNotExist) {
			return fmt.Errorf("deleting queue %v: %w", handles.QueueURL, err)
		}
	}

	return nil
}

func isAWSCode(err error, code string) bool {
	var aerr awserr.Error
	return errors.As(err, &aerr) && aerr.Code() == code
}
