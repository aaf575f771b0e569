package channel

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/lambda"
	"github.com/aws/aws-sdk-go/service/lambda/lambdaiface"
	"github.com/aws/aws-sdk-go/service/scheduler"
	"github.com/aws/aws-sdk-go/service/scheduler/scheduleriface"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
	"github.com/tj/assert"

	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/errors"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/feed"
)

type fakeSQS struct {
	sqsiface.SQSAPI
	createErr error
	attrsErr  error
	deleteErr error
	created   []string
	deleted   []string
}

func (f *fakeSQS) CreateQueueWithContext(_ aws.Context, input *sqs.CreateQueueInput, _ ...request.Option) (*sqs.CreateQueueOutput, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, aws.StringValue(input.QueueName))
	return &sqs.CreateQueueOutput{
		QueueUrl: aws.String("https://sqs.eu-west-2.amazonaws.com/123/" + aws.StringValue(input.QueueName)),
	}, nil
}

func (f *fakeSQS) GetQueueAttributesWithContext(_ aws.Context, input *sqs.GetQueueAttributesInput, _ ...request.Option) (*sqs.GetQueueAttributesOutput, error) {
	if f.attrsErr != nil {
		return nil, f.attrsErr
	}
	return &sqs.GetQueueAttributesOutput{
		Attributes: map[string]*string{
			"QueueArn": aws.String("arn:aws:sqs:eu-west-2:123:queue"),
		},
	}, nil
}

func (f *fakeSQS) DeleteQueueWithContext(_ aws.Context, input *sqs.DeleteQueueInput, _ ...request.Option) (*sqs.DeleteQueueOutput, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.deleted = append(f.deleted, aws.StringValue(input.QueueUrl))
	return &sqs.DeleteQueueOutput{}, nil
}

type fakeLambda struct {
	lambdaiface.LambdaAPI
	createErr error
	deleteErr error
	created   int
	deleted   []string
}

func (f *fakeLambda) CreateEventSourceMappingWithContext(_ aws.Context, input *lambda.CreateEventSourceMappingInput, _ ...request.Option) (*lambda.EventSourceMappingConfiguration, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created++
	return &lambda.EventSourceMappingConfiguration{UUID: aws.String("esm-uuid-1")}, nil
}

func (f *fakeLambda) DeleteEventSourceMappingWithContext(_ aws.Context, input *lambda.DeleteEventSourceMappingInput, _ ...request.Option) (*lambda.EventSourceMappingConfiguration, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.deleted = append(f.deleted, aws.StringValue(input.UUID))
	return &lambda.EventSourceMappingConfiguration{}, nil
}

type fakeScheduler struct {
	scheduleriface.SchedulerAPI
	createErr error
	deleteErr error
	created   []*scheduler.CreateScheduleInput
	deleted   []string
}

func (f *fakeScheduler) CreateScheduleWithContext(_ aws.Context, input *scheduler.CreateScheduleInput, _ ...request.Option) (*scheduler.CreateScheduleOutput, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, input)
	return &scheduler.CreateScheduleOutput{}, nil
}

func (f *fakeScheduler) DeleteScheduleWithContext(_ aws.Context, input *scheduler.DeleteScheduleInput, _ ...request.Option) (*scheduler.DeleteScheduleOutput, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.deleted = append(f.deleted, aws.StringValue(input.Name))
	return &scheduler.DeleteScheduleOutput{}, nil
}

func newTestProvisioner(q *fakeSQS, l *fakeLambda, s *fakeScheduler) *Provisioner {
	return &Provisioner{
		SQS:             q,
		Lambda:          l,
		Scheduler:       s,
		Env:             "test",
		Kind:            feed.KindAVL,
		DispatcherArn:   "arn:aws:lambda:eu-west-2:123:function:dispatcher",
		ScheduleRoleArn: "arn:aws:iam::123:role/schedule",
		ScheduleGroup:   "test-integrated-data",
	}
}

func TestProvision(t *testing.T) {
	ctx := context.Background()

	t.Run("creates queue, mapping, and schedule", func(t *testing.T) {
		q, l, s := &fakeSQS{}, &fakeLambda{}, &fakeScheduler{}
		p := newTestProvisioner(q, l, s)

		handles, err := p.Provision(ctx, "consumer-1", "key-1", 20*time.Second)
		assert.NoError(t, err)
		assert.Equal(t, "esm-uuid-1", handles.EventSourceMappingUUID)
		assert.Contains(t, handles.QueueURL, "test-integrated-data-avl-consumer-queue-consumer-1")
		assert.Equal(t, "test-integrated-data-avl-consumer-schedule-consumer-1", handles.ScheduleName)

		assert.Len(t, s.created, 1)
		assert.Equal(t, "rate(1 minute)", aws.StringValue(s.created[0].ScheduleExpression))
		// Requested cadence travels in the message body, not the schedule.
		assert.Contains(t, aws.StringValue(s.created[0].Target.Input), `"frequencyInSeconds":20`)
		assert.Contains(t, aws.StringValue(s.created[0].Target.Input), `"messageType":"data"`)
	})

	t.Run("recently deleted queue is a distinguishable error", func(t *testing.T) {
		q := &fakeSQS{createErr: awserr.New(sqs.ErrCodeQueueDeletedRecently, "wait 60s", nil)}
		p := newTestProvisioner(q, &fakeLambda{}, &fakeScheduler{})

		_, err := p.Provision(ctx, "consumer-1", "key-1", 20*time.Second)
		assert.True(t, errors.Is(err, ErrQueueDeletedRecently))
	})

	t.Run("schedule failure tears down the queue and mapping", func(t *testing.T) {
		q, l := &fakeSQS{}, &fakeLambda{}
		s := &fakeScheduler{createErr: awserr.New("AccessDenied", "no", nil)}
		p := newTestProvisioner(q, l, s)

		_, err := p.Provision(ctx, "consumer-1", "key-1", 20*time.Second)
		assert.Error(t, err)
		assert.Len(t, q.deleted, 1)
		assert.Len(t, l.deleted, 1)
	})

	t.Run("mapping failure tears down the queue", func(t *testing.T) {
		q := &fakeSQS{}
		l := &fakeLambda{createErr: awserr.New("ResourceConflictException", "exists", nil)}
		p := newTestProvisioner(q, l, &fakeScheduler{})

		_, err := p.Provision(ctx, "consumer-1", "key-1", 20*time.Second)
		assert.Error(t, err)
		assert.Len(t, q.deleted, 1)
		assert.Empty(t, l.deleted)
	})

	t.Run("queue attribute failure tears down the queue", func(t *testing.T) {
		q := &fakeSQS{attrsErr: awserr.New("InternalError", "boom", nil)}
		l := &fakeLambda{}
		p := newTestProvisioner(q, l, &fakeScheduler{})

		_, err := p.Provision(ctx, "consumer-1", "key-1", 20*time.Second)
		assert.Error(t, err)
		assert.Len(t, q.deleted, 1)
		assert.Equal(t, 0, l.created)
	})

	t.Run("other create failures are not masked", func(t *testing.T) {
		q := &fakeSQS{createErr: awserr.New("InternalError", "boom", nil)}
		p := newTestProvisioner(q, &fakeLambda{}, &fakeScheduler{})

		_, err := p.Provision(ctx, "consumer-1", "key-1", 20*time.Second)
		assert.Error(t, err)
		assert.False(t, errors.Is(err, ErrQueueDeletedRecently))
	})
}

func TestDeprovision(t *testing.T) {
	ctx := context.Background()
	handles := Handles{
		QueueURL:               "https://sqs.eu-west-2.amazonaws.com/123/q",
		EventSourceMappingUUID: "esm-uuid-1",
		ScheduleName:           "test-integrated-data-avl-consumer-schedule-consumer-1",
	}

	t.Run("deletes all three resources", func(t *testing.T) {
		q, l, s := &fakeSQS{}, &fakeLambda{}, &fakeScheduler{}
		p := newTestProvisioner(q, l, s)

		assert.NoError(t, p.Deprovision(ctx, handles))
		assert.Len(t, q.deleted, 1)
		assert.Len(t, l.deleted, 1)
		assert.Len(t, s.deleted, 1)
	})

	t.Run("already deleted resources are tolerated", func(t *testing.T) {
		q := &fakeSQS{deleteErr: awserr.New(sqs.ErrCodeQueueDoesNotExist, "gone", nil)}
		l := &fakeLambda{deleteErr: awserr.New(lambda.ErrCodeResourceNotFoundException, "gone", nil)}
		s := &fakeScheduler{deleteErr: awserr.New(scheduler.ErrCodeResourceNotFoundException, "gone", nil)}
		p := newTestProvisioner(q, l, s)

		assert.NoError(t, p.Deprovision(ctx, handles))
	})

	t.Run("other delete failures surface", func(t *testing.T) {
		s := &fakeScheduler{deleteErr: awserr.New("AccessDenied", "no", nil)}
		p := newTestProvisioner(&fakeSQS{}, &fakeLambda{}, s)

		assert.Error(t, p.Deprovision(ctx, handles))
	})

	t.Run("empty handles are a no-op", func(t *testing.T) {
		q, l, s := &fakeSQS{}, &fakeLambda{}, &fakeScheduler{}
		p := newTestProvisioner(q, l, s)

		assert.NoError(t, p.Deprovision(ctx, Handles{}))
		assert.Empty(t, q.deleted)
		assert.Empty(t, l.deleted)
		assert.Empty(t, s.deleted)
	})
}
