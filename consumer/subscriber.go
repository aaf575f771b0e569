// Package consumer manages downstream consumer subscriptions: registration,
// teardown, per-consumer delivery dispatch, and the heartbeat sweep.
package consumer

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/avldao"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/channel"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/consumerdao"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/errors"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/feed"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/siri"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/subscriptiondao"
)

// retryAfterSeconds is the backoff hint returned when the delivery queue was
// deleted too recently to recreate.
const retryAfterSeconds = 60

// defaultUpdateInterval applies when a subscription request carries no
// UpdateInterval.
const defaultUpdateInterval = 30 * time.Second

// Store is the slice of the consumer subscriptions DAO this package needs.
type Store interface {
	Get(ctx context.Context, subscriptionID, consumerKey string) (*consumerdao.Subscription, error)
	Put(ctx context.Context, sub consumerdao.Subscription) error
}

// FeedStore looks up upstream producer subscriptions referenced by consumer
// filters.
type FeedStore interface {
	Get(ctx context.Context, subscriptionID string) (*subscriptiondao.Subscription, error)
}

// ChannelProvisioner creates and tears down the per-consumer delivery channel.
type ChannelProvisioner interface {
	Provision(ctx context.Context, consumerID, consumerKey string, updateInterval time.Duration) (*channel.Handles, error)
	Deprovision(ctx context.Context, handles channel.Handles) error
}

// Subscriber registers consumer subscriptions.
type Subscriber struct {
	Kind      feed.Kind
	Consumers Store
	Feeds     FeedStore
	Channels  ChannelProvisioner
	Now       func() time.Time
	NewID     func() string
}

func (s *Subscriber) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Subscriber) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

// SubscribeInput carries a validated-enough subscription request: the SIRI
// envelope plus the filter parsed from the request's query string.
type SubscribeInput struct {
	ConsumerKey string
	Request     *siri.SubscriptionRequest
	QueryParams avldao.Filter
}

// Subscribe validates the request, provisions a delivery channel, and
// persists the consumer subscription as live with a zero cursor.
func (s *Subscriber) Subscribe(ctx context.Context, input SubscribeInput) (*consumerdao.Subscription, error) {
	if input.ConsumerKey == "" {
		return nil, errors.E(http.StatusBadRequest, "missing consumer key")
	}
	if err := siri.ValidateSubscriptionRequest(input.Request); err != nil {
		return nil, errors.E(http.StatusBadRequest, err)
	}

	subscriptionID, updateInterval, heartbeatInterval, terminationTime := requestDetails(input.Request)
	if subscriptionID == "" {
		subscriptionID = s.newID()
	}

	existing, err := s.Consumers.Get(ctx, subscriptionID, input.ConsumerKey)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Status == feed.StatusLive {
		return nil, errors.E(http.StatusConflict, "consumer subscription already live")
	}

	// Every upstream feed named in the filter must exist and be active.
	for _, feedID := range input.QueryParams.SubscriptionIDs {
		upstream, err := s.Feeds.Get(ctx, feedID)
		if err != nil {
			return nil, err
		}
		if upstream == nil || upstream.Status.Terminal() {
			return nil, errors.E(http.StatusNotFound, "unknown or inactive feed subscription "+feedID)
		}
	}

	interval := defaultUpdateInterval
	if updateInterval != "" {
		parsed, err := siri.ParseDuration(updateInterval)
		if err != nil {
			return nil, errors.E(http.StatusBadRequest, err)
		}
		interval = parsed
	}

	handles, err := s.Channels.Provision(ctx, subscriptionID, input.ConsumerKey, interval)
	if err != nil {
		if errors.Is(err, channel.ErrQueueDeletedRecently) {
			return nil, &errors.Error{
				Status:     http.StatusServiceUnavailable,
				RetryAfter: retryAfterSeconds,
				Err:        err,
			}
		}
		return nil, err
	}

	now := s.now()
	sub := consumerdao.Subscription{
		ID:                     subscriptionID,
		ConsumerKey:            input.ConsumerKey,
		Status:                 feed.StatusLive,
		URL:                    input.Request.ConsumerAddress,
		RequestorRef:           input.Request.RequestorRef,
		UpdateInterval:         siri.FormatDuration(interval),
		HeartbeatInterval:      heartbeatInterval,
		InitialTerminationTime: terminationTime,
		RequestTimestamp:       now.Unix(),
		HeartbeatAttempts:      0,
		LastRetrievedID:        0,
		QueryParams:            input.QueryParams,
		QueueURL:               handles.QueueURL,
		EventSourceMappingUUID: handles.EventSourceMappingUUID,
		ScheduleName:           handles.ScheduleName,
	}
	if err := s.Consumers.Put(ctx, sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// requestDetails pulls the fields common to both monitoring sub-request
// shapes out of whichever one is present.
func requestDetails(req *siri.SubscriptionRequest) (subscriptionID, updateInterval, heartbeatInterval string, terminationTime int64) {
	if req.SubscriptionContext != nil {
		heartbeatInterval = req.SubscriptionContext.HeartbeatInterval
	}
	switch {
	case req.VehicleMonitoringSubscriptionRequest != nil:
		vm := req.VehicleMonitoringSubscriptionRequest
		subscriptionID = vm.SubscriptionIdentifier
		updateInterval = vm.UpdateInterval
		if !vm.InitialTerminationTime.IsZero() {
			terminationTime = vm.InitialTerminationTime.Unix()
		}
	case req.SituationExchangeSubscriptionRequest != nil:
		sx := req.SituationExchangeSubscriptionRequest
		subscriptionID = sx.SubscriptionIdentifier
		if !sx.InitialTerminationTime.IsZero() {
			terminationTime = sx.InitialTerminationTime.Unix()
		}
	}
	return subscriptionID, updateInterval, heartbeatInterval, terminationTime
}
