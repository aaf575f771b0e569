package subscriptiondao

import (
	"time"

	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/feed"
)

// Subscription is one producer subscription. Credentials are never stored on
// the record; they live in the credential store keyed by ID and feed kind.
// Timestamps are unix seconds, zero meaning unset.
type Subscription struct {
	ID               string    `dynamodbav:"pk" ddb:"hash"`
	FeedKind         feed.Kind `dynamodbav:"feed_kind"`
	URL              string    `dynamodbav:"url"`
	Description      string    `dynamodbav:"description,omitempty"`
	ShortDescription string    `dynamodbav:"short_description,omitempty"`
	RequestorRef     string    `dynamodbav:"requestor_ref,omitempty"`
	PublisherID      string    `dynamodbav:"publisher_id,omitempty"`
	OperatorRefs     []string  `dynamodbav:"operator_refs,omitempty"`

	Status feed.Status `dynamodbav:"status"`

	ServiceStartAt        int64 `dynamodbav:"service_start_at,omitempty"`
	ServiceEndAt          int64 `dynamodbav:"service_end_at,omitempty"`
	LastDataReceivedAt    int64 `dynamodbav:"last_data_received_at,omitempty"`
	HeartbeatReceivedAt   int64 `dynamodbav:"heartbeat_received_at,omitempty"`
}

// LastAlive returns the more recent of the two liveness signals, zero when
// neither has been seen.
func (s Subscription) LastAlive() int64 {
	if s.HeartbeatReceivedAt > s.LastDataReceivedAt {
		return s.HeartbeatReceivedAt
	}
	return s.LastDataReceivedAt
}

// ProducerURL returns the endpoint subscribe and terminate calls go to,
// honoring the mock producer override for test subscriptions.
func (s Subscription) ProducerURL(cfg *feed.Config) string {
	if s.RequestorRef == feed.MockProducerRequestorRef && cfg.MockProducerURL != "" {
		return cfg.MockProducerURL
	}
	return s.URL
}

// StartedBy reports whether the subscription's service window has begun.
func (s Subscription) StartedBy(now time.Time) bool {
	return s.ServiceStartAt != 0 && s.ServiceStartAt <= now.Unix()
}
