package producer

import (
	"context"
	"fmt"
	"net/http"
	"time"

	bodssecret "github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/bods-secret"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/feed"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/siri"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/subscriptiondao"
	"github.com/google/uuid"
)

// SubscriptionStore is the slice of the subscriptions DAO the state machine
// needs.
type SubscriptionStore interface {
	Put(ctx context.Context, sub subscriptiondao.Subscription) error
	Get(ctx context.Context, subscriptionID string) (*subscriptiondao.Subscription, error)
	ListNotInactive(ctx context.Context) ([]subscriptiondao.Subscription, error)
}

// CredentialStore is the slice of the credential store the state machine
// needs.
type CredentialStore interface {
	Get(ctx context.Context, subscriptionID string) (bodssecret.Credentials, error)
	Put(ctx context.Context, subscriptionID string, creds bodssecret.Credentials) error
	Delete(ctx context.Context, subscriptionID string) error
}

// SubscribeInput carries everything needed to establish a producer
// subscription.
type SubscribeInput struct {
	SubscriptionID   string // generated when empty
	URL              string
	Credentials      bodssecret.Credentials
	Description      string
	ShortDescription string
	RequestorRef     string
	PublisherID      string
	OperatorRefs     []string // cancellations only
}

// Subscriber initiates producer subscriptions. It never retries: a failed
// subscribe is persisted as failed and surfaced, and the health monitor owns
// recovery.
type Subscriber struct {
	Kind   feed.Kind
	Config *feed.Config
	Subs   SubscriptionStore
	Creds  CredentialStore
	Client *http.Client
	Now    func() time.Time
}

func (s *Subscriber) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Subscribe builds and sends the SIRI subscription request, persisting
// credentials before the network call so a later resubscribe can recover even
// if delivery fails.
func (s *Subscriber) Subscribe(ctx context.Context, input SubscribeInput) (*subscriptiondao.Subscription, error) {
	if input.SubscriptionID == "" {
		input.SubscriptionID = uuid.NewString()
	}
	now := s.now()

	sub := subscriptiondao.Subscription{
		ID:               input.SubscriptionID,
		FeedKind:         s.Kind,
		URL:              input.URL,
		Description:      input.Description,
		ShortDescription: input.ShortDescription,
		RequestorRef:     input.RequestorRef,
		PublisherID:      input.PublisherID,
		OperatorRefs:     input.OperatorRefs,
	}

	// A resubscribe keeps the original service start; only the first
	// successful subscribe sets it.
	existing, err := s.Subs.Get(ctx, input.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		sub.ServiceStartAt = existing.ServiceStartAt
		sub.LastDataReceivedAt = existing.LastDataReceivedAt
		sub.HeartbeatReceivedAt = existing.HeartbeatReceivedAt
	}

	if err := s.Creds.Put(ctx, input.SubscriptionID, input.Credentials); err != nil {
		return nil, fmt.Errorf("storing credentials for %v: %w", input.SubscriptionID, err)
	}

	envelope := s.Kind.NewSubscribeRequest(siri.SubscribeOptions{
		SubscriptionID:         input.SubscriptionID,
		RequestorRef:           input.RequestorRef,
		MessageIdentifier:      uuid.NewString(),
		ConsumerAddress:        fmt.Sprintf("%v/%v", s.Config.DataEndpoint, input.SubscriptionID),
		HeartbeatInterval:      siri.FormatDuration(s.Config.HeartbeatInterval),
		InitialTerminationTime: now.Add(s.Config.TerminationOffset),
		RequestTimestamp:       now,
		OperatorRefs:           input.OperatorRefs,
	})

	if err := s.deliver(ctx, sub.ProducerURL(s.Config), input.Credentials, envelope); err != nil {
		sub.Status = feed.StatusFailed
		if putErr := s.Subs.Put(ctx, sub); putErr != nil {
			return nil, fmt.Errorf("persisting failed subscription %v: %v (subscribe error: %w)", sub.ID, putErr, err)
		}
		return nil, fmt.Errorf("subscribing %v: %w", sub.ID, err)
	}

	sub.Status = feed.StatusLive
	if sub.ServiceStartAt == 0 {
		sub.ServiceStartAt = now.Unix()
	}
	if err := s.Subs.Put(ctx, sub); err != nil {
		return nil, fmt.Errorf("persisting subscription %v: %w", sub.ID, err)
	}
	return &sub, nil
}

func (s *Subscriber) deliver(ctx context.Context, url string, creds bodssecret.Credentials, envelope *siri.Envelope) error {
	data, err := postSiri(ctx, s.Client, url, creds, envelope)
	if err != nil {
		return err
	}

	parsed, kind, err := siri.Parse(data)
	if err != nil {
		return fmt.Errorf("parsing subscribe response: %w", err)
	}
	if kind != siri.KindSubscriptionResponse {
		return fmt.Errorf("unexpected %v in subscribe response", kind)
	}
	if !siri.SubscriptionResponseOK(parsed.SubscriptionResponse) {
		return fmt.Errorf("producer rejected subscription")
	}
	return nil
}
