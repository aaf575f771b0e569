package producer

import (
	"context"
	"fmt"
	"time"

	bodscli "github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/bods-cli"
	bodssecret "github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/bods-secret"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/errors"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/feed"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/subscriptiondao"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Resubscriber re-establishes a subscription during recovery.
type Resubscriber interface {
	Subscribe(ctx context.Context, input SubscribeInput) (*subscriptiondao.Subscription, error)
}

// Terminator sends a terminate request without mutating state.
type Terminator interface {
	Terminate(ctx context.Context, sub *subscriptiondao.Subscription) error
}

// MetricSink records counter events.
type MetricSink interface {
	Event(ctx context.Context, name bodscli.MetricName, dimensions ...map[bodscli.DimensionName]string)
}

// Monitor sweeps all non-terminated subscriptions, flips health state, and
// drives unsubscribe+resubscribe recovery for stale ones.
type Monitor struct {
	Kind         feed.Kind
	Config       *feed.Config
	Subs         SubscriptionStore
	Creds        CredentialStore
	Subscriber   Resubscriber
	Unsubscriber Terminator
	Metrics      MetricSink
	Logger       zerolog.Logger
	Now          func() time.Time
}

func (m *Monitor) nowOnce() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// Sweep checks every non-terminated subscription concurrently. Wall-clock time
// is read once so all staleness decisions within the sweep are mutually
// consistent, and per-item failures are logged and counted, never propagated.
func (m *Monitor) Sweep(ctx context.Context) error {
	now := m.nowOnce()

	subs, err := m.Subs.ListNotInactive(ctx)
	if err != nil {
		return fmt.Errorf("listing subscriptions for health sweep: %w", err)
	}

	concurrency := m.Config.SweepConcurrency
	if concurrency <= 0 {
		concurrency = 50
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, sub := range subs {
		sub := sub
		g.Go(func() error {
			if err := m.checkOne(ctx, now, sub); err != nil {
				m.Logger.Error().Err(err).
					Str("subscription_id", sub.ID).
					Str("feed_kind", string(m.Kind)).
					Msg("health check failed for subscription")
				m.Metrics.Event(ctx, bodscli.OutagesMetric, map[bodscli.DimensionName]string{
					bodscli.FeedKindDimension:       string(m.Kind),
					bodscli.SubscriptionIDDimension: sub.ID,
				})
			}
			return nil
		})
	}
	return g.Wait()
}

func (m *Monitor) checkOne(ctx context.Context, now time.Time, sub subscriptiondao.Subscription) error {
	if sub.Status.Terminal() {
		return nil
	}
	// Not yet in service; nothing to judge.
	if sub.ServiceStartAt > now.Unix() {
		return nil
	}

	threshold := int64(m.Config.StaleAfter(m.Kind).Seconds())
	if alive := sub.LastAlive(); alive != 0 && now.Unix()-alive <= threshold {
		if sub.Status != feed.StatusLive {
			sub.Status = feed.StatusLive
			if err := m.Subs.Put(ctx, sub); err != nil {
				return fmt.Errorf("persisting recovered subscription: %w", err)
			}
			m.Logger.Info().Str("subscription_id", sub.ID).Msg("subscription recovered")
		}
		return nil
	}

	// Unhealthy. Flag it first so observers see the degradation even if
	// recovery below takes a while or fails.
	sub.Status = feed.StatusError
	if err := m.Subs.Put(ctx, sub); err != nil {
		return fmt.Errorf("persisting unhealthy subscription: %w", err)
	}

	creds, err := m.Creds.Get(ctx, sub.ID)
	if err != nil {
		if errors.Is(err, bodssecret.ErrCredentialsNotFound) {
			// Fatal for this subscription until an operator resubscribes.
			m.Logger.Error().Str("subscription_id", sub.ID).Msg("no credentials stored, cannot recover")
			return nil
		}
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := m.Unsubscriber.Terminate(ctx, &sub); err != nil {
		m.Logger.Warn().Err(err).Str("subscription_id", sub.ID).Msg("best-effort unsubscribe failed")
	}

	if _, err := m.Subscriber.Subscribe(ctx, SubscribeInput{
		SubscriptionID:   sub.ID,
		URL:              sub.URL,
		Credentials:      creds,
		Description:      sub.Description,
		ShortDescription: sub.ShortDescription,
		RequestorRef:     sub.RequestorRef,
		PublisherID:      sub.PublisherID,
		OperatorRefs:     sub.OperatorRefs,
	}); err != nil {
		// The failed resubscribe wrote status=failed; error is the truthful
		// state until the next sweep retries.
		sub.Status = feed.StatusError
		if putErr := m.Subs.Put(ctx, sub); putErr != nil {
			m.Logger.Error().Err(putErr).Str("subscription_id", sub.ID).Msg("unable to persist error status")
		}
		return fmt.Errorf("resubscribing: %w", err)
	}

	m.Metrics.Event(ctx, bodscli.ResubscriptionsMetric, map[bodscli.DimensionName]string{
		bodscli.FeedKindDimension:       string(m.Kind),
		bodscli.SubscriptionIDDimension: sub.ID,
	})
	m.Logger.Info().Str("subscription_id", sub.ID).Msg("resubscribed stale subscription")
	return nil
}
