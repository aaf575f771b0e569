package consumer

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/consumerdao"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/feed"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/siri"
)

// LiveLister lists the consumer subscriptions the heartbeat sweep targets.
type LiveLister interface {
	ListLive(ctx context.Context) ([]consumerdao.Subscription, error)
}

// HeartbeatSweep posts a heartbeat to every live consumer subscription and
// applies the same three-strikes policy as the dispatcher's heartbeat branch.
type HeartbeatSweep struct {
	Config     *feed.Config
	Consumers  LiveLister
	Dispatcher *Dispatcher
}

// Sweep fans out over all live consumer subscriptions. Per-item failures are
// handled inside the heartbeat policy and never abort siblings; only listing
// failures propagate.
func (s *HeartbeatSweep) Sweep(ctx context.Context) error {
	// One timestamp for the whole sweep keeps its decisions consistent.
	now := s.Dispatcher.now()

	subs, err := s.Consumers.ListLive(ctx)
	if err != nil {
		return err
	}

	concurrency := s.Config.SweepConcurrency
	if concurrency <= 0 {
		concurrency = 50
	}

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)
	for i := range subs {
		sub := subs[i]
		group.Go(func() error {
			err := s.Dispatcher.post(ctx, sub.URL, siri.NewHeartbeatNotification(s.Dispatcher.ProducerRef, nil, now))
			if applyErr := s.Dispatcher.applyHeartbeatResult(ctx, &sub, err); applyErr != nil {
				s.Dispatcher.Logger.Error().Err(applyErr).
					Str("subscription_id", sub.ID).
					Str("consumer_key", sub.ConsumerKey).
					Msg("failed to record heartbeat outcome")
			}
			return nil
		})
	}
	return group.Wait()
}
