package consumer

import (
	"context"
	"testing"

	"github.com/tj/assert"

	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/consumerdao"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/feed"
)

func newTestSweep(consumers *memConsumers, metrics *memMetrics) *HeartbeatSweep {
	cfg := feed.DefaultConfig("test")
	return &HeartbeatSweep{
		Config:     &cfg,
		Consumers:  consumers,
		Dispatcher: newTestDispatcher(consumers, &memRowSource{}, metrics),
	}
}

func TestHeartbeatSweep(t *testing.T) {
	ctx := context.Background()

	t.Run("posts to every live consumer", func(t *testing.T) {
		healthy := newFakeConsumer(true)
		defer healthy.Close()
		other := newFakeConsumer(true)
		defer other.Close()

		consumers := newMemConsumers(
			liveConsumer(healthy.URL()),
			consumerdao.Subscription{ID: "sub-2", ConsumerKey: "key-2", Status: feed.StatusLive, URL: other.URL()},
			consumerdao.Subscription{ID: "sub-3", ConsumerKey: "key-3", Status: feed.StatusInactive, URL: other.URL()},
		)
		s := newTestSweep(consumers, newMemMetrics())

		assert.NoError(t, s.Sweep(ctx))
		assert.Equal(t, 1, healthy.receivedCount())
		assert.Equal(t, 1, other.receivedCount())
	})

	t.Run("one failing consumer does not block siblings", func(t *testing.T) {
		failing := newFakeConsumer(false)
		defer failing.Close()
		healthy := newFakeConsumer(true)
		defer healthy.Close()

		consumers := newMemConsumers(
			liveConsumer(failing.URL()),
			consumerdao.Subscription{ID: "sub-2", ConsumerKey: "key-2", Status: feed.StatusLive, URL: healthy.URL()},
		)
		s := newTestSweep(consumers, newMemMetrics())

		assert.NoError(t, s.Sweep(ctx))
		assert.Equal(t, 1, healthy.receivedCount())

		rejected, _ := consumers.Get(ctx, "sub-1", "key-1")
		assert.Equal(t, 1, rejected.HeartbeatAttempts)
	})

	t.Run("zero-value concurrency still sweeps", func(t *testing.T) {
		healthy := newFakeConsumer(true)
		defer healthy.Close()

		consumers := newMemConsumers(liveConsumer(healthy.URL()))
		s := newTestSweep(consumers, newMemMetrics())
		s.Config = &feed.Config{}

		assert.NoError(t, s.Sweep(ctx))
		assert.Equal(t, 1, healthy.receivedCount())
	})

	t.Run("three failing sweeps flip the consumer to error", func(t *testing.T) {
		failing := newFakeConsumer(false)
		defer failing.Close()

		consumers := newMemConsumers(liveConsumer(failing.URL()))
		s := newTestSweep(consumers, newMemMetrics())

		for i := 0; i < 3; i++ {
			assert.NoError(t, s.Sweep(ctx))
		}

		stored, _ := consumers.Get(ctx, "sub-1", "key-1")
		assert.Equal(t, 3, stored.HeartbeatAttempts)
		assert.Equal(t, feed.StatusError, stored.Status)
	})
}
