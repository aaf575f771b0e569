package producer

import (
	"context"
	"testing"
	"time"

	bodssecret "github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/bods-secret"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/feed"
	"github.com/tj/assert"
)

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 11, 10, 0, 0, 0, time.UTC)

	t.Run("successful subscribe goes live with service start", func(t *testing.T) {
		p := newFakeProducer()
		defer p.Close()

		subs, creds := newMemSubs(), newMemCreds()
		subscriber := &Subscriber{
			Kind:   feed.KindAVL,
			Config: testConfig("https://data.example.com"),
			Subs:   subs,
			Creds:  creds,
			Now:    func() time.Time { return now },
		}

		sub, err := subscriber.Subscribe(ctx, SubscribeInput{
			SubscriptionID: "sub-1",
			URL:            p.URL,
			Credentials:    bodssecret.Credentials{Username: "user", Password: "pass"},
			Description:    "test feed",
		})
		assert.NoError(t, err)
		assert.Equal(t, feed.StatusLive, sub.Status)
		assert.Equal(t, now.Unix(), sub.ServiceStartAt)
		assert.Equal(t, feed.StatusLive, subs.get("sub-1").Status)
		assert.True(t, creds.has("sub-1"))
	})

	t.Run("generates an id when none supplied", func(t *testing.T) {
		p := newFakeProducer()
		defer p.Close()

		subscriber := &Subscriber{
			Kind:   feed.KindAVL,
			Config: testConfig("https://data.example.com"),
			Subs:   newMemSubs(),
			Creds:  newMemCreds(),
		}

		sub, err := subscriber.Subscribe(ctx, SubscribeInput{URL: p.URL})
		assert.NoError(t, err)
		assert.NotEmpty(t, sub.ID)
	})

	t.Run("producer rejection persists failed and surfaces the error", func(t *testing.T) {
		p := newFakeProducer()
		p.acceptSub = false
		defer p.Close()

		subs, creds := newMemSubs(), newMemCreds()
		subscriber := &Subscriber{
			Kind:   feed.KindAVL,
			Config: testConfig("https://data.example.com"),
			Subs:   subs,
			Creds:  creds,
		}

		_, err := subscriber.Subscribe(ctx, SubscribeInput{SubscriptionID: "sub-1", URL: p.URL})
		assert.Error(t, err)
		assert.Equal(t, feed.StatusFailed, subs.get("sub-1").Status)
		// Credentials were stored before delivery so recovery can reuse them.
		assert.True(t, creds.has("sub-1"))
	})

	t.Run("unparseable response persists failed", func(t *testing.T) {
		p := newFakeProducer()
		p.malformed = true
		defer p.Close()

		subs := newMemSubs()
		subscriber := &Subscriber{
			Kind:   feed.KindAVL,
			Config: testConfig("https://data.example.com"),
			Subs:   subs,
			Creds:  newMemCreds(),
		}

		_, err := subscriber.Subscribe(ctx, SubscribeInput{SubscriptionID: "sub-1", URL: p.URL})
		assert.Error(t, err)
		assert.Equal(t, feed.StatusFailed, subs.get("sub-1").Status)
	})

	t.Run("transport failure persists failed", func(t *testing.T) {
		subs := newMemSubs()
		subscriber := &Subscriber{
			Kind:   feed.KindAVL,
			Config: testConfig("https://data.example.com"),
			Subs:   subs,
			Creds:  newMemCreds(),
		}

		_, err := subscriber.Subscribe(ctx, SubscribeInput{SubscriptionID: "sub-1", URL: "http://127.0.0.1:1"})
		assert.Error(t, err)
		assert.Equal(t, feed.StatusFailed, subs.get("sub-1").Status)
	})

	t.Run("resubscribe keeps the original service start", func(t *testing.T) {
		p := newFakeProducer()
		defer p.Close()

		started := now.Add(-24 * time.Hour).Unix()
		subs := newMemSubs(subscriptiondaoSub("sub-1", feed.StatusError, started))
		subscriber := &Subscriber{
			Kind:   feed.KindAVL,
			Config: testConfig("https://data.example.com"),
			Subs:   subs,
			Creds:  newMemCreds(),
			Now:    func() time.Time { return now },
		}

		sub, err := subscriber.Subscribe(ctx, SubscribeInput{SubscriptionID: "sub-1", URL: p.URL})
		assert.NoError(t, err)
		assert.Equal(t, started, sub.ServiceStartAt)
		assert.Equal(t, feed.StatusLive, sub.Status)
	})

	t.Run("cancellations subscribe carries operator filters", func(t *testing.T) {
		p := newFakeProducer()
		defer p.Close()

		subscriber := &Subscriber{
			Kind:   feed.KindCancellations,
			Config: testConfig("https://data.example.com"),
			Subs:   newMemSubs(),
			Creds:  newMemCreds(),
		}

		sub, err := subscriber.Subscribe(ctx, SubscribeInput{
			SubscriptionID: "sub-2",
			URL:            p.URL,
			OperatorRefs:   []string{"SCMN"},
		})
		assert.NoError(t, err)
		assert.Equal(t, []string{"SCMN"}, sub.OperatorRefs)
	})
}
