package ingest

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/avldao"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/feed"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/subscriptiondao"
	"github.com/tj/assert"
)

type memSubs struct {
	mu   sync.Mutex
	subs map[string]subscriptiondao.Subscription
}

func newMemSubs(subs ...subscriptiondao.Subscription) *memSubs {
	m := &memSubs{subs: map[string]subscriptiondao.Subscription{}}
	for _, sub := range subs {
		m.subs[sub.ID] = sub
	}
	return m
}

func (m *memSubs) Get(_ context.Context, id string) (*subscriptiondao.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[id]
	if !ok {
		return nil, nil
	}
	return &sub, nil
}

func (m *memSubs) Put(_ context.Context, sub subscriptiondao.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[sub.ID] = sub
	return nil
}

type memRows struct {
	mu   sync.Mutex
	rows []avldao.Row
}

func (m *memRows) PutAll(_ context.Context, rows []avldao.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, rows...)
	return nil
}

type memBlobs struct {
	mu   sync.Mutex
	keys []string
}

func (m *memBlobs) PutRaw(_ context.Context, subscriptionID string, timestamp time.Time, _ []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, RawKey(subscriptionID, timestamp))
	return nil
}

const heartbeatDoc = `<Siri><HeartbeatNotification>
  <RequestTimestamp>2024-03-11T09:00:00Z</RequestTimestamp>
  <ProducerRef>producer-1</ProducerRef>
  <Status>true</Status>
</HeartbeatNotification></Siri>`

const deliveryDoc = `<Siri><ServiceDelivery>
  <ResponseTimestamp>2024-03-11T09:00:00Z</ResponseTimestamp>
  <ProducerRef>producer-1</ProducerRef>
  <VehicleMonitoringDelivery>
    <ResponseTimestamp>2024-03-11T09:00:00Z</ResponseTimestamp>
    <VehicleActivity>
      <RecordedAtTime>2024-03-11T08:59:55Z</RecordedAtTime>
      <MonitoredVehicleJourney>
        <LineRef>101</LineRef>
        <OperatorRef>SCMN</OperatorRef>
        <VehicleLocation><Longitude>-2.24</Longitude><Latitude>53.48</Latitude></VehicleLocation>
        <VehicleRef>V1</VehicleRef>
      </MonitoredVehicleJourney>
    </VehicleActivity>
  </VehicleMonitoringDelivery>
</ServiceDelivery></Siri>`

const emptyDeliveryDoc = `<Siri><ServiceDelivery>
  <ResponseTimestamp>2024-03-11T09:00:00Z</ResponseTimestamp>
</ServiceDelivery></Siri>`

func newTestHandler(subs *memSubs, rows *memRows, blobs *memBlobs, now time.Time) *Handler {
	var nextID int64
	return &Handler{
		Kind:   feed.KindAVL,
		Subs:   subs,
		Rows:   rows,
		Blobs:  blobs,
		APIKey: "secret-key",
		Now:    func() time.Time { return now },
		NextID: func() int64 { nextID++; return nextID },
	}
}

func post(t *testing.T, h *Handler, subscriptionID, apiKey, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/%v?apiKey=%v", subscriptionID, apiKey), bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	h.Routes().ServeHTTP(w, req)
	return w
}

func TestIngest(t *testing.T) {
	now := time.Date(2024, 3, 11, 10, 0, 0, 0, time.UTC)
	live := subscriptiondao.Subscription{ID: "sub-1", FeedKind: feed.KindAVL, Status: feed.StatusLive}

	t.Run("bad api key is unauthorized", func(t *testing.T) {
		h := newTestHandler(newMemSubs(live), &memRows{}, &memBlobs{}, now)
		w := post(t, h, "sub-1", "wrong", heartbeatDoc)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed body is a bad request", func(t *testing.T) {
		h := newTestHandler(newMemSubs(live), &memRows{}, &memBlobs{}, now)
		w := post(t, h, "sub-1", "secret-key", "not xml")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("heartbeat updates heartbeat liveness only", func(t *testing.T) {
		subs := newMemSubs(live)
		blobs := &memBlobs{}
		h := newTestHandler(subs, &memRows{}, blobs, now)

		w := post(t, h, "sub-1", "secret-key", heartbeatDoc)
		assert.Equal(t, http.StatusOK, w.Code)

		stored, _ := subs.Get(context.Background(), "sub-1")
		assert.Equal(t, now.Unix(), stored.HeartbeatReceivedAt)
		assert.Zero(t, stored.LastDataReceivedAt)
		assert.Len(t, blobs.keys, 1)
	})

	t.Run("heartbeat for unknown subscription is not found", func(t *testing.T) {
		h := newTestHandler(newMemSubs(), &memRows{}, &memBlobs{}, now)
		w := post(t, h, "ghost", "secret-key", heartbeatDoc)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("data updates data liveness and stores rows", func(t *testing.T) {
		subs := newMemSubs(live)
		rows := &memRows{}
		h := newTestHandler(subs, rows, &memBlobs{}, now)

		w := post(t, h, "sub-1", "secret-key", deliveryDoc)
		assert.Equal(t, http.StatusOK, w.Code)

		stored, _ := subs.Get(context.Background(), "sub-1")
		// Ingestion time, not the producer-claimed response timestamp.
		assert.Equal(t, now.Unix(), stored.LastDataReceivedAt)
		assert.Zero(t, stored.HeartbeatReceivedAt)

		assert.Len(t, rows.rows, 1)
		assert.Equal(t, "SCMN", rows.rows[0].OperatorRef)
		assert.Equal(t, "sub-1", rows.rows[0].SubscriptionID)
		assert.Equal(t, 53.48, rows.rows[0].Latitude)
		assert.NotEmpty(t, rows.rows[0].Body)
	})

	t.Run("empty envelope is a no-op success even for unknown subscriptions", func(t *testing.T) {
		blobs := &memBlobs{}
		h := newTestHandler(newMemSubs(), &memRows{}, blobs, now)
		w := post(t, h, "ghost", "secret-key", emptyDeliveryDoc)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, blobs.keys)
	})

	t.Run("inactive subscription is not resurrected", func(t *testing.T) {
		inactive := subscriptiondao.Subscription{ID: "sub-1", FeedKind: feed.KindAVL, Status: feed.StatusInactive}
		subs := newMemSubs(inactive)
		h := newTestHandler(subs, &memRows{}, &memBlobs{}, now)

		w := post(t, h, "sub-1", "secret-key", deliveryDoc)
		assert.Equal(t, http.StatusNotFound, w.Code)

		stored, _ := subs.Get(context.Background(), "sub-1")
		assert.Zero(t, stored.LastDataReceivedAt)
		assert.Equal(t, feed.StatusInactive, stored.Status)
	})

	t.Run("non-delivery siri payload is a bad request", func(t *testing.T) {
		h := newTestHandler(newMemSubs(live), &memRows{}, &memBlobs{}, now)
		doc := `<Siri><TerminateSubscriptionRequest>
  <RequestTimestamp>2024-03-11T09:00:00Z</RequestTimestamp>
  <RequestorRef>x</RequestorRef>
  <MessageIdentifier>m</MessageIdentifier>
  <SubscriptionRef>sub-1</SubscriptionRef>
</TerminateSubscriptionRequest></Siri>`
		w := post(t, h, "sub-1", "secret-key", doc)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("row ids are assigned in increasing order", func(t *testing.T) {
		rows := &memRows{}
		h := newTestHandler(newMemSubs(live), rows, &memBlobs{}, now)

		post(t, h, "sub-1", "secret-key", deliveryDoc)
		post(t, h, "sub-1", "secret-key", deliveryDoc)

		assert.Len(t, rows.rows, 2)
		assert.True(t, rows.rows[0].ID < rows.rows[1].ID)
	})
}
