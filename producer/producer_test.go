package producer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	bodscli "github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/bods-cli"
	bodssecret "github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/bods-secret"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/feed"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/siri"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/subscriptiondao"
	"github.com/rs/zerolog"
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

func (m *memSubs) Put(_ context.Context, sub subscriptiondao.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[sub.ID] = sub
	return nil
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

func (m *memSubs) ListNotInactive(_ context.Context) ([]subscriptiondao.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []subscriptiondao.Subscription
	for _, sub := range m.subs {
		if !sub.Status.Terminal() {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (m *memSubs) get(id string) subscriptiondao.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subs[id]
}

type memCreds struct {
	mu    sync.Mutex
	creds map[string]bodssecret.Credentials
}

func newMemCreds() *memCreds {
	return &memCreds{creds: map[string]bodssecret.Credentials{}}
}

func (m *memCreds) Get(_ context.Context, id string) (bodssecret.Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	creds, ok := m.creds[id]
	if !ok {
		return bodssecret.Credentials{}, bodssecret.ErrCredentialsNotFound
	}
	return creds, nil
}

func (m *memCreds) Put(_ context.Context, id string, creds bodssecret.Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds[id] = creds
	return nil
}

func (m *memCreds) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.creds, id)
	return nil
}

func (m *memCreds) has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.creds[id]
	return ok
}

type memMetrics struct {
	mu     sync.Mutex
	events map[bodscli.MetricName]int
}

func newMemMetrics() *memMetrics {
	return &memMetrics{events: map[bodscli.MetricName]int{}}
}

func (m *memMetrics) Event(_ context.Context, name bodscli.MetricName, _ ...map[bodscli.DimensionName]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[name]++
}

func (m *memMetrics) count(name bodscli.MetricName) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events[name]
}

// fakeProducer is an httptest server speaking just enough SIRI to subscribe
// and terminate against.
type fakeProducer struct {
	*httptest.Server

	mu             sync.Mutex
	subscribes     int
	terminates     int
	acceptSub      bool
	acceptTerm     bool
	malformed      bool
}

func newFakeProducer() *fakeProducer {
	p := &fakeProducer{acceptSub: true, acceptTerm: true}
	p.Server = httptest.NewServer(http.HandlerFunc(p.handle))
	return p
}

func (p *fakeProducer) handle(w http.ResponseWriter, req *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	body := make([]byte, req.ContentLength)
	req.Body.Read(body)
	envelope, kind, err := siri.Parse(body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if p.malformed {
		w.Write([]byte("not xml at all"))
		return
	}

	now := time.Now()
	switch kind {
	case siri.KindSubscriptionRequest:
		p.subscribes++
		id := ""
		if vm := envelope.SubscriptionRequest.VehicleMonitoringSubscriptionRequest; vm != nil {
			id = vm.SubscriptionIdentifier
		} else if sx := envelope.SubscriptionRequest.SituationExchangeSubscriptionRequest; sx != nil {
			id = sx.SubscriptionIdentifier
		}
		resp, _ := siri.Marshal(siri.NewSubscriptionResponse(id, "producer", envelope.SubscriptionRequest.MessageIdentifier, p.acceptSub, now))
		w.Write(resp)
	case siri.KindTerminateSubscriptionRequest:
		p.terminates++
		resp, _ := siri.Marshal(siri.NewTerminateSubscriptionResponse(envelope.TerminateSubscriptionRequest.SubscriptionRef, p.acceptTerm, now))
		w.Write(resp)
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func (p *fakeProducer) counts() (subscribes, terminates int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.subscribes, p.terminates
}

func subscriptiondaoSub(id string, status feed.Status, serviceStartAt int64) subscriptiondao.Subscription {
	return subscriptiondao.Subscription{
		ID:             id,
		FeedKind:       feed.KindAVL,
		Status:         status,
		ServiceStartAt: serviceStartAt,
	}
}

func testConfig(endpoint string) *feed.Config {
	cfg := feed.DefaultConfig("test")
	cfg.DataEndpoint = endpoint
	return &cfg
}

func nopLogger() zerolog.Logger {
	return zerolog.Nop()
}
