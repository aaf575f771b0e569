package consumer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/avldao"
	bodscli "github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/bods-cli"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/channel"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/consumerdao"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/feed"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/subscriptiondao"
)

type memConsumers struct {
	mu   sync.Mutex
	subs map[string]consumerdao.Subscription
	puts int
}

func newMemConsumers(subs ...consumerdao.Subscription) *memConsumers {
	m := &memConsumers{subs: map[string]consumerdao.Subscription{}}
	for _, sub := range subs {
		m.subs[sub.ID+"/"+sub.ConsumerKey] = sub
	}
	return m
}

func (m *memConsumers) Get(_ context.Context, id, key string) (*consumerdao.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[id+"/"+key]
	if !ok {
		return nil, nil
	}
	return &sub, nil
}

func (m *memConsumers) Put(_ context.Context, sub consumerdao.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[sub.ID+"/"+sub.ConsumerKey] = sub
	m.puts++
	return nil
}

func (m *memConsumers) ListLive(_ context.Context) ([]consumerdao.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var live []consumerdao.Subscription
	for _, sub := range m.subs {
		if sub.Status == feed.StatusLive {
			live = append(live, sub)
		}
	}
	sort.Slice(live, func(i, j int) bool { return live[i].ID < live[j].ID })
	return live, nil
}

func (m *memConsumers) putCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}

type memFeeds struct {
	subs map[string]subscriptiondao.Subscription
}

func newMemFeeds(subs ...subscriptiondao.Subscription) *memFeeds {
	m := &memFeeds{subs: map[string]subscriptiondao.Subscription{}}
	for _, sub := range subs {
		m.subs[sub.ID] = sub
	}
	return m
}

func (m *memFeeds) Get(_ context.Context, id string) (*subscriptiondao.Subscription, error) {
	sub, ok := m.subs[id]
	if !ok {
		return nil, nil
	}
	return &sub, nil
}

type fakeChannels struct {
	mu            sync.Mutex
	provisionErr  error
	provisioned   []string
	deprovisioned []channel.Handles
}

func (f *fakeChannels) Provision(_ context.Context, consumerID, consumerKey string, _ time.Duration) (*channel.Handles, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.provisionErr != nil {
		return nil, f.provisionErr
	}
	f.provisioned = append(f.provisioned, consumerID+"/"+consumerKey)
	return &channel.Handles{
		QueueURL:               "https://sqs.eu-west-2.amazonaws.com/123/" + consumerID,
		EventSourceMappingUUID: "esm-" + consumerID,
		ScheduleName:           "schedule-" + consumerID,
	}, nil
}

func (f *fakeChannels) Deprovision(_ context.Context, handles channel.Handles) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deprovisioned = append(f.deprovisioned, handles)
	return nil
}

type memRowSource struct {
	rows []avldao.Row
}

func (m *memRowSource) QueryAfter(_ context.Context, kind feed.Kind, after int64, filter avldao.Filter) ([]avldao.Row, error) {
	var matched []avldao.Row
	for _, row := range m.rows {
		if row.FeedKind == kind && row.ID > after && filter.Matches(row) {
			matched = append(matched, row)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return matched, nil
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

// fakeConsumer is an httptest server standing in for a downstream consumer
// endpoint.
type fakeConsumer struct {
	mu        sync.Mutex
	server    *httptest.Server
	accept   bool
	received int
}

func newFakeConsumer(accept bool) *fakeConsumer {
	f := &fakeConsumer{accept: accept}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	return f
}

func (f *fakeConsumer) handle(w http.ResponseWriter, req *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received++
	if !f.accept {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (f *fakeConsumer) Close() { f.server.Close() }

func (f *fakeConsumer) URL() string { return f.server.URL }

func (f *fakeConsumer) receivedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.received
}

func (f *fakeConsumer) setAccept(accept bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accept = accept
}

func nopLogger() zerolog.Logger {
	return zerolog.Nop()
}
