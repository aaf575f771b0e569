package consumer

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/avldao"
	bodscli "github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/bods-cli"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/channel"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/consumerdao"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/errors"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/feed"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/siri"
)

// maxHeartbeatAttempts is the strike count at which a consumer subscription
// is flipped to error.
const maxHeartbeatAttempts = 3

// errDeliveryRejected marks a recognized delivery failure: the consumer
// answered, but not with a 2xx. Transport-level failures stay unwrapped.
var errDeliveryRejected = errors.New("consumer rejected delivery")

// RowSource is the incremental query the data branch runs.
type RowSource interface {
	QueryAfter(ctx context.Context, kind feed.Kind, after int64, filter avldao.Filter) ([]avldao.Row, error)
}

// MetricSink records counter events.
type MetricSink interface {
	Event(ctx context.Context, name bodscli.MetricName, dimensions ...map[bodscli.DimensionName]string)
}

// Dispatcher processes one delivery-channel message per invocation.
type Dispatcher struct {
	Kind        feed.Kind
	Consumers   Store
	Rows        RowSource
	Client      *http.Client
	Metrics     MetricSink
	ProducerRef string
	Logger      zerolog.Logger
	Now         func() time.Time
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Dispatcher) client() *http.Client {
	if d.Client != nil {
		return d.Client
	}
	return http.DefaultClient
}

// Dispatch handles a single trigger message. An unknown subscription is fatal
// for the message; a deliberately deactivated one is a silent no-op.
func (d *Dispatcher) Dispatch(ctx context.Context, msg channel.TriggerMessage) error {
	sub, err := d.Consumers.Get(ctx, msg.ConsumerID, msg.ConsumerKey)
	if err != nil {
		return err
	}
	if sub == nil {
		return fmt.Errorf("orphaned trigger for consumer %v/%v", msg.ConsumerID, msg.ConsumerKey)
	}
	if sub.Status != feed.StatusLive {
		d.Logger.Info().
			Str("subscription_id", sub.ID).
			Str("status", string(sub.Status)).
			Msg("skipping dispatch for non-live consumer")
		return nil
	}

	switch msg.MessageType {
	case channel.MessageTypeData:
		return d.dispatchData(ctx, sub, msg.FrequencyInSeconds)
	case channel.MessageTypeHeartbeat:
		return d.dispatchHeartbeat(ctx, sub)
	default:
		return fmt.Errorf("unknown trigger message type %q", msg.MessageType)
	}
}

func (d *Dispatcher) dispatchData(ctx context.Context, sub *consumerdao.Subscription, frequencySeconds int64) error {
	now := d.now()

	// The schedule ticks on a fixed cadence; the consumer's requested update
	// interval travels in the trigger message. A tick that lands inside the
	// interval since the last successful delivery produces nothing.
	if frequencySeconds > 0 && sub.LastDeliveredAt > 0 {
		if now.Unix()-sub.LastDeliveredAt < frequencySeconds {
			return nil
		}
	}

	rows, err := d.Rows.QueryAfter(ctx, d.Kind, sub.LastRetrievedID, sub.QueryParams)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		// Nothing new; no HTTP call, no write.
		return nil
	}

	envelope, err := buildDelivery(d.Kind, d.ProducerRef, rows, now)
	if err != nil {
		return err
	}
	if err := d.post(ctx, sub.URL, envelope); err != nil {
		// Data-push failures are silent from the consumer's perspective and
		// never touch the heartbeat counters; the cursor stays put so the
		// rows are retried on the next tick.
		d.Logger.Warn().Err(err).
			Str("subscription_id", sub.ID).
			Str("consumer_key", sub.ConsumerKey).
			Msg("data delivery failed")
		d.Metrics.Event(ctx, bodscli.DeliveryFailuresMetric, map[bodscli.DimensionName]string{
			bodscli.FeedKindDimension:       string(d.Kind),
			bodscli.SubscriptionIDDimension: sub.ID,
		})
		return nil
	}

	sub.LastRetrievedID = rows[len(rows)-1].ID
	sub.LastDeliveredAt = now.Unix()
	return d.Consumers.Put(ctx, *sub)
}

func (d *Dispatcher) dispatchHeartbeat(ctx context.Context, sub *consumerdao.Subscription) error {
	err := d.post(ctx, sub.URL, siri.NewHeartbeatNotification(d.ProducerRef, nil, d.now()))
	return d.applyHeartbeatResult(ctx, sub, err)
}

// applyHeartbeatResult applies the three-strikes policy shared with the
// heartbeat sweep. Success resets the counter; a recognized rejection
// increments it and flips the subscription to error on the third strike; an
// unrecognized failure is logged without touching the counters.
func (d *Dispatcher) applyHeartbeatResult(ctx context.Context, sub *consumerdao.Subscription, err error) error {
	if err == nil {
		if sub.HeartbeatAttempts == 0 && sub.Status == feed.StatusLive {
			return nil
		}
		sub.HeartbeatAttempts = 0
		sub.Status = feed.StatusLive
		return d.Consumers.Put(ctx, *sub)
	}

	if !errors.Is(err, errDeliveryRejected) {
		d.Logger.Warn().Err(err).
			Str("subscription_id", sub.ID).
			Str("consumer_key", sub.ConsumerKey).
			Msg("heartbeat delivery failed without a response")
		return nil
	}

	sub.HeartbeatAttempts++
	if sub.HeartbeatAttempts >= maxHeartbeatAttempts {
		sub.Status = feed.StatusError
	}
	d.Logger.Warn().
		Str("subscription_id", sub.ID).
		Str("consumer_key", sub.ConsumerKey).
		Int("attempts", sub.HeartbeatAttempts).
		Msg("consumer rejected heartbeat")
	d.Metrics.Event(ctx, bodscli.HeartbeatFailuresMetric, map[bodscli.DimensionName]string{
		bodscli.FeedKindDimension:       string(d.Kind),
		bodscli.SubscriptionIDDimension: sub.ID,
	})
	return d.Consumers.Put(ctx, *sub)
}

func (d *Dispatcher) post(ctx context.Context, url string, envelope *siri.Envelope) error {
	body, err := siri.Marshal(envelope)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/xml")

	resp, err := d.client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %v", errDeliveryRejected, resp.StatusCode)
	}
	return nil
}

// buildDelivery rebuilds a service delivery from stored row fragments.
func buildDelivery(kind feed.Kind, producerRef string, rows []avldao.Row, now time.Time) (*siri.Envelope, error) {
	switch kind {
	case feed.KindAVL:
		activities := make([]siri.VehicleActivity, 0, len(rows))
		for _, row := range rows {
			var activity siri.VehicleActivity
			if err := xml.Unmarshal([]byte(row.Body), &activity); err != nil {
				return nil, fmt.Errorf("decoding stored activity %v: %w", row.ID, err)
			}
			activities = append(activities, activity)
		}
		return siri.NewVehicleMonitoringDelivery(producerRef, activities, now), nil

	case feed.KindCancellations:
		situations := make([]siri.PtSituationElement, 0, len(rows))
		for _, row := range rows {
			var situation siri.PtSituationElement
			if err := xml.Unmarshal([]byte(row.Body), &situation); err != nil {
				return nil, fmt.Errorf("decoding stored situation %v: %w", row.ID, err)
			}
			situations = append(situations, situation)
		}
		return siri.NewSituationExchangeDelivery(producerRef, situations, now), nil

	default:
		return nil, fmt.Errorf("unknown feed kind %q", kind)
	}
}
