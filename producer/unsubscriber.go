package producer

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/feed"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/siri"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/subscriptiondao"
	"github.com/google/uuid"
)

// Unsubscriber terminates producer subscriptions.
type Unsubscriber struct {
	Kind   feed.Kind
	Config *feed.Config
	Subs   SubscriptionStore
	Creds  CredentialStore
	Client *http.Client
	Now    func() time.Time
}

func (u *Unsubscriber) now() time.Time {
	if u.Now != nil {
		return u.Now()
	}
	return time.Now()
}

// Terminate sends the SIRI terminate request without touching the record or
// the stored credentials. The health monitor calls this best-effort before a
// resubscribe, which still needs the credentials.
func (u *Unsubscriber) Terminate(ctx context.Context, sub *subscriptiondao.Subscription) error {
	creds, err := u.Creds.Get(ctx, sub.ID)
	if err != nil {
		return fmt.Errorf("loading credentials for %v: %w", sub.ID, err)
	}

	envelope := siri.NewTerminateSubscriptionRequest(sub.ID, sub.RequestorRef, uuid.NewString(), u.now())
	data, err := postSiri(ctx, u.Client, sub.ProducerURL(u.Config), creds, envelope)
	if err != nil {
		return err
	}

	parsed, kind, err := siri.Parse(data)
	if err != nil {
		return fmt.Errorf("parsing terminate response: %w", err)
	}
	if kind != siri.KindTerminateSubscriptionResponse {
		return fmt.Errorf("unexpected %v in terminate response", kind)
	}
	if !siri.TerminateResponseOK(parsed.TerminateSubscriptionResponse) {
		return fmt.Errorf("producer rejected termination of %v", sub.ID)
	}
	return nil
}

// Unsubscribe terminates the subscription with the producer, marks the record
// inactive, and deletes the credential pair. Inactive is terminal; nothing
// touches the record afterwards.
func (u *Unsubscriber) Unsubscribe(ctx context.Context, sub *subscriptiondao.Subscription) error {
	if err := u.Terminate(ctx, sub); err != nil {
		return err
	}

	updated := *sub
	updated.Status = feed.StatusInactive
	updated.ServiceEndAt = u.now().Unix()
	if err := u.Subs.Put(ctx, updated); err != nil {
		return fmt.Errorf("persisting terminated subscription %v: %w", sub.ID, err)
	}

	if err := u.Creds.Delete(ctx, sub.ID); err != nil {
		return fmt.Errorf("deleting credentials for %v: %w", sub.ID, err)
	}
	return nil
}
