package consumer

import (
	"context"
	"net/http"

	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/channel"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/errors"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/feed"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/siri"
)

// Unsubscriber tears down consumer subscriptions.
type Unsubscriber struct {
	Consumers Store
	Channels  ChannelProvisioner
}

// Unsubscribe validates the terminate request, deprovisions the delivery
// channel, and marks the record inactive with the channel handles cleared.
func (u *Unsubscriber) Unsubscribe(ctx context.Context, consumerKey string, req *siri.TerminateSubscriptionRequest) error {
	if consumerKey == "" {
		return errors.E(http.StatusBadRequest, "missing consumer key")
	}
	if err := siri.ValidateTerminateSubscriptionRequest(req); err != nil {
		return errors.E(http.StatusBadRequest, err)
	}

	sub, err := u.Consumers.Get(ctx, req.SubscriptionRef, consumerKey)
	if err != nil {
		return err
	}
	if sub == nil {
		return errors.E(http.StatusNotFound, "unknown consumer subscription")
	}

	handles := channel.Handles{
		QueueURL:               sub.QueueURL,
		EventSourceMappingUUID: sub.EventSourceMappingUUID,
		ScheduleName:           sub.ScheduleName,
	}
	if err := u.Channels.Deprovision(ctx, handles); err != nil {
		return err
	}

	sub.Status = feed.StatusInactive
	sub.QueueURL = ""
	sub.EventSourceMappingUUID = ""
	sub.ScheduleName = ""
	return u.Consumers.Put(ctx, *sub)
}
