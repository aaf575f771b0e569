// Package feed defines the feed kinds the engine carries (vehicle locations
// and cancellations) as a capability set, so the subscribe / health-check /
// unsubscribe machinery is written once and parameterized rather than
// duplicated per feed.
package feed

import (
	"fmt"

	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/siri"
)

type Kind string

const (
	KindAVL           Kind = "avl"
	KindCancellations Kind = "cancellations"
)

func ParseKind(value string) (Kind, error) {
	switch Kind(value) {
	case KindAVL:
		return KindAVL, nil
	case KindCancellations:
		return KindCancellations, nil
	default:
		return "", fmt.Errorf("unknown feed kind %q", value)
	}
}

func (k Kind) String() string {
	return string(k)
}

// NewSubscribeRequest builds the producer-bound subscribe document for this
// feed kind. OperatorRefs only apply to cancellations.
func (k Kind) NewSubscribeRequest(opts siri.SubscribeOptions) *siri.Envelope {
	switch k {
	case KindCancellations:
		return siri.NewSituationExchangeSubscriptionRequest(opts)
	default:
		opts.OperatorRefs = nil
		return siri.NewVehicleMonitoringSubscriptionRequest(opts)
	}
}

// SubscriptionTableName names the per-kind FeedSubscription table.
func (k Kind) SubscriptionTableName(env string) string {
	return fmt.Sprintf("%v-integrated-data-%v-subscriptions", env, k)
}

// ConsumerTableName names the per-kind ConsumerSubscription table.
func (k Kind) ConsumerTableName(env string) string {
	return fmt.Sprintf("%v-integrated-data-%v-consumer-subscriptions", env, k)
}

// RowTableName names the per-kind delivered-data row table.
func (k Kind) RowTableName(env string) string {
	return fmt.Sprintf("%v-integrated-data-%v-rows", env, k)
}

// CredentialPrefix scopes the SSM credential paths per feed kind.
func (k Kind) CredentialPrefix(env string) string {
	return fmt.Sprintf("%v-%v", env, k)
}
