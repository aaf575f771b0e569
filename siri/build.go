package siri

import (
	"encoding/xml"
	"fmt"
	"time"
)

const version = "2.0"

// Marshal renders an envelope as a SIRI XML document with the standard header.
func Marshal(envelope *Envelope) ([]byte, error) {
	envelope.Xmlns = Namespace
	envelope.Version = version

	body, err := xml.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling siri document: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

// SubscribeOptions carries everything needed to build a producer-bound
// subscription request.
type SubscribeOptions struct {
	SubscriptionID         string
	RequestorRef           string
	MessageIdentifier      string
	ConsumerAddress        string
	HeartbeatInterval      string
	InitialTerminationTime time.Time
	RequestTimestamp       time.Time
	OperatorRefs           []string
}

// NewVehicleMonitoringSubscriptionRequest builds the AVL subscribe document.
func NewVehicleMonitoringSubscriptionRequest(opts SubscribeOptions) *Envelope {
	return &Envelope{
		SubscriptionRequest: &SubscriptionRequest{
			RequestTimestamp:  opts.RequestTimestamp,
			ConsumerAddress:   opts.ConsumerAddress,
			RequestorRef:      opts.RequestorRef,
			MessageIdentifier: opts.MessageIdentifier,
			SubscriptionContext: &SubscriptionContext{
				HeartbeatInterval: opts.HeartbeatInterval,
			},
			VehicleMonitoringSubscriptionRequest: &VehicleMonitoringSubscriptionRequest{
				SubscriptionIdentifier: opts.SubscriptionID,
				InitialTerminationTime: opts.InitialTerminationTime,
				VehicleMonitoringRequest: VehicleMonitoringRequest{
					Version:                      version,
					RequestTimestamp:             opts.RequestTimestamp,
					VehicleMonitoringDetailLevel: "normal",
				},
			},
		},
	}
}

// NewSituationExchangeSubscriptionRequest builds the cancellations subscribe
// document, optionally filtered to a set of operators.
func NewSituationExchangeSubscriptionRequest(opts SubscribeOptions) *Envelope {
	return &Envelope{
		SubscriptionRequest: &SubscriptionRequest{
			RequestTimestamp:  opts.RequestTimestamp,
			ConsumerAddress:   opts.ConsumerAddress,
			RequestorRef:      opts.RequestorRef,
			MessageIdentifier: opts.MessageIdentifier,
			SubscriptionContext: &SubscriptionContext{
				HeartbeatInterval: opts.HeartbeatInterval,
			},
			SituationExchangeSubscriptionRequest: &SituationExchangeSubscriptionRequest{
				SubscriptionIdentifier: opts.SubscriptionID,
				InitialTerminationTime: opts.InitialTerminationTime,
				SituationExchangeRequest: SituationExchangeRequest{
					Version:          version,
					RequestTimestamp: opts.RequestTimestamp,
					OperatorRefs:     opts.OperatorRefs,
				},
			},
		},
	}
}

// NewTerminateSubscriptionRequest builds the unsubscribe document.
func NewTerminateSubscriptionRequest(subscriptionID, requestorRef, messageIdentifier string, now time.Time) *Envelope {
	return &Envelope{
		TerminateSubscriptionRequest: &TerminateSubscriptionRequest{
			RequestTimestamp:  now,
			RequestorRef:      requestorRef,
			MessageIdentifier: messageIdentifier,
			SubscriptionRef:   subscriptionID,
		},
	}
}

// NewHeartbeatNotification builds the consumer-bound heartbeat document.
func NewHeartbeatNotification(producerRef string, serviceStartedTime *time.Time, now time.Time) *Envelope {
	return &Envelope{
		HeartbeatNotification: &HeartbeatNotification{
			RequestTimestamp:   now,
			ProducerRef:        producerRef,
			Status:             true,
			ServiceStartedTime: serviceStartedTime,
		},
	}
}

// NewSubscriptionResponse builds the response returned to consumers on
// subscribe, mirroring what producers send us.
func NewSubscriptionResponse(subscriptionID, responderRef, requestMessageRef string, status bool, now time.Time) *Envelope {
	return &Envelope{
		SubscriptionResponse: &SubscriptionResponse{
			ResponseTimestamp: now,
			ResponderRef:      responderRef,
			ResponseStatus: []ResponseStatus{
				{
					ResponseTimestamp: now,
					RequestMessageRef: requestMessageRef,
					SubscriptionRef:   subscriptionID,
					Status:            status,
				},
			},
		},
	}
}

// NewTerminateSubscriptionResponse builds the response returned to consumers
// on unsubscribe.
func NewTerminateSubscriptionResponse(subscriptionID string, status bool, now time.Time) *Envelope {
	return &Envelope{
		TerminateSubscriptionResponse: &TerminateSubscriptionResponse{
			ResponseTimestamp: now,
			TerminationResponseStatus: []TerminationResponseStatus{
				{
					ResponseTimestamp: now,
					SubscriptionRef:   subscriptionID,
					Status:            status,
				},
			},
		},
	}
}

// NewVehicleMonitoringDelivery wraps vehicle activities for delivery to a
// consumer.
func NewVehicleMonitoringDelivery(producerRef string, activities []VehicleActivity, now time.Time) *Envelope {
	return &Envelope{
		ServiceDelivery: &ServiceDelivery{
			ResponseTimestamp: now,
			ProducerRef:       producerRef,
			VehicleMonitoringDelivery: &VehicleMonitoringDelivery{
				ResponseTimestamp: now,
				VehicleActivity:   activities,
			},
		},
	}
}

// NewSituationExchangeDelivery wraps situations for delivery to a consumer.
func NewSituationExchangeDelivery(producerRef string, situations []PtSituationElement, now time.Time) *Envelope {
	return &Envelope{
		ServiceDelivery: &ServiceDelivery{
			ResponseTimestamp: now,
			ProducerRef:       producerRef,
			SituationExchangeDelivery: &SituationExchangeDelivery{
				ResponseTimestamp: now,
				Situations: Situations{
					PtSituationElement: situations,
				},
			},
		},
	}
}
