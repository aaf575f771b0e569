package siri

import (
	"encoding/xml"
	"fmt"
)

// MessageKind identifies which concrete SIRI document an envelope carries.
type MessageKind int

const (
	KindUnknown MessageKind = iota
	KindSubscriptionRequest
	KindSubscriptionResponse
	KindTerminateSubscriptionRequest
	KindTerminateSubscriptionResponse
	KindHeartbeatNotification
	KindServiceDelivery
)

func (k MessageKind) String() string {
	switch k {
	case KindSubscriptionRequest:
		return "SubscriptionRequest"
	case KindSubscriptionResponse:
		return "SubscriptionResponse"
	case KindTerminateSubscriptionRequest:
		return "TerminateSubscriptionRequest"
	case KindTerminateSubscriptionResponse:
		return "TerminateSubscriptionResponse"
	case KindHeartbeatNotification:
		return "HeartbeatNotification"
	case KindServiceDelivery:
		return "ServiceDelivery"
	default:
		return "Unknown"
	}
}

// Kind reports which child of the envelope is populated.
func (e *Envelope) Kind() MessageKind {
	switch {
	case e.SubscriptionRequest != nil:
		return KindSubscriptionRequest
	case e.SubscriptionResponse != nil:
		return KindSubscriptionResponse
	case e.TerminateSubscriptionRequest != nil:
		return KindTerminateSubscriptionRequest
	case e.TerminateSubscriptionResponse != nil:
		return KindTerminateSubscriptionResponse
	case e.HeartbeatNotification != nil:
		return KindHeartbeatNotification
	case e.ServiceDelivery != nil:
		return KindServiceDelivery
	default:
		return KindUnknown
	}
}

// Parse resolves a raw SIRI document to its concrete kind. This is the only
// place incoming XML is probed; everything downstream switches on the kind.
func Parse(data []byte) (*Envelope, MessageKind, error) {
	if len(data) == 0 {
		return nil, KindUnknown, fmt.Errorf("empty siri document")
	}

	var envelope Envelope
	if err := xml.Unmarshal(data, &envelope); err != nil {
		return nil, KindUnknown, fmt.Errorf("unmarshalling siri document: %w", err)
	}

	kind := envelope.Kind()
	if kind == KindUnknown {
		return nil, KindUnknown, fmt.Errorf("siri document has no recognized payload")
	}
	return &envelope, kind, nil
}
