package siri

import (
	"fmt"
)

// ValidateSubscriptionRequest checks the structural contract of an inbound
// consumer subscription request: a requestor ref, exactly one monitoring
// sub-request, and a subscription identifier on it.
func ValidateSubscriptionRequest(req *SubscriptionRequest) error {
	if req == nil {
		return fmt.Errorf("missing SubscriptionRequest")
	}
	if req.RequestorRef == "" {
		return fmt.Errorf("missing RequestorRef")
	}
	if req.RequestTimestamp.IsZero() {
		return fmt.Errorf("missing RequestTimestamp")
	}

	vm, sx := req.VehicleMonitoringSubscriptionRequest, req.SituationExchangeSubscriptionRequest
	switch {
	case vm == nil && sx == nil:
		return fmt.Errorf("missing monitoring subscription request")
	case vm != nil && sx != nil:
		return fmt.Errorf("more than one monitoring subscription request")
	case vm != nil:
		if vm.InitialTerminationTime.IsZero() {
			return fmt.Errorf("missing InitialTerminationTime")
		}
	case sx != nil:
		if sx.InitialTerminationTime.IsZero() {
			return fmt.Errorf("missing InitialTerminationTime")
		}
	}
	return nil
}

// ValidateTerminateSubscriptionRequest checks the structural contract of an
// inbound consumer unsubscribe request.
func ValidateTerminateSubscriptionRequest(req *TerminateSubscriptionRequest) error {
	if req == nil {
		return fmt.Errorf("missing TerminateSubscriptionRequest")
	}
	if req.RequestorRef == "" {
		return fmt.Errorf("missing RequestorRef")
	}
	if req.SubscriptionRef == "" {
		return fmt.Errorf("missing SubscriptionRef")
	}
	return nil
}

// SubscriptionResponseOK reports whether a producer's subscribe response
// carries at least one status and all statuses are true.
func SubscriptionResponseOK(resp *SubscriptionResponse) bool {
	if resp == nil || len(resp.ResponseStatus) == 0 {
		return false
	}
	for _, status := range resp.ResponseStatus {
		if !status.Status {
			return false
		}
	}
	return true
}

// TerminateResponseOK reports whether a producer's terminate response carries
// at least one status and all statuses are true.
func TerminateResponseOK(resp *TerminateSubscriptionResponse) bool {
	if resp == nil || len(resp.TerminationResponseStatus) == 0 {
		return false
	}
	for _, status := range resp.TerminationResponseStatus {
		if !status.Status {
			return false
		}
	}
	return true
}
