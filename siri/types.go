// Package siri holds the SIRI wire types exchanged with producers and
// consumers, builders for the outbound documents, and the single parse
// boundary that resolves an incoming document to its concrete kind.
package siri

import (
	"encoding/xml"
	"time"
)

const Namespace = "http://www.siri.org.uk/siri"

// Envelope is the <Siri> root element. Exactly one child is populated on a
// well-formed document; Kind reports which.
type Envelope struct {
	XMLName xml.Name `xml:"Siri"`
	Xmlns   string   `xml:"xmlns,attr,omitempty"`
	Version string   `xml:"version,attr,omitempty"`

	SubscriptionRequest           *SubscriptionRequest           `xml:"SubscriptionRequest,omitempty"`
	SubscriptionResponse          *SubscriptionResponse          `xml:"SubscriptionResponse,omitempty"`
	TerminateSubscriptionRequest  *TerminateSubscriptionRequest  `xml:"TerminateSubscriptionRequest,omitempty"`
	TerminateSubscriptionResponse *TerminateSubscriptionResponse `xml:"TerminateSubscriptionResponse,omitempty"`
	HeartbeatNotification         *HeartbeatNotification         `xml:"HeartbeatNotification,omitempty"`
	ServiceDelivery               *ServiceDelivery               `xml:"ServiceDelivery,omitempty"`
}

type SubscriptionRequest struct {
	RequestTimestamp    time.Time            `xml:"RequestTimestamp"`
	ConsumerAddress     string               `xml:"ConsumerAddress,omitempty"`
	RequestorRef        string               `xml:"RequestorRef"`
	MessageIdentifier   string               `xml:"MessageIdentifier"`
	SubscriptionContext *SubscriptionContext `xml:"SubscriptionContext,omitempty"`

	VehicleMonitoringSubscriptionRequest *VehicleMonitoringSubscriptionRequest `xml:"VehicleMonitoringSubscriptionRequest,omitempty"`
	SituationExchangeSubscriptionRequest *SituationExchangeSubscriptionRequest `xml:"SituationExchangeSubscriptionRequest,omitempty"`
}

type SubscriptionContext struct {
	HeartbeatInterval string `xml:"HeartbeatInterval,omitempty"`
}

type VehicleMonitoringSubscriptionRequest struct {
	SubscriberRef            string                   `xml:"SubscriberRef,omitempty"`
	SubscriptionIdentifier   string                   `xml:"SubscriptionIdentifier"`
	InitialTerminationTime   time.Time                `xml:"InitialTerminationTime"`
	VehicleMonitoringRequest VehicleMonitoringRequest `xml:"VehicleMonitoringRequest"`
	UpdateInterval           string                   `xml:"UpdateInterval,omitempty"`
}

type VehicleMonitoringRequest struct {
	Version                      string    `xml:"version,attr,omitempty"`
	RequestTimestamp             time.Time `xml:"RequestTimestamp"`
	VehicleMonitoringDetailLevel string    `xml:"VehicleMonitoringDetailLevel,omitempty"`
}

type SituationExchangeSubscriptionRequest struct {
	SubscriberRef            string                   `xml:"SubscriberRef,omitempty"`
	SubscriptionIdentifier   string                   `xml:"SubscriptionIdentifier"`
	InitialTerminationTime   time.Time                `xml:"InitialTerminationTime"`
	SituationExchangeRequest SituationExchangeRequest `xml:"SituationExchangeRequest"`
}

type SituationExchangeRequest struct {
	Version          string    `xml:"version,attr,omitempty"`
	RequestTimestamp time.Time `xml:"RequestTimestamp"`
	OperatorRefs     []string  `xml:"OperatorRef,omitempty"`
}

type SubscriptionResponse struct {
	ResponseTimestamp time.Time        `xml:"ResponseTimestamp"`
	ResponderRef      string           `xml:"ResponderRef,omitempty"`
	ResponseStatus    []ResponseStatus `xml:"ResponseStatus"`
}

type ResponseStatus struct {
	ResponseTimestamp time.Time `xml:"ResponseTimestamp"`
	RequestMessageRef string    `xml:"RequestMessageRef,omitempty"`
	SubscriptionRef   string    `xml:"SubscriptionRef,omitempty"`
	Status            bool      `xml:"Status"`
}

type TerminateSubscriptionRequest struct {
	RequestTimestamp  time.Time `xml:"RequestTimestamp"`
	RequestorRef      string    `xml:"RequestorRef"`
	MessageIdentifier string    `xml:"MessageIdentifier"`
	SubscriptionRef   string    `xml:"SubscriptionRef"`
}

type TerminateSubscriptionResponse struct {
	ResponseTimestamp         time.Time                   `xml:"ResponseTimestamp,omitempty"`
	TerminationResponseStatus []TerminationResponseStatus `xml:"TerminationResponseStatus"`
}

type TerminationResponseStatus struct {
	ResponseTimestamp time.Time `xml:"ResponseTimestamp,omitempty"`
	SubscriptionRef   string    `xml:"SubscriptionRef,omitempty"`
	Status            bool      `xml:"Status"`
}

type HeartbeatNotification struct {
	RequestTimestamp   time.Time  `xml:"RequestTimestamp"`
	ProducerRef        string     `xml:"ProducerRef,omitempty"`
	Status             bool       `xml:"Status"`
	ServiceStartedTime *time.Time `xml:"ServiceStartedTime,omitempty"`
}

type ServiceDelivery struct {
	ResponseTimestamp time.Time `xml:"ResponseTimestamp"`
	ProducerRef       string    `xml:"ProducerRef,omitempty"`

	VehicleMonitoringDelivery *VehicleMonitoringDelivery `xml:"VehicleMonitoringDelivery,omitempty"`
	SituationExchangeDelivery *SituationExchangeDelivery `xml:"SituationExchangeDelivery,omitempty"`
}

type VehicleMonitoringDelivery struct {
	ResponseTimestamp time.Time         `xml:"ResponseTimestamp"`
	RequestMessageRef string            `xml:"RequestMessageRef,omitempty"`
	ValidUntil        *time.Time        `xml:"ValidUntil,omitempty"`
	VehicleActivity   []VehicleActivity `xml:"VehicleActivity"`
}

type VehicleActivity struct {
	RecordedAtTime          time.Time               `xml:"RecordedAtTime"`
	ItemIdentifier          string                  `xml:"ItemIdentifier,omitempty"`
	ValidUntilTime          *time.Time              `xml:"ValidUntilTime,omitempty"`
	MonitoredVehicleJourney MonitoredVehicleJourney `xml:"MonitoredVehicleJourney"`
}

type MonitoredVehicleJourney struct {
	LineRef                  string                    `xml:"LineRef,omitempty"`
	DirectionRef             string                    `xml:"DirectionRef,omitempty"`
	FramedVehicleJourneyRef  *FramedVehicleJourneyRef  `xml:"FramedVehicleJourneyRef,omitempty"`
	PublishedLineName        string                    `xml:"PublishedLineName,omitempty"`
	OperatorRef              string                    `xml:"OperatorRef,omitempty"`
	OriginRef                string                    `xml:"OriginRef,omitempty"`
	DestinationRef           string                    `xml:"DestinationRef,omitempty"`
	OriginAimedDepartureTime *time.Time                `xml:"OriginAimedDepartureTime,omitempty"`
	VehicleLocation          *VehicleLocation          `xml:"VehicleLocation,omitempty"`
	Bearing                  float64                   `xml:"Bearing,omitempty"`
	BlockRef                 string                    `xml:"BlockRef,omitempty"`
	VehicleRef               string                    `xml:"VehicleRef,omitempty"`
}

type FramedVehicleJourneyRef struct {
	DataFrameRef           string `xml:"DataFrameRef,omitempty"`
	DatedVehicleJourneyRef string `xml:"DatedVehicleJourneyRef,omitempty"`
}

type VehicleLocation struct {
	Longitude float64 `xml:"Longitude"`
	Latitude  float64 `xml:"Latitude"`
}

type SituationExchangeDelivery struct {
	ResponseTimestamp time.Time  `xml:"ResponseTimestamp"`
	Situations        Situations `xml:"Situations"`
}

type Situations struct {
	PtSituationElement []PtSituationElement `xml:"PtSituationElement"`
}

type PtSituationElement struct {
	CreationTime    time.Time        `xml:"CreationTime"`
	ParticipantRef  string           `xml:"ParticipantRef,omitempty"`
	SituationNumber string           `xml:"SituationNumber"`
	Progress        string           `xml:"Progress,omitempty"`
	ValidityPeriod  *ValidityPeriod  `xml:"ValidityPeriod,omitempty"`
	MiscellaneousReason string       `xml:"MiscellaneousReason,omitempty"`
	Summary         string           `xml:"Summary,omitempty"`
	Description     string           `xml:"Description,omitempty"`
	Affects         *Affects         `xml:"Affects,omitempty"`
}

type ValidityPeriod struct {
	StartTime time.Time  `xml:"StartTime"`
	EndTime   *time.Time `xml:"EndTime,omitempty"`
}

type Affects struct {
	Operators *AffectedOperators `xml:"Operators,omitempty"`
	Networks  *AffectedNetworks  `xml:"Networks,omitempty"`
}

type AffectedOperators struct {
	AffectedOperator []AffectedOperator `xml:"AffectedOperator"`
}

type AffectedOperator struct {
	OperatorRef string `xml:"OperatorRef"`
}

type AffectedNetworks struct {
	AffectedNetwork []AffectedNetwork `xml:"AffectedNetwork"`
}

type AffectedNetwork struct {
	AffectedLine []AffectedLine `xml:"AffectedLine"`
}

type AffectedLine struct {
	LineRef string `xml:"LineRef"`
}
