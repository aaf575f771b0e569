package avldao

import (
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/feed"
)

// Row is one delivered data item (a vehicle activity or a situation),
// flattened for filtering. Body carries the original XML fragment so the
// dispatcher can rebuild the outbound payload without re-deriving fields.
// IDs are assigned at ingestion and are strictly increasing per feed kind.
type Row struct {
	FeedKind feed.Kind `dynamodbav:"pk" ddb:"hash"`
	ID       int64     `dynamodbav:"id" ddb:"range"`

	SubscriptionID string  `dynamodbav:"subscription_id"`
	OperatorRef    string  `dynamodbav:"operator_ref,omitempty"`
	VehicleRef     string  `dynamodbav:"vehicle_ref,omitempty"`
	LineRef        string  `dynamodbav:"line_ref,omitempty"`
	ProducerRef    string  `dynamodbav:"producer_ref,omitempty"`
	OriginRef      string  `dynamodbav:"origin_ref,omitempty"`
	DestinationRef string  `dynamodbav:"destination_ref,omitempty"`
	Longitude      float64 `dynamodbav:"longitude,omitempty"`
	Latitude       float64 `dynamodbav:"latitude,omitempty"`
	RecordedAt     int64   `dynamodbav:"recorded_at,omitempty"`

	Body string `dynamodbav:"body"`

	TTL int64 `dynamodbav:"ttl,omitempty"`
}

// Filter is the consumer-supplied query parameter set. All populated fields
// are ANDed.
type Filter struct {
	BoundingBox     []float64 `dynamodbav:"bounding_box,omitempty"` // minLon, minLat, maxLon, maxLat
	OperatorRefs    []string  `dynamodbav:"operator_refs,omitempty"`
	VehicleRef      string    `dynamodbav:"vehicle_ref,omitempty"`
	LineRef         string    `dynamodbav:"line_ref,omitempty"`
	ProducerRef     string    `dynamodbav:"producer_ref,omitempty"`
	OriginRef       string    `dynamodbav:"origin_ref,omitempty"`
	DestinationRef  string    `dynamodbav:"destination_ref,omitempty"`
	SubscriptionIDs []string  `dynamodbav:"subscription_ids,omitempty"`
}

// Matches applies the filter in-process; the DAO pushes the same conditions
// down as a DynamoDB filter expression, this exists for tests and the
// in-memory fakes.
func (f Filter) Matches(row Row) bool {
	if len(f.BoundingBox) == 4 {
		if row.Longitude < f.BoundingBox[0] || row.Longitude > f.BoundingBox[2] ||
			row.Latitude < f.BoundingBox[1] || row.Latitude > f.BoundingBox[3] {
			return false
		}
	}
	if len(f.OperatorRefs) > 0 && !contains(f.OperatorRefs, row.OperatorRef) {
		return false
	}
	if f.VehicleRef != "" && f.VehicleRef != row.VehicleRef {
		return false
	}
	if f.LineRef != "" && f.LineRef != row.LineRef {
		return false
	}
	if f.ProducerRef != "" && f.ProducerRef != row.ProducerRef {
		return false
	}
	if f.OriginRef != "" && f.OriginRef != row.OriginRef {
		return false
	}
	if f.DestinationRef != "" && f.DestinationRef != row.DestinationRef {
		return false
	}
	if len(f.SubscriptionIDs) > 0 && !contains(f.SubscriptionIDs, row.SubscriptionID) {
		return false
	}
	return true
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
