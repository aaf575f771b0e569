package consumerdao

import (
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/avldao"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/feed"
)

// Subscription is one downstream consumer registration. The same logical ID
// may be registered by several consumers, so the key is (ID, ConsumerKey).
// Timestamps are unix seconds.
type Subscription struct {
	ID          string `dynamodbav:"pk" ddb:"hash"`
	ConsumerKey string `dynamodbav:"sk" ddb:"range"`

	Status feed.Status `dynamodbav:"status"`

	URL                    string `dynamodbav:"url"`
	RequestorRef           string `dynamodbav:"requestor_ref,omitempty"`
	UpdateInterval         string `dynamodbav:"update_interval,omitempty"`
	HeartbeatInterval      string `dynamodbav:"heartbeat_interval,omitempty"`
	InitialTerminationTime int64  `dynamodbav:"initial_termination_time,omitempty"`
	RequestTimestamp       int64  `dynamodbav:"request_timestamp,omitempty"`

	HeartbeatAttempts int           `dynamodbav:"heartbeat_attempts"`
	LastRetrievedID   int64         `dynamodbav:"last_retrieved_id"`
	LastDeliveredAt   int64         `dynamodbav:"last_delivered_at,omitempty"`
	QueryParams       avldao.Filter `dynamodbav:"query_params,omitempty"`

	// Handles to the provisioned delivery channel; empty when not provisioned
	// or torn down.
	QueueURL               string `dynamodbav:"queue_url,omitempty"`
	EventSourceMappingUUID string `dynamodbav:"event_source_mapping_uuid,omitempty"`
	ScheduleName           string `dynamodbav:"schedule_name,omitempty"`
}
