package consumerdao

import (
	"context"
	"fmt"

	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/feed"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/savaki/ddb"
)

// DAO provides access to a feed-kind's consumer subscriptions table.
type DAO struct {
	table     *ddb.Table
	api       dynamodbiface.DynamoDBAPI
	tableName string
}

// New creates a new consumer subscriptions DAO.
func New(api dynamodbiface.DynamoDBAPI, tableName string) *DAO {
	return &DAO{
		table:     ddb.New(api).MustTable(tableName, Subscription{}),
		api:       api,
		tableName: tableName,
	}
}

// Put stores a consumer subscription record, overwriting any prior version.
func (d *DAO) Put(ctx context.Context, sub Subscription) error {
	return d.table.Put(sub).RunWithContext(ctx)
}

// Get retrieves a consumer subscription by its composite key. Returns nil if
// not found.
func (d *DAO) Get(ctx context.Context, subscriptionID, consumerKey string) (*Subscription, error) {
	var sub Subscription
	err := d.table.Get(subscriptionID).Range(consumerKey).ScanWithContext(ctx, &sub)
	if err != nil {
		if ddb.IsItemNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get consumer subscription %v/%v: %w", subscriptionID, consumerKey, err)
	}
	return &sub, nil
}

// ListLive returns every live consumer subscription; these are the ones the
// heartbeat sweep posts to.
func (d *DAO) ListLive(ctx context.Context) ([]Subscription, error) {
	input := &dynamodb.ScanInput{
		TableName:        aws.String(d.tableName),
		FilterExpression: aws.String("#status = :live"),
		ExpressionAttributeNames: map[string]*string{
			"#status": aws.String("status"),
		},
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":live": {S: aws.String(string(feed.StatusLive))},
		},
	}

	var subs []Subscription
	var unmarshalErr error
	err := d.api.ScanPagesWithContext(ctx, input, func(page *dynamodb.ScanOutput, _ bool) bool {
		for _, item := range page.Items {
			var sub Subscription
			if unmarshalErr = dynamodbattribute.UnmarshalMap(item, &sub); unmarshalErr != nil {
				return false
			}
			subs = append(subs, sub)
		}
		return true
	})
	if err == nil {
		err = unmarshalErr
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan consumer subscriptions in %v: %w", d.tableName, err)
	}
	return subs, nil
}
