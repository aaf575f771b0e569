package subscriptiondao

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

// DAO provides access to a feed-kind's producer subscriptions table.
type DAO struct {
	table     *ddb.Table
	api       dynamodbiface.DynamoDBAPI
	tableName string
}

// New creates a new producer subscriptions DAO.
func New(api dynamodbiface.DynamoDBAPI, tableName string) *DAO {
	return &DAO{
		table:     ddb.New(api).MustTable(tableName, Subscription{}),
		api:       api,
		tableName: tableName,
	}
}

// Put stores a subscription record, overwriting any prior version.
func (d *DAO) Put(ctx context.Context, sub Subscription) error {
	return d.table.Put(sub).RunWithContext(ctx)
}

// Get retrieves a subscription record by ID. Returns nil if not found.
func (d *DAO) Get(ctx context.Context, subscriptionID string) (*Subscription, error) {
	var sub Subscription
	if err := d.table.Get(subscriptionID).ScanWithContext(ctx, &sub); err != nil {
		if ddb.IsItemNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get subscription %v: %w", subscriptionID, err)
	}
	return &sub, nil
}

// ListNotInactive returns every subscription whose status is not terminal;
// these are the ones the health monitor sweeps.
func (d *DAO) ListNotInactive(ctx context.Context) ([]Subscription, error) {
	input := &dynamodb.ScanInput{
		TableName:        aws.String(d.tableName),
		FilterExpression: aws.String("#status <> :inactive"),
		ExpressionAttributeNames: map[string]*string{
			"#status": aws.String("status"),
		},
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":inactive": {S: aws.String(string(feed.StatusInactive))},
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
		return nil, fmt.Errorf("failed to scan subscriptions in %v: %w", d.tableName, err)
	}
	return subs, nil
}
