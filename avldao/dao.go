// Package avldao stores the queryable rows extracted from producer deliveries
// and serves the dispatcher's incremental filtered reads.
package avldao

import (
	"context"
	"fmt"
	"strings"

	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/feed"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/savaki/ddb"
)

// DAO provides access to a feed-kind's delivered-data row table.
type DAO struct {
	table     *ddb.Table
	api       dynamodbiface.DynamoDBAPI
	tableName string
}

// New creates a new row DAO.
func New(api dynamodbiface.DynamoDBAPI, tableName string) *DAO {
	return &DAO{
		table:     ddb.New(api).MustTable(tableName, Row{}),
		api:       api,
		tableName: tableName,
	}
}

// Put stores one row.
func (d *DAO) Put(ctx context.Context, row Row) error {
	return d.table.Put(row).RunWithContext(ctx)
}

// PutAll stores a batch of rows.
func (d *DAO) PutAll(ctx context.Context, rows []Row) error {
	for _, row := range rows {
		if err := d.Put(ctx, row); err != nil {
			return fmt.Errorf("failed to put row %v: %w", row.ID, err)
		}
	}
	return nil
}

// QueryAfter returns rows for a feed kind with id > after, in ascending id
// order, filtered by the consumer's query parameters. The filter conditions
// are pushed down as a DynamoDB filter expression.
func (d *DAO) QueryAfter(ctx context.Context, kind feed.Kind, after int64, filter Filter) ([]Row, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(d.tableName),
		KeyConditionExpression: aws.String("#pk = :pk AND #id > :after"),
		ExpressionAttributeNames: map[string]*string{
			"#pk": aws.String("pk"),
			"#id": aws.String("id"),
		},
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":pk":    {S: aws.String(string(kind))},
			":after": {N: aws.String(fmt.Sprintf("%d", after))},
		},
		ScanIndexForward: aws.Bool(true),
	}

	if expr, names, values := buildFilterExpression(filter); expr != "" {
		input.FilterExpression = aws.String(expr)
		for k, v := range names {
			input.ExpressionAttributeNames[k] = v
		}
		for k, v := range values {
			input.ExpressionAttributeValues[k] = v
		}
	}

	var rows []Row
	var unmarshalErr error
	err := d.api.QueryPagesWithContext(ctx, input, func(page *dynamodb.QueryOutput, _ bool) bool {
		for _, item := range page.Items {
			var row Row
			if unmarshalErr = dynamodbattribute.UnmarshalMap(item, &row); unmarshalErr != nil {
				return false
			}
			rows = append(rows, row)
		}
		return true
	})
	if err == nil {
		err = unmarshalErr
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query rows after %v in %v: %w", after, d.tableName, err)
	}
	return rows, nil
}

func buildFilterExpression(filter Filter) (string, map[string]*string, map[string]*dynamodb.AttributeValue) {
	var (
		conditions []string
		names      = map[string]*string{}
		values     = map[string]*dynamodb.AttributeValue{}
	)

	equality := func(attr, placeholder, value string) {
		if value == "" {
			return
		}
		names["#"+placeholder] = aws.String(attr)
		values[":"+placeholder] = &dynamodb.AttributeValue{S: aws.String(value)}
		conditions = append(conditions, fmt.Sprintf("#%v = :%v", placeholder, placeholder))
	}
	oneOf := func(attr, placeholder string, candidates []string) {
		if len(candidates) == 0 {
			return
		}
		names["#"+placeholder] = aws.String(attr)
		var keys []string
		for i, candidate := range candidates {
			key := fmt.Sprintf(":%v%d", placeholder, i)
			values[key] = &dynamodb.AttributeValue{S: aws.String(candidate)}
			keys = append(keys, key)
		}
		conditions = append(conditions, fmt.Sprintf("#%v IN (%v)", placeholder, strings.Join(keys, ", ")))
	}

	oneOf("operator_ref", "operator", filter.OperatorRefs)
	equality("vehicle_ref", "vehicle", filter.VehicleRef)
	equality("line_ref", "line", filter.LineRef)
	equality("producer_ref", "producer", filter.ProducerRef)
	equality("origin_ref", "origin", filter.OriginRef)
	equality("destination_ref", "destination", filter.DestinationRef)
	oneOf("subscription_id", "subscription", filter.SubscriptionIDs)

	if len(filter.BoundingBox) == 4 {
		names["#lon"] = aws.String("longitude")
		names["#lat"] = aws.String("latitude")
		values[":minlon"] = &dynamodb.AttributeValue{N: aws.String(fmt.Sprintf("%v", filter.BoundingBox[0]))}
		values[":minlat"] = &dynamodb.AttributeValue{N: aws.String(fmt.Sprintf("%v", filter.BoundingBox[1]))}
		values[":maxlon"] = &dynamodb.AttributeValue{N: aws.String(fmt.Sprintf("%v", filter.BoundingBox[2]))}
		values[":maxlat"] = &dynamodb.AttributeValue{N: aws.String(fmt.Sprintf("%v", filter.BoundingBox[3]))}
		conditions = append(conditions,
			"#lon BETWEEN :minlon AND :maxlon",
			"#lat BETWEEN :minlat AND :maxlat",
		)
	}

	return strings.Join(conditions, " AND "), names, values
}
