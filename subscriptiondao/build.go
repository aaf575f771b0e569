package subscriptiondao

import (
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/feed"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
)

// Build returns a DAO for one feed kind's subscriptions table.
func Build(api dynamodbiface.DynamoDBAPI, env string, kind feed.Kind) *DAO {
	return New(api, kind.SubscriptionTableName(env))
}
