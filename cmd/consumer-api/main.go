package main

import (
	"log"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/lambda"
	"github.com/aws/aws-sdk-go/service/scheduler"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/urfave/cli/v2"

	bodscli "github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/bods-cli"
	bodsddb "github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/bods-ddb"
	bodsrest "github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/bods-rest"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/channel"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/consumer"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/consumerdao"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/feed"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/subscriptiondao"
)

var opts struct {
	DispatcherArn   string
	ScheduleRoleArn string
	ScheduleGroup   string
	ResponderRef    string
}

var service = bodscli.NewService("consumer-api")

func main() {
	app := bodscli.App(
		service,
		action,
		append(
			append(bodscli.CommonFlags, bodscli.PortFlag(5003)),
			append(bodsddb.DDBFlags,
				feed.FeedKindFlag,
				bodscli.StringFlag("dispatcher-arn", "The delivery dispatcher function consumer queues feed", &opts.DispatcherArn),
				bodscli.StringFlag("schedule-role-arn", "The role schedules assume to enqueue trigger messages", &opts.ScheduleRoleArn),
				bodscli.StringFlag("schedule-group", "The schedule group consumer schedules are created in", &opts.ScheduleGroup),
				bodscli.StringFlagValue("responder-ref", "The ResponderRef stamped on subscription responses", "integrated-data", &opts.ResponderRef),
			)...,
		)...,
	)
	err := app.Run(os.Args)
	if err != nil {
		log.Fatalln(err)
	}
}

func action(_ *cli.Context) error {
	kind, err := feed.ParseKind(feed.FeedOpts.Kind)
	if err != nil {
		return err
	}
	env := bodscli.CommonOpts.Env

	s := session.Must(session.NewSession(aws.NewConfig()))
	api, err := bodsddb.DynamoDBAPI(s)
	if err != nil {
		return err
	}

	consumers := consumerdao.Build(api, env, kind)
	channels := &channel.Provisioner{
		SQS:             sqs.New(s),
		Lambda:          lambda.New(s),
		Scheduler:       scheduler.New(s),
		Env:             env,
		Kind:            kind,
		DispatcherArn:   opts.DispatcherArn,
		ScheduleRoleArn: opts.ScheduleRoleArn,
		ScheduleGroup:   opts.ScheduleGroup,
	}

	routes := (&consumer.API{
		Subscriber: &consumer.Subscriber{
			Kind:      kind,
			Consumers: consumers,
			Feeds:     subscriptiondao.Build(api, env, kind),
			Channels:  channels,
		},
		Unsubscriber: &consumer.Unsubscriber{
			Consumers: consumers,
			Channels:  channels,
		},
		ResponderRef: opts.ResponderRef,
	}).Routes()

	return bodsrest.Webserver(service, bodsrest.Middlewares(service, routes))
}
