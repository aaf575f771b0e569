package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/urfave/cli/v2"

	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/avldao"
	bodscli "github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/bods-cli"
	bodsddb "github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/bods-ddb"
	bodsqueue "github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/bods-queue"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/channel"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/consumer"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/consumerdao"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/feed"
)

var opts struct {
	ProducerRef string
}

var service = bodscli.NewService("delivery-dispatcher")

func main() {
	app := bodscli.App(
		service,
		action,
		append(
			append(bodscli.CommonFlags, bodsddb.DDBFlags...),
			append(bodsqueue.QueueFlags,
				feed.FeedKindFlag,
				bodscli.StringFlagValue("producer-ref", "The ProducerRef stamped on outbound deliveries", "integrated-data", &opts.ProducerRef),
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

	dispatcher := &consumer.Dispatcher{
		Kind:        kind,
		Consumers:   consumerdao.Build(api, env, kind),
		Rows:        avldao.Build(api, env, kind),
		Metrics:     bodscli.NewMetrics(service, cloudwatch.New(s)),
		ProducerRef: opts.ProducerRef,
		Logger:      bodscli.Logger(service),
	}

	handler := bodsqueue.NewHandler(service, func(ctx context.Context, body string) error {
		var msg channel.TriggerMessage
		if err := json.Unmarshal([]byte(body), &msg); err != nil {
			return err
		}
		return dispatcher.Dispatch(ctx, msg)
	})
	return handler.Start()
}
