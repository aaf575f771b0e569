package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/urfave/cli/v2"

	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/avldao"
	bodscli "github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/bods-cli"
	bodscron "github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/bods-cron"
	bodsddb "github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/bods-ddb"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/consumer"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/consumerdao"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/feed"
)

var opts struct {
	ProducerRef string
}

var service = bodscli.NewService("consumer-heartbeat")

func main() {
	app := bodscli.App(
		service,
		action,
		append(
			append(bodscli.CommonFlags, bodsddb.DDBFlags...),
			feed.FeedKindFlag,
			feed.SweepConcurrencyFlag,
			bodscli.StringFlagValue("producer-ref", "The ProducerRef stamped on outbound heartbeats", "integrated-data", &opts.ProducerRef),
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

	cfg := feed.DefaultConfig(bodscli.CommonOpts.Env)
	if feed.FeedOpts.SweepConcurrency > 0 {
		cfg.SweepConcurrency = feed.FeedOpts.SweepConcurrency
	}

	s := session.Must(session.NewSession(aws.NewConfig()))
	api, err := bodsddb.DynamoDBAPI(s)
	if err != nil {
		return err
	}

	consumers := consumerdao.Build(api, cfg.Env, kind)
	sweep := &consumer.HeartbeatSweep{
		Config:    &cfg,
		Consumers: consumers,
		Dispatcher: &consumer.Dispatcher{
			Kind:        kind,
			Consumers:   consumers,
			Rows:        avldao.Build(api, cfg.Env, kind),
			Metrics:     bodscli.NewMetrics(service, cloudwatch.New(s)),
			ProducerRef: opts.ProducerRef,
			Logger:      bodscli.Logger(service),
		},
	}

	handler := bodscron.NewHandler(service, func(ctx context.Context) error {
		return sweep.Sweep(ctx)
	})
	return handler.Start()
}
