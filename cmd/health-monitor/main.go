package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/urfave/cli/v2"

	bodscli "github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/bods-cli"
	bodscron "github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/bods-cron"
	bodsddb "github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/bods-ddb"
	bodssecret "github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/bods-secret"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/feed"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/producer"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/subscriptiondao"
)

var service = bodscli.NewService("health-monitor")

func main() {
	app := bodscli.App(
		service,
		action,
		append(
			append(bodscli.CommonFlags, bodsddb.DDBFlags...),
			feed.FeedFlags...,
		)...,
	)
	err := app.Run(os.Args)
	if err != nil {
		log.Fatalln(err)
	}
}

func action(_ *cli.Context) error {
	kind, cfg, err := feed.FromFlags()
	if err != nil {
		return err
	}

	s := session.Must(session.NewSession(aws.NewConfig()))
	api, err := bodsddb.DynamoDBAPI(s)
	if err != nil {
		return err
	}

	subs := subscriptiondao.Build(api, cfg.Env, kind)
	creds := bodssecret.NewCredentialStore(ssm.New(s), kind.CredentialPrefix(cfg.Env))

	monitor := &producer.Monitor{
		Kind:   kind,
		Config: cfg,
		Subs:   subs,
		Creds:  creds,
		Subscriber: &producer.Subscriber{
			Kind:   kind,
			Config: cfg,
			Subs:   subs,
			Creds:  creds,
		},
		Unsubscriber: &producer.Unsubscriber{
			Kind:   kind,
			Config: cfg,
			Subs:   subs,
			Creds:  creds,
		},
		Metrics: bodscli.NewMetrics(service, cloudwatch.New(s)),
		Logger:  bodscli.Logger(service),
	}

	handler := bodscron.NewHandler(service, func(ctx context.Context) error {
		return monitor.Sweep(ctx)
	})
	return handler.Start()
}
