package main

import (
	"log"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/urfave/cli/v2"

	bodscli "github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/bods-cli"
	bodsddb "github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/bods-ddb"
	bodsrest "github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/bods-rest"
	bodssecret "github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/bods-secret"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/feed"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/producer"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/subscriptiondao"
)

var service = bodscli.NewService("producer-api")

func main() {
	app := bodscli.App(
		service,
		action,
		append(
			append(bodscli.CommonFlags, bodscli.PortFlag(5001)),
			append(bodsddb.DDBFlags, feed.FeedFlags...)...,
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

	routes := (&producer.API{
		Subs: subs,
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
	}).Routes()

	return bodsrest.Webserver(service, bodsrest.Middlewares(service, routes))
}
