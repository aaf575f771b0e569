package main

import (
	"log"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/urfave/cli/v2"

	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/avldao"
	bodscli "github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/bods-cli"
	bodsddb "github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/bods-ddb"
	bodsrest "github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/bods-rest"
	bodssecret "github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/bods-secret"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/feed"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/ingest"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/subscriptiondao"
)

var opts struct {
	APIKey        string
	APIKeySecret  string
	ArchiveBucket string
}

var service = bodscli.NewService("data-endpoint")

func main() {
	app := bodscli.App(
		service,
		action,
		append(
			append(bodscli.CommonFlags, bodscli.PortFlag(5002)),
			append(bodsddb.DDBFlags,
				feed.FeedKindFlag,
				bodscli.StringFlag("api-key", "The key producers must present when pushing payloads", &opts.APIKey),
				bodscli.StringFlag("api-key-secret", "Secrets Manager secret holding the producer api key; overrides --api-key", &opts.APIKeySecret),
				bodscli.StringFlag("archive-bucket", "The bucket raw payloads are archived to", &opts.ArchiveBucket),
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

	apiKey := opts.APIKey
	if opts.APIKeySecret != "" {
		var secret struct {
			APIKey string `json:"apiKey"`
		}
		if err := bodssecret.LoadSecret(s, opts.APIKeySecret, &secret); err != nil {
			return err
		}
		apiKey = secret.APIKey
	}

	handler := &ingest.Handler{
		Kind:   kind,
		Subs:   subscriptiondao.Build(api, env, kind),
		Rows:   avldao.Build(api, env, kind),
		Blobs:  ingest.NewS3Store(s3.New(s), opts.ArchiveBucket),
		APIKey: apiKey,
	}

	return bodsrest.Webserver(service, bodsrest.Middlewares(service, handler.Routes()))
}
