package bodsqueue

import (
	bodscli "github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/bods-cli"
	"github.com/urfave/cli/v2"
)

var QueueOpts struct {
	QueueURL string
}

var QueueURLFlag = bodscli.StringFlag("queue-url", "The delivery queue to poll, when running in console mode", &QueueOpts.QueueURL)

var QueueFlags = []cli.Flag{
	QueueURLFlag,
}
