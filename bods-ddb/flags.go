package bodsddb

import (
	bodscli "github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/bods-cli"
	"github.com/urfave/cli/v2"
)

var DDBOpts struct {
	DAXCluster string
}

var DAXClusterFlag = bodscli.StringFlag("dax-cluster", "The DAX cluster to connect to", &DDBOpts.DAXCluster)

var DDBFlags = []cli.Flag{
	DAXClusterFlag,
}
