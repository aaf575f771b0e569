package feed

import (
	"time"

	"github.com/urfave/cli/v2"

	bodscli "github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/bods-cli"
)

var FeedOpts struct {
	Kind                    string
	DataEndpoint            string
	MockProducerURL         string
	AVLStaleAfter           time.Duration
	CancellationsStaleAfter time.Duration
	SweepConcurrency        int
}

var FeedKindFlag = bodscli.StringFlagValue("feed-kind", "The feed kind to operate on (avl or cancellations)", "avl", &FeedOpts.Kind)
var DataEndpointFlag = bodscli.StringFlag("data-endpoint", "The base URL producers push deliveries and heartbeats to", &FeedOpts.DataEndpoint)
var MockProducerURLFlag = bodscli.StringFlag("mock-producer-url", "Override producer URL for test subscriptions", &FeedOpts.MockProducerURL)
var AVLStaleAfterFlag = bodscli.DurationFlag("avl-stale-after", "How stale an AVL feed's liveness may be before it counts as unhealthy", 90*time.Second, &FeedOpts.AVLStaleAfter)
var CancellationsStaleAfterFlag = bodscli.DurationFlag("cancellations-stale-after", "How stale a cancellations feed's liveness may be before it counts as unhealthy", 5*time.Minute, &FeedOpts.CancellationsStaleAfter)
var SweepConcurrencyFlag = bodscli.IntFlag("sweep-concurrency", "Bound on per-item fan-out in sweeps", 50, &FeedOpts.SweepConcurrency)

var FeedFlags = []cli.Flag{
	FeedKindFlag,
	DataEndpointFlag,
	MockProducerURLFlag,
	AVLStaleAfterFlag,
	CancellationsStaleAfterFlag,
	SweepConcurrencyFlag,
}

// FromFlags resolves the feed kind and builds the validated config every
// component receives.
func FromFlags() (Kind, *Config, error) {
	kind, err := ParseKind(FeedOpts.Kind)
	if err != nil {
		return "", nil, err
	}

	cfg := DefaultConfig(bodscli.CommonOpts.Env)
	cfg.DataEndpoint = FeedOpts.DataEndpoint
	cfg.MockProducerURL = FeedOpts.MockProducerURL
	if FeedOpts.AVLStaleAfter > 0 {
		cfg.AVLStaleAfter = FeedOpts.AVLStaleAfter
	}
	if FeedOpts.CancellationsStaleAfter > 0 {
		cfg.CancellationsStaleAfter = FeedOpts.CancellationsStaleAfter
	}
	if FeedOpts.SweepConcurrency > 0 {
		cfg.SweepConcurrency = FeedOpts.SweepConcurrency
	}
	if err := cfg.Validate(); err != nil {
		return "", nil, err
	}
	return kind, &cfg, nil
}
