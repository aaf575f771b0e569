package feed

import (
	"fmt"
	"time"
)

// MockProducerRequestorRef marks a subscription as pointing at the test
// producer; subscribe and terminate calls for it go to Config.MockProducerURL.
const MockProducerRequestorRef = "BODS_MOCK_PRODUCER"

// Config is built once at process start from flags and passed by reference
// into every component. No component reads the environment directly.
type Config struct {
	Env string

	// DataEndpoint is the base URL producers push deliveries and heartbeats
	// to; the per-subscription consumer address is DataEndpoint/{id}.
	DataEndpoint string

	// MockProducerURL overrides the producer URL for test subscriptions.
	MockProducerURL string

	// TerminationOffset is added to now for InitialTerminationTime on
	// subscribe requests.
	TerminationOffset time.Duration

	// HeartbeatInterval is the heartbeat cadence requested from producers.
	HeartbeatInterval time.Duration

	// AVLStaleAfter and CancellationsStaleAfter bound how old the freshest
	// liveness signal may be before a subscription counts as unhealthy. The
	// source system never settled on one value, so it is per feed kind here.
	AVLStaleAfter           time.Duration
	CancellationsStaleAfter time.Duration

	// SweepConcurrency bounds per-item fan-out in the health and heartbeat
	// sweeps.
	SweepConcurrency int
}

func DefaultConfig(env string) Config {
	return Config{
		Env:                     env,
		TerminationOffset:       14 * 24 * time.Hour,
		HeartbeatInterval:       30 * time.Second,
		AVLStaleAfter:           90 * time.Second,
		CancellationsStaleAfter: 5 * time.Minute,
		SweepConcurrency:        50,
	}
}

func (c *Config) Validate() error {
	if c.Env == "" {
		return fmt.Errorf("env must be set")
	}
	if c.DataEndpoint == "" {
		return fmt.Errorf("data-endpoint must be set")
	}
	if c.AVLStaleAfter <= 0 || c.CancellationsStaleAfter <= 0 {
		return fmt.Errorf("staleness thresholds must be positive")
	}
	if c.SweepConcurrency <= 0 {
		return fmt.Errorf("sweep concurrency must be positive")
	}
	return nil
}

// StaleAfter returns the staleness threshold for a feed kind.
func (c *Config) StaleAfter(kind Kind) time.Duration {
	if kind == KindCancellations {
		return c.CancellationsStaleAfter
	}
	return c.AVLStaleAfter
}
