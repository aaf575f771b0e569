// Package producer implements the producer-side subscription state machine:
// subscribe, heartbeat-based health monitoring with automatic recovery, and
// unsubscribe, written once over the feed kind capability set.
package producer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	bodssecret "github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/bods-secret"
	"github.com/Department-for-Transport-Disruptions/bods-integrated-data-sub002/siri"
)

// postSiri marshals an envelope and POSTs it with Basic auth. No retries and
// no explicit timeout beyond the client's own; recovery belongs to the next
// health-check sweep.
func postSiri(ctx context.Context, client *http.Client, url string, creds bodssecret.Credentials, envelope *siri.Envelope) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}

	body, err := siri.Marshal(envelope)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request for %v: %w", url, err)
	}
	req.Header.Set("Content-Type", "text/xml")
	req.SetBasicAuth(creds.Username, creds.Password)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("posting to %v: %w", url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response from %v: %w", url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %v from %v", resp.StatusCode, url)
	}
	return data, nil
}
