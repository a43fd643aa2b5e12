// Package readiness polls a node's HTTP status endpoint until it serves.
package readiness

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/AlexKushnir1/near-sandbox-go/internal/sanderr"
	"github.com/AlexKushnir1/near-sandbox-go/pkg/logger"
)

// PollInterval is the mandatory pause between status polls.
const PollInterval = 500 * time.Millisecond

// DefaultTimeout bounds the total polling budget when no timeout is
// configured.
const DefaultTimeout = 10 * time.Second

// Probe waits for a node to report healthy.
type Probe struct {
	client   *http.Client
	interval time.Duration
	timeout  time.Duration
}

// NewProbe creates a Probe with the given total polling budget. A
// non-positive timeout falls back to DefaultTimeout.
func NewProbe(timeout time.Duration) *Probe {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Probe{
		client:   &http.Client{Timeout: 1 * time.Second},
		interval: PollInterval,
		timeout:  timeout,
	}
}

// WaitUntilReady polls GET {url}/status until any 2xx response arrives.
// Non-2xx responses, network errors and per-request timeouts all keep the
// loop going; when the attempt budget runs out it fails with RunFailed
// carrying the last observed error.
func (p *Probe) WaitUntilReady(ctx context.Context, url string) error {
	attempts := int(p.timeout/time.Second) * 2
	if attempts < 1 {
		attempts = 1
	}
	statusURL := url + "/status"

	// Every completed attempt overwrites this with what it observed.
	lastErr := errors.New("no response from status endpoint")
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-time.After(p.interval):
			case <-ctx.Done():
				return sanderr.Wrap(sanderr.RunFailed, ctx.Err(), "waiting for node at %s", url)
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
		if err != nil {
			return sanderr.Wrap(sanderr.RunFailed, err, "build status request for %s", url)
		}
		resp, err := p.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		_ = resp.Body.Close()
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			logger.Debug().Str("url", url).Int("polls", i+1).Msg("node is ready")
			return nil
		}
		lastErr = fmt.Errorf("status endpoint returned %s", resp.Status)
	}

	return sanderr.Wrap(sanderr.RunFailed, lastErr, "node at %s did not become ready within %s", url, p.timeout)
}
