// Package prober implements the pulse-driven scheduler that probes each
// enabled monitor's URL on its own cadence and feeds each result into
// the incident state machine (spec.md §4.1).
package prober

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"
)

const userAgent = "upwatch-prober/1"

// Result is the outcome of a single HTTP probe.
type Result struct {
	StartedAt   time.Time
	StatusCode  *int
	LatencyMS   *int
	OK          bool
	ErrorReason string
}

// Client executes HTTP probes against monitor targets. A single
// *http.Client is shared across all monitors; the per-probe deadline is
// applied via context, covering connect+TLS+request+response as one
// budget (SPEC_FULL.md §4.1).
type Client struct {
	http *http.Client
}

// NewClient builds a probe Client. The underlying transport uses Go's
// default redirect policy (up to 10 redirects, no cross-host
// Authorization forwarding) and verifies TLS certificates.
func NewClient() *Client {
	return &Client{
		http: &http.Client{
			// No explicit CheckRedirect: net/http's default policy
			// (<=10 redirects, strips Authorization across a host
			// change) is exactly what SPEC_FULL.md §4.1 documents.
		},
	}
}

// Probe issues one HTTP request against the monitor's URL and method,
// bounded by timeout, and classifies the response against
// expectedStatuses (a status outside that set, or any status but 200 when
// the set is empty, counts as a failure, not an error).
func (c *Client) Probe(ctx context.Context, method, url string, timeout time.Duration, expectedStatuses map[int]struct{}) Result {
	started := time.Now()
	res := Result{StartedAt: started}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		res.ErrorReason = err.Error()
		return res
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		res.ErrorReason = err.Error()
		return res
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	latencyMS := int(time.Since(started).Milliseconds())
	res.LatencyMS = &latencyMS
	res.StatusCode = &resp.StatusCode

	if len(expectedStatuses) == 0 {
		res.OK = resp.StatusCode == http.StatusOK
	} else {
		_, res.OK = expectedStatuses[resp.StatusCode]
	}

	return res
}

// truncateErrorReason enforces invariant 7: truncation to 500 bytes
// happens exactly once, here, at the point the Observation's
// error_reason is constructed, and is never re-applied downstream.
func truncateErrorReason(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return strings.TrimSpace(s[:maxLen])
}
