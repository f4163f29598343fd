// Package health probes deployed applications over HTTP.
package health

import (
	"context"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultTimeout bounds a single probe.
	DefaultTimeout = 10 * time.Second

	// DefaultSamples is the latency sample count when the caller does not
	// choose one.
	DefaultSamples = 3
)

// Result is the outcome of one or more probes against a URL. Unreachable is
// an expected outcome, not an error: probing never fails.
type Result struct {
	URL        string
	Reachable  bool
	StatusCode int // 0 when no response was received
	Latencies  []time.Duration
	CheckedAt  time.Time
}

// Verifier issues HTTP health checks.
type Verifier struct {
	client *http.Client
	now    func() time.Time
}

// NewVerifier creates a Verifier with its own HTTP client.
func NewVerifier() *Verifier {
	return &Verifier{
		client: &http.Client{},
		now:    time.Now,
	}
}

// Verify probes url once. Reachable is true iff the request completed
// within timeout with a 2xx status. Any other status, network failure, or
// timeout yields Reachable false with whatever was observed.
func (v *Verifier) Verify(ctx context.Context, url string, timeout time.Duration) Result {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	res := Result{URL: url, CheckedAt: v.now()}
	res.probe(ctx, v.client, timeout)
	return res
}

// CheckLatency issues samples sequential probes against url, recording one
// duration per attempt whether or not the attempt succeeded. No averaging:
// aggregation is the caller's concern. Reachable reports whether any
// attempt got a 2xx.
func (v *Verifier) CheckLatency(ctx context.Context, url string, samples int, timeout time.Duration) Result {
	if samples <= 0 {
		samples = DefaultSamples
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	res := Result{URL: url, CheckedAt: v.now()}
	for i := 0; i < samples; i++ {
		res.probe(ctx, v.client, timeout)
	}
	return res
}

// probe issues one GET, appending its duration and folding the outcome into
// the result. A later success never downgrades an earlier one.
func (r *Result) probe(ctx context.Context, client *http.Client, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		r.Latencies = append(r.Latencies, time.Since(start))
		return
	}
	resp, err := client.Do(req)
	r.Latencies = append(r.Latencies, time.Since(start))
	if err != nil {
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if !r.Reachable {
		r.StatusCode = resp.StatusCode
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		r.Reachable = true
		r.StatusCode = resp.StatusCode
	}
}
