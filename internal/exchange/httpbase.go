package exchange

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/chidi150c/tradebackend/internal/ratelimit"
	"github.com/sony/gobreaker"
)

// baseClient bundles the concerns every adapter needs around its raw HTTP
// calls: rate-limit pacing (spec §4.1), a circuit breaker so sustained 5xx/429
// responses don't hang a cycle (spec §7: venue rate limits are transient;
// this gives that rule teeth), and a bounded-timeout http.Client. Adapters
// embed baseClient and layer their own signing on top, matching the
// teacher's one-venue-one-file shape (broker_binance.go, broker_coinbase.go)
// while sharing the plumbing every venue needs identically.
type baseClient struct {
	venue   string
	baseURL string
	hc      *http.Client
	pacer   *ratelimit.Pacer
	breaker *gobreaker.CircuitBreaker
}

func newBaseClient(venue, baseURL string, minInterval time.Duration, timeout time.Duration) baseClient {
	cbSettings := gobreaker.Settings{
		Name:        venue,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return baseClient{
		venue:   venue,
		baseURL: baseURL,
		hc:      &http.Client{Timeout: timeout},
		pacer:   ratelimit.NewPacer(minInterval),
		breaker: gobreaker.NewCircuitBreaker(cbSettings),
	}
}

// rawRequest describes one outbound HTTP call before signing is applied.
type rawRequest struct {
	Method  string
	URL     string
	Body    []byte
	Headers map[string]string
}

// do paces, trips-through-the-breaker, and executes req, returning the
// response body. A non-2xx response is surfaced as a *VenueError rather
// than silently coerced (spec §4.1).
func (b *baseClient) do(ctx context.Context, req rawRequest) ([]byte, error) {
	if err := b.pacer.Wait(ctx); err != nil {
		return nil, err
	}
	result, err := b.breaker.Execute(func() (interface{}, error) {
		var bodyReader io.Reader
		if len(req.Body) > 0 {
			bodyReader = bytes.NewReader(req.Body)
		}
		httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bodyReader)
		if err != nil {
			return nil, err
		}
		for k, v := range req.Headers {
			httpReq.Header.Set(k, v)
		}
		resp, err := b.hc.Do(httpReq)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 300 {
			return nil, &VenueError{Venue: b.venue, HTTPStatus: resp.StatusCode, Message: string(data)}
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}
