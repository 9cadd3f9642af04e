package geocode

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"afisha/internal/model"
)

// Provider is a single upstream geocoding service. Implementations return
// found=false (with nil error) when the service answered but knows nothing
// about the query; errors are reserved for transport and protocol failures.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, query string) (coords model.Coordinates, found bool, err error)
}

// limiter enforces a minimum interval between calls to one provider.
// The mutex is held across the sleep so concurrent callers serialize
// against the same interval instead of waking up together.
type limiter struct {
	mu   sync.Mutex
	min  time.Duration
	last time.Time
}

func newLimiter(min time.Duration) *limiter {
	return &limiter{min: min}
}

func (l *limiter) wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.last.IsZero() {
		d := time.Until(l.last.Add(l.min))
		if d > 0 {
			select {
			case <-time.After(d):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	l.last = time.Now()
	return nil
}

// RateLimited wraps a provider with a minimum request interval.
func RateLimited(p Provider, min time.Duration) Provider {
	if min <= 0 {
		return p
	}
	return &ratedProvider{p: p, lim: newLimiter(min)}
}

type ratedProvider struct {
	p   Provider
	lim *limiter
}

func (r *ratedProvider) Name() string { return r.p.Name() }

func (r *ratedProvider) Geocode(ctx context.Context, query string) (model.Coordinates, bool, error) {
	if err := r.lim.wait(ctx); err != nil {
		return model.Coordinates{}, false, err
	}
	return r.p.Geocode(ctx, query)
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        16,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}

// readJSONResponse drains a response, rejecting non-2xx statuses with the
// first bytes of the body for diagnostics.
func readJSONResponse(resp *http.Response, provider string) ([]byte, error) {
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		head, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s: http %d: %s", provider, resp.StatusCode, strings.TrimSpace(string(head)))
	}
	return io.ReadAll(resp.Body)
}
