package geocode

import (
	"context"
	"fmt"
	"strings"

	appLog "afisha/internal/log"
	"afisha/internal/metrics"
	"afisha/internal/model"
)

// Entry is one slot in the provider cascade. Provider is nil when the slot
// is known but not configured (e.g. Yandex without an API key); such slots
// are recorded in the attempt log and skipped.
type Entry struct {
	Name     string
	Provider Provider
}

// LocalityHint appends the default locality to provider queries for
// addresses that name no recognizable settlement. Only the query string is
// modified; the cache key stays the raw trimmed address.
type LocalityHint struct {
	Keywords []string
	Default  string
}

// Apply returns the query to send to providers for the given address.
func (h LocalityHint) Apply(address string) string {
	if h.Default == "" {
		return address
	}
	lower := strings.ToLower(address)
	for _, kw := range h.Keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			return address
		}
	}
	return address + ", " + h.Default
}

// Resolver runs the provider cascade over the address cache: cache first,
// then each provider in priority order until one answers, recording the
// outcome (or the unresolved sentinel) back into the cache.
type Resolver struct {
	cache    *Cache
	cascade  []Entry
	hint     LocalityHint
	attempts *AttemptLog // may be nil
}

func NewResolver(cache *Cache, cascade []Entry, hint LocalityHint, attempts *AttemptLog) *Resolver {
	return &Resolver{cache: cache, cascade: cascade, hint: hint, attempts: attempts}
}

// Resolve returns the coordinates for an address, or found=false when the
// address is empty, cached as unresolved, or exhausted every provider.
// Provider failures are never propagated: each one moves the cascade to the
// next provider.
func (r *Resolver) Resolve(ctx context.Context, address string) (model.Coordinates, bool) {
	address = strings.TrimSpace(address)
	if address == "" {
		appLog.Warn("empty address given to geocoder")
		return model.Coordinates{}, false
	}

	// Cache wins over re-resolution, including the unresolved sentinel:
	// a known-bad address is not retried.
	if coords, attempted := r.cache.Lookup(address); attempted {
		if coords != nil {
			appLog.Debug("geocode cache hit", "address", address, "lat", coords.Lat, "lon", coords.Lon)
			return *coords, true
		}
		appLog.Debug("geocode cache hit: unresolved", "address", address)
		return model.Coordinates{}, false
	}

	query := r.hint.Apply(address)

	for _, entry := range r.cascade {
		if entry.Provider == nil {
			r.note(address, entry.Name, false, "not configured")
			metrics.GeocodeAttempts.WithLabelValues(entry.Name, "not_configured").Inc()
			continue
		}

		coords, found, err := entry.Provider.Geocode(ctx, query)
		if err != nil {
			r.note(address, entry.Name, false, err.Error())
			metrics.GeocodeAttempts.WithLabelValues(entry.Name, "error").Inc()
			appLog.Warn("geocode attempt failed", "provider", entry.Name, "address", address, "err", err)
			continue
		}
		if !found {
			r.note(address, entry.Name, false, "no result")
			metrics.GeocodeAttempts.WithLabelValues(entry.Name, "miss").Inc()
			continue
		}

		detail := fmt.Sprintf("%.6f,%.6f", coords.Lat, coords.Lon)
		r.note(address, entry.Name, true, detail)
		metrics.GeocodeAttempts.WithLabelValues(entry.Name, "ok").Inc()
		appLog.Info("geocoded", "provider", entry.Name, "address", address, "coords", detail)

		// First success wins; later providers are not consulted.
		r.cache.Put(address, &coords)
		return coords, true
	}

	// Every provider exhausted: record the sentinel so future runs skip
	// this address.
	r.cache.Put(address, nil)
	appLog.Warn("all geocoders failed", "address", address)
	return model.Coordinates{}, false
}

func (r *Resolver) note(address, provider string, success bool, detail string) {
	if r.attempts != nil {
		r.attempts.Note(address, provider, success, detail)
	}
}
