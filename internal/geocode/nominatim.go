package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"afisha/internal/model"
)

const defaultNominatimBase = "https://nominatim.openstreetmap.org"

// Nominatim resolves addresses via a Nominatim /search endpoint, either the
// public OSM instance or a self-hosted one. The usage policy requires an
// identifying User-Agent.
type Nominatim struct {
	base         string
	userAgent    string
	countryCodes string
	client       *http.Client
}

func NewNominatim(baseURL, userAgent string, timeout time.Duration) *Nominatim {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultNominatimBase
	}
	if userAgent == "" {
		userAgent = "afisha-bot"
	}
	return &Nominatim{
		base:         base,
		userAgent:    userAgent,
		countryCodes: "ru",
		client:       newHTTPClient(timeout),
	}
}

func (n *Nominatim) Name() string { return "Nominatim" }

func (n *Nominatim) Geocode(ctx context.Context, query string) (model.Coordinates, bool, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("q", query)
	q.Set("limit", "1")
	q.Set("countrycodes", n.countryCodes)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.base+"/search?"+q.Encode(), nil)
	if err != nil {
		return model.Coordinates{}, false, err
	}
	req.Header.Set("User-Agent", n.userAgent)

	resp, err := n.client.Do(req)
	if err != nil {
		return model.Coordinates{}, false, err
	}
	body, err := readJSONResponse(resp, n.Name())
	if err != nil {
		return model.Coordinates{}, false, err
	}

	// Nominatim returns coordinates as strings.
	var out []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return model.Coordinates{}, false, err
	}
	if len(out) == 0 {
		return model.Coordinates{}, false, nil
	}

	lat, err := strconv.ParseFloat(out[0].Lat, 64)
	if err != nil {
		return model.Coordinates{}, false, fmt.Errorf("nominatim: parse lat: %w", err)
	}
	lon, err := strconv.ParseFloat(out[0].Lon, 64)
	if err != nil {
		return model.Coordinates{}, false, fmt.Errorf("nominatim: parse lon: %w", err)
	}
	return model.Coordinates{Lat: lat, Lon: lon}, true, nil
}
