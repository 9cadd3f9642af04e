package geocode

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"afisha/internal/model"
)

const defaultArcGISBase = "https://geocode.arcgis.com"

// ArcGIS resolves addresses via the public ArcGIS World Geocoding findAddressCandidates
// endpoint. No credentials are required for search-only use.
type ArcGIS struct {
	base      string
	userAgent string
	client    *http.Client
}

func NewArcGIS(baseURL, userAgent string, timeout time.Duration) *ArcGIS {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultArcGISBase
	}
	return &ArcGIS{base: base, userAgent: userAgent, client: newHTTPClient(timeout)}
}

func (a *ArcGIS) Name() string { return "ArcGIS" }

func (a *ArcGIS) Geocode(ctx context.Context, query string) (model.Coordinates, bool, error) {
	q := url.Values{}
	q.Set("f", "json")
	q.Set("singleLine", query)
	q.Set("maxLocations", "1")
	q.Set("outFields", "none")

	endpoint := a.base + "/arcgis/rest/services/World/GeocodeServer/findAddressCandidates?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.Coordinates{}, false, err
	}
	if a.userAgent != "" {
		req.Header.Set("User-Agent", a.userAgent)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return model.Coordinates{}, false, err
	}
	body, err := readJSONResponse(resp, a.Name())
	if err != nil {
		return model.Coordinates{}, false, err
	}

	var out struct {
		Candidates []struct {
			Location struct {
				X float64 `json:"x"` // longitude
				Y float64 `json:"y"` // latitude
			} `json:"location"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return model.Coordinates{}, false, err
	}
	if len(out.Candidates) == 0 {
		return model.Coordinates{}, false, nil
	}
	loc := out.Candidates[0].Location
	return model.Coordinates{Lat: loc.Y, Lon: loc.X}, true, nil
}
