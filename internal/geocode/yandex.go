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

const defaultYandexBase = "https://geocode-maps.yandex.ru"

// Yandex resolves addresses via the Yandex Geocoder HTTP API. An API key is
// mandatory; without one the provider is not constructed at all and the
// cascade records it as "not configured".
type Yandex struct {
	base      string
	apiKey    string
	userAgent string
	client    *http.Client
}

func NewYandex(baseURL, apiKey, userAgent string, timeout time.Duration) *Yandex {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultYandexBase
	}
	return &Yandex{base: base, apiKey: apiKey, userAgent: userAgent, client: newHTTPClient(timeout)}
}

func (y *Yandex) Name() string { return "Yandex" }

func (y *Yandex) Geocode(ctx context.Context, query string) (model.Coordinates, bool, error) {
	q := url.Values{}
	q.Set("apikey", y.apiKey)
	q.Set("format", "json")
	q.Set("geocode", query)
	q.Set("results", "1")
	q.Set("lang", "ru_RU")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.base+"/1.x/?"+q.Encode(), nil)
	if err != nil {
		return model.Coordinates{}, false, err
	}
	if y.userAgent != "" {
		req.Header.Set("User-Agent", y.userAgent)
	}

	resp, err := y.client.Do(req)
	if err != nil {
		return model.Coordinates{}, false, err
	}
	body, err := readJSONResponse(resp, y.Name())
	if err != nil {
		return model.Coordinates{}, false, err
	}

	var out struct {
		Response struct {
			GeoObjectCollection struct {
				FeatureMember []struct {
					GeoObject struct {
						Point struct {
							Pos string `json:"pos"` // "lon lat"
						} `json:"Point"`
					} `json:"GeoObject"`
				} `json:"featureMember"`
			} `json:"GeoObjectCollection"`
		} `json:"response"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return model.Coordinates{}, false, err
	}

	members := out.Response.GeoObjectCollection.FeatureMember
	if len(members) == 0 {
		return model.Coordinates{}, false, nil
	}

	fields := strings.Fields(members[0].GeoObject.Point.Pos)
	if len(fields) != 2 {
		return model.Coordinates{}, false, fmt.Errorf("yandex: malformed point %q", members[0].GeoObject.Point.Pos)
	}
	lon, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return model.Coordinates{}, false, fmt.Errorf("yandex: parse lon: %w", err)
	}
	lat, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return model.Coordinates{}, false, fmt.Errorf("yandex: parse lat: %w", err)
	}
	return model.Coordinates{Lat: lat, Lon: lon}, true, nil
}
