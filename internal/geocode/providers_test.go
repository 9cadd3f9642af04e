package geocode_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"afisha/internal/geocode"
)

func TestArcGIS_ParsesCandidate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/arcgis/rest/services/World/GeocodeServer/findAddressCandidates", r.URL.Path)
		assert.Equal(t, "ул. Мира, 5, Калининград", r.URL.Query().Get("singleLine"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"location":{"x":20.507,"y":54.712}}]}`))
	}))
	defer srv.Close()

	p := geocode.NewArcGIS(srv.URL, "afisha-test", 5*time.Second)
	coords, found, err := p.Geocode(context.Background(), "ул. Мира, 5, Калининград")
	require.NoError(t, err)
	require.True(t, found)
	assert.InDelta(t, 54.712, coords.Lat, 1e-9)
	assert.InDelta(t, 20.507, coords.Lon, 1e-9)
}

func TestArcGIS_NoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	p := geocode.NewArcGIS(srv.URL, "", 5*time.Second)
	_, found, err := p.Geocode(context.Background(), "нигде")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestArcGIS_HTTPErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusForbidden)
	}))
	defer srv.Close()

	p := geocode.NewArcGIS(srv.URL, "", 5*time.Second)
	_, found, err := p.Geocode(context.Background(), "q")
	assert.Error(t, err)
	assert.False(t, found)
}

func TestYandex_ParsesPos(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/1.x/", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("apikey"))
		_, _ = w.Write([]byte(`{"response":{"GeoObjectCollection":{"featureMember":[` +
			`{"GeoObject":{"Point":{"pos":"20.507 54.712"}}}]}}}`))
	}))
	defer srv.Close()

	p := geocode.NewYandex(srv.URL, "secret", "", 5*time.Second)
	coords, found, err := p.Geocode(context.Background(), "ул. Мира, 5")
	require.NoError(t, err)
	require.True(t, found)
	assert.InDelta(t, 54.712, coords.Lat, 1e-9)
	assert.InDelta(t, 20.507, coords.Lon, 1e-9)
}

func TestYandex_EmptyCollection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"response":{"GeoObjectCollection":{"featureMember":[]}}}`))
	}))
	defer srv.Close()

	p := geocode.NewYandex(srv.URL, "secret", "", 5*time.Second)
	_, found, err := p.Geocode(context.Background(), "нигде")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNominatim_ParsesStringCoords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.Equal(t, "ru", r.URL.Query().Get("countrycodes"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`[{"lat":"54.712","lon":"20.507"}]`))
	}))
	defer srv.Close()

	p := geocode.NewNominatim(srv.URL, "afisha-test", 5*time.Second)
	coords, found, err := p.Geocode(context.Background(), "ул. Мира, 5")
	require.NoError(t, err)
	require.True(t, found)
	assert.InDelta(t, 54.712, coords.Lat, 1e-9)
	assert.InDelta(t, 20.507, coords.Lon, 1e-9)
}

func TestNominatim_EmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	p := geocode.NewNominatim(srv.URL, "afisha-test", 5*time.Second)
	_, found, err := p.Geocode(context.Background(), "нигде")
	require.NoError(t, err)
	assert.False(t, found)
}
