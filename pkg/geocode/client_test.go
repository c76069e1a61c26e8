package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plx30080-ctrl/LeadGen/internal/resilience"
)

var springfieldAddr = AddressInput{Street: "123 Main St", City: "Springfield", State: "IL", ZipCode: "62701"}

func nominatimServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGeocode_Nominatim(t *testing.T) {
	srv := nominatimServer(t, `[{"lat":"39.7817","lon":"-89.6501","class":"building","type":"yes","display_name":"123 Main St"}]`)
	client := NewClient(WithNominatimURL(srv.URL), WithRateLimit(1000))

	r, err := client.Geocode(context.Background(), springfieldAddr)
	require.NoError(t, err)
	assert.True(t, r.Matched)
	assert.InDelta(t, 39.7817, r.Latitude, 1e-6)
	assert.InDelta(t, -89.6501, r.Longitude, 1e-6)
	assert.Equal(t, "nominatim", r.Source)
	assert.Equal(t, "rooftop", r.Quality)
}

func TestGeocode_NominatimNoMatch(t *testing.T) {
	srv := nominatimServer(t, `[]`)
	client := NewClient(WithNominatimURL(srv.URL), WithRateLimit(1000))

	r, err := client.Geocode(context.Background(), springfieldAddr)
	require.NoError(t, err)
	assert.False(t, r.Matched)
}

func TestGeocode_EmptyAddressSkipsRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)
	client := NewClient(WithNominatimURL(srv.URL), WithRateLimit(1000))

	r, err := client.Geocode(context.Background(), AddressInput{})
	require.NoError(t, err)
	assert.False(t, r.Matched)
	assert.Zero(t, calls.Load())
}

func TestGeocode_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	client := NewClient(WithNominatimURL(srv.URL), WithRateLimit(1000))

	_, err := client.Geocode(context.Background(), springfieldAddr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.True(t, resilience.IsTransient(err))
}

func TestGeocode_ClientErrorNotTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)
	client := NewClient(WithNominatimURL(srv.URL), WithRateLimit(1000))

	_, err := client.Geocode(context.Background(), springfieldAddr)
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
}

func TestGeocode_GoogleFallback(t *testing.T) {
	nom := nominatimServer(t, `[]`)
	goog := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		w.Write([]byte(`{"status":"OK","results":[{"geometry":{"location":{"lat":41.8781,"lng":-87.6298},"location_type":"ROOFTOP"},"formatted_address":"Chicago, IL"}]}`))
	}))
	t.Cleanup(goog.Close)

	client := NewClient(
		WithNominatimURL(nom.URL),
		WithGoogleURL(goog.URL),
		WithGoogleAPIKey("secret"),
		WithRateLimit(1000),
	)

	r, err := client.Geocode(context.Background(), springfieldAddr)
	require.NoError(t, err)
	assert.True(t, r.Matched)
	assert.Equal(t, "google", r.Source)
	assert.Equal(t, "rooftop", r.Quality)
	assert.InDelta(t, 41.8781, r.Latitude, 1e-6)
}

func TestGeocode_GoogleZeroResults(t *testing.T) {
	nom := nominatimServer(t, `[]`)
	goog := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	}))
	t.Cleanup(goog.Close)

	client := NewClient(
		WithNominatimURL(nom.URL),
		WithGoogleURL(goog.URL),
		WithGoogleAPIKey("secret"),
		WithRateLimit(1000),
	)

	r, err := client.Geocode(context.Background(), springfieldAddr)
	require.NoError(t, err)
	assert.False(t, r.Matched)
}

func TestClassifyGoogleStatus(t *testing.T) {
	assert.NoError(t, classifyGoogleStatus("OK"))
	assert.NoError(t, classifyGoogleStatus("ZERO_RESULTS"))

	for _, status := range []string{"OVER_QUERY_LIMIT", "OVER_DAILY_LIMIT", "UNKNOWN_ERROR"} {
		err := classifyGoogleStatus(status)
		require.Error(t, err, status)
		assert.True(t, resilience.IsTransient(err), status)
	}

	for _, status := range []string{"REQUEST_DENIED", "INVALID_REQUEST"} {
		err := classifyGoogleStatus(status)
		require.Error(t, err, status)
		assert.False(t, resilience.IsTransient(err), status)
	}
}

func TestGeocode_GoogleQuotaDoesNotMask(t *testing.T) {
	// A throttled fallback must not turn a nominatim miss into a hard failure.
	nom := nominatimServer(t, `[]`)
	goog := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status":"OVER_QUERY_LIMIT","results":[]}`))
	}))
	t.Cleanup(goog.Close)

	client := NewClient(
		WithNominatimURL(nom.URL),
		WithGoogleURL(goog.URL),
		WithGoogleAPIKey("secret"),
		WithRateLimit(1000),
	)

	r, err := client.Geocode(context.Background(), springfieldAddr)
	require.NoError(t, err)
	assert.False(t, r.Matched)
}

func TestBatchGeocode(t *testing.T) {
	srv := nominatimServer(t, `[{"lat":"39.7817","lon":"-89.6501","class":"place","type":"city","display_name":"Springfield"}]`)
	client := NewClient(WithNominatimURL(srv.URL), WithRateLimit(1000), WithBatchConcurrency(2))

	addrs := []AddressInput{
		{City: "Springfield", State: "IL"},
		{City: "Chicago", State: "IL"},
		{}, // empty: unmatched, not an error
	}
	results, err := client.BatchGeocode(context.Background(), addrs)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.True(t, results[0].Matched)
	assert.Equal(t, "centroid", results[0].Quality)
	assert.True(t, results[1].Matched)
	assert.False(t, results[2].Matched)
}

func TestBatchGeocode_Empty(t *testing.T) {
	client := NewClient(WithRateLimit(1000))

	results, err := client.BatchGeocode(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestNominatimQuality(t *testing.T) {
	assert.Equal(t, "rooftop", nominatimQuality("building", "yes"))
	assert.Equal(t, "rooftop", nominatimQuality("place", "house"))
	assert.Equal(t, "centroid", nominatimQuality("boundary", "administrative"))
	assert.Equal(t, "approximate", nominatimQuality("highway", "residential"))
}

func TestGoogleLocationTypeToQuality(t *testing.T) {
	assert.Equal(t, "rooftop", googleLocationTypeToQuality("ROOFTOP"))
	assert.Equal(t, "centroid", googleLocationTypeToQuality("RANGE_INTERPOLATED"))
	assert.Equal(t, "centroid", googleLocationTypeToQuality("GEOMETRIC_CENTER"))
	assert.Equal(t, "approximate", googleLocationTypeToQuality("APPROXIMATE"))
	assert.Equal(t, "approximate", googleLocationTypeToQuality(""))
}

func TestFormatOneLine(t *testing.T) {
	assert.Equal(t, "123 Main St, Springfield, IL, 62701", formatOneLine(springfieldAddr))
	assert.Equal(t, "Springfield, IL", formatOneLine(AddressInput{City: "Springfield", State: " IL "}))
	assert.Equal(t, "", formatOneLine(AddressInput{}))
}