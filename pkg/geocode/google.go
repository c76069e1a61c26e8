package geocode

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/plx30080-ctrl/LeadGen/internal/resilience"
)

const googleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

// googleGeocodeResponse is the JSON response from the Google Geocoding API.
type googleGeocodeResponse struct {
	Results []googleResult `json:"results"`
	Status  string         `json:"status"`
}

type googleResult struct {
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
		LocationType string `json:"location_type"`
	} `json:"geometry"`
	FormattedAddress string `json:"formatted_address"`
}

// geocodeGoogle geocodes a single address using the Google Geocoding API.
func (g *geocoder) geocodeGoogle(ctx context.Context, addr AddressInput) (*Result, error) {
	if g.googleKey == "" {
		return nil, eris.New("geocode: google api key not configured")
	}

	params := url.Values{
		"address": {formatOneLine(addr)},
		"key":     {g.googleKey},
	}

	var googleResp googleGeocodeResponse
	if err := g.fetchJSON(ctx, "google", g.googleURL+"?"+params.Encode(), &googleResp); err != nil {
		return nil, err
	}

	if err := classifyGoogleStatus(googleResp.Status); err != nil {
		return nil, err
	}
	if len(googleResp.Results) == 0 {
		return &Result{Matched: false, Source: "google"}, nil
	}

	result := googleResp.Results[0]
	return &Result{
		Latitude:  result.Geometry.Location.Lat,
		Longitude: result.Geometry.Location.Lng,
		Source:    "google",
		Quality:   googleLocationTypeToQuality(result.Geometry.LocationType),
		Matched:   true,
	}, nil
}

// classifyGoogleStatus interprets the API-level status field. Google reports
// HTTP 200 even when it throttles or rejects a request, so quota exhaustion
// has to be recognized here to reach the retry path.
func classifyGoogleStatus(status string) error {
	switch status {
	case "OK", "ZERO_RESULTS":
		return nil
	case "OVER_QUERY_LIMIT", "OVER_DAILY_LIMIT":
		return resilience.NewTransientError(
			eris.Errorf("geocode: google status %s", status), http.StatusTooManyRequests)
	case "UNKNOWN_ERROR":
		return resilience.NewTransientError(
			eris.Errorf("geocode: google status %s", status), http.StatusInternalServerError)
	default:
		// REQUEST_DENIED, INVALID_REQUEST: retrying will not help.
		return eris.Errorf("geocode: google status %s", status)
	}
}

// googleLocationTypeToQuality maps Google's location_type to our quality taxonomy.
func googleLocationTypeToQuality(locType string) string {
	switch strings.ToUpper(locType) {
	case "ROOFTOP":
		return "rooftop"
	case "RANGE_INTERPOLATED", "GEOMETRIC_CENTER":
		return "centroid"
	case "APPROXIMATE":
		return "approximate"
	default:
		return "approximate"
	}
}
