// Package geocode resolves street addresses to coordinates via Nominatim
// (primary) and the Google Geocoding API (fallback).
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/plx30080-ctrl/LeadGen/internal/resilience"
)

// Client geocodes addresses using Nominatim (primary) and Google (fallback).
type Client interface {
	// Geocode geocodes a single address.
	Geocode(ctx context.Context, addr AddressInput) (*Result, error)

	// BatchGeocode geocodes multiple addresses.
	BatchGeocode(ctx context.Context, addrs []AddressInput) ([]Result, error)
}

// AddressInput represents an address to geocode.
type AddressInput struct {
	ID      string // Optional identifier for batch correlation
	Street  string
	City    string
	State   string
	ZipCode string
}

// Result holds the geocoding output for an address.
type Result struct {
	Latitude  float64
	Longitude float64
	Source    string // "nominatim" or "google"
	Quality   string // "rooftop", "centroid", "approximate"
	Matched   bool
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithGoogleAPIKey enables Google Geocoding API as a fallback.
func WithGoogleAPIKey(key string) Option {
	return func(g *geocoder) {
		g.googleKey = key
	}
}

// WithHTTPClient sets a custom HTTP client for both Nominatim and Google requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second rate limit for Nominatim calls.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		g.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithUserAgent sets the User-Agent header sent to Nominatim, which
// requires one identifying the application.
func WithUserAgent(ua string) Option {
	return func(g *geocoder) {
		g.userAgent = ua
	}
}

// WithNominatimURL overrides the Nominatim endpoint, for self-hosted
// instances and tests.
func WithNominatimURL(u string) Option {
	return func(g *geocoder) {
		g.nominatimURL = u
	}
}

// WithGoogleURL overrides the Google Geocoding endpoint, for tests.
func WithGoogleURL(u string) Option {
	return func(g *geocoder) {
		g.googleURL = u
	}
}

// WithBatchConcurrency sets the max parallel calls for BatchGeocode.
func WithBatchConcurrency(n int) Option {
	return func(g *geocoder) {
		if n > 0 {
			g.batchConcurrency = n
		}
	}
}

type geocoder struct {
	httpClient       *http.Client
	googleKey        string
	userAgent        string
	nominatimURL     string
	googleURL        string
	limiter          *rate.Limiter
	batchConcurrency int
}

// NewClient creates a new geocoding Client with the given options.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		httpClient:       &http.Client{Timeout: 30 * time.Second},
		userAgent:        "leadgen-dashboard/1.0",
		nominatimURL:     nominatimSearchURL,
		googleURL:        googleGeocodeURL,
		limiter:          rate.NewLimiter(1, 1), // Nominatim usage policy: 1 req/s
		batchConcurrency: 4,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// fetchJSON issues a GET against a provider endpoint and decodes the JSON
// body into out. Retryable HTTP statuses come back as TransientError so the
// retry layer can tell throttling from hard failures.
func (g *geocoder) fetchJSON(ctx context.Context, provider, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return eris.Wrapf(err, "geocode: %s build request", provider)
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return eris.Wrapf(err, "geocode: %s request", provider)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		statErr := eris.Errorf("geocode: %s returned status %d", provider, resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(statErr, resp.StatusCode)
		}
		return statErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrapf(err, "geocode: %s read body", provider)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrapf(err, "geocode: %s parse response", provider)
	}
	return nil
}

// Geocode geocodes a single address, trying Nominatim first, then Google
// if configured.
func (g *geocoder) Geocode(ctx context.Context, addr AddressInput) (*Result, error) {
	result, nomErr := g.geocodeNominatim(ctx, addr)
	if nomErr == nil && result.Matched {
		return result, nil
	}

	if g.googleKey != "" {
		googleResult, googleErr := g.geocodeGoogle(ctx, addr)
		if googleErr == nil && googleResult.Matched {
			return googleResult, nil
		}
	}

	if nomErr != nil {
		return nil, nomErr
	}

	// No match from any provider; not an error, just unmatched.
	return &Result{Matched: false}, nil
}

// BatchGeocode geocodes addresses in parallel, bounded by the configured
// concurrency. Individual misses come back unmatched rather than failing
// the batch.
func (g *geocoder) BatchGeocode(ctx context.Context, addrs []AddressInput) ([]Result, error) {
	if len(addrs) == 0 {
		return nil, nil
	}

	for i := range addrs {
		if addrs[i].ID == "" {
			addrs[i].ID = fmt.Sprintf("%d", i)
		}
	}

	results := make([]Result, len(addrs))

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.batchConcurrency)

	for i, addr := range addrs {
		eg.Go(func() error {
			r, gcErr := g.Geocode(gCtx, addr)
			if gcErr != nil || r == nil {
				results[i] = Result{Matched: false}
				return nil //nolint:nilerr // individual geocode failures don't fail the batch
			}
			results[i] = *r
			return nil
		})
	}

	_ = eg.Wait()
	return results, nil
}
