// Package geo resolves company addresses to coordinates, caching every
// outcome (including misses) so repeat lookups never hit a provider.
package geo

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/plx30080-ctrl/LeadGen/internal/model"
	"github.com/plx30080-ctrl/LeadGen/internal/normalize"
	"github.com/plx30080-ctrl/LeadGen/internal/resilience"
	"github.com/plx30080-ctrl/LeadGen/internal/store"
	"github.com/plx30080-ctrl/LeadGen/pkg/geocode"
)

// Resolver geocodes addresses cache-first against the store, falling back
// to the provider client on a miss.
type Resolver struct {
	store       store.Store
	client      geocode.Client
	retryCfg    resilience.RetryConfig
	breaker     *resilience.CircuitBreaker
	concurrency int
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithRetryConfig overrides the retry policy for provider calls.
func WithRetryConfig(cfg resilience.RetryConfig) ResolverOption {
	return func(r *Resolver) {
		r.retryCfg = cfg
	}
}

// WithConcurrency bounds parallel provider calls in ResolveCompanies.
func WithConcurrency(n int) ResolverOption {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// NewResolver creates a Resolver over the given store and provider client.
func NewResolver(st store.Store, client geocode.Client, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		store:       st,
		client:      client,
		retryCfg:    resilience.DefaultRetryConfig(),
		breaker:     resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig()),
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns coordinates for an address. A cached miss short-circuits
// with ErrGeocodeFailure without calling any provider; a fresh provider
// miss is cached as unresolvable before the same error is returned.
func (r *Resolver) Resolve(ctx context.Context, addr geocode.AddressInput) (*model.GeoPoint, error) {
	key := normalize.AddressKey(addr.Street, addr.City, addr.State, addr.ZipCode)
	if key == "|||" {
		return nil, eris.Wrap(model.ErrValidation, "geo: empty address")
	}

	pt, hit, err := r.store.GetCachedPoint(ctx, key)
	if err != nil {
		return nil, err
	}
	if hit {
		if pt == nil {
			return nil, eris.Wrapf(model.ErrGeocodeFailure, "geo: address %q known unresolvable", key)
		}
		return pt, nil
	}

	result, err := resilience.ExecuteVal(ctx, r.breaker, func(ctx context.Context) (*geocode.Result, error) {
		return resilience.DoVal(ctx, r.retryCfg, func(ctx context.Context) (*geocode.Result, error) {
			return r.client.Geocode(ctx, addr)
		})
	})
	if err != nil {
		// Provider outage: do not poison the cache with a negative entry.
		return nil, eris.Wrapf(model.ErrExternalService, "geo: provider: %v", err)
	}

	if !result.Matched {
		if cacheErr := r.store.PutCachedPoint(ctx, key, nil); cacheErr != nil {
			zap.L().Warn("geo: cache negative result", zap.Error(cacheErr))
		}
		return nil, eris.Wrapf(model.ErrGeocodeFailure, "geo: no match for %q", key)
	}

	pt = &model.GeoPoint{Latitude: result.Latitude, Longitude: result.Longitude}
	if cacheErr := r.store.PutCachedPoint(ctx, key, pt); cacheErr != nil {
		zap.L().Warn("geo: cache result", zap.Error(cacheErr))
	}
	zap.L().Debug("geo: resolved",
		zap.String("key", key),
		zap.String("source", result.Source),
		zap.String("quality", result.Quality),
	)
	return pt, nil
}

// ResolveCompany returns a company's coordinates, preferring ones already
// stored on the row. Freshly resolved coordinates are written back.
func (r *Resolver) ResolveCompany(ctx context.Context, c *model.Company) (*model.GeoPoint, error) {
	if c.Latitude != nil && c.Longitude != nil {
		return &model.GeoPoint{Latitude: *c.Latitude, Longitude: *c.Longitude}, nil
	}

	pt, err := r.Resolve(ctx, geocode.AddressInput{
		Street:  c.Street,
		City:    c.City,
		State:   c.State,
		ZipCode: c.ZipCode,
	})
	if err != nil {
		return nil, err
	}

	c.Latitude = &pt.Latitude
	c.Longitude = &pt.Longitude
	if err := r.store.UpdateCompany(ctx, c); err != nil {
		zap.L().Warn("geo: write back coordinates",
			zap.Int64("company_id", c.ID),
			zap.Error(err),
		)
	}
	return pt, nil
}

// ResolveCompanies geocodes companies in parallel. Both returned slices
// are parallel to the input: a point where resolution succeeded, the
// error where it did not.
func (r *Resolver) ResolveCompanies(ctx context.Context, companies []*model.Company) ([]*model.GeoPoint, []error) {
	points := make([]*model.GeoPoint, len(companies))
	errs := make([]error, len(companies))

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(r.concurrency)

	for i, c := range companies {
		eg.Go(func() error {
			points[i], errs[i] = r.ResolveCompany(gCtx, c)
			return nil
		})
	}

	_ = eg.Wait()
	return points, errs
}
