package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/plx30080-ctrl/LeadGen/internal/db"
	"github.com/plx30080-ctrl/LeadGen/internal/geo"
	"github.com/plx30080-ctrl/LeadGen/internal/ingest"
	"github.com/plx30080-ctrl/LeadGen/internal/match"
	"github.com/plx30080-ctrl/LeadGen/internal/resilience"
	"github.com/plx30080-ctrl/LeadGen/internal/route"
	"github.com/plx30080-ctrl/LeadGen/internal/store"
	"github.com/plx30080-ctrl/LeadGen/pkg/geocode"
)

// openStore opens the configured backend and runs migrations.
func openStore(ctx context.Context) (store.Store, error) {
	var st store.Store
	switch cfg.Store.Driver {
	case "postgres":
		pool, err := db.Connect(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		st = store.NewPostgres(pool)
	case "sqlite":
		s, err := store.NewSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		st = s
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// newGeoResolver builds the provider client and cache-first resolver from
// config.
func newGeoResolver(st store.Store) *geo.Resolver {
	opts := []geocode.Option{
		geocode.WithNominatimURL(cfg.Geocode.NominatimURL),
		geocode.WithUserAgent(cfg.Geocode.UserAgent),
		geocode.WithRateLimit(cfg.Geocode.RateLimitRPS),
		geocode.WithBatchConcurrency(cfg.Geocode.Concurrency),
		geocode.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Geocode.TimeoutSecs) * time.Second}),
	}
	if cfg.Geocode.GoogleAPIKey != "" {
		opts = append(opts, geocode.WithGoogleAPIKey(cfg.Geocode.GoogleAPIKey))
	}
	client := geocode.NewClient(opts...)

	retryCfg := resilience.FromRetryConfig(
		cfg.Retry.MaxAttempts,
		cfg.Retry.InitialBackoffMs,
		cfg.Retry.MaxBackoffMs,
		cfg.Retry.Multiplier,
		cfg.Retry.JitterFraction,
	)
	return geo.NewResolver(st, client,
		geo.WithRetryConfig(retryCfg),
		geo.WithConcurrency(cfg.Geocode.Concurrency),
	)
}

// newIngestResolver builds the matcher-backed batch resolver from config.
func newIngestResolver(st store.Store) *ingest.Resolver {
	matcher := match.New(st,
		match.WithThreshold(cfg.Matcher.Threshold),
		match.WithTieMargin(cfg.Matcher.TieMargin),
		match.WithCandidateLimit(cfg.Matcher.CandidateLimit),
	)
	return ingest.NewResolver(st, matcher)
}

// newPlanner builds the route planner from config.
func newPlanner(st store.Store, resolver *geo.Resolver) *route.Planner {
	optimizer := route.NewOptimizer(route.WithMaxPasses(cfg.Route.MaxPasses))
	return route.NewPlanner(st, resolver, optimizer,
		route.WithTimeBudget(time.Duration(cfg.Route.TimeBudgetMs)*time.Millisecond),
	)
}
