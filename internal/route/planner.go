package route

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/plx30080-ctrl/LeadGen/internal/geo"
	"github.com/plx30080-ctrl/LeadGen/internal/model"
	"github.com/plx30080-ctrl/LeadGen/internal/store"
	"github.com/plx30080-ctrl/LeadGen/pkg/geocode"
)

// Planner turns a set of lead ids into a persisted RoutePlan: resolve
// coordinates, build the matrix, order the stops, assemble, save.
type Planner struct {
	store      store.Store
	resolver   *geo.Resolver
	optimizer  *Optimizer
	timeBudget time.Duration
	now        func() time.Time
}

// PlannerOption configures a Planner.
type PlannerOption func(*Planner)

// WithTimeBudget bounds the optimizer's improvement loop per request. The
// geocoding stage is not covered; an expiring budget returns the best tour
// found so far.
func WithTimeBudget(d time.Duration) PlannerOption {
	return func(p *Planner) {
		if d > 0 {
			p.timeBudget = d
		}
	}
}

// NewPlanner creates a Planner.
func NewPlanner(st store.Store, resolver *geo.Resolver, optimizer *Optimizer, opts ...PlannerOption) *Planner {
	p := &Planner{
		store:      st,
		resolver:   resolver,
		optimizer:  optimizer,
		timeBudget: 2 * time.Second,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WithNow sets a fixed clock for testing.
func (p *Planner) WithNow(fn func() time.Time) *Planner {
	p.now = fn
	return p
}

// Plan builds, persists, and returns a route plan for the request. Leads
// whose addresses cannot be geocoded are excluded from the route and
// reported in the plan's failures rather than failing the request.
func (p *Planner) Plan(ctx context.Context, req model.RoutePlanRequest) (*model.RoutePlan, error) {
	if len(req.LeadIDs) == 0 {
		return nil, eris.Wrap(model.ErrValidation, "route: no lead ids")
	}

	details, err := p.store.GetLeadDetails(ctx, req.LeadIDs)
	if err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return nil, eris.Wrap(model.ErrNotFound, "route: no leads found")
	}

	var failures []model.GeocodeFailure
	seen := make(map[int64]bool, len(details))
	for _, d := range details {
		seen[d.Lead.ID] = true
	}
	for _, id := range req.LeadIDs {
		if !seen[id] {
			failures = append(failures, model.GeocodeFailure{
				LeadID: id,
				Reason: "lead not found",
			})
		}
	}

	companies := make([]*model.Company, len(details))
	for i := range details {
		companies[i] = &details[i].Company
	}
	points, errs := p.resolver.ResolveCompanies(ctx, companies)

	var stops []Stop
	for i, d := range details {
		if errs[i] != nil || points[i] == nil {
			failures = append(failures, model.GeocodeFailure{
				LeadID:  d.Lead.ID,
				Address: fullAddress(&d.Company),
				Reason:  failureReason(errs[i]),
			})
			continue
		}
		stops = append(stops, Stop{
			LeadID:      d.Lead.ID,
			CompanyName: d.Company.Name,
			Address:     fullAddress(&d.Company),
			Point:       *points[i],
		})
	}

	startPoint, startErr := p.resolveStart(ctx, req.StartLocation)
	if startErr != nil {
		return nil, startErr
	}

	plan := p.assemblePlan(ctx, stops, startPoint, req)
	plan.ID = uuid.NewString()
	plan.Failures = failures
	if len(plan.Stops) > 0 {
		plan.MapURL = BuildMapURL(req.StartLocation, plan.Stops)
	}

	if err := p.store.SaveRoutePlan(ctx, plan); err != nil {
		return nil, err
	}
	zap.L().Info("route: plan built",
		zap.String("plan_id", plan.ID),
		zap.Int("stops", len(plan.Stops)),
		zap.Int("failures", len(plan.Failures)),
		zap.Float64("total_distance", plan.TotalDistance),
	)
	return plan, nil
}

// requestBudget returns the optimizer budget for one request: the client's
// value when given, never above the configured ceiling.
func (p *Planner) requestBudget(req model.RoutePlanRequest) time.Duration {
	if req.TimeBudgetMs > 0 {
		if d := time.Duration(req.TimeBudgetMs) * time.Millisecond; d < p.timeBudget {
			return d
		}
	}
	return p.timeBudget
}

// resolveStart geocodes the free-text start location when one is given.
func (p *Planner) resolveStart(ctx context.Context, location string) (*model.GeoPoint, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, nil
	}
	pt, err := p.resolver.Resolve(ctx, geocode.AddressInput{Street: location})
	if err != nil {
		if eris.Is(err, model.ErrGeocodeFailure) {
			return nil, eris.Wrapf(model.ErrValidation, "route: start location %q unresolvable", location)
		}
		return nil, err
	}
	return pt, nil
}

func (p *Planner) assemblePlan(ctx context.Context, stops []Stop, start *model.GeoPoint, req model.RoutePlanRequest) *model.RoutePlan {
	hasStart := start != nil
	points := make([]model.GeoPoint, 0, len(stops)+1)
	if hasStart {
		points = append(points, *start)
	}
	for _, s := range stops {
		points = append(points, s.Point)
	}

	m := BuildMatrix(points)

	var order []int
	if req.Optimize {
		startIndex := -1
		if hasStart {
			startIndex = 0
		}
		optCtx, cancel := context.WithTimeout(ctx, p.requestBudget(req))
		order = p.optimizer.Optimize(optCtx, m, startIndex)
		cancel()
	} else {
		order = make([]int, len(points))
		for i := range order {
			order[i] = i
		}
	}

	return Assemble(order, m, stops, hasStart, p.now())
}

func fullAddress(c *model.Company) string {
	return fmt.Sprintf("%s, %s, %s %s", c.Street, c.City, c.State, c.ZipCode)
}

func failureReason(err error) string {
	if err == nil {
		return "address unresolvable"
	}
	return eris.Cause(err).Error()
}
