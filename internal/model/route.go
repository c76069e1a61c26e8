package model

import "time"

// RouteStop is one visit in a planned route, in visiting order starting at 0.
type RouteStop struct {
	LeadID               int64    `json:"lead_id" db:"lead_id"`
	CompanyName          string   `json:"company_name" db:"company_name"`
	Address              string   `json:"address" db:"address"`
	Order                int      `json:"order" db:"stop_order"`
	DistanceFromPrevious *float64 `json:"distance_from_previous,omitempty" db:"distance_from_previous"`
	EstimatedArrival     *string  `json:"estimated_arrival,omitempty" db:"estimated_arrival"`
}

// GeocodeFailure reports a stop excluded from a plan because its address
// could not be resolved.
type GeocodeFailure struct {
	LeadID  int64  `json:"lead_id"`
	Address string `json:"address"`
	Reason  string `json:"reason"`
}

// RoutePlan is the immutable result of one planning request. A new request
// always produces a new plan; stored plans are never updated.
type RoutePlan struct {
	ID                string           `json:"id" db:"id"`
	TotalDistance     float64          `json:"total_distance" db:"total_distance"`
	EstimatedDuration int              `json:"estimated_duration" db:"estimated_duration"`
	Stops             []RouteStop      `json:"stops"`
	Failures          []GeocodeFailure `json:"geocode_failures,omitempty"`
	MapURL            string           `json:"map_url,omitempty" db:"map_url"`
	CreatedAt         time.Time        `json:"created_at" db:"created_at"`
}

// RoutePlanRequest is the external planning contract consumed by the UI layer.
type RoutePlanRequest struct {
	LeadIDs       []int64 `json:"lead_ids"`
	StartLocation string  `json:"start_location,omitempty"`
	Optimize      bool    `json:"optimize"`

	// TimeBudgetMs optionally tightens the optimizer's time budget for this
	// request. The server-configured budget is the ceiling.
	TimeBudgetMs int `json:"time_budget_ms,omitempty"`
}
