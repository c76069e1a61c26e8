package route

import (
	"net/url"
	"strings"
	"time"

	"github.com/plx30080-ctrl/LeadGen/internal/model"
)

// Duration model: fixed average driving speed plus a fixed visit length
// per stop.
const (
	averageSpeedMPH = 30.0
	minutesPerStop  = 30
)

// Stop pairs a lead with its display fields and resolved coordinates.
type Stop struct {
	LeadID      int64
	CompanyName string
	Address     string
	Point       model.GeoPoint
}

// Assemble renders the optimizer's order into a RoutePlan: cumulative
// distance, per-stop legs and arrival estimates, and the total duration.
// When hasStart is true, matrix index 0 is the departure point and is not
// emitted as a stop. Assemble makes no ordering decisions of its own.
func Assemble(order []int, m Matrix, stops []Stop, hasStart bool, departAt time.Time) *model.RoutePlan {
	plan := &model.RoutePlan{
		Stops:     make([]model.RouteStop, 0, len(stops)),
		CreatedAt: departAt.UTC(),
	}

	var totalDistance float64
	eta := departAt
	prev := -1
	outOrder := 0
	for _, ix := range order {
		if hasStart && ix == 0 {
			prev = 0
			continue
		}
		stop := stops[stopIndex(ix, hasStart)]

		var leg float64
		if prev >= 0 {
			leg = m[prev][ix]
		}
		totalDistance += leg
		eta = eta.Add(driveTime(leg))
		if outOrder > 0 {
			eta = eta.Add(minutesPerStop * time.Minute)
		}

		legCopy := leg
		arrival := eta.Format("3:04 PM")
		plan.Stops = append(plan.Stops, model.RouteStop{
			LeadID:               stop.LeadID,
			CompanyName:          stop.CompanyName,
			Address:              stop.Address,
			Order:                outOrder,
			DistanceFromPrevious: &legCopy,
			EstimatedArrival:     &arrival,
		})
		outOrder++
		prev = ix
	}

	plan.TotalDistance = totalDistance
	plan.EstimatedDuration = int(totalDistance/averageSpeedMPH*60) + len(plan.Stops)*minutesPerStop
	return plan
}

func stopIndex(matrixIndex int, hasStart bool) int {
	if hasStart {
		return matrixIndex - 1
	}
	return matrixIndex
}

func driveTime(miles float64) time.Duration {
	return time.Duration(miles / averageSpeedMPH * float64(time.Hour))
}

// BuildMapURL produces a shareable Google Maps directions link over the
// ordered stops. origin may be empty, in which case the first stop is the
// origin.
func BuildMapURL(origin string, stops []model.RouteStop) string {
	if len(stops) == 0 {
		return ""
	}

	addrs := make([]string, len(stops))
	for i, s := range stops {
		addrs[i] = s.Address
	}

	dest := addrs[len(addrs)-1]
	waypoints := addrs[:len(addrs)-1]
	if origin == "" {
		if len(addrs) == 1 {
			origin = addrs[0]
		} else {
			origin = addrs[0]
			waypoints = addrs[1 : len(addrs)-1]
		}
	}

	params := url.Values{
		"api":         {"1"},
		"origin":      {origin},
		"destination": {dest},
	}
	if len(waypoints) > 0 {
		params.Set("waypoints", strings.Join(waypoints, "|"))
	}
	return "https://www.google.com/maps/dir/?" + params.Encode()
}
