package route

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plx30080-ctrl/LeadGen/internal/model"
)

func testStops() []Stop {
	return []Stop{
		{LeadID: 1, CompanyName: "Acme", Address: "123 Main St, Springfield, IL 62701", Point: springfield},
		{LeadID: 2, CompanyName: "Zenith", Address: "456 Oak Ave, Chicago, IL 60601", Point: chicago},
		{LeadID: 3, CompanyName: "Apex", Address: "789 Elm Rd, St Louis, MO 63101", Point: stlouis},
	}
}

func TestAssemble_OrderStartsAtZero(t *testing.T) {
	stops := testStops()
	m := BuildMatrix([]model.GeoPoint{stops[0].Point, stops[1].Point, stops[2].Point})
	departAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	plan := Assemble([]int{0, 1, 2}, m, stops, false, departAt)
	require.Len(t, plan.Stops, 3)
	for i, s := range plan.Stops {
		assert.Equal(t, i, s.Order)
	}
	assert.Equal(t, int64(1), plan.Stops[0].LeadID)
	assert.Equal(t, int64(2), plan.Stops[1].LeadID)
	assert.Equal(t, int64(3), plan.Stops[2].LeadID)
}

func TestAssemble_DistancesAndTotal(t *testing.T) {
	stops := testStops()
	m := BuildMatrix([]model.GeoPoint{stops[0].Point, stops[1].Point, stops[2].Point})

	plan := Assemble([]int{0, 1, 2}, m, stops, false, time.Now())

	require.NotNil(t, plan.Stops[0].DistanceFromPrevious)
	assert.Equal(t, 0.0, *plan.Stops[0].DistanceFromPrevious)
	assert.InDelta(t, m[0][1], *plan.Stops[1].DistanceFromPrevious, 1e-9)
	assert.InDelta(t, m[1][2], *plan.Stops[2].DistanceFromPrevious, 1e-9)
	assert.InDelta(t, m[0][1]+m[1][2], plan.TotalDistance, 1e-9)
}

func TestAssemble_DurationModel(t *testing.T) {
	stops := testStops()
	m := BuildMatrix([]model.GeoPoint{stops[0].Point, stops[1].Point, stops[2].Point})

	plan := Assemble([]int{0, 1, 2}, m, stops, false, time.Now())

	want := int(plan.TotalDistance/30.0*60) + 3*30
	assert.Equal(t, want, plan.EstimatedDuration)
}

func TestAssemble_ArrivalTimes(t *testing.T) {
	stops := testStops()
	m := BuildMatrix([]model.GeoPoint{stops[0].Point, stops[1].Point, stops[2].Point})
	departAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	plan := Assemble([]int{0, 1, 2}, m, stops, false, departAt)

	// First stop is the departure point itself.
	require.NotNil(t, plan.Stops[0].EstimatedArrival)
	assert.Equal(t, "9:00 AM", *plan.Stops[0].EstimatedArrival)

	// Second arrival includes the 30 minute visit plus the drive.
	second := departAt.Add(30*time.Minute + driveTime(m[0][1])).Format("3:04 PM")
	assert.Equal(t, second, *plan.Stops[1].EstimatedArrival)
}

func TestAssemble_StartLocationExcluded(t *testing.T) {
	stops := testStops()[:2]
	start := model.GeoPoint{Latitude: 39.70, Longitude: -89.60}
	m := BuildMatrix([]model.GeoPoint{start, stops[0].Point, stops[1].Point})

	plan := Assemble([]int{0, 1, 2}, m, stops, true, time.Now())

	require.Len(t, plan.Stops, 2)
	assert.Equal(t, int64(1), plan.Stops[0].LeadID)
	assert.Equal(t, 0, plan.Stops[0].Order)

	// First leg is measured from the start location, not zero.
	require.NotNil(t, plan.Stops[0].DistanceFromPrevious)
	assert.InDelta(t, m[0][1], *plan.Stops[0].DistanceFromPrevious, 1e-9)
}

func TestAssemble_EmptyOrder(t *testing.T) {
	plan := Assemble(nil, Matrix{}, nil, false, time.Now())
	assert.Empty(t, plan.Stops)
	assert.Equal(t, 0.0, plan.TotalDistance)
	assert.Equal(t, 0, plan.EstimatedDuration)
}

func TestBuildMapURL(t *testing.T) {
	stops := []model.RouteStop{
		{Address: "123 Main St"},
		{Address: "456 Oak Ave"},
		{Address: "789 Elm Rd"},
	}

	raw := BuildMapURL("1 Depot Way", stops)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "www.google.com", u.Host)
	assert.Equal(t, "/maps/dir/", u.Path)

	q := u.Query()
	assert.Equal(t, "1", q.Get("api"))
	assert.Equal(t, "1 Depot Way", q.Get("origin"))
	assert.Equal(t, "789 Elm Rd", q.Get("destination"))
	assert.Equal(t, []string{"123 Main St", "456 Oak Ave"}, strings.Split(q.Get("waypoints"), "|"))
}

func TestBuildMapURL_NoOrigin(t *testing.T) {
	stops := []model.RouteStop{
		{Address: "123 Main St"},
		{Address: "456 Oak Ave"},
		{Address: "789 Elm Rd"},
	}

	u, err := url.Parse(BuildMapURL("", stops))
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "123 Main St", q.Get("origin"))
	assert.Equal(t, "789 Elm Rd", q.Get("destination"))
	assert.Equal(t, "456 Oak Ave", q.Get("waypoints"))
}

func TestBuildMapURL_SingleStop(t *testing.T) {
	stops := []model.RouteStop{{Address: "123 Main St"}}

	u, err := url.Parse(BuildMapURL("", stops))
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "123 Main St", q.Get("origin"))
	assert.Equal(t, "123 Main St", q.Get("destination"))
	assert.Empty(t, q.Get("waypoints"))
}

func TestBuildMapURL_Empty(t *testing.T) {
	assert.Equal(t, "", BuildMapURL("home", nil))
}
