package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plx30080-ctrl/LeadGen/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func acmeCompany() *model.Company {
	return &model.Company{
		Name:    "Acme Widget Works",
		NameKey: "acme widget works",
		Domain:  "acme.com",
		Website: "https://acme.com",
		City:    "Springfield",
		State:   "IL",
		ZipCode: "62701",
	}
}

func TestCompanyRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	c := acmeCompany()
	require.NoError(t, st.CreateCompany(ctx, c))
	assert.NotZero(t, c.ID)
	assert.False(t, c.CreatedAt.IsZero())

	got, err := st.GetCompany(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Acme Widget Works", got.Name)
	assert.Equal(t, "acme.com", got.Domain)
	assert.Equal(t, "USA", got.Country)
}

func TestCompanyDuplicateDomain(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.CreateCompany(ctx, acmeCompany()))

	dup := acmeCompany()
	dup.Name = "Acme Widgets"
	err := st.CreateCompany(ctx, dup)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrDuplicateKey))
}

func TestCompanyDuplicateNameZip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	a := acmeCompany()
	a.Domain = ""
	require.NoError(t, st.CreateCompany(ctx, a))

	// Same name key, same zip, no domain: conflict.
	b := acmeCompany()
	b.Domain = ""
	err := st.CreateCompany(ctx, b)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrDuplicateKey))

	// A different zip is a different identity.
	c := acmeCompany()
	c.Domain = ""
	c.ZipCode = "62702"
	assert.NoError(t, st.CreateCompany(ctx, c))
}

func TestCompanyDomainDoesNotBlockNameKey(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	// A domainless row and a domained row may share the same name and zip.
	a := acmeCompany()
	require.NoError(t, st.CreateCompany(ctx, a))

	b := acmeCompany()
	b.Domain = ""
	assert.NoError(t, st.CreateCompany(ctx, b))
}

func TestGetCompanyByKey(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	c := acmeCompany()
	require.NoError(t, st.CreateCompany(ctx, c))

	byDomain, err := st.GetCompanyByKey(ctx, "domain:acme.com")
	require.NoError(t, err)
	require.NotNil(t, byDomain)
	assert.Equal(t, c.ID, byDomain.ID)

	missing, err := st.GetCompanyByKey(ctx, "domain:other.com")
	require.NoError(t, err)
	assert.Nil(t, missing)

	d := acmeCompany()
	d.Domain = ""
	d.ZipCode = "62799"
	require.NoError(t, st.CreateCompany(ctx, d))

	byName, err := st.GetCompanyByKey(ctx, "name:acme widget works|62799")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, d.ID, byName.ID)
}

func TestSearchCompaniesByCity(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	a := acmeCompany()
	require.NoError(t, st.CreateCompany(ctx, a))

	b := acmeCompany()
	b.Domain = "zenith.com"
	b.Name = "Zenith Plumbing"
	b.NameKey = "zenith plumbing"
	require.NoError(t, st.CreateCompany(ctx, b))

	c := acmeCompany()
	c.Domain = "apex.com"
	c.City = "Chicago"
	require.NoError(t, st.CreateCompany(ctx, c))

	got, err := st.SearchCompaniesByCity(ctx, "Springfield", "IL", 25)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	limited, err := st.SearchCompaniesByCity(ctx, "Springfield", "IL", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestUpdateCompany(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	c := acmeCompany()
	require.NoError(t, st.CreateCompany(ctx, c))

	lat, lon := 39.78, -89.65
	c.Industry = "Manufacturing"
	c.Latitude = &lat
	c.Longitude = &lon
	require.NoError(t, st.UpdateCompany(ctx, c))

	got, err := st.GetCompany(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Manufacturing", got.Industry)
	require.NotNil(t, got.Latitude)
	assert.Equal(t, lat, *got.Latitude)
}

func TestContactRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	company := acmeCompany()
	require.NoError(t, st.CreateCompany(ctx, company))

	contact := &model.Contact{
		CompanyID:   company.ID,
		FirstName:   "Jane",
		LastName:    "Doe",
		FullName:    "Jane Doe",
		Email:       "jane@acme.com",
		IdentityKey: "email:jane@acme.com",
	}
	require.NoError(t, st.CreateContact(ctx, contact))
	assert.NotZero(t, contact.ID)

	got, err := st.GetContactByKey(ctx, company.ID, "email:jane@acme.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Jane Doe", got.FullName)

	// Duplicate identity key inside the company conflicts.
	dup := *contact
	dup.ID = 0
	err = st.CreateContact(ctx, &dup)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrDuplicateKey))

	list, err := st.ListContacts(ctx, company.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPostingRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	company := acmeCompany()
	require.NoError(t, st.CreateCompany(ctx, company))

	posting := &model.JobPosting{
		CompanyID:  company.ID,
		Title:      "Welder",
		Source:     "indeed",
		ExternalID: "123",
	}
	require.NoError(t, st.CreatePosting(ctx, posting))

	got, err := st.GetPostingByKey(ctx, "indeed", "123")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, posting.ID, got.ID)

	dup := &model.JobPosting{CompanyID: company.ID, Title: "Welder II", Source: "indeed", ExternalID: "123"}
	err = st.CreatePosting(ctx, dup)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrDuplicateKey))
}

func TestLeadIdentity(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	company := acmeCompany()
	require.NoError(t, st.CreateCompany(ctx, company))

	posting := &model.JobPosting{CompanyID: company.ID, Title: "Welder", Source: "indeed", ExternalID: "123"}
	require.NoError(t, st.CreatePosting(ctx, posting))

	withPosting := &model.Lead{CompanyID: company.ID, JobPostingID: &posting.ID, Status: model.LeadStatusNew}
	require.NoError(t, st.CreateLead(ctx, withPosting))

	// Same (company, posting) pair conflicts.
	dup := &model.Lead{CompanyID: company.ID, JobPostingID: &posting.ID, Status: model.LeadStatusNew}
	err := st.CreateLead(ctx, dup)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrDuplicateKey))

	// A postingless manual lead is a separate identity, unique per company.
	manual := &model.Lead{CompanyID: company.ID, Status: model.LeadStatusNew}
	require.NoError(t, st.CreateLead(ctx, manual))

	manualDup := &model.Lead{CompanyID: company.ID, Status: model.LeadStatusNew}
	err = st.CreateLead(ctx, manualDup)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrDuplicateKey))

	got, err := st.GetLeadByKey(ctx, company.ID, &posting.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, withPosting.ID, got.ID)

	gotManual, err := st.GetLeadByKey(ctx, company.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, gotManual)
	assert.Equal(t, manual.ID, gotManual.ID)
}

func TestLeadUpdateAndDetails(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	company := acmeCompany()
	require.NoError(t, st.CreateCompany(ctx, company))

	contact := &model.Contact{CompanyID: company.ID, FullName: "Jane Doe", IdentityKey: "email:jane@acme.com"}
	require.NoError(t, st.CreateContact(ctx, contact))

	lead := &model.Lead{CompanyID: company.ID, Status: model.LeadStatusNew}
	require.NoError(t, st.CreateLead(ctx, lead))

	lead.ContactID = &contact.ID
	lead.Tags = []string{"priority"}
	require.NoError(t, st.UpdateLead(ctx, lead))

	got, err := st.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ContactID)
	assert.Equal(t, contact.ID, *got.ContactID)
	assert.Equal(t, []string{"priority"}, got.Tags)

	details, err := st.GetLeadDetails(ctx, []int64{lead.ID, 9999})
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, lead.ID, details[0].Lead.ID)
	assert.Equal(t, company.ID, details[0].Company.ID)
	assert.Equal(t, "Acme Widget Works", details[0].Company.Name)
}

func TestReviewQueue(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	item := &ReviewItem{
		EntityType: model.CandidateCompany,
		Candidate:  model.Candidate{Type: model.CandidateCompany, CompanyName: "Acme Widget Works"},
		BestID:     5,
		RunnerUpID: 9,
		Score:      0.91,
	}
	require.NoError(t, st.EnqueueReview(ctx, item))

	items, err := st.ListReview(ctx, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, model.CandidateCompany, items[0].EntityType)
	assert.Equal(t, "Acme Widget Works", items[0].Candidate.CompanyName)
	assert.Equal(t, int64(5), items[0].BestID)
	assert.Equal(t, int64(9), items[0].RunnerUpID)
	assert.InDelta(t, 0.91, items[0].Score, 0.001)

	reviewID := items[0].ID
	got, err := st.GetReview(ctx, reviewID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Acme Widget Works", got.Candidate.CompanyName)
	assert.Equal(t, int64(5), got.BestID)

	require.NoError(t, st.DeleteReview(ctx, reviewID))
	items, err = st.ListReview(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, items)

	got, err = st.GetReview(ctx, reviewID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestReviewQueue_DeleteMissing(t *testing.T) {
	st := newTestStore(t)

	err := st.DeleteReview(context.Background(), 404)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestGeocodeCache(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	// Miss.
	pt, hit, err := st.GetCachedPoint(ctx, "123 main st|springfield|il|62701")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Nil(t, pt)

	// Positive entry.
	require.NoError(t, st.PutCachedPoint(ctx, "123 main st|springfield|il|62701", &model.GeoPoint{Latitude: 39.78, Longitude: -89.65}))
	pt, hit, err = st.GetCachedPoint(ctx, "123 main st|springfield|il|62701")
	require.NoError(t, err)
	assert.True(t, hit)
	require.NotNil(t, pt)
	assert.Equal(t, 39.78, pt.Latitude)

	// Negative entry: hit with no point.
	require.NoError(t, st.PutCachedPoint(ctx, "nowhere|nowhere|zz|00000", nil))
	pt, hit, err = st.GetCachedPoint(ctx, "nowhere|nowhere|zz|00000")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Nil(t, pt)

	// Re-put is idempotent.
	assert.NoError(t, st.PutCachedPoint(ctx, "123 main st|springfield|il|62701", &model.GeoPoint{Latitude: 39.78, Longitude: -89.65}))
}

func TestRoutePlanRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	dist1, dist2 := 0.0, 12.5
	eta1, eta2 := "9:00 AM", "9:55 AM"
	plan := &model.RoutePlan{
		ID:                "8c9e4a22-0000-0000-0000-000000000001",
		TotalDistance:     12.5,
		EstimatedDuration: 85,
		MapURL:            "https://www.google.com/maps/dir/?api=1",
		Stops: []model.RouteStop{
			{LeadID: 1, CompanyName: "Acme", Address: "123 Main St", Order: 0, DistanceFromPrevious: &dist1, EstimatedArrival: &eta1},
			{LeadID: 2, CompanyName: "Zenith", Address: "456 Oak Ave", Order: 1, DistanceFromPrevious: &dist2, EstimatedArrival: &eta2},
		},
	}
	require.NoError(t, st.SaveRoutePlan(ctx, plan))

	got, err := st.GetRoutePlan(ctx, plan.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.InDelta(t, 12.5, got.TotalDistance, 0.001)
	assert.Equal(t, 85, got.EstimatedDuration)
	require.Len(t, got.Stops, 2)
	assert.Equal(t, 0, got.Stops[0].Order)
	assert.Equal(t, "Zenith", got.Stops[1].CompanyName)
	require.NotNil(t, got.Stops[1].DistanceFromPrevious)
	assert.InDelta(t, 12.5, *got.Stops[1].DistanceFromPrevious, 0.001)

	missing, err := st.GetRoutePlan(ctx, "no-such-plan")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestGetStats(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	company := acmeCompany()
	require.NoError(t, st.CreateCompany(ctx, company))
	require.NoError(t, st.CreateContact(ctx, &model.Contact{CompanyID: company.ID, FullName: "Jane Doe", IdentityKey: "k"}))
	require.NoError(t, st.CreateLead(ctx, &model.Lead{CompanyID: company.ID, Status: model.LeadStatusNew}))

	stats, err := st.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Companies)
	assert.Equal(t, int64(1), stats.Contacts)
	assert.Equal(t, int64(0), stats.JobPostings)
	assert.Equal(t, int64(1), stats.Leads)
}
