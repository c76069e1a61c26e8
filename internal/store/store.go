// Package store persists the lead graph behind unique identity-key indexes
// so resolution stays idempotent across batches and processes.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/plx30080-ctrl/LeadGen/internal/model"
)

// ErrDuplicateKey is returned when an insert loses a check-then-act race on
// an identity key. Callers retry the lookup and treat the row as a match.
var ErrDuplicateKey = eris.New("store: duplicate identity key")

// ReviewItem is an ambiguous candidate held for manual disambiguation.
type ReviewItem struct {
	ID         int64               `json:"id" db:"id"`
	EntityType model.CandidateType `json:"entity_type" db:"entity_type"`
	Candidate  model.Candidate     `json:"candidate"`
	BestID     int64               `json:"best_id" db:"best_id"`
	RunnerUpID int64               `json:"runner_up_id" db:"runner_up_id"`
	Score      float64             `json:"score" db:"score"`
}

// Stats counts the stored entity graph, for the ingest stats endpoint.
type Stats struct {
	Companies   int64 `json:"companies"`
	Contacts    int64 `json:"contacts"`
	JobPostings int64 `json:"job_postings"`
	Leads       int64 `json:"leads"`
}

// LeadDetail joins a lead with its company, as route planning consumes it.
type LeadDetail struct {
	Lead    model.Lead    `json:"lead"`
	Company model.Company `json:"company"`
}

// Store is the persistence interface for the resolver and the route planner.
type Store interface {
	// Companies
	CreateCompany(ctx context.Context, c *model.Company) error
	UpdateCompany(ctx context.Context, c *model.Company) error
	GetCompany(ctx context.Context, id int64) (*model.Company, error)
	GetCompanyByKey(ctx context.Context, key string) (*model.Company, error)
	SearchCompaniesByCity(ctx context.Context, city, state string, limit int) ([]model.Company, error)

	// Contacts
	CreateContact(ctx context.Context, c *model.Contact) error
	UpdateContact(ctx context.Context, c *model.Contact) error
	GetContact(ctx context.Context, id int64) (*model.Contact, error)
	GetContactByKey(ctx context.Context, companyID int64, key string) (*model.Contact, error)
	ListContacts(ctx context.Context, companyID int64) ([]model.Contact, error)

	// Job postings
	CreatePosting(ctx context.Context, p *model.JobPosting) error
	UpdatePosting(ctx context.Context, p *model.JobPosting) error
	GetPostingByKey(ctx context.Context, source, externalID string) (*model.JobPosting, error)

	// Leads
	CreateLead(ctx context.Context, l *model.Lead) error
	UpdateLead(ctx context.Context, l *model.Lead) error
	GetLead(ctx context.Context, id int64) (*model.Lead, error)
	GetLeadByKey(ctx context.Context, companyID int64, jobPostingID *int64) (*model.Lead, error)
	GetLeadDetails(ctx context.Context, ids []int64) ([]LeadDetail, error)

	// Review queue
	EnqueueReview(ctx context.Context, item *ReviewItem) error
	ListReview(ctx context.Context, limit int) ([]ReviewItem, error)
	GetReview(ctx context.Context, id int64) (*ReviewItem, error)
	DeleteReview(ctx context.Context, id int64) error

	// Geocode cache. A cached row with a nil point is an explicit
	// unresolvable marker; hit reports whether any row existed.
	GetCachedPoint(ctx context.Context, addressKey string) (pt *model.GeoPoint, hit bool, err error)
	PutCachedPoint(ctx context.Context, addressKey string, pt *model.GeoPoint) error

	// Route plans, immutable once written.
	SaveRoutePlan(ctx context.Context, plan *model.RoutePlan) error
	GetRoutePlan(ctx context.Context, id string) (*model.RoutePlan, error)

	// Stats
	GetStats(ctx context.Context) (*Stats, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
