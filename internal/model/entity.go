// Package model defines the lead graph entities shared across the resolver,
// the stores, and the route planner.
package model

import "time"

// LeadStatus tracks where a lead sits in the outreach funnel.
type LeadStatus string

// Lead statuses.
const (
	LeadStatusNew        LeadStatus = "new"
	LeadStatusInProgress LeadStatus = "in_progress"
	LeadStatusContacted  LeadStatus = "contacted"
	LeadStatusQualified  LeadStatus = "qualified"
	LeadStatusConverted  LeadStatus = "converted"
	LeadStatusClosedLost LeadStatus = "closed_lost"
)

// Company is the golden record for a business. At most one row exists per
// identity key (normalized domain, or normalized name + zip when no domain).
type Company struct {
	ID       int64  `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	NameKey  string `json:"-" db:"name_key"`
	Domain   string `json:"domain,omitempty" db:"domain"`
	Website  string `json:"website,omitempty" db:"website"`
	Industry string `json:"industry,omitempty" db:"industry"`
	Phone    string `json:"phone,omitempty" db:"phone"`

	Street  string `json:"street,omitempty" db:"street"`
	City    string `json:"city,omitempty" db:"city"`
	State   string `json:"state,omitempty" db:"state"`
	ZipCode string `json:"zip_code,omitempty" db:"zip_code"`
	Country string `json:"country,omitempty" db:"country"`

	Latitude  *float64 `json:"latitude,omitempty" db:"latitude"`
	Longitude *float64 `json:"longitude,omitempty" db:"longitude"`

	// Enrichment fields, empty until an enrichment collaborator fills them.
	EmployeeCount *int   `json:"employee_count,omitempty" db:"employee_count"`
	AnnualRevenue string `json:"annual_revenue,omitempty" db:"annual_revenue"`
	LinkedInURL   string `json:"linkedin_url,omitempty" db:"linkedin_url"`
	Description   string `json:"description,omitempty" db:"description"`

	LastEnrichedAt *time.Time `json:"last_enriched_at,omitempty" db:"last_enriched_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// Contact is a person at a company. Identity key is the normalized email, or
// the normalized full name scoped to the company when no email is known.
type Contact struct {
	ID        int64  `json:"id" db:"id"`
	CompanyID int64  `json:"company_id" db:"company_id"`
	FirstName string `json:"first_name,omitempty" db:"first_name"`
	LastName  string `json:"last_name,omitempty" db:"last_name"`
	FullName  string `json:"full_name" db:"full_name"`
	Title     string `json:"title,omitempty" db:"title"`
	Email     string `json:"email,omitempty" db:"email"`
	Phone     string `json:"phone,omitempty" db:"phone"`

	IdentityKey string `json:"-" db:"identity_key"`
	Source      string `json:"source,omitempty" db:"source"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// JobPosting is a scraped or imported job ad. Unique per (source, external_id)
// so re-scraping the same posting never creates a second row.
type JobPosting struct {
	ID        int64  `json:"id" db:"id"`
	CompanyID int64  `json:"company_id" db:"company_id"`
	Title     string `json:"title" db:"title"`
	Location  string `json:"location,omitempty" db:"location"`

	Source      string `json:"source" db:"source"`
	ExternalID  string `json:"external_id" db:"external_id"`
	ExternalURL string `json:"external_url,omitempty" db:"external_url"`

	PostedAt  *time.Time `json:"posted_at,omitempty" db:"posted_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// Lead ties a company to an optional contact and job posting. Identity key is
// (company_id, job_posting_id); postingless manual leads key on company alone.
type Lead struct {
	ID           int64      `json:"id" db:"id"`
	CompanyID    int64      `json:"company_id" db:"company_id"`
	ContactID    *int64     `json:"contact_id,omitempty" db:"contact_id"`
	JobPostingID *int64     `json:"job_posting_id,omitempty" db:"job_posting_id"`
	Status       LeadStatus `json:"status" db:"status"`
	Notes        string     `json:"notes,omitempty" db:"notes"`
	Tags         []string   `json:"tags,omitempty" db:"tags"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// GeoPoint is a cached geocoding fact for one normalized address. Once
// written it is never re-verified.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
