package model

// CandidateType names the entity a raw candidate resolves into.
type CandidateType string

// Candidate types accepted by the ingestion resolver.
const (
	CandidateCompany    CandidateType = "company"
	CandidateContact    CandidateType = "contact"
	CandidateJobPosting CandidateType = "job_posting"
)

// Candidate is one raw record from a search run or import, before resolution.
// It is ephemeral: scored against the store during a batch and then discarded.
type Candidate struct {
	Type CandidateType `json:"type" csv:"type"`

	// Company fields.
	CompanyName string `json:"company_name,omitempty" csv:"company_name"`
	Website     string `json:"website,omitempty" csv:"website"`
	Industry    string `json:"industry,omitempty" csv:"industry"`
	Street      string `json:"street,omitempty" csv:"street"`
	City        string `json:"city,omitempty" csv:"city"`
	State       string `json:"state,omitempty" csv:"state"`
	ZipCode     string `json:"zip_code,omitempty" csv:"zip_code"`
	Phone       string `json:"phone,omitempty" csv:"phone"`

	// Contact fields.
	FirstName string `json:"first_name,omitempty" csv:"first_name"`
	LastName  string `json:"last_name,omitempty" csv:"last_name"`
	Title     string `json:"title,omitempty" csv:"title"`
	Email     string `json:"email,omitempty" csv:"email"`

	// Job posting fields.
	JobTitle    string `json:"job_title,omitempty" csv:"job_title"`
	Location    string `json:"location,omitempty" csv:"location"`
	Source      string `json:"source,omitempty" csv:"source"`
	ExternalID  string `json:"external_id,omitempty" csv:"external_id"`
	ExternalURL string `json:"external_url,omitempty" csv:"external_url"`
}

// MatchStatus classifies a resolution outcome.
type MatchStatus string

// Match statuses.
const (
	MatchExact     MatchStatus = "EXACT"
	MatchFuzzy     MatchStatus = "FUZZY"
	MatchAmbiguous MatchStatus = "AMBIGUOUS"
	MatchNew       MatchStatus = "NEW"
)

// MatchResult is the matcher's verdict for one candidate.
type MatchResult struct {
	Status    MatchStatus `json:"status"`
	MatchedID int64       `json:"matched_id,omitempty"`
	Score     float64     `json:"score"`

	// RunnerUpID is set on AMBIGUOUS: the near-tied alternative the matcher
	// refused to choose between.
	RunnerUpID int64 `json:"runner_up_id,omitempty"`
}

// BatchResult summarizes one ingestion batch. Failures abort only the
// affected entity, so the counts always add up to the batch size.
type BatchResult struct {
	BatchID   string  `json:"batch_id"`
	Created   []int64 `json:"created"`
	Merged    []int64 `json:"merged"`
	Ambiguous int     `json:"ambiguous"`
	Failed    int     `json:"failed"`
	LeadIDs   []int64 `json:"lead_ids"`
}
