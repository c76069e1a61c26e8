package match

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/plx30080-ctrl/LeadGen/internal/model"
	"github.com/plx30080-ctrl/LeadGen/internal/normalize"
)

// Default decision thresholds.
const (
	DefaultThreshold = 0.85
	DefaultTieMargin = 0.05
)

// CompanyIndex is the store surface the matcher needs for companies: an exact
// identity-key lookup and a coarse city/state candidate filter. The matcher
// never does a full-table fuzzy scan.
type CompanyIndex interface {
	GetCompanyByKey(ctx context.Context, key string) (*model.Company, error)
	SearchCompaniesByCity(ctx context.Context, city, state string, limit int) ([]model.Company, error)
}

// ContactIndex is the store surface for contacts, scoped to one company.
type ContactIndex interface {
	GetContactByKey(ctx context.Context, companyID int64, key string) (*model.Contact, error)
	ListContacts(ctx context.Context, companyID int64) ([]model.Contact, error)
}

// PostingIndex is the store surface for job postings.
type PostingIndex interface {
	GetPostingByKey(ctx context.Context, source, externalID string) (*model.JobPosting, error)
}

// Index combines the three lookup surfaces.
type Index interface {
	CompanyIndex
	ContactIndex
	PostingIndex
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithThreshold overrides the fuzzy-match acceptance threshold.
func WithThreshold(t float64) Option {
	return func(m *Matcher) { m.threshold = t }
}

// WithTieMargin overrides the near-tie margin that triggers AMBIGUOUS.
func WithTieMargin(margin float64) Option {
	return func(m *Matcher) { m.tieMargin = margin }
}

// WithCandidateLimit bounds the coarse-filtered candidate set.
func WithCandidateLimit(n int) Option {
	return func(m *Matcher) {
		if n > 0 {
			m.candidateLimit = n
		}
	}
}

// Matcher resolves candidates against the stored entity graph.
type Matcher struct {
	index          Index
	threshold      float64
	tieMargin      float64
	candidateLimit int
}

// New creates a Matcher over the given index.
func New(index Index, opts ...Option) *Matcher {
	m := &Matcher{
		index:          index,
		threshold:      DefaultThreshold,
		tieMargin:      DefaultTieMargin,
		candidateLimit: 25,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type scored struct {
	id    int64
	score float64
}

// decide applies the threshold and near-tie rules to a scored candidate set.
// Ties on score break toward the lower id so repeated runs are reproducible.
func (m *Matcher) decide(candidates []scored) model.MatchResult {
	if len(candidates) == 0 {
		return model.MatchResult{Status: model.MatchNew}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].id < candidates[j].id
	})

	best := candidates[0]
	if best.score < m.threshold {
		return model.MatchResult{Status: model.MatchNew, Score: best.score}
	}
	if len(candidates) > 1 {
		second := candidates[1]
		if second.score >= m.threshold && best.score-second.score < m.tieMargin {
			return model.MatchResult{
				Status:     model.MatchAmbiguous,
				MatchedID:  best.id,
				RunnerUpID: second.id,
				Score:      best.score,
			}
		}
	}
	return model.MatchResult{Status: model.MatchFuzzy, MatchedID: best.id, Score: best.score}
}

// ResolveCompany classifies a company candidate. On EXACT or FUZZY the stored
// company is returned so the caller can merge-fill and persist it.
func (m *Matcher) ResolveCompany(ctx context.Context, c model.Candidate) (*model.Company, model.MatchResult, error) {
	if err := ValidateCandidate(c); err != nil {
		return nil, model.MatchResult{}, err
	}

	key, err := CompanyKey(c.CompanyName, c.Website, c.ZipCode)
	if err != nil {
		return nil, model.MatchResult{}, err
	}
	existing, err := m.index.GetCompanyByKey(ctx, key)
	if err != nil {
		return nil, model.MatchResult{}, eris.Wrap(err, "match: company key lookup")
	}
	if existing != nil {
		zap.L().Debug("match: company exact",
			zap.String("key", key),
			zap.Int64("company_id", existing.ID),
		)
		return existing, model.MatchResult{Status: model.MatchExact, MatchedID: existing.ID, Score: 1.0}, nil
	}

	// Coarse filter: only companies in the same city/state are scored.
	pool, err := m.index.SearchCompaniesByCity(ctx, c.City, c.State, m.candidateLimit)
	if err != nil {
		return nil, model.MatchResult{}, eris.Wrap(err, "match: company candidate search")
	}

	byID := make(map[int64]*model.Company, len(pool))
	scores := make([]scored, 0, len(pool))
	for i := range pool {
		sc := CompanyScore(c.CompanyName, c.Website, c.Phone,
			pool[i].Name, pool[i].Domain, pool[i].Phone)
		byID[pool[i].ID] = &pool[i]
		scores = append(scores, scored{id: pool[i].ID, score: sc})
	}

	result := m.decide(scores)
	if result.Status == model.MatchFuzzy {
		zap.L().Debug("match: company fuzzy",
			zap.String("name", c.CompanyName),
			zap.Int64("company_id", result.MatchedID),
			zap.Float64("score", result.Score),
		)
		return byID[result.MatchedID], result, nil
	}
	if result.Status == model.MatchAmbiguous {
		zap.L().Info("match: company ambiguous, holding for review",
			zap.String("name", c.CompanyName),
			zap.Int64("best", result.MatchedID),
			zap.Int64("runner_up", result.RunnerUpID),
			zap.Float64("score", result.Score),
		)
	}
	return nil, result, nil
}

// ResolveContact classifies a contact candidate within an already-resolved
// company.
func (m *Matcher) ResolveContact(ctx context.Context, companyID int64, c model.Candidate) (*model.Contact, model.MatchResult, error) {
	if err := ValidateCandidate(c); err != nil {
		return nil, model.MatchResult{}, err
	}

	key, err := ContactKey(companyID, c.FirstName, c.LastName, c.Email)
	if err != nil {
		return nil, model.MatchResult{}, err
	}
	existing, err := m.index.GetContactByKey(ctx, companyID, key)
	if err != nil {
		return nil, model.MatchResult{}, eris.Wrap(err, "match: contact key lookup")
	}
	if existing != nil {
		return existing, model.MatchResult{Status: model.MatchExact, MatchedID: existing.ID, Score: 1.0}, nil
	}

	// Coarse filter: contacts at the same company only.
	pool, err := m.index.ListContacts(ctx, companyID)
	if err != nil {
		return nil, model.MatchResult{}, eris.Wrap(err, "match: contact candidate search")
	}

	byID := make(map[int64]*model.Contact, len(pool))
	scores := make([]scored, 0, len(pool))
	for i := range pool {
		sc := ContactScore(c.FirstName, c.LastName, c.Phone, pool[i].FullName, pool[i].Phone)
		byID[pool[i].ID] = &pool[i]
		scores = append(scores, scored{id: pool[i].ID, score: sc})
	}

	result := m.decide(scores)
	if result.Status == model.MatchFuzzy {
		return byID[result.MatchedID], result, nil
	}
	return nil, result, nil
}

// ResolvePosting classifies a job posting candidate. Postings carry an exact
// external identity, so the outcome is always EXACT or NEW.
func (m *Matcher) ResolvePosting(ctx context.Context, c model.Candidate) (*model.JobPosting, model.MatchResult, error) {
	if err := ValidateCandidate(c); err != nil {
		return nil, model.MatchResult{}, err
	}
	existing, err := m.index.GetPostingByKey(ctx, c.Source, c.ExternalID)
	if err != nil {
		return nil, model.MatchResult{}, eris.Wrap(err, "match: posting key lookup")
	}
	if existing != nil {
		return existing, model.MatchResult{Status: model.MatchExact, MatchedID: existing.ID, Score: 1.0}, nil
	}
	return nil, model.MatchResult{Status: model.MatchNew}, nil
}

// NameKey exposes the normalized company name used in the fallback identity
// key, for stores that maintain the (name_key, zip) unique index.
func NameKey(name string) string {
	return normalize.CompanyName(name)
}
