// Package ingest resolves batches of raw candidates into the stored entity
// graph. A batch is idempotent: feeding the same records twice yields the
// same entity ids and no duplicate rows.
package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/plx30080-ctrl/LeadGen/internal/match"
	"github.com/plx30080-ctrl/LeadGen/internal/model"
	"github.com/plx30080-ctrl/LeadGen/internal/normalize"
	"github.com/plx30080-ctrl/LeadGen/internal/resilience"
	"github.com/plx30080-ctrl/LeadGen/internal/store"
)

// Resolver runs candidates through the matcher and persists the outcome.
// Failed candidates land in an in-memory dead letter queue so a later run
// can retry the transient ones.
type Resolver struct {
	store   store.Store
	matcher *match.Matcher

	mu  sync.Mutex
	dlq []resilience.DLQEntry
}

// NewResolver creates a Resolver.
func NewResolver(st store.Store, matcher *match.Matcher) *Resolver {
	return &Resolver{store: st, matcher: matcher}
}

// ResolveBatch processes candidates one at a time. A failure aborts only the
// affected candidate; the result reports created/merged/ambiguous/failed
// counts for the whole batch.
func (r *Resolver) ResolveBatch(ctx context.Context, candidates []model.Candidate) (*model.BatchResult, error) {
	result := &model.BatchResult{BatchID: uuid.NewString()}

	for i, c := range candidates {
		if err := r.resolveOne(ctx, c, result); err != nil {
			result.Failed++
			r.deadLetter(c, err)
			zap.L().Warn("ingest: candidate failed",
				zap.String("batch_id", result.BatchID),
				zap.Int("index", i),
				zap.String("type", string(c.Type)),
				zap.String("error_type", resilience.ClassifyError(err)),
				zap.Error(err),
			)
		}
	}

	zap.L().Info("ingest: batch resolved",
		zap.String("batch_id", result.BatchID),
		zap.Int("candidates", len(candidates)),
		zap.Int("created", len(result.Created)),
		zap.Int("merged", len(result.Merged)),
		zap.Int("ambiguous", result.Ambiguous),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// resolveOne resolves a single candidate: company first (every candidate
// carries company fields), then the type-specific entity, then the lead.
func (r *Resolver) resolveOne(ctx context.Context, c model.Candidate, result *model.BatchResult) error {
	companyCand := c
	companyCand.Type = model.CandidateCompany

	company, companyRes, err := r.resolveCompany(ctx, companyCand)
	if err != nil {
		return err
	}
	if companyRes.Status == model.MatchAmbiguous {
		result.Ambiguous++
		return r.store.EnqueueReview(ctx, &store.ReviewItem{
			EntityType: model.CandidateCompany,
			Candidate:  companyCand,
			BestID:     companyRes.MatchedID,
			RunnerUpID: companyRes.RunnerUpID,
			Score:      companyRes.Score,
		})
	}

	var contact *model.Contact
	var posting *model.JobPosting
	switch c.Type {
	case model.CandidateCompany:
		r.record(result, companyRes.Status, company.ID)
	case model.CandidateContact:
		var contactRes model.MatchResult
		contact, contactRes, err = r.resolveContact(ctx, company.ID, c)
		if err != nil {
			return err
		}
		if contactRes.Status == model.MatchAmbiguous {
			result.Ambiguous++
			return r.store.EnqueueReview(ctx, &store.ReviewItem{
				EntityType: model.CandidateContact,
				Candidate:  c,
				BestID:     contactRes.MatchedID,
				RunnerUpID: contactRes.RunnerUpID,
				Score:      contactRes.Score,
			})
		}
		r.record(result, contactRes.Status, contact.ID)
	case model.CandidateJobPosting:
		var postingRes model.MatchResult
		posting, postingRes, err = r.resolvePosting(ctx, company.ID, c)
		if err != nil {
			return err
		}
		r.record(result, postingRes.Status, posting.ID)
	default:
		return eris.Wrapf(model.ErrValidation, "ingest: unknown candidate type %q", c.Type)
	}

	lead, err := r.resolveLead(ctx, company.ID, contact, posting)
	if err != nil {
		return err
	}
	result.LeadIDs = append(result.LeadIDs, lead.ID)
	return nil
}

// resolveCompany matches against the store and either merge-fills the match
// or creates a new company. A unique-index conflict on create means another
// batch won the insert race, so the loser re-reads and treats it as a match.
func (r *Resolver) resolveCompany(ctx context.Context, c model.Candidate) (*model.Company, model.MatchResult, error) {
	existing, res, err := r.matcher.ResolveCompany(ctx, c)
	if err != nil {
		return nil, res, err
	}

	switch res.Status {
	case model.MatchExact, model.MatchFuzzy:
		if match.MergeFillCompany(existing, c) {
			if err := r.store.UpdateCompany(ctx, existing); err != nil {
				return nil, res, err
			}
		}
		return existing, res, nil
	case model.MatchAmbiguous:
		return nil, res, nil
	}

	company := &model.Company{
		Name:     c.CompanyName,
		NameKey:  match.NameKey(c.CompanyName),
		Domain:   domainOf(c.Website),
		Website:  c.Website,
		Industry: c.Industry,
		Phone:    c.Phone,
		Street:   c.Street,
		City:     c.City,
		State:    c.State,
		ZipCode:  c.ZipCode,
	}
	if err := r.store.CreateCompany(ctx, company); err != nil {
		if eris.Is(err, store.ErrDuplicateKey) {
			return r.retryCompanyAsMatch(ctx, c)
		}
		return nil, res, err
	}
	return company, res, nil
}

func (r *Resolver) retryCompanyAsMatch(ctx context.Context, c model.Candidate) (*model.Company, model.MatchResult, error) {
	key, err := match.CompanyKey(c.CompanyName, c.Website, c.ZipCode)
	if err != nil {
		return nil, model.MatchResult{}, err
	}
	existing, err := r.store.GetCompanyByKey(ctx, key)
	if err != nil {
		return nil, model.MatchResult{}, err
	}
	if existing == nil {
		return nil, model.MatchResult{}, eris.Wrapf(store.ErrDuplicateKey, "ingest: company key %q conflicted but is absent", key)
	}
	res := model.MatchResult{Status: model.MatchExact, MatchedID: existing.ID, Score: 1.0}
	if match.MergeFillCompany(existing, c) {
		if err := r.store.UpdateCompany(ctx, existing); err != nil {
			return nil, res, err
		}
	}
	return existing, res, nil
}

func (r *Resolver) resolveContact(ctx context.Context, companyID int64, c model.Candidate) (*model.Contact, model.MatchResult, error) {
	existing, res, err := r.matcher.ResolveContact(ctx, companyID, c)
	if err != nil {
		return nil, res, err
	}

	switch res.Status {
	case model.MatchExact, model.MatchFuzzy:
		if match.MergeFillContact(existing, c) {
			if err := r.store.UpdateContact(ctx, existing); err != nil {
				return nil, res, err
			}
		}
		return existing, res, nil
	case model.MatchAmbiguous:
		return nil, res, nil
	}

	key, err := match.ContactKey(companyID, c.FirstName, c.LastName, c.Email)
	if err != nil {
		return nil, res, err
	}
	contact := &model.Contact{
		CompanyID:   companyID,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		FullName:    fullName(c.FirstName, c.LastName),
		Title:       c.Title,
		Email:       c.Email,
		Phone:       c.Phone,
		IdentityKey: key,
		Source:      c.Source,
	}
	if err := r.store.CreateContact(ctx, contact); err != nil {
		if eris.Is(err, store.ErrDuplicateKey) {
			existing, lookupErr := r.store.GetContactByKey(ctx, companyID, key)
			if lookupErr != nil {
				return nil, res, lookupErr
			}
			if existing == nil {
				return nil, res, eris.Wrap(store.ErrDuplicateKey, "ingest: contact key conflicted but is absent")
			}
			return existing, model.MatchResult{Status: model.MatchExact, MatchedID: existing.ID, Score: 1.0}, nil
		}
		return nil, res, err
	}
	return contact, res, nil
}

func (r *Resolver) resolvePosting(ctx context.Context, companyID int64, c model.Candidate) (*model.JobPosting, model.MatchResult, error) {
	existing, res, err := r.matcher.ResolvePosting(ctx, c)
	if err != nil {
		return nil, res, err
	}
	if res.Status == model.MatchExact {
		if match.MergeFillPosting(existing, c) {
			if err := r.store.UpdatePosting(ctx, existing); err != nil {
				return nil, res, err
			}
		}
		return existing, res, nil
	}

	posting := &model.JobPosting{
		CompanyID:   companyID,
		Title:       c.JobTitle,
		Location:    c.Location,
		Source:      c.Source,
		ExternalID:  c.ExternalID,
		ExternalURL: c.ExternalURL,
	}
	if err := r.store.CreatePosting(ctx, posting); err != nil {
		if eris.Is(err, store.ErrDuplicateKey) {
			existing, lookupErr := r.store.GetPostingByKey(ctx, c.Source, c.ExternalID)
			if lookupErr != nil {
				return nil, res, lookupErr
			}
			if existing == nil {
				return nil, res, eris.Wrap(store.ErrDuplicateKey, "ingest: posting key conflicted but is absent")
			}
			return existing, model.MatchResult{Status: model.MatchExact, MatchedID: existing.ID, Score: 1.0}, nil
		}
		return nil, res, err
	}
	return posting, res, nil
}

// resolveLead finds or creates the lead for a resolved company and optional
// posting, attaching the contact if the lead has none.
func (r *Resolver) resolveLead(ctx context.Context, companyID int64, contact *model.Contact, posting *model.JobPosting) (*model.Lead, error) {
	var postingID *int64
	if posting != nil {
		postingID = &posting.ID
	}

	lead, err := r.store.GetLeadByKey(ctx, companyID, postingID)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		lead = &model.Lead{
			CompanyID:    companyID,
			JobPostingID: postingID,
			Status:       model.LeadStatusNew,
		}
		if contact != nil {
			lead.ContactID = &contact.ID
		}
		if err := r.store.CreateLead(ctx, lead); err != nil {
			if !eris.Is(err, store.ErrDuplicateKey) {
				return nil, err
			}
			lead, err = r.store.GetLeadByKey(ctx, companyID, postingID)
			if err != nil {
				return nil, err
			}
			if lead == nil {
				return nil, eris.Wrap(store.ErrDuplicateKey, "ingest: lead key conflicted but is absent")
			}
		} else {
			return lead, nil
		}
	}

	if contact != nil && lead.ContactID == nil {
		lead.ContactID = &contact.ID
		if err := r.store.UpdateLead(ctx, lead); err != nil {
			return nil, err
		}
	}
	return lead, nil
}

// ResolveReview applies a manual disambiguation decision: the chosen winner
// absorbs the held candidate through merge-fill and the item leaves the
// queue. A zero winner asks the resolver to decide on its own, which it
// still cannot do for a queued near-tie.
func (r *Resolver) ResolveReview(ctx context.Context, reviewID, winnerID int64) (int64, error) {
	item, err := r.store.GetReview(ctx, reviewID)
	if err != nil {
		return 0, err
	}
	if item == nil {
		return 0, eris.Wrapf(model.ErrNotFound, "ingest: review item %d", reviewID)
	}
	if winnerID == 0 {
		return 0, eris.Wrapf(model.ErrAmbiguousMatch,
			"ingest: review item %d needs an explicit winner (best %d, runner-up %d)",
			reviewID, item.BestID, item.RunnerUpID)
	}
	if winnerID != item.BestID && winnerID != item.RunnerUpID {
		return 0, eris.Wrapf(model.ErrValidation,
			"ingest: entity %d is not a candidate for review item %d", winnerID, reviewID)
	}

	switch item.EntityType {
	case model.CandidateCompany:
		company, err := r.store.GetCompany(ctx, winnerID)
		if err != nil {
			return 0, err
		}
		if company == nil {
			return 0, eris.Wrapf(model.ErrNotFound, "ingest: company %d", winnerID)
		}
		if match.MergeFillCompany(company, item.Candidate) {
			if err := r.store.UpdateCompany(ctx, company); err != nil {
				return 0, err
			}
		}
		if _, err := r.resolveLead(ctx, company.ID, nil, nil); err != nil {
			return 0, err
		}
	case model.CandidateContact:
		contact, err := r.store.GetContact(ctx, winnerID)
		if err != nil {
			return 0, err
		}
		if contact == nil {
			return 0, eris.Wrapf(model.ErrNotFound, "ingest: contact %d", winnerID)
		}
		if match.MergeFillContact(contact, item.Candidate) {
			if err := r.store.UpdateContact(ctx, contact); err != nil {
				return 0, err
			}
		}
		if _, err := r.resolveLead(ctx, contact.CompanyID, contact, nil); err != nil {
			return 0, err
		}
	default:
		return 0, eris.Wrapf(model.ErrValidation,
			"ingest: review item %d holds unexpected type %q", reviewID, item.EntityType)
	}

	if err := r.store.DeleteReview(ctx, reviewID); err != nil {
		return 0, err
	}
	zap.L().Info("ingest: review resolved",
		zap.Int64("review_id", reviewID),
		zap.String("type", string(item.EntityType)),
		zap.Int64("winner", winnerID),
	)
	return winnerID, nil
}

// RetryDeadLetters re-runs transient dead-letter entries whose retry budget
// remains. Entries that succeed leave the queue; entries that fail again
// have their retry count bumped.
func (r *Resolver) RetryDeadLetters(ctx context.Context) (*model.BatchResult, error) {
	r.mu.Lock()
	pending := r.dlq
	r.dlq = nil
	r.mu.Unlock()

	result := &model.BatchResult{BatchID: uuid.NewString()}
	var keep []resilience.DLQEntry
	now := time.Now().UTC()
	for _, e := range pending {
		if e.ErrorType != "transient" || !e.CanRetry() || now.Before(e.NextRetryAt) {
			keep = append(keep, e)
			continue
		}
		if err := r.resolveOne(ctx, e.Candidate, result); err != nil {
			result.Failed++
			e.RetryCount++
			e.Error = err.Error()
			e.ErrorType = resilience.ClassifyError(err)
			e.LastFailedAt = now
			e.NextRetryAt = now.Add(time.Duration(e.RetryCount) * time.Minute)
			keep = append(keep, e)
		}
	}

	r.mu.Lock()
	r.dlq = append(r.dlq, keep...)
	r.mu.Unlock()

	return result, nil
}

// DeadLetters returns a snapshot of the queue, optionally filtered.
func (r *Resolver) DeadLetters(filter resilience.DLQFilter) []resilience.DLQEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []resilience.DLQEntry
	for _, e := range r.dlq {
		if filter.ErrorType != "" && e.ErrorType != filter.ErrorType {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out
}

func (r *Resolver) deadLetter(c model.Candidate, err error) {
	now := time.Now().UTC()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dlq = append(r.dlq, resilience.DLQEntry{
		ID:           uuid.NewString(),
		Candidate:    c,
		Error:        err.Error(),
		ErrorType:    resilience.ClassifyError(err),
		MaxRetries:   3,
		NextRetryAt:  now,
		CreatedAt:    now,
		LastFailedAt: now,
	})
}

func (r *Resolver) record(result *model.BatchResult, status model.MatchStatus, id int64) {
	if status == model.MatchNew {
		result.Created = append(result.Created, id)
	} else {
		result.Merged = append(result.Merged, id)
	}
}

func domainOf(website string) string {
	return normalize.Domain(website)
}

func fullName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}
