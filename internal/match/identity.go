// Package match decides whether an incoming candidate is an existing entity,
// a fuzzy match, an ambiguous near-tie, or genuinely new.
package match

import (
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/plx30080-ctrl/LeadGen/internal/model"
	"github.com/plx30080-ctrl/LeadGen/internal/normalize"
)

// CompanyKey computes the identity key for a company candidate: the
// normalized domain when present, otherwise normalized name + zip.
func CompanyKey(name, website, zip string) (string, error) {
	if d := normalize.Domain(website); d != "" {
		return "domain:" + d, nil
	}
	n := normalize.CompanyName(name)
	if n == "" {
		return "", eris.Wrap(model.ErrValidation, "match: company needs a name or domain")
	}
	return fmt.Sprintf("name:%s|%s", n, zip), nil
}

// ContactKey computes the identity key for a contact scoped to a company:
// normalized email when present, otherwise company id + normalized full name.
func ContactKey(companyID int64, first, last, email string) (string, error) {
	if e := normalize.Email(email); e != "" {
		return "email:" + e, nil
	}
	n := normalize.PersonName(first, last)
	if n == "" {
		return "", eris.Wrap(model.ErrValidation, "match: contact needs a name or email")
	}
	return fmt.Sprintf("name:%d|%s", companyID, n), nil
}

// PostingKey computes the identity key for a job posting.
func PostingKey(source, externalID string) (string, error) {
	if source == "" || externalID == "" {
		return "", eris.Wrap(model.ErrValidation, "match: posting needs source and external_id")
	}
	return source + ":" + externalID, nil
}

// ValidateCandidate rejects candidates that cannot reach the matcher: missing
// both name and identity fields, or an unknown type.
func ValidateCandidate(c model.Candidate) error {
	switch c.Type {
	case model.CandidateCompany:
		if c.CompanyName == "" && normalize.Domain(c.Website) == "" {
			return eris.Wrap(model.ErrValidation, "match: company candidate has neither name nor domain")
		}
	case model.CandidateContact:
		if c.FirstName == "" && c.LastName == "" && normalize.Email(c.Email) == "" {
			return eris.Wrap(model.ErrValidation, "match: contact candidate has neither name nor email")
		}
	case model.CandidateJobPosting:
		if c.Source == "" || c.ExternalID == "" {
			return eris.Wrap(model.ErrValidation, "match: posting candidate missing source or external_id")
		}
	default:
		return eris.Wrapf(model.ErrValidation, "match: unknown candidate type %q", c.Type)
	}
	return nil
}
