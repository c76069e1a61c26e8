package match

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plx30080-ctrl/LeadGen/internal/model"
)

func TestCompanyKey_DomainWins(t *testing.T) {
	key, err := CompanyKey("Acme Inc", "https://www.acme.com/about", "62701")
	require.NoError(t, err)
	assert.Equal(t, "domain:acme.com", key)
}

func TestCompanyKey_NameZipFallback(t *testing.T) {
	key, err := CompanyKey("Acme, Inc.", "", "62701")
	require.NoError(t, err)
	assert.Equal(t, "name:acme|62701", key)
}

func TestCompanyKey_SameAfterNormalization(t *testing.T) {
	a, err := CompanyKey("Acme Inc", "acme.com", "")
	require.NoError(t, err)
	b, err := CompanyKey("ACME Corporation", "https://www.acme.com", "")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCompanyKey_NeedsNameOrDomain(t *testing.T) {
	_, err := CompanyKey("", "", "62701")
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrValidation))
}

func TestContactKey_EmailWins(t *testing.T) {
	key, err := ContactKey(7, "Jane", "Doe", " Jane@Acme.COM ")
	require.NoError(t, err)
	assert.Equal(t, "email:jane@acme.com", key)
}

func TestContactKey_NameFallbackScopedToCompany(t *testing.T) {
	a, err := ContactKey(7, "Jane", "Doe", "")
	require.NoError(t, err)
	b, err := ContactKey(8, "Jane", "Doe", "")
	require.NoError(t, err)
	assert.Equal(t, "name:7|jane doe", a)
	assert.NotEqual(t, a, b)
}

func TestContactKey_NeedsNameOrEmail(t *testing.T) {
	_, err := ContactKey(7, "", "", "")
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrValidation))
}

func TestPostingKey(t *testing.T) {
	key, err := PostingKey("indeed", "123")
	require.NoError(t, err)
	assert.Equal(t, "indeed:123", key)

	_, err = PostingKey("indeed", "")
	assert.Error(t, err)
	_, err = PostingKey("", "123")
	assert.Error(t, err)
}

func TestValidateCandidate(t *testing.T) {
	tests := []struct {
		name    string
		cand    model.Candidate
		wantErr bool
	}{
		{"company with name", model.Candidate{Type: model.CandidateCompany, CompanyName: "Acme"}, false},
		{"company with domain only", model.Candidate{Type: model.CandidateCompany, Website: "acme.com"}, false},
		{"company empty", model.Candidate{Type: model.CandidateCompany}, true},
		{"contact with email only", model.Candidate{Type: model.CandidateContact, Email: "j@acme.com"}, false},
		{"contact with last name only", model.Candidate{Type: model.CandidateContact, LastName: "Doe"}, false},
		{"contact empty", model.Candidate{Type: model.CandidateContact}, true},
		{"posting complete", model.Candidate{Type: model.CandidateJobPosting, Source: "indeed", ExternalID: "1"}, false},
		{"posting missing external id", model.Candidate{Type: model.CandidateJobPosting, Source: "indeed"}, true},
		{"unknown type", model.Candidate{Type: "widget"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCandidate(tt.cand)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, eris.Is(err, model.ErrValidation))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
