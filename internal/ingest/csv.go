package ingest

import (
	"encoding/csv"
	"io"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/plx30080-ctrl/LeadGen/internal/model"
)

// ReadCandidatesCSV decodes an import file into candidates. The header row
// names the candidate fields; rows missing a type default to company, which
// matches what manual exports contain.
func ReadCandidatesCSV(r io.Reader) ([]model.Candidate, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	dec, err := csvutil.NewDecoder(cr)
	if err != nil {
		return nil, eris.Wrapf(model.ErrValidation, "ingest: read csv header: %v", err)
	}

	var out []model.Candidate
	for {
		var c model.Candidate
		if err := dec.Decode(&c); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrapf(model.ErrValidation, "ingest: decode csv row: %v", err)
		}
		if c.Type == "" {
			c.Type = model.CandidateCompany
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, eris.Wrap(model.ErrValidation, "ingest: csv has no rows")
	}
	return out, nil
}
