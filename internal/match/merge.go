package match

import "github.com/plx30080-ctrl/LeadGen/internal/model"

// Merge-fill: copy a value only into an empty destination field. Populated
// fields are never overwritten by automatic resolution, so enrichment races
// cannot clobber user-entered data. Enrichment collaborators must come
// through these functions rather than writing fields directly.

func fillString(dst *string, src string) bool {
	if *dst == "" && src != "" {
		*dst = src
		return true
	}
	return false
}

func fillIntPtr(dst **int, src *int) bool {
	if *dst == nil && src != nil {
		v := *src
		*dst = &v
		return true
	}
	return false
}

// MergeFillCompany fills empty fields on a stored company from a candidate.
// Reports whether anything changed.
func MergeFillCompany(dst *model.Company, c model.Candidate) bool {
	changed := false
	changed = fillString(&dst.Name, c.CompanyName) || changed
	changed = fillString(&dst.Website, c.Website) || changed
	changed = fillString(&dst.Industry, c.Industry) || changed
	changed = fillString(&dst.Phone, c.Phone) || changed
	changed = fillString(&dst.Street, c.Street) || changed
	changed = fillString(&dst.City, c.City) || changed
	changed = fillString(&dst.State, c.State) || changed
	changed = fillString(&dst.ZipCode, c.ZipCode) || changed
	return changed
}

// MergeFillCompanyRecord fills empty fields on dst from another company
// record. This is the path enrichment and discovery collaborators use when
// they add fields to an already-resolved company.
func MergeFillCompanyRecord(dst *model.Company, src model.Company) bool {
	changed := false
	changed = fillString(&dst.Name, src.Name) || changed
	changed = fillString(&dst.Domain, src.Domain) || changed
	changed = fillString(&dst.Website, src.Website) || changed
	changed = fillString(&dst.Industry, src.Industry) || changed
	changed = fillString(&dst.Phone, src.Phone) || changed
	changed = fillString(&dst.Street, src.Street) || changed
	changed = fillString(&dst.City, src.City) || changed
	changed = fillString(&dst.State, src.State) || changed
	changed = fillString(&dst.ZipCode, src.ZipCode) || changed
	changed = fillString(&dst.Country, src.Country) || changed
	changed = fillString(&dst.AnnualRevenue, src.AnnualRevenue) || changed
	changed = fillString(&dst.LinkedInURL, src.LinkedInURL) || changed
	changed = fillString(&dst.Description, src.Description) || changed
	changed = fillIntPtr(&dst.EmployeeCount, src.EmployeeCount) || changed
	// Coordinates move as a pair; a half-geocoded source fills nothing.
	if dst.Latitude == nil && src.Latitude != nil && src.Longitude != nil {
		lat, lon := *src.Latitude, *src.Longitude
		dst.Latitude, dst.Longitude = &lat, &lon
		changed = true
	}
	return changed
}

// MergeFillContact fills empty fields on a stored contact from a candidate.
func MergeFillContact(dst *model.Contact, c model.Candidate) bool {
	changed := false
	changed = fillString(&dst.FirstName, c.FirstName) || changed
	changed = fillString(&dst.LastName, c.LastName) || changed
	changed = fillString(&dst.Title, c.Title) || changed
	changed = fillString(&dst.Email, c.Email) || changed
	changed = fillString(&dst.Phone, c.Phone) || changed
	return changed
}

// MergeFillPosting fills empty fields on a stored posting from a candidate.
func MergeFillPosting(dst *model.JobPosting, c model.Candidate) bool {
	changed := false
	changed = fillString(&dst.Title, c.JobTitle) || changed
	changed = fillString(&dst.Location, c.Location) || changed
	changed = fillString(&dst.ExternalURL, c.ExternalURL) || changed
	return changed
}
