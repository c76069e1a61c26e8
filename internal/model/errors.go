package model

import "github.com/rotisserie/eris"

// Sentinel errors for the failure taxonomy. Callers classify with eris.Is and
// the HTTP layer maps each class to a status code.
var (
	// ErrValidation marks a malformed candidate or request, rejected before
	// resolution or optimization with no partial effect.
	ErrValidation = eris.New("validation failed")

	// ErrNotFound marks a lead or route id that no longer exists.
	ErrNotFound = eris.New("not found")

	// ErrGeocodeFailure marks an unresolvable address. It degrades a route by
	// excluding the stop; it is never fatal to the plan.
	ErrGeocodeFailure = eris.New("geocode failed")

	// ErrAmbiguousMatch marks a candidate the resolver cannot safely decide.
	// Such candidates are queued for review, never merged or duplicated.
	ErrAmbiguousMatch = eris.New("ambiguous match")

	// ErrExternalService marks an unreachable or rate-limited collaborator
	// after bounded retries.
	ErrExternalService = eris.New("external service unavailable")
)
