package lead

import "errors"

var (
	// ErrNoEligibleProviders means the candidate filter came up empty; the
	// request stays unassigned and can be re-driven later.
	ErrNoEligibleProviders = errors.New("no eligible providers for request")
	// ErrInvalidTransition rejects a lifecycle action illegal for the
	// lead's current status. Nothing is mutated.
	ErrInvalidTransition = errors.New("invalid lead status transition")
	// ErrRequestTaken means another provider accepted first.
	ErrRequestTaken = errors.New("request already taken by another provider")
	// ErrLeadNotFound is returned for unknown lead IDs.
	ErrLeadNotFound = errors.New("lead not found")
	// ErrRequestNotFound is returned for unknown service request IDs.
	ErrRequestNotFound = errors.New("service request not found")
	// ErrWrongProvider rejects an action by a provider that does not own
	// the lead.
	ErrWrongProvider = errors.New("lead belongs to a different provider")
)
