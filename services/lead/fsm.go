package lead

import "fixify/models"

// transitions is the lead state machine. A lead only ever moves along these
// edges; conditional repository updates enforce the same edges at write time.
var transitions = map[string]map[string]struct{}{
	models.LeadStatusCreated: {
		models.LeadStatusNotified:  {},
		models.LeadStatusCancelled: {},
	},
	models.LeadStatusNotified: {
		models.LeadStatusViewed:    {},
		models.LeadStatusCancelled: {},
	},
	models.LeadStatusViewed: {
		models.LeadStatusAccepted:  {},
		models.LeadStatusDeclined:  {},
		models.LeadStatusCancelled: {},
	},
	models.LeadStatusAccepted: {
		models.LeadStatusInProgress: {},
		models.LeadStatusCancelled:  {},
	},
	models.LeadStatusInProgress: {
		models.LeadStatusCompleted: {},
		models.LeadStatusCancelled: {},
	},
	models.LeadStatusCompleted: {
		models.LeadStatusApproved:  {},
		models.LeadStatusCancelled: {},
	},
	models.LeadStatusApproved: {
		models.LeadStatusClosed:    {},
		models.LeadStatusCancelled: {},
	},
	models.LeadStatusDeclined:  {},
	models.LeadStatusClosed:    {},
	models.LeadStatusCancelled: {},
}

// CanTransition reports whether a lead may move from one status to another.
func CanTransition(from, to string) bool {
	allowed, ok := transitions[from]
	if !ok {
		return false
	}
	_, ok = allowed[to]
	return ok
}

// IsTerminal reports whether the status admits no further transitions.
func IsTerminal(status string) bool {
	return len(transitions[status]) == 0
}
