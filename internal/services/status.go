package services

import (
	"strings"

	"invoiceflow/internal/apperr"
	"invoiceflow/internal/models"
)

// statusTransitions is the single source of truth for legal status
// changes. paid and cancelled are terminal. User-requested transitions
// always pass through ValidateTransition; payment-derived transitions
// bypass it unless strict mode is enabled (see InvoiceService).
var statusTransitions = map[models.InvoiceStatus][]models.InvoiceStatus{
	models.StatusDraft:         {models.StatusSent, models.StatusCancelled},
	models.StatusSent:          {models.StatusViewed, models.StatusPaid, models.StatusPartiallyPaid, models.StatusOverdue, models.StatusCancelled},
	models.StatusViewed:        {models.StatusPaid, models.StatusPartiallyPaid, models.StatusOverdue, models.StatusCancelled},
	models.StatusPartiallyPaid: {models.StatusPaid, models.StatusOverdue, models.StatusCancelled},
	models.StatusOverdue:       {models.StatusPaid, models.StatusPartiallyPaid, models.StatusCancelled},
	models.StatusPaid:          {},
	models.StatusCancelled:     {},
}

// AllowedTransitions returns the legal target statuses from the given state.
func AllowedTransitions(from models.InvoiceStatus) []models.InvoiceStatus {
	return statusTransitions[from]
}

// IsTerminal reports whether a status has no outgoing transitions.
func IsTerminal(s models.InvoiceStatus) bool {
	allowed, ok := statusTransitions[s]
	return ok && len(allowed) == 0
}

// ValidateTransition checks a requested status change against the
// transition table. A same-status request is always a no-op success.
// Violations carry the current status, the requested status, and the
// allowed set for client display.
func ValidateTransition(from, to models.InvoiceStatus) error {
	if from == to {
		return nil
	}
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return apperr.Conflict("INVALID_STATUS_TRANSITION",
		"cannot change invoice status from "+string(from)+" to "+string(to)).
		WithDetail("current", string(from)).
		WithDetail("requested", string(to)).
		WithDetail("allowed", joinStatuses(statusTransitions[from]))
}

func joinStatuses(ss []models.InvoiceStatus) string {
	parts := make([]string, len(ss))
	for i, s := range ss {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

// DerivedStatus maps an aggregate payment state to the invoice status it
// implies. ok is false when the state implies no status change (unpaid).
func DerivedStatus(state PaymentState) (models.InvoiceStatus, bool) {
	switch state {
	case StateFullyPaid, StateOverpaid:
		return models.StatusPaid, true
	case StatePartiallyPaid:
		return models.StatusPartiallyPaid, true
	default:
		return "", false
	}
}
