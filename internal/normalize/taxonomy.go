package normalize

import (
	"strings"

	"kyclens/internal/domain"
)

// Per-source status vocabularies, translated exactly once into the canonical
// enum. Raw statuses missing from a table land in the unknown bucket and are
// flagged; they are never coerced to not_started.

var inquiryStatuses = map[string]domain.Status{
	"approved":     domain.StatusCleared,
	"completed":    domain.StatusInReview,
	"needs_review": domain.StatusInReview,
	"declined":     domain.StatusRejected,
	"failed":       domain.StatusRejected,
	"created":      domain.StatusIncomplete,
	"pending":      domain.StatusIncomplete,
	"expired":      domain.StatusIncomplete,
}

var caseStatuses = map[string]domain.Status{
	"approved":         domain.StatusCleared,
	"ready for review": domain.StatusInReview,
	"declined":         domain.StatusRejected,
	"open":             domain.StatusIncomplete,
	"created":          domain.StatusIncomplete,
	"waiting":          domain.StatusIncomplete,
}

var legacyStatuses = map[string]domain.Status{
	"cleared":     domain.StatusCleared,
	"approved":    domain.StatusCleared,
	"pending":     domain.StatusIncomplete,
	"in progress": domain.StatusIncomplete,
	"in_review":   domain.StatusInReview,
	"review":      domain.StatusInReview,
	"rejected":    domain.StatusRejected,
	"declined":    domain.StatusRejected,
	"expired":     domain.StatusExpired,
	"not_started": domain.StatusNotStarted,
	"":            domain.StatusNotStarted,
}

// mapStatus translates a raw status. The second return reports whether the
// vocabulary recognized it.
func mapStatus(table map[string]domain.Status, raw string) (domain.Status, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if s, ok := table[key]; ok {
		return s, true
	}
	return domain.StatusUnknown, false
}
