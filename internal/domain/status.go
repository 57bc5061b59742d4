package domain

// Status is the canonical verification status. It is a closed set ordered by
// progress through a verification flow, not by severity. Raw provider statuses
// are translated exactly once, in internal/normalize; nothing downstream
// branches on provider strings.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusIncomplete Status = "incomplete"
	StatusInReview   Status = "in_review"
	StatusCleared    Status = "cleared"
	StatusRejected   Status = "rejected"
	StatusExpired    Status = "expired"

	// StatusUnknown buckets raw statuses the taxonomy does not recognize.
	// They are flagged for operator attention rather than coerced to
	// not_started.
	StatusUnknown Status = "unknown"
)

// IsValid reports whether s is a member of the canonical set.
func (s Status) IsValid() bool {
	switch s {
	case StatusNotStarted, StatusIncomplete, StatusInReview,
		StatusCleared, StatusRejected, StatusExpired, StatusUnknown:
		return true
	}
	return false
}

// DisplayLabel renders a status for presentation. Individuals who have not
// finished their flow are shown as "retry" in operator tooling; the canonical
// enum never contains that value and merge logic never sees it.
func DisplayLabel(s Status, kind EntityKind) string {
	if kind.Family() == FamilyPerson && (s == StatusIncomplete || s == StatusNotStarted) {
		return "retry"
	}
	return string(s)
}
