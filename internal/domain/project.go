package domain

import "time"

// Contact slot limits match the source form's fixed optional slots
// (kyc_email_0..9, kyb_email_0..4). Overflow is truncated, never undefined.
const (
	MaxKYCContacts = 10
	MaxKYBContacts = 5
)

// Project is a grant-funded project within a funding round, carrying the
// contact emails whose verification gates the round's payout.
type Project struct {
	RoundID       string
	Name          string
	PayoutAddress string
	KYCEmails     []string
	KYBEmails     []string
	SubmittedAt   time.Time
}

// RollupStatus is the aggregate KYC/KYB state of a round's contacts:
// cleared iff every contact cleared, rejected if any contact was rejected,
// incomplete otherwise. Contacts with no matching Identity count as
// not_started, so a round with an unmatched contact can never be cleared.
func RollupStatus(statuses []Status) Status {
	if len(statuses) == 0 {
		return StatusIncomplete
	}
	allCleared := true
	for _, s := range statuses {
		if s == StatusRejected {
			return StatusRejected
		}
		if s != StatusCleared {
			allCleared = false
		}
	}
	if allCleared {
		return StatusCleared
	}
	return StatusIncomplete
}
