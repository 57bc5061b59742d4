package domain

import (
	"strings"
	"time"
)

// EntityKind names the source shape a record was normalized from.
type EntityKind string

const (
	KindIndividual     EntityKind = "individual"
	KindBusiness       EntityKind = "business"
	KindLegacyPerson   EntityKind = "legacy_person"
	KindLegacyBusiness EntityKind = "legacy_business"
	KindFormSubmission EntityKind = "form_submission"
)

// Family partitions entity kinds for merging: business-like records use the
// compound resolution key, everything else resolves like a person.
type Family string

const (
	FamilyPerson   Family = "person"
	FamilyBusiness Family = "business"
)

func (k EntityKind) Family() Family {
	switch k {
	case KindBusiness, KindLegacyBusiness:
		return FamilyBusiness
	default:
		return FamilyPerson
	}
}

// NormalizedRecord is the canonical intermediate form, one per source row.
// Rebuilt in full on every refresh; never mutated after normalization.
type NormalizedRecord struct {
	Kind         EntityKind
	Email        string // canonical, "" when absent or invalid
	ChainAddress string // canonical, "" when absent or invalid
	DisplayName  string
	Status       Status
	// UpdatedAt is normalized to UTC. The zero value means the source had no
	// timestamp; it never wins a recency comparison.
	UpdatedAt  time.Time
	Provenance string // originating source id, diagnostics only
}

// Key derives the resolution key. Businesses key on (email, display name);
// persons key on email, falling back to chain address. A zero key marks the
// record unresolvable.
func (r NormalizedRecord) Key() ResolutionKey {
	if r.Kind.Family() == FamilyBusiness && r.Email != "" {
		return ResolutionKey{Kind: KeyCompound, Email: r.Email, Name: r.DisplayName}
	}
	if r.Email != "" {
		return ResolutionKey{Kind: KeyEmail, Email: r.Email}
	}
	if r.ChainAddress != "" {
		return ResolutionKey{Kind: KeyAddress, Address: r.ChainAddress}
	}
	return ResolutionKey{}
}

// JoinNameParts assembles a display name from optional parts with single
// spaces; missing parts contribute nothing.
func JoinNameParts(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
