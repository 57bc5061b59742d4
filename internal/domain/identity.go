package domain

import "time"

// Identity is the merged, canonical status record for one resolution key.
// Exactly one Identity exists per distinct non-empty key.
type Identity struct {
	Key          ResolutionKey
	DisplayName  string
	Email        string
	ChainAddress string
	Status       Status
	// LastUpdated is the maximum UpdatedAt among all contributing records.
	LastUpdated time.Time
	Kind        EntityKind
	// Sources lists the provenance of contributing records, diagnostics only.
	Sources []string
}
