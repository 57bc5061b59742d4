package reconcile

import (
	"time"

	"kyclens/internal/domain"
)

// DefaultClearedTTL downgrades cleared identities that have not been touched
// in a year.
const DefaultClearedTTL = 365 * 24 * time.Hour

// ApplyExpiration rewrites cleared identities whose last update is older than
// now-ttl to expired. Pure post-merge pass: the input map is not mutated and
// contributing records are untouched.
func ApplyExpiration(identities map[string]domain.Identity, now time.Time, ttl time.Duration) map[string]domain.Identity {
	cutoff := now.Add(-ttl)
	out := make(map[string]domain.Identity, len(identities))
	for k, id := range identities {
		if id.Status == domain.StatusCleared && id.LastUpdated.Before(cutoff) {
			id.Status = domain.StatusExpired
		}
		out[k] = id
	}
	return out
}
