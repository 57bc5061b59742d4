package reconcile

import (
	"sort"
	"time"

	"kyclens/internal/domain"
)

// Merge folds normalized records into exactly one Identity per distinct
// resolution key. Records lacking a key are excluded entirely; the second
// return is how many were dropped (resolution gaps).
//
// Person-like and business-like records are partitioned by construction: the
// key namespaces ("email:"/"addr:" vs "biz:") cannot collide, so a business
// and a person sharing an email never merge into one Identity.
//
// Determinism: each group is sorted by updated_at ascending with a stable
// sort, so equal timestamps keep the caller's source order. The fold then
// takes status and kind from a record only when its timestamp is strictly
// newer than the running maximum, which means timestamp ties keep the
// earlier-processed record's status. Scalar fields follow recency instead:
// any later non-empty value overwrites, and empty values never erase an
// earlier one, so the most recent record that actually has a field wins it.
func Merge(records []domain.NormalizedRecord) (map[string]domain.Identity, int) {
	type group struct {
		key  domain.ResolutionKey
		recs []domain.NormalizedRecord
	}

	groups := make(map[string]*group)
	var order []string
	gaps := 0

	for _, r := range records {
		key := r.Key()
		if key.IsZero() {
			gaps++
			continue
		}
		ks := key.String()
		g, ok := groups[ks]
		if !ok {
			g = &group{key: key}
			groups[ks] = g
			order = append(order, ks)
		}
		g.recs = append(g.recs, r)
	}

	out := make(map[string]domain.Identity, len(groups))
	for _, ks := range order {
		g := groups[ks]
		out[ks] = fold(g.key, g.recs)
	}
	return out, gaps
}

func fold(key domain.ResolutionKey, recs []domain.NormalizedRecord) domain.Identity {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].UpdatedAt.Before(recs[j].UpdatedAt)
	})

	id := domain.Identity{Key: key}
	var (
		maxTS      time.Time
		haveStatus bool
	)
	for _, r := range recs {
		if r.DisplayName != "" {
			id.DisplayName = r.DisplayName
		}
		if r.Email != "" {
			id.Email = r.Email
		}
		if r.ChainAddress != "" {
			id.ChainAddress = r.ChainAddress
		}
		id.Sources = appendUnique(id.Sources, r.Provenance)

		if !haveStatus || r.UpdatedAt.After(maxTS) {
			id.Status = r.Status
			id.Kind = r.Kind
			maxTS = r.UpdatedAt
			haveStatus = true
		}
	}
	id.LastUpdated = maxTS
	return id
}

func appendUnique(list []string, v string) []string {
	if v == "" {
		return list
	}
	for _, have := range list {
		if have == v {
			return list
		}
	}
	return append(list, v)
}
