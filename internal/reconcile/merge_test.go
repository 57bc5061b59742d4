package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kyclens/internal/domain"
)

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestMergeExcludesKeylessRecords(t *testing.T) {
	identities, gaps := Merge([]domain.NormalizedRecord{
		{Kind: domain.KindIndividual, DisplayName: "No Key At All"},
		{Kind: domain.KindIndividual, Email: "jane@x.com", Status: domain.StatusCleared},
	})

	assert.Equal(t, 1, gaps)
	require.Len(t, identities, 1)
	_, ok := identities["email:jane@x.com"]
	assert.True(t, ok, "no null-keyed identity may appear")
}

func TestMergeLastWriteWinsWithScalarFallback(t *testing.T) {
	// An older complete record and a newer record that carries only email
	// and status.
	identities, _ := Merge([]domain.NormalizedRecord{
		{
			Kind:        domain.KindIndividual,
			Email:       "jane@x.com",
			DisplayName: "Jane Doe",
			Status:      domain.StatusIncomplete,
			UpdatedAt:   ts("2025-01-01T00:00:00Z"),
			Provenance:  "legacy_persons",
		},
		{
			Kind:       domain.KindIndividual,
			Email:      "jane@x.com",
			Status:     domain.StatusCleared,
			UpdatedAt:  ts("2025-02-01T00:00:00Z"),
			Provenance: "inquiries/inq_1",
		},
	})

	id := identities["email:jane@x.com"]
	assert.Equal(t, domain.StatusCleared, id.Status)
	assert.Equal(t, ts("2025-02-01T00:00:00Z"), id.LastUpdated)
	assert.Equal(t, "Jane Doe", id.DisplayName, "older non-null name survives")
	assert.ElementsMatch(t, []string{"legacy_persons", "inquiries/inq_1"}, id.Sources)
}

func TestMergeNewerNullNeverErasesOlderValue(t *testing.T) {
	identities, _ := Merge([]domain.NormalizedRecord{
		{Kind: domain.KindIndividual, Email: "a@b.c", ChainAddress: "0xold", UpdatedAt: ts("2025-01-01T00:00:00Z")},
		{Kind: domain.KindIndividual, Email: "a@b.c", UpdatedAt: ts("2025-03-01T00:00:00Z")},
	})
	assert.Equal(t, "0xold", identities["email:a@b.c"].ChainAddress)
}

func TestMergeLastUpdatedIsMaxTimestamp(t *testing.T) {
	identities, _ := Merge([]domain.NormalizedRecord{
		{Kind: domain.KindIndividual, Email: "a@b.c", UpdatedAt: ts("2025-03-01T00:00:00Z")},
		{Kind: domain.KindIndividual, Email: "a@b.c", UpdatedAt: ts("2025-01-01T00:00:00Z")},
		{Kind: domain.KindIndividual, Email: "a@b.c", UpdatedAt: ts("2025-02-01T00:00:00Z")},
	})
	assert.Equal(t, ts("2025-03-01T00:00:00Z"), identities["email:a@b.c"].LastUpdated)
}

func TestMergeTimestampTieKeepsEarlierSourceOrder(t *testing.T) {
	when := ts("2025-02-01T00:00:00Z")
	identities, _ := Merge([]domain.NormalizedRecord{
		{Kind: domain.KindIndividual, Email: "a@b.c", Status: domain.StatusInReview, UpdatedAt: when, Provenance: "inquiries/1"},
		{Kind: domain.KindIndividual, Email: "a@b.c", Status: domain.StatusCleared, UpdatedAt: when, Provenance: "cases/2"},
	})
	assert.Equal(t, domain.StatusInReview, identities["email:a@b.c"].Status)
}

func TestMergeMissingTimestampNeverWins(t *testing.T) {
	identities, _ := Merge([]domain.NormalizedRecord{
		{Kind: domain.KindIndividual, Email: "a@b.c", Status: domain.StatusCleared, UpdatedAt: ts("2020-01-01T00:00:00Z")},
		{Kind: domain.KindIndividual, Email: "a@b.c", Status: domain.StatusRejected},
	})
	assert.Equal(t, domain.StatusCleared, identities["email:a@b.c"].Status)
}

func TestMergeBusinessesDoNotCollideWithPersons(t *testing.T) {
	identities, _ := Merge([]domain.NormalizedRecord{
		{Kind: domain.KindIndividual, Email: "shared@x.com", Status: domain.StatusCleared, UpdatedAt: ts("2025-01-01T00:00:00Z")},
		{Kind: domain.KindBusiness, Email: "shared@x.com", DisplayName: "Acme Labs", Status: domain.StatusInReview, UpdatedAt: ts("2025-01-02T00:00:00Z")},
		{Kind: domain.KindBusiness, Email: "shared@x.com", DisplayName: "Beta Corp", Status: domain.StatusRejected, UpdatedAt: ts("2025-01-03T00:00:00Z")},
	})

	require.Len(t, identities, 3, "two businesses sharing an email stay distinct")
	assert.Equal(t, domain.StatusCleared, identities["email:shared@x.com"].Status)
	assert.Equal(t, domain.StatusInReview, identities["biz:shared@x.com|acme labs"].Status)
	assert.Equal(t, domain.StatusRejected, identities["biz:shared@x.com|beta corp"].Status)
}

func TestMergeIsIdempotent(t *testing.T) {
	records := []domain.NormalizedRecord{
		{Kind: domain.KindIndividual, Email: "a@b.c", Status: domain.StatusCleared, UpdatedAt: ts("2025-02-01T00:00:00Z"), Provenance: "inquiries/1"},
		{Kind: domain.KindIndividual, Email: "a@b.c", Status: domain.StatusIncomplete, UpdatedAt: ts("2025-02-01T00:00:00Z"), Provenance: "legacy_persons"},
		{Kind: domain.KindIndividual, ChainAddress: "0x9", Status: domain.StatusInReview},
		{Kind: domain.KindBusiness, Email: "ops@acme.io", DisplayName: "Acme", Status: domain.StatusCleared},
	}

	first, gaps1 := Merge(records)
	second, gaps2 := Merge(records)

	assert.Equal(t, gaps1, gaps2)
	assert.Equal(t, first, second)
}

func TestApplyExpiration(t *testing.T) {
	now := ts("2025-06-01T00:00:00Z")
	identities := map[string]domain.Identity{
		"email:stale@x.com": {Status: domain.StatusCleared, LastUpdated: now.AddDate(0, 0, -400)},
		"email:fresh@x.com": {Status: domain.StatusCleared, LastUpdated: now.AddDate(0, 0, -10)},
		"email:rej@x.com":   {Status: domain.StatusRejected, LastUpdated: now.AddDate(0, 0, -400)},
	}

	out := ApplyExpiration(identities, now, DefaultClearedTTL)

	assert.Equal(t, domain.StatusExpired, out["email:stale@x.com"].Status)
	assert.Equal(t, domain.StatusCleared, out["email:fresh@x.com"].Status)
	assert.Equal(t, domain.StatusRejected, out["email:rej@x.com"].Status, "only cleared identities expire")

	// Input untouched.
	assert.Equal(t, domain.StatusCleared, identities["email:stale@x.com"].Status)
}
