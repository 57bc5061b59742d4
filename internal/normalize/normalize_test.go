package normalize

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kyclens/internal/domain"
	"kyclens/internal/reconcile/metrics"
	"kyclens/internal/source/forms"
	"kyclens/internal/source/persona"
)

func newNormalizer() *Normalizer {
	return New(nil, metrics.NewWith(prometheus.NewRegistry()))
}

func TestInquiry(t *testing.T) {
	n := newNormalizer()
	ctx := context.Background()

	t.Run("full record", func(t *testing.T) {
		rec := n.Inquiry(ctx, persona.Item{
			ID: "inq_1",
			Attributes: map[string]any{
				"name-first":    "Jane",
				"name-middle":   "",
				"name-last":     "Doe",
				"email-address": "Jane@X.com",
				"status":        "approved",
				"updated-at":    "2025-02-01T12:00:00Z",
				"fields": map[string]any{
					"l-2-address": map[string]any{"value": "0xABC"},
				},
			},
		})

		assert.Equal(t, domain.KindIndividual, rec.Kind)
		assert.Equal(t, "Jane Doe", rec.DisplayName)
		assert.Equal(t, "jane@x.com", rec.Email)
		assert.Equal(t, "0xabc", rec.ChainAddress)
		assert.Equal(t, domain.StatusCleared, rec.Status)
		assert.Equal(t, time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC), rec.UpdatedAt)
		assert.Equal(t, "inquiries/inq_1", rec.Provenance)
	})

	t.Run("malformed fields degrade to absent", func(t *testing.T) {
		rec := n.Inquiry(ctx, persona.Item{
			ID: "inq_2",
			Attributes: map[string]any{
				"email-address": "not-an-email",
				"status":        "pending",
				"fields":        "oops, not a map",
			},
		})

		assert.Empty(t, rec.Email)
		assert.Empty(t, rec.ChainAddress)
		assert.Empty(t, rec.DisplayName)
		assert.Equal(t, domain.StatusIncomplete, rec.Status)
		assert.True(t, rec.UpdatedAt.IsZero())
	})

	t.Run("unknown status lands in unknown bucket", func(t *testing.T) {
		rec := n.Inquiry(ctx, persona.Item{
			ID:         "inq_3",
			Attributes: map[string]any{"status": "suspended_by_ops"},
		})
		assert.Equal(t, domain.StatusUnknown, rec.Status)
	})
}

func TestCase(t *testing.T) {
	n := newNormalizer()
	rec := n.Case(context.Background(), persona.Item{
		ID: "case_1",
		Attributes: map[string]any{
			"business-name": "Acme Labs",
			"email-address": "ops@acme.io",
			"status":        "Ready for Review",
			"updated-at":    "2025-01-15T09:30:00Z",
		},
	})

	assert.Equal(t, domain.KindBusiness, rec.Kind)
	assert.Equal(t, "Acme Labs", rec.DisplayName)
	assert.Equal(t, domain.StatusInReview, rec.Status)
	assert.Equal(t, "biz:ops@acme.io|acme labs", rec.Key().String())
}

func TestLegacyRows(t *testing.T) {
	n := newNormalizer()
	ctx := context.Background()

	t.Run("person", func(t *testing.T) {
		rec := n.LegacyPerson(ctx, map[string]string{
			"name":       "Old Client",
			"email":      "old@client.org",
			"l2_address": "0xDEF",
			"status":     "Approved",
			"updated_at": "2023-06-01",
		})
		assert.Equal(t, domain.KindLegacyPerson, rec.Kind)
		assert.Equal(t, domain.StatusCleared, rec.Status)
		assert.Equal(t, "0xdef", rec.ChainAddress)
		assert.Equal(t, 2023, rec.UpdatedAt.Year())
	})

	t.Run("business with empty status is not started", func(t *testing.T) {
		rec := n.LegacyBusiness(ctx, map[string]string{
			"business_name": "Legacy Corp",
			"email":         "ar@legacy.corp",
		})
		assert.Equal(t, domain.KindLegacyBusiness, rec.Kind)
		assert.Equal(t, domain.StatusNotStarted, rec.Status)
		assert.True(t, rec.UpdatedAt.IsZero())
	})

	t.Run("space-separated timestamp parses", func(t *testing.T) {
		rec := n.LegacyPerson(ctx, map[string]string{
			"email":      "a@b.c",
			"updated_at": "2024-02-03 04:05:06",
		})
		assert.Equal(t, time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC), rec.UpdatedAt)
	})
}

func TestFormSubmission(t *testing.T) {
	n := newNormalizer()
	ctx := context.Background()
	submitted := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("submission with round id", func(t *testing.T) {
		rec, project, ok := n.FormSubmission(ctx, forms.Submission{
			ID:          "sub_1",
			SubmittedAt: submitted,
			Hidden: map[string]string{
				"round_id":       "gr-7",
				"project_name":   "Bridge Tooling",
				"payout_address": "0xFEED",
			},
			Answers: []forms.Answer{
				{Field: "kyc_email_0", Type: "email", Email: "Jane@X.com"},
				{Field: "kyc_email_1", Type: "email", Email: "bob@x.com"},
				{Field: "kyb_email_0", Type: "email", Email: "ops@acme.io"},
				{Field: "business_section", Type: "number", Number: 1},
			},
		})
		require.True(t, ok)

		assert.Equal(t, domain.KindFormSubmission, rec.Kind)
		assert.Equal(t, "jane@x.com", rec.Email)
		assert.Equal(t, "0xfeed", rec.ChainAddress)
		assert.Equal(t, domain.StatusIncomplete, rec.Status, "business section started")

		assert.Equal(t, "gr-7", project.RoundID)
		assert.Equal(t, []string{"jane@x.com", "bob@x.com"}, project.KYCEmails)
		assert.Equal(t, []string{"ops@acme.io"}, project.KYBEmails)
	})

	t.Run("gate off means not started", func(t *testing.T) {
		rec, _, ok := n.FormSubmission(ctx, forms.Submission{
			ID:          "sub_2",
			SubmittedAt: submitted,
			Hidden:      map[string]string{"round_id": "gr-7"},
			Answers: []forms.Answer{
				{Field: "kyc_email_0", Type: "email", Email: "solo@x.com"},
				{Field: "business_section", Type: "number", Number: 0},
			},
		})
		require.True(t, ok)
		assert.Equal(t, domain.StatusNotStarted, rec.Status)
	})

	t.Run("missing round id drops submission", func(t *testing.T) {
		_, _, ok := n.FormSubmission(ctx, forms.Submission{
			ID:          "sub_3",
			SubmittedAt: submitted,
			Answers:     []forms.Answer{{Field: "kyc_email_0", Email: "x@y.z"}},
		})
		assert.False(t, ok)
	})

	t.Run("contact overflow truncates", func(t *testing.T) {
		answers := []forms.Answer{}
		for i := 0; i < domain.MaxKYCContacts+3; i++ {
			answers = append(answers, forms.Answer{
				Field: fmt.Sprintf("kyc_email_%d", i),
				Email: fmt.Sprintf("c%d@x.com", i),
			})
		}
		_, project, ok := n.FormSubmission(ctx, forms.Submission{
			ID:          "sub_4",
			SubmittedAt: submitted,
			Hidden:      map[string]string{"round_id": "gr-8"},
			Answers:     answers,
		})
		require.True(t, ok)
		assert.Len(t, project.KYCEmails, domain.MaxKYCContacts)
		assert.Equal(t, "c0@x.com", project.KYCEmails[0])
	})

	t.Run("invalid slot emails are skipped", func(t *testing.T) {
		_, project, ok := n.FormSubmission(ctx, forms.Submission{
			ID:          "sub_5",
			SubmittedAt: submitted,
			Hidden:      map[string]string{"round_id": "gr-9"},
			Answers: []forms.Answer{
				{Field: "kyc_email_0", Text: "no-at-sign"},
				{Field: "kyc_email_1", Email: "good@x.com"},
			},
		})
		require.True(t, ok)
		assert.Equal(t, []string{"good@x.com"}, project.KYCEmails)
	})
}

func TestGrantProject(t *testing.T) {
	n := newNormalizer()
	ctx := context.Background()

	t.Run("row with round id", func(t *testing.T) {
		p, ok := n.GrantProject(ctx, map[string]string{
			"round_id":       "gr-7",
			"project_name":   "Bridge Tooling",
			"payout_address": "0xFEED",
			"submitted_at":   "2025-02-20T00:00:00Z",
		})
		require.True(t, ok)
		assert.Equal(t, "gr-7", p.RoundID)
		assert.Equal(t, "0xfeed", p.PayoutAddress)
	})

	t.Run("row without round id is dropped", func(t *testing.T) {
		_, ok := n.GrantProject(ctx, map[string]string{"project_name": "Orphan"})
		assert.False(t, ok)
	})
}

func TestMapStatusTables(t *testing.T) {
	cases := []struct {
		table map[string]domain.Status
		raw   string
		want  domain.Status
		known bool
	}{
		{inquiryStatuses, "approved", domain.StatusCleared, true},
		{inquiryStatuses, "Pending", domain.StatusIncomplete, true},
		{inquiryStatuses, "expired", domain.StatusIncomplete, true},
		{inquiryStatuses, "declined", domain.StatusRejected, true},
		{inquiryStatuses, "completed", domain.StatusInReview, true},
		{inquiryStatuses, "whatever", domain.StatusUnknown, false},
		{caseStatuses, "Ready for Review", domain.StatusInReview, true},
		{caseStatuses, "approved", domain.StatusCleared, true},
		{caseStatuses, "open", domain.StatusIncomplete, true},
		{legacyStatuses, "", domain.StatusNotStarted, true},
		{legacyStatuses, "Expired", domain.StatusExpired, true},
		{legacyStatuses, "banana", domain.StatusUnknown, false},
	}
	for _, tc := range cases {
		got, known := mapStatus(tc.table, tc.raw)
		assert.Equal(t, tc.want, got, "raw %q", tc.raw)
		assert.Equal(t, tc.known, known, "raw %q", tc.raw)
	}
}
