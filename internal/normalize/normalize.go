// Package normalize maps each source's raw rows into canonical
// NormalizedRecords. One function per source shape; malformed optional fields
// degrade to absent values with a warning, never an error.
package normalize

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"kyclens/internal/domain"
	"kyclens/internal/reconcile/metrics"
	"kyclens/internal/source"
	"kyclens/internal/source/forms"
	"kyclens/internal/source/persona"
)

// Normalizer translates raw source rows. Logger and metrics may be nil.
type Normalizer struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(logger *slog.Logger, m *metrics.Metrics) *Normalizer {
	return &Normalizer{logger: logger, metrics: m}
}

// Inquiry normalizes one individual inquiry.
func (n *Normalizer) Inquiry(ctx context.Context, item persona.Item) domain.NormalizedRecord {
	attrs := item.Attributes
	name := domain.JoinNameParts(
		attrString(attrs, "name-first"),
		attrString(attrs, "name-middle"),
		attrString(attrs, "name-last"),
	)

	return domain.NormalizedRecord{
		Kind:         domain.KindIndividual,
		Email:        domain.CanonicalEmail(attrString(attrs, "email-address")),
		ChainAddress: domain.CanonicalAddress(fieldValue(attrs, "l-2-address")),
		DisplayName:  name,
		Status:       n.status(ctx, source.Inquiries, item.ID, inquiryStatuses, attrString(attrs, "status")),
		UpdatedAt:    n.timestamp(ctx, source.Inquiries, item.ID, attrString(attrs, "updated-at")),
		Provenance:   source.Inquiries + "/" + item.ID,
	}
}

// Case normalizes one business case.
func (n *Normalizer) Case(ctx context.Context, item persona.Item) domain.NormalizedRecord {
	attrs := item.Attributes
	name := attrString(attrs, "business-name")
	if name == "" {
		name = strings.TrimSpace(attrString(attrs, "name"))
	}

	return domain.NormalizedRecord{
		Kind:         domain.KindBusiness,
		Email:        domain.CanonicalEmail(attrString(attrs, "email-address")),
		ChainAddress: domain.CanonicalAddress(fieldValue(attrs, "l-2-address")),
		DisplayName:  name,
		Status:       n.status(ctx, source.Cases, item.ID, caseStatuses, attrString(attrs, "status")),
		UpdatedAt:    n.timestamp(ctx, source.Cases, item.ID, attrString(attrs, "updated-at")),
		Provenance:   source.Cases + "/" + item.ID,
	}
}

// LegacyPerson normalizes one row of the legacy persons snapshot.
func (n *Normalizer) LegacyPerson(ctx context.Context, row map[string]string) domain.NormalizedRecord {
	return domain.NormalizedRecord{
		Kind:         domain.KindLegacyPerson,
		Email:        domain.CanonicalEmail(row["email"]),
		ChainAddress: domain.CanonicalAddress(row["l2_address"]),
		DisplayName:  strings.TrimSpace(row["name"]),
		Status:       n.status(ctx, source.LegacyPersons, row["email"], legacyStatuses, row["status"]),
		UpdatedAt:    n.timestamp(ctx, source.LegacyPersons, row["email"], row["updated_at"]),
		Provenance:   source.LegacyPersons,
	}
}

// LegacyBusiness normalizes one row of the legacy businesses snapshot.
func (n *Normalizer) LegacyBusiness(ctx context.Context, row map[string]string) domain.NormalizedRecord {
	return domain.NormalizedRecord{
		Kind:         domain.KindLegacyBusiness,
		Email:        domain.CanonicalEmail(row["email"]),
		ChainAddress: domain.CanonicalAddress(row["l2_address"]),
		DisplayName:  strings.TrimSpace(row["business_name"]),
		Status:       n.status(ctx, source.LegacyBusinesses, row["email"], legacyStatuses, row["status"]),
		UpdatedAt:    n.timestamp(ctx, source.LegacyBusinesses, row["email"], row["updated_at"]),
		Provenance:   source.LegacyBusinesses,
	}
}

// FormSubmission normalizes one exported submission into the applicant's
// record and the submission's grant project. Submissions without a grant
// identifier are unresolvable and dropped (ok=false).
func (n *Normalizer) FormSubmission(ctx context.Context, sub forms.Submission) (domain.NormalizedRecord, domain.Project, bool) {
	roundID := strings.TrimSpace(sub.Hidden["round_id"])
	if roundID == "" {
		n.warn(ctx, source.Forms, "missing_round_id", "submission", sub.ID)
		return domain.NormalizedRecord{}, domain.Project{}, false
	}

	kycEmails := n.contactSlots(ctx, sub, "kyc_email_", domain.MaxKYCContacts)
	kybEmails := n.contactSlots(ctx, sub, "kyb_email_", domain.MaxKYBContacts)

	projectName := strings.TrimSpace(sub.Hidden["project_name"])
	if projectName == "" {
		if a, ok := sub.AnswerByField("project_name"); ok {
			projectName = strings.TrimSpace(a.Text)
		}
	}

	// The numeric answer is a boolean gate: nonzero means the applicant
	// started the business (KYB) section.
	status := domain.StatusNotStarted
	if a, ok := sub.AnswerByField("business_section"); ok && a.Number > 0 {
		status = domain.StatusIncomplete
	}

	var applicantEmail string
	if len(kycEmails) > 0 {
		applicantEmail = kycEmails[0]
	}

	record := domain.NormalizedRecord{
		Kind:         domain.KindFormSubmission,
		Email:        applicantEmail,
		ChainAddress: domain.CanonicalAddress(sub.Hidden["payout_address"]),
		DisplayName:  projectName,
		Status:       status,
		UpdatedAt:    sub.SubmittedAt.UTC(),
		Provenance:   source.Forms + "/" + sub.ID,
	}
	project := domain.Project{
		RoundID:       roundID,
		Name:          projectName,
		PayoutAddress: domain.CanonicalAddress(sub.Hidden["payout_address"]),
		KYCEmails:     kycEmails,
		KYBEmails:     kybEmails,
		SubmittedAt:   sub.SubmittedAt.UTC(),
	}
	return record, project, true
}

// GrantProject normalizes one row of the grant projects snapshot. Rows
// without a round identifier are dropped (ok=false).
func (n *Normalizer) GrantProject(ctx context.Context, row map[string]string) (domain.Project, bool) {
	roundID := strings.TrimSpace(row["round_id"])
	if roundID == "" {
		n.warn(ctx, source.Projects, "missing_round_id", "project", row["project_name"])
		return domain.Project{}, false
	}
	return domain.Project{
		RoundID:       roundID,
		Name:          strings.TrimSpace(row["project_name"]),
		PayoutAddress: domain.CanonicalAddress(row["payout_address"]),
		SubmittedAt:   n.timestamp(ctx, source.Projects, roundID, row["submitted_at"]),
	}, true
}

// contactSlots reads the fixed-width optional contact slots prefix0..prefixN.
// Emails beyond the slot bound are truncated, counted, and logged; they are
// never undefined behavior.
func (n *Normalizer) contactSlots(ctx context.Context, sub forms.Submission, prefix string, max int) []string {
	var emails []string
	for _, a := range sub.Answers {
		if !strings.HasPrefix(a.Field, prefix) {
			continue
		}
		value := a.Email
		if value == "" {
			value = a.Text
		}
		email := domain.CanonicalEmail(value)
		if email == "" {
			continue
		}
		if len(emails) >= max {
			n.metrics.IncrementContactTruncation()
			if n.logger != nil {
				n.logger.WarnContext(ctx, "contact slots exceeded, truncating",
					"submission", sub.ID,
					"slot", a.Field,
					"max", max,
				)
			}
			continue
		}
		emails = append(emails, email)
	}
	return emails
}

func (n *Normalizer) status(ctx context.Context, src, id string, table map[string]domain.Status, raw string) domain.Status {
	s, known := mapStatus(table, raw)
	if !known {
		n.metrics.IncrementUnknownStatus(src)
		if n.logger != nil {
			n.logger.WarnContext(ctx, "unknown raw status",
				"source", src,
				"record", id,
				"raw_status", raw,
			)
		}
	}
	return s
}

// timestamp parses a source timestamp into UTC. Absent values are fine
// (zero time, never wins recency); unparseable values warn and degrade the
// same way.
func (n *Normalizer) timestamp(ctx context.Context, src, id, raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	n.warn(ctx, src, "bad_timestamp", "record", id)
	return time.Time{}
}

func (n *Normalizer) warn(ctx context.Context, src, reason, idKey, id string) {
	n.metrics.IncrementWarning(src, reason)
	if n.logger != nil {
		n.logger.WarnContext(ctx, "normalization warning",
			"source", src,
			"reason", reason,
			idKey, id,
		)
	}
}

// attrString reads a string attribute, tolerating absent or non-string values.
func attrString(attrs map[string]any, key string) string {
	s, _ := attrs[key].(string)
	return s
}

// fieldValue digs attributes.fields.<name>.value out of the provider's nested
// custom-field shape.
func fieldValue(attrs map[string]any, name string) string {
	fields, _ := attrs["fields"].(map[string]any)
	field, _ := fields[name].(map[string]any)
	s, _ := field["value"].(string)
	return s
}
