// Package export renders the merged view as an xlsx workbook for operators
// who reconcile payouts in spreadsheets.
package export

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"kyclens/internal/domain"
)

const (
	identitiesSheet = "Identities"
	projectsSheet   = "Projects"
)

var identityHeader = []any{
	"Key", "Display Name", "Email", "Chain Address", "Status", "Shown As", "Last Updated", "Kind", "Sources",
}

var projectHeader = []any{
	"Round ID", "Project", "Payout Address", "KYC Contacts", "KYB Contacts", "Submitted At",
}

// Workbook builds a two-sheet workbook from the identity and project lists.
// Identities are expected pre-sorted; projects are ordered by round id here.
func Workbook(identities []domain.Identity, projects []domain.Project) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", identitiesSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(identitiesSheet, "A1", &identityHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, id := range identities {
		row := []any{
			id.Key.String(),
			id.DisplayName,
			id.Email,
			id.ChainAddress,
			string(id.Status),
			domain.DisplayLabel(id.Status, id.Kind),
			formatTime(id.LastUpdated),
			string(id.Kind),
			joinList(id.Sources),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("identity row %d: %w", i, err)
		}
		if err := f.SetSheetRow(identitiesSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("identity row %d: %w", i, err)
		}
	}

	if _, err := f.NewSheet(projectsSheet); err != nil {
		return nil, fmt.Errorf("add projects sheet: %w", err)
	}
	if err := f.SetSheetRow(projectsSheet, "A1", &projectHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	sorted := make([]domain.Project, len(projects))
	copy(sorted, projects)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].RoundID < sorted[j].RoundID })
	for i, p := range sorted {
		row := []any{
			p.RoundID,
			p.Name,
			p.PayoutAddress,
			joinList(p.KYCEmails),
			joinList(p.KYBEmails),
			formatTime(p.SubmittedAt),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("project row %d: %w", i, err)
		}
		if err := f.SetSheetRow(projectsSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("project row %d: %w", i, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func joinList(items []string) string {
	return strings.Join(items, ", ")
}
