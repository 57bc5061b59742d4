package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"kyclens/internal/domain"
)

func TestWorkbookRoundTrip(t *testing.T) {
	updated := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	identities := []domain.Identity{
		{
			Key:         domain.ResolutionKey{Kind: domain.KeyEmail, Email: "jane@x.com"},
			DisplayName: "Jane Doe",
			Email:       "jane@x.com",
			Status:      domain.StatusIncomplete,
			LastUpdated: updated,
			Kind:        domain.KindIndividual,
			Sources:     []string{"inquiries/inq_1", "legacy_persons"},
		},
		{
			Key:         domain.ResolutionKey{Kind: domain.KeyCompound, Email: "ops@acme.io", Name: "Acme Labs"},
			DisplayName: "Acme Labs",
			Email:       "ops@acme.io",
			Status:      domain.StatusIncomplete,
			Kind:        domain.KindBusiness,
		},
	}
	projects := []domain.Project{
		{RoundID: "r2", Name: "Later Fund"},
		{RoundID: "r1", Name: "Widget Fund", KYCEmails: []string{"jane@x.com"}},
	}

	data, err := Workbook(identities, projects)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Identities")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Key", rows[0][0])

	assert.Equal(t, "email:jane@x.com", rows[1][0])
	assert.Equal(t, "incomplete", rows[1][4])
	assert.Equal(t, "retry", rows[1][5], "incomplete individuals display as retry")
	assert.Equal(t, "2025-02-01T00:00:00Z", rows[1][6])
	assert.Equal(t, "inquiries/inq_1, legacy_persons", rows[1][8])

	assert.Equal(t, "biz:ops@acme.io|acme labs", rows[2][0])
	assert.Equal(t, "incomplete", rows[2][5], "businesses never display as retry")

	prows, err := f.GetRows("Projects")
	require.NoError(t, err)
	require.Len(t, prows, 3)
	assert.Equal(t, "r1", prows[1][0], "projects ordered by round id")
	assert.Equal(t, "r2", prows[2][0])
}

func TestWorkbookEmptyView(t *testing.T) {
	data, err := Workbook(nil, nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Identities")
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
