package progress

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BerniceZTT/pmis_end/models"
)

var (
	testNow   = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	testActor = models.Actor{ID: "65f000000000000000000001", Name: "Site Engineer", Role: "JE"}
)

func newTestProject(t *testing.T, workValue, bill float64) *models.Project {
	t.Helper()
	p := &models.Project{
		ProjectID:           "PWD-2024-001",
		ProjectName:         "Village road resurfacing",
		WorkValue:           workValue,
		BillSubmittedAmount: bill,
	}
	require.NoError(t, Initialize(p, testNow))
	return p
}

func num(v float64) *float64 { return &v }

func testDoc(name string) models.FileRef {
	return models.FileRef{
		StoredName:   name,
		OriginalName: name,
		DownloadURL:  "/api/files/" + name,
		FileSize:     1024,
		MimeType:     "application/pdf",
		Category:     models.FileCategoryDocument,
		UploadedAt:   testNow,
	}
}

// cloneProject 深拷贝，用于比较拒绝前后的状态
func cloneProject(p *models.Project) models.Project {
	c := *p
	c.ProgressUpdates = slices.Clone(p.ProgressUpdates)
	c.FinancialProgressUpdates = slices.Clone(p.FinancialProgressUpdates)
	return c
}

func at(minutes int) time.Time {
	return testNow.Add(time.Duration(minutes) * time.Minute)
}

func mustProgress(t *testing.T, p *models.Project, value float64, docs ...models.FileRef) *models.ProgressLogEntry {
	t.Helper()
	entry, err := ApplyProgressUpdate(p, ProgressUpdate{
		ProposedProgress:    num(value),
		SupportingDocuments: docs,
		Actor:               testActor,
	}, at(len(p.ProgressUpdates)+1))
	require.NoError(t, err)
	return entry
}

func mustBill(t *testing.T, p *models.Project, amount float64, billNumber string, docs ...models.FileRef) *models.FinancialProgressLogEntry {
	t.Helper()
	entry, err := ApplyFinancialUpdate(p, FinancialUpdate{
		ProposedBillAmount:  num(amount),
		BillDetails:         models.BillDetails{BillNumber: billNumber},
		SupportingDocuments: docs,
		Actor:               testActor,
	}, at(len(p.FinancialProgressUpdates)+1))
	require.NoError(t, err)
	return entry
}
