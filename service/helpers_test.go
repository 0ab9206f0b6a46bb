package service

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BerniceZTT/pmis_end/models"
	"github.com/BerniceZTT/pmis_end/progress"
	"github.com/BerniceZTT/pmis_end/repository/repotest"
	"github.com/BerniceZTT/pmis_end/utils"
)

var (
	testNow   = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	engineer  = models.Actor{ID: "65f000000000000000000001", Name: "Site Engineer", Role: "JE"}
	adminUser = models.Actor{ID: "65f000000000000000000099", Name: "Administrator", Role: "ADMIN"}
)

const maxUploadBytes = 1 << 20

type fixture struct {
	store    *repotest.Store
	files    *repotest.FileStore
	evidence *EvidenceService
	progress *ProgressService
	projects *ProjectService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repotest.NewStore()
	files := repotest.NewFileStore()
	evidence := NewEvidenceService(files, maxUploadBytes, 5)
	return &fixture{
		store:    store,
		files:    files,
		evidence: evidence,
		progress: NewProgressService(store, evidence, 3, 20),
		projects: NewProjectService(store),
	}
}

// seedProject 写入一个已初始化的项目
func (f *fixture) seedProject(t *testing.T, projectID string, workValue, bill float64) *models.Project {
	t.Helper()
	p := &models.Project{
		ProjectID:           projectID,
		ProjectName:         "Village road resurfacing",
		District:            "North",
		Department:          "PWD",
		ContractorName:      "Acme Builders",
		WorkValue:           workValue,
		BillSubmittedAmount: bill,
	}
	require.NoError(t, progress.Initialize(p, testNow))
	f.store.Put(p)
	return p
}

func num(v float64) *float64 { return &v }

func pdfUpload(name string) Upload {
	return upload(name, "application/pdf", []byte("%PDF-1.4 test"))
}

func upload(name, mimeType string, data []byte) Upload {
	return Upload{
		FileName: name,
		MimeType: mimeType,
		Size:     int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func requireReason(t *testing.T, err error, reason progress.Reason) {
	t.Helper()
	require.Error(t, err)
	require.True(t, progress.IsRejection(err), "expected rejection, got %v", err)
	require.Equal(t, reason, progress.ReasonOf(err))
}

func requireStatus(t *testing.T, err error, status int) *utils.ApiError {
	t.Helper()
	require.Error(t, err)
	var apiErr *utils.ApiError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, status, apiErr.StatusCode)
	return apiErr
}
