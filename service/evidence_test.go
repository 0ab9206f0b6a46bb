package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerniceZTT/pmis_end/repository/repotest"
	"github.com/BerniceZTT/pmis_end/utils"
)

func TestEvidenceValidate(t *testing.T) {
	svc := NewEvidenceService(repotest.NewFileStore(), maxUploadBytes, 2)

	tests := []struct {
		name    string
		uploads []Upload
		wantErr bool
	}{
		{name: "no files", uploads: nil},
		{name: "pdf and png", uploads: []Upload{pdfUpload("a.pdf"), upload("b.png", "image/png", []byte{1})}},
		{name: "mime from extension", uploads: []Upload{upload("scan.pdf", "application/octet-stream", []byte{1})}},
		{name: "mime with params", uploads: []Upload{upload("c.pdf", "application/pdf; charset=binary", []byte{1})}},
		{name: "too many files", uploads: []Upload{pdfUpload("a.pdf"), pdfUpload("b.pdf"), pdfUpload("c.pdf")}, wantErr: true},
		{name: "unsupported type", uploads: []Upload{upload("a.exe", "application/x-msdownload", []byte{1})}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Validate(tt.uploads)
			if tt.wantErr {
				requireStatus(t, err, http.StatusBadRequest)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestEvidenceSaveAllRollsBackOnFailure(t *testing.T) {
	files := repotest.NewFileStore()
	svc := NewEvidenceService(files, maxUploadBytes, 5)

	broken := pdfUpload("broken.pdf")
	broken.Open = func() (io.ReadCloser, error) { return nil, errors.New("disk error") }

	_, err := svc.SaveAll(context.Background(), []Upload{pdfUpload("ok.pdf"), broken})
	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
	assert.Empty(t, files.Names())
}

func TestEvidenceOpen(t *testing.T) {
	files := repotest.NewFileStore()
	svc := NewEvidenceService(files, maxUploadBytes, 5)

	ref, err := svc.Save(context.Background(), pdfUpload("Bill.PDF"))
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9a-f-]{36}\.pdf$`, ref.StoredName)
	assert.Equal(t, "Bill.PDF", ref.OriginalName)

	f, err := svc.Open(context.Background(), ref.StoredName)
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 test", string(data))
	assert.Equal(t, "application/pdf", f.MimeType)

	_, err = svc.Open(context.Background(), "../etc/passwd")
	requireStatus(t, err, http.StatusBadRequest)

	_, err = svc.Open(context.Background(), "missing.pdf")
	requireStatus(t, err, http.StatusNotFound)
}
