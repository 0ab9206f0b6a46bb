package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/BerniceZTT/pmis_end/models"
	"github.com/BerniceZTT/pmis_end/progress"
)

func TestUpdateProgressCommitsEntryAndActivity(t *testing.T) {
	f := newFixture(t)
	p := f.seedProject(t, "PWD-001", 100000, 0)

	result, err := f.progress.UpdateProgress(context.Background(), p.ProjectID, ProgressRequest{
		Progress: num(30),
		Remarks:  "  foundation done ",
		Actor:    engineer,
	})
	require.NoError(t, err)

	assert.Equal(t, 30.0, result.Project.PhysicalProgress)
	assert.Equal(t, models.ProjectStatusInProgress, result.Project.Status)
	assert.Equal(t, 1, result.Project.TotalProgressUpdates)
	assert.Equal(t, 0.0, result.Entry.PreviousProgress)
	assert.Equal(t, 30.0, result.Entry.ProgressDifference)
	assert.Equal(t, "foundation done", result.Entry.Remarks)

	stored, err := f.store.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 30.0, stored.PhysicalProgress)
	assert.Equal(t, int64(1), stored.Version)
	require.Len(t, stored.ProgressUpdates, 1)
	assert.Equal(t, result.Entry.ID, stored.ProgressUpdates[0].ID)

	activities := f.store.Activities()
	require.Len(t, activities, 1)
	assert.Equal(t, models.ProgressKindPhysical, activities[0].Kind)
	assert.Equal(t, result.Entry.ID, activities[0].EntryID)
	assert.Equal(t, engineer, activities[0].UpdatedBy)
}

func TestUpdateProgressAcceptsObjectIDReference(t *testing.T) {
	f := newFixture(t)
	p := f.seedProject(t, "PWD-002", 100000, 0)

	result, err := f.progress.UpdateProgress(context.Background(), p.ID.Hex(), ProgressRequest{Progress: num(10), Actor: engineer})
	require.NoError(t, err)
	assert.Equal(t, p.ProjectID, result.Project.ProjectID)
}

func TestUpdateProgressUnknownProject(t *testing.T) {
	f := newFixture(t)

	_, err := f.progress.UpdateProgress(context.Background(), "missing", ProgressRequest{Progress: num(10), Actor: engineer})
	requireReason(t, err, progress.ReasonAggregateNotFound)

	_, err = f.progress.UpdateProgress(context.Background(), primitive.NewObjectID().Hex(), ProgressRequest{Progress: num(10), Actor: engineer})
	requireReason(t, err, progress.ReasonAggregateNotFound)
}

func TestUpdateProgressRejectionWritesNoFiles(t *testing.T) {
	f := newFixture(t)
	p := f.seedProject(t, "PWD-003", 100000, 0)

	_, err := f.progress.UpdateProgress(context.Background(), p.ProjectID, ProgressRequest{
		Progress: num(80),
		Files:    []Upload{pdfUpload("site.pdf")},
		Actor:    engineer,
	})
	requireReason(t, err, progress.ReasonUnrealisticJump)

	assert.Empty(t, f.files.Names())
	assert.Zero(t, f.store.Commits)
	stored, err := f.store.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, stored.PhysicalProgress)
	assert.Empty(t, stored.ProgressUpdates)
}

func TestUpdateProgressCompletionStoresEvidence(t *testing.T) {
	f := newFixture(t)
	p := f.seedProject(t, "PWD-004", 100000, 0)

	_, err := f.progress.UpdateProgress(context.Background(), p.ProjectID, ProgressRequest{Progress: num(50), Actor: engineer})
	require.NoError(t, err)

	_, err = f.progress.UpdateProgress(context.Background(), p.ProjectID, ProgressRequest{Progress: num(100), Actor: engineer})
	requireReason(t, err, progress.ReasonCompletionRequiresDocuments)

	result, err := f.progress.UpdateProgress(context.Background(), p.ProjectID, ProgressRequest{
		Progress: num(100),
		Files:    []Upload{pdfUpload("completion.pdf"), upload("photo.jpg", "image/jpeg", []byte{0xff, 0xd8})},
		Actor:    engineer,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusCompleted, result.Project.Status)

	docs := result.Entry.SupportingDocuments
	require.Len(t, docs, 2)
	assert.Equal(t, "completion.pdf", docs[0].OriginalName)
	assert.Equal(t, models.FileCategoryDocument, docs[0].Category)
	assert.Equal(t, models.FileCategoryImage, docs[1].Category)
	assert.Equal(t, "/api/files/"+docs[0].StoredName, docs[0].DownloadURL)
	assert.ElementsMatch(t, []string{docs[0].StoredName, docs[1].StoredName}, f.files.Names())
}

func TestUpdateProgressInvalidUploadIsBadRequest(t *testing.T) {
	f := newFixture(t)
	p := f.seedProject(t, "PWD-005", 100000, 0)

	_, err := f.progress.UpdateProgress(context.Background(), p.ProjectID, ProgressRequest{
		Progress: num(10),
		Files:    []Upload{upload("script.sh", "text/x-shellscript", []byte("#!/bin/sh"))},
		Actor:    engineer,
	})
	requireStatus(t, err, http.StatusBadRequest)

	big := pdfUpload("huge.pdf")
	big.Size = maxUploadBytes + 1
	_, err = f.progress.UpdateProgress(context.Background(), p.ProjectID, ProgressRequest{
		Progress: num(10),
		Files:    []Upload{big},
		Actor:    engineer,
	})
	requireStatus(t, err, http.StatusBadRequest)
	assert.Empty(t, f.files.Names())
}

func TestUpdateProgressStoreFailureRemovesEvidence(t *testing.T) {
	f := newFixture(t)
	p := f.seedProject(t, "PWD-006", 100000, 0)
	f.store.CommitErr = errors.New("connection reset")

	_, err := f.progress.UpdateProgress(context.Background(), p.ProjectID, ProgressRequest{
		Progress: num(20),
		Files:    []Upload{pdfUpload("site.pdf")},
		Actor:    engineer,
	})
	require.Error(t, err)
	assert.False(t, progress.IsRejection(err))
	assert.Equal(t, progress.ReasonInternalFailure, progress.ReasonOf(err))
	assert.Empty(t, f.files.Names())
}

func TestUpdateRefusesInconsistentLedger(t *testing.T) {
	f := newFixture(t)
	p := f.seedProject(t, "PWD-DRIFT", 100000, 50000)
	p.FinancialProgress = 10
	f.store.Put(p)

	_, err := f.progress.UpdateProgress(context.Background(), p.ProjectID, ProgressRequest{
		Progress: num(20),
		Files:    []Upload{pdfUpload("site.pdf")},
		Actor:    engineer,
	})
	requireReason(t, err, progress.ReasonInternalFailure)

	_, err = f.progress.UpdateFinancialProgress(context.Background(), p.ProjectID, FinancialRequest{
		BillSubmittedAmount: num(60000),
		Actor:               engineer,
	})
	requireReason(t, err, progress.ReasonInternalFailure)

	assert.Zero(t, f.store.Commits)
	assert.Empty(t, f.files.Names())
	stored, err := f.store.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stored.Version)
	assert.Equal(t, 10.0, stored.FinancialProgress)
	assert.Empty(t, stored.ProgressUpdates)
	assert.Empty(t, stored.FinancialProgressUpdates)
}

func TestUpdateRefusesLedgerBrokenDuringRetry(t *testing.T) {
	f := newFixture(t)
	p := f.seedProject(t, "PWD-DRIFT-2", 100000, 0)

	var once sync.Once
	f.store.BeforeCommit = func(id primitive.ObjectID) {
		once.Do(func() {
			broken, err := f.store.FindByID(context.Background(), id)
			require.NoError(t, err)
			broken.FinancialProgress = 40
			broken.Version++
			f.store.Put(broken)
		})
	}

	_, err := f.progress.UpdateProgress(context.Background(), p.ProjectID, ProgressRequest{
		Progress: num(20),
		Files:    []Upload{pdfUpload("site.pdf")},
		Actor:    engineer,
	})
	requireReason(t, err, progress.ReasonInternalFailure)
	assert.Zero(t, f.store.Commits)
	assert.Empty(t, f.files.Names())
}

func TestUpdateProgressPersistentConflictIsRejected(t *testing.T) {
	f := newFixture(t)
	p := f.seedProject(t, "PWD-007", 100000, 0)

	// 每次提交前都有其他写入，版本号永远对不上
	f.store.BeforeCommit = func(id primitive.ObjectID) {
		require.NoError(t, f.store.SetUpdatesEnabled(context.Background(), id, models.ProgressKindPhysical, true, testNow))
	}

	_, err := f.progress.UpdateProgress(context.Background(), p.ProjectID, ProgressRequest{
		Progress: num(20),
		Files:    []Upload{pdfUpload("site.pdf")},
		Actor:    engineer,
	})
	requireReason(t, err, progress.ReasonConcurrentUpdate)
	assert.Zero(t, f.store.Commits)
	assert.Empty(t, f.files.Names())
}

func TestUpdateProgressRevalidatesAfterConflict(t *testing.T) {
	f := newFixture(t)
	p := f.seedProject(t, "PWD-008", 100000, 0)

	var once sync.Once
	f.store.BeforeCommit = func(id primitive.ObjectID) {
		once.Do(func() {
			require.NoError(t, f.store.SetUpdatesEnabled(context.Background(), id, models.ProgressKindPhysical, false, testNow))
		})
	}

	_, err := f.progress.UpdateProgress(context.Background(), p.ProjectID, ProgressRequest{Progress: num(20), Actor: engineer})
	requireReason(t, err, progress.ReasonUpdatesDisabled)
	assert.Zero(t, f.store.Commits)
}

func TestUpdateProgressRetryAfterConflictSucceeds(t *testing.T) {
	f := newFixture(t)
	p := f.seedProject(t, "PWD-009", 100000, 0)

	var once sync.Once
	f.store.BeforeCommit = func(id primitive.ObjectID) {
		once.Do(func() {
			require.NoError(t, f.store.SetUpdatesEnabled(context.Background(), id, models.ProgressKindFinancial, true, testNow))
		})
	}

	result, err := f.progress.UpdateProgress(context.Background(), p.ProjectID, ProgressRequest{Progress: num(20), Actor: engineer})
	require.NoError(t, err)
	assert.Equal(t, 20.0, result.Project.PhysicalProgress)
	assert.Equal(t, 1, f.store.Commits)

	stored, err := f.store.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.Version)
}

func TestConcurrentUpdatesLoseNothing(t *testing.T) {
	f := newFixture(t)
	f.progress = NewProgressService(f.store, f.evidence, 50, 20)
	p := f.seedProject(t, "PWD-010", 100000, 0)

	const workers = 12
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded []string
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := f.progress.UpdateProgress(context.Background(), p.ProjectID, ProgressRequest{
				Progress: num(float64(10 + i*2)),
				Remarks:  fmt.Sprintf("worker %d", i),
				Actor:    engineer,
			})
			if err != nil {
				reason := progress.ReasonOf(err)
				assert.Contains(t, []progress.Reason{
					progress.ReasonBackwardProgressNotAllowed,
					progress.ReasonConcurrentUpdate,
				}, reason)
				return
			}
			mu.Lock()
			succeeded = append(succeeded, result.Entry.ID)
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	stored, err := f.store.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	require.NotEmpty(t, succeeded)
	require.Len(t, stored.ProgressUpdates, len(succeeded))
	assert.Equal(t, len(succeeded), f.store.Commits)
	assert.Equal(t, int64(len(succeeded)), stored.Version)
	assert.NoError(t, progress.CheckInvariants(stored))

	ids := make([]string, 0, len(stored.ProgressUpdates))
	for _, e := range stored.ProgressUpdates {
		ids = append(ids, e.ID)
	}
	assert.ElementsMatch(t, succeeded, ids)
}

func TestUpdateFinancialProgressDerivesPercentage(t *testing.T) {
	f := newFixture(t)
	p := f.seedProject(t, "PWD-011", 100000, 10000)

	result, err := f.progress.UpdateFinancialProgress(context.Background(), p.ProjectID, FinancialRequest{
		BillSubmittedAmount: num(60000),
		BillDetails:         models.BillDetails{BillNumber: "RA-1"},
		Actor:               engineer,
	})
	require.NoError(t, err)
	assert.Equal(t, 60.0, result.Project.FinancialProgress)
	assert.Equal(t, 10.0, result.Entry.PreviousFinancialProgress)
	assert.Equal(t, 50000.0, result.Entry.AmountDifference)

	_, err = f.progress.UpdateFinancialProgress(context.Background(), p.ProjectID, FinancialRequest{
		BillSubmittedAmount: num(100000),
		Files:               []Upload{pdfUpload("final-bill.pdf")},
		Actor:               engineer,
	})
	requireReason(t, err, progress.ReasonFinalBillDetailsRequired)
	assert.Empty(t, f.files.Names())

	result, err = f.progress.UpdateFinancialProgress(context.Background(), p.ProjectID, FinancialRequest{
		BillSubmittedAmount: num(100000),
		BillDetails:         models.BillDetails{BillNumber: "FINAL-1", BillDescription: "final bill"},
		Files:               []Upload{pdfUpload("final-bill.pdf")},
		Actor:               engineer,
	})
	require.NoError(t, err)
	assert.Equal(t, 100.0, result.Project.FinancialProgress)
	assert.Equal(t, "FINAL-1", result.Project.BillNumber)
	assert.Len(t, f.files.Names(), 1)

	activities := f.store.Activities()
	require.Len(t, activities, 2)
	assert.Equal(t, models.ProgressKindFinancial, activities[1].Kind)
	assert.Equal(t, 40000.0, activities[1].AmountChange)
}

func TestUpdateFinancialProgressExceedingWorkValue(t *testing.T) {
	f := newFixture(t)
	p := f.seedProject(t, "PWD-012", 100000, 0)

	_, err := f.progress.UpdateFinancialProgress(context.Background(), p.ProjectID, FinancialRequest{
		BillSubmittedAmount: num(100001),
		Actor:               engineer,
	})
	requireReason(t, err, progress.ReasonExceedsWorkValue)
}

func TestSetUpdatesEnabledBlocksUpdates(t *testing.T) {
	f := newFixture(t)
	p := f.seedProject(t, "PWD-013", 100000, 0)

	snapshot, err := f.progress.SetUpdatesEnabled(context.Background(), p.ProjectID, models.ProgressKindPhysical, false, adminUser)
	require.NoError(t, err)
	assert.False(t, snapshot.ProgressUpdatesEnabled)
	assert.True(t, snapshot.FinancialProgressUpdatesEnabled)

	_, err = f.progress.UpdateProgress(context.Background(), p.ProjectID, ProgressRequest{Progress: num(10), Actor: engineer})
	requireReason(t, err, progress.ReasonUpdatesDisabled)

	// 财务进度不受影响
	_, err = f.progress.UpdateFinancialProgress(context.Background(), p.ProjectID, FinancialRequest{BillSubmittedAmount: num(10000), Actor: engineer})
	require.NoError(t, err)

	_, err = f.progress.SetUpdatesEnabled(context.Background(), p.ProjectID, models.ProgressKindPhysical, true, adminUser)
	require.NoError(t, err)
	_, err = f.progress.UpdateProgress(context.Background(), p.ProjectID, ProgressRequest{Progress: num(10), Actor: engineer})
	require.NoError(t, err)

	_, err = f.progress.SetUpdatesEnabled(context.Background(), p.ProjectID, models.ProgressKind("both"), false, adminUser)
	requireReason(t, err, progress.ReasonInvalidValue)
}

func TestHistoryIsNewestFirstAndClamped(t *testing.T) {
	f := newFixture(t)
	p := f.seedProject(t, "PWD-014", 100000, 0)

	for _, v := range []float64{10, 20, 30} {
		_, err := f.progress.UpdateProgress(context.Background(), p.ProjectID, ProgressRequest{Progress: num(v), Actor: engineer})
		require.NoError(t, err)
	}

	page, err := f.progress.PhysicalHistory(context.Background(), p.ProjectID, 0, 1000)
	require.NoError(t, err)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Equal(t, 20, page.PageSize)
	assert.Equal(t, 3, page.TotalCount)
	require.Len(t, page.Entries, 3)
	assert.Equal(t, 30.0, page.Entries[0].NewProgress)
	assert.Equal(t, 10.0, page.Entries[2].NewProgress)

	page, err = f.progress.PhysicalHistory(context.Background(), p.ProjectID, 2, 2)
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.True(t, page.HasPrev)
	assert.False(t, page.HasNext)

	financial, err := f.progress.FinancialHistory(context.Background(), p.ProjectID, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, financial.Entries)
	assert.Equal(t, 0, financial.TotalCount)
}

func TestSummaryAggregatesBothLogs(t *testing.T) {
	f := newFixture(t)
	p := f.seedProject(t, "PWD-015", 200000, 0)

	for _, v := range []float64{20, 40, 38} {
		_, err := f.progress.UpdateProgress(context.Background(), p.ProjectID, ProgressRequest{Progress: num(v), Actor: engineer})
		require.NoError(t, err)
	}
	_, err := f.progress.UpdateFinancialProgress(context.Background(), p.ProjectID, FinancialRequest{
		BillSubmittedAmount: num(50000),
		Files:               []Upload{pdfUpload("ra-1.pdf")},
		Actor:               engineer,
	})
	require.NoError(t, err)

	summary, err := f.progress.Summary(context.Background(), p.ProjectID)
	require.NoError(t, err)
	assert.Equal(t, 38.0, summary.Project.PhysicalProgress)
	assert.Equal(t, 25.0, summary.Project.FinancialProgress)
	assert.Equal(t, 3, summary.Physical.EntryCount)
	assert.Equal(t, 40.0, summary.Physical.TotalIncrease)
	assert.Equal(t, 2.0, summary.Physical.TotalDecrease)
	assert.Equal(t, 1, summary.Financial.EntryCount)
	assert.Equal(t, 1, summary.Financial.DocumentCount)
	assert.Equal(t, 50000.0, summary.Financial.TotalAmountIncrease)
}
