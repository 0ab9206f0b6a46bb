package service

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerniceZTT/pmis_end/models"
	"github.com/BerniceZTT/pmis_end/progress"
)

func createRequest(projectID string) models.CreateProjectRequest {
	return models.CreateProjectRequest{
		ProjectID:           projectID,
		ProjectName:         "District hospital annex",
		Department:          "Health Engineering",
		District:            "South",
		ContractorName:      "Acme Builders",
		WorkValue:           500000,
		BillSubmittedAmount: 50000,
		BillNumber:          " RA-0 ",
	}
}

func TestCreateProjectInitializesLedger(t *testing.T) {
	f := newFixture(t)

	p, err := f.projects.Create(context.Background(), createRequest("HE-2024-01"), adminUser)
	require.NoError(t, err)

	assert.False(t, p.ID.IsZero())
	assert.Equal(t, 0.0, p.PhysicalProgress)
	assert.Equal(t, 10.0, p.FinancialProgress)
	assert.Equal(t, models.ProjectStatusNotStarted, p.Status)
	assert.True(t, p.ProgressUpdatesEnabled)
	assert.True(t, p.FinancialProgressUpdatesEnabled)
	assert.Equal(t, "RA-0", p.BillNumber)
	assert.Equal(t, adminUser, p.CreatedBy)
	assert.NoError(t, progress.CheckInvariants(p))

	got, err := f.projects.Get(context.Background(), "HE-2024-01")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
}

func TestCreateProjectRejectsBadInput(t *testing.T) {
	f := newFixture(t)

	req := createRequest("HE-2024-02")
	req.BillSubmittedAmount = req.WorkValue + 1
	_, err := f.projects.Create(context.Background(), req, adminUser)
	requireReason(t, err, progress.ReasonExceedsWorkValue)

	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, -1, 0)
	req = createRequest("HE-2024-02")
	req.ProjectStartDate = &start
	req.ProjectEndDate = &end
	_, err = f.projects.Create(context.Background(), req, adminUser)
	requireStatus(t, err, http.StatusBadRequest)
}

func TestCreateProjectDuplicateID(t *testing.T) {
	f := newFixture(t)

	_, err := f.projects.Create(context.Background(), createRequest("HE-2024-03"), adminUser)
	require.NoError(t, err)

	_, err = f.projects.Create(context.Background(), createRequest("HE-2024-03"), adminUser)
	requireStatus(t, err, http.StatusConflict)
}

func TestUpdateProjectKeepsProgress(t *testing.T) {
	f := newFixture(t)
	p := f.seedProject(t, "PWD-100", 100000, 20000)

	_, err := f.progress.UpdateProgress(context.Background(), p.ProjectID, ProgressRequest{Progress: num(40), Actor: engineer})
	require.NoError(t, err)

	name := "  Village road resurfacing phase II "
	contractor := "Zenith Infra"
	updated, err := f.projects.Update(context.Background(), p.ProjectID, models.UpdateProjectRequest{
		ProjectName:    &name,
		ContractorName: &contractor,
	}, adminUser)
	require.NoError(t, err)
	assert.Equal(t, "Village road resurfacing phase II", updated.ProjectName)

	stored, err := f.store.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Zenith Infra", stored.ContractorName)
	assert.Equal(t, 40.0, stored.PhysicalProgress)
	assert.Equal(t, 20.0, stored.FinancialProgress)
	assert.Len(t, stored.ProgressUpdates, 1)

	empty := " "
	_, err = f.projects.Update(context.Background(), p.ProjectID, models.UpdateProjectRequest{ContractorName: &empty}, adminUser)
	requireStatus(t, err, http.StatusBadRequest)

	_, err = f.projects.Update(context.Background(), "PWD-404", models.UpdateProjectRequest{ProjectName: &name}, adminUser)
	requireReason(t, err, progress.ReasonAggregateNotFound)
}

func TestListProjectsFiltersAndPaginates(t *testing.T) {
	f := newFixture(t)
	for i, district := range []string{"North", "North", "South"} {
		p := f.seedProject(t, fmt.Sprintf("PWD-20%d", i), 100000, 0)
		p.District = district
		f.store.Put(p)
	}

	items, total, err := f.projects.List(context.Background(), models.ProjectFilter{District: "North", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, items, 1)
	assert.Nil(t, items[0].ProgressUpdates)

	items, total, err = f.projects.List(context.Background(), models.ProjectFilter{Search: "pwd-202"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, "South", items[0].District)
}
