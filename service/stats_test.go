package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerniceZTT/pmis_end/models"
)

func TestProjectStatistics(t *testing.T) {
	f := newFixture(t)
	seed := []struct {
		id         string
		district   string
		contractor string
		physical   float64
		bill       float64
	}{
		{"ST-1", "North", "Acme Builders", 0, 0},
		{"ST-2", "North", "Acme Builders", 40, 30000},
		{"ST-3", "South", "Zenith Infra", 100, 100000},
	}
	for _, s := range seed {
		p := f.seedProject(t, s.id, 100000, s.bill)
		p.District = s.district
		p.ContractorName = s.contractor
		f.store.Put(p)
		if s.physical > 0 {
			// 直接写入最终状态
			p.PhysicalProgress = s.physical
			if s.physical == 100 {
				p.Status = models.ProjectStatusCompleted
			} else {
				p.Status = models.ProjectStatusInProgress
			}
			f.store.Put(p)
		}
	}

	stats, err := NewStatsService(f.store).ProjectStatistics(context.Background(), models.ProjectFilter{})
	require.NoError(t, err)

	sum := stats.Summary
	assert.Equal(t, 3, sum.TotalProjects)
	assert.Equal(t, 1, sum.CompletedProjects)
	assert.Equal(t, 1, sum.InProgressProjects)
	assert.Equal(t, 1, sum.NotStartedProjects)
	assert.Equal(t, 33.33, sum.CompletionRate)
	assert.Equal(t, 46.67, sum.AveragePhysicalProgress)
	assert.Equal(t, 43.33, sum.AverageFinancialProgress)
	assert.Equal(t, 300000.0, sum.TotalWorkValue)
	assert.Equal(t, 130000.0, sum.TotalBillSubmitted)

	require.Len(t, stats.ProgressBuckets, 5)
	assert.Equal(t, models.ChartDataItem{Name: "0-25", Value: 1}, stats.ProgressBuckets[0])
	assert.Equal(t, models.ChartDataItem{Name: "25-50", Value: 1}, stats.ProgressBuckets[1])
	assert.Equal(t, models.ChartDataItem{Name: "50-75", Value: 0}, stats.ProgressBuckets[2])
	assert.Equal(t, models.ChartDataItem{Name: "100", Value: 1}, stats.ProgressBuckets[4])

	require.Len(t, stats.TopContractors, 2)
	assert.Equal(t, "Acme Builders", stats.TopContractors[0].ContractorName)
	assert.Equal(t, 2, stats.TopContractors[0].ProjectCount)
	assert.Equal(t, 20.0, stats.TopContractors[0].AveragePhysicalProgress)

	require.Len(t, stats.DistrictBreakdown, 2)
	assert.Equal(t, "North", stats.DistrictBreakdown[0].District)
	assert.Equal(t, 2, stats.DistrictBreakdown[0].ProjectCount)

	filtered, err := NewStatsService(f.store).ProjectStatistics(context.Background(), models.ProjectFilter{District: "South"})
	require.NoError(t, err)
	assert.Equal(t, 1, filtered.Summary.TotalProjects)
	assert.Equal(t, 100.0, filtered.Summary.CompletionRate)
}

func TestProjectStatisticsEmpty(t *testing.T) {
	f := newFixture(t)

	stats, err := NewStatsService(f.store).ProjectStatistics(context.Background(), models.ProjectFilter{})
	require.NoError(t, err)
	assert.Zero(t, stats.Summary.TotalProjects)
	assert.Zero(t, stats.Summary.CompletionRate)
	assert.Len(t, stats.ProgressBuckets, 5)
	assert.Empty(t, stats.TopContractors)
}
