package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/BerniceZTT/pmis_end/models"
	"github.com/BerniceZTT/pmis_end/repository"
)

const topContractorLimit = 10

// StatsService 跨项目统计
type StatsService struct {
	stats repository.StatsStore
}

// NewStatsService 创建统计服务
func NewStatsService(stats repository.StatsStore) *StatsService {
	return &StatsService{stats: stats}
}

// ProjectStatistics 并发执行各项聚合并组装结果
func (s *StatsService) ProjectStatistics(ctx context.Context, filter models.ProjectFilter) (*models.ProjectStatisticsResponse, error) {
	var resp models.ProjectStatisticsResponse

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		summary, err := s.stats.Summary(gctx, filter)
		if err != nil {
			return fmt.Errorf("统计项目汇总失败: %w", err)
		}
		resp.Summary = summary
		return nil
	})
	g.Go(func() error {
		items, err := s.stats.StatusDistribution(gctx, filter)
		if err != nil {
			return fmt.Errorf("统计状态分布失败: %w", err)
		}
		resp.StatusDistribution = items
		return nil
	})
	g.Go(func() error {
		items, err := s.stats.ProgressBuckets(gctx, filter)
		if err != nil {
			return fmt.Errorf("统计进度分布失败: %w", err)
		}
		resp.ProgressBuckets = items
		return nil
	})
	g.Go(func() error {
		items, err := s.stats.TopContractors(gctx, filter, topContractorLimit)
		if err != nil {
			return fmt.Errorf("统计承包商失败: %w", err)
		}
		resp.TopContractors = items
		return nil
	})
	g.Go(func() error {
		items, err := s.stats.DistrictBreakdown(gctx, filter)
		if err != nil {
			return fmt.Errorf("统计地区分布失败: %w", err)
		}
		resp.DistrictBreakdown = items
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sum := &resp.Summary
	if sum.TotalProjects > 0 {
		sum.CompletionRate = round2(float64(sum.CompletedProjects) * 100 / float64(sum.TotalProjects))
	}
	sum.AveragePhysicalProgress = round2(sum.AveragePhysicalProgress)
	sum.AverageFinancialProgress = round2(sum.AverageFinancialProgress)
	for i := range resp.TopContractors {
		resp.TopContractors[i].AveragePhysicalProgress = round2(resp.TopContractors[i].AveragePhysicalProgress)
		resp.TopContractors[i].AverageFinancialProgress = round2(resp.TopContractors[i].AverageFinancialProgress)
	}
	for i := range resp.DistrictBreakdown {
		resp.DistrictBreakdown[i].AveragePhysicalProgress = round2(resp.DistrictBreakdown[i].AveragePhysicalProgress)
	}
	return &resp, nil
}

func round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
