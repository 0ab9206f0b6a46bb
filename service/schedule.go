package service

import (
	"context"
	"errors"
	"time"

	"github.com/BerniceZTT/pmis_end/models"
	"github.com/BerniceZTT/pmis_end/progress"
	"github.com/BerniceZTT/pmis_end/repository"
	"github.com/BerniceZTT/pmis_end/utils"
)

// ScheduleDailyTaskAt 每天指定时间执行任务，ctx 取消后退出
func ScheduleDailyTaskAt(ctx context.Context, hour, min, sec int, task func(context.Context)) {
	go func() {
		for {
			now := time.Now()
			next := time.Date(now.Year(), now.Month(), now.Day(), hour, min, sec, 0, now.Location())
			if !next.After(now) {
				next = next.Add(24 * time.Hour)
			}

			timer := time.NewTimer(next.Sub(now))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
				task(ctx)
			}
		}
	}()
}

// SweepResult 台账巡检结果
type SweepResult struct {
	Checked      int      `json:"checked"`
	Inconsistent []string `json:"inconsistent"`
}

const sweepPageSize = 100

// IntegritySweep 逐个读取项目并检查台账一致性，只记录不修改
func IntegritySweep(ctx context.Context, projects repository.ProjectStore) (*SweepResult, error) {
	start := time.Now()
	utils.Logger.Info().Time("time", start).Msg("开始执行每日进度台账巡检任务...")

	result := &SweepResult{Inconsistent: []string{}}
	for page := int64(1); ; page++ {
		// 列表不含进度记录，逐个读取完整项目
		items, total, err := projects.List(ctx, models.ProjectFilter{Page: page, Limit: sweepPageSize, SortBy: "createdAt", SortOrder: 1})
		if err != nil {
			return result, err
		}

		for _, item := range items {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			p, err := projects.FindByID(ctx, item.ID)
			if err != nil {
				if errors.Is(err, repository.ErrProjectNotFound) {
					continue
				}
				return result, err
			}
			result.Checked++

			var violation *progress.InvariantViolation
			if err := progress.CheckInvariants(p); errors.As(err, &violation) {
				result.Inconsistent = append(result.Inconsistent, p.ProjectID)
				utils.LogInconsistency("IntegritySweep", p.ProjectID, "台账一致", violation.Violations)
			}
		}

		if len(items) == 0 || page*sweepPageSize >= total {
			break
		}
	}

	utils.Logger.Info().
		Int("checked", result.Checked).
		Int("inconsistent", len(result.Inconsistent)).
		Dur("elapsed", time.Since(start)).
		Msg("每日进度台账巡检任务完成")
	return result, nil
}
