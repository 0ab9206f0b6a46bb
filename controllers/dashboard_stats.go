package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/pmis_end/repository"
	"github.com/BerniceZTT/pmis_end/service"
	"github.com/BerniceZTT/pmis_end/utils"
)

// StatsController 项目统计与台账巡检
type StatsController struct {
	stats    *service.StatsService
	projects repository.ProjectStore
}

// NewStatsController 创建统计控制器
func NewStatsController(stats *service.StatsService, projects repository.ProjectStore) *StatsController {
	return &StatsController{stats: stats, projects: projects}
}

// GetProjectStatistics 跨项目统计，支持与项目列表相同的筛选条件
func (sc *StatsController) GetProjectStatistics(c *gin.Context) {
	filter := projectFilterFromQuery(c)

	ctx, cancel := requestContext(c)
	defer cancel()

	stats, err := sc.stats.ProjectStatistics(ctx, filter)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, stats, "")
}

// RunIntegrityCheck 立即执行一次台账巡检
func (sc *StatsController) RunIntegrityCheck(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	utils.Logger.Info().Str("operator", actor.Name).Msg("手动触发台账巡检")

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := service.IntegritySweep(ctx, sc.projects)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, result, "巡检完成")
}
