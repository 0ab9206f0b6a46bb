package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/pmis_end/models"
	"github.com/BerniceZTT/pmis_end/service"
	"github.com/BerniceZTT/pmis_end/utils"
)

// ActivityController 跨项目进度流水
type ActivityController struct {
	activity *service.ActivityService
}

// NewActivityController 创建进度流水控制器
func NewActivityController(activity *service.ActivityService) *ActivityController {
	return &ActivityController{activity: activity}
}

// GetProgressActivity 按时间段与类型查询进度流水，最新在前
func (ac *ActivityController) GetProgressActivity(c *gin.Context) {
	startDate, err := parseDate("startDate", c.Query("startDate"))
	if err != nil {
		respondError(c, err)
		return
	}
	endDate, err := parseDate("endDate", c.Query("endDate"))
	if err != nil {
		respondError(c, err)
		return
	}

	page, limit := utils.ParsePagination(c, 20, 100)
	filter := models.ActivityFilter{
		Kind:      models.ProgressKind(c.Query("kind")),
		StartDate: startDate,
		EndDate:   endDate,
		Page:      page,
		Limit:     limit,
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	records, total, err := ac.activity.List(ctx, c.Query("project"), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.PaginatedResponse(c, records, total, page, limit)
}
