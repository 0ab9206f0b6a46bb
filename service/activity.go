package service

import (
	"context"
	"fmt"

	"github.com/BerniceZTT/pmis_end/models"
	"github.com/BerniceZTT/pmis_end/repository"
	"github.com/BerniceZTT/pmis_end/utils"
)

// ActivityService 跨项目进度流水
type ActivityService struct {
	activity repository.ActivityStore
	projects repository.ProjectStore
}

// NewActivityService 创建进度流水服务
func NewActivityService(activity repository.ActivityStore, projects repository.ProjectStore) *ActivityService {
	return &ActivityService{activity: activity, projects: projects}
}

// List 按项目、类型与时间段查询流水；projectRef 可以是 ObjectID 或项目编号
func (s *ActivityService) List(ctx context.Context, projectRef string, filter models.ActivityFilter) ([]models.ActivityRecord, int64, error) {
	if filter.Kind != "" && filter.Kind != models.ProgressKindPhysical && filter.Kind != models.ProgressKindFinancial {
		return nil, 0, utils.CreateBadRequestError(fmt.Sprintf("无效的进度类型: %s", filter.Kind))
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return nil, 0, utils.CreateBadRequestError("结束日期不能早于开始日期")
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}

	if projectRef != "" {
		project, err := findProject(ctx, s.projects, projectRef)
		if err != nil {
			return nil, 0, err
		}
		filter.ProjectObjectID = &project.ID
	}
	return s.activity.ListActivity(ctx, filter)
}
