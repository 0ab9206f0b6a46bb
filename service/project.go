package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/BerniceZTT/pmis_end/models"
	"github.com/BerniceZTT/pmis_end/progress"
	"github.com/BerniceZTT/pmis_end/repository"
	"github.com/BerniceZTT/pmis_end/utils"
)

// ProjectService 项目管理
type ProjectService struct {
	projects repository.ProjectStore
	now      func() time.Time
}

// NewProjectService 创建项目服务
func NewProjectService(projects repository.ProjectStore) *ProjectService {
	return &ProjectService{projects: projects, now: time.Now}
}

// findProject 按ObjectID或项目编号查找项目
func findProject(ctx context.Context, store repository.ProjectStore, ref string) (*models.Project, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, progress.NewRejection(progress.ReasonAggregateNotFound, "项目不存在")
	}

	var (
		p   *models.Project
		err error
	)
	if oid, hexErr := primitive.ObjectIDFromHex(ref); hexErr == nil {
		p, err = store.FindByID(ctx, oid)
		if errors.Is(err, repository.ErrProjectNotFound) {
			p, err = store.FindByProjectID(ctx, ref)
		}
	} else {
		p, err = store.FindByProjectID(ctx, ref)
	}

	if errors.Is(err, repository.ErrProjectNotFound) {
		return nil, progress.NewRejection(progress.ReasonAggregateNotFound, "项目 %s 不存在", ref)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create 创建项目并初始化进度台账
func (s *ProjectService) Create(ctx context.Context, req models.CreateProjectRequest, actor models.Actor) (*models.Project, error) {
	p := &models.Project{
		ProjectID:                    strings.TrimSpace(req.ProjectID),
		ProjectName:                  strings.TrimSpace(req.ProjectName),
		Description:                  req.Description,
		Department:                   req.Department,
		District:                     req.District,
		Block:                        req.Block,
		Location:                     req.Location,
		Fund:                         req.Fund,
		TypeOfWork:                   req.TypeOfWork,
		ContractorName:               strings.TrimSpace(req.ContractorName),
		ContractorPhone:              req.ContractorPhone,
		ContractorAddress:            req.ContractorAddress,
		EstimatedCost:                req.EstimatedCost,
		WorkValue:                    req.WorkValue,
		BillSubmittedAmount:          req.BillSubmittedAmount,
		BillNumber:                   req.BillNumber,
		ProjectStartDate:             req.ProjectStartDate,
		ProjectEndDate:               req.ProjectEndDate,
		ExtensionPeriodForCompletion: req.ExtensionPeriodForCompletion,
		CreatedBy:                    actor,
	}

	if err := validateSchedule(p.ProjectStartDate, p.ProjectEndDate, p.ExtensionPeriodForCompletion); err != nil {
		return nil, err
	}
	if err := progress.Initialize(p, s.now()); err != nil {
		return nil, err
	}

	if err := s.projects.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, utils.CreateConflictError(fmt.Sprintf("项目编号 %s 已存在", p.ProjectID))
		}
		return nil, fmt.Errorf("创建项目失败: %w", err)
	}

	utils.LogInfo(map[string]interface{}{
		"projectId": p.ProjectID,
		"workValue": p.WorkValue,
		"createdBy": actor.Name,
	}, "项目创建成功")
	return p, nil
}

func validateSchedule(start, end, extension *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return utils.CreateBadRequestError("项目结束日期不能早于开始日期")
	}
	if end != nil && extension != nil && extension.Before(*end) {
		return utils.CreateBadRequestError("延期完成日期不能早于项目结束日期")
	}
	return nil
}

// Get 获取项目详情，包含完整更新记录
func (s *ProjectService) Get(ctx context.Context, ref string) (*models.Project, error) {
	return findProject(ctx, s.projects, ref)
}

// List 分页获取项目列表
func (s *ProjectService) List(ctx context.Context, filter models.ProjectFilter) ([]models.Project, int64, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 10
	}
	return s.projects.List(ctx, filter)
}

// Update 更新项目描述性字段
func (s *ProjectService) Update(ctx context.Context, ref string, req models.UpdateProjectRequest, actor models.Actor) (*models.Project, error) {
	p, err := findProject(ctx, s.projects, ref)
	if err != nil {
		return nil, err
	}

	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	setString(&p.ProjectName, req.ProjectName)
	setString(&p.Description, req.Description)
	setString(&p.Department, req.Department)
	setString(&p.District, req.District)
	setString(&p.Block, req.Block)
	setString(&p.Location, req.Location)
	setString(&p.Fund, req.Fund)
	setString(&p.TypeOfWork, req.TypeOfWork)
	setString(&p.ContractorName, req.ContractorName)
	setString(&p.ContractorPhone, req.ContractorPhone)
	setString(&p.ContractorAddress, req.ContractorAddress)
	if req.EstimatedCost != nil {
		p.EstimatedCost = *req.EstimatedCost
	}
	if req.ProjectStartDate != nil {
		p.ProjectStartDate = req.ProjectStartDate
	}
	if req.ProjectEndDate != nil {
		p.ProjectEndDate = req.ProjectEndDate
	}
	if req.ExtensionPeriodForCompletion != nil {
		p.ExtensionPeriodForCompletion = req.ExtensionPeriodForCompletion
	}

	if p.ProjectName == "" || p.ContractorName == "" {
		return nil, utils.CreateBadRequestError("项目名称和承包商不能为空")
	}
	if err := validateSchedule(p.ProjectStartDate, p.ProjectEndDate, p.ExtensionPeriodForCompletion); err != nil {
		return nil, err
	}

	p.UpdatedAt = s.now()
	if err := s.projects.UpdateDetails(ctx, p); err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, progress.NewRejection(progress.ReasonAggregateNotFound, "项目 %s 不存在", ref)
		}
		return nil, fmt.Errorf("更新项目失败: %w", err)
	}

	utils.LogInfo(map[string]interface{}{
		"projectId": p.ProjectID,
		"updatedBy": actor.Name,
	}, "项目信息已更新")
	return p, nil
}
