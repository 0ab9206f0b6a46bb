package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/BerniceZTT/pmis_end/models"
	"github.com/BerniceZTT/pmis_end/progress"
	"github.com/BerniceZTT/pmis_end/repository"
	"github.com/BerniceZTT/pmis_end/utils"
)

// ProgressRequest 实物进度更新请求
type ProgressRequest struct {
	Progress *float64
	Remarks  string
	Files    []Upload
	Actor    models.Actor
}

// FinancialRequest 财务进度更新请求
type FinancialRequest struct {
	BillSubmittedAmount *float64
	Remarks             string
	BillDetails         models.BillDetails
	Files               []Upload
	Actor               models.Actor
}

// ProgressResult 实物进度更新结果
type ProgressResult struct {
	Project models.ProgressSnapshot  `json:"project"`
	Entry   *models.ProgressLogEntry `json:"entry"`
}

// FinancialResult 财务进度更新结果
type FinancialResult struct {
	Project models.ProgressSnapshot           `json:"project"`
	Entry   *models.FinancialProgressLogEntry `json:"entry"`
}

// ProgressSummary 进度汇总
type ProgressSummary struct {
	Project   models.ProgressSnapshot    `json:"project"`
	Physical  progress.LogStats          `json:"physical"`
	Financial progress.FinancialLogStats `json:"financial"`
}

// ProgressService 进度台账的读、校验、提交流程
type ProgressService struct {
	projects    repository.ProjectStore
	evidence    *EvidenceService
	retries     int
	maxPageSize int
	now         func() time.Time
}

// NewProgressService 创建进度服务；retries 为版本冲突后的重试次数
func NewProgressService(projects repository.ProjectStore, evidence *EvidenceService, retries, maxPageSize int) *ProgressService {
	if retries < 0 {
		retries = 0
	}
	if maxPageSize < 1 {
		maxPageSize = 50
	}
	return &ProgressService{
		projects:    projects,
		evidence:    evidence,
		retries:     retries,
		maxPageSize: maxPageSize,
		now:         time.Now,
	}
}

// attemptFunc 在给定项目上执行一次规则校验，成功时返回提交函数
type attemptFunc func(p *models.Project, docs []models.FileRef, now time.Time) (func(ctx context.Context) error, error)

// UpdateProgress 提交实物进度
func (s *ProgressService) UpdateProgress(ctx context.Context, ref string, req ProgressRequest) (*ProgressResult, error) {
	var entry *models.ProgressLogEntry
	p, err := s.apply(ctx, ref, req.Files, func(p *models.Project, docs []models.FileRef, now time.Time) (func(context.Context) error, error) {
		e, err := progress.ApplyProgressUpdate(p, progress.ProgressUpdate{
			ProposedProgress:    req.Progress,
			Remarks:             req.Remarks,
			SupportingDocuments: docs,
			Actor:               req.Actor,
		}, now)
		if err != nil {
			return nil, err
		}
		entry = e
		return func(ctx context.Context) error {
			return s.projects.CommitProgress(ctx, repository.ProgressCommit{
				Project:         p,
				ExpectedVersion: p.Version,
				Entry:           *e,
				Activity:        physicalActivity(p, e),
			})
		}, nil
	})
	if err != nil {
		return nil, err
	}

	utils.Logger.Info().
		Str("projectId", p.ProjectID).
		Float64("previous", entry.PreviousProgress).
		Float64("new", entry.NewProgress).
		Str("updatedBy", req.Actor.Name).
		Msg("实物进度更新成功")

	return &ProgressResult{Project: p.Snapshot(), Entry: entry}, nil
}

// UpdateFinancialProgress 提交财务进度
func (s *ProgressService) UpdateFinancialProgress(ctx context.Context, ref string, req FinancialRequest) (*FinancialResult, error) {
	var entry *models.FinancialProgressLogEntry
	p, err := s.apply(ctx, ref, req.Files, func(p *models.Project, docs []models.FileRef, now time.Time) (func(context.Context) error, error) {
		e, err := progress.ApplyFinancialUpdate(p, progress.FinancialUpdate{
			ProposedBillAmount:  req.BillSubmittedAmount,
			Remarks:             req.Remarks,
			BillDetails:         req.BillDetails,
			SupportingDocuments: docs,
			Actor:               req.Actor,
		}, now)
		if err != nil {
			return nil, err
		}
		entry = e
		return func(ctx context.Context) error {
			return s.projects.CommitFinancialProgress(ctx, repository.FinancialCommit{
				Project:         p,
				ExpectedVersion: p.Version,
				Entry:           *e,
				Activity:        financialActivity(p, e),
			})
		}, nil
	})
	if err != nil {
		return nil, err
	}

	utils.Logger.Info().
		Str("projectId", p.ProjectID).
		Float64("previousAmount", entry.PreviousBillAmount).
		Float64("newAmount", entry.NewBillAmount).
		Float64("financialProgress", entry.NewFinancialProgress).
		Str("updatedBy", req.Actor.Name).
		Msg("财务进度更新成功")

	return &FinancialResult{Project: p.Snapshot(), Entry: entry}, nil
}

// apply 读取、校验、提交；版本冲突时重新读取并重新校验
func (s *ProgressService) apply(ctx context.Context, ref string, uploads []Upload, attempt attemptFunc) (*models.Project, error) {
	p, err := findProject(ctx, s.projects, ref)
	if err != nil {
		return nil, err
	}
	if err := s.evidence.Validate(uploads); err != nil {
		return nil, err
	}
	if err := s.verify(p); err != nil {
		return nil, err
	}

	// 文件写入前先按文件数量预校验，被拒绝的请求不产生文件
	dry := *p
	dry.ProgressUpdates = slices.Clone(p.ProgressUpdates)
	dry.FinancialProgressUpdates = slices.Clone(p.FinancialProgressUpdates)
	if _, err := attempt(&dry, make([]models.FileRef, len(uploads)), s.now()); err != nil {
		return nil, err
	}

	docs, err := s.evidence.SaveAll(ctx, uploads)
	if err != nil {
		return nil, err
	}

	for i := 0; ; i++ {
		commit, err := attempt(p, docs, s.now())
		if err == nil {
			err = s.verify(p)
		}
		if err != nil {
			s.evidence.DeleteAll(ctx, docs)
			return nil, err
		}

		err = commit(ctx)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			s.evidence.DeleteAll(ctx, docs)
			if errors.Is(err, repository.ErrProjectNotFound) {
				return nil, progress.NewRejection(progress.ReasonAggregateNotFound, "项目 %s 不存在", ref)
			}
			return nil, fmt.Errorf("提交进度失败: %w", err)
		}
		if i >= s.retries {
			s.evidence.DeleteAll(ctx, docs)
			return nil, progress.NewRejection(progress.ReasonConcurrentUpdate, "项目正在被其他用户更新，请刷新后重试")
		}

		utils.Logger.Warn().
			Str("projectId", p.ProjectID).
			Int("attempt", i+1).
			Msg("进度提交版本冲突，重新读取后重试")

		if p, err = s.projects.FindByID(ctx, p.ID); err != nil {
			s.evidence.DeleteAll(ctx, docs)
			if errors.Is(err, repository.ErrProjectNotFound) {
				return nil, progress.NewRejection(progress.ReasonAggregateNotFound, "项目 %s 不存在", ref)
			}
			return nil, fmt.Errorf("重新读取项目失败: %w", err)
		}
		if err := s.verify(p); err != nil {
			s.evidence.DeleteAll(ctx, docs)
			return nil, err
		}
	}
}

// verify 检查台账不变量，不一致时拒绝提交
func (s *ProgressService) verify(p *models.Project) error {
	err := progress.CheckInvariants(p)
	if err == nil {
		return nil
	}
	var violation *progress.InvariantViolation
	if errors.As(err, &violation) {
		utils.LogInconsistency("CheckInvariants", p.ProjectID, "台账一致", violation.Violations)
	} else {
		utils.LogInconsistency("CheckInvariants", p.ProjectID, "台账一致", err.Error())
	}
	return progress.NewRejection(progress.ReasonInternalFailure, "项目 %s 台账数据不一致，已拒绝本次更新，请联系管理员", p.ProjectID)
}

func physicalActivity(p *models.Project, e *models.ProgressLogEntry) *models.ActivityRecord {
	return &models.ActivityRecord{
		ProjectObjectID: p.ID,
		ProjectID:       p.ProjectID,
		ProjectName:     p.ProjectName,
		Kind:            models.ProgressKindPhysical,
		EntryID:         e.ID,
		Previous:        e.PreviousProgress,
		New:             e.NewProgress,
		Difference:      e.ProgressDifference,
		DocumentCount:   len(e.SupportingDocuments),
		UpdatedBy:       e.UpdatedBy,
		CreatedAt:       e.CreatedAt,
	}
}

func financialActivity(p *models.Project, e *models.FinancialProgressLogEntry) *models.ActivityRecord {
	return &models.ActivityRecord{
		ProjectObjectID: p.ID,
		ProjectID:       p.ProjectID,
		ProjectName:     p.ProjectName,
		Kind:            models.ProgressKindFinancial,
		EntryID:         e.ID,
		Previous:        e.PreviousFinancialProgress,
		New:             e.NewFinancialProgress,
		Difference:      e.ProgressDifference,
		AmountChange:    e.AmountDifference,
		DocumentCount:   len(e.SupportingDocuments),
		UpdatedBy:       e.UpdatedBy,
		CreatedAt:       e.CreatedAt,
	}
}

func (s *ProgressService) clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > s.maxPageSize {
		limit = s.maxPageSize
	}
	return page, limit
}

// PhysicalHistory 实物进度历史
func (s *ProgressService) PhysicalHistory(ctx context.Context, ref string, page, limit int) (*progress.Page[models.ProgressLogEntry], error) {
	p, err := findProject(ctx, s.projects, ref)
	if err != nil {
		return nil, err
	}
	page, limit = s.clampPage(page, limit)
	history := progress.PhysicalHistory(p, page, limit)
	return &history, nil
}

// FinancialHistory 财务进度历史
func (s *ProgressService) FinancialHistory(ctx context.Context, ref string, page, limit int) (*progress.Page[models.FinancialProgressLogEntry], error) {
	p, err := findProject(ctx, s.projects, ref)
	if err != nil {
		return nil, err
	}
	page, limit = s.clampPage(page, limit)
	history := progress.FinancialHistory(p, page, limit)
	return &history, nil
}

// Summary 当前进度与两类记录的统计
func (s *ProgressService) Summary(ctx context.Context, ref string) (*ProgressSummary, error) {
	p, err := findProject(ctx, s.projects, ref)
	if err != nil {
		return nil, err
	}
	return &ProgressSummary{
		Project:   p.Snapshot(),
		Physical:  progress.PhysicalLogStats(p),
		Financial: progress.FinancialLogStatsOf(p),
	}, nil
}

// SetUpdatesEnabled 开启或关闭某类进度更新
func (s *ProgressService) SetUpdatesEnabled(ctx context.Context, ref string, kind models.ProgressKind, enabled bool, actor models.Actor) (*models.ProgressSnapshot, error) {
	p, err := findProject(ctx, s.projects, ref)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := progress.SetUpdatesEnabled(p, kind, enabled, now); err != nil {
		return nil, err
	}
	if err := s.projects.SetUpdatesEnabled(ctx, p.ID, kind, enabled, now); err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, progress.NewRejection(progress.ReasonAggregateNotFound, "项目 %s 不存在", ref)
		}
		return nil, fmt.Errorf("更新进度开关失败: %w", err)
	}

	utils.Logger.Info().
		Str("projectId", p.ProjectID).
		Str("kind", string(kind)).
		Bool("enabled", enabled).
		Str("operator", actor.Name).
		Msg("进度更新开关已修改")

	snapshot := p.Snapshot()
	return &snapshot, nil
}
