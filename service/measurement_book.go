package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/BerniceZTT/pmis_end/models"
	"github.com/BerniceZTT/pmis_end/repository"
	"github.com/BerniceZTT/pmis_end/utils"
)

// MeasurementBookService 计量簿管理
type MeasurementBookService struct {
	books    repository.MeasurementBookStore
	projects repository.ProjectStore
	evidence *EvidenceService
	now      func() time.Time
}

// NewMeasurementBookService 创建计量簿服务
func NewMeasurementBookService(books repository.MeasurementBookStore, projects repository.ProjectStore, evidence *EvidenceService) *MeasurementBookService {
	return &MeasurementBookService{books: books, projects: projects, evidence: evidence, now: time.Now}
}

// Create 上传计量簿
func (s *MeasurementBookService) Create(ctx context.Context, req models.MeasurementBookRequest, upload *Upload, actor models.Actor) (*models.MeasurementBook, error) {
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, utils.CreateBadRequestError("计量簿描述不能为空")
	}
	if upload == nil {
		return nil, utils.CreateBadRequestError("请上传计量簿文件")
	}

	project, err := findProject(ctx, s.projects, req.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := s.evidence.Validate([]Upload{*upload}); err != nil {
		return nil, err
	}

	ref, err := s.evidence.Save(ctx, *upload)
	if err != nil {
		return nil, err
	}

	now := s.now()
	book := &models.MeasurementBook{
		Project:      project.ID,
		ProjectID:    project.ProjectID,
		ProjectName:  project.ProjectName,
		Description:  description,
		Remarks:      strings.TrimSpace(req.Remarks),
		UploadedFile: *ref,
		CreatedBy:    actor,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.books.Create(ctx, book); err != nil {
		s.evidence.DeleteAll(ctx, []models.FileRef{*ref})
		return nil, fmt.Errorf("保存计量簿失败: %w", err)
	}

	utils.LogInfo(map[string]interface{}{
		"projectId": project.ProjectID,
		"file":      ref.StoredName,
		"createdBy": actor.Name,
	}, "计量簿上传成功")
	return book, nil
}

// Get 获取计量簿
func (s *MeasurementBookService) Get(ctx context.Context, id string) (*models.MeasurementBook, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, utils.CreateBadRequestError("无效的计量簿ID")
	}
	book, err := s.books.FindByID(ctx, oid)
	if err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			return nil, utils.CreateNotFoundError("计量簿")
		}
		return nil, err
	}
	return book, nil
}

// List 分页获取计量簿，projectRef 非空时只返回该项目的计量簿
func (s *MeasurementBookService) List(ctx context.Context, projectRef, search string, page, limit int64) ([]models.MeasurementBook, int64, error) {
	filter := models.MeasurementBookFilter{Search: strings.TrimSpace(search), Page: page, Limit: limit}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 10
	}
	if projectRef != "" {
		project, err := findProject(ctx, s.projects, projectRef)
		if err != nil {
			return nil, 0, err
		}
		filter.Project = &project.ID
	}
	return s.books.List(ctx, filter)
}

// Update 修改描述与备注，可替换文件；替换成功后删除旧文件
func (s *MeasurementBookService) Update(ctx context.Context, id string, req models.MeasurementBookRequest, upload *Upload, actor models.Actor) (*models.MeasurementBook, error) {
	book, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if d := strings.TrimSpace(req.Description); d != "" {
		book.Description = d
	}
	book.Remarks = strings.TrimSpace(req.Remarks)

	var oldFile *models.FileRef
	if upload != nil {
		if err := s.evidence.Validate([]Upload{*upload}); err != nil {
			return nil, err
		}
		ref, err := s.evidence.Save(ctx, *upload)
		if err != nil {
			return nil, err
		}
		previous := book.UploadedFile
		oldFile = &previous
		book.UploadedFile = *ref
	}

	book.LastModifiedBy = &actor
	book.UpdatedAt = s.now()
	if err := s.books.Update(ctx, book); err != nil {
		if oldFile != nil {
			s.evidence.DeleteAll(ctx, []models.FileRef{book.UploadedFile})
		}
		if errors.Is(err, repository.ErrBookNotFound) {
			return nil, utils.CreateNotFoundError("计量簿")
		}
		return nil, fmt.Errorf("更新计量簿失败: %w", err)
	}

	if oldFile != nil {
		s.evidence.DeleteAll(ctx, []models.FileRef{*oldFile})
	}
	return book, nil
}

// Delete 删除计量簿及其文件
func (s *MeasurementBookService) Delete(ctx context.Context, id string, actor models.Actor) error {
	book, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.books.Delete(ctx, book.ID); err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			return utils.CreateNotFoundError("计量簿")
		}
		return fmt.Errorf("删除计量簿失败: %w", err)
	}
	s.evidence.DeleteAll(ctx, []models.FileRef{book.UploadedFile})

	utils.LogInfo(map[string]interface{}{
		"bookId":    id,
		"projectId": book.ProjectID,
		"operator":  actor.Name,
	}, "计量簿已删除")
	return nil
}
