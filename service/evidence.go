package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/BerniceZTT/pmis_end/models"
	"github.com/BerniceZTT/pmis_end/repository"
	"github.com/BerniceZTT/pmis_end/utils"
)

// Upload 待保存的上传文件
type Upload struct {
	FileName string
	MimeType string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// 允许上传的文件类型
var allowedMimeTypes = map[string]models.FileCategory{
	"image/jpeg":               models.FileCategoryImage,
	"image/png":                models.FileCategoryImage,
	"image/webp":               models.FileCategoryImage,
	"image/gif":                models.FileCategoryImage,
	"application/pdf":          models.FileCategoryDocument,
	"application/msword":       models.FileCategoryDocument,
	"application/vnd.ms-excel": models.FileCategoryDocument,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": models.FileCategoryDocument,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       models.FileCategoryDocument,
}

// EvidenceService 证明材料的校验、保存与回滚
type EvidenceService struct {
	files    repository.FileStore
	maxBytes int64
	maxFiles int
}

// NewEvidenceService 创建证明材料服务
func NewEvidenceService(files repository.FileStore, maxBytes int64, maxFiles int) *EvidenceService {
	return &EvidenceService{files: files, maxBytes: maxBytes, maxFiles: maxFiles}
}

// resolveMimeType 优先使用请求中的类型，缺失时按扩展名推断
func resolveMimeType(u Upload) string {
	mt := strings.ToLower(strings.TrimSpace(u.MimeType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if mt == "" || mt == "application/octet-stream" {
		if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(u.FileName))); byExt != "" {
			mt = strings.SplitN(byExt, ";", 2)[0]
		}
	}
	return mt
}

// Validate 校验文件数量、大小与类型
func (s *EvidenceService) Validate(uploads []Upload) error {
	if s.maxFiles > 0 && len(uploads) > s.maxFiles {
		return utils.CreateBadRequestError(fmt.Sprintf("单次最多上传 %d 个文件", s.maxFiles))
	}
	for _, u := range uploads {
		if s.maxBytes > 0 && u.Size > s.maxBytes {
			return utils.CreateBadRequestError(fmt.Sprintf("文件 %s 超过大小限制 %dMB", u.FileName, s.maxBytes/1024/1024))
		}
		if _, ok := allowedMimeTypes[resolveMimeType(u)]; !ok {
			return utils.CreateBadRequestError(fmt.Sprintf("不支持的文件类型: %s", u.FileName))
		}
	}
	return nil
}

// SaveAll 保存全部文件；任何一个失败时删除已保存的文件
func (s *EvidenceService) SaveAll(ctx context.Context, uploads []Upload) ([]models.FileRef, error) {
	refs := make([]models.FileRef, 0, len(uploads))
	for _, u := range uploads {
		ref, err := s.Save(ctx, u)
		if err != nil {
			s.DeleteAll(ctx, refs)
			return nil, err
		}
		refs = append(refs, *ref)
	}
	return refs, nil
}

// Save 保存单个文件
func (s *EvidenceService) Save(ctx context.Context, u Upload) (*models.FileRef, error) {
	mimeType := resolveMimeType(u)
	category, ok := allowedMimeTypes[mimeType]
	if !ok {
		return nil, utils.CreateBadRequestError(fmt.Sprintf("不支持的文件类型: %s", u.FileName))
	}

	storedName := uuid.NewString() + strings.ToLower(filepath.Ext(u.FileName))
	ref := &models.FileRef{
		StoredName:   storedName,
		OriginalName: filepath.Base(u.FileName),
		DownloadURL:  "/api/files/" + storedName,
		MimeType:     mimeType,
		Category:     category,
	}

	rc, err := u.Open()
	if err != nil {
		return nil, utils.NewAppError("读取上传文件失败", http.StatusBadRequest, err)
	}
	defer rc.Close()

	if err := s.files.Save(ctx, ref, rc); err != nil {
		return nil, fmt.Errorf("保存文件失败: %w", err)
	}
	return ref, nil
}

// DeleteAll 删除文件，失败只记录日志
func (s *EvidenceService) DeleteAll(ctx context.Context, refs []models.FileRef) {
	for _, ref := range refs {
		if err := s.files.Delete(ctx, ref.StoredName); err != nil {
			utils.LogError(err, map[string]interface{}{"storedName": ref.StoredName}, "删除文件失败")
		}
	}
}

// Open 读取已保存的文件
func (s *EvidenceService) Open(ctx context.Context, storedName string) (*repository.StoredFile, error) {
	if storedName == "" || strings.ContainsAny(storedName, "/\\") {
		return nil, utils.CreateBadRequestError("无效的文件名")
	}
	f, err := s.files.Open(ctx, storedName)
	if err != nil {
		if errors.Is(err, repository.ErrFileNotFound) {
			return nil, utils.CreateNotFoundError("文件")
		}
		return nil, err
	}
	return f, nil
}
