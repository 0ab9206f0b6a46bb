package controllers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/BerniceZTT/pmis_end/models"
	"github.com/BerniceZTT/pmis_end/progress"
	"github.com/BerniceZTT/pmis_end/service"
	"github.com/BerniceZTT/pmis_end/utils"
)

// 全局变量
var (
	validate *validator.Validate
)

func init() {
	validate = validator.New()
}

const requestTimeout = 30 * time.Second

// requestContext 以请求上下文为父上下文并加超时
func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

// rejectionStatus 拒绝原因对应的HTTP状态码
func rejectionStatus(reason progress.Reason) int {
	switch reason {
	case progress.ReasonUpdatesDisabled:
		return http.StatusForbidden
	case progress.ReasonAggregateNotFound:
		return http.StatusNotFound
	case progress.ReasonConcurrentUpdate:
		return http.StatusConflict
	case progress.ReasonInternalFailure:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// respondError 输出错误响应，进度拒绝带上原因代码
func respondError(c *gin.Context, err error) {
	var rej *progress.Rejection
	if errors.As(err, &rej) {
		status := rejectionStatus(rej.Reason)
		if status >= http.StatusInternalServerError {
			utils.LogError(err, map[string]interface{}{
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			}, "进度更新内部错误")
		}
		c.JSON(status, gin.H{
			"success": false,
			"error":   rej.Message,
			"code":    string(rej.Reason),
		})
		return
	}
	utils.HandleError(c, err)
}

// currentActor 当前登录用户作为操作人
func currentActor(c *gin.Context) (models.Actor, bool) {
	currentUser, err := utils.GetUser(c)
	if err != nil {
		utils.HandleError(c, utils.CreateUnauthorizedError())
		return models.Actor{}, false
	}
	return currentUser.AsActor(), true
}

// validationError 把校验错误转为400
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s 不满足 %s", fe.Field(), fe.Tag()))
		}
		return utils.CreateBadRequestError("请求参数校验失败: " + strings.Join(msgs, "; "))
	}
	return utils.CreateBadRequestError("无效的请求数据: " + err.Error())
}

// parseNumber 解析表单中的数值，空串返回nil
func parseNumber(field, raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, progress.NewRejection(progress.ReasonInvalidValue, "%s 必须是有效数字", field)
	}
	return &v, nil
}

// parseDate 支持 RFC3339 与 YYYY-MM-DD 两种格式
func parseDate(field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, utils.CreateBadRequestError(fmt.Sprintf("%s 日期格式无效", field))
	}
	return &t, nil
}

// toUpload 把表单文件转为待保存的上传文件
func toUpload(fh *multipart.FileHeader) service.Upload {
	return service.Upload{
		FileName: fh.Filename,
		MimeType: fh.Header.Get("Content-Type"),
		Size:     fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// formUploads 读取 multipart 表单中某个字段的全部文件
func formUploads(c *gin.Context, field string) ([]service.Upload, error) {
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, utils.CreateBadRequestError("解析上传表单失败")
	}
	headers := form.File[field]
	uploads := make([]service.Upload, 0, len(headers))
	for _, fh := range headers {
		uploads = append(uploads, toUpload(fh))
	}
	return uploads, nil
}

// formUpload 读取单个文件，未上传时返回nil
func formUpload(c *gin.Context, field string) (*service.Upload, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, utils.CreateBadRequestError("解析上传文件失败")
	}
	u := toUpload(fh)
	return &u, nil
}
