package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/pmis_end/models"
	"github.com/BerniceZTT/pmis_end/service"
	"github.com/BerniceZTT/pmis_end/utils"
)

// MeasurementBookController 计量簿接口
type MeasurementBookController struct {
	books *service.MeasurementBookService
}

// NewMeasurementBookController 创建计量簿控制器
func NewMeasurementBookController(books *service.MeasurementBookService) *MeasurementBookController {
	return &MeasurementBookController{books: books}
}

// CreateMeasurementBook 上传计量簿
func (mc *MeasurementBookController) CreateMeasurementBook(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req models.MeasurementBookRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, validationError(err))
		return
	}
	upload, err := formUpload(c, "file")
	if err != nil {
		respondError(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	book, err := mc.books.Create(ctx, req, upload, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, book, "计量簿上传成功", http.StatusCreated)
}

// GetMeasurementBooks 分页获取计量簿，可按项目筛选
func (mc *MeasurementBookController) GetMeasurementBooks(c *gin.Context) {
	mc.list(c, c.Query("project"))
}

// GetProjectMeasurementBooks 获取某个项目的计量簿
func (mc *MeasurementBookController) GetProjectMeasurementBooks(c *gin.Context) {
	mc.list(c, c.Param("projectId"))
}

func (mc *MeasurementBookController) list(c *gin.Context, projectRef string) {
	page, limit := utils.ParsePagination(c, 10, 100)

	ctx, cancel := requestContext(c)
	defer cancel()

	books, total, err := mc.books.List(ctx, projectRef, c.Query("search"), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.PaginatedResponse(c, books, total, page, limit)
}

// GetMeasurementBook 获取计量簿详情
func (mc *MeasurementBookController) GetMeasurementBook(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	book, err := mc.books.Get(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, book, "")
}

// UpdateMeasurementBook 修改计量簿，可替换文件
func (mc *MeasurementBookController) UpdateMeasurementBook(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req models.MeasurementBookRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, validationError(err))
		return
	}
	upload, err := formUpload(c, "file")
	if err != nil {
		respondError(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	book, err := mc.books.Update(ctx, c.Param("id"), req, upload, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, book, "计量簿更新成功")
}

// DeleteMeasurementBook 删除计量簿及其文件
func (mc *MeasurementBookController) DeleteMeasurementBook(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := mc.books.Delete(ctx, c.Param("id"), actor); err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, nil, "计量簿已删除")
}
