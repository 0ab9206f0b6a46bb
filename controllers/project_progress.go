package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/pmis_end/models"
	"github.com/BerniceZTT/pmis_end/service"
	"github.com/BerniceZTT/pmis_end/utils"
)

// ProgressController 项目实物进度与财务进度接口
type ProgressController struct {
	progress *service.ProgressService
}

// NewProgressController 创建进度控制器
func NewProgressController(progress *service.ProgressService) *ProgressController {
	return &ProgressController{progress: progress}
}

type progressForm struct {
	Progress string `form:"progress"`
	Remarks  string `form:"remarks" validate:"max=500"`
}

type financialForm struct {
	BillSubmittedAmount string `form:"billSubmittedAmount"`
	Remarks             string `form:"remarks" validate:"max=500"`
	BillNumber          string `form:"billNumber" validate:"max=100"`
	BillDate            string `form:"billDate"`
	BillDescription     string `form:"billDescription" validate:"max=200"`
}

type toggleRequest struct {
	Kind    models.ProgressKind `json:"kind" binding:"required,oneof=physical financial"`
	Enabled *bool               `json:"enabled" binding:"required"`
}

// UpdateProgress 提交实物进度
func (pc *ProgressController) UpdateProgress(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	projectRef := c.Param("id")

	var form progressForm
	if err := c.ShouldBind(&form); err != nil {
		respondError(c, validationError(err))
		return
	}
	if err := validate.Struct(form); err != nil {
		respondError(c, validationError(err))
		return
	}

	value, err := parseNumber("progress", form.Progress)
	if err != nil {
		respondError(c, err)
		return
	}
	files, err := formUploads(c, "supportingDocuments")
	if err != nil {
		respondError(c, err)
		return
	}

	utils.LogInfo(map[string]interface{}{
		"projectId": projectRef,
		"user":      actor.Name,
		"files":     len(files),
	}, "[项目进度] 提交实物进度")

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := pc.progress.UpdateProgress(ctx, projectRef, service.ProgressRequest{
		Progress: value,
		Remarks:  form.Remarks,
		Files:    files,
		Actor:    actor,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, result, "实物进度更新成功")
}

// UpdateFinancialProgress 提交账单金额，财务进度由金额推导
func (pc *ProgressController) UpdateFinancialProgress(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	projectRef := c.Param("id")

	var form financialForm
	if err := c.ShouldBind(&form); err != nil {
		respondError(c, validationError(err))
		return
	}
	if err := validate.Struct(form); err != nil {
		respondError(c, validationError(err))
		return
	}

	amount, err := parseNumber("billSubmittedAmount", form.BillSubmittedAmount)
	if err != nil {
		respondError(c, err)
		return
	}
	billDate, err := parseDate("billDate", form.BillDate)
	if err != nil {
		respondError(c, err)
		return
	}
	files, err := formUploads(c, "supportingDocuments")
	if err != nil {
		respondError(c, err)
		return
	}

	utils.LogInfo(map[string]interface{}{
		"projectId": projectRef,
		"user":      actor.Name,
		"files":     len(files),
	}, "[项目进度] 提交财务进度")

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := pc.progress.UpdateFinancialProgress(ctx, projectRef, service.FinancialRequest{
		BillSubmittedAmount: amount,
		Remarks:             form.Remarks,
		BillDetails: models.BillDetails{
			BillNumber:      form.BillNumber,
			BillDate:        billDate,
			BillDescription: form.BillDescription,
		},
		Files: files,
		Actor: actor,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, result, "财务进度更新成功")
}

// PhysicalHistory 实物进度历史，按时间倒序
func (pc *ProgressController) PhysicalHistory(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	page, limit := utils.ParsePagination(c, 10, 0)
	history, err := pc.progress.PhysicalHistory(ctx, c.Param("id"), int(page), int(limit))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, history, "")
}

// FinancialHistory 财务进度历史，按时间倒序
func (pc *ProgressController) FinancialHistory(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	page, limit := utils.ParsePagination(c, 10, 0)
	history, err := pc.progress.FinancialHistory(ctx, c.Param("id"), int(page), int(limit))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, history, "")
}

// Summary 当前进度快照与更新统计
func (pc *ProgressController) Summary(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	summary, err := pc.progress.Summary(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, summary, "")
}

// Toggle 开启或关闭某类进度更新
func (pc *ProgressController) Toggle(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "无效的请求数据: " + err.Error(), "code": "BAD_REQUEST"})
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	snapshot, err := pc.progress.SetUpdatesEnabled(ctx, c.Param("id"), req.Kind, *req.Enabled, actor)
	if err != nil {
		respondError(c, err)
		return
	}

	msg := "进度更新已开启"
	if !*req.Enabled {
		msg = "进度更新已关闭"
	}
	utils.SuccessResponse(c, snapshot, msg)
}
