package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/pmis_end/models"
	"github.com/BerniceZTT/pmis_end/service"
	"github.com/BerniceZTT/pmis_end/utils"
)

// ProjectController 项目管理接口
type ProjectController struct {
	projects *service.ProjectService
}

// NewProjectController 创建项目控制器
func NewProjectController(projects *service.ProjectService) *ProjectController {
	return &ProjectController{projects: projects}
}

// projectFilterFromQuery 从查询参数构造筛选条件
func projectFilterFromQuery(c *gin.Context) models.ProjectFilter {
	filter := models.ProjectFilter{
		Status:         strings.TrimSpace(c.Query("status")),
		District:       strings.TrimSpace(c.Query("district")),
		Department:     strings.TrimSpace(c.Query("department")),
		ContractorName: strings.TrimSpace(c.Query("contractorName")),
		CreatedBy:      strings.TrimSpace(c.Query("createdBy")),
		Search:         strings.TrimSpace(c.Query("search")),
		SortBy:         c.Query("sortBy"),
	}
	switch strings.ToLower(c.Query("sortOrder")) {
	case "asc", "1":
		filter.SortOrder = 1
	default:
		filter.SortOrder = -1
	}
	return filter
}

// GetAllProjects 分页获取项目列表
func (pc *ProjectController) GetAllProjects(c *gin.Context) {
	filter := projectFilterFromQuery(c)
	filter.Page, filter.Limit = utils.ParsePagination(c, 10, 100)

	ctx, cancel := requestContext(c)
	defer cancel()

	projects, total, err := pc.projects.List(ctx, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.PaginatedResponse(c, projects, total, filter.Page, filter.Limit)
}

// GetProjectDetail 获取项目详情，支持ObjectID或项目编号
func (pc *ProjectController) GetProjectDetail(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	project, err := pc.projects.Get(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, project, "")
}

// CreateProject 创建项目
func (pc *ProjectController) CreateProject(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req models.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "无效的请求数据: " + err.Error(), "code": "BAD_REQUEST"})
		return
	}

	utils.LogInfo(map[string]interface{}{
		"projectId": req.ProjectID,
		"user":      actor.Name,
	}, "[项目] 创建项目")

	ctx, cancel := requestContext(c)
	defer cancel()

	project, err := pc.projects.Create(ctx, req, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, project, "项目创建成功", http.StatusCreated)
}

// UpdateProject 更新项目描述性字段
func (pc *ProjectController) UpdateProject(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req models.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "无效的请求数据: " + err.Error(), "code": "BAD_REQUEST"})
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	project, err := pc.projects.Update(ctx, c.Param("id"), req, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, project, "项目更新成功")
}
