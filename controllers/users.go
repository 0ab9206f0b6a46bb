package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/pmis_end/models"
	"github.com/BerniceZTT/pmis_end/service"
	"github.com/BerniceZTT/pmis_end/utils"
)

// UserController 用户管理接口
type UserController struct {
	users *service.UserService
}

// NewUserController 创建用户控制器
func NewUserController(users *service.UserService) *UserController {
	return &UserController{users: users}
}

// GetAllUsers 分页获取用户列表
func (uc *UserController) GetAllUsers(c *gin.Context) {
	page, limit := utils.ParsePagination(c, 10, 100)
	filter := models.UserFilter{
		Role:   c.Query("role"),
		Search: c.Query("search"),
		Page:   page,
		Limit:  limit,
	}
	if raw := c.Query("isActive"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			utils.ErrorResponse(c, "isActive 参数无效", http.StatusBadRequest)
			return
		}
		filter.IsActive = &active
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	users, total, err := uc.users.List(ctx, filter)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.PaginatedResponse(c, users, total, page, limit)
}

// GetUser 获取用户详情
func (uc *UserController) GetUser(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := uc.users.Get(ctx, c.Param("id"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, user, "")
}

// CreateUser 创建用户
func (uc *UserController) CreateUser(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, "无效的请求数据: "+err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := uc.users.Create(ctx, req, actor)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, user, "用户创建成功", http.StatusCreated)
}

// UpdateUser 更新用户资料
func (uc *UserController) UpdateUser(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req models.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, "无效的请求数据: "+err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := uc.users.Update(ctx, c.Param("id"), req, actor)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, user, "用户更新成功")
}

// SetUserStatus 启用或停用用户
func (uc *UserController) SetUserStatus(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req models.UserStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, "无效的请求数据: "+err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := uc.users.SetStatus(ctx, c.Param("id"), *req.IsActive, actor)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, user, "用户状态已更新")
}

// GetMe 当前登录用户资料
func (uc *UserController) GetMe(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := uc.users.Get(ctx, actor.ID)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, user, "")
}

// ChangePassword 修改当前用户密码
func (uc *UserController) ChangePassword(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, "无效的请求数据: "+err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := uc.users.ChangePassword(ctx, actor.ID, req); err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, nil, "密码修改成功")
}
