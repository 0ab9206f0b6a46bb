package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/pmis_end/models"
	"github.com/BerniceZTT/pmis_end/service"
	"github.com/BerniceZTT/pmis_end/utils"
)

// AuthController 登录、验证码与Token校验
type AuthController struct {
	auth  *service.AuthService
	users *service.UserService
}

// NewAuthController 创建认证控制器
func NewAuthController(auth *service.AuthService, users *service.UserService) *AuthController {
	return &AuthController{auth: auth, users: users}
}

// Login 用户登录第一步：校验密码并发送验证码
func (ac *AuthController) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, "无效的请求参数: "+err.Error(), http.StatusBadRequest)
		return
	}

	utils.LogApiRequest("POST", "/api/auth/login", nil, gin.H{
		"identifier": req.Identifier,
		"password":   "******",
	}, nil)

	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := ac.auth.Login(ctx, req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, resp, "验证码已发送")
}

// VerifyOTP 登录第二步：校验验证码并签发Token
func (ac *AuthController) VerifyOTP(c *gin.Context) {
	var req models.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, "无效的请求参数: "+err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := ac.auth.VerifyOTP(ctx, req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.Logger.Info().Str("userId", req.UserID).Msg("登录成功")
	utils.SuccessResponse(c, resp, "登录成功")
}

// ResendOTP 重新发送验证码
func (ac *AuthController) ResendOTP(c *gin.Context) {
	var req models.ResendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, "无效的请求参数: "+err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := ac.auth.ResendOTP(ctx, req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, resp, "验证码已重新发送")
}

// ValidateToken 验证Token，并确认账号仍然有效
func (ac *AuthController) ValidateToken(c *gin.Context) {
	currentUser, err := utils.GetUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": err.Error()})
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := ac.users.Get(ctx, currentUser.ID)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	if !user.IsActive {
		utils.Logger.Info().Str("id", currentUser.ID).Msg("Token验证失败: 账号已停用")
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "账号已停用", "code": "ACCOUNT_DISABLED"})
		return
	}

	utils.SuccessResponse(c, gin.H{"user": user, "claims": currentUser}, "")
}
