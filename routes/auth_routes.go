package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/pmis_end/controllers"
	"github.com/BerniceZTT/pmis_end/middleware"
)

// RegisterAuthRoutes 注册认证路由
func RegisterAuthRoutes(router *gin.Engine, ac *controllers.AuthController) {
	auth := router.Group("/api/auth")

	// 公开路由 - 不需要认证
	auth.POST("/login", ac.Login)
	auth.POST("/verify-otp", ac.VerifyOTP)
	auth.POST("/resend-otp", ac.ResendOTP)

	// 需要认证的路由
	auth.GET("/validate", middleware.AuthMiddleware(), ac.ValidateToken)
}
