package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/pmis_end/controllers"
	"github.com/BerniceZTT/pmis_end/middleware"
)

// RegisterUserRoutes 注册用户管理路由
func RegisterUserRoutes(router *gin.Engine, uc *controllers.UserController) {
	users := router.Group("/api/users")
	users.Use(middleware.AuthMiddleware())

	// 当前用户
	users.GET("/me", uc.GetMe)
	users.PUT("/me/password", uc.ChangePassword)

	// 以下仅管理员
	users.GET("/", middleware.PermissionMiddleware("users", "read"), uc.GetAllUsers)
	users.GET("/:id", middleware.PermissionMiddleware("users", "read"), uc.GetUser)
	users.POST("/", middleware.PermissionMiddleware("users", "create"), uc.CreateUser)
	users.PUT("/:id", middleware.PermissionMiddleware("users", "update"), uc.UpdateUser)
	users.PATCH("/:id/status", middleware.PermissionMiddleware("users", "update"), uc.SetUserStatus)
}
