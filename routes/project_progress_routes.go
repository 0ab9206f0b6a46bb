package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/pmis_end/controllers"
	"github.com/BerniceZTT/pmis_end/middleware"
)

// RegisterProjectProgressRoutes 注册跨项目进度流水路由
func RegisterProjectProgressRoutes(router *gin.Engine, ac *controllers.ActivityController) {
	projectProgressGroup := router.Group("/api/project-progress")
	projectProgressGroup.Use(middleware.AuthMiddleware())

	projectProgressGroup.GET("/", middleware.PermissionMiddleware("progress", "read"), ac.GetProgressActivity)
}
