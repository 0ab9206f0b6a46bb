package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/pmis_end/controllers"
	"github.com/BerniceZTT/pmis_end/middleware"
	"github.com/BerniceZTT/pmis_end/models"
)

// RegisterProjectRoutes 注册项目及进度路由
func RegisterProjectRoutes(router *gin.Engine, pc *controllers.ProjectController, prc *controllers.ProgressController, sc *controllers.StatsController) {
	projectGroup := router.Group("/api/projects")
	projectGroup.Use(middleware.AuthMiddleware())

	projectGroup.GET("/", middleware.PermissionMiddleware("projects", "read"), pc.GetAllProjects)
	projectGroup.GET("/statistics", middleware.PermissionMiddleware("statistics", "read"), sc.GetProjectStatistics)
	projectGroup.GET("/:id", middleware.PermissionMiddleware("projects", "read"), pc.GetProjectDetail)
	projectGroup.POST("/", middleware.PermissionMiddleware("projects", "create"), pc.CreateProject)
	projectGroup.PUT("/:id", middleware.PermissionMiddleware("projects", "update"), pc.UpdateProject)

	// 实物进度
	projectGroup.POST("/:id/progress", middleware.PermissionMiddleware("progress", "update"), prc.UpdateProgress)
	projectGroup.GET("/:id/progress/history", middleware.PermissionMiddleware("progress", "read"), prc.PhysicalHistory)
	projectGroup.GET("/:id/progress/summary", middleware.PermissionMiddleware("progress", "read"), prc.Summary)
	projectGroup.PATCH("/:id/progress/toggle", middleware.RequireRoles(models.UserRoleADMIN), prc.Toggle)

	// 财务进度
	projectGroup.POST("/:id/financial-progress", middleware.PermissionMiddleware("progress", "update"), prc.UpdateFinancialProgress)
	projectGroup.GET("/:id/financial-progress/history", middleware.PermissionMiddleware("progress", "read"), prc.FinancialHistory)
}
