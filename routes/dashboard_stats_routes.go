package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/pmis_end/controllers"
	"github.com/BerniceZTT/pmis_end/middleware"
	"github.com/BerniceZTT/pmis_end/models"
)

// RegisterDashboardStatsRoutes 注册看板统计与台账巡检路由
func RegisterDashboardStatsRoutes(router *gin.Engine, sc *controllers.StatsController) {
	dashboardStatsRoutes := router.Group("/api/dashboard-stats")
	dashboardStatsRoutes.Use(middleware.AuthMiddleware())

	dashboardStatsRoutes.GET("", middleware.PermissionMiddleware("statistics", "read"), sc.GetProjectStatistics)
	dashboardStatsRoutes.POST("/integrity-check", middleware.RequireRoles(models.UserRoleADMIN), sc.RunIntegrityCheck)
}
