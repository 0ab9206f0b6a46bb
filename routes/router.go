package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/pmis_end/controllers"
	"github.com/BerniceZTT/pmis_end/repository"
	"github.com/BerniceZTT/pmis_end/utils"
)

// Handlers 各模块控制器
type Handlers struct {
	Auth             *controllers.AuthController
	Users            *controllers.UserController
	Projects         *controllers.ProjectController
	Progress         *controllers.ProgressController
	Activity         *controllers.ActivityController
	Files            *controllers.FileController
	MeasurementBooks *controllers.MeasurementBookController
	Stats            *controllers.StatsController
}

// RegisterRoutes 注册所有路由
func RegisterRoutes(router *gin.Engine, h Handlers) {
	// 注册认证路由
	RegisterAuthRoutes(router, h.Auth)

	// 注册用户管理路由
	RegisterUserRoutes(router, h.Users)

	// 注册其他路由
	RegisterProjectRoutes(router, h.Projects, h.Progress, h.Stats)
	RegisterProjectProgressRoutes(router, h.Activity)
	RegisterProjectFilesRoutes(router, h.Files)
	RegisterMeasurementBookRoutes(router, h.MeasurementBooks)
	RegisterDashboardStatsRoutes(router, h.Stats)

	// 健康检查路由
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// 数据库状态检查路由
	router.GET("/api/db-status", func(c *gin.Context) {
		status, err := repository.GetDatabaseStatus()
		if err != nil {
			utils.ErrorResponse(c, "获取数据库状态失败: "+err.Error(), 500)
			return
		}
		c.JSON(200, status)
	})
}
