package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/pmis_end/controllers"
	"github.com/BerniceZTT/pmis_end/middleware"
)

// RegisterProjectFilesRoutes 注册文件下载路由
func RegisterProjectFilesRoutes(router *gin.Engine, fc *controllers.FileController) {
	projectFilesGroup := router.Group("/api/files")
	projectFilesGroup.Use(middleware.AuthMiddleware())

	projectFilesGroup.GET("/:storedName", middleware.PermissionMiddleware("files", "read"), fc.DownloadFile)
}
