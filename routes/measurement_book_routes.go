package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/pmis_end/controllers"
	"github.com/BerniceZTT/pmis_end/middleware"
)

// RegisterMeasurementBookRoutes 注册计量簿路由
func RegisterMeasurementBookRoutes(router *gin.Engine, mc *controllers.MeasurementBookController) {
	books := router.Group("/api/measurement-books")
	books.Use(middleware.AuthMiddleware())

	books.GET("/", middleware.PermissionMiddleware("measurementBooks", "read"), mc.GetMeasurementBooks)
	books.GET("/project/:projectId", middleware.PermissionMiddleware("measurementBooks", "read"), mc.GetProjectMeasurementBooks)
	books.GET("/:id", middleware.PermissionMiddleware("measurementBooks", "read"), mc.GetMeasurementBook)
	books.POST("/", middleware.PermissionMiddleware("measurementBooks", "create"), mc.CreateMeasurementBook)
	books.PUT("/:id", middleware.PermissionMiddleware("measurementBooks", "update"), mc.UpdateMeasurementBook)
	books.DELETE("/:id", middleware.PermissionMiddleware("measurementBooks", "delete"), mc.DeleteMeasurementBook)
}
