package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/pmis_end/utils"
)

// ErrorHandler 全局错误处理中间件
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// 已经写出响应的不重复处理
		if c.Writer.Written() || c.Writer.Status() >= 400 {
			return
		}

		if len(c.Errors) > 0 {
			err := c.Errors.Last()
			utils.HandleError(c, err.Err)
		}
	}
}
