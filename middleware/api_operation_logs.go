package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/pmis_end/models"
	"github.com/BerniceZTT/pmis_end/repository"
	"github.com/BerniceZTT/pmis_end/utils"
)

// 需要记录的HTTP方法
var loggedMethods = map[string]bool{
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodDelete: true,
	http.MethodPatch:  true,
}

// 不需要记录的路径
var excludedPaths = map[string]bool{
	"/api/health":          true,
	"/api/db-status":       true,
	"/api/auth/login":      true,
	"/api/auth/verify-otp": true,
	"/api/auth/resend-otp": true,
}

// OperationLoggerMiddleware 操作日志记录中间件
func OperationLoggerMiddleware(store repository.OperationLogStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 检查是否需要记录此操作
		if !shouldLogOperation(c) {
			c.Next()
			return
		}

		startTime := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		// 创建自定义响应写入器以捕获响应体
		blw := &bodyLogWriter{
			body:           bytes.NewBufferString(""),
			ResponseWriter: c.Writer,
		}
		c.Writer = blw

		requestBody := readRequestBody(c)

		c.Next()

		responseTime := time.Since(startTime).Milliseconds()

		// 获取响应数据
		var responseData interface{}
		if strings.Contains(c.Writer.Header().Get("Content-Type"), "application/json") {
			if err := json.Unmarshal(blw.body.Bytes(), &responseData); err != nil {
				utils.Logger.Warn().Err(err).Msg("解析JSON响应体失败")
				responseData = blw.body.String()
			}
		} else {
			responseData = blw.body.String()
		}

		var errorMessage, errorCode string
		if m, ok := responseData.(map[string]interface{}); ok {
			errorMessage, _ = m["error"].(string)
			errorCode, _ = m["code"].(string)
		}
		if len(c.Errors) > 0 {
			errorMessage = c.Errors.String()
		}

		// 用户信息在认证中间件之后才存在
		operatorID, operatorName, operatorRole := extractUserInfo(c)

		operationLog := models.OperationLog{
			Method:        method,
			Path:          path,
			Route:         c.FullPath(),
			ResourceID:    resourceID(c),
			OperatorID:    operatorID,
			OperatorName:  operatorName,
			OperatorRole:  operatorRole,
			RequestBody:   sanitizeData(requestBody),
			ResponseData:  sanitizeData(responseData),
			StatusCode:    c.Writer.Status(),
			Success:       c.Writer.Status() < http.StatusBadRequest,
			ErrorMessage:  errorMessage,
			ErrorCode:     errorCode,
			OperationTime: startTime,
			ResponseTime:  responseTime,
			IPAddress:     getClientIP(c),
			UserAgent:     c.Request.UserAgent(),
		}

		// 请求结束后保存，不受客户端断开影响
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Save(ctx, &operationLog); err != nil {
			utils.Logger.Error().Err(err).Msg("保存操作日志失败")
			// 尝试保存最小日志
			minimalLog := operationLog
			minimalLog.RequestBody = nil
			minimalLog.ResponseData = nil
			minimalLog.ErrorMessage = fmt.Sprintf("保存详细日志失败: %v", err)

			if saveErr := store.Save(ctx, &minimalLog); saveErr != nil {
				utils.Logger.Error().Err(saveErr).Msg("保存最小日志失败")
			}
		}

		utils.Logger.Debug().
			Str("method", method).
			Str("path", path).
			Int("status", c.Writer.Status()).
			Str("operator", operatorName).
			Int64("responseTime", responseTime).
			Msg("操作日志记录完成")
	}
}

// readRequestBody 读取并重置请求体；上传请求只记录表单字段概要
func readRequestBody(c *gin.Context) interface{} {
	if isMultipart(c.Request) {
		return gin.H{
			"contentType":   "multipart/form-data",
			"contentLength": c.Request.ContentLength,
		}
	}
	if c.Request.Body == nil {
		return nil
	}

	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.Logger.Error().Err(err).Msg("读取请求体失败")
		return nil
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(raw))
	if len(raw) == 0 {
		return nil
	}

	if strings.Contains(c.Request.Header.Get("Content-Type"), "application/json") {
		var body interface{}
		if err := json.Unmarshal(raw, &body); err == nil {
			return body
		}
		utils.Logger.Warn().Msg("解析JSON请求体失败")
	}
	return string(raw)
}

// shouldLogOperation 检查是否需要记录此操作
func shouldLogOperation(c *gin.Context) bool {
	if excludedPaths[c.Request.URL.Path] {
		return false
	}
	return loggedMethods[c.Request.Method]
}

// extractUserInfo 从上下文中提取用户信息
func extractUserInfo(c *gin.Context) (string, string, string) {
	user, err := utils.GetUser(c)
	if err != nil {
		return "anonymous", "匿名用户", "UNKNOWN"
	}
	return user.ID, user.AsActor().Name, user.Role
}

// resourceID 取路由中的资源标识参数
func resourceID(c *gin.Context) string {
	for _, key := range []string{"id", "projectId", "storedName"} {
		if v := c.Param(key); v != "" {
			return v
		}
	}
	return ""
}

// sanitizeData 清理数据中的敏感信息
func sanitizeData(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		sanitized := make(map[string]interface{}, len(v))
		for k, val := range v {
			switch strings.ToLower(k) {
			case "password", "currentpassword", "newpassword", "otp", "token", "authorization", "secret", "key":
				sanitized[k] = "******"
			default:
				sanitized[k] = sanitizeData(val)
			}
		}
		return sanitized
	case gin.H:
		return sanitizeData(map[string]interface{}(v))
	case []interface{}:
		sanitized := make([]interface{}, len(v))
		for i, val := range v {
			sanitized[i] = sanitizeData(val)
		}
		return sanitized
	default:
		return data
	}
}

// getClientIP 获取客户端IP地址
func getClientIP(c *gin.Context) string {
	if ip := c.Request.Header.Get("X-Forwarded-For"); ip != "" {
		return strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	if ip := c.Request.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return c.ClientIP()
}
