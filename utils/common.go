package utils

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"

	"github.com/BerniceZTT/pmis_end/models"
)

// LoginUser 当前登录用户
type LoginUser struct {
	ID       string `json:"id"`
	Role     string `json:"role"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// AsActor 转为操作人信息
func (u *LoginUser) AsActor() models.Actor {
	name := u.Name
	if name == "" {
		name = u.Username
	}
	return models.Actor{ID: u.ID, Name: name, Role: u.Role}
}

// LoginUserFromClaims 从JWT声明构造登录用户
func LoginUserFromClaims(claims jwt.MapClaims) (*LoginUser, error) {
	id, ok := claims["id"].(string)
	if !ok || id == "" {
		return nil, fmt.Errorf("无效的用户ID")
	}

	role, ok := claims["role"].(string)
	if !ok || !models.IsValidRole(role) {
		return nil, fmt.Errorf("无效的用户角色")
	}

	username, _ := claims["username"].(string)
	name, _ := claims["name"].(string)
	if username == "" && name == "" {
		return nil, fmt.Errorf("无效的用户名")
	}

	return &LoginUser{ID: id, Role: role, Username: username, Name: name}, nil
}

// GetUser 获取当前用户信息
func GetUser(c *gin.Context) (*LoginUser, error) {
	currentUser, exists := c.Get("user")
	if !exists {
		return nil, fmt.Errorf("GetUser 未授权访问")
	}

	switch v := currentUser.(type) {
	case *LoginUser:
		return v, nil
	case jwt.MapClaims:
		return LoginUserFromClaims(v)
	default:
		return nil, fmt.Errorf("无法识别的用户信息类型 %T", currentUser)
	}
}

// PaginatedResponse 分页响应
func PaginatedResponse(c *gin.Context, data interface{}, total int64, page int64, limit int64) {
	pages := int64(0)
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
		"pagination": gin.H{
			"total": total,
			"page":  page,
			"limit": limit,
			"pages": pages,
		},
	})
}

// ParsePagination 解析分页参数，limit 上限为 maxLimit
func ParsePagination(c *gin.Context, defaultLimit, maxLimit int64) (page int64, limit int64) {
	page, err := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	if err != nil || page < 1 {
		page = 1
	}
	limit, err = strconv.ParseInt(c.DefaultQuery("limit", strconv.FormatInt(defaultLimit, 10)), 10, 64)
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}
