package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserRole 用户角色枚举
type UserRole string

const (
	UserRoleADMIN  UserRole = "ADMIN"  // 系统管理员
	UserRoleJE     UserRole = "JE"     // 初级工程师，负责填报进度
	UserRoleAEE    UserRole = "AEE"    // 助理执行工程师
	UserRoleCE     UserRole = "CE"     // 总工程师
	UserRoleMD     UserRole = "MD"     // 总经理
	UserRoleVIEWER UserRole = "VIEWER" // 只读用户
)

// ValidRoles 所有合法角色
var ValidRoles = []UserRole{
	UserRoleADMIN, UserRoleJE, UserRoleAEE, UserRoleCE, UserRoleMD, UserRoleVIEWER,
}

// IsValidRole 检查角色是否合法
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if string(r) == role {
			return true
		}
	}
	return false
}

// User 用户类型
type User struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	FullName    string             `bson:"fullName" json:"fullName"`
	Username    string             `bson:"username" json:"username"`
	Email       string             `bson:"email" json:"email"`
	Phone       string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Password    string             `bson:"password" json:"-"` // 不返回密码
	Role        UserRole           `bson:"role" json:"role"`
	Department  string             `bson:"department,omitempty" json:"department,omitempty"`
	Designation string             `bson:"designation,omitempty" json:"designation,omitempty"`
	IsActive    bool               `bson:"isActive" json:"isActive"`
	LastLogin   *time.Time         `bson:"lastLogin,omitempty" json:"lastLogin,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// AsActor 转为操作人信息
func (u *User) AsActor() Actor {
	return Actor{ID: u.ID.Hex(), Name: u.FullName, Role: string(u.Role)}
}

// UserFilter 用户列表筛选
type UserFilter struct {
	Role     string
	IsActive *bool
	Search   string
	Page     int64
	Limit    int64
}

// 各种请求和响应结构
type (
	// LoginRequest 登录请求，identifier 可以是用户名或邮箱
	LoginRequest struct {
		Identifier string `json:"identifier" binding:"required"`
		Password   string `json:"password" binding:"required"`
	}

	// LoginResponse 登录第一步响应
	LoginResponse struct {
		OTPRequired bool      `json:"otpRequired"`
		UserID      string    `json:"userId"`
		ExpiresAt   time.Time `json:"expiresAt"`
	}

	// VerifyOTPRequest 验证码校验请求
	VerifyOTPRequest struct {
		UserID string `json:"userId" binding:"required"`
		OTP    string `json:"otp" binding:"required,len=6,numeric"`
	}

	// ResendOTPRequest 重发验证码请求
	ResendOTPRequest struct {
		UserID string `json:"userId" binding:"required"`
	}

	// TokenResponse 登录成功响应
	TokenResponse struct {
		Token string `json:"token"`
		User  User   `json:"user"`
	}

	// CreateUserRequest 创建用户请求
	CreateUserRequest struct {
		FullName    string   `json:"fullName" binding:"required,min=2,max=100"`
		Username    string   `json:"username" binding:"required,min=3,max=50,alphanum"`
		Email       string   `json:"email" binding:"required,email"`
		Phone       string   `json:"phone" binding:"omitempty,min=10,max=15"`
		Password    string   `json:"password" binding:"required,min=8"`
		Role        UserRole `json:"role" binding:"required"`
		Department  string   `json:"department"`
		Designation string   `json:"designation"`
	}

	// UpdateUserRequest 更新用户请求
	UpdateUserRequest struct {
		FullName    *string   `json:"fullName" binding:"omitempty,min=2,max=100"`
		Email       *string   `json:"email" binding:"omitempty,email"`
		Phone       *string   `json:"phone" binding:"omitempty,min=10,max=15"`
		Role        *UserRole `json:"role"`
		Department  *string   `json:"department"`
		Designation *string   `json:"designation"`
	}

	// UserStatusRequest 启用/停用用户
	UserStatusRequest struct {
		IsActive *bool `json:"isActive" binding:"required"`
	}

	// ChangePasswordRequest 修改密码请求
	ChangePasswordRequest struct {
		CurrentPassword string `json:"currentPassword" binding:"required"`
		NewPassword     string `json:"newPassword" binding:"required,min=8"`
	}
)
