package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/BerniceZTT/pmis_end/models"
	"github.com/BerniceZTT/pmis_end/repository"
	"github.com/BerniceZTT/pmis_end/utils"
)

// UserService 用户管理
type UserService struct {
	users repository.UserStore
	now   func() time.Time
}

// NewUserService 创建用户服务
func NewUserService(users repository.UserStore) *UserService {
	return &UserService{users: users, now: time.Now}
}

// Create 创建用户
func (s *UserService) Create(ctx context.Context, req models.CreateUserRequest, actor models.Actor) (*models.User, error) {
	if !models.IsValidRole(string(req.Role)) {
		return nil, utils.CreateBadRequestError(fmt.Sprintf("无效的角色: %s", req.Role))
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &models.User{
		FullName:    strings.TrimSpace(req.FullName),
		Username:    strings.TrimSpace(req.Username),
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:       req.Phone,
		Password:    hashed,
		Role:        req.Role,
		Department:  req.Department,
		Designation: req.Designation,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, utils.CreateConflictError("用户名或邮箱已存在")
		}
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}

	utils.LogInfo(map[string]interface{}{
		"username":  user.Username,
		"role":      user.Role,
		"createdBy": actor.Name,
	}, "用户创建成功")
	user.Password = ""
	return user, nil
}

// Get 获取用户
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, utils.CreateBadRequestError("无效的用户ID")
	}
	user, err := s.users.FindByID(ctx, oid)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, utils.CreateNotFoundError("用户")
		}
		return nil, err
	}
	user.Password = ""
	return user, nil
}

// List 分页获取用户
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, int64, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 10
	}
	return s.users.List(ctx, filter)
}

// Update 更新用户资料
func (s *UserService) Update(ctx context.Context, id string, req models.UpdateUserRequest, actor models.Actor) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		user.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.Role != nil {
		if !models.IsValidRole(string(*req.Role)) {
			return nil, utils.CreateBadRequestError(fmt.Sprintf("无效的角色: %s", *req.Role))
		}
		if user.ID.Hex() == actor.ID && *req.Role != user.Role {
			return nil, utils.CreateBadRequestError("不能修改自己的角色")
		}
		user.Role = *req.Role
	}
	if req.Department != nil {
		user.Department = *req.Department
	}
	if req.Designation != nil {
		user.Designation = *req.Designation
	}
	user.UpdatedAt = s.now()

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, utils.CreateConflictError("邮箱已被使用")
		}
		return nil, fmt.Errorf("更新用户失败: %w", err)
	}
	return user, nil
}

// SetStatus 启用或停用用户
func (s *UserService) SetStatus(ctx context.Context, id string, active bool, actor models.Actor) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.ID.Hex() == actor.ID && !active {
		return nil, utils.CreateBadRequestError("不能停用自己的账号")
	}

	user.IsActive = active
	user.UpdatedAt = s.now()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("更新用户状态失败: %w", err)
	}

	utils.LogInfo(map[string]interface{}{
		"username": user.Username,
		"isActive": active,
		"operator": actor.Name,
	}, "用户状态已修改")
	return user, nil
}

// ChangePassword 修改自己的密码
func (s *UserService) ChangePassword(ctx context.Context, id string, req models.ChangePasswordRequest) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return utils.CreateBadRequestError("无效的用户ID")
	}
	user, err := s.users.FindByID(ctx, oid)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return utils.CreateNotFoundError("用户")
		}
		return err
	}
	if !utils.VerifyPassword(req.CurrentPassword, user.Password) {
		return utils.CreateBadRequestError("当前密码错误")
	}
	if req.CurrentPassword == req.NewPassword {
		return utils.CreateBadRequestError("新密码不能与当前密码相同")
	}

	hashed, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, oid, hashed, s.now())
}

// EnsureAdmin 不存在管理员时创建默认管理员
func (s *UserService) EnsureAdmin(ctx context.Context, username, password, email string) error {
	count, err := s.users.CountByRole(ctx, models.UserRoleADMIN)
	if err != nil {
		return fmt.Errorf("检查管理员账户失败: %w", err)
	}
	if count > 0 {
		utils.Logger.Info().Msg("管理员账户已存在，跳过创建")
		return nil
	}

	_, err = s.Create(ctx, models.CreateUserRequest{
		FullName: "System Administrator",
		Username: username,
		Email:    email,
		Password: password,
		Role:     models.UserRoleADMIN,
	}, models.Actor{Name: "system"})
	if err != nil {
		return fmt.Errorf("创建管理员账户失败: %w", err)
	}

	utils.Logger.Info().Str("username", username).Msg("已创建默认管理员账户")
	return nil
}
