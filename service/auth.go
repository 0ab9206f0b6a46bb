package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/BerniceZTT/pmis_end/models"
	"github.com/BerniceZTT/pmis_end/repository"
	"github.com/BerniceZTT/pmis_end/utils"
)

// OTPSender 验证码投递
type OTPSender interface {
	SendOTP(ctx context.Context, user *models.User, code string, expiresAt time.Time) error
}

// LogOTPSender 把验证码写入日志，用于开发环境
type LogOTPSender struct{}

func (LogOTPSender) SendOTP(_ context.Context, user *models.User, code string, expiresAt time.Time) error {
	utils.Logger.Debug().
		Str("username", user.Username).
		Str("email", user.Email).
		Str("otp", code).
		Time("expiresAt", expiresAt).
		Msg("登录验证码")
	return nil
}

// AuthConfig 验证码相关配置
type AuthConfig struct {
	OTPTTL       time.Duration
	MaxAttempts  int
	ResendLimit  int
	ResendWindow time.Duration
}

// AuthService 两步登录：密码校验后签发验证码，验证码通过后签发JWT
type AuthService struct {
	users  repository.UserStore
	otps   repository.OTPStore
	sender OTPSender
	cfg    AuthConfig
	now    func() time.Time
}

// NewAuthService 创建认证服务
func NewAuthService(users repository.UserStore, otps repository.OTPStore, sender OTPSender, cfg AuthConfig) *AuthService {
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = 5 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.ResendLimit <= 0 {
		cfg.ResendLimit = 3
	}
	if cfg.ResendWindow <= 0 {
		cfg.ResendWindow = 15 * time.Minute
	}
	return &AuthService{users: users, otps: otps, sender: sender, cfg: cfg, now: time.Now}
}

var errInvalidCredentials = utils.NewApiError("用户名或密码错误", http.StatusUnauthorized, "INVALID_CREDENTIALS")

// Login 校验用户名/邮箱与密码并签发验证码
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	user, err := s.users.FindByIdentifier(ctx, strings.TrimSpace(req.Identifier))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	if !utils.VerifyPassword(req.Password, user.Password) {
		utils.Logger.Info().Str("identifier", req.Identifier).Msg("登录失败，密码错误")
		return nil, errInvalidCredentials
	}
	if !user.IsActive {
		return nil, utils.NewApiError("账号已停用，请联系管理员", http.StatusForbidden, "ACCOUNT_DISABLED")
	}

	return s.issueOTP(ctx, user)
}

func (s *AuthService) issueOTP(ctx context.Context, user *models.User) (*models.LoginResponse, error) {
	code, err := utils.GenerateOTP()
	if err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(code)
	if err != nil {
		return nil, err
	}

	userID := user.ID.Hex()
	if err := s.otps.SaveOTP(ctx, userID, hash, s.cfg.OTPTTL); err != nil {
		return nil, err
	}

	expiresAt := s.now().Add(s.cfg.OTPTTL)
	if err := s.sender.SendOTP(ctx, user, code, expiresAt); err != nil {
		_ = s.otps.DeleteOTP(ctx, userID)
		return nil, fmt.Errorf("发送验证码失败: %w", err)
	}

	utils.Logger.Info().Str("userId", userID).Msg("验证码已签发")
	return &models.LoginResponse{OTPRequired: true, UserID: userID, ExpiresAt: expiresAt}, nil
}

// VerifyOTP 校验验证码并签发JWT
func (s *AuthService) VerifyOTP(ctx context.Context, req models.VerifyOTPRequest) (*models.TokenResponse, error) {
	rec, err := s.otps.GetOTP(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrOTPNotFound) {
			return nil, utils.NewApiError("验证码已过期，请重新登录", http.StatusUnauthorized, "OTP_EXPIRED")
		}
		return nil, err
	}
	if rec.Attempts >= s.cfg.MaxAttempts {
		_ = s.otps.DeleteOTP(ctx, req.UserID)
		return nil, utils.NewApiError("验证码错误次数过多，请重新登录", http.StatusUnauthorized, "OTP_ATTEMPTS_EXCEEDED")
	}

	if !utils.VerifyPassword(req.OTP, rec.Hash) {
		attempts, err := s.otps.IncrementAttempts(ctx, req.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrOTPNotFound) {
				return nil, utils.NewApiError("验证码已过期，请重新登录", http.StatusUnauthorized, "OTP_EXPIRED")
			}
			return nil, err
		}
		if attempts >= s.cfg.MaxAttempts {
			_ = s.otps.DeleteOTP(ctx, req.UserID)
			return nil, utils.NewApiError("验证码错误次数过多，请重新登录", http.StatusUnauthorized, "OTP_ATTEMPTS_EXCEEDED")
		}
		return nil, utils.NewApiError(
			fmt.Sprintf("验证码错误，还可尝试 %d 次", s.cfg.MaxAttempts-attempts),
			http.StatusUnauthorized, "INVALID_OTP")
	}

	// 验证码只能使用一次
	if err := s.otps.DeleteOTP(ctx, req.UserID); err != nil {
		return nil, err
	}

	user, err := s.userByHex(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, utils.NewApiError("账号已停用，请联系管理员", http.StatusForbidden, "ACCOUNT_DISABLED")
	}

	now := s.now()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		utils.LogError(err, map[string]interface{}{"userId": req.UserID}, "更新最后登录时间失败")
	}
	user.LastLogin = &now

	token, err := utils.GenerateToken(*user)
	if err != nil {
		return nil, err
	}
	return &models.TokenResponse{Token: token, User: *user}, nil
}

// ResendOTP 重新签发验证码，窗口内次数受限
func (s *AuthService) ResendOTP(ctx context.Context, req models.ResendOTPRequest) (*models.LoginResponse, error) {
	user, err := s.userByHex(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, utils.NewApiError("账号已停用，请联系管理员", http.StatusForbidden, "ACCOUNT_DISABLED")
	}

	count, err := s.otps.IncrementResend(ctx, req.UserID, s.cfg.ResendWindow)
	if err != nil {
		return nil, err
	}
	if count > int64(s.cfg.ResendLimit) {
		return nil, utils.CreateTooManyRequestsError("验证码发送过于频繁，请稍后再试")
	}

	return s.issueOTP(ctx, user)
}

func (s *AuthService) userByHex(ctx context.Context, id string) (*models.User, error) {
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
	return user, nil
}
