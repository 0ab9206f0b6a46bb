package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt"
	"golang.org/x/crypto/bcrypt"

	"github.com/BerniceZTT/pmis_end/models"
)

var (
	jwtSecret = []byte("your-secret-key")
	jwtTTL    = 24 * time.Hour
)

// InitJWT 设置JWT签名密钥与有效期
func InitJWT(secret string, ttl time.Duration) {
	jwtSecret = []byte(secret)
	if ttl > 0 {
		jwtTTL = ttl
	}
}

// HashPassword 使用bcrypt哈希密码
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("密码哈希失败: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword 验证密码
func VerifyPassword(password string, hashedPassword string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}

// GenerateOTP 生成6位数字验证码
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("生成验证码失败: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// GenerateToken 生成JWT令牌
func GenerateToken(user models.User) (string, error) {
	Logger.Info().
		Str("_id", user.ID.Hex()).
		Str("username", user.Username).
		Str("role", string(user.Role)).
		Msg("开始生成token")

	now := time.Now()
	claims := jwt.MapClaims{
		"id":       user.ID.Hex(),
		"username": user.Username,
		"name":     user.FullName,
		"role":     string(user.Role),
		"exp":      now.Add(jwtTTL).Unix(),
		"iat":      now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		Logger.Error().Err(err).Msg("生成token失败")
		return "", err
	}

	return tokenString, nil
}

// ParseToken 解析和验证JWT令牌
func ParseToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// 验证签名方法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("无效的token")
}

// HasPermission 检查角色是否有权限
func HasPermission(role models.UserRole, resource string, action string) bool {
	// 管理员拥有所有权限
	if role == models.UserRoleADMIN {
		return true
	}

	readOnly := map[string][]string{
		"projects":         {"read"},
		"progress":         {"read"},
		"measurementBooks": {"read"},
		"statistics":       {"read"},
		"files":            {"read"},
	}

	// 定义各角色权限
	permissions := map[models.UserRole]map[string][]string{
		models.UserRoleJE: {
			"projects":         {"read", "create", "update"},
			"progress":         {"read", "update"},
			"measurementBooks": {"read", "create", "update", "delete"},
			"statistics":       {"read"},
			"files":            {"read"},
		},
		models.UserRoleAEE:    readOnly,
		models.UserRoleCE:     readOnly,
		models.UserRoleMD:     readOnly,
		models.UserRoleVIEWER: readOnly,
	}

	if resourceActions, exists := permissions[role]; exists {
		if actions, hasResource := resourceActions[resource]; hasResource {
			for _, a := range actions {
				if a == action {
					return true
				}
			}
		}
	}

	return false
}
