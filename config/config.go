package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config 应用配置
type Config struct {
	Port              int
	MongoURI          string
	MongoDB           string
	MongoTransactions bool
	JWTKey            string
	JWTTTL            time.Duration
	Debug             bool
	CORSOrigins       []string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	OTPTTL            time.Duration
	OTPMaxAttempts    int
	OTPResendLimit    int
	OTPResendWindow   time.Duration
	MaxUploadBytes    int64
	MaxFilesPerUpdate int

	HistoryMaxPageSize      int
	ProgressConflictRetries int

	AdminUsername string
	AdminPassword string
	AdminEmail    string
}

// LoadConfig 从环境变量加载配置，存在 .env 文件时先加载
func LoadConfig() *Config {
	// .env 不存在时忽略
	_ = godotenv.Load()

	return &Config{
		Port:              getEnvInt("PORT", 8080),
		MongoURI:          getEnv("MONGO_URI", "mongodb://127.0.0.1:27017/?replicaSet=rs0"),
		MongoDB:           getEnv("MONGO_DB", "pmis"),
		MongoTransactions: getEnvBool("MONGO_TRANSACTIONS", true),
		JWTKey:            getEnv("JWT_KEY", "your-secret-key"), // 实际环境应替换为安全密钥
		JWTTTL:            time.Duration(getEnvInt("JWT_TTL_HOURS", 24)) * time.Hour,
		Debug:             getEnv("GIN_MODE", "debug") == "debug",
		CORSOrigins:       splitList(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")),

		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		OTPTTL:            time.Duration(getEnvInt("OTP_TTL_MINUTES", 5)) * time.Minute,
		OTPMaxAttempts:    getEnvInt("OTP_MAX_ATTEMPTS", 5),
		OTPResendLimit:    getEnvInt("OTP_RESEND_LIMIT", 3),
		OTPResendWindow:   time.Duration(getEnvInt("OTP_RESEND_WINDOW_MINUTES", 15)) * time.Minute,
		MaxUploadBytes:    int64(getEnvInt("MAX_UPLOAD_MB", 10)) * 1024 * 1024,
		MaxFilesPerUpdate: getEnvInt("MAX_FILES_PER_UPDATE", 10),

		HistoryMaxPageSize:      getEnvInt("HISTORY_MAX_PAGE_SIZE", 50),
		ProgressConflictRetries: getEnvInt("PROGRESS_CONFLICT_RETRIES", 3),

		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: getEnv("ADMIN_PASSWORD", "Admin@12345"),
		AdminEmail:    getEnv("ADMIN_EMAIL", "admin@pmis.local"),
	}
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
