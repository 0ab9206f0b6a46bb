package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ErrOTPNotFound 验证码不存在或已过期
var ErrOTPNotFound = errors.New("验证码不存在或已过期")

// OTPRecord 已签发的验证码
type OTPRecord struct {
	Hash      string
	Attempts  int
	ExpiresAt time.Time
}

// OTPStore 带过期时间的验证码存储
type OTPStore interface {
	SaveOTP(ctx context.Context, userID string, hash string, ttl time.Duration) error
	GetOTP(ctx context.Context, userID string) (*OTPRecord, error)
	IncrementAttempts(ctx context.Context, userID string) (int, error)
	DeleteOTP(ctx context.Context, userID string) error
	// IncrementResend 计数窗口内的重发次数，窗口从第一次重发开始计时
	IncrementResend(ctx context.Context, userID string, window time.Duration) (int64, error)
}

type redisOTPStore struct {
	rdb *goredis.Client
}

// NewRedisClient 创建Redis客户端并检查连接
func NewRedisClient(addr, password string, db int) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// NewRedisOTPStore 创建基于Redis的验证码存储
func NewRedisOTPStore(rdb *goredis.Client) OTPStore {
	return &redisOTPStore{rdb: rdb}
}

func otpKey(userID string) string    { return "otp:" + userID }
func resendKey(userID string) string { return "otp:resend:" + userID }

func (s *redisOTPStore) SaveOTP(ctx context.Context, userID string, hash string, ttl time.Duration) error {
	key := otpKey(userID)
	_, err := s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, "hash", hash, "attempts", 0)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("保存验证码失败: %w", err)
	}
	return nil
}

func (s *redisOTPStore) GetOTP(ctx context.Context, userID string) (*OTPRecord, error) {
	key := otpKey(userID)

	var fields *goredis.MapStringStringCmd
	var ttl *goredis.DurationCmd
	_, err := s.rdb.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		fields = pipe.HGetAll(ctx, key)
		ttl = pipe.PTTL(ctx, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("读取验证码失败: %w", err)
	}

	values := fields.Val()
	if len(values) == 0 || values["hash"] == "" {
		return nil, ErrOTPNotFound
	}
	attempts, _ := strconv.Atoi(values["attempts"])

	return &OTPRecord{
		Hash:      values["hash"],
		Attempts:  attempts,
		ExpiresAt: time.Now().Add(ttl.Val()),
	}, nil
}

// 键已过期时不再写入，避免留下没有TTL的孤立键
var incrementAttemptsScript = goredis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return -1
end
return redis.call("HINCRBY", KEYS[1], "attempts", 1)
`)

func (s *redisOTPStore) IncrementAttempts(ctx context.Context, userID string) (int, error) {
	n, err := incrementAttemptsScript.Run(ctx, s.rdb, []string{otpKey(userID)}).Int()
	if err != nil {
		return 0, fmt.Errorf("更新验证码尝试次数失败: %w", err)
	}
	if n < 0 {
		return 0, ErrOTPNotFound
	}
	return n, nil
}

func (s *redisOTPStore) DeleteOTP(ctx context.Context, userID string) error {
	return s.rdb.Del(ctx, otpKey(userID)).Err()
}

func (s *redisOTPStore) IncrementResend(ctx context.Context, userID string, window time.Duration) (int64, error) {
	key := resendKey(userID)

	var count *goredis.IntCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		count = pipe.Incr(ctx, key)
		// 只在第一次计数时设置窗口
		pipe.ExpireNX(ctx, key, window)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("更新重发次数失败: %w", err)
	}
	return count.Val(), nil
}
