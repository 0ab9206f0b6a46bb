package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/BerniceZTT/pmis_end/utils"
)

const (
	// 集合名
	UsersCollection            = "users"
	ProjectsCollection         = "projects"
	MeasurementBooksCollection = "measurementBooks"
	ProgressActivityCollection = "progressActivity"
	ApiOperationLogsCollection = "apiOperationLogs"
	// GridFS 存储桶名
	FilesBucket = "evidence"
)

// 仓储层通用错误
var (
	ErrNotFound        = errors.New("记录不存在")
	ErrProjectNotFound = fmt.Errorf("项目%w", ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("用户%w", ErrNotFound)
	ErrBookNotFound    = fmt.Errorf("计量簿%w", ErrNotFound)
	ErrFileNotFound    = fmt.Errorf("文件%w", ErrNotFound)
	ErrVersionConflict = errors.New("版本冲突，数据已被其他请求修改")
	ErrDuplicateKey    = errors.New("唯一键冲突")
)

var (
	client *mongo.Client
	db     *mongo.Database
	ctx    = context.Background()
)

// InitMongoDB 初始化MongoDB连接
func InitMongoDB(uri, dbName string) error {
	// 设置连接超时
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// 创建客户端
	var err error
	clientOptions := options.Client().ApplyURI(uri)
	client, err = mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return fmt.Errorf("连接MongoDB失败: %w", err)
	}

	// 检查连接
	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping MongoDB失败: %w", err)
	}

	// 选择数据库
	db = client.Database(dbName)
	utils.Logger.Info().Str("database", dbName).Msg("已连接到MongoDB")

	return nil
}

// CloseMongoDB 关闭MongoDB连接
func CloseMongoDB() {
	if client != nil {
		if err := client.Disconnect(ctx); err != nil {
			utils.Logger.Error().Err(err).Msg("断开MongoDB连接失败")
			return
		}
		utils.Logger.Info().Msg("已断开MongoDB连接")
	}
}

// DB 返回当前数据库实例，未初始化时为nil
func DB() *mongo.Database {
	return db
}

// Collection 返回指定名称的集合
func Collection(name string) *mongo.Collection {
	return db.Collection(name)
}

// ExecuteDbOperation 执行数据库操作，提供错误处理和重试机制
func ExecuteDbOperation[T any](operation func() (T, error), retries int) (T, error) {
	if retries <= 0 {
		retries = 3
	}

	var zero T
	var lastErr error
	for i := 0; i < retries; i++ {
		result, err := operation()
		if err == nil {
			return result, nil
		}

		lastErr = err
		utils.Logger.Error().Err(err).Msgf("数据库操作失败，重试 (%d/%d)", i+1, retries)

		// 如果是不可重试的错误，立即返回
		if !isRetryableError(err) {
			break
		}

		// 延迟后重试
		time.Sleep(time.Duration(500*(i+1)) * time.Millisecond)
	}

	return zero, lastErr
}

// isRetryableError 判断错误是否可重试
func isRetryableError(err error) bool {
	// MongoDB可重试错误代码
	retryableCodes := map[int32]bool{
		6:     true, // HostUnreachable
		7:     true, // HostNotFound
		89:    true, // NetworkTimeout
		91:    true, // ShutdownInProgress
		189:   true, // PrimarySteppedDown
		10107: true, // NotMaster
		13436: true, // NotMasterNoSlaveOk
		11600: true, // InterruptedAtShutdown
		11602: true, // InterruptedDueToReplStateChange
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return retryableCodes[cmdErr.Code]
	}

	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return true
	}

	// 检查常见网络错误
	errMsg := strings.ToLower(err.Error())
	for _, ne := range []string{"connection refused", "connection reset", "no reachable servers", "server selection error"} {
		if strings.Contains(errMsg, ne) {
			return true
		}
	}
	return false
}

// wrapWriteError 将唯一键冲突转换为 ErrDuplicateKey
func wrapWriteError(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	}
	return err
}

// InitializeCollections 初始化数据库集合
func InitializeCollections() error {
	collections := []string{
		UsersCollection,
		ProjectsCollection,
		MeasurementBooksCollection,
		ProgressActivityCollection,
		ApiOperationLogsCollection,
	}

	existing, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("检查集合失败: %w", err)
	}
	exists := make(map[string]bool, len(existing))
	for _, name := range existing {
		exists[name] = true
	}

	for _, collName := range collections {
		// 如果不存在则创建
		if exists[collName] {
			utils.Logger.Info().Str("collection", collName).Msg("集合已存在")
			continue
		}
		if err := db.CreateCollection(ctx, collName); err != nil {
			return fmt.Errorf("创建集合失败: %w", err)
		}
		utils.Logger.Info().Str("collection", collName).Msg("创建集合成功")
	}

	return nil
}

// CreateIndexes 创建各集合索引
func CreateIndexes() error {
	indexCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := map[string][]mongo.IndexModel{
		ProjectsCollection: {
			{
				Keys:    bson.D{{Key: "projectId", Value: 1}},
				Options: options.Index().SetName("idx_project_id_unique").SetUnique(true),
			},
			{Keys: bson.D{{Key: "status", Value: 1}}, Options: options.Index().SetName("idx_status")},
			{Keys: bson.D{{Key: "district", Value: 1}}, Options: options.Index().SetName("idx_district")},
			{Keys: bson.D{{Key: "contractorName", Value: 1}}, Options: options.Index().SetName("idx_contractor_name")},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}, Options: options.Index().SetName("idx_created_at")},
		},
		MeasurementBooksCollection: {
			{
				Keys:    bson.D{{Key: "project", Value: 1}, {Key: "createdAt", Value: -1}},
				Options: options.Index().SetName("idx_project_created_at"),
			},
		},
		ProgressActivityCollection: {
			{
				Keys:    bson.D{{Key: "projectObjectId", Value: 1}, {Key: "createdAt", Value: -1}},
				Options: options.Index().SetName("idx_project_created_at"),
			},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}, Options: options.Index().SetName("idx_created_at")},
		},
		ApiOperationLogsCollection: {
			{Keys: bson.D{{Key: "operationTime", Value: -1}}, Options: options.Index().SetName("idx_operation_time")},
			{
				Keys:    bson.D{{Key: "resourceId", Value: 1}, {Key: "operationTime", Value: -1}},
				Options: options.Index().SetName("idx_resource_operation_time"),
			},
		},
		UsersCollection: {
			{
				Keys:    bson.D{{Key: "username", Value: 1}},
				Options: options.Index().SetName("idx_username_unique").SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetName("idx_email_unique").SetUnique(true),
			},
		},
	}

	for collName, idx := range indexes {
		names, err := db.Collection(collName).Indexes().CreateMany(indexCtx, idx)
		if err != nil {
			return fmt.Errorf("创建索引失败 %s: %w", collName, err)
		}
		utils.Logger.Info().Str("collection", collName).Strs("indexes", names).Msg("索引已就绪")
	}
	return nil
}

// GetDatabaseStatus 获取数据库状态
func GetDatabaseStatus() (map[string]interface{}, error) {
	if db == nil {
		return nil, errors.New("数据库未初始化")
	}

	collections := []string{
		UsersCollection,
		ProjectsCollection,
		MeasurementBooksCollection,
		ProgressActivityCollection,
		ApiOperationLogsCollection,
	}

	result := make(map[string]interface{})

	for _, collName := range collections {
		count, err := db.Collection(collName).CountDocuments(ctx, bson.M{})
		if err != nil {
			utils.Logger.Error().Err(err).Str("collection", collName).Msg("获取集合计数失败")
			result[collName] = map[string]interface{}{
				"count": 0,
				"error": err.Error(),
			}
			continue
		}
		result[collName] = map[string]interface{}{
			"count": count,
		}
	}

	return result, nil
}
