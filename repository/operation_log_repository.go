package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/BerniceZTT/pmis_end/models"
)

// OperationLogStore 操作日志写入接口
type OperationLogStore interface {
	Save(ctx context.Context, log *models.OperationLog) error
}

type operationLogRepository struct {
	collection *mongo.Collection
}

// NewOperationLogRepository 创建操作日志仓储
func NewOperationLogRepository(db *mongo.Database) OperationLogStore {
	return &operationLogRepository{collection: db.Collection(ApiOperationLogsCollection)}
}

func (r *operationLogRepository) Save(ctx context.Context, log *models.OperationLog) error {
	_, err := r.collection.InsertOne(ctx, log)
	return err
}
