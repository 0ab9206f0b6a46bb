package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/BerniceZTT/pmis_end/models"
)

// ActivityStore 进度流水查询接口，写入随进度提交完成
type ActivityStore interface {
	ListActivity(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityRecord, int64, error)
}

type activityRepository struct {
	collection *mongo.Collection
}

// NewActivityRepository 创建进度流水仓储
func NewActivityRepository(db *mongo.Database) ActivityStore {
	return &activityRepository{collection: db.Collection(ProgressActivityCollection)}
}

func (r *activityRepository) ListActivity(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityRecord, int64, error) {
	query := bson.M{}
	if filter.ProjectObjectID != nil {
		query["projectObjectId"] = *filter.ProjectObjectID
	}
	if filter.Kind != "" {
		query["kind"] = filter.Kind
	}
	if filter.StartDate != nil || filter.EndDate != nil {
		dateRange := bson.M{}
		if filter.StartDate != nil {
			dateRange["$gte"] = *filter.StartDate
		}
		if filter.EndDate != nil {
			dateRange["$lte"] = *filter.EndDate
		}
		query["createdAt"] = dateRange
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("统计进度流水失败: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip((filter.Page - 1) * filter.Limit).
		SetLimit(filter.Limit)

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("获取进度流水失败: %w", err)
	}
	defer cursor.Close(ctx)

	records := []models.ActivityRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, 0, fmt.Errorf("解析进度流水失败: %w", err)
	}
	return records, total, nil
}
