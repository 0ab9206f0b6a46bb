package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/BerniceZTT/pmis_end/models"
)

// MeasurementBookStore 计量簿持久化接口
type MeasurementBookStore interface {
	Create(ctx context.Context, book *models.MeasurementBook) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.MeasurementBook, error)
	List(ctx context.Context, filter models.MeasurementBookFilter) ([]models.MeasurementBook, int64, error)
	Update(ctx context.Context, book *models.MeasurementBook) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type measurementBookRepository struct {
	collection *mongo.Collection
}

// NewMeasurementBookRepository 创建计量簿仓储
func NewMeasurementBookRepository(db *mongo.Database) MeasurementBookStore {
	return &measurementBookRepository{collection: db.Collection(MeasurementBooksCollection)}
}

func (r *measurementBookRepository) Create(ctx context.Context, book *models.MeasurementBook) error {
	if book.ID.IsZero() {
		book.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, book)
	return err
}

func (r *measurementBookRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.MeasurementBook, error) {
	var book models.MeasurementBook
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&book); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("查询计量簿失败: %w", err)
	}
	return &book, nil
}

func (r *measurementBookRepository) List(ctx context.Context, filter models.MeasurementBookFilter) ([]models.MeasurementBook, int64, error) {
	query := bson.M{}
	if filter.Project != nil {
		query["project"] = *filter.Project
	}
	if filter.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(filter.Search), Options: "i"}
		query["$or"] = bson.A{
			bson.M{"description": pattern},
			bson.M{"projectName": pattern},
			bson.M{"projectId": pattern},
		}
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("统计计量簿数量失败: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip((filter.Page - 1) * filter.Limit).
		SetLimit(filter.Limit)

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("获取计量簿列表失败: %w", err)
	}
	defer cursor.Close(ctx)

	books := []models.MeasurementBook{}
	if err := cursor.All(ctx, &books); err != nil {
		return nil, 0, fmt.Errorf("解析计量簿列表失败: %w", err)
	}
	return books, total, nil
}

func (r *measurementBookRepository) Update(ctx context.Context, book *models.MeasurementBook) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": book.ID}, bson.M{"$set": bson.M{
		"description":    book.Description,
		"remarks":        book.Remarks,
		"uploadedFile":   book.UploadedFile,
		"lastModifiedBy": book.LastModifiedBy,
		"updatedAt":      book.UpdatedAt,
	}})
	if err != nil {
		return fmt.Errorf("更新计量簿失败: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrBookNotFound
	}
	return nil
}

func (r *measurementBookRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("删除计量簿失败: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrBookNotFound
	}
	return nil
}
