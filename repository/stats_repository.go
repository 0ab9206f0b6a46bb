package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/BerniceZTT/pmis_end/models"
)

// ProgressBucketLabels 实物进度分段，顺序即展示顺序
var ProgressBucketLabels = []string{"0-25", "25-50", "50-75", "75-100", "100"}

// StatsStore 跨项目统计接口
type StatsStore interface {
	Summary(ctx context.Context, filter models.ProjectFilter) (models.ProjectSummaryStats, error)
	StatusDistribution(ctx context.Context, filter models.ProjectFilter) ([]models.ChartDataItem, error)
	ProgressBuckets(ctx context.Context, filter models.ProjectFilter) ([]models.ChartDataItem, error)
	TopContractors(ctx context.Context, filter models.ProjectFilter, limit int) ([]models.ContractorStats, error)
	DistrictBreakdown(ctx context.Context, filter models.ProjectFilter) ([]models.DistrictStats, error)
}

type statsRepository struct {
	collection *mongo.Collection
}

// NewStatsRepository 创建统计仓储
func NewStatsRepository(db *mongo.Database) StatsStore {
	return &statsRepository{collection: db.Collection(ProjectsCollection)}
}

func countIf(status models.ProjectStatus) bson.M {
	return bson.M{"$sum": bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$status", status}}, 1, 0}}}
}

func (r *statsRepository) Summary(ctx context.Context, filter models.ProjectFilter) (models.ProjectSummaryStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: buildProjectQuery(filter)}},
		{{Key: "$group", Value: bson.M{
			"_id":                      nil,
			"totalProjects":            bson.M{"$sum": 1},
			"completedProjects":        countIf(models.ProjectStatusCompleted),
			"inProgressProjects":       countIf(models.ProjectStatusInProgress),
			"notStartedProjects":       countIf(models.ProjectStatusNotStarted),
			"averagePhysicalProgress":  bson.M{"$avg": "$physicalProgress"},
			"averageFinancialProgress": bson.M{"$avg": "$financialProgress"},
			"totalWorkValue":           bson.M{"$sum": "$workValue"},
			"totalBillSubmitted":       bson.M{"$sum": "$billSubmittedAmount"},
		}}},
	}

	var results []models.ProjectSummaryStats
	if err := r.aggregate(ctx, pipeline, &results); err != nil {
		return models.ProjectSummaryStats{}, err
	}
	if len(results) == 0 {
		return models.ProjectSummaryStats{}, nil
	}
	return results[0], nil
}

func (r *statsRepository) StatusDistribution(ctx context.Context, filter models.ProjectFilter) ([]models.ChartDataItem, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: buildProjectQuery(filter)}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "value": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	results := []models.ChartDataItem{}
	if err := r.aggregate(ctx, pipeline, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *statsRepository) ProgressBuckets(ctx context.Context, filter models.ProjectFilter) ([]models.ChartDataItem, error) {
	bucket := bson.M{"$switch": bson.M{
		"branches": bson.A{
			bson.M{"case": bson.M{"$lt": bson.A{"$physicalProgress", 25}}, "then": ProgressBucketLabels[0]},
			bson.M{"case": bson.M{"$lt": bson.A{"$physicalProgress", 50}}, "then": ProgressBucketLabels[1]},
			bson.M{"case": bson.M{"$lt": bson.A{"$physicalProgress", 75}}, "then": ProgressBucketLabels[2]},
			bson.M{"case": bson.M{"$lt": bson.A{"$physicalProgress", 100}}, "then": ProgressBucketLabels[3]},
		},
		"default": ProgressBucketLabels[4],
	}}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: buildProjectQuery(filter)}},
		{{Key: "$group", Value: bson.M{"_id": bucket, "value": bson.M{"$sum": 1}}}},
	}

	var results []models.ChartDataItem
	if err := r.aggregate(ctx, pipeline, &results); err != nil {
		return nil, err
	}
	return FillProgressBuckets(results), nil
}

// FillProgressBuckets 按固定顺序返回全部分段，缺失分段计为0
func FillProgressBuckets(items []models.ChartDataItem) []models.ChartDataItem {
	counts := make(map[string]int, len(items))
	for _, item := range items {
		counts[item.Name] = item.Value
	}
	out := make([]models.ChartDataItem, 0, len(ProgressBucketLabels))
	for _, label := range ProgressBucketLabels {
		out = append(out, models.ChartDataItem{Name: label, Value: counts[label]})
	}
	return out
}

func (r *statsRepository) TopContractors(ctx context.Context, filter models.ProjectFilter, limit int) ([]models.ContractorStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: buildProjectQuery(filter)}},
		{{Key: "$group", Value: bson.M{
			"_id":                      "$contractorName",
			"projectCount":             bson.M{"$sum": 1},
			"completedProjects":        countIf(models.ProjectStatusCompleted),
			"averagePhysicalProgress":  bson.M{"$avg": "$physicalProgress"},
			"averageFinancialProgress": bson.M{"$avg": "$financialProgress"},
			"totalWorkValue":           bson.M{"$sum": "$workValue"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "projectCount", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: limit}},
	}

	results := []models.ContractorStats{}
	if err := r.aggregate(ctx, pipeline, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *statsRepository) DistrictBreakdown(ctx context.Context, filter models.ProjectFilter) ([]models.DistrictStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: buildProjectQuery(filter)}},
		{{Key: "$group", Value: bson.M{
			"_id":                     "$district",
			"projectCount":            bson.M{"$sum": 1},
			"averagePhysicalProgress": bson.M{"$avg": "$physicalProgress"},
			"totalWorkValue":          bson.M{"$sum": "$workValue"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	results := []models.DistrictStats{}
	if err := r.aggregate(ctx, pipeline, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *statsRepository) aggregate(ctx context.Context, pipeline mongo.Pipeline, out interface{}) error {
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("聚合查询失败: %w", err)
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("解析聚合结果失败: %w", err)
	}
	return nil
}
