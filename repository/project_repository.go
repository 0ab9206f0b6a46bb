package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/BerniceZTT/pmis_end/models"
	"github.com/BerniceZTT/pmis_end/utils"
)

// ProgressCommit 实物进度提交内容，Project 为已通过校验并修改后的聚合
type ProgressCommit struct {
	Project         *models.Project
	ExpectedVersion int64
	Entry           models.ProgressLogEntry
	Activity        *models.ActivityRecord
}

// FinancialCommit 财务进度提交内容
type FinancialCommit struct {
	Project         *models.Project
	ExpectedVersion int64
	Entry           models.FinancialProgressLogEntry
	Activity        *models.ActivityRecord
}

// ProjectStore 项目持久化接口
type ProjectStore interface {
	Create(ctx context.Context, project *models.Project) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Project, error)
	FindByProjectID(ctx context.Context, projectID string) (*models.Project, error)
	List(ctx context.Context, filter models.ProjectFilter) ([]models.Project, int64, error)
	// UpdateDetails 只写描述性字段，不改变进度、金额与版本号
	UpdateDetails(ctx context.Context, project *models.Project) error
	// CommitProgress 在版本号匹配时追加记录并更新当前值，版本不匹配返回 ErrVersionConflict
	CommitProgress(ctx context.Context, commit ProgressCommit) error
	CommitFinancialProgress(ctx context.Context, commit FinancialCommit) error
	// SetUpdatesEnabled 修改开关并递增版本号，使并发中的提交重新校验
	SetUpdatesEnabled(ctx context.Context, id primitive.ObjectID, kind models.ProgressKind, enabled bool, now time.Time) error
}

// 列表排序允许的字段
var projectSortFields = map[string]bool{
	"createdAt":         true,
	"projectName":       true,
	"physicalProgress":  true,
	"financialProgress": true,
	"workValue":         true,
}

type projectRepository struct {
	collection      *mongo.Collection
	activity        *mongo.Collection
	useTransactions bool
}

// NewProjectRepository 创建项目仓储；useTransactions 为 true 时进度提交与流水写入在同一事务中
func NewProjectRepository(db *mongo.Database, useTransactions bool) ProjectStore {
	return &projectRepository{
		collection:      db.Collection(ProjectsCollection),
		activity:        db.Collection(ProgressActivityCollection),
		useTransactions: useTransactions,
	}
}

func (r *projectRepository) Create(ctx context.Context, project *models.Project) error {
	if project.ID.IsZero() {
		project.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, project)
	utils.LogDbOperation("insertOne", ProjectsCollection, project.ProjectID, err)
	return wrapWriteError(err)
}

func (r *projectRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Project, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *projectRepository) FindByProjectID(ctx context.Context, projectID string) (*models.Project, error) {
	return r.findOne(ctx, bson.M{"projectId": projectID})
}

func (r *projectRepository) findOne(ctx context.Context, filter bson.M) (*models.Project, error) {
	project, err := ExecuteDbOperation(func() (*models.Project, error) {
		var p models.Project
		if err := r.collection.FindOne(ctx, filter).Decode(&p); err != nil {
			return nil, err
		}
		return &p, nil
	}, 3)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("查询项目失败: %w", err)
	}
	return project, nil
}

func (r *projectRepository) List(ctx context.Context, filter models.ProjectFilter) ([]models.Project, int64, error) {
	query := buildProjectQuery(filter)

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("统计项目数量失败: %w", err)
	}

	sortBy := filter.SortBy
	if !projectSortFields[sortBy] {
		sortBy = "createdAt"
	}
	sortOrder := filter.SortOrder
	if sortOrder != 1 {
		sortOrder = -1
	}

	opts := options.Find().
		SetSort(bson.D{{Key: sortBy, Value: sortOrder}, {Key: "_id", Value: sortOrder}}).
		SetSkip((filter.Page - 1) * filter.Limit).
		SetLimit(filter.Limit).
		// 列表不返回更新记录
		SetProjection(bson.M{"progressUpdates": 0, "financialProgressUpdates": 0})

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("获取项目列表失败: %w", err)
	}
	defer cursor.Close(ctx)

	projects := []models.Project{}
	if err := cursor.All(ctx, &projects); err != nil {
		return nil, 0, fmt.Errorf("解析项目列表失败: %w", err)
	}
	return projects, total, nil
}

func buildProjectQuery(filter models.ProjectFilter) bson.M {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.District != "" {
		query["district"] = filter.District
	}
	if filter.Department != "" {
		query["department"] = filter.Department
	}
	if filter.ContractorName != "" {
		query["contractorName"] = primitive.Regex{Pattern: regexp.QuoteMeta(filter.ContractorName), Options: "i"}
	}
	if filter.CreatedBy != "" {
		query["createdBy.id"] = filter.CreatedBy
	}
	if filter.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(filter.Search), Options: "i"}
		query["$or"] = bson.A{
			bson.M{"projectName": pattern},
			bson.M{"projectId": pattern},
			bson.M{"contractorName": pattern},
		}
	}
	return query
}

func (r *projectRepository) UpdateDetails(ctx context.Context, p *models.Project) error {
	update := bson.M{"$set": bson.M{
		"projectName":                  p.ProjectName,
		"description":                  p.Description,
		"department":                   p.Department,
		"district":                     p.District,
		"block":                        p.Block,
		"location":                     p.Location,
		"fund":                         p.Fund,
		"typeOfWork":                   p.TypeOfWork,
		"contractorName":               p.ContractorName,
		"contractorPhone":              p.ContractorPhone,
		"contractorAddress":            p.ContractorAddress,
		"estimatedCost":                p.EstimatedCost,
		"projectStartDate":             p.ProjectStartDate,
		"projectEndDate":               p.ProjectEndDate,
		"extensionPeriodForCompletion": p.ExtensionPeriodForCompletion,
		"updatedAt":                    p.UpdatedAt,
	}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": p.ID}, update)
	if err != nil {
		return fmt.Errorf("更新项目失败: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrProjectNotFound
	}
	return nil
}

func (r *projectRepository) CommitProgress(ctx context.Context, commit ProgressCommit) error {
	p := commit.Project
	update := bson.M{
		"$set": bson.M{
			"physicalProgress":   p.PhysicalProgress,
			"status":             p.Status,
			"lastProgressUpdate": p.LastProgressUpdate,
			"updatedAt":          p.UpdatedAt,
		},
		"$push": bson.M{"progressUpdates": commit.Entry},
		"$inc":  bson.M{"version": 1},
	}
	return r.commit(ctx, p.ID, commit.ExpectedVersion, update, commit.Activity)
}

func (r *projectRepository) CommitFinancialProgress(ctx context.Context, commit FinancialCommit) error {
	p := commit.Project
	update := bson.M{
		"$set": bson.M{
			"billSubmittedAmount":         p.BillSubmittedAmount,
			"billNumber":                  p.BillNumber,
			"financialProgress":           p.FinancialProgress,
			"lastFinancialProgressUpdate": p.LastFinancialProgressUpdate,
			"updatedAt":                   p.UpdatedAt,
		},
		"$push": bson.M{"financialProgressUpdates": commit.Entry},
		"$inc":  bson.M{"version": 1},
	}
	return r.commit(ctx, p.ID, commit.ExpectedVersion, update, commit.Activity)
}

// commit 执行带版本校验的更新，并写入进度流水
func (r *projectRepository) commit(ctx context.Context, id primitive.ObjectID, version int64, update bson.M, activity *models.ActivityRecord) error {
	write := func(sc context.Context) error {
		result, err := r.collection.UpdateOne(sc, bson.M{"_id": id, "version": version}, update)
		if err != nil {
			return fmt.Errorf("提交进度失败: %w", err)
		}
		if result.MatchedCount == 0 {
			return r.missOrConflict(sc, id)
		}
		if activity != nil && r.useTransactions {
			if _, err := r.activity.InsertOne(sc, activity); err != nil {
				return fmt.Errorf("写入进度流水失败: %w", err)
			}
		}
		return nil
	}

	if !r.useTransactions {
		if err := write(ctx); err != nil {
			return err
		}
		if activity != nil {
			// 非事务模式下流水写入失败不影响已提交的进度
			if _, err := r.activity.InsertOne(ctx, activity); err != nil {
				utils.LogError(err, map[string]interface{}{"projectId": id.Hex()}, "写入进度流水失败")
			}
		}
		return nil
	}

	session, err := r.collection.Database().Client().StartSession()
	if err != nil {
		return fmt.Errorf("开启会话失败: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, write(sc)
	})
	return err
}

// missOrConflict 区分项目不存在与版本冲突
func (r *projectRepository) missOrConflict(ctx context.Context, id primitive.ObjectID) error {
	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("查询项目失败: %w", err)
	}
	if count == 0 {
		return ErrProjectNotFound
	}
	return ErrVersionConflict
}

func (r *projectRepository) SetUpdatesEnabled(ctx context.Context, id primitive.ObjectID, kind models.ProgressKind, enabled bool, now time.Time) error {
	field := "progressUpdatesEnabled"
	if kind == models.ProgressKindFinancial {
		field = "financialProgressUpdatesEnabled"
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{field: enabled, "updatedAt": now},
		"$inc": bson.M{"version": 1},
	})
	if err != nil {
		return fmt.Errorf("更新进度开关失败: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrProjectNotFound
	}
	return nil
}
