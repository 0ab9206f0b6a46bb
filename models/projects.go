package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProjectStatus 项目状态，由实物进度推导
type ProjectStatus string

const (
	ProjectStatusNotStarted ProjectStatus = "NOT_STARTED"
	ProjectStatusInProgress ProjectStatus = "IN_PROGRESS"
	ProjectStatusCompleted  ProjectStatus = "COMPLETED"
)

// ProgressKind 进度类型
type ProgressKind string

const (
	ProgressKindPhysical  ProgressKind = "physical"
	ProgressKindFinancial ProgressKind = "financial"
)

// FileCategory 文件类别
type FileCategory string

const (
	FileCategoryImage    FileCategory = "image"
	FileCategoryDocument FileCategory = "document"
)

// Actor 操作人信息
type Actor struct {
	ID   string `json:"id" bson:"id"`
	Name string `json:"name" bson:"name"`
	Role string `json:"role" bson:"role"`
}

// FileRef 已上传文件的引用
type FileRef struct {
	StoredName   string       `json:"storedName" bson:"storedName"`
	OriginalName string       `json:"originalName" bson:"originalName"`
	DownloadURL  string       `json:"downloadUrl" bson:"downloadUrl"`
	FileSize     int64        `json:"fileSize" bson:"fileSize"`
	MimeType     string       `json:"mimeType" bson:"mimeType"`
	Category     FileCategory `json:"category" bson:"category"`
	UploadedAt   time.Time    `json:"uploadedAt" bson:"uploadedAt"`
}

// BillDetails 账单信息
type BillDetails struct {
	BillNumber      string     `json:"billNumber,omitempty" bson:"billNumber,omitempty"`
	BillDate        *time.Time `json:"billDate,omitempty" bson:"billDate,omitempty"`
	BillDescription string     `json:"billDescription,omitempty" bson:"billDescription,omitempty"`
}

// ProgressLogEntry 实物进度更新记录，创建后不可修改
type ProgressLogEntry struct {
	ID                  string    `json:"_id" bson:"_id"`
	PreviousProgress    float64   `json:"previousProgress" bson:"previousProgress"`
	NewProgress         float64   `json:"newProgress" bson:"newProgress"`
	ProgressDifference  float64   `json:"progressDifference" bson:"progressDifference"`
	Remarks             string    `json:"remarks,omitempty" bson:"remarks,omitempty"`
	SupportingDocuments []FileRef `json:"supportingDocuments" bson:"supportingDocuments"`
	UpdatedBy           Actor     `json:"updatedBy" bson:"updatedBy"`
	CreatedAt           time.Time `json:"createdAt" bson:"createdAt"`
}

// FinancialProgressLogEntry 财务进度更新记录，创建后不可修改
type FinancialProgressLogEntry struct {
	ID                        string      `json:"_id" bson:"_id"`
	PreviousFinancialProgress float64     `json:"previousFinancialProgress" bson:"previousFinancialProgress"`
	NewFinancialProgress      float64     `json:"newFinancialProgress" bson:"newFinancialProgress"`
	ProgressDifference        float64     `json:"progressDifference" bson:"progressDifference"`
	PreviousBillAmount        float64     `json:"previousBillAmount" bson:"previousBillAmount"`
	NewBillAmount             float64     `json:"newBillAmount" bson:"newBillAmount"`
	AmountDifference          float64     `json:"amountDifference" bson:"amountDifference"`
	Remarks                   string      `json:"remarks,omitempty" bson:"remarks,omitempty"`
	BillDetails               BillDetails `json:"billDetails" bson:"billDetails"`
	SupportingDocuments       []FileRef   `json:"supportingDocuments" bson:"supportingDocuments"`
	UpdatedBy                 Actor       `json:"updatedBy" bson:"updatedBy"`
	CreatedAt                 time.Time   `json:"createdAt" bson:"createdAt"`
}

// 项目结构体
type Project struct {
	ID                           primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	ProjectID                    string             `json:"projectId" bson:"projectId"`
	ProjectName                  string             `json:"projectName" bson:"projectName"`
	Description                  string             `json:"description,omitempty" bson:"description,omitempty"`
	Department                   string             `json:"department" bson:"department"`
	District                     string             `json:"district" bson:"district"`
	Block                        string             `json:"block,omitempty" bson:"block,omitempty"`
	Location                     string             `json:"location,omitempty" bson:"location,omitempty"`
	Fund                         string             `json:"fund,omitempty" bson:"fund,omitempty"`
	TypeOfWork                   string             `json:"typeOfWork,omitempty" bson:"typeOfWork,omitempty"`
	ContractorName               string             `json:"contractorName" bson:"contractorName"`
	ContractorPhone              string             `json:"contractorPhone,omitempty" bson:"contractorPhone,omitempty"`
	ContractorAddress            string             `json:"contractorAddress,omitempty" bson:"contractorAddress,omitempty"`
	EstimatedCost                float64            `json:"estimatedCost,omitempty" bson:"estimatedCost,omitempty"`
	ProjectStartDate             *time.Time         `json:"projectStartDate,omitempty" bson:"projectStartDate,omitempty"`
	ProjectEndDate               *time.Time         `json:"projectEndDate,omitempty" bson:"projectEndDate,omitempty"`
	ExtensionPeriodForCompletion *time.Time         `json:"extensionPeriodForCompletion,omitempty" bson:"extensionPeriodForCompletion,omitempty"`

	// 金额与进度
	WorkValue           float64       `json:"workValue" bson:"workValue"`
	BillSubmittedAmount float64       `json:"billSubmittedAmount" bson:"billSubmittedAmount"`
	BillNumber          string        `json:"billNumber,omitempty" bson:"billNumber,omitempty"`
	PhysicalProgress    float64       `json:"physicalProgress" bson:"physicalProgress"`
	FinancialProgress   float64       `json:"financialProgress" bson:"financialProgress"`
	Status              ProjectStatus `json:"status" bson:"status"`

	ProgressUpdatesEnabled          bool `json:"progressUpdatesEnabled" bson:"progressUpdatesEnabled"`
	FinancialProgressUpdatesEnabled bool `json:"financialProgressUpdatesEnabled" bson:"financialProgressUpdatesEnabled"`

	ProgressUpdates             []ProgressLogEntry          `json:"progressUpdates" bson:"progressUpdates"`
	FinancialProgressUpdates    []FinancialProgressLogEntry `json:"financialProgressUpdates" bson:"financialProgressUpdates"`
	LastProgressUpdate          *time.Time                  `json:"lastProgressUpdate,omitempty" bson:"lastProgressUpdate,omitempty"`
	LastFinancialProgressUpdate *time.Time                  `json:"lastFinancialProgressUpdate,omitempty" bson:"lastFinancialProgressUpdate,omitempty"`

	// 乐观锁版本号，每次提交进度加一
	Version int64 `json:"version" bson:"version"`

	CreatedBy Actor     `json:"createdBy" bson:"createdBy"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// ProgressSnapshot 项目当前进度快照
type ProgressSnapshot struct {
	ID                              string        `json:"_id"`
	ProjectID                       string        `json:"projectId"`
	ProjectName                     string        `json:"projectName"`
	WorkValue                       float64       `json:"workValue"`
	BillSubmittedAmount             float64       `json:"billSubmittedAmount"`
	BillNumber                      string        `json:"billNumber,omitempty"`
	PhysicalProgress                float64       `json:"physicalProgress"`
	FinancialProgress               float64       `json:"financialProgress"`
	Status                          ProjectStatus `json:"status"`
	ProgressUpdatesEnabled          bool          `json:"progressUpdatesEnabled"`
	FinancialProgressUpdatesEnabled bool          `json:"financialProgressUpdatesEnabled"`
	TotalProgressUpdates            int           `json:"totalProgressUpdates"`
	TotalFinancialProgressUpdates   int           `json:"totalFinancialProgressUpdates"`
	LastProgressUpdate              *time.Time    `json:"lastProgressUpdate,omitempty"`
	LastFinancialProgressUpdate     *time.Time    `json:"lastFinancialProgressUpdate,omitempty"`
}

// Snapshot 生成进度快照
func (p *Project) Snapshot() ProgressSnapshot {
	return ProgressSnapshot{
		ID:                              p.ID.Hex(),
		ProjectID:                       p.ProjectID,
		ProjectName:                     p.ProjectName,
		WorkValue:                       p.WorkValue,
		BillSubmittedAmount:             p.BillSubmittedAmount,
		BillNumber:                      p.BillNumber,
		PhysicalProgress:                p.PhysicalProgress,
		FinancialProgress:               p.FinancialProgress,
		Status:                          p.Status,
		ProgressUpdatesEnabled:          p.ProgressUpdatesEnabled,
		FinancialProgressUpdatesEnabled: p.FinancialProgressUpdatesEnabled,
		TotalProgressUpdates:            len(p.ProgressUpdates),
		TotalFinancialProgressUpdates:   len(p.FinancialProgressUpdates),
		LastProgressUpdate:              p.LastProgressUpdate,
		LastFinancialProgressUpdate:     p.LastFinancialProgressUpdate,
	}
}

// CreateProjectRequest 创建项目请求
type CreateProjectRequest struct {
	ProjectID                    string     `json:"projectId" binding:"required,max=50"`
	ProjectName                  string     `json:"projectName" binding:"required,min=3,max=200"`
	Description                  string     `json:"description" binding:"max=2000"`
	Department                   string     `json:"department" binding:"required"`
	District                     string     `json:"district" binding:"required"`
	Block                        string     `json:"block"`
	Location                     string     `json:"location"`
	Fund                         string     `json:"fund"`
	TypeOfWork                   string     `json:"typeOfWork"`
	ContractorName               string     `json:"contractorName" binding:"required"`
	ContractorPhone              string     `json:"contractorPhone" binding:"omitempty,min=10,max=15"`
	ContractorAddress            string     `json:"contractorAddress"`
	EstimatedCost                float64    `json:"estimatedCost" binding:"gte=0"`
	WorkValue                    float64    `json:"workValue" binding:"gte=0"`
	BillSubmittedAmount          float64    `json:"billSubmittedAmount" binding:"gte=0"`
	BillNumber                   string     `json:"billNumber"`
	ProjectStartDate             *time.Time `json:"projectStartDate"`
	ProjectEndDate               *time.Time `json:"projectEndDate"`
	ExtensionPeriodForCompletion *time.Time `json:"extensionPeriodForCompletion"`
}

// UpdateProjectRequest 更新项目描述性字段，进度与金额字段不可在此修改
type UpdateProjectRequest struct {
	ProjectName                  *string    `json:"projectName" binding:"omitempty,min=3,max=200"`
	Description                  *string    `json:"description" binding:"omitempty,max=2000"`
	Department                   *string    `json:"department"`
	District                     *string    `json:"district"`
	Block                        *string    `json:"block"`
	Location                     *string    `json:"location"`
	Fund                         *string    `json:"fund"`
	TypeOfWork                   *string    `json:"typeOfWork"`
	ContractorName               *string    `json:"contractorName"`
	ContractorPhone              *string    `json:"contractorPhone" binding:"omitempty,min=10,max=15"`
	ContractorAddress            *string    `json:"contractorAddress"`
	EstimatedCost                *float64   `json:"estimatedCost" binding:"omitempty,gte=0"`
	ProjectStartDate             *time.Time `json:"projectStartDate"`
	ProjectEndDate               *time.Time `json:"projectEndDate"`
	ExtensionPeriodForCompletion *time.Time `json:"extensionPeriodForCompletion"`
}

// ProjectFilter 项目列表筛选条件
type ProjectFilter struct {
	Status         string
	District       string
	Department     string
	ContractorName string
	CreatedBy      string
	Search         string
	SortBy         string
	SortOrder      int
	Page           int64
	Limit          int64
}
