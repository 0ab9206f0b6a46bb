package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MeasurementBook 计量簿
type MeasurementBook struct {
	ID             primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	Project        primitive.ObjectID `json:"project" bson:"project"`
	ProjectID      string             `json:"projectId" bson:"projectId"`
	ProjectName    string             `json:"projectName" bson:"projectName"`
	Description    string             `json:"description" bson:"description"`
	Remarks        string             `json:"remarks,omitempty" bson:"remarks,omitempty"`
	UploadedFile   FileRef            `json:"uploadedFile" bson:"uploadedFile"`
	CreatedBy      Actor              `json:"createdBy" bson:"createdBy"`
	LastModifiedBy *Actor             `json:"lastModifiedBy,omitempty" bson:"lastModifiedBy,omitempty"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// MeasurementBookRequest 创建/更新计量簿表单
type MeasurementBookRequest struct {
	ProjectID   string `form:"projectId"`
	Description string `form:"description" binding:"omitempty,min=3,max=1000"`
	Remarks     string `form:"remarks" binding:"max=500"`
}

// MeasurementBookFilter 计量簿列表筛选
type MeasurementBookFilter struct {
	Project *primitive.ObjectID
	Search  string
	Page    int64
	Limit   int64
}
