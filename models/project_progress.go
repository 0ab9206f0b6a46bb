package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActivityRecord 跨项目的进度变更流水
type ActivityRecord struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	ProjectObjectID primitive.ObjectID `bson:"projectObjectId" json:"projectObjectId"`
	ProjectID       string             `bson:"projectId" json:"projectId"`
	ProjectName     string             `bson:"projectName" json:"projectName"`
	Kind            ProgressKind       `bson:"kind" json:"kind"`
	EntryID         string             `bson:"entryId" json:"entryId"`
	Previous        float64            `bson:"previous" json:"previous"`
	New             float64            `bson:"new" json:"new"`
	Difference      float64            `bson:"difference" json:"difference"`
	AmountChange    float64            `bson:"amountChange,omitempty" json:"amountChange,omitempty"`
	DocumentCount   int                `bson:"documentCount" json:"documentCount"`
	UpdatedBy       Actor              `bson:"updatedBy" json:"updatedBy"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
}

// ActivityFilter 进度流水筛选条件
type ActivityFilter struct {
	ProjectObjectID *primitive.ObjectID
	Kind            ProgressKind
	StartDate       *time.Time
	EndDate         *time.Time
	Page            int64
	Limit           int64
}
