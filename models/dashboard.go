package models

// 图表数据项
type ChartDataItem struct {
	Name  string `json:"name" bson:"_id"`
	Value int    `json:"value" bson:"value"`
}

// ProjectSummaryStats 项目总体统计
type ProjectSummaryStats struct {
	TotalProjects            int     `json:"totalProjects" bson:"totalProjects"`
	CompletedProjects        int     `json:"completedProjects" bson:"completedProjects"`
	InProgressProjects       int     `json:"inProgressProjects" bson:"inProgressProjects"`
	NotStartedProjects       int     `json:"notStartedProjects" bson:"notStartedProjects"`
	CompletionRate           float64 `json:"completionRate" bson:"-"`
	AveragePhysicalProgress  float64 `json:"averagePhysicalProgress" bson:"averagePhysicalProgress"`
	AverageFinancialProgress float64 `json:"averageFinancialProgress" bson:"averageFinancialProgress"`
	TotalWorkValue           float64 `json:"totalWorkValue" bson:"totalWorkValue"`
	TotalBillSubmitted       float64 `json:"totalBillSubmitted" bson:"totalBillSubmitted"`
}

// ContractorStats 承包商统计
type ContractorStats struct {
	ContractorName           string  `json:"contractorName" bson:"_id"`
	ProjectCount             int     `json:"projectCount" bson:"projectCount"`
	CompletedProjects        int     `json:"completedProjects" bson:"completedProjects"`
	AveragePhysicalProgress  float64 `json:"averagePhysicalProgress" bson:"averagePhysicalProgress"`
	AverageFinancialProgress float64 `json:"averageFinancialProgress" bson:"averageFinancialProgress"`
	TotalWorkValue           float64 `json:"totalWorkValue" bson:"totalWorkValue"`
}

// DistrictStats 地区统计
type DistrictStats struct {
	District                string  `json:"district" bson:"_id"`
	ProjectCount            int     `json:"projectCount" bson:"projectCount"`
	AveragePhysicalProgress float64 `json:"averagePhysicalProgress" bson:"averagePhysicalProgress"`
	TotalWorkValue          float64 `json:"totalWorkValue" bson:"totalWorkValue"`
}

// 数据看板响应结构
type ProjectStatisticsResponse struct {
	Summary            ProjectSummaryStats `json:"summary"`
	StatusDistribution []ChartDataItem     `json:"statusDistribution"`
	ProgressBuckets    []ChartDataItem     `json:"progressBuckets"`
	TopContractors     []ContractorStats   `json:"topContractors"`
	DistrictBreakdown  []DistrictStats     `json:"districtBreakdown"`
}
