// Package repotest provides in-memory implementations of the repository
// interfaces for service and controller tests.
package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/BerniceZTT/pmis_end/models"
	"github.com/BerniceZTT/pmis_end/repository"
)

// Store 内存中的项目、进度流水与统计存储
type Store struct {
	mu         sync.Mutex
	projects   map[primitive.ObjectID]*models.Project
	activities []models.ActivityRecord

	// BeforeCommit 在每次版本校验前调用，测试用来制造并发冲突
	BeforeCommit func(id primitive.ObjectID)
	// CommitErr 非nil时所有提交直接失败
	CommitErr error
	// Commits 成功提交次数
	Commits int
}

var (
	_ repository.ProjectStore  = (*Store)(nil)
	_ repository.ActivityStore = (*Store)(nil)
	_ repository.StatsStore    = (*Store)(nil)
)

// NewStore 创建空存储
func NewStore() *Store {
	return &Store{projects: make(map[primitive.ObjectID]*models.Project)}
}

func (s *Store) Create(_ context.Context, project *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.projects {
		if p.ProjectID == project.ProjectID {
			return repository.ErrDuplicateKey
		}
	}
	if project.ID.IsZero() {
		project.ID = primitive.NewObjectID()
	}
	s.projects[project.ID] = cloneProject(project)
	return nil
}

func (s *Store) FindByID(_ context.Context, id primitive.ObjectID) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[id]
	if !ok {
		return nil, repository.ErrProjectNotFound
	}
	return cloneProject(p), nil
}

func (s *Store) FindByProjectID(_ context.Context, projectID string) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.projects {
		if p.ProjectID == projectID {
			return cloneProject(p), nil
		}
	}
	return nil, repository.ErrProjectNotFound
}

func (s *Store) List(_ context.Context, filter models.ProjectFilter) ([]models.Project, int64, error) {
	s.mu.Lock()
	matched := s.match(filter)
	s.mu.Unlock()

	desc := filter.SortOrder != 1
	sort.SliceStable(matched, func(i, j int) bool {
		if desc {
			return lessBy(filter.SortBy, &matched[j], &matched[i])
		}
		return lessBy(filter.SortBy, &matched[i], &matched[j])
	})

	total := int64(len(matched))
	start, end := window(total, filter.Page, filter.Limit)
	out := make([]models.Project, 0, end-start)
	for _, p := range matched[start:end] {
		p.ProgressUpdates = nil
		p.FinancialProgressUpdates = nil
		out = append(out, p)
	}
	return out, total, nil
}

func (s *Store) match(filter models.ProjectFilter) []models.Project {
	search := strings.ToLower(filter.Search)
	var out []models.Project
	for _, p := range s.projects {
		if filter.Status != "" && string(p.Status) != filter.Status {
			continue
		}
		if filter.District != "" && p.District != filter.District {
			continue
		}
		if filter.Department != "" && p.Department != filter.Department {
			continue
		}
		if filter.ContractorName != "" && !containsFold(p.ContractorName, filter.ContractorName) {
			continue
		}
		if filter.CreatedBy != "" && p.CreatedBy.ID != filter.CreatedBy {
			continue
		}
		if search != "" && !containsFold(p.ProjectName, search) && !containsFold(p.ProjectID, search) &&
			!containsFold(p.ContractorName, search) {
			continue
		}
		out = append(out, *cloneProject(p))
	}
	return out
}

func lessBy(field string, a, b *models.Project) bool {
	switch field {
	case "projectName":
		return a.ProjectName < b.ProjectName
	case "physicalProgress":
		return a.PhysicalProgress < b.PhysicalProgress
	case "financialProgress":
		return a.FinancialProgress < b.FinancialProgress
	case "workValue":
		return a.WorkValue < b.WorkValue
	default:
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID.Hex() < b.ID.Hex()
		}
		return a.CreatedAt.Before(b.CreatedAt)
	}
}

func (s *Store) UpdateDetails(_ context.Context, project *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[project.ID]
	if !ok {
		return repository.ErrProjectNotFound
	}
	p.ProjectName = project.ProjectName
	p.Description = project.Description
	p.Department = project.Department
	p.District = project.District
	p.Block = project.Block
	p.Location = project.Location
	p.Fund = project.Fund
	p.TypeOfWork = project.TypeOfWork
	p.ContractorName = project.ContractorName
	p.ContractorPhone = project.ContractorPhone
	p.ContractorAddress = project.ContractorAddress
	p.EstimatedCost = project.EstimatedCost
	p.ProjectStartDate = project.ProjectStartDate
	p.ProjectEndDate = project.ProjectEndDate
	p.ExtensionPeriodForCompletion = project.ExtensionPeriodForCompletion
	p.UpdatedAt = project.UpdatedAt
	return nil
}

func (s *Store) CommitProgress(_ context.Context, commit repository.ProgressCommit) error {
	return s.commit(commit.Project.ID, commit.ExpectedVersion, commit.Activity, func(p *models.Project) {
		src := commit.Project
		p.PhysicalProgress = src.PhysicalProgress
		p.Status = src.Status
		p.LastProgressUpdate = src.LastProgressUpdate
		p.UpdatedAt = src.UpdatedAt
		p.ProgressUpdates = append(p.ProgressUpdates, commit.Entry)
	})
}

func (s *Store) CommitFinancialProgress(_ context.Context, commit repository.FinancialCommit) error {
	return s.commit(commit.Project.ID, commit.ExpectedVersion, commit.Activity, func(p *models.Project) {
		src := commit.Project
		p.BillSubmittedAmount = src.BillSubmittedAmount
		p.BillNumber = src.BillNumber
		p.FinancialProgress = src.FinancialProgress
		p.LastFinancialProgressUpdate = src.LastFinancialProgressUpdate
		p.UpdatedAt = src.UpdatedAt
		p.FinancialProgressUpdates = append(p.FinancialProgressUpdates, commit.Entry)
	})
}

func (s *Store) commit(id primitive.ObjectID, version int64, activity *models.ActivityRecord, apply func(p *models.Project)) error {
	if s.BeforeCommit != nil {
		s.BeforeCommit(id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.CommitErr != nil {
		return s.CommitErr
	}
	p, ok := s.projects[id]
	if !ok {
		return repository.ErrProjectNotFound
	}
	if p.Version != version {
		return repository.ErrVersionConflict
	}

	apply(p)
	p.Version++
	s.Commits++
	if activity != nil {
		record := *activity
		if record.ID.IsZero() {
			record.ID = primitive.NewObjectID()
		}
		s.activities = append(s.activities, record)
	}
	return nil
}

func (s *Store) SetUpdatesEnabled(_ context.Context, id primitive.ObjectID, kind models.ProgressKind, enabled bool, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[id]
	if !ok {
		return repository.ErrProjectNotFound
	}
	if kind == models.ProgressKindFinancial {
		p.FinancialProgressUpdatesEnabled = enabled
	} else {
		p.ProgressUpdatesEnabled = enabled
	}
	p.UpdatedAt = now
	p.Version++
	return nil
}

// Put 直接写入项目，绕过校验，用于构造测试数据
func (s *Store) Put(project *models.Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if project.ID.IsZero() {
		project.ID = primitive.NewObjectID()
	}
	s.projects[project.ID] = cloneProject(project)
}

// Activities 返回已写入的进度流水副本
func (s *Store) Activities() []models.ActivityRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ActivityRecord(nil), s.activities...)
}

func (s *Store) ListActivity(_ context.Context, filter models.ActivityFilter) ([]models.ActivityRecord, int64, error) {
	s.mu.Lock()
	var matched []models.ActivityRecord
	for _, a := range s.activities {
		if filter.ProjectObjectID != nil && a.ProjectObjectID != *filter.ProjectObjectID {
			continue
		}
		if filter.Kind != "" && a.Kind != filter.Kind {
			continue
		}
		if filter.StartDate != nil && a.CreatedAt.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && a.CreatedAt.After(*filter.EndDate) {
			continue
		}
		matched = append(matched, a)
	}
	s.mu.Unlock()

	// 新的在前，插入顺序作为同一时间戳的次序
	for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
		matched[i], matched[j] = matched[j], matched[i]
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start, end := window(total, filter.Page, filter.Limit)
	return append([]models.ActivityRecord{}, matched[start:end]...), total, nil
}

func (s *Store) Summary(_ context.Context, filter models.ProjectFilter) (models.ProjectSummaryStats, error) {
	s.mu.Lock()
	projects := s.match(filter)
	s.mu.Unlock()

	var out models.ProjectSummaryStats
	for _, p := range projects {
		out.TotalProjects++
		switch p.Status {
		case models.ProjectStatusCompleted:
			out.CompletedProjects++
		case models.ProjectStatusInProgress:
			out.InProgressProjects++
		default:
			out.NotStartedProjects++
		}
		out.AveragePhysicalProgress += p.PhysicalProgress
		out.AverageFinancialProgress += p.FinancialProgress
		out.TotalWorkValue += p.WorkValue
		out.TotalBillSubmitted += p.BillSubmittedAmount
	}
	if out.TotalProjects > 0 {
		out.AveragePhysicalProgress /= float64(out.TotalProjects)
		out.AverageFinancialProgress /= float64(out.TotalProjects)
	}
	return out, nil
}

func (s *Store) StatusDistribution(_ context.Context, filter models.ProjectFilter) ([]models.ChartDataItem, error) {
	s.mu.Lock()
	projects := s.match(filter)
	s.mu.Unlock()

	counts := map[string]int{}
	for _, p := range projects {
		counts[string(p.Status)]++
	}
	out := []models.ChartDataItem{}
	for name, n := range counts {
		out = append(out, models.ChartDataItem{Name: name, Value: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) ProgressBuckets(_ context.Context, filter models.ProjectFilter) ([]models.ChartDataItem, error) {
	s.mu.Lock()
	projects := s.match(filter)
	s.mu.Unlock()

	counts := map[string]int{}
	for _, p := range projects {
		labels := repository.ProgressBucketLabels
		switch {
		case p.PhysicalProgress < 25:
			counts[labels[0]]++
		case p.PhysicalProgress < 50:
			counts[labels[1]]++
		case p.PhysicalProgress < 75:
			counts[labels[2]]++
		case p.PhysicalProgress < 100:
			counts[labels[3]]++
		default:
			counts[labels[4]]++
		}
	}
	var items []models.ChartDataItem
	for name, n := range counts {
		items = append(items, models.ChartDataItem{Name: name, Value: n})
	}
	return repository.FillProgressBuckets(items), nil
}

func (s *Store) TopContractors(_ context.Context, filter models.ProjectFilter, limit int) ([]models.ContractorStats, error) {
	s.mu.Lock()
	projects := s.match(filter)
	s.mu.Unlock()

	byName := map[string]*models.ContractorStats{}
	for _, p := range projects {
		cs, ok := byName[p.ContractorName]
		if !ok {
			cs = &models.ContractorStats{ContractorName: p.ContractorName}
			byName[p.ContractorName] = cs
		}
		cs.ProjectCount++
		if p.Status == models.ProjectStatusCompleted {
			cs.CompletedProjects++
		}
		cs.AveragePhysicalProgress += p.PhysicalProgress
		cs.AverageFinancialProgress += p.FinancialProgress
		cs.TotalWorkValue += p.WorkValue
	}

	out := []models.ContractorStats{}
	for _, cs := range byName {
		cs.AveragePhysicalProgress /= float64(cs.ProjectCount)
		cs.AverageFinancialProgress /= float64(cs.ProjectCount)
		out = append(out, *cs)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProjectCount != out[j].ProjectCount {
			return out[i].ProjectCount > out[j].ProjectCount
		}
		return out[i].ContractorName < out[j].ContractorName
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) DistrictBreakdown(_ context.Context, filter models.ProjectFilter) ([]models.DistrictStats, error) {
	s.mu.Lock()
	projects := s.match(filter)
	s.mu.Unlock()

	byDistrict := map[string]*models.DistrictStats{}
	for _, p := range projects {
		ds, ok := byDistrict[p.District]
		if !ok {
			ds = &models.DistrictStats{District: p.District}
			byDistrict[p.District] = ds
		}
		ds.ProjectCount++
		ds.AveragePhysicalProgress += p.PhysicalProgress
		ds.TotalWorkValue += p.WorkValue
	}

	out := []models.DistrictStats{}
	for _, ds := range byDistrict {
		ds.AveragePhysicalProgress /= float64(ds.ProjectCount)
		out = append(out, *ds)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].District < out[j].District })
	return out, nil
}

func cloneProject(p *models.Project) *models.Project {
	cp := *p
	if p.ProgressUpdates != nil {
		cp.ProgressUpdates = make([]models.ProgressLogEntry, len(p.ProgressUpdates))
		for i, e := range p.ProgressUpdates {
			e.SupportingDocuments = append([]models.FileRef{}, e.SupportingDocuments...)
			cp.ProgressUpdates[i] = e
		}
	}
	if p.FinancialProgressUpdates != nil {
		cp.FinancialProgressUpdates = make([]models.FinancialProgressLogEntry, len(p.FinancialProgressUpdates))
		for i, e := range p.FinancialProgressUpdates {
			e.SupportingDocuments = append([]models.FileRef{}, e.SupportingDocuments...)
			cp.FinancialProgressUpdates[i] = e
		}
	}
	return &cp
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// window 计算分页区间
func window(total, page, limit int64) (int64, int64) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		return 0, total
	}
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return start, end
}
