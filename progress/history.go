package progress

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/BerniceZTT/pmis_end/models"
)

const defaultPageSize = 10

// Page 分页后的更新记录
type Page[T any] struct {
	Entries     []T  `json:"entries"`
	TotalCount  int  `json:"totalCount"`
	TotalPages  int  `json:"totalPages"`
	CurrentPage int  `json:"currentPage"`
	PageSize    int  `json:"pageSize"`
	HasNext     bool `json:"hasNext"`
	HasPrev     bool `json:"hasPrev"`
}

// LogStats 基于整个日志的统计，与分页无关
type LogStats struct {
	EntryCount    int     `json:"entryCount"`
	TotalIncrease float64 `json:"totalIncrease"`
	TotalDecrease float64 `json:"totalDecrease"`
	AverageChange float64 `json:"averageChange"`
	DocumentCount int     `json:"documentCount"`
}

// FinancialLogStats 财务日志统计
type FinancialLogStats struct {
	LogStats
	TotalAmountIncrease float64 `json:"totalAmountIncrease"`
	TotalAmountDecrease float64 `json:"totalAmountDecrease"`
}

// PhysicalHistory 实物进度历史，按创建时间倒序分页
func PhysicalHistory(p *models.Project, page, pageSize int) Page[models.ProgressLogEntry] {
	return paginate(p.ProgressUpdates, func(e models.ProgressLogEntry) time.Time { return e.CreatedAt }, page, pageSize)
}

// FinancialHistory 财务进度历史，按创建时间倒序分页
func FinancialHistory(p *models.Project, page, pageSize int) Page[models.FinancialProgressLogEntry] {
	return paginate(p.FinancialProgressUpdates, func(e models.FinancialProgressLogEntry) time.Time { return e.CreatedAt }, page, pageSize)
}

func paginate[T any](entries []T, createdAt func(T) time.Time, page, pageSize int) Page[T] {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}

	// 倒序复制后稳定排序，同一时间戳的记录后追加的排在前面
	sorted := make([]T, len(entries))
	for i, e := range entries {
		sorted[len(entries)-1-i] = e
	}
	slices.SortStableFunc(sorted, func(a, b T) int {
		return createdAt(b).Compare(createdAt(a))
	})

	total := len(sorted)
	totalPages := (total + pageSize - 1) / pageSize
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return Page[T]{
		Entries:     sorted[start:end],
		TotalCount:  total,
		TotalPages:  totalPages,
		CurrentPage: page,
		PageSize:    pageSize,
		HasNext:     page < totalPages,
		HasPrev:     page > 1,
	}
}

// PhysicalLogStats 统计实物进度日志
func PhysicalLogStats(p *models.Project) LogStats {
	acc := newStatsAccumulator()
	for _, e := range p.ProgressUpdates {
		acc.add(e.ProgressDifference, len(e.SupportingDocuments))
	}
	return acc.result()
}

// FinancialLogStatsOf 统计财务进度日志
func FinancialLogStatsOf(p *models.Project) FinancialLogStats {
	acc := newStatsAccumulator()
	amountUp, amountDown := decimal.Zero, decimal.Zero
	for _, e := range p.FinancialProgressUpdates {
		acc.add(e.ProgressDifference, len(e.SupportingDocuments))
		d := decimal.NewFromFloat(e.AmountDifference)
		if d.IsPositive() {
			amountUp = amountUp.Add(d)
		} else {
			amountDown = amountDown.Add(d.Abs())
		}
	}
	return FinancialLogStats{
		LogStats:            acc.result(),
		TotalAmountIncrease: amountUp.InexactFloat64(),
		TotalAmountDecrease: amountDown.InexactFloat64(),
	}
}

type statsAccumulator struct {
	count     int
	docs      int
	increase  decimal.Decimal
	decrease  decimal.Decimal
	netChange decimal.Decimal
}

func newStatsAccumulator() *statsAccumulator {
	return &statsAccumulator{increase: decimal.Zero, decrease: decimal.Zero, netChange: decimal.Zero}
}

func (a *statsAccumulator) add(delta float64, docs int) {
	d := decimal.NewFromFloat(delta)
	a.count++
	a.docs += docs
	a.netChange = a.netChange.Add(d)
	if d.IsPositive() {
		a.increase = a.increase.Add(d)
	} else {
		a.decrease = a.decrease.Add(d.Abs())
	}
}

func (a *statsAccumulator) result() LogStats {
	stats := LogStats{
		EntryCount:    a.count,
		TotalIncrease: a.increase.InexactFloat64(),
		TotalDecrease: a.decrease.InexactFloat64(),
		DocumentCount: a.docs,
	}
	if a.count > 0 {
		stats.AverageChange = a.netChange.Div(decimal.NewFromInt(int64(a.count))).Round(2).InexactFloat64()
	}
	return stats
}
