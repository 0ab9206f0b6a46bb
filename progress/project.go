package progress

import (
	"fmt"
	"strings"
	"time"

	"github.com/BerniceZTT/pmis_end/models"
)

// StatusFor 根据实物进度推导项目状态
func StatusFor(physicalProgress float64) models.ProjectStatus {
	switch {
	case physicalProgress >= 100:
		return models.ProjectStatusCompleted
	case physicalProgress > 0:
		return models.ProjectStatusInProgress
	default:
		return models.ProjectStatusNotStarted
	}
}

// Initialize 初始化新建项目的进度台账
func Initialize(p *models.Project, now time.Time) error {
	if !isFinite(p.WorkValue) || p.WorkValue < 0 {
		return NewRejection(ReasonInvalidValue, "合同金额必须是非负数")
	}
	if !isFinite(p.BillSubmittedAmount) || p.BillSubmittedAmount < 0 {
		return NewRejection(ReasonInvalidValue, "账单金额必须是非负数")
	}
	if p.BillSubmittedAmount > p.WorkValue {
		return NewRejection(ReasonExceedsWorkValue,
			"账单金额 %v 不能超过合同金额 %v", p.BillSubmittedAmount, p.WorkValue)
	}

	p.BillNumber = strings.TrimSpace(p.BillNumber)
	p.PhysicalProgress = 0
	p.FinancialProgress = FinancialPercent(p.BillSubmittedAmount, p.WorkValue)
	p.Status = StatusFor(0)
	p.ProgressUpdatesEnabled = true
	p.FinancialProgressUpdatesEnabled = true
	p.ProgressUpdates = []models.ProgressLogEntry{}
	p.FinancialProgressUpdates = []models.FinancialProgressLogEntry{}
	p.LastProgressUpdate = nil
	p.LastFinancialProgressUpdate = nil
	p.Version = 0
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

// SetUpdatesEnabled 管理员开关，不做业务校验
func SetUpdatesEnabled(p *models.Project, kind models.ProgressKind, enabled bool, now time.Time) error {
	switch kind {
	case models.ProgressKindPhysical:
		p.ProgressUpdatesEnabled = enabled
	case models.ProgressKindFinancial:
		p.FinancialProgressUpdatesEnabled = enabled
	default:
		return NewRejection(ReasonInvalidValue, "未知的进度类型: %s", kind)
	}
	p.UpdatedAt = now
	return nil
}

// InvariantViolation 项目台账不一致
type InvariantViolation struct {
	ProjectID  string
	Violations []string
}

// Error 实现error接口
func (v *InvariantViolation) Error() string {
	return fmt.Sprintf("项目 %s 台账不一致: %s", v.ProjectID, strings.Join(v.Violations, "; "))
}

// CheckInvariants 检查项目台账的全部不变量
func CheckInvariants(p *models.Project) error {
	var violations []string

	if p.BillSubmittedAmount < 0 || p.BillSubmittedAmount > p.WorkValue {
		violations = append(violations, fmt.Sprintf("billSubmittedAmount=%v 超出 [0, %v]", p.BillSubmittedAmount, p.WorkValue))
	}
	if p.PhysicalProgress < 0 || p.PhysicalProgress > 100 {
		violations = append(violations, fmt.Sprintf("physicalProgress=%v 超出 [0, 100]", p.PhysicalProgress))
	}
	if p.FinancialProgress < 0 || p.FinancialProgress > 100 {
		violations = append(violations, fmt.Sprintf("financialProgress=%v 超出 [0, 100]", p.FinancialProgress))
	}
	if expected := FinancialPercent(p.BillSubmittedAmount, p.WorkValue); p.FinancialProgress != expected {
		violations = append(violations, fmt.Sprintf("financialProgress=%v 与推导值 %v 不符", p.FinancialProgress, expected))
	}

	for i, e := range p.ProgressUpdates {
		if e.ProgressDifference != e.NewProgress-e.PreviousProgress {
			violations = append(violations, fmt.Sprintf("progressUpdates[%d] 差值不一致", i))
		}
		if i > 0 && e.PreviousProgress != p.ProgressUpdates[i-1].NewProgress {
			violations = append(violations, fmt.Sprintf("progressUpdates[%d] 基线与上一条记录不衔接", i))
		}
	}
	if n := len(p.ProgressUpdates); n > 0 && p.ProgressUpdates[n-1].NewProgress != p.PhysicalProgress {
		violations = append(violations, "最后一条实物进度记录与当前进度不符")
	}

	for i, e := range p.FinancialProgressUpdates {
		if e.AmountDifference != e.NewBillAmount-e.PreviousBillAmount {
			violations = append(violations, fmt.Sprintf("financialProgressUpdates[%d] 金额差值不一致", i))
		}
		if i > 0 && e.PreviousBillAmount != p.FinancialProgressUpdates[i-1].NewBillAmount {
			violations = append(violations, fmt.Sprintf("financialProgressUpdates[%d] 基线与上一条记录不衔接", i))
		}
	}
	if n := len(p.FinancialProgressUpdates); n > 0 && p.FinancialProgressUpdates[n-1].NewBillAmount != p.BillSubmittedAmount {
		violations = append(violations, "最后一条财务进度记录与当前账单金额不符")
	}

	if len(violations) == 0 {
		return nil
	}
	return &InvariantViolation{ProjectID: p.ProjectID, Violations: violations}
}
