package progress

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/BerniceZTT/pmis_end/models"
)

// FinancialUpdate 财务进度更新输入
type FinancialUpdate struct {
	ProposedBillAmount  *float64
	Remarks             string
	BillDetails         models.BillDetails
	SupportingDocuments []models.FileRef
	Actor               models.Actor
}

// ApplyFinancialUpdate 校验并应用一次财务进度更新。
// 财务进度始终由账单金额与合同金额推导，不单独写入。
func ApplyFinancialUpdate(p *models.Project, u FinancialUpdate, now time.Time) (*models.FinancialProgressLogEntry, error) {
	if !p.FinancialProgressUpdatesEnabled {
		return nil, NewRejection(ReasonUpdatesDisabled, "该项目的财务进度更新已被禁用")
	}

	if u.ProposedBillAmount == nil {
		return nil, NewRejection(ReasonInvalidValue, "账单金额不能为空")
	}
	proposed := *u.ProposedBillAmount
	if !isFinite(proposed) || proposed < 0 {
		return nil, NewRejection(ReasonInvalidValue, "账单金额必须是非负数")
	}

	if proposed > p.WorkValue {
		return nil, NewRejection(ReasonExceedsWorkValue,
			"账单金额 %v 不能超过合同金额 %v", proposed, p.WorkValue)
	}

	current := p.BillSubmittedAmount
	workValue := decimal.NewFromFloat(p.WorkValue)
	amountDelta := decimal.NewFromFloat(proposed).Sub(decimal.NewFromFloat(current))
	newFinancialProgress := FinancialPercent(proposed, p.WorkValue)
	billNumber := strings.TrimSpace(u.BillDetails.BillNumber)

	switch financialBounds.check(percentOf(amountDelta, workValue), newFinancialProgress == 100, len(u.SupportingDocuments)) {
	case exceedsDecrease:
		return nil, NewRejection(ReasonBackwardFinancialProgressNotAllowed,
			"账单金额从 %v 回退到 %v 超过合同金额的5%%", current, proposed)
	case exceedsIncrease:
		return nil, NewRejection(ReasonUnrealisticFinancialJump,
			"单次账单金额增长不能超过合同金额的50%%（当前 %v，提交 %v）", current, proposed)
	case missingEvidence:
		return nil, NewRejection(ReasonFinancialCompletionRequiresDocuments, "财务进度达到100%%时必须上传证明文件")
	}
	if newFinancialProgress == 100 && billNumber == "" {
		return nil, NewRejection(ReasonFinalBillDetailsRequired, "财务进度达到100%%时必须填写最终账单编号")
	}

	previousFinancialProgress := FinancialPercent(current, p.WorkValue)
	details := u.BillDetails
	details.BillNumber = billNumber
	details.BillDescription = strings.TrimSpace(details.BillDescription)

	entry := models.FinancialProgressLogEntry{
		ID:                        uuid.NewString(),
		PreviousFinancialProgress: previousFinancialProgress,
		NewFinancialProgress:      newFinancialProgress,
		ProgressDifference:        newFinancialProgress - previousFinancialProgress,
		PreviousBillAmount:        current,
		NewBillAmount:             proposed,
		AmountDifference:          proposed - current,
		Remarks:                   strings.TrimSpace(u.Remarks),
		BillDetails:               details,
		SupportingDocuments:       cloneDocuments(u.SupportingDocuments),
		UpdatedBy:                 u.Actor,
		CreatedAt:                 now,
	}

	p.FinancialProgressUpdates = append(p.FinancialProgressUpdates, entry)
	p.BillSubmittedAmount = proposed
	p.FinancialProgress = newFinancialProgress
	if billNumber != "" {
		p.BillNumber = billNumber
	}
	p.LastFinancialProgressUpdate = &now
	p.UpdatedAt = now

	return &entry, nil
}
