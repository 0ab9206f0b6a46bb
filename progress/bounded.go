package progress

import (
	"math"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)

	// 实物进度：回退不超过5个百分点，单次增长不超过50个百分点
	physicalBounds = boundedUpdate{
		maxDecrease:          decimal.NewFromInt(5),
		maxIncrease:          decimal.NewFromInt(50),
		requireEvidenceAtMax: true,
	}

	// 财务进度：同样的阈值，但以合同金额的百分比计量
	financialBounds = boundedUpdate{
		maxDecrease:          decimal.NewFromInt(5),
		maxIncrease:          decimal.NewFromInt(50),
		requireEvidenceAtMax: true,
	}
)

type boundVerdict int

const (
	withinBounds boundVerdict = iota
	exceedsDecrease
	exceedsIncrease
	missingEvidence
)

// boundedUpdate 有界增量校验
type boundedUpdate struct {
	maxDecrease          decimal.Decimal
	maxIncrease          decimal.Decimal
	requireEvidenceAtMax bool
}

// check delta 与阈值同量纲；atMax 表示本次更新达到完成状态
func (b boundedUpdate) check(delta decimal.Decimal, atMax bool, evidence int) boundVerdict {
	if delta.IsNegative() && delta.Abs().GreaterThan(b.maxDecrease) {
		return exceedsDecrease
	}
	if delta.GreaterThan(b.maxIncrease) {
		return exceedsIncrease
	}
	if b.requireEvidenceAtMax && atMax && evidence == 0 {
		return missingEvidence
	}
	return withinBounds
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// percentOf 计算 amount 占 total 的百分比，total 为0时返回0
func percentOf(amount, total decimal.Decimal) decimal.Decimal {
	if !total.IsPositive() {
		return decimal.Zero
	}
	return amount.Mul(hundred).Div(total)
}

// FinancialPercent 根据已提交账单金额与合同金额计算财务进度（四舍五入取整）
func FinancialPercent(billSubmittedAmount, workValue float64) float64 {
	if !isFinite(billSubmittedAmount) || !isFinite(workValue) || workValue <= 0 {
		return 0
	}
	pct := percentOf(decimal.NewFromFloat(billSubmittedAmount), decimal.NewFromFloat(workValue))
	return pct.Round(0).InexactFloat64()
}
