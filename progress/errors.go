package progress

import (
	"errors"
	"fmt"
)

// Reason 进度更新被拒绝的原因
type Reason string

const (
	ReasonUpdatesDisabled                      Reason = "UPDATES_DISABLED"
	ReasonInvalidValue                         Reason = "INVALID_VALUE"
	ReasonBackwardProgressNotAllowed           Reason = "BACKWARD_PROGRESS_NOT_ALLOWED"
	ReasonBackwardFinancialProgressNotAllowed  Reason = "BACKWARD_FINANCIAL_PROGRESS_NOT_ALLOWED"
	ReasonUnrealisticJump                      Reason = "UNREALISTIC_JUMP"
	ReasonUnrealisticFinancialJump             Reason = "UNREALISTIC_FINANCIAL_JUMP"
	ReasonExceedsWorkValue                     Reason = "EXCEEDS_WORK_VALUE"
	ReasonCompletionRequiresDocuments          Reason = "COMPLETION_REQUIRES_DOCUMENTS"
	ReasonFinancialCompletionRequiresDocuments Reason = "FINANCIAL_COMPLETION_REQUIRES_DOCUMENTS"
	ReasonFinalBillDetailsRequired             Reason = "FINAL_BILL_DETAILS_REQUIRED"
	ReasonAggregateNotFound                    Reason = "AGGREGATE_NOT_FOUND"
	ReasonConcurrentUpdate                     Reason = "CONCURRENT_UPDATE"
	ReasonInternalFailure                      Reason = "INTERNAL_FAILURE"
)

// Rejection 业务规则拒绝，调用方决定如何映射为响应
type Rejection struct {
	Reason  Reason
	Message string
}

// Error 实现error接口
func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Reason, r.Message)
}

// NewRejection 创建拒绝错误
func NewRejection(reason Reason, format string, args ...interface{}) *Rejection {
	return &Rejection{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// ReasonOf 提取拒绝原因；非业务拒绝的错误一律视为内部错误
func ReasonOf(err error) Reason {
	if err == nil {
		return ""
	}
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej.Reason
	}
	return ReasonInternalFailure
}

// IsRejection 判断是否为业务拒绝
func IsRejection(err error) bool {
	var rej *Rejection
	return errors.As(err, &rej)
}
