package progress

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/BerniceZTT/pmis_end/models"
)

// ProgressUpdate 实物进度更新输入
type ProgressUpdate struct {
	ProposedProgress    *float64
	Remarks             string
	SupportingDocuments []models.FileRef
	Actor               models.Actor
}

// ApplyProgressUpdate 校验并应用一次实物进度更新。
// 校验失败时项目保持不变并返回 *Rejection；成功时追加日志并更新当前进度。
func ApplyProgressUpdate(p *models.Project, u ProgressUpdate, now time.Time) (*models.ProgressLogEntry, error) {
	if !p.ProgressUpdatesEnabled {
		return nil, NewRejection(ReasonUpdatesDisabled, "该项目的实物进度更新已被禁用")
	}

	if u.ProposedProgress == nil {
		return nil, NewRejection(ReasonInvalidValue, "进度值不能为空")
	}
	proposed := *u.ProposedProgress
	if !isFinite(proposed) || proposed < 0 || proposed > 100 {
		return nil, NewRejection(ReasonInvalidValue, "进度值必须在0到100之间")
	}

	current := p.PhysicalProgress
	delta := decimal.NewFromFloat(proposed).Sub(decimal.NewFromFloat(current))

	switch physicalBounds.check(delta, proposed == 100, len(u.SupportingDocuments)) {
	case exceedsDecrease:
		return nil, NewRejection(ReasonBackwardProgressNotAllowed,
			"进度不能从 %v%% 回退到 %v%%，仅允许不超过5个百分点的修正", current, proposed)
	case exceedsIncrease:
		return nil, NewRejection(ReasonUnrealisticJump,
			"单次进度增长不能超过50个百分点（当前 %v%%，提交 %v%%）", current, proposed)
	case missingEvidence:
		return nil, NewRejection(ReasonCompletionRequiresDocuments, "进度达到100%%时必须上传证明文件")
	}

	entry := models.ProgressLogEntry{
		ID:                  uuid.NewString(),
		PreviousProgress:    current,
		NewProgress:         proposed,
		ProgressDifference:  proposed - current,
		Remarks:             strings.TrimSpace(u.Remarks),
		SupportingDocuments: cloneDocuments(u.SupportingDocuments),
		UpdatedBy:           u.Actor,
		CreatedAt:           now,
	}

	p.ProgressUpdates = append(p.ProgressUpdates, entry)
	p.PhysicalProgress = proposed
	p.Status = StatusFor(proposed)
	p.LastProgressUpdate = &now
	p.UpdatedAt = now

	return &entry, nil
}

// cloneDocuments 复制文件列表，日志条目独占自己的切片
func cloneDocuments(docs []models.FileRef) []models.FileRef {
	out := make([]models.FileRef, len(docs))
	copy(out, docs)
	return out
}
