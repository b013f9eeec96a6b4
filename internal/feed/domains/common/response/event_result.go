package response

import (
	"alertx/internal/feed/domains/common/job"
	"alertx/internal/feed/errorutil"
)

const (
	EventStatusApplied = "APPLIED"
	EventStatusSkipped = "SKIPPED" // 终态或坐标未变
	EventStatusFailed  = "FAILED"
)

// EventResult 车辆事件处理结果（实现 ResultI）
type EventResult struct {
	CaseID     string           `json:"case_id"`
	Status     string           `json:"status"`
	CaseStatus string           `json:"case_status,omitempty"`
	ETAMinutes int              `json:"eta_minutes,omitempty"`
	Error      *errorutil.Error `json:"error,omitempty"`
}

// NewEventResult 创建结果
func NewEventResult() *EventResult {
	return &EventResult{}
}

// Set 实现 ResultI
func (r *EventResult) Set(meta *job.Meta, err error) {
	if r.CaseID == "" {
		r.CaseID = meta.ID
	}
	switch {
	case err != nil:
		r.Status = EventStatusFailed
		r.Error = errorutil.Wrap(err)
	case r.Status == "":
		r.Status = EventStatusApplied
	}
}

// GetStatus 实现 ResultI
func (r *EventResult) GetStatus() string {
	return r.Status
}
