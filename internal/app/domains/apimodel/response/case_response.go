package response

import (
	"time"

	"alertx/internal/app/domains/entity/etcase"
	"alertx/internal/app/domains/entity/etprimitive"
	"alertx/internal/app/domains/entity/ettriage"
	"alertx/internal/app/domains/entity/etunit"
)

// CaseResponse Case 快照（DTO）
type CaseResponse struct {
	ID          string                  `json:"id"`
	RequesterID string                  `json:"requester_id"`
	Status      string                  `json:"status"`
	Triage      *ettriage.TriageResult  `json:"triage"`
	Assignment  *etunit.Assignment      `json:"assignment"`
	Location    etprimitive.Coordinates `json:"location"`
	ETAMinutes  int                     `json:"eta_minutes"`
	Timeline    []etcase.TimelineEntry  `json:"timeline"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
	TerminalAt  *time.Time              `json:"terminal_at,omitempty"`
}

// ActiveCaseData 409 时返回已存在的 Case，前端据此跳转
type ActiveCaseData struct {
	ActiveCaseID string `json:"active_case_id"`
}

// HealthResponse 健康检查
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}
