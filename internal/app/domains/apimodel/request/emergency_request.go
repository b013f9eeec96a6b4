package request

import "time"

// Location 经纬度；指针用于区分 0 与缺失
type Location struct {
	Latitude  *float64 `json:"latitude" binding:"required,min=-90,max=90"`
	Longitude *float64 `json:"longitude" binding:"required,min=-180,max=180"`
}

// CreateEmergencyRequest 建单请求
type CreateEmergencyRequest struct {
	RequesterID string       `json:"requester_id" binding:"required,max=128"`
	Symptoms    SymptomInput `json:"symptoms"`
	Location    *Location    `json:"location" binding:"required"`
}

// EmergencyButtonRequest 一键求助
type EmergencyButtonRequest struct {
	RequesterID string    `json:"requester_id" binding:"required,max=128"`
	Location    *Location `json:"location" binding:"required"`
	Note        string    `json:"note" binding:"max=1000"`
}

// DispatchIntelligentRequest 使用外部分诊结果派车
type DispatchIntelligentRequest struct {
	Triage   *TriageResult `json:"triage" binding:"required"`
	Location *Location     `json:"location" binding:"required"`
}

// CancelRequest 取消
type CancelRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// LocationUpdateRequest 位置上报
type LocationUpdateRequest struct {
	Source     string     `json:"source" binding:"required,oneof=unit requester"`
	UnitID     string     `json:"unit_id" binding:"required_if=Source unit"`
	Location   *Location  `json:"location" binding:"required"`
	ReportedAt *time.Time `json:"reported_at"`
}
