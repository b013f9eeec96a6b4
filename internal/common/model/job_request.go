package model

// Job 队列标准消息，payload.data 为信封，data.data 为业务数据
// 入站（unit_location / unit_status）与出站（case_opened）共用
type Job struct {
	Payload JobPayload `json:"payload"`
}

// JobPayload Job 负载
type JobPayload struct {
	Data JobData `json:"data"`
}

// JobData 信封
type JobData struct {
	RequestID  string      `json:"request_id"`  // 请求 ID（全链路追踪）
	OrgID      string      `json:"org_id"`      // 组织 ID，固定 "0"
	ActionType string      `json:"action_type"` // 路由键
	ID         string      `json:"id"`          // Case ID
	Data       interface{} `json:"data"`
}

// 动作类型
const (
	ActionUnitLocation = "unit_location"
	ActionUnitStatus   = "unit_status"
	ActionCaseOpened   = "case_opened"
)

// NewJob 组装标准消息
func NewJob(requestID, actionType, id string, data interface{}) *Job {
	return &Job{Payload: JobPayload{Data: JobData{
		RequestID:  requestID,
		OrgID:      "0",
		ActionType: actionType,
		ID:         id,
		Data:       data,
	}}}
}

// UnitLocationData 车载终端位置上报
type UnitLocationData struct {
	CaseID     string  `json:"case_id"`
	UnitID     string  `json:"unit_id"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	ReportedAt int64   `json:"reported_at"` // Unix 秒，可选
}

// UnitStatusData 车组状态确认，event 为 accept / pickup / arrive / cancel
type UnitStatusData struct {
	CaseID string `json:"case_id"`
	UnitID string `json:"unit_id"`
	Event  string `json:"event"`
	Note   string `json:"note,omitempty"`
}

// CaseOpenedData 联系人告警
type CaseOpenedData struct {
	CaseID      string         `json:"case_id"`
	RequesterID string         `json:"requester_id"`
	Name        string         `json:"name,omitempty"`
	Severity    string         `json:"severity,omitempty"`
	Category    string         `json:"category,omitempty"`
	UnitID      string         `json:"unit_id"`
	ETAMinutes  int            `json:"eta_minutes"`
	Latitude    float64        `json:"latitude"`
	Longitude   float64        `json:"longitude"`
	Contacts    []ContactEntry `json:"contacts"`
	OpenedAt    int64          `json:"opened_at"`
}

// ContactEntry 告警接收人
type ContactEntry struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Relation string `json:"relation,omitempty"`
}
