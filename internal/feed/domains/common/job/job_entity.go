package job

import "encoding/json"

// Job 入站消息结构，业务数据延迟到 Handler 内按动作类型解析
type Job struct {
	Payload *JobPayload `json:"payload"`
}

// JobPayload Job 负载
type JobPayload struct {
	Data *JobPayloadData `json:"data"`
}

// JobPayloadData 信封
type JobPayloadData struct {
	RequestID  string          `json:"request_id"`  // 请求 ID（TraceID）
	OrgID      string          `json:"org_id"`      // 组织 ID
	ActionType string          `json:"action_type"` // 路由键
	ID         string          `json:"id"`          // Case ID
	Data       json.RawMessage `json:"data"`
}

// Meta 元数据
type Meta struct {
	RequestID  string `json:"request_id"`
	OrgID      string `json:"org_id"`
	ActionType string `json:"action_type"`
	ID         string `json:"id"`
}
