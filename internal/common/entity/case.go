package entity

import (
	"time"

	"gorm.io/datatypes"
)

// Case 急救单持久化模型
type Case struct {
	ID          string `gorm:"column:id;primaryKey;type:varchar(64)"`
	RequesterID string `gorm:"column:requester_id;type:varchar(128);not null;index:idx_requester_status"`

	// 分诊与派车快照
	Triage     datatypes.JSON `gorm:"column:triage;type:json"`
	Assignment datatypes.JSON `gorm:"column:assignment;type:json;not null"`

	// 请求方位置
	Latitude  float64 `gorm:"column:latitude;not null"`
	Longitude float64 `gorm:"column:longitude;not null"`

	Status string `gorm:"column:status;type:varchar(16);not null;default:'pending';index:idx_requester_status"`

	// 时间戳
	CreatedAt  time.Time  `gorm:"column:created_at;not null;index:idx_created_at"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;not null"`
	TerminalAt *time.Time `gorm:"column:terminal_at"`
}

// TableName 指定表名
func (Case) TableName() string {
	return "cases"
}

// CaseTimelineEntry 时间线条目，只追加
type CaseTimelineEntry struct {
	ID     string    `gorm:"column:id;primaryKey;type:varchar(32)"`
	CaseID string    `gorm:"column:case_id;type:varchar(64);not null;index:idx_case_seq"`
	Seq    int       `gorm:"column:seq;not null;index:idx_case_seq"`
	Status string    `gorm:"column:status;type:varchar(16);not null"`
	Note   string    `gorm:"column:note;type:varchar(512)"`
	At     time.Time `gorm:"column:at;not null"`
}

// TableName 指定表名
func (CaseTimelineEntry) TableName() string {
	return "case_timeline"
}
