package entity

import (
	"time"

	"gorm.io/datatypes"
)

// Profile 请求方档案
type Profile struct {
	RequesterID     string         `gorm:"column:requester_id;primaryKey;type:varchar(128)"`
	Name            string         `gorm:"column:name;type:varchar(255)"`
	Age             int            `gorm:"column:age"`
	KnownConditions datatypes.JSON `gorm:"column:known_conditions;type:json"`
	Contacts        datatypes.JSON `gorm:"column:contacts;type:json"`
	CreatedAt       time.Time      `gorm:"column:created_at;not null"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;not null"`
}

// TableName 指定表名
func (Profile) TableName() string {
	return "profiles"
}
