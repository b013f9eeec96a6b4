package etprofile

import (
	"errors"

	"alertx/internal/app/domains/entity/ettriage"
)

// 错误定义
var (
	ErrInvalidRequesterID = errors.New("requester ID cannot be empty")
)

// Contact 紧急联系人
type Contact struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Relation string `json:"relation,omitempty"`
}

// Profile 请求方档案（外部维护，这里只读）
type Profile struct {
	RequesterID     string
	Name            string
	Age             int
	KnownConditions []string
	Contacts        []Contact
}

// NewProfile 创建档案（工厂方法）
func NewProfile(requesterID, name string, age int, conditions []string, contacts []Contact) (*Profile, error) {
	if requesterID == "" {
		return nil, ErrInvalidRequesterID
	}
	return &Profile{
		RequesterID:     requesterID,
		Name:            name,
		Age:             age,
		KnownConditions: conditions,
		Contacts:        contacts,
	}, nil
}

// PatientContext 转换为分诊用的患者背景
func (p *Profile) PatientContext() *ettriage.PatientContext {
	if p == nil {
		return nil
	}
	return &ettriage.PatientContext{
		Age:             p.Age,
		KnownConditions: append([]string(nil), p.KnownConditions...),
	}
}
