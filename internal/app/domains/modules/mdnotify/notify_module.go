package mdnotify

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"alertx/internal/app/domains/entity/etcase"
	"alertx/internal/app/domains/entity/etprofile"
	"alertx/internal/common/model"
)

// JobPublisher 队列发布端，infra/mq/lmstfy.Client 实现
type JobPublisher interface {
	Publish(ctx context.Context, queue string, data interface{}) (string, error)
}

// NotifyModule 联系人告警模块
// 只负责组装 case_opened 消息并投递，推送由下游消费方完成
type NotifyModule struct {
	publisher JobPublisher
	queueName string
}

// NewNotifyModule 创建告警模块；publisher 为空时不投递
func NewNotifyModule(publisher JobPublisher, queueName string) *NotifyModule {
	return &NotifyModule{
		publisher: publisher,
		queueName: queueName,
	}
}

// Enabled 是否配置了投递队列
func (m *NotifyModule) Enabled() bool {
	return m != nil && m.publisher != nil && m.queueName != ""
}

// PublishCaseOpened 投递 case_opened 告警
// 没有档案或没有联系人时不投递，返回空 jobID
func (m *NotifyModule) PublishCaseOpened(ctx context.Context, c *etcase.Case, profile *etprofile.Profile) (string, error) {
	if !m.Enabled() || profile == nil || len(profile.Contacts) == 0 {
		return "", nil
	}

	data := BuildCaseOpened(c, profile)
	job := model.NewJob(uuid.New().String(), model.ActionCaseOpened, c.ID, data)

	jobID, err := m.publisher.Publish(ctx, m.queueName, job)
	if err != nil {
		return "", fmt.Errorf("publish case_opened for %s: %w", c.ID, err)
	}
	return jobID, nil
}

// BuildCaseOpened 组装告警内容
func BuildCaseOpened(c *etcase.Case, profile *etprofile.Profile) *model.CaseOpenedData {
	data := &model.CaseOpenedData{
		CaseID:      c.ID,
		RequesterID: c.RequesterID,
		Name:        profile.Name,
		UnitID:      c.Assignment.UnitID,
		ETAMinutes:  c.Assignment.ETAMinutes,
		Latitude:    c.Location.Latitude,
		Longitude:   c.Location.Longitude,
		OpenedAt:    c.CreatedAt.Unix(),
	}
	if c.Triage != nil {
		data.Severity = string(c.Triage.Severity)
		data.Category = string(c.Triage.Category)
	}
	for _, ct := range profile.Contacts {
		data.Contacts = append(data.Contacts, model.ContactEntry{
			Name:     ct.Name,
			Phone:    ct.Phone,
			Relation: ct.Relation,
		})
	}
	return data
}
