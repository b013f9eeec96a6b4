package svemergency

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"alertx/internal/app/domains/entity/etcase"
	"alertx/internal/app/domains/entity/etprimitive"
	"alertx/internal/app/domains/entity/etprofile"
	"alertx/internal/app/domains/entity/ettriage"
	"alertx/internal/app/domains/entity/etunit"
	"alertx/internal/app/domains/modules/mddispatch"
	"alertx/internal/app/domains/modules/mdlifecycle"
	"alertx/internal/app/domains/modules/mdnotify"
	"alertx/internal/app/domains/modules/mdprofile"
	"alertx/internal/app/domains/services/svtriage"
	"alertx/internal/app/pkg/errorx"
	"alertx/internal/app/pkg/logger"
)

// UrgencyButton 一键求助使用的自述紧急程度
const UrgencyButton = "immediate"

// EmergencyService 急救单服务，负责 分诊 -> 派车 -> 建单 的编排
type EmergencyService struct {
	triage     *svtriage.TriageService
	dispatcher *mddispatch.Dispatcher
	lifecycle  *mdlifecycle.Manager
	profiles   *mdprofile.ProfileModule
	notify     *mdnotify.NotifyModule
	logger     logger.Logger
}

// NewEmergencyService 创建急救单服务
func NewEmergencyService(
	triage *svtriage.TriageService,
	dispatcher *mddispatch.Dispatcher,
	lifecycle *mdlifecycle.Manager,
	profiles *mdprofile.ProfileModule,
	notify *mdnotify.NotifyModule,
	log logger.Logger,
) *EmergencyService {
	return &EmergencyService{
		triage:     triage,
		dispatcher: dispatcher,
		lifecycle:  lifecycle,
		profiles:   profiles,
		notify:     notify,
		logger:     log,
	}
}

// CreateCaseParams 建单参数
type CreateCaseParams struct {
	RequesterID string
	Input       *ettriage.SymptomInput
	Location    etprimitive.Coordinates
}

// CreateCase 建单（完整业务流程）
// 1. 活跃名额预检，避免无效派车
// 2. 档案补齐患者背景
// 3. 分诊（失败则降级，不报错）
// 4. 派车
// 5. 建单并占用名额
// 6. 投递联系人告警
func (s *EmergencyService) CreateCase(ctx context.Context, p CreateCaseParams) (*etcase.Case, error) {
	if strings.TrimSpace(p.RequesterID) == "" {
		return nil, etcase.ErrInvalidRequesterID
	}
	if err := p.Location.Validate(); err != nil {
		return nil, err
	}

	if active, err := s.lifecycle.ActiveCase(ctx, p.RequesterID); err == nil {
		return nil, &errorx.ActiveCaseError{CaseID: active.ID, RequesterID: p.RequesterID}
	} else if !errors.Is(err, errorx.ErrCaseNotFound) {
		return nil, fmt.Errorf("check active case failed: %w", err)
	}

	profile, err := s.profiles.Lookup(ctx, p.RequesterID)
	if err != nil {
		s.logger.Warnf(ctx, "[EmergencyService] profile lookup failed: requester=%s, error=%v", p.RequesterID, err)
	}
	input := mdprofile.FillPatient(p.Input, profile)

	triage, err := s.triage.Classify(ctx, input)
	if err != nil {
		s.logger.Warnf(ctx, "[EmergencyService] classification failed, dispatching degraded: %v", err)
		triage = nil
	}

	assignment, err := s.dispatcher.Dispatch(ctx, triage, p.Location)
	if err != nil {
		return nil, fmt.Errorf("dispatch failed: %w", err)
	}

	c, err := s.lifecycle.Open(ctx, mdlifecycle.OpenParams{
		CaseID:      uuid.New().String(),
		RequesterID: p.RequesterID,
		Triage:      triage,
		Assignment:  assignment,
		Location:    p.Location,
	})
	if err != nil {
		s.dispatcher.Release(ctx, assignment)
		return nil, err
	}

	s.alertContacts(ctx, c, profile)
	return c, nil
}

// EmergencyButton 一键求助：无需描述，按最高自述紧急程度分诊
func (s *EmergencyService) EmergencyButton(ctx context.Context, requesterID, note string, location etprimitive.Coordinates) (*etcase.Case, error) {
	return s.CreateCase(ctx, CreateCaseParams{
		RequesterID: requesterID,
		Input: &ettriage.SymptomInput{
			Description: note,
			Urgency:     UrgencyButton,
		},
		Location: location,
	})
}

// DispatchIntelligent 使用外部预计算的分诊结果给出派车建议，不建单也不占用车辆
func (s *EmergencyService) DispatchIntelligent(ctx context.Context, triage *ettriage.TriageResult, location etprimitive.Coordinates) (*etunit.Assignment, error) {
	if err := triage.Validate(); err != nil {
		return nil, err
	}
	if err := location.Validate(); err != nil {
		return nil, err
	}
	return s.dispatcher.Recommend(ctx, triage, location)
}

// GetCase 查询快照
func (s *EmergencyService) GetCase(ctx context.Context, caseID string) (*etcase.Case, error) {
	return s.lifecycle.Get(ctx, caseID)
}

// ActiveCase 请求方当前的活跃 Case
func (s *EmergencyService) ActiveCase(ctx context.Context, requesterID string) (*etcase.Case, error) {
	return s.lifecycle.ActiveCase(ctx, requesterID)
}

// Cancel 取消，原因必填
func (s *EmergencyService) Cancel(ctx context.Context, caseID, reason string) (*etcase.Case, error) {
	return s.lifecycle.Cancel(ctx, caseID, strings.TrimSpace(reason))
}

// Confirm 车组确认：accept / pickup / arrive
func (s *EmergencyService) Confirm(ctx context.Context, caseID string, event etcase.Event) (*etcase.Case, error) {
	if event == etcase.EventCancel {
		return nil, fmt.Errorf("cancel is not a unit confirmation")
	}
	return s.lifecycle.Transition(ctx, caseID, event, "")
}

// alertContacts 告警失败只记录日志，不影响建单结果
func (s *EmergencyService) alertContacts(ctx context.Context, c *etcase.Case, profile *etprofile.Profile) {
	jobID, err := s.notify.PublishCaseOpened(ctx, c, profile)
	if err != nil {
		s.logger.Warnf(ctx, "[EmergencyService] publish contact alert failed: case=%s, error=%v", c.ID, err)
		return
	}
	if jobID != "" {
		s.logger.Infof(ctx, "[EmergencyService] contact alert queued: case=%s, job=%s", c.ID, jobID)
	}
}
