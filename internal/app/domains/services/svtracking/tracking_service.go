package svtracking

import (
	"context"
	"fmt"
	"time"

	"alertx/internal/app/domains/entity/etcase"
	"alertx/internal/app/domains/entity/etprimitive"
	"alertx/internal/app/domains/modules/mdlifecycle"
	"alertx/internal/app/domains/modules/mdtracking"
	"alertx/internal/app/domains/repo/rpunit"
	"alertx/internal/app/pkg/logger"
)

// TrackingService 位置跟踪服务
// 职责：
// 1. 处理车辆/请求方位置上报与车辆状态确认（来自 HTTP 或队列）
// 2. 同步车辆池位置
// 3. 对外提供推送订阅与长轮询（Smart Wait）
type TrackingService struct {
	lifecycle *mdlifecycle.Manager
	feed      mdtracking.Feed
	pool      rpunit.UnitPool
	maxWait   time.Duration
	logger    logger.Logger
}

// NewTrackingService 创建跟踪服务；maxWait 为长轮询等待上限
func NewTrackingService(
	lifecycle *mdlifecycle.Manager,
	feed mdtracking.Feed,
	pool rpunit.UnitPool,
	maxWait time.Duration,
	log logger.Logger,
) *TrackingService {
	return &TrackingService{
		lifecycle: lifecycle,
		feed:      feed,
		pool:      pool,
		maxWait:   maxWait,
		logger:    log,
	}
}

// ReportLocation 折叠一次位置上报
func (s *TrackingService) ReportLocation(ctx context.Context, upd etcase.LocationUpdate) (*etcase.LocationEvent, error) {
	ev, changed, err := s.lifecycle.ApplyLocation(ctx, upd)
	if err != nil {
		return nil, err
	}

	// 车辆池位置同步失败不影响 Case，下一次上报会覆盖
	if changed && upd.Source == etcase.SourceUnit && upd.UnitID != "" && s.pool != nil {
		if err := s.pool.UpdatePosition(ctx, upd.UnitID, upd.Coordinates); err != nil {
			s.logger.Warnf(logger.WithCaseID(ctx, upd.CaseID), "[TrackingService] refresh pool position failed: unit=%s, error=%v", upd.UnitID, err)
		}
	}
	return ev, nil
}

// ApplyUnitLocation 车辆定位上报
func (s *TrackingService) ApplyUnitLocation(ctx context.Context, caseID, unitID string, at etprimitive.Coordinates, reportedAt time.Time) (*etcase.LocationEvent, error) {
	return s.ReportLocation(ctx, etcase.LocationUpdate{
		CaseID:      caseID,
		Source:      etcase.SourceUnit,
		UnitID:      unitID,
		Coordinates: at,
		ReportedAt:  reportedAt,
	})
}

// ApplyUnitStatus 车辆状态确认：accept / pickup / arrive / cancel
func (s *TrackingService) ApplyUnitStatus(ctx context.Context, caseID string, event etcase.Event, note string) (*etcase.Case, error) {
	valid := false
	for _, e := range etcase.Events {
		if e == event {
			valid = true
			break
		}
	}
	if !valid {
		return nil, fmt.Errorf("unknown case event: %q", event)
	}
	return s.lifecycle.Transition(ctx, caseID, event, note)
}

// Snapshot 当前位置快照
func (s *TrackingService) Snapshot(ctx context.Context, caseID string) (*etcase.LocationEvent, error) {
	return s.lifecycle.Snapshot(ctx, caseID)
}

// WaitNext 长轮询：等待下一条事件，超时返回当前快照
// 终态 Case 不再产生事件，直接返回快照
func (s *TrackingService) WaitNext(ctx context.Context, caseID string, wait time.Duration) (*etcase.LocationEvent, error) {
	if wait > s.maxWait {
		wait = s.maxWait
	}

	// 先订阅再读快照，避免两者之间的事件丢失
	ch, cancel, err := s.feed.Subscribe(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", caseID, err)
	}
	defer cancel()

	snap, err := s.lifecycle.Snapshot(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if wait <= 0 || snap.Status.Terminal() {
		return snap, nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case ev, ok := <-ch:
		if ok && ev != nil {
			return ev, nil
		}
		return snap, nil
	case <-timer.C:
		s.logger.Debugf(logger.WithCaseID(ctx, caseID), "[TrackingService] wait timeout, returning snapshot")
		return snap, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stream 推送订阅：返回当前快照作为首帧，之后的事件从通道读取
func (s *TrackingService) Stream(ctx context.Context, caseID string) (*etcase.LocationEvent, <-chan *etcase.LocationEvent, func(), error) {
	ch, cancel, err := s.feed.Subscribe(ctx, caseID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("subscribe %s: %w", caseID, err)
	}

	snap, err := s.lifecycle.Snapshot(ctx, caseID)
	if err != nil {
		cancel()
		return nil, nil, nil, err
	}
	return snap, ch, cancel, nil
}
