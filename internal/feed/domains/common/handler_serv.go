package common

import (
	"context"
	"encoding/json"
	"time"

	"alertx/internal/app/domains/entity/etcase"
	"alertx/internal/app/domains/entity/etprimitive"
	"alertx/internal/feed/domains/common/job"
	"alertx/internal/feed/domains/common/response"
)

// CaseEvents 车辆事件的业务入口，svtracking.TrackingService 实现
type CaseEvents interface {
	ApplyUnitLocation(ctx context.Context, caseID, unitID string, at etprimitive.Coordinates, reportedAt time.Time) (*etcase.LocationEvent, error)
	ApplyUnitStatus(ctx context.Context, caseID string, event etcase.Event, note string) (*etcase.Case, error)
}

// HandlerServProc Handler 构造函数类型
type HandlerServProc func(ctx context.Context, svc CaseEvents, meta *job.Meta, payload json.RawMessage) (HandlerServ, error)

// HandlerServ Handler 接口
type HandlerServ interface {
	GetProcess() *response.Response
}
