package rpunit

import (
	"context"

	"alertx/internal/app/domains/entity/etprimitive"
	"alertx/internal/app/domains/entity/etunit"
)

// UnitPool 可用车辆视图（外部协作方）
type UnitPool interface {
	// FindNearest 指定等级最近的可用车辆，没有时返回 nil, nil
	FindNearest(ctx context.Context, class etunit.UnitClass, at etprimitive.Coordinates) (*etunit.Unit, error)

	// UpdatePosition 刷新车辆位置（车辆定位上报时调用）
	UpdatePosition(ctx context.Context, unitID string, at etprimitive.Coordinates) error

	// Claim 占用车辆；已被占用或不在池中时返回 false
	Claim(ctx context.Context, unitID string) (bool, error)

	// Release 任务结束后车辆重新可派，at 为车辆最后位置
	Release(ctx context.Context, unitID string, at etprimitive.Coordinates) error
}
