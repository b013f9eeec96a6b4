package rpcase

import (
	"context"

	"alertx/internal/app/domains/entity/etcase"
)

// CaseRepository Case 仓储接口
// 时间线只追加：Update 只写入本次新增的条目，已有条目不改不删
type CaseRepository interface {
	// Create 写入新 Case 及其初始时间线
	Create(ctx context.Context, c *etcase.Case) error

	// Update 覆盖 Case 当前字段，并追加 appended 条目
	Update(ctx context.Context, c *etcase.Case, appended ...etcase.TimelineEntry) error

	// GetByID 不存在时返回 errorx.ErrCaseNotFound
	GetByID(ctx context.Context, caseID string) (*etcase.Case, error)

	// ListActive 全部非终态 Case，启动时重建活跃索引使用
	ListActive(ctx context.Context) ([]*etcase.Case, error)
}
