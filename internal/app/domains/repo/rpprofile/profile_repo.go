package rpprofile

import (
	"context"

	"alertx/internal/app/domains/entity/etprofile"
)

// ProfileRepository 请求方档案仓储接口
type ProfileRepository interface {
	// Save 新建或覆盖档案
	Save(ctx context.Context, profile *etprofile.Profile) error

	// GetByRequester 不存在时返回 errorx.ErrProfileNotFound
	GetByRequester(ctx context.Context, requesterID string) (*etprofile.Profile, error)
}
