package mdtracking

import (
	"context"

	"alertx/internal/app/domains/entity/etcase"
)

// Feed 按 Case 分发位置/状态事件
type Feed interface {
	// Publish 发布事件，不阻塞在慢订阅者上
	Publish(ctx context.Context, event *etcase.LocationEvent) error

	// Subscribe 订阅单个 Case；调用 cancel 或 ctx 结束后通道关闭
	Subscribe(ctx context.Context, caseID string) (<-chan *etcase.LocationEvent, func(), error)
}

// ChannelName 每个 Case 一个频道
func ChannelName(caseID string) string {
	return "case:track:" + caseID
}
