package mdtracking

import (
	"context"
	"encoding/json"
	"fmt"

	"alertx/internal/app/domains/entity/etcase"
	"alertx/internal/app/pkg/logger"
)

// Broker 频道级发布订阅，infra/persistence/redis.PubSubClient 实现
type Broker interface {
	Publish(ctx context.Context, channel string, message string) error
	Stream(ctx context.Context, channel string) (<-chan string, func(), error)
}

// RedisFeed 跨实例分发：事件以 JSON 发布到 case:track:<id>
type RedisFeed struct {
	broker Broker
	logger logger.Logger
}

// NewRedisFeed 创建 Redis Feed
func NewRedisFeed(broker Broker, log logger.Logger) *RedisFeed {
	return &RedisFeed{broker: broker, logger: log}
}

// Publish 实现 Feed
func (f *RedisFeed) Publish(ctx context.Context, event *etcase.LocationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal location event: %w", err)
	}
	return f.broker.Publish(ctx, ChannelName(event.CaseID), string(payload))
}

// Subscribe 实现 Feed，无法解析的消息跳过
func (f *RedisFeed) Subscribe(ctx context.Context, caseID string) (<-chan *etcase.LocationEvent, func(), error) {
	subCtx, stop := context.WithCancel(ctx)
	raw, closeStream, err := f.broker.Stream(subCtx, ChannelName(caseID))
	if err != nil {
		stop()
		return nil, nil, fmt.Errorf("subscribe %s: %w", ChannelName(caseID), err)
	}

	out := make(chan *etcase.LocationEvent, subscriberBuffer)
	go func() {
		defer close(out)
		defer closeStream()
		for {
			select {
			case <-subCtx.Done():
				return
			case payload, ok := <-raw:
				if !ok {
					return
				}
				var ev etcase.LocationEvent
				if err := json.Unmarshal([]byte(payload), &ev); err != nil {
					f.logger.Warnf(ctx, "[RedisFeed] drop malformed event: case=%s, error=%v", caseID, err)
					continue
				}
				select {
				case out <- &ev:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()
	return out, stop, nil
}
