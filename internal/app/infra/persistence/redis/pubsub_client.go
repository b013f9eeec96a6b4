package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options 连接参数
type Options struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PubSubClient Redis Pub/Sub 客户端封装
// 同一连接池也供车辆 GEO 索引使用，见 Client()
type PubSubClient struct {
	rdb redis.UniversalClient
}

// NewPubSubClient 创建客户端并探活，支持密码认证
func NewPubSubClient(ctx context.Context, opts Options) (*PubSubClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     opts.PoolSize,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}

	return &PubSubClient{rdb: rdb}, nil
}

// NewPubSubClientFrom 复用已有连接
func NewPubSubClientFrom(rdb redis.UniversalClient) *PubSubClient {
	return &PubSubClient{rdb: rdb}
}

// Client 底层连接
func (c *PubSubClient) Client() redis.UniversalClient {
	return c.rdb
}

// Stream 持续订阅 channel，ctx 结束或调用 cancel 后关闭返回的通道
func (c *PubSubClient) Stream(ctx context.Context, channel string) (<-chan string, func(), error) {
	sub := c.rdb.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, nil, err
	}

	out := make(chan string, 16)
	streamCtx, cancel := context.WithCancel(ctx)
	go func() {
		defer close(out)
		defer sub.Close()
		in := sub.Channel()
		for {
			select {
			case <-streamCtx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				case <-streamCtx.Done():
					return
				}
			}
		}
	}()
	return out, cancel, nil
}

// Publish 向指定 channel 发布消息
func (c *PubSubClient) Publish(ctx context.Context, channel string, message string) error {
	return c.rdb.Publish(ctx, channel, message).Err()
}

// Close 关闭连接
func (c *PubSubClient) Close() error {
	return c.rdb.Close()
}
