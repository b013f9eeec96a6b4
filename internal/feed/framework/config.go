package framework

import "time"

// 缺省值：lmstfy 的 timeout/ttr 以秒为单位，0 表示不阻塞，会导致空转
const (
	minPollTimeout      = time.Second
	minTTR              = time.Second
	defaultErrorBackoff = time.Second
	defaultProcessLimit = 10 * time.Second
)

// SubscriberConfig 拉取侧配置
type SubscriberConfig struct {
	QueueName    string
	Concurrency  int           // 拉取协程数
	Timeout      time.Duration // 单次 Consume 阻塞时长
	TTR          time.Duration // 未 ACK 的消息在 TTR 后重投
	Rate         time.Duration // 两次拉取的间隔
	ErrorBackoff time.Duration
}

func (c SubscriberConfig) normalized() *SubscriberConfig {
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	if c.Timeout < minPollTimeout {
		c.Timeout = minPollTimeout
	}
	if c.TTR < minTTR {
		c.TTR = minTTR
	}
	if c.ErrorBackoff <= 0 {
		c.ErrorBackoff = defaultErrorBackoff
	}
	return &c
}

// ProcessorConfig 处理侧配置
type ProcessorConfig struct {
	Concurrency int
	BufferSize  int           // inputChan 容量，由 Worker 创建通道时使用
	Timeout     time.Duration // 单条消息处理上限，不随关停取消
}

func (c ProcessorConfig) normalized() *ProcessorConfig {
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	if c.BufferSize < 0 {
		c.BufferSize = 0
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultProcessLimit
	}
	return &c
}
