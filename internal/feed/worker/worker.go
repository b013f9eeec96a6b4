package worker

import (
	"context"

	"alertx/internal/feed/framework"
	"alertx/internal/feed/lmstfyx"
)

// Worker 单队列消费单元：Subscriber 拉取 + Processor 处理
type Worker interface {
	Start(ctx context.Context)
	Shutdown()
	GetName() string
}

// WorkerInstance Worker 实例
type WorkerInstance struct {
	name       string
	subscriber *framework.Subscriber
	processor  *framework.Processor
	inputChan  chan *framework.Message
	logger     framework.Logger
}

// NewWorkerInstance 创建 Worker 实例
func NewWorkerInstance(
	name string,
	subscriberCfg *framework.SubscriberConfig,
	processorCfg *framework.ProcessorConfig,
	source framework.MessageSource,
	proc lmstfyx.Proc,
	log framework.Logger,
) *WorkerInstance {
	return &WorkerInstance{
		name:       name,
		subscriber: framework.NewSubscriber(subscriberCfg, source, log),
		processor:  framework.NewProcessor(processorCfg, source, proc, log),
		inputChan:  make(chan *framework.Message, processorCfg.BufferSize),
		logger:     log,
	}
}

// Start 启动 Worker，不阻塞
func (w *WorkerInstance) Start(ctx context.Context) {
	w.processor.Start(ctx, w.inputChan)
	w.subscriber.Start(ctx, w.inputChan)
	w.logger.Infof(ctx, "[Worker] %s started", w.name)
}

// Shutdown 优雅退出：先停拉取，再 Drain 已拉取的消息
func (w *WorkerInstance) Shutdown() {
	w.subscriber.Stop()
	w.subscriber.Wait()

	w.processor.SignalShutdown()
	w.processor.Wait()

	w.logger.Infof(context.Background(), "[Worker] %s shutdown complete", w.name)
}

// GetName 获取 Worker 名称
func (w *WorkerInstance) GetName() string {
	return w.name
}
