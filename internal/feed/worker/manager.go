package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"

	"alertx/internal/feed/framework"
	"alertx/internal/feed/lmstfyx"
)

// Spec 单个 Worker 的配置
type Spec struct {
	Name      string
	QueueName string

	SubscriberThreads int
	Rate              time.Duration
	PollTimeout       time.Duration
	TTR               time.Duration
	ErrorBackoff      time.Duration

	ProcessorThreads int
	BufferSize       int
	ProcessTimeout   time.Duration
}

// Validate 基本校验
func (s Spec) Validate() error {
	if s.Name == "" || s.QueueName == "" {
		return fmt.Errorf("worker name and queue are required")
	}
	if s.SubscriberThreads <= 0 || s.ProcessorThreads <= 0 {
		return fmt.Errorf("worker %s: thread counts must be positive", s.Name)
	}
	if s.ProcessTimeout <= 0 {
		return fmt.Errorf("worker %s: process timeout must be positive", s.Name)
	}
	return nil
}

// Manager 管理全部队列 Worker 的启停
type Manager struct {
	workers []Worker
	closing *atomic.Bool
	done    chan struct{}
	mu      sync.Mutex
	logger  framework.Logger
}

// NewManager 按配置创建 Worker，共享同一个消息源和处理函数
func NewManager(specs []Spec, source framework.MessageSource, proc lmstfyx.Proc, log framework.Logger) (*Manager, error) {
	m := &Manager{
		closing: atomic.NewBool(false),
		done:    make(chan struct{}),
		logger:  log,
	}
	for _, s := range specs {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		m.workers = append(m.workers, NewWorkerInstance(
			s.Name,
			&framework.SubscriberConfig{
				QueueName:    s.QueueName,
				Concurrency:  s.SubscriberThreads,
				Timeout:      s.PollTimeout,
				TTR:          s.TTR,
				Rate:         s.Rate,
				ErrorBackoff: s.ErrorBackoff,
			},
			&framework.ProcessorConfig{
				Concurrency: s.ProcessorThreads,
				BufferSize:  s.BufferSize,
				Timeout:     s.ProcessTimeout,
			},
			source,
			proc,
			log,
		))
	}
	return m, nil
}

// Start 启动所有 Worker，阻塞到 ctx 结束后完成优雅退出
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	for _, w := range m.workers {
		w.Start(ctx)
	}
	m.mu.Unlock()
	m.logger.Infof(ctx, "[Manager] Started %d workers", len(m.workers))

	select {
	case <-ctx.Done():
		m.Shutdown()
	case <-m.done:
	}
	return nil
}

// Shutdown 优雅退出，可重复调用
func (m *Manager) Shutdown() {
	if !m.closing.CAS(false, true) {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var wg sync.WaitGroup
	for _, w := range m.workers {
		wg.Add(1)
		go func(w Worker) {
			defer wg.Done()
			w.Shutdown()
		}(w)
	}
	wg.Wait()
	close(m.done)
	m.logger.Infof(context.Background(), "[Manager] Shutdown complete")
}
