package mddispatch

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"go.uber.org/atomic"

	"alertx/internal/app/pkg/errorx"
)

// FallbackUnit 降级派车使用的合成车辆
type FallbackUnit struct {
	ID         string
	ETAMinutes int
}

// FallbackProvider 降级车辆来源，可注入
type FallbackProvider interface {
	Fallback(ctx context.Context) (*FallbackUnit, error)
}

// FallbackConfig 降级配置
type FallbackConfig struct {
	Enabled    bool
	Seed       int64
	MinMinutes int
	MaxMinutes int
}

// SeededFallback 固定种子的降级车辆生成器，相同种子产生相同序列
type SeededFallback struct {
	cfg FallbackConfig
	mu  sync.Mutex
	rng *rand.Rand
	seq *atomic.Int64
}

// NewSeededFallback 创建降级车辆生成器
func NewSeededFallback(cfg FallbackConfig) (*SeededFallback, error) {
	if cfg.MinMinutes <= 0 || cfg.MaxMinutes < cfg.MinMinutes {
		return nil, fmt.Errorf("invalid fallback eta range: min=%d max=%d", cfg.MinMinutes, cfg.MaxMinutes)
	}
	return &SeededFallback{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
		seq: atomic.NewInt64(0),
	}, nil
}

// Fallback 实现 FallbackProvider
func (f *SeededFallback) Fallback(ctx context.Context) (*FallbackUnit, error) {
	if !f.cfg.Enabled {
		return nil, fmt.Errorf("%w: fallback dispatch disabled", errorx.ErrPoolUnavailable)
	}

	f.mu.Lock()
	eta := f.cfg.MinMinutes + f.rng.Intn(f.cfg.MaxMinutes-f.cfg.MinMinutes+1)
	f.mu.Unlock()

	return &FallbackUnit{
		ID:         fmt.Sprintf("fallback-%04d", f.seq.Inc()),
		ETAMinutes: eta,
	}, nil
}
