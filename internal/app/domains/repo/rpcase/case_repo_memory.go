package rpcase

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"alertx/internal/app/domains/entity/etcase"
	"alertx/internal/app/pkg/errorx"
)

// MemoryCaseRepository 进程内实现，测试和单机演示使用
type MemoryCaseRepository struct {
	mu    sync.RWMutex
	cases map[string]*etcase.Case
}

// NewMemoryCaseRepository 创建内存仓储
func NewMemoryCaseRepository() *MemoryCaseRepository {
	return &MemoryCaseRepository{cases: make(map[string]*etcase.Case)}
}

// Create 实现 CaseRepository
func (r *MemoryCaseRepository) Create(ctx context.Context, c *etcase.Case) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cases[c.ID]; ok {
		return fmt.Errorf("case %s already exists", c.ID)
	}
	r.cases[c.ID] = c.Clone()
	return nil
}

// Update 实现 CaseRepository
func (r *MemoryCaseRepository) Update(ctx context.Context, c *etcase.Case, appended ...etcase.TimelineEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cases[c.ID]; !ok {
		return errorx.ErrCaseNotFound
	}
	r.cases[c.ID] = c.Clone()
	return nil
}

// GetByID 实现 CaseRepository
func (r *MemoryCaseRepository) GetByID(ctx context.Context, caseID string) (*etcase.Case, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cases[caseID]
	if !ok {
		return nil, errorx.ErrCaseNotFound
	}
	return c.Clone(), nil
}

// ListActive 实现 CaseRepository，按创建时间升序
func (r *MemoryCaseRepository) ListActive(ctx context.Context) ([]*etcase.Case, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*etcase.Case, 0)
	for _, c := range r.cases {
		if c.Active() {
			out = append(out, c.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
