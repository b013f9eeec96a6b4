package rpunit

import (
	"context"
	"sync"

	"alertx/internal/app/domains/entity/etprimitive"
	"alertx/internal/app/domains/entity/etunit"
	"alertx/internal/app/domains/modules/mdgeo"
)

// StaticUnitPool 配置文件中的固定车队，进程内维护位置
type StaticUnitPool struct {
	mu    sync.RWMutex
	units map[string]*etunit.Unit
}

// NewStaticUnitPool 创建固定车队
func NewStaticUnitPool(units []etunit.Unit) *StaticUnitPool {
	m := make(map[string]*etunit.Unit, len(units))
	for i := range units {
		u := units[i]
		m[u.ID] = &u
	}
	return &StaticUnitPool{units: m}
}

// FindNearest 实现 UnitPool
func (p *StaticUnitPool) FindNearest(ctx context.Context, class etunit.UnitClass, at etprimitive.Coordinates) (*etunit.Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	var best *etunit.Unit
	bestDist := 0.0
	for _, u := range p.units {
		if u.Class != class || !u.Available {
			continue
		}
		d := mdgeo.DistanceKm(at, u.Location)
		// 距离相同按 ID 排序，保证结果稳定
		if best == nil || d < bestDist || (d == bestDist && u.ID < best.ID) {
			best, bestDist = u, d
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

// UpdatePosition 实现 UnitPool，未知车辆忽略
func (p *StaticUnitPool) UpdatePosition(ctx context.Context, unitID string, at etprimitive.Coordinates) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if u, ok := p.units[unitID]; ok {
		u.Location = at
	}
	return nil
}

// Claim 实现 UnitPool，检查与占用在同一把锁内
func (p *StaticUnitPool) Claim(ctx context.Context, unitID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.units[unitID]
	if !ok || !u.Available {
		return false, nil
	}
	u.Available = false
	return true, nil
}

// Release 实现 UnitPool
func (p *StaticUnitPool) Release(ctx context.Context, unitID string, at etprimitive.Coordinates) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if u, ok := p.units[unitID]; ok {
		u.Location = at
		u.Available = true
	}
	return nil
}
