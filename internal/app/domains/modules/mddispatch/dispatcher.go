package mddispatch

import (
	"context"
	"fmt"
	"time"

	"alertx/internal/app/domains/entity/etprimitive"
	"alertx/internal/app/domains/entity/ettriage"
	"alertx/internal/app/domains/entity/etunit"
	"alertx/internal/app/domains/modules/mdgeo"
	"alertx/internal/app/domains/repo/rpunit"
	"alertx/internal/app/pkg/logger"
)

// DegradedClass 降级派车固定使用的车辆等级
const DegradedClass = etunit.ClassAdvanced

// Dispatcher 调度：等级选择 -> 查车 -> ETA -> 乘员/装备
type Dispatcher struct {
	pool        rpunit.UnitPool
	estimator   *mdgeo.Estimator
	fallback    FallbackProvider
	facilities  *FacilityDirectory
	poolTimeout time.Duration
	logger      logger.Logger
}

// NewDispatcher 创建调度器
func NewDispatcher(
	pool rpunit.UnitPool,
	estimator *mdgeo.Estimator,
	fallback FallbackProvider,
	facilities *FacilityDirectory,
	poolTimeout time.Duration,
	log logger.Logger,
) *Dispatcher {
	if poolTimeout <= 0 {
		poolTimeout = 2 * time.Second
	}
	return &Dispatcher{
		pool:        pool,
		estimator:   estimator,
		fallback:    fallback,
		facilities:  facilities,
		poolTimeout: poolTimeout,
		logger:      log,
	}
}

// Dispatch 生成派车结果并占用车辆，建单失败时调用方需 Release
// triage 为空表示分类不可用，直接走降级；查车失败、超时或无车同样降级
// 只有降级来源也不可用时返回 errorx.ErrPoolUnavailable
func (d *Dispatcher) Dispatch(ctx context.Context, triage *ettriage.TriageResult, at etprimitive.Coordinates) (*etunit.Assignment, error) {
	return d.assign(ctx, triage, at, true)
}

// Recommend 与 Dispatch 相同的选车策略，但不占用车辆
func (d *Dispatcher) Recommend(ctx context.Context, triage *ettriage.TriageResult, at etprimitive.Coordinates) (*etunit.Assignment, error) {
	return d.assign(ctx, triage, at, false)
}

// Release 归还 Dispatch 占用的车辆；降级结果没有池内车辆
func (d *Dispatcher) Release(ctx context.Context, a *etunit.Assignment) {
	if a == nil || a.Degraded || a.UnitLocation == nil {
		return
	}
	if err := d.pool.Release(ctx, a.UnitID, *a.UnitLocation); err != nil {
		d.logger.Warnf(ctx, "[Dispatcher] release unit failed: unit=%s, error=%v", a.UnitID, err)
	}
}

func (d *Dispatcher) assign(ctx context.Context, triage *ettriage.TriageResult, at etprimitive.Coordinates, claim bool) (*etunit.Assignment, error) {
	if triage == nil {
		d.logger.Warnf(ctx, "[Dispatcher] triage unavailable, using degraded dispatch")
		return d.degraded(ctx, at)
	}

	class := SelectUnitClass(triage.Severity, triage.Category)

	unit, err := d.findUnit(ctx, class, at, claim)
	if err != nil {
		d.logger.Warnf(ctx, "[Dispatcher] pool lookup failed: class=%s, error=%v", class, err)
		return d.degraded(ctx, at)
	}
	if unit == nil {
		d.logger.Warnf(ctx, "[Dispatcher] no unit available: class=%s", class)
		return d.degraded(ctx, at)
	}

	if unit.Class != class {
		d.logger.Infof(ctx, "[Dispatcher] superset unit assigned: required=%s, assigned=%s", class, unit.Class)
	}

	profile, err := etunit.ProfileOf(unit.Class)
	if err != nil {
		if claim {
			d.releaseUnit(ctx, unit)
		}
		return nil, fmt.Errorf("unit %s has unknown class %q: %w", unit.ID, unit.Class, err)
	}

	est := d.estimator.Estimate(unit.Location, at)
	loc := unit.Location

	return &etunit.Assignment{
		UnitID:       unit.ID,
		Class:        unit.Class,
		Crew:         profile.Crew,
		Equipment:    profile.Equipment,
		UnitLocation: &loc,
		Destination:  d.facilities.Nearest(at),
		DistanceKm:   est.DistanceKm,
		ETAMinutes:   est.ETAMinutes,
	}, nil
}

type lookupResult struct {
	unit *etunit.Unit
	err  error
}

// findUnit 按精确等级、替代等级依次查车，整体受 poolTimeout 约束
// claim 为 true 时占用选中车辆；占用被抢先则在同等级内重新查找
func (d *Dispatcher) findUnit(ctx context.Context, class etunit.UnitClass, at etprimitive.Coordinates, claim bool) (*etunit.Unit, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, d.poolTimeout)
	defer cancel()

	done := make(chan lookupResult, 1)
	go func() {
		unit, err := d.search(lookupCtx, class, at, claim)
		done <- lookupResult{unit: unit, err: err}
	}()

	select {
	case res := <-done:
		return res.unit, res.err
	case <-lookupCtx.Done():
		if claim {
			// 超时后才占用成功的车辆需要归还
			go func() {
				if res := <-done; res.unit != nil {
					d.releaseUnit(context.WithoutCancel(ctx), res.unit)
				}
			}()
		}
		return nil, fmt.Errorf("pool lookup: %w", lookupCtx.Err())
	}
}

func (d *Dispatcher) search(ctx context.Context, class etunit.UnitClass, at etprimitive.Coordinates, claim bool) (*etunit.Unit, error) {
	for _, c := range etunit.SearchOrder(class) {
		for {
			unit, err := d.pool.FindNearest(ctx, c, at)
			if err != nil {
				return nil, err
			}
			if unit == nil {
				break
			}
			if !claim {
				return unit, nil
			}
			ok, err := d.pool.Claim(ctx, unit.ID)
			if err != nil {
				return nil, err
			}
			if ok {
				return unit, nil
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}
	return nil, nil
}

func (d *Dispatcher) releaseUnit(ctx context.Context, unit *etunit.Unit) {
	if err := d.pool.Release(ctx, unit.ID, unit.Location); err != nil {
		d.logger.Warnf(ctx, "[Dispatcher] release unit failed: unit=%s, error=%v", unit.ID, err)
	}
}

func (d *Dispatcher) degraded(ctx context.Context, at etprimitive.Coordinates) (*etunit.Assignment, error) {
	fb, err := d.fallback.Fallback(ctx)
	if err != nil {
		return nil, err
	}

	profile, err := etunit.ProfileOf(DegradedClass)
	if err != nil {
		return nil, err
	}

	return &etunit.Assignment{
		UnitID:      fb.ID,
		Class:       DegradedClass,
		Crew:        profile.Crew,
		Equipment:   profile.Equipment,
		Destination: d.facilities.Nearest(at),
		ETAMinutes:  d.estimator.Clamp(fb.ETAMinutes),
		Degraded:    true,
	}, nil
}
