package mddispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alertx/internal/app/domains/entity/etprimitive"
	"alertx/internal/app/domains/entity/ettriage"
	"alertx/internal/app/domains/entity/etunit"
	"alertx/internal/app/domains/modules/mdgeo"
	"alertx/internal/app/domains/repo/rpunit"
	"alertx/internal/app/pkg/errorx"
	"alertx/internal/app/pkg/logger"
)

var requester = etprimitive.Coordinates{Latitude: 37.7749, Longitude: -122.4194}

type failingPool struct{ err error }

func (p failingPool) FindNearest(ctx context.Context, class etunit.UnitClass, at etprimitive.Coordinates) (*etunit.Unit, error) {
	return nil, p.err
}

func (p failingPool) UpdatePosition(ctx context.Context, unitID string, at etprimitive.Coordinates) error {
	return nil
}

func (p failingPool) Claim(ctx context.Context, unitID string) (bool, error) {
	return false, p.err
}

func (p failingPool) Release(ctx context.Context, unitID string, at etprimitive.Coordinates) error {
	return nil
}

// stuckPool 忽略 ctx，一直阻塞到 release 关闭
type stuckPool struct{ release chan struct{} }

func (p stuckPool) FindNearest(ctx context.Context, class etunit.UnitClass, at etprimitive.Coordinates) (*etunit.Unit, error) {
	<-p.release
	return nil, nil
}

func (p stuckPool) UpdatePosition(ctx context.Context, unitID string, at etprimitive.Coordinates) error {
	return nil
}

func (p stuckPool) Claim(ctx context.Context, unitID string) (bool, error) {
	return false, nil
}

func (p stuckPool) Release(ctx context.Context, unitID string, at etprimitive.Coordinates) error {
	return nil
}

// contendedPool 第一次 Claim 被其他调度方抢先
type contendedPool struct {
	*rpunit.StaticUnitPool
	mu    sync.Mutex
	raced bool
}

func (p *contendedPool) Claim(ctx context.Context, unitID string) (bool, error) {
	p.mu.Lock()
	first := !p.raced
	p.raced = true
	p.mu.Unlock()
	if first {
		_, err := p.StaticUnitPool.Claim(ctx, unitID)
		return false, err
	}
	return p.StaticUnitPool.Claim(ctx, unitID)
}

func newEstimator(t *testing.T) *mdgeo.Estimator {
	t.Helper()
	e, err := mdgeo.NewEstimator(mdgeo.Config{AvgSpeedKmh: 40, MinMinutes: 5, MaxMinutes: 30})
	require.NoError(t, err)
	return e
}

func newFallback(t *testing.T, enabled bool) *SeededFallback {
	t.Helper()
	f, err := NewSeededFallback(FallbackConfig{Enabled: enabled, Seed: 42, MinMinutes: 8, MaxMinutes: 15})
	require.NoError(t, err)
	return f
}

func newDispatcher(t *testing.T, pool rpunit.UnitPool, fallbackEnabled bool) *Dispatcher {
	t.Helper()
	facilities := NewFacilityDirectory([]etunit.Facility{
		{ID: "h-far", Name: "Far General", Location: etprimitive.Coordinates{Latitude: 38.5, Longitude: -121.5}},
		{ID: "h-near", Name: "SF General", Location: etprimitive.Coordinates{Latitude: 37.7557, Longitude: -122.4048}},
	})
	return NewDispatcher(pool, newEstimator(t), newFallback(t, fallbackEnabled), facilities, 100*time.Millisecond, logger.NewNop())
}

func fleet() *rpunit.StaticUnitPool {
	return rpunit.NewStaticUnitPool([]etunit.Unit{
		{ID: "cc-near", Class: etunit.ClassCriticalCare, Location: etprimitive.Coordinates{Latitude: 37.7849, Longitude: -122.4294}, Available: true},
		{ID: "cc-far", Class: etunit.ClassCriticalCare, Location: etprimitive.Coordinates{Latitude: 37.9, Longitude: -122.6}, Available: true},
		{ID: "adv-1", Class: etunit.ClassAdvanced, Location: etprimitive.Coordinates{Latitude: 37.79, Longitude: -122.41}, Available: true},
		{ID: "basic-busy", Class: etunit.ClassBasic, Location: etprimitive.Coordinates{Latitude: 37.775, Longitude: -122.419}, Available: false},
	})
}

func TestDispatchAssignsNearestUnitOfClass(t *testing.T) {
	d := newDispatcher(t, fleet(), true)

	a, err := d.Dispatch(context.Background(), &ettriage.TriageResult{
		Severity: ettriage.SeverityCritical,
		Category: ettriage.CategoryCardiac,
	}, requester)
	require.NoError(t, err)

	assert.False(t, a.Degraded)
	assert.Equal(t, "cc-near", a.UnitID)
	assert.Equal(t, etunit.ClassCriticalCare, a.Class)
	assert.Equal(t, 5, a.ETAMinutes)
	assert.InDelta(t, 1.4, a.DistanceKm, 0.1)
	require.NotNil(t, a.UnitLocation)
	require.NotNil(t, a.Destination)
	assert.Equal(t, "h-near", a.Destination.ID)

	profile, err := etunit.ProfileOf(etunit.ClassCriticalCare)
	require.NoError(t, err)
	assert.Equal(t, profile.Equipment, a.Equipment)
	assert.Equal(t, profile.Crew, a.Crew)
}

func TestDispatchFallsBackToSupersetClass(t *testing.T) {
	d := newDispatcher(t, fleet(), true)

	// low -> Basic；唯一的 Basic 车不可用，替代为 Advanced
	a, err := d.Dispatch(context.Background(), &ettriage.TriageResult{
		Severity: ettriage.SeverityLow,
		Category: ettriage.CategoryGeneral,
	}, requester)
	require.NoError(t, err)

	assert.False(t, a.Degraded)
	assert.Equal(t, "adv-1", a.UnitID)
	assert.Equal(t, etunit.ClassAdvanced, a.Class)
}

func TestDispatchReservesUnits(t *testing.T) {
	ctx := context.Background()
	critical := &ettriage.TriageResult{Severity: ettriage.SeverityCritical, Category: ettriage.CategoryCardiac}
	d := newDispatcher(t, fleet(), true)

	first, err := d.Dispatch(ctx, critical, requester)
	require.NoError(t, err)
	assert.Equal(t, "cc-near", first.UnitID)

	second, err := d.Dispatch(ctx, critical, requester)
	require.NoError(t, err)
	assert.Equal(t, "cc-far", second.UnitID)

	third, err := d.Dispatch(ctx, critical, requester)
	require.NoError(t, err)
	assert.True(t, third.Degraded, "critical care fleet exhausted")

	d.Release(ctx, third)
	d.Release(ctx, first)
	again, err := d.Dispatch(ctx, critical, requester)
	require.NoError(t, err)
	assert.Equal(t, "cc-near", again.UnitID)
}

func TestDispatchUsesSupersetOnceExactClassTaken(t *testing.T) {
	ctx := context.Background()
	low := &ettriage.TriageResult{Severity: ettriage.SeverityLow, Category: ettriage.CategoryGeneral}
	d := newDispatcher(t, fleet(), true)

	first, err := d.Dispatch(ctx, low, requester)
	require.NoError(t, err)
	assert.Equal(t, "adv-1", first.UnitID)

	second, err := d.Dispatch(ctx, low, requester)
	require.NoError(t, err)
	assert.False(t, second.Degraded)
	assert.Equal(t, etunit.ClassCriticalCare, second.Class)
	assert.Equal(t, "cc-near", second.UnitID)
}

func TestDispatchRetriesAfterLostClaim(t *testing.T) {
	pool := &contendedPool{StaticUnitPool: fleet()}
	d := newDispatcher(t, pool, true)

	a, err := d.Dispatch(context.Background(), &ettriage.TriageResult{
		Severity: ettriage.SeverityCritical,
		Category: ettriage.CategoryCardiac,
	}, requester)
	require.NoError(t, err)
	assert.Equal(t, "cc-far", a.UnitID, "cc-near went to the rival dispatcher")
}

func TestConcurrentDispatchNeverSharesUnit(t *testing.T) {
	ctx := context.Background()
	critical := &ettriage.TriageResult{Severity: ettriage.SeverityCritical, Category: ettriage.CategoryCardiac}
	d := newDispatcher(t, fleet(), true)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		assigned []string
		degraded int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := d.Dispatch(ctx, critical, requester)
			assert.NoError(t, err)
			if a == nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if a.Degraded {
				degraded++
				return
			}
			assigned = append(assigned, a.UnitID)
		}()
	}
	wg.Wait()

	assert.ElementsMatch(t, []string{"cc-near", "cc-far"}, assigned)
	assert.Equal(t, 14, degraded)
}

func TestRecommendDoesNotReserve(t *testing.T) {
	ctx := context.Background()
	critical := &ettriage.TriageResult{Severity: ettriage.SeverityCritical, Category: ettriage.CategoryCardiac}
	d := newDispatcher(t, fleet(), true)

	for i := 0; i < 3; i++ {
		a, err := d.Recommend(ctx, critical, requester)
		require.NoError(t, err)
		assert.Equal(t, "cc-near", a.UnitID)
	}

	a, err := d.Dispatch(ctx, critical, requester)
	require.NoError(t, err)
	assert.Equal(t, "cc-near", a.UnitID)
}

func TestDispatchDegraded(t *testing.T) {
	tests := []struct {
		name   string
		pool   rpunit.UnitPool
		triage *ettriage.TriageResult
	}{
		{"classifier unavailable", fleet(), nil},
		{"pool error", failingPool{err: errors.New("connection refused")}, &ettriage.TriageResult{Severity: ettriage.SeverityCritical, Category: ettriage.CategoryCardiac}},
		{"pool exhausted", rpunit.NewStaticUnitPool(nil), &ettriage.TriageResult{Severity: ettriage.SeverityHigh, Category: ettriage.CategoryBurn}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDispatcher(t, tt.pool, true)

			a, err := d.Dispatch(context.Background(), tt.triage, requester)
			require.NoError(t, err)

			assert.True(t, a.Degraded)
			assert.Equal(t, etunit.ClassAdvanced, a.Class)
			assert.Contains(t, a.UnitID, "fallback-")
			assert.Nil(t, a.UnitLocation)
			assert.GreaterOrEqual(t, a.ETAMinutes, 8)
			assert.LessOrEqual(t, a.ETAMinutes, 15)
			assert.NotEmpty(t, a.Crew)
			assert.NotEmpty(t, a.Equipment)
		})
	}
}

func TestDispatchPoolTimeoutDegrades(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	d := newDispatcher(t, stuckPool{release: release}, true)

	start := time.Now()
	a, err := d.Dispatch(context.Background(), &ettriage.TriageResult{
		Severity: ettriage.SeverityMedium,
		Category: ettriage.CategoryGeneral,
	}, requester)
	require.NoError(t, err)

	assert.True(t, a.Degraded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDispatchPoolUnavailable(t *testing.T) {
	d := newDispatcher(t, failingPool{err: errors.New("down")}, false)

	_, err := d.Dispatch(context.Background(), &ettriage.TriageResult{
		Severity: ettriage.SeverityCritical,
		Category: ettriage.CategoryTrauma,
	}, requester)
	assert.ErrorIs(t, err, errorx.ErrPoolUnavailable)
}

func TestSeededFallbackIsDeterministic(t *testing.T) {
	a := newFallback(t, true)
	b := newFallback(t, true)

	for i := 0; i < 20; i++ {
		ua, err := a.Fallback(context.Background())
		require.NoError(t, err)
		ub, err := b.Fallback(context.Background())
		require.NoError(t, err)

		assert.Equal(t, ua, ub)
		assert.GreaterOrEqual(t, ua.ETAMinutes, 8)
		assert.LessOrEqual(t, ua.ETAMinutes, 15)
	}

	u, err := a.Fallback(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fallback-0021", u.ID)
}

func TestNewSeededFallbackRejectsBadRange(t *testing.T) {
	_, err := NewSeededFallback(FallbackConfig{Enabled: true, MinMinutes: 10, MaxMinutes: 5})
	assert.Error(t, err)
}
