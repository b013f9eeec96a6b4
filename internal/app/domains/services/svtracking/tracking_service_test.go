package svtracking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alertx/internal/app/domains/entity/etcase"
	"alertx/internal/app/domains/entity/etprimitive"
	"alertx/internal/app/domains/entity/ettriage"
	"alertx/internal/app/domains/entity/etunit"
	"alertx/internal/app/domains/modules/mdgeo"
	"alertx/internal/app/domains/modules/mdlifecycle"
	"alertx/internal/app/domains/modules/mdtracking"
	"alertx/internal/app/domains/repo/rpcase"
	"alertx/internal/app/pkg/errorx"
	"alertx/internal/app/pkg/logger"
)

var (
	requesterLoc = etprimitive.Coordinates{Latitude: 37.7749, Longitude: -122.4194}
	unitLoc      = etprimitive.Coordinates{Latitude: 37.7849, Longitude: -122.4294}
)

type recordingPool struct {
	mu      sync.Mutex
	updates map[string]etprimitive.Coordinates
}

func (p *recordingPool) FindNearest(ctx context.Context, class etunit.UnitClass, at etprimitive.Coordinates) (*etunit.Unit, error) {
	return nil, nil
}

func (p *recordingPool) UpdatePosition(ctx context.Context, unitID string, at etprimitive.Coordinates) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates[unitID] = at
	return nil
}

func (p *recordingPool) Claim(ctx context.Context, unitID string) (bool, error) {
	return true, nil
}

func (p *recordingPool) Release(ctx context.Context, unitID string, at etprimitive.Coordinates) error {
	return nil
}

func (p *recordingPool) position(unitID string) (etprimitive.Coordinates, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.updates[unitID]
	return c, ok
}

type fixture struct {
	svc    *TrackingService
	feed   *mdtracking.LocalFeed
	pool   *recordingPool
	caseID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	est, err := mdgeo.NewEstimator(mdgeo.Config{AvgSpeedKmh: 40, MinMinutes: 5, MaxMinutes: 30})
	require.NoError(t, err)

	feed := mdtracking.NewLocalFeed()
	manager := mdlifecycle.NewManager(rpcase.NewMemoryCaseRepository(), est, feed, nil, logger.NewNop())
	loc := unitLoc
	c, err := manager.Open(context.Background(), mdlifecycle.OpenParams{
		CaseID:      "case-1",
		RequesterID: "user-1",
		Triage:      &ettriage.TriageResult{Severity: ettriage.SeverityHigh, Category: ettriage.CategoryTrauma},
		Assignment:  &etunit.Assignment{UnitID: "adv-1", Class: etunit.ClassAdvanced, UnitLocation: &loc, ETAMinutes: 5},
		Location:    requesterLoc,
	})
	require.NoError(t, err)

	pool := &recordingPool{updates: make(map[string]etprimitive.Coordinates)}
	return &fixture{
		svc:    NewTrackingService(manager, feed, pool, 200*time.Millisecond, logger.NewNop()),
		feed:   feed,
		pool:   pool,
		caseID: c.ID,
	}
}

func TestReportLocation(t *testing.T) {
	t.Run("unit location refreshes pool", func(t *testing.T) {
		f := newFixture(t)
		moved := etprimitive.Coordinates{Latitude: 37.78, Longitude: -122.42}

		ev, err := f.svc.ApplyUnitLocation(context.Background(), f.caseID, "adv-1", moved, time.Now())
		require.NoError(t, err)
		require.NotNil(t, ev.UnitLocation)
		assert.True(t, ev.UnitLocation.Equal(moved))

		pos, ok := f.pool.position("adv-1")
		require.True(t, ok)
		assert.True(t, pos.Equal(moved))
	})

	t.Run("duplicate location does not touch pool", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.ApplyUnitLocation(context.Background(), f.caseID, "adv-1", unitLoc, time.Now())
		require.NoError(t, err)

		_, ok := f.pool.position("adv-1")
		assert.False(t, ok)
	})

	t.Run("wrong unit", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.ApplyUnitLocation(context.Background(), f.caseID, "basic-9", requesterLoc, time.Now())
		assert.ErrorIs(t, err, errorx.ErrUnitMismatch)
	})

	t.Run("unknown case", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.ApplyUnitLocation(context.Background(), "nope", "adv-1", requesterLoc, time.Now())
		assert.ErrorIs(t, err, errorx.ErrCaseNotFound)
	})
}

func TestApplyUnitStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.ApplyUnitStatus(ctx, f.caseID, etcase.EventAccept, "")
	require.NoError(t, err)
	assert.Equal(t, etcase.StatusAccepted, c.Status)

	_, err = f.svc.ApplyUnitStatus(ctx, f.caseID, etcase.Event("teleport"), "")
	assert.Error(t, err)

	_, err = f.svc.ApplyUnitStatus(ctx, f.caseID, etcase.EventArrive, "")
	assert.ErrorIs(t, err, errorx.ErrInvalidTransition)
}

func TestWaitNext(t *testing.T) {
	t.Run("returns next event", func(t *testing.T) {
		f := newFixture(t)
		moved := etprimitive.Coordinates{Latitude: 37.78, Longitude: -122.42}

		go func() {
			for f.feed.Subscribers(f.caseID) == 0 {
				time.Sleep(time.Millisecond)
			}
			_, _ = f.svc.ApplyUnitLocation(context.Background(), f.caseID, "adv-1", moved, time.Now())
		}()

		ev, err := f.svc.WaitNext(context.Background(), f.caseID, time.Second)
		require.NoError(t, err)
		require.NotNil(t, ev.UnitLocation)
		assert.True(t, ev.UnitLocation.Equal(moved))
	})

	t.Run("timeout returns snapshot", func(t *testing.T) {
		f := newFixture(t)

		start := time.Now()
		ev, err := f.svc.WaitNext(context.Background(), f.caseID, time.Hour)
		require.NoError(t, err)
		assert.Less(t, time.Since(start), time.Second, "wait is capped")
		assert.Equal(t, etcase.StatusPending, ev.Status)
		assert.Equal(t, 0, f.feed.Subscribers(f.caseID))
	})

	t.Run("terminal case returns immediately", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.ApplyUnitStatus(context.Background(), f.caseID, etcase.EventCancel, "false alarm")
		require.NoError(t, err)

		ev, err := f.svc.WaitNext(context.Background(), f.caseID, time.Second)
		require.NoError(t, err)
		assert.Equal(t, etcase.StatusCancelled, ev.Status)
	})
}

func TestStream(t *testing.T) {
	f := newFixture(t)

	snap, ch, cancel, err := f.svc.Stream(context.Background(), f.caseID)
	require.NoError(t, err)
	assert.Equal(t, etcase.StatusPending, snap.Status)

	_, err = f.svc.ApplyUnitStatus(context.Background(), f.caseID, etcase.EventAccept, "")
	require.NoError(t, err)

	select {
	case ev := <-ch:
		assert.Equal(t, etcase.StatusAccepted, ev.Status)
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}

	cancel()
	assert.Equal(t, 0, f.feed.Subscribers(f.caseID))

	_, _, _, err = f.svc.Stream(context.Background(), "nope")
	assert.ErrorIs(t, err, errorx.ErrCaseNotFound)
	assert.Equal(t, 0, f.feed.Subscribers("nope"))
}
