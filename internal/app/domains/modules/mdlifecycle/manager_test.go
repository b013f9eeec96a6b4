package mdlifecycle

import (
	"context"
	"errors"
	"fmt"
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
	"alertx/internal/app/domains/repo/rpcase"
	"alertx/internal/app/domains/repo/rpunit"
	"alertx/internal/app/pkg/errorx"
	"alertx/internal/app/pkg/logger"
)

var (
	requesterLoc = etprimitive.Coordinates{Latitude: 37.7749, Longitude: -122.4194}
	unitLoc      = etprimitive.Coordinates{Latitude: 37.7849, Longitude: -122.4294}
	hospital     = etunit.Facility{ID: "h-1", Name: "SF General", Location: etprimitive.Coordinates{Latitude: 37.7557, Longitude: -122.4048}}
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*etcase.LocationEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, ev *etcase.LocationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

// flakyRepo Update 可被设置为失败
type flakyRepo struct {
	rpcase.CaseRepository
	failUpdate bool
}

func (r *flakyRepo) Update(ctx context.Context, c *etcase.Case, appended ...etcase.TimelineEntry) error {
	if r.failUpdate {
		return errors.New("disk full")
	}
	return r.CaseRepository.Update(ctx, c, appended...)
}

func newManager(t *testing.T, repo rpcase.CaseRepository) (*Manager, *recordingPublisher) {
	t.Helper()
	est, err := mdgeo.NewEstimator(mdgeo.Config{AvgSpeedKmh: 40, MinMinutes: 5, MaxMinutes: 30})
	require.NoError(t, err)
	pub := &recordingPublisher{}
	return NewManager(repo, est, pub, nil, logger.NewNop()), pub
}

func newManagerWithUnits(t *testing.T, repo rpcase.CaseRepository, units Units) *Manager {
	t.Helper()
	est, err := mdgeo.NewEstimator(mdgeo.Config{AvgSpeedKmh: 40, MinMinutes: 5, MaxMinutes: 30})
	require.NoError(t, err)
	return NewManager(repo, est, nil, units, logger.NewNop())
}

func criticalCarePool() *rpunit.StaticUnitPool {
	return rpunit.NewStaticUnitPool([]etunit.Unit{
		{ID: "cc-1", Class: etunit.ClassCriticalCare, Location: unitLoc, Available: true},
	})
}

func openParams(caseID, requesterID string) OpenParams {
	loc := unitLoc
	dst := hospital
	return OpenParams{
		CaseID:      caseID,
		RequesterID: requesterID,
		Triage:      &ettriage.TriageResult{Severity: ettriage.SeverityCritical, Category: ettriage.CategoryCardiac},
		Assignment: &etunit.Assignment{
			UnitID:       "cc-1",
			Class:        etunit.ClassCriticalCare,
			UnitLocation: &loc,
			Destination:  &dst,
			DistanceKm:   1.42,
			ETAMinutes:   5,
		},
		Location: requesterLoc,
	}
}

// pathTo 从 pending 到达目标状态的事件序列
var pathTo = map[etcase.Status][]etcase.Event{
	etcase.StatusPending:    nil,
	etcase.StatusAccepted:   {etcase.EventAccept},
	etcase.StatusInProgress: {etcase.EventAccept, etcase.EventPickup},
	etcase.StatusCompleted:  {etcase.EventAccept, etcase.EventPickup, etcase.EventArrive},
	etcase.StatusCancelled:  {etcase.EventCancel},
}

func TestTransitionMatrix(t *testing.T) {
	legal := map[etcase.Status]map[etcase.Event]etcase.Status{
		etcase.StatusPending:    {etcase.EventAccept: etcase.StatusAccepted, etcase.EventCancel: etcase.StatusCancelled},
		etcase.StatusAccepted:   {etcase.EventPickup: etcase.StatusInProgress, etcase.EventCancel: etcase.StatusCancelled},
		etcase.StatusInProgress: {etcase.EventArrive: etcase.StatusCompleted, etcase.EventCancel: etcase.StatusCancelled},
	}

	for _, from := range etcase.Statuses {
		for _, event := range etcase.Events {
			from, event := from, event
			t.Run(fmt.Sprintf("%s/%s", from, event), func(t *testing.T) {
				ctx := context.Background()
				m, _ := newManager(t, rpcase.NewMemoryCaseRepository())

				c, err := m.Open(ctx, openParams("case-1", "req-1"))
				require.NoError(t, err)
				for _, e := range pathTo[from] {
					c, err = m.Transition(ctx, c.ID, e, "")
					require.NoError(t, err)
				}
				require.Equal(t, from, c.Status)
				before := len(c.Timeline)

				got, err := m.Transition(ctx, c.ID, event, "")
				want, ok := legal[from][event]
				if !ok {
					assert.ErrorIs(t, err, errorx.ErrInvalidTransition)
					var te *etcase.TransitionError
					require.ErrorAs(t, err, &te)
					assert.Equal(t, from, te.From)

					snap, err := m.Get(ctx, c.ID)
					require.NoError(t, err)
					assert.Equal(t, from, snap.Status)
					assert.Len(t, snap.Timeline, before)
					return
				}

				require.NoError(t, err)
				assert.Equal(t, want, got.Status)
				require.Len(t, got.Timeline, before+1)
				assert.Equal(t, want, got.Timeline[before].Status)
				assert.Equal(t, want.Terminal(), got.TerminalAt != nil)
			})
		}
	}
}

func TestOneActiveCasePerRequester(t *testing.T) {
	for _, closing := range [][]etcase.Event{
		{etcase.EventCancel},
		{etcase.EventAccept, etcase.EventPickup, etcase.EventArrive},
	} {
		t.Run(string(closing[len(closing)-1]), func(t *testing.T) {
			ctx := context.Background()
			m, _ := newManager(t, rpcase.NewMemoryCaseRepository())

			first, err := m.Open(ctx, openParams("case-1", "req-1"))
			require.NoError(t, err)

			_, err = m.Open(ctx, openParams("case-2", "req-1"))
			require.ErrorIs(t, err, errorx.ErrActiveCaseExists)
			var ace *errorx.ActiveCaseError
			require.ErrorAs(t, err, &ace)
			assert.Equal(t, first.ID, ace.CaseID)

			// 其他请求方不受影响
			_, err = m.Open(ctx, openParams("case-3", "req-2"))
			require.NoError(t, err)

			active, err := m.ActiveCase(ctx, "req-1")
			require.NoError(t, err)
			assert.Equal(t, first.ID, active.ID)

			for _, e := range closing {
				_, err = m.Transition(ctx, first.ID, e, "")
				require.NoError(t, err)
			}

			_, err = m.ActiveCase(ctx, "req-1")
			assert.ErrorIs(t, err, errorx.ErrCaseNotFound)

			second, err := m.Open(ctx, openParams("case-2", "req-1"))
			require.NoError(t, err)
			assert.Equal(t, etcase.StatusPending, second.Status)

			// 终态 Case 仍可查询
			old, err := m.Get(ctx, first.ID)
			require.NoError(t, err)
			assert.True(t, old.Status.Terminal())
		})
	}
}

func TestCancelRecordsReason(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, rpcase.NewMemoryCaseRepository())

	c, err := m.Open(ctx, openParams("case-1", "req-1"))
	require.NoError(t, err)
	require.Len(t, c.Timeline, 1)

	cancelled, err := m.Cancel(ctx, c.ID, "false alarm")
	require.NoError(t, err)

	assert.Equal(t, etcase.StatusCancelled, cancelled.Status)
	require.Len(t, cancelled.Timeline, 2)
	last := cancelled.Timeline[1]
	assert.Equal(t, etcase.StatusCancelled, last.Status)
	assert.Equal(t, "false alarm", last.Note)
	require.NotNil(t, cancelled.TerminalAt)

	_, err = m.Cancel(ctx, c.ID, "again")
	assert.ErrorIs(t, err, errorx.ErrInvalidTransition)
}

func TestApplyLocationIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m, pub := newManager(t, rpcase.NewMemoryCaseRepository())

	c, err := m.Open(ctx, openParams("case-1", "req-1"))
	require.NoError(t, err)
	published := pub.count()

	upd := etcase.LocationUpdate{
		CaseID:      c.ID,
		Source:      etcase.SourceUnit,
		UnitID:      "cc-1",
		Coordinates: etprimitive.Coordinates{Latitude: 37.80, Longitude: -122.45},
	}

	ev, changed, err := m.ApplyLocation(ctx, upd)
	require.NoError(t, err)
	assert.True(t, changed)
	require.NotNil(t, ev.UnitLocation)
	first, err := m.Get(ctx, c.ID)
	require.NoError(t, err)

	_, changed, err = m.ApplyLocation(ctx, upd)
	require.NoError(t, err)
	assert.False(t, changed)
	second, err := m.Get(ctx, c.ID)
	require.NoError(t, err)

	assert.Equal(t, first.Assignment.UnitLocation, second.Assignment.UnitLocation)
	assert.Equal(t, first.Assignment.ETAMinutes, second.Assignment.ETAMinutes)
	assert.Equal(t, first.Timeline, second.Timeline)
	assert.Len(t, second.Timeline, 1)
	assert.Equal(t, etcase.StatusPending, second.Status)
	assert.Equal(t, published+1, pub.count())
}

func TestApplyLocationRecomputesETA(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, rpcase.NewMemoryCaseRepository())

	c, err := m.Open(ctx, openParams("case-1", "req-1"))
	require.NoError(t, err)

	// 远离请求方约 11km，40km/h 约 17 分钟
	far := etprimitive.Coordinates{Latitude: 37.8749, Longitude: -122.4194}
	ev, _, err := m.ApplyLocation(ctx, etcase.LocationUpdate{CaseID: c.ID, Source: etcase.SourceUnit, Coordinates: far})
	require.NoError(t, err)
	assert.InDelta(t, 11.1, ev.DistanceKm, 0.2)
	assert.Equal(t, 17, ev.ETAMinutes)

	t.Run("in progress targets facility", func(t *testing.T) {
		_, err := m.Accept(ctx, c.ID)
		require.NoError(t, err)
		_, err = m.Pickup(ctx, c.ID)
		require.NoError(t, err)

		ev, changed, err := m.ApplyLocation(ctx, etcase.LocationUpdate{CaseID: c.ID, Source: etcase.SourceUnit, Coordinates: requesterLoc})
		require.NoError(t, err)
		assert.True(t, changed)
		assert.InDelta(t, mdgeo.DistanceKm(requesterLoc, hospital.Location), ev.DistanceKm, 1e-9)
		assert.Equal(t, etcase.StatusInProgress, ev.Status)
	})

	t.Run("requester move", func(t *testing.T) {
		moved := etprimitive.Coordinates{Latitude: 37.7760, Longitude: -122.4200}
		ev, changed, err := m.ApplyLocation(ctx, etcase.LocationUpdate{CaseID: c.ID, Source: etcase.SourceRequester, Coordinates: moved})
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, moved, ev.Location)
	})

	t.Run("wrong unit", func(t *testing.T) {
		_, _, err := m.ApplyLocation(ctx, etcase.LocationUpdate{CaseID: c.ID, Source: etcase.SourceUnit, UnitID: "other", Coordinates: far})
		assert.ErrorIs(t, err, errorx.ErrUnitMismatch)
	})

	t.Run("terminal case drops update", func(t *testing.T) {
		done, err := m.Arrive(ctx, c.ID)
		require.NoError(t, err)

		_, changed, err := m.ApplyLocation(ctx, etcase.LocationUpdate{CaseID: c.ID, Source: etcase.SourceUnit, Coordinates: unitLoc})
		require.NoError(t, err)
		assert.False(t, changed)

		after, err := m.Get(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, done.Assignment.UnitLocation, after.Assignment.UnitLocation)
	})

	t.Run("unknown case", func(t *testing.T) {
		_, _, err := m.ApplyLocation(ctx, etcase.LocationUpdate{CaseID: "nope", Source: etcase.SourceUnit, Coordinates: far})
		assert.ErrorIs(t, err, errorx.ErrCaseNotFound)
	})
}

func TestPickupRetargetsETAToFacility(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, rpcase.NewMemoryCaseRepository())

	c, err := m.Open(ctx, openParams("case-1", "req-1"))
	require.NoError(t, err)
	_, err = m.Accept(ctx, c.ID)
	require.NoError(t, err)

	picked, err := m.Pickup(ctx, c.ID)
	require.NoError(t, err)
	assert.InDelta(t, mdgeo.DistanceKm(unitLoc, hospital.Location), picked.Assignment.DistanceKm, 1e-9)

	snap, err := m.Snapshot(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, picked.Assignment.DistanceKm, snap.DistanceKm)
	assert.Equal(t, picked.Assignment.ETAMinutes, snap.ETAMinutes)
}

func TestTerminalStatusReleasesUnit(t *testing.T) {
	ctx := context.Background()

	claimed := func(t *testing.T) *rpunit.StaticUnitPool {
		pool := criticalCarePool()
		ok, err := pool.Claim(ctx, "cc-1")
		require.NoError(t, err)
		require.True(t, ok)
		return pool
	}

	t.Run("cancel frees unit at last position", func(t *testing.T) {
		pool := claimed(t)
		m := newManagerWithUnits(t, rpcase.NewMemoryCaseRepository(), pool)

		c, err := m.Open(ctx, openParams("case-1", "req-1"))
		require.NoError(t, err)
		_, err = m.Accept(ctx, c.ID)
		require.NoError(t, err)

		u, err := pool.FindNearest(ctx, etunit.ClassCriticalCare, requesterLoc)
		require.NoError(t, err)
		assert.Nil(t, u, "unit stays reserved while the case is active")

		_, err = m.Cancel(ctx, c.ID, "false alarm")
		require.NoError(t, err)

		u, err = pool.FindNearest(ctx, etunit.ClassCriticalCare, requesterLoc)
		require.NoError(t, err)
		require.NotNil(t, u)
		assert.Equal(t, unitLoc, u.Location)
	})

	t.Run("completion frees unit at facility", func(t *testing.T) {
		pool := claimed(t)
		m := newManagerWithUnits(t, rpcase.NewMemoryCaseRepository(), pool)

		c, err := m.Open(ctx, openParams("case-1", "req-1"))
		require.NoError(t, err)
		for _, ev := range pathTo[etcase.StatusCompleted] {
			_, err = m.Transition(ctx, c.ID, ev, "")
			require.NoError(t, err)
		}

		u, err := pool.FindNearest(ctx, etunit.ClassCriticalCare, requesterLoc)
		require.NoError(t, err)
		require.NotNil(t, u)
		assert.Equal(t, hospital.Location, u.Location)
	})

	t.Run("degraded assignment has nothing to free", func(t *testing.T) {
		pool := claimed(t)
		m := newManagerWithUnits(t, rpcase.NewMemoryCaseRepository(), pool)

		p := openParams("case-1", "req-1")
		p.Assignment = &etunit.Assignment{UnitID: "cc-1", Class: etunit.ClassAdvanced, ETAMinutes: 12, Degraded: true}
		c, err := m.Open(ctx, p)
		require.NoError(t, err)
		_, err = m.Cancel(ctx, c.ID, "")
		require.NoError(t, err)

		u, err := pool.FindNearest(ctx, etunit.ClassCriticalCare, requesterLoc)
		require.NoError(t, err)
		assert.Nil(t, u)
	})
}

func TestLoadReclaimsActiveUnits(t *testing.T) {
	ctx := context.Background()
	repo := rpcase.NewMemoryCaseRepository()

	before, _ := newManager(t, repo)
	_, err := before.Open(ctx, openParams("case-1", "req-1"))
	require.NoError(t, err)

	pool := criticalCarePool()
	after := newManagerWithUnits(t, repo, pool)
	require.NoError(t, after.Load(ctx))

	u, err := pool.FindNearest(ctx, etunit.ClassCriticalCare, requesterLoc)
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestDegradedAssignmentKeepsETAUntilUnitReports(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, rpcase.NewMemoryCaseRepository())

	p := openParams("case-1", "req-1")
	p.Triage = nil
	p.Assignment = &etunit.Assignment{UnitID: "fallback-0001", Class: etunit.ClassAdvanced, ETAMinutes: 12, Degraded: true}
	c, err := m.Open(ctx, p)
	require.NoError(t, err)
	assert.Nil(t, c.Triage)

	ev, _, err := m.ApplyLocation(ctx, etcase.LocationUpdate{CaseID: c.ID, Source: etcase.SourceRequester, Coordinates: etprimitive.Coordinates{Latitude: 37.78, Longitude: -122.42}})
	require.NoError(t, err)
	assert.Equal(t, 12, ev.ETAMinutes)

	ev, _, err = m.ApplyLocation(ctx, etcase.LocationUpdate{CaseID: c.ID, Source: etcase.SourceUnit, UnitID: "fallback-0001", Coordinates: unitLoc})
	require.NoError(t, err)
	assert.NotEqual(t, 12, ev.ETAMinutes)
}

func TestPersistFailureLeavesSnapshot(t *testing.T) {
	ctx := context.Background()
	repo := &flakyRepo{CaseRepository: rpcase.NewMemoryCaseRepository()}
	m, _ := newManager(t, repo)

	c, err := m.Open(ctx, openParams("case-1", "req-1"))
	require.NoError(t, err)

	repo.failUpdate = true
	_, err = m.Accept(ctx, c.ID)
	require.Error(t, err)
	_, _, err = m.ApplyLocation(ctx, etcase.LocationUpdate{CaseID: c.ID, Source: etcase.SourceUnit, Coordinates: requesterLoc})
	require.Error(t, err)

	snap, err := m.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, etcase.StatusPending, snap.Status)
	assert.Len(t, snap.Timeline, 1)
	assert.Equal(t, unitLoc, *snap.Assignment.UnitLocation)

	repo.failUpdate = false
	_, err = m.Accept(ctx, c.ID)
	assert.NoError(t, err)
}

func TestLoadRebuildsActiveIndex(t *testing.T) {
	ctx := context.Background()
	repo := rpcase.NewMemoryCaseRepository()

	before, _ := newManager(t, repo)
	c, err := before.Open(ctx, openParams("case-1", "req-1"))
	require.NoError(t, err)
	done, err := before.Open(ctx, openParams("case-2", "req-2"))
	require.NoError(t, err)
	_, err = before.Cancel(ctx, done.ID, "resolved by phone")
	require.NoError(t, err)

	after, _ := newManager(t, repo)
	require.NoError(t, after.Load(ctx))

	_, err = after.Open(ctx, openParams("case-3", "req-1"))
	var ace *errorx.ActiveCaseError
	require.ErrorAs(t, err, &ace)
	assert.Equal(t, c.ID, ace.CaseID)

	_, err = after.Open(ctx, openParams("case-4", "req-2"))
	assert.NoError(t, err)
}

func TestConcurrentOpenAdmitsOne(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, rpcase.NewMemoryCaseRepository())

	const n = 32
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		opened  []string
		rejects int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := m.Open(ctx, openParams(fmt.Sprintf("case-%d", i), "req-1"))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				opened = append(opened, c.ID)
				return
			}
			if errors.Is(err, errorx.ErrActiveCaseExists) {
				rejects++
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, opened, 1)
	assert.Equal(t, n-1, rejects)
}

func TestConcurrentLocationAndTransitions(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, rpcase.NewMemoryCaseRepository())

	c, err := m.Open(ctx, openParams("case-1", "req-1"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, _ = m.ApplyLocation(ctx, etcase.LocationUpdate{
				CaseID:      c.ID,
				Source:      etcase.SourceUnit,
				Coordinates: etprimitive.Coordinates{Latitude: 37.78 + float64(i)*0.001, Longitude: -122.42},
				ReportedAt:  time.Now(),
			})
		}(i)
	}
	for _, e := range []etcase.Event{etcase.EventAccept, etcase.EventPickup, etcase.EventArrive} {
		wg.Add(1)
		go func(e etcase.Event) {
			defer wg.Done()
			// 乱序到达的事件可能被拒绝，最终时间线必须仍是合法序列
			_, _ = m.Transition(ctx, c.ID, e, "")
		}(e)
	}
	wg.Wait()

	snap, err := m.Get(ctx, c.ID)
	require.NoError(t, err)
	require.NotEmpty(t, snap.Timeline)
	assert.Equal(t, etcase.StatusPending, snap.Timeline[0].Status)
	for i := 1; i < len(snap.Timeline); i++ {
		prev := snap.Timeline[i-1].Status
		found := false
		for _, e := range etcase.Events {
			if to, ok := etcase.Next(prev, e); ok && to == snap.Timeline[i].Status {
				found = true
			}
		}
		assert.True(t, found, "illegal step %s -> %s", prev, snap.Timeline[i].Status)
	}
	assert.Equal(t, snap.Timeline[len(snap.Timeline)-1].Status, snap.Status)
}
