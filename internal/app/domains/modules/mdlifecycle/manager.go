package mdlifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"

	"alertx/internal/app/domains/entity/etcase"
	"alertx/internal/app/domains/entity/etprimitive"
	"alertx/internal/app/domains/entity/ettriage"
	"alertx/internal/app/domains/entity/etunit"
	"alertx/internal/app/domains/modules/mdgeo"
	"alertx/internal/app/domains/repo/rpcase"
	"alertx/internal/app/pkg/errorx"
	"alertx/internal/app/pkg/logger"
)

// Publisher 位置/状态事件的下游，Feed 实现
type Publisher interface {
	Publish(ctx context.Context, event *etcase.LocationEvent) error
}

// Units 车辆占用登记，rpunit.UnitPool 实现
type Units interface {
	Claim(ctx context.Context, unitID string) (bool, error)
	Release(ctx context.Context, unitID string, at etprimitive.Coordinates) error
}

// caseSlot 单个 Case 的串行化点
// 写操作持有 mu；读操作只读 snap，不与写互斥
type caseSlot struct {
	mu   sync.Mutex
	snap atomic.Value // *etcase.Case，存入后不再修改
}

func newSlot(c *etcase.Case) *caseSlot {
	s := &caseSlot{}
	s.snap.Store(c)
	return s
}

func (s *caseSlot) load() *etcase.Case {
	return s.snap.Load().(*etcase.Case)
}

// Manager Case 生命周期管理：状态机、时间线、活跃名额、位置折叠
type Manager struct {
	repo      rpcase.CaseRepository
	estimator *mdgeo.Estimator
	publisher Publisher
	units     Units
	logger    logger.Logger
	now       func() time.Time

	slotsMu sync.RWMutex
	slots   map[string]*caseSlot

	// requesterID -> 活跃 caseID
	activeMu sync.Mutex
	active   map[string]string
}

// NewManager 创建生命周期管理器，publisher 和 units 可为空
func NewManager(repo rpcase.CaseRepository, estimator *mdgeo.Estimator, publisher Publisher, units Units, log logger.Logger) *Manager {
	return &Manager{
		repo:      repo,
		estimator: estimator,
		publisher: publisher,
		units:     units,
		logger:    log,
		now:       time.Now,
		slots:     make(map[string]*caseSlot),
		active:    make(map[string]string),
	}
}

// Load 从仓储重建活跃索引，启动时调用一次
func (m *Manager) Load(ctx context.Context) error {
	cases, err := m.repo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active cases: %w", err)
	}

	m.activeMu.Lock()
	defer m.activeMu.Unlock()
	m.slotsMu.Lock()
	defer m.slotsMu.Unlock()

	for _, c := range cases {
		if existing, ok := m.active[c.RequesterID]; ok {
			m.logger.Warnf(ctx, "[Lifecycle] requester %s has multiple active cases: kept=%s, ignored=%s",
				c.RequesterID, existing, c.ID)
			continue
		}
		m.active[c.RequesterID] = c.ID
		m.slots[c.ID] = newSlot(c)
		m.reclaimUnit(ctx, c)
	}
	m.logger.Infof(ctx, "[Lifecycle] active index rebuilt: %d cases", len(m.active))
	return nil
}

// OpenParams 新建 Case 所需数据
type OpenParams struct {
	CaseID      string
	RequesterID string
	Triage      *ettriage.TriageResult
	Assignment  *etunit.Assignment
	Location    etprimitive.Coordinates
}

// Open 新建 Case
// 同一请求方已有非终态 Case 时返回 *errorx.ActiveCaseError
func (m *Manager) Open(ctx context.Context, p OpenParams) (*etcase.Case, error) {
	c, err := etcase.NewCase(p.CaseID, p.RequesterID, p.Triage, p.Assignment, p.Location, m.now())
	if err != nil {
		return nil, err
	}

	// 先占名额再落库，占位与检查在同一把锁内完成
	if err := m.reserve(p.RequesterID, p.CaseID); err != nil {
		return nil, err
	}

	if err := m.repo.Create(ctx, c); err != nil {
		m.release(p.RequesterID, p.CaseID)
		return nil, fmt.Errorf("persist case: %w", err)
	}

	m.slotsMu.Lock()
	if _, ok := m.slots[c.ID]; !ok {
		m.slots[c.ID] = newSlot(c)
	}
	m.slotsMu.Unlock()

	m.logger.Infof(logger.WithCaseID(ctx, c.ID), "[Lifecycle] case opened: requester=%s, unit=%s, degraded=%v",
		c.RequesterID, c.Assignment.UnitID, c.Assignment.Degraded)

	m.publish(ctx, eventOf(c, ""))
	return c.Clone(), nil
}

func (m *Manager) reserve(requesterID, caseID string) error {
	m.activeMu.Lock()
	defer m.activeMu.Unlock()
	if existing, ok := m.active[requesterID]; ok {
		return &errorx.ActiveCaseError{CaseID: existing, RequesterID: requesterID}
	}
	m.active[requesterID] = caseID
	return nil
}

func (m *Manager) release(requesterID, caseID string) {
	m.activeMu.Lock()
	defer m.activeMu.Unlock()
	if m.active[requesterID] == caseID {
		delete(m.active, requesterID)
	}
}

// slot 取 Case 的串行化点；内存未命中时从仓储加载
// 终态 Case 不再变化，加载后不放入内存
func (m *Manager) slot(ctx context.Context, caseID string) (*caseSlot, error) {
	m.slotsMu.RLock()
	s, ok := m.slots[caseID]
	m.slotsMu.RUnlock()
	if ok {
		return s, nil
	}

	c, err := m.repo.GetByID(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if !c.Active() {
		return newSlot(c), nil
	}

	m.slotsMu.Lock()
	defer m.slotsMu.Unlock()
	if s, ok := m.slots[caseID]; ok {
		return s, nil
	}
	s = newSlot(c)
	m.slots[caseID] = s
	return s, nil
}

func (m *Manager) evict(caseID string) {
	m.slotsMu.Lock()
	delete(m.slots, caseID)
	m.slotsMu.Unlock()
}

// Get 当前已提交的快照
func (m *Manager) Get(ctx context.Context, caseID string) (*etcase.Case, error) {
	s, err := m.slot(ctx, caseID)
	if err != nil {
		return nil, err
	}
	return s.load().Clone(), nil
}

// ActiveCase 请求方当前的非终态 Case，没有时返回 errorx.ErrCaseNotFound
func (m *Manager) ActiveCase(ctx context.Context, requesterID string) (*etcase.Case, error) {
	m.activeMu.Lock()
	caseID, ok := m.active[requesterID]
	m.activeMu.Unlock()
	if !ok {
		return nil, errorx.ErrCaseNotFound
	}
	return m.Get(ctx, caseID)
}

// Transition 执行状态流转：先落库，成功后再替换快照
func (m *Manager) Transition(ctx context.Context, caseID string, event etcase.Event, note string) (*etcase.Case, error) {
	ctx = logger.WithCaseID(ctx, caseID)

	s, err := m.slot(ctx, caseID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.load().Clone()
	entry, err := next.Apply(event, note, m.now())
	if err != nil {
		return nil, err
	}
	// 接到患者后 ETA 改为到目的医院
	if next.Status == etcase.StatusInProgress {
		m.refreshETA(next)
	}

	if err := m.repo.Update(ctx, next, entry); err != nil {
		return nil, fmt.Errorf("persist transition: %w", err)
	}
	s.snap.Store(next)

	m.logger.Infof(ctx, "[Lifecycle] case transitioned: event=%s, status=%s", event, next.Status)

	if next.Status.Terminal() {
		m.release(next.RequesterID, next.ID)
		m.evict(next.ID)
		m.releaseUnit(ctx, next)
	}

	m.publish(ctx, eventOf(next, ""))
	return next.Clone(), nil
}

// pooled 派车结果对应车辆池中的真实车辆
func pooled(a *etunit.Assignment) bool {
	return a != nil && !a.Degraded && a.UnitID != ""
}

// reclaimUnit 重启后重新占用活跃 Case 的车辆
func (m *Manager) reclaimUnit(ctx context.Context, c *etcase.Case) {
	if m.units == nil || !pooled(c.Assignment) {
		return
	}
	ok, err := m.units.Claim(ctx, c.Assignment.UnitID)
	if err != nil {
		m.logger.Warnf(ctx, "[Lifecycle] reclaim unit failed: case=%s, unit=%s, error=%v", c.ID, c.Assignment.UnitID, err)
		return
	}
	if !ok {
		m.logger.Warnf(ctx, "[Lifecycle] unit already claimed: case=%s, unit=%s", c.ID, c.Assignment.UnitID)
	}
}

// releaseUnit 终态后车辆重新可派：完成时停在目的医院，否则停在最后上报位置
func (m *Manager) releaseUnit(ctx context.Context, c *etcase.Case) {
	a := c.Assignment
	if m.units == nil || !pooled(a) {
		return
	}
	at := c.Location
	if a.UnitLocation != nil {
		at = *a.UnitLocation
	}
	if c.Status == etcase.StatusCompleted && a.Destination != nil {
		at = a.Destination.Location
	}
	if err := m.units.Release(ctx, a.UnitID, at); err != nil {
		m.logger.Warnf(ctx, "[Lifecycle] release unit failed: unit=%s, error=%v", a.UnitID, err)
		return
	}
	m.logger.Infof(ctx, "[Lifecycle] unit released: unit=%s, at=%s", a.UnitID, at)
}

// Accept 车辆确认
func (m *Manager) Accept(ctx context.Context, caseID string) (*etcase.Case, error) {
	return m.Transition(ctx, caseID, etcase.EventAccept, "")
}

// Pickup 接到患者
func (m *Manager) Pickup(ctx context.Context, caseID string) (*etcase.Case, error) {
	return m.Transition(ctx, caseID, etcase.EventPickup, "")
}

// Arrive 到达医院
func (m *Manager) Arrive(ctx context.Context, caseID string) (*etcase.Case, error) {
	return m.Transition(ctx, caseID, etcase.EventArrive, "")
}

// Cancel 取消，reason 记入时间线
func (m *Manager) Cancel(ctx context.Context, caseID, reason string) (*etcase.Case, error) {
	return m.Transition(ctx, caseID, etcase.EventCancel, reason)
}

// ApplyLocation 折叠位置上报，不改变状态，不写时间线
// 返回的 changed 为 false 表示被丢弃（终态）或坐标未变
func (m *Manager) ApplyLocation(ctx context.Context, upd etcase.LocationUpdate) (*etcase.LocationEvent, bool, error) {
	if err := upd.Coordinates.Validate(); err != nil {
		return nil, false, err
	}
	ctx = logger.WithCaseID(ctx, upd.CaseID)

	s, err := m.slot(ctx, upd.CaseID)
	if err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.load()
	if cur.Status.Terminal() {
		m.logger.Debugf(ctx, "[Lifecycle] location dropped on terminal case: status=%s", cur.Status)
		return eventOf(cur, upd.Source), false, nil
	}

	next := cur.Clone()
	switch upd.Source {
	case etcase.SourceUnit:
		if upd.UnitID != "" && upd.UnitID != cur.Assignment.UnitID {
			return nil, false, fmt.Errorf("%w: unit=%s, assigned=%s", errorx.ErrUnitMismatch, upd.UnitID, cur.Assignment.UnitID)
		}
		if cur.Assignment.UnitLocation != nil && cur.Assignment.UnitLocation.Equal(upd.Coordinates) {
			return eventOf(cur, upd.Source), false, nil
		}
		loc := upd.Coordinates
		next.Assignment.UnitLocation = &loc
	case etcase.SourceRequester:
		if cur.Location.Equal(upd.Coordinates) {
			return eventOf(cur, upd.Source), false, nil
		}
		next.Location = upd.Coordinates
	default:
		return nil, false, fmt.Errorf("unknown location source: %q", upd.Source)
	}

	m.refreshETA(next)
	next.UpdatedAt = m.now()

	if err := m.repo.Update(ctx, next); err != nil {
		return nil, false, fmt.Errorf("persist location: %w", err)
	}
	s.snap.Store(next)

	ev := eventOf(next, upd.Source)
	m.publish(ctx, ev)
	return ev, true, nil
}

// refreshETA 车辆位置未知时（降级派车）保留原 ETA
func (m *Manager) refreshETA(c *etcase.Case) {
	if c.Assignment.UnitLocation == nil {
		return
	}
	est := m.estimator.Estimate(*c.Assignment.UnitLocation, etaTarget(c))
	c.Assignment.DistanceKm = est.DistanceKm
	c.Assignment.ETAMinutes = est.ETAMinutes
}

// etaTarget 接到患者前指向请求方，之后指向目的医院
func etaTarget(c *etcase.Case) etprimitive.Coordinates {
	if c.Status == etcase.StatusInProgress && c.Assignment.Destination != nil {
		return c.Assignment.Destination.Location
	}
	return c.Location
}

// Snapshot 当前位置事件，长轮询超时和推送首帧使用
func (m *Manager) Snapshot(ctx context.Context, caseID string) (*etcase.LocationEvent, error) {
	c, err := m.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}
	return eventOf(c, ""), nil
}

func (m *Manager) publish(ctx context.Context, ev *etcase.LocationEvent) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.Publish(ctx, ev); err != nil && !errors.Is(err, context.Canceled) {
		m.logger.Warnf(ctx, "[Lifecycle] publish event failed: %v", err)
	}
}

func eventOf(c *etcase.Case, source etcase.LocationSource) *etcase.LocationEvent {
	ev := &etcase.LocationEvent{
		CaseID:   c.ID,
		Source:   source,
		Location: c.Location,
		Status:   c.Status,
		At:       c.UpdatedAt,
	}
	if a := c.Assignment; a != nil {
		if a.UnitLocation != nil {
			loc := *a.UnitLocation
			ev.UnitLocation = &loc
		}
		ev.DistanceKm = a.DistanceKm
		ev.ETAMinutes = a.ETAMinutes
	}
	return ev
}
