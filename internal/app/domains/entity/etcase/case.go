package etcase

import (
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"alertx/internal/app/domains/entity/etprimitive"
	"alertx/internal/app/domains/entity/ettriage"
	"alertx/internal/app/domains/entity/etunit"
	"alertx/internal/app/pkg/errorx"
)

// 错误定义
var (
	ErrInvalidCaseID      = errors.New("case ID cannot be empty")
	ErrInvalidRequesterID = errors.New("requester ID cannot be empty")
	ErrNilAssignment      = errors.New("assignment cannot be nil")
)

// Status Case 状态
type Status string

const (
	StatusPending    Status = "pending"
	StatusAccepted   Status = "accepted"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Statuses 全部状态
var Statuses = []Status{StatusPending, StatusAccepted, StatusInProgress, StatusCompleted, StatusCancelled}

// Terminal 是否终态
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Event 状态流转事件
type Event string

const (
	EventAccept Event = "accept" // 车辆确认
	EventPickup Event = "pickup" // 接到患者
	EventArrive Event = "arrive" // 到达医院
	EventCancel Event = "cancel"
)

// Events 全部事件
var Events = []Event{EventAccept, EventPickup, EventArrive, EventCancel}

// 状态流转表：from -> event -> to
var transitions = map[Status]map[Event]Status{
	StatusPending:    {EventAccept: StatusAccepted, EventCancel: StatusCancelled},
	StatusAccepted:   {EventPickup: StatusInProgress, EventCancel: StatusCancelled},
	StatusInProgress: {EventArrive: StatusCompleted, EventCancel: StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// Next 查询流转目标状态
func Next(from Status, event Event) (Status, bool) {
	to, ok := transitions[from][event]
	return to, ok
}

// TransitionError 非法流转，errors.Is(err, errorx.ErrInvalidTransition) 为真
type TransitionError struct {
	From  Status
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s on %s", e.Event, e.From)
}

func (e *TransitionError) Unwrap() error {
	return errorx.ErrInvalidTransition
}

// TimelineEntry 时间线条目（只追加）
type TimelineEntry struct {
	ID     string    `json:"id"`
	Status Status    `json:"status"`
	At     time.Time `json:"at"`
	Note   string    `json:"note,omitempty"`
}

func newEntry(status Status, at time.Time, note string) TimelineEntry {
	return TimelineEntry{
		ID:     ulid.Make().String(),
		Status: status,
		At:     at,
		Note:   note,
	}
}

// Case 急救单聚合根
type Case struct {
	ID          string
	RequesterID string
	Triage      *ettriage.TriageResult // 分类不可用时为空
	Assignment  *etunit.Assignment
	Location    etprimitive.Coordinates // 请求方当前位置
	Status      Status
	Timeline    []TimelineEntry
	CreatedAt   time.Time
	UpdatedAt   time.Time
	TerminalAt  *time.Time
}

// NewCase 创建 Case（工厂方法），初始状态 pending 并写入第一条时间线
func NewCase(id, requesterID string, triage *ettriage.TriageResult, assignment *etunit.Assignment, location etprimitive.Coordinates, now time.Time) (*Case, error) {
	if id == "" {
		return nil, ErrInvalidCaseID
	}
	if requesterID == "" {
		return nil, ErrInvalidRequesterID
	}
	if assignment == nil {
		return nil, ErrNilAssignment
	}
	if err := location.Validate(); err != nil {
		return nil, err
	}

	return &Case{
		ID:          id,
		RequesterID: requesterID,
		Triage:      triage,
		Assignment:  assignment,
		Location:    location,
		Status:      StatusPending,
		Timeline:    []TimelineEntry{newEntry(StatusPending, now, "")},
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Apply 执行状态流转（领域行为），返回新追加的时间线条目
func (c *Case) Apply(event Event, note string, now time.Time) (TimelineEntry, error) {
	to, ok := Next(c.Status, event)
	if !ok {
		return TimelineEntry{}, &TransitionError{From: c.Status, Event: event}
	}

	entry := newEntry(to, now, note)
	c.Status = to
	c.Timeline = append(c.Timeline, entry)
	c.UpdatedAt = now
	if to.Terminal() {
		t := now
		c.TerminalAt = &t
	}
	return entry, nil
}

// Active 是否仍占用请求方的活跃名额
func (c *Case) Active() bool {
	return !c.Status.Terminal()
}

// Clone 深拷贝，快照之间互不影响
func (c *Case) Clone() *Case {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Assignment = c.Assignment.Clone()
	cp.Timeline = append([]TimelineEntry(nil), c.Timeline...)
	if c.TerminalAt != nil {
		t := *c.TerminalAt
		cp.TerminalAt = &t
	}
	return &cp
}

// LocationSource 位置上报方
type LocationSource string

const (
	SourceUnit      LocationSource = "unit"
	SourceRequester LocationSource = "requester"
)

// LocationUpdate 位置上报
type LocationUpdate struct {
	CaseID      string                  `json:"case_id"`
	Source      LocationSource          `json:"source"`
	UnitID      string                  `json:"unit_id,omitempty"`
	Coordinates etprimitive.Coordinates `json:"coordinates"`
	ReportedAt  time.Time               `json:"reported_at"`
}

// LocationEvent 推送给订阅方的位置事件
type LocationEvent struct {
	CaseID       string                   `json:"case_id"`
	Source       LocationSource           `json:"source"`
	UnitLocation *etprimitive.Coordinates `json:"unit_location,omitempty"`
	Location     etprimitive.Coordinates  `json:"location"`
	DistanceKm   float64                  `json:"distance_km"`
	ETAMinutes   int                      `json:"eta_minutes"`
	Status       Status                   `json:"status"`
	At           time.Time                `json:"at"`
}
