package domains

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bitleak/lmstfy/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alertx/internal/app/domains/entity/etcase"
	"alertx/internal/app/domains/entity/etprimitive"
	"alertx/internal/app/pkg/errorx"
	"alertx/internal/app/pkg/logger"
	"alertx/internal/common/model"
	"alertx/internal/feed/lmstfyx"
)

type stubEvents struct {
	locErr    error
	statusErr error
	lastLoc   etprimitive.Coordinates
	lastEvent etcase.Event
}

func (s *stubEvents) ApplyUnitLocation(ctx context.Context, caseID, unitID string, at etprimitive.Coordinates, reportedAt time.Time) (*etcase.LocationEvent, error) {
	if s.locErr != nil {
		return nil, s.locErr
	}
	s.lastLoc = at
	return &etcase.LocationEvent{CaseID: caseID, Status: etcase.StatusAccepted, ETAMinutes: 7}, nil
}

func (s *stubEvents) ApplyUnitStatus(ctx context.Context, caseID string, event etcase.Event, note string) (*etcase.Case, error) {
	if s.statusErr != nil {
		return nil, s.statusErr
	}
	s.lastEvent = event
	return &etcase.Case{ID: caseID, Status: etcase.StatusAccepted}, nil
}

func encode(t *testing.T, action, id string, data interface{}) *client.Job {
	t.Helper()
	raw, err := json.Marshal(model.NewJob("req-1", action, id, data))
	require.NoError(t, err)
	return &client.Job{ID: "job-1", Queue: "unit_events", Data: raw}
}

func TestGetProcessRouting(t *testing.T) {
	location := model.UnitLocationData{CaseID: "case-1", UnitID: "adv-1", Latitude: 37.78, Longitude: -122.42}

	tests := []struct {
		name   string
		svc    *stubEvents
		job    func(t *testing.T) *client.Job
		action lmstfyx.JobRespStatus
	}{
		{
			name:   "location applied",
			svc:    &stubEvents{},
			job:    func(t *testing.T) *client.Job { return encode(t, model.ActionUnitLocation, "case-1", location) },
			action: lmstfyx.JobRespStatusSuccess,
		},
		{
			name: "status applied",
			svc:  &stubEvents{},
			job: func(t *testing.T) *client.Job {
				return encode(t, model.ActionUnitStatus, "case-1", model.UnitStatusData{Event: "ACCEPT"})
			},
			action: lmstfyx.JobRespStatusSuccess,
		},
		{
			name: "unknown event buried",
			svc:  &stubEvents{},
			job: func(t *testing.T) *client.Job {
				return encode(t, model.ActionUnitStatus, "case-1", model.UnitStatusData{Event: "teleport"})
			},
			action: lmstfyx.JobRespStatusBury,
		},
		{
			name: "bad coordinates buried",
			svc:  &stubEvents{},
			job: func(t *testing.T) *client.Job {
				return encode(t, model.ActionUnitLocation, "case-1", model.UnitLocationData{UnitID: "adv-1", Latitude: 95})
			},
			action: lmstfyx.JobRespStatusBury,
		},
		{
			name:   "missing case buried",
			svc:    &stubEvents{locErr: fmt.Errorf("load: %w", errorx.ErrCaseNotFound)},
			job:    func(t *testing.T) *client.Job { return encode(t, model.ActionUnitLocation, "case-1", location) },
			action: lmstfyx.JobRespStatusBury,
		},
		{
			name: "invalid transition buried",
			svc:  &stubEvents{statusErr: errorx.ErrInvalidTransition},
			job: func(t *testing.T) *client.Job {
				return encode(t, model.ActionUnitStatus, "case-1", model.UnitStatusData{Event: "arrive"})
			},
			action: lmstfyx.JobRespStatusBury,
		},
		{
			name:   "storage failure released",
			svc:    &stubEvents{locErr: errors.New("persist location: connection reset")},
			job:    func(t *testing.T) *client.Job { return encode(t, model.ActionUnitLocation, "case-1", location) },
			action: lmstfyx.JobRespStatusRelease,
		},
		{
			name:   "unknown action buried",
			svc:    &stubEvents{},
			job:    func(t *testing.T) *client.Job { return encode(t, "case_closed", "case-1", nil) },
			action: lmstfyx.JobRespStatusBury,
		},
		{
			name:   "malformed job buried",
			svc:    &stubEvents{},
			job:    func(t *testing.T) *client.Job { return &client.Job{ID: "job-x", Data: []byte("{not json")} },
			action: lmstfyx.JobRespStatusBury,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := GetProcess(logger.NewNop(), tt.svc)
			resp := proc(context.Background(), tt.job(t))
			assert.Equal(t, tt.action, resp.Action)
		})
	}
}

func TestGetProcessPassesPayload(t *testing.T) {
	svc := &stubEvents{}
	proc := GetProcess(logger.NewNop(), svc)

	resp := proc(context.Background(), encode(t, model.ActionUnitLocation, "case-1",
		model.UnitLocationData{UnitID: "adv-1", Latitude: 37.78, Longitude: -122.42}))
	require.Equal(t, lmstfyx.JobRespStatusSuccess, resp.Action)
	assert.True(t, svc.lastLoc.Equal(etprimitive.Coordinates{Latitude: 37.78, Longitude: -122.42}))
	assert.Contains(t, string(resp.Data), `"case_status":"accepted"`)

	_ = proc(context.Background(), encode(t, model.ActionUnitStatus, "case-1", model.UnitStatusData{Event: " Pickup "}))
	assert.Equal(t, etcase.EventPickup, svc.lastEvent)
}
