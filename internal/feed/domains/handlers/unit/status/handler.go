package status

import (
	"context"
	"encoding/json"
	"strings"

	"alertx/internal/app/domains/entity/etcase"
	"alertx/internal/common/model"
	"alertx/internal/feed/domains/common"
	"alertx/internal/feed/domains/common/job"
	"alertx/internal/feed/domains/common/response"
	"alertx/internal/feed/errorutil"
	"alertx/internal/feed/framework"
)

// StatusHandler 车组状态确认
type StatusHandler struct {
	ctx     context.Context
	svc     common.CaseEvents
	meta    *job.Meta
	payload json.RawMessage

	data  model.UnitStatusData
	event etcase.Event
}

// NewStatusHandler 创建 Handler
func NewStatusHandler(ctx context.Context, svc common.CaseEvents, meta *job.Meta, payload json.RawMessage) (common.HandlerServ, error) {
	return &StatusHandler{
		ctx:     ctx,
		svc:     svc,
		meta:    meta,
		payload: payload,
	}, nil
}

// GetProcess 解析 -> 校验 -> 流转
func (h *StatusHandler) GetProcess() *response.Response {
	result := response.NewEventResult()

	err := framework.NewPreProcessor(
		h.parse,
		h.validate,
		func(ctx context.Context) error { return h.apply(ctx, result) },
	).Run(h.ctx)

	resp := &response.Response{}
	resp.WrapResponse(result, h.meta, err)
	return resp
}

func (h *StatusHandler) parse(ctx context.Context) error {
	if err := json.Unmarshal(h.payload, &h.data); err != nil {
		return errorutil.NonRetriableWithDetails("invalid unit_status payload", err.Error())
	}
	if h.data.CaseID == "" {
		h.data.CaseID = h.meta.ID
	}
	return nil
}

func (h *StatusHandler) validate(ctx context.Context) error {
	if h.data.CaseID == "" {
		return errorutil.NonRetriable("case_id is required")
	}
	ev := etcase.Event(strings.ToLower(strings.TrimSpace(h.data.Event)))
	for _, known := range etcase.Events {
		if ev == known {
			h.event = ev
			return nil
		}
	}
	return errorutil.NonRetriable("unknown event: " + h.data.Event)
}

func (h *StatusHandler) apply(ctx context.Context, result *response.EventResult) error {
	c, err := h.svc.ApplyUnitStatus(ctx, h.data.CaseID, h.event, h.data.Note)
	if err != nil {
		return err
	}
	result.CaseID = c.ID
	result.CaseStatus = string(c.Status)
	return nil
}
