package location

import (
	"context"
	"encoding/json"
	"time"

	"alertx/internal/app/domains/entity/etprimitive"
	"alertx/internal/common/model"
	"alertx/internal/feed/domains/common"
	"alertx/internal/feed/domains/common/job"
	"alertx/internal/feed/domains/common/response"
	"alertx/internal/feed/errorutil"
	"alertx/internal/feed/framework"
)

// LocationHandler 车载终端位置上报
type LocationHandler struct {
	ctx     context.Context
	svc     common.CaseEvents
	meta    *job.Meta
	payload json.RawMessage

	data   model.UnitLocationData
	coords etprimitive.Coordinates
}

// NewLocationHandler 创建 Handler
func NewLocationHandler(ctx context.Context, svc common.CaseEvents, meta *job.Meta, payload json.RawMessage) (common.HandlerServ, error) {
	return &LocationHandler{
		ctx:     ctx,
		svc:     svc,
		meta:    meta,
		payload: payload,
	}, nil
}

// GetProcess 解析 -> 校验 -> 应用
func (h *LocationHandler) GetProcess() *response.Response {
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

func (h *LocationHandler) parse(ctx context.Context) error {
	if err := json.Unmarshal(h.payload, &h.data); err != nil {
		return errorutil.NonRetriableWithDetails("invalid unit_location payload", err.Error())
	}
	// 信封上的 id 兜底
	if h.data.CaseID == "" {
		h.data.CaseID = h.meta.ID
	}
	return nil
}

func (h *LocationHandler) validate(ctx context.Context) error {
	if h.data.CaseID == "" {
		return errorutil.NonRetriable("case_id is required")
	}
	if h.data.UnitID == "" {
		return errorutil.NonRetriable("unit_id is required")
	}
	coords, err := etprimitive.NewCoordinates(h.data.Latitude, h.data.Longitude)
	if err != nil {
		return err
	}
	h.coords = coords
	return nil
}

func (h *LocationHandler) apply(ctx context.Context, result *response.EventResult) error {
	reportedAt := time.Now()
	if h.data.ReportedAt > 0 {
		reportedAt = time.Unix(h.data.ReportedAt, 0)
	}

	ev, err := h.svc.ApplyUnitLocation(ctx, h.data.CaseID, h.data.UnitID, h.coords, reportedAt)
	if err != nil {
		return err
	}
	result.CaseID = ev.CaseID
	result.CaseStatus = string(ev.Status)
	result.ETAMinutes = ev.ETAMinutes
	return nil
}
