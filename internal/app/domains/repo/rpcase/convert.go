package rpcase

import (
	"encoding/json"
	"fmt"

	"alertx/internal/app/domains/entity/etcase"
	"alertx/internal/app/domains/entity/etprimitive"
	"alertx/internal/app/domains/entity/ettriage"
	"alertx/internal/app/domains/entity/etunit"
	"alertx/internal/common/entity"
)

// toPO 领域对象转换为持久化模型（不含时间线）
func toPO(c *etcase.Case) (*entity.Case, error) {
	assignment, err := json.Marshal(c.Assignment)
	if err != nil {
		return nil, fmt.Errorf("marshal assignment: %w", err)
	}

	po := &entity.Case{
		ID:          c.ID,
		RequesterID: c.RequesterID,
		Assignment:  assignment,
		Latitude:    c.Location.Latitude,
		Longitude:   c.Location.Longitude,
		Status:      string(c.Status),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
		TerminalAt:  c.TerminalAt,
	}

	// 分类不可用时不写 triage
	if c.Triage != nil {
		triage, err := json.Marshal(c.Triage)
		if err != nil {
			return nil, fmt.Errorf("marshal triage: %w", err)
		}
		po.Triage = triage
	}
	return po, nil
}

// toDomain 持久化模型转换为领域对象
func toDomain(po *entity.Case, timeline []entity.CaseTimelineEntry) (*etcase.Case, error) {
	c := &etcase.Case{
		ID:          po.ID,
		RequesterID: po.RequesterID,
		Location:    etprimitive.Coordinates{Latitude: po.Latitude, Longitude: po.Longitude},
		Status:      etcase.Status(po.Status),
		CreatedAt:   po.CreatedAt,
		UpdatedAt:   po.UpdatedAt,
		TerminalAt:  po.TerminalAt,
	}

	if len(po.Triage) > 0 && string(po.Triage) != "null" {
		var triage ettriage.TriageResult
		if err := json.Unmarshal(po.Triage, &triage); err != nil {
			return nil, fmt.Errorf("unmarshal triage of case %s: %w", po.ID, err)
		}
		c.Triage = &triage
	}

	var assignment etunit.Assignment
	if err := json.Unmarshal(po.Assignment, &assignment); err != nil {
		return nil, fmt.Errorf("unmarshal assignment of case %s: %w", po.ID, err)
	}
	c.Assignment = &assignment

	c.Timeline = make([]etcase.TimelineEntry, 0, len(timeline))
	for _, e := range timeline {
		c.Timeline = append(c.Timeline, etcase.TimelineEntry{
			ID:     e.ID,
			Status: etcase.Status(e.Status),
			At:     e.At,
			Note:   e.Note,
		})
	}
	return c, nil
}

// timelinePOs appended 是 c.Timeline 的尾部，seq 取其在完整时间线中的下标
func timelinePOs(c *etcase.Case, appended []etcase.TimelineEntry) []entity.CaseTimelineEntry {
	base := len(c.Timeline) - len(appended)
	if base < 0 {
		base = 0
	}
	out := make([]entity.CaseTimelineEntry, 0, len(appended))
	for i, e := range appended {
		out = append(out, entity.CaseTimelineEntry{
			ID:     e.ID,
			CaseID: c.ID,
			Seq:    base + i,
			Status: string(e.Status),
			Note:   e.Note,
			At:     e.At,
		})
	}
	return out
}
