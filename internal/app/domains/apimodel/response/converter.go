package response

import (
	"alertx/internal/app/domains/entity/etcase"
)

// FromCaseEntity 领域对象转 DTO，终态不再给出 ETA
func FromCaseEntity(c *etcase.Case) *CaseResponse {
	if c == nil {
		return nil
	}
	resp := &CaseResponse{
		ID:          c.ID,
		RequesterID: c.RequesterID,
		Status:      string(c.Status),
		Triage:      c.Triage,
		Assignment:  c.Assignment,
		Location:    c.Location,
		Timeline:    c.Timeline,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
		TerminalAt:  c.TerminalAt,
	}
	if c.Assignment != nil && !c.Status.Terminal() {
		resp.ETAMinutes = c.Assignment.ETAMinutes
	}
	return resp
}
