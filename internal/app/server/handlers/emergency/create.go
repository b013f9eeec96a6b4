package emergency

import (
	"github.com/gin-gonic/gin"

	"alertx/internal/app/domains/apimodel/request"
	"alertx/internal/app/domains/apimodel/response"
	"alertx/internal/app/domains/services/svemergency"
	"alertx/internal/app/pkg/ginx"
)

// Create 建单
// POST /api/v1/emergencies
func (h *EmergencyHandler) Create(c *gin.Context) {
	var req request.CreateEmergencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ginx.BadRequestWithValidation(c, err)
		return
	}

	cs, err := h.emergencyService.CreateCase(c.Request.Context(), svemergency.CreateCaseParams{
		RequesterID: req.RequesterID,
		Input:       req.Symptoms.ToEntity(),
		Location:    req.Location.ToEntity(),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	ginx.Created(c, response.FromCaseEntity(cs))
}

// EmergencyButton 一键求助
// POST /api/v1/emergencies/emergency-button
func (h *EmergencyHandler) EmergencyButton(c *gin.Context) {
	var req request.EmergencyButtonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ginx.BadRequestWithValidation(c, err)
		return
	}

	cs, err := h.emergencyService.EmergencyButton(c.Request.Context(), req.RequesterID, req.Note, req.Location.ToEntity())
	if err != nil {
		_ = c.Error(err)
		return
	}
	ginx.Created(c, response.FromCaseEntity(cs))
}

// DispatchIntelligent 使用外部分诊结果派车，不建单
// POST /api/v1/emergencies/dispatch-intelligent
func (h *EmergencyHandler) DispatchIntelligent(c *gin.Context) {
	var req request.DispatchIntelligentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ginx.BadRequestWithValidation(c, err)
		return
	}

	triage, err := req.Triage.ToEntity()
	if err != nil {
		_ = c.Error(err)
		return
	}

	assignment, err := h.emergencyService.DispatchIntelligent(c.Request.Context(), triage, req.Location.ToEntity())
	if err != nil {
		_ = c.Error(err)
		return
	}
	ginx.Success(c, assignment)
}
