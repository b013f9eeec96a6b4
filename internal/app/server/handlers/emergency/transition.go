package emergency

import (
	"github.com/gin-gonic/gin"

	"alertx/internal/app/domains/apimodel/request"
	"alertx/internal/app/domains/apimodel/response"
	"alertx/internal/app/domains/entity/etcase"
	"alertx/internal/app/pkg/ginx"
)

// Cancel 取消，原因必填
// POST /api/v1/emergencies/:id/cancel
func (h *EmergencyHandler) Cancel(c *gin.Context) {
	var req request.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ginx.BadRequestWithValidation(c, err)
		return
	}

	cs, err := h.emergencyService.Cancel(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		_ = c.Error(err)
		return
	}
	ginx.Success(c, response.FromCaseEntity(cs))
}

// Confirm 车组确认，返回对应路由的 handler
// POST /api/v1/emergencies/:id/accept|pickup|arrive
func (h *EmergencyHandler) Confirm(event etcase.Event) gin.HandlerFunc {
	return func(c *gin.Context) {
		cs, err := h.emergencyService.Confirm(c.Request.Context(), c.Param("id"), event)
		if err != nil {
			_ = c.Error(err)
			return
		}
		ginx.Success(c, response.FromCaseEntity(cs))
	}
}
