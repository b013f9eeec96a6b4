package emergency

import (
	"github.com/gin-gonic/gin"

	"alertx/internal/app/domains/apimodel/response"
	"alertx/internal/app/pkg/ginx"
)

// Get 查询 Case 快照
// GET /api/v1/emergencies/:id
func (h *EmergencyHandler) Get(c *gin.Context) {
	cs, err := h.emergencyService.GetCase(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	ginx.Success(c, response.FromCaseEntity(cs))
}

// ActiveCase 请求方当前的活跃 Case，ActiveCaseExists 之后的跳转目标
// GET /api/v1/requesters/:requester_id/active-case
func (h *EmergencyHandler) ActiveCase(c *gin.Context) {
	cs, err := h.emergencyService.ActiveCase(c.Request.Context(), c.Param("requester_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	ginx.Success(c, response.FromCaseEntity(cs))
}
