package tracking

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"alertx/internal/app/domains/apimodel/request"
	"alertx/internal/app/pkg/ginx"
)

// ReportLocation 车辆或请求方位置上报
// POST /api/v1/emergencies/:id/location
func (h *TrackingHandler) ReportLocation(c *gin.Context) {
	var req request.LocationUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ginx.BadRequestWithValidation(c, err)
		return
	}

	ev, err := h.trackingService.ReportLocation(c.Request.Context(), req.ToEntity(c.Param("id"), time.Now()))
	if err != nil {
		_ = c.Error(err)
		return
	}
	ginx.Success(c, ev)
}

// WaitLocation 长轮询：等待下一条事件，超时返回当前快照
// GET /api/v1/emergencies/:id/location?wait=10
func (h *TrackingHandler) WaitLocation(c *gin.Context) {
	wait := 0
	if s := c.Query("wait"); s != "" {
		w, err := strconv.Atoi(s)
		if err != nil || w < 0 {
			ginx.BadRequest(c, "wait must be a non-negative integer (seconds)")
			return
		}
		wait = w
	}

	ev, err := h.trackingService.WaitNext(c.Request.Context(), c.Param("id"), time.Duration(wait)*time.Second)
	if err != nil {
		_ = c.Error(err)
		return
	}
	ginx.Success(c, ev)
}
