package triage

import (
	"github.com/gin-gonic/gin"

	"alertx/internal/app/domains/apimodel/request"
	"alertx/internal/app/domains/services/svtriage"
	"alertx/internal/app/pkg/ginx"
)

// TriageHandler 分诊 HTTP 处理器
type TriageHandler struct {
	triageService *svtriage.TriageService
}

// NewTriageHandler 创建分诊处理器
func NewTriageHandler(triageService *svtriage.TriageService) *TriageHandler {
	return &TriageHandler{triageService: triageService}
}

// Analyze 分诊，无状态变更
// POST /api/v1/triage/analyze
func (h *TriageHandler) Analyze(c *gin.Context) {
	var req request.SymptomInput
	if err := c.ShouldBindJSON(&req); err != nil {
		ginx.BadRequestWithValidation(c, err)
		return
	}

	result, err := h.triageService.Analyze(c.Request.Context(), req.ToEntity())
	if err != nil {
		_ = c.Error(err)
		return
	}
	ginx.Success(c, result)
}
