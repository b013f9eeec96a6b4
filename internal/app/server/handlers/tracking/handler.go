package tracking

import (
	"alertx/internal/app/domains/services/svtracking"
	"alertx/internal/app/pkg/logger"
)

// TrackingHandler 位置跟踪 HTTP 处理器
type TrackingHandler struct {
	trackingService *svtracking.TrackingService
	logger          logger.Logger
}

// NewTrackingHandler 创建跟踪处理器
func NewTrackingHandler(trackingService *svtracking.TrackingService, log logger.Logger) *TrackingHandler {
	return &TrackingHandler{trackingService: trackingService, logger: log}
}
