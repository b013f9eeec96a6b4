package emergency

import "alertx/internal/app/domains/services/svemergency"

// EmergencyHandler 急救单 HTTP 处理器
type EmergencyHandler struct {
	emergencyService *svemergency.EmergencyService
}

// NewEmergencyHandler 创建急救单处理器
func NewEmergencyHandler(emergencyService *svemergency.EmergencyService) *EmergencyHandler {
	return &EmergencyHandler{emergencyService: emergencyService}
}
