package domains

import (
	"alertx/internal/common/model"
	"alertx/internal/feed/domains/common"
	"alertx/internal/feed/domains/handlers/unit/location"
	"alertx/internal/feed/domains/handlers/unit/status"
)

// HandlerMap 路由表（ActionType → Handler）
var HandlerMap = map[string]common.HandlerServProc{
	model.ActionUnitLocation: location.NewLocationHandler,
	model.ActionUnitStatus:   status.NewStatusHandler,
}
