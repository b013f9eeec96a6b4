package tracking

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"alertx/internal/app/domains/entity/etcase"
	"alertx/internal/app/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// 跨域由 CORS 中间件处理
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Track 推送订阅：首帧为当前快照，之后逐条推送事件，Case 终态后关闭
// GET /api/v1/emergencies/:id/track
func (h *TrackingHandler) Track(c *gin.Context) {
	caseID := c.Param("id")
	ctx, cancel := context.WithCancel(logger.WithCaseID(c.Request.Context(), caseID))
	defer cancel()

	// 升级前订阅，Case 不存在时仍可返回普通 404
	snap, events, unsubscribe, err := h.trackingService.Stream(ctx, caseID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	defer unsubscribe()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warnf(ctx, "[Track] websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	go readPump(conn, cancel)

	if err := writeEvent(conn, snap); err != nil || snap.Status.Terminal() {
		closeNormal(conn)
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				closeNormal(conn)
				return
			}
			if err := writeEvent(conn, ev); err != nil {
				h.logger.Debugf(ctx, "[Track] write failed: %v", err)
				return
			}
			if ev.Status.Terminal() {
				closeNormal(conn)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// readPump 只处理 pong 和关闭，客户端离开时取消订阅
func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeEvent(conn *websocket.Conn, ev *etcase.LocationEvent) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(ev)
}

func closeNormal(conn *websocket.Conn) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "case closed"),
		time.Now().Add(writeWait))
}
