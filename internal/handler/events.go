package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"veo-director/internal/response"
	"veo-director/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 25 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// Events streams session snapshots over a WebSocket: the current one first,
// then one per committed transition.
func (h Handler) Events(c *gin.Context) {
	id := c.Param("id")
	updates, cancel, err := h.Service.Subscribe(id)
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	defer cancel()
	current, err := h.Service.GetSession(id)
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.GetLogger().Warn("websocket upgrade failed", zap.String("session_id", id), zap.Error(err))
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go readPump(conn, closed)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err = conn.WriteJSON(current); err != nil {
		return
	}
	for {
		select {
		case <-closed:
			return
		case snap, ok := <-updates:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			if err = conn.WriteJSON(snap); err != nil {
				log.GetLogger().Debug("websocket write failed", zap.String("session_id", id), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err = conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains client frames so pongs and close frames are handled.
func readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.GetLogger().Debug("websocket read failed", zap.Error(err))
			}
			return
		}
	}
}
