package turn

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/taketurn/taketurn/internal/infrastructure/services"
	"github.com/taketurn/taketurn/internal/shared/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 512
)

type SocketHandler struct {
	hub      *services.TurnHub
	upgrader websocket.Upgrader
	logger   logger.Interface
}

// NewSocketHandler accepts upgrades from allowedOrigins; "*" or an empty
// list admits every origin.
func NewSocketHandler(hub *services.TurnHub, allowedOrigins []string, log logger.Interface) *SocketHandler {
	return &SocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: log,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if len(allowed) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// Subscribe handles GET /wss. The client gets the available turn on open
// and again on every change. Anything the client sends is ignored.
func (h *SocketHandler) Subscribe(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warnw("failed to upgrade to websocket",
			"error", err,
			"ip", c.ClientIP(),
		)
		return
	}

	client := h.hub.Register(conn, c.ClientIP())

	go h.writePump(client)
	h.readPump(client)
}

func (h *SocketHandler) readPump(client *services.TurnHubConn) {
	conn := client.Conn
	defer func() {
		h.hub.Unregister(client)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				h.logger.Warnw("turn websocket read error",
					"error", err,
					"client_id", client.ID,
				)
			}
			return
		}
	}
}

func (h *SocketHandler) writePump(client *services.TurnHubConn) {
	conn := client.Conn
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case ref, ok := <-client.Send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.WriteJSON(ref); err != nil {
				h.logger.Warnw("failed to write to turn websocket",
					"error", err,
					"client_id", client.ID,
				)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
