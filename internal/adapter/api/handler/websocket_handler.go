package handler

import (
	"net/http"

	gorilla "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"uninest/internal/infrastructure/websocket"
	"uninest/pkg/logger"
)

var upgrader = gorilla.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	manager *websocket.Manager
	gate    *websocket.Gate
}

func NewWebSocketHandler(manager *websocket.Manager, gate *websocket.Gate) *WebSocketHandler {
	return &WebSocketHandler{
		manager: manager,
		gate:    gate,
	}
}

// HandleConnection upgrades the request and registers the session. The
// handshake always succeeds; authentication failures only downgrade the
// session to anonymous, and anonymous sessions are refused when they try
// to subscribe.
func (h *WebSocketHandler) HandleConnection(c echo.Context) error {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		// Browser WebSocket clients cannot set headers; accept the token
		// as a query parameter too.
		if token := c.QueryParam("token"); token != "" {
			authHeader = "Bearer " + token
		}
	}

	uid := h.gate.Authenticate(c.Request().Context(), authHeader)

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Warn("WebSocket upgrade failed: %v", err)
		return err
	}

	client := &websocket.Client{
		UserID: uid,
		Conn:   conn,
		Send:   make(chan []byte, 256),
	}

	h.manager.Register <- client

	go client.WritePump()
	go client.ReadPump(h.manager)

	return nil
}
