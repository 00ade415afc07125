package router

import (
	"github.com/labstack/echo/v4"

	"uninest/internal/adapter/api/handler"
)

// SetupWebSocketRouter wires the realtime endpoint. No auth middleware
// here: the connection gate binds identity best-effort and never rejects
// the handshake.
func SetupWebSocketRouter(e *echo.Echo, wsHandler *handler.WebSocketHandler) {
	e.GET("/ws", wsHandler.HandleConnection)
}
