package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/lingua/internal/websocket"
)

// InitRoutes initializes all API routes. hub and metricsHandler may be nil.
func InitRoutes(e *echo.Echo, handler *TranslateHandler, hub *websocket.Hub, metricsHandler http.Handler, logger *zap.Logger) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, HealthResponse{Status: "healthy"})
	})

	e.GET("/languages", Languages)
	e.POST("/translate", handler.Translate)

	if metricsHandler != nil {
		e.GET("/metrics", echo.WrapHandler(metricsHandler))
	}

	// Streaming translation over a websocket
	if hub != nil {
		e.GET("/ws", func(c echo.Context) error {
			return websocket.HandleWebSocket(hub, c, logger)
		})
	}
}
