// Package router registers the service's HTTP routes.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/ragserve/internal/ragserve/handler"
)

// Register wires all routes onto the engine.
func Register(engine *gin.Engine, h *handler.Handler) {
	engine.GET("/health", h.Health)
	engine.POST("/index", h.Index)
	engine.POST("/chat", h.Chat)
	engine.DELETE("/collection", h.ResetCollection)
	engine.GET("/stats", h.Stats)
}
