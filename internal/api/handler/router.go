package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// NewRouter wires every route onto a fresh gin engine.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h.log))

	r.GET("/health", h.Health)
	r.GET("/ws", h.RequireAuth(), h.ServeWebSocket)

	api := r.Group("/api", h.RequireAuth())
	{
		api.GET("/friends", h.ListFriends)
		api.GET("/friends/requests", h.ListFriendRequests)
		api.POST("/friends/request", h.SendFriendRequest)
		api.POST("/friends/respond", h.RespondToFriendRequest)
		api.DELETE("/friends/:friendId", h.RemoveFriend)
	}
	return r
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
