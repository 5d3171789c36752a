package handler

import (
	"errors"
	"net/http"
	"strings"

	"pairchat/backend/internal/chathub"
	"pairchat/backend/internal/localization"
	"pairchat/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

// ServeWebSocket upgrades an authenticated request and hands the connection to the hub.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	userID := currentUser(c)

	if _, err := h.Store.GetUserByID(c.Request.Context(), userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unknown user"})
			return
		}
		h.log.Error("Failed to resolve user for websocket", "user_id", userID, "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve user"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader already wrote the error response.
		h.log.Warn("Websocket upgrade failed", "user_id", userID, "error", err)
		return
	}

	client := chathub.NewWebSocketClient(h.Hub, conn, userID, requestLanguage(c.Request), h.sendBuffer, h.log)
	h.Hub.Connect(c.Request.Context(), client)
	client.Run()
}

// requestLanguage picks ?lang= or the primary Accept-Language tag.
func requestLanguage(r *http.Request) string {
	if lang := r.URL.Query().Get("lang"); lang != "" {
		return strings.ToLower(lang)
	}
	header := r.Header.Get("Accept-Language")
	if header == "" {
		return localization.DefaultLanguage
	}
	tag := strings.SplitN(header, ",", 2)[0]
	tag = strings.SplitN(tag, ";", 2)[0]
	tag = strings.SplitN(tag, "-", 2)[0]
	if tag = strings.ToLower(strings.TrimSpace(tag)); tag == "" || tag == "*" {
		return localization.DefaultLanguage
	}
	return tag
}
