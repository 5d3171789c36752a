package handler

import (
	"context"
	"log/slog"
	"net/http"

	"pairchat/backend/internal/chathub"
	"pairchat/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// FriendStore is what the REST endpoints need from storage.
type FriendStore interface {
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	GetUsersByIDs(ctx context.Context, userIDs []string) ([]models.User, error)
	GetFriendIDs(ctx context.Context, userID string) ([]string, error)
	ListPendingRequests(ctx context.Context, userID string) ([]models.FriendRequest, error)
	RespondToFriendRequest(ctx context.Context, userID, requestID string, accept bool) (*models.FriendRequest, error)
	RemoveFriend(ctx context.Context, userID, friendID string) error
}

// Handler holds everything the HTTP routes share.
type Handler struct {
	Hub   *chathub.Engine
	Store FriendStore
	Auth  *Authenticator

	upgrader   websocket.Upgrader
	sendBuffer int
	log        *slog.Logger
}

type Options struct {
	AllowedOrigin  string
	SendBufferSize int
}

func NewHandler(hub *chathub.Engine, store FriendStore, auth *Authenticator, opts Options, log *slog.Logger) *Handler {
	return &Handler{
		Hub:   hub,
		Store: store,
		Auth:  auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(opts.AllowedOrigin),
		},
		sendBuffer: opts.SendBufferSize,
		log:        log,
	}
}

func originChecker(allowed string) func(r *http.Request) bool {
	if allowed == "" || allowed == "*" {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || origin == allowed
	}
}

// Health reports liveness plus the engine's current load.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "stats": h.Hub.Stats()})
}
