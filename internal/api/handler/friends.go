package handler

import (
	"errors"
	"net/http"
	"time"

	"pairchat/backend/internal/chathub"
	"pairchat/backend/internal/models"
	"pairchat/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

type FriendView struct {
	models.PublicProfile
	IsOnline bool `json:"isOnline"`
}

type FriendRequestBody struct {
	RecipientID string `json:"recipientId" binding:"required"`
}

type RespondRequest struct {
	RequestID string `json:"requestId" binding:"required"`
	Action    string `json:"action" binding:"required,oneof=accept reject"`
}

// ListFriends returns the caller's friends with their live online flag.
func (h *Handler) ListFriends(c *gin.Context) {
	ctx := c.Request.Context()
	userID := currentUser(c)

	ids, err := h.Store.GetFriendIDs(ctx, userID)
	if err != nil {
		h.internalError(c, "Failed to load friends", err)
		return
	}
	users, err := h.Store.GetUsersByIDs(ctx, ids)
	if err != nil {
		h.internalError(c, "Failed to load friends", err)
		return
	}

	friends := lo.Map(users, func(u models.User, _ int) FriendView {
		return FriendView{PublicProfile: u.Profile(), IsOnline: h.Hub.IsOnline(u.ID)}
	})
	c.JSON(http.StatusOK, gin.H{"friends": friends})
}

// ListFriendRequests returns the pending requests addressed to the caller.
func (h *Handler) ListFriendRequests(c *gin.Context) {
	ctx := c.Request.Context()
	userID := currentUser(c)

	pending, err := h.Store.ListPendingRequests(ctx, userID)
	if err != nil {
		h.internalError(c, "Failed to load friend requests", err)
		return
	}
	senders, err := h.Store.GetUsersByIDs(ctx, lo.Map(pending, func(r models.FriendRequest, _ int) string { return r.SenderID }))
	if err != nil {
		h.internalError(c, "Failed to load friend requests", err)
		return
	}
	profiles := lo.SliceToMap(senders, func(u models.User) (string, models.PublicProfile) {
		return u.ID, u.Profile()
	})

	views := lo.FilterMap(pending, func(r models.FriendRequest, _ int) (models.FriendRequestView, bool) {
		sender, ok := profiles[r.SenderID]
		return models.FriendRequestView{ID: r.ID, Sender: sender, Status: r.Status, CreatedAt: r.CreatedAt}, ok
	})
	c.JSON(http.StatusOK, gin.H{"requests": views})
}

// SendFriendRequest files a request to any known user, no chat session needed.
func (h *Handler) SendFriendRequest(c *gin.Context) {
	var body FriendRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	view, err := h.Hub.RequestFriendship(c.Request.Context(), currentUser(c), body.RecipientID)
	switch {
	case errors.Is(err, chathub.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Recipient not found"})
	case errors.Is(err, chathub.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "You cannot send a friend request to yourself"})
	case errors.Is(err, chathub.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": conflictMessage(err)})
	case err != nil:
		h.internalError(c, "Failed to send friend request", err)
	default:
		c.JSON(http.StatusCreated, gin.H{"request": view})
	}
}

func conflictMessage(err error) string {
	var ce *chathub.Error
	if errors.As(err, &ce) && ce.Key == "error.already_friends" {
		return "Already friends with this user"
	}
	return "Friend request already sent"
}

// RespondToFriendRequest accepts or rejects a pending request addressed to the caller.
func (h *Handler) RespondToFriendRequest(c *gin.Context) {
	var body RespondRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	req, err := h.Store.RespondToFriendRequest(c.Request.Context(), currentUser(c), body.RequestID, body.Action == "accept")
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Friend request not found"})
		return
	case errors.Is(err, storage.ErrRequestHandled):
		c.JSON(http.StatusConflict, gin.H{"error": "Friend request already handled"})
		return
	case err != nil:
		h.internalError(c, "Failed to respond to friend request", err)
		return
	}

	h.log.Info("Friend request answered", "request_id", req.ID, "status", req.Status)
	c.JSON(http.StatusOK, gin.H{"request": gin.H{
		"id":          req.ID,
		"status":      req.Status,
		"respondedAt": lo.FromPtrOr(req.RespondedAt, time.Time{}),
	}})
}

// RemoveFriend deletes the friendship in both directions.
func (h *Handler) RemoveFriend(c *gin.Context) {
	err := h.Store.RemoveFriend(c.Request.Context(), currentUser(c), c.Param("friendId"))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Friend not found"})
	case err != nil:
		h.internalError(c, "Failed to remove friend", err)
	default:
		c.Status(http.StatusNoContent)
	}
}

func (h *Handler) internalError(c *gin.Context, msg string, err error) {
	h.log.Error(msg, "user_id", currentUser(c), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}
