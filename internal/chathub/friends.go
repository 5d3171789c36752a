package chathub

import (
	"context"
	"errors"

	"pairchat/backend/internal/models"
	"pairchat/backend/internal/storage"
)

// SendFriendRequest lets a participant of an active session befriend the other one.
func (e *Engine) SendFriendRequest(ctx context.Context, userID, sessionID string) error {
	s, err := e.participantSession(userID, sessionID)
	if err != nil {
		return err
	}
	if s.Status() != StatusActive {
		return newError(ErrConflict, "error.session_ended")
	}
	recipientID := s.Peer(userID)

	if _, err := e.RequestFriendship(ctx, userID, recipientID); err != nil {
		return err
	}
	e.registry.Send(userID, models.Event{
		Name: models.EventFriendRequestSent,
		Data: models.FriendRequestSentPayload{RecipientID: recipientID},
	})
	return nil
}

// RequestFriendship files a pending request from userID to recipientID outside of any
// session and tells the recipient if they are connected.
func (e *Engine) RequestFriendship(ctx context.Context, userID, recipientID string) (*models.FriendRequestView, error) {
	if _, err := e.storage.GetUserByID(ctx, recipientID); err != nil {
		return nil, e.lookupError(err)
	}
	if userID == recipientID {
		return nil, newError(ErrValidation, "error.self_request")
	}

	friends, err := e.storage.AreFriends(ctx, userID, recipientID)
	if err != nil {
		return nil, wrapError(ErrPersistence, "error.internal", err)
	}
	if friends {
		return nil, newError(ErrConflict, "error.already_friends")
	}

	pending, err := e.storage.HasPendingRequest(ctx, userID, recipientID)
	if err != nil {
		return nil, wrapError(ErrPersistence, "error.internal", err)
	}
	if pending {
		return nil, newError(ErrConflict, "error.request_already_sent")
	}

	sender, err := e.storage.GetUserByID(ctx, userID)
	if err != nil {
		return nil, e.lookupError(err)
	}

	req, err := e.storage.CreateFriendRequest(ctx, userID, recipientID)
	if err != nil {
		e.log.Error("Failed to create friend request", "sender_id", userID, "recipient_id", recipientID, "error", err)
		return nil, wrapError(ErrPersistence, "error.internal", err)
	}

	view := models.FriendRequestView{
		ID:        req.ID,
		Sender:    sender.Profile(),
		Status:    req.Status,
		CreatedAt: req.CreatedAt,
	}
	e.registry.Send(recipientID, models.Event{
		Name: models.EventFriendRequestReceived,
		Data: models.FriendRequestReceivedPayload{Request: view},
	})
	e.log.Info("Friend request sent", "request_id", req.ID, "sender_id", userID, "recipient_id", recipientID)
	return &view, nil
}

func (e *Engine) lookupError(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return wrapError(ErrNotFound, "error.user_not_found", err)
	}
	return wrapError(ErrPersistence, "error.internal", err)
}
