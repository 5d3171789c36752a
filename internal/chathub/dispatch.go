package chathub

import (
	"context"
	"encoding/json"
	"errors"

	"pairchat/backend/internal/models"
)

// Dispatch runs one inbound event for userID. Failures are reported to that user as
// an error event; a panic in a handler is recovered and reported the same way.
func (e *Engine) Dispatch(ctx context.Context, userID string, frame models.InboundFrame) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("Recovered from panic in event handler", "user_id", userID, "event", frame.Event, "panic", r)
			e.registry.Send(userID, e.errorEvent(userID, "error.internal"))
		}
	}()

	if err := e.handle(ctx, userID, frame); err != nil {
		e.reportError(userID, frame.Event, err)
	}
}

func (e *Engine) handle(ctx context.Context, userID string, frame models.InboundFrame) error {
	switch frame.Event {
	case models.EventJoinRandom:
		return e.JoinRandom(ctx, userID)

	case models.EventJoinGender:
		var req models.JoinGenderRequest
		if err := e.decode(frame.Data, &req); err != nil {
			return err
		}
		return e.JoinGender(ctx, userID, req.Gender, req.PreferredGender)

	case models.EventJoinInterest:
		var req models.JoinInterestRequest
		if err := e.decode(frame.Data, &req); err != nil {
			return err
		}
		return e.JoinInterest(ctx, userID, req.Interests)

	case models.EventSendMessage:
		var req models.SendMessageRequest
		if err := e.decode(frame.Data, &req); err != nil {
			return err
		}
		return e.SendMessage(ctx, userID, req.SessionID, req.Text)

	case models.EventSkip:
		return e.Skip(ctx, userID)

	case models.EventEnd:
		return e.End(ctx, userID)

	case models.EventSendFriendRequest:
		var req models.SessionRef
		if err := e.decode(frame.Data, &req); err != nil {
			return err
		}
		return e.SendFriendRequest(ctx, userID, req.SessionID)

	case models.EventTyping:
		var req models.TypingRequest
		if err := e.decode(frame.Data, &req); err != nil {
			return err
		}
		return e.Typing(userID, req.SessionID, req.IsTyping)

	case models.EventGetOnlineStatus:
		var req models.OnlineStatusRequest
		if err := e.decode(frame.Data, &req); err != nil {
			return err
		}
		e.registry.Send(userID, models.Event{
			Name: models.EventFriendOnlineStatus,
			Data: models.FriendOnlineStatusPayload{Friends: e.OnlineStatus(req.FriendIDs)},
		})
		return nil

	default:
		return newError(ErrValidation, "error.unknown_event")
	}
}

func (e *Engine) decode(data json.RawMessage, dst any) error {
	if len(data) == 0 {
		return newError(ErrValidation, "error.invalid_payload")
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return wrapError(ErrValidation, "error.invalid_payload", err)
	}
	if err := e.validate.Struct(dst); err != nil {
		return wrapError(ErrValidation, "error.invalid_payload", err)
	}
	return nil
}

func (e *Engine) reportError(userID, event string, err error) {
	key := "error.internal"
	var ce *Error
	if errors.As(err, &ce) {
		key = ce.Key
	}

	if ce == nil || errors.Is(err, ErrPersistence) {
		e.log.Error("Event handler failed", "user_id", userID, "event", event, "error", err)
	} else {
		e.log.Debug("Event rejected", "user_id", userID, "event", event, "error", err)
	}
	e.registry.Send(userID, e.errorEvent(userID, key))
}
