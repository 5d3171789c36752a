package models

import (
	"encoding/json"
	"time"
)

// Inbound event names.
const (
	EventJoinRandom        = "join-random"
	EventJoinGender        = "join-gender"
	EventJoinInterest      = "join-interest"
	EventSendMessage       = "send-message"
	EventSkip              = "skip"
	EventEnd               = "end"
	EventSendFriendRequest = "send-friend-request"
	EventTyping            = "typing"
	EventGetOnlineStatus   = "get-online-status"
)

// Outbound event names.
const (
	EventQueueJoined           = "queue-joined"
	EventQueueSwitched         = "queue-switched"
	EventMatched               = "matched"
	EventMessageReceived       = "message-received"
	EventUserTyping            = "user-typing"
	EventEnded                 = "ended"
	EventSkipped               = "skipped"
	EventError                 = "error"
	EventFriendRequestSent     = "friend-request-sent"
	EventFriendRequestReceived = "friend-request-received"
	EventFriendStatusChanged   = "friend-status-changed"
	EventFriendOnlineStatus    = "friend-online-status"
)

// End reasons carried by the ended event.
const (
	EndReasonEnded        = "ended"
	EndReasonSkipped      = "skipped"
	EndReasonDisconnected = "disconnected"
)

// InboundFrame is what a client writes on the socket.
type InboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Event is what the engine pushes to a client.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data,omitempty"`
}

type JoinGenderRequest struct {
	Gender          string `json:"gender" validate:"required,oneof=male female other"`
	PreferredGender string `json:"preferredGender" validate:"required,oneof=male female other"`
}

type JoinInterestRequest struct {
	Interests []string `json:"interests" validate:"required,min=1,max=20,dive,required,max=40"`
}

type SendMessageRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
	Text      string `json:"text" validate:"required,max=2000"`
}

type SessionRef struct {
	SessionID string `json:"sessionId" validate:"required"`
}

type TypingRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
	IsTyping  bool   `json:"isTyping"`
}

type OnlineStatusRequest struct {
	FriendIDs []string `json:"friendIds" validate:"required,dive,required"`
}

type QueueJoinedPayload struct {
	Type string `json:"type"`
}

type QueueSwitchedPayload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Message string `json:"message,omitempty"`
}

type MatchedPayload struct {
	SessionID       string        `json:"sessionId"`
	Type            string        `json:"type"`
	PeerProfile     PublicProfile `json:"peerProfile"`
	CommonInterests []string      `json:"commonInterests"`
}

type MessagePayload struct {
	ID        string    `json:"id"`
	Seq       uint64    `json:"seq"`
	SenderID  string    `json:"senderId"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type MessageReceivedPayload struct {
	SessionID string         `json:"sessionId"`
	Message   MessagePayload `json:"message"`
}

type UserTypingPayload struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	IsTyping  bool   `json:"isTyping"`
}

type EndedPayload struct {
	SessionID string `json:"sessionId"`
	Reason    string `json:"reason"`
	Message   string `json:"message,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type FriendRequestSentPayload struct {
	RecipientID string `json:"recipientId"`
}

type FriendRequestReceivedPayload struct {
	Request FriendRequestView `json:"request"`
}

// FriendRequestView is a friend request with the sender's public profile resolved.
type FriendRequestView struct {
	ID        string        `json:"id"`
	Sender    PublicProfile `json:"sender"`
	Status    string        `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
}

type FriendStatusPayload struct {
	FriendID string `json:"friendId"`
	IsOnline bool   `json:"isOnline"`
}

type FriendOnlineStatusPayload struct {
	Friends map[string]bool `json:"friends"`
}
