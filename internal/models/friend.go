package models

import "time"

const (
	FriendRequestPending  = "pending"
	FriendRequestAccepted = "accepted"
	FriendRequestRejected = "rejected"
)

// Friendship is one direction of a friend edge; accepted requests write both directions.
type Friendship struct {
	UserID    string `gorm:"primaryKey"`
	FriendID  string `gorm:"primaryKey"`
	CreatedAt time.Time
}

type FriendRequest struct {
	ID          string     `gorm:"primaryKey" json:"id"`
	SenderID    string     `gorm:"index" json:"senderId"`
	RecipientID string     `gorm:"index" json:"recipientId"`
	Status      string     `gorm:"type:text;not null" json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	RespondedAt *time.Time `json:"respondedAt,omitempty"`
}
