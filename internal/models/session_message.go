package models

import "time"

// SessionMessage is one entry of a session's ordered log.
type SessionMessage struct {
	// ID is a ULID, lexically sortable by creation time.
	ID        string    `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"type:text;not null;uniqueIndex:idx_session_seq" json:"-"`
	Seq       uint64    `gorm:"not null;uniqueIndex:idx_session_seq" json:"seq"`
	SenderID  string    `gorm:"type:text;not null" json:"senderId"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	SentAt    time.Time `json:"timestamp"`
}
