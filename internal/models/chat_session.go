package models

import (
	"time"

	"github.com/lib/pq"
)

const (
	SessionTypeRandom   = "random"
	SessionTypeGender   = "gender"
	SessionTypeInterest = "interest"

	SessionStatusActive = "active"
	SessionStatusEnded  = "ended"
)

// ChatSession is the persisted record of a two-party conversation.
type ChatSession struct {
	// SessionID is the UUID handed to both participants in the matched event.
	SessionID       string         `gorm:"primaryKey"`
	User1ID         string         `gorm:"index"`
	User2ID         string         `gorm:"index"`
	Type            string         `gorm:"type:text;not null"`
	CommonInterests pq.StringArray `gorm:"type:text[]"`
	Status          string         `gorm:"type:text;not null;index"`
	EndReason       string
	StartedAt       time.Time
	// EndedAt stays nil until the session is ended.
	EndedAt *time.Time
}

func (s *ChatSession) HasParticipant(userID string) bool {
	return s.User1ID == userID || s.User2ID == userID
}
