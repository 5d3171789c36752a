package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// User is the directory record the matching engine reads.
// Registration and profile editing live outside this service.
type User struct {
	ID         string         `gorm:"primaryKey" json:"id"`
	Username   string         `gorm:"uniqueIndex" json:"username"`
	Gender     string         `json:"gender"`
	Interests  pq.StringArray `gorm:"type:text[]" json:"interests"`
	IsOnline   bool           `json:"isOnline"`
	LastActive time.Time      `json:"lastActive"`
}

// PublicProfile is the subset of a user that a chat partner or friend may see.
type PublicProfile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Gender   string `json:"gender"`
}

// BeforeCreate generates a UUID for users created without one.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}

func (u *User) Profile() PublicProfile {
	return PublicProfile{ID: u.ID, Username: u.Username, Gender: u.Gender}
}
