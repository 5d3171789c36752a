// Package storage implements the external collaborators the chat engine depends on:
// the user directory, the social graph and session persistence. PostgreSQL (through
// gorm) holds the records; Redis holds the presence set and ban flags.
package storage

import (
	"context"
	"errors"
	"log/slog"

	"pairchat/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// UserDirectory resolves user ids to directory records.
type UserDirectory interface {
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	GetUsersByIDs(ctx context.Context, userIDs []string) ([]models.User, error)
	SetUserOnline(ctx context.Context, userID string, online bool) error
}

// SocialGraph is the friend store as seen by the engine.
type SocialGraph interface {
	GetFriendIDs(ctx context.Context, userID string) ([]string, error)
	AreFriends(ctx context.Context, userID, otherID string) (bool, error)
	HasPendingRequest(ctx context.Context, senderID, recipientID string) (bool, error)
	CreateFriendRequest(ctx context.Context, senderID, recipientID string) (*models.FriendRequest, error)
}

// SessionRepository persists chat sessions and their message logs.
type SessionRepository interface {
	CreateSession(ctx context.Context, session *models.ChatSession) error
	GetSession(ctx context.Context, sessionID string) (*models.ChatSession, error)
	AppendMessage(ctx context.Context, msg *models.SessionMessage) error
	EndSession(ctx context.Context, sessionID, reason string) error
}

// BanChecker reports whether a user is currently barred from matching.
type BanChecker interface {
	IsUserBanned(ctx context.Context, userID string) (bool, error)
}

// Storage is everything the engine needs from the outside world.
type Storage interface {
	UserDirectory
	SocialGraph
	SessionRepository
	BanChecker
}

type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	log   *slog.Logger
}

// NewStorageService builds the gorm/redis backed store. rdb may be nil, in which case
// presence mirroring and ban checks are skipped.
func NewStorageService(db *gorm.DB, rdb *redis.Client, log *slog.Logger) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		log:   log,
	}
}

// Migrate creates or updates every table the service writes to.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.ChatSession{},
		&models.SessionMessage{},
		&models.Friendship{},
		&models.FriendRequest{},
	)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
