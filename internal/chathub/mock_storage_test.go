package chathub_test

import (
	"context"
	"time"

	"pairchat/backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	if fn, ok := args.Get(0).(func(string) (*models.User, error)); ok {
		return fn(userID)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStorage) GetUsersByIDs(ctx context.Context, userIDs []string) ([]models.User, error) {
	args := m.Called(ctx, userIDs)
	if fn, ok := args.Get(0).(func([]string) []models.User); ok {
		return fn(userIDs), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockStorage) SetUserOnline(ctx context.Context, userID string, online bool) error {
	args := m.Called(ctx, userID, online)
	return args.Error(0)
}

func (m *MockStorage) GetFriendIDs(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStorage) AreFriends(ctx context.Context, userID, otherID string) (bool, error) {
	args := m.Called(ctx, userID, otherID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) HasPendingRequest(ctx context.Context, senderID, recipientID string) (bool, error) {
	args := m.Called(ctx, senderID, recipientID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) CreateFriendRequest(ctx context.Context, senderID, recipientID string) (*models.FriendRequest, error) {
	args := m.Called(ctx, senderID, recipientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FriendRequest), args.Error(1)
}

func (m *MockStorage) CreateSession(ctx context.Context, session *models.ChatSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockStorage) GetSession(ctx context.Context, sessionID string) (*models.ChatSession, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatSession), args.Error(1)
}

func (m *MockStorage) AppendMessage(ctx context.Context, msg *models.SessionMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockStorage) EndSession(ctx context.Context, sessionID, reason string) error {
	args := m.Called(ctx, sessionID, reason)
	return args.Error(0)
}

func (m *MockStorage) IsUserBanned(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

// stubDefaults makes every call succeed. Expectations registered before it take precedence.
func (m *MockStorage) stubDefaults() {
	anything := mock.Anything
	m.On("SetUserOnline", anything, anything, anything).Return(nil).Maybe()
	m.On("GetFriendIDs", anything, anything).Return([]string{}, nil).Maybe()
	m.On("IsUserBanned", anything, anything).Return(false, nil).Maybe()
	m.On("GetUsersByIDs", anything, anything).Return(func(ids []string) []models.User {
		users := make([]models.User, 0, len(ids))
		for _, id := range ids {
			users = append(users, testUser(id))
		}
		return users
	}, nil).Maybe()
	m.On("GetUserByID", anything, anything).Return(func(id string) (*models.User, error) {
		u := testUser(id)
		return &u, nil
	}, nil).Maybe()
	m.On("CreateSession", anything, anything).Return(nil).Maybe()
	m.On("AppendMessage", anything, anything).Return(nil).Maybe()
	m.On("EndSession", anything, anything, anything).Return(nil).Maybe()
	m.On("AreFriends", anything, anything, anything).Return(false, nil).Maybe()
	m.On("HasPendingRequest", anything, anything, anything).Return(false, nil).Maybe()
	m.On("CreateFriendRequest", anything, anything, anything).Return(&models.FriendRequest{
		ID:        uuid.NewString(),
		Status:    models.FriendRequestPending,
		CreatedAt: time.Now(),
	}, nil).Maybe()
}

func testUser(id string) models.User {
	return models.User{ID: id, Username: "user-" + id, Gender: "other"}
}
