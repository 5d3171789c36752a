package chathub_test

import (
	"context"
	"errors"
	"testing"

	"pairchat/backend/internal/chathub"
	"pairchat/backend/internal/models"
	"pairchat/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSendFriendRequest_Success(t *testing.T) {
	// Arrange
	h := newHarness(t)
	a, b, s := h.pair(t, "A", "B")

	// Act
	err := h.engine.SendFriendRequest(context.Background(), "A", s.ID)

	// Assert
	require.NoError(t, err)
	sent := a.Named(models.EventFriendRequestSent)
	require.Len(t, sent, 1)
	assert.Equal(t, models.FriendRequestSentPayload{RecipientID: "B"}, sent[0].Data)

	received := b.Named(models.EventFriendRequestReceived)
	require.Len(t, received, 1)
	view := received[0].Data.(models.FriendRequestReceivedPayload).Request
	assert.Equal(t, models.PublicProfile{ID: "A", Username: "user-A", Gender: "other"}, view.Sender)
	assert.Equal(t, models.FriendRequestPending, view.Status)
	h.store.AssertCalled(t, "CreateFriendRequest", mock.Anything, "A", "B")
}

func TestSendFriendRequest_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(m *MockStorage)
		wantErr error
		wantMsg string
	}{
		{
			name: "already friends",
			setup: func(m *MockStorage) {
				m.On("AreFriends", mock.Anything, "A", "B").Return(true, nil)
			},
			wantErr: chathub.ErrConflict,
			wantMsg: "error.already_friends",
		},
		{
			name: "request pending",
			setup: func(m *MockStorage) {
				m.On("HasPendingRequest", mock.Anything, "A", "B").Return(true, nil)
			},
			wantErr: chathub.ErrConflict,
			wantMsg: "error.request_already_sent",
		},
		{
			name: "peer missing from directory",
			setup: func(m *MockStorage) {
				m.On("GetUserByID", mock.Anything, "B").Return(nil, storage.ErrNotFound)
			},
			wantErr: chathub.ErrNotFound,
			wantMsg: "error.user_not_found",
		},
		{
			name: "store failure",
			setup: func(m *MockStorage) {
				m.On("CreateFriendRequest", mock.Anything, "A", "B").Return(nil, errors.New("db down"))
			},
			wantErr: chathub.ErrPersistence,
			wantMsg: "error.internal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.setup)
			a, b, s := h.pair(t, "A", "B")

			err := h.engine.SendFriendRequest(context.Background(), "A", s.ID)

			assert.ErrorIs(t, err, tt.wantErr)
			var ce *chathub.Error
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.wantMsg, ce.Key)
			assert.Empty(t, a.Named(models.EventFriendRequestSent))
			assert.Empty(t, b.Named(models.EventFriendRequestReceived))
		})
	}
}

func TestSendFriendRequest_RequiresActiveParticipation(t *testing.T) {
	h := newHarness(t)
	_, _, s := h.pair(t, "A", "B")
	h.connect("C")
	ctx := context.Background()

	assert.ErrorIs(t, h.engine.SendFriendRequest(ctx, "C", s.ID), chathub.ErrAuthorization)
	assert.ErrorIs(t, h.engine.SendFriendRequest(ctx, "A", "missing"), chathub.ErrNotFound)

	require.NoError(t, h.engine.End(ctx, "B"))
	assert.ErrorIs(t, h.engine.SendFriendRequest(ctx, "A", s.ID), chathub.ErrConflict)
	h.store.AssertNotCalled(t, "CreateFriendRequest", mock.Anything, mock.Anything, mock.Anything)
}

func TestRequestFriendship_Direct(t *testing.T) {
	h := newHarness(t)
	clients := h.connect("A", "B")
	ctx := context.Background()

	view, err := h.engine.RequestFriendship(ctx, "A", "B")

	require.NoError(t, err)
	assert.Equal(t, "A", view.Sender.ID)
	received := clients[1].Named(models.EventFriendRequestReceived)
	require.Len(t, received, 1)
	assert.Equal(t, view.ID, received[0].Data.(models.FriendRequestReceivedPayload).Request.ID)
	assert.Empty(t, clients[0].Named(models.EventFriendRequestSent), "the HTTP response is the sender's ack")
}

func TestRequestFriendship_RejectsSelfAndUnknown(t *testing.T) {
	h := newHarness(t, func(m *MockStorage) {
		m.On("GetUserByID", mock.Anything, "ghost").Return(nil, storage.ErrNotFound)
	})
	ctx := context.Background()

	_, err := h.engine.RequestFriendship(ctx, "A", "A")
	assert.ErrorIs(t, err, chathub.ErrValidation)

	_, err = h.engine.RequestFriendship(ctx, "A", "ghost")
	assert.ErrorIs(t, err, chathub.ErrNotFound)

	h.store.AssertNotCalled(t, "CreateFriendRequest", mock.Anything, mock.Anything, mock.Anything)
}
