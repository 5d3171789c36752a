package chathub_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"pairchat/backend/internal/chathub"
	"pairchat/backend/internal/models"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type presenceCall struct {
	userID string
	online bool
}

type recordingListener struct {
	mu    sync.Mutex
	calls []presenceCall
}

func (l *recordingListener) PresenceChanged(_ context.Context, userID string, online bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, presenceCall{userID, online})
}

func newTestRegistry() (*chathub.Registry, *recordingListener) {
	r := chathub.NewRegistry(logs.GetLoggerFromLevel(slog.LevelDebug))
	l := &recordingListener{}
	r.SetListener(l)
	return r, l
}

func TestRegistry_TransitionsOnly(t *testing.T) {
	ctx := context.Background()
	r, l := newTestRegistry()
	first, second := newMockClient("A"), newMockClient("A")

	r.Register(ctx, first)
	r.Register(ctx, second)

	assert.True(t, first.IsClosed(), "replaced connection is closed")
	assert.False(t, second.IsClosed())
	assert.False(t, r.UnregisterClient(ctx, first), "stale handle cannot evict its successor")
	assert.True(t, r.IsOnline("A"))

	assert.True(t, r.UnregisterClient(ctx, second))
	assert.False(t, r.UnregisterClient(ctx, second))
	assert.False(t, r.Unregister(ctx, "A"))

	assert.Equal(t, []presenceCall{{"A", true}, {"A", false}}, l.calls)
}

func TestRegistry_Unregister(t *testing.T) {
	ctx := context.Background()
	r, l := newTestRegistry()
	r.Register(ctx, newMockClient("A"))

	assert.True(t, r.Unregister(ctx, "A"))
	assert.False(t, r.IsOnline("A"))
	assert.Equal(t, 0, r.Count())
	assert.Len(t, l.calls, 2)
}

func TestRegistry_Send(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRegistry()
	a := newMockClient("A")
	r.Register(ctx, a)
	evt := models.Event{Name: models.EventSkipped}

	assert.True(t, r.Send("A", evt))
	assert.False(t, r.Send("nobody", evt))

	a.Close()
	assert.False(t, r.Send("A", evt))
	assert.Equal(t, []models.Event{evt}, a.Events())
	assert.Equal(t, map[string]bool{"A": true, "B": false}, r.OnlineMap([]string{"A", "B"}))
}

func TestPresence_NotifiesOnlineFriends(t *testing.T) {
	h := newHarness(t, func(m *MockStorage) {
		m.On("GetFriendIDs", mock.Anything, "A").Return([]string{"B", "C"}, nil)
	})
	ctx := context.Background()
	b := h.connect("B")[0]

	a := h.connect("A")[0]
	h.engine.Connect(ctx, newMockClient("A"))
	h.engine.Disconnect(ctx, a)

	changes := b.Named(models.EventFriendStatusChanged)
	assert.Len(t, changes, 1, "reconnect and stale disconnect are not transitions")
	assert.Equal(t, models.FriendStatusPayload{FriendID: "A", IsOnline: true}, changes[0].Data)
	h.store.AssertCalled(t, "SetUserOnline", mock.Anything, "A", true)
	h.store.AssertNotCalled(t, "SetUserOnline", mock.Anything, "A", false)
}

func TestPresence_OfflineTransition(t *testing.T) {
	h := newHarness(t, func(m *MockStorage) {
		m.On("GetFriendIDs", mock.Anything, "A").Return([]string{"B"}, nil)
	})
	ctx := context.Background()
	b := h.connect("B")[0]
	a := h.connect("A")[0]

	h.engine.Disconnect(ctx, a)

	changes := b.Named(models.EventFriendStatusChanged)
	assert.Len(t, changes, 2)
	assert.Equal(t, models.FriendStatusPayload{FriendID: "A", IsOnline: false}, changes[1].Data)
	h.store.AssertCalled(t, "SetUserOnline", mock.Anything, "A", false)
}

func TestPresence_ReconnectDuringSlowOfflineUpdate(t *testing.T) {
	offlineStarted := make(chan struct{})
	var once sync.Once
	h := newHarness(t, func(m *MockStorage) {
		m.On("GetFriendIDs", mock.Anything, "A").Return([]string{"B"}, nil)
		m.On("SetUserOnline", mock.Anything, "A", false).Run(func(mock.Arguments) {
			once.Do(func() { close(offlineStarted) })
			time.Sleep(100 * time.Millisecond)
		}).Return(nil)
	})
	ctx := context.Background()
	b := h.connect("B")[0]
	first := h.connect("A")[0]

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.engine.Disconnect(ctx, first)
	}()
	select {
	case <-offlineStarted:
	case <-time.After(5 * time.Second):
		t.Fatal("offline update never started")
	}
	h.engine.Connect(ctx, newMockClient("A"))
	<-done

	require.True(t, h.engine.IsOnline("A"))
	var seen []bool
	for _, evt := range b.Named(models.EventFriendStatusChanged) {
		seen = append(seen, evt.Data.(models.FriendStatusPayload).IsOnline)
	}
	assert.Equal(t, []bool{true, false, true}, seen, "the newest state is published last")

	var persisted []bool
	for _, call := range h.store.Calls {
		if call.Method == "SetUserOnline" && call.Arguments.String(1) == "A" {
			persisted = append(persisted, call.Arguments.Bool(2))
		}
	}
	assert.Equal(t, []bool{true, false, true}, persisted)
}
