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
	"github.com/stretchr/testify/require"
)

const (
	testQueueTimeout = 45 * time.Second
	testRetention    = 10 * time.Minute
)

// fakeScheduler holds callbacks until the test fires them.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	s       *fakeScheduler
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) chathub.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{s: s, d: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Fire runs every pending timer scheduled for d and returns how many ran.
func (s *fakeScheduler) Fire(d time.Duration) int {
	return s.fire(d, false)
}

// FireStale also runs timers that were stopped, as if Stop lost the race with expiry.
func (s *fakeScheduler) FireStale(d time.Duration) int {
	return s.fire(d, true)
}

func (s *fakeScheduler) fire(d time.Duration, includeStopped bool) int {
	s.mu.Lock()
	var due []*fakeTimer
	for _, t := range s.timers {
		if t.d != d || (t.fired && !includeStopped) || (t.stopped && !includeStopped) {
			continue
		}
		t.fired = true
		due = append(due, t)
	}
	s.mu.Unlock()

	for _, t := range due {
		t.f()
	}
	return len(due)
}

func (s *fakeScheduler) Pending(d time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if t.d == d && !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

type harness struct {
	engine *chathub.Engine
	store  *MockStorage
	sched  *fakeScheduler
}

// newHarness builds an engine over a mock store. setup runs before the permissive
// defaults are installed, so its expectations win.
func newHarness(t *testing.T, setup ...func(*MockStorage)) *harness {
	t.Helper()
	store := new(MockStorage)
	for _, fn := range setup {
		fn(store)
	}
	store.stubDefaults()

	sched := &fakeScheduler{}
	engine := chathub.NewEngine(store, logs.GetLoggerFromLevel(slog.LevelDebug), chathub.Options{
		QueueTimeout:     testQueueTimeout,
		SessionRetention: testRetention,
		Scheduler:        sched,
	})
	return &harness{engine: engine, store: store, sched: sched}
}

func (h *harness) connect(ids ...string) []*MockClient {
	clients := make([]*MockClient, 0, len(ids))
	for _, id := range ids {
		c := newMockClient(id)
		h.engine.Connect(context.Background(), c)
		clients = append(clients, c)
	}
	return clients
}

// pair connects a and b and matches them through the random pool.
func (h *harness) pair(t *testing.T, a, b string) (*MockClient, *MockClient, *chathub.Session) {
	t.Helper()
	clients := h.connect(a, b)
	require.NoError(t, h.engine.JoinRandom(context.Background(), a))
	require.NoError(t, h.engine.JoinRandom(context.Background(), b))

	s, ok := h.engine.ActiveSession(a)
	require.True(t, ok, "expected %s and %s to be matched", a, b)
	return clients[0], clients[1], s
}

// assertConsistent checks that nobody waits in a pool while also being in a session.
func (h *harness) assertConsistent(t *testing.T, ids ...string) {
	t.Helper()
	for _, id := range ids {
		_, queued := h.engine.QueuedIn(id)
		_, inSession := h.engine.ActiveSession(id)
		assert.False(t, queued && inSession, "%s is both queued and in a session", id)
	}
}

func matchedPayload(t *testing.T, c *MockClient) models.MatchedPayload {
	t.Helper()
	matched := c.Named(models.EventMatched)
	require.Len(t, matched, 1)
	return matched[0].Data.(models.MatchedPayload)
}

func endedPayloads(c *MockClient) []models.EndedPayload {
	var out []models.EndedPayload
	for _, evt := range c.Named(models.EventEnded) {
		out = append(out, evt.Data.(models.EndedPayload))
	}
	return out
}
