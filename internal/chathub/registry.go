package chathub

import (
	"context"
	"log/slog"
	"sync"

	"pairchat/backend/internal/models"
)

// PresenceListener is told when a user goes from zero to one connection or back.
type PresenceListener interface {
	PresenceChanged(ctx context.Context, userID string, online bool)
}

// Registry maps each user to at most one live connection.
type Registry struct {
	mu       sync.RWMutex
	clients  map[string]Client
	presence map[string]*presenceSlot
	listener PresenceListener
	log      *slog.Logger
}

// presenceSlot serializes the listener calls of one user and remembers the last state
// it published. A slot exists while it is in use or while the user was last published
// online. refs is guarded by the registry lock.
type presenceSlot struct {
	mu        sync.Mutex
	refs      int
	published bool
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		clients:  make(map[string]Client),
		presence: make(map[string]*presenceSlot),
		log:      log,
	}
}

// SetListener installs the presence listener. Call it before the first Register.
func (r *Registry) SetListener(l PresenceListener) {
	r.listener = l
}

// Register binds c to its user. A previous connection for the same user is closed and
// replaced. The listener fires only when the user had no connection before, and only
// if that state was not already published.
func (r *Registry) Register(ctx context.Context, c Client) {
	userID := c.GetUserID()

	r.mu.Lock()
	old, existed := r.clients[userID]
	r.clients[userID] = c
	r.mu.Unlock()

	if existed {
		if old != c {
			r.log.Info("Replacing connection", "user_id", userID)
			old.Close()
		}
		return
	}

	r.log.Debug("Client registered", "user_id", userID)
	r.publishPresence(ctx, userID)
}

// Unregister drops whatever connection the user has. It reports whether one was present.
func (r *Registry) Unregister(ctx context.Context, userID string) bool {
	r.mu.Lock()
	_, ok := r.clients[userID]
	delete(r.clients, userID)
	r.mu.Unlock()

	if ok {
		r.wentOffline(ctx, userID)
	}
	return ok
}

// UnregisterClient removes c only if it is still the user's current connection. It
// reports false for a connection that was already replaced or removed, so each handle
// is released exactly once.
func (r *Registry) UnregisterClient(ctx context.Context, c Client) bool {
	userID := c.GetUserID()

	r.mu.Lock()
	current, ok := r.clients[userID]
	if !ok || current != c {
		r.mu.Unlock()
		return false
	}
	delete(r.clients, userID)
	r.mu.Unlock()

	r.wentOffline(ctx, userID)
	return true
}

func (r *Registry) wentOffline(ctx context.Context, userID string) {
	r.log.Debug("Client unregistered", "user_id", userID)
	r.publishPresence(ctx, userID)
}

// publishPresence hands the user's current state to the listener, one call at a time
// per user. A transition that was overtaken by a newer one publishes the newer state,
// and nothing is published when that state is already the last one sent.
func (r *Registry) publishPresence(ctx context.Context, userID string) {
	if r.listener == nil {
		return
	}

	r.mu.Lock()
	slot, ok := r.presence[userID]
	if !ok {
		slot = &presenceSlot{}
		r.presence[userID] = slot
	}
	slot.refs++
	r.mu.Unlock()

	slot.mu.Lock()
	online := r.IsOnline(userID)
	if online != slot.published {
		slot.published = online
		r.listener.PresenceChanged(ctx, userID, online)
	}
	slot.mu.Unlock()

	r.mu.Lock()
	slot.refs--
	if slot.refs == 0 && !slot.published {
		delete(r.presence, userID)
	}
	r.mu.Unlock()
}

// Send pushes evt to the user's connection. Offline users are skipped silently.
func (r *Registry) Send(userID string, evt models.Event) bool {
	r.mu.RLock()
	c, ok := r.clients[userID]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if !c.Deliver(evt) {
		r.log.Warn("Dropped event for slow or closed client", "user_id", userID, "event", evt.Name)
		return false
	}
	return true
}

func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.clients[userID]
	return ok
}

// OnlineMap reports the online flag of every id in ids.
func (r *Registry) OnlineMap(ids []string) map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		_, out[id] = r.clients[id]
	}
	return out
}

func (r *Registry) client(userID string) (Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[userID]
	return c, ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
