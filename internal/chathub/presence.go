package chathub

import (
	"context"
	"log/slog"

	"pairchat/backend/internal/models"
	"pairchat/backend/internal/storage"
)

// PresenceNotifier records a user's online flag and tells their connected friends.
type PresenceNotifier struct {
	users    storage.UserDirectory
	graph    storage.SocialGraph
	registry *Registry
	log      *slog.Logger
}

func NewPresenceNotifier(users storage.UserDirectory, graph storage.SocialGraph, registry *Registry, log *slog.Logger) *PresenceNotifier {
	return &PresenceNotifier{
		users:    users,
		graph:    graph,
		registry: registry,
		log:      log,
	}
}

// PresenceChanged is best effort: failures are logged and the fan-out is skipped.
func (p *PresenceNotifier) PresenceChanged(ctx context.Context, userID string, online bool) {
	if err := p.users.SetUserOnline(ctx, userID, online); err != nil {
		p.log.Warn("Failed to persist online flag", "user_id", userID, "online", online, "error", err)
	}

	friendIDs, err := p.graph.GetFriendIDs(ctx, userID)
	if err != nil {
		p.log.Warn("Failed to load friends for presence update", "user_id", userID, "error", err)
		return
	}

	evt := models.Event{
		Name: models.EventFriendStatusChanged,
		Data: models.FriendStatusPayload{FriendID: userID, IsOnline: online},
	}
	notified := 0
	for _, id := range friendIDs {
		if p.registry.Send(id, evt) {
			notified++
		}
	}
	p.log.Debug("Presence change fanned out", "user_id", userID, "online", online, "notified", notified)
}
