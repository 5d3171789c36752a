package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	onlineUsersKey = "online_users"
	banKeyPrefix   = "ban:"
)

// IsUserBanned checks the ban flag in Redis.
func (s *Service) IsUserBanned(ctx context.Context, userID string) (bool, error) {
	if s.Redis == nil {
		return false, nil
	}
	status, err := s.Redis.Get(ctx, banKeyPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return status != "", nil
}

// BanUser sets the ban flag. A zero duration bans until UnbanUser is called.
func (s *Service) BanUser(ctx context.Context, userID, reason string, duration time.Duration) error {
	if reason == "" {
		reason = "banned"
	}
	return s.Redis.Set(ctx, banKeyPrefix+userID, reason, duration).Err()
}

func (s *Service) UnbanUser(ctx context.Context, userID string) error {
	return s.Redis.Del(ctx, banKeyPrefix+userID).Err()
}

// OnlineUserIDs lists the presence set. It reflects every instance sharing this Redis.
func (s *Service) OnlineUserIDs(ctx context.Context) ([]string, error) {
	if s.Redis == nil {
		return nil, nil
	}
	return s.Redis.SMembers(ctx, onlineUsersKey).Result()
}
