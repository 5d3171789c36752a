package storage

import (
	"context"
	"fmt"
	"time"

	"pairchat/backend/internal/models"
)

func (s *Service) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// GetUsersByIDs returns the users that exist among userIDs, in no particular order.
func (s *Service) GetUsersByIDs(ctx context.Context, userIDs []string) ([]models.User, error) {
	var users []models.User
	if len(userIDs) == 0 {
		return users, nil
	}
	if err := s.DB.WithContext(ctx).Where("id IN ?", userIDs).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// SetUserOnline persists the online flag and mirrors it into the Redis presence set.
func (s *Service) SetUserOnline(ctx context.Context, userID string, online bool) error {
	err := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"is_online":   online,
			"last_active": time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("update online flag: %w", err)
	}

	if s.Redis == nil {
		return nil
	}
	if online {
		err = s.Redis.SAdd(ctx, onlineUsersKey, userID).Err()
	} else {
		err = s.Redis.SRem(ctx, onlineUsersKey, userID).Err()
	}
	if err != nil {
		return fmt.Errorf("update presence set: %w", err)
	}
	return nil
}
