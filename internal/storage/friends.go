package storage

import (
	"context"
	"errors"
	"time"

	"pairchat/backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrRequestHandled = errors.New("friend request already handled")

func (s *Service) GetFriendIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	if err := s.DB.WithContext(ctx).Model(&models.Friendship{}).
		Where("user_id = ?", userID).
		Pluck("friend_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Service) AreFriends(ctx context.Context, userID, otherID string) (bool, error) {
	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.Friendship{}).
		Where("user_id = ? AND friend_id = ?", userID, otherID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Service) HasPendingRequest(ctx context.Context, senderID, recipientID string) (bool, error) {
	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.FriendRequest{}).
		Where("sender_id = ? AND recipient_id = ? AND status = ?", senderID, recipientID, models.FriendRequestPending).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Service) CreateFriendRequest(ctx context.Context, senderID, recipientID string) (*models.FriendRequest, error) {
	req := &models.FriendRequest{
		ID:          uuid.New().String(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Status:      models.FriendRequestPending,
		CreatedAt:   time.Now(),
	}
	if err := s.DB.WithContext(ctx).Create(req).Error; err != nil {
		return nil, err
	}
	return req, nil
}

// ListPendingRequests returns the requests waiting for userID's answer, oldest first.
func (s *Service) ListPendingRequests(ctx context.Context, userID string) ([]models.FriendRequest, error) {
	var reqs []models.FriendRequest
	if err := s.DB.WithContext(ctx).
		Where("recipient_id = ? AND status = ?", userID, models.FriendRequestPending).
		Order("created_at ASC").
		Find(&reqs).Error; err != nil {
		return nil, err
	}
	return reqs, nil
}

// RespondToFriendRequest accepts or rejects a pending request addressed to userID.
// Accepting writes the friendship in both directions in one transaction.
func (s *Service) RespondToFriendRequest(ctx context.Context, userID, requestID string, accept bool) (*models.FriendRequest, error) {
	var req models.FriendRequest
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND recipient_id = ?", requestID, userID).First(&req).Error; err != nil {
			return notFound(err)
		}
		if req.Status != models.FriendRequestPending {
			return ErrRequestHandled
		}

		now := time.Now()
		req.RespondedAt = &now
		req.Status = models.FriendRequestRejected
		if accept {
			req.Status = models.FriendRequestAccepted
			edges := []models.Friendship{
				{UserID: req.RecipientID, FriendID: req.SenderID, CreatedAt: now},
				{UserID: req.SenderID, FriendID: req.RecipientID, CreatedAt: now},
			}
			if err := tx.Save(&edges).Error; err != nil {
				return err
			}
		}
		return tx.Save(&req).Error
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// RemoveFriend deletes both directions of the friendship.
func (s *Service) RemoveFriend(ctx context.Context, userID, friendID string) error {
	result := s.DB.WithContext(ctx).
		Where("(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)", userID, friendID, friendID, userID).
		Delete(&models.Friendship{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
