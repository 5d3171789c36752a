package storage

import (
	"context"
	"time"

	"pairchat/backend/internal/models"
)

func (s *Service) CreateSession(ctx context.Context, session *models.ChatSession) error {
	return s.DB.WithContext(ctx).Create(session).Error
}

func (s *Service) GetSession(ctx context.Context, sessionID string) (*models.ChatSession, error) {
	var session models.ChatSession
	if err := s.DB.WithContext(ctx).Where("session_id = ?", sessionID).First(&session).Error; err != nil {
		return nil, notFound(err)
	}
	return &session, nil
}

func (s *Service) AppendMessage(ctx context.Context, msg *models.SessionMessage) error {
	return s.DB.WithContext(ctx).Create(msg).Error
}

// EndSession marks an active session as ended. Ending an already ended session is a no-op.
func (s *Service) EndSession(ctx context.Context, sessionID, reason string) error {
	result := s.DB.WithContext(ctx).Model(&models.ChatSession{}).
		Where("session_id = ? AND status = ?", sessionID, models.SessionStatusActive).
		Updates(map[string]any{
			"status":     models.SessionStatusEnded,
			"end_reason": reason,
			"ended_at":   time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := s.GetSession(ctx, sessionID); err != nil {
			return err
		}
	}
	return nil
}

// ListSessions returns the most recent sessions first, optionally only the active ones.
func (s *Service) ListSessions(ctx context.Context, activeOnly bool, limit int) ([]models.ChatSession, error) {
	if limit <= 0 {
		limit = 50
	}
	q := s.DB.WithContext(ctx).Order("started_at DESC").Limit(limit)
	if activeOnly {
		q = q.Where("status = ?", models.SessionStatusActive)
	}
	var sessions []models.ChatSession
	if err := q.Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// GetMessages returns a session's log in sequence order.
func (s *Service) GetMessages(ctx context.Context, sessionID string) ([]models.SessionMessage, error) {
	var msgs []models.SessionMessage
	if err := s.DB.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("seq ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// CloseDanglingSessions ends every session still marked active. In-memory sessions do not
// survive a restart, so rows left active by a previous process are stale.
func (s *Service) CloseDanglingSessions(ctx context.Context) (int64, error) {
	result := s.DB.WithContext(ctx).Model(&models.ChatSession{}).
		Where("status = ?", models.SessionStatusActive).
		Updates(map[string]any{
			"status":     models.SessionStatusEnded,
			"end_reason": "restart",
			"ended_at":   time.Now(),
		})
	return result.RowsAffected, result.Error
}
