package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignatzorin/crowdfunding-backend/internal/logger"
	"github.com/ignatzorin/crowdfunding-backend/internal/models"
)

// NotificationRepository описывает взаимодействие сервиса с хранилищем уведомлений.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}

// Pusher доставляет событие подключённому пользователю.
type Pusher interface {
	SendToUser(ctx context.Context, userID uuid.UUID, event string, data any) error
}

// NotificationService сохраняет уведомления и дублирует их в WebSocket.
type NotificationService struct {
	repo   NotificationRepository
	pusher Pusher
}

// NewNotificationService создаёт новый сервис уведомлений. pusher может быть nil.
func NewNotificationService(repo NotificationRepository, pusher Pusher) *NotificationService {
	return &NotificationService{repo: repo, pusher: pusher}
}

// CreateNotification сохраняет уведомление вида {"event", "data"}.
func (s *NotificationService) CreateNotification(ctx context.Context, userID uuid.UUID, event string, data any) (*models.Notification, error) {
	payloadBytes, err := json.Marshal(map[string]any{
		"event": event,
		"data":  data,
	})
	if err != nil {
		return nil, fmt.Errorf("notification service: marshal payload %w", err)
	}

	notification := &models.Notification{
		UserID:  userID,
		Payload: payloadBytes,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, toAppError(err)
	}

	return notification, nil
}

// Notify сохраняет уведомление и отправляет его онлайн. Ошибка доставки только логируется.
func (s *NotificationService) Notify(ctx context.Context, userID uuid.UUID, event string, data any) error {
	if _, err := s.CreateNotification(ctx, userID, event, data); err != nil {
		return err
	}
	if s.pusher == nil {
		return nil
	}
	if err := s.pusher.SendToUser(ctx, userID, event, data); err != nil {
		logger.Component("notification").WithError(err).WithField("user_id", userID).Warn("не удалось доставить уведомление по websocket")
	}
	return nil
}

// ListNotifications возвращает список уведомлений пользователя.
func (s *NotificationService) ListNotifications(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	limit, offset = page(limit, offset)
	list, err := s.repo.List(ctx, userID, limit, offset, unreadOnly)
	return list, toAppError(err)
}

// MarkAsRead отмечает уведомление пользователя как прочитанное.
func (s *NotificationService) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	return toAppError(s.repo.MarkAsRead(ctx, id, userID))
}

// MarkAllAsRead отмечает все уведомления пользователя как прочитанные.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return toAppError(s.repo.MarkAllAsRead(ctx, userID))
}

// CountUnread возвращает количество непрочитанных уведомлений.
func (s *NotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	n, err := s.repo.CountUnread(ctx, userID)
	return n, toAppError(err)
}
