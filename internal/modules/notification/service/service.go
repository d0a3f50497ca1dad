package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/ShahriarTWS/TutorHub-Client/internal/entity"
	notifRepo "github.com/ShahriarTWS/TutorHub-Client/internal/modules/notification/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type NotificationService interface {
	// Notify stores and publishes n to email. Delivery is best effort and
	// never fails the action that triggered it.
	Notify(ctx context.Context, email string, n entity.Notification)
	GetNotifications(ctx context.Context, email string, limit int) ([]entity.Notification, error)
	UnreadCount(ctx context.Context, email string) (int64, error)
	MarkAllAsRead(ctx context.Context, email string) error
}

// Channel is the pub/sub channel carrying the toasts of one user.
func Channel(email string) string {
	return "user_notifications:" + strings.ToLower(email)
}

type notificationService struct {
	repo        notifRepo.NotificationRepository
	redisClient *redis.Client
}

func NewNotificationService(repo notifRepo.NotificationRepository, redisClient *redis.Client) NotificationService {
	return &notificationService{
		repo:        repo,
		redisClient: redisClient,
	}
}

func (s *notificationService) Notify(ctx context.Context, email string, n entity.Notification) {
	if s.redisClient == nil || email == "" {
		return
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if n.Level == "" {
		n.Level = entity.LevelInfo
	}

	// the triggering request may finish before delivery
	ctx = context.WithoutCancel(ctx)

	if err := s.repo.Create(ctx, email, &n); err != nil {
		slog.Warn("failed to store notification", "email", email, "type", n.Type, "error", err)
	}

	payload, err := json.Marshal(n)
	if err != nil {
		slog.Warn("failed to encode notification", "type", n.Type, "error", err)
		return
	}
	if err := s.redisClient.Publish(ctx, Channel(email), payload).Err(); err != nil {
		slog.Warn("failed to publish notification", "email", email, "type", n.Type, "error", err)
	}
}

func (s *notificationService) GetNotifications(ctx context.Context, email string, limit int) ([]entity.Notification, error) {
	if s.redisClient == nil {
		return []entity.Notification{}, nil
	}
	return s.repo.GetByEmail(ctx, email, limit)
}

func (s *notificationService) UnreadCount(ctx context.Context, email string) (int64, error) {
	if s.redisClient == nil {
		return 0, nil
	}
	return s.repo.CountUnread(ctx, email)
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, email string) error {
	if s.redisClient == nil {
		return nil
	}
	return s.repo.MarkAllAsRead(ctx, email)
}
