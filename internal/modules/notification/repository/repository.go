package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ShahriarTWS/TutorHub-Client/internal/entity"
	"github.com/redis/go-redis/v9"
)

// keep only the most recent toasts per user
const maxStored = 50

type NotificationRepository interface {
	Create(ctx context.Context, email string, n *entity.Notification) error
	GetByEmail(ctx context.Context, email string, limit int) ([]entity.Notification, error)
	CountUnread(ctx context.Context, email string) (int64, error)
	MarkAllAsRead(ctx context.Context, email string) error
}

type notificationRepository struct {
	rdb *redis.Client
}

func NewNotificationRepository(rdb *redis.Client) NotificationRepository {
	return &notificationRepository{rdb: rdb}
}

func listKey(email string) string {
	return "notifications:" + strings.ToLower(email)
}

func unreadKey(email string) string {
	return "notifications-unread:" + strings.ToLower(email)
}

func (r *notificationRepository) Create(ctx context.Context, email string, n *entity.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	pipe := r.rdb.TxPipeline()
	pipe.LPush(ctx, listKey(email), payload)
	pipe.LTrim(ctx, listKey(email), 0, maxStored-1)
	pipe.Incr(ctx, unreadKey(email))
	_, err = pipe.Exec(ctx)
	return err
}

func (r *notificationRepository) GetByEmail(ctx context.Context, email string, limit int) ([]entity.Notification, error) {
	raw, err := r.rdb.LRange(ctx, listKey(email), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, err
	}

	notifications := make([]entity.Notification, 0, len(raw))
	for _, item := range raw {
		var n entity.Notification
		if err := json.Unmarshal([]byte(item), &n); err != nil {
			slog.Warn("skipping undecodable notification", "email", email, "error", err)
			continue
		}
		notifications = append(notifications, n)
	}
	return notifications, nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, email string) (int64, error) {
	n, err := r.rdb.Get(ctx, unreadKey(email)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

func (r *notificationRepository) MarkAllAsRead(ctx context.Context, email string) error {
	return r.rdb.Del(ctx, unreadKey(email)).Err()
}
