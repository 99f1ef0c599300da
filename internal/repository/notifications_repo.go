package repository

import (
	"context"

	"societysync/internal/domain"
)

// NotificationsRepository 通知Repository接口
// 可见性：target_flat 为空或等于用户房号
type NotificationsRepository interface {
	CreateNotification(ctx context.Context, n *domain.Notification) (int64, error)
	GetNotification(ctx context.Context, notificationID int64) (*domain.Notification, error)
	UpdateNotification(ctx context.Context, n *domain.Notification) error
	DeleteNotification(ctx context.Context, notificationID int64) error

	ListForUser(ctx context.Context, userID int64, flat string, unreadOnly bool, limit int) ([]*domain.UserNotification, error)
	UnreadCount(ctx context.Context, userID int64, flat string) (int, error)
	// MarkRead 幂等：重复调用不产生新行
	MarkRead(ctx context.Context, notificationID, userID int64) error
	MarkAllRead(ctx context.Context, userID int64, flat string) (int64, error)

	ListSummaries(ctx context.Context, limit int) ([]*domain.NotificationSummary, error)
}
