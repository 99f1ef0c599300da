package repository

import (
	"context"
	"database/sql"
	"fmt"

	"societysync/internal/domain"

	"go.uber.org/zap"
)

// PostgresNotificationsRepository 通知Repository实现
type PostgresNotificationsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresNotificationsRepository 创建通知Repository
func NewPostgresNotificationsRepository(db *sql.DB, logger *zap.Logger) *PostgresNotificationsRepository {
	return &PostgresNotificationsRepository{db: db, logger: logger}
}

var _ NotificationsRepository = (*PostgresNotificationsRepository)(nil)

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// insertNotification 供普通连接与事务共用
func insertNotification(ctx context.Context, q queryRower, n *domain.Notification) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `
		INSERT INTO notifications (title, message, type, priority, target_flat, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING notification_id, created_at`,
		n.Title, n.Message, string(n.Type), string(n.Priority), nullStringPtr(n.TargetFlat), nullInt64Ptr(n.CreatedBy),
	).Scan(&id, &n.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert notification: %w", err)
	}
	n.NotificationID = id
	return id, nil
}

const notificationSelect = `
	SELECT n.notification_id, n.title, n.message, n.type, n.priority, n.target_flat,
	       n.created_by, COALESCE(u.name, ''), n.created_at`

func scanNotificationInto(n *domain.Notification, extra ...any) []any {
	return append([]any{
		&n.NotificationID, &n.Title, &n.Message, &n.Type, &n.Priority, new(sql.NullString),
		new(sql.NullInt64), &n.CreatedByName, &n.CreatedAt,
	}, extra...)
}

// finishNotification 将扫描目标中的可空列写回通知
func finishNotification(n *domain.Notification, dest []any) {
	n.TargetFlat = stringPtr(*dest[5].(*sql.NullString))
	n.CreatedBy = int64Ptr(*dest[6].(*sql.NullInt64))
}

// CreateNotification 创建通知
func (r *PostgresNotificationsRepository) CreateNotification(ctx context.Context, n *domain.Notification) (int64, error) {
	return insertNotification(ctx, r.db, n)
}

// GetNotification 获取通知
func (r *PostgresNotificationsRepository) GetNotification(ctx context.Context, notificationID int64) (*domain.Notification, error) {
	var n domain.Notification
	dest := scanNotificationInto(&n)
	err := r.db.QueryRowContext(ctx, notificationSelect+`
		FROM notifications n LEFT JOIN users u ON u.user_id = n.created_by
		WHERE n.notification_id = $1`, notificationID).Scan(dest...)
	if err != nil {
		return nil, notFound(err, "notification", notificationID)
	}
	finishNotification(&n, dest)
	return &n, nil
}

// UpdateNotification 修改通知内容
func (r *PostgresNotificationsRepository) UpdateNotification(ctx context.Context, n *domain.Notification) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET title = $1, message = $2, type = $3, priority = $4, target_flat = $5
		WHERE notification_id = $6`,
		n.Title, n.Message, string(n.Type), string(n.Priority), nullStringPtr(n.TargetFlat), n.NotificationID,
	)
	if err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}
	return requireAffected(res, "notification", n.NotificationID)
}

// DeleteNotification 删除通知（已读记录级联删除）
func (r *PostgresNotificationsRepository) DeleteNotification(ctx context.Context, notificationID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE notification_id = $1`, notificationID)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return requireAffected(res, "notification", notificationID)
}

// ListForUser 用户可见的通知及已读状态，按创建时间倒序
func (r *PostgresNotificationsRepository) ListForUser(ctx context.Context, userID int64, flat string, unreadOnly bool, limit int) ([]*domain.UserNotification, error) {
	query := notificationSelect + `, nr.read_at
		FROM notifications n
		LEFT JOIN users u ON u.user_id = n.created_by
		LEFT JOIN notification_reads nr ON nr.notification_id = n.notification_id AND nr.user_id = $1
		WHERE (n.target_flat IS NULL OR n.target_flat = $2)`
	args := []any{userID, flat}
	if unreadOnly {
		query += ` AND nr.read_id IS NULL`
	}
	query += ` ORDER BY n.created_at DESC, n.notification_id DESC`
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var out []*domain.UserNotification
	for rows.Next() {
		var un domain.UserNotification
		var readAt sql.NullTime
		dest := scanNotificationInto(&un.Notification, &readAt)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		finishNotification(&un.Notification, dest)
		un.ReadAt = timePtr(readAt)
		un.IsRead = readAt.Valid
		out = append(out, &un)
	}
	return out, rows.Err()
}

// UnreadCount 未读数量
func (r *PostgresNotificationsRepository) UnreadCount(ctx context.Context, userID int64, flat string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM notifications n
		LEFT JOIN notification_reads nr ON nr.notification_id = n.notification_id AND nr.user_id = $1
		WHERE (n.target_flat IS NULL OR n.target_flat = $2) AND nr.read_id IS NULL`,
		userID, flat,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return n, nil
}

// MarkRead 标记已读
func (r *PostgresNotificationsRepository) MarkRead(ctx context.Context, notificationID, userID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notification_reads (notification_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (notification_id, user_id) DO NOTHING`, notificationID, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

// MarkAllRead 将用户可见的全部通知标记为已读
func (r *PostgresNotificationsRepository) MarkAllRead(ctx context.Context, userID int64, flat string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO notification_reads (notification_id, user_id)
		SELECT n.notification_id, $1 FROM notifications n
		WHERE n.target_flat IS NULL OR n.target_flat = $2
		ON CONFLICT (notification_id, user_id) DO NOTHING`, userID, flat)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return res.RowsAffected()
}

// ListSummaries 管理员通知历史（含已读人数）
func (r *PostgresNotificationsRepository) ListSummaries(ctx context.Context, limit int) ([]*domain.NotificationSummary, error) {
	query := notificationSelect + `, (SELECT COUNT(*) FROM notification_reads nr WHERE nr.notification_id = n.notification_id)
		FROM notifications n
		LEFT JOIN users u ON u.user_id = n.created_by
		ORDER BY n.created_at DESC, n.notification_id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var out []*domain.NotificationSummary
	for rows.Next() {
		var s domain.NotificationSummary
		dest := scanNotificationInto(&s.Notification, &s.ReadCount)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		finishNotification(&s.Notification, dest)
		out = append(out, &s)
	}
	return out, rows.Err()
}
