package service

import (
	"context"
	"strings"

	"societysync/internal/domain"
	"societysync/internal/repository"

	"go.uber.org/zap"
)

// DefaultNotificationLimit 列表默认条数
const DefaultNotificationLimit = 50

// NotificationService 通知服务接口
type NotificationService interface {
	// 管理员
	Create(ctx context.Context, actor domain.Principal, req NotificationRequest) (*domain.Notification, error)
	Update(ctx context.Context, actor domain.Principal, notificationID int64, req NotificationRequest) (*domain.Notification, error)
	Delete(ctx context.Context, actor domain.Principal, notificationID int64) error
	History(ctx context.Context, actor domain.Principal, limit int) ([]*domain.NotificationSummary, error)

	// 所有登录用户
	ListForUser(ctx context.Context, actor domain.Principal, unreadOnly bool, limit int) ([]*domain.UserNotification, error)
	MarkRead(ctx context.Context, actor domain.Principal, notificationID int64) error
	MarkAllRead(ctx context.Context, actor domain.Principal) (int64, error)
	UnreadCount(ctx context.Context, actor domain.Principal) (int, error)
}

// notificationService 实现
type notificationService struct {
	notificationsRepo repository.NotificationsRepository
	announcer         *Announcer
	logger            *zap.Logger
}

// NewNotificationService 创建 NotificationService 实例
func NewNotificationService(notificationsRepo repository.NotificationsRepository, announcer *Announcer, logger *zap.Logger) NotificationService {
	return &notificationService{
		notificationsRepo: notificationsRepo,
		announcer:         announcer,
		logger:            logger,
	}
}

// NotificationRequest 创建/修改通知请求，TargetFlat 为空表示全体
type NotificationRequest struct {
	Title      string `json:"title" validate:"required,max=200"`
	Message    string `json:"message" validate:"required"`
	Type       string `json:"type" validate:"omitempty,oneof=general maintenance emergency billing visitor"`
	Priority   string `json:"priority" validate:"omitempty,oneof=low normal high"`
	TargetFlat string `json:"target_flat,omitempty"`
}

// toNotification 校验并填充默认值（general / normal）
func (req NotificationRequest) toNotification() (*domain.Notification, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Message = strings.TrimSpace(req.Message)
	req.Type = strings.ToLower(strings.TrimSpace(req.Type))
	req.Priority = strings.ToLower(strings.TrimSpace(req.Priority))
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	n := &domain.Notification{
		Title:    req.Title,
		Message:  req.Message,
		Type:     domain.NotificationType(req.Type),
		Priority: domain.NotificationPriority(req.Priority),
	}
	if n.Type == "" {
		n.Type = domain.NotificationGeneral
	}
	if n.Priority == "" {
		n.Priority = domain.NotificationNormal
	}
	if flat := domain.NormalizeFlat(req.TargetFlat); flat != "" {
		n.TargetFlat = &flat
	}
	return n, nil
}

// visibleFlat 当前用户可见的定向房号；管理员只看到全体通知
func visibleFlat(actor domain.Principal) string {
	if actor.IsResident() {
		return actor.FlatNumber
	}
	return ""
}

func (s *notificationService) Create(ctx context.Context, actor domain.Principal, req NotificationRequest) (*domain.Notification, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	n, err := req.toNotification()
	if err != nil {
		return nil, err
	}
	n.CreatedBy = &actor.UserID
	n.CreatedByName = actor.Name

	id, err := s.notificationsRepo.CreateNotification(ctx, n)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Notification created",
		zap.Int64("notification_id", id),
		zap.String("type", string(n.Type)),
		zap.String("priority", string(n.Priority)),
		zap.Bool("targeted", n.TargetFlat != nil),
	)

	s.announcer.fanOut(ctx, n)
	return n, nil
}

func (s *notificationService) Update(ctx context.Context, actor domain.Principal, notificationID int64, req NotificationRequest) (*domain.Notification, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	n, err := req.toNotification()
	if err != nil {
		return nil, err
	}
	n.NotificationID = notificationID
	if err := s.notificationsRepo.UpdateNotification(ctx, n); err != nil {
		return nil, err
	}
	return s.notificationsRepo.GetNotification(ctx, notificationID)
}

func (s *notificationService) Delete(ctx context.Context, actor domain.Principal, notificationID int64) error {
	if err := actor.RequireAdmin(); err != nil {
		return err
	}
	if err := s.notificationsRepo.DeleteNotification(ctx, notificationID); err != nil {
		return err
	}
	s.logger.Info("Notification deleted", zap.Int64("notification_id", notificationID))
	return nil
}

func (s *notificationService) History(ctx context.Context, actor domain.Principal, limit int) ([]*domain.NotificationSummary, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultNotificationLimit
	}
	return s.notificationsRepo.ListSummaries(ctx, limit)
}

func (s *notificationService) ListForUser(ctx context.Context, actor domain.Principal, unreadOnly bool, limit int) ([]*domain.UserNotification, error) {
	if limit <= 0 {
		limit = DefaultNotificationLimit
	}
	return s.notificationsRepo.ListForUser(ctx, actor.UserID, visibleFlat(actor), unreadOnly, limit)
}

// MarkRead 幂等；不可见的通知按不存在处理
func (s *notificationService) MarkRead(ctx context.Context, actor domain.Principal, notificationID int64) error {
	n, err := s.notificationsRepo.GetNotification(ctx, notificationID)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && !n.VisibleTo(actor.FlatNumber) {
		return domain.NewNotFoundError("notification", notificationID)
	}
	return s.notificationsRepo.MarkRead(ctx, notificationID, actor.UserID)
}

func (s *notificationService) MarkAllRead(ctx context.Context, actor domain.Principal) (int64, error) {
	return s.notificationsRepo.MarkAllRead(ctx, actor.UserID, visibleFlat(actor))
}

func (s *notificationService) UnreadCount(ctx context.Context, actor domain.Principal) (int, error) {
	return s.notificationsRepo.UnreadCount(ctx, actor.UserID, visibleFlat(actor))
}
