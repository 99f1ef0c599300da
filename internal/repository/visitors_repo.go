package repository

import (
	"context"

	"societysync/internal/domain"
)

// VisitorsRepository 访客Repository接口
type VisitorsRepository interface {
	// CreateVisitor 在同一事务中写入访客记录（status=in）与发往该房号的通知
	CreateVisitor(ctx context.Context, v *domain.Visitor, photo *domain.VisitorPhoto, n *domain.Notification) (visitorID, notificationID int64, err error)
	GetVisitor(ctx context.Context, visitorID int64) (*domain.Visitor, error)
	ListVisitors(ctx context.Context, filters domain.VisitorFilter) ([]*domain.Visitor, error)
	// MarkExit 仅对 status=in 的记录生效，返回是否有行被更新
	MarkExit(ctx context.Context, visitorID int64) (bool, error)
	DeleteVisitor(ctx context.Context, visitorID int64) error
	GetPhoto(ctx context.Context, visitorID int64) (*domain.VisitorPhoto, error)
	CountInside(ctx context.Context, flat string) (int, error)
}
