package repository

import (
	"context"

	"societysync/internal/domain"
)

// ComplaintsRepository 投诉Repository接口
type ComplaintsRepository interface {
	CreateComplaint(ctx context.Context, c *domain.Complaint) (int64, error)
	GetComplaint(ctx context.Context, complaintID int64) (*domain.Complaint, error)
	ListComplaints(ctx context.Context, filters ComplaintFilters) ([]*domain.Complaint, error)
	// UpdateStatus 进入 resolved 时记录 resolved_at，回到 open/in_progress 时清空
	UpdateStatus(ctx context.Context, complaintID int64, status domain.ComplaintStatus) error
	SetResponse(ctx context.Context, complaintID int64, response string) error
	DeleteComplaint(ctx context.Context, complaintID int64) error
	CountByStatus(ctx context.Context, flat string) (map[domain.ComplaintStatus]int, error)
	CountByPriority(ctx context.Context) (map[domain.Priority]int, error)
}

// ComplaintFilters 投诉查询过滤器
type ComplaintFilters struct {
	UserID     int64
	FlatNumber string
	Status     domain.ComplaintStatus
	Priority   domain.Priority
	Limit      int
}
