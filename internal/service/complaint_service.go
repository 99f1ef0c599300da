package service

import (
	"context"
	"fmt"
	"strings"

	"societysync/internal/domain"
	"societysync/internal/repository"

	"go.uber.org/zap"
)

// ComplaintService 投诉服务接口
type ComplaintService interface {
	// 住户
	CreateComplaint(ctx context.Context, actor domain.Principal, req CreateComplaintRequest) (*domain.Complaint, error)
	ListMine(ctx context.Context, actor domain.Principal) ([]*domain.Complaint, error)

	// 管理员
	ListAll(ctx context.Context, actor domain.Principal, filters repository.ComplaintFilters) ([]*domain.Complaint, error)
	GetComplaint(ctx context.Context, actor domain.Principal, complaintID int64) (*domain.Complaint, error)
	UpdateStatus(ctx context.Context, actor domain.Principal, complaintID int64, status domain.ComplaintStatus) (*domain.Complaint, error)
	Respond(ctx context.Context, actor domain.Principal, complaintID int64, response string) (*domain.Complaint, error)
	DeleteComplaint(ctx context.Context, actor domain.Principal, complaintID int64) error
	Stats(ctx context.Context, actor domain.Principal) (*domain.ComplaintStats, error)
}

// complaintService 实现
type complaintService struct {
	complaintsRepo repository.ComplaintsRepository
	logger         *zap.Logger
}

// NewComplaintService 创建 ComplaintService 实例
func NewComplaintService(complaintsRepo repository.ComplaintsRepository, logger *zap.Logger) ComplaintService {
	return &complaintService{
		complaintsRepo: complaintsRepo,
		logger:         logger,
	}
}

// CreateComplaintRequest 提交投诉请求
type CreateComplaintRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"required"`
	Category    string `json:"category" validate:"required"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
}

func (s *complaintService) CreateComplaint(ctx context.Context, actor domain.Principal, req CreateComplaintRequest) (*domain.Complaint, error) {
	// 1. 权限：房号来自当前用户
	if err := actor.RequireResident(); err != nil {
		return nil, err
	}

	// 2. 参数验证
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.Category = strings.ToLower(strings.TrimSpace(req.Category))
	req.Priority = strings.ToLower(strings.TrimSpace(req.Priority))
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if !domain.ValidComplaintCategory(req.Category) {
		return nil, domain.NewValidationError("category", fmt.Sprintf("must be one of %v", domain.ComplaintCategories))
	}
	priority := domain.Priority(req.Priority)
	if priority == "" {
		priority = domain.PriorityMedium
	}

	// 3. 写入
	c := &domain.Complaint{
		UserID:      actor.UserID,
		UserName:    actor.Name,
		FlatNumber:  actor.FlatNumber,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    priority,
		Status:      domain.ComplaintOpen,
	}
	id, err := s.complaintsRepo.CreateComplaint(ctx, c)
	if err != nil {
		return nil, err
	}
	c.ComplaintID = id

	s.logger.Info("Complaint created",
		zap.Int64("complaint_id", id),
		zap.String("flat_number", c.FlatNumber),
		zap.String("category", c.Category),
		zap.String("priority", string(c.Priority)),
	)
	return c, nil
}

func (s *complaintService) ListMine(ctx context.Context, actor domain.Principal) ([]*domain.Complaint, error) {
	if err := actor.RequireResident(); err != nil {
		return nil, err
	}
	return s.complaintsRepo.ListComplaints(ctx, repository.ComplaintFilters{UserID: actor.UserID})
}

func (s *complaintService) ListAll(ctx context.Context, actor domain.Principal, filters repository.ComplaintFilters) ([]*domain.Complaint, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	if filters.Status != "" && !filters.Status.Valid() {
		return nil, domain.NewValidationError("status", "must be one of [open in_progress resolved closed]")
	}
	if filters.Priority != "" && !filters.Priority.Valid() {
		return nil, domain.NewValidationError("priority", "must be one of [low medium high urgent]")
	}
	filters.FlatNumber = domain.NormalizeFlat(filters.FlatNumber)
	return s.complaintsRepo.ListComplaints(ctx, filters)
}

func (s *complaintService) GetComplaint(ctx context.Context, actor domain.Principal, complaintID int64) (*domain.Complaint, error) {
	c, err := s.complaintsRepo.GetComplaint(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && c.UserID != actor.UserID {
		return nil, domain.NewForbiddenError("complaint belongs to another user")
	}
	return c, nil
}

// UpdateStatus 任意状态间均可转换
func (s *complaintService) UpdateStatus(ctx context.Context, actor domain.Principal, complaintID int64, status domain.ComplaintStatus) (*domain.Complaint, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	status = domain.ComplaintStatus(strings.ToLower(strings.TrimSpace(string(status))))
	if !status.Valid() {
		return nil, domain.NewValidationError("status", "must be one of [open in_progress resolved closed]")
	}
	if err := s.complaintsRepo.UpdateStatus(ctx, complaintID, status); err != nil {
		return nil, err
	}
	s.logger.Info("Complaint status updated",
		zap.Int64("complaint_id", complaintID),
		zap.String("status", string(status)),
	)
	return s.complaintsRepo.GetComplaint(ctx, complaintID)
}

func (s *complaintService) Respond(ctx context.Context, actor domain.Principal, complaintID int64, response string) (*domain.Complaint, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	response = strings.TrimSpace(response)
	if response == "" {
		return nil, domain.NewValidationError("admin_response", "is required")
	}
	if err := s.complaintsRepo.SetResponse(ctx, complaintID, response); err != nil {
		return nil, err
	}
	return s.complaintsRepo.GetComplaint(ctx, complaintID)
}

func (s *complaintService) DeleteComplaint(ctx context.Context, actor domain.Principal, complaintID int64) error {
	if err := actor.RequireAdmin(); err != nil {
		return err
	}
	if err := s.complaintsRepo.DeleteComplaint(ctx, complaintID); err != nil {
		return err
	}
	s.logger.Info("Complaint deleted", zap.Int64("complaint_id", complaintID))
	return nil
}

func (s *complaintService) Stats(ctx context.Context, actor domain.Principal) (*domain.ComplaintStats, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	byStatus, err := s.complaintsRepo.CountByStatus(ctx, "")
	if err != nil {
		return nil, err
	}
	byPriority, err := s.complaintsRepo.CountByPriority(ctx)
	if err != nil {
		return nil, err
	}
	stats := &domain.ComplaintStats{ByStatus: byStatus, ByPriority: byPriority}
	for _, n := range byStatus {
		stats.Total += n
	}
	return stats, nil
}
