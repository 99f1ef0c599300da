package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"societysync/internal/domain"
	"societysync/internal/repository"

	"go.uber.org/zap"
)

// DefaultVisitorLimit 列表默认条数
const DefaultVisitorLimit = 100

// VisitorService 访客服务接口
type VisitorService interface {
	// 管理员
	LogVisitor(ctx context.Context, actor domain.Principal, req LogVisitorRequest) (*domain.Visitor, error)
	MarkExit(ctx context.Context, actor domain.Principal, visitorID int64) (*domain.Visitor, error)
	DeleteVisitor(ctx context.Context, actor domain.Principal, visitorID int64) error
	ListVisitors(ctx context.Context, actor domain.Principal, req ListVisitorsRequest) ([]*domain.Visitor, error)
	Photo(ctx context.Context, actor domain.Principal, visitorID int64) (*domain.VisitorPhoto, error)

	// 住户：仅本房号
	ListFlatVisitors(ctx context.Context, actor domain.Principal, limit int) ([]*domain.Visitor, error)
}

// visitorService 实现
type visitorService struct {
	visitorsRepo  repository.VisitorsRepository
	occupancy     OccupancyService
	announcer     *Announcer
	photoMaxBytes int
	clock         Clock
	logger        *zap.Logger
}

// NewVisitorService 创建 VisitorService 实例
func NewVisitorService(visitorsRepo repository.VisitorsRepository, occupancy OccupancyService, announcer *Announcer, photoMaxBytes int, clock Clock, logger *zap.Logger) VisitorService {
	return &visitorService{
		visitorsRepo:  visitorsRepo,
		occupancy:     occupancy,
		announcer:     announcer,
		photoMaxBytes: photoMaxBytes,
		clock:         clock,
		logger:        logger,
	}
}

// LogVisitorRequest 访客登记请求，Photo 为 base64（可带 data URL 前缀）
type LogVisitorRequest struct {
	FlatNumber    string `json:"flat_number" validate:"required"`
	VisitorName   string `json:"visitor_name" validate:"required,max=100"`
	VisitorPhone  string `json:"visitor_phone"`
	Purpose       string `json:"purpose" validate:"max=200"`
	VehicleNumber string `json:"vehicle_number" validate:"max=20"`
	Photo         string `json:"photo,omitempty"`
}

// ListVisitorsRequest 访客列表查询
type ListVisitorsRequest struct {
	FlatNumber string `json:"flat_number"`
	Status     string `json:"status" validate:"omitempty,oneof=in out"`
	Date       string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Limit      int    `json:"limit"`
}

func (s *visitorService) LogVisitor(ctx context.Context, actor domain.Principal, req LogVisitorRequest) (*domain.Visitor, error) {
	// 1. 权限
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}

	// 2. 参数验证
	req.VisitorName = strings.TrimSpace(req.VisitorName)
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	flat := domain.NormalizeFlat(req.FlatNumber)
	var phone string
	if strings.TrimSpace(req.VisitorPhone) != "" {
		p, ok := domain.NormalizePhone(req.VisitorPhone)
		if !ok {
			return nil, domain.NewValidationError("visitor_phone", "must be a 10-digit phone number")
		}
		phone = p
	}
	photo, err := s.decodePhoto(req.Photo)
	if err != nil {
		return nil, err
	}

	// 3. 房号必须有人居住
	occupied, err := s.occupancy.IsOccupied(ctx, flat)
	if err != nil {
		return nil, err
	}
	if !occupied {
		return nil, domain.NewValidationError("flat_number", fmt.Sprintf("flat %s is not occupied", flat))
	}

	// 4. 访客与通知同一事务写入
	v := &domain.Visitor{
		FlatNumber:    flat,
		VisitorName:   req.VisitorName,
		VisitorPhone:  phone,
		Purpose:       strings.TrimSpace(req.Purpose),
		VehicleNumber: strings.ToUpper(strings.TrimSpace(req.VehicleNumber)),
		LoggedBy:      &actor.UserID,
	}
	n := &domain.Notification{
		Title:      "New Visitor",
		Message:    fmt.Sprintf("Visitor %s arrived at Flat %s", v.VisitorName, flat),
		Type:       domain.NotificationVisitor,
		Priority:   domain.NotificationNormal,
		TargetFlat: &flat,
		CreatedBy:  &actor.UserID,
	}
	visitorID, notificationID, err := s.visitorsRepo.CreateVisitor(ctx, v, photo, n)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Visitor logged",
		zap.Int64("visitor_id", visitorID),
		zap.Int64("notification_id", notificationID),
		zap.String("flat_number", flat),
		zap.Bool("has_photo", photo != nil),
	)

	// 5. 提交后外发
	s.announcer.fanOut(ctx, n)
	return v, nil
}

// decodePhoto 解码并校验照片，空串返回 nil
func (s *visitorService) decodePhoto(encoded string) (*domain.VisitorPhoto, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, nil
	}
	if strings.HasPrefix(encoded, "data:") {
		if i := strings.Index(encoded, ","); i >= 0 {
			encoded = encoded[i+1:]
		}
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, domain.NewValidationError("photo", "must be base64 encoded")
	}
	if s.photoMaxBytes > 0 && len(data) > s.photoMaxBytes {
		return nil, domain.NewValidationError("photo", fmt.Sprintf("must not exceed %d bytes", s.photoMaxBytes))
	}
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, domain.NewValidationError("photo", "must be an image")
	}
	return &domain.VisitorPhoto{Data: data, ContentType: contentType}, nil
}

func (s *visitorService) MarkExit(ctx context.Context, actor domain.Principal, visitorID int64) (*domain.Visitor, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	updated, err := s.visitorsRepo.MarkExit(ctx, visitorID)
	if err != nil {
		return nil, err
	}
	if !updated {
		// 区分不存在与已离开
		if _, err := s.visitorsRepo.GetVisitor(ctx, visitorID); err != nil {
			return nil, err
		}
		return nil, domain.NewValidationError("status", "visitor has already checked out")
	}
	return s.visitorsRepo.GetVisitor(ctx, visitorID)
}

func (s *visitorService) DeleteVisitor(ctx context.Context, actor domain.Principal, visitorID int64) error {
	if err := actor.RequireAdmin(); err != nil {
		return err
	}
	if err := s.visitorsRepo.DeleteVisitor(ctx, visitorID); err != nil {
		return err
	}
	s.logger.Info("Visitor deleted", zap.Int64("visitor_id", visitorID))
	return nil
}

func (s *visitorService) ListVisitors(ctx context.Context, actor domain.Principal, req ListVisitorsRequest) ([]*domain.Visitor, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	date, err := parseOptionalDate("date", req.Date, s.clock.Location)
	if err != nil {
		return nil, err
	}
	return s.visitorsRepo.ListVisitors(ctx, domain.VisitorFilter{
		FlatNumber: domain.NormalizeFlat(req.FlatNumber),
		Status:     domain.VisitorStatus(req.Status),
		Date:       date,
		Limit:      visitorLimit(req.Limit),
	})
}

func (s *visitorService) ListFlatVisitors(ctx context.Context, actor domain.Principal, limit int) ([]*domain.Visitor, error) {
	if err := actor.RequireResident(); err != nil {
		return nil, err
	}
	return s.visitorsRepo.ListVisitors(ctx, domain.VisitorFilter{
		FlatNumber: actor.FlatNumber,
		Limit:      visitorLimit(limit),
	})
}

func (s *visitorService) Photo(ctx context.Context, actor domain.Principal, visitorID int64) (*domain.VisitorPhoto, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	return s.visitorsRepo.GetPhoto(ctx, visitorID)
}

func visitorLimit(limit int) int {
	if limit <= 0 {
		return DefaultVisitorLimit
	}
	return limit
}

