package service

import (
	"context"
	"fmt"
	"strings"

	"societysync/internal/domain"
	"societysync/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BillingService 账单服务接口
type BillingService interface {
	// 管理员
	CreateBill(ctx context.Context, actor domain.Principal, req CreateBillRequest) (*domain.Bill, error)
	BulkGenerate(ctx context.Context, actor domain.Principal, req BulkBillRequest) (*BulkBillResponse, error)
	UpdateBill(ctx context.Context, actor domain.Principal, billID int64, req UpdateBillRequest) (*domain.Bill, error)
	DeleteBill(ctx context.Context, actor domain.Principal, billID int64) error
	ExportBills(ctx context.Context, actor domain.Principal, filters repository.BillFilters) ([]byte, error)

	// 管理员与住户（住户仅限本房号）
	ListBills(ctx context.Context, actor domain.Principal, filters repository.BillFilters) ([]*domain.Bill, error)
	ListFlatBills(ctx context.Context, actor domain.Principal, flat string) ([]*domain.Bill, error)
	GetBill(ctx context.Context, actor domain.Principal, billID int64) (*domain.Bill, error)
	Pay(ctx context.Context, actor domain.Principal, billID int64, method string) (*domain.Bill, error)
	Stats(ctx context.Context, actor domain.Principal, flat string) (*domain.BillStats, error)

	// SweepOverdue 将已过期的 pending 账单标记为 overdue
	SweepOverdue(ctx context.Context) (int64, error)
}

// billingService 实现
type billingService struct {
	billsRepo repository.BillsRepository
	occupancy OccupancyService
	announcer *Announcer
	clock     Clock
	logger    *zap.Logger
}

// NewBillingService 创建 BillingService 实例
func NewBillingService(billsRepo repository.BillsRepository, occupancy OccupancyService, announcer *Announcer, clock Clock, logger *zap.Logger) BillingService {
	return &billingService{
		billsRepo: billsRepo,
		occupancy: occupancy,
		announcer: announcer,
		clock:     clock,
		logger:    logger,
	}
}

// CreateBillRequest 创建账单请求
type CreateBillRequest struct {
	FlatNumber string          `json:"flat_number" validate:"required"`
	BillType   string          `json:"bill_type" validate:"required,max=50"`
	Amount     decimal.Decimal `json:"amount"`
	DueDate    string          `json:"due_date" validate:"required"`
}

// UpdateBillRequest 修改账单请求
type UpdateBillRequest struct {
	BillType string          `json:"bill_type" validate:"required,max=50"`
	Amount   decimal.Decimal `json:"amount"`
	DueDate  string          `json:"due_date" validate:"required"`
}

// BulkBillRequest 批量生成请求，Target 为空时按房号生成
type BulkBillRequest struct {
	BillType string          `json:"bill_type" validate:"required,max=50"`
	Amount   decimal.Decimal `json:"amount"`
	DueDate  string          `json:"due_date" validate:"required"`
	Target   string          `json:"target" validate:"omitempty,oneof=distinct_flats distinct_residents"`
}

// BulkBillResponse 批量生成结果
type BulkBillResponse struct {
	Created int               `json:"created"`
	Target  domain.BulkTarget `json:"target"`
}

// billType 校验账单类型并返回标准写法
func billType(value string) (string, error) {
	bt, ok := domain.NormalizeBillType(value)
	if !ok {
		return "", domain.NewValidationError("bill_type", fmt.Sprintf("must be one of %v", domain.BillTypes))
	}
	return bt, nil
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return domain.NewValidationError("amount", "must be greater than 0")
	}
	return nil
}

func (s *billingService) CreateBill(ctx context.Context, actor domain.Principal, req CreateBillRequest) (*domain.Bill, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}
	bt, err := billType(req.BillType)
	if err != nil {
		return nil, err
	}
	due, err := parseDate("due_date", req.DueDate, s.clock.Location)
	if err != nil {
		return nil, err
	}
	flat := domain.NormalizeFlat(req.FlatNumber)
	occupied, err := s.occupancy.IsOccupied(ctx, flat)
	if err != nil {
		return nil, err
	}
	if !occupied {
		return nil, domain.NewValidationError("flat_number", fmt.Sprintf("flat %s is not occupied", flat))
	}

	bill := &domain.Bill{
		FlatNumber:    flat,
		BillType:      bt,
		Amount:        req.Amount,
		DueDate:       due,
		PaymentStatus: domain.BillPending,
		CreatedBy:     &actor.UserID,
	}
	id, err := s.billsRepo.CreateBill(ctx, bill)
	if err != nil {
		return nil, err
	}
	bill.BillID = id

	s.logger.Info("Bill created",
		zap.Int64("bill_id", id),
		zap.String("flat_number", flat),
		zap.String("bill_type", bill.BillType),
		zap.String("amount", bill.Amount.StringFixed(2)),
	)

	s.announcer.publish(ctx, &domain.Notification{
		Title:      fmt.Sprintf("New %s bill", bill.BillType),
		Message:    fmt.Sprintf("A %s bill of %s for flat %s is due on %s.", bill.BillType, bill.Amount.StringFixed(2), flat, due.Format(DateLayout)),
		Type:       domain.NotificationBilling,
		Priority:   domain.NotificationNormal,
		TargetFlat: &flat,
		CreatedBy:  &actor.UserID,
	})
	return bill, nil
}

func (s *billingService) BulkGenerate(ctx context.Context, actor domain.Principal, req BulkBillRequest) (*BulkBillResponse, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}
	bt, err := billType(req.BillType)
	if err != nil {
		return nil, err
	}
	due, err := parseDate("due_date", req.DueDate, s.clock.Location)
	if err != nil {
		return nil, err
	}
	target := domain.BulkTarget(req.Target)
	if target == "" {
		target = domain.DistinctFlats
	}

	template := &domain.Bill{
		BillType:  bt,
		Amount:    req.Amount,
		DueDate:   due,
		CreatedBy: &actor.UserID,
	}
	created, err := s.billsRepo.GenerateBulk(ctx, template, target)
	if err != nil {
		return nil, err
	}

	if created > 0 {
		s.announcer.publish(ctx, &domain.Notification{
			Title:     fmt.Sprintf("New %s bills", template.BillType),
			Message:   fmt.Sprintf("%s bills of %s have been generated, due on %s.", template.BillType, template.Amount.StringFixed(2), due.Format(DateLayout)),
			Type:      domain.NotificationBilling,
			Priority:  domain.NotificationNormal,
			CreatedBy: &actor.UserID,
		})
	}
	return &BulkBillResponse{Created: created, Target: target}, nil
}

func (s *billingService) UpdateBill(ctx context.Context, actor domain.Principal, billID int64, req UpdateBillRequest) (*domain.Bill, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}
	bt, err := billType(req.BillType)
	if err != nil {
		return nil, err
	}
	due, err := parseDate("due_date", req.DueDate, s.clock.Location)
	if err != nil {
		return nil, err
	}
	bill := &domain.Bill{
		BillID:   billID,
		BillType: bt,
		Amount:   req.Amount,
		DueDate:  due,
	}
	if err := s.billsRepo.UpdateBill(ctx, bill); err != nil {
		return nil, err
	}
	return s.billsRepo.GetBill(ctx, billID)
}

func (s *billingService) DeleteBill(ctx context.Context, actor domain.Principal, billID int64) error {
	if err := actor.RequireAdmin(); err != nil {
		return err
	}
	if err := s.billsRepo.DeleteBill(ctx, billID); err != nil {
		return err
	}
	s.logger.Info("Bill deleted", zap.Int64("bill_id", billID), zap.Int64("deleted_by", actor.UserID))
	return nil
}

// scopeFlat 住户只能查看本房号
func scopeFlat(actor domain.Principal, requested string) (string, error) {
	if actor.IsAdmin() {
		return domain.NormalizeFlat(requested), nil
	}
	if err := actor.RequireResident(); err != nil {
		return "", err
	}
	return actor.FlatNumber, nil
}

func (s *billingService) ListBills(ctx context.Context, actor domain.Principal, filters repository.BillFilters) ([]*domain.Bill, error) {
	flat, err := scopeFlat(actor, filters.FlatNumber)
	if err != nil {
		return nil, err
	}
	filters.FlatNumber = flat
	if filters.Status != "" && !filters.Status.Valid() {
		return nil, domain.NewValidationError("status", "must be one of [pending paid overdue]")
	}
	if _, err := s.SweepOverdue(ctx); err != nil {
		return nil, err
	}
	return s.billsRepo.ListBills(ctx, filters)
}

func (s *billingService) ListFlatBills(ctx context.Context, actor domain.Principal, flat string) ([]*domain.Bill, error) {
	if strings.TrimSpace(flat) == "" {
		return nil, domain.NewValidationError("flat_number", "is required")
	}
	return s.ListBills(ctx, actor, repository.BillFilters{FlatNumber: flat})
}

func (s *billingService) GetBill(ctx context.Context, actor domain.Principal, billID int64) (*domain.Bill, error) {
	bill, err := s.billsRepo.GetBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && bill.FlatNumber != actor.FlatNumber {
		return nil, domain.NewForbiddenError("bill belongs to another flat")
	}
	return bill, nil
}

// Pay 标记已付款；重复付款会重新记录日期与方式
func (s *billingService) Pay(ctx context.Context, actor domain.Principal, billID int64, method string) (*domain.Bill, error) {
	normalized, ok := domain.NormalizePaymentMethod(method)
	if !ok {
		return nil, domain.NewValidationError("payment_method", fmt.Sprintf("must be one of %v", domain.PaymentMethods))
	}
	if !actor.IsAdmin() {
		if err := actor.RequireResident(); err != nil {
			return nil, err
		}
	}
	bill, err := s.GetBill(ctx, actor, billID)
	if err != nil {
		return nil, err
	}

	today := s.clock.Today()
	if err := s.billsRepo.MarkPaid(ctx, billID, normalized, today); err != nil {
		return nil, err
	}
	bill.PaymentStatus = domain.BillPaid
	bill.PaymentDate = &today
	bill.PaymentMethod = &normalized

	s.logger.Info("Bill paid",
		zap.Int64("bill_id", billID),
		zap.String("flat_number", bill.FlatNumber),
		zap.String("payment_method", normalized),
		zap.Int64("paid_by", actor.UserID),
	)
	return bill, nil
}

func (s *billingService) Stats(ctx context.Context, actor domain.Principal, flat string) (*domain.BillStats, error) {
	scoped, err := scopeFlat(actor, flat)
	if err != nil {
		return nil, err
	}
	if _, err := s.SweepOverdue(ctx); err != nil {
		return nil, err
	}
	totals, err := s.billsRepo.StatusTotals(ctx, scoped)
	if err != nil {
		return nil, err
	}
	stats := domain.ComputeBillStats(totals)
	return &stats, nil
}

func (s *billingService) SweepOverdue(ctx context.Context) (int64, error) {
	n, err := s.billsRepo.MarkOverdue(ctx, s.clock.Today())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("Bills marked overdue", zap.Int64("count", n))
	}
	return n, nil
}

func (s *billingService) ExportBills(ctx context.Context, actor domain.Principal, filters repository.BillFilters) ([]byte, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	bills, err := s.ListBills(ctx, actor, filters)
	if err != nil {
		return nil, err
	}
	return generateBillsExcel(bills)
}
