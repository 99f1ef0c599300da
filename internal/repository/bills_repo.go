package repository

import (
	"context"
	"time"

	"societysync/internal/domain"
)

// BillsRepository 账单Repository接口
type BillsRepository interface {
	CreateBill(ctx context.Context, bill *domain.Bill) (int64, error)
	// GenerateBulk 在单个事务中解析目标并为每个目标插入一张账单，全部成功或全部回滚
	GenerateBulk(ctx context.Context, template *domain.Bill, target domain.BulkTarget) (int, error)
	GetBill(ctx context.Context, billID int64) (*domain.Bill, error)
	ListBills(ctx context.Context, filters BillFilters) ([]*domain.Bill, error)
	UpdateBill(ctx context.Context, bill *domain.Bill) error
	DeleteBill(ctx context.Context, billID int64) error

	// MarkOverdue 将 due_date 早于 today 的 pending 账单置为 overdue，返回影响行数
	MarkOverdue(ctx context.Context, today time.Time) (int64, error)
	// MarkPaid 置为 paid 并记录付款日期与方式（不检查当前状态）
	MarkPaid(ctx context.Context, billID int64, method string, paidOn time.Time) error

	// StatusTotals 按状态汇总数量与金额，flat 为空表示全部
	StatusTotals(ctx context.Context, flat string) (map[domain.BillStatus]domain.StatusTotal, error)
}

// BillFilters 账单查询过滤器
type BillFilters struct {
	FlatNumber string
	Status     domain.BillStatus
	BillType   string
	Limit      int
}
