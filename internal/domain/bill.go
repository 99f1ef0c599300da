package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BillStatus 账单状态
// 仅允许 pending→overdue（逾期扫描）与 pending/overdue→paid
type BillStatus string

const (
	BillPending BillStatus = "pending"
	BillPaid    BillStatus = "paid"
	BillOverdue BillStatus = "overdue"
)

// Valid 是否为已知状态
func (s BillStatus) Valid() bool {
	return s == BillPending || s == BillPaid || s == BillOverdue
}

// Bill 账单（对应 bills 表）
// UserID 仅在按住户批量生成时设置
type Bill struct {
	BillID        int64           `json:"bill_id"`
	FlatNumber    string          `json:"flat_number"`
	BillType      string          `json:"bill_type"`
	Amount        decimal.Decimal `json:"amount"`
	DueDate       time.Time       `json:"due_date"`
	PaymentStatus BillStatus      `json:"payment_status"`
	CreatedBy     *int64          `json:"created_by,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	PaymentDate   *time.Time      `json:"payment_date,omitempty"`
	PaymentMethod *string         `json:"payment_method,omitempty"`
	UserID        *int64          `json:"user_id,omitempty"`
}

// BulkTarget 批量账单目标
type BulkTarget string

const (
	// DistinctFlats 每个有业主的房号一张账单
	DistinctFlats BulkTarget = "distinct_flats"
	// DistinctResidents 每位业主/租户一张账单
	DistinctResidents BulkTarget = "distinct_residents"
)

// Valid 是否为已知目标
func (t BulkTarget) Valid() bool {
	return t == DistinctFlats || t == DistinctResidents
}

// BillTarget 批量生成时的一行目标
type BillTarget struct {
	FlatNumber string
	UserID     *int64
}

// PaymentMethods 支持的付款方式（存储时使用此处的写法）
var PaymentMethods = []string{"Online Banking", "UPI", "Credit Card", "Debit Card", "Cash", "Admin Override"}

// NormalizePaymentMethod 忽略大小写匹配付款方式，空格、连字符与下划线视为相同
func NormalizePaymentMethod(method string) (string, bool) {
	key := func(s string) string {
		s = strings.ToLower(strings.TrimSpace(s))
		return strings.NewReplacer(" ", "", "-", "", "_", "").Replace(s)
	}
	m := key(method)
	if m == "" {
		return "", false
	}
	for _, pm := range PaymentMethods {
		if key(pm) == m {
			return pm, true
		}
	}
	return "", false
}

// BillTypes 支持的账单类型
var BillTypes = []string{"Maintenance", "Electricity", "Water", "Parking", "Security", "Other"}

// NormalizeBillType 忽略大小写匹配账单类型，返回标准写法
func NormalizeBillType(billType string) (string, bool) {
	t := strings.TrimSpace(billType)
	for _, bt := range BillTypes {
		if strings.EqualFold(bt, t) {
			return bt, true
		}
	}
	return "", false
}

// StatusTotal 某一状态的数量与金额
type StatusTotal struct {
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// BillStats 账单汇总统计
type BillStats struct {
	TotalBills      int                        `json:"total_bills"`
	TotalAmount     decimal.Decimal            `json:"total_amount"`
	CollectedAmount decimal.Decimal            `json:"collected_amount"`
	PendingAmount   decimal.Decimal            `json:"pending_amount"`
	OverdueAmount   decimal.Decimal            `json:"overdue_amount"`
	ByStatus        map[BillStatus]StatusTotal `json:"by_status"`
	CollectionRate  decimal.Decimal            `json:"collection_rate"`
}

var hundred = decimal.NewFromInt(100)

// ComputeBillStats 由各状态汇总计算统计；总额为 0 时收缴率为 0
func ComputeBillStats(byStatus map[BillStatus]StatusTotal) BillStats {
	stats := BillStats{
		TotalAmount:     decimal.Zero,
		CollectedAmount: decimal.Zero,
		PendingAmount:   decimal.Zero,
		OverdueAmount:   decimal.Zero,
		ByStatus:        make(map[BillStatus]StatusTotal, 3),
		CollectionRate:  decimal.Zero,
	}
	for _, s := range []BillStatus{BillPending, BillPaid, BillOverdue} {
		t, ok := byStatus[s]
		if !ok {
			t = StatusTotal{Amount: decimal.Zero}
		}
		stats.ByStatus[s] = t
		stats.TotalBills += t.Count
		stats.TotalAmount = stats.TotalAmount.Add(t.Amount)
	}
	stats.CollectedAmount = stats.ByStatus[BillPaid].Amount
	stats.PendingAmount = stats.ByStatus[BillPending].Amount
	stats.OverdueAmount = stats.ByStatus[BillOverdue].Amount
	if stats.TotalAmount.IsPositive() {
		stats.CollectionRate = stats.CollectedAmount.Div(stats.TotalAmount).Mul(hundred).Round(2)
	}
	return stats
}
