package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"societysync/common/database"
	"societysync/internal/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PostgresBillsRepository 账单Repository实现
type PostgresBillsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresBillsRepository 创建账单Repository
func NewPostgresBillsRepository(db *sql.DB, logger *zap.Logger) *PostgresBillsRepository {
	return &PostgresBillsRepository{db: db, logger: logger}
}

var _ BillsRepository = (*PostgresBillsRepository)(nil)

const billColumns = `
	bill_id, flat_number, bill_type, amount, due_date, payment_status,
	created_by, created_at, payment_date, payment_method, user_id`

const insertBillSQL = `
	INSERT INTO bills (flat_number, bill_type, amount, due_date, payment_status, created_by, user_id)
	VALUES ($1, $2, $3, $4, 'pending', $5, $6)`

func scanBill(s rowScanner) (*domain.Bill, error) {
	var b domain.Bill
	var status string
	var createdBy, userID sql.NullInt64
	var paymentDate sql.NullTime
	var method sql.NullString
	if err := s.Scan(
		&b.BillID, &b.FlatNumber, &b.BillType, &b.Amount, &b.DueDate, &status,
		&createdBy, &b.CreatedAt, &paymentDate, &method, &userID,
	); err != nil {
		return nil, err
	}
	b.PaymentStatus = domain.BillStatus(status)
	b.CreatedBy = int64Ptr(createdBy)
	b.PaymentDate = timePtr(paymentDate)
	b.PaymentMethod = stringPtr(method)
	b.UserID = int64Ptr(userID)
	return &b, nil
}

// CreateBill 创建 pending 账单
func (r *PostgresBillsRepository) CreateBill(ctx context.Context, bill *domain.Bill) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, insertBillSQL+` RETURNING bill_id`,
		bill.FlatNumber, bill.BillType, bill.Amount, dateOnly(bill.DueDate),
		nullInt64Ptr(bill.CreatedBy), nullInt64Ptr(bill.UserID),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create bill: %w", err)
	}
	return id, nil
}

func (r *PostgresBillsRepository) listTargets(ctx context.Context, tx *sql.Tx, target domain.BulkTarget) ([]domain.BillTarget, error) {
	var query string
	switch target {
	case domain.DistinctFlats:
		query = `SELECT DISTINCT flat_number, NULL::INTEGER FROM owners ORDER BY flat_number`
	case domain.DistinctResidents:
		query = `SELECT flat_number, user_id FROM users
			WHERE role IN ('owner', 'tenant') AND flat_number IS NOT NULL
			ORDER BY flat_number, user_id`
	default:
		return nil, domain.NewValidationError("target", fmt.Sprintf("unknown bulk target %q", target))
	}

	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list bill targets: %w", err)
	}
	defer rows.Close()

	var targets []domain.BillTarget
	for rows.Next() {
		var t domain.BillTarget
		var userID sql.NullInt64
		if err := rows.Scan(&t.FlatNumber, &userID); err != nil {
			return nil, err
		}
		t.UserID = int64Ptr(userID)
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// GenerateBulk 批量生成账单
func (r *PostgresBillsRepository) GenerateBulk(ctx context.Context, template *domain.Bill, target domain.BulkTarget) (int, error) {
	created := 0
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		targets, err := r.listTargets(ctx, tx, target)
		if err != nil {
			return err
		}
		due := dateOnly(template.DueDate)
		for _, t := range targets {
			if _, err := tx.ExecContext(ctx, insertBillSQL,
				t.FlatNumber, template.BillType, template.Amount, due,
				nullInt64Ptr(template.CreatedBy), nullInt64Ptr(t.UserID),
			); err != nil {
				return fmt.Errorf("failed to create bill for flat %s: %w", t.FlatNumber, err)
			}
		}
		created = len(targets)
		return nil
	})
	if err != nil {
		return 0, err
	}
	r.logger.Info("Bulk bills generated",
		zap.String("target", string(target)),
		zap.String("bill_type", template.BillType),
		zap.Int("count", created),
	)
	return created, nil
}

// GetBill 获取账单
func (r *PostgresBillsRepository) GetBill(ctx context.Context, billID int64) (*domain.Bill, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+billColumns+` FROM bills WHERE bill_id = $1`, billID)
	b, err := scanBill(row)
	if err != nil {
		return nil, notFound(err, "bill", billID)
	}
	return b, nil
}

// ListBills 查询账单，按到期日倒序
func (r *PostgresBillsRepository) ListBills(ctx context.Context, filters BillFilters) ([]*domain.Bill, error) {
	var w whereBuilder
	if filters.FlatNumber != "" {
		w.add("flat_number = $%d", filters.FlatNumber)
	}
	if filters.Status != "" {
		w.add("payment_status = $%d", string(filters.Status))
	}
	if filters.BillType != "" {
		w.add("bill_type = $%d", filters.BillType)
	}
	query := `SELECT ` + billColumns + ` FROM bills` + w.clause() + ` ORDER BY due_date DESC, bill_id DESC`
	if filters.Limit > 0 {
		query += " LIMIT " + w.next()
		w.args = append(w.args, filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	defer rows.Close()

	var bills []*domain.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		bills = append(bills, b)
	}
	return bills, rows.Err()
}

// UpdateBill 修改账单类型、金额与到期日
func (r *PostgresBillsRepository) UpdateBill(ctx context.Context, bill *domain.Bill) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE bills SET bill_type = $1, amount = $2, due_date = $3
		WHERE bill_id = $4`,
		bill.BillType, bill.Amount, dateOnly(bill.DueDate), bill.BillID,
	)
	if err != nil {
		return fmt.Errorf("failed to update bill: %w", err)
	}
	return requireAffected(res, "bill", bill.BillID)
}

// DeleteBill 删除账单
func (r *PostgresBillsRepository) DeleteBill(ctx context.Context, billID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bills WHERE bill_id = $1`, billID)
	if err != nil {
		return fmt.Errorf("failed to delete bill: %w", err)
	}
	return requireAffected(res, "bill", billID)
}

// MarkOverdue 逾期扫描
func (r *PostgresBillsRepository) MarkOverdue(ctx context.Context, today time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE bills SET payment_status = 'overdue'
		WHERE payment_status = 'pending' AND due_date < $1`, dateOnly(today))
	if err != nil {
		return 0, fmt.Errorf("failed to mark overdue bills: %w", err)
	}
	return res.RowsAffected()
}

// MarkPaid 标记已付款
func (r *PostgresBillsRepository) MarkPaid(ctx context.Context, billID int64, method string, paidOn time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE bills SET payment_status = 'paid', payment_date = $1, payment_method = $2
		WHERE bill_id = $3`, dateOnly(paidOn), method, billID)
	if err != nil {
		return fmt.Errorf("failed to mark bill paid: %w", err)
	}
	return requireAffected(res, "bill", billID)
}

// StatusTotals 按状态汇总
func (r *PostgresBillsRepository) StatusTotals(ctx context.Context, flat string) (map[domain.BillStatus]domain.StatusTotal, error) {
	var w whereBuilder
	if flat != "" {
		w.add("flat_number = $%d", flat)
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT payment_status, COUNT(*), COALESCE(SUM(amount), 0)
		FROM bills`+w.clause()+`
		GROUP BY payment_status`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate bills: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.BillStatus]domain.StatusTotal)
	for rows.Next() {
		var status string
		var t domain.StatusTotal
		var sum decimal.Decimal
		if err := rows.Scan(&status, &t.Count, &sum); err != nil {
			return nil, err
		}
		t.Amount = sum
		out[domain.BillStatus(status)] = t
	}
	return out, rows.Err()
}
