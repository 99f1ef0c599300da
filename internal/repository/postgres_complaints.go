package repository

import (
	"context"
	"database/sql"
	"fmt"

	"societysync/internal/domain"

	"go.uber.org/zap"
)

// PostgresComplaintsRepository 投诉Repository实现
type PostgresComplaintsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresComplaintsRepository 创建投诉Repository
func NewPostgresComplaintsRepository(db *sql.DB, logger *zap.Logger) *PostgresComplaintsRepository {
	return &PostgresComplaintsRepository{db: db, logger: logger}
}

var _ ComplaintsRepository = (*PostgresComplaintsRepository)(nil)

const complaintSelect = `
	SELECT c.complaint_id, c.user_id, u.name, c.flat_number, c.title, c.description, c.category,
	       c.priority, c.status, c.created_at, c.updated_at, c.resolved_at, c.admin_response
	FROM complaints c
	JOIN users u ON u.user_id = c.user_id`

func scanComplaint(s rowScanner) (*domain.Complaint, error) {
	var c domain.Complaint
	var priority, status string
	var resolvedAt sql.NullTime
	var response sql.NullString
	if err := s.Scan(
		&c.ComplaintID, &c.UserID, &c.UserName, &c.FlatNumber, &c.Title, &c.Description, &c.Category,
		&priority, &status, &c.CreatedAt, &c.UpdatedAt, &resolvedAt, &response,
	); err != nil {
		return nil, err
	}
	c.Priority = domain.Priority(priority)
	c.Status = domain.ComplaintStatus(status)
	c.ResolvedAt = timePtr(resolvedAt)
	c.AdminResponse = stringPtr(response)
	return &c, nil
}

// CreateComplaint 创建投诉（status=open）
func (r *PostgresComplaintsRepository) CreateComplaint(ctx context.Context, c *domain.Complaint) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO complaints (user_id, flat_number, title, description, category, priority, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'open')
		RETURNING complaint_id`,
		c.UserID, c.FlatNumber, c.Title, c.Description, c.Category, string(c.Priority),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create complaint: %w", err)
	}
	return id, nil
}

// GetComplaint 获取投诉
func (r *PostgresComplaintsRepository) GetComplaint(ctx context.Context, complaintID int64) (*domain.Complaint, error) {
	row := r.db.QueryRowContext(ctx, complaintSelect+` WHERE c.complaint_id = $1`, complaintID)
	c, err := scanComplaint(row)
	if err != nil {
		return nil, notFound(err, "complaint", complaintID)
	}
	return c, nil
}

// ListComplaints 查询投诉，按创建时间倒序
func (r *PostgresComplaintsRepository) ListComplaints(ctx context.Context, filters ComplaintFilters) ([]*domain.Complaint, error) {
	var w whereBuilder
	if filters.UserID > 0 {
		w.add("c.user_id = $%d", filters.UserID)
	}
	if filters.FlatNumber != "" {
		w.add("c.flat_number = $%d", filters.FlatNumber)
	}
	if filters.Status != "" {
		w.add("c.status = $%d", string(filters.Status))
	}
	if filters.Priority != "" {
		w.add("c.priority = $%d", string(filters.Priority))
	}
	query := complaintSelect + w.clause() + ` ORDER BY c.created_at DESC, c.complaint_id DESC`
	if filters.Limit > 0 {
		query += " LIMIT " + w.next()
		w.args = append(w.args, filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list complaints: %w", err)
	}
	defer rows.Close()

	var out []*domain.Complaint
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan complaint: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateStatus 更新投诉状态
func (r *PostgresComplaintsRepository) UpdateStatus(ctx context.Context, complaintID int64, status domain.ComplaintStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE complaints SET
			status = $1,
			updated_at = NOW(),
			resolved_at = CASE
				WHEN $1::VARCHAR = 'resolved' THEN NOW()
				WHEN $1::VARCHAR IN ('open', 'in_progress') THEN NULL
				ELSE resolved_at
			END
		WHERE complaint_id = $2`, string(status), complaintID)
	if err != nil {
		return fmt.Errorf("failed to update complaint status: %w", err)
	}
	return requireAffected(res, "complaint", complaintID)
}

// SetResponse 记录管理员回复
func (r *PostgresComplaintsRepository) SetResponse(ctx context.Context, complaintID int64, response string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE complaints SET admin_response = $1, updated_at = NOW()
		WHERE complaint_id = $2`, response, complaintID)
	if err != nil {
		return fmt.Errorf("failed to update complaint response: %w", err)
	}
	return requireAffected(res, "complaint", complaintID)
}

// DeleteComplaint 删除投诉
func (r *PostgresComplaintsRepository) DeleteComplaint(ctx context.Context, complaintID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM complaints WHERE complaint_id = $1`, complaintID)
	if err != nil {
		return fmt.Errorf("failed to delete complaint: %w", err)
	}
	return requireAffected(res, "complaint", complaintID)
}

// CountByStatus 按状态统计，flat 为空表示全部
func (r *PostgresComplaintsRepository) CountByStatus(ctx context.Context, flat string) (map[domain.ComplaintStatus]int, error) {
	var w whereBuilder
	if flat != "" {
		w.add("flat_number = $%d", flat)
	}
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM complaints`+w.clause()+` GROUP BY status`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count complaints: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.ComplaintStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[domain.ComplaintStatus(status)] = n
	}
	return out, rows.Err()
}

// CountByPriority 按优先级统计
func (r *PostgresComplaintsRepository) CountByPriority(ctx context.Context) (map[domain.Priority]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT priority, COUNT(*) FROM complaints GROUP BY priority`)
	if err != nil {
		return nil, fmt.Errorf("failed to count complaints: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.Priority]int)
	for rows.Next() {
		var p string
		var n int
		if err := rows.Scan(&p, &n); err != nil {
			return nil, err
		}
		out[domain.Priority(p)] = n
	}
	return out, rows.Err()
}
