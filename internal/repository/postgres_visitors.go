package repository

import (
	"context"
	"database/sql"
	"fmt"

	"societysync/common/database"
	"societysync/internal/domain"

	"go.uber.org/zap"
)

// PostgresVisitorsRepository 访客Repository实现
type PostgresVisitorsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresVisitorsRepository 创建访客Repository
func NewPostgresVisitorsRepository(db *sql.DB, logger *zap.Logger) *PostgresVisitorsRepository {
	return &PostgresVisitorsRepository{db: db, logger: logger}
}

var _ VisitorsRepository = (*PostgresVisitorsRepository)(nil)

const visitorColumns = `
	visitor_id, flat_number, visitor_name, visitor_phone, purpose, entry_time, exit_time,
	vehicle_number, logged_by, status, photo IS NOT NULL`

func scanVisitor(s rowScanner) (*domain.Visitor, error) {
	var v domain.Visitor
	var phone, purpose, vehicle sql.NullString
	var exit sql.NullTime
	var loggedBy sql.NullInt64
	var status string
	if err := s.Scan(
		&v.VisitorID, &v.FlatNumber, &v.VisitorName, &phone, &purpose, &v.EntryTime, &exit,
		&vehicle, &loggedBy, &status, &v.HasPhoto,
	); err != nil {
		return nil, err
	}
	v.VisitorPhone = phone.String
	v.Purpose = purpose.String
	v.VehicleNumber = vehicle.String
	v.ExitTime = timePtr(exit)
	v.LoggedBy = int64Ptr(loggedBy)
	v.Status = domain.VisitorStatus(status)
	return &v, nil
}

// CreateVisitor 登记访客并创建通知
func (r *PostgresVisitorsRepository) CreateVisitor(ctx context.Context, v *domain.Visitor, photo *domain.VisitorPhoto, n *domain.Notification) (int64, int64, error) {
	var visitorID, notificationID int64
	var photoData any
	var photoType sql.NullString
	if photo != nil && len(photo.Data) > 0 {
		photoData = photo.Data
		photoType = nullString(photo.ContentType)
	}

	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO visitors (flat_number, visitor_name, visitor_phone, purpose, vehicle_number,
			                      logged_by, status, entry_time, photo, photo_content_type)
			VALUES ($1, $2, $3, $4, $5, $6, 'in', NOW(), $7, $8)
			RETURNING visitor_id, entry_time`,
			v.FlatNumber, v.VisitorName, nullString(v.VisitorPhone), nullString(v.Purpose), nullString(v.VehicleNumber),
			nullInt64Ptr(v.LoggedBy), photoData, photoType,
		).Scan(&visitorID, &v.EntryTime)
		if err != nil {
			return fmt.Errorf("failed to insert visitor: %w", err)
		}
		if n == nil {
			return nil
		}
		notificationID, err = insertNotification(ctx, tx, n)
		return err
	})
	if err != nil {
		return 0, 0, err
	}
	v.VisitorID = visitorID
	v.Status = domain.VisitorIn
	v.HasPhoto = photoData != nil
	return visitorID, notificationID, nil
}

// GetVisitor 获取访客记录
func (r *PostgresVisitorsRepository) GetVisitor(ctx context.Context, visitorID int64) (*domain.Visitor, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+visitorColumns+` FROM visitors WHERE visitor_id = $1`, visitorID)
	v, err := scanVisitor(row)
	if err != nil {
		return nil, notFound(err, "visitor", visitorID)
	}
	return v, nil
}

// ListVisitors 查询访客，按进入时间倒序
func (r *PostgresVisitorsRepository) ListVisitors(ctx context.Context, filters domain.VisitorFilter) ([]*domain.Visitor, error) {
	var w whereBuilder
	if filters.FlatNumber != "" {
		w.add("flat_number = $%d", filters.FlatNumber)
	}
	if filters.Status != "" {
		w.add("status = $%d", string(filters.Status))
	}
	if filters.Date != nil {
		day := dateOnly(*filters.Date)
		w.add("entry_time >= $%d", day)
		w.add("entry_time < $%d", day.AddDate(0, 0, 1))
	}
	query := `SELECT ` + visitorColumns + ` FROM visitors` + w.clause() + ` ORDER BY entry_time DESC, visitor_id DESC`
	if filters.Limit > 0 {
		query += " LIMIT " + w.next()
		w.args = append(w.args, filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list visitors: %w", err)
	}
	defer rows.Close()

	var out []*domain.Visitor
	for rows.Next() {
		v, err := scanVisitor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan visitor: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// MarkExit 登记离开
func (r *PostgresVisitorsRepository) MarkExit(ctx context.Context, visitorID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE visitors SET status = 'out', exit_time = NOW()
		WHERE visitor_id = $1 AND status = 'in'`, visitorID)
	if err != nil {
		return false, fmt.Errorf("failed to mark visitor exit: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteVisitor 删除访客记录（不保留审计）
func (r *PostgresVisitorsRepository) DeleteVisitor(ctx context.Context, visitorID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM visitors WHERE visitor_id = $1`, visitorID)
	if err != nil {
		return fmt.Errorf("failed to delete visitor: %w", err)
	}
	return requireAffected(res, "visitor", visitorID)
}

// GetPhoto 读取访客照片
func (r *PostgresVisitorsRepository) GetPhoto(ctx context.Context, visitorID int64) (*domain.VisitorPhoto, error) {
	var p domain.VisitorPhoto
	var contentType sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT photo, photo_content_type FROM visitors
		WHERE visitor_id = $1 AND photo IS NOT NULL`, visitorID,
	).Scan(&p.Data, &contentType)
	if err != nil {
		return nil, notFound(err, "visitor photo", visitorID)
	}
	p.ContentType = contentType.String
	if p.ContentType == "" {
		p.ContentType = "application/octet-stream"
	}
	return &p, nil
}

// CountInside 当前在场访客数，flat 为空表示全部
func (r *PostgresVisitorsRepository) CountInside(ctx context.Context, flat string) (int, error) {
	var w whereBuilder
	w.addRaw("status = 'in'")
	if flat != "" {
		w.add("flat_number = $%d", flat)
	}
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM visitors`+w.clause(), w.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count visitors: %w", err)
	}
	return n, nil
}
