package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"societysync/common/database"
	"societysync/internal/domain"

	"go.uber.org/zap"
)

// PostgresPollsRepository 投票Repository实现
type PostgresPollsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresPollsRepository 创建投票Repository
func NewPostgresPollsRepository(db *sql.DB, logger *zap.Logger) *PostgresPollsRepository {
	return &PostgresPollsRepository{db: db, logger: logger}
}

var _ PollsRepository = (*PostgresPollsRepository)(nil)

const pollSelect = `
	SELECT p.poll_id, p.title, COALESCE(p.description, ''), p.created_by, p.created_at, p.end_date, p.is_active,
	       COALESCE((SELECT SUM(vote_count) FROM poll_options po WHERE po.poll_id = p.poll_id), 0)
	FROM polls p`

func scanPoll(s rowScanner) (*domain.Poll, error) {
	var p domain.Poll
	var createdBy sql.NullInt64
	var endDate sql.NullTime
	if err := s.Scan(&p.PollID, &p.Title, &p.Description, &createdBy, &p.CreatedAt, &endDate, &p.IsActive, &p.TotalVotes); err != nil {
		return nil, err
	}
	p.CreatedBy = int64Ptr(createdBy)
	p.EndDate = timePtr(endDate)
	return &p, nil
}

// CreatePoll 创建投票及选项
func (r *PostgresPollsRepository) CreatePoll(ctx context.Context, p *domain.Poll, options []string) (int64, error) {
	var pollID int64
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO polls (title, description, created_by, end_date, is_active)
			VALUES ($1, $2, $3, $4, TRUE)
			RETURNING poll_id`,
			p.Title, nullString(p.Description), nullInt64Ptr(p.CreatedBy), nullTimePtr(p.EndDate),
		).Scan(&pollID)
		if err != nil {
			return fmt.Errorf("failed to insert poll: %w", err)
		}
		for _, text := range options {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO poll_options (poll_id, option_text, vote_count) VALUES ($1, $2, 0)`,
				pollID, text,
			); err != nil {
				return fmt.Errorf("failed to insert poll option: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return pollID, nil
}

// GetPoll 获取投票（不含选项）
func (r *PostgresPollsRepository) GetPoll(ctx context.Context, pollID int64) (*domain.Poll, error) {
	p, err := scanPoll(r.db.QueryRowContext(ctx, pollSelect+` WHERE p.poll_id = $1`, pollID))
	if err != nil {
		return nil, notFound(err, "poll", pollID)
	}
	return p, nil
}

// ListPolls 投票列表，按创建时间倒序
func (r *PostgresPollsRepository) ListPolls(ctx context.Context, activeOnly bool) ([]*domain.Poll, error) {
	query := pollSelect
	if activeOnly {
		query += ` WHERE p.is_active AND (p.end_date IS NULL OR p.end_date >= NOW())`
	}
	query += ` ORDER BY p.created_at DESC, p.poll_id DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list polls: %w", err)
	}
	defer rows.Close()

	var out []*domain.Poll
	for rows.Next() {
		p, err := scanPoll(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan poll: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListOptions 投票选项，按票数降序
func (r *PostgresPollsRepository) ListOptions(ctx context.Context, pollID int64) ([]domain.PollOption, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT option_id, poll_id, option_text, vote_count
		FROM poll_options WHERE poll_id = $1
		ORDER BY vote_count DESC, option_id`, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to list poll options: %w", err)
	}
	defer rows.Close()

	var out []domain.PollOption
	for rows.Next() {
		var o domain.PollOption
		if err := rows.Scan(&o.OptionID, &o.PollID, &o.OptionText, &o.VoteCount); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// SetActive 开启/关闭投票
func (r *PostgresPollsRepository) SetActive(ctx context.Context, pollID int64, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE polls SET is_active = $1 WHERE poll_id = $2`, active, pollID)
	if err != nil {
		return fmt.Errorf("failed to update poll: %w", err)
	}
	return requireAffected(res, "poll", pollID)
}

// DeletePoll 删除投票（选项与投票记录级联删除）
func (r *PostgresPollsRepository) DeletePoll(ctx context.Context, pollID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM polls WHERE poll_id = $1`, pollID)
	if err != nil {
		return fmt.Errorf("failed to delete poll: %w", err)
	}
	return requireAffected(res, "poll", pollID)
}

// CastVote 投票
func (r *PostgresPollsRepository) CastVote(ctx context.Context, pollID, optionID, userID int64) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO votes (poll_id, option_id, user_id) VALUES ($1, $2, $3)`,
			pollID, optionID, userID,
		); err != nil {
			if isUniqueViolation(err, "") {
				return domain.ErrDuplicateVote
			}
			return fmt.Errorf("failed to insert vote: %w", err)
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE poll_options SET vote_count = vote_count + 1
			WHERE option_id = $1 AND poll_id = $2`, optionID, pollID)
		if err != nil {
			return fmt.Errorf("failed to increment vote count: %w", err)
		}
		return requireAffected(res, "poll option", optionID)
	})
}

// VotedOption 用户已投选项
func (r *PostgresPollsRepository) VotedOption(ctx context.Context, pollID, userID int64) (*int64, error) {
	var optionID int64
	err := r.db.QueryRowContext(ctx, `
		SELECT option_id FROM votes WHERE poll_id = $1 AND user_id = $2`, pollID, userID,
	).Scan(&optionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vote: %w", err)
	}
	return &optionID, nil
}

// CountActive 仍可投票的投票数
func (r *PostgresPollsRepository) CountActive(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM polls
		WHERE is_active AND (end_date IS NULL OR end_date >= NOW())`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count polls: %w", err)
	}
	return n, nil
}
