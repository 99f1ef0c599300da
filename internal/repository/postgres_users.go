package repository

import (
	"context"
	"database/sql"
	"fmt"

	"societysync/common/database"
	"societysync/internal/domain"

	"go.uber.org/zap"
)

// PostgresUsersRepository 用户Repository实现
type PostgresUsersRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresUsersRepository 创建用户Repository
func NewPostgresUsersRepository(db *sql.DB, logger *zap.Logger) *PostgresUsersRepository {
	return &PostgresUsersRepository{db: db, logger: logger}
}

// 确保实现了接口
var _ UsersRepository = (*PostgresUsersRepository)(nil)

const userColumns = `
	user_id, username, password_hash, role, flat_number, name, email, phone,
	created_at, last_login, password_changed, initial_password`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (*domain.User, error) {
	var u domain.User
	var role string
	var flat, phone, initial sql.NullString
	var lastLogin sql.NullTime
	if err := s.Scan(
		&u.UserID, &u.Username, &u.PasswordHash, &role, &flat, &u.Name, &u.Email, &phone,
		&u.CreatedAt, &lastLogin, &u.PasswordChanged, &initial,
	); err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	u.FlatNumber = stringPtr(flat)
	u.Phone = phone.String
	u.LastLogin = timePtr(lastLogin)
	u.InitialPassword = stringPtr(initial)
	return &u, nil
}

// GetUser 按ID获取用户
func (r *PostgresUsersRepository) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = $1`, userID)
	u, err := scanUser(row)
	if err != nil {
		return nil, notFound(err, "user", userID)
	}
	return u, nil
}

// GetUserByUsername 按用户名获取用户
func (r *PostgresUsersRepository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	u, err := scanUser(row)
	if err != nil {
		return nil, notFound(err, "user", username)
	}
	return u, nil
}

// ListUsers 查询用户列表
func (r *PostgresUsersRepository) ListUsers(ctx context.Context, filters UserFilters) ([]*domain.User, error) {
	var w whereBuilder
	if filters.Role != "" {
		w.add("role = $%d", string(filters.Role))
	}
	if filters.Search != "" {
		w.add("(name ILIKE $%[1]d OR username ILIKE $%[1]d OR email ILIKE $%[1]d OR flat_number ILIKE $%[1]d)", "%"+filters.Search+"%")
	}
	query := `SELECT ` + userColumns + ` FROM users` + w.clause() + ` ORDER BY role, flat_number NULLS FIRST, name`

	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UsernameExists 用户名是否已被占用
func (r *PostgresUsersRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return exists, nil
}

// CreateUser 创建用户及其角色行
func (r *PostgresUsersRepository) CreateUser(ctx context.Context, user *domain.User, fields domain.RoleFields) (int64, error) {
	var userID int64
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO users (username, password_hash, role, flat_number, name, email, phone, password_changed, initial_password)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING user_id`,
			user.Username, user.PasswordHash, string(user.Role), nullStringPtr(user.FlatNumber),
			user.Name, user.Email, nullString(user.Phone), user.PasswordChanged, nullStringPtr(user.InitialPassword),
		).Scan(&userID)
		if err != nil {
			if isUniqueViolation(err, "username") {
				return &domain.DuplicateError{Entity: "user", Reason: "username already exists"}
			}
			if isUniqueViolation(err, "email") {
				return &domain.DuplicateError{Entity: "user", Reason: "email already exists"}
			}
			return fmt.Errorf("failed to insert user: %w", err)
		}

		switch f := fields.(type) {
		case domain.OwnerFields:
			_, err = tx.ExecContext(ctx, `
				INSERT INTO owners (user_id, flat_number, ownership_start_date, emergency_contact)
				VALUES ($1, $2, $3, $4)`,
				userID, user.Flat(), nullTimePtr(f.OwnershipStartDate), nullString(f.EmergencyContact),
			)
			if err != nil {
				return fmt.Errorf("failed to insert owner: %w", err)
			}
		case domain.TenantFields:
			_, err = tx.ExecContext(ctx, `
				INSERT INTO tenants (user_id, flat_number, rent_amount, lease_start_date, lease_end_date, security_deposit, owner_id)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				userID, user.Flat(), f.RentAmount, nullTimePtr(f.LeaseStartDate), nullTimePtr(f.LeaseEndDate),
				f.SecurityDeposit, nullInt64Ptr(f.OwnerID),
			)
			if err != nil {
				return fmt.Errorf("failed to insert tenant: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return userID, nil
}

// DeleteUser 删除用户
// 投票计数先回退，租户对该业主的引用置空，其余关联行一并删除
func (r *PostgresUsersRepository) DeleteUser(ctx context.Context, userID int64) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		stmts := []string{
			`UPDATE poll_options po SET vote_count = po.vote_count - 1
			 FROM votes v WHERE v.option_id = po.option_id AND v.user_id = $1 AND po.vote_count > 0`,
			`DELETE FROM votes WHERE user_id = $1`,
			`DELETE FROM notification_reads WHERE user_id = $1`,
			`DELETE FROM complaints WHERE user_id = $1`,
			`UPDATE tenants SET owner_id = NULL WHERE owner_id IN (SELECT owner_id FROM owners WHERE user_id = $1)`,
			`DELETE FROM owners WHERE user_id = $1`,
			`DELETE FROM tenants WHERE user_id = $1`,
		}
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt, userID); err != nil {
				return fmt.Errorf("failed to delete user %d: %w", userID, err)
			}
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE user_id = $1`, userID)
		if err != nil {
			return fmt.Errorf("failed to delete user %d: %w", userID, err)
		}
		return requireAffected(res, "user", userID)
	})
}

// EnsureAdmin 创建默认管理员（已存在时不做任何修改）
func (r *PostgresUsersRepository) EnsureAdmin(ctx context.Context, user *domain.User) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, role, flat_number, name, email, phone, password_changed)
		VALUES ($1, $2, 'admin', $3, $4, $5, $6, FALSE)
		ON CONFLICT (username) DO NOTHING`,
		user.Username, user.PasswordHash, nullStringPtr(user.FlatNumber), user.Name, user.Email, nullString(user.Phone),
	)
	if err != nil {
		return false, fmt.Errorf("failed to ensure admin: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateLastLogin 记录最后登录时间
func (r *PostgresUsersRepository) UpdateLastLogin(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_login = NOW() WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

// UpdatePassword 更新密码
func (r *PostgresUsersRepository) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET password_hash = $1, password_changed = TRUE, initial_password = NULL
		WHERE user_id = $2`, passwordHash, userID)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return requireAffected(res, "user", userID)
}

func scanOwner(s rowScanner) (*domain.Owner, error) {
	var o domain.Owner
	var start sql.NullTime
	var contact sql.NullString
	if err := s.Scan(&o.OwnerID, &o.UserID, &o.FlatNumber, &start, &contact, &o.CreatedAt); err != nil {
		return nil, err
	}
	o.OwnershipStartDate = timePtr(start)
	o.EmergencyContact = contact.String
	return &o, nil
}

// GetOwnerByUserID 获取用户的业主信息
func (r *PostgresUsersRepository) GetOwnerByUserID(ctx context.Context, userID int64) (*domain.Owner, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT owner_id, user_id, flat_number, ownership_start_date, emergency_contact, created_at
		FROM owners WHERE user_id = $1`, userID)
	o, err := scanOwner(row)
	if err != nil {
		return nil, notFound(err, "owner", userID)
	}
	return o, nil
}

// GetOwner 按业主ID获取
func (r *PostgresUsersRepository) GetOwner(ctx context.Context, ownerID int64) (*domain.Owner, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT owner_id, user_id, flat_number, ownership_start_date, emergency_contact, created_at
		FROM owners WHERE owner_id = $1`, ownerID)
	o, err := scanOwner(row)
	if err != nil {
		return nil, notFound(err, "owner", ownerID)
	}
	return o, nil
}

// GetTenantByUserID 获取用户的租户信息（附带业主姓名）
func (r *PostgresUsersRepository) GetTenantByUserID(ctx context.Context, userID int64) (*domain.Tenant, error) {
	var t domain.Tenant
	var start, end sql.NullTime
	var ownerID sql.NullInt64
	var ownerName sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT t.tenant_id, t.user_id, t.flat_number, t.rent_amount, t.lease_start_date, t.lease_end_date,
		       t.security_deposit, t.owner_id, ou.name, t.created_at
		FROM tenants t
		LEFT JOIN owners o ON o.owner_id = t.owner_id
		LEFT JOIN users ou ON ou.user_id = o.user_id
		WHERE t.user_id = $1`, userID,
	).Scan(&t.TenantID, &t.UserID, &t.FlatNumber, &t.RentAmount, &start, &end,
		&t.SecurityDeposit, &ownerID, &ownerName, &t.CreatedAt)
	if err != nil {
		return nil, notFound(err, "tenant", userID)
	}
	t.LeaseStartDate = timePtr(start)
	t.LeaseEndDate = timePtr(end)
	t.OwnerID = int64Ptr(ownerID)
	t.OwnerName = ownerName.String
	return &t, nil
}

// ListOwners 业主列表（创建租户时选择业主）
func (r *PostgresUsersRepository) ListOwners(ctx context.Context) ([]OwnerSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT o.owner_id, o.user_id, u.name, o.flat_number
		FROM owners o JOIN users u ON u.user_id = o.user_id
		ORDER BY o.flat_number, u.name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list owners: %w", err)
	}
	defer rows.Close()

	var out []OwnerSummary
	for rows.Next() {
		var o OwnerSummary
		if err := rows.Scan(&o.OwnerID, &o.UserID, &o.Name, &o.FlatNumber); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// FlatHasOwner 房号是否已有业主
func (r *PostgresUsersRepository) FlatHasOwner(ctx context.Context, flat string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM owners WHERE flat_number = $1)`, flat).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check flat owner: %w", err)
	}
	return exists, nil
}

// FlatHasTenant 房号是否已有租户
func (r *PostgresUsersRepository) FlatHasTenant(ctx context.Context, flat string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM tenants WHERE flat_number = $1)`, flat).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check flat tenant: %w", err)
	}
	return exists, nil
}

// CountByRole 按角色统计用户数
func (r *PostgresUsersRepository) CountByRole(ctx context.Context) (map[domain.Role]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.Role]int)
	for rows.Next() {
		var role string
		var n int
		if err := rows.Scan(&role, &n); err != nil {
			return nil, err
		}
		out[domain.Role(role)] = n
	}
	return out, rows.Err()
}

// ListResidentRows 占用解析输入
func (r *PostgresUsersRepository) ListResidentRows(ctx context.Context) ([]domain.ResidentRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.user_id, u.name, u.role, u.flat_number, COALESCE(ou.name, '')
		FROM users u
		LEFT JOIN tenants t ON t.user_id = u.user_id
		LEFT JOIN owners o ON o.owner_id = t.owner_id
		LEFT JOIN users ou ON ou.user_id = o.user_id
		WHERE u.flat_number IS NOT NULL AND u.role <> 'admin'
		ORDER BY u.flat_number, u.role, u.name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list residents: %w", err)
	}
	defer rows.Close()

	var out []domain.ResidentRow
	for rows.Next() {
		var rr domain.ResidentRow
		var role string
		if err := rows.Scan(&rr.UserID, &rr.Name, &role, &rr.FlatNumber, &rr.OwnerName); err != nil {
			return nil, err
		}
		rr.Role = domain.Role(role)
		out = append(out, rr)
	}
	return out, rows.Err()
}

// ListFlatContacts 房号住户联系方式
func (r *PostgresUsersRepository) ListFlatContacts(ctx context.Context, flat string) ([]Contact, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, name, email, COALESCE(phone, '')
		FROM users
		WHERE flat_number = $1 AND role <> 'admin'
		ORDER BY user_id`, flat)
	if err != nil {
		return nil, fmt.Errorf("failed to list flat contacts: %w", err)
	}
	defer rows.Close()

	var out []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.UserID, &c.Name, &c.Email, &c.Phone); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
