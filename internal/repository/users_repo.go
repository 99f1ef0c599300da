package repository

import (
	"context"

	"societysync/internal/domain"
)

// UsersRepository 用户/业主/租户 Repository 接口
type UsersRepository interface {
	GetUser(ctx context.Context, userID int64) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	ListUsers(ctx context.Context, filters UserFilters) ([]*domain.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)

	// CreateUser 在同一事务中写入 users 与 owners/tenants 行
	CreateUser(ctx context.Context, user *domain.User, fields domain.RoleFields) (int64, error)
	// DeleteUser 在同一事务中删除用户及其关联数据，并回退其投票计数
	DeleteUser(ctx context.Context, userID int64) error
	// EnsureAdmin 不存在同名用户时创建管理员
	EnsureAdmin(ctx context.Context, user *domain.User) (bool, error)

	UpdateLastLogin(ctx context.Context, userID int64) error
	// UpdatePassword 写入新哈希，标记已修改并清除初始密码
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error

	GetOwnerByUserID(ctx context.Context, userID int64) (*domain.Owner, error)
	GetOwner(ctx context.Context, ownerID int64) (*domain.Owner, error)
	GetTenantByUserID(ctx context.Context, userID int64) (*domain.Tenant, error)
	ListOwners(ctx context.Context) ([]OwnerSummary, error)
	FlatHasOwner(ctx context.Context, flat string) (bool, error)
	FlatHasTenant(ctx context.Context, flat string) (bool, error)
	CountByRole(ctx context.Context) (map[domain.Role]int, error)

	// ListResidentRows 占用解析输入：非管理员且有房号的用户，租户附带其业主姓名
	ListResidentRows(ctx context.Context) ([]domain.ResidentRow, error)
	// ListFlatContacts 某房号住户的联系方式（通知外发使用）
	ListFlatContacts(ctx context.Context, flat string) ([]Contact, error)
}

// UserFilters 用户查询过滤器
type UserFilters struct {
	Role   domain.Role
	Search string // 模糊搜索：name, username, email, flat_number
}

// OwnerSummary 业主下拉选项
type OwnerSummary struct {
	OwnerID    int64  `json:"owner_id"`
	UserID     int64  `json:"user_id"`
	Name       string `json:"name"`
	FlatNumber string `json:"flat_number"`
}

// Contact 住户联系方式
type Contact struct {
	UserID int64
	Name   string
	Email  string
	Phone  string
}
