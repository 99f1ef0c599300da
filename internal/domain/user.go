package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Role 用户角色
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleOwner  Role = "owner"
	RoleTenant Role = "tenant"
)

// Valid 是否为已知角色
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleOwner || r == RoleTenant
}

// Title 首字母大写形式，用于展示（"Owner"）
func (r Role) Title() string {
	s := string(r)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// User 用户（对应 users 表）
type User struct {
	UserID          int64      `json:"user_id"`
	Username        string     `json:"username"`
	PasswordHash    string     `json:"-"`
	Role            Role       `json:"role"`
	FlatNumber      *string    `json:"flat_number,omitempty"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	LastLogin       *time.Time `json:"last_login,omitempty"`
	PasswordChanged bool       `json:"password_changed"`
	InitialPassword *string    `json:"-"`
}

// Flat 返回住户所在房号，无房号时为空串
func (u *User) Flat() string {
	if u.FlatNumber == nil {
		return ""
	}
	return *u.FlatNumber
}

// Principal 返回该用户对应的请求主体
func (u *User) Principal() Principal {
	return Principal{
		UserID:          u.UserID,
		Username:        u.Username,
		Role:            u.Role,
		FlatNumber:      u.Flat(),
		Name:            u.Name,
		PasswordChanged: u.PasswordChanged,
	}
}

// Owner 业主信息（对应 owners 表，与 users 1:1）
type Owner struct {
	OwnerID            int64      `json:"owner_id"`
	UserID             int64      `json:"user_id"`
	FlatNumber         string     `json:"flat_number"`
	OwnershipStartDate *time.Time `json:"ownership_start_date,omitempty"`
	EmergencyContact   string     `json:"emergency_contact,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// Tenant 租户信息（对应 tenants 表，与 users 1:1）
// OwnerID 为弱引用：业主删除后置空
type Tenant struct {
	TenantID        int64           `json:"tenant_id"`
	UserID          int64           `json:"user_id"`
	FlatNumber      string          `json:"flat_number"`
	RentAmount      decimal.Decimal `json:"rent_amount"`
	LeaseStartDate  *time.Time      `json:"lease_start_date,omitempty"`
	LeaseEndDate    *time.Time      `json:"lease_end_date,omitempty"`
	SecurityDeposit decimal.Decimal `json:"security_deposit"`
	OwnerID         *int64          `json:"owner_id,omitempty"`
	OwnerName       string          `json:"owner_name,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Principal 当前请求的已认证用户，显式传入每个服务调用
type Principal struct {
	UserID          int64  `json:"user_id"`
	Username        string `json:"username"`
	Role            Role   `json:"role"`
	FlatNumber      string `json:"flat_number,omitempty"`
	Name            string `json:"name"`
	PasswordChanged bool   `json:"password_changed"`
}

// IsAdmin 是否管理员
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// IsResident 是否业主或租户
func (p Principal) IsResident() bool { return p.Role == RoleOwner || p.Role == RoleTenant }

// RequireAdmin 非管理员时返回 AuthError
func (p Principal) RequireAdmin() error {
	if !p.IsAdmin() {
		return NewForbiddenError("admin role required")
	}
	return nil
}

// RequireResident 非住户（或住户无房号）时返回 AuthError
func (p Principal) RequireResident() error {
	if !p.IsResident() || p.FlatNumber == "" {
		return NewForbiddenError("resident role required")
	}
	return nil
}

// RoleFields 按角色区分的附加字段（OwnerFields | TenantFields）
type RoleFields interface {
	Role() Role
}

// OwnerFields 创建业主时的附加字段
type OwnerFields struct {
	OwnershipStartDate *time.Time `json:"ownership_start_date"`
	EmergencyContact   string     `json:"emergency_contact"`
}

func (OwnerFields) Role() Role { return RoleOwner }

// TenantFields 创建租户时的附加字段
type TenantFields struct {
	RentAmount      decimal.Decimal `json:"rent_amount"`
	LeaseStartDate  *time.Time      `json:"lease_start_date"`
	LeaseEndDate    *time.Time      `json:"lease_end_date"`
	SecurityDeposit decimal.Decimal `json:"security_deposit"`
	OwnerID         *int64          `json:"owner_id"`
}

func (TenantFields) Role() Role { return RoleTenant }

// NewUserRequest 管理员创建住户账号
type NewUserRequest struct {
	Name       string
	Email      string
	Phone      string
	FlatNumber string
	Fields     RoleFields
}

// Role 由附加字段类型决定
func (r NewUserRequest) Role() Role {
	if r.Fields == nil {
		return ""
	}
	return r.Fields.Role()
}

// NewUserResult 创建结果，InitialPassword 仅在此返回一次
type NewUserResult struct {
	UserID          int64  `json:"user_id"`
	Username        string `json:"username"`
	InitialPassword string `json:"initial_password"`
}

// GenerateUsername 生成用户名：角色首字母 + 小写姓名（去空格）
func GenerateUsername(role Role, name string) string {
	base := strings.ToLower(strings.Join(strings.Fields(name), ""))
	if role == "" {
		return base
	}
	return string(role)[:1] + base
}
