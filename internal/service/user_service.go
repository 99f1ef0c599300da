package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"societysync/internal/auth"
	"societysync/internal/domain"
	"societysync/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// UserService 住户账号管理服务接口
type UserService interface {
	// 查询
	ListUsers(ctx context.Context, actor domain.Principal, filters repository.UserFilters) ([]*domain.User, error)
	GetUser(ctx context.Context, actor domain.Principal, userID int64) (*domain.Profile, error)
	Profile(ctx context.Context, actor domain.Principal) (*domain.Profile, error)
	ListOwners(ctx context.Context, actor domain.Principal) ([]repository.OwnerSummary, error)

	// 创建 / 删除
	CreateUser(ctx context.Context, actor domain.Principal, req domain.NewUserRequest) (*domain.NewUserResult, error)
	DeleteUser(ctx context.Context, actor domain.Principal, userID int64) error

	// EnsureAdmin 初始化管理员账号（已存在时不修改）
	EnsureAdmin(ctx context.Context, password, email string) (bool, error)
}

// userService 实现
type userService struct {
	usersRepo repository.UsersRepository
	occupancy OccupancyService
	layout    domain.FlatLayout
	clock     Clock
	logger    *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(usersRepo repository.UsersRepository, occupancy OccupancyService, layout domain.FlatLayout, clock Clock, logger *zap.Logger) UserService {
	return &userService{
		usersRepo: usersRepo,
		occupancy: occupancy,
		layout:    layout,
		clock:     clock,
		logger:    logger,
	}
}

// maxUsernameSuffix 用户名重名时追加数字的上限
const maxUsernameSuffix = 99

// AdminUsername 初始化管理员用户名
const AdminUsername = "admin"

func (s *userService) ListUsers(ctx context.Context, actor domain.Principal, filters repository.UserFilters) ([]*domain.User, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	if filters.Role != "" && !filters.Role.Valid() {
		return nil, domain.NewValidationError("role", "unknown role")
	}
	return s.usersRepo.ListUsers(ctx, filters)
}

func (s *userService) GetUser(ctx context.Context, actor domain.Principal, userID int64) (*domain.Profile, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	return s.buildProfile(ctx, userID)
}

func (s *userService) Profile(ctx context.Context, actor domain.Principal) (*domain.Profile, error) {
	return s.buildProfile(ctx, actor.UserID)
}

func (s *userService) ListOwners(ctx context.Context, actor domain.Principal) ([]repository.OwnerSummary, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	return s.usersRepo.ListOwners(ctx)
}

// buildProfile 用户资料，业主/租户附带角色信息，租户计算租约剩余天数
func (s *userService) buildProfile(ctx context.Context, userID int64) (*domain.Profile, error) {
	user, err := s.usersRepo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile := &domain.Profile{User: *user}

	switch user.Role {
	case domain.RoleOwner:
		owner, err := s.usersRepo.GetOwnerByUserID(ctx, userID)
		if err != nil && !domain.IsNotFound(err) {
			return nil, err
		}
		profile.Owner = owner
	case domain.RoleTenant:
		tenant, err := s.usersRepo.GetTenantByUserID(ctx, userID)
		if err != nil && !domain.IsNotFound(err) {
			return nil, err
		}
		profile.Tenant = tenant
		if tenant != nil && tenant.LeaseEndDate != nil {
			days := leaseRemainingDays(s.clock.Today(), *tenant.LeaseEndDate)
			profile.LeaseRemainingDays = &days
		}
	}
	return profile, nil
}

// leaseRemainingDays 按日历日计算，已到期时为负数
func leaseRemainingDays(today, end time.Time) int {
	ty, tm, td := today.Date()
	ey, em, ed := end.Date()
	a := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	b := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// CreateUser 创建业主或租户账号
func (s *userService) CreateUser(ctx context.Context, actor domain.Principal, req domain.NewUserRequest) (*domain.NewUserResult, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}

	// 1. 基本字段
	role := req.Role()
	if role != domain.RoleOwner && role != domain.RoleTenant {
		return nil, domain.NewValidationError("role", "must be owner or tenant")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.NewValidationError("name", "is required")
	}
	email := strings.TrimSpace(req.Email)
	if validate.Var(email, "required,email") != nil {
		return nil, domain.NewValidationError("email", "must be a valid email address")
	}
	phone, ok := domain.NormalizePhone(req.Phone)
	if !ok {
		return nil, domain.NewValidationError("phone", "must be a 10-digit number")
	}
	flat := domain.NormalizeFlat(req.FlatNumber)
	if !s.layout.Contains(flat) {
		return nil, domain.NewValidationError("flat_number", fmt.Sprintf("unknown flat %q", req.FlatNumber))
	}

	// 2. 角色相关校验
	switch f := req.Fields.(type) {
	case domain.OwnerFields:
		taken, err := s.usersRepo.FlatHasOwner(ctx, flat)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, domain.NewValidationError("flat_number", fmt.Sprintf("flat %s already has an owner", flat))
		}
	case domain.TenantFields:
		if err := s.validateTenant(ctx, flat, f); err != nil {
			return nil, err
		}
	}

	// 3. 用户名与初始密码
	username, err := s.uniqueUsername(ctx, role, name)
	if err != nil {
		return nil, err
	}
	password, err := auth.GeneratePassword(auth.InitialPasswordLength)
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	// 4. 写入 users + owners/tenants
	user := &domain.User{
		Username:        username,
		PasswordHash:    hash,
		Role:            role,
		FlatNumber:      &flat,
		Name:            name,
		Email:           email,
		Phone:           phone,
		PasswordChanged: false,
		InitialPassword: &password,
	}
	userID, err := s.usersRepo.CreateUser(ctx, user, req.Fields)
	if err != nil {
		return nil, err
	}
	s.occupancy.Invalidate(ctx)

	s.logger.Info("User created",
		zap.Int64("user_id", userID),
		zap.String("username", username),
		zap.String("role", string(role)),
		zap.String("flat_number", flat),
		zap.Int64("created_by", actor.UserID),
	)
	return &domain.NewUserResult{UserID: userID, Username: username, InitialPassword: password}, nil
}

func (s *userService) validateTenant(ctx context.Context, flat string, f domain.TenantFields) error {
	if f.RentAmount.IsNegative() {
		return domain.NewValidationError("rent_amount", "must not be negative")
	}
	if f.SecurityDeposit.IsNegative() {
		return domain.NewValidationError("security_deposit", "must not be negative")
	}
	if f.LeaseStartDate != nil && f.LeaseEndDate != nil && !f.LeaseEndDate.After(*f.LeaseStartDate) {
		return domain.NewValidationError("lease_end_date", "must be after lease_start_date")
	}
	rented, err := s.usersRepo.FlatHasTenant(ctx, flat)
	if err != nil {
		return err
	}
	if rented {
		return domain.NewValidationError("flat_number", fmt.Sprintf("flat %s already has a tenant", flat))
	}
	if f.OwnerID != nil {
		owner, err := s.usersRepo.GetOwner(ctx, *f.OwnerID)
		if err != nil {
			if domain.IsNotFound(err) {
				return domain.NewValidationError("owner_id", "owner does not exist")
			}
			return err
		}
		if owner.FlatNumber != flat {
			return domain.NewValidationError("owner_id", fmt.Sprintf("owner does not own flat %s", flat))
		}
	}
	return nil
}

// uniqueUsername 重名时依次追加 2、3…
func (s *userService) uniqueUsername(ctx context.Context, role domain.Role, name string) (string, error) {
	base := domain.GenerateUsername(role, name)
	candidate := base
	for i := 2; i <= maxUsernameSuffix+1; i++ {
		exists, err := s.usersRepo.UsernameExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", base, i)
	}
	return "", &domain.DuplicateError{Entity: "user", Reason: fmt.Sprintf("no free username for %q", base)}
}

// DeleteUser 删除住户及其关联数据
func (s *userService) DeleteUser(ctx context.Context, actor domain.Principal, userID int64) error {
	if err := actor.RequireAdmin(); err != nil {
		return err
	}
	if userID == actor.UserID {
		return domain.NewForbiddenError("cannot delete your own account")
	}
	target, err := s.usersRepo.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if target.Role == domain.RoleAdmin {
		return domain.NewForbiddenError("admin accounts cannot be deleted")
	}
	if err := s.usersRepo.DeleteUser(ctx, userID); err != nil {
		return err
	}
	s.occupancy.Invalidate(ctx)

	s.logger.Info("User deleted",
		zap.Int64("user_id", userID),
		zap.String("username", target.Username),
		zap.String("role", string(target.Role)),
		zap.Int64("deleted_by", actor.UserID),
	)
	return nil
}

func (s *userService) EnsureAdmin(ctx context.Context, password, email string) (bool, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, err
	}
	created, err := s.usersRepo.EnsureAdmin(ctx, &domain.User{
		Username:     AdminUsername,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		Name:         "Administrator",
		Email:        email,
	})
	if err != nil {
		return false, err
	}
	if created {
		s.logger.Info("Default admin account created", zap.String("username", AdminUsername))
	}
	return created, nil
}

// NewUserForm 创建住户的请求体，按 role 转换为 domain.NewUserRequest
type NewUserForm struct {
	Role               string          `json:"role" validate:"required,oneof=owner tenant"`
	Name               string          `json:"name" validate:"required,max=100"`
	Email              string          `json:"email" validate:"required,email"`
	Phone              string          `json:"phone" validate:"required"`
	FlatNumber         string          `json:"flat_number" validate:"required"`
	OwnershipStartDate string          `json:"ownership_start_date"`
	EmergencyContact   string          `json:"emergency_contact"`
	RentAmount         decimal.Decimal `json:"rent_amount"`
	LeaseStartDate     string          `json:"lease_start_date"`
	LeaseEndDate       string          `json:"lease_end_date"`
	SecurityDeposit    decimal.Decimal `json:"security_deposit"`
	OwnerID            *int64          `json:"owner_id"`
}

// Build 校验并解析日期（社区时区）
func (f NewUserForm) Build(loc *time.Location) (domain.NewUserRequest, error) {
	f.Role = strings.ToLower(strings.TrimSpace(f.Role))
	if err := validateRequest(f); err != nil {
		return domain.NewUserRequest{}, err
	}
	req := domain.NewUserRequest{
		Name:       f.Name,
		Email:      f.Email,
		Phone:      f.Phone,
		FlatNumber: f.FlatNumber,
	}
	switch domain.Role(f.Role) {
	case domain.RoleOwner:
		start, err := parseOptionalDate("ownership_start_date", f.OwnershipStartDate, loc)
		if err != nil {
			return req, err
		}
		req.Fields = domain.OwnerFields{OwnershipStartDate: start, EmergencyContact: strings.TrimSpace(f.EmergencyContact)}
	case domain.RoleTenant:
		start, err := parseOptionalDate("lease_start_date", f.LeaseStartDate, loc)
		if err != nil {
			return req, err
		}
		end, err := parseOptionalDate("lease_end_date", f.LeaseEndDate, loc)
		if err != nil {
			return req, err
		}
		req.Fields = domain.TenantFields{
			RentAmount:      f.RentAmount,
			LeaseStartDate:  start,
			LeaseEndDate:    end,
			SecurityDeposit: f.SecurityDeposit,
			OwnerID:         f.OwnerID,
		}
	}
	return req, nil
}
