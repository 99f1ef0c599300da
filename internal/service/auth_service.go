package service

import (
	"context"
	"fmt"
	"time"

	"societysync/internal/auth"
	"societysync/internal/domain"
	"societysync/internal/repository"

	"go.uber.org/zap"
)

// AuthService 认证服务接口
type AuthService interface {
	// Login 校验用户名密码并签发会话令牌
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	// ChangePassword 修改密码并签发新令牌
	ChangePassword(ctx context.Context, actor domain.Principal, req ChangePasswordRequest) (*LoginResponse, error)
}

// authService 实现
type authService struct {
	usersRepo repository.UsersRepository
	tokens    *auth.TokenManager
	logger    *zap.Logger
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(usersRepo repository.UsersRepository, tokens *auth.TokenManager, logger *zap.Logger) AuthService {
	return &authService{
		usersRepo: usersRepo,
		tokens:    tokens,
		logger:    logger,
	}
}

// MinPasswordLength 新密码最小长度
const MinPasswordLength = 8

// LoginRequest 登录请求
type LoginRequest struct {
	Username  string `json:"username" validate:"required"`
	Password  string `json:"password" validate:"required"`
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	AccessToken     string       `json:"access_token"`
	ExpiresAt       time.Time    `json:"expires_at"`
	User            *domain.User `json:"user"`
	PasswordChanged bool         `json:"password_changed"`
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// Login 用户登录
func (s *authService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	// 1. 参数验证
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	// 2. 查询用户
	user, err := s.usersRepo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if domain.IsNotFound(err) {
			s.logger.Warn("User login failed: unknown username",
				zap.String("username", req.Username),
				zap.String("ip_address", req.IPAddress),
				zap.String("user_agent", req.UserAgent),
			)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	// 3. 校验密码
	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		s.logger.Warn("User login failed: invalid password",
			zap.Int64("user_id", user.UserID),
			zap.String("ip_address", req.IPAddress),
			zap.String("user_agent", req.UserAgent),
		)
		return nil, domain.ErrInvalidCredentials
	}

	// 4. 记录登录时间（失败不影响登录）
	if err := s.usersRepo.UpdateLastLogin(ctx, user.UserID); err != nil {
		s.logger.Warn("Failed to update last login", zap.Int64("user_id", user.UserID), zap.Error(err))
	}

	// 5. 签发令牌
	token, expiresAt, err := s.tokens.Issue(user.Principal())
	if err != nil {
		return nil, err
	}

	s.logger.Info("User logged in",
		zap.Int64("user_id", user.UserID),
		zap.String("role", string(user.Role)),
		zap.Bool("password_changed", user.PasswordChanged),
	)
	return &LoginResponse{
		AccessToken:     token,
		ExpiresAt:       expiresAt,
		User:            user,
		PasswordChanged: user.PasswordChanged,
	}, nil
}

// ChangePassword 修改密码
func (s *authService) ChangePassword(ctx context.Context, actor domain.Principal, req ChangePasswordRequest) (*LoginResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if len(req.NewPassword) < MinPasswordLength {
		return nil, domain.NewValidationError("new_password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}
	if req.NewPassword == req.CurrentPassword {
		return nil, domain.NewValidationError("new_password", "must differ from the current password")
	}

	user, err := s.usersRepo.GetUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(req.CurrentPassword, user.PasswordHash) {
		return nil, &domain.AuthError{Reason: "current password is incorrect"}
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return nil, err
	}
	if err := s.usersRepo.UpdatePassword(ctx, user.UserID, hash); err != nil {
		return nil, err
	}
	user.PasswordHash = hash
	user.PasswordChanged = true
	user.InitialPassword = nil

	token, expiresAt, err := s.tokens.Issue(user.Principal())
	if err != nil {
		return nil, err
	}
	s.logger.Info("Password changed", zap.Int64("user_id", user.UserID))
	return &LoginResponse{
		AccessToken:     token,
		ExpiresAt:       expiresAt,
		User:            user,
		PasswordChanged: true,
	}, nil
}
