package httpapi

import (
	"net/http"

	"societysync/internal/service"

	"go.uber.org/zap"
)

// defaultMaxBodyBytes 普通 JSON 请求体上限
const defaultMaxBodyBytes = 1 << 20

// AuthHandler 认证 Handler
type AuthHandler struct {
	authService service.AuthService
	userService service.UserService
	logger      *zap.Logger
}

// NewAuthHandler 创建认证 Handler
func NewAuthHandler(authService service.AuthService, userService service.UserService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		userService: userService,
		logger:      logger,
	}
}

// Login 用户登录
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if !decodeBody(w, r, defaultMaxBodyBytes, &req) {
		return
	}
	req.IPAddress = getClientIP(r)
	req.UserAgent = r.UserAgent()

	resp, err := h.authService.Login(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

// ChangePassword 修改密码（初始密码状态下也允许）
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	var req service.ChangePasswordRequest
	if !decodeBody(w, r, defaultMaxBodyBytes, &req) {
		return
	}
	resp, err := h.authService.ChangePassword(r.Context(), actor, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

// Me 当前用户资料
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, _ := principalFrom(r.Context())
	profile, err := h.userService.Profile(r.Context(), actor)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"profile":          profile,
		"password_changed": actor.PasswordChanged,
	}))
}
