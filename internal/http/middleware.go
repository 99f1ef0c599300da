package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"societysync/internal/auth"
	"societysync/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

type contextKey string

const (
	contextKeyPrincipal = contextKey("principal")
	contextKeyRequestID = contextKey("requestID")

	// RequestIDHeader 请求追踪头
	RequestIDHeader = "X-Request-Id"
)

// principalFrom 读取认证中间件写入的当前用户
func principalFrom(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(contextKeyPrincipal).(domain.Principal)
	return p, ok
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(contextKeyRequestID).(string)
	return id
}

// Middleware HTTP 中间件
type Middleware func(http.HandlerFunc) http.HandlerFunc

// UserLookup 按 ID 确认账号仍然存在，不存在时返回 NotFoundError
type UserLookup func(ctx context.Context, userID int64) error

// Authenticator 校验 Bearer 令牌并把 Principal 放入请求上下文
type Authenticator struct {
	tokens *auth.TokenManager
	lookup UserLookup
	logger *zap.Logger
}

func NewAuthenticator(tokens *auth.TokenManager, logger *zap.Logger) *Authenticator {
	return &Authenticator{tokens: tokens, logger: logger}
}

// WithUserLookup 令牌有效期内删除的账号也会被拒绝
func (a *Authenticator) WithUserLookup(lookup UserLookup) *Authenticator {
	a.lookup = lookup
	return a
}

// RequireAuth 缺失或无效令牌返回 401
func (a *Authenticator) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			writeJSON(w, http.StatusUnauthorized, Fail("missing Authorization header"))
			return
		}
		claims, err := a.tokens.Parse(strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				writeJSON(w, http.StatusUnauthorized, Result[any]{Code: ResultTokenExpired, Type: "error", Message: "token expired"})
				return
			}
			a.logger.Debug("Rejected token", zap.Error(err))
			writeJSON(w, http.StatusUnauthorized, Fail("invalid token"))
			return
		}
		p, err := claims.Principal()
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, Fail("invalid token subject"))
			return
		}
		if a.lookup != nil {
			if err := a.lookup(r.Context(), p.UserID); err != nil {
				if domain.IsNotFound(err) {
					writeJSON(w, http.StatusUnauthorized, Fail("account no longer exists"))
					return
				}
				writeError(w, r, a.logger, err)
				return
			}
		}
		ctx := context.WithValue(r.Context(), contextKeyPrincipal, p)
		next(w, r.WithContext(ctx))
	}
}

// RequirePasswordChanged 初始密码未修改时拒绝访问（仅个人资料与修改密码放行）
func RequirePasswordChanged(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principalFrom(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, Fail("not authenticated"))
			return
		}
		if !p.PasswordChanged {
			writeJSON(w, http.StatusForbidden, Fail("password change required"))
			return
		}
		next(w, r)
	}
}

// RequireAdmin 非管理员返回 403
func RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principalFrom(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, Fail("not authenticated"))
			return
		}
		if !p.IsAdmin() {
			writeJSON(w, http.StatusForbidden, Fail("admin role required"))
			return
		}
		next(w, r)
	}
}

// statusRecorder 记录响应状态码
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

// RequestLogger 生成请求 ID 并记录访问日志，同时恢复 panic
func RequestLogger(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := r.Header.Get(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, reqID)
		rec := &statusRecorder{ResponseWriter: w}
		r = r.WithContext(context.WithValue(r.Context(), contextKeyRequestID, reqID))

		defer func() {
			if v := recover(); v != nil {
				logger.Error("Panic in handler",
					zap.Any("panic", v),
					zap.String("path", r.URL.Path),
					zap.String("request_id", reqID),
					zap.Stack("stack"),
				)
				if rec.status == 0 {
					writeJSON(rec, http.StatusInternalServerError, Fail("internal server error"))
				}
			}
			logger.Info("HTTP request",
				zap.String("request_id", reqID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Int("bytes", rec.bytes),
				zap.Duration("duration", time.Since(start)),
				zap.String("ip_address", getClientIP(r)),
			)
		}()
		next.ServeHTTP(rec, r)
	})
}

// WithCORS 跨域配置
func WithCORS(origins []string, next http.Handler) http.Handler {
	co := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader, "Content-Disposition"},
		AllowCredentials: true,
	})
	return co.Handler(next)
}
