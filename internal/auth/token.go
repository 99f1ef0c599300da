package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"societysync/internal/domain"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenIssuer 令牌签发方
const TokenIssuer = "societysync"

// Claims 会话令牌声明
type Claims struct {
	Username        string      `json:"username"`
	Role            domain.Role `json:"role"`
	FlatNumber      string      `json:"flat,omitempty"`
	Name            string      `json:"name"`
	PasswordChanged bool        `json:"pwd_changed"`
	jwt.RegisteredClaims
}

// Principal 令牌声明转换为请求主体
func (c *Claims) Principal() (domain.Principal, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("invalid subject %q", c.Subject)
	}
	return domain.Principal{
		UserID:          id,
		Username:        c.Username,
		Role:            c.Role,
		FlatNumber:      c.FlatNumber,
		Name:            c.Name,
		PasswordChanged: c.PasswordChanged,
	}, nil
}

// TokenManager HS256 会话令牌签发与校验
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager 创建令牌管理器
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue 为主体签发令牌，返回令牌与过期时间
func (m *TokenManager) Issue(p domain.Principal) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)
	claims := Claims{
		Username:        p.Username,
		Role:            p.Role,
		FlatNumber:      p.FlatNumber,
		Name:            p.Name,
		PasswordChanged: p.PasswordChanged,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    TokenIssuer,
			Subject:   strconv.FormatInt(p.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse 校验签名、签发方与过期时间
func (m *TokenManager) Parse(tokenStr string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	},
		jwt.WithIssuer(TokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, err
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, errors.New("invalid token")
	}
	return c, nil
}
